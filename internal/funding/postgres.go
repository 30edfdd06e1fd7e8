package funding

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore stores funding rate samples in PostgreSQL. It does not own
// the connection pool; the caller manages the pool's lifecycle.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append upserts one sample keyed by (exchange, symbol, observed_at).
func (s *PostgresStore) Append(ctx context.Context, sample *RateSample) error {
	query := `
		INSERT INTO funding_rates (exchange, symbol, rate, observed_at, next_funding_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (exchange, symbol, observed_at) DO UPDATE SET
			rate = EXCLUDED.rate,
			next_funding_at = EXCLUDED.next_funding_at
	`

	var next sql.NullTime
	if sample.NextFundingAt != nil {
		next = sql.NullTime{Time: sample.NextFundingAt.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		sample.Exchange,
		sample.Symbol,
		sample.Rate,
		sample.ObservedAt.UTC(),
		next,
	)
	if err != nil {
		return fmt.Errorf("failed to store funding rate: %w", err)
	}

	return nil
}

// Query returns the samples for one symbol since the given time, ascending.
func (s *PostgresStore) Query(ctx context.Context, exchange, symbol string, since time.Time) ([]*RateSample, error) {
	query := `
		SELECT exchange, symbol, rate, observed_at, next_funding_at
		FROM funding_rates
		WHERE exchange = $1 AND symbol = $2 AND observed_at >= $3
		ORDER BY observed_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, exchange, symbol, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query funding rates: %w", err)
	}
	defer rows.Close()

	var samples []*RateSample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate funding rates: %w", err)
	}

	return samples, nil
}

// Latest returns the most recent sample for one symbol, or ErrNoData.
func (s *PostgresStore) Latest(ctx context.Context, exchange, symbol string) (*RateSample, error) {
	query := `
		SELECT exchange, symbol, rate, observed_at, next_funding_at
		FROM funding_rates
		WHERE exchange = $1 AND symbol = $2
		ORDER BY observed_at DESC
		LIMIT 1
	`

	row := s.db.QueryRowContext(ctx, query, exchange, symbol)
	sample, err := scanSample(row)
	if err == sql.ErrNoRows {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, err
	}

	return sample, nil
}

// Symbols returns the distinct symbols with samples at or after since.
func (s *PostgresStore) Symbols(ctx context.Context, exchange string, since time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT symbol
		FROM funding_rates
		WHERE exchange = $1 AND observed_at >= $2
		ORDER BY symbol ASC
	`

	rows, err := s.db.QueryContext(ctx, query, exchange, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate symbols: %w", err)
	}

	return symbols, nil
}

// Summary describes the stored series for one exchange.
func (s *PostgresStore) Summary(ctx context.Context, exchange string) (*Summary, error) {
	query := `
		SELECT COUNT(*), COUNT(DISTINCT symbol),
			COALESCE(MIN(observed_at), to_timestamp(0)),
			COALESCE(MAX(observed_at), to_timestamp(0))
		FROM funding_rates
		WHERE exchange = $1
	`

	summary := &Summary{Exchange: exchange}
	err := s.db.QueryRowContext(ctx, query, exchange).Scan(
		&summary.SampleCount,
		&summary.SymbolCount,
		&summary.OldestAt,
		&summary.NewestAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}

	return summary, nil
}

// Prune deletes samples observed before the cutoff.
func (s *PostgresStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM funding_rates WHERE observed_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune funding rates: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}

	return removed, nil
}

// Ping reports whether the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSample(row scanner) (*RateSample, error) {
	sample := &RateSample{}
	var next sql.NullTime

	err := row.Scan(&sample.Exchange, &sample.Symbol, &sample.Rate, &sample.ObservedAt, &next)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan funding rate: %w", err)
	}

	if next.Valid {
		t := next.Time
		sample.NextFundingAt = &t
	}

	return sample, nil
}
