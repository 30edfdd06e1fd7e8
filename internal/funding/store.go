package funding

import (
	"context"
	"time"
)

// Store persists funding rate samples as a time series. Implementations must
// be safe for concurrent use; writes for the same (exchange, symbol,
// observed_at) key overwrite the existing row so repeated cycles stay
// idempotent.
type Store interface {
	// Append upserts one sample. The sample becomes visible to readers
	// atomically.
	Append(ctx context.Context, sample *RateSample) error

	// Query returns the samples for one symbol with observed_at >= since,
	// ordered by observed_at ascending.
	Query(ctx context.Context, exchange, symbol string, since time.Time) ([]*RateSample, error)

	// Latest returns the most recent sample for one symbol, or ErrNoData.
	Latest(ctx context.Context, exchange, symbol string) (*RateSample, error)

	// Symbols returns the distinct symbols with at least one sample at or
	// after since, sorted ascending.
	Symbols(ctx context.Context, exchange string, since time.Time) ([]string, error)

	// Summary describes the stored series for one exchange. An exchange
	// with no rows yields a Summary with zero counts.
	Summary(ctx context.Context, exchange string) (*Summary, error)

	// Prune deletes samples observed before the cutoff and reports how many
	// rows were removed.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
