package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/samnmbuguah/FundingRate/internal/logger"
)

// DB represents the database connection pool
type DB struct {
	*sql.DB
	config *Config
}

// Config represents database configuration
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpen         int
	MaxIdle         int
	Timeout         time.Duration
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// NewConnection creates a new database connection pool and verifies it with
// a short ping-retry loop.
func NewConnection(cfg *Config) (*DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpen <= 0 {
		cfg.MaxOpen = 10
	}
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = time.Hour
	}
	if cfg.ConnMaxIdleTime <= 0 {
		cfg.ConnMaxIdleTime = 15 * time.Minute
	}

	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	var pingErr error
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		pingErr = db.PingContext(ctx)
		if pingErr == nil {
			break
		}

		logger.Warn("database ping failed",
			"attempt", i+1, "max_attempts", maxRetries, "error", pingErr.Error())
		if i < maxRetries-1 {
			time.Sleep(time.Second * time.Duration(i+1))
		}
	}
	if pingErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s at %s:%d after %d attempts: %w",
			cfg.DBName, cfg.Host, cfg.Port, maxRetries, pingErr)
	}

	logger.Info("database connection established",
		"host", cfg.Host, "dbname", cfg.DBName,
		"max_open", cfg.MaxOpen, "max_idle", cfg.MaxIdle)

	return &DB{DB: db, config: cfg}, nil
}

// Close closes the connection pool
func (db *DB) Close() error {
	return db.DB.Close()
}

// HealthCheck reports whether the database answers a ping
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}

// GetConfig returns the database configuration
func (db *DB) GetConfig() *Config {
	return db.config
}
