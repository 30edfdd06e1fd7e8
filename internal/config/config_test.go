package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
app:
  name: "fundingrate-test"
  version: "1.0.0"
  env: "test"

server:
  port: 8090
  host: "localhost"
  read_timeout: 20s

database:
  enabled: true
  host: "localhost"
  port: 5432
  user: "funding"
  password: "funding"
  dbname: "fundingrate_test"

exchanges:
  lighter:
    enabled: true
    interval: 45s
    window_days: 2
  hyena:
    enabled: true
    interval: 4m
    window_days: 3
    intervals_per_year: 8760

ranking:
  top_n: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "fundingrate-test", cfg.App.Name)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 20*time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, "fundingrate_test", cfg.Database.DBName)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, 45*time.Second, cfg.Exchanges.Lighter.Interval.Duration())
	assert.Equal(t, 4*time.Minute, cfg.Exchanges.Hyena.Interval.Duration())
	assert.Equal(t, 5, cfg.Ranking.TopN)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
exchanges:
  lighter:
    enabled: true
  hyena:
    enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Exchanges.Lighter.Interval.Duration())
	assert.Equal(t, 2, cfg.Exchanges.Lighter.WindowDays)
	assert.Equal(t, 5*time.Minute, cfg.Exchanges.Hyena.Interval.Duration())
	assert.Equal(t, 3, cfg.Exchanges.Hyena.WindowDays)
	assert.Equal(t, 500*time.Millisecond, cfg.Exchanges.Hyena.MinRequestInterval.Duration())
	assert.Equal(t, 10, cfg.Ranking.TopN)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "/metrics", cfg.Monitoring.PrometheusPath)

	intervals := cfg.IntervalsPerYear()
	assert.Equal(t, float64(8760), intervals["lighter"])
	assert.Equal(t, float64(8760), intervals["hyena"])
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FUNDINGRATE_SERVER_PORT", "9090")
	t.Setenv("FUNDINGRATE_DATABASE_HOST", "db.example.com")
	t.Setenv("FUNDINGRATE_DATABASE_PASSWORD", "secret")
	t.Setenv("FUNDINGRATE_LOG_LEVEL", "debug")

	path := writeConfig(t, `
server:
  port: 8080

database:
  enabled: true
  host: "localhost"
  dbname: "fundingrate"

exchanges:
  lighter:
    enabled: true
  hyena:
    enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDurationParsing(t *testing.T) {
	path := writeConfig(t, `
exchanges:
  lighter:
    enabled: true
    interval: 90
  hyena:
    enabled: true
    interval: 2m30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// Bare numbers read as seconds, strings as Go durations.
	assert.Equal(t, 90*time.Second, cfg.Exchanges.Lighter.Interval.Duration())
	assert.Equal(t, 2*time.Minute+30*time.Second, cfg.Exchanges.Hyena.Interval.Duration())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = -1 },
			wantErr: true,
		},
		{
			name:    "database enabled without host",
			mutate:  func(c *Config) { c.Database.Enabled = true; c.Database.Host = "" },
			wantErr: true,
		},
		{
			name: "no exchange enabled",
			mutate: func(c *Config) {
				c.Exchanges.Lighter.Enabled = false
				c.Exchanges.Hyena.Enabled = false
			},
			wantErr: true,
		},
		{
			name:    "zero window",
			mutate:  func(c *Config) { c.Exchanges.Lighter.WindowDays = 0 },
			wantErr: true,
		},
		{
			name:    "negative retention",
			mutate:  func(c *Config) { c.Retention.Days = -1 },
			wantErr: true,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Exchanges.Lighter.Enabled = true
			cfg.Exchanges.Hyena.Enabled = true
			cfg.applyDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
