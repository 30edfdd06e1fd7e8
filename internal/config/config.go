package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/samnmbuguah/FundingRate/internal/funding"
)

// Config represents the application configuration
type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Exchanges  ExchangesConfig  `yaml:"exchanges"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Retention  RetentionConfig  `yaml:"retention"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	CORS       CORSConfig       `yaml:"cors"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AppConfig represents application configuration
type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port         int      `yaml:"port"`
	Host         string   `yaml:"host"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// DatabaseConfig represents database configuration. With Enabled false the
// service keeps all samples in memory instead.
type DatabaseConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	DBName   string   `yaml:"dbname"`
	SSLMode  string   `yaml:"sslmode"`
	MaxOpen  int      `yaml:"max_open"`
	MaxIdle  int      `yaml:"max_idle"`
	Timeout  Duration `yaml:"timeout"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// ExchangesConfig holds the per-venue feed configuration.
type ExchangesConfig struct {
	Lighter ExchangeConfig `yaml:"lighter"`
	Hyena   ExchangeConfig `yaml:"hyena"`
}

// ExchangeConfig represents one venue feed.
type ExchangeConfig struct {
	Enabled            bool     `yaml:"enabled"`
	BaseURL            string   `yaml:"base_url"`
	Dex                string   `yaml:"dex"`
	Interval           Duration `yaml:"interval"`
	WindowDays         int      `yaml:"window_days"`
	Symbols            []string `yaml:"symbols"`
	MinRequestInterval Duration `yaml:"min_request_interval"`
	IntervalsPerYear   float64  `yaml:"intervals_per_year"`
	HistoryHours       int      `yaml:"history_hours"`
	Backfill           bool     `yaml:"backfill"`
}

// RankingConfig represents opportunity ranking configuration
type RankingConfig struct {
	TopN int `yaml:"top_n"`
}

// RetentionConfig controls sample pruning. Days 0 keeps samples forever.
type RetentionConfig struct {
	Days int `yaml:"days"`
}

// MonitoringConfig represents monitoring configuration
type MonitoringConfig struct {
	PrometheusEnabled bool   `yaml:"prometheus_enabled"`
	PrometheusPath    string `yaml:"prometheus_path"`
}

// CORSConfig represents CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	Filename   string `yaml:"filename"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Duration wraps time.Duration so YAML values like "90s" parse naturally.
// Bare numbers are read as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("invalid duration: %s", value.Value)
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	return fmt.Errorf("invalid duration %q", raw)
}

// Duration returns the wrapped standard duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load loads configuration from a YAML file, then applies environment
// overrides and defaults. A .env file next to the process is honored when
// present.
func Load(filename string) (*Config, error) {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvOverrides()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyDefaults fills unset fields with working values.
func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "fundingrate"
	}
	if c.App.Env == "" {
		c.App.Env = "development"
	}

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(15 * time.Second)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(15 * time.Second)
	}

	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpen == 0 {
		c.Database.MaxOpen = 10
	}
	if c.Database.MaxIdle == 0 {
		c.Database.MaxIdle = 5
	}
	if c.Database.Timeout == 0 {
		c.Database.Timeout = Duration(5 * time.Second)
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}

	c.Exchanges.Lighter.applyDefaults(funding.ExchangeLighter)
	c.Exchanges.Hyena.applyDefaults(funding.ExchangeHyena)

	if c.Ranking.TopN == 0 {
		c.Ranking.TopN = funding.DefaultTopN
	}

	if c.Monitoring.PrometheusPath == "" {
		c.Monitoring.PrometheusPath = "/metrics"
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Content-Type", "Authorization"}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

func (e *ExchangeConfig) applyDefaults(name string) {
	if e.Interval == 0 {
		switch name {
		case funding.ExchangeLighter:
			e.Interval = Duration(time.Minute)
		default:
			e.Interval = Duration(5 * time.Minute)
		}
	}
	if e.WindowDays == 0 {
		switch name {
		case funding.ExchangeLighter:
			e.WindowDays = 2
		default:
			e.WindowDays = 3
		}
	}
	if e.MinRequestInterval == 0 {
		e.MinRequestInterval = Duration(500 * time.Millisecond)
	}
	if e.IntervalsPerYear == 0 {
		e.IntervalsPerYear = funding.DefaultIntervalsPerYear
	}
	if e.HistoryHours == 0 {
		e.HistoryHours = 6
	}
}

// IntervalsPerYear maps venue names to annualization constants for the
// aggregator.
func (c *Config) IntervalsPerYear() map[string]float64 {
	return map[string]float64{
		funding.ExchangeLighter: c.Exchanges.Lighter.IntervalsPerYear,
		funding.ExchangeHyena:   c.Exchanges.Hyena.IntervalsPerYear,
	}
}
