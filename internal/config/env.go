package config

import (
	"os"
	"strconv"
	"strings"
)

// EnvPrefix namespaces the environment overrides for this service.
const EnvPrefix = "FUNDINGRATE_"

// envString reads a prefixed environment variable.
func envString(key, defaultValue string) string {
	value := os.Getenv(EnvPrefix + strings.ToUpper(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// envInt reads a prefixed integer environment variable.
func envInt(key string, defaultValue int) int {
	value := envString(key, "")
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

// envBool reads a prefixed boolean environment variable.
func envBool(key string, defaultValue bool) bool {
	value := envString(key, "")
	if value == "" {
		return defaultValue
	}
	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}
	return defaultValue
}

// applyEnvOverrides lets the environment override file values, mainly for
// secrets and deployment-specific endpoints.
func (c *Config) applyEnvOverrides() {
	c.Server.Host = envString("SERVER_HOST", c.Server.Host)
	c.Server.Port = envInt("SERVER_PORT", c.Server.Port)

	c.Database.Enabled = envBool("DATABASE_ENABLED", c.Database.Enabled)
	c.Database.Host = envString("DATABASE_HOST", c.Database.Host)
	c.Database.Port = envInt("DATABASE_PORT", c.Database.Port)
	c.Database.User = envString("DATABASE_USER", c.Database.User)
	c.Database.Password = envString("DATABASE_PASSWORD", c.Database.Password)
	c.Database.DBName = envString("DATABASE_NAME", c.Database.DBName)
	c.Database.SSLMode = envString("DATABASE_SSLMODE", c.Database.SSLMode)

	c.Redis.Enabled = envBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = envString("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = envString("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = envInt("REDIS_DB", c.Redis.DB)

	c.Exchanges.Lighter.BaseURL = envString("LIGHTER_BASE_URL", c.Exchanges.Lighter.BaseURL)
	c.Exchanges.Hyena.BaseURL = envString("HYENA_BASE_URL", c.Exchanges.Hyena.BaseURL)

	c.Logging.Level = envString("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = envString("LOG_FORMAT", c.Logging.Format)
}
