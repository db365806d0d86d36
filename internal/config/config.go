package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Storage
	StoreDriver   string
	SQLitePath    string
	DatabaseURL   string
	MigrationsDir string

	// Redis (optional)
	RedisURL string

	// Identity
	DefaultUserID string
	DefaultTheme  string

	// Logging
	LogFile string

	// Rate limiting for write endpoints (requests per minute per IP)
	WriteRateLimit int

	// TrustProxy honours X-Forwarded-For / X-Real-IP for the client address.
	// Leave off unless a proxy in front of the server rewrites those headers,
	// otherwise clients can pick their own rate-limit key.
	TrustProxy bool

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		Env:            getEnvOrDefault("ENV", "development"),
		StoreDriver:    getEnvOrDefault("STORE_DRIVER", DriverSQLite),
		SQLitePath:     getEnvOrDefault("SQLITE_PATH", "pomodoro_data.db"),
		DatabaseURL:    getEnvOrDefault("DATABASE_URL", ""),
		MigrationsDir:  getEnvOrDefault("MIGRATIONS_DIR", "migrations"),
		RedisURL:       getEnvOrDefault("REDIS_URL", ""),
		DefaultUserID:  getEnvOrDefault("DEFAULT_USER_ID", "guest_user"),
		DefaultTheme:   getEnvOrDefault("DEFAULT_THEME", "study"),
		LogFile:        getEnvOrDefault("LOG_FILE", ""),
		WriteRateLimit: getEnvAsIntOrDefault("WRITE_RATE_LIMIT", 60),
		TrustProxy:     getEnvAsBoolOrDefault("TRUST_PROXY", false),
		FrontendURL:    getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	if cfg.StoreDriver == DriverPostgres {
		cfg.DatabaseURL = mustGetEnv("DATABASE_URL")
	}

	return cfg
}

// Validate reports configuration combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH must not be empty")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s driver", DriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (want %s or %s)", c.StoreDriver, DriverSQLite, DriverPostgres)
	}
	if c.DefaultUserID == "" {
		return fmt.Errorf("DEFAULT_USER_ID must not be empty")
	}
	if c.WriteRateLimit <= 0 {
		return fmt.Errorf("WRITE_RATE_LIMIT must be positive, got %d", c.WriteRateLimit)
	}
	return nil
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
