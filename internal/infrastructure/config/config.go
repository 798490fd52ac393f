package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	ServerAddress   string
	ShutdownTimeout time.Duration
	LogLevel        slog.Level

	// Storage
	DatabaseDriver string // sqlite, postgres or memory
	DatabasePath   string // sqlite file, ":memory:" for a throwaway database
	DatabaseURL    string // postgres DSN

	// Session engine
	PoolLimit         int
	PersistWorkers    int
	PersistRetries    int
	PersistRetryDelay time.Duration

	// Live session registry
	SessionRetention     time.Duration
	SessionIdleTimeout   time.Duration
	SessionSweepInterval time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("SERVER_ADDRESS", ":8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_PATH", "quizwise.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("POOL_LIMIT", 500)
	v.SetDefault("PERSIST_WORKERS", 4)
	v.SetDefault("PERSIST_RETRIES", 3)
	v.SetDefault("PERSIST_RETRY_DELAY", 200*time.Millisecond)
	v.SetDefault("SESSION_RETENTION", 15*time.Minute)
	v.SetDefault("SESSION_IDLE_TIMEOUT", 2*time.Hour)
	v.SetDefault("SESSION_SWEEP_INTERVAL", time.Minute)
	v.AutomaticEnv()
	return v
}

// FromViper builds and validates a Config from v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ServerAddress:     v.GetString("SERVER_ADDRESS"),
		ShutdownTimeout:   v.GetDuration("SHUTDOWN_TIMEOUT"),
		DatabaseDriver:    strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabasePath:      v.GetString("DATABASE_PATH"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		PoolLimit:         v.GetInt("POOL_LIMIT"),
		PersistWorkers:    v.GetInt("PERSIST_WORKERS"),
		PersistRetries:    v.GetInt("PERSIST_RETRIES"),
		PersistRetryDelay: v.GetDuration("PERSIST_RETRY_DELAY"),

		SessionRetention:     v.GetDuration("SESSION_RETENTION"),
		SessionIdleTimeout:   v.GetDuration("SESSION_IDLE_TIMEOUT"),
		SessionSweepInterval: v.GetDuration("SESSION_SWEEP_INTERVAL"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("LOG_LEVEL"))); err != nil {
		return nil, errors.Wrap(err, "config: LOG_LEVEL")
	}

	switch cfg.DatabaseDriver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("config: DATABASE_URL is required for the postgres driver")
		}
	default:
		return nil, errors.Errorf("config: unknown DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	if cfg.ServerAddress == "" {
		return nil, errors.New("config: SERVER_ADDRESS is empty")
	}
	if cfg.ShutdownTimeout <= 0 {
		return nil, errors.Errorf("config: SHUTDOWN_TIMEOUT must be positive, got %s", cfg.ShutdownTimeout)
	}
	if cfg.PersistWorkers < 1 {
		return nil, errors.Errorf("config: PERSIST_WORKERS must be at least 1, got %d", cfg.PersistWorkers)
	}
	if cfg.PersistRetries < 1 {
		return nil, errors.Errorf("config: PERSIST_RETRIES must be at least 1, got %d", cfg.PersistRetries)
	}
	if cfg.SessionRetention < 0 || cfg.SessionIdleTimeout < 0 {
		return nil, errors.New("config: SESSION_RETENTION and SESSION_IDLE_TIMEOUT must not be negative")
	}
	return cfg, nil
}
