package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

/* Config is read from an optional .env file (TOML syntax) in the working
 * directory, overridden by environment variables of the same name.
 * Every key has a default so AutomaticEnv reaches viper.Unmarshal.
 */

const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
)

type Config struct {
	Env  string `mapstructure:"APP_ENV"`
	Port string `mapstructure:"PORT"`

	StoreDriver string `mapstructure:"STORE_DRIVER"`
	AutoMigrate bool   `mapstructure:"AUTO_MIGRATE"`

	DatabaseURL                    string `mapstructure:"DATABASE_URL"`
	PostgresMaxOpenConns           int    `mapstructure:"POSTGRES_MAX_OPEN_CONNS"`
	PostgresMaxIdleConns           int    `mapstructure:"POSTGRES_MAX_IDLE_CONNS"`
	PostgresConnMaxLifetimeMinutes int    `mapstructure:"POSTGRES_CONN_MAX_LIFETIME_MINUTES"`

	SQLitePath string `mapstructure:"SQLITE_PATH"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	CaptureMaxBodyBytes int64    `mapstructure:"CAPTURE_MAX_BODY_BYTES"`
	TrustProxy          bool     `mapstructure:"TRUST_PROXY"`
	CORSAllowedOrigins  []string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	MetricsEnabled      bool     `mapstructure:"METRICS_ENABLED"`

	LogLevel         string `mapstructure:"LOG_LEVEL"`
	LogFormat        string `mapstructure:"LOG_FORMAT"`
	LogOutput        string `mapstructure:"LOG_OUTPUT"`
	LogFilePath      string `mapstructure:"LOG_FILE_PATH"`
	LogFileMaxSizeMB int    `mapstructure:"LOG_FILE_MAX_SIZE_MB"`
	LogFileBackups   int    `mapstructure:"LOG_FILE_MAX_BACKUPS"`
	LogFileMaxAge    int    `mapstructure:"LOG_FILE_MAX_AGE_DAYS"`
	LogFileCompress  bool   `mapstructure:"LOG_FILE_COMPRESS"`

	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var defaults = map[string]interface{}{
	"APP_ENV":                            "development",
	"PORT":                               "3333",
	"STORE_DRIVER":                       StorePostgres,
	"AUTO_MIGRATE":                       true,
	"DATABASE_URL":                       "",
	"POSTGRES_MAX_OPEN_CONNS":            25,
	"POSTGRES_MAX_IDLE_CONNS":            5,
	"POSTGRES_CONN_MAX_LIFETIME_MINUTES": 5,
	"SQLITE_PATH":                        "webhooks.db",
	"REDIS_ADDR":                         "localhost:6379",
	"REDIS_PASSWORD":                     "",
	"REDIS_DB":                           0,
	"CAPTURE_MAX_BODY_BYTES":             1 << 20,
	"TRUST_PROXY":                        false,
	"CORS_ALLOWED_ORIGINS":               []string{"*"},
	"METRICS_ENABLED":                    true,
	"LOG_LEVEL":                          "info",
	"LOG_FORMAT":                         "json",
	"LOG_OUTPUT":                         "stdout",
	"LOG_FILE_PATH":                      "logs/webhook-inspector.log",
	"LOG_FILE_MAX_SIZE_MB":               100,
	"LOG_FILE_MAX_BACKUPS":               3,
	"LOG_FILE_MAX_AGE_DAYS":              28,
	"LOG_FILE_COMPRESS":                  true,
	"SHUTDOWN_TIMEOUT":                   "30s",
}

// GetConfig loads .env from the working directory and the environment
func GetConfig() (*Config, error) {
	return Load(".")
}

// Load reads the optional .env file from dir; a missing file is not an error
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &config, nil
}

// Validate checks enums and the settings the chosen store needs
func (c *Config) Validate() error {
	switch c.Env {
	case "development", "test", "production":
	default:
		return fmt.Errorf("APP_ENV must be development, test or production, got %q", c.Env)
	}
	if c.Port == "" {
		return errors.New("PORT is required")
	}

	switch c.StoreDriver {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite store")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis store")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be postgres, sqlite or redis, got %q", c.StoreDriver)
	}

	if c.CaptureMaxBodyBytes <= 0 {
		return errors.New("CAPTURE_MAX_BODY_BYTES must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	switch c.LogOutput {
	case "stdout", "file", "both":
	default:
		return fmt.Errorf("LOG_OUTPUT must be stdout, file or both, got %q", c.LogOutput)
	}
	return nil
}
