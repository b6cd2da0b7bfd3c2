// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	strutil "contactbook/pkg/platform/strings"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// StoreDriver selects the document store: memory, file, postgres or redis.
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	// StoreFilePath is the JSON document file used by the file driver.
	StoreFilePath string `mapstructure:"STORE_FILE_PATH"`
	// DatabaseURL is the Postgres DSN; required by the postgres driver.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the redis:// URL; required by the redis driver.
	RedisURL string `mapstructure:"REDIS_URL"`
	// RedisKeyPrefix namespaces every key written by the redis driver.
	RedisKeyPrefix string `mapstructure:"REDIS_KEY_PREFIX"`

	// KafkaBrokers is a comma-separated list of brokers. Empty disables change events.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// KafkaTopic receives contact.saved and contact.deleted events.
	KafkaTopic string `mapstructure:"KAFKA_TOPIC"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// SerializeWrites makes the gateway's lookup-then-write sequence atomic within this process.
	SerializeWrites bool `mapstructure:"SERIALIZE_WRITES"`
	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("STORE_DRIVER", DriverFile)
	v.SetDefault("STORE_FILE_PATH", "contacts.json")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_KEY_PREFIX", "contactbook")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "contact-events")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SERIALIZE_WRITES", false)
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case DriverMemory:
	case DriverFile:
		if c.StoreFilePath == "" {
			return errors.New("config: STORE_FILE_PATH must be set for the file driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set for the postgres driver")
		}
	case DriverRedis:
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL must be set for the redis driver")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.KafkaBrokers != "" && c.KafkaTopic == "" {
		return errors.New("config: KAFKA_TOPIC must be set when KAFKA_BROKERS is set")
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return nil
}

// BrokersList splits KafkaBrokers, dropping blanks and duplicates.
func (c *Config) BrokersList() []string {
	return strutil.SplitList(c.KafkaBrokers, ",")
}
