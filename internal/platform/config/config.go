// Package config loads server settings from an optional TOML file and the
// environment. Environment variables win over the file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAddr           = ":8080"
	DefaultRequestTimeout = 30 * time.Second
	DefaultKafkaTopic     = "consents.notifications"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string        `toml:"addr"`
	Environment    string        `toml:"environment"`
	LogLevel       string        `toml:"log_level"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	TrustedProxies string        `toml:"trusted_proxies"` // comma-separated CIDRs
}

type Database struct {
	URL string `toml:"url"`
}

type Kafka struct {
	Brokers string `toml:"brokers"` // comma-separated host:port list
	Topic   string `toml:"topic"`
}

type Config struct {
	Server   Server   `toml:"server"`
	Database Database `toml:"database"`
	Kafka    Kafka    `toml:"kafka"`
}

func Default() Config {
	return Config{
		Server: Server{
			Addr:           DefaultAddr,
			Environment:    "development",
			LogLevel:       "info",
			RequestTimeout: DefaultRequestTimeout,
		},
		Kafka: Kafka{Topic: DefaultKafkaTopic},
	}
}

// Load reads the file named by CONSENTS_CONFIG, if any, and then applies
// environment overrides.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()
	if path := getenv("CONSENTS_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if cfg.Server.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("request timeout must be positive, got %s", cfg.Server.RequestTimeout)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("CONSENTS_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := getenv("ENVIRONMENT"); v != "" {
		cfg.Server.Environment = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := getenv("REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse REQUEST_TIMEOUT: %w", err)
		}
		cfg.Server.RequestTimeout = d
	}
	if v := getenv("TRUSTED_PROXIES"); v != "" {
		cfg.Server.TrustedProxies = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = v
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	return nil
}

// InMemory reports whether the stores run without a database.
func (c Config) InMemory() bool {
	return c.Database.URL == ""
}

// ForwardingEnabled reports whether bus messages are mirrored to Kafka.
func (c Config) ForwardingEnabled() bool {
	return strings.TrimSpace(c.Kafka.Brokers) != ""
}
