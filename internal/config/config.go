package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=dinein port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string `yaml:"http_port"`
	DatabaseDSN string `yaml:"database_dsn"`
	JWTSecret   string `yaml:"jwt_secret"`
	CORSOrigins string `yaml:"cors_origins"`

	LogLevel string `yaml:"log_level"` // trace, debug, info, warn, error, fatal, panic
	LogFile  string `yaml:"log_file"`  // empty: stdout

	SeedTables         bool   `yaml:"seed_tables"`
	DefaultManagerName string `yaml:"default_manager_name"`
	DefaultManagerPIN  string `yaml:"default_manager_pin"`

	Events EventsConfig `yaml:"events"`
}

type EventsConfig struct {
	Driver           string   `yaml:"driver"` // none / kafka / rabbitmq
	KafkaBrokers     []string `yaml:"kafka_brokers"`
	KafkaTopic       string   `yaml:"kafka_topic"`
	RabbitMQURL      string   `yaml:"rabbitmq_url"`
	RabbitMQExchange string   `yaml:"rabbitmq_exchange"`
}

func defaults() *Config {
	return &Config{
		HTTPPort:           "8080",
		DatabaseDSN:        defaultDSN,
		CORSOrigins:        "http://localhost:5173",
		LogLevel:           "info",
		SeedTables:         true,
		DefaultManagerName: "manager",
		Events: EventsConfig{
			Driver:           "none",
			KafkaTopic:       "dinein.events",
			RabbitMQExchange: "dinein.events",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path (if
// path is not empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", cfg.DatabaseDSN)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.CORSOrigins = getEnv("CORS_ALLOWED_ORIGINS", cfg.CORSOrigins)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.SeedTables = getEnv("SEED_TABLES", fmt.Sprint(cfg.SeedTables)) == "true"
	cfg.DefaultManagerName = getEnv("DEFAULT_MANAGER_NAME", cfg.DefaultManagerName)
	cfg.DefaultManagerPIN = getEnv("DEFAULT_MANAGER_PIN", cfg.DefaultManagerPIN)

	cfg.Events.Driver = getEnv("EVENTS_DRIVER", cfg.Events.Driver)
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.Events.KafkaBrokers = splitList(brokers)
	}
	cfg.Events.KafkaTopic = getEnv("KAFKA_TOPIC", cfg.Events.KafkaTopic)
	cfg.Events.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.Events.RabbitMQURL)
	cfg.Events.RabbitMQExchange = getEnv("RABBITMQ_EXCHANGE", cfg.Events.RabbitMQExchange)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return fmt.Errorf("unknown log level: %q", c.LogLevel)
	}
	switch c.Events.Driver {
	case "", "none":
	case "kafka":
		if len(c.Events.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required for the kafka events driver")
		}
	case "rabbitmq":
		if c.Events.RabbitMQURL == "" {
			return errors.New("RABBITMQ_URL is required for the rabbitmq events driver")
		}
	default:
		return fmt.Errorf("unknown events driver: %q", c.Events.Driver)
	}
	return nil
}

// Warnings lists settings that still carry development defaults.
func (c *Config) Warnings() []string {
	var w []string
	if c.DatabaseDSN == defaultDSN {
		w = append(w, "DATABASE_DSN uses the default value, set your own Postgres DSN in production")
	}
	if c.CORSOrigins == "http://localhost:5173" {
		w = append(w, "CORS_ALLOWED_ORIGINS uses the default value, set your own domain in production")
	}
	return w
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
