// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Kafka, Postgres, Redis, Pipeline, Logging, etc.). Credentials are
// never read from configuration files: the sink password and the SMTP alert
// channel come exclusively from the process environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Kafka    KafkaConfig    `yaml:"kafka"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Alert    AlertConfig    `yaml:"-"`
}

// KafkaConfig holds the broker addresses and the record topic.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	Topic         string   `yaml:"topic"`
	ConsumerGroup string   `yaml:"consumerGroup"`
}

// PostgresConfig holds the sink connection parameters. The password is
// sourced from the POSTGRES_PASSWORD environment variable only.
type PostgresConfig struct {
	URL             string        `yaml:"url"`
	User            string        `yaml:"user"`
	Driver          string        `yaml:"driver"`
	Password        string        `yaml:"-"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN merges the configured user and the environment-sourced password into
// the resource URL and returns a driver-compatible data source name.
func (p PostgresConfig) DSN() (string, error) {
	u, err := url.Parse(p.URL)
	if err != nil {
		return "", fmt.Errorf("parsing postgres url: %w", err)
	}
	if p.User != "" {
		if p.Password != "" {
			u.User = url.UserPassword(p.User, p.Password)
		} else {
			u.User = url.User(p.User)
		}
	}
	return u.String(), nil
}

// RedisConfig holds the optional score-cache connection parameters. The
// pipeline runs without Redis when Enabled is false.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// PipelineConfig controls micro-batch sizing and scoring concurrency.
// BatchTimeout bounds the processing of a single batch; zero disables the
// bound.
type PipelineConfig struct {
	BatchSize    int           `yaml:"batchSize"`
	BatchWait    time.Duration `yaml:"batchWait"`
	Workers      int           `yaml:"workers"`
	BatchTimeout time.Duration `yaml:"batchTimeout"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// TracingConfig controls per-batch stage span logging.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// AlertConfig holds the SMTP alert channel. It is populated exclusively from
// the ALERT_EMAIL, ALERT_EMAIL_PASSWORD, SMTP_SERVER, and SMTP_PORT
// environment variables.
type AlertConfig struct {
	Email      string `yaml:"-"`
	Password   string `yaml:"-"`
	SMTPServer string `yaml:"-"`
	SMTPPort   int    `yaml:"-"`
}

// Configured reports whether the alert channel has enough settings to send
// email. The pipeline still runs when it does not; alerts degrade to logs.
func (a AlertConfig) Configured() bool {
	return a.Email != "" && a.SMTPServer != "" && a.SMTPPort != 0
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			Topic:         "social-posts",
			ConsumerGroup: "sentiment-pipeline",
		},
		Postgres: PostgresConfig{
			URL:             "postgres://localhost:5432/sentiment?sslmode=disable",
			User:            "sentiment",
			Driver:          "postgres",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 6 * time.Hour,
		},
		Pipeline: PipelineConfig{
			BatchSize:    100,
			BatchWait:    time.Second,
			Workers:      4,
			BatchTimeout: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		Tracing: TracingConfig{
			Enabled: false,
		},
	}
}

// applyEnvOverrides reads SSP_* environment variables and overrides the
// corresponding config fields. Credentials use their fixed, unprefixed names.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SSP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SSP_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("SSP_KAFKA_CONSUMER_GROUP"); v != "" {
		cfg.Kafka.ConsumerGroup = v
	}
	if v := os.Getenv("SSP_POSTGRES_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("SSP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SSP_POSTGRES_DRIVER"); v != "" {
		cfg.Postgres.Driver = v
	}
	if v := os.Getenv("SSP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SSP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SSP_PIPELINE_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.BatchSize = n
		}
	}
	if v := os.Getenv("SSP_PIPELINE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.Workers = n
		}
	}
	if v := os.Getenv("SSP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SSP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SSP_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("ALERT_EMAIL"); v != "" {
		cfg.Alert.Email = v
	}
	if v := os.Getenv("ALERT_EMAIL_PASSWORD"); v != "" {
		cfg.Alert.Password = v
	}
	if v := os.Getenv("SMTP_SERVER"); v != "" {
		cfg.Alert.SMTPServer = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Alert.SMTPPort = port
		}
	}
}

// validate rejects configurations the pipeline cannot start with. Defaults
// cover every field, so this only trips when a file or override explicitly
// clears one.
func (c *Config) validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers must not be empty")
	}
	if c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic must not be empty")
	}
	if c.Kafka.ConsumerGroup == "" {
		return fmt.Errorf("kafka.consumerGroup must not be empty")
	}
	if c.Postgres.URL == "" {
		return fmt.Errorf("postgres.url must not be empty")
	}
	if c.Postgres.Driver == "" {
		return fmt.Errorf("postgres.driver must not be empty")
	}
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("pipeline.batchSize must be positive")
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be positive")
	}
	return nil
}
