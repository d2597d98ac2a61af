// Package config loads and validates the filter's configuration from YAML
// files with .env and environment-variable overrides. It provides typed
// structs for every subsystem (Pipeline, Scoring, Elasticsearch, Postgres,
// Redis, Kafka, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ThresholdPlaceholder is substituted with the threshold value in
// PipelineConfig.OutputRootTemplate.
const ThresholdPlaceholder = "{threshold}"

// Supported scoring backends.
const (
	BackendElasticsearch = "elasticsearch"
	BackendPostgres      = "postgres"
	BackendRedis         = "redis"
)

// Config is the top-level application configuration.
type Config struct {
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Scoring       ScoringConfig       `yaml:"scoring"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Postgres      PostgresConfig      `yaml:"postgres"`
	Redis         RedisConfig         `yaml:"redis"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Ledger        LedgerConfig        `yaml:"ledger"`
	Logging       LoggingConfig       `yaml:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// PipelineConfig locates submission files and controls the worker pool.
type PipelineConfig struct {
	Collection         string        `yaml:"collection"`
	Home               string        `yaml:"home"`
	InputRoot          string        `yaml:"inputRoot"`
	OutputRootTemplate string        `yaml:"outputRootTemplate"`
	FileSuffix         string        `yaml:"fileSuffix"`
	Concurrency        int           `yaml:"concurrency"`
	NoResultDocID      string        `yaml:"noResultDocId"`
	Timeout            time.Duration `yaml:"timeout"`
	ProgressInterval   time.Duration `yaml:"progressInterval"`
}

// OutputRoot returns the output root for one threshold.
func (p PipelineConfig) OutputRoot(threshold int) string {
	return strings.ReplaceAll(p.OutputRootTemplate, ThresholdPlaceholder, strconv.Itoa(threshold))
}

// ScoringConfig selects the scoring backend and bounds how hard it is hit.
type ScoringConfig struct {
	Backend        string               `yaml:"backend"`
	LookupTimeout  time.Duration        `yaml:"lookupTimeout"`
	RateLimit      float64              `yaml:"rateLimit"`
	Burst          int                  `yaml:"burst"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// CircuitBreakerConfig mirrors resilience.CircuitBreakerConfig for YAML.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failureThreshold"`
	ResetTimeout     time.Duration `yaml:"resetTimeout"`
}

// ElasticsearchConfig points at the index holding spam percentiles.
type ElasticsearchConfig struct {
	Addresses       []string `yaml:"addresses"`
	Index           string   `yaml:"index"`
	IDField         string   `yaml:"idField"`
	PercentileField string   `yaml:"percentileField"`
	Username        string   `yaml:"username"`
	Password        string   `yaml:"password"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Table           string        `yaml:"table"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection parameters and the percentile key prefix.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"poolSize"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// KafkaConfig controls publication of per-file and per-run events.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LedgerConfig controls persistence of run summaries to PostgreSQL.
type LedgerConfig struct {
	Enabled bool `yaml:"enabled"`
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

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns a Config suitable for a local run against a single
// Elasticsearch node.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			FileSuffix:       ".txt",
			Concurrency:      4,
			Timeout:          0,
			ProgressInterval: 30 * time.Second,
		},
		Scoring: ScoringConfig{
			Backend:       BackendElasticsearch,
			LookupTimeout: 10 * time.Second,
			RateLimit:     0,
			Burst:         1,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 20,
				ResetTimeout:     30 * time.Second,
			},
		},
		Elasticsearch: ElasticsearchConfig{
			Addresses:       []string{"http://localhost:9200"},
			IDField:         "docid",
			PercentileField: "percentile",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "spamfilter",
			User:            "spamfilter",
			Password:        "localdev",
			SSLMode:         "disable",
			Table:           "spam_percentiles",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "spam:",
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "spamfilter-events",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// Validate reports the first setting that would make a run impossible.
func (c *Config) Validate() error {
	p := c.Pipeline
	if p.InputRoot == "" {
		return errors.New(errors.ErrInvalidInput, "pipeline.inputRoot is required")
	}
	if !strings.Contains(p.OutputRootTemplate, ThresholdPlaceholder) {
		return errors.Newf(errors.ErrInvalidInput, "pipeline.outputRootTemplate %q must contain %s", p.OutputRootTemplate, ThresholdPlaceholder)
	}
	if p.Concurrency <= 0 {
		return errors.Newf(errors.ErrInvalidInput, "pipeline.concurrency must be positive, got %d", p.Concurrency)
	}
	if p.NoResultDocID == "" {
		return errors.New(errors.ErrInvalidInput, "pipeline.noResultDocId is required")
	}
	if p.Timeout < 0 {
		return errors.Newf(errors.ErrInvalidInput, "pipeline.timeout must not be negative, got %s", p.Timeout)
	}
	switch c.Scoring.Backend {
	case BackendElasticsearch:
		if c.Elasticsearch.Index == "" {
			return errors.New(errors.ErrInvalidInput, "elasticsearch.index is required")
		}
	case BackendPostgres, BackendRedis:
	default:
		return errors.Newf(errors.ErrInvalidInput, "unknown scoring backend %q", c.Scoring.Backend)
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errors.New(errors.ErrInvalidInput, "kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	return nil
}

// applyEnvOverrides reads SF_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SF_COLLECTION"); v != "" {
		cfg.Pipeline.Collection = v
	}
	if v := os.Getenv("SF_HOME"); v != "" {
		cfg.Pipeline.Home = v
	}
	if v := os.Getenv("SF_INPUT_ROOT"); v != "" {
		cfg.Pipeline.InputRoot = v
	}
	if v := os.Getenv("SF_OUTPUT_ROOT_TEMPLATE"); v != "" {
		cfg.Pipeline.OutputRootTemplate = v
	}
	if v := os.Getenv("SF_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.Concurrency = n
		}
	}
	if v := os.Getenv("SF_NO_RESULT_DOC_ID"); v != "" {
		cfg.Pipeline.NoResultDocID = v
	}
	if v := os.Getenv("SF_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipeline.Timeout = d
		}
	}
	if v := os.Getenv("SF_SCORING_BACKEND"); v != "" {
		cfg.Scoring.Backend = v
	}
	if v := os.Getenv("SF_SCORING_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.RateLimit = f
		}
	}
	if v := os.Getenv("SF_ES_ADDRESSES"); v != "" {
		cfg.Elasticsearch.Addresses = strings.Split(v, ",")
	}
	if v := os.Getenv("SF_ES_INDEX"); v != "" {
		cfg.Elasticsearch.Index = v
	}
	if v := os.Getenv("SF_ES_USERNAME"); v != "" {
		cfg.Elasticsearch.Username = v
	}
	if v := os.Getenv("SF_ES_PASSWORD"); v != "" {
		cfg.Elasticsearch.Password = v
	}
	if v := os.Getenv("SF_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SF_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SF_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SF_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SF_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SF_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SF_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SF_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("SF_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SF_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SF_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
			cfg.Metrics.Enabled = true
		}
	}
}
