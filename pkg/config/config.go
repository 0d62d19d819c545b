// Package config loads and validates application configuration from YAML or
// TOML files with environment-variable overrides. It provides typed structs for every
// subsystem (Extractor, Corpus, Redis, Postgres, Kafka, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Extractor ExtractorConfig `yaml:"extractor"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ExtractorConfig holds the pattern-matching limits shared by the comparator,
// the lattice walk and the precomputation builder. The gap and span limits
// must agree across all three or the collocation fast path and the merge path
// would disagree.
type ExtractorConfig struct {
	MinGapSize       int     `yaml:"minGapSize"`
	MaxRuleSpan      int     `yaml:"maxRuleSpan"`
	MaxPhraseLen     int     `yaml:"maxPhraseLen"`
	MaxNonterminals  int     `yaml:"maxNonterminals"`
	UseBaezaYates    bool    `yaml:"useBaezaYates"`
	BaezaYatesFactor float64 `yaml:"baezaYatesFactor"`
	Workers          int     `yaml:"workers"`
}

// CorpusConfig points at the source-side training corpus and controls how the
// precomputed inverted index and collocation cache are built.
type CorpusConfig struct {
	Path                 string `yaml:"path"`
	PrecomputationPath   string `yaml:"precomputationPath"`
	PrecomputationKey    string `yaml:"precomputationKey"`
	FrequentMinCount     int    `yaml:"frequentMinCount"`
	MaxFrequentPhraseLen int    `yaml:"maxFrequentPhraseLen"`
	MaxFrequentPhrases   int    `yaml:"maxFrequentPhrases"`
}

// RedisConfig holds Redis connection parameters for the precomputation store.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	TTL      time.Duration `yaml:"ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
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

// KafkaConfig holds Kafka broker and topic settings for serve mode.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	ExtractRequests string `yaml:"extractRequests"`
	ExtractResults  string `yaml:"extractResults"`
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

// Load reads a config file (if provided) and applies environment-variable
// overrides. Files ending in .toml are read as TOML, anything else as YAML.
// Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if filepath.Ext(path) == ".toml" {
			err = toml.Unmarshal(data, cfg)
		} else {
			err = yaml.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Extractor.Validate(); err != nil {
		return nil, fmt.Errorf("validating extractor config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with the extraction limits used by hierarchical
// phrase-based systems and local-development infrastructure endpoints.
func Default() *Config {
	return &Config{
		Extractor: ExtractorConfig{
			MinGapSize:       1,
			MaxRuleSpan:      15,
			MaxPhraseLen:     5,
			MaxNonterminals:  2,
			UseBaezaYates:    true,
			BaezaYatesFactor: 1.0,
			Workers:          4,
		},
		Corpus: CorpusConfig{
			PrecomputationKey:    "default",
			FrequentMinCount:     100,
			MaxFrequentPhraseLen: 5,
			MaxFrequentPhrases:   100,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			TTL:      24 * time.Hour,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "extraction",
			User:            "extraction",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "extraction-group",
			Topics: KafkaTopics{
				ExtractRequests: "extract-requests",
				ExtractResults:  "extract-results",
			},
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

// Validate rejects limits the comparator and the lattice walk cannot honour.
func (e ExtractorConfig) Validate() error {
	if e.MinGapSize < 0 {
		return fmt.Errorf("minGapSize must be non-negative, got %d", e.MinGapSize)
	}
	if e.MaxRuleSpan < 1 {
		return fmt.Errorf("maxRuleSpan must be positive, got %d", e.MaxRuleSpan)
	}
	if e.MaxPhraseLen < 1 {
		return fmt.Errorf("maxPhraseLen must be positive, got %d", e.MaxPhraseLen)
	}
	if e.MaxNonterminals < 0 || e.MaxNonterminals > 2 {
		return fmt.Errorf("maxNonterminals must be between 0 and 2, got %d", e.MaxNonterminals)
	}
	if e.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", e.Workers)
	}
	return nil
}

// applyEnvOverrides reads GX_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GX_MIN_GAP_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Extractor.MinGapSize = n
		}
	}
	if v := os.Getenv("GX_MAX_RULE_SPAN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Extractor.MaxRuleSpan = n
		}
	}
	if v := os.Getenv("GX_USE_BAEZA_YATES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Extractor.UseBaezaYates = b
		}
	}
	if v := os.Getenv("GX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Extractor.Workers = n
		}
	}
	if v := os.Getenv("GX_CORPUS_PATH"); v != "" {
		cfg.Corpus.Path = v
	}
	if v := os.Getenv("GX_PRECOMPUTATION_PATH"); v != "" {
		cfg.Corpus.PrecomputationPath = v
	}
	if v := os.Getenv("GX_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("GX_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("GX_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("GX_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("GX_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("GX_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GX_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
