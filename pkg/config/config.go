// Package config loads the typed configuration for the memory service from
// environment variables, an optional YAML file, and a .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host           string   `json:"host" env:"SERVER_HOST"`
	Port           int      `json:"port" env:"SERVER_PORT"`
	CORSOrigins    []string `json:"cors_origins" env:"SERVER_CORS_ORIGINS"`
	ShutdownGrace  int      `json:"shutdown_grace_seconds" env:"SERVER_SHUTDOWN_GRACE_SECONDS"`
}

// RelationalConfig controls the relational store (scheduled intents,
// typed-memory projections, profile and portfolio tables).
type RelationalConfig struct {
	Driver          string `json:"driver" env:"RELATIONAL_DRIVER"`
	DSN             string `json:"dsn" env:"RELATIONAL_DSN"`
	Host            string `json:"host" env:"RELATIONAL_HOST"`
	Port            int    `json:"port" env:"RELATIONAL_PORT"`
	User            string `json:"user" env:"RELATIONAL_USER"`
	Password        string `json:"password" env:"RELATIONAL_PASSWORD"`
	Name            string `json:"name" env:"RELATIONAL_NAME"`
	SSLMode         string `json:"sslmode" env:"RELATIONAL_SSLMODE"`
	MaxOpenConns    int    `json:"max_open_conns" env:"RELATIONAL_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `json:"max_idle_conns" env:"RELATIONAL_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `json:"conn_max_lifetime_seconds" env:"RELATIONAL_CONN_MAX_LIFETIME_SECONDS"`
	MigrateOnStart  bool   `json:"migrate_on_start" env:"RELATIONAL_MIGRATE_ON_START"`
}

// ConnectionString builds a libpq-style DSN from host parameters when DSN is unset.
func (c RelationalConfig) ConnectionString() string {
	if strings.TrimSpace(c.DSN) != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// VectorStoreConfig controls the vector adapter.
type VectorStoreConfig struct {
	Endpoint       string `json:"endpoint" env:"VECTOR_ENDPOINT"`
	Collection     string `json:"collection" env:"VECTOR_COLLECTION"`
	EmbeddingDim   int    `json:"embedding_dimension" env:"VECTOR_EMBEDDING_DIMENSION"`
	DistanceMetric string `json:"distance_metric" env:"VECTOR_DISTANCE_METRIC"`
}

// CacheConfig controls the cache adapter (Redis-backed in production, an
// in-process TTL map when CacheURL is empty).
type CacheConfig struct {
	CacheURL           string `json:"url" env:"CACHE_URL"`
	DefaultTTLSeconds  int    `json:"default_ttl_seconds" env:"CACHE_DEFAULT_TTL_SECONDS"`
	SynthesisTTLSecond int    `json:"synthesis_ttl_seconds" env:"CACHE_SYNTHESIS_TTL_SECONDS"`
}

// LLMConfig selects and configures the LLM/embedding collaborators.
type LLMConfig struct {
	Provider          string `json:"provider" env:"LLM_PROVIDER"`
	ExtractionTimeout int    `json:"extraction_timeout_seconds" env:"LLM_EXTRACTION_TIMEOUT_SECONDS"`
	StoreTimeout      int    `json:"store_timeout_seconds" env:"LLM_STORE_TIMEOUT_SECONDS"`
	CacheTimeoutMS    int    `json:"cache_timeout_ms" env:"LLM_CACHE_TIMEOUT_MS"`
}

// FeatureFlags gates optional system behavior.
type FeatureFlags struct {
	SynthesisEnabled   bool `json:"synthesis_enabled" env:"FEATURE_SYNTHESIS_ENABLED"`
	ProactivityEnabled bool `json:"proactivity_enabled" env:"FEATURE_PROACTIVITY_ENABLED"`
	MultiStoreEnabled  bool `json:"multi_store_enabled" env:"FEATURE_MULTI_STORE_ENABLED"`
	GraphEnabled       bool `json:"graph_enabled" env:"FEATURE_GRAPH_ENABLED"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level  string `json:"level" env:"LOG_LEVEL"`
	Format string `json:"format" env:"LOG_FORMAT"`
}

// AuthConfig controls HTTP bearer-token authentication.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" env:"AUTH_JWT_SECRET"`
}

// RuntimeConfig tunes background workers and the bounded ingestion pool.
type RuntimeConfig struct {
	WorkerPoolSize          int `json:"worker_pool_size" env:"RUNTIME_WORKER_POOL_SIZE"`
	WorkerQueueDepth        int `json:"worker_queue_depth" env:"RUNTIME_WORKER_QUEUE_DEPTH"`
	MaintenanceIntervalHour int `json:"maintenance_interval_hours" env:"RUNTIME_MAINTENANCE_INTERVAL_HOURS"`
	IntentPollIntervalSec   int `json:"intent_poll_interval_seconds" env:"RUNTIME_INTENT_POLL_INTERVAL_SECONDS"`
	StreamBufferTurns       int `json:"stream_buffer_turns" env:"RUNTIME_STREAM_BUFFER_TURNS"`
	StreamIdleFlushMS       int `json:"stream_idle_flush_ms" env:"RUNTIME_STREAM_IDLE_FLUSH_MS"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Relational RelationalConfig `json:"relational"`
	Vector     VectorStoreConfig `json:"vector"`
	Cache      CacheConfig      `json:"cache"`
	LLM        LLMConfig        `json:"llm"`
	Features   FeatureFlags     `json:"features"`
	Logging    LoggingConfig    `json:"logging"`
	Auth       AuthConfig       `json:"auth"`
	Runtime    RuntimeConfig    `json:"runtime"`
}

// New returns a configuration populated with defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          8080,
			ShutdownGrace: 10,
		},
		Relational: RelationalConfig{
			Driver:          "postgres",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
			MigrateOnStart:  true,
		},
		Vector: VectorStoreConfig{
			Collection:     "memories",
			EmbeddingDim:   3072,
			DistanceMetric: "cosine",
		},
		Cache: CacheConfig{
			DefaultTTLSeconds:  300,
			SynthesisTTLSecond: 300,
		},
		LLM: LLMConfig{
			Provider:          "stub",
			ExtractionTimeout: 180,
			StoreTimeout:      2,
			CacheTimeoutMS:    500,
		},
		Features: FeatureFlags{
			SynthesisEnabled:   true,
			ProactivityEnabled: true,
			MultiStoreEnabled:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Runtime: RuntimeConfig{
			WorkerPoolSize:          8,
			WorkerQueueDepth:        256,
			MaintenanceIntervalHour: 24,
			IntentPollIntervalSec:   60,
			StreamBufferTurns:       32,
			StreamIdleFlushMS:       2000,
		},
	}
}

// Load loads configuration from an optional file, a .env file, then
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		_ = loadFromFile("configs/config.yaml", cfg)
	}

	if err := envdecode.Decode(cfg); err != nil {
		// envdecode errors when no tagged field has a matching env var; treat
		// that as "no overrides" so local runs work without exporting vars.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	applyDatabaseURLOverride(cfg)
	cfg.normalize()

	return cfg, nil
}

// LoadFile reads configuration from a YAML file only (used by tests).
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}
	applyDatabaseURLOverride(cfg)
	cfg.normalize()
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyDatabaseURLOverride mirrors cmd/memoryserver: DATABASE_URL overrides
// any file-based relational DSN to reduce local setup friction.
func applyDatabaseURLOverride(cfg *Config) {
	if cfg == nil {
		return
	}
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		cfg.Relational.DSN = dsn
	}
}

func (c *Config) normalize() {
	if c == nil {
		return
	}
	if c.Runtime.WorkerPoolSize <= 0 {
		c.Runtime.WorkerPoolSize = 8
	}
	if c.Runtime.WorkerQueueDepth <= 0 {
		c.Runtime.WorkerQueueDepth = 256
	}
	if c.Vector.EmbeddingDim <= 0 {
		c.Vector.EmbeddingDim = 3072
	}
}
