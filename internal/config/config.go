package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for AskFolio
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Database  DatabaseConfig  `mapstructure:"database"`
	RAG       RAGConfig       `mapstructure:"rag"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	LLM       LLMConfig       `mapstructure:"llm"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"`
}

// AdminConfig holds admin authentication configuration
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RAGConfig holds retrieval and contextual scoring configuration
type RAGConfig struct {
	Backend             string  `mapstructure:"backend"` // sqlite or qdrant
	TopK                int     `mapstructure:"top_k"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	MaxContextChunks    int     `mapstructure:"max_context_chunks"`
	ChunkSize           int     `mapstructure:"chunk_size"`

	RoleWeight    float64 `mapstructure:"role_weight"`
	PageWeight    float64 `mapstructure:"page_weight"`
	RecencyWeight float64 `mapstructure:"recency_weight"`

	RoleFloor       float64       `mapstructure:"role_floor"`
	PageFloor       float64       `mapstructure:"page_floor"`
	RecencyFloor    float64       `mapstructure:"recency_floor"`
	RecencyHalfLife time.Duration `mapstructure:"recency_half_life"`

	QdrantURL        string `mapstructure:"qdrant_url"`
	QdrantAPIKey     string `mapstructure:"qdrant_api_key"`
	QdrantCollection string `mapstructure:"qdrant_collection"`
}

// CacheConfig holds response cache configuration
type CacheConfig struct {
	MaxEntries      int           `mapstructure:"max_entries"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// MonitorConfig holds performance monitor configuration
type MonitorConfig struct {
	Window          time.Duration `mapstructure:"window"`
	MaxSamples      int           `mapstructure:"max_samples"`
	LatencyTarget   time.Duration `mapstructure:"latency_target"`
	LatencyCeiling  time.Duration `mapstructure:"latency_ceiling"`
	ErrorRateLimit  float64       `mapstructure:"error_rate_limit"`
	HealthFloor     float64       `mapstructure:"health_floor"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// LLMConfig holds LLM provider configuration
type LLMConfig struct {
	APIKey           string        `mapstructure:"api_key"`
	Model            string        `mapstructure:"model"`
	EmbeddingModel   string        `mapstructure:"embedding_model"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	EmbeddingTimeout time.Duration `mapstructure:"embedding_timeout"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	RequestsPerHour int  `mapstructure:"requests_per_hour"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ASKFOLIO")
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")

	v.SetDefault("admin.api_key", "")

	v.SetDefault("database.path", "./data/askfolio.db")

	v.SetDefault("rag.backend", "sqlite")
	v.SetDefault("rag.top_k", 10)
	v.SetDefault("rag.similarity_threshold", 0.3)
	v.SetDefault("rag.max_context_chunks", 6)
	v.SetDefault("rag.chunk_size", 1000)
	v.SetDefault("rag.role_weight", 0.35)
	v.SetDefault("rag.page_weight", 0.35)
	v.SetDefault("rag.recency_weight", 0.30)
	v.SetDefault("rag.role_floor", 0.4)
	v.SetDefault("rag.page_floor", 0.5)
	v.SetDefault("rag.recency_floor", 0.3)
	v.SetDefault("rag.recency_half_life", 90*24*time.Hour)
	v.SetDefault("rag.qdrant_url", "http://localhost:6333")
	v.SetDefault("rag.qdrant_api_key", "")
	v.SetDefault("rag.qdrant_collection", "askfolio")

	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.cleanup_interval", 5*time.Minute)

	v.SetDefault("monitor.window", 5*time.Minute)
	v.SetDefault("monitor.max_samples", 200)
	v.SetDefault("monitor.latency_target", 2*time.Second)
	v.SetDefault("monitor.latency_ceiling", 10*time.Second)
	v.SetDefault("monitor.error_rate_limit", 0.5)
	v.SetDefault("monitor.health_floor", 0.4)
	v.SetDefault("monitor.cleanup_interval", time.Minute)

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-1.5-flash-latest")
	v.SetDefault("llm.embedding_model", "text-embedding-004")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.request_timeout", 30*time.Second)
	v.SetDefault("llm.embedding_timeout", 10*time.Second)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_hour", 100)
}

func (c *Config) validate() error {
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	sum := c.RAG.RoleWeight + c.RAG.PageWeight + c.RAG.RecencyWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("rag scoring weights must sum to 1, got %.3f", sum)
	}
	// A zero floor would let one relevance factor zero out the whole score.
	floors := map[string]float64{
		"rag.role_floor":    c.RAG.RoleFloor,
		"rag.page_floor":    c.RAG.PageFloor,
		"rag.recency_floor": c.RAG.RecencyFloor,
	}
	for name, floor := range floors {
		if floor <= 0 || floor > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %.3f", name, floor)
		}
	}
	if c.Monitor.LatencyCeiling <= c.Monitor.LatencyTarget {
		return fmt.Errorf("monitor.latency_ceiling (%s) must exceed monitor.latency_target (%s)",
			c.Monitor.LatencyCeiling, c.Monitor.LatencyTarget)
	}
	return nil
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
