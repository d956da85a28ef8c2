package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Milvus    MilvusConfig    `mapstructure:"milvus"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Search    SearchConfig    `mapstructure:"search"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port        int           `mapstructure:"port"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	InMemory     bool   `mapstructure:"in_memory"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Enabled  bool          `mapstructure:"enabled"`
}

type EmbeddingConfig struct {
	URL       string        `mapstructure:"url"`
	Model     string        `mapstructure:"model"`
	Dimension int           `mapstructure:"dimension"`
	Timeout   time.Duration `mapstructure:"timeout"`
	// ProbeCooldown is how long the client stays degraded before re-probing
	// the backend. Zero disables re-probing.
	ProbeCooldown time.Duration `mapstructure:"probe_cooldown"`
}

type LLMConfig struct {
	URL           string        `mapstructure:"url"`
	Model         string        `mapstructure:"model"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Temperature   float64       `mapstructure:"temperature"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ProbeCooldown time.Duration `mapstructure:"probe_cooldown"`
}

type MilvusConfig struct {
	URL        string        `mapstructure:"url"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type PipelineConfig struct {
	Workers     int `mapstructure:"workers"`
	QueueSize   int `mapstructure:"queue_size"`
	ChunkSize   int `mapstructure:"chunk_size"`
	EmbedFanout int `mapstructure:"embed_fanout"`
	SampleSize  int `mapstructure:"sample_size"`
}

// AnalysisConfig carries the heuristic analyzer thresholds. The values are
// inherited from the reference behavior and affect test expectations; change
// them only deliberately.
type AnalysisConfig struct {
	HighErrorThreshold     int `mapstructure:"high_error_threshold"`
	MediumErrorThreshold   int `mapstructure:"medium_error_threshold"`
	MediumWarningThreshold int `mapstructure:"medium_warning_threshold"`
}

type SearchConfig struct {
	TopK            int     `mapstructure:"top_k"`
	HighRelevance   float64 `mapstructure:"high_relevance"`
	MediumRelevance float64 `mapstructure:"medium_relevance"`
	KeywordWindow   int     `mapstructure:"keyword_window"`
	FallbackScore   float64 `mapstructure:"fallback_score"`
}

type UploadConfig struct {
	MaxSizeBytes int64    `mapstructure:"max_size_bytes"`
	Extensions   []string `mapstructure:"extensions"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/telcolog/")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("TELCOLOG")
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.in_memory", false)
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttl", "10m")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("embedding.url", "http://localhost:8081/v1/embeddings")
	viper.SetDefault("embedding.model", "all-MiniLM-L6-v2")
	viper.SetDefault("embedding.dimension", 384)
	viper.SetDefault("embedding.timeout", "10s")
	viper.SetDefault("embedding.probe_cooldown", "30s")
	viper.SetDefault("llm.url", "http://localhost:8081/v1/completions")
	viper.SetDefault("llm.model", "mistral-7b-v0.1")
	viper.SetDefault("llm.max_tokens", 1024)
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.timeout", "60s")
	viper.SetDefault("llm.probe_cooldown", "30s")
	viper.SetDefault("milvus.url", "http://localhost:19530")
	viper.SetDefault("milvus.collection", "telecom_log_vectors")
	viper.SetDefault("milvus.timeout", "10s")
	viper.SetDefault("pipeline.workers", 2)
	viper.SetDefault("pipeline.queue_size", 100)
	viper.SetDefault("pipeline.chunk_size", 512)
	viper.SetDefault("pipeline.embed_fanout", 4)
	viper.SetDefault("pipeline.sample_size", 5)
	viper.SetDefault("analysis.high_error_threshold", 10)
	viper.SetDefault("analysis.medium_error_threshold", 5)
	viper.SetDefault("analysis.medium_warning_threshold", 10)
	viper.SetDefault("search.top_k", 5)
	viper.SetDefault("search.high_relevance", 0.8)
	viper.SetDefault("search.medium_relevance", 0.6)
	viper.SetDefault("search.keyword_window", 100)
	viper.SetDefault("search.fallback_score", 0.5)
	viper.SetDefault("upload.max_size_bytes", 10*1024*1024)
	viper.SetDefault("upload.extensions", []string{".log", ".txt"})
	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "logs/telcolog.log")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Default returns the built-in configuration without consulting files or the
// environment. Used by tests.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080, ReadTimeout: 30 * time.Second},
		Database: DatabaseConfig{MaxOpenConns: 25, MaxIdleConns: 5},
		Redis:    RedisConfig{TTL: 10 * time.Minute},
		Embedding: EmbeddingConfig{
			URL:           "http://localhost:8081/v1/embeddings",
			Model:         "all-MiniLM-L6-v2",
			Dimension:     384,
			Timeout:       10 * time.Second,
			ProbeCooldown: 30 * time.Second,
		},
		LLM: LLMConfig{
			URL:           "http://localhost:8081/v1/completions",
			Model:         "mistral-7b-v0.1",
			MaxTokens:     1024,
			Temperature:   0.2,
			Timeout:       60 * time.Second,
			ProbeCooldown: 30 * time.Second,
		},
		Milvus: MilvusConfig{
			URL:        "http://localhost:19530",
			Collection: "telecom_log_vectors",
			Timeout:    10 * time.Second,
		},
		Pipeline: PipelineConfig{Workers: 2, QueueSize: 100, ChunkSize: 512, EmbedFanout: 4, SampleSize: 5},
		Analysis: AnalysisConfig{HighErrorThreshold: 10, MediumErrorThreshold: 5, MediumWarningThreshold: 10},
		Search: SearchConfig{
			TopK:            5,
			HighRelevance:   0.8,
			MediumRelevance: 0.6,
			KeywordWindow:   100,
			FallbackScore:   0.5,
		},
		Upload:  UploadConfig{MaxSizeBytes: 10 * 1024 * 1024, Extensions: []string{".log", ".txt"}},
		Auth:    AuthConfig{TokenTTL: 24 * time.Hour},
		Logging: LoggingConfig{Level: "info", File: "logs/telcolog.log"},
	}
}
