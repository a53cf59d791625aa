package config

import (
	"fmt"
	"strings"
	"time"

	"excelinsights/internal/errors"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `validate:"required"`
	Log       LogConfig       `validate:"required"`
	Database  DatabaseConfig
	Cache     CacheConfig
	LLM       LLMConfig       `validate:"required"`
	Embedding EmbeddingConfig `validate:"required"`
	RAG       RAGConfig       `validate:"required"`
	Session   SessionConfig   `validate:"required"`
	Profiling ProfilingConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port        string `validate:"required,numeric"`
	GinMode     string `validate:"oneof=debug release test"`
	MaxUploadMB int    `validate:"min=1,max=1024"`
}

type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
}

// DatabaseConfig holds the optional Postgres connection used for upload history.
type DatabaseConfig struct {
	URL string
}

// CacheConfig holds the optional Redis answer cache.
type CacheConfig struct {
	RedisURL string
	TTL      time.Duration `validate:"min=0"`
}

// LLMConfig selects and parameterizes the answering model.
type LLMConfig struct {
	Provider          string        `validate:"oneof=none openai groq anthropic gemini"`
	APIKey            string        `validate:"required_unless=Provider none"`
	Model             string
	BaseURL           string        `validate:"omitempty,url"`
	Temperature       float64       `validate:"min=0,max=2"`
	MaxTokens         int           `validate:"min=1"`
	Timeout           time.Duration `validate:"min=0"`
	RequestsPerSecond float64       `validate:"min=0"` // 0 disables throttling
}

// EmbeddingConfig selects the embedding backend and the vector store.
type EmbeddingConfig struct {
	Provider        string `validate:"oneof=hash ollama openai gemini"`
	Model           string
	URL             string `validate:"omitempty,url"`
	APIKey          string
	Dimensions      int    `validate:"min=8,max=4096"`
	VectorStore     string `validate:"oneof=memory sqlite"`
	VectorStorePath string `validate:"required_if=VectorStore sqlite"`
}

// RAGConfig tunes chunking and retrieval.
type RAGConfig struct {
	ChunkSize    int `validate:"min=50"`
	ChunkOverlap int `validate:"min=0,ltfield=ChunkSize"`
	TopK         int `validate:"min=1,max=50"`
	Workers      int `validate:"min=1,max=64"`
}

type SessionConfig struct {
	TTL time.Duration `validate:"min=1m"`
}

// ProfilingConfig holds the admin listener (metrics and pprof) settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from .env, an optional config.yaml and the
// environment, applies defaults and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(newViper())
}

// LoadFrom builds a Config from an already populated viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to read config file")
		}
	}

	config := &Config{
		Server:    loadServerConfig(v),
		Log:       loadLogConfig(v),
		Database:  DatabaseConfig{URL: v.GetString("database_url")},
		Cache:     loadCacheConfig(v),
		LLM:       loadLLMConfig(v),
		Embedding: loadEmbeddingConfig(v),
		RAG:       loadRAGConfig(v),
		Session:   SessionConfig{TTL: v.GetDuration("session_ttl")},
		Profiling: loadProfilingConfig(v),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("max_upload_mb", 50)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("cache_ttl", time.Hour)
	v.SetDefault("llm_provider", "none")
	v.SetDefault("llm_temperature", 0.0)
	v.SetDefault("llm_max_tokens", 1024)
	v.SetDefault("llm_timeout", 60*time.Second)
	v.SetDefault("llm_requests_per_second", 0.0)
	v.SetDefault("embedding_provider", "hash")
	v.SetDefault("embedding_dimensions", 384)
	v.SetDefault("vector_store", "memory")
	v.SetDefault("rag_chunk_size", 1000)
	v.SetDefault("rag_chunk_overlap", 200)
	v.SetDefault("rag_top_k", 4)
	v.SetDefault("rag_workers", 4)
	v.SetDefault("session_ttl", 30*time.Minute)
	v.SetDefault("admin_port", "6060")
	v.SetDefault("admin_enabled", true)
}

func loadServerConfig(v *viper.Viper) ServerConfig {
	return ServerConfig{
		Port:        v.GetString("port"),
		GinMode:     v.GetString("gin_mode"),
		MaxUploadMB: v.GetInt("max_upload_mb"),
	}
}

func loadLogConfig(v *viper.Viper) LogConfig {
	return LogConfig{
		Level:  strings.ToLower(v.GetString("log_level")),
		Format: strings.ToLower(v.GetString("log_format")),
	}
}

func loadCacheConfig(v *viper.Viper) CacheConfig {
	return CacheConfig{
		RedisURL: v.GetString("redis_url"),
		TTL:      v.GetDuration("cache_ttl"),
	}
}

func loadLLMConfig(v *viper.Viper) LLMConfig {
	provider := strings.ToLower(v.GetString("llm_provider"))
	model := v.GetString("llm_model")
	if model == "" {
		model = defaultModel(provider)
	}
	baseURL := v.GetString("llm_base_url")
	if baseURL == "" && provider == "groq" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	return LLMConfig{
		Provider:          provider,
		APIKey:            v.GetString("llm_api_key"),
		Model:             model,
		BaseURL:           baseURL,
		Temperature:       v.GetFloat64("llm_temperature"),
		MaxTokens:         v.GetInt("llm_max_tokens"),
		Timeout:           v.GetDuration("llm_timeout"),
		RequestsPerSecond: v.GetFloat64("llm_requests_per_second"),
	}
}

func defaultModel(provider string) string {
	switch provider {
	case "groq":
		return "mixtral-8x7b-32768"
	case "openai":
		return "gpt-4o-mini"
	case "anthropic":
		return "claude-3-5-haiku-latest"
	case "gemini":
		return "gemini-2.0-flash"
	}
	return ""
}

func loadEmbeddingConfig(v *viper.Viper) EmbeddingConfig {
	provider := strings.ToLower(v.GetString("embedding_provider"))
	model := v.GetString("embedding_model")
	if model == "" {
		switch provider {
		case "ollama":
			model = "all-minilm"
		case "openai":
			model = "text-embedding-3-small"
		case "gemini":
			model = "text-embedding-004"
		}
	}
	apiKey := v.GetString("embedding_api_key")
	if apiKey == "" {
		apiKey = v.GetString("llm_api_key")
	}
	return EmbeddingConfig{
		Provider:        provider,
		Model:           model,
		URL:             v.GetString("embedding_url"),
		APIKey:          apiKey,
		Dimensions:      v.GetInt("embedding_dimensions"),
		VectorStore:     strings.ToLower(v.GetString("vector_store")),
		VectorStorePath: v.GetString("vector_store_path"),
	}
}

func loadRAGConfig(v *viper.Viper) RAGConfig {
	return RAGConfig{
		ChunkSize:    v.GetInt("rag_chunk_size"),
		ChunkOverlap: v.GetInt("rag_chunk_overlap"),
		TopK:         v.GetInt("rag_top_k"),
		Workers:      v.GetInt("rag_workers"),
	}
}

func loadProfilingConfig(v *viper.Viper) ProfilingConfig {
	return ProfilingConfig{
		Port:    v.GetString("admin_port"),
		Enabled: v.GetBool("admin_enabled"),
	}
}

func validateConfig(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return errors.ConfigInvalid(fmt.Sprintf("%s failed %q validation (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return errors.ConfigInvalid(err.Error())
	}
	if config.Embedding.Provider != "hash" && config.Embedding.Provider != "ollama" && config.Embedding.APIKey == "" {
		return errors.ConfigInvalid(fmt.Sprintf("embedding provider %s requires an API key", config.Embedding.Provider))
	}
	return nil
}

// MaxUploadBytes returns the upload limit in bytes.
func (c ServerConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
