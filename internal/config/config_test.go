package config

import (
	"testing"
	"time"

	"excelinsights/internal/errors"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(50<<20), cfg.Server.MaxUploadBytes())
	assert.Equal(t, "none", cfg.LLM.Provider)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, "memory", cfg.Embedding.VectorStore)
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 4, cfg.RAG.TopK)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.True(t, cfg.Profiling.Enabled)
}

func TestLoadFromGroqDefaults(t *testing.T) {
	v := viper.New()
	v.Set("llm_provider", "groq")
	v.Set("llm_api_key", "test-key")

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "mixtral-8x7b-32768", cfg.LLM.Model)
	assert.Equal(t, 0.0, cfg.LLM.Temperature)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("RAG_TOP_K", "6")

	v := viper.New()
	v.AutomaticEnv()

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 6, cfg.RAG.TopK)
}

func TestLoadFromInvalid(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]interface{}
	}{
		{"provider without key", map[string]interface{}{"llm_provider": "anthropic"}},
		{"unknown provider", map[string]interface{}{"llm_provider": "cohere", "llm_api_key": "k"}},
		{"overlap exceeds size", map[string]interface{}{"rag_chunk_size": 100, "rag_chunk_overlap": 200}},
		{"sqlite without path", map[string]interface{}{"vector_store": "sqlite"}},
		{"openai embeddings without key", map[string]interface{}{"embedding_provider": "openai"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := LoadFrom(v)
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
