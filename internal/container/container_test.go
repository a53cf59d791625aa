package container

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"excelinsights/adapters/cache"
	"excelinsights/adapters/vectorstore"
	"excelinsights/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig(t *testing.T, overrides map[string]interface{}) *config.Config {
	t.Helper()
	v := viper.New()
	for k, val := range overrides {
		v.Set(k, val)
	}
	cfg, err := config.LoadFrom(v)
	require.NoError(t, err)
	return cfg
}

func TestNewWithDefaults(t *testing.T) {
	c, err := New(context.Background(), testConfig(t, nil), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer c.Shutdown(context.Background())

	assert.Nil(t, c.DB)
	assert.Nil(t, c.LLM)
	assert.IsType(t, &cache.MemoryCache{}, c.Cache)
	assert.IsType(t, &vectorstore.MemoryStore{}, c.VectorStore)
	assert.False(t, c.Service.HasModel())

	res, err := c.Service.Upload(context.Background(), "t.csv", []byte("a,b\n1,2\n3,4\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Sessions.Len())

	require.NoError(t, c.Shutdown(context.Background()))
	count, err := c.VectorStore.Count(context.Background(), "session-"+res.SessionID.String())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNewWithRedisAndSQLite(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, map[string]interface{}{
		"redis_url":         "redis://" + mr.Addr(),
		"vector_store":      "sqlite",
		"vector_store_path": filepath.Join(t.TempDir(), "vectors.db"),
		"session_ttl":       time.Hour,
	})

	c, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &cache.RedisCache{}, c.Cache)
	assert.IsType(t, &vectorstore.SQLiteStore{}, c.VectorStore)
	require.NoError(t, c.Shutdown(context.Background()))
}

func TestNewFailsOnBadLLMConfig(t *testing.T) {
	v := viper.New()
	v.Set("llm_provider", "openai")
	v.Set("llm_api_key", "k")
	cfg, err := config.LoadFrom(v)
	require.NoError(t, err)
	cfg.LLM.Model = ""

	_, err = New(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "missing model")
}

func TestStartStopsWithContext(t *testing.T) {
	c, err := New(context.Background(), testConfig(t, nil), nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	cancel()
	assert.NoError(t, c.Shutdown(context.Background()))
}
