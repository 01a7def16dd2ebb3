package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.OpenRouter.Enabled)
	assert.Equal(t, 4096, cfg.OpenRouter.MaxTokens)
	assert.Equal(t, 0.2, cfg.OpenRouter.Temperature)
	assert.Equal(t, -1.0, cfg.OpenRouter.PresencePenalty)
	assert.Equal(t, 0.0015, cfg.OpenRouter.TextPrice.InputPer1K)
	assert.Equal(t, 0.004, cfg.OpenRouter.LongTextPrice.OutputPer1K)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 4, cfg.Queue.Workers)
	assert.Equal(t, 100, cfg.Queue.MaxSize)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.True(t, cfg.Scrape.RespectRobots)
	assert.False(t, cfg.Validation.StrictLanguage)
	assert.Equal(t, 2048, cfg.Image.MaxDimension)
	assert.Equal(t, 40_000_000, cfg.Image.MaxPixels)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_ENABLED", "true")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test-123456")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("APP_VALIDATION_STRICT_LANGUAGE", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.OpenRouter.Enabled)
	assert.Equal(t, "sk-or-test-123456", cfg.OpenRouter.APIKey)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "cache:6379", cfg.Cache.RedisAddr)
	assert.True(t, cfg.Validation.StrictLanguage)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
scrape:
  user_agent: test-agent
  respect_robots: false
image:
  max_dimension: 1024
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "test-agent", cfg.Scrape.UserAgent)
	assert.False(t, cfg.Scrape.RespectRobots)
	assert.Equal(t, 1024, cfg.Image.MaxDimension)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			Scrape: ScrapeConfig{MaxBodyBytes: 1024},
			Cache:  CacheConfig{Enabled: true, Backend: "memory", MaxSize: 10, TTL: time.Minute},
			Image:  ImageConfig{MaxSizeBytes: 1024, MaxDimension: 512},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"extraction without key", func(c *Config) { c.OpenRouter.Enabled = true; c.OpenRouter.MaxTokens = 10 }, true},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }, true},
		{"redis without addr", func(c *Config) { c.Cache.Backend = "redis" }, true},
		{"disabled cache skips checks", func(c *Config) { c.Cache = CacheConfig{} }, false},
		{"queue without room", func(c *Config) { c.Queue = QueueConfig{Workers: 2} }, true},
		{"direct completions", func(c *Config) { c.Queue = QueueConfig{} }, false},
		{"bad rate limit", func(c *Config) { c.RateLimit = RateLimitConfig{Enabled: true} }, true},
		{"bad image limits", func(c *Config) { c.Image.MaxDimension = 0 }, true},
		{"negative pixel limit", func(c *Config) { c.Image.MaxPixels = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := validateConfig(c)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", MaskAPIKey("short"))
	assert.Equal(t, "sk-o...3456", MaskAPIKey("sk-or-test-123456"))
}
