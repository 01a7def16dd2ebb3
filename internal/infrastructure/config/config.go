package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Scrape     ScrapeConfig     `mapstructure:"scrape"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Queue      QueueConfig      `mapstructure:"queue"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Image      ImageConfig      `mapstructure:"image"`
	Validation ValidationConfig `mapstructure:"validation"`
	LogLevel   string           `mapstructure:"log_level"`
	LogDir     string           `mapstructure:"log_dir"`
}

// AppConfig holds application metadata.
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	DedupWindow    time.Duration `mapstructure:"dedup_window"`
}

// ModelPrice is a model's price per 1000 tokens in USD.
type ModelPrice struct {
	InputPer1K  float64 `mapstructure:"input_per_1k"`
	OutputPer1K float64 `mapstructure:"output_per_1k"`
}

// OpenRouterConfig configures the chat completions service used for image and text extraction.
type OpenRouterConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	TextModel       string        `mapstructure:"text_model"`
	LongTextModel   string        `mapstructure:"long_text_model"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Temperature     float64       `mapstructure:"temperature"`
	PresencePenalty float64       `mapstructure:"presence_penalty"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ImagePrice      ModelPrice    `mapstructure:"image_price"`
	TextPrice       ModelPrice    `mapstructure:"text_price"`
	LongTextPrice   ModelPrice    `mapstructure:"long_text_price"`
}

// ScrapeConfig configures page fetching.
type ScrapeConfig struct {
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes"`
	RespectRobots bool          `mapstructure:"respect_robots"`
}

// CacheConfig configures the model reply cache.
type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Backend       string        `mapstructure:"backend"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	MaxSize       int           `mapstructure:"max_size"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// QueueConfig bounds concurrent completion requests. Workers 0 sends requests directly.
type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	MaxSize int `mapstructure:"max_size"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ImageConfig limits uploaded images.
type ImageConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
	MaxDimension int   `mapstructure:"max_dimension"`
	MaxPixels    int   `mapstructure:"max_pixels"`
}

// ValidationConfig tunes record validation.
type ValidationConfig struct {
	StrictLanguage bool `mapstructure:"strict_language"`
}

// LoadConfig loads configuration from .env, the environment and defaults.
func LoadConfig() (*Config, error) {
	return Load("")
}

// Load loads configuration. When path is set it is read as the config file (format chosen by
// extension); otherwise an optional .env in the working directory is used.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".env")
		v.SetConfigType("env")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func bindEnv(v *viper.Viper) {
	bindings := map[string]string{
		"openrouter.enabled":    "OPENROUTER_ENABLED",
		"openrouter.api_key":    "OPENROUTER_API_KEY",
		"openrouter.base_url":   "OPENROUTER_BASE_URL",
		"openrouter.model":      "OPENROUTER_MODEL",
		"openrouter.max_tokens": "MODEL_MAX_TOKENS",
		"scrape.user_agent":     "SCRAPE_USER_AGENT",
		"cache.enabled":         "CACHE_ENABLED",
		"cache.backend":         "CACHE_BACKEND",
		"cache.redis_addr":      "REDIS_ADDR",
		"cache.redis_password":  "REDIS_PASSWORD",
		"queue.workers":         "QUEUE_WORKERS",
		"rate_limit.enabled":    "RATE_LIMIT_ENABLED",
		"rate_limit.requests":   "RATE_LIMIT_REQUESTS",
		"rate_limit.window":     "RATE_LIMIT_WINDOW",
		"server.port":           "PORT",
		"log_level":             "LOG_LEVEL",
		"log_dir":               "LOG_DIR",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, "APP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}
}

// MaskAPIKey hides all but the first and last four characters of key.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "recipe-ingest")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "110s")
	v.SetDefault("server.max_body_bytes", 12*1024*1024)
	v.SetDefault("server.dedup_window", "2s")

	v.SetDefault("openrouter.enabled", false)
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "openai/gpt-4-turbo")
	v.SetDefault("openrouter.text_model", "openai/gpt-3.5-turbo")
	v.SetDefault("openrouter.long_text_model", "openai/gpt-3.5-turbo-16k")
	v.SetDefault("openrouter.max_tokens", 4096)
	v.SetDefault("openrouter.temperature", 0.2)
	v.SetDefault("openrouter.presence_penalty", -1.0)
	v.SetDefault("openrouter.timeout", "90s")
	v.SetDefault("openrouter.image_price.input_per_1k", 0.01)
	v.SetDefault("openrouter.image_price.output_per_1k", 0.01)
	v.SetDefault("openrouter.text_price.input_per_1k", 0.0015)
	v.SetDefault("openrouter.text_price.output_per_1k", 0.002)
	v.SetDefault("openrouter.long_text_price.input_per_1k", 0.003)
	v.SetDefault("openrouter.long_text_price.output_per_1k", 0.004)

	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (compatible; recipe-ingest/1.0)")
	v.SetDefault("scrape.timeout", "15s")
	v.SetDefault("scrape.max_body_bytes", 5*1024*1024)
	v.SetDefault("scrape.respect_robots", true)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")

	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.max_size", 100)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("image.max_size_bytes", 10*1024*1024)
	v.SetDefault("image.max_dimension", 2048)
	v.SetDefault("image.max_pixels", 40_000_000)

	v.SetDefault("validation.strict_language", false)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "")
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", config.Server.Port)
	}

	if config.OpenRouter.Enabled {
		if config.OpenRouter.APIKey == "" {
			return fmt.Errorf("openrouter api key is required when extraction is enabled")
		}
		if config.OpenRouter.MaxTokens <= 0 {
			return fmt.Errorf("invalid openrouter max tokens")
		}
	}

	if config.Scrape.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid scrape max body bytes")
	}

	if config.Cache.Enabled {
		switch config.Cache.Backend {
		case "memory":
			if config.Cache.MaxSize <= 0 {
				return fmt.Errorf("invalid cache max size")
			}
		case "redis":
			if config.Cache.RedisAddr == "" {
				return fmt.Errorf("redis address is required for the redis cache backend")
			}
		default:
			return fmt.Errorf("unknown cache backend %q", config.Cache.Backend)
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
	}

	if config.Queue.Workers < 0 || (config.Queue.Workers > 0 && config.Queue.MaxSize <= 0) {
		return fmt.Errorf("invalid queue size")
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit")
	}

	if config.Image.MaxSizeBytes <= 0 || config.Image.MaxDimension <= 0 || config.Image.MaxPixels < 0 {
		return fmt.Errorf("invalid image limits")
	}

	return nil
}
