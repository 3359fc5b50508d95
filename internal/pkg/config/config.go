// Package config loads the process configuration from the environment.
//
// The Config returned by Load is built once at startup and passed explicitly
// to every component that needs it; nothing in this package is global.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
)

// CanonicalPublicBaseURL replaces an unset or deprecated public provider URL.
const CanonicalPublicBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

const deprecatedPublicHost = "qwen.cloud"

const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"

	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

type Config struct {
	Port       string `env:"PORT,          default=8080"`
	Env        string `env:"ENV,           default=development"`
	LogLevel   string `env:"LOG_LEVEL,     default=info"`
	JWTSecret  string `env:"JWT_SECRET,    required"`
	BcryptCost int    `env:"BCRYPT_COST,   default=12"`
	BasePath   string `env:"API_BASE_PATH, default=/api"`
	// TrustedProxies lists CIDRs whose X-Forwarded-For is believed. Empty
	// means the peer address is the client IP.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	Storage   StorageConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	AI        AIConfig
	CORS      CORSConfig
}

type StorageConfig struct {
	Driver      string `env:"STORAGE_DRIVER, default=sqlite"`
	SQLitePath  string `env:"SQLITE_PATH,    default=suatgpt.db"`
	DatabaseURL string `env:"DATABASE_URL"`
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,      default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB,       default=suatgpt"`
	AppName  string        `env:"MONGO_APP_NAME, default=suatgpt"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT,  default=10s"`
}

type RedisConfig struct {
	// Addr is optional; Redis is only dialled when set.
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,        default=0"`
	PoolSize int    `env:"REDIS_POOL_SIZE, default=10"`
}

type RateLimitConfig struct {
	Backend   string `env:"RATE_LIMIT_BACKEND,    default=memory"`
	PerMinute int    `env:"RATE_LIMIT_PER_MINUTE, default=30"`
}

// ProviderConfig is one upstream chat-completion endpoint.
type ProviderConfig struct {
	BaseURL string `env:"BASE_URL" yaml:"base_url"`
	APIKey  string `env:"API_KEY"  yaml:"api_key"`
	Model   string `env:"MODEL"    yaml:"model"`
}

type AIConfig struct {
	QwenPublic   ProviderConfig `env:", prefix=AI_QWEN_PUBLIC_"`
	QwenInternal ProviderConfig `env:", prefix=AI_QWEN_INTERNAL_"`
	DeepSeek     ProviderConfig `env:", prefix=AI_DEEPSEEK_"`
	// Embedding is accepted for deployment parity but not used by chat.
	Embedding ProviderConfig `env:", prefix=AI_EMBEDDING_"`

	RequestTimeout time.Duration `env:"AI_REQUEST_TIMEOUT, default=60s"`
	MaxAttempts    int           `env:"AI_MAX_ATTEMPTS,    default=1"`
	RetryBackoff   time.Duration `env:"AI_RETRY_BACKOFF,   default=500ms"`
	RoutesFile     string        `env:"AI_ROUTES_FILE"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=http://localhost:3000"`
	AllowedMethods []string `env:"CORS_ALLOWED_METHODS, default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"CORS_ALLOWED_HEADERS, default=Authorization,Content-Type"`
}

// Load reads configuration from environment variables.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through l, applies the routes overlay file
// when one is configured, and normalizes provider settings.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.AI.RoutesFile != "" {
		if err := cfg.AI.applyRoutesFile(cfg.AI.RoutesFile); err != nil {
			return nil, err
		}
	}
	cfg.AI.normalize()
	cfg.BasePath = strings.TrimRight(strings.TrimSpace(cfg.BasePath), "/")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageSQLite:
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres driver")
		}
	case StorageMongo:
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	switch c.RateLimit.Backend {
	case RateLimitMemory:
	case RateLimitRedis:
		if c.Redis.Addr == "" {
			return errors.New("config: REDIS_ADDR is required for the redis rate limiter")
		}
	default:
		return fmt.Errorf("config: unknown RATE_LIMIT_BACKEND %q", c.RateLimit.Backend)
	}

	if c.AI.MaxAttempts < 1 {
		return errors.New("config: AI_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// IsDevelopment reports whether human-readable logs should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "local"
}

// Routes builds the static routing table.
func (a AIConfig) Routes() []domain.Route {
	return []domain.Route{
		{Key: domain.ModelQwenInternal, BaseURL: a.QwenInternal.BaseURL, APIKey: a.QwenInternal.APIKey, Model: a.QwenInternal.Model},
		{Key: domain.ModelQwenPublic, BaseURL: a.QwenPublic.BaseURL, APIKey: a.QwenPublic.APIKey, Model: a.QwenPublic.Model, Public: true},
		{Key: domain.ModelDeepSeek, BaseURL: a.DeepSeek.BaseURL, APIKey: a.DeepSeek.APIKey, Model: a.DeepSeek.Model},
	}
}

func (a *AIConfig) normalize() {
	a.QwenPublic.BaseURL = strings.TrimSpace(a.QwenPublic.BaseURL)
	if a.QwenPublic.BaseURL == "" || strings.Contains(a.QwenPublic.BaseURL, deprecatedPublicHost) {
		a.QwenPublic.BaseURL = CanonicalPublicBaseURL
	}

	for _, p := range []*ProviderConfig{&a.QwenPublic, &a.QwenInternal, &a.DeepSeek} {
		p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
		p.APIKey = strings.TrimSpace(p.APIKey)
	}

	defaultModel(&a.QwenPublic, "qwen-plus")
	defaultModel(&a.QwenInternal, "Qwen3-30B-A3B")
	defaultModel(&a.DeepSeek, "deepseek-r1-0528-w8a8")
}

func defaultModel(p *ProviderConfig, model string) {
	if strings.TrimSpace(p.Model) == "" {
		p.Model = model
	}
}

type routesFile struct {
	Routes map[string]ProviderConfig `yaml:"routes"`
}

// applyRoutesFile overlays non-empty values from a YAML file of the form
//
//	routes:
//	  deepseek:
//	    base_url: https://example.internal/v1
//	    model: deepseek-r1
func (a *AIConfig) applyRoutesFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open routes file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var rf routesFile
	if err := dec.Decode(&rf); err != nil {
		return fmt.Errorf("config: parse routes file: %w", err)
	}

	for key, override := range rf.Routes {
		var target *ProviderConfig
		switch key {
		case domain.ModelQwenPublic:
			target = &a.QwenPublic
		case domain.ModelQwenInternal:
			target = &a.QwenInternal
		case domain.ModelDeepSeek:
			target = &a.DeepSeek
		default:
			return fmt.Errorf("config: routes file: unknown model key %q", key)
		}
		if override.BaseURL != "" {
			target.BaseURL = override.BaseURL
		}
		if override.APIKey != "" {
			target.APIKey = override.APIKey
		}
		if override.Model != "" {
			target.Model = override.Model
		}
	}
	return nil
}
