package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete service configuration, loadable from environment
// variables (CATALOG_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	RedisURL    string `usage:"Redis cache URL; when empty an in-process cache is used" flag:"redis-url"`
	DatabaseURL string `usage:"PostgreSQL URL for search analytics; optional" flag:"database-url"`
	Upstream    UpstreamConfig
	Cache       CacheConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// UpstreamConfig configures the outbound catalog API client.
type UpstreamConfig struct {
	APIKey        string `usage:"Catalog API key; without it every fetch returns empty results" flag:"api-key"`
	APIHost       string `default:"real-time-amazon-data.p.rapidapi.com" usage:"Catalog API host" flag:"api-host"`
	MaxConcurrent int    `default:"5" usage:"Max simultaneous upstream calls" flag:"max-concurrent"`
}

// CacheConfig controls the in-process fallback cache.
type CacheConfig struct {
	MemorySize int `default:"4096" usage:"Max entries in the in-process cache" flag:"memory-size"`
}

// CORSConfig controls cross-origin access to the API.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
	MaxAge  int      `default:"86400" usage:"Preflight cache duration in seconds" flag:"cors-max-age"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and platform-provided defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CATALOG",
		Files:     []string{"config.yaml", "/etc/catalog/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.Upstream.MaxConcurrent <= 0 {
		return nil, errors.New("max concurrent upstream calls must be positive")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps standard platform environment variables (PORT,
// REDIS_URL, DATABASE_URL) onto the CATALOG_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
}
