// Package config loads cotd-history settings from defaults, environment
// variables and an optional YAML file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/Sternrassler/tmio-cotd-client/internal/output"
	"github.com/Sternrassler/tmio-cotd-client/pkg/cache"
	"github.com/Sternrassler/tmio-cotd-client/pkg/client"
	"github.com/Sternrassler/tmio-cotd-client/pkg/logging"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the public trackmania.io API root.
const DefaultBaseURL = "https://trackmania.io"

// Environment variables read by Default.
const (
	EnvBaseURL     = "COTD_BASE_URL"
	EnvUserAgent   = "COTD_USER_AGENT"
	EnvRedisURL    = "COTD_REDIS_URL"
	EnvLogLevel    = "COTD_LOG_LEVEL"
	EnvMetricsAddr = "COTD_METRICS_ADDR"
)

// Config represents the application configuration.
type Config struct {
	BaseURL           string         `yaml:"base_url"`
	UserAgent         string         `yaml:"user_agent"`
	Timeout           time.Duration  `yaml:"timeout"`
	RequestsPerSecond float64        `yaml:"requests_per_second"`
	Redis             RedisConfig    `yaml:"redis"`
	Log               logging.Config `yaml:"log"`
	MetricsAddr       string         `yaml:"metrics_addr"`
	Output            OutputConfig   `yaml:"output"`
}

// RedisConfig holds the optional resolver cache settings.
// An empty URL disables the cache.
type RedisConfig struct {
	URL       string        `yaml:"url"`
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"key_prefix"`
}

// OutputConfig controls where and how results are written.
type OutputConfig struct {
	// Path is the output file; empty means stdout.
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

// Default returns the built-in defaults overridden by environment variables.
func Default() *Config {
	cfg := &Config{
		BaseURL:     getEnv(EnvBaseURL, DefaultBaseURL),
		UserAgent:   getEnv(EnvUserAgent, client.DefaultUserAgent),
		MetricsAddr: getEnv(EnvMetricsAddr, ""),
		Redis: RedisConfig{
			URL: getEnv(EnvRedisURL, ""),
		},
		Log: logging.Config{
			Level: logging.LogLevel(getEnv(EnvLogLevel, string(logging.LevelInfo))),
		},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML file over Default. ${VAR} references in the file are
// expanded from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return cfg, nil
}

// applyDefaults sets default values for missing configuration.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = client.DefaultUserAgent
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}

	if c.Redis.TTL == 0 {
		c.Redis.TTL = cache.DefaultConfig().TTL
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = cache.DefaultNamespace
	}

	if c.Log.Level == "" {
		c.Log.Level = logging.LevelInfo
	}

	if c.Output.Format == "" {
		c.Output.Format = string(output.FormatJSON)
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute http(s) URL (got %q)", c.BaseURL)
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0 (got %s)", c.Timeout)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be >= 0 (got %g)", c.RequestsPerSecond)
	}
	if c.Redis.TTL < 0 {
		return fmt.Errorf("redis.ttl must be >= 0 (got %s)", c.Redis.TTL)
	}
	if c.Redis.URL != "" {
		if _, err := redis.ParseURL(c.Redis.URL); err != nil {
			return fmt.Errorf("redis.url: %w", err)
		}
	}

	if _, err := output.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}

	return nil
}

// Host returns the host part of BaseURL, used to scope cache keys.
func (c *Config) Host() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// ClientConfig returns the HTTP client settings.
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig(c.UserAgent)
	cfg.Timeout = c.Timeout
	cfg.RequestsPerSecond = c.RequestsPerSecond
	return cfg
}

// CacheConfig returns the resolver cache settings.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		Namespace: c.Redis.KeyPrefix,
		Host:      c.Host(),
		TTL:       c.Redis.TTL,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

