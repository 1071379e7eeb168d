// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	DB        DBConfig        `mapstructure:"db"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ScraperConfig governs catalog traversal behavior.
type ScraperConfig struct {
	BaseURL       string   `mapstructure:"base_url"`
	UserAgent     string   `mapstructure:"user_agent"`
	ItemsPerPage  int      `mapstructure:"items_per_page"`
	MaxPages      int      `mapstructure:"max_pages"`
	RespectRobots bool     `mapstructure:"respect_robots"`
	Proxies       []string `mapstructure:"proxies"`
}

// HTTPConfig configures HTTP client retry behavior.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	RetryAttempts  int `mapstructure:"retry_attempts"`
	RetryDelayMs   int `mapstructure:"retry_delay_ms"`
	Cooldown429Ms  int `mapstructure:"cooldown_429_ms"`
}

// RateLimitConfig paces outbound requests.
type RateLimitConfig struct {
	DelayMs int `mapstructure:"delay_ms"`
}

// CacheConfig bounds the in-memory response cache.
type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// DBConfig controls access to the relational database. DSN empty disables
// persistence.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CUEVANA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("scraper.base_url", "https://cuevana.pro")
	v.SetDefault("scraper.user_agent", "cuevana-scraper/0.1")
	v.SetDefault("scraper.items_per_page", 20)
	v.SetDefault("scraper.max_pages", 0)
	v.SetDefault("scraper.respect_robots", true)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.retry_attempts", 3)
	v.SetDefault("http.retry_delay_ms", 1000)
	v.SetDefault("http.cooldown_429_ms", 5000)
	v.SetDefault("rate_limit.delay_ms", 1000)
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("db.table", "content_items")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scraper.BaseURL == "" {
		return fmt.Errorf("scraper.base_url is required")
	}
	if c.Scraper.ItemsPerPage <= 0 {
		return fmt.Errorf("scraper.items_per_page must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.RetryAttempts <= 0 {
		return fmt.Errorf("http.retry_attempts must be > 0")
	}
	if c.RateLimit.DelayMs < 0 {
		return fmt.Errorf("rate_limit.delay_ms must be >= 0")
	}
	return nil
}

// HTTPTimeout returns the fetch timeout as a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RetryDelay returns the base retry backoff as a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.HTTP.RetryDelayMs) * time.Millisecond
}

// Cooldown429 returns the extra wait applied after a 429 response.
func (c Config) Cooldown429() time.Duration {
	return time.Duration(c.HTTP.Cooldown429Ms) * time.Millisecond
}

// RateLimitDelay returns the minimum spacing between requests.
func (c Config) RateLimitDelay() time.Duration {
	return time.Duration(c.RateLimit.DelayMs) * time.Millisecond
}

// CacheTTL returns the response cache lifetime.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}
