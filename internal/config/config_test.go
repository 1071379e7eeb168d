package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
scraper:
  base_url: https://mirror.cuevana.pro
  user_agent: custom-agent
  items_per_page: 50
  max_pages: 10
  respect_robots: false
  proxies: ["http://proxy-a:8080", "http://proxy-b:8080"]
http:
  timeout_seconds: 45
  retry_attempts: 5
  retry_delay_ms: 500
  cooldown_429_ms: 10000
rate_limit:
  delay_ms: 2000
cache:
  ttl_seconds: 60
db:
  dsn: postgres://localhost/catalog
  table: items
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Scraper.BaseURL != "https://mirror.cuevana.pro" {
		t.Fatalf("expected base_url override, got %q", cfg.Scraper.BaseURL)
	}
	if cfg.Scraper.ItemsPerPage != 50 || cfg.Scraper.RespectRobots {
		t.Fatalf("expected scraper overrides to apply: %+v", cfg.Scraper)
	}
	if len(cfg.Scraper.Proxies) != 2 {
		t.Fatalf("expected 2 proxies, got %v", cfg.Scraper.Proxies)
	}
	if cfg.HTTP.RetryAttempts != 5 {
		t.Fatalf("expected retry_attempts 5, got %d", cfg.HTTP.RetryAttempts)
	}
	if cfg.DB.DSN != "postgres://localhost/catalog" || cfg.DB.Table != "items" {
		t.Fatalf("expected db overrides to apply: %+v", cfg.DB)
	}
	if got := cfg.HTTPTimeout(); got != 45*time.Second {
		t.Fatalf("expected timeout 45s, got %v", got)
	}
	if got := cfg.RateLimitDelay(); got != 2*time.Second {
		t.Fatalf("expected rate limit delay 2s, got %v", got)
	}
	if got := cfg.Cooldown429(); got != 10*time.Second {
		t.Fatalf("expected cooldown 10s, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Scraper.BaseURL != "https://cuevana.pro" {
		t.Fatalf("expected default base url, got %q", cfg.Scraper.BaseURL)
	}
	if cfg.HTTP.RetryAttempts != 3 {
		t.Fatalf("expected default retry_attempts 3, got %d", cfg.HTTP.RetryAttempts)
	}
	if got := cfg.RetryDelay(); got != time.Second {
		t.Fatalf("expected default retry delay 1s, got %v", got)
	}
	if got := cfg.CacheTTL(); got != 5*time.Minute {
		t.Fatalf("expected default cache ttl 5m, got %v", got)
	}
	if !cfg.Scraper.RespectRobots {
		t.Fatalf("expected robots respected by default")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:  ServerConfig{Port: 8080},
		Scraper: ScraperConfig{BaseURL: "https://cuevana.pro", ItemsPerPage: 20},
		HTTP:    HTTPConfig{TimeoutSeconds: 10, RetryAttempts: 3},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "missing base url",
			cfg: func() Config {
				c := base
				c.Scraper.BaseURL = ""
				return c
			}(),
			want: "scraper.base_url",
		},
		{
			name: "invalid items per page",
			cfg: func() Config {
				c := base
				c.Scraper.ItemsPerPage = 0
				return c
			}(),
			want: "scraper.items_per_page",
		},
		{
			name: "invalid timeout",
			cfg: func() Config {
				c := base
				c.HTTP.TimeoutSeconds = 0
				return c
			}(),
			want: "http.timeout_seconds",
		},
		{
			name: "invalid retry attempts",
			cfg: func() Config {
				c := base
				c.HTTP.RetryAttempts = 0
				return c
			}(),
			want: "http.retry_attempts",
		},
		{
			name: "negative rate limit delay",
			cfg: func() Config {
				c := base
				c.RateLimit.DelayMs = -1
				return c
			}(),
			want: "rate_limit.delay_ms",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
