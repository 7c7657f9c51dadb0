package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/artic-grid/pkg/logging"
	"github.com/Sternrassler/artic-grid/pkg/pagination"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artic-grid.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}

	if cfg.Grid.RowsPerPage != pagination.DefaultDisplayPageSize {
		t.Errorf("RowsPerPage = %d, want %d", cfg.Grid.RowsPerPage, pagination.DefaultDisplayPageSize)
	}
	if cfg.RedisOptions() != nil {
		t.Error("Redis should be disabled by default")
	}
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
api:
  user_agent: "grid-test/1.0 (test@example.com)"
  page_limit: 24
  timeout: 5s
grid:
  rows_per_page: 24
  continuation: display-page
redis:
  addr: localhost:6379
  db: 3
log:
  level: debug
`)

	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		t.Fatalf("loadFile() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.API.UserAgent != "grid-test/1.0 (test@example.com)" {
		t.Errorf("UserAgent = %q", cfg.API.UserAgent)
	}
	if cfg.API.BaseURL == "" {
		t.Error("BaseURL default lost when the file omits it")
	}
	if cfg.API.PageLimit != 24 || cfg.Grid.RowsPerPage != 24 {
		t.Errorf("PageLimit = %d, RowsPerPage = %d, want 24, 24", cfg.API.PageLimit, cfg.Grid.RowsPerPage)
	}

	gc := cfg.GridConfig()
	if gc.Pagination.Policy != pagination.ContinueOnDisplayPage {
		t.Errorf("Policy = %v, want display-page", gc.Pagination.Policy)
	}
	if gc.Pagination.DisplayPageSize != 24 {
		t.Errorf("DisplayPageSize = %d, want 24", gc.Pagination.DisplayPageSize)
	}

	cc := cfg.ClientConfig(nil)
	if cc.Timeout != 5*time.Second {
		t.Errorf("client Timeout = %v, want 5s", cc.Timeout)
	}
	if cc.PageLimit != 24 {
		t.Errorf("client PageLimit = %d, want 24", cc.PageLimit)
	}

	opts := cfg.RedisOptions()
	if opts == nil || opts.Addr != "localhost:6379" || opts.DB != 3 {
		t.Errorf("RedisOptions() = %+v, want localhost:6379 db 3", opts)
	}

	if cfg.LoggingConfig().Level != logging.LevelDebug {
		t.Errorf("log level = %q, want debug", cfg.LoggingConfig().Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for a missing file, got nil")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeFile(t, "api: [not, a, map")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for malformed YAML, got nil")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{
		"ARTIC_USER_AGENT":          "env-agent/2.0",
		"ARTIC_PAGE_LIMIT":          "10",
		"ARTIC_ROWS_PER_PAGE":       "10",
		"ARTIC_REQUESTS_PER_MINUTE": "30",
		"ARTIC_CONTINUATION":        "display_page",
		"ARTIC_REDIS_ADDR":          "redis:6379",
		"ARTIC_REDIS_DB":            "2",
		"ARTIC_LOG_PRETTY":          "true",
		"ARTIC_METRICS_ADDR":        ":9090",
		"ARTIC_LOG_LEVEL":           "",
	}))
	if err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}

	if cfg.API.UserAgent != "env-agent/2.0" {
		t.Errorf("UserAgent = %q", cfg.API.UserAgent)
	}
	if cfg.API.PageLimit != 10 || cfg.Grid.RowsPerPage != 10 || cfg.API.RequestsPerMinute != 30 {
		t.Errorf("numbers = %d/%d/%d, want 10/10/30", cfg.API.PageLimit, cfg.Grid.RowsPerPage, cfg.API.RequestsPerMinute)
	}
	if cfg.Redis.Addr != "redis:6379" || cfg.Redis.DB != 2 {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if !cfg.Log.Pretty {
		t.Error("Log.Pretty = false, want true")
	}
	if cfg.Metrics.Addr != ":9090" {
		t.Errorf("Metrics.Addr = %q", cfg.Metrics.Addr)
	}
	if cfg.Log.Level != string(logging.LevelInfo) {
		t.Errorf("empty ARTIC_LOG_LEVEL replaced level with %q", cfg.Log.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"non-numeric page limit", map[string]string{"ARTIC_PAGE_LIMIT": "many"}},
		{"non-numeric redis db", map[string]string{"ARTIC_REDIS_DB": "x"}},
		{"non-boolean pretty", map[string]string{"ARTIC_LOG_PRETTY": "sometimes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Default().applyEnv(envMap(tt.env)); err == nil {
				t.Error("applyEnv() expected error, got nil")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{"empty user agent", func(c *Config) { c.API.UserAgent = "" }, "api.user_agent"},
		{"empty base url", func(c *Config) { c.API.BaseURL = "" }, "api.base_url"},
		{"page limit too large", func(c *Config) { c.API.PageLimit = 500 }, "api.page_limit"},
		{"zero budget", func(c *Config) { c.API.RequestsPerMinute = 0 }, "api.requests_per_minute"},
		{"bad timeout", func(c *Config) { c.API.Timeout = "soon" }, "api.timeout"},
		{"negative timeout", func(c *Config) { c.API.Timeout = "-1s" }, "api.timeout"},
		{"zero rows", func(c *Config) { c.Grid.RowsPerPage = 0 }, "grid.rows_per_page"},
		{"unknown policy", func(c *Config) { c.Grid.Continuation = "forever" }, "grid.continuation"},
		{"display-page policy with larger rows", func(c *Config) {
			c.Grid.Continuation = "display-page"
			c.Grid.RowsPerPage = 20
		}, "grid.rows_per_page"},
		{"display-page policy with smaller remote pages", func(c *Config) {
			c.Grid.Continuation = "display-page"
			c.API.PageLimit = 5
		}, "remote page size"},
		{"bad fetch timeout", func(c *Config) { c.Grid.FetchTimeout = "0s" }, "grid.fetch_timeout"},
		{"negative redis db", func(c *Config) { c.Redis.DB = -1 }, "redis.db"},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("error = %q, want it to mention %q", err.Error(), tt.errorMsg)
			}
		})
	}
}
