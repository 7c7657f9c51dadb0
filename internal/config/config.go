// Package config loads artic-grid settings: built-in defaults, then an
// optional YAML file, then ARTIC_* environment variables. Command-line
// flags are applied on top by the caller.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/artic-grid/pkg/client"
	"github.com/Sternrassler/artic-grid/pkg/grid"
	"github.com/Sternrassler/artic-grid/pkg/logging"
	"github.com/Sternrassler/artic-grid/pkg/pagination"
	"github.com/Sternrassler/artic-grid/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ARTIC_"

// Config is the full application configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Grid    GridConfig    `yaml:"grid"`
	Redis   RedisConfig   `yaml:"redis"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// APIConfig configures the artworks API client.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`

	// UserAgent identifies the application, e.g. "artic-grid/0.1.0 (you@example.com)".
	UserAgent string `yaml:"user_agent"`

	// PageLimit is the remote page size; 0 keeps the API default.
	PageLimit int `yaml:"page_limit"`

	// Timeout per HTTP request, as a Go duration string.
	Timeout string `yaml:"timeout"`

	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// GridConfig configures paging behavior.
type GridConfig struct {
	RowsPerPage int `yaml:"rows_per_page"`

	// Continuation is "received" or "display-page".
	Continuation string `yaml:"continuation"`

	// FetchTimeout bounds one page fetch, as a Go duration string.
	FetchTimeout string `yaml:"fetch_timeout"`
}

// RedisConfig enables the session cache and shared rate limit window.
// An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Pretty bool   `yaml:"pretty"`
}

// MetricsConfig configures the metrics listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:           client.DefaultBaseURL,
			UserAgent:         "artic-grid/0.1.0",
			Timeout:           "30s",
			RequestsPerMinute: ratelimit.DefaultRequestsPerMinute,
		},
		Grid: GridConfig{
			RowsPerPage:  pagination.DefaultDisplayPageSize,
			Continuation: pagination.ContinueOnReceived.String(),
			FetchTimeout: "15s",
		},
		Log: LogConfig{
			Level: string(logging.LevelInfo),
			File:  logging.DefaultFile,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile merges a YAML file into the config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	return nil
}

// applyEnv overrides fields from ARTIC_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s must be an integer (got %q)", EnvPrefix, name, v)
		}
		*dst = n
		return nil
	}

	str("BASE_URL", &c.API.BaseURL)
	str("USER_AGENT", &c.API.UserAgent)
	str("TIMEOUT", &c.API.Timeout)
	str("CONTINUATION", &c.Grid.Continuation)
	str("FETCH_TIMEOUT", &c.Grid.FetchTimeout)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)
	str("METRICS_ADDR", &c.Metrics.Addr)

	for name, dst := range map[string]*int{
		"PAGE_LIMIT":          &c.API.PageLimit,
		"REQUESTS_PER_MINUTE": &c.API.RequestsPerMinute,
		"ROWS_PER_PAGE":       &c.Grid.RowsPerPage,
		"REDIS_DB":            &c.Redis.DB,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup(EnvPrefix + "LOG_PRETTY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sLOG_PRETTY must be a boolean (got %q)", EnvPrefix, v)
		}
		c.Log.Pretty = b
	}

	return nil
}

// Validate checks the configuration for values the components would reject.
func (c *Config) Validate() error {
	if c.API.UserAgent == "" {
		return fmt.Errorf("api.user_agent is required")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.PageLimit < 0 || c.API.PageLimit > client.MaxPageLimit {
		return fmt.Errorf("api.page_limit must be between 0 and %d (got %d)", client.MaxPageLimit, c.API.PageLimit)
	}
	if c.API.RequestsPerMinute <= 0 {
		return fmt.Errorf("api.requests_per_minute must be positive (got %d)", c.API.RequestsPerMinute)
	}
	if _, err := positiveDuration("api.timeout", c.API.Timeout); err != nil {
		return err
	}

	if c.Grid.RowsPerPage <= 0 {
		return fmt.Errorf("grid.rows_per_page must be positive (got %d)", c.Grid.RowsPerPage)
	}
	policy, err := pagination.ParseContinuationPolicy(c.Grid.Continuation)
	if err != nil {
		return fmt.Errorf("grid.continuation: %w", err)
	}
	// display-page counts demand in display pages, so it only fills the
	// window when a remote page holds exactly one display page.
	if policy == pagination.ContinueOnDisplayPage && c.remotePageSize() != c.Grid.RowsPerPage {
		return fmt.Errorf("grid.continuation %q needs grid.rows_per_page (%d) to equal the remote page size (%d)",
			c.Grid.Continuation, c.Grid.RowsPerPage, c.remotePageSize())
	}
	if _, err := positiveDuration("grid.fetch_timeout", c.Grid.FetchTimeout); err != nil {
		return err
	}

	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must be >= 0 (got %d)", c.Redis.DB)
	}

	if c.Log.Level != "" && !logging.ValidLevel(logging.LogLevel(c.Log.Level)) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}

	return nil
}

// remotePageSize is api.page_limit, or the API default when unset.
func (c *Config) remotePageSize() int {
	if c.API.PageLimit > 0 {
		return c.API.PageLimit
	}
	return client.DefaultPageLimit
}

func positiveDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive (got %s)", field, value)
	}
	return d, nil
}

// RedisOptions returns connection options, or nil when Redis is disabled.
func (c *Config) RedisOptions() *redis.Options {
	if c.Redis.Addr == "" {
		return nil
	}
	return &redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}

// ClientConfig returns the API client configuration. redisClient may be nil.
// Call Validate first.
func (c *Config) ClientConfig(redisClient *redis.Client) client.Config {
	cfg := client.DefaultConfig(c.API.UserAgent)
	cfg.BaseURL = c.API.BaseURL
	cfg.PageLimit = c.API.PageLimit
	cfg.Redis = redisClient
	cfg.RateLimit.RequestsPerMinute = c.API.RequestsPerMinute
	if d, err := time.ParseDuration(c.API.Timeout); err == nil {
		cfg.Timeout = d
	}
	return cfg
}

// GridConfig returns the grid component configuration. Call Validate first.
func (c *Config) GridConfig() grid.Config {
	cfg := grid.DefaultConfig()
	cfg.Pagination.DisplayPageSize = c.Grid.RowsPerPage
	if policy, err := pagination.ParseContinuationPolicy(c.Grid.Continuation); err == nil {
		cfg.Pagination.Policy = policy
	}
	if d, err := time.ParseDuration(c.Grid.FetchTimeout); err == nil {
		cfg.Pagination.Timeout = d
	}
	return cfg
}

// LoggingConfig returns the logger configuration writing to output.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if c.Log.Level != "" {
		cfg.Level = logging.LogLevel(c.Log.Level)
	}
	cfg.Pretty = c.Log.Pretty
	return cfg
}
