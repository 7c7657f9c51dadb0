package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Sternrassler/artic-grid/internal/config"
	"github.com/Sternrassler/artic-grid/pkg/client"
	"github.com/Sternrassler/artic-grid/pkg/grid"
	"github.com/Sternrassler/artic-grid/pkg/logging"
	"github.com/Sternrassler/artic-grid/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

// app is one fully wired run of the grid.
type app struct {
	cfg     *config.Config
	redis   *redis.Client
	client  *client.Client
	grid    *grid.Component
	metrics *http.Server
	logFile *os.File
	logger  zerolog.Logger
}

// loadConfig resolves the configuration: file and environment first, then
// explicitly set flags.
func (o *options) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("user-agent") {
		cfg.API.UserAgent = o.userAgent
	}
	if flags.Changed("base-url") {
		cfg.API.BaseURL = o.baseURL
	}
	if flags.Changed("rows") {
		cfg.Grid.RowsPerPage = o.rows
	}
	if flags.Changed("continuation") {
		cfg.Grid.Continuation = o.continuation
	}
	if flags.Changed("redis-addr") {
		cfg.Redis.Addr = o.redisAddr
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = o.logFile
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = o.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp wires logging, Redis, metrics, the API client and the grid.
// With toFile set, logs go to the configured log file so they do not
// disturb the full-screen UI; otherwise they go to logOutput.
func newApp(ctx context.Context, cfg *config.Config, toFile bool, logOutput io.Writer) (*app, error) {
	a := &app{cfg: cfg}

	logCfg := cfg.LoggingConfig()
	logCfg.Output = logOutput
	if toFile {
		f, err := logging.OpenFile(cfg.Log.File)
		if err != nil {
			return nil, err
		}
		a.logFile = f
		logCfg.Output = f
	}
	logging.Setup(logCfg)
	a.logger = logging.NewLogger(logging.ComponentGrid)

	if opts := cfg.RedisOptions(); opts != nil {
		rdb := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			// Redis is optional; run without the cache and shared budget.
			a.logger.Warn().Err(err).Str("addr", opts.Addr).Msg("Redis unavailable, continuing without it")
			rdb.Close()
		} else {
			a.logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
			a.redis = rdb
		}
	}

	c, err := client.New(cfg.ClientConfig(a.redis))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create client: %w", err)
	}
	a.client = c
	a.grid = grid.New(c, cfg.GridConfig())

	if cfg.Metrics.Addr != "" {
		a.serveMetrics(cfg.Metrics.Addr)
	}

	a.logger.Info().
		Str("base_url", cfg.API.BaseURL).
		Str("user_agent", cfg.API.UserAgent).
		Str("continuation", cfg.Grid.Continuation).
		Int("rows_per_page", cfg.Grid.RowsPerPage).
		Str("session", c.SessionID()).
		Msg("Grid started")

	return a, nil
}

func (a *app) serveMetrics(addr string) {
	a.metrics = &http.Server{
		Addr:              addr,
		Handler:           metrics.NewMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()
}

// close releases everything newApp acquired, in reverse order.
func (a *app) close() {
	if a.grid != nil {
		a.grid.Unmount()
	}

	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
		cancel()
	}

	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to drop session cache")
		}
	}

	if a.redis != nil {
		a.redis.Close()
	}

	a.logger.Info().Msg("Grid stopped")

	if a.logFile != nil {
		a.logFile.Close()
	}
}
