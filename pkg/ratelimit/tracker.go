package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned by callers that refuse a request the tracker
// did not allow.
var ErrRateLimited = errors.New("request blocked: rate limit exhausted")

// Response headers carrying the API's own budget, when present.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "artic_rate_limit_remaining",
		Help: "Requests remaining in the current rate limit window",
	})

	rateLimitBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_rate_limit_blocks_total",
		Help: "Requests blocked by the rate limiter by reason",
	}, []string{"reason"})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_rate_limit_throttles_total",
		Help: "Requests delayed because the remaining budget is low",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "artic_rate_limit_wait_seconds",
		Help:    "Time spent waiting on the local token bucket",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5},
	})
)

// Config holds tracker configuration.
type Config struct {
	// RequestsPerMinute is the request budget per minute.
	RequestsPerMinute int

	// Burst is the local token bucket size.
	Burst int

	// ThrottleDelay is the pause applied when the budget runs low.
	ThrottleDelay time.Duration
}

// DefaultConfig returns the API's anonymous budget.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: DefaultRequestsPerMinute,
		Burst:             5,
		ThrottleDelay:     1 * time.Second,
	}
}

// Tracker monitors the request budget and gates requests.
// Redis is optional; without it state stays in process.
type Tracker struct {
	redis  *redis.Client
	config Config
	bucket *rate.Limiter
	logger zerolog.Logger

	mu    sync.Mutex
	local *State
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, config Config, logger zerolog.Logger) *Tracker {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.ThrottleDelay < 0 {
		config.ThrottleDelay = 0
	}

	return &Tracker{
		redis:  redisClient,
		config: config,
		bucket: rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), config.Burst),
		logger: logger.With().Str("component", "ratelimit").Logger(),
	}
}

// defaultState assumes a full budget until real data arrives.
func (t *Tracker) defaultState() *State {
	now := time.Now()
	return &State{
		Limit:      t.config.RequestsPerMinute,
		Remaining:  t.config.RequestsPerMinute,
		ResetAt:    now.Truncate(time.Minute).Add(time.Minute),
		LastUpdate: now,
		IsHealthy:  true,
	}
}

// GetState returns the latest header-derived budget.
// Returns a default healthy state if nothing has been recorded.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.local == nil {
			return t.defaultState(), nil
		}
		s := *t.local
		s.UpdateHealth()
		return &s, nil
	}

	remaining, err := t.redis.Get(ctx, RedisKeyRemaining).Int()
	if err == redis.Nil {
		t.logger.Debug().Msg("No rate limit state in Redis, returning default healthy state")
		return t.defaultState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	limit, err := t.redis.Get(ctx, RedisKeyLimit).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get limit: %w", err)
	}

	resetTimestamp, err := t.redis.Get(ctx, RedisKeyResetTimestamp).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &State{
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    time.Unix(resetTimestamp, 0),
		LastUpdate: lastUpdate,
	}
	state.UpdateHealth()

	return state, nil
}

// UpdateFromHeaders records the budget advertised in response headers.
// Responses without X-RateLimit-Remaining leave the state untouched.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	limit := t.config.RequestsPerMinute
	if limitStr := headers.Get(HeaderLimit); limitStr != "" {
		if limit, err = strconv.Atoi(limitStr); err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderLimit, err)
		}
	}

	now := time.Now()
	resetAt := now.Truncate(time.Minute).Add(time.Minute)
	if resetStr := headers.Get(HeaderReset); resetStr != "" {
		reset, err := strconv.ParseInt(resetStr, 10, 64)
		if err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderReset, err)
		}
		resetAt = parseReset(now, reset)
	}

	state := &State{
		Limit:      limit,
		Remaining:  remain,
		ResetAt:    resetAt,
		LastUpdate: now,
	}
	state.UpdateHealth()

	if err := t.store(ctx, state); err != nil {
		return err
	}

	rateLimitRemaining.Set(float64(remain))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Rate limit CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Rate limit WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Bool("is_healthy", state.IsHealthy).
			Msg("Rate limit state updated")
	}

	return nil
}

// parseReset accepts either seconds until reset or a unix timestamp.
func parseReset(now time.Time, reset int64) time.Time {
	if reset > 1_000_000_000 {
		return time.Unix(reset, 0)
	}
	return now.Add(time.Duration(reset) * time.Second)
}

func (t *Tracker) store(ctx context.Context, state *State) error {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		s := *state
		t.local = &s
		return nil
	}

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	ttl := state.TimeUntilReset() + time.Minute
	pipe := t.redis.TxPipeline()
	pipe.Set(ctx, RedisKeyRemaining, state.Remaining, ttl)
	pipe.Set(ctx, RedisKeyLimit, state.Limit, ttl)
	pipe.Set(ctx, RedisKeyResetTimestamp, state.ResetAt.Unix(), ttl)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	return nil
}

// ShouldAllowRequest waits for a local token, then checks the advertised
// budget and the shared per-minute window.
// Returns false if the request should be blocked. May sleep to throttle.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	start := time.Now()
	if err := t.bucket.Wait(ctx); err != nil {
		return false, fmt.Errorf("wait for token: %w", err)
	}
	rateLimitWaitSeconds.Observe(time.Since(start).Seconds())

	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Rate limit critical - blocking request")
		rateLimitBlocksTotal.WithLabelValues("critical").Inc()
		return false, nil
	}

	if state.NeedsThrottling() && t.config.ThrottleDelay > 0 {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("Rate limit warning - throttling request")
		rateLimitThrottlesTotal.Inc()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.config.ThrottleDelay):
		}
	}

	if t.redis != nil {
		used, err := t.countWindow(ctx)
		if err != nil {
			return false, err
		}
		if used > t.config.RequestsPerMinute {
			t.logger.Warn().
				Int64("used", used).
				Int("limit", t.config.RequestsPerMinute).
				Msg("Shared request window exhausted - blocking request")
			rateLimitBlocksTotal.WithLabelValues("window").Inc()
			return false, nil
		}
	}

	return true, nil
}

// countWindow increments and returns the shared count for this minute.
func (t *Tracker) countWindow(ctx context.Context) (int64, error) {
	key := windowKey(time.Now())

	pipe := t.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("count request window: %w", err)
	}

	return incr.Val(), nil
}
