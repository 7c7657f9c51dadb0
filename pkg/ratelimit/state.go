// Package ratelimit keeps artworks API traffic inside the documented
// anonymous budget (60 requests per minute per IP).
//
// Three signals gate a request: a local token bucket, a per-minute request
// window shared through Redis by every process on the same host, and the
// X-RateLimit-* headers when the API sends them.
package ratelimit

import (
	"fmt"
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyRemaining      = "artic:rate_limit:remaining"
	RedisKeyLimit          = "artic:rate_limit:limit"
	RedisKeyResetTimestamp = "artic:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "artic:rate_limit:last_update"
	redisKeyWindowPrefix   = "artic:rate_limit:window"
)

// Thresholds for rate limit decisions.
const (
	// RemainingCritical blocks requests when fewer requests than this remain
	// before the window resets.
	RemainingCritical = 2

	// RemainingWarning throttles requests when fewer requests than this remain.
	RemainingWarning = 10

	// DefaultRequestsPerMinute is the API's anonymous budget.
	DefaultRequestsPerMinute = 60
)

// windowKey returns the Redis key counting requests in the minute of t.
func windowKey(t time.Time) string {
	return fmt.Sprintf("%s:%d", redisKeyWindowPrefix, t.Unix()/60)
}

// State represents the current request budget.
type State struct {
	// Limit is the number of requests allowed per window.
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the current window ends.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last refreshed.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true while no throttling applies.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked until reset.
func (s *State) NeedsCriticalBlock() bool {
	return s.Remaining < RemainingCritical && s.TimeUntilReset() > 0
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *State) NeedsThrottling() bool {
	return s.Remaining < RemainingWarning && !s.NeedsCriticalBlock() && s.TimeUntilReset() > 0
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.Remaining >= RemainingWarning || s.TimeUntilReset() == 0
}
