package ratelimit

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newMemoryTracker(cfg Config) *Tracker {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	return NewTracker(nil, cfg, logger)
}

func TestNewTracker_Defaults(t *testing.T) {
	tracker := newMemoryTracker(Config{RequestsPerMinute: 0, Burst: 0, ThrottleDelay: -time.Second})

	if tracker.config.RequestsPerMinute != DefaultRequestsPerMinute {
		t.Errorf("RequestsPerMinute = %d, want %d", tracker.config.RequestsPerMinute, DefaultRequestsPerMinute)
	}
	if tracker.config.Burst != 1 {
		t.Errorf("Burst = %d, want 1", tracker.config.Burst)
	}
	if tracker.config.ThrottleDelay != 0 {
		t.Errorf("ThrottleDelay = %v, want 0", tracker.config.ThrottleDelay)
	}
}

func TestTracker_GetState_Default(t *testing.T) {
	tracker := newMemoryTracker(DefaultConfig())

	state, err := tracker.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}

	if state.Remaining != DefaultRequestsPerMinute {
		t.Errorf("Remaining = %d, want %d", state.Remaining, DefaultRequestsPerMinute)
	}
	if !state.IsHealthy {
		t.Error("default state should be healthy")
	}
}

func TestTracker_UpdateFromHeaders(t *testing.T) {
	tests := []struct {
		name            string
		headers         map[string]string
		expectedRemain  int
		expectedLimit   int
		expectedHealthy bool
		shouldError     bool
	}{
		{
			name:            "healthy state",
			headers:         map[string]string{HeaderRemaining: "50", HeaderLimit: "60", HeaderReset: "30"},
			expectedRemain:  50,
			expectedLimit:   60,
			expectedHealthy: true,
		},
		{
			name:            "warning state",
			headers:         map[string]string{HeaderRemaining: "5", HeaderReset: "30"},
			expectedRemain:  5,
			expectedLimit:   DefaultRequestsPerMinute,
			expectedHealthy: false,
		},
		{
			name:            "critical state",
			headers:         map[string]string{HeaderRemaining: "0", HeaderReset: "45"},
			expectedRemain:  0,
			expectedLimit:   DefaultRequestsPerMinute,
			expectedHealthy: false,
		},
		{
			name:        "invalid remaining",
			headers:     map[string]string{HeaderRemaining: "lots"},
			shouldError: true,
		},
		{
			name:        "invalid reset",
			headers:     map[string]string{HeaderRemaining: "10", HeaderReset: "soon"},
			shouldError: true,
		},
		{
			name:        "invalid limit",
			headers:     map[string]string{HeaderRemaining: "10", HeaderLimit: "x"},
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newMemoryTracker(DefaultConfig())
			ctx := context.Background()

			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}

			err := tracker.UpdateFromHeaders(ctx, headers)
			if tt.shouldError {
				if err == nil {
					t.Fatal("UpdateFromHeaders() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateFromHeaders() error = %v", err)
			}

			state, err := tracker.GetState(ctx)
			if err != nil {
				t.Fatalf("GetState() error = %v", err)
			}
			if state.Remaining != tt.expectedRemain {
				t.Errorf("Remaining = %d, want %d", state.Remaining, tt.expectedRemain)
			}
			if state.Limit != tt.expectedLimit {
				t.Errorf("Limit = %d, want %d", state.Limit, tt.expectedLimit)
			}
			if state.IsHealthy != tt.expectedHealthy {
				t.Errorf("IsHealthy = %v, want %v", state.IsHealthy, tt.expectedHealthy)
			}
		})
	}
}

func TestTracker_UpdateFromHeaders_MissingHeaders(t *testing.T) {
	tracker := newMemoryTracker(DefaultConfig())
	ctx := context.Background()

	if err := tracker.UpdateFromHeaders(ctx, http.Header{}); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Remaining != DefaultRequestsPerMinute {
		t.Errorf("Remaining = %d, want untouched default %d", state.Remaining, DefaultRequestsPerMinute)
	}
}

func TestParseReset(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	if got := parseReset(now, 30); !got.Equal(now.Add(30 * time.Second)) {
		t.Errorf("parseReset(30) = %v, want %v", got, now.Add(30*time.Second))
	}

	ts := int64(1_700_000_090)
	if got := parseReset(now, ts); !got.Equal(time.Unix(ts, 0)) {
		t.Errorf("parseReset(%d) = %v, want %v", ts, got, time.Unix(ts, 0))
	}
}

func TestTracker_ShouldAllowRequest(t *testing.T) {
	tests := []struct {
		name      string
		remaining string
		expected  bool
	}{
		{"healthy allows", "40", true},
		{"warning allows after throttle", "5", true},
		{"critical blocks", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newMemoryTracker(Config{RequestsPerMinute: 600, Burst: 10, ThrottleDelay: 10 * time.Millisecond})
			ctx := context.Background()

			headers := http.Header{}
			headers.Set(HeaderRemaining, tt.remaining)
			headers.Set(HeaderReset, "30")
			if err := tracker.UpdateFromHeaders(ctx, headers); err != nil {
				t.Fatalf("UpdateFromHeaders() error = %v", err)
			}

			allowed, err := tracker.ShouldAllowRequest(ctx)
			if err != nil {
				t.Fatalf("ShouldAllowRequest() error = %v", err)
			}
			if allowed != tt.expected {
				t.Errorf("ShouldAllowRequest() = %v, want %v", allowed, tt.expected)
			}
		})
	}
}

func TestTracker_ShouldAllowRequest_ThrottleRespectsContext(t *testing.T) {
	tracker := newMemoryTracker(Config{RequestsPerMinute: 600, Burst: 10, ThrottleDelay: time.Minute})

	headers := http.Header{}
	headers.Set(HeaderRemaining, "5")
	headers.Set(HeaderReset, "30")
	if err := tracker.UpdateFromHeaders(context.Background(), headers); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	allowed, err := tracker.ShouldAllowRequest(ctx)
	if err == nil {
		t.Fatal("ShouldAllowRequest() expected context error, got nil")
	}
	if allowed {
		t.Error("ShouldAllowRequest() should not allow a cancelled request")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("throttle did not stop on context cancellation")
	}
}

func TestTracker_ShouldAllowRequest_BucketWaitCancelled(t *testing.T) {
	tracker := newMemoryTracker(Config{RequestsPerMinute: 1, Burst: 1})
	ctx := context.Background()

	if allowed, err := tracker.ShouldAllowRequest(ctx); err != nil || !allowed {
		t.Fatalf("first request = (%v, %v), want (true, nil)", allowed, err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	if _, err := tracker.ShouldAllowRequest(cancelled); err == nil {
		t.Error("expected error waiting for a token with a cancelled context")
	}
}
