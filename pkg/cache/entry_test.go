package cache

import (
	"testing"
	"time"
)

func TestCacheEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{"stale page", time.Now().Add(-1 * time.Hour), true},
		{"fresh page", time.Now().Add(5 * time.Minute), false},
		{"max-age=0 page", time.Now().Add(-1 * time.Second), true},
		{"zero expiry", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &CacheEntry{Expires: tt.expires}
			if got := entry.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCacheEntry_StorageTTL(t *testing.T) {
	tests := []struct {
		name    string
		entry   CacheEntry
		wantMin time.Duration
		wantMax time.Duration
	}{
		{
			name:    "fresh without validators",
			entry:   CacheEntry{Expires: time.Now().Add(5 * time.Minute)},
			wantMin: 4*time.Minute + 59*time.Second,
			wantMax: 5 * time.Minute,
		},
		{
			name:    "fresh with etag keeps the stale window",
			entry:   CacheEntry{ETag: `"page-1"`, Expires: time.Now().Add(5 * time.Minute)},
			wantMin: StaleWindow + 4*time.Minute + 59*time.Second,
			wantMax: StaleWindow + 5*time.Minute,
		},
		{
			name:    "stale with last-modified",
			entry:   CacheEntry{LastModified: time.Now().Add(-time.Hour), Expires: time.Now().Add(-time.Minute)},
			wantMin: StaleWindow,
			wantMax: StaleWindow,
		},
		{
			name:    "stale without validators is not stored",
			entry:   CacheEntry{Expires: time.Now().Add(-time.Minute)},
			wantMin: 0,
			wantMax: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.entry.StorageTTL()
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("StorageTTL() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestCacheEntry_TTLNeverNegative(t *testing.T) {
	entry := &CacheEntry{Expires: time.Now().Add(-time.Hour)}
	if got := entry.TTL(); got != 0 {
		t.Errorf("TTL() = %v, want 0 for a stale entry", got)
	}
}

func TestCacheEntry_HasValidators(t *testing.T) {
	if (&CacheEntry{}).HasValidators() {
		t.Error("entry without ETag or Last-Modified reported validators")
	}
	if !(&CacheEntry{ETag: `"page-2"`}).HasValidators() {
		t.Error("ETag not recognised as a validator")
	}
	if !(&CacheEntry{LastModified: time.Now()}).HasValidators() {
		t.Error("Last-Modified not recognised as a validator")
	}
}

func TestCacheEntry_Age(t *testing.T) {
	if got := (&CacheEntry{}).Age(); got != 0 {
		t.Errorf("Age() = %v, want 0 without CachedAt", got)
	}

	entry := &CacheEntry{CachedAt: time.Now().Add(-30 * time.Second)}
	if got := entry.Age(); got < 30*time.Second || got > 31*time.Second {
		t.Errorf("Age() = %v, want about 30s", got)
	}
}
