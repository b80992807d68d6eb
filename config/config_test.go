package config

import (
	"testing"
	"time"
)

func TestGetDuration(t *testing.T) {
	tests := []struct {
		env  string
		want time.Duration
	}{
		{"", 3 * time.Minute},
		{"5m", 5 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{"180", 3 * time.Minute},
		{"2.5", 2500 * time.Millisecond},
		{"soon", 3 * time.Minute},
		{"0s", 3 * time.Minute},
		{"-1m", 3 * time.Minute},
		{"0", 3 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("SWEEP_INTERVAL", tt.env)
			if got := GetDuration("sweep_interval"); got != tt.want {
				t.Fatalf("SWEEP_INTERVAL=%q gives %s, want %s", tt.env, got, tt.want)
			}
		})
	}
}

func TestGetDurationDefaults(t *testing.T) {
	for key, want := range durationDefaults {
		if got := GetDuration(key); got != want {
			t.Errorf("%s = %s, want %s", key, got, want)
		}
	}
}

func TestGetDurationZeroDisablesCache(t *testing.T) {
	t.Setenv("FETCH_CACHE_TTL", "0")
	if got := GetDuration("fetch_cache_ttl"); got != 0 {
		t.Fatalf("fetch_cache_ttl = %s, want 0", got)
	}
	t.Setenv("FETCH_CACHE_TTL", "-5s")
	if got := GetDuration("fetch_cache_ttl"); got != time.Minute {
		t.Fatalf("fetch_cache_ttl = %s, want default", got)
	}
}
