package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetCoinData(t *testing.T) {
	var gotPath, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{"symbol":"CAKE","price":"2.41","price24h":{"percent":-3.5}}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithTimeout(time.Second))
	m, err := c.GetCoinData(context.Background(), "bnb", "0xabc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/app/en/bnb/pair-explorer/0xabc" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotUA == "" {
		t.Fatalf("expected a browser user agent")
	}
	if !m.OK || m.Name != "CAKE" || m.Price != 2.41 || m.Change24h != -3.5 {
		t.Fatalf("unexpected metric %+v", m)
	}
}

func TestGetCoinData_Non2xxIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"symbol":"CAKE","price":"2.41"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	m, err := c.GetCoinData(context.Background(), "bnb", "0xabc")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsTransportError(err) {
		t.Fatalf("expected transport error, got %T", err)
	}
	if m.OK || m.Name != "" || m.Price != 0 {
		t.Fatalf("no defaults may be applied on fetch failure: %+v", m)
	}
}

func TestGetCoinData_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := c.GetCoinData(context.Background(), "bnb", "0xabc")
	if !IsTransportError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("fetch was not bounded by the timeout")
	}
}

func TestGetCoinData_CacheSharesFetch(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"symbol":"CAKE","price":"2.41"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithCacheTTL(time.Minute))
	for i := 0; i < 3; i++ {
		if _, err := c.GetCoinData(context.Background(), "bnb", "0xabc"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := c.GetCoinData(context.Background(), "bnb", "0xdef"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Fatalf("expected 2 upstream requests, got %d", n)
	}
}

func TestCacheTTLFor(t *testing.T) {
	tests := []struct {
		ttl, interval, want time.Duration
	}{
		{time.Minute, 3 * time.Minute, time.Minute},
		{time.Minute, 30 * time.Second, 15 * time.Second},
		{time.Minute, time.Minute, 30 * time.Second},
		{0, 30 * time.Second, 0},
	}
	for _, tt := range tests {
		got := CacheTTLFor(tt.ttl, tt.interval)
		if got != tt.want {
			t.Errorf("CacheTTLFor(%s, %s) = %s, want %s", tt.ttl, tt.interval, got, tt.want)
		}
		if got > 0 && got >= tt.interval {
			t.Errorf("ttl %s not below interval %s", got, tt.interval)
		}
	}
}
