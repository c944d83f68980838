package search

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikeboe/grounded-search/pkg/config"
)

func TestSearchCacheIdentityIgnoresTuning(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "cached answer"}]}}]}`))
	}))
	defer upstream.Close()

	cfg := &config.Config{
		APIKey:       "test-key",
		Model:        "gemini-2.5-flash",
		BaseURL:      upstream.URL,
		CacheTTL:     time.Hour,
		CacheMaxSize: 100,
	}
	client := NewClient(cfg, slog.Default())

	first := client.NewQuery("what is cached")
	second := client.NewQuery("what is cached")
	second.RetryCount = 9
	second.RetryDelay = 30 * time.Second
	second.SearchDelayMin = time.Second
	second.SearchDelayMax = 2 * time.Second
	second.Debug = true

	r1, err := client.Search(context.Background(), first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r2, err := client.Search(context.Background(), second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if hits.Load() != 1 {
		t.Errorf("upstream called %d times, want 1: tuning fields must not affect cache identity", hits.Load())
	}
	if r1 != r2 {
		t.Error("expected both calls to share one cached result")
	}
}

func TestSearchDistinctQueriesNotShared(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "answer"}]}}]}`))
	}))
	defer upstream.Close()

	cfg := &config.Config{
		APIKey:       "test-key",
		Model:        "gemini-2.5-flash",
		BaseURL:      upstream.URL,
		CacheTTL:     time.Hour,
		CacheMaxSize: 100,
	}
	client := NewClient(cfg, slog.Default())

	for _, text := range []string{"query one", "query two"} {
		if _, err := client.Search(context.Background(), client.NewQuery(text)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if hits.Load() != 2 {
		t.Errorf("upstream called %d times, want 2 for distinct queries", hits.Load())
	}
}

func TestSearchAppliesConfigDefaults(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/v1beta/models/gemini-2.5-flash:generateContent" {
			t.Errorf("path = %q", req.URL.Path)
		}
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer upstream.Close()

	cfg := &config.Config{
		APIKey:       "test-key",
		Model:        "gemini-2.5-flash",
		BaseURL:      upstream.URL,
		CacheTTL:     time.Hour,
		CacheMaxSize: 100,
	}
	client := NewClient(cfg, slog.Default())

	// A bare query picks up model, key and endpoint from configuration.
	if _, err := client.Search(context.Background(), Query{Text: "bare"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
