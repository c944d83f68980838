// Package search implements the grounded-search pipeline: a cached executor
// that queries the upstream generateContent endpoint with the web-search tool
// enabled, resolves grounding redirect URLs to canonical sources, and splices
// citation markers into the answer text.
package search

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mikeboe/grounded-search/pkg/config"
	"github.com/mikeboe/grounded-search/pkg/httpclient"
)

// Client is the composition root: one pooled HTTP client, one redirect
// resolver with its memo, one result cache and one executor, built once and
// shared by every adapter (CLI, REST, MCP).
type Client struct {
	cfg      *config.Config
	http     *http.Client
	resolver *Resolver
	executor *Executor
	cache    *ResultCache
	logger   *slog.Logger
}

func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	hc := httpclient.New()
	resolver := NewResolver(hc, cfg.ProxyURL, logger)
	return &Client{
		cfg:      cfg,
		http:     hc,
		resolver: resolver,
		executor: NewExecutor(hc, resolver, logger),
		cache:    NewResultCache(cfg.CacheTTL, cfg.CacheMaxSize),
		logger:   logger,
	}
}

// NewQuery returns a query for text with every tunable defaulted from the
// configuration. Adapters override individual fields before calling Search.
func (c *Client) NewQuery(text string) Query {
	return Query{
		Text:           text,
		Model:          c.cfg.Model,
		APIKey:         c.cfg.APIKey,
		BaseURL:        c.cfg.BaseURL,
		RetryCount:     c.cfg.RetryCount,
		RetryDelay:     c.cfg.RetryDelay,
		SearchDelayMin: c.cfg.SearchDelayMin,
		SearchDelayMax: c.cfg.SearchDelayMax,
	}
}

// Search runs a grounded search through the result cache. Identity is
// (text, model, endpoint) only: two calls differing in retry or delay tuning
// share one cached result.
func (c *Client) Search(ctx context.Context, q Query) (*Result, error) {
	if q.Model == "" {
		q.Model = c.cfg.Model
	}
	if q.APIKey == "" {
		q.APIKey = c.cfg.APIKey
	}
	if q.BaseURL == "" {
		q.BaseURL = c.cfg.BaseURL
	}

	key := cacheKey{query: q.Text, model: q.Model, endpoint: q.BaseURL}
	return c.cache.GetOrCompute(ctx, key, func() (*Result, error) {
		return c.executor.Execute(ctx, q)
	})
}
