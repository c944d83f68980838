package server

import (
	"context"
	"time"

	"github.com/mikeboe/grounded-search/pkg/config"
	"github.com/mikeboe/grounded-search/pkg/search"
)

// Service translates transport-level search requests into queries for the
// shared search client.
type Service struct {
	Search *search.Client
	Cfg    *config.Config
}

func NewService(client *search.Client, cfg *config.Config) *Service {
	return &Service{
		Search: client,
		Cfg:    cfg,
	}
}

// SearchRequest is the REST request body. Optional tuning fields override the
// configured defaults; they do not affect cache identity.
type SearchRequest struct {
	Query          string   `json:"query" binding:"required"`
	Model          string   `json:"model,omitempty"`
	RetryCount     *int     `json:"retry_count,omitempty"`
	RetryDelay     *float64 `json:"retry_delay,omitempty"`
	SearchDelayMin *float64 `json:"search_delay_min,omitempty"`
	SearchDelayMax *float64 `json:"search_delay_max,omitempty"`
}

func (s *Service) Run(ctx context.Context, req SearchRequest) (*search.Result, error) {
	q := s.Search.NewQuery(req.Query)
	if req.Model != "" {
		q.Model = req.Model
	}
	if req.RetryCount != nil {
		q.RetryCount = *req.RetryCount
	}
	if req.RetryDelay != nil {
		q.RetryDelay = secondsToDuration(*req.RetryDelay)
	}
	if req.SearchDelayMin != nil {
		q.SearchDelayMin = secondsToDuration(*req.SearchDelayMin)
	}
	if req.SearchDelayMax != nil {
		q.SearchDelayMax = secondsToDuration(*req.SearchDelayMax)
	}
	return s.Search.Search(ctx, q)
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
