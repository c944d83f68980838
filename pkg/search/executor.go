package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"
)

const maxRetryDelay = 60 * time.Second

// Executor performs one grounded search against the upstream generateContent
// endpoint: request build, optional pre-call delay, retry loop with
// rate-limit backoff, response parse and citation splicing.
type Executor struct {
	client   *http.Client
	resolver *Resolver
	logger   *slog.Logger

	// sleep is swapped out in tests to keep backoff assertions fast.
	sleep func(time.Duration)
}

func NewExecutor(client *http.Client, resolver *Resolver, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		client:   client,
		resolver: resolver,
		logger:   logger,
		sleep:    time.Sleep,
	}
}

type requestPayload struct {
	Contents         []requestContent `json:"contents"`
	Tools            []toolSpec       `json:"tools"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text string `json:"text"`
}

type toolSpec struct {
	GoogleSearch struct{} `json:"googleSearch"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content struct {
		Parts []requestPart `json:"parts"`
	} `json:"content"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata"`
}

type groundingMetadata struct {
	GroundingChunks   []GroundingChunk   `json:"groundingChunks"`
	GroundingSupports []GroundingSupport `json:"groundingSupports"`
}

// buildPayload returns the upstream request body for q. Temperature is pinned
// to 0 so repeated queries ground against comparable evidence.
func buildPayload(q Query) *requestPayload {
	return &requestPayload{
		Contents:         []requestContent{{Parts: []requestPart{{Text: q.Text}}}},
		Tools:            []toolSpec{{}},
		GenerationConfig: generationConfig{Temperature: 0.0},
	}
}

// PayloadJSON renders the upstream request body for q, for dry runs and
// debug output.
func PayloadJSON(q Query) ([]byte, error) {
	return json.MarshalIndent(buildPayload(q), "", "  ")
}

// Execute runs the full search pipeline for one query. Configuration
// problems fail immediately; transport problems are retried up to
// RetryCount additional attempts before surfacing as a TransportError.
func (e *Executor) Execute(ctx context.Context, q Query) (*Result, error) {
	if q.APIKey == "" {
		return nil, &ConfigError{Reason: "GEMINI_API_KEY is not set"}
	}
	if strings.TrimSpace(q.Text) == "" {
		return nil, &ConfigError{Reason: "search query must not be empty"}
	}

	if q.RetryCount < 0 {
		q.RetryCount = 0
	}
	if q.RetryDelay < 0 {
		q.RetryDelay = 0
	}
	if q.RetryDelay > maxRetryDelay {
		q.RetryDelay = maxRetryDelay
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimSuffix(q.BaseURL, "/"), q.Model)
	body, err := json.Marshal(buildPayload(q))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	if q.Debug {
		e.logger.Info("search payload built", "payload", string(body))
	}

	if q.SearchDelayMax > q.SearchDelayMin && q.SearchDelayMax > 0 {
		window := q.SearchDelayMax - q.SearchDelayMin
		wait := q.SearchDelayMin + time.Duration(rand.Float64()*float64(window))
		if q.Debug {
			e.logger.Info("waiting before search", "delay", wait)
		}
		e.sleep(wait)
	}

	attempts := q.RetryCount + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := e.attempt(ctx, endpoint, body, q)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt < attempts-1 {
			wait := backoff(q.RetryDelay, attempt)
			if q.Debug {
				e.logger.Warn("search attempt failed",
					"attempt", attempt+1, "of", attempts, "error", err, "retry_in", wait)
			}
			e.sleep(wait)
		}
	}

	return nil, &TransportError{Attempts: attempts, Err: lastErr}
}

// errRateLimited marks a 429 so debug logging can distinguish it; the retry
// treatment is identical to other transport failures.
var errRateLimited = fmt.Errorf("rate limited by upstream")

func (e *Executor) attempt(ctx context.Context, endpoint string, body []byte, q Query) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+q.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Any Retry-After hint is deliberately ignored; the exponential backoff
	// with jitter governs the wait.
	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		e.logger.Warn("rate limited (429) by upstream")
		return nil, errRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %s from %s", resp.Status, endpoint)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	parsed, err := decodeResponse(data)
	if err != nil {
		e.logger.Warn("failed to decode upstream response", "error", err)
		return nil, errMalformedResponse
	}

	text, chunks, supports := extractCandidate(parsed)
	if q.Debug {
		e.logger.Info("upstream response parsed",
			"text_bytes", len(text), "chunks", len(chunks), "supports", len(supports))
	}

	return e.splice(ctx, text, chunks, supports), nil
}

// decodeResponse accepts either a bare response object or a one-element batch
// wrapping it. The shape decision happens here, once, at the boundary.
func decodeResponse(data []byte) (*generateResponse, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	if trimmed[0] == '[' {
		var batch []generateResponse
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return nil, fmt.Errorf("failed to decode batched response: %w", err)
		}
		if len(batch) == 0 {
			return &generateResponse{}, nil
		}
		return &batch[0], nil
	}

	var single generateResponse
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &single, nil
}

// extractCandidate flattens the first candidate only. Missing grounding
// metadata is treated as empty evidence, not an error.
func extractCandidate(resp *generateResponse) (string, []GroundingChunk, []GroundingSupport) {
	if len(resp.Candidates) == 0 {
		return "", nil, nil
	}
	cand := resp.Candidates[0]

	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}

	if cand.GroundingMetadata == nil {
		return sb.String(), nil, nil
	}
	return sb.String(), cand.GroundingMetadata.GroundingChunks, cand.GroundingMetadata.GroundingSupports
}

// backoff computes min(delay * 2^attempt + jitter[0,1), 60s).
func backoff(delay time.Duration, attempt int) time.Duration {
	seconds := delay.Seconds()*math.Pow(2, float64(attempt)) + rand.Float64()
	return time.Duration(math.Min(seconds, maxRetryDelay.Seconds()) * float64(time.Second))
}
