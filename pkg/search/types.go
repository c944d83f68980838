package search

import (
	"fmt"
	"strings"
	"time"
)

// Query holds the parameters for a single grounded search call. Only Text,
// Model and BaseURL participate in cache identity; the remaining fields tune
// execution of a cache miss.
type Query struct {
	Text   string
	Model  string
	APIKey string
	// BaseURL is the upstream endpoint base, without a trailing slash.
	BaseURL        string
	RetryCount     int
	RetryDelay     time.Duration
	SearchDelayMin time.Duration
	SearchDelayMax time.Duration
	Debug          bool
}

// Source is one deduplicated citation target. IDs start at 1 and follow
// first-appearance order of the resolved URL within a single search call.
type Source struct {
	ID    int    `json:"id"`
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

// Result is the annotated answer returned to callers and stored in the cache.
type Result struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// Markdown renders the answer followed by a Sources section, one line per
// source in assigned-id order.
func (r *Result) Markdown() string {
	if len(r.Sources) == 0 {
		return r.Text
	}
	var sb strings.Builder
	sb.WriteString(r.Text)
	sb.WriteString("\n\n## Sources\n")
	for _, src := range r.Sources {
		sb.WriteString(fmt.Sprintf("%d. [%s](%s)\n", src.ID, src.Title, src.URL))
	}
	return sb.String()
}

// GroundingChunk is one piece of web evidence returned by the upstream
// service. The same URI may repeat across chunks.
type GroundingChunk struct {
	Web *WebSource `json:"web,omitempty"`
}

// WebSource identifies the referenced web page.
type WebSource struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// GroundingSupport maps an answer-text span to the chunks that justify it.
type GroundingSupport struct {
	Segment               Segment `json:"segment"`
	GroundingChunkIndices []int   `json:"groundingChunkIndices"`
}

// Segment carries the byte offsets of the supported span in the UTF-8 answer
// text. Only EndIndex matters for citation placement.
type Segment struct {
	StartIndex int `json:"startIndex,omitempty"`
	EndIndex   int `json:"endIndex"`
}
