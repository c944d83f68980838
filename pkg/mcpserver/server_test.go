package mcpserver

import (
	"errors"
	"strings"
	"testing"

	"github.com/mikeboe/grounded-search/pkg/search"
)

func TestRenderErrorConfig(t *testing.T) {
	err := &search.ConfigError{Reason: "search query must not be empty"}
	got := renderError(err)
	if got != "Invalid parameters: search query must not be empty" {
		t.Errorf("renderError = %q", got)
	}
}

func TestRenderErrorRedactsTransportURLs(t *testing.T) {
	err := &search.TransportError{
		Attempts: 3,
		Err:      errors.New("unexpected status 500 from https://internal.example/v1beta/models/m:generateContent"),
	}
	got := renderError(err)
	if strings.Contains(got, "internal.example") {
		t.Errorf("renderError leaks URL: %q", got)
	}
	if !strings.Contains(got, "Search failed:") || !strings.Contains(got, "[REDACTED_URL]") {
		t.Errorf("renderError = %q", got)
	}
}
