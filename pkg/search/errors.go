package search

import (
	"errors"
	"fmt"
	"regexp"
)

// ConfigError reports a missing credential or an unusable query. It is never
// retried and surfaces to the caller before any network call.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return e.Reason
}

// TransportError reports an upstream failure after the retry budget is
// exhausted. The message may contain endpoint URLs; adapters redact them
// before display with RedactURLs.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("search failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// errMalformedResponse marks an undecodable upstream body. It consumes a
// retry attempt instead of failing the call outright.
var errMalformedResponse = errors.New("malformed upstream response")

var urlPattern = regexp.MustCompile(`https?://\S+`)

// RedactURLs masks every URL in msg so error text can be shown to end users
// without leaking the configured endpoint.
func RedactURLs(msg string) string {
	return urlPattern.ReplaceAllString(msg, "[REDACTED_URL]")
}
