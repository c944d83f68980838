package httpclient

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestClientSendsBrowserUserAgent(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ua.Store(req.Header.Get("User-Agent"))
	}))
	defer srv.Close()

	c := New()
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	got, _ := ua.Load().(string)
	if !strings.HasPrefix(got, "Mozilla/5.0") {
		t.Errorf("User-Agent = %q, want a browser agent", got)
	}
}

func TestClientKeepsExplicitUserAgent(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ua.Store(req.Header.Get("User-Agent"))
	}))
	defer srv.Close()

	c := New()
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("User-Agent", "custom/1.0")

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if got, _ := ua.Load().(string); got != "custom/1.0" {
		t.Errorf("User-Agent = %q, want explicit value preserved", got)
	}
}

func TestNoRedirectReportsRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "https://elsewhere.example/", http.StatusFound)
	}))
	defer srv.Close()

	c := NoRedirect(New())
	resp, err := c.Head(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want 302 reported instead of followed", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != "https://elsewhere.example/" {
		t.Errorf("Location = %q", got)
	}
}

func TestRandomUserAgentStable(t *testing.T) {
	for i := 0; i < 20; i++ {
		if ua := RandomUserAgent(); !strings.HasPrefix(ua, "Mozilla/5.0") {
			t.Fatalf("RandomUserAgent() = %q", ua)
		}
	}
}
