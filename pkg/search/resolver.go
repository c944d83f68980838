package search

import (
	"container/list"
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mikeboe/grounded-search/pkg/httpclient"
)

// redirectGatewayPrefix is the only URL family eligible for resolution; all
// other URLs pass through untouched without a network call.
const redirectGatewayPrefix = "https://vertexaisearch.cloud.google.com/grounding-api-redirect/"

const (
	resolveTimeout = 5 * time.Second
	resolveWorkers = 10
	memoCapacity   = 1000
)

var canonicalLinkPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="canonical"`)

// Resolver resolves grounding redirect URLs to their final destination,
// either directly or through a forwarding proxy. Resolve never fails: any
// network or parsing problem degrades to returning the input URL. Results are
// memoized in a bounded LRU so a URL is resolved at most once per process.
type Resolver struct {
	client        *http.Client
	noRedirect    *http.Client
	proxyBase     string
	gatewayPrefix string
	logger        *slog.Logger

	flight singleflight.Group

	mu    sync.Mutex
	memo  map[string]*list.Element
	order *list.List
}

type memoEntry struct {
	url      string
	resolved string
}

// NewResolver builds a resolver on top of the shared pooled client. proxyBase
// may be empty, in which case redirects are followed directly. A trailing
// slash on proxyBase is dropped.
func NewResolver(client *http.Client, proxyBase string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		client:        client,
		noRedirect:    httpclient.NoRedirect(client),
		proxyBase:     strings.TrimSuffix(proxyBase, "/"),
		gatewayPrefix: redirectGatewayPrefix,
		logger:        logger,
		memo:          make(map[string]*list.Element),
		order:         list.New(),
	}
}

// Resolve maps a redirect-gateway URL to its final destination. Identical
// inputs trigger at most one network call for the resolver's lifetime.
func (r *Resolver) Resolve(ctx context.Context, url string) string {
	if !strings.HasPrefix(url, r.gatewayPrefix) {
		return url
	}

	if resolved, ok := r.lookup(url); ok {
		return resolved
	}

	v, _, _ := r.flight.Do(url, func() (interface{}, error) {
		if resolved, ok := r.lookup(url); ok {
			return resolved, nil
		}
		resolved := r.resolveRemote(ctx, url)
		r.store(url, resolved)
		return resolved, nil
	})
	return v.(string)
}

// ResolveAll resolves every unique URL concurrently on a bounded worker pool.
// The returned mapping always covers all inputs; individual failures fall
// back to identity.
func (r *Resolver) ResolveAll(ctx context.Context, urls []string) map[string]string {
	results := make(map[string]string, len(urls))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveWorkers)
	for _, u := range urls {
		g.Go(func() error {
			resolved := r.Resolve(ctx, u)
			mu.Lock()
			results[u] = resolved
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, u := range urls {
		if _, ok := results[u]; !ok {
			results[u] = u
		}
	}
	return results
}

func (r *Resolver) lookup(url string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	elem, ok := r.memo[url]
	if !ok {
		return "", false
	}
	r.order.MoveToFront(elem)
	return elem.Value.(*memoEntry).resolved, true
}

// store records a resolution, evicting the least recently used entry when
// the memo is full. Entries are write-once.
func (r *Resolver) store(url, resolved string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.memo[url]; ok {
		return
	}
	if r.order.Len() >= memoCapacity {
		oldest := r.order.Back()
		if oldest != nil {
			r.order.Remove(oldest)
			delete(r.memo, oldest.Value.(*memoEntry).url)
		}
	}
	r.memo[url] = r.order.PushFront(&memoEntry{url: url, resolved: resolved})
}

func (r *Resolver) resolveRemote(ctx context.Context, url string) string {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	if r.proxyBase != "" {
		return r.resolveViaProxy(ctx, url)
	}
	return r.resolveDirect(ctx, url)
}

// resolveViaProxy asks the forwarding proxy to report the redirect target
// instead of following it. Precedence: explicit X-Final-Url header, then a
// 3xx Location outside the proxy, then a canonical Link on a 200.
func (r *Resolver) resolveViaProxy(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, r.proxyBase+"/"+url, nil)
	if err != nil {
		return url
	}
	req.Header.Set("X-Proxy-Manual-Redirect", "true")

	resp, err := r.noRedirect.Do(req)
	if err != nil {
		r.logger.Debug("proxy resolution failed", "url", url, "error", err)
		return url
	}
	defer resp.Body.Close()

	if final := resp.Header.Get("X-Final-Url"); final != "" {
		return final
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		location := resp.Header.Get("Location")
		if location != "" && !strings.HasPrefix(location, r.proxyBase) {
			return location
		}
	}

	if resp.StatusCode == http.StatusOK {
		if link := resp.Header.Get("Link"); link != "" {
			if m := canonicalLinkPattern.FindStringSubmatch(link); m != nil {
				return m[1]
			}
		}
	}

	return url
}

func (r *Resolver) resolveDirect(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return url
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("redirect resolution failed", "url", url, "error", err)
		return url
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK && resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return url
}
