package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCacheComputesOnce(t *testing.T) {
	c := NewResultCache(time.Hour, 100)
	key := cacheKey{query: "q", model: "m", endpoint: "e"}

	var calls atomic.Int32
	compute := func() (*Result, error) {
		calls.Add(1)
		return &Result{Text: "answer"}, nil
	}

	first, err := c.GetOrCompute(context.Background(), key, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.GetOrCompute(context.Background(), key, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("compute ran %d times, want 1", calls.Load())
	}
	if first != second {
		t.Errorf("expected both calls to share the cached result")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewResultCache(30*time.Millisecond, 100)
	key := cacheKey{query: "q", model: "m", endpoint: "e"}

	var calls atomic.Int32
	compute := func() (*Result, error) {
		calls.Add(1)
		return &Result{Text: fmt.Sprintf("answer %d", calls.Load())}, nil
	}

	if _, err := c.GetOrCompute(context.Background(), key, compute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	r, err := c.GetOrCompute(context.Background(), key, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls.Load() != 2 {
		t.Errorf("compute ran %d times, want 2 after expiry", calls.Load())
	}
	if r.Text != "answer 2" {
		t.Errorf("got %q, want fresh result", r.Text)
	}
}

func TestCacheErrorsNotCached(t *testing.T) {
	c := NewResultCache(time.Hour, 100)
	key := cacheKey{query: "q", model: "m", endpoint: "e"}

	var calls atomic.Int32
	boom := errors.New("boom")
	compute := func() (*Result, error) {
		if calls.Add(1) == 1 {
			return nil, boom
		}
		return &Result{Text: "ok"}, nil
	}

	if _, err := c.GetOrCompute(context.Background(), key, compute); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
	r, err := c.GetOrCompute(context.Background(), key, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Text != "ok" {
		t.Errorf("got %q, want recomputed result", r.Text)
	}
}

func TestCacheSingleFlightPerKey(t *testing.T) {
	c := NewResultCache(time.Hour, 100)
	key := cacheKey{query: "q", model: "m", endpoint: "e"}

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() (*Result, error) {
		calls.Add(1)
		<-release
		return &Result{Text: "shared"}, nil
	}

	var wg sync.WaitGroup
	results := make([]*Result, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := c.GetOrCompute(context.Background(), key, compute)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results[i] = r
		}(i)
	}

	// Give the followers time to pile onto the in-flight computation.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("compute ran %d times, want 1 for concurrent identical keys", calls.Load())
	}
	for i, r := range results {
		if r == nil || r.Text != "shared" {
			t.Errorf("caller %d got %v, want shared result", i, r)
		}
	}
}

func TestCacheUnrelatedKeysNotSerialized(t *testing.T) {
	c := NewResultCache(time.Hour, 100)

	started := make(chan string, 2)
	release := make(chan struct{})
	compute := func(name string) func() (*Result, error) {
		return func() (*Result, error) {
			started <- name
			<-release
			return &Result{Text: name}, nil
		}
	}

	var wg sync.WaitGroup
	for _, name := range []string{"a", "b"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			key := cacheKey{query: name, model: "m", endpoint: "e"}
			if _, err := c.GetOrCompute(context.Background(), key, compute(name)); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(name)
	}

	// Both computations must be in flight at once; with a global lock the
	// second would never start before the first finishes.
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("second computation never started; keys are serialized")
		}
	}
	close(release)
	wg.Wait()
}

func TestCacheEvictsWhenFull(t *testing.T) {
	c := NewResultCache(time.Hour, 3)

	for i := 0; i < 5; i++ {
		key := cacheKey{query: fmt.Sprintf("q%d", i), model: "m", endpoint: "e"}
		_, err := c.GetOrCompute(context.Background(), key, func() (*Result, error) {
			return &Result{Text: "x"}, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := c.Len(); got > 3 {
		t.Errorf("cache holds %d entries, want at most 3", got)
	}
}
