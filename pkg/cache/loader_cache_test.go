package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

func TestLoaderCache_Get_miss_then_hit(t *testing.T) {
	loads := atomic.Int32{}

	c, err := NewLoaderCache[int64, string](10, func(id int64) string { return strconv.FormatInt(id, 10) })
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	load := func(_ context.Context, id int64) (string, error) {
		loads.Add(1)

		return "user-" + strconv.FormatInt(id, 10), nil
	}

	v, hit, err := c.Get(ctx, 7, load)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("expected miss")
	}
	if v != "user-7" {
		t.Errorf("got %q", v)
	}
	if loads.Load() != 1 {
		t.Errorf("loads = %d", loads.Load())
	}

	v, hit, err = c.Get(ctx, 7, load)
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Error("expected hit")
	}
	if v != "user-7" {
		t.Errorf("got %q", v)
	}
	if loads.Load() != 1 {
		t.Errorf("loads = %d", loads.Load())
	}
}

func TestLoaderCache_Get_error_not_cached(t *testing.T) {
	loads := atomic.Int32{}
	boom := errors.New("boom")

	c, err := NewLoaderCache[string, int](10, func(s string) string { return s })
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	_, _, err = c.Get(ctx, "k", func(_ context.Context, _ string) (int, error) {
		loads.Add(1)

		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	v, hit, err := c.Get(ctx, "k", func(_ context.Context, _ string) (int, error) {
		loads.Add(1)

		return 42, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("error result must not be cached")
	}
	if v != 42 {
		t.Errorf("got %d", v)
	}
	if loads.Load() != 2 {
		t.Errorf("loads = %d", loads.Load())
	}
}

func TestLoaderCache_concurrent_misses_coalesced(t *testing.T) {
	loads := atomic.Int32{}
	release := make(chan struct{})

	c, err := NewLoaderCache[string, string](10, func(s string) string { return s })
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	load := func(_ context.Context, key string) (string, error) {
		loads.Add(1)
		<-release

		return "v-" + key, nil
	}

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			v, _, err := c.Get(ctx, "same", load)
			if err != nil {
				t.Error(err)
			}
			if v != "v-same" {
				t.Errorf("got %q", v)
			}
		}()
	}

	// Let the goroutines pile onto the in-flight load, then release it.
	close(release)
	wg.Wait()

	if got := loads.Load(); got != 1 {
		t.Errorf("loads = %d, want 1 (singleflight should coalesce)", got)
	}
}

func TestLoaderCache_Invalidate(t *testing.T) {
	loads := atomic.Int32{}

	c, err := NewLoaderCache[string, string](10, func(s string) string { return s })
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	load := func(_ context.Context, key string) (string, error) {
		loads.Add(1)

		return "v", nil
	}

	if _, _, err := c.Get(ctx, "a", load); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Get(ctx, "b", load); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 {
		t.Errorf("len = %d", c.Len())
	}

	c.Invalidate("a")
	if _, hit, _ := c.Get(ctx, "a", load); hit {
		t.Error("expected miss after Invalidate")
	}

	c.InvalidateAll()
	if c.Len() != 0 {
		t.Errorf("len = %d after InvalidateAll", c.Len())
	}
}
