package cachedresource_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	cachedresource "github.com/italijancic-th/cached-resource"
)

type ship struct {
	ID   int
	Name string
}

// countingFetch returns a FetchFunc that reports a distinct value per call.
func countingFetch(calls *atomic.Int64) cachedresource.FetchFunc {
	return func(ctx context.Context) (any, error) {
		n := calls.Add(1)
		return fmt.Sprintf("v%d", n), nil
	}
}

func TestResourceCache_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("miss fetches and writes, hit skips the origin", func(t *testing.T) {
		t.Parallel()

		store := cachedresource.NewStore(nil)
		ships := &cachedresource.ResourceCache{Store: store, Entity: "ship"}

		var calls atomic.Int64
		fetch := countingFetch(&calls)

		first, err := ships.Fetch(t.Context(), 1, fetch)
		if err != nil {
			t.Fatal(err)
		}
		second, err := ships.Fetch(t.Context(), 1, fetch)
		if err != nil {
			t.Fatal(err)
		}

		if first != "v1" || second != "v1" {
			t.Errorf("Fetch() = %v then %v, want v1 both times", first, second)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("origin fetched %d times, want 1", got)
		}
	})

	t.Run("distinct ids are cached independently", func(t *testing.T) {
		t.Parallel()

		store := cachedresource.NewStore(nil)
		ships := &cachedresource.ResourceCache{Store: store, Entity: "ship"}

		var calls atomic.Int64
		fetch := countingFetch(&calls)

		first, err := ships.Fetch(t.Context(), 1, fetch)
		if err != nil {
			t.Fatal(err)
		}
		second, err := ships.Fetch(t.Context(), 2, fetch)
		if err != nil {
			t.Fatal(err)
		}

		if first == second {
			t.Errorf("Fetch() = %v for both ids, want distinct fetches", first)
		}
		if got := calls.Load(); got != 2 {
			t.Errorf("origin fetched %d times, want 2", got)
		}
	})

	t.Run("disabled entity bypasses the cache", func(t *testing.T) {
		t.Parallel()

		store := cachedresource.NewStore(nil)
		store.Configure("ship", cachedresource.Options{"enabled": false})
		ships := &cachedresource.ResourceCache{Store: store, Entity: "ship"}

		var calls atomic.Int64
		fetch := countingFetch(&calls)

		if _, err := ships.Fetch(t.Context(), 1, fetch); err != nil {
			t.Fatal(err)
		}
		if _, err := ships.Fetch(t.Context(), 1, fetch); err != nil {
			t.Fatal(err)
		}
		if got := calls.Load(); got != 2 {
			t.Errorf("origin fetched %d times, want 2 with caching disabled", got)
		}
	})

	t.Run("fetch errors propagate and are not cached", func(t *testing.T) {
		t.Parallel()

		store := cachedresource.NewStore(nil)
		ships := &cachedresource.ResourceCache{Store: store, Entity: "ship"}

		fetchErr := errors.New("origin unavailable")
		var calls atomic.Int64
		fetch := func(ctx context.Context) (any, error) {
			calls.Add(1)
			return nil, fetchErr
		}

		if _, err := ships.Fetch(t.Context(), 1, fetch); !errors.Is(err, fetchErr) {
			t.Fatalf("Fetch() error = %v, want %v", err, fetchErr)
		}
		if _, err := ships.Fetch(t.Context(), 1, fetch); !errors.Is(err, fetchErr) {
			t.Fatalf("Fetch() error = %v, want %v", err, fetchErr)
		}
		if got := calls.Load(); got != 2 {
			t.Errorf("origin fetched %d times, want 2 when fetches fail", got)
		}
	})

	t.Run("clear removes the cached entry", func(t *testing.T) {
		t.Parallel()

		store := cachedresource.NewStore(nil)
		ships := &cachedresource.ResourceCache{Store: store, Entity: "ship"}

		var calls atomic.Int64
		fetch := countingFetch(&calls)

		if _, err := ships.Fetch(t.Context(), 1, fetch); err != nil {
			t.Fatal(err)
		}
		if err := ships.Clear(t.Context(), 1); err != nil {
			t.Fatal(err)
		}
		if _, err := ships.Fetch(t.Context(), 1, fetch); err != nil {
			t.Fatal(err)
		}
		if got := calls.Load(); got != 2 {
			t.Errorf("origin fetched %d times, want 2 after Clear()", got)
		}
	})
}

func TestResourceCache_RaceConditionTTL(t *testing.T) {
	t.Parallel()

	t.Run("stale entry within the grace window is served and refreshed", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		store := cachedresource.NewStore(nil)
		store.Configure("ship", cachedresource.Options{
			"cache":              cachedresource.NewMemoryBackend(cachedresource.WithClock(clock)),
			"ttl":                1,
			"race_condition_ttl": 60,
		})
		ships := &cachedresource.ResourceCache{Store: store, Entity: "ship", Clock: clock}

		var calls atomic.Int64
		fetch := countingFetch(&calls)

		if _, err := ships.Fetch(t.Context(), 1, fetch); err != nil {
			t.Fatal(err)
		}

		// past the TTL but within the race-condition grace window
		clock.Advance(30 * time.Second)

		got, err := ships.Fetch(t.Context(), 1, fetch)
		if err != nil {
			t.Fatal(err)
		}
		if got != "v1" {
			t.Errorf("Fetch() = %v, want the stale v1 while refreshing", got)
		}

		// the background refresh eventually replaces the stale entry
		deadline := time.Now().Add(2 * time.Second)
		for {
			got, err = ships.Fetch(t.Context(), 1, fetch)
			if err != nil {
				t.Fatal(err)
			}
			if got != "v1" {
				break
			}
			if time.Now().After(deadline) {
				t.Fatal("stale entry was never refreshed")
			}
			time.Sleep(10 * time.Millisecond)
		}
	})

	t.Run("entry past the grace window is fetched synchronously", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		store := cachedresource.NewStore(nil)
		store.Configure("ship", cachedresource.Options{
			"cache":              cachedresource.NewMemoryBackend(cachedresource.WithClock(clock)),
			"ttl":                1,
			"race_condition_ttl": 60,
		})
		ships := &cachedresource.ResourceCache{Store: store, Entity: "ship", Clock: clock}

		var calls atomic.Int64
		fetch := countingFetch(&calls)

		if _, err := ships.Fetch(t.Context(), 1, fetch); err != nil {
			t.Fatal(err)
		}

		clock.Advance(2 * time.Minute)

		got, err := ships.Fetch(t.Context(), 1, fetch)
		if err != nil {
			t.Fatal(err)
		}
		if got != "v2" {
			t.Errorf("Fetch() = %v, want a fresh v2 past the grace window", got)
		}
	})
}

func TestResourceCache_FetchDeduplicates(t *testing.T) {
	t.Parallel()

	store := cachedresource.NewStore(nil)
	ships := &cachedresource.ResourceCache{Store: store, Entity: "ship"}

	var calls atomic.Int64
	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		time.Sleep(100 * time.Millisecond)
		return "corvette", nil
	}

	var eg errgroup.Group
	for range 8 {
		eg.Go(func() error {
			got, err := ships.Fetch(t.Context(), 1, fetch)
			if err != nil {
				return err
			}
			if got != "corvette" {
				return fmt.Errorf("Fetch() = %v, want corvette", got)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("origin fetched %d times, want 1 for concurrent fetches of one key", got)
	}
}

func TestResourceCache_FetchCollection(t *testing.T) {
	t.Parallel()

	members := []any{ship{ID: 1, Name: "corvette"}, ship{ID: 2, Name: "frigate"}}

	t.Run("the eligible signature is cached", func(t *testing.T) {
		t.Parallel()

		store := cachedresource.NewStore(nil)
		ships := &cachedresource.ResourceCache{Store: store, Entity: "ship"}

		var calls atomic.Int64
		fetch := func(ctx context.Context) ([]any, error) {
			calls.Add(1)
			return members, nil
		}

		args := []any{cachedresource.CollectionAll}
		first, err := ships.FetchCollection(t.Context(), args, fetch)
		if err != nil {
			t.Fatal(err)
		}
		second, err := ships.FetchCollection(t.Context(), args, fetch)
		if err != nil {
			t.Fatal(err)
		}

		if df := cmp.Diff(members, first); df != "" {
			t.Errorf("first collection diff=%s", df)
		}
		if df := cmp.Diff(members, second); df != "" {
			t.Errorf("second collection diff=%s", df)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("origin fetched %d times, want 1", got)
		}
	})

	t.Run("other signatures bypass the cache", func(t *testing.T) {
		t.Parallel()

		store := cachedresource.NewStore(nil)
		ships := &cachedresource.ResourceCache{Store: store, Entity: "ship"}

		var calls atomic.Int64
		fetch := func(ctx context.Context) ([]any, error) {
			calls.Add(1)
			return members, nil
		}

		args := []any{"page", 2}
		for range 2 {
			if _, err := ships.FetchCollection(t.Context(), args, fetch); err != nil {
				t.Fatal(err)
			}
		}
		if got := calls.Load(); got != 2 {
			t.Errorf("origin fetched %d times, want 2 for an ineligible signature", got)
		}
	})

	t.Run("a configured signature becomes eligible", func(t *testing.T) {
		t.Parallel()

		store := cachedresource.NewStore(nil)
		store.Configure("ship", cachedresource.Options{
			"collection_arguments": []any{"page", 2},
		})
		ships := &cachedresource.ResourceCache{Store: store, Entity: "ship"}

		var calls atomic.Int64
		fetch := func(ctx context.Context) ([]any, error) {
			calls.Add(1)
			return members, nil
		}

		args := []any{"page", 2}
		for range 2 {
			if _, err := ships.FetchCollection(t.Context(), args, fetch); err != nil {
				t.Fatal(err)
			}
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("origin fetched %d times, want 1 for the configured signature", got)
		}
	})

	t.Run("non-comparable arguments are matched structurally", func(t *testing.T) {
		t.Parallel()

		store := cachedresource.NewStore(nil)
		store.Configure("ship", cachedresource.Options{
			"collection_arguments": []any{[]string{"ids", "1", "2"}},
		})
		ships := &cachedresource.ResourceCache{Store: store, Entity: "ship"}

		var calls atomic.Int64
		fetch := func(ctx context.Context) ([]any, error) {
			calls.Add(1)
			return members, nil
		}

		args := []any{[]string{"ids", "1", "2"}}
		for range 2 {
			if _, err := ships.FetchCollection(t.Context(), args, fetch); err != nil {
				t.Fatal(err)
			}
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("origin fetched %d times, want 1 for the configured signature", got)
		}

		other := []any{[]string{"ids", "3"}}
		if _, err := ships.FetchCollection(t.Context(), other, fetch); err != nil {
			t.Fatal(err)
		}
		if got := calls.Load(); got != 2 {
			t.Errorf("origin fetched %d times, want 2 after an unconfigured signature", got)
		}
	})

	t.Run("collection caching can be disabled", func(t *testing.T) {
		t.Parallel()

		store := cachedresource.NewStore(nil)
		store.Configure("ship", cachedresource.Options{"cache_collections": false})
		ships := &cachedresource.ResourceCache{Store: store, Entity: "ship"}

		var calls atomic.Int64
		fetch := func(ctx context.Context) ([]any, error) {
			calls.Add(1)
			return members, nil
		}

		args := []any{cachedresource.CollectionAll}
		for range 2 {
			if _, err := ships.FetchCollection(t.Context(), args, fetch); err != nil {
				t.Fatal(err)
			}
		}
		if got := calls.Load(); got != 2 {
			t.Errorf("origin fetched %d times, want 2 with collection caching off", got)
		}
	})

	t.Run("synchronization serves members from the collection", func(t *testing.T) {
		t.Parallel()

		store := cachedresource.NewStore(nil)
		store.Configure("ship", cachedresource.Options{"collection_synchronize": true})
		ships := &cachedresource.ResourceCache{
			Store:  store,
			Entity: "ship",
			MemberKey: func(member any) string {
				return strconv.Itoa(member.(ship).ID)
			},
		}

		fetch := func(ctx context.Context) ([]any, error) {
			return members, nil
		}
		if _, err := ships.FetchCollection(t.Context(), []any{cachedresource.CollectionAll}, fetch); err != nil {
			t.Fatal(err)
		}

		got, err := ships.Fetch(t.Context(), 2, func(ctx context.Context) (any, error) {
			return nil, errors.New("member fetch must be served from the cache")
		})
		if err != nil {
			t.Fatal(err)
		}
		if df := cmp.Diff(ship{ID: 2, Name: "frigate"}, got); df != "" {
			t.Errorf("member diff=%s", df)
		}
	})

	t.Run("clearing the collection forces a refetch", func(t *testing.T) {
		t.Parallel()

		store := cachedresource.NewStore(nil)
		ships := &cachedresource.ResourceCache{Store: store, Entity: "ship"}

		var calls atomic.Int64
		fetch := func(ctx context.Context) ([]any, error) {
			calls.Add(1)
			return members, nil
		}

		args := []any{cachedresource.CollectionAll}
		if _, err := ships.FetchCollection(t.Context(), args, fetch); err != nil {
			t.Fatal(err)
		}
		if err := ships.ClearCollection(t.Context(), cachedresource.CollectionAll); err != nil {
			t.Fatal(err)
		}
		if _, err := ships.FetchCollection(t.Context(), args, fetch); err != nil {
			t.Fatal(err)
		}
		if got := calls.Load(); got != 2 {
			t.Errorf("origin fetched %d times, want 2 after ClearCollection()", got)
		}
	})
}
