// Package storagetest provides generic test cases for cache backend implementations.
package storagetest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	cachedresource "github.com/italijancic-th/cached-resource"
)

// Run executes the Backend conformance suite.
// The provider must return a fresh, empty backend and a release
// function on each call.
func Run(t *testing.T, provider func() (cachedresource.Backend, func())) {
	t.Run("ReadMissing", func(t *testing.T) {
		t.Parallel()

		backend, release := provider()
		defer release()

		value, ok, err := backend.Read(t.Context(), "missing")
		if err != nil {
			t.Fatal(err)
		}
		if ok || value != nil {
			t.Errorf("Read() = (%v, %v), want miss", value, ok)
		}
	})

	t.Run("WriteAndRead", func(t *testing.T) {
		t.Parallel()

		backend, release := provider()
		defer release()

		if err := backend.Write(t.Context(), "ship/1", "corvette", time.Hour); err != nil {
			t.Fatal(err)
		}

		value, ok, err := backend.Read(t.Context(), "ship/1")
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatal("Read() = miss, want hit")
		}
		if df := cmp.Diff("corvette", value); df != "" {
			t.Errorf("value diff=%s", df)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		t.Parallel()

		backend, release := provider()
		defer release()

		if err := backend.Write(t.Context(), "ship/1", "corvette", time.Hour); err != nil {
			t.Fatal(err)
		}
		if err := backend.Write(t.Context(), "ship/1", "frigate", time.Hour); err != nil {
			t.Fatal(err)
		}

		value, ok, err := backend.Read(t.Context(), "ship/1")
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatal("Read() = miss, want hit")
		}
		if df := cmp.Diff("frigate", value); df != "" {
			t.Errorf("value diff=%s", df)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		t.Parallel()

		backend, release := provider()
		defer release()

		if err := backend.Write(t.Context(), "ship/1", "corvette", time.Hour); err != nil {
			t.Fatal(err)
		}
		if err := backend.Delete(t.Context(), "ship/1"); err != nil {
			t.Fatal(err)
		}

		if _, ok, err := backend.Read(t.Context(), "ship/1"); err != nil {
			t.Fatal(err)
		} else if ok {
			t.Error("Read() = hit after Delete(), want miss")
		}
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		t.Parallel()

		backend, release := provider()
		defer release()

		if err := backend.Delete(t.Context(), "missing"); err != nil {
			t.Errorf("Delete() = %v, want nil for missing key", err)
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		t.Parallel()

		backend, release := provider()
		defer release()

		if err := backend.Write(t.Context(), "ship/1", "corvette", 10*time.Millisecond); err != nil {
			t.Fatal(err)
		}
		time.Sleep(100 * time.Millisecond)

		if _, ok, err := backend.Read(t.Context(), "ship/1"); err != nil {
			t.Fatal(err)
		} else if ok {
			t.Error("Read() = hit after expiry, want miss")
		}
	})

	t.Run("Parallel", func(t *testing.T) {
		t.Parallel()

		backend, release := provider()
		defer release()

		var eg errgroup.Group
		for i := range 16 {
			eg.Go(func() error {
				key := fmt.Sprintf("ship/%d", i)
				want := fmt.Sprintf("corvette-%d", i)
				if err := backend.Write(t.Context(), key, want, time.Hour); err != nil {
					return err
				}

				got, ok, err := backend.Read(t.Context(), key)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("key %q: miss, want hit", key)
				}
				if got != want {
					return fmt.Errorf("key %q: got %v, want %v", key, got, want)
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			t.Error(err)
		}
	})
}
