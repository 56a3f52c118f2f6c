package txstore

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// newBackends returns a fresh instance of every Store backend so the
// contract tests run identically against each.
func newBackends(t *testing.T) map[string]Store {
	t.Helper()

	mem, err := NewMemoryStore(10 * time.Minute)
	if err != nil {
		t.Fatalf("failed to create memory store: %v", err)
	}

	file, err := NewFileStore(t.TempDir(), 10*time.Minute, false)
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}

	return map[string]Store{"memory": mem, "file": file}
}

func TestStoreContract(t *testing.T) {
	meta := map[string]string{"scope": "read"}

	t.Run("CreateThenConsume", func(t *testing.T) {
		for name, store := range newBackends(t) {
			if err := store.Create("abc", "verifier123", meta, time.Minute); err != nil {
				t.Fatalf("%s: create failed: %v", name, err)
			}

			ok, err := store.Exists("abc")
			if err != nil {
				t.Fatalf("%s: exists failed: %v", name, err)
			}
			if !ok {
				t.Errorf("%s: created state should exist", name)
			}

			tx, err := store.Consume("abc")
			if err != nil {
				t.Fatalf("%s: consume failed: %v", name, err)
			}
			if tx.CodeVerifier != "verifier123" {
				t.Errorf("%s: expected verifier123, got %s", name, tx.CodeVerifier)
			}
			if tx.Meta["scope"] != "read" {
				t.Errorf("%s: expected scope=read, got %v", name, tx.Meta)
			}

			ok, err = store.Exists("abc")
			if err != nil {
				t.Fatalf("%s: exists failed: %v", name, err)
			}
			if !ok {
				t.Errorf("%s: consumed state should still exist", name)
			}
		}
	})

	t.Run("EmptyState", func(t *testing.T) {
		for name, store := range newBackends(t) {
			err := store.Create("", "verifier", nil, time.Minute)
			if !errors.Is(err, ErrStore) {
				t.Errorf("%s: expected ErrStore for empty state, got %v", name, err)
			}
		}
	})

	t.Run("DoubleCreate", func(t *testing.T) {
		for name, store := range newBackends(t) {
			if err := store.Create("dup", "v1", nil, time.Minute); err != nil {
				t.Fatalf("%s: create failed: %v", name, err)
			}
			if err := store.Create("dup", "v2", nil, time.Minute); !errors.Is(err, ErrUsed) {
				t.Errorf("%s: expected ErrUsed for duplicate create, got %v", name, err)
			}

			// Still used after consumption.
			if _, err := store.Consume("dup"); err != nil {
				t.Fatalf("%s: consume failed: %v", name, err)
			}
			if err := store.Create("dup", "v3", nil, time.Minute); !errors.Is(err, ErrUsed) {
				t.Errorf("%s: expected ErrUsed for create after consume, got %v", name, err)
			}
		}
	})

	t.Run("DoubleConsume", func(t *testing.T) {
		for name, store := range newBackends(t) {
			if err := store.Create("once", "v", nil, time.Minute); err != nil {
				t.Fatalf("%s: create failed: %v", name, err)
			}
			if _, err := store.Consume("once"); err != nil {
				t.Fatalf("%s: first consume failed: %v", name, err)
			}
			if _, err := store.Consume("once"); !errors.Is(err, ErrUsed) {
				t.Errorf("%s: expected ErrUsed on second consume, got %v", name, err)
			}
		}
	})

	t.Run("ConsumeUnknown", func(t *testing.T) {
		for name, store := range newBackends(t) {
			if _, err := store.Consume("never-created"); !errors.Is(err, ErrNotFound) {
				t.Errorf("%s: expected ErrNotFound, got %v", name, err)
			}
		}
	})

	t.Run("ExpiredThenUsed", func(t *testing.T) {
		for name, store := range newBackends(t) {
			if err := store.Create("stale", "v", nil, time.Nanosecond); err != nil {
				t.Fatalf("%s: create failed: %v", name, err)
			}

			if _, err := store.Consume("stale"); !errors.Is(err, ErrExpired) {
				t.Errorf("%s: expected ErrExpired, got %v", name, err)
			}

			// The attempt retired the entry: a retry is already-used, not
			// expired again and not not-found.
			if _, err := store.Consume("stale"); !errors.Is(err, ErrUsed) {
				t.Errorf("%s: expected ErrUsed after expired consume, got %v", name, err)
			}
		}
	})

	t.Run("ConsumeWithinTTL", func(t *testing.T) {
		for name, store := range newBackends(t) {
			if err := store.Create("fresh", "v", nil, time.Hour); err != nil {
				t.Fatalf("%s: create failed: %v", name, err)
			}
			if _, err := store.Consume("fresh"); err != nil {
				t.Errorf("%s: consume within ttl should succeed, got %v", name, err)
			}
		}
	})

	t.Run("PurgeExpired", func(t *testing.T) {
		for name, store := range newBackends(t) {
			if err := store.Create("old", "v", nil, time.Minute); err != nil {
				t.Fatalf("%s: create failed: %v", name, err)
			}
			if err := store.Create("new", "v", nil, 2*time.Hour); err != nil {
				t.Fatalf("%s: create failed: %v", name, err)
			}

			ref := time.Now().UTC().Add(time.Hour)
			purged, err := store.PurgeExpired(ref)
			if err != nil {
				t.Fatalf("%s: purge failed: %v", name, err)
			}
			if purged != 1 {
				t.Errorf("%s: expected 1 purged, got %d", name, purged)
			}

			// Idempotent with the same reference time.
			purged, err = store.PurgeExpired(ref)
			if err != nil {
				t.Fatalf("%s: second purge failed: %v", name, err)
			}
			if purged != 0 {
				t.Errorf("%s: expected 0 purged on repeat, got %d", name, purged)
			}

			if _, err := store.Consume("new"); err != nil {
				t.Errorf("%s: unexpired state should survive purge, got %v", name, err)
			}
		}
	})

	t.Run("Count", func(t *testing.T) {
		for name, store := range newBackends(t) {
			if err := store.Create("live", "v", nil, time.Hour); err != nil {
				t.Fatalf("%s: create failed: %v", name, err)
			}
			if err := store.Create("dead", "v", nil, time.Nanosecond); err != nil {
				t.Fatalf("%s: create failed: %v", name, err)
			}

			n, err := store.Count()
			if err != nil {
				t.Fatalf("%s: count failed: %v", name, err)
			}
			if n != 1 {
				t.Errorf("%s: expected 1 pending after implicit purge, got %d", name, n)
			}
		}
	})

	t.Run("TTL", func(t *testing.T) {
		for name, store := range newBackends(t) {
			if got := store.TTL(); got != 10*time.Minute {
				t.Errorf("%s: expected 10m ttl, got %v", name, got)
			}
		}
	})
}

// TestStoreConcurrentConsume verifies that N racing consumers on one state
// produce exactly one winner under both backends.
func TestStoreConcurrentConsume(t *testing.T) {
	const n = 32

	for name, store := range newBackends(t) {
		if err := store.Create("contested", "v", nil, time.Minute); err != nil {
			t.Fatalf("%s: create failed: %v", name, err)
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		wins, losses := 0, 0

		start := make(chan struct{})
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start

				_, err := store.Consume("contested")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case errors.Is(err, ErrUsed) || errors.Is(err, ErrExpired):
					losses++
				default:
					t.Errorf("%s: unexpected consume error: %v", name, err)
				}
			}()
		}

		close(start)
		wg.Wait()

		if wins != 1 {
			t.Errorf("%s: expected exactly 1 winner, got %d", name, wins)
		}
		if losses != n-1 {
			t.Errorf("%s: expected %d losers, got %d", name, n-1, losses)
		}
	}
}

func TestTransaction(t *testing.T) {
	t.Run("Expired", func(t *testing.T) {
		tx := newTransaction("s", "v", nil, time.Minute)

		if tx.Expired(tx.IssuedAt) {
			t.Error("transaction should not be expired at issue time")
		}
		if !tx.Expired(tx.ExpiresAt) {
			t.Error("transaction should be expired exactly at expiry")
		}
		if !tx.Expired(tx.ExpiresAt.Add(time.Second)) {
			t.Error("transaction should be expired past expiry")
		}
	})

	t.Run("MetaCopiedOnInput", func(t *testing.T) {
		meta := map[string]string{"scope": "read"}
		tx := newTransaction("s", "v", meta, time.Minute)

		meta["scope"] = "mutated"
		if tx.Meta["scope"] != "read" {
			t.Error("external mutation leaked into stored metadata")
		}
	})

	t.Run("MetaCopiedOnOutput", func(t *testing.T) {
		store, err := NewMemoryStore(time.Minute)
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}

		if err := store.Create("s1", "v", map[string]string{"scope": "read"}, time.Minute); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if err := store.Create("s2", "v", map[string]string{"scope": "read"}, time.Minute); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		tx, err := store.Consume("s1")
		if err != nil {
			t.Fatalf("consume failed: %v", err)
		}
		tx.Meta["scope"] = "mutated"

		other, err := store.Consume("s2")
		if err != nil {
			t.Fatalf("consume failed: %v", err)
		}
		if other.Meta["scope"] != "read" {
			t.Error("mutating a returned transaction affected the store")
		}
	})
}
