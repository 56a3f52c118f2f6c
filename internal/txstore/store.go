package txstore

import "time"

// Store is the contract shared by all transaction store backends.
// Implementations must be safe for concurrent use.
type Store interface {
	// Create persists a new pending transaction issued now with the given
	// per-transaction TTL. Fails with ErrUsed if the state already exists,
	// pending or consumed, including the just-purged-expired case.
	Create(state, codeVerifier string, meta map[string]string, ttl time.Duration) error

	// Consume atomically retires the pending transaction for state and
	// returns it. Exactly one of any set of concurrent Consume calls on the
	// same state succeeds. Fails with ErrNotFound for unknown states,
	// ErrUsed for already-consumed ones, and ErrExpired for transactions
	// past their expiry; an expired consumption attempt still retires the
	// entry so a retry reports ErrUsed.
	Consume(state string) (Transaction, error)

	// Exists reports whether state is pending or consumed.
	Exists(state string) (bool, error)

	// PurgeExpired retires every pending transaction whose expiry has passed
	// at ref and returns the number purged. Safe to call concurrently with
	// Create and Consume.
	PurgeExpired(ref time.Time) (int, error)

	// Count returns the number of pending, non-expired transactions,
	// purging expired entries as a side effect so the count is accurate.
	Count() (int, error)

	// TTL returns the store-level default TTL.
	TTL() time.Duration
}

// Checker is implemented by backends that can prove their storage works
// before being trusted in production. The factory refuses to run split mode
// on a backend without one.
type Checker interface {
	// StartupCheck exercises the backend's storage path end to end and
	// returns a descriptive status map.
	StartupCheck() (map[string]any, error)
}
