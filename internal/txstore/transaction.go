package txstore

import (
	"fmt"
	"strings"
	"time"
)

// Transaction is an immutable record of one pending OAuth exchange.
//
// Stores own their internal records exclusively; callers always receive
// copies, so mutating a returned Transaction never affects the store.
type Transaction struct {
	State        string            // opaque token correlating request and callback
	CodeVerifier string            // PKCE secret, or its hash under hash policy
	Meta         map[string]string // caller-supplied context, e.g. requested scopes
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// newTransaction builds a Transaction issued now with the given per-transaction TTL.
func newTransaction(state, codeVerifier string, meta map[string]string, ttl time.Duration) Transaction {
	now := time.Now().UTC()
	return Transaction{
		State:        state,
		CodeVerifier: codeVerifier,
		Meta:         copyMeta(meta),
		IssuedAt:     now,
		ExpiresAt:    now.Add(ttl),
	}
}

// Expired reports whether the transaction is past its expiry at ref.
func (t Transaction) Expired(ref time.Time) bool {
	return !ref.Before(t.ExpiresAt)
}

// clone returns a copy safe to hand to callers.
func (t Transaction) clone() Transaction {
	out := t
	out.Meta = copyMeta(t.Meta)
	return out
}

// copyMeta defensively copies caller-supplied metadata. Returns nil for nil
// input so zero-value transactions stay cheap.
func copyMeta(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// validateState rejects state tokens the store cannot represent. The file
// backend uses the state as a file name, so it must stay a single clean path
// component.
func validateState(state string) error {
	if state == "" {
		return fmt.Errorf("%w: state must be provided", ErrStore)
	}
	if state == "." || state == ".." || strings.ContainsAny(state, `/\`) {
		return fmt.Errorf("%w: state must be a single path component", ErrStore)
	}
	return nil
}
