// Package txstore implements crash-safe storage for short-lived PKCE OAuth
// state used during the Spotify authorization-code exchange.
//
// # Lifecycle
//
// The OAuth layer calls [Store.Create] when redirecting a user to the identity
// provider and [Store.Consume] when the provider's callback arrives. Every
// transaction moves through exactly two phases, pending then consumed, with no
// path back. Expiry is checked at consumption time rather than modeled as a
// third phase, so an expired-but-unconsumed transaction remains discoverable
// until purged.
//
// # Backends
//
// [MemoryStore] guards a pending map and a consumed set with a single mutex
// and is suitable for single-process deployments.
//
// [FileStore] persists each transaction as a JSON record under
// base/pending/<state>.json and moves it to base/consumed/<state>.json with
// one atomic rename. It carries no in-process lock: correctness under
// concurrent processes relies on the filesystem's rename-into-place
// atomicity, which makes it the backend for split deployments where the
// process initiating an OAuth flow differs from the one handling its
// callback.
//
// # Construction
//
// [New] selects a backend from [Config] (split-mode flag, TTL, hashing
// policy) and runs the backend's startup self-check before returning it.
//
// # Failure taxonomy
//
// All operations report failures through a closed set of sentinel errors
// ([ErrNotFound], [ErrUsed], [ErrExpired], [ErrStore], [ErrConfig]) matched
// with [errors.Is], so the OAuth layer can translate each case into a
// distinct user-facing response.
package txstore
