// Package server provides HTTP routing, middleware, and OAuth flow handling for the Harmony backend.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging] and [Recover] cover the ambient concerns for every route.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Flow Handler
//
// [OAuthFlowHandler] implements both legs of the OAuth2 authorization code flow.
//
// The login leg mints a state token and PKCE verifier, persists them as a
// single-use transaction in the [txstore.Store], and redirects to the
// provider with the S256 challenge. The callback leg consumes the
// transaction, validating that the state is known, unexpired and unused,
// then exchanges the authorization code using the stored verifier.
//
// Store failures map to user-facing responses: an expired transaction asks
// the user to restart ("your session timed out"), a consumed one reports the
// link as already used, and an unknown state is rejected outright. Because
// consumption is atomic in the store, replayed callbacks cannot complete a
// second exchange.
//
// # Deployment Modes
//
// With the in-memory store, both legs must be served by the same process.
// With the filesystem store (split mode), the login and callback legs may
// run in different processes sharing the state directory.
//
// # Health Endpoint
//
// [HealthHandler] reports liveness plus the transaction store's pending
// count and TTL, re-running the store's startup check when it has one so a
// probe also verifies the state directory is writable.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
