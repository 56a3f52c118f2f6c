package server

import "net/http"

// Middleware decorates an http.Handler with extra behavior such as request
// logging or panic recovery.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows which path patterns it serves, so a
// Router can mount it without external route configuration.
type Handler interface {
	http.Handler
	// Routes returns the path patterns this handler serves.
	Routes() []string
}

// Router registers handlers and middleware and serves as the root
// http.Handler for the embedded server.
type Router interface {
	// Use adds middleware to the router's stack.
	Use(middleware ...Middleware)
	// Handle registers a handler for one method and path.
	Handle(method, path string, handler http.Handler)
	// Handler mounts a Handler at every route it reports.
	Handler(handler Handler)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}
