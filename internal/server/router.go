package server

import (
	"net/http"
	"strings"
)

// BasicRouter implements [Router] on top of [http.ServeMux], adding a
// middleware stack and per-route method filtering.
type BasicRouter struct {
	mux   *http.ServeMux
	stack []Middleware
}

// NewBasicRouter creates an empty router.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware to the stack. Middleware registered here wraps
// every handler added afterwards, outermost first.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.stack = append(r.stack, middleware...)
}

// chain wraps handler with the middleware stack, last added innermost.
func (r *BasicRouter) chain(handler http.Handler) http.Handler {
	for i := len(r.stack) - 1; i >= 0; i-- {
		handler = r.stack[i](handler)
	}
	return handler
}

// Handle registers a middleware-wrapped handler for a single method and
// path. Requests with a different method get a 405.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	wrapped := r.chain(handler)

	r.mux.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !strings.EqualFold(req.Method, method) {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wrapped.ServeHTTP(w, req)
	}))
}

// Handler mounts a [Handler] at every path it reports via Routes. The
// handler is responsible for its own method filtering.
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.chain(handler)
	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

// ServeHTTP implements [http.Handler].
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
