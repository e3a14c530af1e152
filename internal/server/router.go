package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// APIPrefix is the path prefix of every [Handler] route.
const APIPrefix = "/api"

// MuxRouter implements [Router] on top of a [mux.Router].
type MuxRouter struct {
	mux         *mux.Router
	api         *mux.Router
	middlewares []Middleware
}

// NewRouter creates a new [MuxRouter] instance.
func NewRouter() *MuxRouter {
	m := mux.NewRouter()
	return &MuxRouter{
		mux:         m,
		api:         m.PathPrefix(APIPrefix).Subrouter(),
		middlewares: []Middleware{},
	}
}

// Use adds [Middleware] to the router's middleware stack, applied in the order it's added.
func (r *MuxRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for method and path outside the API prefix.
func (r *MuxRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(path, handler).Methods(method)
}

// Handler mounts handler's routes under [APIPrefix].
func (r *MuxRouter) Handler(handler Handler) {
	handler.Register(r.api)
}

// ServeHTTP implements [http.Handler] for the entire router, unmatched routes included.
func (r *MuxRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Apply(r.mux).ServeHTTP(w, req)
}

// Apply wraps a handler with all registered middleware.
//
// Middleware is applied in reverse order (last added wraps first).
func (r *MuxRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}

	return wrapped
}
