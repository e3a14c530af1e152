// package server exposes the playlist reconciliation service over HTTP
package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler groups related endpoints. Register mounts them on the API subrouter.
type Handler interface {
	Register(router *mux.Router)
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler mounts a [Handler] under the API prefix
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}
