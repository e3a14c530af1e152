package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs method, path, status and duration of every request.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			l := shared.WithLogger(logger, "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
			switch {
			case rec.status >= 500:
				l.Error("request")
			case rec.status >= 400:
				l.Warn("request")
			default:
				l.Info("request")
			}
		})
	}
}

// Recoverer turns a panicking handler into a 500 reply.
func Recoverer(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					logger.Error("handler panic", "path", r.URL.Path, "panic", v)
					writeJSON(w, http.StatusInternalServerError, errorBody{OK: false, Error: "internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
