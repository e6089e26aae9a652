// Package middleware implements the HTTP middleware stack for the API
// server: request logging and CORS. The teacher's chain also carried rate
// limiting, security headers, and auth middlewares; those are dropped here
// (see DESIGN.md) since this is a local single-user tool with no
// authentication surface — the stack is trimmed to the two ambient concerns
// every handler still needs.
package middleware

import (
	"net/http"
	"sync/atomic"
	"time"

	"qualitygate/internal/logging"
	"qualitygate/internal/validation"
)

// Middleware wraps an http.Handler with additional behaviour.
type Middleware func(http.Handler) http.Handler

// Chain composes an ordered list of middlewares, applied onion-style:
// the first added middleware is outermost (first to see the request, last
// to see the response).
type Chain struct {
	middlewares []Middleware
	origins     atomic.Pointer[[]string]
}

// Dependencies holds what the default stack needs to build its middlewares.
type Dependencies struct {
	Log            logging.Logger
	AllowedOrigins []string // empty allows any http/https origin
}

// New builds a Chain with the standard logging + CORS stack.
func New(deps Dependencies) *Chain {
	if deps.Log == nil {
		deps.Log = logging.NewTestLogger()
	}
	c := &Chain{}
	c.origins.Store(&deps.AllowedOrigins)
	c.Add(loggingMiddleware(deps.Log))
	c.Add(corsMiddleware(&c.origins))
	return c
}

// SetAllowedOrigins swaps the CORS allowlist in place. Safe to call while
// the chain is serving requests; used to pick up a config hot-reload.
func (c *Chain) SetAllowedOrigins(origins []string) {
	c.origins.Store(&origins)
}

// Add appends a middleware to the chain.
func (c *Chain) Add(m Middleware) {
	c.middlewares = append(c.middlewares, m)
}

// Apply wraps handler with every middleware in the chain.
func (c *Chain) Apply(handler http.Handler) http.Handler {
	if handler == nil {
		panic("middleware.Chain.Apply: handler cannot be nil")
	}
	wrapped := handler
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		wrapped = c.middlewares[i](wrapped)
	}
	return wrapped
}

// loggingMiddleware logs method, path, status, and duration for every
// request.
func loggingMiddleware(log logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// corsMiddleware mirrors the origin-allowlist check used by the WebSocket
// transport, so the plain JSON API and the push channel apply the same
// policy.
func corsMiddleware(origins *atomic.Pointer[[]string]) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowedOrigins := *origins.Load()
			if origin != "" && validation.ValidateOrigin(origin, allowedOrigins) == nil {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
