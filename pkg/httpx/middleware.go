package httpx

import (
	"net/http"
	"runtime/debug"

	"github.com/bincyber/beesly/pkg/slogx"
)

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to h in order: the first middleware listed is
// the outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// RecoverMiddleware converts panics into an opaque 500 response. The cause
// and stack are logged with request context; nothing internal reaches the
// caller.
func RecoverMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log := slogx.FromContext(r.Context())
					log.Error("Encountered an exception",
						"panic", rec,
						"stack", string(debug.Stack()),
					)
					WriteJSON(w, http.StatusInternalServerError, map[string]string{
						"error": "The application failed to handle the request",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
