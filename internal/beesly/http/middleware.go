package http

import (
	"net/http"

	"github.com/bincyber/beesly/pkg/httpx"
)

// ResponseHeadersMiddleware disables response caching everywhere and, in
// dev mode, relaxes CORS so a browser-based frontend on another origin
// can talk to the service directly.
func ResponseHeadersMiddleware(dev bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")

			if dev {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
				w.Header().Set("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept")
			}

			next.ServeHTTP(w, r)
		})
	}
}
