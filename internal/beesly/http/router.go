// Package http wires the service's HTTP surface: the token lifecycle
// endpoints, the informational endpoints and the middleware stack.
package http

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/bincyber/beesly/internal/beesly/service"
	"github.com/bincyber/beesly/internal/beesly/sysinfo"
	"github.com/bincyber/beesly/pkg/httpx"
	"github.com/bincyber/beesly/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	sessions *service.SessionService
	sysinfo  *sysinfo.Collector

	// limiter is nil when rate limiting is disabled.
	limiter httpx.RateLimitStore

	appName      string
	buildVersion string
	logger       *slog.Logger
	dev          bool

	routes []routeInfo
}

type routeInfo struct {
	Endpoint string   `json:"endpoint"`
	Methods  []string `json:"methods"`
}

func NewRouter(
	sessions *service.SessionService,
	collector *sysinfo.Collector,
	limiter httpx.RateLimitStore,
	appName, buildVersion string,
	dev bool,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		sessions:     sessions,
		sysinfo:      collector,
		limiter:      limiter,
		appName:      appName,
		buildVersion: buildVersion,
		logger:       logger,
		dev:          dev,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger, r.dev),
		httpx.RecoverMiddleware(),
		ResponseHeadersMiddleware(r.dev),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.handle("GET", "/", "GET /{$}",
		http.HandlerFunc(r.handleIndex),
		r.limited("index", httpx.ServiceLimit, httpx.IPKeyExtractor))

	r.handle("GET", "/service", "GET /service",
		http.HandlerFunc(r.handleServiceInfo),
		r.limited("service", httpx.ServiceLimit, httpx.IPKeyExtractor))

	r.handle("GET", "/service/version", "GET /service/version",
		http.HandlerFunc(r.handleServiceVersion),
		r.limited("version", httpx.ServiceLimit, httpx.IPKeyExtractor))

	r.handle("GET", "/service/health", "GET /service/health",
		http.HandlerFunc(r.handleServiceHealth),
		r.limited("health", httpx.ServiceLimit, httpx.IPKeyExtractor))

	r.handle("POST", "/auth", "POST /auth",
		&AuthHandler{Sessions: r.sessions},
		r.limited("auth", httpx.AuthLimit, httpx.HashedIPFieldKeyExtractor("username")))

	r.handle("POST", "/renew", "POST /renew",
		&RenewHandler{Sessions: r.sessions},
		r.limited("renew", httpx.RenewLimit, httpx.HashedIPFieldKeyExtractor("username")))

	r.handle("POST", "/verify", "POST /verify",
		&VerifyHandler{Sessions: r.sessions},
		r.limited("verify", httpx.VerifyLimit, httpx.IPKeyExtractor))

	// Everything else is an unknown endpoint.
	r.Mux.HandleFunc("/", r.handleNotFound)
}

// handle registers the handler under the mux pattern and records the
// route for the index listing.
func (r *Router) handle(method, endpoint, pattern string, h http.Handler, mws ...httpx.Middleware) {
	r.Mux.Handle(pattern, httpx.Chain(h, mws...))

	r.routes = append(r.routes, routeInfo{Endpoint: endpoint, Methods: []string{method}})
	sort.Slice(r.routes, func(i, j int) bool {
		return r.routes[i].Endpoint < r.routes[j].Endpoint
	})
}

// limited builds the rate-limit middleware for one endpoint, or a no-op
// when rate limiting is disabled.
func (r *Router) limited(scope string, cfg httpx.RateLimitConfig, extract httpx.KeyExtractor) httpx.Middleware {
	if r.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return httpx.RateLimitMiddleware(r.limiter, scope, cfg, extract)
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusNotFound, map[string]string{
		"error": "The requested endpoint does not exist",
	})
}
