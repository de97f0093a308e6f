// Package app assembles the service from its parts and owns the process
// lifecycle: configuration, wiring, startup and graceful shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bincyber/beesly/internal/beesly/backend"
	httpapi "github.com/bincyber/beesly/internal/beesly/http"
	"github.com/bincyber/beesly/internal/beesly/service"
	"github.com/bincyber/beesly/internal/beesly/store"
	"github.com/bincyber/beesly/internal/beesly/store/drivers/sqlite"
	"github.com/bincyber/beesly/internal/beesly/sysinfo"
	"github.com/bincyber/beesly/pkg/httpx"
	"github.com/bincyber/beesly/pkg/metrix"
	"github.com/bincyber/beesly/pkg/slogx"
)

const (
	// AppName doubles as the token issuer and the metrics prefix.
	AppName = "beesly"

	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v1.0.0"
)

// Application encapsulates the service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	metrics metrix.Emitter

	// db is only set when the rate-limit counters live in SQLite.
	db           store.Store
	limiter      httpx.RateLimitStore
	housekeeping *service.HousekeepingService

	sessions *service.SessionService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			App:     AppName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.cfg.Validate(app.logger); err != nil {
		return nil, err
	}

	app.initMetrics()

	if err := app.initRateLimiter(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	if app.housekeeping != nil {
		app.housekeeping.Start()
	}

	app.logger.Info("beesly starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"jwt_enabled", app.cfg.TokensEnabled(),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down beesly...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.housekeeping != nil {
		app.housekeeping.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing rate limit store", "error", err)
			return err
		}
	}

	if err := app.metrics.Close(); err != nil {
		app.logger.Error("error closing statsd client", "error", err)
	}

	app.logger.Info("beesly stopped")
	return nil
}

// initMetrics dials the statsd collector. Metrics are best-effort: a
// collector that cannot be dialed downgrades to a noop emitter rather
// than failing startup.
func (app *Application) initMetrics() {
	emitter, err := metrix.New(app.cfg.StatsdHost, app.cfg.StatsdPort, AppName)
	if err != nil {
		app.logger.Error("failed to configure statsd client, metrics disabled", "error", err)
		app.metrics = metrix.NewNoop()
		return
	}

	app.metrics = emitter
	app.logger.Info("statsd client configured",
		"host", app.cfg.StatsdHost, "port", app.cfg.StatsdPort)
}

// initRateLimiter selects the counter store from the configured strategy
// and storage URL. With sqlite storage the counters are shared by every
// instance pointed at the same database file.
func (app *Application) initRateLimiter() error {
	if !app.cfg.RateLimitEnabled {
		app.logger.Info("rate limiting disabled")
		return nil
	}

	scheme, location := app.cfg.StorageScheme()
	switch scheme {
	case StorageSchemeMemory:
		if app.cfg.RateLimitStrategy == StrategyMovingWindow {
			app.limiter = httpx.NewTokenBucketStore()
		} else {
			app.limiter = httpx.NewFixedWindowStore()
		}

	case StorageSchemeSQLite:
		db, err := sqlite.NewStore(location)
		if err != nil {
			return fmt.Errorf("failed to initialize rate limit store: %w", err)
		}
		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply rate limit store migrations: %w", err)
		}

		app.db = db
		app.limiter = store.NewFixedWindowLimiter(db.RateCounters())
		app.housekeeping = service.NewHousekeepingService(
			db, app.logger, app.cfg.HousekeepingInterval, time.Hour,
		)
	}

	app.logger.Info("rate limiting enabled",
		"strategy", app.cfg.RateLimitStrategy,
		"storage", app.cfg.RateLimitStorageURL,
	)
	return nil
}

func (app *Application) initServices() {
	pamBackend := backend.NewPAMBackend(app.cfg.PAMService)
	pamBackend.Timeout = app.cfg.AuthTimeout

	app.sessions = &service.SessionService{
		Backend:   pamBackend,
		Groups:    &backend.IDGroupResolver{Path: app.cfg.IDPath},
		Metrics:   app.metrics,
		Issuer:    AppName,
		Algorithm: app.cfg.Algorithm(),
		MasterKey: []byte(app.cfg.JWTMasterKey),
		Validity:  app.cfg.JWTValidityPeriod,
	}
}

func (app *Application) initHTTP() {
	collector := &sysinfo.Collector{
		AppName:    AppName,
		AppVersion: BuildVersion,
	}

	router := httpapi.NewRouter(
		app.sessions,
		collector,
		app.limiter,
		AppName,
		BuildVersion,
		app.cfg.Dev,
		app.logger,
	)
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
