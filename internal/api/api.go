// Package api serves the log store over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/roach88/logbase/internal/logstore"
	"github.com/roach88/logbase/internal/rowstore"
)

const serviceName = "logbase"

type Options struct {
	Store   *logstore.Store
	Metrics *rowstore.Metrics

	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer

	Logger  *zap.Logger
	Version string
}

type Application struct {
	store    *logstore.Store
	metrics  *rowstore.Metrics
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	version  string
	validate *validator.Validate
	started  time.Time
}

func NewApplication(opts Options) *Application {
	app := &Application{
		store:    opts.Store,
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
		logger:   opts.Logger,
		version:  opts.Version,
		validate: newValidator(),
		started:  time.Now(),
	}
	if app.gatherer == nil {
		app.gatherer = prometheus.DefaultGatherer
	}
	if app.logger == nil {
		app.logger = zap.NewNop()
	}
	if app.version == "" {
		app.version = "dev"
	}
	return app
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(app.requestContext)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5, "application/json"))

	r.Get("/", app.index)
	r.Get("/healthz", app.healthz)
	r.Handle("/metrics", promhttp.HandlerFor(app.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1/log", func(r chi.Router) {
		r.Post("/", app.createEntry)
		r.Get("/", app.getEntry)
		r.Patch("/", app.updateEntry)
		r.Get("/list", app.listEntries)
		r.Post("/list_recently", app.listRecent)
	})

	return otelhttp.NewHandler(r, serviceName)
}

// Run serves srv until ctx is cancelled, then shuts down within
// shutdownTimeout.
func (app *Application) Run(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	shutdown := make(chan error, 1)

	go func() {
		<-ctx.Done()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		app.logger.Info("shutting down server", zap.String("addr", srv.Addr))
		shutdown <- srv.Shutdown(sctx)
	}()

	app.logger.Info("server has started", zap.String("addr", srv.Addr), zap.String("version", app.version))

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdown; err != nil {
		return err
	}

	app.logger.Info("server has stopped", zap.String("addr", srv.Addr))
	return nil
}
