package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/roach88/logbase/internal/cache"
	"github.com/roach88/logbase/internal/config"
	"github.com/roach88/logbase/internal/logging"
	"github.com/roach88/logbase/internal/logstore"
	"github.com/roach88/logbase/internal/rowstore"
	"github.com/roach88/logbase/internal/rowstore/cql"
	"github.com/roach88/logbase/internal/rowstore/sqlite"
	"github.com/roach88/logbase/internal/tracing"
)

// environment is the wired service graph shared by serve and the entry
// commands.
type environment struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *rowstore.Metrics
	store    *logstore.Store

	closers []func() error
}

// openEnvironment loads configuration and opens the row store, the optional
// frozen cache and the tracer provider.
func openEnvironment(ctx context.Context, opts *RootOptions) (*environment, error) {
	cfg, err := config.Load(config.ResolvePath(opts.Config))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logCfg := logging.Config{
		Level:      cfg.Log.Level,
		Encoding:   cfg.Log.Encoding,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}
	if opts.Verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create logger", err)
	}

	env := &environment{cfg: cfg, logger: logger}
	env.onClose(func() error {
		_ = logger.Sync()
		return nil
	})

	shutdown, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Env,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		env.Close()
		return nil, WrapExitError(ExitFailure, "failed to initialize tracing", err)
	}
	env.onClose(func() error { return shutdown(context.Background()) })

	rows, err := openRows(ctx, cfg)
	if err != nil {
		env.Close()
		return nil, WrapExitError(ExitFailure, "failed to open storage", err)
	}

	env.registry = prometheus.NewRegistry()
	env.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	env.metrics = rowstore.NewMetrics(env.registry)

	instrumented := rowstore.Instrument(rows, rowstore.Options{
		Timeout: cfg.Store.QueryTimeout,
		Metrics: env.metrics,
		Logger:  logger,
		Tracer:  tracing.Tracer("github.com/roach88/logbase/internal/rowstore"),
	})
	env.onClose(instrumented.Close)

	storeOpts := logstore.Options{
		QueryTimeout: cfg.Store.QueryTimeout,
		RecentWindow: cfg.Store.RecentWindow,
		RecentLimit:  cfg.Store.RecentLimit,
		Logger:       logger,
		Tracer:       tracing.Tracer("github.com/roach88/logbase/internal/logstore"),
	}

	if cfg.Redis.Enabled {
		frozen, err := cache.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cache.Options{
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL,
		})
		if err != nil {
			env.Close()
			return nil, WrapExitError(ExitFailure, "failed to connect to redis", err)
		}
		env.onClose(frozen.Close)
		storeOpts.Cache = frozen
	}

	env.store = logstore.New(instrumented, storeOpts)

	logger.Debug("environment ready",
		zap.String("env", cfg.Env),
		zap.String("engine", cfg.Store.Engine),
		zap.Bool("cache", cfg.Redis.Enabled),
		zap.Bool("tracing", cfg.Tracing.Enabled))

	return env, nil
}

func openRows(ctx context.Context, cfg *config.Config) (rowstore.Store, error) {
	switch cfg.Store.Engine {
	case "sqlite":
		return sqlite.Open(cfg.SQLite.Path)
	case "cql":
		return cql.Open(ctx, cql.Config{
			Hosts:          cfg.CQL.Hosts,
			Keyspace:       cfg.CQL.Keyspace,
			Consistency:    cfg.CQL.Consistency,
			Username:       cfg.CQL.Username,
			Password:       cfg.CQL.Password,
			Timeout:        cfg.CQL.Timeout,
			ConnectTimeout: cfg.CQL.ConnectTimeout,
			Bootstrap:      cfg.CQL.Bootstrap,
		})
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Store.Engine)
	}
}

func (env *environment) onClose(fn func() error) {
	env.closers = append(env.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (env *environment) Close() error {
	var errs []error
	for i := len(env.closers) - 1; i >= 0; i-- {
		if err := env.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	env.closers = nil
	return errors.Join(errs...)
}
