package rowstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/roach88/logbase/internal/querysql"
)

const (
	opExec     = "exec"
	opQueryRow = "query_row"
	opQuery    = "query"
)

// DefaultTimeout is the per-call budget when Options.Timeout is zero.
const DefaultTimeout = 3 * time.Second

// Options configures Instrument.
type Options struct {
	// Timeout bounds every call. Zero uses DefaultTimeout; negative disables.
	Timeout time.Duration

	// Metrics receives call counts and latencies. Nil creates an
	// unregistered set.
	Metrics *Metrics

	// Logger receives debug-level statement logs. Nil disables logging.
	Logger *zap.Logger

	// Tracer opens one span per call. Nil uses the global provider.
	Tracer trace.Tracer
}

// Instrumented is a Store wrapped with deadlines, error classification,
// metrics and tracing.
type Instrumented struct {
	next    Store
	timeout time.Duration
	metrics *Metrics
	logger  *zap.Logger
	tracer  trace.Tracer
}

var _ Store = (*Instrumented)(nil)

// Instrument wraps next.
func Instrument(next Store, opts Options) *Instrumented {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/roach88/logbase/internal/rowstore")
	}

	return &Instrumented{
		next:    next,
		timeout: timeout,
		metrics: metrics,
		logger:  logger,
		tracer:  tracer,
	}
}

// Metrics returns the metrics this wrapper records into.
func (s *Instrumented) Metrics() *Metrics {
	return s.metrics
}

func (s *Instrumented) Dialect() querysql.Dialect {
	return s.next.Dialect()
}

func (s *Instrumented) Exec(ctx context.Context, stmt string, params []any) error {
	return s.call(ctx, opExec, stmt, func(ctx context.Context) error {
		return s.next.Exec(ctx, stmt, params)
	})
}

func (s *Instrumented) QueryRow(ctx context.Context, stmt string, params []any) (Row, error) {
	var row Row
	err := s.call(ctx, opQueryRow, stmt, func(ctx context.Context) error {
		var err error
		row, err = s.next.QueryRow(ctx, stmt, params)
		return err
	})
	return row, err
}

func (s *Instrumented) Query(ctx context.Context, stmt string, params []any) ([]Row, error) {
	var rows []Row
	err := s.call(ctx, opQuery, stmt, func(ctx context.Context) error {
		var err error
		rows, err = s.next.Query(ctx, stmt, params)
		return err
	})
	return rows, err
}

func (s *Instrumented) Close() error {
	return s.next.Close()
}

func (s *Instrumented) call(ctx context.Context, op, stmt string, fn func(context.Context) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, "rowstore."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", s.next.Dialect().String()),
		attribute.String("db.statement", stmt),
	)

	start := time.Now()
	err := classify(ctx, fn(ctx))
	elapsed := time.Since(start)

	kind := errorKind(err)
	s.metrics.observe(op, kind, elapsed)

	if kind != "" {
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		s.logger.Debug("row store call failed",
			zap.String("op", op),
			zap.String("stmt", stmt),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	span.SetStatus(codes.Ok, "")
	s.logger.Debug("row store call",
		zap.String("op", op),
		zap.String("stmt", stmt),
		zap.Duration("elapsed", elapsed))
	return err
}

// classify maps an engine error onto the package sentinels.
func classify(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoRows), errors.Is(err, ErrTimeout), errors.Is(err, ErrUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

// errorKind labels err for metrics. ErrNoRows is not a failure.
func errorKind(err error) string {
	switch {
	case err == nil, errors.Is(err, ErrNoRows):
		return ""
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unavailable"
	}
}
