package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// HeaderRequestID carries a caller-supplied request id.
	HeaderRequestID = "X-Request-Id"

	// HeaderUser carries the authenticated owner id set by the gateway.
	HeaderUser = "X-Auth-User"
)

type ctxKey struct{}

// RequestContext is the per-request identity and diagnostic tag set.
type RequestContext struct {
	ID   string
	User string

	mu   sync.Mutex
	tags []zap.Field
}

// Tag attaches a key/value pair that is logged when the request completes.
func (rc *RequestContext) Tag(key string, value any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.tags = append(rc.tags, zap.Any(key, value))
}

func (rc *RequestContext) fields() []zap.Field {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]zap.Field(nil), rc.tags...)
}

// FromContext returns the request context installed by the middleware, or
// a detached empty one.
func FromContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(ctxKey{}).(*RequestContext); ok {
		return rc
	}
	return &RequestContext{}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// requestContext installs a RequestContext and logs the request on completion.
func (app *Application) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rc := &RequestContext{
			ID:   r.Header.Get(HeaderRequestID),
			User: r.Header.Get(HeaderUser),
		}
		if rc.ID == "" {
			rc.ID = newRequestID()
		}
		w.Header().Set(HeaderRequestID, rc.ID)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), ctxKey{}, rc)))

		fields := []zap.Field{
			zap.String("request_id", rc.ID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.statusCode),
			zap.Int("bytes", rw.bytes),
			zap.Duration("latency", time.Since(start)),
		}
		if rc.User != "" {
			fields = append(fields, zap.String("user", rc.User))
		}
		fields = append(fields, rc.fields()...)

		switch {
		case rw.statusCode >= http.StatusInternalServerError:
			app.logger.Error("request failed", fields...)
		case rw.statusCode >= http.StatusBadRequest:
			app.logger.Warn("request rejected", fields...)
		default:
			app.logger.Info("request completed", fields...)
		}
	})
}
