package telemetry

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"gateway/internal/filter"
	"gateway/internal/rpc"
)

// Middleware wraps handlers with telemetry
type Middleware struct {
	telemetry *Telemetry
	metrics   *Metrics
}

// NewMiddleware creates a new telemetry middleware
func NewMiddleware(telemetry *Telemetry, metrics *Metrics) *Middleware {
	return &Middleware{
		telemetry: telemetry,
		metrics:   metrics,
	}
}

// WrapHTTP wraps an HTTP handler with telemetry, used around the
// server's listener-level http.Handler before protocol decoding.
func (m *Middleware) WrapHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := m.telemetry.StartHTTPServerSpan(r)
		defer span.End()

		r = r.WithContext(ctx)

		m.metrics.RecordHTTPActiveRequest(ctx, 1)
		defer m.metrics.RecordHTTPActiveRequest(ctx, -1)

		if r.ContentLength > 0 {
			m.metrics.RecordHTTPRequestSize(ctx, r.ContentLength)
		}

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		start := time.Now()
		next.ServeHTTP(rw, r)
		duration := time.Since(start)

		m.metrics.RecordHTTPRequest(ctx, r.Method, r.URL.Path, rw.statusCode, duration)
		if rw.written > 0 {
			m.metrics.RecordHTTPResponseSize(ctx, rw.written)
		}

		EndHTTPServerSpan(span, rw.statusCode)
	})
}

// Filter returns an invocation filter that starts a span and records an
// invocation-level metric around every call in the chain.
func (m *Middleware) Filter() filter.Filter {
	return func(next filter.Handler) filter.Handler {
		return func(ctx context.Context, inv *rpc.Invocation) error {
			ctx, span := m.telemetry.StartSpan(ctx, inv.Method,
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(
					attribute.String("rpc.service", inv.Service.String()),
					attribute.String("rpc.method", inv.Method),
					attribute.String("rpc.protocol", string(inv.Protocol)),
				),
			)
			defer span.End()

			start := time.Now()
			err := next(ctx, inv)
			duration := time.Since(start)

			status := 0
			if err != nil {
				status = 1
			}
			m.metrics.RecordBackendRequest(ctx, inv.Service.String(), inv.Method, status, duration)
			span.SetAttributes(attribute.Float64("handler.duration_ms", float64(duration.Milliseconds())))

			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}

			span.SetStatus(codes.Ok, "")
			return nil
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status and size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// ExtractTraceID extracts trace ID from context
func ExtractTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span != nil && span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// ExtractSpanID extracts span ID from context
func ExtractSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span != nil && span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}

// InjectHTTPHeaders injects trace context into HTTP headers
func (m *Middleware) InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	m.telemetry.propagator.Inject(ctx, propagation.HeaderCarrier(headers))
}

// ExtractHTTPHeaders extracts trace context from HTTP headers
func (m *Middleware) ExtractHTTPHeaders(ctx context.Context, headers http.Header) context.Context {
	return m.telemetry.propagator.Extract(ctx, propagation.HeaderCarrier(headers))
}
