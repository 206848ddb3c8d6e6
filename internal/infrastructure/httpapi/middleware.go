package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopcore/cartservice/internal/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Metrics holds the HTTP-level instruments the middleware records into.
type Metrics struct {
	Requests  *prometheus.CounterVec   // method, path, status
	Durations *prometheus.HistogramVec // method, path
}

// Observability wraps a handler with W3C trace-context extraction, an
// X-Request-ID, a request-scoped logger, and RED metrics.
func Observability(base *zap.Logger, m Metrics) func(http.Handler) http.Handler {
	prop := otel.GetTextMapPropagator()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			fields := []zap.Field{zap.String("request_id", requestID)}
			if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
				fields = append(fields,
					zap.String("trace_id", sc.TraceID().String()),
					zap.String("span_id", sc.SpanID().String()),
				)
			}
			reqLogger := base.With(fields...)
			ctx = logging.ContextWithLogger(ctx, reqLogger)

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := strconv.Itoa(rec.status)
			if m.Requests != nil {
				m.Requests.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			}
			if m.Durations != nil {
				m.Durations.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
			}

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
