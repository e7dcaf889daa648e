package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// requestIDFromContext returns the request id set by the request id middleware.
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestID takes the request id from the request or generates a new one and sets it on the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// headerCopy adds every value of the configured request header to the response headers before the wrapped handler
// writes. Requests without the header are passed through unchanged.
func headerCopy(cfg HeaderCopyConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.RequestHeaderName == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			values := r.Header.Values(cfg.RequestHeaderName)
			if len(values) == 0 {
				logger.Debug("request did not contain header to copy", zap.String("header", cfg.RequestHeaderName))
			}
			for _, value := range values {
				w.Header().Add(cfg.RequestHeaderName, value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestTimeout cancels the request context after timeout, which aborts pending Kafka requests.
func requestTimeout(timeout time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// accessLog logs every request once the response has been written.
func accessLog(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return handlers.CustomLoggingHandler(io.Discard, next, func(_ io.Writer, params handlers.LogFormatterParams) {
			logger.Info("handled request",
				zap.String("request_id", requestIDFromContext(params.Request.Context())),
				zap.String("method", params.Request.Method),
				zap.String("path", params.URL.Path),
				zap.Int("status_code", params.StatusCode),
				zap.Int("response_size", params.Size),
				zap.Duration("duration", time.Since(params.TimeStamp)))
		})
	}
}

type requestMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newRequestMetrics(metricsNamespace string, registerer prometheus.Registerer) *requestMetrics {
	factory := promauto.With(registerer)
	return &requestMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of handled HTTP requests by route and status code",
		}, []string{"route", "status_code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Time it took to handle HTTP requests by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware observes requests by their route template so that path parameters do not create new series.
func (m *requestMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unknown"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		m.requests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
