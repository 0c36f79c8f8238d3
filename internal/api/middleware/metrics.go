// metrics.go — Prometheus HTTP метрики: da_http_requests_total,
// da_http_request_duration_seconds. Доменные метрики регистрируются
// в пакетах хранилища и сервисов.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "da_http_requests_total",
			Help: "Общее количество HTTP-запросов к архиву",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "da_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к архиву в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// unmatchedPath — метка для запросов, не попавших ни в один маршрут.
const unmatchedPath = "unmatched"

// MetricsMiddleware собирает количество и длительность запросов.
// Метка path — шаблон маршрута chi (/api/v1/archives/{id}), а не
// фактический путь, чтобы id не раздували кардинальность.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			path := routePattern(r)
			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedPath
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return unmatchedPath
}
