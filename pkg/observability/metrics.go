package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Access metrics
	RateLimitRejections prometheus.Counter
	EditConflicts       prometheus.Counter
	TokensIssued        *prometheus.CounterVec
	UsersRegistered     prometheus.Counter
	ExpiredTokensPurged prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "animerged_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "animerged_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "animerged_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "route"},
		),

		RateLimitRejections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "animerged_rate_limit_rejections_total",
				Help: "Requests rejected by the per-IP rate limiter",
			},
		),
		EditConflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "animerged_edit_conflicts_total",
				Help: "Updates rejected because the record version changed",
			},
		),
		TokensIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "animerged_tokens_issued_total",
				Help: "Tokens issued by scope",
			},
			[]string{"scope"},
		),
		UsersRegistered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "animerged_users_registered_total",
				Help: "Accounts created",
			},
		),
		ExpiredTokensPurged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "animerged_expired_tokens_purged_total",
				Help: "Expired tokens removed by the janitor",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.RateLimitRejections,
		m.EditConflicts,
		m.TokensIssued,
		m.UsersRegistered,
		m.ExpiredTokensPurged,
	)

	return m
}

// RegisterDBStats exports the connection pool statistics of db
func RegisterDBStats(registry *prometheus.Registry, db *sql.DB) {
	registry.MustRegister(collectors.NewDBStatsCollector(db, "animerged"))
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// routeLabel returns the matched route template so ids do not explode label
// cardinality. Outside the router the route is resolved against router.
func routeLabel(r *http.Request, router *mux.Router) string {
	route := mux.CurrentRoute(r)
	if route == nil && router != nil {
		var match mux.RouteMatch
		if router.Match(r, &match) {
			route = match.Route
		}
	}
	if route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// router may be nil when the middleware is installed with router.Use.
func HTTPMetricsMiddleware(metrics *Metrics, router *mux.Router) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			route := routeLabel(r, router)
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, route).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(serveMux *http.ServeMux, registry *prometheus.Registry) {
	serveMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
