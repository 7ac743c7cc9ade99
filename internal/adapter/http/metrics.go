package httpadapter

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects request and bid instrumentation on a private registry
// so tests can create handlers without collector name collisions.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	active   prometheus.Gauge

	bids       *prometheus.CounterVec
	bidLatency prometheus.Histogram
}

// NewMetrics registers all collectors and returns the set.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests.",
		}, []string{"method", "endpoint", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "endpoint"}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_active",
			Help: "Number of HTTP requests currently being served.",
		}),
		bids: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bids_total",
			Help: "Total bid attempts by outcome.",
		}, []string{"status"}),
		bidLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bid_latency_seconds",
			Help:    "Bid submission latency in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records the request count, latency and in-flight gauge for
// every routed request. The endpoint label uses the chi route pattern so
// path parameters do not blow up cardinality. Bid submissions additionally
// feed the bid counter and latency histogram.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.active.Inc()
		start := time.Now()

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		m.active.Dec()
		elapsed := time.Since(start).Seconds()

		endpoint := chi.RouteContext(r.Context()).RoutePattern()
		if endpoint == "" {
			endpoint = "/other"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requests.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(r.Method, endpoint).Observe(elapsed)

		if r.Method == http.MethodPost && endpoint == "/api/v1/campaigns/{campaignID}/bids" {
			m.bidLatency.Observe(elapsed)
			switch {
			case status < 300:
				m.bids.WithLabelValues("success").Inc()
			case status >= 500:
				m.bids.WithLabelValues("error").Inc()
			default:
				m.bids.WithLabelValues("failed").Inc()
			}
		}
	})
}
