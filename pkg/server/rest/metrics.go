package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	HttpRequests *prometheus.CounterVec
	HttpDuration *prometheus.HistogramVec
	GraphBuilds  *prometheus.CounterVec
	BuiltNodes   prometheus.Histogram
	BuiltEdges   prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HttpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadgraph",
			Name:      "http_requests_total",
			Help:      "number of http requests by route, method and status code",
		}, []string{"route", "method", "code"}),
		HttpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "roadgraph",
			Name:      "http_request_duration_seconds",
			Help:      "duration of http requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		GraphBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadgraph",
			Name:      "graph_builds_total",
			Help:      "number of graph builds by result",
		}, []string{"result"}),
		BuiltNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "roadgraph",
			Name:      "graph_build_nodes",
			Help:      "number of nodes of a built graph",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		BuiltEdges: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "roadgraph",
			Name:      "graph_build_edges",
			Help:      "number of edges of a built graph",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
	}
	reg.MustRegister(m.HttpRequests, m.HttpDuration, m.GraphBuilds, m.BuiltNodes, m.BuiltEdges)
	return m
}

// PromeHttpMiddleware records request count and latency per chi route pattern.
func PromeHttpMiddleware(m *Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			m.HttpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
			m.HttpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}
