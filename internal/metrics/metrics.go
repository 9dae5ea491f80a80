// Package metrics exposes operation counters and latencies for the served
// boundary calls in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/myuser/kvgate/internal/status"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kvgate"

// Registry holds every kvgate collector plus the Go runtime collectors.
var Registry = prometheus.NewRegistry()

var (
	operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Boundary operations by name and resulting status.",
	}, []string{"op", "status"})

	duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Latency of boundary operations.",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{"op"})

	visited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_visited_total",
		Help:      "Records returned or counted by range operations.",
	}, []string{"op"})
)

func init() {
	Registry.MustRegister(
		operations,
		duration,
		visited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Observe records one finished operation that started at start.
func Observe(op string, st status.Status, start time.Time) {
	operations.WithLabelValues(op, st.String()).Inc()
	duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Visited adds n records to the range counter of op.
func Visited(op string, n uint64) {
	visited.WithLabelValues(op).Add(float64(n))
}

// Handler serves the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
