package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutord",
			Subsystem: "engine",
			Name:      "generations_total",
			Help:      "Total generations served",
		},
		[]string{"backend", "task", "mode", "status"},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tutord",
			Subsystem: "engine",
			Name:      "generation_duration_seconds",
			Help:      "Wall-clock duration of generations in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"backend", "mode"},
	)

	fragmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutord",
			Subsystem: "engine",
			Name:      "stream_fragments_total",
			Help:      "Total fragments relayed to streaming callers",
		},
		[]string{"backend"},
	)
)

func init() {
	prometheus.MustRegister(generationsTotal, generationDuration, fragmentsTotal)
}

func observeGeneration(backend, task, mode, status string, dur time.Duration) {
	generationsTotal.WithLabelValues(backend, task, mode, status).Inc()
	generationDuration.WithLabelValues(backend, mode).Observe(dur.Seconds())
}
