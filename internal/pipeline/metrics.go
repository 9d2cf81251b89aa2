package pipeline

import "github.com/prometheus/client_golang/prometheus"

var (
	rendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scadd",
			Subsystem: "pipeline",
			Name:      "renders_total",
			Help:      "Total render requests by quality tier and outcome",
		},
		[]string{"quality", "outcome"},
	)

	renderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scadd",
			Subsystem: "pipeline",
			Name:      "render_duration_seconds",
			Help:      "Engine render duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"quality"},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scadd",
			Subsystem: "pipeline",
			Name:      "cache_lookups_total",
			Help:      "Render cache lookups by result",
		},
		[]string{"result"},
	)

	corruptionRestartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scadd",
			Subsystem: "pipeline",
			Name:      "corruption_restarts_total",
			Help:      "Engine restarts triggered by the corruption heuristic",
		},
	)
)

func init() {
	prometheus.MustRegister(rendersTotal, renderDuration, cacheLookupsTotal, corruptionRestartsTotal)
}
