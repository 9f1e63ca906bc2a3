package index

import "github.com/prometheus/client_golang/prometheus"

const (
	MetricBuilds          = "builds_total"
	MetricBuildSeconds    = "build_duration_seconds"
	MetricFragments       = "fragments"
	MetricSkippedPeptides = "skipped_peptides_total"
	MetricQueries         = "queries_total"
)

var CounterBuilds = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "fragindex",
		Name:      MetricBuilds,
		Help:      "Number of completed index builds.",
	},
)

var HistogramBuildSeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "fragindex",
		Name:      MetricBuildSeconds,
		Help:      "Wall time of index builds.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	},
)

var GaugeFragments = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "fragindex",
		Name:      MetricFragments,
		Help:      "Fragments held by the most recently built index.",
	},
)

var CounterSkippedPeptides = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "fragindex",
		Name:      MetricSkippedPeptides,
		Help:      "Candidate peptides dropped for unsupported residues.",
	},
)

var CounterQueries = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "fragindex",
		Name:      MetricQueries,
		Help:      "Fragment queries answered.",
	},
)

func init() {
	prometheus.MustRegister(CounterBuilds)
	prometheus.MustRegister(HistogramBuildSeconds)
	prometheus.MustRegister(GaugeFragments)
	prometheus.MustRegister(CounterSkippedPeptides)
	prometheus.MustRegister(CounterQueries)
}
