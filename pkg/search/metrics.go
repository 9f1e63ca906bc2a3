package search

import "github.com/prometheus/client_golang/prometheus"

const (
	MetricSpectraQueried = "spectra_queried_total"
	MetricSpectraSkipped = "spectra_skipped_total"
	MetricFragmentHits   = "fragment_hits_total"
)

var CounterSpectraQueried = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "search",
		Name:      MetricSpectraQueried,
		Help:      "Spectra queried against the fragment index.",
	},
)

var CounterSpectraSkipped = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "search",
		Name:      MetricSpectraSkipped,
		Help:      "Spectra rejected by validation.",
	},
)

var CounterFragmentHits = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "search",
		Name:      MetricFragmentHits,
		Help:      "Peak to fragment matches returned by the index.",
	},
)

func init() {
	prometheus.MustRegister(CounterSpectraQueried)
	prometheus.MustRegister(CounterSpectraSkipped)
	prometheus.MustRegister(CounterFragmentHits)
}
