// Package metrics exposes Prometheus instrumentation for the archiver.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	// Captures counts capture attempts by category character and outcome
	// (saved, empty_content, local_failure).
	Captures *prometheus.CounterVec
	// MirrorFailures counts best-effort remote writes that failed.
	MirrorFailures prometheus.Counter
	// TagsExtracted counts tag records parsed out of captured pages.
	TagsExtracted prometheus.Counter
	// FetchFailures counts page fetches that returned no content.
	FetchFailures prometheus.Counter
)

// Init registers all collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		Captures = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pagevault",
			Name:      "captures_total",
			Help:      "Capture attempts by category and outcome.",
		}, []string{"category", "outcome"})
		MirrorFailures = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "pagevault",
			Name:      "mirror_failures_total",
			Help:      "Remote mirror writes that failed.",
		})
		TagsExtracted = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "pagevault",
			Name:      "tags_extracted_total",
			Help:      "Tag records extracted from captured pages.",
		})
		FetchFailures = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "pagevault",
			Name:      "fetch_failures_total",
			Help:      "Page fetches that produced no usable content.",
		})
	})
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
