package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ExtractionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "earnrev",
			Subsystem: "extraction",
			Name:      "latency_seconds",
			Help:      "Latency of transcript feature extraction including retries",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"outcome"},
	)

	ExtractionAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "earnrev",
			Subsystem: "extraction",
			Name:      "attempts_total",
			Help:      "Model calls by result",
		},
		[]string{"result"},
	)

	TranscriptsTruncated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "earnrev",
			Subsystem: "extraction",
			Name:      "transcripts_truncated_total",
			Help:      "Transcripts cut to fit the prompt budget",
		},
	)
)

// Register adds the extraction collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(ExtractionLatency, ExtractionAttempts, TranscriptsTruncated)
	})
}
