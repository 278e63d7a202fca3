package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Synthesis metrics
	synthesisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "narrator_synthesis_requests_total",
		Help: "Total number of sentence synthesis requests",
	}, []string{"status"}) // status: "ok", "quota", "error"

	synthesisLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "narrator_synthesis_latency_seconds",
		Help:    "Latency of a single sentence synthesis request",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	// Generation metrics
	generationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "narrator_generations_total",
		Help: "Total number of full script generation attempts",
	}, []string{"status"})

	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "narrator_generation_duration_seconds",
		Help:    "Wall-clock duration of a full script generation",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	})

	// Audio metrics
	samplesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "narrator_audio_samples_total",
		Help: "Total PCM samples produced by synthesis",
	})

	encodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "narrator_encode_duration_seconds",
		Help:    "Duration of encoding the final sample buffer",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	}, []string{"format"})

	// Library metrics
	libraryItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "narrator_library_items",
		Help: "Number of items currently stored in the library",
	})
)

// RecordSynthesis records the outcome and latency of one sentence synthesis
func RecordSynthesis(status string, start time.Time) {
	synthesisRequests.WithLabelValues(status).Inc()
	synthesisLatency.Observe(time.Since(start).Seconds())
}

// RecordGeneration records the outcome of a full generation attempt
func RecordGeneration(status string, start time.Time) {
	generationsTotal.WithLabelValues(status).Inc()
	generationDuration.Observe(time.Since(start).Seconds())
}

// RecordSamples records PCM samples produced by synthesis
func RecordSamples(n int) {
	samplesGenerated.Add(float64(n))
}

// RecordEncode records the duration of an encode pass
func RecordEncode(format string, start time.Time) {
	encodeDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
}

// SetLibrarySize updates the library size gauge
func SetLibrarySize(n int) {
	libraryItems.Set(float64(n))
}
