// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "transcription_worker"

// Metrics holds all Prometheus metrics for the worker.
type Metrics struct {
	// Job metrics
	JobsTotal     prometheus.Counter
	JobsActive    prometheus.Gauge
	JobsSucceeded prometheus.Counter
	JobsFailed    *prometheus.CounterVec
	JobDuration   prometheus.Histogram
	PhaseDuration *prometheus.HistogramVec

	// Transcription metrics
	SegmentsTranscribed prometheus.Counter
	AudioDuration       prometheus.Histogram
	CorrectionsApplied  prometheus.Counter

	// Model metrics
	ModelLoads        *prometheus.CounterVec
	ModelLoadFailures prometheus.Counter

	// Object store metrics
	DownloadBytes prometheus.Counter
	UploadBytes   prometheus.Counter

	// Progress publish metrics
	PublishTotal   prometheus.Counter
	PublishErrors  prometheus.Counter
	PublishLatency prometheus.Histogram
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Job metrics
		JobsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Total number of jobs received",
		}),
		JobsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_active",
			Help:      "Number of jobs currently being processed",
		}),
		JobsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_succeeded_total",
			Help:      "Total number of successfully completed jobs",
		}),
		JobsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Total number of failed jobs",
		}, []string{"reason"}),
		JobDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "End-to-end job processing time in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}),
		PhaseDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Per-phase processing time in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 1800},
		}, []string{"phase"}),

		// Transcription metrics
		SegmentsTranscribed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_transcribed_total",
			Help:      "Total number of transcript segments produced",
		}),
		AudioDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audio_duration_seconds",
			Help:      "Duration of source audio in seconds",
			Buckets:   []float64{10, 30, 60, 300, 600, 1800, 3600, 7200},
		}),
		CorrectionsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corrections_applied_total",
			Help:      "Total number of lexical corrections applied",
		}),

		// Model metrics
		ModelLoads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_loads_total",
			Help:      "Total number of model loads",
		}, []string{"device"}),
		ModelLoadFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_load_failures_total",
			Help:      "Total number of failed model loads",
		}),

		// Object store metrics
		DownloadBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Total bytes downloaded from the object store",
		}),
		UploadBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Total bytes uploaded to the object store",
		}),

		// Progress publish metrics
		PublishTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progress_publish_total",
			Help:      "Total number of progress events published",
		}),
		PublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progress_publish_errors_total",
			Help:      "Total number of progress publish errors",
		}),
		PublishLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "progress_publish_latency_seconds",
			Help:      "Progress publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// RecordJobStart records a job entering the pipeline.
func (m *Metrics) RecordJobStart() {
	m.JobsTotal.Inc()
	m.JobsActive.Inc()
}

// RecordJobEnd records a job leaving the pipeline.
func (m *Metrics) RecordJobEnd(reason string, durationSeconds float64) {
	m.JobsActive.Dec()
	m.JobDuration.Observe(durationSeconds)
	if reason == "" {
		m.JobsSucceeded.Inc()
	} else {
		m.JobsFailed.WithLabelValues(reason).Inc()
	}
}

// RecordPhase records the time spent in one pipeline phase.
func (m *Metrics) RecordPhase(phase string, durationSeconds float64) {
	m.PhaseDuration.WithLabelValues(phase).Observe(durationSeconds)
}

// RecordTranscript records transcript output statistics.
func (m *Metrics) RecordTranscript(segments int, audioSeconds float64) {
	m.SegmentsTranscribed.Add(float64(segments))
	m.AudioDuration.Observe(audioSeconds)
}

// RecordCorrections records applied lexical corrections.
func (m *Metrics) RecordCorrections(count int) {
	m.CorrectionsApplied.Add(float64(count))
}

// RecordModelLoad records a model load attempt.
func (m *Metrics) RecordModelLoad(device string, err error) {
	if err != nil {
		m.ModelLoadFailures.Inc()
		return
	}
	m.ModelLoads.WithLabelValues(device).Inc()
}

// RecordDownload records bytes fetched from the object store.
func (m *Metrics) RecordDownload(bytes int) {
	m.DownloadBytes.Add(float64(bytes))
}

// RecordUpload records bytes written to the object store.
func (m *Metrics) RecordUpload(bytes int) {
	m.UploadBytes.Add(float64(bytes))
}

// RecordPublish records a progress publish attempt.
func (m *Metrics) RecordPublish(err error, latencySeconds float64) {
	m.PublishTotal.Inc()
	m.PublishLatency.Observe(latencySeconds)
	if err != nil {
		m.PublishErrors.Inc()
	}
}
