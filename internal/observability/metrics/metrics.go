// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "interview_assistant"

// Metrics holds all Prometheus metrics for the assistant.
type Metrics struct {
	// Capture metrics
	SessionsTotal    prometheus.Counter
	CaptureRunning   prometheus.Gauge
	SessionDuration  prometheus.Histogram
	FramesRead       prometheus.Counter
	FramesSilent     prometheus.Counter
	FrameReadErrors  prometheus.Counter
	AudioBytesRead   prometheus.Counter
	SilenceThreshold *prometheus.GaugeVec

	// Utterance metrics
	UtterancesEmitted   prometheus.Counter
	UtterancesDiscarded *prometheus.CounterVec
	UtteranceBytes      prometheus.Histogram
	UtteranceDuration   prometheus.Histogram

	// Dispatch metrics
	DispatchQueueDepth prometheus.Gauge
	UpdatesDropped     prometheus.Counter

	// Transcription metrics
	STTLatency       *prometheus.HistogramVec
	STTErrors        *prometheus.CounterVec
	TranscriptsEmpty prometheus.Counter
	Questions        prometheus.Counter

	// Answer metrics
	AnswerLatency *prometheus.HistogramVec
	AnswerErrors  *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// gRPC metrics
	GRPCRequests *prometheus.CounterVec
	GRPCLatency  *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
// It registers against the default registry, so call it once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of recording sessions started",
		}),
		CaptureRunning: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capture_running",
			Help:      "1 while the capture loop is running",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of recording sessions in seconds",
			Buckets:   []float64{1, 10, 30, 60, 300, 900, 1800, 3600},
		}),
		FramesRead: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_read_total",
			Help:      "Total audio frame groups read from the source",
		}),
		FramesSilent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_silent_total",
			Help:      "Total frame groups classified as silence",
		}),
		FrameReadErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_read_errors_total",
			Help:      "Total failed frame reads that were skipped",
		}),
		AudioBytesRead: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_read_total",
			Help:      "Total audio bytes read from the source",
		}),
		SilenceThreshold: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "silence_threshold_rms",
			Help:      "RMS silence threshold in effect",
		}, []string{"strategy"}),

		UtterancesEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_emitted_total",
			Help:      "Total utterances flushed by the segmenter",
		}),
		UtterancesDiscarded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_discarded_total",
			Help:      "Total partial utterances discarded",
		}, []string{"reason"}),
		UtteranceBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "utterance_bytes",
			Help:      "Size of flushed utterances in bytes",
			Buckets:   prometheus.ExponentialBuckets(4096, 2, 12),
		}),
		UtteranceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "utterance_duration_seconds",
			Help:      "Audio length of flushed utterances",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		DispatchQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatch_queue_depth",
			Help:      "Utterances waiting for transcription",
		}),
		UpdatesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_updates_dropped_total",
			Help:      "Session updates dropped because the presentation queue was full",
		}),

		STTLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stt_latency_seconds",
			Help:      "Speech-to-text request latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"provider"}),
		STTErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of STT errors",
		}, []string{"provider", "error_type"}),
		TranscriptsEmpty: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_empty_total",
			Help:      "Utterances that produced no text",
		}),
		Questions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions appended to the session",
		}),

		AnswerLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_latency_seconds",
			Help:      "Answer generation latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider"}),
		AnswerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answer_errors_total",
			Help:      "Total number of answer generation errors",
		}, []string{"provider"}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		GRPCRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Total gRPC calls by method and status code",
		}, []string{"method", "code"}),
		GRPCLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_latency_seconds",
			Help:      "gRPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// RecordSessionStart records a capture session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.CaptureRunning.Set(1)
}

// RecordSessionEnd records a capture session ending.
func (m *Metrics) RecordSessionEnd(durationSeconds float64) {
	m.CaptureRunning.Set(0)
	m.SessionDuration.Observe(durationSeconds)
}

// RecordFrame records one classified frame group.
func (m *Metrics) RecordFrame(bytes int, silent bool) {
	m.FramesRead.Inc()
	m.AudioBytesRead.Add(float64(bytes))
	if silent {
		m.FramesSilent.Inc()
	}
}

// RecordReadError records a skipped frame read.
func (m *Metrics) RecordReadError() {
	m.FrameReadErrors.Inc()
}

// RecordThreshold publishes the silence threshold in effect.
func (m *Metrics) RecordThreshold(strategy string, value float64) {
	m.SilenceThreshold.Reset()
	m.SilenceThreshold.WithLabelValues(strategy).Set(value)
}

// RecordUtterance records a flushed utterance.
func (m *Metrics) RecordUtterance(bytes int, durationSeconds float64) {
	m.UtterancesEmitted.Inc()
	m.UtteranceBytes.Observe(float64(bytes))
	m.UtteranceDuration.Observe(durationSeconds)
}

// RecordUtteranceDiscarded records a partial utterance that was dropped.
func (m *Metrics) RecordUtteranceDiscarded(reason string) {
	m.UtterancesDiscarded.WithLabelValues(reason).Inc()
}

// RecordSTT records a transcription call.
func (m *Metrics) RecordSTT(provider string, latencySeconds float64) {
	m.STTLatency.WithLabelValues(provider).Observe(latencySeconds)
}

// RecordSTTError records an STT error.
func (m *Metrics) RecordSTTError(provider, errorType string) {
	m.STTErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordAnswer records an answer generation call.
func (m *Metrics) RecordAnswer(provider string, err error, latencySeconds float64) {
	m.AnswerLatency.WithLabelValues(provider).Observe(latencySeconds)
	if err != nil {
		m.AnswerErrors.WithLabelValues(provider).Inc()
	}
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordGRPC records a completed gRPC call.
func (m *Metrics) RecordGRPC(method, code string, latencySeconds float64) {
	m.GRPCRequests.WithLabelValues(method, code).Inc()
	m.GRPCLatency.WithLabelValues(method).Observe(latencySeconds)
}
