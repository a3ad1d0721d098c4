package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Audio pipeline metrics
	utterancesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "supersurf_utterances_total",
		Help: "Total number of utterances captured",
	})

	utteranceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "supersurf_utterance_duration_seconds",
		Help:    "Duration of captured utterances in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20},
	})

	audioChunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supersurf_audio_chunks_total",
		Help: "Total audio chunks processed by the capture loop",
	}, []string{"kind"}) // kind: "speech", "silence", "discarded"

	streamReopensTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "supersurf_stream_reopens_total",
		Help: "Total number of audio stream reopens after read errors",
	})

	// Transcription metrics
	sttRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supersurf_stt_requests_total",
		Help: "Total number of STT requests",
	}, []string{"backend", "status"})

	sttLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "supersurf_stt_latency_seconds",
		Help:    "STT processing latency in seconds",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Command metrics
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supersurf_commands_total",
		Help: "Total number of dispatched commands",
	}, []string{"verb", "status"})

	ignoredTranscriptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "supersurf_ignored_transcripts_total",
		Help: "Transcripts discarded because no activation word was found",
	})

	// Monitoring metrics
	monitorSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "supersurf_monitor_sessions_active",
		Help: "Number of active IDE state monitoring sessions",
	})

	monitorPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supersurf_monitor_polls_total",
		Help: "Total IDE state classification polls",
	}, []string{"state"})

	monitorLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "supersurf_monitor_classify_latency_seconds",
		Help:    "Vision classifier latency in seconds",
		Buckets: []float64{0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Recovery metrics
	watchdogRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supersurf_watchdog_restarts_total",
		Help: "Total worker restarts performed by the watchdog",
	}, []string{"worker"})

	forcedResumes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supersurf_forced_resumes_total",
		Help: "Total forced pipeline resumes (stuck pause, error threshold)",
	}, []string{"reason"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supersurf_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})
)

// RecordUtterance records a finished utterance and its duration
func RecordUtterance(duration time.Duration) {
	utterancesTotal.Inc()
	utteranceDuration.Observe(duration.Seconds())
}

// RecordAudioChunk records a processed capture chunk by kind
func RecordAudioChunk(kind string) {
	audioChunksTotal.WithLabelValues(kind).Inc()
}

// RecordStreamReopen records an audio stream reopen
func RecordStreamReopen() {
	streamReopensTotal.Inc()
}

// RecordSTT records the outcome and latency of one transcription request
func RecordSTT(backend string, err error, elapsed time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	sttRequests.WithLabelValues(backend, status).Inc()
	sttLatency.Observe(elapsed.Seconds())
}

// RecordCommand records a dispatched command outcome
func RecordCommand(verb string, ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	commandsTotal.WithLabelValues(verb, status).Inc()
}

// RecordIgnoredTranscript records a transcript with no activation word
func RecordIgnoredTranscript() {
	ignoredTranscriptsTotal.Inc()
}

// MonitorSessionStarted marks the start of a monitoring session
func MonitorSessionStarted() {
	monitorSessionsActive.Inc()
}

// MonitorSessionEnded marks the end of a monitoring session
func MonitorSessionEnded() {
	monitorSessionsActive.Dec()
}

// RecordMonitorPoll records one classification poll and its observed state
func RecordMonitorPoll(state string, elapsed time.Duration) {
	monitorPolls.WithLabelValues(state).Inc()
	monitorLatency.Observe(elapsed.Seconds())
}

// RecordWatchdogRestart records a worker restart
func RecordWatchdogRestart(worker string) {
	watchdogRestarts.WithLabelValues(worker).Inc()
}

// RecordForcedResume records a forced pipeline resume
func RecordForcedResume(reason string) {
	forcedResumes.WithLabelValues(reason).Inc()
}

// RecordError records an error by type and component
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}
