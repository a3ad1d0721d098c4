package pipeline

import (
	"github.com/rs/zerolog"

	"github.com/supersurf/supersurf/internal/observability"
)

// Status is a coarse pipeline state published to UI surfaces.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusCalibrating  Status = "calibrating"
	StatusIdle         Status = "idle"
	StatusRecording    Status = "recording"
	StatusTranscribing Status = "transcribing"
	StatusExecuting    Status = "executing"
	StatusMonitoring   Status = "monitoring"
	StatusStopped      Status = "stopped"
)

// StatusSink receives status transitions. Implementations must be safe for
// concurrent use; the capture loop, transcription worker, and dispatcher all
// publish.
type StatusSink interface {
	UpdateStatus(status Status, detail string)
}

// MultiSink fans a status update out to several sinks.
type MultiSink []StatusSink

func (m MultiSink) UpdateStatus(status Status, detail string) {
	for _, s := range m {
		s.UpdateStatus(status, detail)
	}
}

// LogSink writes status transitions to the structured log.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink() *LogSink {
	return &LogSink{log: observability.WithComponent("status")}
}

func (s *LogSink) UpdateStatus(status Status, detail string) {
	s.log.Debug().Str("status", string(status)).Str("detail", detail).Msg("status update")
}
