// Package pipeline wires the voice loop together: capture feeds the
// transcription queue, transcripts are parsed into commands and dispatched,
// and the gate keeps the microphone quiet while a command is in flight.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/supersurf/supersurf/internal/audio"
	"github.com/supersurf/supersurf/internal/command"
	"github.com/supersurf/supersurf/internal/config"
	"github.com/supersurf/supersurf/internal/observability"
	"github.com/supersurf/supersurf/internal/stt"
)

// Executor runs one command string. The done callback belongs to whatever
// monitoring session the command starts, if any.
type Executor interface {
	Execute(ctx context.Context, text string, done func()) command.Result
}

// Deps are the pipeline's externally constructed collaborators.
type Deps struct {
	Source   audio.SourceFactory
	Primary  stt.Backend // cloud, may be nil
	Fallback stt.Backend // local, may be nil
	Executor Executor
	Status   StatusSink
}

// Pipeline owns the capture loop, the transcription worker, the gate, and
// the watchdog supervising them.
type Pipeline struct {
	cfg      *config.Config
	gate     *Gate
	capture  *audio.Capture
	worker   *stt.Worker
	exec     Executor
	status   StatusSink
	watchdog *Watchdog
	log      zerolog.Logger

	stopOnce sync.Once
	cancel   context.CancelFunc
}

// New assembles a pipeline from configuration and collaborators.
func New(cfg *config.Config, deps Deps) *Pipeline {
	gate := NewGate(time.Duration(cfg.StuckPauseTimeout) * time.Second)
	queue := make(chan string, 8)

	statusFn := func(status, detail string) {
		deps.Status.UpdateStatus(Status(status), detail)
	}

	capture := audio.NewCapture(audio.CaptureConfig{
		SampleRate:          cfg.SampleRate,
		ChunkSize:           cfg.ChunkSize,
		SilenceChunks:       cfg.SilenceChunks(),
		CalibrationDuration: time.Duration(cfg.CalibrationSecs * float64(time.Second)),
		EnergyFloor:         cfg.EnergyFloor,
		RecordingsDir:       cfg.RecordingsDir,
		MaxRecordings:       cfg.MaxRecordings,
		MinUtteranceBytes:   cfg.MinUtteranceBytes,
		MaxUtteranceBytes:   cfg.MaxUtteranceBytes,
		StreamErrorLimit:    cfg.StreamErrorLimit,
	}, deps.Source, gate, queue, statusFn)

	p := &Pipeline{
		cfg:    cfg,
		gate:   gate,
		exec:   deps.Executor,
		status: deps.Status,
		log:    observability.WithComponent("pipeline"),
	}

	p.capture = capture
	p.worker = stt.NewWorker(stt.WorkerConfig{
		ErrorLimit:  cfg.TranscribeErrLimit,
		ErrorWindow: time.Minute,
	}, queue, deps.Primary, deps.Fallback, gate, p.handleTranscript, statusFn)

	p.watchdog = NewWatchdog(time.Duration(cfg.WatchdogInterval)*time.Second, gate, deps.Status)
	p.watchdog.Add("capture", func(ctx context.Context) {
		if err := capture.Run(ctx); err != nil {
			p.log.Error().Err(err).Msg("capture loop failed")
		}
	})
	p.watchdog.Add("transcription", func(ctx context.Context) {
		p.worker.Run(ctx)
	})

	return p
}

// Gate exposes the pause/resume gate, mainly for the HTTP readiness check.
func (p *Pipeline) Gate() *Gate {
	return p.gate
}

// Run blocks until Stop is called or the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	defer cancel()

	p.log.Info().Str("activation_word", p.cfg.ActivationWord).Msg("pipeline starting")
	p.watchdog.Run(ctx)
	p.status.UpdateStatus(StatusStopped, "")
	p.log.Info().Msg("pipeline stopped")
}

// Stop shuts the pipeline down. Safe to call more than once.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
	})
}

// handleTranscript turns one normalized transcript into dispatched commands.
// Transcripts without the activation word are conversation and are dropped;
// either way the pipeline is resumed unless a monitoring session took over
// the completion callback.
func (p *Pipeline) handleTranscript(ctx context.Context, text string) {
	commands := command.ParseCommands(text, p.cfg.ActivationWord)
	if len(commands) == 0 {
		p.log.Debug().Str("transcript", text).Msg("no activation word, ignoring")
		observability.RecordIgnoredTranscript()
		// The UI still gets to show what was heard and dropped.
		p.status.UpdateStatus(StatusIdle, "ignored: "+text)
		p.gate.Resume()
		return
	}

	var monitoring, stopping bool
	for _, c := range commands {
		p.status.UpdateStatus(StatusExecuting, c)
		res := p.exec.Execute(ctx, c, p.completionCallback())
		monitoring = monitoring || res.Monitoring
		stopping = stopping || res.Stop
	}

	if stopping {
		p.log.Info().Msg("stop command received")
		p.Stop()
		return
	}

	if monitoring {
		p.status.UpdateStatus(StatusMonitoring, "")
		return
	}
	p.resume("idle")
}

// completionCallback builds the done callback handed to a monitoring
// session. The gate makes it idempotent.
func (p *Pipeline) completionCallback() func() {
	return func() {
		p.resume("command complete")
	}
}

func (p *Pipeline) resume(detail string) {
	if p.gate.Resume() {
		p.status.UpdateStatus(StatusIdle, detail)
	}
}
