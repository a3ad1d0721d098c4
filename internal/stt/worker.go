package stt

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/supersurf/supersurf/internal/observability"
	"github.com/supersurf/supersurf/internal/resilience"
)

// WorkerConfig holds the transcription worker parameters.
type WorkerConfig struct {
	ErrorLimit  int           // consecutive errors inside the window that trigger a forced resume
	ErrorWindow time.Duration // window for the error threshold
}

// Worker consumes utterance file paths from the queue, transcribes them with
// the primary backend (cloud) and falls back to the local backend, then hands
// the normalized transcript to the pipeline. On any path where no transcript
// reaches the dispatcher the worker resumes the pipeline itself, so a bad
// utterance can never leave the capture loop paused.
type Worker struct {
	cfg      WorkerConfig
	queue    <-chan string
	primary  Backend
	fallback Backend
	breaker  *resilience.CircuitBreaker
	gate     Resumer
	handle   TextHandler
	status   StatusFunc
	log      zerolog.Logger
}

// NewWorker creates a transcription worker. Either backend may be nil; at
// least one must be set for the worker to produce transcripts.
func NewWorker(cfg WorkerConfig, queue <-chan string, primary, fallback Backend, gate Resumer, handle TextHandler, status StatusFunc) *Worker {
	return &Worker{
		cfg:      cfg,
		queue:    queue,
		primary:  primary,
		fallback: fallback,
		breaker:  resilience.NewCircuitBreaker("stt-cloud", 5, 30*time.Second),
		gate:     gate,
		handle:   handle,
		status:   status,
		log:      observability.WithComponent("transcription"),
	}
}

// Run consumes the queue until the context is cancelled. The watchdog
// restarts Run if it returns early.
func (w *Worker) Run(ctx context.Context) {
	var (
		errorCount int
		firstError time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.queue:
			w.status("transcribing", path)

			// The capture loop bounds utterance sizes, but the file can
			// still have vanished to pruning under heavy backlog.
			if info, err := os.Stat(path); err != nil || info.Size() == 0 {
				w.log.Warn().Str("path", path).Msg("utterance file unusable, resuming")
				w.gate.Resume()
				continue
			}

			text, err := w.transcribe(ctx, path)
			if err != nil {
				if ctx.Err() != nil {
					return
				}

				now := time.Now()
				if errorCount == 0 || now.Sub(firstError) > w.cfg.ErrorWindow {
					errorCount = 0
					firstError = now
				}
				errorCount++

				w.log.Error().Err(err).Str("path", path).Int("errors_in_window", errorCount).
					Msg("transcription failed")
				observability.RecordError("transcription", "stt")

				if errorCount >= w.cfg.ErrorLimit {
					w.log.Warn().Msg("transcription error threshold reached, forcing resume")
					observability.RecordForcedResume("transcription_errors")
					errorCount = 0
				}
				w.gate.Resume()
				continue
			}
			errorCount = 0

			normalized := Normalize(text)
			if normalized == "" {
				w.log.Debug().Str("path", path).Msg("empty transcript, resuming")
				w.gate.Resume()
				continue
			}

			w.log.Info().Str("transcript", normalized).Msg("transcription complete")
			w.handle(ctx, normalized)
		}
	}
}

// transcribe tries the primary backend behind the circuit breaker, then the
// fallback. An open breaker skips straight to the fallback.
func (w *Worker) transcribe(ctx context.Context, path string) (string, error) {
	var lastErr error

	if w.primary != nil {
		var text string
		start := time.Now()
		err := w.breaker.Call(func() error {
			t, err := w.primary.Transcribe(ctx, path)
			if err != nil {
				return err
			}
			text = t
			return nil
		})
		observability.RecordSTT(w.primary.Name(), err, time.Since(start))
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			w.log.Warn().Err(err).Str("backend", w.primary.Name()).Msg("primary backend failed, trying fallback")
		}
	}

	if w.fallback != nil {
		start := time.Now()
		text, err := w.fallback.Transcribe(ctx, path)
		observability.RecordSTT(w.fallback.Name(), err, time.Since(start))
		if err == nil {
			return text, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("no transcription backend configured")
	}
	return "", lastErr
}

// Normalize lowercases the transcript, strips punctuation, and collapses
// whitespace so the parser sees a stable token stream regardless of which
// backend produced the text.
func Normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
