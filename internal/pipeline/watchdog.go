package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/supersurf/supersurf/internal/observability"
)

// task is a supervised worker goroutine. alive flips false when the run
// function returns, whatever the reason.
type task struct {
	name  string
	run   func(ctx context.Context)
	alive atomic.Bool
}

// Watchdog supervises the pipeline's long-running workers. Every poll
// interval it restarts any worker whose goroutine has exited, and forces the
// gate open so a crashed worker cannot leave the pipeline paused forever.
type Watchdog struct {
	interval time.Duration
	gate     *Gate
	status   StatusSink
	tasks    []*task
	log      zerolog.Logger
}

func NewWatchdog(interval time.Duration, gate *Gate, status StatusSink) *Watchdog {
	return &Watchdog{
		interval: interval,
		gate:     gate,
		status:   status,
		log:      observability.WithComponent("watchdog"),
	}
}

// Add registers a worker. Call before Run.
func (w *Watchdog) Add(name string, run func(ctx context.Context)) {
	w.tasks = append(w.tasks, &task{name: name, run: run})
}

// Run launches all registered workers and supervises them until the context
// is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	for _, t := range w.tasks {
		w.launch(ctx, t)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *Watchdog) check(ctx context.Context) {
	for _, t := range w.tasks {
		if t.alive.Load() {
			continue
		}

		w.log.Warn().Str("worker", t.name).Msg("worker exited, restarting")
		observability.RecordWatchdogRestart(t.name)

		// A dead worker may have died holding the gate closed.
		if w.gate != nil && w.gate.Resume() {
			w.log.Warn().Str("worker", t.name).Msg("forced resume after worker death")
			observability.RecordForcedResume("worker_restart")
		}

		w.status.UpdateStatus(StatusInitializing, "restarting "+t.name)
		w.launch(ctx, t)
	}
}

func (w *Watchdog) launch(ctx context.Context, t *task) {
	t.alive.Store(true)
	go func() {
		defer t.alive.Store(false)
		t.run(ctx)
	}()
}
