package pipeline

import (
	"sync"
	"time"

	"github.com/supersurf/supersurf/internal/observability"
)

// Gate is the pause/resume handoff between the capture loop and command
// execution. Pause is called when an utterance is handed off; Resume is
// called by the completion callback once the command (and any monitoring
// session) finishes. Resume is idempotent, so a command can never unpause
// the pipeline more than once.
//
// A stuck-pause failsafe force-resumes after a timeout in case a completion
// callback is lost, so the pipeline can never deadlock in the paused state.
type Gate struct {
	mu           sync.Mutex
	paused       bool
	pausedSince  time.Time
	stuckTimeout time.Duration
	timer        *time.Timer
}

// NewGate creates a gate with the given stuck-pause timeout. A zero timeout
// disables the failsafe.
func NewGate(stuckTimeout time.Duration) *Gate {
	return &Gate{stuckTimeout: stuckTimeout}
}

// Pause closes the gate. No-op if already paused.
func (g *Gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.paused {
		return
	}
	g.paused = true
	g.pausedSince = time.Now()

	if g.stuckTimeout > 0 {
		g.timer = time.AfterFunc(g.stuckTimeout, g.forceResume)
	}
}

// Resume opens the gate. Returns true only on the transition from paused to
// running, so callers can act exactly once per pause.
func (g *Gate) Resume() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resumeLocked()
}

func (g *Gate) resumeLocked() bool {
	if !g.paused {
		return false
	}
	g.paused = false
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	return true
}

// Paused reports whether the gate is closed.
func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

func (g *Gate) forceResume() {
	g.mu.Lock()
	stuck := time.Since(g.pausedSince)
	resumed := g.resumeLocked()
	g.mu.Unlock()

	if resumed {
		l := observability.WithComponent("gate")
		l.Warn().
			Dur("paused_for", stuck).
			Msg("pipeline paused too long, forcing resume")
		observability.RecordForcedResume("stuck_pause")
	}
}
