package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/supersurf/supersurf/internal/desktop"
	"github.com/supersurf/supersurf/internal/observability"
	"github.com/supersurf/supersurf/internal/profiles"
	"github.com/supersurf/supersurf/internal/store"
)

// State is the classified condition of the watched interface.
type State string

const (
	StateStillWorking      State = "still_working"
	StateUserInputRequired State = "user_input_required"
	StateDone              State = "done"
)

// Observation is one classification of a screenshot.
type Observation struct {
	State     State
	Reasoning string
}

// Classifier decides what state a screenshot of the interface shows. The
// production implementation asks a vision model.
type Classifier interface {
	Classify(ctx context.Context, imagePath, prompt string) (Observation, error)
}

// Sounds plays audible session feedback.
type Sounds interface {
	Attention()
	Complete()
}

// Config holds the monitoring loop parameters.
type Config struct {
	Interval              time.Duration // initial poll interval
	MaxInterval           time.Duration // backoff cap
	StartDelay            time.Duration // grace period before the first poll
	UserInputWait         time.Duration // pause after requesting user input
	MaxStillWorkingChecks int           // 0 means unlimited
	ScreenshotsDir        string
	MaxScreenshots        int
}

// sameStateBackoff is how many identical consecutive observations widen the
// poll interval by backoffFactor.
const (
	sameStateBackoff = 3
	backoffFactor    = 1.5
)

// Monitor polls the active interface after a prompt is submitted and decides
// when the user should get control back. The completion callback fires
// exactly once per session no matter how the session ends.
type Monitor struct {
	cfg        Config
	classifier Classifier
	screen     desktop.Screen
	sounds     Sounds
	log        zerolog.Logger

	interval atomic.Int64 // current poll interval, for inspection
}

func New(cfg Config, classifier Classifier, screen desktop.Screen, sounds Sounds) *Monitor {
	return &Monitor{
		cfg:        cfg,
		classifier: classifier,
		screen:     screen,
		sounds:     sounds,
		log:        observability.WithComponent("monitor"),
	}
}

// Run watches the interface until it settles, hits the check cap, or the
// context is cancelled. A user_input_required observation alerts the user and
// keeps the session alive. Every exit path fires done exactly once.
func (m *Monitor) Run(ctx context.Context, profile *profiles.Profile, done func()) {
	var once sync.Once
	complete := func() {
		once.Do(func() {
			if done != nil {
				done()
			}
		})
	}
	defer complete()

	observability.MonitorSessionStarted()
	defer observability.MonitorSessionEnded()

	prompt := ""
	name := "unknown"
	if profile != nil {
		prompt = profile.StatePrompt
		name = profile.Name
	}
	m.log.Info().Str("interface", name).Msg("monitoring session started")

	if !sleepCtx(ctx, m.cfg.StartDelay) {
		return
	}

	interval := m.cfg.Interval
	m.interval.Store(int64(interval))

	var (
		lastState      State
		sameStateCount int
		workingChecks  int
		notifications  int
	)

	for {
		obs, err := m.poll(ctx, prompt)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			// An unreadable screen or unparsable answer is not evidence of
			// completion; keep watching at the current cadence.
			m.log.Warn().Err(err).Msg("classification failed, assuming still working")
			obs = Observation{State: StateStillWorking}
		} else {
			m.log.Debug().Str("state", string(obs.State)).Str("reasoning", obs.Reasoning).Msg("interface state")

			if obs.State == lastState {
				sameStateCount++
			} else {
				sameStateCount = 1
				interval = m.cfg.Interval
			}
			lastState = obs.State

			if sameStateCount >= sameStateBackoff {
				interval = time.Duration(float64(interval) * backoffFactor)
				if interval > m.cfg.MaxInterval {
					interval = m.cfg.MaxInterval
				}
				sameStateCount = 0
			}
			m.interval.Store(int64(interval))
		}

		switch obs.State {
		case StateDone:
			m.log.Info().Str("interface", name).Msg("interface finished")
			m.sounds.Complete()
			return

		case StateUserInputRequired:
			notifications++
			m.log.Info().Str("interface", name).Int("notifications", notifications).
				Msg("interface is waiting for the user")
			m.sounds.Attention()
			// Not a terminal state: alert, give the user time to respond,
			// then keep watching until the work actually finishes.
			if !sleepCtx(ctx, m.cfg.UserInputWait) {
				return
			}
			continue

		case StateStillWorking:
			workingChecks++
			if m.cfg.MaxStillWorkingChecks > 0 && workingChecks >= m.cfg.MaxStillWorkingChecks {
				m.log.Warn().Int("checks", workingChecks).Msg("monitoring check cap reached, handing control back")
				m.sounds.Complete()
				return
			}
		}

		if !sleepCtx(ctx, interval) {
			return
		}
	}
}

// poll takes a screenshot and classifies it.
func (m *Monitor) poll(ctx context.Context, prompt string) (Observation, error) {
	if err := os.MkdirAll(m.cfg.ScreenshotsDir, 0o755); err != nil {
		return Observation{}, fmt.Errorf("create screenshots dir: %w", err)
	}
	store.PruneOldFiles(m.cfg.ScreenshotsDir, "monitor_*.png", m.cfg.MaxScreenshots)

	path := filepath.Join(m.cfg.ScreenshotsDir,
		fmt.Sprintf("monitor_%s_%s.png", time.Now().Format("20060102-150405"), uuid.New().String()[:8]))
	if err := m.screen.CaptureTo(path); err != nil {
		observability.RecordError("screenshot", "monitor")
		return Observation{}, fmt.Errorf("capture screen: %w", err)
	}

	start := time.Now()
	obs, err := m.classifier.Classify(ctx, path, prompt)
	if err != nil {
		observability.RecordError("classify", "monitor")
		return Observation{}, err
	}
	observability.RecordMonitorPoll(string(obs.State), time.Since(start))
	return obs, nil
}

// PollInterval reports the current poll interval, mainly for tests.
func (m *Monitor) PollInterval() time.Duration {
	return time.Duration(m.interval.Load())
}

// sleepCtx sleeps for d or until the context is cancelled. Returns false on
// cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
