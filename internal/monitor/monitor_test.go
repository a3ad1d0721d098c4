package monitor

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/supersurf/supersurf/internal/profiles"
)

// scriptedClassifier replays a fixed observation sequence, repeating the
// last entry once exhausted.
type scriptedClassifier struct {
	mu    sync.Mutex
	seq   []Observation
	errs  []error
	idx   int
	calls int
}

func (c *scriptedClassifier) Classify(ctx context.Context, imagePath, prompt string) (Observation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++

	i := c.idx
	if i >= len(c.seq) {
		i = len(c.seq) - 1
	} else {
		c.idx++
	}
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	return c.seq[i], err
}

func (c *scriptedClassifier) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeScreen struct{}

func (fakeScreen) CaptureTo(path string) error { return os.WriteFile(path, []byte("png"), 0o644) }
func (fakeScreen) Size() (int, int)            { return 2560, 1440 }

type fakeMonitorSounds struct {
	attention atomic.Int32
	complete  atomic.Int32
}

func (s *fakeMonitorSounds) Attention() { s.attention.Add(1) }
func (s *fakeMonitorSounds) Complete()  { s.complete.Add(1) }

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Interval:       time.Millisecond,
		MaxInterval:    10 * time.Millisecond,
		StartDelay:     0,
		UserInputWait:  0,
		ScreenshotsDir: t.TempDir(),
		MaxScreenshots: 5,
	}
}

func TestMonitor_DoneCompletesOnce(t *testing.T) {
	classifier := &scriptedClassifier{seq: []Observation{
		{State: StateStillWorking},
		{State: StateStillWorking},
		{State: StateDone},
	}}
	sounds := &fakeMonitorSounds{}
	m := New(testConfig(t), classifier, fakeScreen{}, sounds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var completions atomic.Int32
	finished := make(chan struct{})
	go func() {
		m.Run(ctx, windsurfProfile(t), func() { completions.Add(1) })
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not finish")
	}

	if got := completions.Load(); got != 1 {
		t.Errorf("Expected exactly one completion, got %d", got)
	}
	if sounds.complete.Load() != 1 {
		t.Error("Expected a completion sound")
	}
}

func TestMonitor_UserInputKeepsWatching(t *testing.T) {
	// Needing the user is not the end of the session: the monitor alerts
	// and keeps polling until the interface reaches done.
	classifier := &scriptedClassifier{seq: []Observation{
		{State: StateUserInputRequired, Reasoning: "asks to approve a command"},
		{State: StateUserInputRequired, Reasoning: "still waiting for approval"},
		{State: StateDone},
	}}
	sounds := &fakeMonitorSounds{}
	m := New(testConfig(t), classifier, fakeScreen{}, sounds)

	ctx := context.Background()
	var completions atomic.Int32
	finished := make(chan struct{})
	go func() {
		m.Run(ctx, windsurfProfile(t), func() { completions.Add(1) })
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not finish")
	}

	if got := classifier.callCount(); got != 3 {
		t.Errorf("Expected polling to continue past user input, got %d classifications", got)
	}
	if completions.Load() != 1 {
		t.Errorf("Expected one completion, got %d", completions.Load())
	}
	if sounds.attention.Load() != 2 {
		t.Errorf("Expected an attention sound per user-input observation, got %d", sounds.attention.Load())
	}
	if sounds.complete.Load() != 1 {
		t.Error("Expected a completion sound once the interface reached done")
	}
}

func TestMonitor_ClassifierErrorsKeepWatching(t *testing.T) {
	// Five failed classifications must neither complete the session nor
	// change the poll interval; the sixth observation finishes it.
	err := errors.New("unparsable model output")
	classifier := &scriptedClassifier{
		seq: []Observation{
			{}, {}, {}, {}, {},
			{State: StateDone},
		},
		errs: []error{err, err, err, err, err, nil},
	}
	sounds := &fakeMonitorSounds{}
	cfg := testConfig(t)
	m := New(cfg, classifier, fakeScreen{}, sounds)

	ctx := context.Background()
	var completions atomic.Int32
	finished := make(chan struct{})
	go func() {
		m.Run(ctx, windsurfProfile(t), func() { completions.Add(1) })
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not finish")
	}

	if completions.Load() != 1 {
		t.Errorf("Expected one completion, got %d", completions.Load())
	}
	if classifier.callCount() != 6 {
		t.Errorf("Expected 6 classifications, got %d", classifier.callCount())
	}
	if got := m.PollInterval(); got != cfg.Interval {
		t.Errorf("Expected errors to leave the interval at %v, got %v", cfg.Interval, got)
	}
}

func TestMonitor_CheckCapCompletesOnce(t *testing.T) {
	classifier := &scriptedClassifier{seq: []Observation{{State: StateStillWorking}}}
	sounds := &fakeMonitorSounds{}
	cfg := testConfig(t)
	cfg.MaxStillWorkingChecks = 30
	m := New(cfg, classifier, fakeScreen{}, sounds)

	ctx := context.Background()
	var completions atomic.Int32
	finished := make(chan struct{})
	go func() {
		m.Run(ctx, windsurfProfile(t), func() { completions.Add(1) })
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(10 * time.Second):
		t.Fatal("monitor did not finish")
	}

	if completions.Load() != 1 {
		t.Errorf("Expected exactly one completion at the check cap, got %d", completions.Load())
	}
	if classifier.callCount() != 30 {
		t.Errorf("Expected 30 checks, got %d", classifier.callCount())
	}
}

func TestMonitor_BackoffWidensInterval(t *testing.T) {
	classifier := &scriptedClassifier{seq: []Observation{{State: StateStillWorking}}}
	cfg := testConfig(t)
	cfg.Interval = 2 * time.Millisecond
	cfg.MaxStillWorkingChecks = 10
	m := New(cfg, classifier, fakeScreen{}, &fakeMonitorSounds{})

	finished := make(chan struct{})
	go func() {
		m.Run(context.Background(), windsurfProfile(t), func() {})
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(10 * time.Second):
		t.Fatal("monitor did not finish")
	}

	if got := m.PollInterval(); got <= cfg.Interval {
		t.Errorf("Expected the interval to back off beyond %v, got %v", cfg.Interval, got)
	}
	if got := m.PollInterval(); got > cfg.MaxInterval {
		t.Errorf("Expected the interval to respect the cap %v, got %v", cfg.MaxInterval, got)
	}
}

func TestMonitor_CancellationCompletesOnce(t *testing.T) {
	classifier := &scriptedClassifier{seq: []Observation{{State: StateStillWorking}}}
	m := New(testConfig(t), classifier, fakeScreen{}, &fakeMonitorSounds{})

	ctx, cancel := context.WithCancel(context.Background())

	var completions atomic.Int32
	finished := make(chan struct{})
	go func() {
		m.Run(ctx, windsurfProfile(t), func() { completions.Add(1) })
		close(finished)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop on cancellation")
	}

	if completions.Load() != 1 {
		t.Errorf("Expected exactly one completion on cancellation, got %d", completions.Load())
	}
}

func TestStarter_WithoutVisionCompletesImmediately(t *testing.T) {
	s := NewStarter(testConfig(t), nil, nil, &fakeMonitorSounds{})

	var completions atomic.Int32
	s.Start(context.Background(), windsurfProfile(t), func() { completions.Add(1) })

	if completions.Load() != 1 {
		t.Errorf("Expected immediate completion without vision, got %d", completions.Load())
	}
}

func windsurfProfile(t *testing.T) *profiles.Profile {
	t.Helper()
	p, ok := profiles.Builtin().Get("windsurf")
	if !ok {
		t.Fatal("missing builtin windsurf profile")
	}
	return p
}
