package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type nopSink struct{}

func (nopSink) UpdateStatus(Status, string) {}

func TestWatchdog_RestartsDeadWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var starts atomic.Int32
	w := NewWatchdog(10*time.Millisecond, NewGate(0), nopSink{})
	w.Add("flaky", func(ctx context.Context) {
		starts.Add(1)
		// Exit immediately so every poll sees a dead worker.
	})

	go w.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for starts.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected at least 3 starts, got %d", starts.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWatchdog_LeavesHealthyWorkerAlone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var starts atomic.Int32
	w := NewWatchdog(10*time.Millisecond, NewGate(0), nopSink{})
	w.Add("steady", func(ctx context.Context) {
		starts.Add(1)
		<-ctx.Done()
	})

	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	if got := starts.Load(); got != 1 {
		t.Errorf("Expected exactly 1 start, got %d", got)
	}
}

func TestWatchdog_ForcesResumeOnRestart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gate := NewGate(0)
	var starts atomic.Int32
	w := NewWatchdog(10*time.Millisecond, gate, nopSink{})
	w.Add("crasher", func(ctx context.Context) {
		if starts.Add(1) == 1 {
			// Die holding the gate closed; the watchdog must reopen it.
			gate.Pause()
			return
		}
		<-ctx.Done()
	})

	go w.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for starts.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("Expected the worker to be restarted")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if gate.Paused() {
		t.Error("Expected the gate to be forced open on restart")
	}
}

func TestWatchdog_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	w := NewWatchdog(10*time.Millisecond, NewGate(0), nopSink{})
	w.Add("worker", func(ctx context.Context) { <-ctx.Done() })

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected Run to return after cancellation")
	}
}
