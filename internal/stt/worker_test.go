package stt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakeBackend struct {
	name string
	text string
	err  error

	mu    sync.Mutex
	calls int
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) Transcribe(ctx context.Context, wavPath string) (string, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	return b.text, b.err
}

func (b *fakeBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type countingGate struct {
	mu      sync.Mutex
	resumes int
}

func (g *countingGate) Resume() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resumes++
	return true
}

func (g *countingGate) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resumes
}

type capturedText struct {
	mu    sync.Mutex
	texts []string
}

func (c *capturedText) handler(ctx context.Context, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
}

func (c *capturedText) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

// tempUtterance creates a nonempty stand-in utterance file.
func tempUtterance(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "utt.wav")
	if err := os.WriteFile(path, []byte("RIFF fake"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runWorker(t *testing.T, w *Worker, queue chan string, paths ...string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	for _, p := range paths {
		queue <- p
	}

	// Drain: cancel once the queue is empty and give the in-flight item a beat.
	deadline := time.Now().Add(2 * time.Second)
	for len(queue) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker did not drain the queue")
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorker_PrimarySuccess(t *testing.T) {
	primary := &fakeBackend{name: "cloud", text: "Activate, type Hello!"}
	fallback := &fakeBackend{name: "local", text: "unused"}
	gate := &countingGate{}
	captured := &capturedText{}

	queue := make(chan string, 1)
	w := NewWorker(WorkerConfig{ErrorLimit: 3, ErrorWindow: time.Minute},
		queue, primary, fallback, gate, captured.handler, func(string, string) {})

	runWorker(t, w, queue, tempUtterance(t))

	got := captured.all()
	if len(got) != 1 || got[0] != "activate type hello" {
		t.Errorf("Expected normalized transcript, got %v", got)
	}
	if fallback.callCount() != 0 {
		t.Error("Expected fallback to be skipped when primary succeeds")
	}
	if gate.count() != 0 {
		t.Error("Expected no worker-side resume on success")
	}
}

func TestWorker_FallbackOnPrimaryError(t *testing.T) {
	primary := &fakeBackend{name: "cloud", err: errors.New("api down")}
	fallback := &fakeBackend{name: "local", text: "activate stop"}
	gate := &countingGate{}
	captured := &capturedText{}

	queue := make(chan string, 1)
	w := NewWorker(WorkerConfig{ErrorLimit: 3, ErrorWindow: time.Minute},
		queue, primary, fallback, gate, captured.handler, func(string, string) {})

	runWorker(t, w, queue, tempUtterance(t))

	got := captured.all()
	if len(got) != 1 || got[0] != "activate stop" {
		t.Errorf("Expected fallback transcript, got %v", got)
	}
	if fallback.callCount() != 1 {
		t.Errorf("Expected exactly one fallback call, got %d", fallback.callCount())
	}
}

func TestWorker_BothBackendsFailResumes(t *testing.T) {
	primary := &fakeBackend{name: "cloud", err: errors.New("api down")}
	fallback := &fakeBackend{name: "local", err: errors.New("model broken")}
	gate := &countingGate{}
	captured := &capturedText{}

	queue := make(chan string, 2)
	w := NewWorker(WorkerConfig{ErrorLimit: 3, ErrorWindow: time.Minute},
		queue, primary, fallback, gate, captured.handler, func(string, string) {})

	runWorker(t, w, queue, tempUtterance(t), tempUtterance(t))

	if len(captured.all()) != 0 {
		t.Error("Expected no transcript to reach the handler")
	}
	if gate.count() != 2 {
		t.Errorf("Expected a resume per failed utterance, got %d", gate.count())
	}
}

func TestWorker_EmptyTranscriptResumes(t *testing.T) {
	primary := &fakeBackend{name: "cloud", text: "  ... "}
	gate := &countingGate{}
	captured := &capturedText{}

	queue := make(chan string, 1)
	w := NewWorker(WorkerConfig{ErrorLimit: 3, ErrorWindow: time.Minute},
		queue, primary, nil, gate, captured.handler, func(string, string) {})

	runWorker(t, w, queue, tempUtterance(t))

	if len(captured.all()) != 0 {
		t.Error("Expected empty transcript to be dropped")
	}
	if gate.count() != 1 {
		t.Errorf("Expected exactly one resume, got %d", gate.count())
	}
}

func TestWorker_NoBackendsResumes(t *testing.T) {
	gate := &countingGate{}
	captured := &capturedText{}

	queue := make(chan string, 1)
	w := NewWorker(WorkerConfig{ErrorLimit: 3, ErrorWindow: time.Minute},
		queue, nil, nil, gate, captured.handler, func(string, string) {})

	runWorker(t, w, queue, tempUtterance(t))

	if gate.count() != 1 {
		t.Errorf("Expected a resume when no backend is configured, got %d", gate.count())
	}
}

func TestWorker_MissingFileResumes(t *testing.T) {
	primary := &fakeBackend{name: "cloud", text: "activate stop"}
	gate := &countingGate{}
	captured := &capturedText{}

	queue := make(chan string, 1)
	w := NewWorker(WorkerConfig{ErrorLimit: 3, ErrorWindow: time.Minute},
		queue, primary, nil, gate, captured.handler, func(string, string) {})

	runWorker(t, w, queue, filepath.Join(t.TempDir(), "gone.wav"))

	if primary.callCount() != 0 {
		t.Error("Expected no transcription attempt for a missing file")
	}
	if gate.count() != 1 {
		t.Errorf("Expected exactly one resume, got %d", gate.count())
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "ACTIVATE Type Hello", "activate type hello"},
		{"punctuation stripped", "Activate, type: hello-world!", "activate type helloworld"},
		{"whitespace collapsed", "  activate \t type   hello \n", "activate type hello"},
		{"digits kept", "type version 2", "type version 2"},
		{"empty", "  ...!?  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
