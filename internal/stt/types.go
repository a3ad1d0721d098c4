package stt

import "context"

// Backend transcribes a finished utterance WAV file to text. Implementations
// are the Deepgram cloud API and the local whisper.cpp model.
type Backend interface {
	Name() string
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// StatusFunc receives worker status transitions for the UI layer.
type StatusFunc func(status, detail string)

// Resumer is the worker's view of the pipeline gate. The worker resumes the
// pipeline itself whenever a transcript will never reach the dispatcher.
type Resumer interface {
	Resume() bool
}

// TextHandler receives a normalized, non-empty transcript.
type TextHandler func(ctx context.Context, text string)
