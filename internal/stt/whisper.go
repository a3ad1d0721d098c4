package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog"

	"github.com/supersurf/supersurf/internal/audio"
	"github.com/supersurf/supersurf/internal/observability"
)

// whisperSampleRate is what whisper.cpp models expect; utterances recorded at
// other rates are resampled on load.
const whisperSampleRate = 16000

// transcriptionHint biases the model toward the vocabulary of spoken IDE
// commands, which short utterances otherwise mis-transcribe.
const transcriptionHint = "Voice commands for a software development environment: " +
	"activate, type, click, learn, change, stop, windsurf, cursor, lovable."

// WhisperBackend transcribes utterance files with a local whisper.cpp model.
// The model loads once; contexts are per call. whisper.cpp contexts are not
// safe for concurrent use, so calls are serialized.
type WhisperBackend struct {
	mu    sync.Mutex
	model whisper.Model
	log   zerolog.Logger
}

// NewWhisperBackend loads the model at the given path.
func NewWhisperBackend(modelPath string) (*WhisperBackend, error) {
	if modelPath == "" {
		return nil, errors.New("whisper model path is empty")
	}
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model: %w", err)
	}
	return &WhisperBackend{
		model: model,
		log:   observability.WithComponent("stt-whisper"),
	}, nil
}

func (w *WhisperBackend) Name() string { return "whisper" }

func (w *WhisperBackend) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model == nil {
		return nil
	}
	err := w.model.Close()
	w.model = nil
	return err
}

func (w *WhisperBackend) Transcribe(ctx context.Context, wavPath string) (string, error) {
	pcm, err := audio.ReadWAVFloat32(wavPath, whisperSampleRate)
	if err != nil {
		return "", fmt.Errorf("read utterance: %w", err)
	}
	if len(pcm) == 0 {
		return "", nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model == nil {
		return "", errors.New("whisper model is closed")
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper context: %w", err)
	}
	if err := wctx.SetLanguage("en"); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	wctx.SetThreads(uint(runtime.NumCPU()))
	wctx.SetInitialPrompt(transcriptionHint)

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		observability.RecordError("whisper_process", "stt")
		return "", fmt.Errorf("whisper process: %w", err)
	}

	var parts []string
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper segment: %w", err)
		}
		parts = append(parts, seg.Text)
	}

	transcript := strings.TrimSpace(strings.Join(parts, " "))
	w.log.Debug().Str("transcript", transcript).Msg("whisper transcription complete")
	return transcript, nil
}
