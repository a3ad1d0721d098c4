package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/supersurf/supersurf/internal/observability"
	"github.com/supersurf/supersurf/internal/resilience"
	"github.com/supersurf/supersurf/internal/store"
)

// ChunkSource produces fixed-size PCM16 mono chunks. The production
// implementation wraps a portaudio input stream; tests use an in-memory fake.
type ChunkSource interface {
	Read(buf []int16) error
	Close() error
}

// SourceFactory opens a fresh chunk source. The capture loop calls it at
// startup and again when a stream has to be reopened after read errors.
type SourceFactory func() (ChunkSource, error)

// Pauser is the capture loop's view of the pipeline gate: it pauses the
// pipeline when an utterance is handed off and reports the paused state so
// chunks can be discarded while a command is in flight.
type Pauser interface {
	Pause()
	Paused() bool
}

// StatusFunc receives pipeline status transitions for the UI layer.
type StatusFunc func(status, detail string)

// CaptureConfig holds the capture loop parameters.
type CaptureConfig struct {
	SampleRate          int
	ChunkSize           int
	SilenceChunks       int // consecutive silent chunks that end an utterance
	CalibrationDuration time.Duration
	EnergyFloor         float64
	RecordingsDir       string
	MaxRecordings       int
	MinUtteranceBytes   int64
	MaxUtteranceBytes   int64
	StreamErrorLimit    int // consecutive read errors before the stream is reopened
}

// Capture owns the microphone stream and runs the speech/silence state
// machine, accumulating utterances and handing each finished one to the
// transcription queue as a WAV file path.
type Capture struct {
	cfg      CaptureConfig
	open     SourceFactory
	gate     Pauser
	out      chan<- string
	status   StatusFunc
	detector *Detector
	log      zerolog.Logger
}

// NewCapture creates a capture loop. The out channel carries finished
// utterance file paths to the transcription worker.
func NewCapture(cfg CaptureConfig, open SourceFactory, gate Pauser, out chan<- string, status StatusFunc) *Capture {
	return &Capture{
		cfg:      cfg,
		open:     open,
		gate:     gate,
		out:      out,
		status:   status,
		detector: NewDetector(cfg.EnergyFloor),
		log:      observability.WithComponent("capture"),
	}
}

// Detector exposes the speech detector, mainly for inspection in tests.
func (c *Capture) Detector() *Detector {
	return c.detector
}

// Run executes the capture loop until the context is cancelled or the stream
// cannot be recovered. The watchdog restarts Run if it returns early.
func (c *Capture) Run(ctx context.Context) error {
	c.status("initializing", "opening audio stream")

	source, err := c.open()
	if err != nil {
		observability.RecordError("stream_open", "capture")
		return fmt.Errorf("open audio stream: %w", err)
	}
	defer func() { _ = source.Close() }()

	if err := os.MkdirAll(c.cfg.RecordingsDir, 0o755); err != nil {
		return fmt.Errorf("create recordings dir: %w", err)
	}

	c.calibrate(ctx, source)
	c.status("idle", "listening")

	var (
		recording    bool
		buffer       []int16
		speechChunks int
		silentChunks int
		errorCount   int
	)

	chunk := make([]int16, c.cfg.ChunkSize)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		// Read errors count toward the reopen threshold whether or not the
		// pipeline is paused, so a stream that dies mid-command still
		// recovers instead of spinning until resume.
		if err := source.Read(chunk); err != nil {
			errorCount++
			c.log.Warn().Err(err).Int("consecutive", errorCount).Msg("audio read error")
			observability.RecordError("stream_read", "capture")

			if errorCount >= c.cfg.StreamErrorLimit {
				reopened, rErr := c.reopen(ctx, source)
				if rErr != nil {
					return fmt.Errorf("reopen audio stream: %w", rErr)
				}
				source = reopened
				errorCount = 0
			}
			continue
		}
		errorCount = 0

		// While paused the stream is still drained so the device buffer
		// doesn't overflow, but the chunks carry no state-machine work.
		if c.gate.Paused() {
			observability.RecordAudioChunk("discarded")
			continue
		}

		isSpeech := c.detector.IsSpeech(chunk)

		if isSpeech {
			observability.RecordAudioChunk("speech")
			silentChunks = 0

			if !recording {
				recording = true
				buffer = buffer[:0]
				speechChunks = 0
				c.log.Debug().Float64("threshold", c.detector.Threshold()).Msg("speech detected")
				c.status("recording", "speech detected")
			}

			buffer = append(buffer, chunk...)
			speechChunks++
			continue
		}

		observability.RecordAudioChunk("silence")
		if !recording {
			continue
		}

		// Trailing silence is part of the utterance until the threshold hits.
		buffer = append(buffer, chunk...)
		speechChunks++
		silentChunks++

		if silentChunks >= c.cfg.SilenceChunks {
			recording = false
			c.finishUtterance(buffer, speechChunks)
			buffer = buffer[:0]
			silentChunks = 0
		}
	}
}

// calibrate samples ambient audio and sets the detector threshold. Errors
// during calibration are tolerated; a failed calibration leaves the floor.
func (c *Capture) calibrate(ctx context.Context, source ChunkSource) {
	c.status("calibrating", "measuring ambient noise")

	chunksNeeded := int(c.cfg.CalibrationDuration.Seconds() * float64(c.cfg.SampleRate) / float64(c.cfg.ChunkSize))
	chunk := make([]int16, c.cfg.ChunkSize)

	var energies []float64
	for i := 0; i < chunksNeeded; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := source.Read(chunk); err != nil {
			c.log.Warn().Err(err).Msg("calibration read error")
			continue
		}
		energies = append(energies, CalculateRMS(chunk))
	}

	c.detector.Calibrate(energies)
	c.log.Info().
		Float64("threshold", c.detector.Threshold()).
		Int("samples", len(energies)).
		Msg("ambient calibration complete")
}

// finishUtterance persists the buffered utterance and, if it passes the size
// bounds, pauses the pipeline and queues it for transcription. Handoff is by
// value: the caller clears its buffer afterwards.
func (c *Capture) finishUtterance(buffer []int16, chunks int) {
	duration := time.Duration(len(buffer)) * time.Second / time.Duration(c.cfg.SampleRate)
	c.log.Info().Dur("duration", duration).Int("chunks", chunks).Msg("silence threshold reached")

	store.PruneOldFiles(c.cfg.RecordingsDir, "recording_*.wav", c.cfg.MaxRecordings)

	name := fmt.Sprintf("recording_%s_%s.wav", time.Now().Format("20060102-150405"), uuid.New().String()[:8])
	path := filepath.Join(c.cfg.RecordingsDir, name)

	if err := WriteWAV(path, buffer, c.cfg.SampleRate, 1); err != nil {
		c.log.Error().Err(err).Msg("failed to save utterance")
		observability.RecordError("wav_write", "capture")
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to stat utterance")
		return
	}

	// Too small is likely noise, too large exceeds the cloud API limit;
	// either way the file stays on disk for review but is not transcribed.
	if info.Size() < c.cfg.MinUtteranceBytes || info.Size() > c.cfg.MaxUtteranceBytes {
		c.log.Info().Int64("bytes", info.Size()).Str("path", path).Msg("utterance rejected by size bounds")
		return
	}

	observability.RecordUtterance(duration)

	c.gate.Pause()
	c.out <- path
}

// reopen closes the broken source and opens a new one with backoff.
func (c *Capture) reopen(ctx context.Context, broken ChunkSource) (ChunkSource, error) {
	c.log.Warn().Msg("too many stream errors, reopening audio stream")
	_ = broken.Close()

	var source ChunkSource
	err := resilience.Reconnect(ctx, func() error {
		s, err := c.open()
		if err != nil {
			return err
		}
		source = s
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}

	observability.RecordStreamReopen()
	c.log.Info().Msg("audio stream reopened")
	return source, nil
}
