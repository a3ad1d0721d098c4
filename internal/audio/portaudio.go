package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Initialize sets up the portaudio runtime. Call once at process start.
func Initialize() error {
	return portaudio.Initialize()
}

// Terminate tears down the portaudio runtime.
func Terminate() {
	_ = portaudio.Terminate()
}

// portaudioSource wraps a default-device input stream as a ChunkSource.
type portaudioSource struct {
	stream *portaudio.Stream
	buf    []int16
}

// Microphone returns a SourceFactory that opens the default input device at
// the given geometry. Each Read yields one chunk of PCM16 mono samples.
func Microphone(sampleRate, chunkSize int) SourceFactory {
	return func() (ChunkSource, error) {
		buf := make([]int16, chunkSize)
		stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), chunkSize, buf)
		if err != nil {
			return nil, fmt.Errorf("open default stream: %w", err)
		}
		if err := stream.Start(); err != nil {
			_ = stream.Close()
			return nil, fmt.Errorf("start stream: %w", err)
		}
		return &portaudioSource{stream: stream, buf: buf}, nil
	}
}

func (s *portaudioSource) Read(out []int16) error {
	if err := s.stream.Read(); err != nil {
		return err
	}
	copy(out, s.buf)
	return nil
}

func (s *portaudioSource) Close() error {
	_ = s.stream.Stop()
	return s.stream.Close()
}
