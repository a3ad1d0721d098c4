// Package notify plays the audible feedback the assistant gives instead of
// a visible UI: error tones, attention chimes, completion chords, and spoken
// confirmations.
package notify

import (
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/generators"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/rs/zerolog"

	"github.com/supersurf/supersurf/internal/observability"
)

const (
	errorFreq     = 1200
	attentionFreq = 1000
	completeFreq  = 800
)

// Sounds plays feedback tones through the default output device. Playback is
// asynchronous so the dispatcher never blocks on audio.
type Sounds struct {
	sr            beep.SampleRate
	completionMP3 string
	log           zerolog.Logger
}

// NewSounds initializes the speaker. Call once per process. completionMP3
// optionally replaces the synthesized completion chord with an audio file.
func NewSounds(completionMP3 string) (*Sounds, error) {
	sr := beep.SampleRate(44100)
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return nil, err
	}
	return &Sounds{
		sr:            sr,
		completionMP3: completionMP3,
		log:           observability.WithComponent("notify"),
	}, nil
}

// Error plays a single sharp tone.
func (s *Sounds) Error() {
	s.play(s.tone(errorFreq, 150*time.Millisecond))
}

// Attention plays a double chime for "the interface needs you".
func (s *Sounds) Attention() {
	s.play(beep.Seq(
		s.tone(attentionFreq, 120*time.Millisecond),
		beep.Silence(s.sr.N(80*time.Millisecond)),
		s.tone(attentionFreq, 120*time.Millisecond),
	))
}

// Complete plays the configured mp3 if there is one, otherwise a rising pair
// for "done".
func (s *Sounds) Complete() {
	if s.completionMP3 != "" && s.playMP3(s.completionMP3) {
		return
	}
	s.play(beep.Seq(
		s.tone(completeFreq, 120*time.Millisecond),
		s.tone(errorFreq, 180*time.Millisecond),
	))
}

// playMP3 decodes and plays the file asynchronously. Returns false when the
// file cannot be played so the caller can fall back to a tone.
func (s *Sounds) playMP3(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("completion sound unavailable")
		return false
	}
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		_ = f.Close()
		s.log.Warn().Err(err).Str("path", path).Msg("completion sound undecodable")
		return false
	}

	resampled := beep.Resample(4, format.SampleRate, s.sr, streamer)
	speaker.Play(beep.Seq(resampled, beep.Callback(func() {
		_ = streamer.Close()
	})))
	return true
}

// Say speaks the text aloud where the platform supports it, and always logs
// it so confirmations are visible on headless setups.
func (s *Sounds) Say(text string) {
	s.log.Info().Str("text", text).Msg("speaking")
	if runtime.GOOS != "darwin" {
		return
	}
	go func() {
		if err := exec.Command("say", text).Run(); err != nil {
			s.log.Debug().Err(err).Msg("say failed")
		}
	}()
}

func (s *Sounds) tone(freq int, d time.Duration) beep.Streamer {
	t, err := generators.SinTone(s.sr, freq)
	if err != nil {
		s.log.Debug().Err(err).Int("freq", freq).Msg("tone generation failed")
		return beep.Silence(s.sr.N(d))
	}
	return beep.Take(s.sr.N(d), t)
}

func (s *Sounds) play(streamer beep.Streamer) {
	speaker.Play(streamer)
}

// Silent is the fallback when no output device is available; it logs what
// would have been played.
type Silent struct {
	log zerolog.Logger
}

func NewSilent() *Silent {
	return &Silent{log: observability.WithComponent("notify")}
}

func (s *Silent) Error()     { s.log.Info().Msg("error tone (audio unavailable)") }
func (s *Silent) Attention() { s.log.Info().Msg("attention chime (audio unavailable)") }
func (s *Silent) Complete()  { s.log.Info().Msg("completion chord (audio unavailable)") }

func (s *Silent) Say(text string) {
	s.log.Info().Str("text", text).Msg("speaking (audio unavailable)")
}
