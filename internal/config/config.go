package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the SuperSurf voice assistant
type Config struct {
	// Server configuration (health, readiness, metrics, overlay WebSocket)
	Port string `envconfig:"PORT" default:"8080"`

	// Voice pipeline configuration
	ActivationWord  string  `envconfig:"ACTIVATION_WORD" default:"activate"`
	SampleRate      int     `envconfig:"SAMPLE_RATE" default:"16000"`     // Hz, mono PCM16
	ChunkSize       int     `envconfig:"CHUNK_SIZE" default:"1024"`       // samples per capture read
	SilenceDuration float64 `envconfig:"SILENCE_DURATION" default:"0.8"`  // seconds of silence ending an utterance
	EnergyFloor     float64 `envconfig:"ENERGY_FLOOR" default:"1000.0"`   // minimum RMS speech threshold
	CalibrationSecs float64 `envconfig:"CALIBRATION_SECONDS" default:"4"` // ambient noise sampling window

	// Utterance persistence
	RecordingsDir     string `envconfig:"RECORDINGS_DIR" default:"audio_recordings"`
	MaxRecordings     int    `envconfig:"MAX_RECORDINGS" default:"10"`
	MinUtteranceBytes int64  `envconfig:"MIN_UTTERANCE_BYTES" default:"10240"`    // below this the file is treated as noise
	MaxUtteranceBytes int64  `envconfig:"MAX_UTTERANCE_BYTES" default:"26214400"` // 25MB cloud API limit

	// Deepgram STT (cloud backend, preferred when the key is set)
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel    string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en"`

	// Whisper STT (local fallback backend)
	WhisperModelPath string `envconfig:"WHISPER_MODEL_PATH" default:"models/ggml-base.en.bin"`

	// OpenAI vision (IDE state classification, coordinate resolution, prompt enhancement)
	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY" default:""`
	VisionModel    string `envconfig:"VISION_MODEL" default:"gpt-4o-mini"`
	EnhancePrompts bool   `envconfig:"ENHANCE_PROMPTS" default:"false"` // optional LLM pre-processing of "type" commands

	// Target interface profiles
	DefaultInterface string `envconfig:"DEFAULT_INTERFACE" default:"windsurf"`
	InterfacesFile   string `envconfig:"INTERFACES_FILE" default:""` // empty means built-in profiles

	// IDE state monitoring
	MonitorInterval       float64 `envconfig:"MONITOR_INTERVAL" default:"4.0"`         // baseline poll interval, seconds
	MonitorMaxInterval    float64 `envconfig:"MONITOR_MAX_INTERVAL" default:"30.0"`    // adaptive backoff cap, seconds
	MonitorUserInputWait  float64 `envconfig:"MONITOR_USER_INPUT_WAIT" default:"10.0"` // wait after alerting the user, seconds
	MonitorStartDelay     float64 `envconfig:"MONITOR_START_DELAY" default:"2.0"`      // grace before the first poll, seconds
	MonitorMaxStillChecks int     `envconfig:"MONITOR_MAX_STILL_CHECKS" default:"0"`   // 0 = unbounded
	ScreenshotsDir        string  `envconfig:"SCREENSHOTS_DIR" default:"screenshots"`
	MaxScreenshots        int     `envconfig:"MAX_SCREENSHOTS" default:"10"`
	CompletionSound       string  `envconfig:"COMPLETION_SOUND" default:""` // optional mp3 played on "done"

	// Recovery configuration
	StuckPauseTimeout  int `envconfig:"STUCK_PAUSE_TIMEOUT" default:"120"` // seconds before a lost callback is assumed
	WatchdogInterval   int `envconfig:"WATCHDOG_INTERVAL" default:"5"`     // seconds between worker liveness checks
	StreamErrorLimit   int `envconfig:"STREAM_ERROR_LIMIT" default:"3"`    // consecutive read errors before stream reopen
	TranscribeErrLimit int `envconfig:"TRANSCRIBE_ERR_LIMIT" default:"3"`  // consecutive errors before forced resume

	// Session state
	CommandHistoryCap int `envconfig:"COMMAND_HISTORY_CAP" default:"1000"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// No API key is required: a missing key degrades the corresponding
	// feature (cloud STT, vision monitoring) instead of failing startup.
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("SAMPLE_RATE must be positive, got %d", cfg.SampleRate)
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("CHUNK_SIZE must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.SilenceDuration <= 0 {
		return nil, fmt.Errorf("SILENCE_DURATION must be positive, got %f", cfg.SilenceDuration)
	}
	if cfg.ActivationWord == "" {
		return nil, fmt.Errorf("ACTIVATION_WORD must not be empty")
	}

	return &cfg, nil
}

// SilenceChunks returns the number of consecutive silent chunks that end an
// utterance, derived from the silence duration and chunk geometry.
func (c *Config) SilenceChunks() int {
	n := int(c.SilenceDuration * float64(c.SampleRate) / float64(c.ChunkSize))
	if n < 1 {
		n = 1
	}
	return n
}

// CloudSTTEnabled reports whether the Deepgram backend can be used.
func (c *Config) CloudSTTEnabled() bool {
	return c.DeepgramAPIKey != ""
}

// VisionEnabled reports whether the OpenAI-backed vision features can be used.
func (c *Config) VisionEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
