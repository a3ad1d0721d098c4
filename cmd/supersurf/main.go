package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/supersurf/supersurf/internal/audio"
	"github.com/supersurf/supersurf/internal/command"
	"github.com/supersurf/supersurf/internal/config"
	"github.com/supersurf/supersurf/internal/desktop"
	"github.com/supersurf/supersurf/internal/monitor"
	"github.com/supersurf/supersurf/internal/notify"
	"github.com/supersurf/supersurf/internal/observability"
	"github.com/supersurf/supersurf/internal/overlay"
	"github.com/supersurf/supersurf/internal/pipeline"
	"github.com/supersurf/supersurf/internal/profiles"
	"github.com/supersurf/supersurf/internal/stt"
	"github.com/supersurf/supersurf/internal/vision"
)

func main() {
	var (
		envFile   = flag.String("env", config.GetEnv("SUPERSURF_ENV_FILE", ""), "path to an env file to load before reading the environment")
		logLevel  = flag.String("log-level", "", "override LOG_LEVEL")
		logPretty = flag.Bool("log-pretty", false, "human-readable log output")
	)
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load env file %s: %v\n", *envFile, err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logPretty {
		cfg.LogPretty = true
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("activation_word", cfg.ActivationWord).
		Str("default_interface", cfg.DefaultInterface).
		Bool("cloud_stt", cfg.CloudSTTEnabled()).
		Bool("vision", cfg.VisionEnabled()).
		Msg("SuperSurf starting")

	registry, err := profiles.Load(cfg.InterfacesFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load interface profiles")
	}
	if _, ok := registry.Get(cfg.DefaultInterface); !ok {
		logger.Fatal().Str("interface", cfg.DefaultInterface).Msg("Default interface has no profile")
	}

	if err := audio.Initialize(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize audio subsystem")
	}
	defer audio.Terminate()

	// Audible feedback degrades to log-only when no output device exists.
	var sounds interface {
		Error()
		Attention()
		Complete()
		Say(text string)
	}
	realSounds, err := notify.NewSounds(cfg.CompletionSound)
	if err != nil {
		logger.Warn().Err(err).Msg("Audio output unavailable, feedback is log-only")
		sounds = notify.NewSilent()
	} else {
		sounds = realSounds
	}

	controller := desktop.NewController()

	// Vision features all hang off the OpenAI key.
	var (
		classifier *vision.Client
		resolver   command.Resolver
		enhancer   command.Enhancer
	)
	if cfg.VisionEnabled() {
		classifier, err = vision.NewClient(cfg.OpenAIAPIKey, cfg.VisionModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create vision client")
		}
		r := vision.NewResolver(classifier, controller, cfg.ScreenshotsDir, cfg.MaxScreenshots)
		resolver = r
		enhancer = classifier
	} else {
		logger.Warn().Msg("OPENAI_API_KEY not set: learn, monitoring, and enhancement are disabled")
	}

	// Transcription backends: cloud preferred, local fallback.
	var primary, fallback stt.Backend
	if cfg.CloudSTTEnabled() {
		dg, err := stt.NewDeepgramBackend(cfg.DeepgramAPIKey, cfg.DeepgramModel, cfg.DeepgramLanguage)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create Deepgram backend")
		}
		primary = dg
	} else {
		logger.Warn().Msg("DEEPGRAM_API_KEY not set: cloud transcription disabled")
	}
	if cfg.WhisperModelPath != "" {
		wh, err := stt.NewWhisperBackend(cfg.WhisperModelPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.WhisperModelPath).
				Msg("Local whisper model unavailable")
		} else {
			fallback = wh
			defer wh.Close()
		}
	}
	if primary == nil && fallback == nil {
		logger.Fatal().Msg("No transcription backend available; set DEEPGRAM_API_KEY or WHISPER_MODEL_PATH")
	}

	monitorCfg := monitor.Config{
		Interval:              time.Duration(cfg.MonitorInterval * float64(time.Second)),
		MaxInterval:           time.Duration(cfg.MonitorMaxInterval * float64(time.Second)),
		StartDelay:            time.Duration(cfg.MonitorStartDelay * float64(time.Second)),
		UserInputWait:         time.Duration(cfg.MonitorUserInputWait * float64(time.Second)),
		MaxStillWorkingChecks: cfg.MonitorMaxStillChecks,
		ScreenshotsDir:        cfg.ScreenshotsDir,
		MaxScreenshots:        cfg.MaxScreenshots,
	}
	var monitorClassifier monitor.Classifier
	if classifier != nil {
		monitorClassifier = classifier
	}
	starter := monitor.NewStarter(monitorCfg, monitorClassifier, controller, sounds)

	session := command.NewSession(cfg.DefaultInterface, cfg.CommandHistoryCap)
	dispatcher := command.NewDispatcher(registry, session, command.Deps{
		Resolver: resolver,
		Enhancer: enhancer,
		Input:    controller,
		Windows:  controller,
		Sounds:   sounds,
		Monitors: starter,
	}, cfg.EnhancePrompts)

	broadcaster := overlay.NewBroadcaster()
	defer broadcaster.Close()

	p := pipeline.New(cfg, pipeline.Deps{
		Source:   audio.Microphone(cfg.SampleRate, cfg.ChunkSize),
		Primary:  primary,
		Fallback: fallback,
		Executor: dispatcher,
		Status:   pipeline.MultiSink{pipeline.NewLogSink(), broadcaster},
	})

	// Resolve the default interface's targets up front so the first type
	// command does not pay the vision round trip.
	if resolver != nil {
		initCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		if err := dispatcher.InitializeInterface(initCtx, cfg.DefaultInterface); err != nil {
			logger.Warn().Err(err).Str("interface", cfg.DefaultInterface).
				Msg("Initial coordinate resolution incomplete")
		}
		cancel()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(map[string]observability.HealthCheckFunc{
		"pipeline": func(ctx context.Context) (bool, error) {
			// Ready unless the gate is stuck closed; a paused gate during a
			// command is normal, so this only reports the state.
			return true, nil
		},
	}))
	mux.Handle("/overlay", broadcaster)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipelineDone := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(pipelineDone)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info().Msg("Shutting down on signal")
		p.Stop()
	case <-pipelineDone:
		logger.Info().Msg("Pipeline stopped, shutting down")
	}

	cancel()
	<-pipelineDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	logger.Info().Msg("SuperSurf stopped")
}
