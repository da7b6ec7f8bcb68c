// Package app wires the recorder into a process-wide application.
package app

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"interview-assistant/internal/config"
)

const serviceName = "interview-assistant"

// Application holds process-wide state for the assistant.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config
	Recorder    *Recorder
}

// New constructs an Application around a configured recorder.
func New(cfg *config.Config, recorder *Recorder) *Application {
	a := &Application{
		Cfg:      cfg,
		Recorder: recorder,
	}
	a.setupLogger()

	a.Logger.Info().
		Str("method", "New").
		Str("audioSource", cfg.Audio.Source).
		Str("stt", cfg.STT.Provider).
		Str("llm", cfg.LLM.Provider).
		Msg("Interview assistant application created")
	return a
}

// setupLogger builds the application logger. ZEROLOG_LOG_LEVEL overrides the
// configured level; ENV=dev switches to console output.
func (a *Application) setupLogger() {
	level := zerolog.InfoLevel
	if a.Cfg != nil {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(a.Cfg.Observability.LogLevel)); err == nil {
			level = parsed
		}
	}
	if envLevel := os.Getenv("ZEROLOG_LOG_LEVEL"); envLevel != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(envLevel)); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)

	base := zerolog.New(os.Stdout)
	if os.Getenv("ENV") == "dev" {
		base = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	a.Logger = base.With().
		Timestamp().
		Str("service", serviceName).
		Str("component", "application").
		Logger()

	a.Logger.Debug().
		Str("logLevel", level.String()).
		Str("environment", os.Getenv("ENV")).
		Msg("Logger setup completed")
}

// Ready reports whether the recorder has a silence threshold.
func (a *Application) Ready() bool {
	return a.Recorder != nil && a.Recorder.Ready()
}

// Start records the startup time.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Str("method", "Start").
		Time("startupTime", a.StartupTime).
		Msg("Interview assistant starting")
	return nil
}

// Shutdown stops any recording in progress, waiting at most until ctx ends.
func (a *Application) Shutdown(ctx context.Context) error {
	a.Logger.Info().Str("method", "Shutdown").Msg("Interview assistant shutting down")
	if a.Recorder == nil {
		return nil
	}
	return a.Recorder.Shutdown(ctx)
}
