package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	grpcapi "interview-assistant/internal/api/grpc"
	"interview-assistant/internal/app"
	"interview-assistant/internal/config"
	"interview-assistant/internal/events"
	apihttp "interview-assistant/internal/http"
	"interview-assistant/internal/observability"
	"interview-assistant/internal/observability/logging"
	"interview-assistant/internal/observability/metrics"
	"interview-assistant/internal/service/answer"
	answermock "interview-assistant/internal/service/answer/mock"
	"interview-assistant/internal/service/answer/openai"
	"interview-assistant/internal/service/audio"
	"interview-assistant/internal/service/audio/portaudio"
	"interview-assistant/internal/service/pipeline"
	"interview-assistant/internal/service/relay"
	"interview-assistant/internal/service/segment"
	"interview-assistant/internal/service/stt"
	"interview-assistant/internal/service/stt/google"
	sttmock "interview-assistant/internal/service/stt/mock"
	"interview-assistant/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Optional YAML config file")
	autoStart := flag.Bool("start", false, "Start recording as soon as the threshold is set")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: .env not loaded: %v\n", err)
	}

	cfg := config.Load()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config:\n%v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	if err := run(cfg, *autoStart); err != nil {
		log.Fatal().Err(err).Msg("Interview assistant stopped")
	}
}

func run(cfg *config.Config, autoStart bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, format, mediaClock, err := newSource(cfg)
	if err != nil {
		return err
	}

	transcriber, closeSTT, err := newTranscriber(ctx, cfg, format)
	if err != nil {
		return err
	}
	defer closeSTT()

	generator := newGenerator(cfg)

	publisher := events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicQuestions: cfg.Kafka.TopicQuestions,
		TopicAnswers:   cfg.Kafka.TopicAnswers,
		Principal:      cfg.Kafka.Principal,
	})
	defer publisher.Close()

	var (
		history     relay.History
		sessionLog  app.SessionHistory
		historyRead apihttp.History
	)
	if cfg.Store.Path != "" {
		db, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		history, sessionLog, historyRead = db, db, db
	}

	recorder := app.NewRecorder(src, transcriber, generator, relay.New(publisher, history, cfg.Kafka.Principal), sessionLog, app.RecorderConfig{
		Format:        format,
		FrameSize:     cfg.Audio.FrameSize,
		FramesPerRead: cfg.Audio.FramesPerRead,
		PauseDuration: cfg.Silence.PauseDuration,
		FlushOnStop:   cfg.Silence.FlushOnStop,
		MediaClock:    mediaClock,
		UpdateBuffer:  cfg.Dispatch.UpdateBuffer,
		Dispatch: pipeline.Config{
			QueueSize:         cfg.Dispatch.QueueSize,
			AnswerConcurrency: cfg.Dispatch.AnswerConcurrency,
			Normalize:         cfg.Audio.Normalize,
		},
	})

	application := app.New(cfg, recorder)
	if err := application.Start(); err != nil {
		return err
	}

	metricsServer := observability.NewServer(cfg.Observability.MetricsAddr, application.Ready)
	metricsServer.Start()

	grpcServer := grpcapi.New(metrics.DefaultMetrics)
	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	apiServer := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           apihttp.NewRouter(application, historyRead),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		log.Info().Str("addr", apiServer.Addr).Msg("Control API started")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := setThreshold(gctx, cfg, recorder); err != nil {
			return err
		}
		grpcServer.SetServing(true)
		if autoStart {
			if _, err := recorder.Start(gctx); err != nil {
				return err
			}
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		grpcServer.SetServing(false)
		if err := application.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Recording did not finish cleanly")
		}
		_ = apiServer.Shutdown(shutdownCtx)
		_ = metricsServer.Shutdown(shutdownCtx)
		grpcServer.Stop()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newSource returns the capture source, the format to record in and whether
// frames are stamped by stream position.
func newSource(cfg *config.Config) (audio.Source, segment.Format, bool, error) {
	switch cfg.Audio.Source {
	case "wav":
		format, err := audio.ProbeWAV(cfg.Audio.WAVPath)
		if err != nil {
			return nil, segment.Format{}, false, fmt.Errorf("%w: %v", audio.ErrSourceUnavailable, err)
		}
		return &audio.WAVSource{Path: cfg.Audio.WAVPath}, format, true, nil
	default:
		format := segment.PCM16(cfg.Audio.SampleRate, cfg.Audio.Channels)
		return &portaudio.Source{DeviceName: cfg.Audio.DeviceName}, format, false, nil
	}
}

func newTranscriber(ctx context.Context, cfg *config.Config, format segment.Format) (stt.Transcriber, func(), error) {
	if cfg.STT.Provider != "google" {
		return sttmock.New(), func() {}, nil
	}

	adapter, err := google.New(ctx, google.Config{
		LanguageCode:    cfg.STT.LanguageCode,
		SampleRateHz:    format.SampleRate,
		AudioEncoding:   cfg.STT.AudioEncoding,
		CredentialsFile: cfg.STT.CredentialsFile,
		TempDir:         cfg.STT.TempDir,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create speech client: %w", err)
	}
	return adapter, func() { _ = adapter.Close() }, nil
}

func newGenerator(cfg *config.Config) answer.Generator {
	if cfg.LLM.Provider != "openai" {
		return answermock.New()
	}
	return openai.New(openai.Config{
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		BaseURL:   cfg.LLM.BaseURL,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
	})
}

func setThreshold(ctx context.Context, cfg *config.Config, recorder *app.Recorder) error {
	strategy, err := segment.ParseStrategy(cfg.Silence.Mode)
	if err != nil {
		return err
	}
	if strategy == segment.StrategyFixed {
		recorder.SetThreshold(segment.FixedThreshold(cfg.Silence.Threshold))
		return nil
	}

	_, err = recorder.Calibrate(ctx, segment.CalibrationParams{
		Frames:     cfg.Silence.CalibrationFrames,
		Multiplier: cfg.Silence.CalibrationMultiplier,
		Floor:      cfg.Silence.CalibrationFloor,
	})
	return err
}
