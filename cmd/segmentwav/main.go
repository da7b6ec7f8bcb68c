// segmentwav splits a 16-bit PCM WAV recording into utterances at pauses and
// writes each utterance to its own WAV file. It runs the same capture loop as
// the assistant, on stream time instead of the wall clock.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"interview-assistant/internal/observability/logging"
	"interview-assistant/internal/service/audio"
	"interview-assistant/internal/service/segment"
)

func main() {
	in := flag.String("in", "", "Path to WAV file (16-bit PCM)")
	outDir := flag.String("out", "utterances", "Directory for utterance WAV files")
	threshold := flag.Float64("threshold", 0, "Fixed silence threshold; 0 calibrates from the start of the file")
	calFrames := flag.Int("calibration-frames", 10, "Frames sampled for calibration")
	pause := flag.Duration("pause", 2*time.Second, "Silence that ends an utterance")
	frameSize := flag.Int("frame", 2048, "Samples per channel per frame")
	flush := flag.Bool("flush", true, "Write trailing speech at end of file")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console", TimeFormat: time.RFC3339})

	if *in == "" {
		fmt.Fprintln(os.Stderr, "usage: segmentwav -in recording.wav [-out dir]")
		os.Exit(2)
	}

	format, err := audio.ProbeWAV(*in)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read WAV header")
	}
	log.Info().
		Str("file", *in).
		Int("sampleRate", format.SampleRate).
		Int("channels", format.Channels).
		Msg("WAV file")

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create output directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := &audio.WAVSource{Path: *in}

	th := segment.FixedThreshold(*threshold)
	if *threshold <= 0 {
		params := segment.DefaultCalibration()
		params.Frames = *calFrames
		th, err = audio.Calibrate(ctx, src, format, *frameSize, params)
		if err != nil {
			log.Fatal().Err(err).Msg("Calibration failed")
		}
	}

	var written int
	sink := audio.SinkFunc(func(ctx context.Context, u segment.Utterance) error {
		path := filepath.Join(*outDir, u.ID+".wav")
		if err := audio.WriteWAVFile(path, u.Data, u.Format); err != nil {
			return err
		}
		written++
		log.Info().
			Str("file", path).
			Dur("duration", u.Duration()).
			Int("frames", u.Frames).
			Msg("Wrote utterance")
		return nil
	})

	capture := audio.NewCapture(src, sink, audio.CaptureConfig{
		SessionId:     filepath.Base(*in),
		Format:        format,
		FrameSize:     *frameSize,
		FramesPerRead: 1,
		Threshold:     th,
		PauseDuration: *pause,
		FlushOnStop:   *flush,
		MediaClock:    true,
	})
	if err := capture.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to open WAV file")
	}
	<-capture.Done()

	if err := capture.Err(); err != nil {
		log.Fatal().Err(err).Msg("Segmentation failed")
	}

	stats := capture.Stats()
	log.Info().
		Int("utterances", written).
		Int64("frames", stats.Groups).
		Int64("silent", stats.Silent).
		Str("threshold", th.String()).
		Msg("Done")
}
