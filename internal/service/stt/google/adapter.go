// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"
	"fmt"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"interview-assistant/internal/observability/logging"
	"interview-assistant/internal/service/audio"
	"interview-assistant/internal/service/segment"
	"interview-assistant/internal/service/stt"
)

// Config holds the recognition parameters.
type Config struct {
	LanguageCode    string
	SampleRateHz    int // used when the utterance carries no format
	AudioEncoding   string
	CredentialsFile string // empty uses application default credentials
	TempDir         string // empty uses os.TempDir
}

// DefaultConfig returns the parameters the assistant ships with.
func DefaultConfig() Config {
	return Config{
		LanguageCode:  "en-US",
		SampleRateHz:  48000,
		AudioEncoding: "LINEAR16",
	}
}

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// Adapter implements stt.Transcriber with synchronous Recognize calls.
type Adapter struct {
	cfg       Config
	client    *speech.Client
	recognize recognizeFunc
}

var _ stt.Transcriber = (*Adapter)(nil)

// New creates a new Google STT adapter.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}

	a := newAdapter(cfg, func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return c.Recognize(ctx, req)
	})
	a.client = c
	return a, nil
}

func newAdapter(cfg Config, fn recognizeFunc) *Adapter {
	return &Adapter{cfg: cfg, recognize: fn}
}

func (a *Adapter) Name() string { return "google" }

// Transcribe writes the utterance to a temporary WAV file, sends its bytes
// to Recognize and joins the top alternative of every result.
func (a *Adapter) Transcribe(ctx context.Context, u segment.Utterance) (stt.Result, error) {
	logger := logging.WithProvider(u.ID, a.Name())

	content, err := a.wavBytes(u)
	if err != nil {
		return stt.Result{}, err
	}

	rate := u.Format.SampleRate
	if rate == 0 {
		rate = a.cfg.SampleRateHz
	}
	channels := u.Format.Channels
	if channels == 0 {
		channels = 1
	}

	resp, err := a.recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:          parseAudioEncoding(a.cfg.AudioEncoding),
			SampleRateHertz:   int32(rate),
			AudioChannelCount: int32(channels),
			LanguageCode:      a.cfg.LanguageCode,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: content},
		},
	})
	if err != nil {
		return stt.Result{}, fmt.Errorf("recognize: %w", err)
	}

	var text strings.Builder
	var confidence float64
	var n int
	for _, r := range resp.GetResults() {
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]
		text.WriteString(alt.Transcript)
		confidence += float64(alt.Confidence)
		n++
	}
	if n > 0 {
		confidence /= float64(n)
	}

	result := stt.Result{Text: strings.TrimSpace(text.String()), Confidence: confidence}
	logger.Debug().
		Int("results", n).
		Float64("confidence", result.Confidence).
		Msg("Recognize completed")

	return result, nil
}

// wavBytes round-trips the utterance through a temp WAV file, which is
// removed before returning.
func (a *Adapter) wavBytes(u segment.Utterance) ([]byte, error) {
	f, err := os.CreateTemp(a.cfg.TempDir, "utterance-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp wav: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	format := u.Format
	if format.SampleRate == 0 {
		format = segment.PCM16(a.cfg.SampleRateHz, 1)
	}
	if err := audio.EncodeWAV(f, u.Data, format); err != nil {
		f.Close()
		return nil, fmt.Errorf("encode temp wav: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	return os.ReadFile(path)
}

// Close releases the client connection.
func (a *Adapter) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// parseAudioEncoding maps a config string to the API enum. Unknown values
// fall back to LINEAR16.
func parseAudioEncoding(s string) speechpb.RecognitionConfig_AudioEncoding {
	switch s {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}
