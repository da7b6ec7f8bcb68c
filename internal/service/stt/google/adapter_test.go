package google

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"

	"interview-assistant/internal/service/segment"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.LanguageCode)
	}
	if cfg.SampleRateHz != 48000 {
		t.Errorf("expected default sample rate 48000, got %d", cfg.SampleRateHz)
	}
	if cfg.AudioEncoding != "LINEAR16" {
		t.Errorf("expected default encoding 'LINEAR16', got %s", cfg.AudioEncoding)
	}
}

func TestParseAudioEncoding(t *testing.T) {
	tests := []struct {
		input    string
		expected speechpb.RecognitionConfig_AudioEncoding
	}{
		{"LINEAR16", speechpb.RecognitionConfig_LINEAR16},
		{"MULAW", speechpb.RecognitionConfig_MULAW},
		{"FLAC", speechpb.RecognitionConfig_FLAC},
		{"AMR", speechpb.RecognitionConfig_AMR},
		{"AMR_WB", speechpb.RecognitionConfig_AMR_WB},
		{"OGG_OPUS", speechpb.RecognitionConfig_OGG_OPUS},
		{"SPEEX_WITH_HEADER_BYTE", speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE},
		{"WEBM_OPUS", speechpb.RecognitionConfig_WEBM_OPUS},
		{"UNKNOWN", speechpb.RecognitionConfig_LINEAR16}, // fallback
		{"linear16", speechpb.RecognitionConfig_LINEAR16}, // lowercase -> fallback
		{"", speechpb.RecognitionConfig_LINEAR16},         // fallback
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseAudioEncoding(tt.input)
			if got != tt.expected {
				t.Errorf("parseAudioEncoding(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func testUtterance() segment.Utterance {
	return segment.Utterance{
		ID:     "sess-utt-1",
		Data:   []byte{1, 0, 2, 0, 3, 0, 4, 0},
		Format: segment.PCM16(16000, 1),
	}
}

func TestAdapter_Transcribe(t *testing.T) {
	tmp := t.TempDir()
	cfg := DefaultConfig()
	cfg.TempDir = tmp

	var got *speechpb.RecognizeRequest
	a := newAdapter(cfg, func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		got = req
		return &speechpb.RecognizeResponse{
			Results: []*speechpb.SpeechRecognitionResult{
				{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "What is a goroutine", Confidence: 0.9}}},
				{Alternatives: nil},
				{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " and when would you use one?", Confidence: 0.7}}},
			},
		}, nil
	})

	res, err := a.Transcribe(context.Background(), testUtterance())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if res.Text != "What is a goroutine and when would you use one?" {
		t.Errorf("unexpected text %q", res.Text)
	}
	if res.Confidence < 0.79 || res.Confidence > 0.81 {
		t.Errorf("expected mean confidence 0.8, got %v", res.Confidence)
	}

	if got.Config.SampleRateHertz != 16000 {
		t.Errorf("expected utterance sample rate 16000, got %d", got.Config.SampleRateHertz)
	}
	if got.Config.LanguageCode != "en-US" {
		t.Errorf("expected language 'en-US', got %s", got.Config.LanguageCode)
	}
	content := got.Audio.GetContent()
	if !bytes.HasPrefix(content, []byte("RIFF")) {
		t.Error("expected WAV content")
	}
	if !bytes.HasSuffix(content, testUtterance().Data) {
		t.Error("expected PCM samples at the end of the WAV payload")
	}

	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected temp WAV to be removed, found %d files", len(entries))
	}
}

func TestAdapter_Transcribe_Error(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TempDir = t.TempDir()

	a := newAdapter(cfg, func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return nil, errors.New("quota exceeded")
	})

	if _, err := a.Transcribe(context.Background(), testUtterance()); err == nil {
		t.Error("expected error")
	}
}

func TestAdapter_Transcribe_NoResults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TempDir = t.TempDir()

	a := newAdapter(cfg, func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return &speechpb.RecognizeResponse{}, nil
	})

	res, err := a.Transcribe(context.Background(), testUtterance())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "" {
		t.Errorf("expected empty text, got %q", res.Text)
	}
}

func TestAdapter_CloseWithoutClient(t *testing.T) {
	a := newAdapter(DefaultConfig(), nil)
	if err := a.Close(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}
