package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"interview-assistant/internal/service/segment"
)

func TestWAV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "utt.wav")
	format := segment.PCM16(16000, 1)
	data := pcm(0, 100, -100, 32767, -32768, 5, 6, 7, 8, 9)

	if err := WriteWAVFile(path, data, format); err != nil {
		t.Fatalf("WriteWAVFile: %v", err)
	}

	probed, err := ProbeWAV(path)
	if err != nil {
		t.Fatalf("ProbeWAV: %v", err)
	}
	if probed != format {
		t.Errorf("expected format %+v, got %+v", format, probed)
	}

	stream, err := (&WAVSource{Path: path}).Open(context.Background(), format, 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close()

	var got []byte
	var frames int
	for {
		frame, err := stream.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		frames++
		got = append(got, frame...)
	}

	if !bytes.Equal(got, data) {
		t.Errorf("decoded samples differ from encoded ones")
	}
	if frames != 3 {
		t.Errorf("expected 3 frames (4+4+2 samples), got %d", frames)
	}
}

func TestWAVSource_FormatMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	if err := WriteWAVFile(path, pcm(1, 2, 3, 4), segment.PCM16(44100, 2)); err != nil {
		t.Fatalf("WriteWAVFile: %v", err)
	}

	_, err := (&WAVSource{Path: path}).Open(context.Background(), segment.PCM16(16000, 1), 4)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestWAVSource_NotAWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(path, []byte("definitely not riff"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := (&WAVSource{Path: path}).Open(context.Background(), segment.PCM16(16000, 1), 4)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
}
