package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"interview-assistant/internal/service/segment"
)

// WAVSource reads 16-bit PCM frames from a WAV file.
type WAVSource struct {
	Path string
}

// ProbeWAV returns the PCM format of a WAV file.
func ProbeWAV(path string) (segment.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return segment.Format{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return segment.Format{}, fmt.Errorf("%s is not a valid WAV file", path)
	}
	d.ReadInfo()
	if d.BitDepth != 16 {
		return segment.Format{}, fmt.Errorf("%s: only 16-bit WAV is supported, got %d bits", path, d.BitDepth)
	}
	return segment.PCM16(int(d.SampleRate), int(d.NumChans)), nil
}

// Open decodes the file header and positions the stream at the PCM data.
// The file must match format.
func (s *WAVSource) Open(ctx context.Context, format segment.Format, frameSize int) (Stream, error) {
	actual, err := ProbeWAV(s.Path)
	if err != nil {
		return nil, unavailable(err)
	}
	if actual != format {
		return nil, unavailable(fmt.Errorf("%s is %d Hz/%d ch, want %d Hz/%d ch",
			s.Path, actual.SampleRate, actual.Channels, format.SampleRate, format.Channels))
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, unavailable(err)
	}
	d := wav.NewDecoder(f)
	if err := d.FwdToPCM(); err != nil {
		f.Close()
		return nil, unavailable(fmt.Errorf("seek to PCM data: %w", err))
	}

	return &wavStream{
		file:    f,
		decoder: d,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
			Data:           make([]int, frameSize*format.Channels),
			SourceBitDepth: 16,
		},
	}, nil
}

type wavStream struct {
	file    *os.File
	decoder *wav.Decoder
	buf     *goaudio.IntBuffer
	done    bool
}

// ReadFrame returns the next frame. The final frame may be short.
func (s *wavStream) ReadFrame() ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrFrameRead, err)
	}
	if n == 0 {
		s.done = true
		return nil, io.EOF
	}
	if n < len(s.buf.Data) || errors.Is(err, io.EOF) {
		s.done = true
	}

	return intsToPCM16(s.buf.Data[:n]), nil
}

func (s *wavStream) Close() error {
	return s.file.Close()
}

// EncodeWAV writes pcm as a 16-bit WAV stream.
func EncodeWAV(w io.WriteSeeker, pcm []byte, format segment.Format) error {
	enc := wav.NewEncoder(w, format.SampleRate, 16, format.Channels, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: format.Channels,
			SampleRate:  format.SampleRate,
		},
		Data:           pcm16ToInts(pcm),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// WriteWAVFile creates path and encodes pcm into it.
func WriteWAVFile(path string, pcm []byte, format segment.Format) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeWAV(f, pcm, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func pcm16ToInts(pcm []byte) []int {
	out := make([]int, len(pcm)/2)
	for i := range out {
		out[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	return out
}

func intsToPCM16(samples []int) []byte {
	out := make([]byte, 2*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}
