// Package portaudio captures frames from a PortAudio input device, typically a
// loopback device carrying the remote side of a call.
package portaudio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"interview-assistant/internal/observability/logging"
	"interview-assistant/internal/service/audio"
	"interview-assistant/internal/service/segment"
)

// DefaultInput selects the host's default input device instead of a named one.
const DefaultInput = "default"

// DefaultDeviceName returns the loopback device expected on this platform.
func DefaultDeviceName() string {
	if runtime.GOOS == "windows" {
		return "CABLE Output"
	}
	return "BlackHole"
}

// Source opens blocking PortAudio input streams.
type Source struct {
	// DeviceName is matched as a substring of the device name. Empty uses
	// DefaultDeviceName.
	DeviceName string
}

func (s *Source) Open(ctx context.Context, format segment.Format, frameSize int) (audio.Stream, error) {
	logger := logging.WithComponent("portaudio")

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	dev, err := s.device()
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	if dev.MaxInputChannels < format.Channels {
		portaudio.Terminate()
		return nil, fmt.Errorf("device %q has %d input channels, need %d", dev.Name, dev.MaxInputChannels, format.Channels)
	}

	params := portaudio.HighLatencyParameters(dev, nil)
	params.Input.Channels = format.Channels
	params.Output.Channels = 0
	params.SampleRate = float64(format.SampleRate)
	params.FramesPerBuffer = frameSize

	buf := make([]int16, frameSize*format.Channels)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open stream on %q: %w", dev.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start stream on %q: %w", dev.Name, err)
	}

	logger.Info().
		Str("device", dev.Name).
		Int("sampleRate", format.SampleRate).
		Int("channels", format.Channels).
		Int("frameSize", frameSize).
		Msg("Audio device opened")

	return &stream16{stream: stream, buf: buf, logger: logger}, nil
}

func (s *Source) device() (*portaudio.DeviceInfo, error) {
	name := s.DeviceName
	if name == "" {
		name = DefaultDeviceName()
	}
	if strings.EqualFold(name, DefaultInput) {
		return portaudio.DefaultInputDevice()
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return findDevice(devices, name)
}

// findDevice returns the first input-capable device whose name contains name.
func findDevice(devices []*portaudio.DeviceInfo, name string) (*portaudio.DeviceInfo, error) {
	needle := strings.ToLower(name)
	for _, d := range devices {
		if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), needle) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("device %q not found", name)
}

type stream16 struct {
	stream *portaudio.Stream
	buf    []int16
	logger zerolog.Logger
}

// ReadFrame blocks for one buffer. An input overflow still delivers the
// buffer; the lost samples are gone either way.
func (s *stream16) ReadFrame() ([]byte, error) {
	if err := s.stream.Read(); err != nil {
		if !errors.Is(err, portaudio.InputOverflowed) {
			return nil, fmt.Errorf("%w: %v", audio.ErrFrameRead, err)
		}
		s.logger.Debug().Msg("Input overflowed")
	}

	out := make([]byte, 2*len(s.buf))
	for i, v := range s.buf {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out, nil
}

func (s *stream16) Close() error {
	stopErr := s.stream.Stop()
	closeErr := s.stream.Close()
	termErr := portaudio.Terminate()
	return errors.Join(stopErr, closeErr, termErr)
}
