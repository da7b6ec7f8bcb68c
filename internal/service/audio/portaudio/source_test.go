package portaudio

import (
	"testing"

	"github.com/gordonklaus/portaudio"
)

func TestFindDevice(t *testing.T) {
	devices := []*portaudio.DeviceInfo{
		{Name: "Built-in Output", MaxInputChannels: 0},
		{Name: "MacBook Pro Microphone", MaxInputChannels: 1},
		{Name: "BlackHole 2ch", MaxInputChannels: 2},
		{Name: "CABLE Output (VB-Audio Virtual Cable)", MaxInputChannels: 2},
		{Name: "CABLE Input (VB-Audio Virtual Cable)", MaxInputChannels: 0},
	}

	tests := []struct {
		name     string
		query    string
		expected string
		wantErr  bool
	}{
		{"mac loopback", "BlackHole", "BlackHole 2ch", false},
		{"windows loopback", "CABLE Output", "CABLE Output (VB-Audio Virtual Cable)", false},
		{"case insensitive", "blackhole", "BlackHole 2ch", false},
		{"skips output-only devices", "Built-in Output", "", true},
		{"missing", "Soundflower", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := findDevice(devices, tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("findDevice() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.Name != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got.Name)
			}
		})
	}
}

func TestDefaultDeviceName(t *testing.T) {
	if DefaultDeviceName() == "" {
		t.Error("expected a platform default device name")
	}
}
