package segment

import (
	"encoding/binary"
	"math"
	"testing"
)

// constFrame builds n samples all set to v.
func constFrame(n int, v int16) []byte {
	b := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(v))
	}
	return b
}

func TestRMS(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		want  float64
	}{
		{"empty", nil, 0},
		{"single byte", []byte{0x7f}, 0},
		{"constant positive", constFrame(64, 200), 200},
		{"constant negative", constFrame(64, -200), 200},
		{"zeros", constFrame(64, 0), 0},
		{"mixed", append(constFrame(1, 3), constFrame(1, -4)...), math.Sqrt(12.5)},
		{"min int16", constFrame(4, math.MinInt16), 32768},
		{"odd trailing byte ignored", append(constFrame(2, 100), 0xff), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RMS(tt.frame)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RMS() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsSilent(t *testing.T) {
	tests := []struct {
		name      string
		frame     []byte
		threshold float64
		want      bool
	}{
		{"nil frame", nil, 100, true},
		{"empty frame", []byte{}, 100, true},
		{"empty frame zero threshold", []byte{}, 0, true},
		{"below threshold", constFrame(32, 99), 100, true},
		{"at threshold", constFrame(32, 100), 100, false},
		{"above threshold", constFrame(32, 101), 100, false},
		{"negative samples above threshold", constFrame(32, -150), 100, false},
		{"zero threshold never silent", constFrame(32, 0), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSilent(tt.frame, tt.threshold); got != tt.want {
				t.Errorf("IsSilent() = %v, want %v", got, tt.want)
			}
		})
	}
}
