package segment

import (
	"encoding/binary"
	"math"
)

// RMS returns the root-mean-square amplitude of little-endian signed 16-bit
// samples. A trailing odd byte is ignored. An empty frame has RMS 0.
func RMS(frame []byte) float64 {
	n := len(frame) / 2
	if n == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(frame[2*i:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// IsSilent reports whether the frame's RMS is below threshold.
// Empty or nil frames are silent so that garbage never reaches a buffer.
func IsSilent(frame []byte, threshold float64) bool {
	if len(frame) < 2 {
		return true
	}
	return RMS(frame) < threshold
}
