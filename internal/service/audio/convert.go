package audio

import (
	"encoding/binary"
	"math"

	"interview-assistant/internal/service/segment"
)

// StereoToMono averages each interleaved L/R int16 pair into one sample.
// A trailing incomplete pair is dropped.
func StereoToMono(pcm []byte) []byte {
	out := make([]byte, (len(pcm)/4)*2)
	for i, j := 0, 0; i+3 < len(pcm); i, j = i+4, j+2 {
		l := int32(int16(binary.LittleEndian.Uint16(pcm[i:])))
		r := int32(int16(binary.LittleEndian.Uint16(pcm[i+2:])))
		binary.LittleEndian.PutUint16(out[j:], uint16(int16((l+r)/2)))
	}
	return out
}

// Normalize scales samples so the loudest one reaches target (0..1 of full
// scale). Silent input is returned unchanged.
func Normalize(pcm []byte, target float64) []byte {
	n := len(pcm) / 2
	var peak float64
	for i := 0; i < n; i++ {
		v := math.Abs(float64(int16(binary.LittleEndian.Uint16(pcm[2*i:]))))
		peak = math.Max(peak, v)
	}
	if peak == 0 {
		return pcm
	}

	gain := target * math.MaxInt16 / peak
	out := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[2*i:]))) * gain
		v = math.Max(math.MinInt16, math.Min(math.MaxInt16, math.Round(v)))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}

// Preprocess prepares an utterance for transcription: downmix to mono and,
// when normalize is set, peak-normalise to 90% of full scale.
func Preprocess(u segment.Utterance, normalize bool) segment.Utterance {
	if u.Format.Channels == 2 {
		u.Data = StereoToMono(u.Data)
		u.Format.Channels = 1
	}
	if normalize {
		u.Data = Normalize(u.Data, 0.9)
	}
	return u
}
