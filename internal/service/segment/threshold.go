package segment

import (
	"errors"
	"fmt"
	"math"
)

// ErrCalibration is returned when no threshold can be derived from the
// calibration samples.
var ErrCalibration = errors.New("silence calibration failed")

// Strategy names how a Threshold was obtained.
type Strategy string

const (
	StrategyFixed      Strategy = "fixed"
	StrategyCalibrated Strategy = "calibrated"
)

// ParseStrategy maps a config string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyFixed, StrategyCalibrated:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown silence threshold strategy %q", s)
	}
}

// CalibrationParams controls ambient-noise calibration.
type CalibrationParams struct {
	Frames     int     // frames sampled at startup
	Multiplier float64 // applied to the mean RMS
	Floor      float64 // minimum resulting threshold
}

// DefaultCalibration returns the parameters the assistant ships with.
func DefaultCalibration() CalibrationParams {
	return CalibrationParams{
		Frames:     10,
		Multiplier: 1.5,
		Floor:      30,
	}
}

// Threshold is the RMS level below which a frame counts as silence.
// It is immutable once built.
type Threshold struct {
	value    float64
	strategy Strategy
	samples  int
}

// FixedThreshold wraps a configured constant.
func FixedThreshold(v float64) Threshold {
	return Threshold{value: v, strategy: StrategyFixed}
}

// CalibratedThreshold derives max(mean(rms)*multiplier, floor).
func CalibratedThreshold(rms []float64, multiplier, floor float64) (Threshold, error) {
	if len(rms) == 0 {
		return Threshold{}, fmt.Errorf("%w: no calibration samples", ErrCalibration)
	}

	var sum float64
	for _, v := range rms {
		sum += v
	}
	mean := sum / float64(len(rms))

	return Threshold{
		value:    math.Max(mean*multiplier, floor),
		strategy: StrategyCalibrated,
		samples:  len(rms),
	}, nil
}

// Value returns the RMS threshold.
func (t Threshold) Value() float64 { return t.value }

// Strategy returns how the threshold was obtained.
func (t Threshold) Strategy() Strategy { return t.strategy }

// Samples returns the number of calibration frames used (0 for fixed).
func (t Threshold) Samples() int { return t.samples }

func (t Threshold) String() string {
	return fmt.Sprintf("%.2f (%s)", t.value, t.strategy)
}
