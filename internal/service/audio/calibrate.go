package audio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"interview-assistant/internal/observability/logging"
	"interview-assistant/internal/service/segment"
)

// Calibrate samples ambient noise from src and derives a silence threshold.
// The stream is opened for the measurement only and closed before return.
//
// Read failures are skipped, up to three attempts per wanted frame. Collecting
// fewer than params.Frames frames fails with segment.ErrCalibration.
func Calibrate(ctx context.Context, src Source, format segment.Format, frameSize int, params segment.CalibrationParams) (segment.Threshold, error) {
	logger := logging.WithComponent("calibration")

	if params.Frames <= 0 {
		return segment.Threshold{}, fmt.Errorf("%w: frame count must be positive, got %d", segment.ErrCalibration, params.Frames)
	}

	stream, err := src.Open(ctx, format, frameSize)
	if err != nil {
		return segment.Threshold{}, unavailable(err)
	}
	defer stream.Close()

	levels := make([]float64, 0, params.Frames)
	for attempts := 0; len(levels) < params.Frames && attempts < 3*params.Frames; attempts++ {
		if err := ctx.Err(); err != nil {
			return segment.Threshold{}, err
		}

		frame, err := stream.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Warn().Err(err).Msg("Skipping failed calibration read")
			continue
		}
		levels = append(levels, segment.RMS(frame))
	}

	if len(levels) < params.Frames {
		return segment.Threshold{}, fmt.Errorf("%w: collected %d of %d frames", segment.ErrCalibration, len(levels), params.Frames)
	}

	threshold, err := segment.CalibratedThreshold(levels, params.Multiplier, params.Floor)
	if err != nil {
		return segment.Threshold{}, err
	}

	logger.Info().
		Int("frames", len(levels)).
		Float64("threshold", threshold.Value()).
		Msg("Silence threshold calibrated")

	return threshold, nil
}
