package segment

import (
	"errors"
	"testing"
)

func TestCalibratedThreshold_FloorWins(t *testing.T) {
	th, err := CalibratedThreshold([]float64{10, 10, 10}, 1.5, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if th.Value() != 30 {
		t.Errorf("expected threshold 30, got %v", th.Value())
	}
	if th.Strategy() != StrategyCalibrated {
		t.Errorf("expected calibrated strategy, got %s", th.Strategy())
	}
	if th.Samples() != 3 {
		t.Errorf("expected 3 samples, got %d", th.Samples())
	}
}

func TestCalibratedThreshold_MeanWins(t *testing.T) {
	th, err := CalibratedThreshold([]float64{40, 60}, 1.5, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if th.Value() != 75 {
		t.Errorf("expected threshold 75, got %v", th.Value())
	}
}

func TestCalibratedThreshold_NoSamples(t *testing.T) {
	_, err := CalibratedThreshold(nil, 1.5, 30)
	if !errors.Is(err, ErrCalibration) {
		t.Errorf("expected ErrCalibration, got %v", err)
	}
}

func TestFixedThreshold(t *testing.T) {
	th := FixedThreshold(42)
	if th.Value() != 42 {
		t.Errorf("expected 42, got %v", th.Value())
	}
	if th.Strategy() != StrategyFixed {
		t.Errorf("expected fixed strategy, got %s", th.Strategy())
	}
	if th.Samples() != 0 {
		t.Errorf("expected 0 samples, got %d", th.Samples())
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input   string
		want    Strategy
		wantErr bool
	}{
		{"fixed", StrategyFixed, false},
		{"calibrated", StrategyCalibrated, false},
		{"adaptive", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStrategy(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStrategy(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseStrategy(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefaultCalibration(t *testing.T) {
	p := DefaultCalibration()
	if p.Frames != 10 || p.Multiplier != 1.5 || p.Floor != 30 {
		t.Errorf("unexpected defaults: %+v", p)
	}
}
