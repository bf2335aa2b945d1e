package incident

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

const (
	DefaultStopSpeed       = 0.0
	DefaultDeviationMeters = 500.0
)

// Thresholds are the policy constants of the heuristic.
type Thresholds struct {
	// StopSpeed is the speed in km/h at or below which a vehicle counts as stopped.
	StopSpeed float64 `json:"stopSpeed" mapstructure:"stop-speed"`

	// DeviationMeters is the distance from the last known good position beyond which
	// the vehicle is considered off route.
	DeviationMeters float64 `json:"deviationMeters" mapstructure:"deviation-meters"`

	// StopDuration is how long a vehicle must stay stopped before a prolonged stop
	// is reported. Zero reports any single stopped sample.
	StopDuration time.Duration `json:"stopDuration" mapstructure:"stop-duration"`
}

// DefaultThresholds returns the stock policy: stop at 0 km/h, deviate beyond 500 m,
// no stop duration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StopSpeed:       DefaultStopSpeed,
		DeviationMeters: DefaultDeviationMeters,
	}
}

// Validate checks that every threshold is finite and non-negative.
func (t Thresholds) Validate() error {
	if math.IsNaN(t.StopSpeed) || math.IsInf(t.StopSpeed, 0) || t.StopSpeed < 0 {
		return fmt.Errorf("stop speed must be a non-negative number, got %v", t.StopSpeed)
	}
	if math.IsNaN(t.DeviationMeters) || math.IsInf(t.DeviationMeters, 0) || t.DeviationMeters <= 0 {
		return fmt.Errorf("deviation threshold must be a positive number, got %v", t.DeviationMeters)
	}
	if t.StopDuration < 0 {
		return fmt.Errorf("stop duration must not be negative, got %s", t.StopDuration)
	}
	return nil
}

// ThresholdSource yields the thresholds to use for the next evaluation.
type ThresholdSource interface {
	Thresholds() Thresholds
}

// Static is a fixed ThresholdSource.
type Static Thresholds

func (s Static) Thresholds() Thresholds { return Thresholds(s) }

// LiveThresholds is a ThresholdSource that can be swapped at runtime, e.g. on config reload.
type LiveThresholds struct {
	current atomic.Pointer[Thresholds]
}

// NewLiveThresholds creates a LiveThresholds seeded with t.
func NewLiveThresholds(t Thresholds) *LiveThresholds {
	l := &LiveThresholds{}
	l.current.Store(&t)
	return l
}

func (l *LiveThresholds) Thresholds() Thresholds {
	return *l.current.Load()
}

// Store replaces the thresholds after validating them. Invalid values are rejected
// and the previous thresholds stay in effect.
func (l *LiveThresholds) Store(t Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	l.current.Store(&t)
	return nil
}
