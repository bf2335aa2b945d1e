package incident

import (
	"fmt"
	"math"
	"time"

	"github.com/tuemi-io/tuemi/pkg/geo"
)

// Evaluate classifies one telemetry sample.
//
// Overcapacity, prolonged stop and route deviation are checked independently and
// in that order. Every rule that fires is recorded in Verdict.Kinds; Kind and
// Details belong to the last one, so a deviation overrides the others.
func Evaluate(in Input, th Thresholds) (Verdict, error) {
	if err := validate(in); err != nil {
		return Verdict{}, err
	}

	var v Verdict
	at := describe(in.Current)

	if in.Passengers > in.Capacity {
		v.fire(KindOvercapacity, fmt.Sprintf(
			"overcapacity: %d passengers on board exceeds capacity of %d at %s",
			in.Passengers, in.Capacity, at))
	}

	if stopped, dwell := stoppedLongEnough(in, th); stopped {
		details := fmt.Sprintf("prolonged stop: vehicle reported %.1f km/h at %s", in.Speed, at)
		if dwell > 0 {
			details = fmt.Sprintf("prolonged stop: vehicle stationary for %s at %s", dwell.Round(time.Second), at)
		}
		v.fire(KindProlongedStop, details)
	}

	if in.LastKnownGood != nil {
		distance := geo.Distance(in.LastKnownGood.Point(), in.Current.Point())
		if distance > th.DeviationMeters {
			v.fire(KindRouteDeviation, fmt.Sprintf(
				"route deviation: %.0f m from last known good position %s recorded %s; current position %s",
				distance, in.LastKnownGood.Point(), formatTime(in.LastKnownGood.Timestamp), at))
		}
	}

	return v, nil
}

// Distance is the deviation distance in meters for in, or zero without a baseline.
func Distance(in Input) float64 {
	if in.LastKnownGood == nil {
		return 0
	}
	return geo.Distance(in.LastKnownGood.Point(), in.Current.Point())
}

func (v *Verdict) fire(kind Kind, details string) {
	v.Detected = true
	v.Kind = kind
	v.Details = details
	v.Kinds = append(v.Kinds, kind)
	v.Findings = append(v.Findings, Finding{Kind: kind, Details: details})
}

func stoppedLongEnough(in Input, th Thresholds) (bool, time.Duration) {
	if in.Speed > th.StopSpeed {
		return false, 0
	}
	if th.StopDuration <= 0 {
		return true, 0
	}
	if in.StoppedSince == nil {
		return false, 0
	}
	dwell := in.Current.Timestamp.Sub(*in.StoppedSince)
	return dwell >= th.StopDuration, dwell
}

func validate(in Input) error {
	if !in.Current.Point().Valid() {
		return fmt.Errorf("%w: current position %v,%v", ErrInvalidPosition, in.Current.Latitude, in.Current.Longitude)
	}
	if in.LastKnownGood != nil && !in.LastKnownGood.Point().Valid() {
		return fmt.Errorf("%w: last known good position %v,%v", ErrInvalidPosition, in.LastKnownGood.Latitude, in.LastKnownGood.Longitude)
	}
	if math.IsNaN(in.Speed) || math.IsInf(in.Speed, 0) || in.Speed < 0 {
		return fmt.Errorf("%w: speed %v", ErrInvalidInput, in.Speed)
	}
	if in.Passengers < 0 || in.Capacity < 0 {
		return fmt.Errorf("%w: passengers %d, capacity %d", ErrInvalidInput, in.Passengers, in.Capacity)
	}
	return nil
}

// describe renders the current coordinates and timestamp for manual verification.
func describe(p Position) string {
	return fmt.Sprintf("%s on %s", p.Point(), formatTime(p.Timestamp))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown time"
	}
	return t.UTC().Format(time.RFC3339)
}
