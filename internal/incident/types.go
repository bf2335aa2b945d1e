// Package incident classifies vehicle telemetry into operational incidents.
//
// Evaluate is a pure function: it keeps no state between calls and performs no I/O,
// so it can be called concurrently for any number of vehicles. Anything stateful
// (stop timers, baselines, persistence) belongs to the caller.
package incident

import (
	"errors"
	"time"

	"github.com/tuemi-io/tuemi/pkg/geo"
)

// Kind identifies the class of a detected incident.
type Kind string

const (
	KindProlongedStop  Kind = "prolonged_stop"
	KindOvercapacity   Kind = "overcapacity"
	KindRouteDeviation Kind = "route_deviation"
)

// Kinds lists every incident kind in evaluation order.
var Kinds = []Kind{KindOvercapacity, KindProlongedStop, KindRouteDeviation}

// Valid reports whether k is a known incident kind.
func (k Kind) Valid() bool {
	switch k {
	case KindProlongedStop, KindOvercapacity, KindRouteDeviation:
		return true
	}
	return false
}

var (
	// ErrInvalidPosition is returned when a coordinate is non-finite or out of range.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrInvalidInput is returned for non-finite speeds or negative counts.
	ErrInvalidInput = errors.New("invalid input")
)

// Position is a timestamped location in decimal degrees.
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// Point drops the timestamp.
func (p Position) Point() geo.Point {
	return geo.Point{Lat: p.Latitude, Lng: p.Longitude}
}

// Input is a single evaluation request.
type Input struct {
	Current Position `json:"current"`

	// LastKnownGood is the most recent on-route position. Route deviation is
	// only evaluated when it is set.
	LastKnownGood *Position `json:"lastKnownGood,omitempty"`

	// Speed and AverageSpeed are in km/h. AverageSpeed does not take part in the decision.
	Speed        float64 `json:"speed"`
	AverageSpeed float64 `json:"averageSpeed"`

	Passengers int `json:"passengers"`
	Capacity   int `json:"capacity"`

	// StoppedSince is when the vehicle was first seen at or below the stop speed.
	// Only consulted when Thresholds.StopDuration is positive.
	StoppedSince *time.Time `json:"stoppedSince,omitempty"`
}

// Verdict is the outcome of an evaluation.
type Verdict struct {
	Detected bool   `json:"detected"`
	Kind     Kind   `json:"kind,omitempty"`
	Details  string `json:"details,omitempty"`

	// Kinds holds every rule that fired, in evaluation order. Kind is the last of them.
	Kinds []Kind `json:"kinds,omitempty"`

	// Findings pairs each kind in Kinds with its own details.
	Findings []Finding `json:"findings,omitempty"`
}

// Finding is one rule that fired.
type Finding struct {
	Kind    Kind   `json:"kind"`
	Details string `json:"details"`
}

// Only narrows v to the finding of kind, or to nothing when kind did not fire.
func (v Verdict) Only(kind Kind) Verdict {
	for _, f := range v.Findings {
		if f.Kind == kind {
			return Verdict{Detected: true, Kind: kind, Details: f.Details, Kinds: []Kind{kind}, Findings: []Finding{f}}
		}
	}
	return Verdict{}
}

// Has reports whether kind fired in this verdict.
func (v Verdict) Has(kind Kind) bool {
	for _, k := range v.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}
