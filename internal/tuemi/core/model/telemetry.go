package model

import (
	"time"

	"github.com/tuemi-io/tuemi/internal/incident"
)

// Telemetry is one GPS report of a vehicle. Speed is in km/h.
type Telemetry struct {
	VehicleID string    `json:"vehicleId"`
	TripID    string    `json:"tripId,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"speed"`
	Timestamp time.Time `json:"timestamp"`
}

// Position returns the timestamped location of the sample.
func (t *Telemetry) Position() incident.Position {
	return incident.Position{Latitude: t.Latitude, Longitude: t.Longitude, Timestamp: t.Timestamp}
}

// Incident is a persisted incident verdict.
type Incident struct {
	ID         string        `json:"id"`
	VehicleID  string        `json:"vehicleId"`
	TripID     string        `json:"tripId,omitempty"`
	Kind       incident.Kind `json:"kind"`
	Details    string        `json:"details"`
	Latitude   float64       `json:"latitude"`
	Longitude  float64       `json:"longitude"`
	DetectedAt time.Time     `json:"detectedAt"`
	Resolved   bool          `json:"resolved"`
	ResolvedAt *time.Time    `json:"resolvedAt,omitempty"`
}

// IncidentFilter narrows incident listings.
type IncidentFilter struct {
	VehicleID  string
	TripID     string
	Kind       incident.Kind
	Unresolved bool
	Limit      int
}
