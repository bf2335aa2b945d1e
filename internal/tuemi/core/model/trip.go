package model

import "time"

// TripStatus is a phase of the trip lifecycle.
type TripStatus string

const (
	TripScheduled  TripStatus = "scheduled"
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
	TripCancelled  TripStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s TripStatus) Terminal() bool {
	return s == TripCompleted || s == TripCancelled
}

// Trip is one run of a vehicle along a route.
type Trip struct {
	ID          string     `json:"id"`
	RouteID     string     `json:"routeId"`
	VehicleID   string     `json:"vehicleId"`
	DriverID    string     `json:"driverId"`
	Status      TripStatus `json:"status"`
	ScheduledAt time.Time  `json:"scheduledAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	Passengers  int        `json:"passengers"`
}

// TripFilter narrows trip listings. Empty fields match everything.
type TripFilter struct {
	VehicleID string
	DriverID  string
	RouteID   string
	Status    TripStatus
}
