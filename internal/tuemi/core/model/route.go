package model

import "time"

// Route is a named line served by the fleet.
type Route struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Stop is a boarding point of a route. Sequence orders the stops along the route.
type Stop struct {
	ID        string  `json:"id"`
	RouteID   string  `json:"routeId"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Sequence  int     `json:"sequence"`
}
