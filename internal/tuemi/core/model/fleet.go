package model

import "time"

// Driver is a person allowed to operate vehicles. UserID links the driver to a
// portal account when they sign in.
type Driver struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId,omitempty"`
	Name          string    `json:"name"`
	LicenseNumber string    `json:"licenseNumber"`
	Phone         string    `json:"phone,omitempty"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"createdAt"`
}

// VehicleStatus is the operational state of a vehicle.
type VehicleStatus string

const (
	VehicleActive      VehicleStatus = "active"
	VehicleMaintenance VehicleStatus = "maintenance"
	VehicleInactive    VehicleStatus = "inactive"
)

// Valid reports whether s is a known status.
func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleActive, VehicleMaintenance, VehicleInactive:
		return true
	}
	return false
}

// Vehicle is a bus or van of the fleet.
type Vehicle struct {
	ID        string        `json:"id"`
	Plate     string        `json:"plate"`
	Model     string        `json:"model,omitempty"`
	Capacity  int           `json:"capacity"`
	DriverID  string        `json:"driverId,omitempty"`
	Status    VehicleStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}
