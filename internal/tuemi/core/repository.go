package core

import (
	"context"
	"time"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
)

// Repository groups the persistent stores. The SQLite adapter implements all of them.
type Repository interface {
	Users() UserRepository
	Sessions() SessionRepository
	Drivers() DriverRepository
	Vehicles() VehicleRepository
	Routes() RouteRepository
	Trips() TripRepository
	Telemetry() TelemetryRepository
	Incidents() IncidentRepository

	// InTx runs fn inside one transaction; the Repository passed to fn is bound to it.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	Get(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, role model.Role) ([]*model.User, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, token string) (*model.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type DriverRepository interface {
	Create(ctx context.Context, d *model.Driver) error
	Get(ctx context.Context, id string) (*model.Driver, error)
	GetByUser(ctx context.Context, userID string) (*model.Driver, error)
	List(ctx context.Context) ([]*model.Driver, error)
	Update(ctx context.Context, d *model.Driver) error
	Delete(ctx context.Context, id string) error
}

type VehicleRepository interface {
	Create(ctx context.Context, v *model.Vehicle) error
	Get(ctx context.Context, id string) (*model.Vehicle, error)
	List(ctx context.Context) ([]*model.Vehicle, error)
	Update(ctx context.Context, v *model.Vehicle) error
	Delete(ctx context.Context, id string) error
}

type RouteRepository interface {
	Create(ctx context.Context, r *model.Route) error
	Get(ctx context.Context, id string) (*model.Route, error)
	List(ctx context.Context, activeOnly bool) ([]*model.Route, error)
	Update(ctx context.Context, r *model.Route) error
	Delete(ctx context.Context, id string) error

	AddStop(ctx context.Context, s *model.Stop) error
	GetStop(ctx context.Context, id string) (*model.Stop, error)
	UpdateStop(ctx context.Context, s *model.Stop) error
	DeleteStop(ctx context.Context, id string) error
	// Stops returns the stops of routeID ordered by sequence.
	Stops(ctx context.Context, routeID string) ([]*model.Stop, error)
	// AllStops returns the stops of every active route.
	AllStops(ctx context.Context) ([]*model.Stop, error)
}

type TripRepository interface {
	Create(ctx context.Context, t *model.Trip) error
	Get(ctx context.Context, id string) (*model.Trip, error)
	List(ctx context.Context, f model.TripFilter) ([]*model.Trip, error)
	Update(ctx context.Context, t *model.Trip) error
	// ActiveForVehicle returns the in-progress trip of vehicleID or ErrNotFound.
	ActiveForVehicle(ctx context.Context, vehicleID string) (*model.Trip, error)
}

type TelemetryRepository interface {
	Append(ctx context.Context, t *model.Telemetry) error
	// Latest returns the newest sample of every vehicle.
	Latest(ctx context.Context) ([]*model.Telemetry, error)
	// ForTrip returns the samples of a trip in time order.
	ForTrip(ctx context.Context, tripID string) ([]*model.Telemetry, error)
	// AverageSpeed is the mean speed of the trip's samples so far.
	AverageSpeed(ctx context.Context, tripID string) (float64, error)

	// LastKnownGood returns the baseline position of vehicleID or ErrNotFound.
	LastKnownGood(ctx context.Context, vehicleID string) (*incident.Position, error)
	SetLastKnownGood(ctx context.Context, vehicleID string, p incident.Position) error
	ClearLastKnownGood(ctx context.Context, vehicleID string) error
}

type IncidentRepository interface {
	Create(ctx context.Context, i *model.Incident) error
	Get(ctx context.Context, id string) (*model.Incident, error)
	List(ctx context.Context, f model.IncidentFilter) ([]*model.Incident, error)
	UpdateDetails(ctx context.Context, id, details string) error
	Resolve(ctx context.Context, id string, at time.Time) error
}
