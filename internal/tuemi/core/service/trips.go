package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	fsmutil "github.com/tuemi-io/tuemi/internal/pkg/util/fsm"
	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
)

// Trip lifecycle events.
const (
	TripEventStart  = "start"
	TripEventFinish = "finish"
	TripEventCancel = "cancel"
)

// NewTrip is the input of ScheduleTrip. A zero ScheduledAt means now.
type NewTrip struct {
	RouteID     string    `json:"routeId"`
	VehicleID   string    `json:"vehicleId"`
	DriverID    string    `json:"driverId"`
	ScheduledAt time.Time `json:"scheduledAt,omitzero"`
}

// tripMachine drives one trip through scheduled → in_progress → completed,
// with cancellation allowed until the trip ends.
type tripMachine struct {
	*fsm.FSM
	trip *model.Trip
	now  time.Time
}

func newTripMachine(trip *model.Trip, now time.Time) *tripMachine {
	m := &tripMachine{trip: trip, now: now}

	events := fsm.Events{
		{Name: TripEventStart, Src: []string{string(model.TripScheduled)}, Dst: string(model.TripInProgress)},
		{Name: TripEventFinish, Src: []string{string(model.TripInProgress)}, Dst: string(model.TripCompleted)},
		{Name: TripEventCancel, Src: []string{string(model.TripScheduled), string(model.TripInProgress)}, Dst: string(model.TripCancelled)},
	}

	callbacks := fsm.Callbacks{
		"enter_" + string(model.TripInProgress): func(_ context.Context, _ *fsm.Event) {
			m.trip.StartedAt = &m.now
		},
		"enter_" + string(model.TripCompleted): m.end,
		"enter_" + string(model.TripCancelled): m.end,
		"enter_state": func(_ context.Context, e *fsm.Event) {
			m.trip.Status = model.TripStatus(e.Dst)
		},
	}

	m.FSM = fsm.NewFSM(string(trip.Status), events, callbacks)
	return m
}

func (m *tripMachine) end(_ context.Context, _ *fsm.Event) {
	m.trip.EndedAt = &m.now
}

// ScheduleTrip plans a trip of a vehicle and driver along a route.
func (s *Service) ScheduleTrip(ctx context.Context, in NewTrip) (*model.Trip, error) {
	route, err := lookup(ctx, "route", in.RouteID, s.repo.Routes().Get)
	if err != nil {
		return nil, err
	}
	if !route.Active {
		return nil, invalid("route %s is not active", route.ID)
	}

	vehicle, err := lookup(ctx, "vehicle", in.VehicleID, s.repo.Vehicles().Get)
	if err != nil {
		return nil, err
	}
	if vehicle.Status == model.VehicleInactive {
		return nil, invalid("vehicle %s is %s", vehicle.ID, vehicle.Status)
	}

	driver, err := lookup(ctx, "driver", in.DriverID, s.repo.Drivers().Get)
	if err != nil {
		return nil, err
	}
	if !driver.Active {
		return nil, invalid("driver %s is not active", driver.ID)
	}

	t := &model.Trip{
		ID:          newID(),
		RouteID:     in.RouteID,
		VehicleID:   in.VehicleID,
		DriverID:    in.DriverID,
		Status:      model.TripScheduled,
		ScheduledAt: in.ScheduledAt.UTC(),
	}
	if in.ScheduledAt.IsZero() {
		t.ScheduledAt = s.now()
	}
	if err := s.repo.Trips().Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to schedule trip: %w", err)
	}

	s.logger.Info("Trip scheduled", "tripID", t.ID, "vehicleID", t.VehicleID, "routeID", t.RouteID)
	return t, nil
}

// lookup resolves a referenced entity, turning a missing reference into an invalid argument.
func lookup[T any](ctx context.Context, what, id string, get func(context.Context, string) (T, error)) (T, error) {
	var zero T
	if err := required(what, id); err != nil {
		return zero, err
	}
	v, err := get(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return zero, invalid("%s %s does not exist", what, id)
		}
		return zero, err
	}
	return v, nil
}

// GetTrip returns a trip visible to actor.
func (s *Service) GetTrip(ctx context.Context, actor *model.User, id string) (*model.Trip, error) {
	t, err := s.repo.Trips().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeTrip(ctx, s.repo, actor, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) ListTrips(ctx context.Context, f model.TripFilter) ([]*model.Trip, error) {
	return s.repo.Trips().List(ctx, f)
}

// DriverTrips lists the trips assigned to the driver account actor.
func (s *Service) DriverTrips(ctx context.Context, actor *model.User, status model.TripStatus) ([]*model.Trip, error) {
	d, err := s.repo.Drivers().GetByUser(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("account %s is not linked to a driver: %w", actor.ID, core.ErrForbidden)
		}
		return nil, err
	}
	return s.repo.Trips().List(ctx, model.TripFilter{DriverID: d.ID, Status: status})
}

func (s *Service) StartTrip(ctx context.Context, actor *model.User, id string) (*model.Trip, error) {
	return s.transition(ctx, actor, id, TripEventStart)
}

func (s *Service) FinishTrip(ctx context.Context, actor *model.User, id string) (*model.Trip, error) {
	return s.transition(ctx, actor, id, TripEventFinish)
}

func (s *Service) CancelTrip(ctx context.Context, actor *model.User, id string) (*model.Trip, error) {
	return s.transition(ctx, actor, id, TripEventCancel)
}

func (s *Service) transition(ctx context.Context, actor *model.User, id, event string) (*model.Trip, error) {
	var trip *model.Trip
	err := s.repo.InTx(ctx, func(ctx context.Context, tx core.Repository) error {
		t, err := tx.Trips().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeTrip(ctx, tx, actor, t); err != nil {
			return err
		}

		if event == TripEventStart {
			if active, err := tx.Trips().ActiveForVehicle(ctx, t.VehicleID); err == nil && active.ID != t.ID {
				return fmt.Errorf("vehicle %s is already on trip %s: %w", t.VehicleID, active.ID, core.ErrConflict)
			} else if err != nil && !errors.Is(err, core.ErrNotFound) {
				return err
			}
		}

		m := newTripMachine(t, s.now())
		if err := m.Event(ctx, event); err != nil && !fsmutil.IsBenign(err) {
			var invalidEvent fsm.InvalidEventError
			if errors.As(err, &invalidEvent) {
				return fmt.Errorf("cannot %s trip %s while %s: %w", event, t.ID, t.Status, core.ErrInvalidTransition)
			}
			return err
		}

		if err := tx.Trips().Update(ctx, t); err != nil {
			return err
		}
		if t.Status.Terminal() {
			// The next trip starts without a baseline.
			if err := tx.Telemetry().ClearLastKnownGood(ctx, t.VehicleID); err != nil {
				return err
			}
		}
		trip = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if trip.Status.Terminal() {
		s.stops.Forget(trip.VehicleID)
		s.deviations.Forget(trip.VehicleID)
	}
	s.logger.Info("Trip transitioned", "tripID", trip.ID, "event", event, "status", trip.Status)
	return trip, nil
}

// UpdatePassengers sets the passenger count of a running or scheduled trip.
// With relative set, count is added to the current value.
func (s *Service) UpdatePassengers(ctx context.Context, actor *model.User, id string, count int, relative bool) (*model.Trip, error) {
	var trip *model.Trip
	err := s.repo.InTx(ctx, func(ctx context.Context, tx core.Repository) error {
		t, err := tx.Trips().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeTrip(ctx, tx, actor, t); err != nil {
			return err
		}
		if t.Status.Terminal() {
			return fmt.Errorf("trip %s is %s: %w", t.ID, t.Status, core.ErrInvalidTransition)
		}

		n := count
		if relative {
			n = t.Passengers + count
		}
		if n < 0 {
			return invalid("passenger count cannot be negative, got %d", n)
		}
		t.Passengers = n
		if err := tx.Trips().Update(ctx, t); err != nil {
			return err
		}
		trip = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trip, nil
}

// authorizeTrip lets admins act on any trip and drivers only on their own.
func authorizeTrip(ctx context.Context, repo core.Repository, actor *model.User, t *model.Trip) error {
	if actor == nil {
		return fmt.Errorf("no actor: %w", core.ErrUnauthorized)
	}
	switch actor.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleDriver:
		d, err := repo.Drivers().GetByUser(ctx, actor.ID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("account %s is not linked to a driver: %w", actor.ID, core.ErrForbidden)
			}
			return err
		}
		if d.ID != t.DriverID {
			return fmt.Errorf("trip %s belongs to another driver: %w", t.ID, core.ErrForbidden)
		}
		return nil
	}
	return fmt.Errorf("role %s cannot manage trips: %w", actor.Role, core.ErrForbidden)
}
