package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
)

func TestTripLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, incident.DefaultThresholds())

	trip, err := f.svc.ScheduleTrip(ctx, NewTrip{RouteID: f.route.ID, VehicleID: f.vehicle.ID, DriverID: f.driver.ID})
	require.NoError(t, err)
	assert.Equal(t, model.TripScheduled, trip.Status)
	assert.Equal(t, epoch, trip.ScheduledAt)

	_, err = f.svc.FinishTrip(ctx, f.admin, trip.ID)
	assert.ErrorIs(t, err, core.ErrInvalidTransition, "cannot finish a trip that never started")

	f.clock.Step(5 * time.Minute)
	trip, err = f.svc.StartTrip(ctx, f.driverUser, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TripInProgress, trip.Status)
	require.NotNil(t, trip.StartedAt)
	assert.True(t, trip.StartedAt.Equal(epoch.Add(5*time.Minute)))

	_, err = f.svc.StartTrip(ctx, f.driverUser, trip.ID)
	assert.ErrorIs(t, err, core.ErrInvalidTransition, "already started")

	second, err := f.svc.ScheduleTrip(ctx, NewTrip{RouteID: f.route.ID, VehicleID: f.vehicle.ID, DriverID: f.driver.ID})
	require.NoError(t, err)
	_, err = f.svc.StartTrip(ctx, f.admin, second.ID)
	assert.ErrorIs(t, err, core.ErrConflict, "one in-progress trip per vehicle")

	f.clock.Step(time.Hour)
	trip, err = f.svc.FinishTrip(ctx, f.driverUser, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TripCompleted, trip.Status)
	require.NotNil(t, trip.EndedAt)

	_, err = f.svc.CancelTrip(ctx, f.admin, trip.ID)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	second, err = f.svc.CancelTrip(ctx, f.admin, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TripCancelled, second.Status)
}

func TestScheduleTripValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, incident.DefaultThresholds())

	_, err := f.svc.ScheduleTrip(ctx, NewTrip{RouteID: "missing", VehicleID: f.vehicle.ID, DriverID: f.driver.ID})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = f.svc.ScheduleTrip(ctx, NewTrip{RouteID: f.route.ID, DriverID: f.driver.ID})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	f.route.Active = false
	_, err = f.svc.UpdateRoute(ctx, f.route)
	require.NoError(t, err)
	_, err = f.svc.ScheduleTrip(ctx, NewTrip{RouteID: f.route.ID, VehicleID: f.vehicle.ID, DriverID: f.driver.ID})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestTripOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, incident.DefaultThresholds())

	other, err := f.svc.CreateUser(ctx, NewUser{Email: "beto@tuemi.test", Name: "Beto", Password: password, Role: model.RoleDriver})
	require.NoError(t, err)
	_, err = f.svc.CreateDriver(ctx, &model.Driver{UserID: other.ID, Name: "Beto", LicenseNumber: "LIC-2", Active: true})
	require.NoError(t, err)
	student, err := f.svc.Register(ctx, NewUser{Email: "eva@uni.edu", Name: "Eva", Password: password})
	require.NoError(t, err)

	trip, err := f.svc.ScheduleTrip(ctx, NewTrip{RouteID: f.route.ID, VehicleID: f.vehicle.ID, DriverID: f.driver.ID})
	require.NoError(t, err)

	_, err = f.svc.StartTrip(ctx, other, trip.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)
	_, err = f.svc.StartTrip(ctx, student, trip.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)
	_, err = f.svc.GetTrip(ctx, other, trip.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	mine, err := f.svc.DriverTrips(ctx, f.driverUser, "")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	theirs, err := f.svc.DriverTrips(ctx, other, "")
	require.NoError(t, err)
	assert.Empty(t, theirs)
	_, err = f.svc.DriverTrips(ctx, student, "")
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestUpdatePassengers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, incident.DefaultThresholds())
	trip := f.startTrip(t)

	trip, err := f.svc.UpdatePassengers(ctx, f.driverUser, trip.ID, 2, false)
	require.NoError(t, err)
	assert.Equal(t, 2, trip.Passengers)

	trip, err = f.svc.UpdatePassengers(ctx, f.driverUser, trip.ID, 3, true)
	require.NoError(t, err)
	assert.Equal(t, 5, trip.Passengers, "counts above capacity are recorded")

	_, err = f.svc.UpdatePassengers(ctx, f.driverUser, trip.ID, -6, true)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = f.svc.FinishTrip(ctx, f.driverUser, trip.ID)
	require.NoError(t, err)
	_, err = f.svc.UpdatePassengers(ctx, f.driverUser, trip.ID, 0, false)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}
