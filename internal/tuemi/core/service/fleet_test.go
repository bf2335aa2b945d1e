package service

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
)

func TestVehicleValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, incident.DefaultThresholds())

	assert.Equal(t, "ABC-123", f.vehicle.Plate)
	assert.Equal(t, model.VehicleActive, f.vehicle.Status)

	tests := []struct {
		name string
		in   model.Vehicle
	}{
		{"zero capacity", model.Vehicle{Plate: "X1", Capacity: 0}},
		{"negative capacity", model.Vehicle{Plate: "X2", Capacity: -3}},
		{"missing plate", model.Vehicle{Capacity: 10}},
		{"unknown status", model.Vehicle{Plate: "X3", Capacity: 10, Status: "flying"}},
		{"unknown driver", model.Vehicle{Plate: "X4", Capacity: 10, DriverID: "ghost"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.in
			_, err := f.svc.CreateVehicle(ctx, &v)
			assert.ErrorIs(t, err, core.ErrInvalidArgument)
		})
	}

	_, err := f.svc.CreateVehicle(ctx, &model.Vehicle{Plate: "ABC-123", Capacity: 5})
	assert.ErrorIs(t, err, core.ErrConflict)

	upd := *f.vehicle
	upd.Status = ""
	got, err := f.svc.UpdateVehicle(ctx, &upd)
	require.NoError(t, err)
	assert.Equal(t, model.VehicleActive, got.Status, "empty status keeps the current one")
	assert.True(t, got.CreatedAt.Equal(f.vehicle.CreatedAt))
}

func TestDriverValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, incident.DefaultThresholds())

	_, err := f.svc.CreateDriver(ctx, &model.Driver{Name: "Bo", LicenseNumber: "LIC-2", UserID: f.admin.ID})
	assert.ErrorIs(t, err, core.ErrInvalidArgument, "linked account must be a driver")

	_, err = f.svc.CreateDriver(ctx, &model.Driver{Name: "Bo", LicenseNumber: "LIC-1"})
	assert.ErrorIs(t, err, core.ErrConflict, "license numbers are unique")

	_, err = f.svc.CreateDriver(ctx, &model.Driver{Name: "Bo"})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	drivers, err := f.svc.ListDrivers(ctx)
	require.NoError(t, err)
	assert.Len(t, drivers, 1)
}

func TestStops(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, incident.DefaultThresholds())

	assert.Equal(t, 1, f.stops[0].Sequence)
	assert.Equal(t, 2, f.stops[1].Sequence, "sequence defaults to after the last stop")

	for _, bad := range []model.Stop{
		{RouteID: f.route.ID, Name: "N", Latitude: 91},
		{RouteID: f.route.ID, Name: "N", Longitude: -181},
		{RouteID: f.route.ID, Name: "N", Latitude: math.NaN()},
		{RouteID: f.route.ID, Name: "N", Longitude: math.Inf(1)},
		{RouteID: f.route.ID, Latitude: 1},
	} {
		st := bad
		_, err := f.svc.AddStop(ctx, &st)
		assert.ErrorIs(t, err, core.ErrInvalidArgument, "%+v", bad)
	}

	_, err := f.svc.AddStop(ctx, &model.Stop{RouteID: "missing", Name: "N"})
	assert.ErrorIs(t, err, core.ErrNotFound)

	mid, err := f.svc.AddStop(ctx, &model.Stop{RouteID: f.route.ID, Name: "Mercado", Latitude: 0.0005, Sequence: 5})
	require.NoError(t, err)
	mid.Sequence = 0
	mid.Name = "Mercado Central"
	mid, err = f.svc.UpdateStop(ctx, mid)
	require.NoError(t, err)
	assert.Equal(t, 5, mid.Sequence)

	stops, err := f.svc.ListStops(ctx, f.route.ID)
	require.NoError(t, err)
	names := []string{}
	for _, s := range stops {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Terminal", "Plaza", "Mercado Central"}, names)

	require.NoError(t, f.svc.DeleteStop(ctx, mid.ID))
	assert.ErrorIs(t, f.svc.DeleteStop(ctx, mid.ID), core.ErrNotFound)
}
