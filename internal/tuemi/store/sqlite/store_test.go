package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
	"github.com/tuemi-io/tuemi/pkg/options"
)

var epoch = time.Date(2024, 5, 6, 7, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	opts := options.NewSQLiteOptions()
	opts.Path = ":memory:"
	s, err := Open(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// fixture creates one driver, vehicle and route with two stops.
func fixture(t *testing.T, s *Store) (*model.Driver, *model.Vehicle, *model.Route) {
	t.Helper()
	ctx := context.Background()

	d := &model.Driver{ID: "d1", Name: "Ana", LicenseNumber: "LIC-1", Active: true, CreatedAt: epoch}
	require.NoError(t, s.Drivers().Create(ctx, d))

	v := &model.Vehicle{ID: "v1", Plate: "ABC-123", Capacity: 40, DriverID: d.ID, Status: model.VehicleActive, CreatedAt: epoch}
	require.NoError(t, s.Vehicles().Create(ctx, v))

	r := &model.Route{ID: "r1", Name: "Campus Norte", Active: true, CreatedAt: epoch}
	require.NoError(t, s.Routes().Create(ctx, r))
	require.NoError(t, s.Routes().AddStop(ctx, &model.Stop{ID: "s2", RouteID: r.ID, Name: "Plaza", Latitude: 0.001, Longitude: 0, Sequence: 2}))
	require.NoError(t, s.Routes().AddStop(ctx, &model.Stop{ID: "s1", RouteID: r.ID, Name: "Terminal", Latitude: 0, Longitude: 0, Sequence: 1}))
	return d, v, r
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := &model.User{
		ID: "u1", Email: "ana@example.com", Name: "Ana", Role: model.RoleStudent,
		PasswordHash: "hash", Subscribed: true, SubscriptionExpiresAt: epoch.Add(24 * time.Hour), CreatedAt: epoch,
	}
	require.NoError(t, s.Users().Create(ctx, u))

	got, err := s.Users().GetByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	if diff := cmp.Diff(u, got); diff != "" {
		t.Errorf("user mismatch (-want +got):\n%s", diff)
	}

	err = s.Users().Create(ctx, &model.User{ID: "u2", Email: "ana@example.com", Name: "Dup", Role: model.RoleStudent, PasswordHash: "x", CreatedAt: epoch})
	assert.ErrorIs(t, err, core.ErrConflict)

	u.Subscribed = false
	u.SubscriptionExpiresAt = time.Time{}
	require.NoError(t, s.Users().Update(ctx, u))
	got, err = s.Users().Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, got.Subscribed)
	assert.True(t, got.SubscriptionExpiresAt.IsZero())

	n, err := s.Users().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	students, err := s.Users().List(ctx, model.RoleStudent)
	require.NoError(t, err)
	assert.Len(t, students, 1)
	admins, err := s.Users().List(ctx, model.RoleAdmin)
	require.NoError(t, err)
	assert.Empty(t, admins)

	require.NoError(t, s.Users().Delete(ctx, "u1"))
	_, err = s.Users().Get(ctx, "u1")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.Users().Delete(ctx, "u1"), core.ErrNotFound)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Users().Create(ctx, &model.User{ID: "u1", Email: "a@b.c", Name: "A", Role: model.RoleAdmin, PasswordHash: "h", CreatedAt: epoch}))
	require.NoError(t, s.Sessions().Create(ctx, &model.Session{Token: "old", UserID: "u1", CreatedAt: epoch, ExpiresAt: epoch.Add(time.Hour)}))
	require.NoError(t, s.Sessions().Create(ctx, &model.Session{Token: "new", UserID: "u1", CreatedAt: epoch, ExpiresAt: epoch.Add(3 * time.Hour)}))

	n, err := s.Sessions().DeleteExpired(ctx, epoch.Add(2*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.Sessions().Get(ctx, "old")
	assert.ErrorIs(t, err, core.ErrNotFound)

	got, err := s.Sessions().Get(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.ExpiresAt.Equal(epoch.Add(3*time.Hour)))

	// Deleting the user drops the session.
	require.NoError(t, s.Users().Delete(ctx, "u1"))
	_, err = s.Sessions().Get(ctx, "new")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestFleetAndRoutes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, v, r := fixture(t, s)

	err := s.Vehicles().Create(ctx, &model.Vehicle{ID: "v2", Plate: "abc-123", Capacity: 10, Status: model.VehicleActive, CreatedAt: epoch})
	assert.ErrorIs(t, err, core.ErrConflict, "plates are case-insensitive")

	err = s.Vehicles().Create(ctx, &model.Vehicle{ID: "v3", Plate: "ZZZ", Capacity: 0, Status: model.VehicleActive, CreatedAt: epoch})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	err = s.Vehicles().Create(ctx, &model.Vehicle{ID: "v4", Plate: "YYY", Capacity: 5, DriverID: "ghost", Status: model.VehicleActive, CreatedAt: epoch})
	assert.ErrorIs(t, err, core.ErrConflict)

	v.Status = model.VehicleMaintenance
	require.NoError(t, s.Vehicles().Update(ctx, v))
	got, err := s.Vehicles().Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VehicleMaintenance, got.Status)

	// Removing the driver unassigns the vehicle.
	require.NoError(t, s.Drivers().Delete(ctx, "d1"))
	got, err = s.Vehicles().Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Empty(t, got.DriverID)

	stops, err := s.Routes().Stops(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, stops, 2)
	assert.Equal(t, "Terminal", stops[0].Name)
	assert.Equal(t, "Plaza", stops[1].Name)

	err = s.Routes().AddStop(ctx, &model.Stop{ID: "s3", RouteID: r.ID, Name: "Dup", Sequence: 1})
	assert.ErrorIs(t, err, core.ErrConflict)

	r.Active = false
	require.NoError(t, s.Routes().Update(ctx, r))
	all, err := s.Routes().AllStops(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "stops of inactive routes are excluded")

	require.NoError(t, s.Routes().Delete(ctx, r.ID))
	_, err = s.Routes().GetStop(ctx, "s1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestTrips(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d, v, r := fixture(t, s)

	started := epoch.Add(time.Minute)
	t1 := &model.Trip{ID: "t1", RouteID: r.ID, VehicleID: v.ID, DriverID: d.ID, Status: model.TripInProgress, ScheduledAt: epoch, StartedAt: &started}
	require.NoError(t, s.Trips().Create(ctx, t1))

	t2 := &model.Trip{ID: "t2", RouteID: r.ID, VehicleID: v.ID, DriverID: d.ID, Status: model.TripScheduled, ScheduledAt: epoch.Add(time.Hour)}
	require.NoError(t, s.Trips().Create(ctx, t2))

	t2.Status = model.TripInProgress
	assert.ErrorIs(t, s.Trips().Update(ctx, t2), core.ErrConflict, "one in-progress trip per vehicle")

	active, err := s.Trips().ActiveForVehicle(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "t1", active.ID)
	require.NotNil(t, active.StartedAt)
	assert.True(t, active.StartedAt.Equal(started))
	assert.Nil(t, active.EndedAt)

	list, err := s.Trips().List(ctx, model.TripFilter{Status: model.TripScheduled})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t2", list[0].ID)

	list, err = s.Trips().List(ctx, model.TripFilter{DriverID: d.ID})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "t2", list[0].ID, "newest first")

	_, err = s.Trips().ActiveForVehicle(ctx, "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestTelemetry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, v, _ := fixture(t, s)

	for i, speed := range []float64{10, 20, 30} {
		require.NoError(t, s.Telemetry().Append(ctx, &model.Telemetry{
			VehicleID: v.ID, TripID: "t1", Latitude: float64(i) * 0.001, Speed: speed, Timestamp: epoch.Add(time.Duration(i) * time.Second),
		}))
	}

	latest, err := s.Telemetry().Latest(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.InDelta(t, 30, latest[0].Speed, 1e-9)

	avg, err := s.Telemetry().AverageSpeed(ctx, "t1")
	require.NoError(t, err)
	assert.InDelta(t, 20, avg, 1e-9)

	avg, err = s.Telemetry().AverageSpeed(ctx, "none")
	require.NoError(t, err)
	assert.Zero(t, avg)

	samples, err := s.Telemetry().ForTrip(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, samples, 3)

	_, err = s.Telemetry().LastKnownGood(ctx, v.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	p := incident.Position{Latitude: 1, Longitude: 2, Timestamp: epoch}
	require.NoError(t, s.Telemetry().SetLastKnownGood(ctx, v.ID, p))
	p.Latitude = 3
	require.NoError(t, s.Telemetry().SetLastKnownGood(ctx, v.ID, p))

	got, err := s.Telemetry().LastKnownGood(ctx, v.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3, got.Latitude, 1e-9)

	require.NoError(t, s.Telemetry().ClearLastKnownGood(ctx, v.ID))
	_, err = s.Telemetry().LastKnownGood(ctx, v.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestIncidents(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, v, _ := fixture(t, s)

	for i, kind := range []incident.Kind{incident.KindOvercapacity, incident.KindProlongedStop} {
		require.NoError(t, s.Incidents().Create(ctx, &model.Incident{
			ID: string(kind), VehicleID: v.ID, Kind: kind, Details: "d", DetectedAt: epoch.Add(time.Duration(i) * time.Minute),
		}))
	}

	require.NoError(t, s.Incidents().Resolve(ctx, string(incident.KindOvercapacity), epoch.Add(time.Hour)))
	require.NoError(t, s.Incidents().UpdateDetails(ctx, string(incident.KindProlongedStop), "reworded"))

	open, err := s.Incidents().List(ctx, model.IncidentFilter{Unresolved: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "reworded", open[0].Details)

	all, err := s.Incidents().List(ctx, model.IncidentFilter{VehicleID: v.ID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, incident.KindProlongedStop, all[0].Kind, "newest first")

	got, err := s.Incidents().Get(ctx, string(incident.KindOvercapacity))
	require.NoError(t, err)
	assert.True(t, got.Resolved)
	require.NotNil(t, got.ResolvedAt)

	assert.ErrorIs(t, s.Incidents().Resolve(ctx, "missing", epoch), core.ErrNotFound)
}

func TestInTx(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.InTx(ctx, func(ctx context.Context, tx core.Repository) error {
		if err := tx.Routes().Create(ctx, &model.Route{ID: "r1", Name: "A", Active: true, CreatedAt: epoch}); err != nil {
			return err
		}
		return tx.Routes().Create(ctx, &model.Route{ID: "r2", Name: "A", Active: true, CreatedAt: epoch})
	})
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = s.Routes().Get(ctx, "r1")
	assert.ErrorIs(t, err, core.ErrNotFound, "rolled back")

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx core.Repository) error {
		return tx.Routes().Create(ctx, &model.Route{ID: "r1", Name: "A", Active: true, CreatedAt: epoch})
	}))
	_, err = s.Routes().Get(ctx, "r1")
	assert.NoError(t, err)

	assert.NoError(t, s.Ping(ctx))
}
