package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
	"github.com/tuemi-io/tuemi/internal/tuemi/store/sqlite"
	"github.com/tuemi-io/tuemi/pkg/log"
	"github.com/tuemi-io/tuemi/pkg/options"
)

var epoch = time.Date(2024, 5, 6, 7, 0, 0, 0, time.UTC)

const password = "correct-horse"

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*model.Incident
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, i *model.Incident) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, i)
	return nil
}

type fakeAssistant struct {
	enrich     string
	enrichErr  error
	suggest    string
	suggestErr error
	requests   []core.SuggestionRequest
}

func (f *fakeAssistant) Enrich(context.Context, incident.Input, incident.Verdict) (string, error) {
	return f.enrich, f.enrichErr
}

func (f *fakeAssistant) Suggest(_ context.Context, req core.SuggestionRequest) (string, error) {
	f.requests = append(f.requests, req)
	return f.suggest, f.suggestErr
}

type fakeStorage struct {
	objects map[string][]byte
}

func (f *fakeStorage) CheckBucket(context.Context) error { return nil }

func (f *fakeStorage) PutJSON(_ context.Context, key string, body []byte) error {
	f.objects[key] = body
	return nil
}

func (f *fakeStorage) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if _, ok := f.objects[key]; !ok {
		return "", errors.New("no such key")
	}
	return "https://reports.example/" + key, nil
}

// fixture is a service over an in-memory database with one admin, one driver
// account linked to a driver, a vehicle of two seats and route "Norte".
type fixture struct {
	svc       *Service
	store     *sqlite.Store
	clock     *clocktesting.FakeClock
	notifier  *fakeNotifier
	assistant *fakeAssistant
	reports   *fakeStorage

	admin      *model.User
	driverUser *model.User
	driver     *model.Driver
	vehicle    *model.Vehicle
	route      *model.Route
	stops      []*model.Stop
}

func newFixture(t *testing.T, th incident.Thresholds) *fixture {
	t.Helper()
	ctx := context.Background()

	opts := options.NewSQLiteOptions()
	opts.Path = ":memory:"
	store, err := sqlite.Open(ctx, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		store:     store,
		clock:     clocktesting.NewFakeClock(epoch),
		notifier:  &fakeNotifier{},
		assistant: &fakeAssistant{enrichErr: core.ErrUnavailable, suggestErr: core.ErrUnavailable},
		reports:   &fakeStorage{objects: map[string][]byte{}},
	}
	f.svc = New(store, f.notifier, f.reports, f.assistant, Config{
		Clock:      f.clock,
		Thresholds: incident.Static(th),
		Logger:     log.NewNopLogger(),
	})
	t.Cleanup(f.svc.Wait)

	f.admin, err = f.svc.CreateUser(ctx, NewUser{Email: "admin@tuemi.test", Name: "Admin", Password: password, Role: model.RoleAdmin})
	require.NoError(t, err)
	f.driverUser, err = f.svc.CreateUser(ctx, NewUser{Email: "ana@tuemi.test", Name: "Ana", Password: password, Role: model.RoleDriver})
	require.NoError(t, err)
	f.driver, err = f.svc.CreateDriver(ctx, &model.Driver{UserID: f.driverUser.ID, Name: "Ana", LicenseNumber: "LIC-1", Active: true})
	require.NoError(t, err)
	f.vehicle, err = f.svc.CreateVehicle(ctx, &model.Vehicle{Plate: "abc-123", Capacity: 2, DriverID: f.driver.ID})
	require.NoError(t, err)
	f.route, err = f.svc.CreateRoute(ctx, &model.Route{Name: "Norte", Active: true})
	require.NoError(t, err)

	for _, st := range []*model.Stop{
		{RouteID: f.route.ID, Name: "Terminal", Latitude: 0, Longitude: 0},
		{RouteID: f.route.ID, Name: "Plaza", Latitude: 0.001, Longitude: 0},
	} {
		st, err := f.svc.AddStop(ctx, st)
		require.NoError(t, err)
		f.stops = append(f.stops, st)
	}
	return f
}

// startTrip schedules and starts a trip of the fixture vehicle on the fixture route.
func (f *fixture) startTrip(t *testing.T) *model.Trip {
	t.Helper()
	ctx := context.Background()

	trip, err := f.svc.ScheduleTrip(ctx, NewTrip{RouteID: f.route.ID, VehicleID: f.vehicle.ID, DriverID: f.driver.ID})
	require.NoError(t, err)
	trip, err = f.svc.StartTrip(ctx, f.driverUser, trip.ID)
	require.NoError(t, err)
	return trip
}

func ptr[T any](v T) *T { return &v }
