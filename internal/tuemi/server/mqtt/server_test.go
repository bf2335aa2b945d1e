package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/tuemi/assistant"
	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/service"
	"github.com/tuemi-io/tuemi/internal/tuemi/notifier"
	"github.com/tuemi-io/tuemi/internal/tuemi/storage"
	"github.com/tuemi-io/tuemi/internal/tuemi/store/sqlite"
	"github.com/tuemi-io/tuemi/pkg/log"
	pkgmqtt "github.com/tuemi-io/tuemi/pkg/mqtt"
	"github.com/tuemi-io/tuemi/pkg/mqtt/topic"
	"github.com/tuemi-io/tuemi/pkg/options"
)

type fakeClient struct {
	pkgmqtt.Client

	mu           sync.Mutex
	handlers     map[string]pkgmqtt.MessageHandler
	subscribed   chan struct{}
	disconnected bool
	awaitErr     error
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: map[string]pkgmqtt.MessageHandler{}, subscribed: make(chan struct{})}
}

func (f *fakeClient) Start(context.Context) error { return nil }

func (f *fakeClient) AwaitConnection(context.Context) error { return f.awaitErr }

func (f *fakeClient) Disconnect(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
}

func (f *fakeClient) Subscribe(_ context.Context, topic string, _ int, h pkgmqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = h
	close(f.subscribed)
	return nil
}

func (f *fakeClient) handler(topic string) pkgmqtt.MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[topic]
}

func newService(t *testing.T) (*service.Service, *model.Vehicle) {
	t.Helper()
	ctx := context.Background()

	opts := options.NewSQLiteOptions()
	opts.Path = ":memory:"
	store, err := sqlite.Open(ctx, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := service.New(store, notifier.Nop{}, storage.Nop{}, assistant.Nop{}, service.Config{
		Thresholds: incident.Static(incident.DefaultThresholds()),
		Logger:     log.NewNopLogger(),
	})
	v, err := svc.CreateVehicle(ctx, &model.Vehicle{Plate: "BUS-1", Capacity: 10})
	require.NoError(t, err)
	return svc, v
}

func TestServerIngestsTelemetry(t *testing.T) {
	svc, vehicle := newService(t)
	client := newFakeClient()
	srv := NewServer(client, topic.NewBuilder("tuemi/v1"), svc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	select {
	case <-client.subscribed:
	case <-time.After(5 * time.Second):
		t.Fatal("server never subscribed")
	}

	h := client.handler("$share/tuemi-server/tuemi/v1/telemetry/+")
	require.NotNil(t, h)
	h(ctx, "tuemi/v1/telemetry/"+vehicle.ID, []byte(`{"latitude":4.6,"longitude":-74.08,"speed":32.5,"firmware":"1.2"}`))

	fc, err := svc.LiveMap(ctx)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, vehicle.ID, fc.Features[0].ID)
	assert.Equal(t, [2]float64{-74.08, 4.6}, fc.Features[0].Geometry.Coordinates)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	client.mu.Lock()
	assert.True(t, client.disconnected)
	client.mu.Unlock()
}

func TestServerAwaitFailure(t *testing.T) {
	svc, _ := newService(t)
	client := newFakeClient()
	client.awaitErr = errors.New("broker unreachable")

	err := NewServer(client, topic.NewBuilder("tuemi/v1"), svc).Start(context.Background())
	require.ErrorContains(t, err, "broker unreachable")
	assert.True(t, client.disconnected)
}

func TestHandleTelemetry(t *testing.T) {
	svc, vehicle := newService(t)
	srv := NewServer(newFakeClient(), topic.NewBuilder("tuemi/v1"), svc)
	ctx := context.Background()

	tests := []struct {
		name    string
		topic   string
		sample  service.TelemetrySample
		wantErr error
	}{
		{
			name:   "vehicle from topic",
			topic:  "tuemi/v1/telemetry/" + vehicle.ID,
			sample: service.TelemetrySample{Latitude: 1, Longitude: 1, Speed: 10},
		},
		{
			name:    "foreign topic",
			topic:   "other/telemetry/" + vehicle.ID,
			sample:  service.TelemetrySample{Latitude: 1, Longitude: 1},
			wantErr: core.ErrInvalidArgument,
		},
		{
			name:    "payload names another vehicle",
			topic:   "tuemi/v1/telemetry/" + vehicle.ID,
			sample:  service.TelemetrySample{VehicleID: "someone-else", Latitude: 1, Longitude: 1},
			wantErr: core.ErrInvalidArgument,
		},
		{
			name:    "unknown vehicle",
			topic:   "tuemi/v1/telemetry/ghost",
			sample:  service.TelemetrySample{Latitude: 1, Longitude: 1},
			wantErr: core.ErrNotFound,
		},
		{
			name:    "invalid position",
			topic:   "tuemi/v1/telemetry/" + vehicle.ID,
			sample:  service.TelemetrySample{Latitude: 120, Longitude: 1},
			wantErr: incident.ErrInvalidPosition,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sample := tt.sample
			err := srv.handleTelemetry(ctx, tt.topic, &sample)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestJSONAdapter(t *testing.T) {
	var got *service.TelemetrySample
	h := JSONAdapter(func(_ context.Context, _ string, msg *service.TelemetrySample) error {
		got = msg
		return nil
	})

	require.NoError(t, h(context.Background(), "t", []byte(`{"vehicleId":"v1","speed":3}`)))
	assert.Equal(t, "v1", got.VehicleID)
	assert.Equal(t, 3.0, got.Speed)

	assert.Error(t, h(context.Background(), "t", []byte(`{`)))
}
