package mqtt

import (
	"context"
	"fmt"
	"time"

	"github.com/tuemi-io/tuemi/internal/pkg/metrics"
	"github.com/tuemi-io/tuemi/internal/pkg/mqtt/paths"
	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/service"
	"github.com/tuemi-io/tuemi/pkg/log"
	pkgmqtt "github.com/tuemi-io/tuemi/pkg/mqtt"
	"github.com/tuemi-io/tuemi/pkg/mqtt/topic"
)

// GroupServer is the shared subscription group of tuemi-server replicas.
const GroupServer = "tuemi-server"

// Server implements the MQTT ingress layer.
type Server struct {
	client pkgmqtt.Client
	topics *topic.Builder
	svc    *service.Service
}

// NewServer creates a new MQTT server (client).
func NewServer(client pkgmqtt.Client, builder *topic.Builder, svc *service.Service) *Server {
	return &Server{
		client: client,
		topics: builder,
		svc:    svc,
	}
}

// Start connects to the broker and subscribes to topics.
func (s *Server) Start(ctx context.Context) error {
	// 1. Start the connection manager (Non-blocking)
	if err := s.client.Start(ctx); err != nil {
		return err
	}

	// Ensure MQTT disconnects when Start exits (LIFO order)
	defer func() {
		log.Info("Disconnecting MQTT client...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.client.Disconnect(shutdownCtx)
		metrics.MQTTConnected.Set(0)
		log.Info("MQTT client disconnected")
	}()

	// 2. Wait for the initial connection before subscribing.
	log.Info("Waiting for MQTT connection...")
	if err := s.client.AwaitConnection(ctx); err != nil {
		return err
	}
	metrics.MQTTConnected.Set(1)
	log.Info("MQTT Connected")

	if err := s.initMQTTSubscriptions(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	return nil
}

func (s *Server) initMQTTSubscriptions(ctx context.Context) error {
	const qos = 1

	subscriptions := map[string]HandlerFunc{
		paths.Telemetry: JSONAdapter(s.handleTelemetry),
	}

	for segment, handler := range subscriptions {
		fullTopic := s.topics.Shared(GroupServer).BuildWildcard(segment)
		if err := s.client.Subscribe(ctx, fullTopic, qos, func(c context.Context, t string, p []byte) {
			if handleErr := handler(c, t, p); handleErr != nil {
				if segment == paths.Telemetry {
					metrics.TelemetryReceivedTotal.WithLabelValues(metrics.TransportMQTT, metrics.OutcomeRejected).Inc()
				}
				log.Error(handleErr, "Handler execution failed", "topic", t)
			}
		}); err != nil {
			return fmt.Errorf("failed to subscribe to topic: %s, err: %w", fullTopic, err)
		}
	}

	return nil
}

// handleTelemetry ingests a sample published on {root}/telemetry/{vehicleID}.
// The topic names the vehicle; a payload claiming another vehicle is rejected.
func (s *Server) handleTelemetry(ctx context.Context, t string, sample *service.TelemetrySample) error {
	vehicleID, ok := s.topics.ID(paths.Telemetry, t)
	if !ok {
		return fmt.Errorf("%w: unexpected telemetry topic %q", core.ErrInvalidArgument, t)
	}
	if sample.VehicleID != "" && sample.VehicleID != vehicleID {
		return fmt.Errorf("%w: payload vehicle %s published on topic of %s", core.ErrInvalidArgument, sample.VehicleID, vehicleID)
	}
	sample.VehicleID = vehicleID

	result, err := s.svc.IngestTelemetry(log.WithContext(ctx, log.WithValues("vehicleID", vehicleID)), *sample)
	if err != nil {
		return err
	}
	metrics.TelemetryReceivedTotal.WithLabelValues(metrics.TransportMQTT, metrics.OutcomeAccepted).Inc()

	for _, inc := range result.Incidents {
		log.Info("Incident detected", "vehicleID", vehicleID, "kind", inc.Kind, "incidentID", inc.ID)
	}
	return nil
}
