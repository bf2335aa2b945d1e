// Package notifier publishes detected incidents to live subscribers.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tuemi-io/tuemi/internal/pkg/mqtt/paths"
	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
	pkgmqtt "github.com/tuemi-io/tuemi/pkg/mqtt"
	"github.com/tuemi-io/tuemi/pkg/mqtt/topic"
)

var _ core.IncidentNotifier = (*MQTTNotifier)(nil)

type MQTTNotifier struct {
	client pkgmqtt.Client
	topics *topic.Builder
}

func NewMQTTNotifier(client pkgmqtt.Client, builder *topic.Builder) *MQTTNotifier {
	return &MQTTNotifier{
		client: client,
		topics: builder,
	}
}

// Notify publishes the incident to {root}/incident/{vehicleID}.
func (n *MQTTNotifier) Notify(ctx context.Context, i *model.Incident) error {
	payload, err := json.Marshal(i)
	if err != nil {
		return err
	}

	qos := 1
	retain := false
	t := n.topics.Build(paths.Incident, i.VehicleID)

	if err := n.client.Publish(ctx, t, qos, retain, payload); err != nil {
		return fmt.Errorf("failed to publish incident %s: %w", i.ID, err)
	}
	return nil
}

// Nop drops every notification. Used when MQTT is disabled.
type Nop struct{}

func (Nop) Notify(context.Context, *model.Incident) error { return nil }
