package mqtt

import (
	"context"
)

// MessageHandler processes one received message. Handlers run on their own goroutine.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// Client is the MQTT client used by TUEMI. It hides the paho connection manager.
type Client interface {
	// Start initiates the connection to the broker and returns immediately.
	Start(ctx context.Context) error

	// Disconnect cleanly closes the connection.
	Disconnect(ctx context.Context)

	// Publish sends payload to topic.
	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Subscribe registers handler for a topic filter. Subscriptions survive reconnects.
	Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error

	// Unsubscribe removes the handler and sends an UNSUBSCRIBE packet.
	Unsubscribe(ctx context.Context, topic string) error

	// AwaitConnection blocks until the client is connected to the broker.
	AwaitConnection(ctx context.Context) error

	// IsConnected reports whether the connection is currently up.
	IsConnected() bool
}
