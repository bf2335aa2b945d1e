package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
)

// HandlerFunc processes one message received on topic.
type HandlerFunc func(ctx context.Context, topic string, payload []byte) error

// TypedHandlerFunc receives the decoded payload.
type TypedHandlerFunc[T any] func(ctx context.Context, topic string, msg *T) error

// JSONAdapter decodes the payload into a fresh T before calling handler.
// Unknown fields are ignored so that firmware can add fields ahead of the server.
func JSONAdapter[T any](handler TypedHandlerFunc[T]) HandlerFunc {
	return func(ctx context.Context, topic string, payload []byte) error {
		msg := new(T)
		if err := json.Unmarshal(payload, msg); err != nil {
			return fmt.Errorf("json unmarshal failed: %w", err)
		}
		return handler(ctx, topic, msg)
	}
}
