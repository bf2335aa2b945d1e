package tuemi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tuemi-io/tuemi/pkg/options"
)

func TestServerRunsUntilCancelled(t *testing.T) {
	cfg := &Config{
		HttpOptions:      options.NewHttpOptions(),
		SessionOptions:   options.NewSessionOptions(),
		MqttOptions:      options.NewMqttOptions(),
		S3Options:        options.NewS3Options(),
		SQLiteOptions:    options.NewSQLiteOptions(),
		AssistantOptions: options.NewAssistantOptions(),
	}
	cfg.HttpOptions.Addr = "127.0.0.1:0"
	cfg.MqttOptions.Enabled = false
	cfg.S3Options.Enabled = false
	cfg.AssistantOptions.APIKey = ""
	cfg.SQLiteOptions.Path = ":memory:"
	cfg.SQLiteOptions.SeedFile = "testdata/seed.yaml"

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := cfg.NewTuemiServer(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
