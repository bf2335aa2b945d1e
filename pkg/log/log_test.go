package log

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToFields(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		input []any
		keys  []string
	}{
		{"empty input", nil, nil},
		{"pairs", []any{"a", "x", "b", 123, "c", true}, []string{"a", "b", "c"}},
		{"time and duration", []any{"t", time.Now(), "d", time.Second}, []string{"t", "d"}},
		{"error only", []any{boom}, []string{"error"}},
		{"zap field passthrough", []any{zap.String("x", "y"), "num", 42}, []string{"x", "num"}},
		{"odd number of args", []any{"key1", "val1", "key2"}, []string{"key1", "arg#2"}},
		{"non-string key", []any{123, "value"}, []string{"invalid_key_1"}},
		{"nil values", []any{"a", nil, "b", (*int)(nil)}, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.input...)
			keys := make([]string, 0, len(fields))
			for _, f := range fields {
				keys = append(keys, f.Key)
			}
			if tt.keys == nil {
				assert.Empty(t, keys)
				return
			}
			assert.Equal(t, tt.keys, keys)
		})
	}
}

func TestLoggerWritesStructuredEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core)).WithName("monitor").WithValues("vehicle", "bus-7")

	l.Info("incident detected", "kind", "overcapacity", "passengers", 22)
	l.Error(errors.New("timeout"), "enrichment failed")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "monitor", entries[0].LoggerName)
	assert.Equal(t, "bus-7", entries[0].ContextMap()["vehicle"])
	assert.Equal(t, int64(22), entries[0].ContextMap()["passengers"])
	assert.Equal(t, "timeout", entries[1].ContextMap()["error"])
}

func TestContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewFromZap(zap.New(core))

	ctx := WithContext(context.Background(), l.WithValues("request", "r-1"))
	FromContext(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "r-1", logs.All()[0].ContextMap()["request"])
	assert.NotNil(t, FromContext(context.Background()))
}

func TestOptionsValidate(t *testing.T) {
	assert.Empty(t, NewOptions().Validate())

	o := NewOptions()
	o.Level = "loud"
	o.Format = "xml"
	assert.Len(t, o.Validate(), 2)

	_, err := New(o)
	assert.Error(t, err)
}
