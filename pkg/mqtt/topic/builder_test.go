package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder(t *testing.T) {
	b := NewBuilder("/tuemi/v1/")

	assert.Equal(t, "tuemi/v1/telemetry/bus-7", b.Build("telemetry", "bus-7"))
	assert.Equal(t, "tuemi/v1/telemetry/+", b.BuildWildcard("telemetry"))
	assert.Equal(t, "$share/tuemi-server/tuemi/v1/telemetry/+", b.Shared("tuemi-server").BuildWildcard("telemetry"))

	id, ok := b.ID("telemetry", "tuemi/v1/telemetry/bus-7")
	assert.True(t, ok)
	assert.Equal(t, "bus-7", id)

	_, ok = b.ID("telemetry", "tuemi/v1/incident/bus-7")
	assert.False(t, ok)
	_, ok = b.ID("telemetry", "tuemi/v1/telemetry/bus-7/extra")
	assert.False(t, ok)
}
