package incident

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var noon = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(lat, lng float64, ts time.Time) Position {
	return Position{Latitude: lat, Longitude: lng, Timestamp: ts}
}

func TestEvaluate(t *testing.T) {
	baseline := at(-16.505, -68.119, noon.Add(-time.Minute))

	tests := []struct {
		name  string
		in    Input
		want  Kind
		kinds []Kind
	}{
		{
			name: "quiet sample",
			in:   Input{Current: at(-16.5, -68.119, noon), Speed: 15, Passengers: 10, Capacity: 18},
		},
		{
			name:  "overcapacity",
			in:    Input{Current: at(-16.5, -68.119, noon), Speed: 30, Passengers: 19, Capacity: 18},
			want:  KindOvercapacity,
			kinds: []Kind{KindOvercapacity},
		},
		{
			name: "exactly at capacity",
			in:   Input{Current: at(-16.5, -68.119, noon), Speed: 30, Passengers: 18, Capacity: 18},
		},
		{
			name:  "zero speed",
			in:    Input{Current: at(-16.5, -68.119, noon), Speed: 0, Passengers: 5, Capacity: 18},
			want:  KindProlongedStop,
			kinds: []Kind{KindProlongedStop},
		},
		{
			name:  "deviation",
			in:    Input{Current: at(-16.5, -68.119, noon), LastKnownGood: &baseline, Speed: 20, Passengers: 10, Capacity: 18},
			want:  KindRouteDeviation,
			kinds: []Kind{KindRouteDeviation},
		},
		{
			name: "no baseline never deviates",
			in:   Input{Current: at(10, 10, noon), Speed: 20, Passengers: 10, Capacity: 18},
		},
		{
			name:  "deviation reported last",
			in:    Input{Current: at(-16.5, -68.119, noon), LastKnownGood: &baseline, Speed: 0, Passengers: 25, Capacity: 18},
			want:  KindRouteDeviation,
			kinds: []Kind{KindOvercapacity, KindProlongedStop, KindRouteDeviation},
		},
		{
			name:  "stop overrides overcapacity",
			in:    Input{Current: at(-16.5, -68.119, noon), Speed: 0, Passengers: 25, Capacity: 18},
			want:  KindProlongedStop,
			kinds: []Kind{KindOvercapacity, KindProlongedStop},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Evaluate(tt.in, DefaultThresholds())
			require.NoError(t, err)

			assert.Equal(t, tt.want != "", v.Detected)
			assert.Equal(t, tt.want, v.Kind)
			if diff := cmp.Diff(tt.kinds, v.Kinds); diff != "" {
				t.Errorf("kinds mismatch (-want +got):\n%s", diff)
			}
			if v.Detected {
				assert.Contains(t, v.Details, "-16.500000")
				assert.Contains(t, v.Details, "2024-01-01T12:00:00Z")
			} else {
				assert.Empty(t, v.Details)
			}
		})
	}
}

func TestEvaluateOvercapacityRegardlessOfOtherFields(t *testing.T) {
	baseline := at(40, 40, noon)
	inputs := []Input{
		{Current: at(0, 0, noon), Speed: 80, Passengers: 2, Capacity: 1},
		{Current: at(0, 0, noon), Speed: 0, Passengers: 40, Capacity: 18},
		{Current: at(0, 0, noon), LastKnownGood: &baseline, Speed: 10, Passengers: 1, Capacity: 0},
	}
	for _, in := range inputs {
		v, err := Evaluate(in, DefaultThresholds())
		require.NoError(t, err)
		assert.True(t, v.Detected)
		assert.True(t, v.Has(KindOvercapacity))
	}

	v, err := Evaluate(inputs[0], DefaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, KindOvercapacity, v.Kind)
	assert.Contains(t, v.Details, "2 passengers")
	assert.Contains(t, v.Details, "capacity of 1")
}

func TestEvaluateDeviationDetails(t *testing.T) {
	baseline := at(-16.505, -68.119, noon.Add(-30*time.Second))
	in := Input{Current: at(-16.5, -68.119, noon), LastKnownGood: &baseline, Speed: 20, Passengers: 10, Capacity: 18}

	v, err := Evaluate(in, DefaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, KindRouteDeviation, v.Kind)
	assert.Contains(t, v.Details, "556 m")
	assert.Contains(t, v.Details, "(-16.505000, -68.119000)")
	assert.Contains(t, v.Details, "(-16.500000, -68.119000)")
	assert.InDelta(t, 556, Distance(in), 1)
}

func TestEvaluateDeviationThresholdIsStrict(t *testing.T) {
	baseline := at(-16.505, -68.119, noon)
	in := Input{Current: at(-16.5, -68.119, noon), LastKnownGood: &baseline, Speed: 20, Passengers: 1, Capacity: 18}

	th := DefaultThresholds()
	th.DeviationMeters = Distance(in)
	v, err := Evaluate(in, th)
	require.NoError(t, err)
	assert.False(t, v.Detected)

	th.DeviationMeters = 600
	v, err = Evaluate(in, th)
	require.NoError(t, err)
	assert.False(t, v.Detected)
}

func TestEvaluateRejectsInvalidInput(t *testing.T) {
	nan := math.NaN()
	badBaseline := at(nan, -68.119, noon)

	tests := []struct {
		name string
		in   Input
		want error
	}{
		{"nan current latitude", Input{Current: at(nan, -68.119, noon), Capacity: 18}, ErrInvalidPosition},
		{"inf current longitude", Input{Current: at(-16.5, math.Inf(-1), noon), Capacity: 18}, ErrInvalidPosition},
		{"nan baseline latitude", Input{Current: at(-16.5, -68.119, noon), LastKnownGood: &badBaseline, Speed: 20, Capacity: 18}, ErrInvalidPosition},
		{"latitude out of range", Input{Current: at(95, 0, noon), Capacity: 18}, ErrInvalidPosition},
		{"nan speed", Input{Current: at(-16.5, -68.119, noon), Speed: nan, Capacity: 18}, ErrInvalidInput},
		{"negative speed", Input{Current: at(-16.5, -68.119, noon), Speed: -1, Capacity: 18}, ErrInvalidInput},
		{"negative passengers", Input{Current: at(-16.5, -68.119, noon), Speed: 10, Passengers: -1, Capacity: 18}, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Evaluate(tt.in, DefaultThresholds())
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, v.Detected)
		})
	}
}

func TestEvaluateStopDuration(t *testing.T) {
	th := DefaultThresholds()
	th.StopDuration = 10 * time.Minute

	in := Input{Current: at(-16.5, -68.119, noon), Speed: 0, Passengers: 5, Capacity: 18}
	v, err := Evaluate(in, th)
	require.NoError(t, err)
	assert.False(t, v.Detected, "no stop start means no prolonged stop")

	since := noon.Add(-9 * time.Minute)
	in.StoppedSince = &since
	v, err = Evaluate(in, th)
	require.NoError(t, err)
	assert.False(t, v.Detected)

	since = noon.Add(-10 * time.Minute)
	v, err = Evaluate(in, th)
	require.NoError(t, err)
	assert.Equal(t, KindProlongedStop, v.Kind)
	assert.Contains(t, v.Details, "10m0s")
}

func TestEvaluateStopSpeedThreshold(t *testing.T) {
	th := DefaultThresholds()
	th.StopSpeed = 3

	v, err := Evaluate(Input{Current: at(0, 0, noon), Speed: 2.5, Capacity: 10}, th)
	require.NoError(t, err)
	assert.Equal(t, KindProlongedStop, v.Kind)

	v, err = Evaluate(Input{Current: at(0, 0, noon), Speed: 3.5, Capacity: 10}, th)
	require.NoError(t, err)
	assert.False(t, v.Detected)
}

func TestEvaluateConcurrent(t *testing.T) {
	baseline := at(-16.505, -68.119, noon)
	in := Input{Current: at(-16.5, -68.119, noon), LastKnownGood: &baseline, Speed: 20, Passengers: 10, Capacity: 18}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Evaluate(in, DefaultThresholds())
			assert.NoError(t, err)
			assert.Equal(t, KindRouteDeviation, v.Kind)
		}()
	}
	wg.Wait()
}
