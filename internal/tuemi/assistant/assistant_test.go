package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
	"github.com/tuemi-io/tuemi/pkg/options"
)

func fakeGemini(reply string, err error, seen *[2]string) *Gemini {
	return &Gemini{
		model:    "test-model",
		language: "Spanish",
		generate: func(_ context.Context, system, prompt string) (string, error) {
			if seen != nil {
				*seen = [2]string{system, prompt}
			}
			return reply, err
		},
	}
}

func TestEnrich(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	in := incident.Input{
		Current:       incident.Position{Latitude: 0.01, Longitude: 0, Timestamp: at},
		LastKnownGood: &incident.Position{Timestamp: at.Add(-time.Minute)},
		Speed:         32,
		Passengers:    45,
		Capacity:      40,
	}
	v, err := incident.Evaluate(in, incident.DefaultThresholds())
	require.NoError(t, err)

	var seen [2]string
	g := fakeGemini("  Bus desviado.  ", nil, &seen)
	text, err := g.Enrich(context.Background(), in, v)
	require.NoError(t, err)
	assert.Equal(t, "Bus desviado.", text)

	assert.Contains(t, seen[0], "Spanish")
	assert.Contains(t, seen[1], "overcapacity, route_deviation")
	assert.Contains(t, seen[1], "45 of 40 seats")
	assert.Contains(t, seen[1], "2024-05-06T07:08:09Z")
	assert.Contains(t, seen[1], "Last known good position")
}

func TestEnrichErrors(t *testing.T) {
	ctx := context.Background()

	_, err := fakeGemini("x", nil, nil).Enrich(ctx, incident.Input{}, incident.Verdict{})
	assert.Error(t, err, "undetected verdicts are not sent")

	detected := incident.Verdict{Detected: true, Kind: incident.KindProlongedStop, Kinds: []incident.Kind{incident.KindProlongedStop}}
	_, err = fakeGemini("", errors.New("quota"), nil).Enrich(ctx, incident.Input{}, detected)
	assert.ErrorContains(t, err, "quota")

	_, err = fakeGemini("   ", nil, nil).Enrich(ctx, incident.Input{}, detected)
	assert.ErrorContains(t, err, "empty reply")
}

func TestSuggestPrompt(t *testing.T) {
	var seen [2]string
	g := fakeGemini("Tome la ruta Sur.", nil, &seen)

	req := core.SuggestionRequest{
		Route:  &model.Route{Name: "Norte"},
		Stops:  []*model.Stop{{Name: "Terminal"}, {Name: "Plaza"}},
		Origin: &model.Stop{Name: "Plaza"},
		Incidents: []*model.Incident{
			{Kind: incident.KindProlongedStop, Details: "prolonged stop: vehicle reported 0.0 km/h"},
		},
		Candidates: []core.RouteOption{
			{Route: &model.Route{Name: "Sur"}, Stop: &model.Stop{Name: "Biblioteca"}, DistanceM: 120},
		},
	}
	text, err := g.Suggest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Tome la ruta Sur.", text)

	assert.Contains(t, seen[1], "Terminal → Plaza")
	assert.Contains(t, seen[1], "Rider is at stop: Plaza")
	assert.Contains(t, seen[1], "- prolonged_stop:")
	assert.Contains(t, seen[1], "- Sur, boarding at Biblioteca, 120 m away")

	_, err = g.Suggest(context.Background(), core.SuggestionRequest{})
	assert.Error(t, err)
}

func TestNewWithoutKeyIsNop(t *testing.T) {
	a, err := New(context.Background(), options.NewAssistantOptions())
	require.NoError(t, err)
	assert.IsType(t, Nop{}, a)

	_, err = a.Enrich(context.Background(), incident.Input{}, incident.Verdict{Detected: true})
	assert.ErrorIs(t, err, core.ErrUnavailable)
	_, err = a.Suggest(context.Background(), core.SuggestionRequest{})
	assert.ErrorIs(t, err, core.ErrUnavailable)
}
