package core

import (
	"context"
	"time"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
)

// IncidentNotifier pushes detected incidents to live subscribers.
// In TUEMI this is implemented by the MQTT outbound adapter.
type IncidentNotifier interface {
	Notify(ctx context.Context, i *model.Incident) error
}

// ReportStorage keeps exported trip reports.
// In TUEMI this is implemented by the MinIO adapter.
type ReportStorage interface {
	// PutJSON stores body under key.
	PutJSON(ctx context.Context, key string, body []byte) error

	// PresignedURL returns a temporary download link for key.
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)

	// CheckBucket verifies connectivity, creating the bucket when missing.
	CheckBucket(ctx context.Context) error
}

// SuggestionRequest is what the assistant knows when a rider asks for alternatives.
type SuggestionRequest struct {
	Route      *model.Route
	Stops      []*model.Stop
	Origin     *model.Stop
	Incidents  []*model.Incident
	Candidates []RouteOption
}

// RouteOption is another route reachable near the rider's stop.
type RouteOption struct {
	Route     *model.Route `json:"route"`
	Stop      *model.Stop  `json:"stop"`
	DistanceM float64      `json:"distanceMeters"`
}

// Assistant is the hosted language model collaborator.
type Assistant interface {
	// Enrich rewords an incident for operators. in and v are the evaluated sample.
	Enrich(ctx context.Context, in incident.Input, v incident.Verdict) (string, error)

	// Suggest proposes alternative transport for a disrupted route.
	Suggest(ctx context.Context, req SuggestionRequest) (string, error)
}
