package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
	"github.com/tuemi-io/tuemi/pkg/geo"
	"github.com/tuemi-io/tuemi/pkg/log"
)

// Suggestion sources.
const (
	SourceAssistant = "assistant"
	SourceFallback  = "fallback"
)

// SuggestionQuery asks for alternatives to a route, optionally from a given stop.
type SuggestionQuery struct {
	RouteID string `json:"routeId"`
	StopID  string `json:"stopId,omitempty"`
}

// Suggestion is the answer to a SuggestionQuery.
type Suggestion struct {
	Text       string             `json:"text"`
	Source     string             `json:"source"`
	Incidents  []*model.Incident  `json:"incidents"`
	Candidates []core.RouteOption `json:"candidates"`
}

// SuggestAlternatives proposes other ways to travel when a route is disrupted.
// Routes stopping within the suggestion radius of the origin are always listed;
// the assistant only phrases the advice.
func (s *Service) SuggestAlternatives(ctx context.Context, q SuggestionQuery) (*Suggestion, error) {
	route, err := s.repo.Routes().Get(ctx, q.RouteID)
	if err != nil {
		return nil, err
	}
	stops, err := s.repo.Routes().Stops(ctx, route.ID)
	if err != nil {
		return nil, err
	}

	origin, err := s.originStop(ctx, route, stops, q.StopID)
	if err != nil {
		return nil, err
	}

	incidents, err := s.routeIncidents(ctx, route.ID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.nearbyRoutes(ctx, route.ID, origin)
	if err != nil {
		return nil, err
	}

	out := &Suggestion{Incidents: incidents, Candidates: candidates}
	if s.assistant != nil {
		actx, cancel := context.WithTimeout(ctx, s.enrichTimeout)
		text, err := s.assistant.Suggest(actx, core.SuggestionRequest{
			Route:      route,
			Stops:      stops,
			Origin:     origin,
			Incidents:  incidents,
			Candidates: candidates,
		})
		cancel()
		switch {
		case err == nil && strings.TrimSpace(text) != "":
			out.Text = strings.TrimSpace(text)
			out.Source = SourceAssistant
			return out, nil
		case err != nil && !errors.Is(err, core.ErrUnavailable):
			log.FromContext(ctx).Warn("Assistant suggestion failed, using nearby routes", "routeID", route.ID, "error", err)
		}
	}

	out.Text = fallbackSuggestion(route, origin, candidates, s.suggestionRadius)
	out.Source = SourceFallback
	return out, nil
}

func (s *Service) originStop(ctx context.Context, route *model.Route, stops []*model.Stop, stopID string) (*model.Stop, error) {
	if stopID == "" {
		if len(stops) == 0 {
			return nil, nil
		}
		return stops[0], nil
	}

	st, err := s.repo.Routes().GetStop(ctx, stopID)
	if err != nil {
		return nil, err
	}
	if st.RouteID != route.ID {
		return nil, invalid("stop %s is not on route %s", st.ID, route.ID)
	}
	return st, nil
}

// routeIncidents returns the open incidents of the trips running on routeID.
func (s *Service) routeIncidents(ctx context.Context, routeID string) ([]*model.Incident, error) {
	trips, err := s.repo.Trips().List(ctx, model.TripFilter{RouteID: routeID, Status: model.TripInProgress})
	if err != nil {
		return nil, err
	}

	out := []*model.Incident{}
	for _, t := range trips {
		incs, err := s.repo.Incidents().List(ctx, model.IncidentFilter{TripID: t.ID, Unresolved: true})
		if err != nil {
			return nil, err
		}
		out = append(out, incs...)
	}
	return out, nil
}

// nearbyRoutes lists the other active routes with a stop within the suggestion
// radius of origin, nearest first, one entry per route.
func (s *Service) nearbyRoutes(ctx context.Context, routeID string, origin *model.Stop) ([]core.RouteOption, error) {
	out := []core.RouteOption{}
	if origin == nil {
		return out, nil
	}

	all, err := s.repo.Routes().AllStops(ctx)
	if err != nil {
		return nil, err
	}

	from := geo.Point{Lat: origin.Latitude, Lng: origin.Longitude}
	best := map[string]core.RouteOption{}
	for _, st := range all {
		if st.RouteID == routeID {
			continue
		}
		d := geo.Distance(from, geo.Point{Lat: st.Latitude, Lng: st.Longitude})
		if d > s.suggestionRadius {
			continue
		}
		if cur, ok := best[st.RouteID]; ok && cur.DistanceM <= d {
			continue
		}
		best[st.RouteID] = core.RouteOption{Stop: st, DistanceM: d}
	}

	for id, opt := range best {
		r, err := s.repo.Routes().Get(ctx, id)
		if err != nil {
			return nil, err
		}
		opt.Route = r
		out = append(out, opt)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceM != out[j].DistanceM {
			return out[i].DistanceM < out[j].DistanceM
		}
		return out[i].Route.Name < out[j].Route.Name
	})
	return out, nil
}

func fallbackSuggestion(route *model.Route, origin *model.Stop, candidates []core.RouteOption, radius float64) string {
	if origin == nil {
		return fmt.Sprintf("Route %s has no stops to search alternatives from.", route.Name)
	}
	if len(candidates) == 0 {
		return fmt.Sprintf("No other route stops within %.0f m of %s. Consider waiting for service on %s to resume or using a taxi.",
			radius, origin.Name, route.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Alternatives near %s while %s is disrupted:", origin.Name, route.Name)
	for _, c := range candidates {
		fmt.Fprintf(&b, "\n- %s from %s (%.0f m away)", c.Route.Name, c.Stop.Name, c.DistanceM)
	}
	return b.String()
}
