package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/pkg/metrics"
	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
	"github.com/tuemi-io/tuemi/pkg/geo"
	"github.com/tuemi-io/tuemi/pkg/log"
)

// TelemetrySample is a position report from a vehicle. Passengers, when set,
// overwrites the head count of the active trip. A zero Timestamp means now.
type TelemetrySample struct {
	VehicleID  string    `json:"vehicleId"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Speed      float64   `json:"speed"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
	Passengers *int      `json:"passengers,omitempty"`
}

// IngestResult reports what a sample produced.
type IngestResult struct {
	Telemetry *model.Telemetry `json:"telemetry"`
	Verdict   incident.Verdict `json:"verdict"`

	// Incidents holds the incidents this sample opened, one per newly fired kind.
	// Incident is the last of them, nil when nothing new was detected.
	Incidents []*model.Incident `json:"incidents,omitempty"`
	Incident  *model.Incident   `json:"incident,omitempty"`

	// Duplicate is set when a fired kind matched an open incident of the same trip.
	Duplicate bool `json:"duplicate,omitempty"`

	// Rejoined is set when a settled deviation moved the baseline to this sample.
	Rejoined bool `json:"rejoined,omitempty"`
}

// IngestTelemetry stores a sample reported by a vehicle and runs the incident
// heuristic on it.
//
// Samples outside an in-progress trip are stored for the live map only. Within a
// trip the sample is evaluated against the vehicle's last known good position,
// or against a stop of the trip's route when one is close enough. The baseline
// moves to every sample that does not deviate, and to a deviating sample once
// it ends a run of Config.RejoinSamples consecutive deviations that agree
// with each other.
func (s *Service) IngestTelemetry(ctx context.Context, sample TelemetrySample) (*IngestResult, error) {
	return s.ingest(ctx, nil, sample)
}

// SubmitTelemetry is IngestTelemetry on behalf of a signed-in account. Drivers
// may only report for the vehicle of their own running trip, or for the vehicle
// assigned to them while it is off trip.
func (s *Service) SubmitTelemetry(ctx context.Context, actor *model.User, sample TelemetrySample) (*IngestResult, error) {
	if actor == nil {
		return nil, fmt.Errorf("no actor: %w", core.ErrUnauthorized)
	}
	return s.ingest(ctx, actor, sample)
}

func (s *Service) ingest(ctx context.Context, actor *model.User, sample TelemetrySample) (*IngestResult, error) {
	if err := required("vehicle", sample.VehicleID); err != nil {
		return nil, err
	}
	if err := validPoint(sample.Latitude, sample.Longitude); err != nil {
		return nil, err
	}
	if err := validSpeed(sample.Speed); err != nil {
		return nil, err
	}
	if sample.Passengers != nil && *sample.Passengers < 0 {
		return nil, fmt.Errorf("passengers %d: %w: %w", *sample.Passengers, core.ErrInvalidArgument, incident.ErrInvalidInput)
	}

	ts := sample.Timestamp.UTC()
	if sample.Timestamp.IsZero() {
		ts = s.now()
	}

	th := s.thresholds.Thresholds()
	logger := log.FromContext(ctx).WithValues("vehicleID", sample.VehicleID)
	result := &IngestResult{}

	var (
		evaluated bool
		input     incident.Input
		run       incident.DeviationRun
		stopSnap  *incident.StopSnapshot
	)

	err := s.repo.InTx(ctx, func(ctx context.Context, tx core.Repository) error {
		vehicle, err := tx.Vehicles().Get(ctx, sample.VehicleID)
		if err != nil {
			return err
		}

		trip, err := tx.Trips().ActiveForVehicle(ctx, vehicle.ID)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return err
		}
		if actor != nil {
			if err := authorizeVehicle(ctx, tx, actor, vehicle, trip); err != nil {
				return err
			}
		}

		t := &model.Telemetry{
			VehicleID: vehicle.ID,
			Latitude:  sample.Latitude,
			Longitude: sample.Longitude,
			Speed:     sample.Speed,
			Timestamp: ts,
		}
		if trip != nil {
			t.TripID = trip.ID
		}
		if err := tx.Telemetry().Append(ctx, t); err != nil {
			return err
		}
		result.Telemetry = t

		if trip == nil {
			return nil
		}

		if sample.Passengers != nil && *sample.Passengers != trip.Passengers {
			trip.Passengers = *sample.Passengers
			if err := tx.Trips().Update(ctx, trip); err != nil {
				return err
			}
		}

		snap := s.stops.Snapshot(vehicle.ID)
		stopSnap = &snap
		in, err := s.buildInput(ctx, tx, t, trip, vehicle, th)
		if err != nil {
			return err
		}

		verdict, err := incident.Evaluate(in, th)
		if err != nil {
			return fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
		}
		result.Verdict = verdict
		input = in
		evaluated = true

		moveBaseline := true
		if verdict.Has(incident.KindRouteDeviation) {
			run = s.deviations.Next(vehicle.ID, t.Position(), th)
			if run.Count >= s.rejoinSamples {
				result.Rejoined = true
				run = incident.DeviationRun{}
			} else {
				moveBaseline = false
			}
		}
		if moveBaseline {
			if err := tx.Telemetry().SetLastKnownGood(ctx, vehicle.ID, t.Position()); err != nil {
				return err
			}
		}

		for _, kind := range verdict.Kinds {
			open, err := tx.Incidents().List(ctx, model.IncidentFilter{TripID: trip.ID, Kind: kind, Unresolved: true, Limit: 1})
			if err != nil {
				return err
			}
			if len(open) > 0 {
				result.Duplicate = true
				continue
			}

			inc := &model.Incident{
				ID:         newID(),
				VehicleID:  vehicle.ID,
				TripID:     trip.ID,
				Kind:       kind,
				Details:    verdict.Only(kind).Details,
				Latitude:   t.Latitude,
				Longitude:  t.Longitude,
				DetectedAt: ts,
			}
			if err := tx.Incidents().Create(ctx, inc); err != nil {
				return err
			}
			result.Incidents = append(result.Incidents, inc)
			result.Incident = inc
		}
		return nil
	})
	if err != nil {
		if stopSnap != nil {
			s.stops.Restore(*stopSnap)
		}
		return nil, err
	}

	if evaluated {
		s.deviations.Set(sample.VehicleID, run)
	}
	if result.Rejoined {
		logger.Info("Deviation settled, baseline moved", "tripID", result.Telemetry.TripID)
	}
	for _, inc := range result.Incidents {
		metrics.IncidentsDetectedTotal.WithLabelValues(string(inc.Kind)).Inc()
		logger.Warn("Incident detected", "incidentID", inc.ID, "kind", inc.Kind, "kinds", result.Verdict.Kinds)
		s.dispatch(ctx, *inc, input, result.Verdict.Only(inc.Kind))
	}
	return result, nil
}

// authorizeVehicle checks that actor may report telemetry for vehicle, whose
// running trip, if any, is trip.
func authorizeVehicle(ctx context.Context, repo core.Repository, actor *model.User, vehicle *model.Vehicle, trip *model.Trip) error {
	if trip != nil {
		return authorizeTrip(ctx, repo, actor, trip)
	}
	switch actor.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleDriver:
		d, err := repo.Drivers().GetByUser(ctx, actor.ID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("account %s is not linked to a driver: %w", actor.ID, core.ErrForbidden)
			}
			return err
		}
		if d.ID != vehicle.DriverID {
			return fmt.Errorf("vehicle %s is assigned to another driver: %w", vehicle.ID, core.ErrForbidden)
		}
		return nil
	}
	return fmt.Errorf("role %s cannot report telemetry: %w", actor.Role, core.ErrForbidden)
}

func (s *Service) buildInput(ctx context.Context, tx core.Repository, t *model.Telemetry, trip *model.Trip, vehicle *model.Vehicle, th incident.Thresholds) (incident.Input, error) {
	in := incident.Input{
		Current:    t.Position(),
		Speed:      t.Speed,
		Passengers: trip.Passengers,
		Capacity:   vehicle.Capacity,
	}

	lkg, err := tx.Telemetry().LastKnownGood(ctx, vehicle.ID)
	switch {
	case err == nil:
		in.LastKnownGood = lkg
	case !errors.Is(err, core.ErrNotFound):
		return in, err
	}

	// Far from the baseline but close to a stop of the route is still on route.
	if in.LastKnownGood != nil && geo.Distance(in.LastKnownGood.Point(), in.Current.Point()) > th.DeviationMeters {
		stops, err := tx.Routes().Stops(ctx, trip.RouteID)
		if err != nil {
			return in, err
		}
		if stop, d := nearestStop(stops, in.Current.Point()); stop != nil && d <= th.DeviationMeters {
			in.LastKnownGood = &incident.Position{Latitude: stop.Latitude, Longitude: stop.Longitude, Timestamp: t.Timestamp}
		}
	}

	avg, err := tx.Telemetry().AverageSpeed(ctx, trip.ID)
	if err != nil {
		return in, err
	}
	in.AverageSpeed = avg

	status, err := s.stops.Observe(ctx, vehicle.ID, t.Timestamp, t.Speed, th)
	if err != nil {
		return in, err
	}
	in.StoppedSince = status.Since
	return in, nil
}

func nearestStop(stops []*model.Stop, p geo.Point) (*model.Stop, float64) {
	var (
		best *model.Stop
		dist float64
	)
	for _, st := range stops {
		d := geo.Distance(geo.Point{Lat: st.Latitude, Lng: st.Longitude}, p)
		if best == nil || d < dist {
			best, dist = st, d
		}
	}
	return best, dist
}

// dispatch enriches and publishes inc off the request path. Wait blocks until
// every dispatched incident is done.
func (s *Service) dispatch(ctx context.Context, inc model.Incident, in incident.Input, v incident.Verdict) {
	ctx = context.WithoutCancel(ctx)
	s.background.Go(func() {
		s.enrich(ctx, &inc, in, v)
		s.notify(ctx, &inc)
	})
}

// Wait blocks until the enrichment and notification of every ingested incident
// has finished.
func (s *Service) Wait() {
	s.background.Wait()
}

// enrich asks the assistant for operator-friendly details. Failures keep the
// programmatic details.
func (s *Service) enrich(ctx context.Context, inc *model.Incident, in incident.Input, v incident.Verdict) {
	if s.assistant == nil {
		metrics.EnrichmentTotal.WithLabelValues("skipped").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.enrichTimeout)
	defer cancel()

	text, err := s.assistant.Enrich(ctx, in, v)
	text = strings.TrimSpace(text)
	switch {
	case errors.Is(err, core.ErrUnavailable):
		metrics.EnrichmentTotal.WithLabelValues("skipped").Inc()
		return
	case err != nil || text == "":
		metrics.EnrichmentTotal.WithLabelValues("fallback").Inc()
		log.FromContext(ctx).Warn("Incident enrichment failed, keeping computed details", "incidentID", inc.ID, "error", err)
		return
	}

	// The stored details must still carry the position and time of the sample.
	text = text + "\n\n" + v.Details
	if err := s.repo.Incidents().UpdateDetails(ctx, inc.ID, text); err != nil {
		metrics.EnrichmentTotal.WithLabelValues("fallback").Inc()
		log.FromContext(ctx).Warn("Failed to store enriched details", "incidentID", inc.ID, "error", err)
		return
	}
	inc.Details = text
	metrics.EnrichmentTotal.WithLabelValues("ok").Inc()
}

func (s *Service) notify(ctx context.Context, inc *model.Incident) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, inc); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		log.FromContext(ctx).Error(err, "Failed to publish incident", "incidentID", inc.ID)
		return
	}
	metrics.NotificationsTotal.WithLabelValues("success").Inc()
}

// EvaluateSample runs the heuristic on a caller-supplied input without storing anything.
func (s *Service) EvaluateSample(in incident.Input) (incident.Verdict, error) {
	v, err := incident.Evaluate(in, s.thresholds.Thresholds())
	if err != nil {
		return incident.Verdict{}, fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}
	return v, nil
}

func (s *Service) ListIncidents(ctx context.Context, f model.IncidentFilter) ([]*model.Incident, error) {
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, invalid("unknown incident kind %q", f.Kind)
	}
	if f.Limit < 0 {
		return nil, invalid("limit must not be negative")
	}
	return s.repo.Incidents().List(ctx, f)
}

func (s *Service) GetIncident(ctx context.Context, id string) (*model.Incident, error) {
	return s.repo.Incidents().Get(ctx, id)
}

// ResolveIncident closes an incident. Resolving twice keeps the first resolution time.
func (s *Service) ResolveIncident(ctx context.Context, id string) (*model.Incident, error) {
	var inc *model.Incident
	err := s.repo.InTx(ctx, func(ctx context.Context, tx core.Repository) error {
		i, err := tx.Incidents().Get(ctx, id)
		if err != nil {
			return err
		}
		if !i.Resolved {
			now := s.now()
			if err := tx.Incidents().Resolve(ctx, id, now); err != nil {
				return err
			}
			i.Resolved = true
			i.ResolvedAt = &now
		}
		inc = i
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inc, nil
}

// LiveMap renders the latest position of every vehicle as GeoJSON points, annotated
// with the running trip and its open incidents.
func (s *Service) LiveMap(ctx context.Context) (*geo.FeatureCollection, error) {
	latest, err := s.repo.Telemetry().Latest(ctx)
	if err != nil {
		return nil, err
	}
	open, err := s.repo.Incidents().List(ctx, model.IncidentFilter{Unresolved: true})
	if err != nil {
		return nil, err
	}
	openByVehicle := map[string]int{}
	for _, i := range open {
		openByVehicle[i.VehicleID]++
	}

	routes := map[string]*model.Route{}
	fc := geo.NewFeatureCollection()
	for _, t := range latest {
		vehicle, err := s.repo.Vehicles().Get(ctx, t.VehicleID)
		if err != nil {
			return nil, err
		}

		props := map[string]any{
			"vehicleId":     vehicle.ID,
			"plate":         vehicle.Plate,
			"status":        vehicle.Status,
			"capacity":      vehicle.Capacity,
			"speed":         t.Speed,
			"timestamp":     t.Timestamp.Format(time.RFC3339),
			"openIncidents": openByVehicle[vehicle.ID],
		}

		trip, err := s.repo.Trips().ActiveForVehicle(ctx, vehicle.ID)
		switch {
		case err == nil:
			props["tripId"] = trip.ID
			props["passengers"] = trip.Passengers
			props["routeId"] = trip.RouteID
			r, ok := routes[trip.RouteID]
			if !ok {
				if r, err = s.repo.Routes().Get(ctx, trip.RouteID); err != nil {
					return nil, err
				}
				routes[trip.RouteID] = r
			}
			props["routeName"] = r.Name
		case !errors.Is(err, core.ErrNotFound):
			return nil, err
		}

		fc.Add(geo.NewPointFeature(vehicle.ID, geo.Point{Lat: t.Latitude, Lng: t.Longitude}, props))
	}
	return fc, nil
}
