package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
	"github.com/tuemi-io/tuemi/pkg/geo"
)

// TripReport is the archived summary of a trip.
type TripReport struct {
	GeneratedAt     time.Time             `json:"generatedAt"`
	Trip            *model.Trip           `json:"trip"`
	Route           *model.Route          `json:"route"`
	Stops           []*model.Stop         `json:"stops"`
	Vehicle         *model.Vehicle        `json:"vehicle"`
	Driver          *model.Driver         `json:"driver"`
	Samples         int                   `json:"samples"`
	DistanceMeters  float64               `json:"distanceMeters"`
	AverageSpeedKmh float64               `json:"averageSpeedKmh"`
	IncidentsByKind map[incident.Kind]int `json:"incidentsByKind"`
	Incidents       []*model.Incident     `json:"incidents"`
	Telemetry       []*model.Telemetry    `json:"telemetry"`
}

// ReportLink points at an exported report.
type ReportLink struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// BuildTripReport gathers everything known about a trip.
func (s *Service) BuildTripReport(ctx context.Context, tripID string) (*TripReport, error) {
	trip, err := s.repo.Trips().Get(ctx, tripID)
	if err != nil {
		return nil, err
	}

	r := &TripReport{GeneratedAt: s.now(), Trip: trip, IncidentsByKind: map[incident.Kind]int{}}
	if r.Route, err = s.repo.Routes().Get(ctx, trip.RouteID); err != nil {
		return nil, err
	}
	if r.Stops, err = s.repo.Routes().Stops(ctx, trip.RouteID); err != nil {
		return nil, err
	}
	if r.Vehicle, err = s.repo.Vehicles().Get(ctx, trip.VehicleID); err != nil {
		return nil, err
	}
	if r.Driver, err = s.repo.Drivers().Get(ctx, trip.DriverID); err != nil {
		return nil, err
	}
	if r.Telemetry, err = s.repo.Telemetry().ForTrip(ctx, trip.ID); err != nil {
		return nil, err
	}
	if r.AverageSpeedKmh, err = s.repo.Telemetry().AverageSpeed(ctx, trip.ID); err != nil {
		return nil, err
	}
	if r.Incidents, err = s.repo.Incidents().List(ctx, model.IncidentFilter{TripID: trip.ID}); err != nil {
		return nil, err
	}

	r.Samples = len(r.Telemetry)
	for i := 1; i < len(r.Telemetry); i++ {
		a, b := r.Telemetry[i-1], r.Telemetry[i]
		r.DistanceMeters += geo.Distance(geo.Point{Lat: a.Latitude, Lng: a.Longitude}, geo.Point{Lat: b.Latitude, Lng: b.Longitude})
	}
	for _, i := range r.Incidents {
		r.IncidentsByKind[i.Kind]++
	}
	return r, nil
}

// ExportTripReport archives the report of a trip in object storage and returns a
// temporary download link.
func (s *Service) ExportTripReport(ctx context.Context, tripID string) (*ReportLink, error) {
	if s.reports == nil {
		return nil, fmt.Errorf("report storage is not configured: %w", core.ErrUnavailable)
	}

	report, err := s.BuildTripReport(ctx, tripID)
	if err != nil {
		return nil, err
	}
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode trip report: %w", err)
	}

	key := fmt.Sprintf("trips/%s/report-%s.json", tripID, report.GeneratedAt.Format("20060102T150405Z"))
	if err := s.reports.PutJSON(ctx, key, body); err != nil {
		return nil, storageErr("failed to upload trip report", err)
	}
	url, err := s.reports.PresignedURL(ctx, key, s.reportURLExpiry)
	if err != nil {
		return nil, storageErr("failed to sign trip report URL", err)
	}

	s.logger.Info("Trip report exported", "tripID", tripID, "key", key)
	return &ReportLink{Key: key, URL: url, ExpiresAt: report.GeneratedAt.Add(s.reportURLExpiry)}, nil
}

func storageErr(msg string, err error) error {
	if errors.Is(err, core.ErrUnavailable) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, core.ErrUnavailable, err)
}
