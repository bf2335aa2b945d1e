package http

import (
	"context"
	"net/http"

	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/service"
)

func (s *Server) listTrips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	trips, err := s.svc.ListTrips(r.Context(), model.TripFilter{
		VehicleID: q.Get("vehicleId"),
		DriverID:  q.Get("driverId"),
		RouteID:   q.Get("routeId"),
		Status:    model.TripStatus(q.Get("status")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

func (s *Server) scheduleTrip(w http.ResponseWriter, r *http.Request) {
	var in service.NewTrip
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	trip, err := s.svc.ScheduleTrip(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

func (s *Server) getTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := s.svc.GetTrip(r.Context(), userFrom(r.Context()), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (s *Server) driverTrips(w http.ResponseWriter, r *http.Request) {
	status := model.TripStatus(r.URL.Query().Get("status"))
	trips, err := s.svc.DriverTrips(r.Context(), userFrom(r.Context()), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

func (s *Server) startTrip(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.svc.StartTrip)
}

func (s *Server) finishTrip(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.svc.FinishTrip)
}

func (s *Server) cancelTrip(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.svc.CancelTrip)
}

func (s *Server) transition(
	w http.ResponseWriter,
	r *http.Request,
	fire func(ctx context.Context, actor *model.User, id string) (*model.Trip, error),
) {
	trip, err := fire(r.Context(), userFrom(r.Context()), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

type passengersBody struct {
	Count    int  `json:"count"`
	Relative bool `json:"relative,omitempty"`
}

func (s *Server) updatePassengers(w http.ResponseWriter, r *http.Request) {
	var in passengersBody
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	trip, err := s.svc.UpdatePassengers(r.Context(), userFrom(r.Context()), pathID(r), in.Count, in.Relative)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (s *Server) exportReport(w http.ResponseWriter, r *http.Request) {
	link, err := s.svc.ExportTripReport(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}
