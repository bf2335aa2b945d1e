package http

import (
	"net/http"
	"strconv"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/pkg/metrics"
	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/service"
)

func (s *Server) ingestTelemetry(w http.ResponseWriter, r *http.Request) {
	var sample service.TelemetrySample
	if err := decode(r, &sample); err != nil {
		metrics.TelemetryReceivedTotal.WithLabelValues(metrics.TransportHTTP, metrics.OutcomeRejected).Inc()
		writeError(w, r, err)
		return
	}
	result, err := s.svc.SubmitTelemetry(r.Context(), userFrom(r.Context()), sample)
	if err != nil {
		metrics.TelemetryReceivedTotal.WithLabelValues(metrics.TransportHTTP, metrics.OutcomeRejected).Inc()
		writeError(w, r, err)
		return
	}
	metrics.TelemetryReceivedTotal.WithLabelValues(metrics.TransportHTTP, metrics.OutcomeAccepted).Inc()

	code := http.StatusAccepted
	if result.Incident != nil {
		code = http.StatusCreated
	}
	writeJSON(w, code, result)
}

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	var in incident.Input
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	verdict, err := s.svc.EvaluateSample(in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}

func (s *Server) listIncidents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.IncidentFilter{
		VehicleID:  q.Get("vehicleId"),
		TripID:     q.Get("tripId"),
		Kind:       incident.Kind(q.Get("kind")),
		Unresolved: q.Get("unresolved") == "true",
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be an integer"})
			return
		}
		f.Limit = n
	}
	incidents, err := s.svc.ListIncidents(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, incidents)
}

func (s *Server) resolveIncident(w http.ResponseWriter, r *http.Request) {
	inc, err := s.svc.ResolveIncident(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

func (s *Server) liveMap(w http.ResponseWriter, r *http.Request) {
	fc, err := s.svc.LiveMap(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_ = encodeTo(w, fc)
}

func (s *Server) suggest(w http.ResponseWriter, r *http.Request) {
	var q service.SuggestionQuery
	if err := decode(r, &q); err != nil {
		writeError(w, r, err)
		return
	}
	if q.RouteID == "" {
		writeError(w, r, core.ErrInvalidArgument)
		return
	}
	suggestion, err := s.svc.SuggestAlternatives(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}
