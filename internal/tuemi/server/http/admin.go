package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/service"
)

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

// Users

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.ListUsers(r.Context(), model.Role(r.URL.Query().Get("role")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var in service.NewUser
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.svc.CreateUser(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.GetUser(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var patch service.UserPatch
	if err := decode(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.svc.UpdateUser(r.Context(), pathID(r), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteUser(r.Context(), pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type subscriptionBody struct {
	Subscribed bool      `json:"subscribed"`
	ExpiresAt  time.Time `json:"expiresAt,omitzero"`
}

func (s *Server) setSubscription(w http.ResponseWriter, r *http.Request) {
	var in subscriptionBody
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.svc.SetSubscription(r.Context(), pathID(r), in.Subscribed, in.ExpiresAt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Drivers

func (s *Server) listDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := s.svc.ListDrivers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, drivers)
}

func (s *Server) createDriver(w http.ResponseWriter, r *http.Request) {
	var d model.Driver
	if err := decode(r, &d); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.CreateDriver(r.Context(), &d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getDriver(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.GetDriver(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) updateDriver(w http.ResponseWriter, r *http.Request) {
	var d model.Driver
	if err := decode(r, &d); err != nil {
		writeError(w, r, err)
		return
	}
	d.ID = pathID(r)
	updated, err := s.svc.UpdateDriver(r.Context(), &d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteDriver(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteDriver(r.Context(), pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Vehicles

func (s *Server) listVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := s.svc.ListVehicles(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func (s *Server) createVehicle(w http.ResponseWriter, r *http.Request) {
	var v model.Vehicle
	if err := decode(r, &v); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.CreateVehicle(r.Context(), &v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.GetVehicle(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) updateVehicle(w http.ResponseWriter, r *http.Request) {
	var v model.Vehicle
	if err := decode(r, &v); err != nil {
		writeError(w, r, err)
		return
	}
	v.ID = pathID(r)
	updated, err := s.svc.UpdateVehicle(r.Context(), &v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteVehicle(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteVehicle(r.Context(), pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Routes and stops

func (s *Server) listRoutes(w http.ResponseWriter, r *http.Request) {
	// Inactive routes are only listed for administrators who ask for them.
	activeOnly := true
	if r.URL.Query().Get("all") == "true" && userFrom(r.Context()).Role == model.RoleAdmin {
		activeOnly = false
	}
	routes, err := s.svc.ListRoutes(r.Context(), activeOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routes)
}

func (s *Server) getRoute(w http.ResponseWriter, r *http.Request) {
	route, err := s.svc.GetRoute(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

func (s *Server) createRoute(w http.ResponseWriter, r *http.Request) {
	var route model.Route
	if err := decode(r, &route); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.CreateRoute(r.Context(), &route)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateRoute(w http.ResponseWriter, r *http.Request) {
	var route model.Route
	if err := decode(r, &route); err != nil {
		writeError(w, r, err)
		return
	}
	route.ID = pathID(r)
	updated, err := s.svc.UpdateRoute(r.Context(), &route)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteRoute(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteRoute(r.Context(), pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listStops(w http.ResponseWriter, r *http.Request) {
	stops, err := s.svc.ListStops(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stops)
}

func (s *Server) addStop(w http.ResponseWriter, r *http.Request) {
	var st model.Stop
	if err := decode(r, &st); err != nil {
		writeError(w, r, err)
		return
	}
	st.RouteID = pathID(r)
	created, err := s.svc.AddStop(r.Context(), &st)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateStop(w http.ResponseWriter, r *http.Request) {
	var st model.Stop
	if err := decode(r, &st); err != nil {
		writeError(w, r, err)
		return
	}
	st.ID = pathID(r)
	updated, err := s.svc.UpdateStop(r.Context(), &st)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteStop(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteStop(r.Context(), pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
