package http

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/service"
	"github.com/tuemi-io/tuemi/pkg/log"
	"github.com/tuemi-io/tuemi/pkg/options"
)

// ReadyFunc reports whether the server's dependencies are reachable.
type ReadyFunc func(ctx context.Context) error

type Server struct {
	server   *http.Server
	options  *options.HttpOptions
	sessions *options.SessionOptions
	svc      *service.Service
	ready    ReadyFunc
	logger   log.Logger
}

func NewServer(opts *options.HttpOptions, sessions *options.SessionOptions, svc *service.Service, ready ReadyFunc) *Server {
	s := &Server{
		options:  opts,
		sessions: sessions,
		svc:      svc,
		ready:    ready,
		logger:   log.WithName("http"),
	}

	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

// Handler builds the router. Exposed for tests.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument)

	// Basic Liveness Probe
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	// Readiness Probe
	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.ready != nil {
			if err := s.ready(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no such endpoint"})
	})

	// Sessions
	api.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", s.logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	api.Handle("/me", s.signedIn(s.me)).Methods(http.MethodGet)

	// Riders and everyone signed in
	api.Handle("/routes", s.signedIn(s.listRoutes)).Methods(http.MethodGet)
	api.Handle("/routes/{id}", s.signedIn(s.getRoute)).Methods(http.MethodGet)
	api.Handle("/routes/{id}/stops", s.signedIn(s.listStops)).Methods(http.MethodGet)
	api.Handle("/map/vehicles", s.signedIn(s.liveMap)).Methods(http.MethodGet)
	api.Handle("/incidents", s.signedIn(s.listIncidents)).Methods(http.MethodGet)
	api.Handle("/incidents/evaluate", s.signedIn(s.evaluate)).Methods(http.MethodPost)
	api.Handle("/suggestions", s.signedIn(s.suggest)).Methods(http.MethodPost)

	// Drivers
	api.Handle("/driver/trips", s.roles(s.driverTrips, model.RoleDriver)).Methods(http.MethodGet)
	api.Handle("/trips/{id}", s.roles(s.getTrip, model.RoleDriver, model.RoleAdmin)).Methods(http.MethodGet)
	api.Handle("/trips/{id}/start", s.roles(s.startTrip, model.RoleDriver, model.RoleAdmin)).Methods(http.MethodPost)
	api.Handle("/trips/{id}/finish", s.roles(s.finishTrip, model.RoleDriver, model.RoleAdmin)).Methods(http.MethodPost)
	api.Handle("/trips/{id}/passengers", s.roles(s.updatePassengers, model.RoleDriver, model.RoleAdmin)).Methods(http.MethodPut)
	api.Handle("/telemetry", s.roles(s.ingestTelemetry, model.RoleDriver, model.RoleAdmin)).Methods(http.MethodPost)

	// Administration
	api.Handle("/users", s.admin(s.listUsers)).Methods(http.MethodGet)
	api.Handle("/users", s.admin(s.createUser)).Methods(http.MethodPost)
	api.Handle("/users/{id}", s.admin(s.getUser)).Methods(http.MethodGet)
	api.Handle("/users/{id}", s.admin(s.updateUser)).Methods(http.MethodPatch)
	api.Handle("/users/{id}", s.admin(s.deleteUser)).Methods(http.MethodDelete)
	api.Handle("/users/{id}/subscription", s.admin(s.setSubscription)).Methods(http.MethodPut)

	api.Handle("/drivers", s.admin(s.listDrivers)).Methods(http.MethodGet)
	api.Handle("/drivers", s.admin(s.createDriver)).Methods(http.MethodPost)
	api.Handle("/drivers/{id}", s.admin(s.getDriver)).Methods(http.MethodGet)
	api.Handle("/drivers/{id}", s.admin(s.updateDriver)).Methods(http.MethodPut)
	api.Handle("/drivers/{id}", s.admin(s.deleteDriver)).Methods(http.MethodDelete)

	api.Handle("/vehicles", s.admin(s.listVehicles)).Methods(http.MethodGet)
	api.Handle("/vehicles", s.admin(s.createVehicle)).Methods(http.MethodPost)
	api.Handle("/vehicles/{id}", s.admin(s.getVehicle)).Methods(http.MethodGet)
	api.Handle("/vehicles/{id}", s.admin(s.updateVehicle)).Methods(http.MethodPut)
	api.Handle("/vehicles/{id}", s.admin(s.deleteVehicle)).Methods(http.MethodDelete)

	api.Handle("/routes", s.admin(s.createRoute)).Methods(http.MethodPost)
	api.Handle("/routes/{id}", s.admin(s.updateRoute)).Methods(http.MethodPut)
	api.Handle("/routes/{id}", s.admin(s.deleteRoute)).Methods(http.MethodDelete)
	api.Handle("/routes/{id}/stops", s.admin(s.addStop)).Methods(http.MethodPost)
	api.Handle("/stops/{id}", s.admin(s.updateStop)).Methods(http.MethodPut)
	api.Handle("/stops/{id}", s.admin(s.deleteStop)).Methods(http.MethodDelete)

	api.Handle("/trips", s.admin(s.listTrips)).Methods(http.MethodGet)
	api.Handle("/trips", s.admin(s.scheduleTrip)).Methods(http.MethodPost)
	api.Handle("/trips/{id}/cancel", s.admin(s.cancelTrip)).Methods(http.MethodPost)
	api.Handle("/trips/{id}/report", s.admin(s.exportReport)).Methods(http.MethodPost)

	api.Handle("/incidents/{id}/resolve", s.admin(s.resolveIncident)).Methods(http.MethodPost)

	return r
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP Server", "addr", s.server.Addr)

	ln, err := net.Listen(s.options.Network, s.server.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
