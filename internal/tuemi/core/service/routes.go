package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
)

func (s *Service) CreateRoute(ctx context.Context, r *model.Route) (*model.Route, error) {
	r.Name = strings.TrimSpace(r.Name)
	if err := required("name", r.Name); err != nil {
		return nil, err
	}
	r.ID = newID()
	r.CreatedAt = s.now()
	if err := s.repo.Routes().Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create route: %w", err)
	}
	return r, nil
}

func (s *Service) GetRoute(ctx context.Context, id string) (*model.Route, error) {
	return s.repo.Routes().Get(ctx, id)
}

func (s *Service) ListRoutes(ctx context.Context, activeOnly bool) ([]*model.Route, error) {
	return s.repo.Routes().List(ctx, activeOnly)
}

func (s *Service) UpdateRoute(ctx context.Context, r *model.Route) (*model.Route, error) {
	existing, err := s.repo.Routes().Get(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	r.Name = strings.TrimSpace(r.Name)
	if err := required("name", r.Name); err != nil {
		return nil, err
	}
	r.CreatedAt = existing.CreatedAt
	if err := s.repo.Routes().Update(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to update route: %w", err)
	}
	return r, nil
}

func (s *Service) DeleteRoute(ctx context.Context, id string) error {
	return s.repo.Routes().Delete(ctx, id)
}

// AddStop appends a stop to a route. A zero Sequence places it after the last stop.
func (s *Service) AddStop(ctx context.Context, st *model.Stop) (*model.Stop, error) {
	if err := validateStop(st); err != nil {
		return nil, err
	}

	err := s.repo.InTx(ctx, func(ctx context.Context, tx core.Repository) error {
		if _, err := tx.Routes().Get(ctx, st.RouteID); err != nil {
			return err
		}
		if st.Sequence == 0 {
			stops, err := tx.Routes().Stops(ctx, st.RouteID)
			if err != nil {
				return err
			}
			st.Sequence = 1
			if n := len(stops); n > 0 {
				st.Sequence = stops[n-1].Sequence + 1
			}
		}
		st.ID = newID()
		return tx.Routes().AddStop(ctx, st)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add stop: %w", err)
	}
	return st, nil
}

// ListStops returns the stops of a route in travel order.
func (s *Service) ListStops(ctx context.Context, routeID string) ([]*model.Stop, error) {
	if _, err := s.repo.Routes().Get(ctx, routeID); err != nil {
		return nil, err
	}
	return s.repo.Routes().Stops(ctx, routeID)
}

func (s *Service) UpdateStop(ctx context.Context, st *model.Stop) (*model.Stop, error) {
	existing, err := s.repo.Routes().GetStop(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	st.RouteID = existing.RouteID
	if st.Sequence == 0 {
		st.Sequence = existing.Sequence
	}
	if err := validateStop(st); err != nil {
		return nil, err
	}
	if err := s.repo.Routes().UpdateStop(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to update stop: %w", err)
	}
	return st, nil
}

func (s *Service) DeleteStop(ctx context.Context, id string) error {
	return s.repo.Routes().DeleteStop(ctx, id)
}

func validateStop(st *model.Stop) error {
	st.Name = strings.TrimSpace(st.Name)
	if err := required("route", st.RouteID); err != nil {
		return err
	}
	if err := required("name", st.Name); err != nil {
		return err
	}
	if st.Sequence < 0 {
		return invalid("sequence must not be negative, got %d", st.Sequence)
	}
	return validPoint(st.Latitude, st.Longitude)
}
