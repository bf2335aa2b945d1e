package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
)

// CreateDriver registers a driver. A linked account must exist and have the driver role.
func (s *Service) CreateDriver(ctx context.Context, d *model.Driver) (*model.Driver, error) {
	if err := s.validateDriver(ctx, d); err != nil {
		return nil, err
	}
	d.ID = newID()
	d.CreatedAt = s.now()
	if err := s.repo.Drivers().Create(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}
	return d, nil
}

func (s *Service) GetDriver(ctx context.Context, id string) (*model.Driver, error) {
	return s.repo.Drivers().Get(ctx, id)
}

func (s *Service) ListDrivers(ctx context.Context) ([]*model.Driver, error) {
	return s.repo.Drivers().List(ctx)
}

// UpdateDriver replaces the editable fields of driver d.ID.
func (s *Service) UpdateDriver(ctx context.Context, d *model.Driver) (*model.Driver, error) {
	existing, err := s.repo.Drivers().Get(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	if err := s.validateDriver(ctx, d); err != nil {
		return nil, err
	}
	d.CreatedAt = existing.CreatedAt
	if err := s.repo.Drivers().Update(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to update driver: %w", err)
	}
	return d, nil
}

func (s *Service) DeleteDriver(ctx context.Context, id string) error {
	return s.repo.Drivers().Delete(ctx, id)
}

func (s *Service) validateDriver(ctx context.Context, d *model.Driver) error {
	d.Name = strings.TrimSpace(d.Name)
	d.LicenseNumber = strings.TrimSpace(d.LicenseNumber)
	if err := required("name", d.Name); err != nil {
		return err
	}
	if err := required("license number", d.LicenseNumber); err != nil {
		return err
	}
	if d.UserID == "" {
		return nil
	}

	u, err := s.repo.Users().Get(ctx, d.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return invalid("user %s does not exist", d.UserID)
		}
		return err
	}
	if u.Role != model.RoleDriver {
		return invalid("user %s is a %s, not a driver", u.ID, u.Role)
	}
	return nil
}

// CreateVehicle registers a vehicle. Status defaults to active.
func (s *Service) CreateVehicle(ctx context.Context, v *model.Vehicle) (*model.Vehicle, error) {
	if v.Status == "" {
		v.Status = model.VehicleActive
	}
	if err := s.validateVehicle(ctx, v); err != nil {
		return nil, err
	}
	v.ID = newID()
	v.CreatedAt = s.now()
	if err := s.repo.Vehicles().Create(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}
	return v, nil
}

func (s *Service) GetVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	return s.repo.Vehicles().Get(ctx, id)
}

func (s *Service) ListVehicles(ctx context.Context) ([]*model.Vehicle, error) {
	return s.repo.Vehicles().List(ctx)
}

// UpdateVehicle replaces the editable fields of vehicle v.ID.
func (s *Service) UpdateVehicle(ctx context.Context, v *model.Vehicle) (*model.Vehicle, error) {
	existing, err := s.repo.Vehicles().Get(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	if v.Status == "" {
		v.Status = existing.Status
	}
	if err := s.validateVehicle(ctx, v); err != nil {
		return nil, err
	}
	v.CreatedAt = existing.CreatedAt
	if err := s.repo.Vehicles().Update(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to update vehicle: %w", err)
	}
	if v.Status != model.VehicleActive {
		s.stops.Forget(v.ID)
	}
	return v, nil
}

func (s *Service) DeleteVehicle(ctx context.Context, id string) error {
	if err := s.repo.Vehicles().Delete(ctx, id); err != nil {
		return err
	}
	s.stops.Forget(id)
	return nil
}

func (s *Service) validateVehicle(ctx context.Context, v *model.Vehicle) error {
	v.Plate = strings.ToUpper(strings.TrimSpace(v.Plate))
	if err := required("plate", v.Plate); err != nil {
		return err
	}
	if v.Capacity <= 0 {
		return invalid("capacity must be positive, got %d", v.Capacity)
	}
	if !v.Status.Valid() {
		return invalid("unknown vehicle status %q", v.Status)
	}
	if v.DriverID == "" {
		return nil
	}
	if _, err := s.repo.Drivers().Get(ctx, v.DriverID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return invalid("driver %s does not exist", v.DriverID)
		}
		return err
	}
	return nil
}
