package tuemi

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/service"
	"github.com/tuemi-io/tuemi/pkg/log"
)

// Seed is the YAML fixture loaded into a fresh database. Drivers refer to their
// portal account by email and vehicles to their driver by license number.
type Seed struct {
	Users []struct {
		Email      string     `yaml:"email"`
		Name       string     `yaml:"name"`
		Password   string     `yaml:"password"`
		Role       model.Role `yaml:"role"`
		Subscribed bool       `yaml:"subscribed"`
	} `yaml:"users"`

	Drivers []struct {
		Name          string `yaml:"name"`
		LicenseNumber string `yaml:"licenseNumber"`
		Phone         string `yaml:"phone"`
		Email         string `yaml:"email"`
		Active        *bool  `yaml:"active"`
	} `yaml:"drivers"`

	Vehicles []struct {
		Plate    string              `yaml:"plate"`
		Model    string              `yaml:"model"`
		Capacity int                 `yaml:"capacity"`
		Driver   string              `yaml:"driver"`
		Status   model.VehicleStatus `yaml:"status"`
	} `yaml:"vehicles"`

	Routes []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Active      *bool  `yaml:"active"`
		Stops       []struct {
			Name      string  `yaml:"name"`
			Latitude  float64 `yaml:"latitude"`
			Longitude float64 `yaml:"longitude"`
		} `yaml:"stops"`
	} `yaml:"routes"`
}

// LoadSeedFile applies the fixture at path unless the database already has users.
func LoadSeedFile(ctx context.Context, svc *service.Service, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	existing, err := svc.ListUsers(ctx, "")
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Info("Database already populated, skipping seed", "file", path)
		return nil
	}
	return seed.Apply(ctx, svc)
}

// Apply creates every entity of the fixture through the service, so the usual
// validation applies.
func (s *Seed) Apply(ctx context.Context, svc *service.Service) error {
	userIDs := map[string]string{}
	for _, u := range s.Users {
		created, err := svc.CreateUser(ctx, service.NewUser{Email: u.Email, Name: u.Name, Password: u.Password, Role: u.Role})
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		if u.Subscribed {
			if _, err := svc.SetSubscription(ctx, created.ID, true, time.Time{}); err != nil {
				return fmt.Errorf("seed subscription %s: %w", u.Email, err)
			}
		}
		userIDs[created.Email] = created.ID // normalized to lower case
	}

	driverIDs := map[string]string{}
	for _, d := range s.Drivers {
		driver := &model.Driver{
			Name:          d.Name,
			LicenseNumber: d.LicenseNumber,
			Phone:         d.Phone,
			Active:        d.Active == nil || *d.Active,
		}
		if d.Email != "" {
			id, ok := userIDs[strings.ToLower(strings.TrimSpace(d.Email))]
			if !ok {
				return fmt.Errorf("seed driver %s: unknown user %s", d.Name, d.Email)
			}
			driver.UserID = id
		}
		created, err := svc.CreateDriver(ctx, driver)
		if err != nil {
			return fmt.Errorf("seed driver %s: %w", d.Name, err)
		}
		driverIDs[created.LicenseNumber] = created.ID
	}

	for _, v := range s.Vehicles {
		vehicle := &model.Vehicle{Plate: v.Plate, Model: v.Model, Capacity: v.Capacity, Status: v.Status}
		if v.Driver != "" {
			id, ok := driverIDs[v.Driver]
			if !ok {
				return fmt.Errorf("seed vehicle %s: unknown driver license %s", v.Plate, v.Driver)
			}
			vehicle.DriverID = id
		}
		if _, err := svc.CreateVehicle(ctx, vehicle); err != nil {
			return fmt.Errorf("seed vehicle %s: %w", v.Plate, err)
		}
	}

	for _, r := range s.Routes {
		route, err := svc.CreateRoute(ctx, &model.Route{
			Name:        r.Name,
			Description: r.Description,
			Active:      r.Active == nil || *r.Active,
		})
		if err != nil {
			return fmt.Errorf("seed route %s: %w", r.Name, err)
		}
		for _, st := range r.Stops {
			stop := &model.Stop{RouteID: route.ID, Name: st.Name, Latitude: st.Latitude, Longitude: st.Longitude}
			if _, err := svc.AddStop(ctx, stop); err != nil {
				return fmt.Errorf("seed stop %s/%s: %w", r.Name, st.Name, err)
			}
		}
	}

	log.Info("Seed applied",
		"users", len(s.Users), "drivers", len(s.Drivers), "vehicles", len(s.Vehicles), "routes", len(s.Routes))
	return nil
}
