package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
)

const tripColumns = `id, route_id, vehicle_id, driver_id, status, scheduled_at, started_at, ended_at, passengers`

type trips struct{ q querier }

func scanTrip(row scanner) (*model.Trip, error) {
	var (
		t                model.Trip
		status           string
		scheduled        int64
		started, stopped sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.RouteID, &t.VehicleID, &t.DriverID, &status, &scheduled, &started, &stopped, &t.Passengers); err != nil {
		return nil, err
	}
	t.Status = model.TripStatus(status)
	t.ScheduledAt = fromNanos(scheduled)
	t.StartedAt = fromNullNanos(started)
	t.EndedAt = fromNullNanos(stopped)
	return &t, nil
}

func (r *trips) Create(ctx context.Context, t *model.Trip) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO trips (`+tripColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.RouteID, t.VehicleID, t.DriverID, string(t.Status), toNanos(t.ScheduledAt),
		nullNanos(t.StartedAt), nullNanos(t.EndedAt), t.Passengers)
	return translate(err, "trip")
}

func (r *trips) Get(ctx context.Context, id string) (*model.Trip, error) {
	t, err := scanTrip(r.q.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = ?`, id))
	if err != nil {
		return nil, translate(err, "trip "+id)
	}
	return t, nil
}

func (r *trips) List(ctx context.Context, f model.TripFilter) ([]*model.Trip, error) {
	var (
		where []string
		args  []any
	)
	if f.VehicleID != "" {
		where = append(where, "vehicle_id = ?")
		args = append(args, f.VehicleID)
	}
	if f.DriverID != "" {
		where = append(where, "driver_id = ?")
		args = append(args, f.DriverID)
	}
	if f.RouteID != "" {
		where = append(where, "route_id = ?")
		args = append(args, f.RouteID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	query := `SELECT ` + tripColumns + ` FROM trips`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY scheduled_at DESC, id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "trips")
	}
	defer rows.Close()

	out := []*model.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, translate(err, "trips")
		}
		out = append(out, t)
	}
	return out, translate(rows.Err(), "trips")
}

func (r *trips) Update(ctx context.Context, t *model.Trip) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE trips SET route_id = ?, vehicle_id = ?, driver_id = ?, status = ?, scheduled_at = ?,
		 started_at = ?, ended_at = ?, passengers = ? WHERE id = ?`,
		t.RouteID, t.VehicleID, t.DriverID, string(t.Status), toNanos(t.ScheduledAt),
		nullNanos(t.StartedAt), nullNanos(t.EndedAt), t.Passengers, t.ID)
	return expectOne(res, err, "trip "+t.ID)
}

func (r *trips) ActiveForVehicle(ctx context.Context, vehicleID string) (*model.Trip, error) {
	t, err := scanTrip(r.q.QueryRowContext(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE vehicle_id = ? AND status = ?`,
		vehicleID, string(model.TripInProgress)))
	if err != nil {
		return nil, translate(err, "active trip of vehicle "+vehicleID)
	}
	return t, nil
}
