package sqlite

import (
	"context"
	"database/sql"

	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
)

const driverColumns = `id, user_id, name, license_number, phone, active, created_at`

type drivers struct{ q querier }

func scanDriver(row scanner) (*model.Driver, error) {
	var (
		d       model.Driver
		userID  sql.NullString
		active  int
		created int64
	)
	if err := row.Scan(&d.ID, &userID, &d.Name, &d.LicenseNumber, &d.Phone, &active, &created); err != nil {
		return nil, err
	}
	d.UserID = userID.String
	d.Active = active != 0
	d.CreatedAt = fromNanos(created)
	return &d, nil
}

func (r *drivers) Create(ctx context.Context, d *model.Driver) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO drivers (`+driverColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, nullString(d.UserID), d.Name, d.LicenseNumber, d.Phone, boolInt(d.Active), toNanos(d.CreatedAt))
	return translate(err, "driver")
}

func (r *drivers) Get(ctx context.Context, id string) (*model.Driver, error) {
	d, err := scanDriver(r.q.QueryRowContext(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = ?`, id))
	if err != nil {
		return nil, translate(err, "driver "+id)
	}
	return d, nil
}

func (r *drivers) GetByUser(ctx context.Context, userID string) (*model.Driver, error) {
	d, err := scanDriver(r.q.QueryRowContext(ctx, `SELECT `+driverColumns+` FROM drivers WHERE user_id = ?`, userID))
	if err != nil {
		return nil, translate(err, "driver for user "+userID)
	}
	return d, nil
}

func (r *drivers) List(ctx context.Context) ([]*model.Driver, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+driverColumns+` FROM drivers ORDER BY name`)
	if err != nil {
		return nil, translate(err, "drivers")
	}
	defer rows.Close()

	out := []*model.Driver{}
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, translate(err, "drivers")
		}
		out = append(out, d)
	}
	return out, translate(rows.Err(), "drivers")
}

func (r *drivers) Update(ctx context.Context, d *model.Driver) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE drivers SET user_id = ?, name = ?, license_number = ?, phone = ?, active = ? WHERE id = ?`,
		nullString(d.UserID), d.Name, d.LicenseNumber, d.Phone, boolInt(d.Active), d.ID)
	return expectOne(res, err, "driver "+d.ID)
}

func (r *drivers) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM drivers WHERE id = ?`, id)
	return expectOne(res, err, "driver "+id)
}

const vehicleColumns = `id, plate, model, capacity, driver_id, status, created_at`

type vehicles struct{ q querier }

func scanVehicle(row scanner) (*model.Vehicle, error) {
	var (
		v        model.Vehicle
		driverID sql.NullString
		status   string
		created  int64
	)
	if err := row.Scan(&v.ID, &v.Plate, &v.Model, &v.Capacity, &driverID, &status, &created); err != nil {
		return nil, err
	}
	v.DriverID = driverID.String
	v.Status = model.VehicleStatus(status)
	v.CreatedAt = fromNanos(created)
	return &v, nil
}

func (r *vehicles) Create(ctx context.Context, v *model.Vehicle) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO vehicles (`+vehicleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Plate, v.Model, v.Capacity, nullString(v.DriverID), string(v.Status), toNanos(v.CreatedAt))
	return translate(err, "vehicle")
}

func (r *vehicles) Get(ctx context.Context, id string) (*model.Vehicle, error) {
	v, err := scanVehicle(r.q.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id))
	if err != nil {
		return nil, translate(err, "vehicle "+id)
	}
	return v, nil
}

func (r *vehicles) List(ctx context.Context) ([]*model.Vehicle, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles ORDER BY plate`)
	if err != nil {
		return nil, translate(err, "vehicles")
	}
	defer rows.Close()

	out := []*model.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, translate(err, "vehicles")
		}
		out = append(out, v)
	}
	return out, translate(rows.Err(), "vehicles")
}

func (r *vehicles) Update(ctx context.Context, v *model.Vehicle) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE vehicles SET plate = ?, model = ?, capacity = ?, driver_id = ?, status = ? WHERE id = ?`,
		v.Plate, v.Model, v.Capacity, nullString(v.DriverID), string(v.Status), v.ID)
	return expectOne(res, err, "vehicle "+v.ID)
}

func (r *vehicles) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, id)
	return expectOne(res, err, "vehicle "+id)
}
