package sqlite

import (
	"context"
	"database/sql"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
)

type telemetry struct{ q querier }

func scanTelemetry(row scanner) (*model.Telemetry, error) {
	var (
		t      model.Telemetry
		tripID sql.NullString
		ts     int64
	)
	if err := row.Scan(&t.VehicleID, &tripID, &t.Latitude, &t.Longitude, &t.Speed, &ts); err != nil {
		return nil, err
	}
	t.TripID = tripID.String
	t.Timestamp = fromNanos(ts)
	return &t, nil
}

func (r *telemetry) Append(ctx context.Context, t *model.Telemetry) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO telemetry (vehicle_id, trip_id, latitude, longitude, speed, ts) VALUES (?, ?, ?, ?, ?, ?)`,
		t.VehicleID, nullString(t.TripID), t.Latitude, t.Longitude, t.Speed, toNanos(t.Timestamp))
	return translate(err, "telemetry of vehicle "+t.VehicleID)
}

func (r *telemetry) Latest(ctx context.Context) ([]*model.Telemetry, error) {
	return r.list(ctx,
		`SELECT t.vehicle_id, t.trip_id, t.latitude, t.longitude, t.speed, t.ts
		 FROM telemetry t
		 JOIN (SELECT vehicle_id, MAX(id) AS id FROM telemetry GROUP BY vehicle_id) m ON m.id = t.id
		 ORDER BY t.vehicle_id`)
}

func (r *telemetry) ForTrip(ctx context.Context, tripID string) ([]*model.Telemetry, error) {
	return r.list(ctx,
		`SELECT vehicle_id, trip_id, latitude, longitude, speed, ts
		 FROM telemetry WHERE trip_id = ? ORDER BY ts, id`, tripID)
}

func (r *telemetry) list(ctx context.Context, query string, args ...any) ([]*model.Telemetry, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "telemetry")
	}
	defer rows.Close()

	out := []*model.Telemetry{}
	for rows.Next() {
		t, err := scanTelemetry(rows)
		if err != nil {
			return nil, translate(err, "telemetry")
		}
		out = append(out, t)
	}
	return out, translate(rows.Err(), "telemetry")
}

func (r *telemetry) AverageSpeed(ctx context.Context, tripID string) (float64, error) {
	var avg sql.NullFloat64
	if err := r.q.QueryRowContext(ctx, `SELECT AVG(speed) FROM telemetry WHERE trip_id = ?`, tripID).Scan(&avg); err != nil {
		return 0, translate(err, "telemetry of trip "+tripID)
	}
	return avg.Float64, nil
}

func (r *telemetry) LastKnownGood(ctx context.Context, vehicleID string) (*incident.Position, error) {
	var (
		p  incident.Position
		ts int64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT latitude, longitude, ts FROM last_known_good WHERE vehicle_id = ?`, vehicleID).
		Scan(&p.Latitude, &p.Longitude, &ts)
	if err != nil {
		return nil, translate(err, "last known position of vehicle "+vehicleID)
	}
	p.Timestamp = fromNanos(ts)
	return &p, nil
}

func (r *telemetry) SetLastKnownGood(ctx context.Context, vehicleID string, p incident.Position) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO last_known_good (vehicle_id, latitude, longitude, ts) VALUES (?, ?, ?, ?)
		 ON CONFLICT (vehicle_id) DO UPDATE SET latitude = excluded.latitude, longitude = excluded.longitude, ts = excluded.ts`,
		vehicleID, p.Latitude, p.Longitude, toNanos(p.Timestamp))
	return translate(err, "last known position of vehicle "+vehicleID)
}

func (r *telemetry) ClearLastKnownGood(ctx context.Context, vehicleID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM last_known_good WHERE vehicle_id = ?`, vehicleID)
	return translate(err, "last known position of vehicle "+vehicleID)
}
