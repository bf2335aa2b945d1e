package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
)

const incidentColumns = `id, vehicle_id, trip_id, kind, details, latitude, longitude, detected_at, resolved, resolved_at`

type incidents struct{ q querier }

func scanIncident(row scanner) (*model.Incident, error) {
	var (
		i          model.Incident
		tripID     sql.NullString
		kind       string
		detected   int64
		resolved   int
		resolvedAt sql.NullInt64
	)
	if err := row.Scan(&i.ID, &i.VehicleID, &tripID, &kind, &i.Details, &i.Latitude, &i.Longitude,
		&detected, &resolved, &resolvedAt); err != nil {
		return nil, err
	}
	i.TripID = tripID.String
	i.Kind = incident.Kind(kind)
	i.DetectedAt = fromNanos(detected)
	i.Resolved = resolved != 0
	i.ResolvedAt = fromNullNanos(resolvedAt)
	return &i, nil
}

func (r *incidents) Create(ctx context.Context, i *model.Incident) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO incidents (`+incidentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.VehicleID, nullString(i.TripID), string(i.Kind), i.Details, i.Latitude, i.Longitude,
		toNanos(i.DetectedAt), boolInt(i.Resolved), nullNanos(i.ResolvedAt))
	return translate(err, "incident")
}

func (r *incidents) Get(ctx context.Context, id string) (*model.Incident, error) {
	i, err := scanIncident(r.q.QueryRowContext(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE id = ?`, id))
	if err != nil {
		return nil, translate(err, "incident "+id)
	}
	return i, nil
}

func (r *incidents) List(ctx context.Context, f model.IncidentFilter) ([]*model.Incident, error) {
	var (
		where []string
		args  []any
	)
	if f.VehicleID != "" {
		where = append(where, "vehicle_id = ?")
		args = append(args, f.VehicleID)
	}
	if f.TripID != "" {
		where = append(where, "trip_id = ?")
		args = append(args, f.TripID)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Unresolved {
		where = append(where, "resolved = 0")
	}

	query := `SELECT ` + incidentColumns + ` FROM incidents`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY detected_at DESC, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "incidents")
	}
	defer rows.Close()

	out := []*model.Incident{}
	for rows.Next() {
		i, err := scanIncident(rows)
		if err != nil {
			return nil, translate(err, "incidents")
		}
		out = append(out, i)
	}
	return out, translate(rows.Err(), "incidents")
}

func (r *incidents) UpdateDetails(ctx context.Context, id, details string) error {
	res, err := r.q.ExecContext(ctx, `UPDATE incidents SET details = ? WHERE id = ?`, details, id)
	return expectOne(res, err, "incident "+id)
}

func (r *incidents) Resolve(ctx context.Context, id string, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE incidents SET resolved = 1, resolved_at = ? WHERE id = ?`, toNanos(at), id)
	return expectOne(res, err, "incident "+id)
}
