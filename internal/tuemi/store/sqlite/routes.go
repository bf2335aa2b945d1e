package sqlite

import (
	"context"

	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
)

const (
	routeColumns = `id, name, description, active, created_at`
	stopColumns  = `id, route_id, name, latitude, longitude, sequence`
)

type routes struct{ q querier }

func scanRoute(row scanner) (*model.Route, error) {
	var (
		rt      model.Route
		active  int
		created int64
	)
	if err := row.Scan(&rt.ID, &rt.Name, &rt.Description, &active, &created); err != nil {
		return nil, err
	}
	rt.Active = active != 0
	rt.CreatedAt = fromNanos(created)
	return &rt, nil
}

func scanStop(row scanner) (*model.Stop, error) {
	var s model.Stop
	if err := row.Scan(&s.ID, &s.RouteID, &s.Name, &s.Latitude, &s.Longitude, &s.Sequence); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *routes) Create(ctx context.Context, rt *model.Route) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO routes (`+routeColumns+`) VALUES (?, ?, ?, ?, ?)`,
		rt.ID, rt.Name, rt.Description, boolInt(rt.Active), toNanos(rt.CreatedAt))
	return translate(err, "route")
}

func (r *routes) Get(ctx context.Context, id string) (*model.Route, error) {
	rt, err := scanRoute(r.q.QueryRowContext(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = ?`, id))
	if err != nil {
		return nil, translate(err, "route "+id)
	}
	return rt, nil
}

func (r *routes) List(ctx context.Context, activeOnly bool) ([]*model.Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, "routes")
	}
	defer rows.Close()

	out := []*model.Route{}
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, translate(err, "routes")
		}
		out = append(out, rt)
	}
	return out, translate(rows.Err(), "routes")
}

func (r *routes) Update(ctx context.Context, rt *model.Route) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE routes SET name = ?, description = ?, active = ? WHERE id = ?`,
		rt.Name, rt.Description, boolInt(rt.Active), rt.ID)
	return expectOne(res, err, "route "+rt.ID)
}

func (r *routes) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM routes WHERE id = ?`, id)
	return expectOne(res, err, "route "+id)
}

func (r *routes) AddStop(ctx context.Context, s *model.Stop) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO stops (`+stopColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.RouteID, s.Name, s.Latitude, s.Longitude, s.Sequence)
	return translate(err, "stop")
}

func (r *routes) GetStop(ctx context.Context, id string) (*model.Stop, error) {
	s, err := scanStop(r.q.QueryRowContext(ctx, `SELECT `+stopColumns+` FROM stops WHERE id = ?`, id))
	if err != nil {
		return nil, translate(err, "stop "+id)
	}
	return s, nil
}

func (r *routes) UpdateStop(ctx context.Context, s *model.Stop) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE stops SET name = ?, latitude = ?, longitude = ?, sequence = ? WHERE id = ?`,
		s.Name, s.Latitude, s.Longitude, s.Sequence, s.ID)
	return expectOne(res, err, "stop "+s.ID)
}

func (r *routes) DeleteStop(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM stops WHERE id = ?`, id)
	return expectOne(res, err, "stop "+id)
}

func (r *routes) Stops(ctx context.Context, routeID string) ([]*model.Stop, error) {
	return r.listStops(ctx, `SELECT `+stopColumns+` FROM stops WHERE route_id = ? ORDER BY sequence`, routeID)
}

func (r *routes) AllStops(ctx context.Context) ([]*model.Stop, error) {
	return r.listStops(ctx,
		`SELECT s.id, s.route_id, s.name, s.latitude, s.longitude, s.sequence
		 FROM stops s JOIN routes r ON r.id = s.route_id
		 WHERE r.active = 1
		 ORDER BY r.name, s.sequence`)
}

func (r *routes) listStops(ctx context.Context, query string, args ...any) ([]*model.Stop, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "stops")
	}
	defer rows.Close()

	out := []*model.Stop{}
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, translate(err, "stops")
		}
		out = append(out, s)
	}
	return out, translate(rows.Err(), "stops")
}
