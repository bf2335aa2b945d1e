package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
)

const userColumns = `id, email, name, role, password_hash, subscribed, subscription_expires_at, created_at`

type users struct{ q querier }

func scanUser(row scanner) (*model.User, error) {
	var (
		u         model.User
		role      string
		sub       int
		expires   sql.NullInt64
		createdAt int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash, &sub, &expires, &createdAt); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	u.Subscribed = sub != 0
	if expires.Valid {
		u.SubscriptionExpiresAt = fromNanos(expires.Int64)
	}
	u.CreatedAt = fromNanos(createdAt)
	return &u, nil
}

func (r *users) Create(ctx context.Context, u *model.User) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, string(u.Role), u.PasswordHash, boolInt(u.Subscribed),
		nullNanos(&u.SubscriptionExpiresAt), toNanos(u.CreatedAt))
	return translate(err, "user")
}

func (r *users) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, translate(err, "user "+id)
	}
	return u, nil
}

func (r *users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return nil, translate(err, "user "+email)
	}
	return u, nil
}

func (r *users) List(ctx context.Context, role model.Role) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	if role != "" {
		query += ` WHERE role = ?`
		args = append(args, string(role))
	}
	query += ` ORDER BY created_at, email`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "users")
	}
	defer rows.Close()

	out := []*model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, translate(err, "users")
		}
		out = append(out, u)
	}
	return out, translate(rows.Err(), "users")
}

func (r *users) Update(ctx context.Context, u *model.User) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET email = ?, name = ?, role = ?, password_hash = ?, subscribed = ?, subscription_expires_at = ?
		 WHERE id = ?`,
		u.Email, u.Name, string(u.Role), u.PasswordHash, boolInt(u.Subscribed), nullNanos(&u.SubscriptionExpiresAt), u.ID)
	return expectOne(res, err, "user "+u.ID)
}

func (r *users) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return expectOne(res, err, "user "+id)
}

func (r *users) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, translate(err, "users")
	}
	return n, nil
}

type sessions struct{ q querier }

func (r *sessions) Create(ctx context.Context, s *model.Session) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		s.Token, s.UserID, toNanos(s.CreatedAt), toNanos(s.ExpiresAt))
	return translate(err, "session")
}

func (r *sessions) Get(ctx context.Context, token string) (*model.Session, error) {
	var (
		s                  model.Session
		created, expiresAt int64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&s.Token, &s.UserID, &created, &expiresAt)
	if err != nil {
		return nil, translate(err, "session")
	}
	s.CreatedAt = fromNanos(created)
	s.ExpiresAt = fromNanos(expiresAt)
	return &s, nil
}

func (r *sessions) Delete(ctx context.Context, token string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return expectOne(res, err, "session")
}

func (r *sessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, toNanos(now))
	if err != nil {
		return 0, translate(err, "sessions")
	}
	return res.RowsAffected()
}
