// Package sqlite implements the TUEMI repositories on SQLite through database/sql.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/pkg/options"
)

//go:embed schema.sql
var schema string

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the SQLite-backed core.Repository.
type Store struct {
	db *sql.DB
	q  querier
	tx bool
}

var _ core.Repository = (*Store)(nil)

// Open connects to the database described by opts and applies the schema.
func Open(ctx context.Context, opts *options.SQLiteOptions) (*Store, error) {
	db, err := sql.Open("sqlite", opts.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	// An in-memory database lives as long as its connection.
	db.SetConnMaxLifetime(0)
	db.SetMaxIdleConns(opts.MaxOpenConns)

	s := &Store{db: db, q: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx core.Repository) error) error {
	if s.tx {
		return fn(ctx, s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(ctx, &Store{db: s.db, q: tx, tx: true}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Users() core.UserRepository           { return &users{s.q} }
func (s *Store) Sessions() core.SessionRepository     { return &sessions{s.q} }
func (s *Store) Drivers() core.DriverRepository       { return &drivers{s.q} }
func (s *Store) Vehicles() core.VehicleRepository     { return &vehicles{s.q} }
func (s *Store) Routes() core.RouteRepository         { return &routes{s.q} }
func (s *Store) Trips() core.TripRepository           { return &trips{s.q} }
func (s *Store) Telemetry() core.TelemetryRepository { return &telemetry{s.q} }
func (s *Store) Incidents() core.IncidentRepository   { return &incidents{s.q} }

// translate maps driver errors onto core sentinels.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}

	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		switch constraintOf(se) {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%s already exists: %w", what, core.ErrConflict)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%s is referenced by or references a missing record: %w", what, core.ErrConflict)
		default:
			return fmt.Errorf("%s violates a constraint: %w", what, core.ErrInvalidArgument)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

// constraintOf returns the extended constraint code, falling back to the
// message when the connection reports primary result codes only.
func constraintOf(se *sqlite.Error) int {
	if code := se.Code(); code != sqlite3.SQLITE_CONSTRAINT {
		return code
	}
	msg := se.Error()
	switch {
	case strings.Contains(msg, "UNIQUE"):
		return sqlite3.SQLITE_CONSTRAINT_UNIQUE
	case strings.Contains(msg, "FOREIGN KEY"):
		return sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	case strings.Contains(msg, "NOT NULL"):
		return sqlite3.SQLITE_CONSTRAINT_NOTNULL
	}
	return sqlite3.SQLITE_CONSTRAINT_CHECK
}

// expectOne turns an UPDATE/DELETE that touched no row into ErrNotFound.
func expectOne(res sql.Result, err error, what string) error {
	if err != nil {
		return translate(err, what)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translate(err, what)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
