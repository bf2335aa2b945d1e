package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SQLiteOptions)(nil)

// SQLiteOptions configures the relational store.
type SQLiteOptions struct {
	// Path is the database file, or ":memory:".
	Path string `json:"path" mapstructure:"path"`

	BusyTimeout  time.Duration `json:"busy-timeout" mapstructure:"busy-timeout"`
	MaxOpenConns int           `json:"max-open-conns" mapstructure:"max-open-conns"`

	// SeedFile is an optional YAML fixture loaded into an empty database on start.
	SeedFile string `json:"seed-file" mapstructure:"seed-file"`
}

func NewSQLiteOptions() *SQLiteOptions {
	return &SQLiteOptions{
		Path:         "tuemi.db",
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 1,
	}
}

func (o *SQLiteOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}
	if o.Path == "" {
		errs = append(errs, fmt.Errorf("--db.path must not be empty"))
	}
	if o.MaxOpenConns < 1 {
		errs = append(errs, fmt.Errorf("--db.max-open-conns must be at least 1"))
	}
	return errs
}

func (o *SQLiteOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Path, "db.path", o.Path, "SQLite database file (use ':memory:' for an ephemeral database).")
	fs.DurationVar(&o.BusyTimeout, "db.busy-timeout", o.BusyTimeout, "How long a statement waits on a locked database.")
	fs.IntVar(&o.MaxOpenConns, "db.max-open-conns", o.MaxOpenConns, "Maximum number of open database connections.")
	fs.StringVar(&o.SeedFile, "db.seed-file", o.SeedFile, "YAML fixture with users, drivers, vehicles and routes loaded into an empty database.")
}

// DSN renders the modernc.org/sqlite data source name.
func (o *SQLiteOptions) DSN() string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)",
		o.Path, o.BusyTimeout.Milliseconds())
}
