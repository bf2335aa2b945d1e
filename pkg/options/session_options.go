package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SessionOptions)(nil)

// SessionOptions configures cookie sessions.
type SessionOptions struct {
	CookieName string        `json:"cookie-name" mapstructure:"cookie-name"`
	TTL        time.Duration `json:"ttl" mapstructure:"ttl"`
	Secure     bool          `json:"secure" mapstructure:"secure"`

	// PurgeInterval is how often expired sessions are deleted.
	PurgeInterval time.Duration `json:"purge-interval" mapstructure:"purge-interval"`
}

func NewSessionOptions() *SessionOptions {
	return &SessionOptions{
		CookieName:    "tuemi_session",
		TTL:           12 * time.Hour,
		PurgeInterval: 10 * time.Minute,
	}
}

func (o *SessionOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}
	if o.CookieName == "" {
		errs = append(errs, fmt.Errorf("--session.cookie-name must not be empty"))
	}
	if o.TTL < time.Minute {
		errs = append(errs, fmt.Errorf("--session.ttl must be at least one minute"))
	}
	if o.PurgeInterval <= 0 {
		errs = append(errs, fmt.Errorf("--session.purge-interval must be positive"))
	}
	return errs
}

func (o *SessionOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.CookieName, "session.cookie-name", o.CookieName, "Name of the session cookie.")
	fs.DurationVar(&o.TTL, "session.ttl", o.TTL, "Lifetime of a login session.")
	fs.BoolVar(&o.Secure, "session.secure", o.Secure, "Only send the session cookie over HTTPS.")
	fs.DurationVar(&o.PurgeInterval, "session.purge-interval", o.PurgeInterval, "How often expired sessions are deleted.")
}
