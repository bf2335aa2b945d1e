package options

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/tuemi-io/tuemi/internal/incident"
)

var _ IOptions = (*IncidentOptions)(nil)

// IncidentOptions holds the heuristic thresholds. They are re-read when the
// config file changes.
type IncidentOptions struct {
	StopSpeed       float64       `json:"stop-speed" mapstructure:"stop-speed"`
	DeviationMeters float64       `json:"deviation-meters" mapstructure:"deviation-meters"`
	StopDuration    time.Duration `json:"stop-duration" mapstructure:"stop-duration"`
}

func NewIncidentOptions() *IncidentOptions {
	th := incident.DefaultThresholds()
	return &IncidentOptions{
		StopSpeed:       th.StopSpeed,
		DeviationMeters: th.DeviationMeters,
		StopDuration:    th.StopDuration,
	}
}

func (o *IncidentOptions) Validate() []error {
	if o == nil {
		return nil
	}
	if err := o.Thresholds().Validate(); err != nil {
		return []error{err}
	}
	return nil
}

func (o *IncidentOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.Float64Var(&o.StopSpeed, "incident.stop-speed", o.StopSpeed, "Speed in km/h at or below which a vehicle counts as stopped.")
	fs.Float64Var(&o.DeviationMeters, "incident.deviation-meters", o.DeviationMeters, "Distance from the last on-route position that counts as a route deviation.")
	fs.DurationVar(&o.StopDuration, "incident.stop-duration", o.StopDuration, "How long a vehicle must stay stopped before a prolonged stop is reported (0 reports any stopped sample).")
}

// Thresholds converts the options into heuristic thresholds.
func (o *IncidentOptions) Thresholds() incident.Thresholds {
	return incident.Thresholds{
		StopSpeed:       o.StopSpeed,
		DeviationMeters: o.DeviationMeters,
		StopDuration:    o.StopDuration,
	}
}
