package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/tuemi-io/tuemi/internal/incident"
)

type evaluateOptions struct {
	lat, lng     float64
	at           string
	speed        float64
	averageSpeed float64
	passengers   int
	capacity     int

	lkgLat, lkgLng float64
	lkgAt          string
	hasLKG         bool

	thresholds incident.Thresholds
}

func newEvaluateCommand() *cobra.Command {
	o := &evaluateOptions{thresholds: incident.DefaultThresholds()}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the incident heuristic on one sample locally",
		Example: `  tuemictl evaluate --lat 4.6381 --lng -74.0836 --speed 0 --passengers 45 --capacity 40
  tuemictl evaluate --lat 4.70 --lng -74.08 --speed 30 --lkg-lat 4.6381 --lkg-lng -74.0836`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.hasLKG = cmd.Flags().Changed("lkg-lat") || cmd.Flags().Changed("lkg-lng")
			return o.run(cmd)
		},
	}

	fs := cmd.Flags()
	fs.Float64Var(&o.lat, "lat", 0, "Current latitude in decimal degrees.")
	fs.Float64Var(&o.lng, "lng", 0, "Current longitude in decimal degrees.")
	fs.StringVar(&o.at, "time", "", "Timestamp of the sample (RFC 3339); defaults to now.")
	fs.Float64Var(&o.speed, "speed", 0, "Current speed in km/h.")
	fs.Float64Var(&o.averageSpeed, "avg-speed", 0, "Average speed in km/h.")
	fs.IntVar(&o.passengers, "passengers", 0, "Passengers on board.")
	fs.IntVar(&o.capacity, "capacity", 0, "Vehicle capacity.")
	fs.Float64Var(&o.lkgLat, "lkg-lat", 0, "Latitude of the last known good position.")
	fs.Float64Var(&o.lkgLng, "lkg-lng", 0, "Longitude of the last known good position.")
	fs.StringVar(&o.lkgAt, "lkg-time", "", "Timestamp of the last known good position (RFC 3339).")
	fs.Float64Var(&o.thresholds.StopSpeed, "stop-speed", o.thresholds.StopSpeed, "Speed at or below which the vehicle counts as stopped.")
	fs.Float64Var(&o.thresholds.DeviationMeters, "deviation-meters", o.thresholds.DeviationMeters, "Distance that counts as a route deviation.")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}

func (o *evaluateOptions) input() (incident.Input, error) {
	now := time.Now().UTC()
	at, err := parseTime(o.at, now)
	if err != nil {
		return incident.Input{}, fmt.Errorf("--time: %w", err)
	}

	in := incident.Input{
		Current:      incident.Position{Latitude: o.lat, Longitude: o.lng, Timestamp: at},
		Speed:        o.speed,
		AverageSpeed: o.averageSpeed,
		Passengers:   o.passengers,
		Capacity:     o.capacity,
	}
	if o.hasLKG {
		lkgAt, err := parseTime(o.lkgAt, time.Time{})
		if err != nil {
			return incident.Input{}, fmt.Errorf("--lkg-time: %w", err)
		}
		in.LastKnownGood = &incident.Position{Latitude: o.lkgLat, Longitude: o.lkgLng, Timestamp: lkgAt}
	}
	return in, nil
}

func (o *evaluateOptions) run(cmd *cobra.Command) error {
	if err := o.thresholds.Validate(); err != nil {
		return err
	}
	in, err := o.input()
	if err != nil {
		return err
	}
	verdict, err := incident.Evaluate(in, o.thresholds)
	if err != nil {
		return err
	}

	table := uitable.New()
	table.MaxColWidth = 100
	table.Wrap = true
	table.AddRow("DETECTED:", verdict.Detected)
	if verdict.Detected {
		kinds := make([]string, len(verdict.Kinds))
		for i, k := range verdict.Kinds {
			kinds[i] = string(k)
		}
		table.AddRow("KIND:", verdict.Kind)
		table.AddRow("FIRED:", strings.Join(kinds, ", "))
		table.AddRow("DETAILS:", verdict.Details)
	}
	if in.LastKnownGood != nil {
		table.AddRow("DISTANCE:", fmt.Sprintf("%.0f m", incident.Distance(in)))
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), table)
	return err
}

func parseTime(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, raw)
}
