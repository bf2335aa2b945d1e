package app

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
)

func newVehiclesCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "vehicles",
		Short: "List the fleet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd.Context(), g)
			if err != nil {
				return err
			}
			var vehicles []*model.Vehicle
			if err := c.do(cmd.Context(), http.MethodGet, "/vehicles", nil, &vehicles); err != nil {
				return err
			}

			table := uitable.New()
			table.AddRow("ID", "PLATE", "MODEL", "CAPACITY", "STATUS", "DRIVER")
			for _, v := range vehicles {
				table.AddRow(v.ID, v.Plate, v.Model, v.Capacity, v.Status, v.DriverID)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), table)
			return err
		},
	}
}

func newIncidentsCommand(g *globalOptions) *cobra.Command {
	var (
		vehicleID  string
		kind       string
		unresolved bool
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "incidents",
		Short: "List detected incidents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd.Context(), g)
			if err != nil {
				return err
			}

			q := url.Values{}
			if vehicleID != "" {
				q.Set("vehicleId", vehicleID)
			}
			if kind != "" {
				q.Set("kind", kind)
			}
			if unresolved {
				q.Set("unresolved", "true")
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			var incidents []*model.Incident
			if err := c.do(cmd.Context(), http.MethodGet, "/incidents?"+q.Encode(), nil, &incidents); err != nil {
				return err
			}

			table := uitable.New()
			table.MaxColWidth = 80
			table.Wrap = true
			table.AddRow("DETECTED", "VEHICLE", "KIND", "RESOLVED", "DETAILS")
			for _, i := range incidents {
				table.AddRow(i.DetectedAt.Format("2006-01-02 15:04:05"), i.VehicleID, i.Kind, i.Resolved, i.Details)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), table)
			return err
		},
	}
	cmd.Flags().StringVar(&vehicleID, "vehicle", "", "Only incidents of this vehicle.")
	cmd.Flags().StringVar(&kind, "kind", "", "Only incidents of this kind (overcapacity, prolonged_stop, route_deviation).")
	cmd.Flags().BoolVar(&unresolved, "unresolved", false, "Only incidents that are still open.")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of incidents to list.")
	return cmd
}
