// Package app implements tuemictl, the operator CLI of TUEMI.
package app

import (
	"os"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	server   string
	email    string
	password string
}

// NewCommand builds the tuemictl command tree.
func NewCommand() *cobra.Command {
	g := &globalOptions{
		server:   envOr("TUEMI_SERVER", "http://127.0.0.1:8080"),
		email:    os.Getenv("TUEMI_EMAIL"),
		password: os.Getenv("TUEMI_PASSWORD"),
	}

	cmd := &cobra.Command{
		Use:           "tuemictl",
		Short:         "Operate a TUEMI server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&g.server, "server", g.server, "Base URL of tuemi-server (env TUEMI_SERVER).")
	cmd.PersistentFlags().StringVar(&g.email, "email", g.email, "Account used to sign in (env TUEMI_EMAIL).")
	cmd.PersistentFlags().StringVar(&g.password, "password", g.password, "Password of the account (env TUEMI_PASSWORD).")

	cmd.AddCommand(
		newEvaluateCommand(),
		newVehiclesCommand(g),
		newIncidentsCommand(g),
	)
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
