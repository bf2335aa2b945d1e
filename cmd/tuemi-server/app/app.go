package app

import (
	"fmt"

	"github.com/spf13/viper"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/tuemi-io/tuemi/cmd/tuemi-server/app/options"
	"github.com/tuemi-io/tuemi/pkg/app"
	"github.com/tuemi-io/tuemi/pkg/log"
)

const (
	commandName = "tuemi-server"
	commandDesc = `The TUEMI server runs the transport portal: the JSON API for
administrators, drivers and students, telemetry ingestion over HTTP and MQTT,
and the incident heuristic that flags overcapacity, prolonged stops and route
deviations as samples arrive.`
)

func NewApp() *app.App {
	opts := options.NewServerOptions()
	application := app.NewApp(
		commandName,
		"Launch the TUEMI transport server",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithEnvPrefix("TUEMI"),
		app.WithConfigChangeFunc(reloadThresholds(opts)),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		server, err := cfg.NewTuemiServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create tuemi server: %w", err)
		}

		return server.Run(ctx)
	}
}

// reloadThresholds applies the incident section of a changed config file.
// Invalid thresholds are logged and the previous ones stay in effect.
func reloadThresholds(opts *options.ServerOptions) func(v *viper.Viper) {
	return func(v *viper.Viper) {
		if err := opts.ReloadIncident(v); err != nil {
			log.Error(err, "Ignoring incident thresholds from changed config")
			return
		}
		log.Info("Incident thresholds reloaded")
	}
}
