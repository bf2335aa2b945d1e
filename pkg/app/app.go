// Package app wires a cobra command, sectioned pflags and a viper config layer
// around a component's options.
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/cli/globalflag"
	"k8s.io/component-base/term"

	"github.com/tuemi-io/tuemi/pkg/log"
)

// RunFunc is the component's entry point, invoked once options are loaded and valid.
type RunFunc func() error

// NamedFlagSetOptions is implemented by a component's root options struct.
type NamedFlagSetOptions interface {
	// Flags returns the options' flags grouped by section.
	Flags() cliflag.NamedFlagSets

	// Complete fills in derived fields after flags and config are loaded.
	Complete() error

	// Validate checks the completed options.
	Validate() error
}

// LoggerOptions is implemented by options that carry a log block. The app
// initialises the global logger from it before calling RunFunc.
type LoggerOptions interface {
	LogOptions() *log.Options
}

// App is a command-line application.
type App struct {
	name        string
	shortDesc   string
	description string
	envPrefix   string

	options  NamedFlagSetOptions
	runFunc  RunFunc
	onChange func(v *viper.Viper)
	args     cobra.PositionalArgs

	v   *viper.Viper
	cmd *cobra.Command
}

// Option configures an App.
type Option func(*App)

// WithDescription sets the long description.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithOptions sets the options the command binds flags and config into.
func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithRunFunc sets the entry point.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithDefaultValidArgs rejects positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// WithEnvPrefix sets the prefix of environment overrides, e.g. TUEMI_HTTP_ADDR.
func WithEnvPrefix(prefix string) Option {
	return func(a *App) { a.envPrefix = prefix }
}

// WithConfigChangeFunc watches the config file and calls fn after every change.
func WithConfigChangeFunc(fn func(v *viper.Viper)) Option {
	return func(a *App) { a.onChange = fn }
}

// NewApp creates an App named name.
func NewApp(name, shortDesc string, opts ...Option) *App {
	a := &App{
		name:      name,
		shortDesc: shortDesc,
		envPrefix: strings.ToUpper(strings.ReplaceAll(name, "-", "_")),
		v:         viper.New(),
	}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand()
	return a
}

// Command returns the underlying cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Viper returns the config layer of the app.
func (a *App) Viper() *viper.Viper {
	return a.v
}

// Run executes the command with os.Args.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          a.args,
		RunE:          a.runCommand,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	var namedFlagSets cliflag.NamedFlagSets
	if a.options != nil {
		namedFlagSets = a.options.Flags()
	}
	addConfigFlag(a.name, namedFlagSets.FlagSet("global"))
	globalflag.AddGlobalFlags(namedFlagSets.FlagSet("global"), cmd.Name())
	for _, f := range namedFlagSets.FlagSets {
		cmd.Flags().AddFlagSet(f)
	}

	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, namedFlagSets, cols)

	a.cmd = cmd
}

func (a *App) runCommand(cmd *cobra.Command, _ []string) error {
	if a.options != nil {
		if err := a.loadConfig(cmd); err != nil {
			return err
		}
		if err := a.options.Complete(); err != nil {
			return fmt.Errorf("failed to complete options: %w", err)
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
		if lo, ok := a.options.(LoggerOptions); ok {
			if err := log.Init(lo.LogOptions()); err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
		}
	}

	log.Info("Starting "+a.name, "config", a.v.ConfigFileUsed())

	if a.runFunc == nil {
		return nil
	}
	return a.runFunc()
}

// loadConfig layers config file and environment over the parsed flags and
// decodes the result into the options.
func (a *App) loadConfig(cmd *cobra.Command) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	a.v.SetEnvPrefix(a.envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if path := configPath(cmd); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if a.onChange != nil {
			a.v.OnConfigChange(func(e fsnotify.Event) {
				log.Info("Config file changed", "file", e.Name, "op", e.Op.String())
				a.onChange(a.v)
			})
			a.v.WatchConfig()
		}
	}

	if err := a.v.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	return nil
}
