package app

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const configFlagName = "config"

func addConfigFlag(name string, fs *pflag.FlagSet) {
	fs.StringP(configFlagName, "c", "",
		"Read configuration from the specified file (YAML, JSON or TOML). Defaults to $"+envName(name, "CONFIG")+".")
}

func configPath(cmd *cobra.Command) string {
	if f := cmd.Flags().Lookup(configFlagName); f != nil && f.Value.String() != "" {
		return f.Value.String()
	}
	return os.Getenv(envName(cmd.Name(), "CONFIG"))
}

func envName(app, key string) string {
	return strings.ToUpper(strings.ReplaceAll(app, "-", "_")) + "_" + key
}
