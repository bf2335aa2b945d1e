package options

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	o := NewServerOptions()
	require.NoError(t, o.Complete())
	require.NoError(t, o.Validate())

	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Same(t, o.HttpOptions, cfg.HttpOptions)
	assert.Equal(t, 500.0, cfg.Thresholds.Thresholds().DeviationMeters)
}

func TestValidateAggregates(t *testing.T) {
	o := NewServerOptions()
	o.SessionOptions.CookieName = ""
	o.SQLiteOptions.Path = ""
	o.IncidentOptions.DeviationMeters = -1

	err := o.Validate()
	require.Error(t, err)
	for _, flag := range []string{"session.cookie-name", "db.path"} {
		assert.Contains(t, err.Error(), flag)
	}
}

func TestReloadIncident(t *testing.T) {
	o := NewServerOptions()

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader("incident:\n  deviation-meters: 750\n  stop-duration: 2m\n")))

	require.Error(t, o.ReloadIncident(v), "thresholds exist only after Complete")

	require.NoError(t, o.Complete())
	require.NoError(t, o.ReloadIncident(v))
	got := o.thresholds.Thresholds()
	assert.Equal(t, 750.0, got.DeviationMeters)
	assert.Equal(t, 2*time.Minute, got.StopDuration)

	bad := viper.New()
	bad.SetConfigType("yaml")
	require.NoError(t, bad.ReadConfig(strings.NewReader("incident:\n  deviation-meters: -5\n")))
	require.Error(t, o.ReloadIncident(bad))
	assert.Equal(t, 750.0, o.thresholds.Thresholds().DeviationMeters, "invalid reload keeps previous thresholds")
}

func TestReloadIncidentKeepsOverrides(t *testing.T) {
	o := NewServerOptions()
	fs := pflag.NewFlagSet("tuemi-server", pflag.ContinueOnError)
	for _, f := range o.Flags().FlagSets {
		fs.AddFlagSet(f)
	}
	require.NoError(t, fs.Parse([]string{"--incident.stop-speed=3"}))

	v := viper.New()
	require.NoError(t, v.BindPFlags(fs))
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader("incident:\n  deviation-meters: 750\n")))

	require.NoError(t, o.Complete())
	assert.Equal(t, 3.0, o.thresholds.Thresholds().StopSpeed)

	require.NoError(t, o.ReloadIncident(v))
	got := o.thresholds.Thresholds()
	assert.Equal(t, 3.0, got.StopSpeed, "flag override survives a reload")
	assert.Equal(t, 750.0, got.DeviationMeters)
	assert.Zero(t, got.StopDuration)

	t.Setenv("TUEMI_INCIDENT_STOP_DURATION", "90s")
	v.SetEnvPrefix("TUEMI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	require.NoError(t, o.ReloadIncident(v))
	assert.Equal(t, 90*time.Second, o.thresholds.Thresholds().StopDuration)
}
