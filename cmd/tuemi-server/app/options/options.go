package options

import (
	"errors"

	"github.com/spf13/viper"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/tuemi"
	"github.com/tuemi-io/tuemi/pkg/app"
	"github.com/tuemi-io/tuemi/pkg/log"
	"github.com/tuemi-io/tuemi/pkg/options"
)

type ServerOptions struct {
	HttpOptions      *options.HttpOptions      `json:"http" mapstructure:"http"`
	SessionOptions   *options.SessionOptions   `json:"session" mapstructure:"session"`
	MqttOptions      *options.MqttOptions      `json:"mqtt" mapstructure:"mqtt"`
	S3Options        *options.S3Options        `json:"s3" mapstructure:"s3"`
	SQLiteOptions    *options.SQLiteOptions    `json:"db" mapstructure:"db"`
	AssistantOptions *options.AssistantOptions `json:"assistant" mapstructure:"assistant"`
	IncidentOptions  *options.IncidentOptions  `json:"incident" mapstructure:"incident"`
	Log              *log.Options              `json:"log" mapstructure:"log"`

	thresholds *incident.LiveThresholds
}

var (
	_ app.NamedFlagSetOptions = (*ServerOptions)(nil)
	_ app.LoggerOptions       = (*ServerOptions)(nil)
)

func NewServerOptions() *ServerOptions {
	o := &ServerOptions{
		HttpOptions:      options.NewHttpOptions(),
		SessionOptions:   options.NewSessionOptions(),
		MqttOptions:      options.NewMqttOptions(),
		S3Options:        options.NewS3Options(),
		SQLiteOptions:    options.NewSQLiteOptions(),
		AssistantOptions: options.NewAssistantOptions(),
		IncidentOptions:  options.NewIncidentOptions(),
		Log:              log.NewOptions(),
	}

	return o
}

func (o *ServerOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.SessionOptions.AddFlags(fss.FlagSet("session"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.SQLiteOptions.AddFlags(fss.FlagSet("db"))
	o.AssistantOptions.AddFlags(fss.FlagSet("assistant"))
	o.IncidentOptions.AddFlags(fss.FlagSet("incident"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *ServerOptions) LogOptions() *log.Options {
	return o.Log
}

func (o *ServerOptions) Complete() error {
	if o.thresholds == nil {
		o.thresholds = incident.NewLiveThresholds(o.IncidentOptions.Thresholds())
	}
	return nil
}

func (o *ServerOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.SessionOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.SQLiteOptions.Validate()...)
	errs = append(errs, o.AssistantOptions.Validate()...)
	errs = append(errs, o.IncidentOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

// ReloadIncident re-reads the incident thresholds from v and swaps them into
// the thresholds the running service reads. Keys are resolved one by one so
// that flag and environment overrides keep their precedence over the file.
func (o *ServerOptions) ReloadIncident(v *viper.Viper) error {
	if o.thresholds == nil {
		return errors.New("options are not completed yet")
	}

	next := options.NewIncidentOptions()
	if key := "incident.stop-speed"; v.IsSet(key) {
		next.StopSpeed = v.GetFloat64(key)
	}
	if key := "incident.deviation-meters"; v.IsSet(key) {
		next.DeviationMeters = v.GetFloat64(key)
	}
	if key := "incident.stop-duration"; v.IsSet(key) {
		next.StopDuration = v.GetDuration(key)
	}
	return o.thresholds.Store(next.Thresholds())
}

func (o *ServerOptions) Config() (*tuemi.Config, error) {
	if err := o.Complete(); err != nil {
		return nil, err
	}
	return &tuemi.Config{
		HttpOptions:      o.HttpOptions,
		SessionOptions:   o.SessionOptions,
		MqttOptions:      o.MqttOptions,
		S3Options:        o.S3Options,
		SQLiteOptions:    o.SQLiteOptions,
		AssistantOptions: o.AssistantOptions,
		Thresholds:       o.thresholds,
	}, nil
}
