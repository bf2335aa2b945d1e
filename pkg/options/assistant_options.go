package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*AssistantOptions)(nil)

// AssistantOptions configures the hosted language model used to reword incidents
// and to suggest alternative transport.
type AssistantOptions struct {
	// APIKey enables the assistant. Without it incidents keep their generated details
	// and suggestions fall back to route matching.
	APIKey string `json:"api-key" mapstructure:"api-key"`
	Model  string `json:"model" mapstructure:"model"`

	// Timeout bounds every call so that a slow model never delays ingestion.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// Language is the language replies are written in.
	Language string `json:"language" mapstructure:"language"`
}

func NewAssistantOptions() *AssistantOptions {
	return &AssistantOptions{
		Model:    "gemini-2.5-flash",
		Timeout:  8 * time.Second,
		Language: "Spanish",
	}
}

func (o *AssistantOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("--assistant.timeout must be positive"))
	}
	if o.APIKey != "" && o.Model == "" {
		errs = append(errs, fmt.Errorf("--assistant.model is required when an API key is set"))
	}
	return errs
}

func (o *AssistantOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.APIKey, "assistant.api-key", o.APIKey, "Gemini API key. Leave empty to disable the assistant.")
	fs.StringVar(&o.Model, "assistant.model", o.Model, "Model used for incident wording and transport suggestions.")
	fs.DurationVar(&o.Timeout, "assistant.timeout", o.Timeout, "Timeout for a single assistant call.")
	fs.StringVar(&o.Language, "assistant.language", o.Language, "Language of assistant replies.")
}

// Enabled reports whether an API key is configured.
func (o *AssistantOptions) Enabled() bool {
	return o.APIKey != ""
}
