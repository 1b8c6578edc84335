package snipeit

import (
	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/settings"
)

// AppName selects the snipeit config files, pass entries and UOFT_SNIPEIT_* variables.
const AppName = "snipeit"

// Settings for the snipeit tool.
type Settings struct {
	APIBearerKey      settings.Secret `mapstructure:"api_bearer_key" title:"SnipeIT API Bearer Key" desc:"User API bearer key used with SnipeIT instance." settings:"required"`
	SnipeITHostname   string          `mapstructure:"snipeit_hostname" title:"SnipeIT Hostname" desc:"Hostname of SnipeIT instance." settings:"required"`
	DefaultModelID    int             `mapstructure:"default_model_id" title:"Default Model ID" desc:"Model used by create-asset when --model-id is not given"`
	DefaultLocationID int             `mapstructure:"default_location_id" title:"Default Location ID" desc:"Location used by checkout-asset when --location-id is not given"`

	audit.Settings `mapstructure:",squash"`
}

// Client returns a client for the configured instance.
func (s *Settings) Client(opts ...Option) *Client {
	return NewClient(s.SnipeITHostname, s.APIBearerKey.Reveal(), opts...)
}
