package librenms

import (
	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/rest"
	"github.com/uoft-netops/uoft-tools/pkg/settings"
)

// AppName selects the librenms config files, pass entries and UOFT_LIBRENMS_* variables.
const AppName = "librenms"

// Settings for the librenms tool.
type Settings struct {
	URL       string          `mapstructure:"url" title:"LibreNMS URL" desc:"Base URL of the LibreNMS instance, e.g. https://librenms.example.com" settings:"required"`
	Token     settings.Secret `mapstructure:"token" title:"LibreNMS API Token" desc:"API token, created under Settings > API" settings:"required"`
	VerifyTLS bool            `mapstructure:"verify_tls" title:"Verify TLS" default:"true"`

	audit.Settings `mapstructure:",squash"`
}

// Client returns a client for the configured instance.
func (s *Settings) Client(opts ...Option) *Client {
	opts = append([]Option{WithRESTOptions(rest.WithVerifyTLS(s.VerifyTLS))}, opts...)
	return NewClient(s.URL, s.Token.Reveal(), opts...)
}
