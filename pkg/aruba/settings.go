package aruba

import (
	"fmt"
	"strings"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/rest"
	"github.com/uoft-netops/uoft-tools/pkg/settings"
	"github.com/uoft-netops/uoft-tools/pkg/util"
)

// AppName selects the aruba config files, pass entries and UOFT_ARUBA_* variables.
const AppName = "aruba"

// Settings for the aruba tool.
type Settings struct {
	SvcAccount        string          `mapstructure:"svc_account" title:"Aruba API Authentication Account" settings:"required"`
	MMVRRPHostname    string          `mapstructure:"mm_vrrp_hostname" title:"Aruba Mobility Master Primary IP Address / Hostname" settings:"required"`
	MDHostnames       []string        `mapstructure:"md_hostnames" title:"Aruba Controller (Managed Device) IP Addresses / Hostnames" settings:"required"`
	Password          settings.Secret `mapstructure:"password" title:"Aruba API Authentication Password" desc:"Password used to authenticate to the Aruba API." settings:"required"`
	DefaultConfigPath string          `mapstructure:"default_config_path" title:"Aruba API Default Config Path" desc:"Default config path used for API requests. Ex /md or /md/UTSC" default:"/md"`
	APIPort           int             `mapstructure:"api_port" title:"Aruba API Port" default:"4343"`
	VerifyTLS         bool            `mapstructure:"verify_tls" title:"Verify TLS" desc:"Verify controller certificates" default:"false"`

	audit.Settings `mapstructure:",squash"`
}

// ValidateRaw rejects the md_vrrp_hostname key, which was renamed.
func (s *Settings) ValidateRaw(raw map[string]any, files []string) error {
	if _, ok := raw["md_vrrp_hostname"]; ok {
		return fmt.Errorf("%w: md_vrrp_hostname is deprecated, use mm_vrrp_hostname and md_hostnames instead; "+
			"check the following config files for the deprecated key: %s",
			util.ErrInvalidConfig, strings.Join(files, ", "))
	}
	return nil
}

func (s *Settings) clientOptions(extra []Option) []Option {
	opts := []Option{WithRESTOptions(rest.WithVerifyTLS(s.VerifyTLS))}
	return append(opts, extra...)
}

func (s *Settings) hostPort(host string) string {
	if s.APIPort == 0 || strings.Contains(host, "://") {
		return host
	}
	return fmt.Sprintf("%s:%d", host, s.APIPort)
}

// MobilityMaster returns a client for the mobility master, using the
// configured default config path.
func (s *Settings) MobilityMaster(opts ...Option) *Client {
	opts = append([]Option{WithConfigPath(s.DefaultConfigPath)}, s.clientOptions(opts)...)
	return NewClient(s.hostPort(s.MMVRRPHostname), s.SvcAccount, s.Password.Reveal(), opts...)
}

// Controllers returns a client for each managed controller.
func (s *Settings) Controllers(opts ...Option) []*Client {
	clients := make([]*Client, 0, len(s.MDHostnames))
	for _, host := range s.MDHostnames {
		clients = append(clients, NewClient(s.hostPort(host), s.SvcAccount, s.Password.Reveal(), s.clientOptions(opts)...))
	}
	return clients
}
