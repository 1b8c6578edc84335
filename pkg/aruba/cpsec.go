package aruba

import (
	"context"
	"time"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
)

// AllowlistEntry is one row of the CPSEC allowlist (`show whitelist-db cpsec`).
type AllowlistEntry struct {
	Name        string `json:"AP-Name" yaml:"AP-Name"`
	Group       string `json:"AP-Group" yaml:"AP-Group"`
	MAC         string `json:"MAC-Address" yaml:"MAC-Address"`
	Enabled     string `json:"Enable,omitempty" yaml:"Enable,omitempty"`
	State       string `json:"State,omitempty" yaml:"State,omitempty"`
	CertType    string `json:"Cert-Type,omitempty" yaml:"Cert-Type,omitempty"`
	Description string `json:"Description,omitempty" yaml:"Description,omitempty"`
	RevokeText  string `json:"Revoke Text,omitempty" yaml:"Revoke Text,omitempty"`
	LastUpdated string `json:"Last Updated,omitempty" yaml:"Last Updated,omitempty"`
}

// Output keys of the allowlist show command. Releases before 8.10 say Whitelist.
var allowlistKeys = []string{
	"Control-Plane Security Allowlist-entry Details",
	"Control-Plane Security Whitelist-entry Details",
}

// CPSECAllowlist returns every entry in the CPSEC allowlist.
func (c *Client) CPSECAllowlist(ctx context.Context) ([]AllowlistEntry, error) {
	var entries []AllowlistEntry
	if err := c.showTable(ctx, "show whitelist-db cpsec", &entries, allowlistKeys...); err != nil {
		return nil, err
	}
	return entries, nil
}

// AddCPSECEntry adds mac to the allowlist under name in group.
func (c *Client) AddCPSECEntry(ctx context.Context, mac, group, name string) error {
	event := c.event(audit.OpCPSECAdd, mac).WithDetail("ap_group", group).WithDetail("ap_name", name)
	start := time.Now()
	_, err := c.PostObject(ctx, "wdb_cpsec_add_mac", map[string]string{
		"name":     mac,
		"ap_group": group,
		"ap_name":  name,
	})
	audit.Emit(c.audit, event.Finish(start, err))
	return err
}

// ApproveCPSECEntry marks an allowlist entry as factory approved so that its
// certificate never expires.
func (c *Client) ApproveCPSECEntry(ctx context.Context, mac string) error {
	return c.post(ctx, audit.OpCPSECApprove, mac, "wdb_cpsec_modify_mac", map[string]string{
		"name":     mac,
		"certtype": "factory-cert",
		"act":      "certified-factory-cert",
	})
}

// DeleteCPSECEntry removes mac from the allowlist.
func (c *Client) DeleteCPSECEntry(ctx context.Context, mac string) error {
	return c.post(ctx, audit.OpCPSECDelete, mac, "wdb_cpsec_del_mac", map[string]string{"name": mac})
}

// RevokeCPSECEntry revokes the certificate of an allowlist entry.
func (c *Client) RevokeCPSECEntry(ctx context.Context, mac, reason string) error {
	event := c.event(audit.OpCPSECRevoke, mac).WithDetail("revoke_text", reason)
	start := time.Now()
	_, err := c.PostObject(ctx, "wdb_cpsec_revoke_mac", map[string]string{
		"name":        mac,
		"revoke-text": reason,
	})
	audit.Emit(c.audit, event.Finish(start, err))
	return err
}
