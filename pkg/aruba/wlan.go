package aruba

import (
	"context"
	"strings"
	"time"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
)

// APGroup is an ap_group configuration object.
type APGroup struct {
	ProfileName string `json:"profile-name"`
}

// Name is the group name: profile names may carry a quoted node prefix,
// and only the text after the last ' is the group.
func (g APGroup) Name() string {
	if i := strings.LastIndex(g.ProfileName, "'"); i >= 0 {
		return g.ProfileName[i+1:]
	}
	return g.ProfileName
}

// APGroups returns the names of all AP groups.
func (c *Client) APGroups(ctx context.Context) ([]string, error) {
	var groups []APGroup
	if err := c.GetObject(ctx, "ap_group", &groups); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name())
	}
	return names, nil
}

// BlacklistEntry is one client in the AP client blacklist. Columns vary
// between releases, so entries are kept as returned.
type BlacklistEntry map[string]any

// STA returns the station MAC address of the entry.
func (e BlacklistEntry) STA() string {
	s, _ := e["STA"].(string)
	return s
}

// ClientBlacklist returns the AP client blacklist of this controller. 8.10
// renamed the output key to Client Denylist.
func (c *Client) ClientBlacklist(ctx context.Context) ([]BlacklistEntry, error) {
	var entries []BlacklistEntry
	if err := c.showTable(ctx, "show ap blacklist-clients", &entries, "Blacklisted Clients", "Client Denylist"); err != nil {
		return nil, err
	}
	return entries, nil
}

// STMBlacklistRemove removes a client from this controller's station
// manager blacklist. Controllers managed by a mobility master reject adds
// through this endpoint; use BlacklistAdd on the MM instead.
func (c *Client) STMBlacklistRemove(ctx context.Context, mac string) error {
	return c.post(ctx, audit.OpSTMBlacklistRemove, mac, "stm_blacklist_client_remove", map[string]string{"client-mac": mac})
}

// BlacklistAdd adds a client to the blacklist manager database.
func (c *Client) BlacklistAdd(ctx context.Context, mac string) error {
	return c.post(ctx, audit.OpBlacklistAdd, mac, "blmgr_blacklist_client_add", map[string]string{"client-mac": mac})
}

// BlacklistRemove removes a client from the blacklist manager database.
func (c *Client) BlacklistRemove(ctx context.Context, mac string) error {
	return c.post(ctx, audit.OpBlacklistRemove, mac, "blmgr_blacklist_client_remove", map[string]string{"client-mac": mac})
}

// BlacklistPurge removes every client from the blacklist manager database.
func (c *Client) BlacklistPurge(ctx context.Context) error {
	return c.post(ctx, audit.OpBlacklistPurge, "", "blmgr_blacklist_clients_purge", map[string]string{})
}

// post sends a mutating object request and records it.
func (c *Client) post(ctx context.Context, op, target, object string, data any) error {
	event := c.event(op, target)
	start := time.Now()
	_, err := c.PostObject(ctx, object, data)
	audit.Emit(c.audit, event.Finish(start, err))
	return err
}
