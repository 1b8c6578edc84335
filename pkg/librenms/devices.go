package librenms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
)

// Device is a LibreNMS device. Only commonly used columns are decoded.
type Device struct {
	ID           int         `json:"device_id" yaml:"device_id"`
	Hostname     string      `json:"hostname" yaml:"hostname"`
	SysName      string      `json:"sysName" yaml:"sysName"`
	DisplayName  string      `json:"display,omitempty" yaml:"display,omitempty"`
	IP           string      `json:"ip,omitempty" yaml:"ip,omitempty"`
	OverwriteIP  string      `json:"overwrite_ip,omitempty" yaml:"overwrite_ip,omitempty"`
	OS           string      `json:"os" yaml:"os"`
	Hardware     string      `json:"hardware,omitempty" yaml:"hardware,omitempty"`
	Version      string      `json:"version,omitempty" yaml:"version,omitempty"`
	Serial       string      `json:"serial,omitempty" yaml:"serial,omitempty"`
	Type         string      `json:"type,omitempty" yaml:"type,omitempty"`
	Location     string      `json:"location,omitempty" yaml:"location,omitempty"`
	LocationID   int         `json:"location_id,omitempty" yaml:"location_id,omitempty"`
	Status       Flag        `json:"status" yaml:"status"`
	StatusReason string      `json:"status_reason,omitempty" yaml:"status_reason,omitempty"`
	Ignore       Flag        `json:"ignore" yaml:"ignore"`
	Disabled     Flag        `json:"disabled" yaml:"disabled"`
	Uptime       int64       `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	LastPolled   string      `json:"last_polled,omitempty" yaml:"last_polled,omitempty"`
	Lat          json.Number `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lng          json.Number `json:"lng,omitempty" yaml:"lng,omitempty"`
}

// Name is the sysName, falling back to the hostname.
func (d Device) Name() string {
	if d.SysName != "" {
		return d.SysName
	}
	return d.Hostname
}

// DeviceFilter narrows Devices. Type is one of all, active, ignored, up,
// down, disabled, os, mac, ipv4, ipv6, location or hostname; the search
// types take Query as input. Order defaults to hostname and may be
// followed by ASC or DESC.
type DeviceFilter struct {
	Order string
	Type  string
	Query string
}

func (f DeviceFilter) values() url.Values {
	q := url.Values{}
	for k, v := range map[string]string{"order": f.Order, "type": f.Type, "query": f.Query} {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

// Devices lists devices.
func (c *Client) Devices(ctx context.Context, filter DeviceFilter) ([]Device, error) {
	var devices []Device
	if err := c.list(ctx, "devices", filter.values(), "devices", &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// Device returns one device by hostname or ID.
func (c *Client) Device(ctx context.Context, device string) (Device, error) {
	return first[Device](ctx, c, "devices/"+url.PathEscape(device), "devices")
}

// NewDevice holds the parameters of AddDevice. Zero values are left to the
// server defaults.
type NewDevice struct {
	Hostname    string `json:"hostname"`
	OverwriteIP string `json:"overwrite_ip,omitempty"`
	Port        int    `json:"port,omitempty"`
	Transport   string `json:"transport,omitempty"`
	Version     string `json:"version,omitempty"`
	PollerGroup int    `json:"poller_group,omitempty"`
	ForceAdd    bool   `json:"force_add,omitempty"`
	Community   string `json:"community,omitempty"`
	AuthLevel   string `json:"authlevel,omitempty"`
	AuthName    string `json:"authname,omitempty"`
	AuthPass    string `json:"authpass,omitempty"`
	AuthAlgo    string `json:"authalgo,omitempty"`
	CryptoPass  string `json:"cryptopass,omitempty"`
	CryptoAlgo  string `json:"cryptoalgo,omitempty"`
	SNMPDisable bool   `json:"snmp_disable,omitempty"`
	OS          string `json:"os,omitempty"`
	Hardware    string `json:"hardware,omitempty"`
}

// AddDevice adds a device and returns it as stored.
func (c *Client) AddDevice(ctx context.Context, d NewDevice) ([]Device, error) {
	var res struct {
		Devices []Device `json:"devices"`
	}
	if err := c.mutate(ctx, audit.OpDeviceAdd, d.Hostname, http.MethodPost, "devices", nil, d, &res); err != nil {
		return nil, err
	}
	return res.Devices, nil
}

// DeleteDevice removes a device by hostname or ID.
func (c *Client) DeleteDevice(ctx context.Context, device string) error {
	return c.mutate(ctx, audit.OpDeviceDelete, device, http.MethodDelete, "devices/"+url.PathEscape(device), nil, nil, nil)
}

// DiscoverDevice triggers a discovery run.
func (c *Client) DiscoverDevice(ctx context.Context, device string) error {
	return c.mutate(ctx, audit.OpDeviceDiscover, device, http.MethodGet, "devices/"+url.PathEscape(device)+"/discover", nil, nil, nil)
}

// RenameDevice changes a device's hostname.
func (c *Client) RenameDevice(ctx context.Context, device, newHostname string) error {
	path := "devices/" + url.PathEscape(device) + "/rename/" + url.PathEscape(newHostname)
	return c.mutate(ctx, audit.OpDeviceRename, device, http.MethodPatch, path, nil, nil, nil)
}

// UpdateDeviceFields sets database columns of a device.
func (c *Client) UpdateDeviceFields(ctx context.Context, device string, fields map[string]any) error {
	names := make([]string, 0, len(fields))
	values := make([]any, 0, len(fields))
	for k, v := range fields {
		names = append(names, k)
		values = append(values, v)
	}
	body := map[string]any{"field": names, "data": values}
	return c.mutate(ctx, audit.OpDeviceUpdate, device, http.MethodPatch, "devices/"+url.PathEscape(device), nil, body, nil)
}

// Maintenance puts a device into maintenance mode for duration ("H:m").
func (c *Client) Maintenance(ctx context.Context, device, notes, duration string) error {
	body := map[string]string{"notes": notes, "duration": duration}
	return c.mutate(ctx, audit.OpDeviceMaintenance, device, http.MethodPost, "devices/"+url.PathEscape(device)+"/maintenance", nil, body, nil)
}

// Availability is the availability of a device over one period.
type Availability struct {
	Duration     int64   `json:"duration" yaml:"duration"`
	Availability float64 `json:"availability_perc" yaml:"availability_perc"`
}

// Availability returns a device's availability percentages.
func (c *Client) Availability(ctx context.Context, device string) ([]Availability, error) {
	var out []Availability
	err := c.list(ctx, "devices/"+url.PathEscape(device)+"/availability", nil, "availability", &out)
	return out, err
}

// Outage is one recorded outage of a device.
type Outage struct {
	GoingDown int64 `json:"going_down" yaml:"going_down"`
	UpAgain   int64 `json:"up_again" yaml:"up_again"`
}

// Outages returns a device's outages.
func (c *Client) Outages(ctx context.Context, device string) ([]Outage, error) {
	var out []Outage
	err := c.list(ctx, "devices/"+url.PathEscape(device)+"/outages", nil, "outages", &out)
	return out, err
}

// GroupsOf lists the device groups a device is a member of.
func (c *Client) GroupsOf(ctx context.Context, device string) ([]DeviceGroup, error) {
	var out []DeviceGroup
	err := c.list(ctx, "devices/"+url.PathEscape(device)+"/groups", nil, "groups", &out)
	return out, err
}

// FDBEntry is one forwarding database entry.
type FDBEntry struct {
	PortID     int    `json:"port_id" yaml:"port_id"`
	MACAddress string `json:"mac_address" yaml:"mac_address"`
	VlanID     int    `json:"vlan_id" yaml:"vlan_id"`
	DeviceID   int    `json:"device_id" yaml:"device_id"`
}

// FDB returns a device's forwarding database.
func (c *Client) FDB(ctx context.Context, device string) ([]FDBEntry, error) {
	var out []FDBEntry
	err := c.list(ctx, "devices/"+url.PathEscape(device)+"/fdb", nil, "ports_fdb", &out)
	return out, err
}

// IPs returns the IP addresses configured on a device.
func (c *Client) IPs(ctx context.Context, device string) ([]map[string]any, error) {
	var out []map[string]any
	err := c.list(ctx, "devices/"+url.PathEscape(device)+"/ip", nil, "addresses", &out)
	return out, err
}
