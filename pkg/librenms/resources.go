package librenms

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
)

// DeviceGroup is a static or dynamic group of devices.
type DeviceGroup struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Desc string `json:"desc,omitempty" yaml:"desc,omitempty"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// DeviceGroups lists device groups.
func (c *Client) DeviceGroups(ctx context.Context) ([]DeviceGroup, error) {
	var groups []DeviceGroup
	err := c.list(ctx, "devicegroups", nil, "groups", &groups)
	return groups, err
}

// DevicesInGroup returns the IDs of the devices in a group.
func (c *Client) DevicesInGroup(ctx context.Context, group string) ([]int, error) {
	var members []struct {
		ID int `json:"device_id"`
	}
	if err := c.list(ctx, "devicegroups/"+url.PathEscape(group), nil, "devices", &members); err != nil {
		return nil, err
	}
	ids := make([]int, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids, nil
}

// Location is a named site with optional coordinates.
type Location struct {
	ID        int      `json:"id" yaml:"id"`
	Name      string   `json:"location" yaml:"location"`
	Lat       *float64 `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty" yaml:"lng,omitempty"`
	Timestamp string   `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// Locations lists locations.
func (c *Client) Locations(ctx context.Context) ([]Location, error) {
	var locations []Location
	err := c.list(ctx, "resources/locations", nil, "locations", &locations)
	return locations, err
}

type locationBody struct {
	Location string   `json:"location,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
}

// AddLocation creates a location. lat and lng may be nil.
func (c *Client) AddLocation(ctx context.Context, name string, lat, lng *float64) error {
	return c.mutate(ctx, audit.OpLocationAdd, name, http.MethodPost, "locations", nil, locationBody{name, lat, lng}, nil)
}

// EditLocation changes the coordinates of a location.
func (c *Client) EditLocation(ctx context.Context, name string, lat, lng *float64) error {
	return c.mutate(ctx, audit.OpLocationEdit, name, http.MethodPatch, "locations/"+url.PathEscape(name), nil, locationBody{Lat: lat, Lng: lng}, nil)
}

// DeleteLocation removes a location.
func (c *Client) DeleteLocation(ctx context.Context, name string) error {
	return c.mutate(ctx, audit.OpLocationDelete, name, http.MethodDelete, "locations/"+url.PathEscape(name), nil, nil, nil)
}

// Port is a device interface. Which fields are set depends on the columns
// requested.
type Port struct {
	ID            int    `json:"port_id" yaml:"port_id"`
	DeviceID      int    `json:"device_id,omitempty" yaml:"device_id,omitempty"`
	IfName        string `json:"ifName,omitempty" yaml:"ifName,omitempty"`
	IfDescr       string `json:"ifDescr,omitempty" yaml:"ifDescr,omitempty"`
	IfAlias       string `json:"ifAlias,omitempty" yaml:"ifAlias,omitempty"`
	IfPhysAddress string `json:"ifPhysAddress,omitempty" yaml:"ifPhysAddress,omitempty"`
	IfOperStatus  string `json:"ifOperStatus,omitempty" yaml:"ifOperStatus,omitempty"`
	IfAdminStatus string `json:"ifAdminStatus,omitempty" yaml:"ifAdminStatus,omitempty"`
	IfVlan        string `json:"ifVlan,omitempty" yaml:"ifVlan,omitempty"`
}

// Ports lists every port. columns limits the fields returned.
func (c *Client) Ports(ctx context.Context, cols ...string) ([]Port, error) {
	var ports []Port
	err := c.list(ctx, "ports", columns(cols), "ports", &ports)
	return ports, err
}

// SearchPorts finds ports whose ifAlias, ifDescr or ifName contain search.
// When field is set only that column is searched.
func (c *Client) SearchPorts(ctx context.Context, field, search string, cols ...string) ([]Port, error) {
	path := "ports/search/"
	if field != "" {
		path += url.PathEscape(field) + "/"
	}
	var ports []Port
	err := c.list(ctx, path+url.PathEscape(search), columns(cols), "ports", &ports)
	return ports, err
}

// PortsByMAC returns the ports a MAC address has been learned on.
func (c *Client) PortsByMAC(ctx context.Context, mac string) ([]Port, error) {
	var ports []Port
	err := c.list(ctx, "ports/mac/"+url.PathEscape(mac), nil, "ports", &ports)
	return ports, err
}

// Port returns one port.
func (c *Client) Port(ctx context.Context, id int) (Port, error) {
	return first[Port](ctx, c, "ports/"+strconv.Itoa(id), "port")
}

// Vlan is a VLAN as seen on one device.
type Vlan struct {
	ID       int    `json:"vlan_id" yaml:"vlan_id"`
	DeviceID int    `json:"device_id" yaml:"device_id"`
	Number   int    `json:"vlan_vlan" yaml:"vlan_vlan"`
	Name     string `json:"vlan_name" yaml:"vlan_name"`
	Domain   int    `json:"vlan_domain,omitempty" yaml:"vlan_domain,omitempty"`
	Type     string `json:"vlan_type,omitempty" yaml:"vlan_type,omitempty"`
}

// Vlans lists VLANs on every device, or on one device when device is set.
func (c *Client) Vlans(ctx context.Context, device string) ([]Vlan, error) {
	path := "resources/vlans"
	if device != "" {
		path = "devices/" + url.PathEscape(device) + "/vlans"
	}
	var vlans []Vlan
	err := c.list(ctx, path, nil, "vlans", &vlans)
	return vlans, err
}

// Link is a neighbour discovered through CDP, LLDP and the like.
type Link struct {
	ID             int    `json:"id" yaml:"id"`
	LocalPortID    int    `json:"local_port_id" yaml:"local_port_id"`
	LocalDeviceID  int    `json:"local_device_id" yaml:"local_device_id"`
	RemotePortID   int    `json:"remote_port_id,omitempty" yaml:"remote_port_id,omitempty"`
	RemoteHostname string `json:"remote_hostname" yaml:"remote_hostname"`
	RemotePort     string `json:"remote_port" yaml:"remote_port"`
	RemoteDeviceID int    `json:"remote_device_id,omitempty" yaml:"remote_device_id,omitempty"`
	Protocol       string `json:"protocol" yaml:"protocol"`
}

// Links lists links on every device, or on one device when device is set.
func (c *Client) Links(ctx context.Context, device string) ([]Link, error) {
	path := "resources/links"
	if device != "" {
		path = "devices/" + url.PathEscape(device) + "/links"
	}
	var links []Link
	err := c.list(ctx, path, nil, "links", &links)
	return links, err
}

// InventoryFilter narrows Inventory to one entPhysicalClass or to the
// children of one entPhysicalContainedIn index.
type InventoryFilter struct {
	Class       string
	ContainedIn string
	All         bool
}

// Inventory returns the ENTITY-MIB inventory of a device. Without All only
// the top level is returned.
func (c *Client) Inventory(ctx context.Context, device string, filter InventoryFilter) ([]map[string]any, error) {
	path := "inventory/" + url.PathEscape(device)
	if filter.All {
		path += "/all"
	}
	q := url.Values{}
	if filter.Class != "" {
		q.Set("entPhysicalClass", filter.Class)
	}
	if filter.ContainedIn != "" {
		q.Set("entPhysicalContainedIn", filter.ContainedIn)
	}
	var items []map[string]any
	err := c.list(ctx, path, q, "inventory", &items)
	return items, err
}
