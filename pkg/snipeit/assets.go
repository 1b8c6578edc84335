package snipeit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/util"
)

// Status labels used when provisioning.
const (
	StatusReadyToDeploy = 2
	StatusDeployed      = 7
)

// MACField is the custom field holding an asset's MAC address.
const MACField = "_snipeit_mac_address_1"

// Ref is a nested {id, name} object.
type Ref struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Asset is a hardware asset. Listings fill the nested objects; create
// responses fill the flat IDs.
type Asset struct {
	ID          int    `json:"id" yaml:"id"`
	AssetTag    string `json:"asset_tag" yaml:"asset_tag"`
	Name        string `json:"name" yaml:"name"`
	Serial      string `json:"serial" yaml:"serial"`
	ModelID     int    `json:"model_id,omitempty" yaml:"model_id,omitempty"`
	StatusID    int    `json:"status_id,omitempty" yaml:"status_id,omitempty"`
	Model       *Ref   `json:"model,omitempty" yaml:"model,omitempty"`
	StatusLabel *Ref   `json:"status_label,omitempty" yaml:"status_label,omitempty"`
	Location    *Ref   `json:"location,omitempty" yaml:"location,omitempty"`
}

// PaddedID is the asset ID as printed on labels.
func (a Asset) PaddedID() string { return fmt.Sprintf("%05d", a.ID) }

// CreateAsset creates a ready-to-deploy asset of the given model. mac is
// normalised to colon form.
func (c *Client) CreateAsset(ctx context.Context, modelID int, mac, name, serial string) (Asset, error) {
	norm, err := util.NormalizeMAC(mac)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %v", util.ErrValidationFailed, err)
	}
	body := map[string]any{
		"status_id": StatusReadyToDeploy,
		"model_id":  modelID,
		MACField:    norm,
		"name":      name,
		"serial":    serial,
	}
	event := audit.NewEvent(AppName, c.host, audit.OpAssetCreate).
		WithTarget(name).
		WithDetail("mac", norm).
		WithDetail("serial", serial)
	var asset Asset
	if err := c.mutate(ctx, event, http.MethodPost, "hardware", body, &asset); err != nil {
		return Asset{}, err
	}
	return asset, nil
}

// CheckoutAsset checks an asset out to a location and marks it deployed.
func (c *Client) CheckoutAsset(ctx context.Context, assetID, locationID int) error {
	id := strconv.Itoa(assetID)
	event := audit.NewEvent(AppName, c.host, audit.OpAssetCheckout).
		WithTarget(id).
		WithDetail("location_id", strconv.Itoa(locationID))
	start := time.Now()

	checkout := map[string]any{
		"checkout_to_type":  "location",
		"status_id":         StatusDeployed,
		"assigned_location": locationID,
	}
	err := c.call(ctx, http.MethodPost, "hardware/"+id+"/checkout", nil, checkout, nil)
	if err == nil {
		// The checkout endpoint ignores status_id.
		err = c.call(ctx, http.MethodPut, "hardware/"+id, nil, map[string]any{"status_id": StatusDeployed}, nil)
	}
	audit.Emit(c.audit, event.Finish(start, err))
	return err
}

// AssetBySerial returns the assets with the given serial number. It
// returns util.ErrNotFound when there are none.
func (c *Client) AssetBySerial(ctx context.Context, serial string) ([]Asset, error) {
	var res rows[Asset]
	if err := c.call(ctx, http.MethodGet, "hardware/byserial/"+url.PathEscape(serial), nil, nil, &res); err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, fmt.Errorf("serial %s: %w", serial, util.ErrNotFound)
	}
	return res.Rows, nil
}
