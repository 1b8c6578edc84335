package snipeit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/uoft-netops/uoft-tools/pkg/util"
)

// locationPageSize is the number of locations fetched per request.
const locationPageSize = 500

// Location is a SnipeIT location, usually one per building code.
type Location struct {
	ID          int    `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Address     string `json:"address,omitempty" yaml:"address,omitempty"`
	City        string `json:"city,omitempty" yaml:"city,omitempty"`
	AssetsCount int    `json:"assets_count,omitempty" yaml:"assets_count,omitempty"`
}

// Locations returns every location, following pagination.
func (c *Client) Locations(ctx context.Context) ([]Location, error) {
	var all []Location
	for offset := 0; ; offset += locationPageSize {
		q := url.Values{"limit": {strconv.Itoa(locationPageSize)}, "offset": {strconv.Itoa(offset)}}
		var page rows[Location]
		if err := c.call(ctx, http.MethodGet, "locations", q, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Rows...)
		if len(page.Rows) < locationPageSize || len(all) >= page.Total {
			return all, nil
		}
	}
}

// LocationByName returns the location whose name matches exactly.
func (c *Client) LocationByName(ctx context.Context, name string) (Location, error) {
	locations, err := c.Locations(ctx)
	if err != nil {
		return Location{}, err
	}
	for _, l := range locations {
		if l.Name == name {
			return l, nil
		}
	}
	return Location{}, fmt.Errorf("location %s: %w", name, util.ErrNotFound)
}

// LocationNames maps location IDs to names.
func LocationNames(locations []Location) map[int]string {
	names := make(map[int]string, len(locations))
	for _, l := range locations {
		names[l.ID] = l.Name
	}
	return names
}
