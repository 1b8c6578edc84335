package aruba

import (
	"context"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
)

// Row is one row of a show command table.
type Row map[string]any

// WriteMemory saves the running configuration.
func (c *Client) WriteMemory(ctx context.Context) error {
	return c.post(ctx, audit.OpWriteMemory, "", "write_memory", nil)
}

// UserTable returns `show user-table`.
func (c *Client) UserTable(ctx context.Context) ([]Row, error) {
	return c.rows(ctx, "show user-table", "Users")
}

// APDatabase returns `show ap database`.
func (c *Client) APDatabase(ctx context.Context) ([]Row, error) {
	return c.rows(ctx, "show ap database", "AP Database")
}

// APActive returns `show ap active`.
func (c *Client) APActive(ctx context.Context) ([]Row, error) {
	return c.rows(ctx, "show ap active", "Active AP Table")
}

// APRadioSummary returns `show ap radio-summary`.
func (c *Client) APRadioSummary(ctx context.Context) ([]Row, error) {
	return c.rows(ctx, "show ap radio-summary", "APs Radios information")
}

func (c *Client) rows(ctx context.Context, command, key string) ([]Row, error) {
	var rows []Row
	if err := c.showTable(ctx, command, &rows, key); err != nil {
		return nil, err
	}
	return rows, nil
}
