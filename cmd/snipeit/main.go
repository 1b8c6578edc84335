// SnipeIT - asset provisioning against a SnipeIT instance
//
// Creates access point assets and checks them out to building locations:
//
//	snipeit create-asset 00:11:22:33:44:55 ab-1234-ap1 CNF1234 -x
//	snipeit checkout-asset 1234 --location-id 56 -x
//	snipeit batch-provision names.txt -x
//	snipeit lookup-serial CNF1234
//
// Write commands preview by default and require -x/--execute.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/uoft-netops/uoft-tools/pkg/cli"
	"github.com/uoft-netops/uoft-tools/pkg/snipeit"
	"github.com/uoft-netops/uoft-tools/pkg/tool"
	"github.com/uoft-netops/uoft-tools/pkg/util"
)

var (
	cfg = &snipeit.Settings{}
	app = tool.NewApp(snipeit.AppName, cfg)
)

func main() {
	if err := app.Run(newRootCmd()); err != nil {
		fmt.Fprintln(os.Stderr, cli.Red("Error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := app.Root("SnipeIT asset tools", `SnipeIT creates access point assets and checks them out to locations.

Write commands preview changes by default; use -x to execute.`)

	tool.AddCommands(root,
		createAssetCmd(),
		checkoutAssetCmd(),
		createCheckoutCmd(),
		lookupSerialCmd(),
		lookupLocationCmd(),
		batchProvisionCmd(),
	)
	return root
}

func client() *snipeit.Client {
	return cfg.Client(snipeit.WithAuditLogger(app.Audit))
}

func modelID(flag int) (int, error) {
	if flag != 0 {
		return flag, nil
	}
	if cfg.DefaultModelID != 0 {
		return cfg.DefaultModelID, nil
	}
	return 0, fmt.Errorf("%w: no model, use --model-id or set default_model_id", util.ErrInvalidConfig)
}

func locationID(flag int) (int, error) {
	if flag != 0 {
		return flag, nil
	}
	if cfg.DefaultLocationID != 0 {
		return cfg.DefaultLocationID, nil
	}
	return 0, fmt.Errorf("%w: no location, use --location-id or set default_location_id", util.ErrInvalidConfig)
}

func parseAssetID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: asset ID %q is not a positive integer", util.ErrValidationFailed, s)
	}
	return id, nil
}
