package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/cli"
	"github.com/uoft-netops/uoft-tools/pkg/snipeit"
	"github.com/uoft-netops/uoft-tools/pkg/util"
)

func createAssetCmd() *cobra.Command {
	var model int
	cmd := &cobra.Command{
		Use:   "create-asset MAC NAME SERIAL",
		Short: "Create a ready-to-deploy asset",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := modelID(model)
			if err != nil {
				return err
			}
			asset, err := createAsset(m, args[0], args[1], args[2])
			if err != nil || asset.ID == 0 {
				return err
			}
			fmt.Fprintf(app.Out, "New asset ID is %s.\n", asset.PaddedID())
			return nil
		},
	}
	cmd.Flags().IntVar(&model, "model-id", 0, "Model of the new asset (default: default_model_id)")
	app.AddWriteFlags(cmd)
	return cmd
}

func checkoutAssetCmd() *cobra.Command {
	var location int
	cmd := &cobra.Command{
		Use:   "checkout-asset ASSET",
		Short: "Check an asset out to a location and mark it deployed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAssetID(args[0])
			if err != nil {
				return err
			}
			loc, err := locationID(location)
			if err != nil {
				return err
			}
			return checkoutAsset(id, loc)
		},
	}
	cmd.Flags().IntVar(&location, "location-id", 0, "Location to check out to (default: default_location_id)")
	app.AddWriteFlags(cmd)
	return cmd
}

func createCheckoutCmd() *cobra.Command {
	var model, location int
	cmd := &cobra.Command{
		Use:   "create-checkout MAC NAME SERIAL",
		Short: "Create an asset and check it out in one step",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := modelID(model)
			if err != nil {
				return err
			}
			loc, err := locationID(location)
			if err != nil {
				return err
			}
			asset, err := createAsset(m, args[0], args[1], args[2])
			if err != nil || asset.ID == 0 {
				return err
			}
			fmt.Fprintf(app.Out, "New asset ID is %s.\n", asset.PaddedID())
			return checkoutAsset(asset.ID, loc)
		},
	}
	cmd.Flags().IntVar(&model, "model-id", 0, "Model of the new asset (default: default_model_id)")
	cmd.Flags().IntVar(&location, "location-id", 0, "Location to check out to (default: default_location_id)")
	app.AddWriteFlags(cmd)
	return cmd
}

// createAsset creates the asset with -x. Without it the change is previewed
// and the zero Asset returned.
func createAsset(model int, mac, name, serial string) (snipeit.Asset, error) {
	c := client()
	if !app.Execute {
		norm, err := util.NormalizeMAC(mac)
		if err != nil {
			return snipeit.Asset{}, fmt.Errorf("%w: %v", util.ErrValidationFailed, err)
		}
		previewed(c.Host(), audit.OpAssetCreate, name,
			fmt.Sprintf("created asset %s (model %d, MAC %s, serial %s)", name, model, norm, serial))
		app.DryRunNotice()
		return snipeit.Asset{}, nil
	}
	return c.CreateAsset(app.Context(), model, mac, name, serial)
}

func checkoutAsset(id, location int) error {
	c := client()
	target := strconv.Itoa(id)
	if !app.Execute {
		previewed(c.Host(), audit.OpAssetCheckout, target, fmt.Sprintf("checked out asset %05d to location %d", id, location))
		app.DryRunNotice()
		return nil
	}
	if err := c.CheckoutAsset(app.Context(), id, location); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Asset %05d checked out to location %d\n", id, location)
	return nil
}

func previewed(host, op, target, msg string) {
	fmt.Fprintf(app.Out, "Would have %s on %s\n", msg, host)
	audit.Emit(app.Audit, audit.NewEvent(snipeit.AppName, host, op).WithTarget(target).WithDryRun(true).WithSuccess())
}

func lookupSerialCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup-serial SERIAL",
		Short: "Print the asset ID of a serial number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assets, err := client().AssetBySerial(app.Context(), args[0])
			if errors.Is(err, util.ErrNotFound) {
				fmt.Fprintf(app.Out, "%s does not match any assets.\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			return app.Print(assets, func(w io.Writer) {
				for _, a := range assets {
					fmt.Fprintln(w, a.PaddedID())
				}
			})
		},
	}
}

func lookupLocationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup-location CODE",
		Short: "Print the location ID of a building code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := client().LocationByName(app.Context(), args[0])
			if errors.Is(err, util.ErrNotFound) {
				fmt.Fprintln(app.Out, cli.Yellow("No match found."))
				return nil
			}
			if err != nil {
				return err
			}
			return app.Print(loc, func(w io.Writer) { fmt.Fprintln(w, loc.ID) })
		},
	}
}
