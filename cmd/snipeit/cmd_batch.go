package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/cli"
	"github.com/uoft-netops/uoft-tools/pkg/settings"
	"github.com/uoft-netops/uoft-tools/pkg/snipeit"
	"github.com/uoft-netops/uoft-tools/pkg/tool"
	"github.com/uoft-netops/uoft-tools/pkg/util"
)

func batchProvisionCmd() *cobra.Command {
	var model, location int
	cmd := &cobra.Command{
		Use:   "batch-provision NAMES|-",
		Short: "Create and check out one asset per name, scanning MACs and serials",
		Long: `Create and check out one asset per AP name.

Names are read one per line from NAMES, or from stdin when NAMES is "-".
For each name the MAC address and serial number are prompted for, usually
scanned with a barcode reader. Enter q at either prompt to stop.

Without --location-id or default_location_id, the location is picked from
a list once and used for every asset.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := modelID(model)
			if err != nil {
				return err
			}
			if location == 0 {
				location = cfg.DefaultLocationID
			}
			names, err := readNames(args[0])
			if err != nil {
				return err
			}
			p := settings.NewTerminalPrompter()
			if !p.Interactive() {
				return fmt.Errorf("%w: batch-provision prompts for MACs and serials", util.ErrNotInteractive)
			}
			b := &batch{
				client:   client(),
				ask:      p,
				out:      app.Out,
				audit:    app.Audit,
				model:    m,
				location: location,
				execute:  app.Execute,
			}
			done, err := b.run(app.Context(), names)
			b.summary(done)
			app.DryRunNotice()
			return err
		},
	}
	cmd.Flags().IntVar(&model, "model-id", 0, "Model of the new assets (default: default_model_id)")
	cmd.Flags().IntVar(&location, "location-id", 0, "Location to check out to (default: default_location_id, else prompt)")
	app.AddWriteFlags(cmd)
	return cmd
}

func readNames(path string) ([]string, error) {
	tool.StdinHint(path, "AP names, one per line")
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no names in %s", util.ErrValidationFailed, path)
	}
	return names, nil
}

// asker is the part of settings.Prompter a batch needs.
type asker interface {
	Prompt(f settings.Field) (string, error)
	Choose(label string, choices []string) (string, error)
}

var errQuit = errors.New("quit")

// batch creates and checks out one asset per name.
type batch struct {
	client   *snipeit.Client
	ask      asker
	out      io.Writer
	audit    audit.Logger
	model    int
	location int
	execute  bool

	locationName string
}

// run provisions names in order and returns the MACs that were provisioned
// (or would have been, in a dry run). Quitting at a prompt is not an error.
func (b *batch) run(ctx context.Context, names []string) ([]string, error) {
	var done []string
	for _, name := range names {
		mac, err := b.askMAC(name)
		if errors.Is(err, errQuit) {
			return done, nil
		}
		if err != nil {
			return done, err
		}
		serial, err := b.askValue(name + "'s serial (q to quit)")
		if errors.Is(err, errQuit) {
			return done, nil
		}
		if err != nil {
			return done, err
		}
		if err := b.resolveLocation(ctx); err != nil {
			return done, err
		}
		if err := b.provision(ctx, name, mac, serial); err != nil {
			return done, fmt.Errorf("%s: %w", name, err)
		}
		done = append(done, mac)
	}
	return done, nil
}

func (b *batch) askValue(label string) (string, error) {
	v, err := b.ask.Prompt(settings.Field{Key: "value", Title: label})
	if errors.Is(err, io.EOF) {
		return "", errQuit
	}
	if err != nil {
		return "", err
	}
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "q") {
		return "", errQuit
	}
	return v, nil
}

// askMAC prompts until a valid MAC (any of the usual notations, or 12 bare
// hex digits as scanned) is entered.
func (b *batch) askMAC(name string) (string, error) {
	for {
		v, err := b.askValue(name + "'s MAC (q to quit)")
		if err != nil {
			return "", err
		}
		mac, err := util.NormalizeMAC(v)
		if err == nil {
			return mac, nil
		}
		fmt.Fprintln(b.out, cli.Yellow(err.Error()))
	}
}

// resolveLocation picks the checkout location once per batch.
func (b *batch) resolveLocation(ctx context.Context) error {
	if b.locationName != "" {
		return nil
	}
	locations, err := b.client.Locations(ctx)
	if err != nil {
		return err
	}
	byName := map[string]int{}
	for _, l := range locations {
		byName[l.Name] = l.ID
	}
	if b.location != 0 {
		b.locationName = snipeit.LocationNames(locations)[b.location]
		if b.locationName == "" {
			return fmt.Errorf("location %d: %w", b.location, util.ErrNotFound)
		}
		return nil
	}
	choices := make([]string, 0, len(byName))
	for n := range byName {
		choices = append(choices, n)
	}
	sort.Strings(choices)
	choice, err := b.ask.Choose("Location name to be checked out to", choices)
	if errors.Is(err, settings.ErrSkipped) {
		return fmt.Errorf("%w: no location chosen", util.ErrValidationFailed)
	}
	if err != nil {
		return err
	}
	b.location, b.locationName = byName[choice], choice
	return nil
}

func (b *batch) provision(ctx context.Context, name, mac, serial string) error {
	if !b.execute {
		fmt.Fprintf(b.out, "Would have created %s (%s, %s) and checked it out to %s on %s\n",
			name, mac, serial, b.locationName, b.client.Host())
		audit.Emit(b.audit, audit.NewEvent(snipeit.AppName, b.client.Host(), audit.OpAssetCreate).
			WithTarget(name).WithDetail("mac", mac).WithDetail("serial", serial).WithDryRun(true).WithSuccess())
		return nil
	}
	asset, err := b.client.CreateAsset(ctx, b.model, mac, name, serial)
	if err != nil {
		return err
	}
	if err := b.client.CheckoutAsset(ctx, asset.ID, b.location); err != nil {
		return err
	}
	fmt.Fprintf(b.out, "Asset %s checked out to %s\n", asset.PaddedID(), b.locationName)
	return nil
}

func (b *batch) summary(macs []string) {
	if len(macs) == 0 {
		return
	}
	verb := "have been"
	if !b.execute {
		verb = "would have been"
	}
	fmt.Fprintf(b.out, "\nThe following MACs %s provisioned:\n", verb)
	for _, m := range macs {
		fmt.Fprintln(b.out, m)
	}
}
