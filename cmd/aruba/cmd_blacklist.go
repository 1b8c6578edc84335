package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/uoft-netops/uoft-tools/pkg/aruba"
	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/cli"
	"github.com/uoft-netops/uoft-tools/pkg/util"
)

func stmBlacklistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stm-blacklist",
		Short: "Manage the STM/BLMGR client blacklist",
		Long: `Manage entries in the Station Manager (STM) / Blacklist Manager (BLMGR)
blacklist database.

Entries are read from every managed controller. Changes go through the
blacklist manager on the mobility master, followed by write memory, since
controllers managed by a mobility master reject direct adds.`,
	}
	cmd.AddCommand(blacklistGetCmd(), blacklistAddCmd(), blacklistRemoveCmd(), blacklistPurgeCmd())
	return cmd
}

func blacklistGetCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get",
		Short: "List every blacklisted client across all controllers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := app.Context()
			clients, logout, err := controllers(ctx)
			if err != nil {
				return err
			}
			defer logout()

			entries, err := mergedBlacklist(ctx, clients)
			if err != nil {
				return err
			}
			if asJSON {
				app.Output = cli.FormatJSON
			}
			return app.Print(entries, func(w io.Writer) {
				t := cli.NewTableTo(w, "STA", "REASON", "BLACKLISTED")
				for _, e := range entries {
					t.Row(e.STA(), fmt.Sprint(e["reason"]), fmt.Sprint(e["block-time(sec)"]))
				}
				t.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "JSON output (same as -o json)")
	return cmd
}

// mergedBlacklist combines the blacklists of clients, one entry per station,
// sorted by station MAC.
func mergedBlacklist(ctx context.Context, clients []*aruba.Client) ([]aruba.BlacklistEntry, error) {
	bySTA := map[string]aruba.BlacklistEntry{}
	for _, c := range clients {
		entries, err := c.ClientBlacklist(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			bySTA[e.STA()] = e
		}
	}
	out := make([]aruba.BlacklistEntry, 0, len(bySTA))
	for _, e := range bySTA {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].STA() < out[j].STA() })
	return out, nil
}

// blacklistChange runs fn on the mobility master and saves the config, or
// previews it without -x. Callers print the dry-run notice.
func blacklistChange(op, target, preview, result string, fn func(context.Context, *aruba.Client) error) error {
	ctx := app.Context()
	c, logout, err := mobilityMaster(ctx)
	if err != nil {
		return err
	}
	defer logout()

	if !app.Execute {
		previewed(c.Host(), op, target, preview)
		return nil
	}
	if err := fn(ctx, c); err != nil {
		return err
	}
	if err := c.WriteMemory(ctx); err != nil {
		return fmt.Errorf("write memory: %w", err)
	}
	fmt.Fprintln(app.Out, result)
	return nil
}

func blacklistAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add MAC",
		Short: "Add a client to the blacklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mac, err := util.NormalizeMAC(args[0])
			if err != nil {
				return err
			}
			err = blacklistChange(audit.OpBlacklistAdd, mac,
				"added "+mac+" to the STM/BLMGR blacklist",
				"Added "+mac+" to the STM/BLMGR blacklist",
				func(ctx context.Context, c *aruba.Client) error { return c.BlacklistAdd(ctx, mac) })
			if err != nil {
				return err
			}
			app.DryRunNotice()
			return nil
		},
	}
	app.AddWriteFlags(cmd)
	return cmd
}

func blacklistRemoveCmd() *cobra.Command {
	var stm bool
	cmd := &cobra.Command{
		Use:   "remove MAC",
		Short: "Remove a client from the blacklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mac, err := util.NormalizeMAC(args[0])
			if err != nil {
				return err
			}
			err = blacklistChange(audit.OpBlacklistRemove, mac,
				"removed "+mac+" from the STM/BLMGR blacklist",
				"Removed "+mac+" from the STM/BLMGR blacklist",
				func(ctx context.Context, c *aruba.Client) error { return c.BlacklistRemove(ctx, mac) })
			if err == nil && stm {
				err = stmRemove(mac)
			}
			if err != nil {
				return err
			}
			app.DryRunNotice()
			return nil
		},
	}
	cmd.Flags().BoolVar(&stm, "stm", false, "Also clear the entry from each controller's station manager")
	app.AddWriteFlags(cmd)
	return cmd
}

// stmRemove clears mac from the station manager of every controller.
func stmRemove(mac string) error {
	ctx := app.Context()
	clients, logout, err := controllers(ctx)
	if err != nil {
		return err
	}
	defer logout()

	for _, c := range clients {
		if !app.Execute {
			previewed(c.Host(), audit.OpSTMBlacklistRemove, mac, "removed "+mac+" from the station manager")
			continue
		}
		if err := c.STMBlacklistRemove(ctx, mac); err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "Removed %s from the station manager on %s\n", mac, c.Host())
	}
	return nil
}

func blacklistPurgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove every client from the blacklist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := blacklistChange(audit.OpBlacklistPurge, "",
				"purged the STM/BLMGR blacklist",
				"The STM/BLMGR blacklist has been purged",
				func(ctx context.Context, c *aruba.Client) error { return c.BlacklistPurge(ctx) })
			if err != nil {
				return err
			}
			app.DryRunNotice()
			return nil
		},
	}
	app.AddWriteFlags(cmd)
	return cmd
}
