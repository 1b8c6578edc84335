// Aruba - ArubaOS 8 controller tooling
//
// Provisions access points into the Control Plane Security (CPSEC)
// allowlist of the mobility master, and manages the client blacklist:
//
//	aruba get-ap-groups
//	aruba provision my_aps.csv --on-error skip      # preview
//	aruba provision my_aps.csv -x                   # apply
//	aruba stm-blacklist get --json
//	aruba stm-blacklist add 00:11:22:33:44:55 -x
//
// Write commands preview by default and require -x/--execute.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/uoft-netops/uoft-tools/pkg/aruba"
	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/cli"
	"github.com/uoft-netops/uoft-tools/pkg/tool"
	"github.com/uoft-netops/uoft-tools/pkg/util"
)

var (
	cfg = &aruba.Settings{}
	app = tool.NewApp(aruba.AppName, cfg)
)

func main() {
	if err := app.Run(newRootCmd()); err != nil {
		fmt.Fprintln(os.Stderr, cli.Red("Error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := app.Root("Aruba controller tooling", `Aruba provisions access points into the CPSEC allowlist of the mobility
master and manages the client blacklist on the controllers.

Write commands preview changes by default; use -x to execute.`)

	tool.AddCommands(root,
		getAPGroupsCmd(),
		listAPsCmd(),
		provisionCmd(),
		deprovisionCmd(),
		revokeCmd(),
		stmBlacklistCmd(),
		showCmd(),
	)
	return root
}

// session logs c in. The returned func logs out and must be deferred.
func session(ctx context.Context, c *aruba.Client) (func(), error) {
	if err := c.Login(ctx); err != nil {
		return nil, err
	}
	return func() {
		if err := c.Logout(context.Background()); err != nil {
			util.WithHost(c.Host()).Warnf("Logout failed: %v", err)
		}
	}, nil
}

// mobilityMaster returns a logged-in client for the mobility master.
func mobilityMaster(ctx context.Context) (*aruba.Client, func(), error) {
	c := cfg.MobilityMaster(aruba.WithAuditLogger(app.Audit))
	logout, err := session(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	return c, logout, nil
}

// controllers returns logged-in clients for every managed controller.
func controllers(ctx context.Context) ([]*aruba.Client, func(), error) {
	var logouts []func()
	closeAll := func() {
		for _, l := range logouts {
			l()
		}
	}
	clients := cfg.Controllers(aruba.WithAuditLogger(app.Audit))
	for _, c := range clients {
		logout, err := session(ctx, c)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		logouts = append(logouts, logout)
	}
	return clients, closeAll, nil
}

// firstController returns a logged-in client for the first managed controller.
func firstController(ctx context.Context) (*aruba.Client, func(), error) {
	clients := cfg.Controllers(aruba.WithAuditLogger(app.Audit))
	if len(clients) == 0 {
		return nil, nil, fmt.Errorf("%w: md_hostnames is empty", util.ErrInvalidConfig)
	}
	logout, err := session(ctx, clients[0])
	if err != nil {
		return nil, nil, err
	}
	return clients[0], logout, nil
}

// previewed records and prints a change that was not executed.
func previewed(host, op, target, msg string) {
	fmt.Fprintf(app.Out, "Would have %s on %s\n", msg, host)
	audit.Emit(app.Audit, audit.NewEvent(aruba.AppName, host, op).WithTarget(target).WithDryRun(true).WithSuccess())
}
