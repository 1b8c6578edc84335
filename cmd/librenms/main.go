// LibreNMS - command line access to the LibreNMS REST API
//
//	librenms devices list --type down
//	librenms devices maintenance core1 --duration 2:00 --notes "line card swap" -x
//	librenms alerts list --state alert
//	librenms ports mac 00:11:22:33:44:55
//
// Write commands preview by default and require -x/--execute.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/cli"
	"github.com/uoft-netops/uoft-tools/pkg/librenms"
	"github.com/uoft-netops/uoft-tools/pkg/tool"
	"github.com/uoft-netops/uoft-tools/pkg/util"
)

var (
	cfg = &librenms.Settings{}
	app = tool.NewApp(librenms.AppName, cfg)
)

func main() {
	if err := app.Run(newRootCmd()); err != nil {
		fmt.Fprintln(os.Stderr, cli.Red("Error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := app.Root("LibreNMS API client", `LibreNMS reads and updates devices, alerts, ports and locations through
the LibreNMS v0 REST API.

Write commands preview changes by default; use -x to execute.`)

	tool.AddCommands(root,
		devicesCmd(),
		alertsCmd(),
		rulesCmd(),
		portsCmd(),
		locationsCmd(),
		vlansCmd(),
		linksCmd(),
		groupsCmd(),
		inventoryCmd(),
	)
	return root
}

func client() *librenms.Client {
	return cfg.Client(librenms.WithAuditLogger(app.Audit))
}

// apply runs fn with -x. Without it, the change is printed and recorded as
// a dry run.
func apply(op, target, msg string, fn func(*librenms.Client) error) error {
	c := client()
	if !app.Execute {
		fmt.Fprintf(app.Out, "Would have %s on %s\n", msg, c.Host())
		audit.Emit(app.Audit, audit.NewEvent(librenms.AppName, c.Host(), op).WithTarget(target).WithDryRun(true).WithSuccess())
		app.DryRunNotice()
		return nil
	}
	if err := fn(c); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "%s %s\n", cli.Green("Done:"), msg)
	return nil
}

func parseID(s, what string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s %q is not a positive integer", util.ErrValidationFailed, what, s)
	}
	return id, nil
}
