package main

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/cli"
	"github.com/uoft-netops/uoft-tools/pkg/librenms"
	"github.com/uoft-netops/uoft-tools/pkg/util"
)

func devicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "devices",
		Aliases: []string{"device", "dev"},
		Short:   "List and manage devices",
	}
	cmd.AddCommand(
		deviceListCmd(),
		deviceGetCmd(),
		deviceAddCmd(),
		deviceDeleteCmd(),
		deviceRenameCmd(),
		deviceMaintenanceCmd(),
		deviceDiscoverCmd(),
		deviceSetCmd(),
		deviceAvailabilityCmd(),
		deviceOutagesCmd(),
		deviceFDBCmd(),
	)
	app.AddWriteFlags(cmd)
	return cmd
}

func deviceListCmd() *cobra.Command {
	var filter librenms.DeviceFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := client().Devices(app.Context(), filter)
			if err != nil {
				return err
			}
			return app.Print(devices, func(w io.Writer) { printDevices(w, devices) })
		},
	}
	cmd.Flags().StringVar(&filter.Type, "type", "", "Filter: all, active, ignored, up, down, disabled, os, mac, ipv4, ipv6, location, hostname")
	cmd.Flags().StringVar(&filter.Query, "query", "", "Search term for the os, mac, ipv4, ipv6, location and hostname filters")
	cmd.Flags().StringVar(&filter.Order, "order", "", "Sort column, optionally followed by ASC or DESC")
	return cmd
}

func printDevices(w io.Writer, devices []librenms.Device) {
	t := cli.NewTableTo(w, "ID", "NAME", "IP", "OS", "HARDWARE", "LOCATION", "STATUS")
	for _, d := range devices {
		t.Row(strconv.Itoa(d.ID), d.Name(), d.IP, d.OS, d.Hardware, d.Location, upDown(bool(d.Status)))
	}
	t.Flush()
}

func upDown(up bool) string {
	if up {
		return cli.Green("up")
	}
	return cli.Red("down")
}

func deviceGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get DEVICE",
		Short: "Show a device by hostname or ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := app.Context()
			c := client()
			d, err := c.Device(ctx, args[0])
			if err != nil {
				return err
			}
			groups, err := c.GroupsOf(ctx, args[0])
			if err != nil {
				util.Logger.Debugf("device groups of %s: %v", args[0], err)
			}
			return app.Print(d, func(w io.Writer) {
				row := func(k, v string) {
					if v != "" {
						fmt.Fprintf(w, "%s %s\n", cli.DotPad(k, 16), v)
					}
				}
				row("Name", d.Name())
				row("Hostname", d.Hostname)
				row("Device ID", strconv.Itoa(d.ID))
				row("IP", d.IP)
				row("OS", d.OS)
				row("Hardware", d.Hardware)
				row("Version", d.Version)
				row("Serial", d.Serial)
				row("Location", d.Location)
				row("Status", upDown(bool(d.Status)))
				row("Status reason", d.StatusReason)
				row("Last polled", d.LastPolled)
				if d.Uptime > 0 {
					row("Uptime", (time.Duration(d.Uptime) * time.Second).String())
				}
				for _, g := range groups {
					row("Group", g.Name)
				}
			})
		},
	}
}

func deviceAddCmd() *cobra.Command {
	var d librenms.NewDevice
	cmd := &cobra.Command{
		Use:   "add HOSTNAME",
		Short: "Add a device",
		Long: `Add a device by hostname or IP.

SNMP v1/v2c devices need --community. v3 devices need --auth-level and the
matching --auth-name/--auth-pass/--crypto-pass. --ping-only adds the device
without SNMP.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d.Hostname = args[0]
			return apply(audit.OpDeviceAdd, d.Hostname, "added device "+d.Hostname, func(c *librenms.Client) error {
				devices, err := c.AddDevice(app.Context(), d)
				if err != nil {
					return err
				}
				printDevices(app.Out, devices)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&d.OverwriteIP, "ip", "", "Poll this IP instead of resolving HOSTNAME")
	f.IntVar(&d.Port, "port", 0, "SNMP port")
	f.StringVar(&d.Transport, "transport", "", "SNMP transport (udp, tcp, udp6, tcp6)")
	f.StringVar(&d.Version, "snmp-version", "", "SNMP version (v1, v2c, v3)")
	f.IntVar(&d.PollerGroup, "poller-group", 0, "Poller group ID")
	f.BoolVar(&d.ForceAdd, "force", false, "Add without checking SNMP reachability")
	f.StringVar(&d.Community, "community", "", "SNMP v1/v2c community")
	f.StringVar(&d.AuthLevel, "auth-level", "", "SNMP v3 level (noAuthNoPriv, authNoPriv, authPriv)")
	f.StringVar(&d.AuthName, "auth-name", "", "SNMP v3 user")
	f.StringVar(&d.AuthPass, "auth-pass", "", "SNMP v3 auth password")
	f.StringVar(&d.AuthAlgo, "auth-algo", "", "SNMP v3 auth algorithm")
	f.StringVar(&d.CryptoPass, "crypto-pass", "", "SNMP v3 privacy password")
	f.StringVar(&d.CryptoAlgo, "crypto-algo", "", "SNMP v3 privacy algorithm")
	f.BoolVar(&d.SNMPDisable, "ping-only", false, "Add as a ping-only device")
	f.StringVar(&d.OS, "os", "", "OS of a ping-only device")
	f.StringVar(&d.Hardware, "hardware", "", "Hardware of a ping-only device")
	return cmd
}

func deviceDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete DEVICE",
		Short: "Remove a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apply(audit.OpDeviceDelete, args[0], "deleted device "+args[0], func(c *librenms.Client) error {
				return c.DeleteDevice(app.Context(), args[0])
			})
		},
	}
}

func deviceRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename DEVICE NEW_HOSTNAME",
		Short: "Change the hostname of a device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := fmt.Sprintf("renamed %s to %s", args[0], args[1])
			return apply(audit.OpDeviceRename, args[0], msg, func(c *librenms.Client) error {
				return c.RenameDevice(app.Context(), args[0], args[1])
			})
		},
	}
}

var maintenanceDuration = regexp.MustCompile(`^\d+:[0-5]?\d$`)

func deviceMaintenanceCmd() *cobra.Command {
	var notes, duration string
	cmd := &cobra.Command{
		Use:   "maintenance DEVICE",
		Short: "Put a device into maintenance mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !maintenanceDuration.MatchString(duration) {
				return fmt.Errorf("%w: --duration %q must be H:MM", util.ErrValidationFailed, duration)
			}
			msg := fmt.Sprintf("put %s into maintenance for %s", args[0], duration)
			return apply(audit.OpDeviceMaintenance, args[0], msg, func(c *librenms.Client) error {
				return c.Maintenance(app.Context(), args[0], notes, duration)
			})
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "Maintenance notes")
	cmd.Flags().StringVar(&duration, "duration", "1:00", "Duration as H:MM")
	return cmd
}

func deviceDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover DEVICE",
		Short: "Trigger a discovery run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apply(audit.OpDeviceDiscover, args[0], "triggered discovery of "+args[0], func(c *librenms.Client) error {
				return c.DiscoverDevice(app.Context(), args[0])
			})
		},
	}
}

func deviceSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set DEVICE FIELD=VALUE...",
		Short: "Update device columns, e.g. notes=... or ignore=1",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(args[1:])
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("updated %v on %s", args[1:], args[0])
			return apply(audit.OpDeviceUpdate, args[0], msg, func(c *librenms.Client) error {
				return c.UpdateDeviceFields(app.Context(), args[0], fields)
			})
		},
	}
}

var fieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func parseFields(args []string) (map[string]any, error) {
	fields := make(map[string]any, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || !fieldName.MatchString(k) {
			return nil, fmt.Errorf("%w: %q is not FIELD=VALUE", util.ErrValidationFailed, a)
		}
		fields[k] = v
	}
	return fields, nil
}

func deviceAvailabilityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "availability DEVICE",
		Short: "Show availability percentages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			av, err := client().Availability(app.Context(), args[0])
			if err != nil {
				return err
			}
			return app.Print(av, func(w io.Writer) {
				t := cli.NewTableTo(w, "PERIOD", "AVAILABILITY")
				for _, a := range av {
					t.Row((time.Duration(a.Duration) * time.Second).String(), fmt.Sprintf("%.3f%%", a.Availability))
				}
				t.Flush()
			})
		},
	}
}

func deviceOutagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outages DEVICE",
		Short: "List recorded outages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outages, err := client().Outages(app.Context(), args[0])
			if err != nil {
				return err
			}
			return app.Print(outages, func(w io.Writer) {
				t := cli.NewTableTo(w, "DOWN", "UP", "DURATION")
				for _, o := range outages {
					down := time.Unix(o.GoingDown, 0)
					up, dur := "-", "-"
					if o.UpAgain > 0 {
						up = time.Unix(o.UpAgain, 0).Format(time.DateTime)
						dur = time.Unix(o.UpAgain, 0).Sub(down).String()
					}
					t.Row(down.Format(time.DateTime), up, dur)
				}
				t.Flush()
			})
		},
	}
}

func deviceFDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fdb DEVICE",
		Short: "Show the forwarding database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := client().FDB(app.Context(), args[0])
			if err != nil {
				return err
			}
			return app.Print(entries, func(w io.Writer) {
				t := cli.NewTableTo(w, "MAC", "PORT_ID", "VLAN_ID")
				for _, e := range entries {
					t.Row(e.MACAddress, strconv.Itoa(e.PortID), strconv.Itoa(e.VlanID))
				}
				t.Flush()
			})
		},
	}
}
