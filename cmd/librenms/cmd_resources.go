package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/cli"
	"github.com/uoft-netops/uoft-tools/pkg/librenms"
	"github.com/uoft-netops/uoft-tools/pkg/util"
)

var portColumns = []string{"port_id", "device_id", "ifName", "ifAlias", "ifOperStatus", "ifAdminStatus", "ifPhysAddress"}

func portsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ports",
		Aliases: []string{"port"},
		Short:   "Search ports",
	}

	var field string
	search := &cobra.Command{
		Use:   "search TEXT",
		Short: "Find ports whose ifAlias, ifDescr or ifName contain TEXT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := client().SearchPorts(app.Context(), field, args[0], portColumns...)
			if err != nil {
				return err
			}
			return app.Print(ports, func(w io.Writer) { printPorts(w, ports) })
		},
	}
	search.Flags().StringVar(&field, "field", "", "Search only this column (ifAlias, ifDescr or ifName)")

	mac := &cobra.Command{
		Use:   "mac MAC",
		Short: "Find the ports a MAC address was learned on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := util.NormalizeMAC(args[0])
			if err != nil {
				return err
			}
			ports, err := client().PortsByMAC(app.Context(), m)
			if err != nil {
				return err
			}
			return app.Print(ports, func(w io.Writer) { printPorts(w, ports) })
		},
	}

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show one port",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "port ID")
			if err != nil {
				return err
			}
			p, err := client().Port(app.Context(), id)
			if err != nil {
				return err
			}
			return app.Print(p, func(w io.Writer) { printPorts(w, []librenms.Port{p}) })
		},
	}

	cmd.AddCommand(search, mac, get)
	return cmd
}

func printPorts(w io.Writer, ports []librenms.Port) {
	t := cli.NewTableTo(w, "PORT_ID", "DEVICE_ID", "NAME", "ALIAS", "ADMIN", "OPER", "MAC")
	for _, p := range ports {
		t.Row(strconv.Itoa(p.ID), strconv.Itoa(p.DeviceID), p.IfName, p.IfAlias, p.IfAdminStatus, p.IfOperStatus, p.IfPhysAddress)
	}
	t.Flush()
}

func locationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "locations",
		Aliases: []string{"location"},
		Short:   "List and manage locations",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			locations, err := client().Locations(app.Context())
			if err != nil {
				return err
			}
			sort.Slice(locations, func(i, j int) bool { return locations[i].Name < locations[j].Name })
			return app.Print(locations, func(w io.Writer) {
				t := cli.NewTableTo(w, "ID", "LOCATION", "LAT", "LNG")
				for _, l := range locations {
					t.Row(strconv.Itoa(l.ID), l.Name, coord(l.Lat), coord(l.Lng))
				}
				t.Flush()
			})
		},
	}

	var lat, lng float64
	coords := func(cmd *cobra.Command) (*float64, *float64) {
		var la, ln *float64
		if cmd.Flags().Changed("lat") {
			la = &lat
		}
		if cmd.Flags().Changed("lng") {
			ln = &lng
		}
		return la, ln
	}

	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			la, ln := coords(cmd)
			return apply(audit.OpLocationAdd, args[0], "added location "+args[0], func(c *librenms.Client) error {
				return c.AddLocation(app.Context(), args[0], la, ln)
			})
		},
	}
	edit := &cobra.Command{
		Use:   "edit NAME",
		Short: "Change the coordinates of a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			la, ln := coords(cmd)
			if la == nil && ln == nil {
				return fmt.Errorf("%w: nothing to change, use --lat and/or --lng", util.ErrValidationFailed)
			}
			return apply(audit.OpLocationEdit, args[0], "edited location "+args[0], func(c *librenms.Client) error {
				return c.EditLocation(app.Context(), args[0], la, ln)
			})
		},
	}
	for _, c := range []*cobra.Command{add, edit} {
		c.Flags().Float64Var(&lat, "lat", 0, "Latitude")
		c.Flags().Float64Var(&lng, "lng", 0, "Longitude")
	}

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apply(audit.OpLocationDelete, args[0], "deleted location "+args[0], func(c *librenms.Client) error {
				return c.DeleteLocation(app.Context(), args[0])
			})
		},
	}

	cmd.AddCommand(list, add, edit, del)
	app.AddWriteFlags(cmd)
	return cmd
}

func coord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func vlansCmd() *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:   "vlans",
		Short: "List VLANs on every device, or on one with --device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vlans, err := client().Vlans(app.Context(), device)
			if err != nil {
				return err
			}
			return app.Print(vlans, func(w io.Writer) {
				t := cli.NewTableTo(w, "DEVICE_ID", "VLAN", "NAME", "TYPE")
				for _, v := range vlans {
					t.Row(strconv.Itoa(v.DeviceID), strconv.Itoa(v.Number), v.Name, v.Type)
				}
				t.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&device, "device", "", "Hostname or ID of one device")
	return cmd
}

func linksCmd() *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:   "links",
		Short: "List discovered neighbours on every device, or on one with --device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			links, err := client().Links(app.Context(), device)
			if err != nil {
				return err
			}
			return app.Print(links, func(w io.Writer) {
				t := cli.NewTableTo(w, "LOCAL_DEVICE", "LOCAL_PORT", "REMOTE_HOST", "REMOTE_PORT", "PROTOCOL")
				for _, l := range links {
					t.Row(strconv.Itoa(l.LocalDeviceID), strconv.Itoa(l.LocalPortID), l.RemoteHostname, l.RemotePort, l.Protocol)
				}
				t.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&device, "device", "", "Hostname or ID of one device")
	return cmd
}

func groupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups [GROUP]",
		Short: "List device groups, or the device IDs in GROUP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client()
			if len(args) == 1 {
				ids, err := c.DevicesInGroup(app.Context(), args[0])
				if err != nil {
					return err
				}
				return app.Print(ids, func(w io.Writer) {
					for _, id := range ids {
						fmt.Fprintln(w, id)
					}
				})
			}
			groups, err := c.DeviceGroups(app.Context())
			if err != nil {
				return err
			}
			return app.Print(groups, func(w io.Writer) {
				t := cli.NewTableTo(w, "ID", "NAME", "TYPE", "DESCRIPTION")
				for _, g := range groups {
					t.Row(strconv.Itoa(g.ID), g.Name, g.Type, g.Desc)
				}
				t.Flush()
			})
		},
	}
	return cmd
}

func inventoryCmd() *cobra.Command {
	var filter librenms.InventoryFilter
	cmd := &cobra.Command{
		Use:   "inventory DEVICE",
		Short: "Show the ENTITY-MIB inventory of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := client().Inventory(app.Context(), args[0], filter)
			if err != nil {
				return err
			}
			return app.Print(items, func(w io.Writer) {
				t := cli.NewTableTo(w, "INDEX", "CLASS", "NAME", "MODEL", "SERIAL")
				for _, it := range items {
					t.Row(str(it["entPhysicalIndex"]), str(it["entPhysicalClass"]), str(it["entPhysicalName"]),
						str(it["entPhysicalModelName"]), str(it["entPhysicalSerialNum"]))
				}
				t.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&filter.Class, "class", "", "Only this entPhysicalClass, e.g. chassis or module")
	cmd.Flags().StringVar(&filter.ContainedIn, "contained-in", "", "Only children of this entPhysicalIndex")
	cmd.Flags().BoolVar(&filter.All, "all", false, "Include every level, not just the top")
	return cmd
}

func str(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
