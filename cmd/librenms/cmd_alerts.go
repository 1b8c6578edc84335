package main

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/cli"
	"github.com/uoft-netops/uoft-tools/pkg/librenms"
)

func alertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "alerts",
		Aliases: []string{"alert"},
		Short:   "List, acknowledge and unmute alerts",
	}
	cmd.AddCommand(alertListCmd(), alertGetCmd(), alertAckCmd(), alertUnmuteCmd())
	app.AddWriteFlags(cmd)
	return cmd
}

func alertListCmd() *cobra.Command {
	var filter librenms.AlertFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			alerts, err := client().Alerts(app.Context(), filter)
			if err != nil {
				return err
			}
			return app.Print(alerts, func(w io.Writer) { printAlerts(w, alerts) })
		},
	}
	cmd.Flags().StringVar(&filter.State, "state", "", "ok, alert or ack")
	cmd.Flags().StringVar(&filter.Severity, "severity", "", "ok, warning or critical")
	cmd.Flags().IntVar(&filter.Rule, "rule", 0, "Only alerts raised by this rule ID")
	cmd.Flags().StringVar(&filter.Order, "order", "", "Sort column, e.g. timestamp")
	cmd.Flags().StringVar(&filter.Sort, "sort", "", "asc or desc (default desc)")
	return cmd
}

func alertState(s int) string {
	switch s {
	case librenms.AlertStateOK:
		return cli.Green("ok")
	case librenms.AlertStateAlert:
		return cli.Red("alert")
	case librenms.AlertStateAck:
		return cli.Yellow("ack")
	}
	return strconv.Itoa(s)
}

func printAlerts(w io.Writer, alerts []librenms.Alert) {
	t := cli.NewTableTo(w, "ID", "HOSTNAME", "RULE", "SEVERITY", "STATE", "TIMESTAMP")
	for _, a := range alerts {
		rule := a.Name
		if rule == "" {
			rule = strconv.Itoa(a.RuleID)
		}
		t.Row(strconv.Itoa(a.ID), a.Hostname, rule, a.Severity, alertState(a.State), a.Timestamp)
	}
	t.Flush()
}

func alertGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "alert ID")
			if err != nil {
				return err
			}
			a, err := client().Alert(app.Context(), id)
			if err != nil {
				return err
			}
			return app.Print(a, func(w io.Writer) { printAlerts(w, []librenms.Alert{a}) })
		},
	}
}

func alertAckCmd() *cobra.Command {
	var note string
	var untilClear bool
	cmd := &cobra.Command{
		Use:   "ack ID",
		Short: "Acknowledge an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "alert ID")
			if err != nil {
				return err
			}
			return apply(audit.OpAlertAck, args[0], "acknowledged alert "+args[0], func(c *librenms.Client) error {
				return c.AckAlert(app.Context(), id, note, untilClear)
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "Note stored with the acknowledgement")
	cmd.Flags().BoolVar(&untilClear, "until-clear", false, "Keep the alert acknowledged until it clears")
	return cmd
}

func alertUnmuteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unmute ID",
		Short: "Unmute an acknowledged alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "alert ID")
			if err != nil {
				return err
			}
			return apply(audit.OpAlertUnmute, args[0], "unmuted alert "+args[0], func(c *librenms.Client) error {
				return c.UnmuteAlert(app.Context(), id)
			})
		},
	}
}

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List and delete alert rules",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List alert rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := client().AlertRules(app.Context())
			if err != nil {
				return err
			}
			return app.Print(rules, func(w io.Writer) { printRules(w, rules) })
		},
	}
	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show one alert rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "rule ID")
			if err != nil {
				return err
			}
			r, err := client().AlertRule(app.Context(), id)
			if err != nil {
				return err
			}
			return app.Print(r, func(w io.Writer) { printRules(w, []librenms.AlertRule{r}) })
		},
	}
	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an alert rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "rule ID")
			if err != nil {
				return err
			}
			return apply(audit.OpAlertRuleDelete, args[0], "deleted alert rule "+args[0], func(c *librenms.Client) error {
				return c.DeleteAlertRule(app.Context(), id)
			})
		},
	}
	cmd.AddCommand(list, get, del)
	app.AddWriteFlags(cmd)
	return cmd
}

func printRules(w io.Writer, rules []librenms.AlertRule) {
	t := cli.NewTableTo(w, "ID", "NAME", "SEVERITY", "ENABLED")
	for _, r := range rules {
		t.Row(strconv.Itoa(r.ID), r.Name, r.Severity, cli.Status(!bool(r.Disabled)))
	}
	t.Flush()
}
