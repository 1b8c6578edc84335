package tool

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/cli"
	"github.com/uoft-netops/uoft-tools/pkg/settings"
	"github.com/uoft-netops/uoft-tools/pkg/version"
)

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.Out, version.String(a.Name))
		},
	}
}

func (a *App) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and save settings",
		Long: fmt.Sprintf(`Inspect and save %[1]s settings.

Settings are merged from, lowest priority first: field defaults, shared.* and
%[1]s.* config files in the site and user config directories, the pass entries
shared/uoft-%[1]s and uoft-%[1]s, UOFT_%[2]s_* environment variables and
command-line flags. Values of the form pass:NAME or bw:NAME are looked up in
the password store or Bitwarden.

Examples:
  %[1]s settings show
  %[1]s settings files
  %[1]s settings save --to ~/.config/uoft-tools/%[1]s.toml key=value`, a.Name, strings.ToUpper(a.Name)),
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective settings (secrets masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := settings.Describe(a.Settings)
			if err != nil {
				return err
			}
			values := make(map[string]string, len(entries))
			for _, e := range entries {
				values[e.Key] = e.Value
			}
			return a.Print(values, func(w io.Writer) {
				t := cli.NewTableTo(w, "SETTING", "VALUE", "DESCRIPTION")
				for _, e := range entries {
					value := e.Value
					if value == "" {
						value = cli.Dim("(not set)")
					}
					t.Row(e.Key, value, e.Label())
				}
				t.Flush()
			})
		},
	}

	files := &cobra.Command{
		Use:         "files",
		Short:       "List candidate config files, highest priority last",
		Annotations: map[string]string{settingsAnnotation: loadNone},
		RunE: func(cmd *cobra.Command, args []string) error {
			var found []settings.ConfigFile
			for _, f := range a.Loader.Files() {
				if f.State != settings.StateUnusable {
					found = append(found, f)
				}
			}
			return a.Print(found, func(w io.Writer) {
				t := cli.NewTableTo(w, "PATH", "FORMAT", "STATE")
				for _, f := range found {
					state := f.State.String()
					if f.Readable() {
						state = cli.Green(state)
					}
					t.Row(f.Path, string(f.Format), state)
				}
				t.Flush()
			})
		},
	}

	var target string
	save := &cobra.Command{
		Use:         "save KEY=VALUE...",
		Short:       "Save settings to a config file or pass entry",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{settingsAnnotation: loadNone},
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(a.Settings, args)
			if err != nil {
				return err
			}
			if target == "" {
				targets := a.Loader.SaveTargets()
				if len(targets) == 0 {
					return fmt.Errorf("no writable config file or password store found; use --to")
				}
				target = targets[len(targets)-1]
			}
			if err := a.Loader.Save(a.Context(), target, values); err != nil {
				return fmt.Errorf("saving settings: %w", err)
			}
			fmt.Fprintf(a.Out, "Saved %s to %s\n", strings.Join(sortedKeys(values), ", "), target)
			return nil
		},
	}
	save.Flags().StringVar(&target, "to", "", "Config file path or pass:ENTRY (default: last saveable target)")

	cmd.AddCommand(show, files, save)
	return cmd
}

// parseAssignments turns KEY=VALUE arguments into values for known keys.
func parseAssignments(target any, args []string) (map[string]any, error) {
	fields, err := settings.Fields(target)
	if err != nil {
		return nil, err
	}
	known := make(map[string]settings.Field, len(fields))
	for _, f := range fields {
		known[f.Key] = f
	}
	values := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected KEY=VALUE, got %q", arg)
		}
		if _, ok := known[key]; !ok {
			return nil, fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(sortedKeys(known), ", "))
		}
		values[key] = value
	}
	return values, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (a *App) auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "audit",
		Short:       "View the audit log",
		Annotations: map[string]string{settingsAnnotation: loadAudit},
		Long: fmt.Sprintf(`View the audit log of changes made to remote systems.

Every mutating API call is recorded with its timestamp, user, host,
operation, target and outcome. Previews (dry runs) are recorded too.

Examples:
  %[1]s audit list --last 24h
  %[1]s audit list --user alice --failures
  %[1]s audit list --all-apps -o json`, a.Name),
	}

	var (
		filter   audit.Filter
		last     string
		allApps  bool
		failures bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !allApps {
				filter.App = a.Name
			}
			filter.FailureOnly = failures
			if last != "" {
				d, err := ParseDuration(last)
				if err != nil {
					return err
				}
				filter.StartTime = time.Now().Add(-d)
			}
			events, err := audit.Query(filter)
			if err != nil {
				return fmt.Errorf("querying audit log: %w", err)
			}
			return a.Print(events, func(w io.Writer) {
				if len(events) == 0 {
					fmt.Fprintln(w, "No audit events found")
					return
				}
				t := cli.NewTableTo(w, "TIMESTAMP", "USER", "APP", "HOST", "OPERATION", "TARGET", "STATUS")
				for _, e := range events {
					status := cli.Green("ok")
					switch {
					case e.DryRun:
						status = cli.Yellow("dry-run")
					case !e.Success:
						status = cli.Red("failed")
					}
					t.Row(e.Timestamp.Format("2006-01-02 15:04:05"), e.User, e.App, e.Host, e.Operation, e.Target, status)
				}
				t.Flush()
			})
		},
	}
	list.Flags().StringVar(&filter.User, "user", "", "Filter by user")
	list.Flags().StringVar(&filter.Host, "host", "", "Filter by host")
	list.Flags().StringVar(&filter.Operation, "operation", "", "Filter by operation, e.g. cpsec.add")
	list.Flags().StringVar(&filter.Target, "target", "", "Filter by target, e.g. a MAC address")
	list.Flags().StringVar(&last, "last", "", "Show events from the last duration (e.g. 24h, 7d)")
	list.Flags().IntVar(&filter.Limit, "limit", 100, "Maximum events to show")
	list.Flags().BoolVar(&failures, "failures", false, "Show only failed operations")
	list.Flags().BoolVar(&allApps, "all-apps", false, "Include events from every tool")

	cmd.AddCommand(list)
	return cmd
}

// ParseDuration extends time.ParseDuration with a "d" (day) unit.
func ParseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %s", s)
	}
	return d, nil
}
