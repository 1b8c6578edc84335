package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/uoft-netops/uoft-tools/pkg/aruba"
	"github.com/uoft-netops/uoft-tools/pkg/cli"
)

// showTables maps show subcommands to the client call that reads them.
var showTables = map[string]func(*aruba.Client, context.Context) ([]aruba.Row, error){
	"user-table":    (*aruba.Client).UserTable,
	"ap-database":   (*aruba.Client).APDatabase,
	"ap-active":     (*aruba.Client).APActive,
	"radio-summary": (*aruba.Client).APRadioSummary,
}

func showCmd() *cobra.Command {
	var all bool
	names := make([]string, 0, len(showTables))
	for name := range showTables {
		names = append(names, name)
	}
	sort.Strings(names)

	cmd := &cobra.Command{
		Use:       "show TABLE",
		Short:     "Print a controller table (" + strings.Join(names, ", ") + ")",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			read, ok := showTables[args[0]]
			if !ok {
				return fmt.Errorf("unknown table %q (valid: %s)", args[0], strings.Join(names, ", "))
			}
			ctx := app.Context()

			var (
				clients []*aruba.Client
				logout  func()
				err     error
			)
			if all {
				clients, logout, err = controllers(ctx)
			} else {
				var c *aruba.Client
				c, logout, err = mobilityMaster(ctx)
				clients = []*aruba.Client{c}
			}
			if err != nil {
				return err
			}
			defer logout()

			var rows []aruba.Row
			for _, c := range clients {
				r, err := read(c, ctx)
				if err != nil {
					return err
				}
				for _, row := range r {
					row["controller"] = c.Host()
				}
				rows = append(rows, r...)
			}
			return app.Print(rows, func(w io.Writer) { printRows(w, rows) })
		},
	}
	cmd.Flags().BoolVar(&all, "controllers", false, "Read every managed controller instead of the mobility master")
	return cmd
}

// printRows prints rows as a table, with columns in sorted order.
func printRows(w io.Writer, rows []aruba.Row) {
	seen := map[string]bool{}
	var cols []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	t := cli.NewTableTo(w, cols...)
	for _, r := range rows {
		values := make([]string, len(cols))
		for i, c := range cols {
			if v, ok := r[c]; ok && v != nil {
				values[i] = fmt.Sprint(v)
			}
		}
		t.Row(values...)
	}
	t.Flush()
}
