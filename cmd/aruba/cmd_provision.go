package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/uoft-netops/uoft-tools/pkg/aruba/provision"
	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/cli"
	"github.com/uoft-netops/uoft-tools/pkg/tool"
	"github.com/uoft-netops/uoft-tools/pkg/util"
)

const inputHeader = "MAC_ADDRESS,AP_GROUP,AP_NAME"

func getAPGroupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-ap-groups",
		Short: "List the valid AP_GROUPs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := app.Context()
			c, logout, err := firstController(ctx)
			if err != nil {
				return err
			}
			defer logout()

			groups, err := c.APGroups(ctx)
			if err != nil {
				return err
			}
			return app.Print(groups, func(w io.Writer) {
				fmt.Fprintln(os.Stderr, "Below you will find a list of valid AP_GROUPs to use in your input:")
				for _, g := range groups {
					fmt.Fprintln(w, g)
				}
			})
		},
	}
}

func listAPsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list-aps",
		Short: "List the CPSEC allowlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := app.Context()
			c, logout, err := mobilityMaster(ctx)
			if err != nil {
				return err
			}
			defer logout()

			entries, err := c.CPSECAllowlist(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				app.Output = cli.FormatJSON
			}
			return app.Print(entries, func(w io.Writer) {
				t := cli.NewTableTo(w, "AP_NAME", "AP_GROUP", "MAC_ADDRESS", "STATE", "CERT_TYPE")
				for _, e := range entries {
					t.Row(e.Name, e.Group, e.MAC, e.State, e.CertType)
				}
				t.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "JSON output (same as -o json)")
	return cmd
}

func provisionCmd() *cobra.Command {
	var onError string
	cmd := &cobra.Command{
		Use:   "provision FILE|-",
		Short: "Provision a CSV list of MAC_ADDRESS,AP_GROUP,AP_NAME rows",
		Long: `Provision access points into the CPSEC allowlist and mark them
factory-approved so their registration does not expire.

Each row of FILE is MAC_ADDRESS,AP_GROUP,AP_NAME with no header. Comma,
semicolon and tab delimiters are accepted; extra columns are ignored. When
FILE is "-", rows are read from stdin. AP_GROUPs may contain spaces and need
no quoting.

--on-error decides what happens when a row is invalid or conflicts with an
existing allowlist entry:
  skip   report the row and continue (default)
  stop   stop at the first failing row
  force  delete the conflicting entry and provision the row anyway

A row that already matches the allowlist exactly is left alone.

Example:
  aruba provision my_aps.csv
  00:01:10:12:02:21,-CC Lab,test_ap_name_18
  00:01:02:12:02:21,-CC Lab,test_ap_name_19`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := provision.ParsePolicy(onError)
			if err != nil {
				return err
			}
			inputs, err := readInputs(args[0])
			if err != nil {
				return err
			}

			p, done, err := newProvisioner(policy)
			if err != nil {
				return err
			}
			defer done()

			results, runErr := p.ProvisionAPs(app.Context(), inputs)
			printFailures("provision", results)
			app.DryRunNotice()
			if runErr != nil {
				return runErr
			}
			if n := len(provision.Failures(results)); n > 0 {
				return fmt.Errorf("%d of %d APs failed to provision", n, len(inputs))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&onError, "on-error", string(provision.PolicySkip),
		"What to do with failing rows: "+strings.Join(policyNames(), ", "))
	app.AddWriteFlags(cmd)
	return cmd
}

func deprovisionCmd() *cobra.Command {
	var onError string
	cmd := &cobra.Command{
		Use:   "deprovision FILE|-",
		Short: "Remove a CSV list of APs from the CPSEC allowlist",
		Long: `Remove access points from the CPSEC allowlist by MAC address.

FILE has the same format as for provision; only MAC_ADDRESS is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := provision.ParsePolicy(onError)
			if err != nil {
				return err
			}
			inputs, err := readInputs(args[0])
			if err != nil {
				return err
			}

			p, done, err := newProvisioner(policy)
			if err != nil {
				return err
			}
			defer done()

			results, runErr := p.DeprovisionAPs(app.Context(), inputs)
			printFailures("deprovision", results)
			app.DryRunNotice()
			if runErr != nil {
				return runErr
			}
			if n := len(provision.Failures(results)); n > 0 {
				return fmt.Errorf("%d of %d APs failed to deprovision", n, len(inputs))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&onError, "on-error", string(provision.PolicySkip), "What to do with failing rows: skip or stop")
	app.AddWriteFlags(cmd)
	return cmd
}

func revokeCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "revoke MAC",
		Short: "Revoke the certificate of a CPSEC allowlist entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mac, err := util.NormalizeMAC(args[0])
			if err != nil {
				return err
			}
			ctx := app.Context()
			c, logout, err := mobilityMaster(ctx)
			if err != nil {
				return err
			}
			defer logout()

			if !app.Execute {
				previewed(c.Host(), audit.OpCPSECRevoke, mac, "revoked "+mac)
				app.DryRunNotice()
				return nil
			}
			if err := c.RevokeCPSECEntry(ctx, mac, reason); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Revoked %s...%s\n", mac, cli.Status(true))
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "revoked by uoft-tools", "Revoke text stored with the entry")
	app.AddWriteFlags(cmd)
	return cmd
}

func readInputs(path string) ([]provision.Input, error) {
	tool.StdinHint(path, "AP details, one per line ("+inputHeader+")")
	inputs, err := provision.OpenInputs(path, os.Stdin)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no rows in %s", util.ErrValidationFailed, path)
	}
	return inputs, nil
}

// newProvisioner logs in to the first controller (AP groups) and the
// mobility master (allowlist).
func newProvisioner(policy provision.Policy) (*provision.Provisioner, func(), error) {
	ctx := app.Context()
	md, mdLogout, err := firstController(ctx)
	if err != nil {
		return nil, nil, err
	}
	mm, mmLogout, err := mobilityMaster(ctx)
	if err != nil {
		mdLogout()
		return nil, nil, err
	}
	p := provision.New(md, mm)
	p.Policy = policy
	p.DryRun = !app.Execute
	p.Out = app.Out
	p.Audit = app.Audit
	return p, func() { mmLogout(); mdLogout() }, nil
}

func printFailures(verb string, results []provision.Result) {
	failed := provision.Failures(results)
	if len(failed) == 0 {
		return
	}
	fmt.Fprintf(app.Out, "The following APs failed to %s:\n%s,REASON\n", verb, inputHeader)
	for _, r := range failed {
		fmt.Fprintln(app.Out, failureRow(r))
	}
}

// failureRow is the CSV report line of a failed result: the validated AP
// when there is one, else the raw input.
func failureRow(r provision.Result) string {
	mac, group, name := r.AP.MAC, r.AP.Group, r.AP.Name
	if mac == "" && group == "" && name == "" {
		mac, group, name = r.Input.MAC, r.Input.Group, r.Input.Name
	}
	return fmt.Sprintf("%s,%s,%s,%s", mac, group, name, r.Err)
}

func policyNames() []string {
	names := make([]string, len(provision.Policies))
	for i, p := range provision.Policies {
		names[i] = string(p)
	}
	return names
}
