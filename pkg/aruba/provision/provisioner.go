// Package provision registers access points in the CPSEC allowlist of a
// mobility master, one input row at a time, with a configurable policy for
// rows that fail.
package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/uoft-netops/uoft-tools/pkg/aruba"
	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/cli"
	"github.com/uoft-netops/uoft-tools/pkg/util"
)

var logger = util.WithField("component", "provision")

// maxForceAttempts bounds delete-and-retry under PolicyForce. An input can
// collide with two entries (one by name, one by MAC), so two deletes may be
// needed before the add succeeds.
const maxForceAttempts = 3

// GroupLister lists AP groups. A managed controller satisfies it.
type GroupLister interface {
	APGroups(ctx context.Context) ([]string, error)
}

// Allowlist reads and changes the CPSEC allowlist. The mobility master
// satisfies it.
type Allowlist interface {
	CPSECAllowlist(ctx context.Context) ([]aruba.AllowlistEntry, error)
	AddCPSECEntry(ctx context.Context, mac, group, name string) error
	ApproveCPSECEntry(ctx context.Context, mac string) error
	DeleteCPSECEntry(ctx context.Context, mac string) error
}

// Policy decides what happens to a row that fails validation.
type Policy string

const (
	// PolicySkip reports the failure and carries on with the next row.
	PolicySkip Policy = "skip"
	// PolicyStop ends the run at the first failure.
	PolicyStop Policy = "stop"
	// PolicyForce deletes conflicting allowlist entries and retries. Other
	// failures stop the run.
	PolicyForce Policy = "force"
)

// Policies lists the accepted policy names.
var Policies = []Policy{PolicySkip, PolicyStop, PolicyForce}

// ParsePolicy converts a flag value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	for _, p := range Policies {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown error policy %q (want skip, stop or force)", s)
}

// Outcome is what happened to one input row.
type Outcome int

const (
	Failed Outcome = iota
	Provisioned
	AlreadyProvisioned
	Deprovisioned
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Provisioned:
		return "provisioned"
	case AlreadyProvisioned:
		return "already provisioned"
	case Deprovisioned:
		return "deprovisioned"
	case Skipped:
		return "skipped"
	}
	return "failed"
}

// Result is the outcome of one input row. Err is set for Skipped and Failed.
type Result struct {
	Input   Input
	AP      AP
	Outcome Outcome
	Err     error
}

// Failures returns the results that carry an error.
func Failures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Provisioner applies inputs to the allowlist. It is not safe for concurrent use.
type Provisioner struct {
	Policy Policy
	// DryRun validates every row and prints what would change without
	// changing anything.
	DryRun bool
	Out    io.Writer
	// Audit receives dry-run events; real changes are recorded by the client.
	Audit audit.Logger

	state *state
}

// New returns a provisioner using groups to validate AP groups and allowlist
// to read and change the allowlist. The default policy is PolicySkip.
func New(groups GroupLister, allowlist Allowlist) *Provisioner {
	return &Provisioner{
		Policy: PolicySkip,
		Out:    os.Stdout,
		state:  &state{groups: groups, allowlist: allowlist},
	}
}

func (p *Provisioner) printf(format string, args ...any) {
	fmt.Fprintf(p.Out, format+"\n", args...)
}

// done prints a completed step, prefixed with "Would have " in dry-run mode.
func (p *Provisioner) done(format string, args ...any) {
	msg := fmt.Sprintf(format, args...) + "..." + cli.Status(true)
	if p.DryRun {
		msg = "Would have " + msg
	}
	p.printf("%s", msg)
}

func (p *Provisioner) host() string {
	if h, ok := p.state.allowlist.(interface{ Host() string }); ok {
		return h.Host()
	}
	return ""
}

// recordDryRun logs what a dry run would have changed.
func (p *Provisioner) recordDryRun(op, mac string, details map[string]string) {
	event := audit.NewEvent(aruba.AppName, p.host(), op).WithTarget(mac).WithDryRun(true).WithSuccess()
	for k, v := range details {
		event.WithDetail(k, v)
	}
	audit.Emit(p.Audit, event)
}

// ProvisionAP validates one input against the controller and adds it to the
// allowlist as a factory-approved entry. Conflicts are returned as
// *AlreadyExistsError regardless of policy.
func (p *Provisioner) ProvisionAP(ctx context.Context, in Input) (AP, error) {
	p.printf("Provisioning %s with MAC %s in group %s...", in.Name, in.MAC, in.Group)

	ap, err := NewAP(in.MAC, in.Group, in.Name)
	if err != nil {
		return ap, err
	}
	p.printf("Verifying input parameters...%s", cli.Status(true))

	if err := p.validateGroup(ctx, ap); err != nil {
		return ap, err
	}
	if err := p.validateName(ctx, ap); err != nil {
		return ap, err
	}
	if err := p.validateMAC(ctx, ap); err != nil {
		return ap, err
	}

	if err := p.add(ctx, ap); err != nil {
		return ap, err
	}
	return ap, nil
}

func (p *Provisioner) validateGroup(ctx context.Context, ap AP) error {
	ok, err := p.state.hasGroup(ctx, ap.Group)
	if err != nil {
		return err
	}
	if !ok {
		return &InvalidFieldError{Field: FieldGroup, AP: ap, Reason: fmt.Sprintf("AP_GROUP %s does not exist on controller.", ap.Group)}
	}
	p.printf("Verifying AP_GROUP %s exists on controller...%s", ap.Group, cli.Status(true))
	return nil
}

func (p *Provisioner) validateName(ctx context.Context, ap AP) error {
	existing, ok, err := p.state.byNameLookup(ctx, ap.Name)
	if err != nil {
		return err
	}
	if ok {
		conflict := ConflictNameMAC
		if existing.MAC == ap.MAC {
			conflict = ConflictNameGroup
			if existing.Group == ap.Group {
				conflict = ConflictNone
			}
		}
		return &AlreadyExistsError{AP: ap, Existing: existing, Conflict: conflict}
	}
	p.printf("Verifying AP_NAME %s is not in use...%s", ap.Name, cli.Status(true))
	return nil
}

func (p *Provisioner) validateMAC(ctx context.Context, ap AP) error {
	existing, ok, err := p.state.byMACLookup(ctx, ap.MAC)
	if err != nil {
		return err
	}
	if ok {
		conflict := ConflictMACName
		if existing.Name == ap.Name {
			conflict = ConflictMACGroup
			if existing.Group == ap.Group {
				conflict = ConflictNone
			}
		}
		return &AlreadyExistsError{AP: ap, Existing: existing, Conflict: conflict}
	}
	p.printf("Verifying MAC %s is not in use...%s", ap.MAC, cli.Status(true))
	return nil
}

func (p *Provisioner) add(ctx context.Context, ap AP) error {
	entry := aruba.AllowlistEntry{Name: ap.Name, Group: ap.Group, MAC: ap.MAC}
	if p.DryRun {
		p.recordDryRun(audit.OpCPSECAdd, ap.MAC, map[string]string{"ap_group": ap.Group, "ap_name": ap.Name})
		p.recordDryRun(audit.OpCPSECApprove, ap.MAC, nil)
		p.state.remember(entry)
	} else {
		err := p.state.allowlist.AddCPSECEntry(ctx, ap.MAC, ap.Group, ap.Name)
		p.state.invalidate()
		if err != nil {
			return err
		}
	}
	p.done("Added new AP_NAME %s / %s to allowlist", ap.Name, ap.MAC)

	if !p.DryRun {
		if err := p.state.allowlist.ApproveCPSECEntry(ctx, ap.MAC); err != nil {
			return err
		}
	}
	p.done("Modified CPSEC entry for %s / %s to factory_approved", ap.Name, ap.MAC)
	return nil
}

func (p *Provisioner) delete(ctx context.Context, entry aruba.AllowlistEntry) error {
	if p.DryRun {
		p.recordDryRun(audit.OpCPSECDelete, entry.MAC, nil)
		p.state.forget(entry)
	} else {
		err := p.state.allowlist.DeleteCPSECEntry(ctx, entry.MAC)
		p.state.invalidate()
		if err != nil {
			return err
		}
	}
	p.done("Deleted existing AP_NAME %s / %s from allowlist", entry.Name, entry.MAC)
	return nil
}

// provision runs ProvisionAP for one row, resolving conflicts under PolicyForce.
func (p *Provisioner) provision(ctx context.Context, in Input) Result {
	for attempt := 1; ; attempt++ {
		ap, err := p.ProvisionAP(ctx, in)
		res := Result{Input: in, AP: ap, Outcome: Provisioned}
		if err == nil {
			return res
		}

		var exists *AlreadyExistsError
		if errors.As(err, &exists) {
			if exists.Idempotent() {
				p.printf("AP_NAME %s already correctly provisioned. %s", ap.Name, cli.Green("SKIPPING"))
				res.Outcome = AlreadyProvisioned
				return res
			}
			if p.Policy == PolicyForce && attempt < maxForceAttempts {
				logger.Debugf("Forcing %s: %v", ap.Name, err)
				if err := p.delete(ctx, exists.Existing); err != nil {
					return Result{Input: in, AP: ap, Outcome: Failed, Err: err}
				}
				continue
			}
		}
		return Result{Input: in, AP: ap, Outcome: Failed, Err: err}
	}
}

// ProvisionAPs provisions every input in order. The results line up with the
// inputs, except that the run ends early, returning the failing row's result
// last along with its error, when the policy says stop or an API call fails.
func (p *Provisioner) ProvisionAPs(ctx context.Context, inputs []Input) ([]Result, error) {
	return p.each(ctx, inputs, p.provision)
}

// DeprovisionAP deletes the allowlist entry for the input's MAC.
func (p *Provisioner) DeprovisionAP(ctx context.Context, in Input) (AP, error) {
	mac, err := util.NormalizeMAC(in.MAC)
	ap := AP{Name: in.Name, Group: in.Group, MAC: mac}
	if err != nil {
		ap.MAC = in.MAC
		return ap, &InvalidFieldError{Field: FieldMAC, AP: ap, Reason: fmt.Sprintf("Invalid MAC Address %q", in.MAC)}
	}
	existing, ok, err := p.state.byMACLookup(ctx, mac)
	if err != nil {
		return ap, err
	}
	if !ok {
		return ap, &NotFoundError{AP: ap}
	}
	return ap, p.delete(ctx, existing)
}

// DeprovisionAPs deletes the allowlist entry of every input under the same
// policy as ProvisionAPs. Nothing can be forced, so PolicyForce stops.
func (p *Provisioner) DeprovisionAPs(ctx context.Context, inputs []Input) ([]Result, error) {
	return p.each(ctx, inputs, func(ctx context.Context, in Input) Result {
		ap, err := p.DeprovisionAP(ctx, in)
		if err != nil {
			return Result{Input: in, AP: ap, Outcome: Failed, Err: err}
		}
		return Result{Input: in, AP: ap, Outcome: Deprovisioned}
	})
}

func (p *Provisioner) each(ctx context.Context, inputs []Input, fn func(context.Context, Input) Result) ([]Result, error) {
	start := time.Now()
	results := make([]Result, 0, len(inputs))
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := fn(ctx, in)
		if res.Err != nil {
			if p.Policy != PolicySkip || !rowError(res.Err) {
				results = append(results, res)
				return results, fmt.Errorf("line %d: %w", in.Line, res.Err)
			}
			p.printf("%s %s %s %s", cli.Red("ERROR"), res.Err, cli.Red("SKIPPING"), res.AP)
			res.Outcome = Skipped
		}
		results = append(results, res)
	}
	logger.Debugf("Processed %d rows in %s", len(inputs), time.Since(start).Round(time.Millisecond))
	return results, nil
}
