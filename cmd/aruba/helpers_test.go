package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/uoft-netops/uoft-tools/internal/testutil"
	"github.com/uoft-netops/uoft-tools/pkg/aruba"
	"github.com/uoft-netops/uoft-tools/pkg/aruba/provision"
	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/cli"
	"github.com/uoft-netops/uoft-tools/pkg/settings"
)

func TestFailureRow(t *testing.T) {
	tests := []struct {
		name string
		r    provision.Result
		want string
	}{
		{
			name: "validated AP",
			r: provision.Result{
				Input: provision.Input{MAC: "00:0A:0B:0C:0D:0E", Group: "grp", Name: "ap1"},
				AP:    provision.AP{MAC: "00:0a:0b:0c:0d:0e", Group: "grp", Name: "ap1"},
				Err:   errors.New("already provisioned"),
			},
			want: "00:0a:0b:0c:0d:0e,grp,ap1,already provisioned",
		},
		{
			name: "invalid input",
			r: provision.Result{
				Input: provision.Input{MAC: "nope", Group: "grp", Name: "ap1"},
				Err:   errors.New("invalid MAC address"),
			},
			want: "nope,grp,ap1,invalid MAC address",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failureRow(tt.r); got != tt.want {
				t.Errorf("failureRow() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintFailures(t *testing.T) {
	var out bytes.Buffer
	old := app.Out
	app.Out = &out
	t.Cleanup(func() { app.Out = old })

	printFailures("provision", []provision.Result{{Outcome: provision.Provisioned}})
	if out.Len() != 0 {
		t.Fatalf("no failures should print nothing, got %q", out.String())
	}

	printFailures("provision", []provision.Result{
		{Input: provision.Input{MAC: "x", Group: "g", Name: "n"}, Err: errors.New("bad")},
	})
	want := "The following APs failed to provision:\nMAC_ADDRESS,AP_GROUP,AP_NAME,REASON\nx,g,n,bad\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestPrintRows(t *testing.T) {
	cli.SetColor(false)
	var out bytes.Buffer
	printRows(&out, []aruba.Row{
		{"Name": "ap1", "IP": "10.0.0.1"},
		{"Name": "ap2", "Group": "lab"},
	})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), out.String())
	}
	if got := strings.Join(strings.Fields(lines[0]), " "); got != "Group IP Name" {
		t.Errorf("header = %q", got)
	}
	if got := strings.Join(strings.Fields(lines[2]), " "); got != "10.0.0.1 ap1" {
		t.Errorf("first row = %q", got)
	}
	if got := strings.Join(strings.Fields(lines[3]), " "); got != "lab ap2" {
		t.Errorf("second row = %q", got)
	}
}

func TestBlacklistWriteFlags(t *testing.T) {
	cmd := stmBlacklistCmd()
	for _, tt := range []struct {
		sub  string
		want bool
	}{
		{"get", false},
		{"add", true},
		{"remove", true},
		{"purge", true},
	} {
		sub, _, err := cmd.Find([]string{tt.sub})
		if err != nil {
			t.Fatalf("Find(%s) error = %v", tt.sub, err)
		}
		has := sub.Flags().Lookup("execute") != nil || sub.InheritedFlags().Lookup("execute") != nil
		if has != tt.want {
			t.Errorf("%s accepts --execute = %v, want %v", tt.sub, has, tt.want)
		}
	}
}

func TestBlacklistRemoveSTMDryRun(t *testing.T) {
	cli.SetColor(false)
	fake := testutil.NewFakeAruba(t)
	oldCfg, oldOut, oldAudit := *cfg, app.Out, app.Audit
	t.Cleanup(func() { *cfg, app.Out, app.Audit, app.Execute = oldCfg, oldOut, oldAudit, false })

	*cfg = aruba.Settings{
		SvcAccount:     fake.Username,
		Password:       settings.Secret(fake.Password),
		MMVRRPHostname: fake.URL,
		MDHostnames:    []string{fake.URL},
	}
	var out bytes.Buffer
	mem := audit.NewMemoryLogger()
	app.Out, app.Audit, app.Execute = &out, mem, false

	cmd := blacklistRemoveCmd()
	cmd.SetArgs([]string{"00:11:22:33:44:55", "--stm"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("remove error = %v", err)
	}

	got := out.String()
	if n := strings.Count(got, "DRY-RUN"); n != 1 {
		t.Fatalf("dry-run notice printed %d times:\n%s", n, got)
	}
	notice := strings.Index(got, "DRY-RUN")
	if last := strings.LastIndex(got, "Would have"); last > notice {
		t.Errorf("dry-run notice printed before the last preview:\n%s", got)
	}
	if !strings.Contains(got, "from the station manager") {
		t.Errorf("station manager removal not previewed:\n%s", got)
	}
	if len(fake.Objects()) != 0 {
		t.Errorf("dry run posted objects: %v", fake.Objects())
	}
	if n := len(mem.Events()); n != 2 {
		t.Errorf("recorded %d events, want 2", n)
	}
}
