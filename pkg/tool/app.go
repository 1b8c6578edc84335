// Package tool is the cobra scaffolding shared by the command line tools:
// global flags, settings loading, the audit trail and the settings, audit
// and version subcommands.
package tool

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/cli"
	"github.com/uoft-netops/uoft-tools/pkg/settings"
	"github.com/uoft-netops/uoft-tools/pkg/util"
)

// settingsAnnotation on a command (or an ancestor) controls what setup loads
// before it runs.
const settingsAnnotation = "uoft-tools/settings"

const (
	loadNone  = "none"
	loadAudit = "audit"
)

// App is the state shared by every command of one tool: global flags, the
// loaded settings and the audit logger.
type App struct {
	Name     string
	Settings any // pointer to the tool's settings struct
	Execute  bool
	Output   string
	Loader   *settings.Loader
	Audit    audit.Logger
	Out      io.Writer

	debug, trace, noColor bool
	loaderOpts            []settings.Option
	ctx                   context.Context
	cancel                context.CancelFunc
}

type auditConfigured interface {
	AuditSettings() audit.Settings
}

// NewApp returns the App for tool name. target is a pointer to its settings
// struct; opts are passed to the settings loader.
func NewApp(name string, target any, opts ...settings.Option) *App {
	return &App{Name: name, Settings: target, Out: os.Stdout, loaderOpts: opts}
}

// Root builds the root command with the global flags and the settings,
// audit and version subcommands.
func (a *App) Root(short, long string) *cobra.Command {
	root := &cobra.Command{
		Use:               a.Name,
		Short:             short,
		Long:              long,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
		PersistentPreRunE: a.setup,
	}
	pf := root.PersistentFlags()
	pf.BoolVar(&a.debug, "debug", false, "Debug logging")
	pf.BoolVar(&a.trace, "trace", false, "Trace logging, including request and response bodies")
	pf.BoolVar(&a.noColor, "no-color", false, "Disable colour output")
	pf.StringVarP(&a.Output, "output", "o", "", "Output format: json or yaml (default: table)")
	cobra.CheckErr(settings.RegisterFlags(pf, a.Settings))

	root.AddGroup(
		&cobra.Group{ID: "main", Title: "Commands:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)
	for _, cmd := range []*cobra.Command{a.settingsCmd(), a.auditCmd(), a.versionCmd()} {
		cmd.GroupID = "meta"
		root.AddCommand(cmd)
	}
	return root
}

// AddCommands adds tool commands to root under the main group.
func AddCommands(root *cobra.Command, cmds ...*cobra.Command) {
	for _, cmd := range cmds {
		cmd.GroupID = "main"
		root.AddCommand(cmd)
	}
}

// AddWriteFlags registers -x/--execute. Parent commands get it as a
// persistent flag so every subcommand accepts it.
func (a *App) AddWriteFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if cmd.HasSubCommands() {
		flags = cmd.PersistentFlags()
	}
	flags.BoolVarP(&a.Execute, "execute", "x", false, "Execute changes (default is dry-run)")
}

// Context is cancelled on SIGINT or SIGTERM.
func (a *App) Context() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

// Run executes root and closes the App, whether or not the command failed.
func (a *App) Run(root *cobra.Command) error {
	defer a.Close()
	return root.Execute()
}

// Close flushes the audit log and releases the signal handler.
func (a *App) Close() {
	if a.Audit != nil {
		if err := a.Audit.Close(); err != nil {
			util.Warnf("Closing audit log: %v", err)
		}
		a.Audit = nil
	}
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *App) setup(cmd *cobra.Command, args []string) error {
	util.SetVerbosity(a.debug, a.trace)
	if a.noColor {
		cli.SetColor(false)
	}
	a.ctx, a.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	overrides, err := settings.FlagOverrides(cmd.Flags(), a.Settings)
	if err != nil {
		return err
	}
	opts := append([]settings.Option{settings.WithOverrides(overrides)}, a.loaderOpts...)
	a.Loader = settings.New(a.Name, opts...)

	switch loadMode(cmd) {
	case loadNone:
		return nil
	case loadAudit:
		var as audit.Settings
		if err := a.Loader.Load(a.ctx, &as); err != nil {
			return fmt.Errorf("loading %s settings: %w", a.Name, err)
		}
		a.openAudit(as)
		return nil
	}

	if err := a.Loader.Load(a.ctx, a.Settings); err != nil {
		return fmt.Errorf("loading %s settings: %w", a.Name, err)
	}
	if ac, ok := a.Settings.(auditConfigured); ok {
		a.openAudit(ac.AuditSettings())
	}
	return nil
}

func (a *App) openAudit(s audit.Settings) {
	logger, err := s.Open(a.ctx)
	if err != nil {
		util.Warnf("Could not initialize audit logging: %v", err)
		return
	}
	a.Audit = logger
	audit.SetDefaultLogger(logger)
}

func loadMode(cmd *cobra.Command) string {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version", "completion":
			return loadNone
		}
		if mode, ok := c.Annotations[settingsAnnotation]; ok {
			return mode
		}
	}
	return ""
}

// Print writes v in the --output format, or calls table when no format was
// requested.
func (a *App) Print(v any, table func(w io.Writer)) error {
	if a.Output == "" {
		table(a.Out)
		return nil
	}
	return cli.Print(a.Out, a.Output, v)
}

// DryRunNotice tells the user nothing was changed.
func (a *App) DryRunNotice() {
	if !a.Execute {
		fmt.Fprintln(a.Out, "\n"+cli.Yellow("DRY-RUN: No changes applied. Use -x to execute."))
	}
}

// StdinHint prints a reminder to stderr when input is about to be read from
// an interactive terminal.
func StdinHint(path, what string) {
	if path == "-" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintf(os.Stderr, "Reading %s from stdin. Finish with Ctrl-D.\n", what)
	}
}
