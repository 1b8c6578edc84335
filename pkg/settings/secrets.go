package settings

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// SecretResolver looks up a single named secret.
type SecretResolver interface {
	Lookup(ctx context.Context, name string) (string, error)
}

// SecretStore is a secret backend that also holds whole settings documents
// (TOML) and can persist them.
type SecretStore interface {
	SecretResolver
	Name() string
	Store(ctx context.Context, name, data string) error
}

// Runner runs an external command with optional stdin and returns its stdout.
type Runner func(ctx context.Context, stdin string, name string, args ...string) (string, error)

// CommandError is returned when an external command exits non-zero.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// RunCommand is the default Runner.
func RunCommand(ctx context.Context, stdin string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	if err := cmd.Run(); err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return "", &CommandError{
				Command:  name + " " + strings.Join(args, " "),
				ExitCode: ee.ExitCode(),
				Stderr:   stderr.String(),
			}
		}
		return "", err
	}
	return strings.TrimRight(stdout.String(), "\r\n"), nil
}

// PassStore reads and writes entries in the `pass` password store.
type PassStore struct {
	Command  string
	Run      Runner
	LookPath func(string) (string, error)
}

// NewPassStore returns a PassStore using $PASS_CMD or `pass`.
func NewPassStore() *PassStore {
	cmd := os.Getenv("PASS_CMD")
	if cmd == "" {
		cmd = "pass"
	}
	return &PassStore{Command: cmd, Run: RunCommand, LookPath: exec.LookPath}
}

func (p *PassStore) Name() string { return "pass" }

// Installed reports whether the pass command is on PATH.
func (p *PassStore) Installed() bool {
	_, err := p.LookPath(p.Command)
	return err == nil
}

// Lookup returns the contents of a pass entry. A missing entry, or pass not
// being installed, yields an empty string. A GPG decryption failure is an error.
func (p *PassStore) Lookup(ctx context.Context, name string) (string, error) {
	if !p.Installed() {
		logger.Debugf("%s is not installed, skipping password-store lookup of %s", p.Command, name)
		return "", nil
	}
	out, err := p.Run(ctx, "", p.Command, "show", name)
	if err != nil {
		var ce *CommandError
		if errors.As(err, &ce) {
			if strings.Contains(ce.Stderr, "gpg: decryption failed:") {
				return "", fmt.Errorf("failed to decrypt password-store entry %s, check that your GPG key is available: %w", name, err)
			}
			logger.Debugf("password-store entry %s does not exist", name)
			return "", nil
		}
		return "", err
	}
	return out, nil
}

// Store writes data to a pass entry, replacing any existing content.
func (p *PassStore) Store(ctx context.Context, name, data string) error {
	if !p.Installed() {
		return fmt.Errorf("cannot store %s: %s is not installed", name, p.Command)
	}
	_, err := p.Run(ctx, data, p.Command, "insert", "--multiline", "--force", name)
	return err
}

// Bitwarden resolves secrets through the Bitwarden CLI.
type Bitwarden struct {
	Command      string
	PasswordFile string
	Run          Runner
}

// NewBitwarden returns a Bitwarden resolver using `bw` and ~/.bw_pass.
func NewBitwarden() *Bitwarden {
	b := &Bitwarden{Command: "bw", Run: RunCommand}
	if home, err := os.UserHomeDir(); err == nil {
		b.PasswordFile = filepath.Join(home, ".bw_pass")
	}
	return b
}

// unlock obtains a session token unless BW_SESSION is already set.
func (b *Bitwarden) unlock(ctx context.Context) error {
	if os.Getenv("BW_SESSION") != "" {
		return nil
	}
	args := []string{"unlock", "--raw"}
	if b.PasswordFile != "" {
		if info, err := os.Stat(b.PasswordFile); err == nil {
			if info.Mode().Perm() != 0o600 {
				logger.Warnf("Bitwarden password file %s should have permissions 600, has %o", b.PasswordFile, info.Mode().Perm())
			}
			args = append(args, "--passwordfile", b.PasswordFile)
		} else {
			logger.Infof("Bitwarden password file %s not found, bw will prompt for the master password", b.PasswordFile)
		}
	}
	session, err := b.Run(ctx, "", b.Command, args...)
	if err != nil {
		return fmt.Errorf("failed to unlock bitwarden vault: %w", err)
	}
	return os.Setenv("BW_SESSION", session)
}

// Lookup returns the password of the named vault item.
func (b *Bitwarden) Lookup(ctx context.Context, name string) (string, error) {
	if err := b.unlock(ctx); err != nil {
		return "", err
	}
	out, err := b.Run(ctx, "", b.Command, "get", "password", name)
	if err != nil {
		return "", fmt.Errorf("bitwarden lookup of %s: %w", name, err)
	}
	return out, nil
}

// ParseRef splits a `ref[<prefix>:<name>]` value. ok is false for values
// that are not references at all.
func ParseRef(value string) (prefix, name string, ok bool, err error) {
	if !strings.HasPrefix(value, "ref[") || !strings.HasSuffix(value, "]") {
		return "", "", false, nil
	}
	ref := value[len("ref[") : len(value)-1]
	if ref == "" {
		return "", "", true, errors.New("reference field cannot be empty")
	}
	prefix, name, found := strings.Cut(ref, ":")
	if !found || prefix == "" || name == "" {
		return "", "", true, fmt.Errorf("invalid reference %q: expected ref[<prefix>:<name>]", value)
	}
	return prefix, name, true, nil
}
