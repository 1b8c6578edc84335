package settings

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/uoft-netops/uoft-tools/pkg/cli"
)

// ErrSkipped is returned by Prompter.Choose when the user declines to pick.
var ErrSkipped = errors.New("skipped")

// Prompter asks the user for missing settings.
type Prompter interface {
	// Interactive reports whether prompting is possible.
	Interactive() bool
	// Prompt reads a value for f.
	Prompt(f Field) (string, error)
	// Choose asks the user to pick one of choices. An empty answer returns ErrSkipped.
	Choose(label string, choices []string) (string, error)
}

// TerminalPrompter prompts on a terminal. Secret fields are read without echo.
type TerminalPrompter struct {
	in     *os.File
	out    io.Writer
	reader *bufio.Reader
}

// NewTerminalPrompter prompts on stdin, writing prompts to stderr.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{in: os.Stdin, out: os.Stderr, reader: bufio.NewReader(os.Stdin)}
}

func (p *TerminalPrompter) Interactive() bool {
	return term.IsTerminal(int(p.in.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func (p *TerminalPrompter) Prompt(f Field) (string, error) {
	if f.Description != "" {
		fmt.Fprintln(p.out, cli.Dim(f.Description))
	}
	label := cli.Bold(f.Label())
	if f.Kind == reflect.Slice {
		label += " (comma separated)"
	}
	for {
		fmt.Fprintf(p.out, "%s: ", label)
		var (
			value string
			err   error
		)
		if f.Secret {
			var b []byte
			b, err = term.ReadPassword(int(p.in.Fd()))
			fmt.Fprintln(p.out)
			value = string(b)
		} else {
			value, err = p.readLine()
		}
		if err != nil {
			return "", err
		}
		if value = strings.TrimSpace(value); value != "" {
			return value, nil
		}
		fmt.Fprintln(p.out, cli.Yellow("A value is required."))
	}
}

func (p *TerminalPrompter) Choose(label string, choices []string) (string, error) {
	fmt.Fprintln(p.out, cli.Bold(label))
	for i, c := range choices {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, c)
	}
	for {
		fmt.Fprintf(p.out, "Choice [1-%d, enter to skip]: ", len(choices))
		line, err := p.readLine()
		if errors.Is(err, io.EOF) {
			return "", ErrSkipped
		}
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return "", ErrSkipped
		}
		n, err := strconv.Atoi(line)
		if err == nil && n >= 1 && n <= len(choices) {
			return choices[n-1], nil
		}
		fmt.Fprintf(p.out, "%s is not a valid choice\n", line)
	}
}

func (p *TerminalPrompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
