package cli

import (
	"strings"
	"testing"
)

func TestDotPad(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{"normal case", "login", 12, "login " + strings.Repeat(".", 6)},
		{"name equals width minus one", "abcde", 6, "abcde"},
		{"name longer than width", "very-long-name", 5, "very-long-name"},
		{"empty string", "", 4, " ..."},
		{"zero width", "x", 0, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DotPad(tt.input, tt.width); got != tt.expected {
				t.Errorf("DotPad(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.expected)
			}
		})
	}
}

func TestColorFunctions(t *testing.T) {
	defer SetColor(colorEnabled)
	SetColor(true)

	tests := []struct {
		name   string
		fn     func(string) string
		prefix string
	}{
		{"Green", Green, "\033[32m"},
		{"Yellow", Yellow, "\033[33m"},
		{"Red", Red, "\033[31m"},
		{"Bold", Bold, "\033[1m"},
		{"Dim", Dim, "\033[2m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn("hello")
			if !strings.HasPrefix(got, tt.prefix) || !strings.HasSuffix(got, "\033[0m") {
				t.Errorf("%s(%q) = %q", tt.name, "hello", got)
			}
		})
	}
}

func TestColorDisabled(t *testing.T) {
	defer SetColor(colorEnabled)
	SetColor(false)

	if got := Green("GOOD"); got != "GOOD" {
		t.Errorf("Green() with colour disabled = %q", got)
	}
	if got := Status(false); got != "FAILED" {
		t.Errorf("Status(false) = %q", got)
	}
	if got := Status(true); got != "GOOD" {
		t.Errorf("Status(true) = %q", got)
	}
}
