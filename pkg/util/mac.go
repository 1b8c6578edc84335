package util

import (
	"fmt"
	"regexp"
	"strings"
)

// macPattern accepts six hex pairs, each optionally followed by ':', '-' or '.',
// so Cisco dotted (0011.2233.4455), IEEE (00-11-..), colon and bare forms all match.
var macPattern = regexp.MustCompile(`^(?:[0-9A-Fa-f]{2}[:\-.]?){5}[0-9A-Fa-f]{2}$`)

// NormalizeMAC returns mac in lowercase colon-separated form.
func NormalizeMAC(mac string) (string, error) {
	if !macPattern.MatchString(mac) {
		return "", fmt.Errorf("invalid MAC address %q", mac)
	}
	hex := strings.ToLower(strings.NewReplacer(":", "", "-", "", ".", "").Replace(mac))
	pairs := make([]string, 0, 6)
	for i := 0; i < len(hex); i += 2 {
		pairs = append(pairs, hex[i:i+2])
	}
	return strings.Join(pairs, ":"), nil
}

// IsValidMAC reports whether NormalizeMAC would accept mac.
func IsValidMAC(mac string) bool {
	return macPattern.MatchString(mac)
}
