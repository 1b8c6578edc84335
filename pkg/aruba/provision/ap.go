package provision

import (
	"fmt"

	"github.com/uoft-netops/uoft-tools/pkg/util"
)

// MaxFieldLen is the longest AP name or group the controller accepts.
const MaxFieldLen = 75

// AP is a validated access point record.
type AP struct {
	Name  string `json:"name" yaml:"name"`
	Group string `json:"group" yaml:"group"`
	MAC   string `json:"mac_address" yaml:"mac_address"`
}

func (a AP) String() string {
	return fmt.Sprintf("AP(name=%s, group=%s, mac_address=%s)", a.Name, a.Group, a.MAC)
}

// NewAP validates the fields and returns an AP with its MAC in lowercase
// colon-separated form.
func NewAP(mac, group, name string) (AP, error) {
	raw := AP{Name: name, Group: group, MAC: mac}

	normalized, err := util.NormalizeMAC(mac)
	if err != nil {
		return raw, &InvalidFieldError{Field: FieldMAC, AP: raw, Reason: fmt.Sprintf("Invalid MAC Address %q", mac)}
	}
	for _, f := range []struct{ field, value string }{{FieldName, name}, {FieldGroup, group}} {
		switch {
		case f.value == "":
			return raw, &InvalidFieldError{Field: f.field, AP: raw, Reason: fmt.Sprintf("%s is required", f.field)}
		case len(f.value) > MaxFieldLen:
			return raw, &InvalidFieldError{Field: f.field, AP: raw,
				Reason: fmt.Sprintf("%s %q is too long, must be %d characters or less", f.field, f.value, MaxFieldLen)}
		}
	}
	return AP{Name: name, Group: group, MAC: normalized}, nil
}
