package provision

import (
	"errors"
	"fmt"

	"github.com/uoft-netops/uoft-tools/pkg/aruba"
	"github.com/uoft-netops/uoft-tools/pkg/util"
)

// Fields named by InvalidFieldError.
const (
	FieldMAC   = "mac_address"
	FieldGroup = "ap_group"
	FieldName  = "ap_name"
)

// InvalidFieldError is a local validation failure of one input field.
type InvalidFieldError struct {
	Field  string
	AP     AP
	Reason string
}

func (e *InvalidFieldError) Error() string { return e.Reason }

func (e *InvalidFieldError) Unwrap() error { return util.ErrValidationFailed }

// Conflict classifies how an input collides with an existing allowlist entry.
type Conflict int

const (
	// ConflictNone means the entry already matches the input exactly.
	ConflictNone Conflict = iota
	// ConflictNameGroup: the name is registered with this MAC in another group.
	ConflictNameGroup
	// ConflictNameMAC: the name is registered with another MAC.
	ConflictNameMAC
	// ConflictMACGroup: the MAC is registered under this name in another group.
	ConflictMACGroup
	// ConflictMACName: the MAC is registered under another name.
	ConflictMACName
)

func (c Conflict) String() string {
	switch c {
	case ConflictNone:
		return "none"
	case ConflictNameGroup:
		return "name-group"
	case ConflictNameMAC:
		return "name-mac"
	case ConflictMACGroup:
		return "mac-group"
	case ConflictMACName:
		return "mac-name"
	}
	return fmt.Sprintf("Conflict(%d)", int(c))
}

// AlreadyExistsError reports an allowlist entry that collides with the input.
type AlreadyExistsError struct {
	AP       AP
	Existing aruba.AllowlistEntry
	Conflict Conflict
}

func (e *AlreadyExistsError) Error() string {
	switch e.Conflict {
	case ConflictNone:
		return fmt.Sprintf("AP_NAME %s is already correctly provisioned.", e.AP.Name)
	case ConflictNameGroup:
		return fmt.Sprintf("AP_NAME %s already exists on controller in group %s.", e.AP.Name, e.Existing.Group)
	case ConflictNameMAC:
		return fmt.Sprintf("AP_NAME %s already exists on controller with MAC %s.", e.AP.Name, e.Existing.MAC)
	case ConflictMACGroup:
		return fmt.Sprintf("MAC %s already exists on controller in group %s.", e.AP.MAC, e.Existing.Group)
	default:
		return fmt.Sprintf("MAC %s already exists on controller with AP_NAME %s.", e.AP.MAC, e.Existing.Name)
	}
}

func (e *AlreadyExistsError) Unwrap() error { return util.ErrAlreadyExists }

// Idempotent reports whether the existing entry already matches the input.
func (e *AlreadyExistsError) Idempotent() bool { return e.Conflict == ConflictNone }

// NotFoundError reports a MAC missing from the allowlist.
type NotFoundError struct {
	AP AP
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("MAC %s is not in the allowlist.", e.AP.MAC)
}

func (e *NotFoundError) Unwrap() error { return util.ErrNotFound }

// rowError reports whether err is a per-row failure governed by the error
// policy. Anything else, such as an API failure, aborts the run.
func rowError(err error) bool {
	var (
		invalid  *InvalidFieldError
		exists   *AlreadyExistsError
		notFound *NotFoundError
	)
	return errors.As(err, &invalid) || errors.As(err, &exists) || errors.As(err, &notFound)
}
