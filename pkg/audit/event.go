// Package audit records every change the uoft-tools make to remote systems.
package audit

import (
	"os"
	"os/user"
	"time"

	"github.com/google/uuid"
)

// Event represents one mutating call against a remote API
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	User      string            `json:"user"`
	App       string            `json:"app"`
	Host      string            `json:"host"`
	Operation string            `json:"operation"`
	Target    string            `json:"target,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	DryRun    bool              `json:"dry_run"`
	Duration  time.Duration     `json:"duration"`
}

// Operations recorded by the tools.
const (
	OpCPSECAdd           = "cpsec.add"
	OpCPSECApprove       = "cpsec.approve"
	OpCPSECDelete        = "cpsec.delete"
	OpCPSECRevoke        = "cpsec.revoke"
	OpBlacklistAdd       = "blacklist.add"
	OpBlacklistRemove    = "blacklist.remove"
	OpBlacklistPurge     = "blacklist.purge"
	OpSTMBlacklistRemove = "stm-blacklist.remove"
	OpWriteMemory        = "controller.write-memory"
	OpDeviceAdd          = "device.add"
	OpDeviceDelete       = "device.delete"
	OpDeviceRename       = "device.rename"
	OpDeviceMaintenance  = "device.maintenance"
	OpDeviceUpdate       = "device.update"
	OpDeviceDiscover     = "device.discover"
	OpAlertAck           = "alert.ack"
	OpAlertUnmute        = "alert.unmute"
	OpAlertRuleDelete    = "alert-rule.delete"
	OpLocationAdd        = "location.add"
	OpLocationEdit       = "location.edit"
	OpLocationDelete     = "location.delete"
	OpAssetCreate        = "asset.create"
	OpAssetCheckout      = "asset.checkout"
)

// Filter defines criteria for querying audit events
type Filter struct {
	App         string
	Host        string
	User        string
	Operation   string
	Target      string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// Match reports whether event satisfies the filter criteria (paging aside).
func (f Filter) Match(event *Event) bool {
	if f.App != "" && event.App != f.App {
		return false
	}
	if f.Host != "" && event.Host != f.Host {
		return false
	}
	if f.User != "" && event.User != f.User {
		return false
	}
	if f.Operation != "" && event.Operation != f.Operation {
		return false
	}
	if f.Target != "" && event.Target != f.Target {
		return false
	}
	if !f.StartTime.IsZero() && event.Timestamp.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && event.Timestamp.After(f.EndTime) {
		return false
	}
	if f.SuccessOnly && !event.Success {
		return false
	}
	if f.FailureOnly && event.Success {
		return false
	}
	return true
}

// page applies Offset and Limit.
func (f Filter) page(events []*Event) []*Event {
	if f.Offset > 0 {
		if f.Offset >= len(events) {
			return nil
		}
		events = events[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(events) {
		events = events[:f.Limit]
	}
	return events
}

// NewEvent creates a new audit event for the current OS user
func NewEvent(app, host, operation string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		User:      CurrentUser(),
		App:       app,
		Host:      host,
		Operation: operation,
	}
}

// CurrentUser returns the login name recorded on events.
func CurrentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

// WithUser overrides the recorded user
func (e *Event) WithUser(user string) *Event {
	e.User = user
	return e
}

// WithTarget sets the object acted on (MAC address, asset tag, device ID)
func (e *Event) WithTarget(target string) *Event {
	e.Target = target
	return e
}

// WithDetail adds a key/value detail
func (e *Event) WithDetail(key, value string) *Event {
	if e.Details == nil {
		e.Details = map[string]string{}
	}
	e.Details[key] = value
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithDryRun marks a change that was only previewed
func (e *Event) WithDryRun(dryRun bool) *Event {
	e.DryRun = dryRun
	return e
}

// Finish records the outcome of a call that started at start.
func (e *Event) Finish(start time.Time, err error) *Event {
	e.Duration = time.Since(start)
	if err != nil {
		return e.WithError(err)
	}
	return e.WithSuccess()
}
