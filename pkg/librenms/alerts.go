package librenms

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
)

// Alert states as stored by LibreNMS.
const (
	AlertStateOK    = 0
	AlertStateAlert = 1
	AlertStateAck   = 2
)

// Alert is one alert instance.
type Alert struct {
	ID        int    `json:"id" yaml:"id"`
	DeviceID  int    `json:"device_id" yaml:"device_id"`
	RuleID    int    `json:"rule_id" yaml:"rule_id"`
	State     int    `json:"state" yaml:"state"`
	Alerted   int    `json:"alerted" yaml:"alerted"`
	Open      int    `json:"open" yaml:"open"`
	Note      string `json:"note,omitempty" yaml:"note,omitempty"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Info      string `json:"info,omitempty" yaml:"info,omitempty"`
	Hostname  string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Severity  string `json:"severity,omitempty" yaml:"severity,omitempty"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
}

// AlertFilter narrows Alerts. State is ok, alert or ack; Severity is ok,
// warning or critical. Sort (asc or desc, default desc) applies to Order.
type AlertFilter struct {
	State    string
	Severity string
	Rule     int
	Order    string
	Sort     string
}

func (f AlertFilter) values() url.Values {
	q := url.Values{}
	if f.State != "" {
		q.Set("state", f.State)
	}
	if f.Severity != "" {
		q.Set("severity", f.Severity)
	}
	if f.Rule != 0 {
		q.Set("alert_rule", strconv.Itoa(f.Rule))
	}
	if f.Order != "" {
		sort := f.Sort
		if sort == "" {
			sort = "desc"
		}
		q.Set("order", f.Order+" "+sort)
	}
	return q
}

// Alerts lists alerts.
func (c *Client) Alerts(ctx context.Context, filter AlertFilter) ([]Alert, error) {
	var alerts []Alert
	if err := c.list(ctx, "alerts", filter.values(), "alerts", &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// Alert returns one alert.
func (c *Client) Alert(ctx context.Context, id int) (Alert, error) {
	return first[Alert](ctx, c, "alerts/"+strconv.Itoa(id), "alerts")
}

// AckAlert acknowledges an alert. Unless untilClear is set, the alert fires
// again when it worsens or improves.
func (c *Client) AckAlert(ctx context.Context, id int, note string, untilClear bool) error {
	q := url.Values{"note": {note}, "until_clear": {strconv.FormatBool(untilClear)}}
	return c.mutate(ctx, audit.OpAlertAck, strconv.Itoa(id), http.MethodPut, "alerts/"+strconv.Itoa(id), q, nil, nil)
}

// UnmuteAlert reverses an acknowledgement.
func (c *Client) UnmuteAlert(ctx context.Context, id int) error {
	return c.mutate(ctx, audit.OpAlertUnmute, strconv.Itoa(id), http.MethodPut, "alerts/unmute/"+strconv.Itoa(id), nil, nil, nil)
}

// AlertRule is an alert rule definition.
type AlertRule struct {
	ID       int    `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Severity string `json:"severity" yaml:"severity"`
	Disabled Flag   `json:"disabled" yaml:"disabled"`
	Query    string `json:"query,omitempty" yaml:"query,omitempty"`
	Notes    string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// AlertRules lists alert rules.
func (c *Client) AlertRules(ctx context.Context) ([]AlertRule, error) {
	var rules []AlertRule
	err := c.list(ctx, "rules", nil, "rules", &rules)
	return rules, err
}

// AlertRule returns one alert rule.
func (c *Client) AlertRule(ctx context.Context, id int) (AlertRule, error) {
	return first[AlertRule](ctx, c, "rules/"+strconv.Itoa(id), "rules")
}

// DeleteAlertRule removes an alert rule.
func (c *Client) DeleteAlertRule(ctx context.Context, id int) error {
	return c.mutate(ctx, audit.OpAlertRuleDelete, strconv.Itoa(id), http.MethodDelete, "rules/"+strconv.Itoa(id), nil, nil, nil)
}
