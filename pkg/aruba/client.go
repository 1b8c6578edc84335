// Package aruba is a client for the ArubaOS 8 REST API on mobility masters
// and managed controllers.
package aruba

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/rest"
	"github.com/uoft-netops/uoft-tools/pkg/util"
)

// API paths. Login sessions live under /rest, everything else under /v1.
const (
	pathLogin       = "/v1/api/login"
	pathLogout      = "/rest/v1/login-sessions"
	pathShowCommand = "/v1/configuration/showcommand"
	pathObject      = "/v1/configuration/object"
)

// DefaultConfigPath is the config node used when none is given.
const DefaultConfigPath = "/mm"

// Client talks to one controller. Call Login before any other method and
// Logout when done.
type Client struct {
	rest       *rest.Client
	host       string
	username   string
	password   string
	configPath string
	token      string
	audit      audit.Logger
	log        *logrus.Entry
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	configPath string
	audit      audit.Logger
	rest       []rest.Option
}

// WithConfigPath sets the config_path query parameter sent with every request.
func WithConfigPath(path string) Option {
	return func(o *clientOptions) { o.configPath = path }
}

// WithAuditLogger records mutating calls to l instead of the default audit logger.
func WithAuditLogger(l audit.Logger) Option {
	return func(o *clientOptions) { o.audit = l }
}

// WithRESTOptions passes options to the underlying REST client.
func WithRESTOptions(opts ...rest.Option) Option {
	return func(o *clientOptions) { o.rest = append(o.rest, opts...) }
}

// NewClient returns a client for host ("name:port" or a full URL).
// Certificate verification is off unless enabled with
// WithRESTOptions(rest.WithVerifyTLS(true)); controllers ship self-signed
// certificates.
func NewClient(host, username, password string, opts ...Option) *Client {
	o := clientOptions{configPath: DefaultConfigPath}
	for _, opt := range opts {
		opt(&o)
	}
	restOpts := append([]rest.Option{rest.WithVerifyTLS(false)}, o.rest...)
	rc := rest.New(host, "", restOpts...)
	return &Client{
		rest:       rc,
		host:       rc.Host(),
		username:   username,
		password:   password,
		configPath: o.configPath,
		audit:      o.audit,
		log:        util.WithHost(rc.Host()),
	}
}

// Host returns the controller hostname.
func (c *Client) Host() string { return c.host }

// ConfigPath returns the config node requests are made against.
func (c *Client) ConfigPath() string { return c.configPath }

// LoggedIn reports whether Login has succeeded and Logout has not been called.
func (c *Client) LoggedIn() bool { return c.token != "" }

type loginResponse struct {
	GlobalResult struct {
		Status    json.RawMessage `json:"status"`
		StatusStr string          `json:"status_str"`
		UIDARUBA  string          `json:"UIDARUBA"`
		CSRFToken string          `json:"X-CSRF-Token"`
	} `json:"_global_result"`
}

// Login authenticates and installs the session token on the client.
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{"username": {c.username}, "password": {c.password}}
	var res loginResponse
	if _, err := c.rest.PostForm(ctx, pathLogin, form, &res); err != nil {
		return &APIError{Host: c.host, Op: "login", Err: err}
	}
	token := res.GlobalResult.UIDARUBA
	if token == "" {
		return &APIError{Host: c.host, Op: "login", Detail: "no UIDARUBA token in response: " + res.GlobalResult.StatusStr}
	}

	c.token = token
	c.rest.SetHeader("Cookie", "SESSION="+token)
	c.rest.SetHeader("uidaruba", token)
	c.rest.SetHeader("X-CSRF-Token", res.GlobalResult.CSRFToken)
	c.rest.SetQuery("UIDARUBA", token)
	c.rest.SetQuery("config_path", c.configPath)
	c.log.Debugf("Logged in as %s", c.username)
	return nil
}

// Logout ends the session. It is a no-op when not logged in.
func (c *Client) Logout(ctx context.Context) error {
	if c.token == "" {
		return nil
	}
	err := c.rest.Delete(ctx, pathLogout, nil)
	c.token = ""
	c.rest.DelHeader("Cookie")
	c.rest.DelHeader("uidaruba")
	c.rest.DelHeader("X-CSRF-Token")
	c.rest.DelQuery("UIDARUBA")
	c.rest.DelQuery("config_path")
	if err != nil {
		return &APIError{Host: c.host, Op: "logout", Err: err}
	}
	c.log.Debug("Logged out")
	return nil
}

// event starts an audit event for a mutating call.
func (c *Client) event(op, target string) *audit.Event {
	return audit.NewEvent(AppName, c.host, op).WithTarget(target)
}

func (c *Client) requireLogin(op string) error {
	if c.token == "" {
		return &APIError{Host: c.host, Op: op, Err: util.ErrNotLoggedIn}
	}
	return nil
}

// ShowCommand runs a CLI show command and returns the top-level JSON keys.
func (c *Client) ShowCommand(ctx context.Context, command string) (map[string]json.RawMessage, error) {
	op := "show command " + command
	if err := c.requireLogin(op); err != nil {
		return nil, err
	}
	var out map[string]json.RawMessage
	q := url.Values{"command": {command}, "json": {"1"}}
	if err := c.rest.Get(ctx, pathShowCommand, q, &out); err != nil {
		return nil, &APIError{Host: c.host, Op: op, Err: err}
	}
	return out, nil
}

// showTable runs command and decodes the first of keys present in the
// output into out. Key names vary between ArubaOS releases.
func (c *Client) showTable(ctx context.Context, command string, out any, keys ...string) error {
	res, err := c.ShowCommand(ctx, command)
	if err != nil {
		return err
	}
	for _, k := range keys {
		raw, ok := res[k]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return &APIError{Host: c.host, Op: "show command " + command, Detail: "decoding " + k, Err: err}
		}
		return nil
	}
	return &APIError{Host: c.host, Op: "show command " + command, Detail: fmt.Sprintf("output has none of the keys %q", keys)}
}

type objectResponse struct {
	GlobalResult *struct {
		Status    json.RawMessage `json:"status"`
		StatusStr string          `json:"status_str"`
	} `json:"_global_result"`
	Error json.RawMessage `json:"Error"`
}

// PostObject posts data to a configuration object. The call fails on a
// non-200 response, an "Error" key in the body, or a _global_result status
// other than Success.
func (c *Client) PostObject(ctx context.Context, name string, data any) (map[string]any, error) {
	op := "POST object " + name
	if err := c.requireLogin(op); err != nil {
		return nil, err
	}
	resp, err := c.rest.Send(ctx, rest.Request{Method: http.MethodPost, Path: pathObject + "/" + name, JSON: data}, nil)
	if err != nil {
		return nil, &APIError{Host: c.host, Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Host: c.host, Op: op, StatusCode: resp.StatusCode, Detail: string(resp.Body)}
	}

	var res objectResponse
	if err := json.Unmarshal(resp.Body, &res); err != nil {
		return nil, &APIError{Host: c.host, Op: op, Detail: "decoding response", Err: err}
	}
	if len(res.Error) > 0 {
		return nil, &APIError{Host: c.host, Op: op, StatusCode: resp.StatusCode, Detail: string(res.Error)}
	}
	if res.GlobalResult == nil || res.GlobalResult.StatusStr != "Success" {
		return nil, &APIError{Host: c.host, Op: op, StatusCode: resp.StatusCode, Detail: string(resp.Body)}
	}

	var out map[string]any
	_ = json.Unmarshal(resp.Body, &out)
	return out, nil
}

// GetObject reads a configuration object and decodes _data.<name> into out.
func (c *Client) GetObject(ctx context.Context, name string, out any) error {
	op := "GET object " + name
	if err := c.requireLogin(op); err != nil {
		return err
	}
	var res struct {
		Data map[string]json.RawMessage `json:"_data"`
	}
	if err := c.rest.Get(ctx, pathObject+"/"+name, nil, &res); err != nil {
		return &APIError{Host: c.host, Op: op, Err: err}
	}
	raw, ok := res.Data[name]
	if !ok {
		return &APIError{Host: c.host, Op: op, Detail: "no _data." + name + " in response", Err: util.ErrNotFound}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Host: c.host, Op: op, Detail: "decoding _data." + name, Err: err}
	}
	return nil
}

// APIError is an Aruba REST API failure.
type APIError struct {
	Host       string
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("aruba %s: %s failed", e.Host, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

// IsAPIError reports whether err came from the Aruba API.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
