// Package librenms is a client for the LibreNMS v0 REST API.
package librenms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/rest"
)

// APIRoot is prefixed to every request path.
const APIRoot = "/api/v0"

// Client talks to one LibreNMS instance, authenticating every request with
// an API token.
type Client struct {
	rest  *rest.Client
	host  string
	audit audit.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	audit audit.Logger
	rest  []rest.Option
}

// WithAuditLogger records mutating calls to l instead of the default audit logger.
func WithAuditLogger(l audit.Logger) Option {
	return func(o *clientOptions) { o.audit = l }
}

// WithRESTOptions passes options to the underlying REST client.
func WithRESTOptions(opts ...rest.Option) Option {
	return func(o *clientOptions) { o.rest = append(o.rest, opts...) }
}

// NewClient returns a client for the LibreNMS instance at baseURL.
func NewClient(baseURL, token string, opts ...Option) *Client {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	restOpts := append([]rest.Option{rest.WithHeader("X-Auth-Token", token)}, o.rest...)
	rc := rest.New(baseURL, APIRoot, restOpts...)
	return &Client{rest: rc, host: rc.Host(), audit: o.audit}
}

// Host returns the LibreNMS hostname.
func (c *Client) Host() string { return c.host }

// APIError is a failed LibreNMS call: an HTTP error or a response with
// "status": "error".
type APIError struct {
	Host       string
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("librenms %s: %s failed", e.Host, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

// envelope is the part of every response that reports success.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// call sends a request and decodes the whole response into out.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out any) error {
	op := method + " " + path
	resp, err := c.rest.Send(ctx, rest.Request{Method: method, Path: path, Query: query, JSON: in}, nil)
	if err != nil {
		apiErr := &APIError{Host: c.host, Op: op, Err: err}
		var restErr *rest.Error
		if errors.As(err, &restErr) {
			apiErr.StatusCode = restErr.StatusCode
			apiErr.Message = restErr.Message()
		}
		return apiErr
	}

	var env envelope
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &env); err != nil {
			return &APIError{Host: c.host, Op: op, StatusCode: resp.StatusCode, Message: "decoding response", Err: err}
		}
	}
	if env.Status == "error" {
		return &APIError{Host: c.host, Op: op, StatusCode: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return &APIError{Host: c.host, Op: op, StatusCode: resp.StatusCode, Message: "decoding response", Err: err}
		}
	}
	return nil
}

// list GETs path and decodes the array under key into out.
func (c *Client) list(ctx context.Context, path string, query url.Values, key string, out any) error {
	var res map[string]json.RawMessage
	if err := c.call(ctx, http.MethodGet, path, query, nil, &res); err != nil {
		return err
	}
	raw, ok := res[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Host: c.host, Op: "GET " + path, Message: "decoding " + key, Err: err}
	}
	return nil
}

// first GETs path and decodes the first element of the array under key.
func first[T any](ctx context.Context, c *Client, path, key string) (T, error) {
	var items []T
	var zero T
	if err := c.list(ctx, path, nil, key, &items); err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, &APIError{Host: c.host, Op: "GET " + path, Message: "empty " + key}
	}
	return items[0], nil
}

// mutate sends a changing request and records it in the audit log.
func (c *Client) mutate(ctx context.Context, op, target, method, path string, query url.Values, in, out any) error {
	event := audit.NewEvent(AppName, c.host, op).WithTarget(target)
	start := time.Now()
	err := c.call(ctx, method, path, query, in, out)
	audit.Emit(c.audit, event.Finish(start, err))
	return err
}

// Flag is a 0/1 column that some LibreNMS releases return as a boolean or string.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	switch s {
	case "null", "":
		*f = false
		return nil
	case "true":
		*f = true
		return nil
	case "false":
		*f = false
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("librenms: invalid flag %s", data)
	}
	*f = n != 0
	return nil
}

func columns(cols []string) url.Values {
	if len(cols) == 0 {
		return nil
	}
	return url.Values{"columns": {strings.Join(cols, ",")}}
}
