// Package snipeit is a client for the SnipeIT v1 asset-management API.
package snipeit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/rest"
)

// APIRoot is prefixed to every request path.
const APIRoot = "/api/v1"

// Client talks to one SnipeIT instance with a personal access token.
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

// NewClient returns a client for the SnipeIT instance at hostname, which
// may also be a full base URL.
func NewClient(hostname, token string, opts ...Option) *Client {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	restOpts := append([]rest.Option{
		rest.WithHeader("Authorization", "Bearer "+token),
		rest.WithHeader("Accept", "application/json"),
	}, o.rest...)
	rc := rest.New(hostname, APIRoot, restOpts...)
	return &Client{rest: rc, host: rc.Host(), audit: o.audit}
}

// Host returns the SnipeIT hostname.
func (c *Client) Host() string { return c.host }

// APIError is a failed SnipeIT call. SnipeIT reports most failures with
// HTTP 200 and "status": "error".
type APIError struct {
	Host       string
	Op         string
	StatusCode int
	Messages   string
	Err        error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("snipeit %s: %s failed", e.Host, e.Op)
	if e.StatusCode != 0 && e.StatusCode != 200 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Messages != "" {
		msg += ": " + e.Messages
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

// envelope wraps the result of mutating calls.
type envelope struct {
	Status   string          `json:"status"`
	Messages json.RawMessage `json:"messages"`
	Payload  json.RawMessage `json:"payload"`
}

// messagesText flattens "messages", which is a string or a map of field
// name to a list of validation errors.
func messagesText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var fields map[string][]string
	if err := json.Unmarshal(raw, &fields); err == nil {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+strings.Join(fields[k], " "))
		}
		return strings.Join(parts, "; ")
	}
	return string(raw)
}

// call sends a request. Responses carrying "status" are unwrapped: errors
// become *APIError and the payload is decoded into out. Other responses
// (listings) are decoded whole.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out any) error {
	op := method + " " + path
	resp, err := c.rest.Send(ctx, rest.Request{Method: method, Path: path, Query: query, JSON: in}, nil)
	if err != nil {
		apiErr := &APIError{Host: c.host, Op: op, Err: err}
		var restErr *rest.Error
		if errors.As(err, &restErr) {
			apiErr.StatusCode = restErr.StatusCode
			apiErr.Messages = restErr.Message()
		}
		return apiErr
	}
	if len(resp.Body) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return &APIError{Host: c.host, Op: op, StatusCode: resp.StatusCode, Messages: "decoding response", Err: err}
	}
	switch env.Status {
	case "error":
		return &APIError{Host: c.host, Op: op, StatusCode: resp.StatusCode, Messages: messagesText(env.Messages)}
	case "success":
		if out != nil && len(env.Payload) > 0 && string(env.Payload) != "null" {
			if err := json.Unmarshal(env.Payload, out); err != nil {
				return &APIError{Host: c.host, Op: op, StatusCode: resp.StatusCode, Messages: "decoding payload", Err: err}
			}
		}
		return nil
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return &APIError{Host: c.host, Op: op, StatusCode: resp.StatusCode, Messages: "decoding response", Err: err}
		}
	}
	return nil
}

// mutate sends a changing request and records it in the audit log.
func (c *Client) mutate(ctx context.Context, event *audit.Event, method, path string, in, out any) error {
	start := time.Now()
	err := c.call(ctx, method, path, nil, in, out)
	audit.Emit(c.audit, event.Finish(start, err))
	return err
}

// rows is the shape of every listing.
type rows[T any] struct {
	Total int `json:"total"`
	Rows  []T `json:"rows"`
}
