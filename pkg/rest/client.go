// Package rest is the shared HTTP/JSON client underneath the Aruba, LibreNMS
// and SnipeIT API clients.
package rest

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/uoft-netops/uoft-tools/pkg/util"
)

// DefaultTimeout bounds every request unless overridden with WithTimeout.
const DefaultTimeout = 30 * time.Second

// Client sends requests to one API.
//
// Default headers and query parameters are applied to every request. A Client
// is not safe for concurrent use while its defaults are being changed, e.g.
// during login.
type Client struct {
	baseURL string
	apiRoot string
	headers http.Header
	query   url.Values
	http    *http.Client
	log     *logrus.Entry
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithVerifyTLS toggles certificate verification. Controllers commonly use
// self-signed certificates.
func WithVerifyTLS(verify bool) Option {
	return func(c *Client) {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if !verify {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		}
		c.http.Transport = tr
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHeader adds a default header.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// WithQuery adds a default query parameter.
func WithQuery(key, value string) Option {
	return func(c *Client) { c.query.Set(key, value) }
}

// New returns a client for baseURL. A bare hostname is given an https://
// scheme. apiRoot (e.g. "/api/v0") is prefixed to every request path.
func New(baseURL, apiRoot string, opts ...Option) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiRoot: "/" + strings.Trim(apiRoot, "/"),
		headers: http.Header{},
		query:   url.Values{},
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	if c.apiRoot == "/" {
		c.apiRoot = ""
	}
	c.headers.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	c.log = util.WithHost(c.Host())
	return c
}

// BaseURL returns scheme://host[:port].
func (c *Client) BaseURL() string { return c.baseURL }

// Host returns the host part of the base URL.
func (c *Client) Host() string {
	if u, err := url.Parse(c.baseURL); err == nil && u.Host != "" {
		return u.Hostname()
	}
	return c.baseURL
}

// SetHeader sets a default header.
func (c *Client) SetHeader(key, value string) { c.headers.Set(key, value) }

// DelHeader removes a default header.
func (c *Client) DelHeader(key string) { c.headers.Del(key) }

// SetQuery sets a default query parameter.
func (c *Client) SetQuery(key, value string) { c.query.Set(key, value) }

// DelQuery removes a default query parameter.
func (c *Client) DelQuery(key string) { c.query.Del(key) }

// URL builds the full URL for path with default and extra query parameters.
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL + c.apiRoot + "/" + strings.TrimLeft(path, "/")
	q := url.Values{}
	for k, v := range c.query {
		q[k] = append([]string(nil), v...)
	}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// Request describes one API call. At most one of JSON and Form is set.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	JSON   any
	Form   url.Values
}

// Response is a completed API call.
type Response struct {
	*http.Response
	Body []byte
}

// Send performs req. Non-2xx responses are returned as *Error. When out is
// non-nil the body is decoded into it as JSON.
func (c *Client) Send(ctx context.Context, req Request, out any) (*Response, error) {
	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
		c.log.Tracef("request body: %s", data)
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	target := c.URL(req.Path, req.Query)
	hreq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		hreq.Header[k] = append([]string(nil), v...)
	}
	if contentType != "" {
		hreq.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	c.log.Debugf("%s %s", req.Method, redact(target))
	hresp, err := c.http.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, redact(target), err)
	}
	defer hresp.Body.Close()

	data, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", redact(target), err)
	}
	c.log.Debugf("%s %s -> %s (%s)", req.Method, redact(target), hresp.Status, time.Since(start).Round(time.Millisecond))
	c.log.Tracef("response body: %s", data)

	resp := &Response{Response: hresp, Body: data}
	if hresp.StatusCode < 200 || hresp.StatusCode > 299 {
		return resp, newError(req.Method, redact(target), hresp, data)
	}
	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp, fmt.Errorf("decoding response from %s: %w", redact(target), err)
		}
	}
	return resp, nil
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	_, err := c.Send(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
	return err
}

// Post sends a JSON POST request.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	_, err := c.Send(ctx, Request{Method: http.MethodPost, Path: path, JSON: in}, out)
	return err
}

// Put sends a JSON PUT request.
func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	_, err := c.Send(ctx, Request{Method: http.MethodPut, Path: path, JSON: in}, out)
	return err
}

// Patch sends a JSON PATCH request.
func (c *Client) Patch(ctx context.Context, path string, in, out any) error {
	_, err := c.Send(ctx, Request{Method: http.MethodPatch, Path: path, JSON: in}, out)
	return err
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	_, err := c.Send(ctx, Request{Method: http.MethodDelete, Path: path}, out)
	return err
}

// PostForm sends a form-encoded POST request.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out any) (*Response, error) {
	return c.Send(ctx, Request{Method: http.MethodPost, Path: path, Form: form}, out)
}

// redact hides session tokens carried in query strings.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	for _, k := range []string{"UIDARUBA", "token", "api_key"} {
		if q.Has(k) {
			q.Set(k, "xxxxx")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
