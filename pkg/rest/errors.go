package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/uoft-netops/uoft-tools/pkg/util"
)

// Error is a non-2xx API response.
type Error struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       []byte
	Data       map[string]any
}

func newError(method, url string, resp *http.Response, body []byte) *Error {
	e := &Error{
		Method:     method,
		URL:        url,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       body,
	}
	_ = json.Unmarshal(body, &e.Data)
	return e
}

// Message is the most useful error text in the response: the JSON "message"
// or "error" field, else the raw body.
func (e *Error) Message() string {
	for _, k := range []string{"message", "error"} {
		if s, ok := e.Data[k].(string); ok && s != "" {
			return s
		}
	}
	return strings.TrimSpace(string(e.Body))
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
	if m := e.Message(); m != "" {
		msg += ": " + m
	}
	return msg
}

// Unwrap maps 404 responses to util.ErrNotFound.
func (e *Error) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return util.ErrNotFound
	}
	return nil
}
