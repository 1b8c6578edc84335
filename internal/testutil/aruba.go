// Package testutil provides test fakes and helpers shared by package tests.
// Helpers that need a live Redis are built with the integration tag.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// ObjectCall is one configuration object POST received by FakeAruba.
type ObjectCall struct {
	Object string
	Body   map[string]any
}

// FakeAruba is an in-memory ArubaOS controller speaking enough of the REST
// API for the aruba client and provisioner tests.
type FakeAruba struct {
	*httptest.Server

	Username string
	Password string
	Token    string

	mu              sync.Mutex
	legacyKeys      bool
	groups          []string
	allowlist       []map[string]any
	blacklist       []map[string]any
	calls           []ObjectCall
	failures        map[string]string
	allowlistReads  int
	loggedOut       bool
	lastCSRFHeader  string
	lastConfigPath  string
	lastSessionAuth string
}

// NewFakeAruba starts a fake controller that accepts admin/secret.
func NewFakeAruba(t testing.TB) *FakeAruba {
	t.Helper()
	f := &FakeAruba{
		Username: "admin",
		Password: "secret",
		Token:    "f4k3-t0k3n",
		failures: map[string]string{},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Close)
	return f
}

// SetLegacyKeys makes show commands answer with pre-8.10 output keys.
func (f *FakeAruba) SetLegacyKeys(legacy bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.legacyKeys = legacy
}

// AddGroup adds an AP group. profileName may carry a quoted node prefix.
func (f *FakeAruba) AddGroup(profileName ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups = append(f.groups, profileName...)
}

// AddAllowlistEntry seeds the CPSEC allowlist.
func (f *FakeAruba) AddAllowlistEntry(name, group, mac string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowlist = append(f.allowlist, map[string]any{
		"AP-Name":     name,
		"AP-Group":    group,
		"MAC-Address": mac,
		"Cert-Type":   "factory-cert",
		"State":       "approved-ready-for-cert",
	})
}

// AddBlacklisted seeds the client blacklist.
func (f *FakeAruba) AddBlacklisted(mac string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blacklist = append(f.blacklist, map[string]any{"STA": mac, "reject-reason": "user-defined"})
}

// FailObject makes POSTs to object fail with statusStr.
func (f *FakeAruba) FailObject(object, statusStr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[object] = statusStr
}

// Calls returns the object POSTs received so far.
func (f *FakeAruba) Calls() []ObjectCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ObjectCall(nil), f.calls...)
}

// Objects returns the names of the objects POSTed so far, in order.
func (f *FakeAruba) Objects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.calls))
	for i, c := range f.calls {
		names[i] = c.Object
	}
	return names
}

// Allowlist returns a copy of the current allowlist.
func (f *FakeAruba) Allowlist() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(f.allowlist))
	for i, e := range f.allowlist {
		c := map[string]any{}
		for k, v := range e {
			c[k] = v
		}
		out[i] = c
	}
	return out
}

// Blacklist returns the STA of every blacklisted client.
func (f *FakeAruba) Blacklist() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.blacklist))
	for _, e := range f.blacklist {
		out = append(out, fmt.Sprint(e["STA"]))
	}
	return out
}

// AllowlistReads counts `show whitelist-db cpsec` requests.
func (f *FakeAruba) AllowlistReads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allowlistReads
}

// LoggedOut reports whether the session was closed.
func (f *FakeAruba) LoggedOut() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loggedOut
}

// LastRequest returns the session cookie, CSRF header and config_path of the
// last authenticated request.
func (f *FakeAruba) LastRequest() (cookie, csrf, configPath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSessionAuth, f.lastCSRFHeader, f.lastConfigPath
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *FakeAruba) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/api/login":
		if err := r.ParseForm(); err != nil || r.PostForm.Get("username") != f.Username || r.PostForm.Get("password") != f.Password {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"_global_result": map[string]any{"status": "1", "status_str": "Unauthorized"}})
			return
		}
		f.loggedOut = false
		writeJSON(w, http.StatusOK, map[string]any{"_global_result": map[string]any{
			"status":       "0",
			"status_str":   "You've logged in successfully.",
			"UIDARUBA":     f.Token,
			"X-CSRF-Token": "csrf-" + f.Token,
		}})
		return
	case r.Method == http.MethodDelete && r.URL.Path == "/rest/v1/login-sessions":
		f.loggedOut = true
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.URL.Query().Get("UIDARUBA") != f.Token || f.loggedOut {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "session expired"})
		return
	}
	f.lastSessionAuth = r.Header.Get("Cookie")
	f.lastCSRFHeader = r.Header.Get("X-CSRF-Token")
	f.lastConfigPath = r.URL.Query().Get("config_path")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v1/configuration/showcommand":
		f.show(w, r.URL.Query().Get("command"))
	case r.Method == http.MethodGet && r.URL.Path == "/v1/configuration/object/ap_group":
		groups := make([]map[string]string, len(f.groups))
		for i, g := range f.groups {
			groups[i] = map[string]string{"profile-name": g}
		}
		writeJSON(w, http.StatusOK, map[string]any{"_data": map[string]any{"ap_group": groups}})
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/v1/configuration/object/"):
		f.post(w, r, strings.TrimPrefix(r.URL.Path, "/v1/configuration/object/"))
	default:
		http.NotFound(w, r)
	}
}

func (f *FakeAruba) show(w http.ResponseWriter, command string) {
	switch command {
	case "show whitelist-db cpsec":
		f.allowlistReads++
		key := "Control-Plane Security Allowlist-entry Details"
		if f.legacyKeys {
			key = "Control-Plane Security Whitelist-entry Details"
		}
		writeJSON(w, http.StatusOK, map[string]any{key: f.allowlist, "_meta": []string{"AP-Name", "AP-Group", "MAC-Address"}})
	case "show ap blacklist-clients":
		key := "Client Denylist"
		if f.legacyKeys {
			key = "Blacklisted Clients"
		}
		writeJSON(w, http.StatusOK, map[string]any{key: f.blacklist})
	case "show ap database":
		rows := make([]map[string]any, 0, len(f.allowlist))
		for _, e := range f.allowlist {
			rows = append(rows, map[string]any{"Name": e["AP-Name"], "Group": e["AP-Group"], "Wired MAC Address": e["MAC-Address"], "Status": "Up"})
		}
		writeJSON(w, http.StatusOK, map[string]any{"AP Database": rows})
	case "show ap active":
		writeJSON(w, http.StatusOK, map[string]any{"Active AP Table": []any{}})
	case "show ap radio-summary":
		writeJSON(w, http.StatusOK, map[string]any{"APs Radios information": []any{}})
	case "show user-table":
		writeJSON(w, http.StatusOK, map[string]any{"Users": []map[string]any{{"IP": "10.0.0.1", "MAC": "aa:bb:cc:00:00:01"}}})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"_data": []string{"% Invalid input detected"}})
	}
}

func (f *FakeAruba) post(w http.ResponseWriter, r *http.Request, object string) {
	body := map[string]any{}
	if r.ContentLength != 0 {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	f.calls = append(f.calls, ObjectCall{Object: object, Body: body})

	if msg, ok := f.failures[object]; ok {
		writeJSON(w, http.StatusOK, map[string]any{"_global_result": map[string]any{"status": 1, "status_str": msg}})
		return
	}

	mac := fmt.Sprint(body["name"])
	switch object {
	case "wdb_cpsec_add_mac":
		f.allowlist = append(f.allowlist, map[string]any{
			"AP-Name":     body["ap_name"],
			"AP-Group":    body["ap_group"],
			"MAC-Address": mac,
			"Cert-Type":   nil,
			"State":       "unapproved-no-cert",
		})
	case "wdb_cpsec_modify_mac":
		for _, e := range f.allowlist {
			if e["MAC-Address"] == mac {
				e["Cert-Type"] = body["certtype"]
				e["State"] = "approved-ready-for-cert"
			}
		}
	case "wdb_cpsec_revoke_mac":
		for _, e := range f.allowlist {
			if e["MAC-Address"] == mac {
				e["State"] = "revoked"
				e["Revoke Text"] = body["revoke-text"]
			}
		}
	case "wdb_cpsec_del_mac":
		kept := f.allowlist[:0]
		for _, e := range f.allowlist {
			if e["MAC-Address"] != mac {
				kept = append(kept, e)
			}
		}
		f.allowlist = kept
	case "blmgr_blacklist_client_add":
		f.blacklist = append(f.blacklist, map[string]any{"STA": body["client-mac"]})
	case "blmgr_blacklist_client_remove", "stm_blacklist_client_remove":
		kept := f.blacklist[:0]
		for _, e := range f.blacklist {
			if e["STA"] != body["client-mac"] {
				kept = append(kept, e)
			}
		}
		f.blacklist = kept
	case "blmgr_blacklist_clients_purge":
		f.blacklist = nil
	}
	writeJSON(w, http.StatusOK, map[string]any{"_global_result": map[string]any{"status": 0, "status_str": "Success"}})
}
