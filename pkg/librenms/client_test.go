package librenms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/util"
)

const testToken = "t0k3n"

type request struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]any
}

type fakeNMS struct {
	*httptest.Server
	mu       sync.Mutex
	requests []request
}

func (f *fakeNMS) last() request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newFakeNMS(t *testing.T) *fakeNMS {
	t.Helper()
	f := &fakeNMS{}
	mux := http.NewServeMux()
	ok := func(key string, v any) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			reply(w, http.StatusOK, map[string]any{"status": "ok", key: v})
		}
	}
	mux.HandleFunc("GET /api/v0/devices", ok("devices", []map[string]any{
		{"device_id": 1, "hostname": "sw1.example.ca", "sysName": "sw1", "os": "arubaos-cx", "status": 1, "ignore": "0", "disabled": false, "lat": 43.78},
		{"device_id": 2, "hostname": "sw2.example.ca", "sysName": "", "os": "ios", "status": "0", "ignore": nil, "disabled": 0},
	}))
	mux.HandleFunc("GET /api/v0/devices/{device}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("device") != "sw1.example.ca" {
			reply(w, http.StatusNotFound, map[string]any{"status": "error", "message": "Device " + r.PathValue("device") + " does not exist"})
			return
		}
		reply(w, http.StatusOK, map[string]any{"status": "ok", "devices": []map[string]any{{"device_id": 1, "hostname": "sw1.example.ca"}}})
	})
	mux.HandleFunc("POST /api/v0/devices", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["hostname"] == "dup.example.ca" {
			reply(w, http.StatusInternalServerError, map[string]any{"status": "error", "message": "Already have device dup.example.ca"})
			return
		}
		reply(w, http.StatusOK, map[string]any{"status": "ok", "devices": []map[string]any{{"device_id": 9, "hostname": body["hostname"]}}})
	})
	mux.HandleFunc("PATCH /api/v0/devices/{device}", ok("message", "Device fields have been updated"))
	mux.HandleFunc("PATCH /api/v0/devices/{device}/rename/{name}", ok("message", "Device has been renamed"))
	mux.HandleFunc("GET /api/v0/alerts", ok("alerts", []map[string]any{{"id": 7, "device_id": 1, "rule_id": 3, "state": 1, "severity": "critical"}}))
	mux.HandleFunc("PUT /api/v0/alerts/{id}", ok("message", "Alert has been acknowledged"))
	mux.HandleFunc("GET /api/v0/ports/mac/{mac}", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]any{"status": "error", "message": "No ports found"})
	})
	mux.HandleFunc("GET /api/v0/ports/search/{field}/{search}", ok("ports", []map[string]any{{"port_id": 4, "ifName": "1/1/1", "ifAlias": "uplink"}}))
	mux.HandleFunc("GET /api/v0/resources/locations", ok("locations", []map[string]any{{"id": 1, "location": "SW-BLDG", "lat": 43.78, "lng": -79.18}}))
	mux.HandleFunc("POST /api/v0/locations", ok("message", "Location added with id #2"))
	mux.HandleFunc("GET /api/v0/devicegroups", ok("groups", []map[string]any{{"id": 1, "name": "core", "type": "static"}}))
	mux.HandleFunc("GET /api/v0/devices/{device}/vlans", ok("vlans", []map[string]any{{"vlan_id": 11, "device_id": 1, "vlan_vlan": 100, "vlan_name": "mgmt"}}))

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Auth-Token") != testToken {
			reply(w, http.StatusUnauthorized, map[string]any{"message": "Unauthenticated."})
			return
		}
		req := request{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query()}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &req.Body)
		r.Body = io.NopCloser(bytes.NewReader(data))
		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func newTestClient(t *testing.T) (*Client, *fakeNMS, *audit.MemoryLogger) {
	t.Helper()
	fake := newFakeNMS(t)
	rec := audit.NewMemoryLogger()
	return NewClient(fake.URL, testToken, WithAuditLogger(rec)), fake, rec
}

func TestDevices(t *testing.T) {
	c, fake, _ := newTestClient(t)
	devices, err := c.Devices(context.Background(), DeviceFilter{Type: "os", Query: "ios"})
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, "sw1", devices[0].Name())
	assert.True(t, bool(devices[0].Status))
	assert.False(t, bool(devices[0].Ignore))
	assert.Equal(t, "43.78", devices[0].Lat.String())
	assert.Equal(t, "sw2.example.ca", devices[1].Name(), "falls back to hostname")
	assert.False(t, bool(devices[1].Status))

	q := fake.last().Query
	assert.Equal(t, "os", q.Get("type"))
	assert.Equal(t, "ios", q.Get("query"))
	assert.Empty(t, q.Get("order"))
}

func TestDeviceNotFound(t *testing.T) {
	c, _, _ := newTestClient(t)
	d, err := c.Device(context.Background(), "sw1.example.ca")
	require.NoError(t, err)
	assert.Equal(t, 1, d.ID)

	_, err = c.Device(context.Background(), "nope")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Device nope does not exist", apiErr.Message)
	assert.True(t, errors.Is(err, util.ErrNotFound))
}

func TestBadToken(t *testing.T) {
	fake := newFakeNMS(t)
	c := NewClient(fake.URL, "wrong")
	_, err := c.Devices(context.Background(), DeviceFilter{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Unauthenticated.", apiErr.Message)
}

func TestStatusErrorWith200(t *testing.T) {
	c, _, _ := newTestClient(t)
	_, err := c.PortsByMAC(context.Background(), "aa:bb:cc:dd:ee:ff")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "No ports found")
}

func TestAddDeviceAudited(t *testing.T) {
	c, fake, rec := newTestClient(t)
	devices, err := c.AddDevice(context.Background(), NewDevice{Hostname: "sw3.example.ca", Version: "v2c", Community: "public"})
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, 9, devices[0].ID)

	body := fake.last().Body
	assert.Equal(t, "v2c", body["version"])
	assert.NotContains(t, body, "port", "zero values omitted")

	_, err = c.AddDevice(context.Background(), NewDevice{Hostname: "dup.example.ca"})
	require.Error(t, err)

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, audit.OpDeviceAdd, events[0].Operation)
	assert.Equal(t, "sw3.example.ca", events[0].Target)
	assert.Equal(t, AppName, events[0].App)
	assert.True(t, events[0].Success)
	assert.False(t, events[1].Success)
	assert.Contains(t, events[1].Error, "Already have device")
}

func TestUpdateAndRename(t *testing.T) {
	c, fake, rec := newTestClient(t)
	require.NoError(t, c.UpdateDeviceFields(context.Background(), "sw1", map[string]any{"notes": "core"}))
	body := fake.last().Body
	assert.Equal(t, []any{"notes"}, body["field"])
	assert.Equal(t, []any{"core"}, body["data"])

	require.NoError(t, c.RenameDevice(context.Background(), "sw1", "sw1-new"))
	assert.Equal(t, "/api/v0/devices/sw1/rename/sw1-new", fake.last().Path)
	assert.Len(t, rec.Events(), 2)
}

func TestAlerts(t *testing.T) {
	c, fake, rec := newTestClient(t)
	alerts, err := c.Alerts(context.Background(), AlertFilter{State: "alert", Rule: 3, Order: "timestamp"})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "critical", alerts[0].Severity)

	q := fake.last().Query
	assert.Equal(t, "alert", q.Get("state"))
	assert.Equal(t, "3", q.Get("alert_rule"))
	assert.Equal(t, "timestamp desc", q.Get("order"))

	require.NoError(t, c.AckAlert(context.Background(), 7, "on it", true))
	last := fake.last()
	assert.Equal(t, http.MethodPut, last.Method)
	assert.Equal(t, "on it", last.Query.Get("note"))
	assert.Equal(t, "true", last.Query.Get("until_clear"))
	require.Len(t, rec.Events(), 1)
	assert.Equal(t, "7", rec.Events()[0].Target)
}

func TestResources(t *testing.T) {
	c, fake, _ := newTestClient(t)
	ctx := context.Background()

	ports, err := c.SearchPorts(ctx, "ifAlias", "uplink", "port_id", "ifName")
	require.NoError(t, err)
	require.Len(t, ports, 1)
	assert.Equal(t, "1/1/1", ports[0].IfName)
	assert.Equal(t, "port_id,ifName", fake.last().Query.Get("columns"))

	locations, err := c.Locations(ctx)
	require.NoError(t, err)
	require.Len(t, locations, 1)
	require.NotNil(t, locations[0].Lat)
	assert.InDelta(t, 43.78, *locations[0].Lat, 0.001)

	lat := 43.7
	require.NoError(t, c.AddLocation(ctx, "NEW-BLDG", &lat, nil))
	body := fake.last().Body
	assert.Equal(t, "NEW-BLDG", body["location"])
	assert.NotContains(t, body, "lng")

	groups, err := c.DeviceGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, "core", groups[0].Name)

	vlans, err := c.Vlans(ctx, "sw1")
	require.NoError(t, err)
	require.Len(t, vlans, 1)
	assert.Equal(t, 100, vlans[0].Number)
}

func TestFlag(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{`1`, true, false},
		{`0`, false, false},
		{`"1"`, true, false},
		{`true`, true, false},
		{`false`, false, false},
		{`null`, false, false},
		{`"yes"`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f Flag
			err := json.Unmarshal([]byte(tt.in), &f)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, bool(f))
		})
	}
}

func TestSettingsClient(t *testing.T) {
	fake := newFakeNMS(t)
	s := Settings{URL: fake.URL, Token: testToken, VerifyTLS: true}
	c := s.Client()
	assert.Equal(t, "127.0.0.1", c.Host())
	_, err := c.DeviceGroups(context.Background())
	assert.NoError(t, err)
}
