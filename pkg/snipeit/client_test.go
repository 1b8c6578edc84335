package snipeit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/util"
)

const testToken = "b34r3r"

type call struct {
	Method string
	Path   string
	Body   map[string]any
}

type fakeSnipe struct {
	*httptest.Server
	mu        sync.Mutex
	calls     []call
	locations int
}

func (f *fakeSnipe) record(r *http.Request) map[string]any {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	f.calls = append(f.calls, call{r.Method, r.URL.Path, body})
	f.mu.Unlock()
	return body
}

func (f *fakeSnipe) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func send(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newFakeSnipe(t *testing.T) *fakeSnipe {
	t.Helper()
	f := &fakeSnipe{locations: 3}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/hardware", func(w http.ResponseWriter, r *http.Request) {
		body := f.record(r)
		if body["serial"] == "DUP" {
			send(w, map[string]any{"status": "error", "payload": nil,
				"messages": map[string][]string{"serial": {"The serial must be unique."}, "asset_tag": {"The asset tag must be unique."}}})
			return
		}
		send(w, map[string]any{"status": "success", "messages": "Asset created successfully.",
			"payload": map[string]any{"id": 42, "asset_tag": "00042", "name": body["name"], "serial": body["serial"], "model_id": body["model_id"]}})
	})
	mux.HandleFunc("POST /api/v1/hardware/{id}/checkout", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if r.PathValue("id") == "404" {
			send(w, map[string]any{"status": "error", "messages": "Asset does not exist.", "payload": nil})
			return
		}
		send(w, map[string]any{"status": "success", "messages": "Asset checked out successfully.", "payload": map[string]any{"asset": "00042"}})
	})
	mux.HandleFunc("PUT /api/v1/hardware/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		send(w, map[string]any{"status": "success", "messages": "Asset updated successfully.", "payload": map[string]any{"id": 42}})
	})
	mux.HandleFunc("GET /api/v1/hardware/byserial/{serial}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("serial") != "SN123" {
			send(w, map[string]any{"total": 0, "rows": []any{}})
			return
		}
		send(w, map[string]any{"total": 1, "rows": []map[string]any{{
			"id": 7, "asset_tag": "00007", "name": "ap-sw-101", "serial": "SN123",
			"model": map[string]any{"id": 3, "name": "AP-515"},
		}}})
	})
	mux.HandleFunc("GET /api/v1/locations", func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		var page []map[string]any
		for i := offset; i < f.locations && i < offset+limit; i++ {
			page = append(page, map[string]any{"id": i + 1, "name": "BLDG" + strconv.Itoa(i+1)})
		}
		send(w, map[string]any{"total": f.locations, "rows": page})
	})

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			send(w, map[string]any{"status": "error", "message": "Unauthorized."})
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func newTestClient(t *testing.T) (*Client, *fakeSnipe, *audit.MemoryLogger) {
	t.Helper()
	fake := newFakeSnipe(t)
	rec := audit.NewMemoryLogger()
	return NewClient(fake.URL, testToken, WithAuditLogger(rec)), fake, rec
}

func TestCreateAsset(t *testing.T) {
	c, fake, rec := newTestClient(t)
	asset, err := c.CreateAsset(context.Background(), 3, "AABBCCDDEEFF", "ap-sw-101", "SN999")
	require.NoError(t, err)
	assert.Equal(t, 42, asset.ID)
	assert.Equal(t, "00042", asset.AssetTag)
	assert.Equal(t, "00042", asset.PaddedID())

	calls := fake.Calls()
	require.Len(t, calls, 1)
	body := calls[0].Body
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", body[MACField])
	assert.EqualValues(t, StatusReadyToDeploy, body["status_id"])
	assert.EqualValues(t, 3, body["model_id"])

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.OpAssetCreate, events[0].Operation)
	assert.Equal(t, "ap-sw-101", events[0].Target)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", events[0].Details["mac"])
	assert.True(t, events[0].Success)
}

func TestCreateAssetErrors(t *testing.T) {
	c, fake, rec := newTestClient(t)

	_, err := c.CreateAsset(context.Background(), 3, "not-a-mac", "ap", "SN1")
	assert.ErrorIs(t, err, util.ErrValidationFailed)
	assert.Empty(t, fake.Calls(), "invalid MAC is never sent")

	_, err = c.CreateAsset(context.Background(), 3, "aa:bb:cc:dd:ee:ff", "ap", "DUP")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "asset_tag: The asset tag must be unique.; serial: The serial must be unique.", apiErr.Messages)
	require.Len(t, rec.Events(), 1)
	assert.False(t, rec.Events()[0].Success)
}

func TestCheckoutAsset(t *testing.T) {
	c, fake, rec := newTestClient(t)
	require.NoError(t, c.CheckoutAsset(context.Background(), 42, 5))

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "/api/v1/hardware/42/checkout", calls[0].Path)
	assert.Equal(t, "location", calls[0].Body["checkout_to_type"])
	assert.EqualValues(t, 5, calls[0].Body["assigned_location"])
	assert.EqualValues(t, StatusDeployed, calls[0].Body["status_id"])
	assert.Equal(t, http.MethodPut, calls[1].Method)
	assert.EqualValues(t, StatusDeployed, calls[1].Body["status_id"])

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.OpAssetCheckout, events[0].Operation)
	assert.Equal(t, "5", events[0].Details["location_id"])
}

func TestCheckoutAssetFailureSkipsStatus(t *testing.T) {
	c, fake, rec := newTestClient(t)
	err := c.CheckoutAsset(context.Background(), 404, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Asset does not exist.")
	assert.Len(t, fake.Calls(), 1)
	assert.False(t, rec.Events()[0].Success)
}

func TestAssetBySerial(t *testing.T) {
	c, _, _ := newTestClient(t)
	assets, err := c.AssetBySerial(context.Background(), "SN123")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "00007", assets[0].PaddedID())
	require.NotNil(t, assets[0].Model)
	assert.Equal(t, "AP-515", assets[0].Model.Name)

	_, err = c.AssetBySerial(context.Background(), "nope")
	assert.True(t, errors.Is(err, util.ErrNotFound))
}

func TestLocationsPaginate(t *testing.T) {
	c, fake, _ := newTestClient(t)
	fake.locations = locationPageSize + 2

	locations, err := c.Locations(context.Background())
	require.NoError(t, err)
	assert.Len(t, locations, locationPageSize+2)

	l, err := c.LocationByName(context.Background(), "BLDG501")
	require.NoError(t, err)
	assert.Equal(t, 501, l.ID)
	assert.Equal(t, "BLDG501", LocationNames(locations)[501])

	_, err = c.LocationByName(context.Background(), "NOWHERE")
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestUnauthorized(t *testing.T) {
	fake := newFakeSnipe(t)
	c := NewClient(fake.URL, "wrong")
	_, err := c.Locations(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Unauthorized.", apiErr.Messages)
}

func TestMessagesText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", ``, ""},
		{"string", `"Asset created"`, "Asset created"},
		{"fields", `{"b":["two"],"a":["one","more"]}`, "a: one more; b: two"},
		{"other", `42`, "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, messagesText(json.RawMessage(tt.raw)))
		})
	}
}
