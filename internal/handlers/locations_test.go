package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/lootmap/internal/locations"
	"github.com/jwebster45206/lootmap/pkg/location"
)

func seed(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()
	for _, add := range []struct {
		name   string
		coords location.Coordinates
		looted bool
	}{
		{"village", location.Coordinates{X: 1, Y: 64, Z: 1}, false},
		{"village", location.Coordinates{X: 2, Y: 64, Z: 2}, true},
		{"stronghold", location.Coordinates{X: -800, Y: 30, Z: 1200}, false},
	} {
		_, err := env.store.Add(ctx, add.name, add.coords, add.looted)
		require.NoError(t, err)
	}
}

func TestLocationsHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
		expectedIndex  int
	}{
		{
			name:           "valid location",
			body:           map[string]interface{}{"name": "Ocean Monument", "coords": []float64{100, 62, -300}},
			expectedStatus: http.StatusCreated,
			expectedIndex:  1,
		},
		{
			name:           "missing coords",
			body:           map[string]interface{}{"name": "temple"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "two coordinates",
			body:           `{"name":"temple","coords":[1,2]}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "empty name",
			body:           map[string]interface{}{"name": "  ", "coords": []float64{1, 2, 3}},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed json",
			body:           `{"name":`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			h := NewLocationsHandler(env.store, testLogger())

			rr := doRequest(t, h, http.MethodPost, "/v1/locations", tt.body)
			if rr.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}

			if tt.expectedStatus == http.StatusCreated {
				var resp CreateLocationResponse
				decode(t, rr, &resp)
				assert.Equal(t, "ocean_monument", resp.Name)
				assert.Equal(t, tt.expectedIndex, resp.Instance.Index)
				assert.Equal(t, 1, env.mock.SaveCalls)
			} else {
				var resp ErrorResponse
				decode(t, rr, &resp)
				assert.NotEmpty(t, resp.Error)
				assert.Equal(t, 0, env.mock.SaveCalls)
			}
		})
	}
}

func TestLocationsHandler_List(t *testing.T) {
	env := newTestEnv(t)
	h := NewLocationsHandler(env.store, testLogger())

	rr := doRequest(t, h, http.MethodGet, "/v1/locations", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"locations":[],"stats":{"location_types":0,"total_instances":0,"available":0,"looted":0}}`, rr.Body.String())

	seed(t, env)

	var all ListResponse
	decode(t, doRequest(t, h, http.MethodGet, "/v1/locations", nil), &all)
	require.Len(t, all.Locations, 2)
	assert.Equal(t, "stronghold", all.Locations[0].Name)
	assert.Equal(t, 3, all.Stats.TotalInstances)

	var looted ListResponse
	decode(t, doRequest(t, h, http.MethodGet, "/v1/locations?looted=true", nil), &looted)
	require.Len(t, looted.Locations, 1)
	assert.Equal(t, "village", looted.Locations[0].Name)
	require.Len(t, looted.Locations[0].Instances, 1)
	assert.Equal(t, 2, looted.Locations[0].Instances[0].Index)

	rr = doRequest(t, h, http.MethodGet, "/v1/locations?looted=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLocationsHandler_Read(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)
	h := NewLocationsHandler(env.store, testLogger())

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{"whole location", "/v1/locations/village", http.StatusOK},
		{"display name", "/v1/locations/Village", http.StatusOK},
		{"instance", "/v1/locations/stronghold/1", http.StatusOK},
		{"unknown name", "/v1/locations/castle", http.StatusNotFound},
		{"index out of range", "/v1/locations/village/3", http.StatusNotFound},
		{"index zero", "/v1/locations/village/0", http.StatusNotFound},
		{"index not a number", "/v1/locations/village/one", http.StatusBadRequest},
		{"too deep", "/v1/locations/village/1/2", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, h, http.MethodGet, tt.path, nil)
			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
		})
	}

	var inst location.Instance
	decode(t, doRequest(t, h, http.MethodGet, "/v1/locations/stronghold/1", nil), &inst)
	assert.Equal(t, location.Coordinates{X: -800, Y: 30, Z: 1200}, inst.Coords)

	var nf ErrorResponse
	decode(t, doRequest(t, h, http.MethodGet, "/v1/locations/village/3", nil), &nf)
	assert.Equal(t, "invalid index 3 for location 'village'. Valid range: 1-2", nf.Error)
}

func TestLocationsHandler_Patch(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)
	h := NewLocationsHandler(env.store, testLogger())

	var one UpdateLootResponse
	rr := doRequest(t, h, http.MethodPatch, "/v1/locations/village/1", map[string]bool{"looted": true})
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &one)
	assert.Equal(t, []location.LootChange{{Index: 1, Old: false, New: true}}, one.Changes)

	var all UpdateLootResponse
	decode(t, doRequest(t, h, http.MethodPatch, "/v1/locations/village", map[string]bool{"looted": false}), &all)
	assert.Len(t, all.Changes, 2)

	loc, err := env.store.Get("village")
	require.NoError(t, err)
	assert.Equal(t, 2, loc.AvailableCount())

	rr = doRequest(t, h, http.MethodPatch, "/v1/locations/village", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLocationsHandler_Delete(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)
	h := NewLocationsHandler(env.store, testLogger())

	var removed locations.Removal
	rr := doRequest(t, h, http.MethodDelete, "/v1/locations/village/1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &removed)
	assert.Equal(t, 1, removed.Index)
	assert.Equal(t, 1, removed.Remaining)

	rr = doRequest(t, h, http.MethodDelete, "/v1/locations/stronghold", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, h, http.MethodGet, "/v1/locations/stronghold", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLocationsHandler_NameWithSlash(t *testing.T) {
	env := newTestEnv(t)
	h := NewLocationsHandler(env.store, testLogger())

	rr := doRequest(t, h, http.MethodPost, "/v1/locations", map[string]interface{}{"name": "nether/portal", "coords": []float64{8, 70, -8}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var loc location.Location
	rr = doRequest(t, h, http.MethodGet, "/v1/locations/nether%2Fportal", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decode(t, rr, &loc)
	assert.Equal(t, "nether/portal", loc.Name)

	rr = doRequest(t, h, http.MethodPatch, "/v1/locations/nether%2Fportal/1", map[string]bool{"looted": true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doRequest(t, h, http.MethodDelete, "/v1/locations/nether%2Fportal/1", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	_, err := env.store.Get("nether/portal")
	assert.ErrorIs(t, err, location.ErrNotFound)
}

func TestLocationsHandler_StorageFailure(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)
	env.mock.SetSaveError(errors.New("disk full"))
	h := NewLocationsHandler(env.store, testLogger())

	rr := doRequest(t, h, http.MethodDelete, "/v1/locations/village", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rr.Code)
	}

	_, err := env.store.Get("village")
	assert.NoError(t, err)
}

func TestLocationsHandler_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	h := NewLocationsHandler(env.store, testLogger())

	assert.Equal(t, http.StatusMethodNotAllowed, doRequest(t, h, http.MethodPut, "/v1/locations", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, doRequest(t, h, http.MethodPost, "/v1/locations/village", nil).Code)
}

func TestStatsHandler(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)
	h := NewStatsHandler(env.store, testLogger())

	rr := doRequest(t, h, http.MethodGet, "/v1/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var stats location.Stats
	decode(t, rr, &stats)
	assert.Equal(t, location.Stats{LocationTypes: 2, TotalInstances: 3, Available: 2, Looted: 1}, stats)

	assert.Equal(t, http.StatusMethodNotAllowed, doRequest(t, h, http.MethodPost, "/v1/stats", nil).Code)
}
