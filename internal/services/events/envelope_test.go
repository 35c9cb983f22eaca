package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/lootmap/pkg/location"
)

func TestDecodeEnvelope(t *testing.T) {
	ts := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		data Event
	}{
		{"added", LocationAdded{Name: "village", Index: 2, Instance: location.Instance{Index: 2, Coords: location.Coordinates{X: 1, Y: 2, Z: 3}}}},
		{"removed", LocationRemoved{Name: "village", Removed: []location.Instance{{Index: 1, Coords: location.Coordinates{X: 1, Y: 2, Z: 3}}}}},
		{"loot", LootUpdated{Name: "village", Changes: []location.LootChange{{Index: 1, Old: false, New: true}}}},
		{"loaded", LocationsLoaded{Locations: 3, Instances: 5, Migrated: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := json.Marshal(Envelope{ID: "id-1", Type: tt.data.Kind(), Timestamp: ts, Data: tt.data})
			require.NoError(t, err)

			env, err := DecodeEnvelope(payload)
			require.NoError(t, err)
			assert.Equal(t, "id-1", env.ID)
			assert.Equal(t, tt.data.Kind(), env.Type)
			assert.True(t, ts.Equal(env.Timestamp))
			assert.Equal(t, tt.data, env.Data)
		})
	}
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "nope"},
		{"unknown type", `{"id":"1","type":"server_crashed","data":{}}`},
		{"bad payload", `{"id":"1","type":"location_added","data":{"index":"two"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(tt.payload))
			assert.Error(t, err)
		})
	}
}
