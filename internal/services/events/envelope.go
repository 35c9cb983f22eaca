package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// rawEnvelope defers decoding Data until Type is known
type rawEnvelope struct {
	ID        string          `json:"id"`
	Type      Kind            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a message published by Broadcaster. Data holds the
// concrete payload type for the envelope's kind.
func DecodeEnvelope(payload []byte) (Envelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	var (
		ev  Event
		err error
	)
	switch raw.Type {
	case KindLocationAdded:
		ev, err = decodeData[LocationAdded](raw.Data)
	case KindLocationRemoved:
		ev, err = decodeData[LocationRemoved](raw.Data)
	case KindLootUpdated:
		ev, err = decodeData[LootUpdated](raw.Data)
	case KindLocationsLoaded:
		ev, err = decodeData[LocationsLoaded](raw.Data)
	default:
		return Envelope{}, fmt.Errorf("unknown event type %q", raw.Type)
	}
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal %s payload: %w", raw.Type, err)
	}

	return Envelope{
		ID:        raw.ID,
		Type:      raw.Type,
		Timestamp: raw.Timestamp,
		Data:      ev,
	}, nil
}

func decodeData[E Event](data json.RawMessage) (Event, error) {
	var ev E
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}
