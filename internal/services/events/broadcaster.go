package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Pub/Sub channel location events are published on
const DefaultChannel = "lootmap:events"

// Envelope is the wire format published to Redis
type Envelope struct {
	ID        string    `json:"id"`
	Type      Kind      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      Event     `json:"data"`
}

// Broadcaster relays bus events to Redis Pub/Sub so listeners outside the
// process (the Discord responder) can react to location changes.
type Broadcaster struct {
	redisClient *redis.Client
	channel     string
	logger      *slog.Logger
	subs        []Subscription
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, channel string, logger *slog.Logger) *Broadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Broadcaster{
		redisClient: redisClient,
		channel:     channel,
		logger:      logger,
	}
}

// Attach subscribes the broadcaster to every location kind on bus
func (b *Broadcaster) Attach(bus *Bus) {
	kinds := []Kind{KindLocationAdded, KindLocationRemoved, KindLootUpdated, KindLocationsLoaded}
	for _, kind := range kinds {
		b.subs = append(b.subs, bus.Subscribe(kind, "redis-broadcaster", b.Publish))
	}
}

// Detach removes the broadcaster's subscriptions
func (b *Broadcaster) Detach(bus *Bus) {
	for _, sub := range b.subs {
		bus.Unsubscribe(sub)
	}
	b.subs = nil
}

// Publish sends a single event to the channel
func (b *Broadcaster) Publish(ctx context.Context, ev Event) error {
	envelope := Envelope{
		ID:        uuid.NewString(),
		Type:      ev.Kind(),
		Timestamp: time.Now().UTC(),
		Data:      ev,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "type", envelope.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", b.channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", b.channel,
		"event_type", envelope.Type,
		"event_id", envelope.ID,
	)

	return nil
}
