// Package notifier turns location events broadcast over Redis Pub/Sub into
// announcements for players. It runs outside the API process.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/lootmap/internal/services/events"
	"github.com/jwebster45206/lootmap/pkg/location"
)

// Announcement is one message for players
type Announcement struct {
	EventID   string
	Kind      events.Kind
	Text      string
	Timestamp time.Time
}

// Sink delivers announcements, e.g. to a chat channel
type Sink interface {
	Announce(ctx context.Context, a Announcement) error
}

// LogSink writes announcements to the log
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Announce(ctx context.Context, a Announcement) error {
	s.Logger.Info("Announcement", "event_id", a.EventID, "kind", a.Kind, "text", a.Text)
	return nil
}

// Listener consumes broadcast envelopes from a Redis channel
type Listener struct {
	client  *redis.Client
	channel string
	sink    Sink
	logger  *slog.Logger
}

// NewListener creates a listener. An empty channel uses the broadcaster default.
func NewListener(client *redis.Client, channel string, sink Sink, logger *slog.Logger) *Listener {
	if channel == "" {
		channel = events.DefaultChannel
	}
	return &Listener{
		client:  client,
		channel: channel,
		sink:    sink,
		logger:  logger,
	}
}

// Run blocks until ctx is cancelled. Malformed messages are logged and
// skipped.
func (l *Listener) Run(ctx context.Context) error {
	pubsub := l.client.Subscribe(ctx, l.channel)
	defer func() {
		if err := pubsub.Close(); err != nil {
			l.logger.Error("Failed to close pubsub", "error", err)
		}
	}()

	// Wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", l.channel, err)
	}
	l.logger.Info("Listening for location events", "channel", l.channel)

	msgChan := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Listener stopping", "channel", l.channel)
			return nil

		case msg, ok := <-msgChan:
			if !ok {
				return fmt.Errorf("subscription to %s closed", l.channel)
			}
			l.handle(ctx, msg.Payload)
		}
	}
}

func (l *Listener) handle(ctx context.Context, payload string) {
	env, err := events.DecodeEnvelope([]byte(payload))
	if err != nil {
		l.logger.Error("Failed to decode event", "error", err, "payload", payload)
		return
	}

	text, ok := Render(env.Data)
	if !ok {
		l.logger.Debug("Event has no announcement", "event_type", env.Type, "event_id", env.ID)
		return
	}

	a := Announcement{EventID: env.ID, Kind: env.Type, Text: text, Timestamp: env.Timestamp}
	if err := l.sink.Announce(ctx, a); err != nil {
		l.logger.Error("Failed to deliver announcement", "error", err, "event_id", env.ID)
	}
}

// Render returns the player facing text for ev. Load events are not
// announced.
func Render(ev events.Event) (string, bool) {
	switch e := ev.(type) {
	case events.LocationAdded:
		return fmt.Sprintf("New location: %s #%d at %s (%s)",
			location.DisplayName(e.Name), e.Index, e.Instance.Coords, e.Instance.StatusText()), true

	case events.LocationRemoved:
		if e.Index == 0 {
			return fmt.Sprintf("Removed %s (%d instance(s))", location.DisplayName(e.Name), len(e.Removed)), true
		}
		return fmt.Sprintf("Removed %s #%d, %d remaining", location.DisplayName(e.Name), e.Index, e.Remaining), true

	case events.LootUpdated:
		parts := make([]string, 0, len(e.Changes))
		for _, c := range e.Changes {
			if c.Old == c.New {
				continue
			}
			parts = append(parts, fmt.Sprintf("#%d %s", c.Index, location.Instance{Looted: c.New}.StatusText()))
		}
		if len(parts) == 0 {
			return "", false
		}
		return fmt.Sprintf("%s: %s", location.DisplayName(e.Name), strings.Join(parts, ", ")), true
	}
	return "", false
}
