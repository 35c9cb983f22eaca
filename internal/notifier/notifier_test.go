package notifier

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/lootmap/internal/services/events"
	"github.com/jwebster45206/lootmap/pkg/location"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

type recordingSink struct {
	mu  sync.Mutex
	got []Announcement
	ch  chan Announcement
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ch: make(chan Announcement, 8)}
}

func (s *recordingSink) Announce(ctx context.Context, a Announcement) error {
	s.mu.Lock()
	s.got = append(s.got, a)
	s.mu.Unlock()
	s.ch <- a
	return nil
}

func TestRender(t *testing.T) {
	coords := location.Coordinates{X: -800, Y: 30, Z: 1200}
	tests := []struct {
		name     string
		event    events.Event
		expected string
		ok       bool
	}{
		{
			name:     "added",
			event:    events.LocationAdded{Name: "stronghold", Index: 1, Instance: location.Instance{Index: 1, Coords: coords}},
			expected: "New location: Stronghold #1 at -800, 30, 1200 (Available)",
			ok:       true,
		},
		{
			name:     "instance removed",
			event:    events.LocationRemoved{Name: "ocean_monument", Index: 2, Remaining: 1},
			expected: "Removed Ocean Monument #2, 1 remaining",
			ok:       true,
		},
		{
			name:     "location removed",
			event:    events.LocationRemoved{Name: "village", Removed: make([]location.Instance, 3)},
			expected: "Removed Village (3 instance(s))",
			ok:       true,
		},
		{
			name: "loot changed",
			event: events.LootUpdated{Name: "village", Changes: []location.LootChange{
				{Index: 1, Old: false, New: true},
				{Index: 2, Old: true, New: true},
			}},
			expected: "Village: #1 Looted",
			ok:       true,
		},
		{
			name:  "loot unchanged",
			event: events.LootUpdated{Name: "village", Changes: []location.LootChange{{Index: 1, Old: true, New: true}}},
		},
		{
			name:  "loaded",
			event: events.LocationsLoaded{Locations: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := Render(tt.event)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, text)
		})
	}
}

func TestListener_RelaysBroadcastEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sink := newRecordingSink()
	listener := NewListener(client, "", sink, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()

	// Wait until the listener is subscribed
	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels(events.DefaultChannel)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	bus := events.NewBus(testLogger())
	events.NewBroadcaster(client, "", testLogger()).Attach(bus)

	client.Publish(context.Background(), events.DefaultChannel, "garbage")
	bus.Emit(context.Background(), events.LocationAdded{
		Name:     "village",
		Index:    1,
		Instance: location.Instance{Index: 1, Coords: location.Coordinates{X: 1, Y: 2, Z: 3}},
	})

	select {
	case a := <-sink.ch:
		assert.Equal(t, events.KindLocationAdded, a.Kind)
		assert.Equal(t, "New location: Village #1 at 1, 2, 3 (Available)", a.Text)
		assert.NotEmpty(t, a.EventID)
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for announcement")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Listener did not stop")
	}
}
