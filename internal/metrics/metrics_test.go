package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/lootmap/internal/locations"
	"github.com/jwebster45206/lootmap/internal/services/events"
	"github.com/jwebster45206/lootmap/pkg/location"
	"github.com/jwebster45206/lootmap/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func TestRecorder_CountsEventsAndStats(t *testing.T) {
	rec := NewRecorder()
	bus := events.NewBus(testLogger())
	mock := storage.NewMockStorage()
	store := locations.NewStore(Instrument(mock, rec), bus, testLogger())
	rec.Attach(bus, store.Stats)

	ctx := context.Background()
	_, err := store.Add(ctx, "village", location.Coordinates{X: 1, Y: 2, Z: 3}, false)
	require.NoError(t, err)
	_, err = store.Add(ctx, "village", location.Coordinates{X: 4, Y: 5, Z: 6}, true)
	require.NoError(t, err)
	_, err = store.RemoveInstance(ctx, "village", 1)
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.eventsTotal.WithLabelValues("location_added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.eventsTotal.WithLabelValues("location_removed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.locationTypes))
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.instances.WithLabelValues("available")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.instances.WithLabelValues("looted")))
	assert.Equal(t, 3.0, testutil.ToFloat64(rec.storageResults.WithLabelValues("save", "success")))
}

func TestInstrumentedStorage_RecordsFailures(t *testing.T) {
	rec := NewRecorder()
	mock := storage.NewMockStorage()
	st := Instrument(mock, rec)
	ctx := context.Background()

	mock.SetSaveError(errors.New("disk full"))
	err := st.Save(ctx, storage.Document{})
	assert.ErrorIs(t, err, location.ErrStorage)

	mock.SetPingError(errors.New("unreachable"))
	assert.Error(t, st.Ping(ctx))

	_, _, err = st.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.storageResults.WithLabelValues("save", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.storageResults.WithLabelValues("ping", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.storageResults.WithLabelValues("load", "success")))
	assert.Equal(t, 3, testutil.CollectAndCount(rec.storageDuration))
}

func TestRecorder_Handler(t *testing.T) {
	rec := NewRecorder()
	rec.ObserveStorage("save", true, 0)
	rec.SetStats(location.Stats{LocationTypes: 2, TotalInstances: 3, Available: 2, Looted: 1})

	rr := httptest.NewRecorder()
	rec.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`lootmap_storage_operations_total{operation="save",status="success"} 1`,
		"lootmap_location_types 2",
		`lootmap_location_instances{state="available"} 2`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected metrics output to contain %q", want)
		}
	}
}
