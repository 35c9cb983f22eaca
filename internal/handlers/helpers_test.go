package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/jwebster45206/lootmap/internal/locations"
	"github.com/jwebster45206/lootmap/internal/services/events"
	"github.com/jwebster45206/lootmap/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

type testEnv struct {
	mock  *storage.MockStorage
	bus   *events.Bus
	store *locations.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mock := storage.NewMockStorage()
	bus := events.NewBus(testLogger())
	return &testEnv{
		mock:  mock,
		bus:   bus,
		store: locations.NewStore(mock, bus, testLogger()),
	}
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				t.Fatalf("Failed to encode request body: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}
