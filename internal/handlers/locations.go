package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jwebster45206/lootmap/internal/locations"
	"github.com/jwebster45206/lootmap/pkg/location"
)

type LocationsHandler struct {
	store  *locations.Store
	logger *slog.Logger
}

func NewLocationsHandler(store *locations.Store, logger *slog.Logger) *LocationsHandler {
	return &LocationsHandler{
		store:  store,
		logger: logger,
	}
}

// CreateLocationRequest is the body of POST /v1/locations
type CreateLocationRequest struct {
	Name   string                `json:"name"`
	Coords *location.Coordinates `json:"coords"`
	Looted bool                  `json:"looted"`
}

// CreateLocationResponse echoes the stored instance
type CreateLocationResponse struct {
	Name     string            `json:"name"`
	Instance location.Instance `json:"instance"`
}

// UpdateLootRequest is the body of PATCH /v1/locations/{name}[/{index}]
type UpdateLootRequest struct {
	Looted *bool `json:"looted"`
}

type UpdateLootResponse struct {
	Name    string                `json:"name"`
	Changes []location.LootChange `json:"changes"`
}

type ListResponse struct {
	Locations []location.Location `json:"locations"`
	Stats     location.Stats      `json:"stats"`
}

// ServeHTTP routes location requests
// Routes:
// GET /v1/locations?looted=true|false   - List locations
// POST /v1/locations                    - Add an instance
// GET /v1/locations/{name}[/{index}]    - Read a location or one instance
// PATCH /v1/locations/{name}[/{index}]  - Set the looted flag
// DELETE /v1/locations/{name}[/{index}] - Remove a location or one instance
func (h *LocationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Split before unescaping so names may contain an encoded slash
	path := strings.Trim(strings.TrimPrefix(r.URL.EscapedPath(), "/v1/locations"), "/")
	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, POST")
		}
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) > 2 {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid path. Expected /v1/locations/{name}[/{index}]")
		return
	}
	name, err := url.PathUnescape(parts[0])
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid location name in path")
		return
	}
	index := 0
	if len(parts) == 2 {
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Index must be a whole number")
			return
		}
		index = n
	}
	hasIndex := len(parts) == 2

	switch r.Method {
	case http.MethodGet:
		h.handleRead(w, name, index, hasIndex)
	case http.MethodPatch:
		h.handlePatch(w, r, name, index, hasIndex)
	case http.MethodDelete:
		h.handleDelete(w, r, name, index, hasIndex)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, PATCH, DELETE")
	}
}

func (h *LocationsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	var looted *bool
	if raw := r.URL.Query().Get("looted"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "looted must be true or false")
			return
		}
		looted = &v
	}

	locs := h.store.List(locations.FilterFor(looted))
	if locs == nil {
		locs = []location.Location{}
	}
	writeJSON(w, h.logger, http.StatusOK, ListResponse{
		Locations: locs,
		Stats:     h.store.Stats(),
	})
}

func (h *LocationsHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid create location request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Coords == nil {
		writeError(w, h.logger, http.StatusBadRequest, "coords are required")
		return
	}

	inst, err := h.store.Add(r.Context(), req.Name, *req.Coords, req.Looted)
	if err != nil {
		writeStoreError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, CreateLocationResponse{
		Name:     location.NormalizeName(req.Name),
		Instance: inst,
	})
}

func (h *LocationsHandler) handleRead(w http.ResponseWriter, name string, index int, hasIndex bool) {
	if hasIndex {
		inst, err := h.store.GetInstance(name, index)
		if err != nil {
			writeStoreError(w, h.logger, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, inst)
		return
	}

	loc, err := h.store.Get(name)
	if err != nil {
		writeStoreError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, loc)
}

func (h *LocationsHandler) handlePatch(w http.ResponseWriter, r *http.Request, name string, index int, hasIndex bool) {
	var req UpdateLootRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Looted == nil {
		writeError(w, h.logger, http.StatusBadRequest, "looted is required")
		return
	}

	var changes []location.LootChange
	if hasIndex {
		change, err := h.store.SetInstanceLooted(r.Context(), name, index, *req.Looted)
		if err != nil {
			writeStoreError(w, h.logger, err)
			return
		}
		changes = []location.LootChange{change}
	} else {
		var err error
		if changes, err = h.store.SetLooted(r.Context(), name, *req.Looted); err != nil {
			writeStoreError(w, h.logger, err)
			return
		}
	}
	writeJSON(w, h.logger, http.StatusOK, UpdateLootResponse{
		Name:    location.NormalizeName(name),
		Changes: changes,
	})
}

func (h *LocationsHandler) handleDelete(w http.ResponseWriter, r *http.Request, name string, index int, hasIndex bool) {
	var (
		removal locations.Removal
		err     error
	)
	if hasIndex {
		removal, err = h.store.RemoveInstance(r.Context(), name, index)
	} else {
		removal, err = h.store.Remove(r.Context(), name)
	}
	if err != nil {
		writeStoreError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, removal)
}

// StatsHandler serves GET /v1/stats
type StatsHandler struct {
	store  *locations.Store
	logger *slog.Logger
}

func NewStatsHandler(store *locations.Store, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{store: store, logger: logger}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.store.Stats())
}
