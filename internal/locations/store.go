// Package locations holds the in-memory location mapping and keeps it in
// step with persistent storage.
//
// Every mutation builds the next mapping without touching the current one,
// writes it through storage.Storage, and only swaps it in once the write
// succeeded. Events are emitted after the swap, so subscribers never see a
// change that was not persisted.
package locations

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/jwebster45206/lootmap/internal/services/events"
	"github.com/jwebster45206/lootmap/pkg/location"
	"github.com/jwebster45206/lootmap/pkg/storage"
)

// LootFilter narrows List to instances with a given loot state
type LootFilter int

const (
	FilterAll LootFilter = iota
	FilterLooted
	FilterUnlooted
)

// FilterFor maps an optional looted flag to a filter: nil lists everything.
func FilterFor(looted *bool) LootFilter {
	switch {
	case looted == nil:
		return FilterAll
	case *looted:
		return FilterLooted
	default:
		return FilterUnlooted
	}
}

func (f LootFilter) match(e storage.Entry) bool {
	switch f {
	case FilterLooted:
		return e.Looted
	case FilterUnlooted:
		return !e.Looted
	default:
		return true
	}
}

// Removal describes the outcome of a remove operation
type Removal struct {
	Name      string              `json:"name"`
	Index     int                 `json:"index,omitempty"`
	Removed   []location.Instance `json:"removed"`
	Remaining int                 `json:"remaining"`
}

// Store is the location store. It is safe for concurrent use, although the
// bot only ever drives it from one command at a time. Events reach
// subscribers in commit order; subscribers may read the store but must not
// mutate it.
type Store struct {
	mu        sync.Mutex
	storage   storage.Storage
	bus       *events.Bus
	logger    *slog.Logger
	locations storage.Document
	nextTurn  uint64

	emitMu   sync.Mutex
	emitCond *sync.Cond
	emitTurn uint64
}

// NewStore creates an empty store. Call Load to read persisted data.
func NewStore(st storage.Storage, bus *events.Bus, logger *slog.Logger) *Store {
	s := &Store{
		storage:   st,
		bus:       bus,
		logger:    logger,
		locations: storage.Document{},
	}
	s.emitCond = sync.NewCond(&s.emitMu)
	return s
}

// Load replaces the in-memory mapping with the persisted document
func (s *Store) Load(ctx context.Context) error {
	doc, schema, err := s.storage.Load(ctx)
	if err != nil {
		s.logger.Error("Failed to load locations", "error", err)
		return location.NewStorageError("load", err)
	}

	s.mu.Lock()
	s.locations = doc
	stats := statsOf(doc)
	done := s.handOff()
	defer done()

	migrated := schema == storage.SchemaLegacy
	s.logger.Info("Loaded locations",
		"location_types", stats.LocationTypes,
		"total_instances", stats.TotalInstances,
		"migrated", migrated)

	s.bus.Emit(ctx, events.LocationsLoaded{
		Locations: stats.LocationTypes,
		Instances: stats.TotalInstances,
		Migrated:  migrated,
	})
	return nil
}

// Add appends a new instance to the named location, creating it if needed.
// It returns the stored instance including its 1-based index.
func (s *Store) Add(ctx context.Context, name string, coords location.Coordinates, looted bool) (location.Instance, error) {
	key, err := location.ValidateName(name)
	if err != nil {
		return location.Instance{}, err
	}
	if err := coords.Validate(); err != nil {
		return location.Instance{}, err
	}

	s.mu.Lock()
	entries := append(append([]storage.Entry(nil), s.locations[key]...), storage.Entry{Coords: coords, Looted: looted})
	if err := s.commit(ctx, s.with(key, entries)); err != nil {
		s.mu.Unlock()
		return location.Instance{}, err
	}
	done := s.handOff()
	defer done()

	inst := location.Instance{Index: len(entries), Coords: coords, Looted: looted}
	s.logger.Info("Added location instance", "name", key, "index", inst.Index, "coords", coords.String())
	s.bus.Emit(ctx, events.LocationAdded{Name: key, Index: inst.Index, Instance: inst})
	return inst, nil
}

// Get returns the location with all of its instances
func (s *Store) Get(name string) (location.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, entries, err := s.lookup(name)
	if err != nil {
		return location.Location{}, err
	}
	return view(key, entries, FilterAll), nil
}

// GetInstance returns the instance at the 1-based index
func (s *Store) GetInstance(name string, index int) (location.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, entries, err := s.lookup(name)
	if err != nil {
		return location.Instance{}, err
	}
	if err := checkIndex(key, index, len(entries)); err != nil {
		return location.Instance{}, err
	}
	return instance(index, entries[index-1]), nil
}

// List returns every location sorted by name. With a filter other than
// FilterAll only matching instances are included, each keeping its index,
// and locations without a match are left out.
func (s *Store) List(filter LootFilter) []location.Location {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]location.Location, 0, len(s.locations))
	for _, key := range sortedKeys(s.locations) {
		loc := view(key, s.locations[key], filter)
		if len(loc.Instances) > 0 {
			out = append(out, loc)
		}
	}
	return out
}

// Remove deletes the location and all of its instances
func (s *Store) Remove(ctx context.Context, name string) (Removal, error) {
	s.mu.Lock()
	key, entries, err := s.lookup(name)
	if err != nil {
		s.mu.Unlock()
		return Removal{}, err
	}
	if err := s.commit(ctx, s.with(key, nil)); err != nil {
		s.mu.Unlock()
		return Removal{}, err
	}
	done := s.handOff()
	defer done()

	removal := Removal{Name: key, Removed: view(key, entries, FilterAll).Instances}
	s.logger.Info("Removed location", "name", key, "instances", len(entries))
	s.bus.Emit(ctx, events.LocationRemoved{Name: key, Removed: removal.Removed})
	return removal, nil
}

// RemoveInstance deletes the instance at the 1-based index. Later instances
// shift down by one. Removing the last instance removes the location.
func (s *Store) RemoveInstance(ctx context.Context, name string, index int) (Removal, error) {
	s.mu.Lock()
	key, entries, err := s.lookup(name)
	if err != nil {
		s.mu.Unlock()
		return Removal{}, err
	}
	if err := checkIndex(key, index, len(entries)); err != nil {
		s.mu.Unlock()
		return Removal{}, err
	}

	remaining := make([]storage.Entry, 0, len(entries)-1)
	remaining = append(remaining, entries[:index-1]...)
	remaining = append(remaining, entries[index:]...)
	if err := s.commit(ctx, s.with(key, remaining)); err != nil {
		s.mu.Unlock()
		return Removal{}, err
	}
	done := s.handOff()
	defer done()

	removal := Removal{
		Name:      key,
		Index:     index,
		Removed:   []location.Instance{instance(index, entries[index-1])},
		Remaining: len(remaining),
	}
	s.logger.Info("Removed location instance", "name", key, "index", index, "remaining", removal.Remaining)
	s.bus.Emit(ctx, events.LocationRemoved{
		Name:      key,
		Index:     index,
		Removed:   removal.Removed,
		Remaining: removal.Remaining,
	})
	return removal, nil
}

// SetLooted updates the looted flag on every instance of the location
func (s *Store) SetLooted(ctx context.Context, name string, looted bool) ([]location.LootChange, error) {
	return s.setLooted(ctx, name, looted, 0, true)
}

// SetInstanceLooted updates the looted flag on the instance at the 1-based index
func (s *Store) SetInstanceLooted(ctx context.Context, name string, index int, looted bool) (location.LootChange, error) {
	changes, err := s.setLooted(ctx, name, looted, index, false)
	if err != nil {
		return location.LootChange{}, err
	}
	return changes[0], nil
}

func (s *Store) setLooted(ctx context.Context, name string, looted bool, index int, all bool) ([]location.LootChange, error) {
	s.mu.Lock()
	key, entries, err := s.lookup(name)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if !all {
		if err := checkIndex(key, index, len(entries)); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}

	updated := append([]storage.Entry(nil), entries...)
	var changes []location.LootChange
	for i := range updated {
		if !all && i != index-1 {
			continue
		}
		changes = append(changes, location.LootChange{Index: i + 1, Old: updated[i].Looted, New: looted})
		updated[i].Looted = looted
	}
	if err := s.commit(ctx, s.with(key, updated)); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	done := s.handOff()
	defer done()

	s.logger.Info("Updated loot status", "name", key, "looted", looted, "instances", len(changes))
	s.bus.Emit(ctx, events.LootUpdated{Name: key, Changes: changes})
	return changes, nil
}

// Stats counts locations and instances by loot state
func (s *Store) Stats() location.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return statsOf(s.locations)
}

// Names returns the display names of all locations, sorted
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := sortedKeys(s.locations)
	names := make([]string, len(keys))
	for i, key := range keys {
		names[i] = location.DisplayName(key)
	}
	return names
}

// Search returns locations whose name contains query, ignoring case
func (s *Store) Search(query string) []location.Location {
	needle := location.NormalizeName(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []location.Location
	for _, key := range sortedKeys(s.locations) {
		if strings.Contains(key, needle) {
			out = append(out, view(key, s.locations[key], FilterAll))
		}
	}
	return out
}

// Available returns the locations that still have an unlooted instance,
// with all of their instances
func (s *Store) Available() []location.Location {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []location.Location
	for _, key := range sortedKeys(s.locations) {
		loc := view(key, s.locations[key], FilterAll)
		if loc.AvailableCount() > 0 {
			out = append(out, loc)
		}
	}
	return out
}

// Backup asks storage for a copy of the persisted document
func (s *Store) Backup(ctx context.Context) (string, error) {
	name, err := s.storage.Backup(ctx)
	if err != nil {
		s.logger.Error("Failed to back up locations", "error", err)
		return "", location.NewStorageError("backup", err)
	}
	s.logger.Info("Backed up locations", "backup", name)
	return name, nil
}

// lookup must be called with mu held
func (s *Store) lookup(name string) (string, []storage.Entry, error) {
	key, err := location.ValidateName(name)
	if err != nil {
		return "", nil, err
	}
	entries, ok := s.locations[key]
	if !ok || len(entries) == 0 {
		return "", nil, &location.NotFoundError{Name: key}
	}
	return key, entries, nil
}

// with returns a shallow copy of the mapping with key set to entries, or
// removed when entries is empty. Entry slices are never mutated in place,
// so sharing them between generations is safe.
func (s *Store) with(key string, entries []storage.Entry) storage.Document {
	next := make(storage.Document, len(s.locations)+1)
	for k, v := range s.locations {
		next[k] = v
	}
	if len(entries) == 0 {
		delete(next, key)
	} else {
		next[key] = entries
	}
	return next
}

// commit persists next and swaps it in. Must be called with mu held.
// handOff releases mu and waits until every earlier commit has emitted.
// The caller must hold mu and call done once its events are out.
func (s *Store) handOff() (done func()) {
	turn := s.nextTurn
	s.nextTurn++
	s.mu.Unlock()

	s.emitMu.Lock()
	for s.emitTurn != turn {
		s.emitCond.Wait()
	}
	s.emitMu.Unlock()

	return func() {
		s.emitMu.Lock()
		s.emitTurn++
		s.emitCond.Broadcast()
		s.emitMu.Unlock()
	}
}

func (s *Store) commit(ctx context.Context, next storage.Document) error {
	if err := s.storage.Save(ctx, next); err != nil {
		s.logger.Error("Failed to persist locations, keeping previous state", "error", err)
		return location.NewStorageError("save", err)
	}
	s.locations = next
	return nil
}

func checkIndex(key string, index, count int) error {
	if index < 1 || index > count {
		return &location.NotFoundError{Name: key, Index: index, Count: count}
	}
	return nil
}

func instance(index int, e storage.Entry) location.Instance {
	return location.Instance{Index: index, Coords: e.Coords, Looted: e.Looted}
}

func view(key string, entries []storage.Entry, filter LootFilter) location.Location {
	loc := location.Location{Name: key, Instances: make([]location.Instance, 0, len(entries))}
	for i, e := range entries {
		if filter.match(e) {
			loc.Instances = append(loc.Instances, instance(i+1, e))
		}
	}
	return loc
}

func sortedKeys(doc storage.Document) []string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func statsOf(doc storage.Document) location.Stats {
	stats := location.Stats{LocationTypes: len(doc)}
	for _, entries := range doc {
		for _, e := range entries {
			stats.TotalInstances++
			if e.Looted {
				stats.Looted++
			} else {
				stats.Available++
			}
		}
	}
	return stats
}
