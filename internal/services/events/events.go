package events

import (
	"github.com/jwebster45206/lootmap/pkg/location"
)

// Kind identifies an event type
type Kind string

const (
	KindLocationAdded   Kind = "location_added"
	KindLocationRemoved Kind = "location_removed"
	KindLootUpdated     Kind = "loot_updated"
	KindLocationsLoaded Kind = "locations_loaded"
)

// LocationKinds are the kinds emitted for store mutations
var LocationKinds = []Kind{KindLocationAdded, KindLocationRemoved, KindLootUpdated}

// Event is implemented by every payload the bus carries. Each payload type
// maps to exactly one Kind.
type Event interface {
	Kind() Kind
}

// LocationAdded is emitted after a new instance was persisted
type LocationAdded struct {
	Name     string            `json:"name"`
	Index    int               `json:"index"`
	Instance location.Instance `json:"instance"`
}

func (LocationAdded) Kind() Kind { return KindLocationAdded }

// LocationRemoved is emitted after instances were removed. Index is zero
// when the whole location was removed.
type LocationRemoved struct {
	Name      string              `json:"name"`
	Index     int                 `json:"index,omitempty"`
	Removed   []location.Instance `json:"removed"`
	Remaining int                 `json:"remaining"`
}

func (LocationRemoved) Kind() Kind { return KindLocationRemoved }

// LootUpdated is emitted after looted flags were persisted
type LootUpdated struct {
	Name    string                `json:"name"`
	Changes []location.LootChange `json:"changes"`
}

func (LootUpdated) Kind() Kind { return KindLootUpdated }

// LocationsLoaded is emitted once the store has read its document
type LocationsLoaded struct {
	Locations int  `json:"locations"`
	Instances int  `json:"instances"`
	Migrated  bool `json:"migrated"`
}

func (LocationsLoaded) Kind() Kind { return KindLocationsLoaded }
