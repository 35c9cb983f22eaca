package location

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Coordinates is a point in the world. Values are stored as given, no
// rounding or block snapping.
type Coordinates struct {
	X float64
	Y float64
	Z float64
}

// NewCoordinates validates and returns a coordinate triple.
func NewCoordinates(x, y, z float64) (Coordinates, error) {
	c := Coordinates{X: x, Y: y, Z: z}
	if err := c.Validate(); err != nil {
		return Coordinates{}, err
	}
	return c, nil
}

// ParseCoordinates builds coordinates from user-supplied text such as
// chat command arguments.
func ParseCoordinates(x, y, z string) (Coordinates, error) {
	var vals [3]float64
	for i, raw := range []string{x, y, z} {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Coordinates{}, &ValidationError{Field: axisNames[i], Reason: fmt.Sprintf("%q is not a number", raw)}
		}
		vals[i] = v
	}
	return NewCoordinates(vals[0], vals[1], vals[2])
}

var axisNames = [3]string{"x", "y", "z"}

// Validate rejects values that cannot be written to the JSON document.
func (c Coordinates) Validate() error {
	for i, v := range c.slice() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{Field: axisNames[i], Reason: "must be a finite number"}
		}
	}
	return nil
}

func (c Coordinates) slice() []float64 {
	return []float64{c.X, c.Y, c.Z}
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%s, %s, %s", formatAxis(c.X), formatAxis(c.Y), formatAxis(c.Z))
}

// TeleportCommand returns the in-game command to reach these coordinates.
func (c Coordinates) TeleportCommand() string {
	return fmt.Sprintf("/tp %s %s %s", formatAxis(c.X), formatAxis(c.Y), formatAxis(c.Z))
}

func formatAxis(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// MarshalJSON writes coordinates as [x, y, z].
func (c Coordinates) MarshalJSON() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(c.slice())
}

// UnmarshalJSON reads a three element numeric array.
func (c *Coordinates) UnmarshalJSON(data []byte) error {
	var vals []float64
	if err := json.Unmarshal(data, &vals); err != nil {
		return fmt.Errorf("coordinates must be a numeric array: %w", err)
	}
	if len(vals) != 3 {
		return fmt.Errorf("coordinates must have exactly 3 values, got %d", len(vals))
	}
	c.X, c.Y, c.Z = vals[0], vals[1], vals[2]
	return nil
}

// Instance is one occurrence of a location, e.g. a single ocean monument.
// Index is the 1-based position within its location and is only set on
// values handed out by the store.
type Instance struct {
	Index  int         `json:"index,omitempty"`
	Coords Coordinates `json:"coords"`
	Looted bool        `json:"looted"`
}

// StatusText is the human readable loot state.
func (i Instance) StatusText() string {
	if i.Looted {
		return "Looted"
	}
	return "Available"
}

// Location is a named set of instances in insertion order.
type Location struct {
	Name      string     `json:"name"`
	Instances []Instance `json:"instances"`
}

// DisplayName is the title-cased name, e.g. "Ocean Monument".
func (l Location) DisplayName() string {
	return DisplayName(l.Name)
}

// AvailableCount returns the number of unlooted instances.
func (l Location) AvailableCount() int {
	n := 0
	for _, inst := range l.Instances {
		if !inst.Looted {
			n++
		}
	}
	return n
}

// LootedCount returns the number of looted instances.
func (l Location) LootedCount() int {
	return len(l.Instances) - l.AvailableCount()
}

// Stats summarises the whole mapping.
type Stats struct {
	LocationTypes  int `json:"location_types"`
	TotalInstances int `json:"total_instances"`
	Available      int `json:"available"`
	Looted         int `json:"looted"`
}

// LootChange records a looted flag transition on one instance.
type LootChange struct {
	Index int  `json:"index"`
	Old   bool `json:"old"`
	New   bool `json:"new"`
}
