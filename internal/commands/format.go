package commands

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/lootmap/pkg/location"
)

// FormatLocation renders a location with one line per instance
func FormatLocation(loc location.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %d instance(s)", loc.DisplayName(), len(loc.Instances))
	for _, inst := range loc.Instances {
		fmt.Fprintf(&b, "\n#%d %s (%s) %s", inst.Index, inst.Coords, inst.StatusText(), inst.Coords.TeleportCommand())
	}
	return b.String()
}

func FormatLocations(locs []location.Location) string {
	parts := make([]string, len(locs))
	for i, loc := range locs {
		parts[i] = FormatLocation(loc)
	}
	return strings.Join(parts, "\n\n")
}

func FormatList(locs []location.Location, stats location.Stats) string {
	if len(locs) == 0 {
		return "No locations saved yet. Use !loc add to create some!"
	}
	return FormatLocations(locs) + "\n\n" + FormatStats(stats)
}

// FormatStats renders the one line summary
func FormatStats(s location.Stats) string {
	return fmt.Sprintf("%d location types, %d total instances. %d available, %d looted",
		s.LocationTypes, s.TotalInstances, s.Available, s.Looted)
}

func FormatLootChanges(key string, changes []location.LootChange) string {
	name := location.DisplayName(key)
	if len(changes) == 1 {
		c := changes[0]
		return fmt.Sprintf("%s #%d: %s -> %s", name, c.Index, statusText(c.Old), statusText(c.New))
	}
	lines := make([]string, 0, len(changes)+1)
	lines = append(lines, fmt.Sprintf("Updated %d instance(s) of %s", len(changes), name))
	for _, c := range changes {
		lines = append(lines, fmt.Sprintf("#%d: %s -> %s", c.Index, statusText(c.Old), statusText(c.New)))
	}
	return strings.Join(lines, "\n")
}

func statusText(looted bool) string {
	return location.Instance{Looted: looted}.StatusText()
}
