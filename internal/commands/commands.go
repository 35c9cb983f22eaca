// Package commands implements the chat command surface for locations.
// Front-ends (the Discord responder, the HTTP API) hand it the raw text of
// a "!loc" command and post the returned reply.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/jwebster45206/lootmap/internal/locations"
	"github.com/jwebster45206/lootmap/pkg/location"
)

// Prefix starts every location command
const Prefix = "!loc"

// quoted args: !loc add "ocean monument" 1 2 3
var reArg = regexp.MustCompile(`"([^"]*)"|(\S+)`)

var helpLines = []string{
	"!loc add <name> <x> <y> <z> [looted]",
	"!loc get <name> [index]",
	"!loc list [looted|unlooted|all]",
	"!loc remove <name> [index]",
	"!loc loot <name> <true|false> [index]",
	"!loc search <query>",
	"!loc available",
	"!loc stats",
	"!loc backup",
	"!loc help",
}

// Dispatcher parses commands and runs them against a store
type Dispatcher struct {
	store  *locations.Store
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher for store
func NewDispatcher(store *locations.Store, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{store: store, logger: logger}
}

// IsCommand reports whether text is addressed to this dispatcher
func IsCommand(text string) bool {
	fields := splitArgs(text)
	return len(fields) > 0 && strings.EqualFold(fields[0], Prefix)
}

// Handle runs one command and returns the reply to post. Expected
// failures (bad input, unknown names, storage trouble) become friendly
// replies; err is only set when text is not a location command at all.
func (d *Dispatcher) Handle(ctx context.Context, text string) (string, error) {
	fields := splitArgs(strings.TrimSpace(text))
	if len(fields) == 0 || !strings.EqualFold(fields[0], Prefix) {
		return "", fmt.Errorf("not a location command: %q", text)
	}
	if len(fields) == 1 {
		return d.help(), nil
	}

	sub := strings.ToLower(fields[1])
	args := fields[2:]
	d.logger.Debug("Handling location command", "command", sub, "args", args)

	reply, err := d.run(ctx, sub, args)
	if err != nil {
		return d.renderError(sub, err), nil
	}
	return reply, nil
}

func (d *Dispatcher) run(ctx context.Context, sub string, args []string) (string, error) {
	switch sub {
	case "help":
		return d.help(), nil

	case "add":
		if len(args) < 4 || len(args) > 5 {
			return "", usage("add <name> <x> <y> <z> [looted]")
		}
		coords, err := location.ParseCoordinates(args[1], args[2], args[3])
		if err != nil {
			return "", err
		}
		looted := false
		if len(args) == 5 {
			if looted, err = parseBool("looted", args[4]); err != nil {
				return "", err
			}
		}
		inst, err := d.store.Add(ctx, args[0], coords, looted)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Added %s #%d at %s (%s)\nTeleport: %s",
			location.DisplayName(location.NormalizeName(args[0])), inst.Index, inst.Coords, inst.StatusText(), inst.Coords.TeleportCommand()), nil

	case "get":
		if len(args) < 1 || len(args) > 2 {
			return "", usage("get <name> [index]")
		}
		if len(args) == 2 {
			index, err := parseIndex(args[1])
			if err != nil {
				return "", err
			}
			inst, err := d.store.GetInstance(args[0], index)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s #%d: %s (%s)\nTeleport: %s",
				location.DisplayName(location.NormalizeName(args[0])), inst.Index, inst.Coords, inst.StatusText(), inst.Coords.TeleportCommand()), nil
		}
		loc, err := d.store.Get(args[0])
		if err != nil {
			return "", err
		}
		return FormatLocation(loc), nil

	case "list":
		if len(args) > 1 {
			return "", usage("list [looted|unlooted|all]")
		}
		filter := locations.FilterAll
		if len(args) == 1 {
			switch strings.ToLower(args[0]) {
			case "all":
			case "looted":
				filter = locations.FilterLooted
			case "unlooted", "available":
				filter = locations.FilterUnlooted
			default:
				return "", &location.ValidationError{Field: "filter", Reason: fmt.Sprintf("%q is not one of looted, unlooted, all", args[0])}
			}
		}
		return FormatList(d.store.List(filter), d.store.Stats()), nil

	case "remove", "del":
		if len(args) < 1 || len(args) > 2 {
			return "", usage("remove <name> [index]")
		}
		if len(args) == 2 {
			index, err := parseIndex(args[1])
			if err != nil {
				return "", err
			}
			removal, err := d.store.RemoveInstance(ctx, args[0], index)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Removed %s #%d at %s (%d remaining)",
				location.DisplayName(removal.Name), removal.Index, removal.Removed[0].Coords, removal.Remaining), nil
		}
		removal, err := d.store.Remove(ctx, args[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Removed %s and all %d instance(s)", location.DisplayName(removal.Name), len(removal.Removed)), nil

	case "loot":
		if len(args) < 2 || len(args) > 3 {
			return "", usage("loot <name> <true|false> [index]")
		}
		looted, err := parseBool("looted", args[1])
		if err != nil {
			return "", err
		}
		var changes []location.LootChange
		if len(args) == 3 {
			index, err := parseIndex(args[2])
			if err != nil {
				return "", err
			}
			change, err := d.store.SetInstanceLooted(ctx, args[0], index, looted)
			if err != nil {
				return "", err
			}
			changes = []location.LootChange{change}
		} else if changes, err = d.store.SetLooted(ctx, args[0], looted); err != nil {
			return "", err
		}
		return FormatLootChanges(location.NormalizeName(args[0]), changes), nil

	case "search":
		if len(args) == 0 {
			return "", usage("search <query>")
		}
		query := strings.Join(args, " ")
		found := d.store.Search(query)
		if len(found) == 0 {
			return fmt.Sprintf("No locations match '%s'", query), nil
		}
		return FormatLocations(found), nil

	case "available":
		available := d.store.Available()
		if len(available) == 0 {
			return "No available locations, everything has been looted", nil
		}
		return FormatLocations(available), nil

	case "stats":
		return FormatStats(d.store.Stats()), nil

	case "backup":
		name, err := d.store.Backup(ctx)
		if err != nil {
			return "", err
		}
		if name == "" {
			return "Nothing to back up yet", nil
		}
		return "Backup created: " + name, nil

	default:
		return "", &location.ValidationError{Field: "command", Reason: fmt.Sprintf("unknown command %q, try !loc help", sub)}
	}
}

func (d *Dispatcher) help() string {
	return "Location commands:\n" + strings.Join(helpLines, "\n")
}

// renderError turns the error taxonomy into user facing text
func (d *Dispatcher) renderError(sub string, err error) string {
	var (
		ve *location.ValidationError
		nf *location.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		return "Invalid input: " + ve.Error()
	case errors.As(err, &nf):
		if nf.Count == 0 {
			msg := fmt.Sprintf("Location '%s' doesn't exist.", location.DisplayName(nf.Name))
			if names := d.store.Names(); len(names) > 0 {
				msg += " Known locations: " + strings.Join(names, ", ")
			}
			return msg
		}
		return fmt.Sprintf("Invalid index %d for '%s'. Valid range: 1-%d", nf.Index, location.DisplayName(nf.Name), nf.Count)
	case errors.Is(err, location.ErrStorage):
		d.logger.Error("Location command failed to persist", "command", sub, "error", err)
		return "Failed to save locations, nothing was changed. Please try again."
	default:
		d.logger.Error("Location command failed", "command", sub, "error", err)
		return "Something went wrong running that command."
	}
}

func usage(s string) error {
	return &location.ValidationError{Field: "arguments", Reason: "usage: " + Prefix + " " + s}
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &location.ValidationError{Field: "index", Reason: fmt.Sprintf("%q is not a whole number", s)}
	}
	return n, nil
}

func parseBool(field, s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1", "looted":
		return true, nil
	case "false", "no", "n", "0", "unlooted", "available":
		return false, nil
	}
	return false, &location.ValidationError{Field: field, Reason: fmt.Sprintf("%q is not true or false", s)}
}

func splitArgs(s string) []string {
	var out []string
	for _, m := range reArg.FindAllStringSubmatch(s, -1) {
		if m[1] != "" {
			out = append(out, m[1])
		} else {
			out = append(out, m[2])
		}
	}
	return out
}
