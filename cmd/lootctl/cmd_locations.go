package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/lootmap/internal/commands"
	"github.com/jwebster45206/lootmap/internal/locations"
	"github.com/jwebster45206/lootmap/internal/services/events"
	"github.com/jwebster45206/lootmap/pkg/location"
)

func parseIndexArg(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &location.ValidationError{Field: "index", Reason: fmt.Sprintf("%q is not a whole number", s)}
	}
	return n, nil
}

func newAddCmd(opts *options) *cobra.Command {
	var looted bool
	cmd := &cobra.Command{
		Use:   "add [--looted] <name> <x> <y> <z>",
		Short: "Add an instance of a location",
		Args:  cobra.ExactArgs(4),
		RunE: withSession(opts, func(ctx context.Context, s *session, args []string) error {
			coords, err := location.ParseCoordinates(args[1], args[2], args[3])
			if err != nil {
				return err
			}
			inst, err := s.store.Add(ctx, args[0], coords, looted)
			if err != nil {
				return err
			}
			if s.asJSON {
				return s.printJSON(inst)
			}
			s.println(fmt.Sprintf("Added %s #%d at %s", location.DisplayName(location.NormalizeName(args[0])), inst.Index, inst.Coords))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&looted, "looted", false, "mark the new instance as looted")
	// Negative coordinates must not be read as flags
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newGetCmd(opts *options) *cobra.Command {
	var copyTeleport bool
	cmd := &cobra.Command{
		Use:   "get <name> [index]",
		Short: "Show a location or one of its instances",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withSession(opts, func(ctx context.Context, s *session, args []string) error {
			if len(args) == 2 {
				index, err := parseIndexArg(args[1])
				if err != nil {
					return err
				}
				inst, err := s.store.GetInstance(args[0], index)
				if err != nil {
					return err
				}
				if copyTeleport {
					if err := clipboardWriteAll(inst.Coords.TeleportCommand()); err != nil {
						return fmt.Errorf("failed to copy to clipboard: %w", err)
					}
				}
				if s.asJSON {
					return s.printJSON(inst)
				}
				s.println(s.style.instance(inst))
				return nil
			}

			if copyTeleport {
				return &location.ValidationError{Field: "copy", Reason: "needs an instance index"}
			}
			loc, err := s.store.Get(args[0])
			if err != nil {
				return err
			}
			if s.asJSON {
				return s.printJSON(loc)
			}
			s.println(s.style.location(loc))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&copyTeleport, "copy", false, "copy the instance's /tp command to the clipboard")
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newListCmd(opts *options) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List locations",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(ctx context.Context, s *session, args []string) error {
			var f locations.LootFilter
			switch strings.ToLower(filter) {
			case "", "all":
				f = locations.FilterAll
			case "looted":
				f = locations.FilterLooted
			case "unlooted", "available":
				f = locations.FilterUnlooted
			default:
				return &location.ValidationError{Field: "filter", Reason: fmt.Sprintf("%q is not one of looted, unlooted, all", filter)}
			}

			locs := s.store.List(f)
			if s.asJSON {
				if locs == nil {
					locs = []location.Location{}
				}
				return s.printJSON(locs)
			}
			if len(locs) == 0 {
				s.println("No locations saved yet")
				return nil
			}
			s.println(s.style.locations(locs))
			s.println()
			s.println(commands.FormatStats(s.store.Stats()))
			return nil
		}),
	}
	cmd.Flags().StringVar(&filter, "filter", "all", "looted, unlooted or all")
	return cmd
}

func newRemoveCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <name> [index]",
		Aliases: []string{"rm"},
		Short:   "Remove a location or one of its instances",
		Args:    cobra.RangeArgs(1, 2),
		RunE: withSession(opts, func(ctx context.Context, s *session, args []string) error {
			var (
				removal locations.Removal
				err     error
			)
			if len(args) == 2 {
				index, perr := parseIndexArg(args[1])
				if perr != nil {
					return perr
				}
				removal, err = s.store.RemoveInstance(ctx, args[0], index)
			} else {
				removal, err = s.store.Remove(ctx, args[0])
			}
			if err != nil {
				return err
			}
			if s.asJSON {
				return s.printJSON(removal)
			}
			s.println(fmt.Sprintf("Removed %d instance(s) of %s, %d remaining",
				len(removal.Removed), location.DisplayName(removal.Name), removal.Remaining))
			return nil
		}),
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newLootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loot <name> <true|false> [index]",
		Short: "Set the looted flag on a location or one instance",
		Args:  cobra.RangeArgs(2, 3),
		RunE: withSession(opts, func(ctx context.Context, s *session, args []string) error {
			looted, err := strconv.ParseBool(args[1])
			if err != nil {
				return &location.ValidationError{Field: "looted", Reason: fmt.Sprintf("%q is not true or false", args[1])}
			}

			var changes []location.LootChange
			if len(args) == 3 {
				index, err := parseIndexArg(args[2])
				if err != nil {
					return err
				}
				change, err := s.store.SetInstanceLooted(ctx, args[0], index, looted)
				if err != nil {
					return err
				}
				changes = []location.LootChange{change}
			} else if changes, err = s.store.SetLooted(ctx, args[0], looted); err != nil {
				return err
			}

			if s.asJSON {
				return s.printJSON(changes)
			}
			s.println(commands.FormatLootChanges(location.NormalizeName(args[0]), changes))
			return nil
		}),
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newSearchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find locations whose name contains query",
		Args:  cobra.MinimumNArgs(1),
		RunE: withSession(opts, func(ctx context.Context, s *session, args []string) error {
			found := s.store.Search(strings.Join(args, " "))
			if s.asJSON {
				if found == nil {
					found = []location.Location{}
				}
				return s.printJSON(found)
			}
			if len(found) == 0 {
				s.println("No matches")
				return nil
			}
			s.println(s.style.locations(found))
			return nil
		}),
	}
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show totals",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(ctx context.Context, s *session, args []string) error {
			stats := s.store.Stats()
			if s.asJSON {
				return s.printJSON(stats)
			}
			s.println(commands.FormatStats(stats))
			return nil
		}),
	}
}

func newBackupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Copy the stored document aside",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(ctx context.Context, s *session, args []string) error {
			name, err := s.store.Backup(ctx)
			if err != nil {
				return err
			}
			if name == "" {
				s.println("Nothing to back up")
				return nil
			}
			s.println("Backup created:", name)
			return nil
		}),
	}
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Rewrite a legacy document in the current format",
		Long: `Loading a legacy document converts it in memory and rewrites it.
migrate forces that load and reports whether a rewrite happened.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			var loaded events.LocationsLoaded
			s, err := openSession(ctx, cmd, opts, func(bus *events.Bus) {
				events.Subscribe(bus, "migrate", func(ctx context.Context, ev events.LocationsLoaded) error {
					loaded = ev
					return nil
				})
			})
			if err != nil {
				return err
			}
			defer s.Close()

			if s.asJSON {
				return s.printJSON(loaded)
			}
			if loaded.Migrated {
				s.println(fmt.Sprintf("Migrated %d location(s) with %d instance(s) to the current format", loaded.Locations, loaded.Instances))
			} else {
				s.println("Already in the current format")
			}
			return nil
		},
	}
}

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <command text>",
		Short: "Run a chat command, e.g. lootctl run '!loc list'",
		Args:  cobra.MinimumNArgs(1),
		RunE: withSession(opts, func(ctx context.Context, s *session, args []string) error {
			text := strings.Join(args, " ")
			if !commands.IsCommand(text) {
				text = commands.Prefix + " " + text
			}
			reply, err := commands.NewDispatcher(s.store, s.log).Handle(ctx, text)
			if err != nil {
				return err
			}
			s.println(reply)
			return nil
		}),
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}
