package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/lootmap/internal/config"
	"github.com/jwebster45206/lootmap/internal/locations"
	"github.com/jwebster45206/lootmap/internal/logger"
	"github.com/jwebster45206/lootmap/internal/services/events"
	"github.com/jwebster45206/lootmap/internal/storage"
)

// options holds the persistent flags
type options struct {
	backend string
	file    string
	redis   string
	asJSON  bool
}

// session is an opened store for one command invocation
type session struct {
	store   *locations.Store
	bus     *events.Bus
	backend *storage.Backend
	log     *slog.Logger
	out     io.Writer
	style   styles
	asJSON  bool
}

func (s *session) Close() error {
	return s.backend.Close()
}

func (s *session) printJSON(v interface{}) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (s *session) println(a ...interface{}) {
	fmt.Fprintln(s.out, a...)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "lootctl",
		Short: "Manage saved Minecraft locations",
		Long: `lootctl reads and edits the location store used by the lootmap bot.

Storage is selected from the environment (STORAGE_BACKEND, DATA_DIR,
LOCATIONS_FILE, REDIS_URL, REDIS_KEY); flags override it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.backend, "backend", "", "storage backend: file or redis")
	flags.StringVarP(&opts.file, "file", "f", "", "path to the locations JSON file")
	flags.StringVar(&opts.redis, "redis-url", "", "redis URL for the redis backend")
	flags.BoolVar(&opts.asJSON, "json", false, "print JSON instead of text")

	root.AddCommand(
		newAddCmd(opts),
		newGetCmd(opts),
		newListCmd(opts),
		newRemoveCmd(opts),
		newLootCmd(opts),
		newSearchCmd(opts),
		newStatsCmd(opts),
		newBackupCmd(opts),
		newMigrateCmd(opts),
		newRunCmd(opts),
	)
	return root
}

// openSession loads config, applies flag overrides and loads the store.
// before runs after the bus exists but before the store loads, so callers
// can observe the load event.
func openSession(ctx context.Context, cmd *cobra.Command, opts *options, before func(*events.Bus)) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.backend != "" {
		cfg.StorageBackend = opts.backend
	}
	if opts.file != "" {
		cfg.DataDir = ""
		cfg.LocationsFile = opts.file
	}
	if opts.redis != "" {
		cfg.RedisURL = opts.redis
	}
	// The CLI never broadcasts
	cfg.BroadcastEvents = false

	log := logger.SetupWriter(cfg, cmd.ErrOrStderr())
	backend, err := storage.Open(cfg, log)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus(log)
	if before != nil {
		before(bus)
	}
	store := locations.NewStore(backend.Storage, bus, log)
	if err := store.Load(ctx); err != nil {
		backend.Close()
		return nil, err
	}

	return &session{
		store:   store,
		bus:     bus,
		backend: backend,
		log:     log,
		out:     cmd.OutOrStdout(),
		style:   newStyles(cmd.OutOrStdout()),
		asJSON:  opts.asJSON,
	}, nil
}

// withSession wraps a command body with session setup and teardown
func withSession(opts *options, fn func(ctx context.Context, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		s, err := openSession(ctx, cmd, opts, nil)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(ctx, s, args)
	}
}
