package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/lootmap/internal/commands"
	"github.com/jwebster45206/lootmap/internal/config"
	"github.com/jwebster45206/lootmap/internal/handlers"
	"github.com/jwebster45206/lootmap/internal/locations"
	"github.com/jwebster45206/lootmap/internal/logger"
	"github.com/jwebster45206/lootmap/internal/metrics"
	"github.com/jwebster45206/lootmap/internal/middleware"
	"github.com/jwebster45206/lootmap/internal/services/events"
	"github.com/jwebster45206/lootmap/internal/storage"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always runs
func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Print(err)
		return 1
	}

	log := logger.Setup(cfg)

	log.Info("Starting Lootmap API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage_backend", cfg.StorageBackend,
		"broadcast_events", cfg.BroadcastEvents)

	backend, err := storage.Open(cfg, log)
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		return 1
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error("Error closing storage connection", "error", err)
		}
	}()

	if rs, ok := backend.Storage.(*storage.RedisStorage); ok {
		waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err := rs.WaitForConnection(waitCtx, 10, 2*time.Second)
		waitCancel()
		if err != nil {
			log.Error("Failed to connect to redis", "error", err)
			return 1
		}
	}

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer storageCancel()
	if err := backend.Storage.Ping(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		return 1
	}
	log.Info("Storage connection established successfully")

	recorder := metrics.NewRecorder()
	st := metrics.Instrument(backend.Storage, recorder)

	bus := events.NewBus(log)
	store := locations.NewStore(st, bus, log)
	recorder.Attach(bus, store.Stats)

	if cfg.BroadcastEvents {
		broadcaster := events.NewBroadcaster(backend.Redis, cfg.EventsChannel, log)
		broadcaster.Attach(bus)
		log.Info("Broadcasting location events", "channel", cfg.EventsChannel)
	}

	if err := store.Load(storageCtx); err != nil {
		log.Error("Failed to load locations", "error", err)
		return 1
	}

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(st, store, log))

	locationsHandler := handlers.NewLocationsHandler(store, log)
	mux.Handle("/v1/locations", locationsHandler)
	mux.Handle("/v1/locations/", locationsHandler)

	mux.Handle("/v1/stats", handlers.NewStatsHandler(store, log))
	mux.Handle("/v1/commands", handlers.NewCommandHandler(commands.NewDispatcher(store, log), log))
	mux.Handle("/v1/events", handlers.NewEventsHandler(bus, log))
	mux.Handle("/metrics", recorder.Handler())

	// Event streams never end on their own; cancel them on shutdown
	baseCtx, cancelStreams := context.WithCancel(context.Background())
	defer cancelStreams()

	handler := middleware.Logger(log, mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: /v1/events streams
		IdleTimeout: 60 * time.Second,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancelStreams)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		log.Error("Server failed to start", "error", err)
		return 1
	case <-quit:
	}

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		return 1
	}

	log.Info("Server exited")
	return 0
}
