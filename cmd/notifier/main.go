package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/lootmap/internal/config"
	"github.com/jwebster45206/lootmap/internal/logger"
	"github.com/jwebster45206/lootmap/internal/notifier"
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

	log.Info("Starting Lootmap Notifier",
		"environment", cfg.Environment,
		"channel", cfg.EventsChannel)

	redisClient, err := storage.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Error("Failed to create redis client", "error", err)
		return 1
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis client", "error", err)
		}
	}()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = redisClient.Ping(pingCtx).Err()
	pingCancel()
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		return 1
	}
	log.Info("Redis connection established successfully")

	listener := notifier.NewListener(redisClient, cfg.EventsChannel, notifier.LogSink{Logger: log}, log)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := listener.Run(ctx); err != nil {
		logger.WithError(log, err).Error("Listener stopped")
		return 1
	}

	log.Info("Notifier exited")
	return 0
}
