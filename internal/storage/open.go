package storage

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/lootmap/internal/config"
	"github.com/jwebster45206/lootmap/pkg/storage"
)

// Backend is an opened storage plus the redis client it runs on, if any
type Backend struct {
	Storage storage.Storage
	Redis   *redis.Client
}

// Open builds the storage selected by cfg. When events are broadcast on
// the file backend a standalone redis client is created for them.
func Open(cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		rs, err := NewRedisStorage(cfg.RedisURL, cfg.RedisKey, logger)
		if err != nil {
			return nil, err
		}
		return &Backend{Storage: rs, Redis: rs.Client()}, nil

	case config.BackendFile:
		b := &Backend{Storage: NewFileStorage(cfg.LocationsPath(), logger)}
		if cfg.BroadcastEvents {
			client, err := NewRedisClient(cfg.RedisURL)
			if err != nil {
				return nil, err
			}
			b.Redis = client
		}
		return b, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// Close releases the storage and any standalone redis client
func (b *Backend) Close() error {
	err := b.Storage.Close()
	if _, shared := b.Storage.(*RedisStorage); !shared && b.Redis != nil {
		if cerr := b.Redis.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
