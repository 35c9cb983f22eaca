package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/lootmap/pkg/location"
	"github.com/jwebster45206/lootmap/pkg/storage"
)

// DefaultRedisKey holds the document when no key is configured
const DefaultRedisKey = "lootmap:locations"

// RedisStorage implements the Storage interface by keeping the whole
// document as one JSON string under a single key. SET replaces the value
// atomically, so no temp key is needed.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
	key    string
	now    func() time.Time
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a Redis storage instance. redisURL may be a
// redis:// URL or a plain host:port address.
func NewRedisStorage(redisURL, key string, logger *slog.Logger) (*RedisStorage, error) {
	client, err := NewRedisClient(redisURL)
	if err != nil {
		return nil, err
	}
	return NewRedisStorageWithClient(client, key, logger), nil
}

// NewRedisClient accepts a redis:// URL or a plain host:port address
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opt := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		opt = parsed
	}
	return redis.NewClient(opt), nil
}

// NewRedisStorageWithClient wraps an existing client
func NewRedisStorageWithClient(client *redis.Client, key string, logger *slog.Logger) *RedisStorage {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStorage{
		client: client,
		logger: logger,
		key:    key,
		now:    time.Now,
	}
}

// Client exposes the underlying client so the event broadcaster can share
// the connection pool.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context, maxRetries int, retryDelay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func (r *RedisStorage) Load(ctx context.Context) (storage.Document, storage.Schema, error) {
	data, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Info("Locations key does not exist, starting empty", "key", r.key)
			return storage.Document{}, storage.SchemaCurrent, nil
		}
		r.logger.Error("Failed to load locations", "key", r.key, "error", err)
		return nil, storage.SchemaCurrent, location.NewStorageError("load", err)
	}

	doc, schema, err := storage.Decode([]byte(data))
	if err != nil {
		r.logger.Error("Failed to decode locations", "key", r.key, "error", err)
		return nil, storage.SchemaCurrent, location.NewStorageError("load", err)
	}

	if schema == storage.SchemaLegacy {
		r.logger.Info("Migrating legacy locations document", "key", r.key, "locations", len(doc))
		if err := r.Save(ctx, doc); err != nil {
			r.logger.Warn("Failed to rewrite migrated locations, continuing with migrated data", "key", r.key, "error", err)
		}
	}

	return doc, schema, nil
}

func (r *RedisStorage) Save(ctx context.Context, doc storage.Document) error {
	data, err := storage.Encode(doc)
	if err != nil {
		return location.NewStorageError("save", err)
	}
	if err := r.client.Set(ctx, r.key, string(data), 0).Err(); err != nil {
		r.logger.Error("Failed to save locations", "key", r.key, "error", err)
		return location.NewStorageError("save", err)
	}
	return nil
}

// Backup copies the document to <key>:backup:<timestamp>
func (r *RedisStorage) Backup(ctx context.Context) (string, error) {
	data, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", location.NewStorageError("backup", err)
	}

	backupKey := r.key + ":backup:" + r.now().Format(backupTimeFormat)
	if err := r.client.Set(ctx, backupKey, data, 0).Err(); err != nil {
		r.logger.Error("Failed to create backup", "key", backupKey, "error", err)
		return "", location.NewStorageError("backup", err)
	}

	r.logger.Info("Created backup", "key", backupKey)
	return backupKey, nil
}
