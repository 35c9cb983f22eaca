package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	// Storage
	StorageBackend string
	DataDir        string
	LocationsFile  string
	RedisURL       string
	RedisKey       string

	// Events
	EventsChannel   string
	BroadcastEvents bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       parseLogLevel(getEnv("LOG_LEVEL", "info")),
		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", BackendFile)),
		DataDir:        getEnv("DATA_DIR", "data"),
		LocationsFile:  getEnv("LOCATIONS_FILE", "locations.json"),
		RedisURL:       getEnv("REDIS_URL", "localhost:6379"),
		RedisKey:       getEnv("REDIS_KEY", "lootmap:locations"),
		EventsChannel:  getEnv("EVENTS_CHANNEL", "lootmap:events"),
	}

	broadcast, err := strconv.ParseBool(getEnv("BROADCAST_EVENTS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid BROADCAST_EVENTS: %w", err)
	}
	cfg.BroadcastEvents = broadcast

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LocationsPath is the JSON document used by the file backend
func (c *Config) LocationsPath() string {
	if filepath.IsAbs(c.LocationsFile) {
		return c.LocationsFile
	}
	return filepath.Join(c.DataDir, c.LocationsFile)
}

// UsesRedis reports whether anything needs a redis connection
func (c *Config) UsesRedis() bool {
	return c.StorageBackend == BackendRedis || c.BroadcastEvents
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case BackendFile, BackendRedis:
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q: must be %s or %s", c.StorageBackend, BackendFile, BackendRedis)
	}
	if c.LocationsFile == "" {
		return fmt.Errorf("LOCATIONS_FILE must not be empty")
	}
	if c.StorageBackend == BackendRedis && c.RedisKey == "" {
		return fmt.Errorf("REDIS_KEY must not be empty with the redis backend")
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
