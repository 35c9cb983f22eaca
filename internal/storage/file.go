package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jwebster45206/lootmap/pkg/location"
	"github.com/jwebster45206/lootmap/pkg/storage"
)

const backupTimeFormat = "20060102_150405"

// FileStorage implements the Storage interface with a single JSON file.
// Writes go to a temp file in the same directory which is then renamed
// over the target, so readers only ever see a complete document.
type FileStorage struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
	write  func(path string, data []byte) error
}

// Ensure FileStorage implements Storage interface
var _ storage.Storage = (*FileStorage)(nil)

// NewFileStorage creates a file storage for the document at path
func NewFileStorage(path string, logger *slog.Logger) *FileStorage {
	if path == "" {
		path = filepath.Join("data", "locations.json")
	}
	return &FileStorage{
		path:   path,
		logger: logger,
		now:    time.Now,
		write:  writeAtomic,
	}
}

// Path returns the document location
func (f *FileStorage) Path() string {
	return f.path
}

// Ping checks that the data directory exists or can be created
func (f *FileStorage) Ping(ctx context.Context) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("data directory unavailable: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("data directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data path %s is not a directory", dir)
	}
	return nil
}

func (f *FileStorage) Close() error {
	return nil
}

func (f *FileStorage) Load(ctx context.Context) (storage.Document, storage.Schema, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			f.logger.Info("Locations file does not exist, starting empty", "path", f.path)
			return storage.Document{}, storage.SchemaCurrent, nil
		}
		f.logger.Error("Failed to read locations file", "path", f.path, "error", err)
		return nil, storage.SchemaCurrent, location.NewStorageError("load", err)
	}

	doc, schema, err := storage.Decode(raw)
	if err != nil {
		f.logger.Error("Failed to decode locations file", "path", f.path, "error", err)
		return nil, storage.SchemaCurrent, location.NewStorageError("load", err)
	}

	if schema == storage.SchemaLegacy {
		f.logger.Info("Migrating legacy locations file", "path", f.path, "locations", len(doc))
		if err := f.Save(ctx, doc); err != nil {
			f.logger.Warn("Failed to rewrite migrated locations file, continuing with migrated data", "path", f.path, "error", err)
		}
	}

	f.logger.Debug("Loaded locations file", "path", f.path, "locations", len(doc), "schema", schema)
	return doc, schema, nil
}

func (f *FileStorage) Save(ctx context.Context, doc storage.Document) error {
	data, err := storage.Encode(doc)
	if err != nil {
		return location.NewStorageError("save", err)
	}
	if err := f.write(f.path, data); err != nil {
		f.logger.Error("Failed to save locations file", "path", f.path, "error", err)
		return location.NewStorageError("save", err)
	}
	f.logger.Debug("Saved locations file", "path", f.path, "locations", len(doc))
	return nil
}

// Backup copies the document to <name>.<timestamp>.backup<ext> next to it
func (f *FileStorage) Backup(ctx context.Context) (string, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", location.NewStorageError("backup", err)
	}

	ext := filepath.Ext(f.path)
	backupPath := fmt.Sprintf("%s.%s.backup%s", strings.TrimSuffix(f.path, ext), f.now().Format(backupTimeFormat), ext)
	if err := writeAtomic(backupPath, raw); err != nil {
		f.logger.Error("Failed to create backup", "path", backupPath, "error", err)
		return "", location.NewStorageError("backup", err)
	}

	f.logger.Info("Created backup", "path", backupPath)
	return backupPath, nil
}

// writeAtomic streams data to a temp file beside path, syncs it, then
// renames it into place. The temp file is removed on every failure path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
