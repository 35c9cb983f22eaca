package storage

import (
	"context"
)

// Storage defines durable persistence of the location document.
// Implementations must replace the stored document atomically on Save so
// that a failed write never leaves a partial document behind.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Load returns the stored document and the schema it was read in.
	// A missing document yields an empty Document and SchemaCurrent.
	// Legacy documents are returned migrated; implementations rewrite them
	// in the current schema on a best-effort basis.
	Load(ctx context.Context) (Document, Schema, error)

	// Save replaces the stored document. Errors are location.StorageError.
	Save(ctx context.Context, doc Document) error

	// Backup copies the current document aside and returns the identifier
	// of the copy (a file path or a key). Returns "" if nothing is stored.
	Backup(ctx context.Context) (string, error)
}
