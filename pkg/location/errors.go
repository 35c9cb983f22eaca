package location

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks across the error taxonomy.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
)

// ValidationError reports input of the wrong shape or type.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an unknown location or an index outside the
// current instance range. Count is zero when the name itself is unknown.
type NotFoundError struct {
	Name  string
	Index int
	Count int
}

func (e *NotFoundError) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("location '%s' not found", e.Name)
	}
	return fmt.Sprintf("invalid index %d for location '%s'. Valid range: 1-%d", e.Index, e.Name, e.Count)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError wraps an I/O or encoding failure while loading or saving.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// NewStorageError wraps err, leaving an existing StorageError untouched.
func NewStorageError(op string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
