package metascrub

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/metascrub/metascrub/pkg/metascrub/extract"
)

// Error types
var (
	// ErrScanNotFound indicates a scan record was not found.
	ErrScanNotFound = errors.New("scan not found")

	// ErrArchiveNotFound indicates a batch archive was not found.
	ErrArchiveNotFound = errors.New("archive not found")

	// ErrStorageBackendNotFound indicates a storage backend was not found.
	ErrStorageBackendNotFound = errors.New("storage backend not found")

	// ErrEmptyFile indicates an upload with no content.
	ErrEmptyFile = errors.New("file is empty")

	// ErrCleanedObjectMissing indicates a scan has no stored cleaned copy.
	ErrCleanedObjectMissing = errors.New("scan has no cleaned object")

	// ErrUnsupportedFormat is the boundary error for format tags outside
	// the supported set. It aliases the extract package sentinel so callers
	// can match either.
	ErrUnsupportedFormat = extract.ErrUnknownFormat
)

// ScanError represents an error related to scan operations.
type ScanError struct {
	ScanID uuid.UUID
	Op     string
	Err    error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan operation %s failed for scan %s: %v", e.Op, e.ScanID, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage operations.
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
