package metascrub

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service defines the main interface for the metascrub library.
type Service interface {
	// Inspect extracts metadata and infers privacy risk for one file. It
	// fails only on an invalid format tag or empty input; decode problems
	// are captured inside the returned record, never as errors.
	Inspect(ctx context.Context, req InspectRequest) (*Inspection, error)

	// Scrub inspects a file, stores a cleaned copy and persists a scan
	// record. On a cleaning or storage failure the failed scan record is
	// still persisted and returned alongside the error.
	Scrub(ctx context.Context, req ScrubRequest) (*ScrubResult, error)

	// ScrubBatch scrubs several files with per-file failure isolation and
	// stores a ZIP archive of all cleaned outputs.
	ScrubBatch(ctx context.Context, req ScrubBatchRequest) (*ScrubBatchResult, error)

	// Scan history operations
	GetScan(ctx context.Context, id uuid.UUID) (*ScanRecord, error)
	ListScans(ctx context.Context, req ListScansRequest) ([]*ScanRecord, error)
	DeleteScan(ctx context.Context, id uuid.UUID) error

	// Cleaned output access
	OpenCleaned(ctx context.Context, scanID uuid.UUID) (io.ReadCloser, *ScanRecord, error)
	OpenArchive(ctx context.Context, archiveID uuid.UUID) (io.ReadCloser, error)
	GetCleanedURL(ctx context.Context, scanID uuid.UUID) (string, error)

	// Storage backend operations
	RegisterBackend(name string, backend BlobStore)
	GetBackend(name string) (BlobStore, error)
}
