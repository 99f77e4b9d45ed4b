package metascrub

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for storage backends holding scrubbed
// outputs and batch archives.
type BlobStore interface {
	// Upload stores content under the given object key.
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Download streams content back out.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes content.
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for a stored object.
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)

	// GetDownloadURL returns a URL for downloading content, with an
	// attachment filename when the backend supports it.
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)
}

// Repository defines the interface for scan-history persistence.
type Repository interface {
	CreateScan(ctx context.Context, scan *ScanRecord) error
	GetScan(ctx context.Context, id uuid.UUID) (*ScanRecord, error)
	ListScans(ctx context.Context, params ListScansParams) ([]*ScanRecord, error)
	DeleteScan(ctx context.Context, id uuid.UUID) error
}

// ListScansParams filters and pages scan-history listings. Zero values mean
// no limit and no offset; results are newest first.
type ListScansParams struct {
	Limit  int
	Offset int
	Status *ScanStatus
}

// EventSink defines the interface for event handling.
type EventSink interface {
	// ScanRecorded is fired after a scan record is persisted.
	ScanRecorded(ctx context.Context, scan *ScanRecord) error

	// ObjectScrubbed is fired after a cleaned copy is stored.
	ObjectScrubbed(ctx context.Context, scanID uuid.UUID, objectKey string) error

	// ArchiveBuilt is fired after a batch archive is stored.
	ArchiveBuilt(ctx context.Context, archiveID uuid.UUID, objectKey string) error
}

// ObjectMeta contains metadata about an object in storage.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}
