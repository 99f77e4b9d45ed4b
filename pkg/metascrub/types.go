package metascrub

import (
	"time"

	"github.com/google/uuid"

	"github.com/metascrub/metascrub/pkg/metascrub/extract"
	"github.com/metascrub/metascrub/pkg/metascrub/risk"
)

// ScanStatus is the domain type for scan lifecycle states.
type ScanStatus string

// Scan status constants (typed).
const (
	// ScanStatusAnalyzed means the file was inspected but no cleaned copy
	// was requested or produced.
	ScanStatusAnalyzed ScanStatus = "analyzed"
	// ScanStatusScrubbed means a cleaned copy was produced and stored.
	ScanStatusScrubbed ScanStatus = "scrubbed"
	// ScanStatusFailed means cleaning or storing the cleaned copy failed.
	ScanStatusFailed ScanStatus = "failed"
)

// IsValid reports whether s is one of the defined scan statuses.
func (s ScanStatus) IsValid() bool {
	switch s {
	case ScanStatusAnalyzed, ScanStatusScrubbed, ScanStatusFailed:
		return true
	default:
		return false
	}
}

// ScanRecord is the persisted outcome of scrubbing one file: what was
// uploaded, what the risk assessment concluded and where the cleaned copy
// (if any) lives.
type ScanRecord struct {
	ID             uuid.UUID  `json:"id"`
	FileName       string     `json:"file_name"`
	Format         string     `json:"format"`
	Score          int        `json:"score"`
	Findings       []string   `json:"findings"`
	Status         ScanStatus `json:"status"`
	StorageBackend string     `json:"storage_backend,omitempty"`
	ObjectKey      string     `json:"object_key,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Inspection is the per-file analysis produced before any cleaning step:
// the decoded metadata record plus the risk assessment derived from it.
// Both are created fresh per call and owned by the caller.
type Inspection struct {
	FileName   string            `json:"file_name"`
	Format     extract.Format    `json:"-"`
	FormatName string            `json:"format"`
	Record     *extract.Record   `json:"-"`
	Raw        map[string]string `json:"raw"`
	Pretty     map[string]any    `json:"pretty"`
	Assessment risk.Assessment   `json:"assessment"`
}

// ScrubResult is the outcome of scrubbing a single file.
type ScrubResult struct {
	Inspection *Inspection `json:"inspection"`
	Scan       *ScanRecord `json:"scan"`
}

// ScrubBatchEntry is one file's outcome within a batch. Error carries a
// per-file cleaning failure; it never aborts the rest of the batch.
type ScrubBatchEntry struct {
	FileName string       `json:"file_name"`
	Result   *ScrubResult `json:"result,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// ScrubBatchResult is the outcome of scrubbing several files in one request.
// ArchiveID is set only when at least one file was scrubbed successfully.
type ScrubBatchResult struct {
	Entries    []ScrubBatchEntry `json:"entries"`
	ArchiveID  uuid.UUID         `json:"archive_id,omitempty"`
	ArchiveKey string            `json:"archive_key,omitempty"`
}
