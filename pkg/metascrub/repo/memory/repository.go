package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/metascrub/metascrub/pkg/metascrub"
)

// Repository implements metascrub.Repository with in-memory maps, for tests
// and development.
type Repository struct {
	mu    sync.RWMutex
	scans map[uuid.UUID]*metascrub.ScanRecord
	order []uuid.UUID // insertion order, oldest first
}

// New creates a new in-memory repository.
func New() metascrub.Repository {
	return &Repository{
		scans: make(map[uuid.UUID]*metascrub.ScanRecord),
	}
}

func (r *Repository) CreateScan(ctx context.Context, scan *metascrub.ScanRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.scans[scan.ID]; exists {
		return fmt.Errorf("scan already exists: %s", scan.ID)
	}
	c := cloneScan(scan)
	r.scans[scan.ID] = c
	r.order = append(r.order, scan.ID)
	return nil
}

func (r *Repository) GetScan(ctx context.Context, id uuid.UUID) (*metascrub.ScanRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scan, exists := r.scans[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", metascrub.ErrScanNotFound, id)
	}
	return cloneScan(scan), nil
}

func (r *Repository) ListScans(ctx context.Context, params metascrub.ListScansParams) ([]*metascrub.ScanRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Newest first.
	var result []*metascrub.ScanRecord
	skipped := 0
	for i := len(r.order) - 1; i >= 0; i-- {
		scan := r.scans[r.order[i]]
		if params.Status != nil && scan.Status != *params.Status {
			continue
		}
		if skipped < params.Offset {
			skipped++
			continue
		}
		result = append(result, cloneScan(scan))
		if params.Limit > 0 && len(result) >= params.Limit {
			break
		}
	}
	return result, nil
}

func (r *Repository) DeleteScan(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.scans[id]; !exists {
		return fmt.Errorf("%w: %s", metascrub.ErrScanNotFound, id)
	}
	delete(r.scans, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// cloneScan guards the store against aliasing with caller-held records.
func cloneScan(scan *metascrub.ScanRecord) *metascrub.ScanRecord {
	c := *scan
	c.Findings = append([]string(nil), scan.Findings...)
	return &c
}
