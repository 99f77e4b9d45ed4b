package metascrub

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/metascrub/metascrub/pkg/metascrub/clean"
	"github.com/metascrub/metascrub/pkg/metascrub/extract"
	"github.com/metascrub/metascrub/pkg/metascrub/risk"
)

// service implements the Service interface.
type service struct {
	repository     Repository
	blobStores     map[string]BlobStore
	defaultBackend string
	eventSink      EventSink
}

// Option represents a functional option for configuring the service.
type Option func(*service)

// WithRepository sets the scan-history repository for the service.
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore adds a blob storage backend. The first backend registered
// becomes the default unless WithDefaultBackend overrides it.
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
		if s.defaultBackend == "" {
			s.defaultBackend = name
		}
	}
}

// WithDefaultBackend selects the backend used when a request names none.
func WithDefaultBackend(name string) Option {
	return func(s *service) {
		s.defaultBackend = name
	}
}

// WithEventSink sets the event sink for the service.
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// New creates a new service instance with the given options.
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores: make(map[string]BlobStore),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}

	return s, nil
}

func (s *service) RegisterBackend(name string, backend BlobStore) {
	s.blobStores[name] = backend
	if s.defaultBackend == "" {
		s.defaultBackend = name
	}
}

func (s *service) GetBackend(name string) (BlobStore, error) {
	if name == "" {
		name = s.defaultBackend
	}
	store, ok := s.blobStores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStorageBackendNotFound, name)
	}
	return store, nil
}

// Inspect runs the extraction-and-inference core. The two steps are pure
// functions over the request bytes; nothing is persisted.
func (s *service) Inspect(ctx context.Context, req InspectRequest) (*Inspection, error) {
	format, err := extract.ParseFormat(req.FormatTag)
	if err != nil {
		return nil, err
	}
	if len(req.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, req.FileName)
	}

	record := extract.Extract(req.Data, format)
	assessment := risk.Infer(record.Raw)

	return &Inspection{
		FileName:   req.FileName,
		Format:     format,
		FormatName: format.String(),
		Record:     record,
		Raw:        record.Raw,
		Pretty:     record.Pretty,
		Assessment: assessment,
	}, nil
}

func (s *service) Scrub(ctx context.Context, req ScrubRequest) (*ScrubResult, error) {
	inspection, err := s.Inspect(ctx, InspectRequest{
		FileName:  req.FileName,
		FormatTag: req.FormatTag,
		Data:      req.Data,
	})
	if err != nil {
		return nil, err
	}

	store, err := s.GetBackend(req.StorageBackend)
	if err != nil {
		return nil, err
	}
	backendName := req.StorageBackend
	if backendName == "" {
		backendName = s.defaultBackend
	}

	scan := &ScanRecord{
		ID:             uuid.New(),
		FileName:       sanitizeFileName(req.FileName),
		Format:         inspection.FormatName,
		Score:          inspection.Assessment.Score,
		Findings:       inspection.Assessment.Findings,
		Status:         ScanStatusFailed,
		StorageBackend: backendName,
		CreatedAt:      time.Now().UTC(),
	}

	cleaned, cleanErr := clean.Clean(req.Data, inspection.Format)
	if cleanErr == nil {
		key := cleanedObjectKey(scan.ID, scan.FileName)
		if upErr := store.Upload(ctx, key, bytes.NewReader(cleaned)); upErr != nil {
			cleanErr = &StorageError{Backend: backendName, Key: key, Op: "upload", Err: upErr}
		} else {
			scan.ObjectKey = key
			scan.Status = ScanStatusScrubbed
		}
	}

	if err := s.repository.CreateScan(ctx, scan); err != nil {
		return nil, &ScanError{ScanID: scan.ID, Op: "record", Err: err}
	}
	s.eventSink.ScanRecorded(ctx, scan) //nolint:errcheck // events never fail the operation
	if scan.Status == ScanStatusScrubbed {
		s.eventSink.ObjectScrubbed(ctx, scan.ID, scan.ObjectKey) //nolint:errcheck
	}

	result := &ScrubResult{Inspection: inspection, Scan: scan}
	if cleanErr != nil {
		return result, &ScanError{ScanID: scan.ID, Op: "clean", Err: cleanErr}
	}
	return result, nil
}

// ScrubBatch processes files independently: one file's failure is reported
// in its entry and never affects the others. All cleaned copies are also
// packaged into a single ZIP archive.
func (s *service) ScrubBatch(ctx context.Context, req ScrubBatchRequest) (*ScrubBatchResult, error) {
	store, err := s.GetBackend(req.StorageBackend)
	if err != nil {
		return nil, err
	}
	backendName := req.StorageBackend
	if backendName == "" {
		backendName = s.defaultBackend
	}

	result := &ScrubBatchResult{}
	var archived []*ScanRecord

	for _, file := range req.Files {
		entry := ScrubBatchEntry{FileName: file.FileName}
		res, err := s.Scrub(ctx, ScrubRequest{
			FileName:       file.FileName,
			FormatTag:      file.FormatTag,
			Data:           file.Data,
			StorageBackend: req.StorageBackend,
		})
		entry.Result = res
		if err != nil {
			entry.Error = err.Error()
		} else {
			archived = append(archived, res.Scan)
		}
		result.Entries = append(result.Entries, entry)
	}

	if len(archived) == 0 {
		return result, nil
	}

	archiveID := uuid.New()
	archiveKey := archiveObjectKey(archiveID)
	data, err := s.buildArchive(ctx, store, archived)
	if err != nil {
		return result, fmt.Errorf("building archive: %w", err)
	}
	if err := store.Upload(ctx, archiveKey, bytes.NewReader(data)); err != nil {
		return result, &StorageError{Backend: backendName, Key: archiveKey, Op: "upload", Err: err}
	}
	s.eventSink.ArchiveBuilt(ctx, archiveID, archiveKey) //nolint:errcheck

	result.ArchiveID = archiveID
	result.ArchiveKey = archiveKey
	return result, nil
}

// buildArchive zips the stored cleaned copies of the given scans. Entry
// names carry a "cleaned_" prefix so the archive contents are recognizable
// next to the originals.
func (s *service) buildArchive(ctx context.Context, store BlobStore, scans []*ScanRecord) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, scan := range scans {
		rc, err := store.Download(ctx, scan.ObjectKey)
		if err != nil {
			return nil, &StorageError{Backend: scan.StorageBackend, Key: scan.ObjectKey, Op: "download", Err: err}
		}
		w, err := zw.Create("cleaned_" + scan.FileName)
		if err != nil {
			rc.Close()
			return nil, err
		}
		_, err = io.Copy(w, rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *service) GetScan(ctx context.Context, id uuid.UUID) (*ScanRecord, error) {
	return s.repository.GetScan(ctx, id)
}

func (s *service) ListScans(ctx context.Context, req ListScansRequest) ([]*ScanRecord, error) {
	return s.repository.ListScans(ctx, ListScansParams{
		Limit:  req.Limit,
		Offset: req.Offset,
		Status: req.Status,
	})
}

func (s *service) DeleteScan(ctx context.Context, id uuid.UUID) error {
	scan, err := s.repository.GetScan(ctx, id)
	if err != nil {
		return err
	}
	if scan.ObjectKey != "" {
		store, err := s.GetBackend(scan.StorageBackend)
		if err == nil {
			store.Delete(ctx, scan.ObjectKey) //nolint:errcheck // history removal wins over orphan cleanup
		}
	}
	return s.repository.DeleteScan(ctx, id)
}

func (s *service) OpenCleaned(ctx context.Context, scanID uuid.UUID) (io.ReadCloser, *ScanRecord, error) {
	scan, err := s.repository.GetScan(ctx, scanID)
	if err != nil {
		return nil, nil, err
	}
	if scan.ObjectKey == "" {
		return nil, nil, fmt.Errorf("%w: %s", ErrCleanedObjectMissing, scanID)
	}
	store, err := s.GetBackend(scan.StorageBackend)
	if err != nil {
		return nil, nil, err
	}
	rc, err := store.Download(ctx, scan.ObjectKey)
	if err != nil {
		return nil, nil, &StorageError{Backend: scan.StorageBackend, Key: scan.ObjectKey, Op: "download", Err: err}
	}
	return rc, scan, nil
}

func (s *service) OpenArchive(ctx context.Context, archiveID uuid.UUID) (io.ReadCloser, error) {
	store, err := s.GetBackend("")
	if err != nil {
		return nil, err
	}
	rc, err := store.Download(ctx, archiveObjectKey(archiveID))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, archiveID)
	}
	return rc, nil
}

func (s *service) GetCleanedURL(ctx context.Context, scanID uuid.UUID) (string, error) {
	scan, err := s.repository.GetScan(ctx, scanID)
	if err != nil {
		return "", err
	}
	if scan.ObjectKey == "" {
		return "", fmt.Errorf("%w: %s", ErrCleanedObjectMissing, scanID)
	}
	store, err := s.GetBackend(scan.StorageBackend)
	if err != nil {
		return "", err
	}
	return store.GetDownloadURL(ctx, scan.ObjectKey, "cleaned_"+scan.FileName)
}

func cleanedObjectKey(scanID uuid.UUID, fileName string) string {
	return path.Join("cleaned", scanID.String(), fileName)
}

func archiveObjectKey(archiveID uuid.UUID) string {
	return path.Join("archives", archiveID.String()+".zip")
}

// sanitizeFileName reduces an uploaded name to a safe base name for object
// keys and archive entries.
func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." {
		return "file"
	}
	return name
}
