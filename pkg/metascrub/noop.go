package metascrub

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is an event sink that does nothing.
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-op event sink.
func NewNoopEventSink() *NoopEventSink {
	return &NoopEventSink{}
}

func (s *NoopEventSink) ScanRecorded(ctx context.Context, scan *ScanRecord) error { return nil }

func (s *NoopEventSink) ObjectScrubbed(ctx context.Context, scanID uuid.UUID, objectKey string) error {
	return nil
}

func (s *NoopEventSink) ArchiveBuilt(ctx context.Context, archiveID uuid.UUID, objectKey string) error {
	return nil
}

// SlogEventSink logs every event through a structured logger.
type SlogEventSink struct {
	logger *slog.Logger
}

// NewSlogEventSink creates an event sink backed by the given logger; nil
// uses the default logger.
func NewSlogEventSink(logger *slog.Logger) *SlogEventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogEventSink{logger: logger}
}

func (s *SlogEventSink) ScanRecorded(ctx context.Context, scan *ScanRecord) error {
	s.logger.InfoContext(ctx, "scan recorded",
		"scan_id", scan.ID,
		"file_name", scan.FileName,
		"format", scan.Format,
		"score", scan.Score,
		"status", scan.Status,
	)
	return nil
}

func (s *SlogEventSink) ObjectScrubbed(ctx context.Context, scanID uuid.UUID, objectKey string) error {
	s.logger.InfoContext(ctx, "object scrubbed", "scan_id", scanID, "object_key", objectKey)
	return nil
}

func (s *SlogEventSink) ArchiveBuilt(ctx context.Context, archiveID uuid.UUID, objectKey string) error {
	s.logger.InfoContext(ctx, "archive built", "archive_id", archiveID, "object_key", objectKey)
	return nil
}
