package metascrub

// InspectRequest asks for metadata extraction and risk inference on one
// file, with no cleaning. FormatTag is the caller-declared format
// ("jpg", "jpeg", "png", "pdf", "docx"); it is validated here, before the
// extractor is invoked.
type InspectRequest struct {
	FileName  string
	FormatTag string
	Data      []byte
}

// ScrubRequest asks for inspection plus a stored cleaned copy.
// StorageBackend selects a registered blob store; empty means the service
// default.
type ScrubRequest struct {
	FileName       string
	FormatTag      string
	Data           []byte
	StorageBackend string
}

// FileInput is one file within a batch.
type FileInput struct {
	FileName  string
	FormatTag string
	Data      []byte
}

// ScrubBatchRequest asks for per-file scrubbing of several files plus a ZIP
// archive of all cleaned outputs.
type ScrubBatchRequest struct {
	Files          []FileInput
	StorageBackend string
}

// ListScansRequest pages through scan history, newest first.
type ListScansRequest struct {
	Limit  int
	Offset int
	Status *ScanStatus
}
