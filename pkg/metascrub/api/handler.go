package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/metascrub/metascrub/pkg/metascrub"
	"github.com/metascrub/metascrub/pkg/metascrub/extract"
)

// Handler exposes the metascrub service over HTTP. File-type allow-listing
// and upload limits live here, upstream of the extractor.
type Handler struct {
	service        metascrub.Service
	maxUploadBytes int64
}

// NewHandler creates an HTTP handler around the given service.
// maxUploadBytes caps the whole multipart request body; zero means 200 MB.
func NewHandler(service metascrub.Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 200 << 20
	}
	return &Handler{service: service, maxUploadBytes: maxUploadBytes}
}

// Routes returns the router for metascrub endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/inspect", h.Inspect)
	r.Post("/scrub", h.Scrub)
	r.Get("/scans", h.ListScans)
	r.Get("/scans/{scan_id}", h.GetScan)
	r.Get("/files/{scan_id}/download", h.DownloadCleaned)
	r.Get("/archives/{archive_id}", h.DownloadArchive)
	return r
}

// InspectionEntry is one file's outcome in an inspect response.
type InspectionEntry struct {
	FileName   string                `json:"file_name"`
	Inspection *metascrub.Inspection `json:"inspection,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// InspectResponse lists per-file inspection results.
type InspectResponse struct {
	Files []InspectionEntry `json:"files"`
}

// ScrubResponse lists per-file scrub results plus the batch archive.
type ScrubResponse struct {
	Files      []metascrub.ScrubBatchEntry `json:"files"`
	ArchiveID  string                      `json:"archive_id,omitempty"`
	ArchiveURL string                      `json:"archive_url,omitempty"`
}

// Inspect reports metadata and risk for each uploaded file without
// producing cleaned copies.
func (h *Handler) Inspect(w http.ResponseWriter, r *http.Request) {
	files, ok := h.openUploads(w, r)
	if !ok {
		return
	}

	resp := InspectResponse{Files: []InspectionEntry{}}
	for _, f := range files {
		entry := InspectionEntry{FileName: f.FileName}
		if f.Err != "" {
			entry.Error = f.Err
			resp.Files = append(resp.Files, entry)
			continue
		}
		inspection, err := h.service.Inspect(r.Context(), metascrub.InspectRequest{
			FileName:  f.FileName,
			FormatTag: f.FormatTag,
			Data:      f.Data,
		})
		if err != nil {
			slog.Error("inspect failed", "file_name", f.FileName, "error", err)
			entry.Error = err.Error()
		} else {
			entry.Inspection = inspection
		}
		resp.Files = append(resp.Files, entry)
	}

	render.JSON(w, r, resp)
}

// Scrub inspects and cleans every uploaded file. Per-file failures are
// reported in their entries; the request succeeds as long as the upload
// itself was readable.
func (h *Handler) Scrub(w http.ResponseWriter, r *http.Request) {
	files, ok := h.openUploads(w, r)
	if !ok {
		return
	}

	req := metascrub.ScrubBatchRequest{}
	var rejected []metascrub.ScrubBatchEntry
	for _, f := range files {
		if f.Err != "" {
			rejected = append(rejected, metascrub.ScrubBatchEntry{FileName: f.FileName, Error: f.Err})
			continue
		}
		req.Files = append(req.Files, metascrub.FileInput{
			FileName:  f.FileName,
			FormatTag: f.FormatTag,
			Data:      f.Data,
		})
	}

	result, err := h.service.ScrubBatch(r.Context(), req)
	if err != nil {
		slog.Error("scrub batch failed", "error", err)
		http.Error(w, "scrub failed", http.StatusInternalServerError)
		return
	}

	resp := ScrubResponse{Files: append(rejected, result.Entries...)}
	if result.ArchiveID != uuid.Nil {
		resp.ArchiveID = result.ArchiveID.String()
		resp.ArchiveURL = fmt.Sprintf("/api/v1/archives/%s", result.ArchiveID)
	}
	render.JSON(w, r, resp)
}

func (h *Handler) ListScans(w http.ResponseWriter, r *http.Request) {
	req := metascrub.ListScansRequest{Limit: 50}
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			req.Limit = limit
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil && offset >= 0 {
			req.Offset = offset
		}
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := metascrub.ScanStatus(v)
		if !status.IsValid() {
			http.Error(w, "invalid status filter", http.StatusBadRequest)
			return
		}
		req.Status = &status
	}

	scans, err := h.service.ListScans(r.Context(), req)
	if err != nil {
		slog.Error("list scans failed", "error", err)
		http.Error(w, "failed to list scans", http.StatusInternalServerError)
		return
	}
	if scans == nil {
		scans = []*metascrub.ScanRecord{}
	}
	render.JSON(w, r, map[string]interface{}{"scans": scans})
}

func (h *Handler) GetScan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "scan_id"))
	if err != nil {
		http.Error(w, "invalid scan ID", http.StatusBadRequest)
		return
	}

	scan, err := h.service.GetScan(r.Context(), id)
	if err != nil {
		if errors.Is(err, metascrub.ErrScanNotFound) {
			http.Error(w, "scan not found", http.StatusNotFound)
			return
		}
		slog.Error("get scan failed", "scan_id", id, "error", err)
		http.Error(w, "failed to get scan", http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, scan)
}

func (h *Handler) DownloadCleaned(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "scan_id"))
	if err != nil {
		http.Error(w, "invalid scan ID", http.StatusBadRequest)
		return
	}

	rc, scan, err := h.service.OpenCleaned(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, metascrub.ErrScanNotFound), errors.Is(err, metascrub.ErrCleanedObjectMissing):
			http.Error(w, "cleaned file not found", http.StatusNotFound)
		default:
			slog.Error("download cleaned failed", "scan_id", id, "error", err)
			http.Error(w, "download failed", http.StatusInternalServerError)
		}
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "cleaned_"+scan.FileName))
	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("streaming cleaned file failed", "scan_id", id, "error", err)
	}
}

func (h *Handler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "archive_id"))
	if err != nil {
		http.Error(w, "invalid archive ID", http.StatusBadRequest)
		return
	}

	rc, err := h.service.OpenArchive(r.Context(), id)
	if err != nil {
		if errors.Is(err, metascrub.ErrArchiveNotFound) {
			http.Error(w, "archive not found", http.StatusNotFound)
			return
		}
		slog.Error("download archive failed", "archive_id", id, "error", err)
		http.Error(w, "download failed", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="cleaned_files.zip"`)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("streaming archive failed", "archive_id", id, "error", err)
	}
}

// upload is one part of a multipart request after reading. Err carries a
// per-file rejection (unsupported type) that must not fail the request.
type upload struct {
	FileName  string
	FormatTag string
	Data      []byte
	Err       string
}

// openUploads reads all "file" parts. A false return means the response has
// already been written.
func (h *Handler) openUploads(w http.ResponseWriter, r *http.Request) ([]upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		slog.Error("failed to parse multipart form", "error", err)
		http.Error(w, "invalid multipart request", http.StatusBadRequest)
		return nil, false
	}

	parts := r.MultipartForm.File["file"]
	if len(parts) == 0 {
		http.Error(w, "no files in request", http.StatusBadRequest)
		return nil, false
	}

	var uploads []upload
	for _, part := range parts {
		uploads = append(uploads, readUpload(part))
	}
	return uploads, true
}

func readUpload(part *multipart.FileHeader) upload {
	name := filepath.Base(part.Filename)
	u := upload{FileName: name}

	tag := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if _, err := extract.ParseFormat(tag); err != nil {
		u.Err = "File type not supported"
		return u
	}
	u.FormatTag = tag

	f, err := part.Open()
	if err != nil {
		u.Err = "failed to read upload"
		return u
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		u.Err = "failed to read upload"
		return u
	}
	u.Data = data
	return u
}
