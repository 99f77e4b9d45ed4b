package metascrub_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metascrub/metascrub/pkg/metascrub"
	"github.com/metascrub/metascrub/pkg/metascrub/extract"
	repomemory "github.com/metascrub/metascrub/pkg/metascrub/repo/memory"
	storagememory "github.com/metascrub/metascrub/pkg/metascrub/storage/memory"
)

func setupTestService(t *testing.T) (metascrub.Service, metascrub.BlobStore) {
	t.Helper()

	store := storagememory.New()
	svc, err := metascrub.New(
		metascrub.WithRepository(repomemory.New()),
		metascrub.WithBlobStore("memory", store),
	)
	require.NoError(t, err)
	return svc, store
}

func TestNewRequiresRepository(t *testing.T) {
	_, err := metascrub.New()
	assert.Error(t, err)
}

func TestInspectUnknownFormat(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.Inspect(context.Background(), metascrub.InspectRequest{
		FileName:  "clip.mov",
		FormatTag: "mov",
		Data:      []byte("data"),
	})
	assert.ErrorIs(t, err, metascrub.ErrUnsupportedFormat)
}

func TestInspectEmptyFile(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.Inspect(context.Background(), metascrub.InspectRequest{
		FileName:  "empty.pdf",
		FormatTag: "pdf",
	})
	assert.ErrorIs(t, err, metascrub.ErrEmptyFile)
}

func TestInspectDOCX(t *testing.T) {
	svc, _ := setupTestService(t)

	insp, err := svc.Inspect(context.Background(), metascrub.InspectRequest{
		FileName:  "report.docx",
		FormatTag: "docx",
		Data:      testDOCX(t),
	})
	require.NoError(t, err)

	assert.Equal(t, "report.docx", insp.FileName)
	assert.Equal(t, "docx", insp.FormatName)
	assert.Equal(t, "Jane Roe", insp.Raw["author"])
	assert.Equal(t, "Jane Roe", insp.Pretty["Author"])

	// Author info (+2) and timestamps (+1).
	assert.Equal(t, 3, insp.Assessment.Score)
	require.Len(t, insp.Assessment.Findings, 2)
	assert.Contains(t, insp.Assessment.Findings[0], "Author / creator")
	assert.Contains(t, insp.Assessment.Findings[1], "Timestamps")
}

func TestScrubStoresCleanedCopy(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	res, err := svc.Scrub(ctx, metascrub.ScrubRequest{
		FileName:  "report.docx",
		FormatTag: "docx",
		Data:      testDOCX(t),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Scan)

	assert.Equal(t, metascrub.ScanStatusScrubbed, res.Scan.Status)
	assert.Equal(t, "memory", res.Scan.StorageBackend)
	assert.True(t, strings.HasPrefix(res.Scan.ObjectKey, "cleaned/"))
	assert.Equal(t, res.Scan.Score, res.Inspection.Assessment.Score)

	// The scan is persisted and the cleaned copy carries no metadata.
	got, err := svc.GetScan(ctx, res.Scan.ID)
	require.NoError(t, err)
	assert.Equal(t, "report.docx", got.FileName)

	rc, scan, err := svc.OpenCleaned(ctx, res.Scan.ID)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, res.Scan.ID, scan.ID)

	cleaned, err := io.ReadAll(rc)
	require.NoError(t, err)
	rec := extract.Extract(cleaned, extract.FormatDOCX)
	require.Nil(t, rec.Failure)
	assert.Empty(t, rec.Raw)
}

func TestScrubSanitizesFileName(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	res, err := svc.Scrub(ctx, metascrub.ScrubRequest{
		FileName:  "../../evil name.docx",
		FormatTag: "docx",
		Data:      testDOCX(t),
	})
	require.NoError(t, err)
	assert.Equal(t, "evil_name.docx", res.Scan.FileName)
	assert.NotContains(t, res.Scan.ObjectKey, "..")
}

func TestScrubCleanFailureStillRecordsScan(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	res, err := svc.Scrub(ctx, metascrub.ScrubRequest{
		FileName:  "broken.jpg",
		FormatTag: "jpg",
		Data:      []byte("not a jpeg at all"),
	})

	require.Error(t, err)
	var scanErr *metascrub.ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, "clean", scanErr.Op)

	// The failed attempt is still visible in history.
	require.NotNil(t, res)
	assert.Equal(t, metascrub.ScanStatusFailed, res.Scan.Status)
	assert.Empty(t, res.Scan.ObjectKey)

	got, err := svc.GetScan(ctx, res.Scan.ID)
	require.NoError(t, err)
	assert.Equal(t, metascrub.ScanStatusFailed, got.Status)
}

func TestScrubUnknownBackend(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.Scrub(context.Background(), metascrub.ScrubRequest{
		FileName:       "a.docx",
		FormatTag:      "docx",
		Data:           testDOCX(t),
		StorageBackend: "s3",
	})
	assert.ErrorIs(t, err, metascrub.ErrStorageBackendNotFound)
}

func TestScrubBatchIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	res, err := svc.ScrubBatch(ctx, metascrub.ScrubBatchRequest{
		Files: []metascrub.FileInput{
			{FileName: "report.docx", FormatTag: "docx", Data: testDOCX(t)},
			{FileName: "broken.jpg", FormatTag: "jpg", Data: []byte("garbage")},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)

	ok := res.Entries[0]
	assert.Empty(t, ok.Error)
	require.NotNil(t, ok.Result)
	assert.Equal(t, metascrub.ScanStatusScrubbed, ok.Result.Scan.Status)

	bad := res.Entries[1]
	assert.NotEmpty(t, bad.Error)
	require.NotNil(t, bad.Result)
	assert.Equal(t, metascrub.ScanStatusFailed, bad.Result.Scan.Status)

	// The archive holds only the successful file.
	require.NotEqual(t, uuid.Nil, res.ArchiveID)
	rc, err := svc.OpenArchive(ctx, res.ArchiveID)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "cleaned_report.docx", zr.File[0].Name)
}

func TestScrubBatchNoSuccessesNoArchive(t *testing.T) {
	svc, _ := setupTestService(t)

	res, err := svc.ScrubBatch(context.Background(), metascrub.ScrubBatchRequest{
		Files: []metascrub.FileInput{
			{FileName: "broken.jpg", FormatTag: "jpg", Data: []byte("garbage")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, res.ArchiveID)
	assert.Empty(t, res.ArchiveKey)
}

// archiveFailStore rejects archive uploads while passing everything else
// through to the wrapped backend.
type archiveFailStore struct {
	metascrub.BlobStore
}

func (s archiveFailStore) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	if strings.HasPrefix(objectKey, "archives/") {
		return errors.New("upload quota exceeded")
	}
	return s.BlobStore.Upload(ctx, objectKey, reader)
}

func TestScrubBatchArchiveUploadErrorNamesBackend(t *testing.T) {
	svc, err := metascrub.New(
		metascrub.WithRepository(repomemory.New()),
		metascrub.WithBlobStore("memory", archiveFailStore{BlobStore: storagememory.New()}),
	)
	require.NoError(t, err)

	// The request leaves the backend unset, so the error must carry the
	// resolved default backend name.
	_, err = svc.ScrubBatch(context.Background(), metascrub.ScrubBatchRequest{
		Files: []metascrub.FileInput{
			{FileName: "report.docx", FormatTag: "docx", Data: testDOCX(t)},
		},
	})
	require.Error(t, err)

	var storageErr *metascrub.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "memory", storageErr.Backend)
	assert.Equal(t, "upload", storageErr.Op)
	assert.True(t, strings.HasPrefix(storageErr.Key, "archives/"))
}

func TestOpenArchiveNotFound(t *testing.T) {
	svc, _ := setupTestService(t)
	_, err := svc.OpenArchive(context.Background(), uuid.New())
	assert.ErrorIs(t, err, metascrub.ErrArchiveNotFound)
}

func TestOpenCleanedWithoutStoredObject(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	res, _ := svc.Scrub(ctx, metascrub.ScrubRequest{
		FileName:  "broken.jpg",
		FormatTag: "jpg",
		Data:      []byte("garbage"),
	})
	require.NotNil(t, res)

	_, _, err := svc.OpenCleaned(ctx, res.Scan.ID)
	assert.ErrorIs(t, err, metascrub.ErrCleanedObjectMissing)
}

func TestGetCleanedURLMemoryBackend(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	res, err := svc.Scrub(ctx, metascrub.ScrubRequest{
		FileName:  "report.docx",
		FormatTag: "docx",
		Data:      testDOCX(t),
	})
	require.NoError(t, err)

	// The in-memory backend cannot mint URLs.
	_, err = svc.GetCleanedURL(ctx, res.Scan.ID)
	assert.Error(t, err)
}

func TestListScans(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	for _, name := range []string{"a.docx", "b.docx"} {
		_, err := svc.Scrub(ctx, metascrub.ScrubRequest{
			FileName:  name,
			FormatTag: "docx",
			Data:      testDOCX(t),
		})
		require.NoError(t, err)
	}

	scans, err := svc.ListScans(ctx, metascrub.ListScansRequest{})
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, "b.docx", scans[0].FileName)
}

func TestDeleteScanRemovesStoredObject(t *testing.T) {
	ctx := context.Background()
	svc, store := setupTestService(t)

	res, err := svc.Scrub(ctx, metascrub.ScrubRequest{
		FileName:  "report.docx",
		FormatTag: "docx",
		Data:      testDOCX(t),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteScan(ctx, res.Scan.ID))

	_, err = svc.GetScan(ctx, res.Scan.ID)
	assert.ErrorIs(t, err, metascrub.ErrScanNotFound)

	_, err = store.Download(ctx, res.Scan.ObjectKey)
	assert.Error(t, err)
}

// testDOCX builds a minimal document whose core properties fire the author
// and timestamp rules.
func testDOCX(t *testing.T) []byte {
	t.Helper()

	core := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
<dc:creator>Jane Roe</dc:creator>
<dc:title>Notes</dc:title>
<dcterms:created xsi:type="dcterms:W3CDTF">2021-03-04T10:00:00Z</dcterms:created>
<dcterms:modified xsi:type="dcterms:W3CDTF">2021-03-05T11:30:00Z</dcterms:modified>
</cp:coreProperties>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, part := range []struct{ name, body string }{
		{"word/document.xml", `<?xml version="1.0"?><document/>`},
		{"docProps/core.xml", core},
	} {
		w, err := zw.Create(part.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(part.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
