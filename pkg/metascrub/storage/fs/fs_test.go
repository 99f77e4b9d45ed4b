package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) (*Backend, string) {
	t.Helper()
	dir := t.TempDir()
	b, err := New(Config{BaseDir: dir})
	require.NoError(t, err)
	return b.(*Backend), dir
}

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend, dir := newTestBackend(t)

	err := backend.Upload(ctx, "cleaned/id/photo.jpg", strings.NewReader("pixels"))
	require.NoError(t, err)

	// The object lands under the base directory.
	_, err = os.Stat(filepath.Join(dir, "cleaned", "id", "photo.jpg"))
	require.NoError(t, err)

	rc, err := backend.Download(ctx, "cleaned/id/photo.jpg")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))
}

func TestPathEscapeRejected(t *testing.T) {
	ctx := context.Background()
	backend, _ := newTestBackend(t)

	err := backend.Upload(ctx, "../outside.txt", strings.NewReader("x"))
	assert.Error(t, err)

	_, err = backend.Download(ctx, "../../etc/passwd")
	assert.Error(t, err)
}

func TestDownloadMissing(t *testing.T) {
	backend, _ := newTestBackend(t)
	_, err := backend.Download(context.Background(), "absent.bin")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	backend, _ := newTestBackend(t)

	require.NoError(t, backend.Upload(ctx, "a/b.txt", strings.NewReader("x")))
	require.NoError(t, backend.Delete(ctx, "a/b.txt"))

	_, err := backend.Download(ctx, "a/b.txt")
	assert.Error(t, err)

	assert.NoError(t, backend.Delete(ctx, "a/b.txt"))
}

func TestGetObjectMeta(t *testing.T) {
	ctx := context.Background()
	backend, _ := newTestBackend(t)

	require.NoError(t, backend.Upload(ctx, "meta.txt", strings.NewReader("hello world")))

	meta, err := backend.GetObjectMeta(ctx, "meta.txt")
	require.NoError(t, err)
	assert.Equal(t, "meta.txt", meta.Key)
	assert.Equal(t, int64(11), meta.Size)
	assert.Contains(t, meta.ContentType, "text/plain")
}

func TestGetDownloadURL(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := New(Config{BaseDir: dir, URLPrefix: "http://files.local/objects/"})
	require.NoError(t, err)

	u, err := b.GetDownloadURL(ctx, "cleaned/id/a.pdf", "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://files.local/objects/cleaned/id/a.pdf?filename=a.pdf", u)

	noPrefix, _ := New(Config{BaseDir: dir})
	_, err = noPrefix.GetDownloadURL(ctx, "k", "")
	assert.Error(t, err)
}
