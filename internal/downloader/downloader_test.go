package downloader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptidemedia/riptide/internal/domain/catalog"
	pkgerrors "github.com/riptidemedia/riptide/pkg/errors"
	"github.com/riptidemedia/riptide/pkg/logger"
)

func testSite() *catalog.Site {
	return &catalog.Site{
		ID:        uuid.New(),
		ShortName: "examplesite",
		Name:      "Example Site",
	}
}

func sceneRelease() *catalog.Release {
	return &catalog.Release{
		ID:          uuid.New(),
		ShortName:   "scene-100",
		Title:       "A Day at the Beach",
		ReleaseDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Performers:  []catalog.Performer{{Name: "Alice Doe"}},
	}
}

func sceneFile() catalog.AvailableFile {
	return catalog.AvailableFile{
		Kind:    catalog.FileKindVideo,
		Content: catalog.ContentScene,
		Variant: "1080p",
		URL:     "https://example.com/files/scene-100-1080p.mp4",
		Video:   &catalog.VideoInfo{Height: 1080, FrameRate: 30},
	}
}

func plentyOfSpace(string) (uint64, error) { return 100 << 30, nil }

func newTestDownloader(t *testing.T, opts ...Option) (*Downloader, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	base := []Option{WithFs(fs), WithFreeSpace(plentyOfSpace)}
	d := New("/downloads", 5<<30, logger.NewNoop(), append(base, opts...)...)
	return d, fs
}

func TestSaveWritesFileUnderSiteDirectory(t *testing.T) {
	d, fs := newTestDownloader(t)
	content := strings.Repeat("x", 1000)

	download, err := d.Save(context.Background(), testSite(), sceneRelease(), sceneFile(),
		strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, "Alice Doe - Example Site - 2024-03-15 - A Day at the Beach.mp4", download.Filename)
	assert.Equal(t, int64(len(content)), download.SizeBytes)
	assert.Equal(t, "1080p", download.Variant)
	assert.False(t, download.HasPhash)

	data, err := afero.ReadFile(fs, "/downloads/examplesite/"+download.Filename)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestSaveLeavesNoTemporaryFile(t *testing.T) {
	d, fs := newTestDownloader(t)

	download, err := d.Save(context.Background(), testSite(), sceneRelease(), sceneFile(),
		strings.NewReader("payload"))
	require.NoError(t, err)

	exists, err := afero.Exists(fs, "/downloads/examplesite/"+download.Filename+tempSuffix)
	require.NoError(t, err)
	assert.False(t, exists)
}

type failingReader struct {
	data []byte
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		n := copy(p, r.data)
		return n, nil
	}
	return 0, errors.New("connection reset")
}

func TestSaveInterruptedTransferLeavesNothingBehind(t *testing.T) {
	d, fs := newTestDownloader(t)
	site := testSite()

	_, err := d.Save(context.Background(), site, sceneRelease(), sceneFile(),
		&failingReader{data: []byte("partial")})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))

	// Neither the final file nor the staging file may survive.
	files, err := afero.ReadDir(fs, "/downloads/examplesite")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSaveRefusesWhenFreeSpaceBelowFloor(t *testing.T) {
	d, _ := newTestDownloader(t, WithFreeSpace(func(string) (uint64, error) {
		return 1 << 30, nil
	}))

	_, err := d.Save(context.Background(), testSite(), sceneRelease(), sceneFile(),
		strings.NewReader("payload"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsExhausted(err))
	assert.True(t, pkgerrors.IsFatal(err))
}

func TestSaveHonorsCancellation(t *testing.T) {
	d, _ := newTestDownloader(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Save(ctx, testSite(), sceneRelease(), sceneFile(),
		strings.NewReader("payload"))
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestSaveRecordsPerceptualHash(t *testing.T) {
	d, _ := newTestDownloader(t, WithPhash(func(r io.Reader) (uint64, error) {
		_, err := io.Copy(io.Discard, r)
		return 0xDEADBEEF, err
	}))

	download, err := d.Save(context.Background(), testSite(), sceneRelease(), sceneFile(),
		strings.NewReader("payload"))
	require.NoError(t, err)
	assert.True(t, download.HasPhash)
	assert.Equal(t, uint64(0xDEADBEEF), download.Phash)
}

func TestSaveSurvivesFailingPhash(t *testing.T) {
	d, _ := newTestDownloader(t, WithPhash(func(io.Reader) (uint64, error) {
		return 0, errors.New("not an image")
	}))

	download, err := d.Save(context.Background(), testSite(), sceneRelease(), sceneFile(),
		strings.NewReader("payload"))
	require.NoError(t, err)
	assert.False(t, download.HasPhash)
}

func TestOpenReadsCompletedDownload(t *testing.T) {
	d, _ := newTestDownloader(t)
	site := testSite()

	download, err := d.Save(context.Background(), site, sceneRelease(), sceneFile(),
		strings.NewReader("payload"))
	require.NoError(t, err)

	f, err := d.Open(site, download.Filename)
	require.NoError(t, err)
	defer f.Close()

	var buf bytes.Buffer
	_, err = io.Copy(&buf, f)
	require.NoError(t, err)
	assert.Equal(t, "payload", buf.String())
}
