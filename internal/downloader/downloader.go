// Package downloader transfers selected available files to local
// storage with collision-safe staging: bytes stream to a temporary
// name and only a completed transfer is renamed into place.
package downloader

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/riptidemedia/riptide/internal/domain/catalog"
	"github.com/riptidemedia/riptide/pkg/errors"
	"github.com/riptidemedia/riptide/pkg/interfaces"
)

const (
	// tempSuffix marks in-flight transfers.
	tempSuffix = ".part"

	copyBufferSize = 32 * 1024
)

// PhashFunc computes a perceptual hash of downloaded media, feeding
// the nearest-by-hash quality policy. Site-dependent and optional.
type PhashFunc func(r io.Reader) (uint64, error)

// FreeSpaceFunc reports the free bytes of the volume holding path.
type FreeSpaceFunc func(path string) (uint64, error)

// Downloader writes one file at a time under a per-site directory.
type Downloader struct {
	fs        afero.Fs
	root      string
	minFree   uint64
	freeSpace FreeSpaceFunc
	phash     PhashFunc
	logger    interfaces.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithFs replaces the backing filesystem. Used in tests.
func WithFs(fs afero.Fs) Option {
	return func(d *Downloader) { d.fs = fs }
}

// WithFreeSpace replaces the free-space probe. Used in tests.
func WithFreeSpace(f FreeSpaceFunc) Option {
	return func(d *Downloader) { d.freeSpace = f }
}

// WithPhash installs a post-transfer perceptual hash step.
func WithPhash(f PhashFunc) Option {
	return func(d *Downloader) { d.phash = f }
}

// New creates a downloader rooted at root. minFree is the free-space
// floor below which the whole download pass must stop.
func New(root string, minFree uint64, logger interfaces.Logger, opts ...Option) *Downloader {
	d := &Downloader{
		fs:        afero.NewOsFs(),
		root:      root,
		minFree:   minFree,
		freeSpace: osFreeSpace,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Save streams src into the site's destination directory and returns
// the Download record. Running out of the free-space floor is fatal to
// the whole pass, not just this file.
func (d *Downloader) Save(ctx context.Context, site *catalog.Site, release *catalog.Release, file catalog.AvailableFile, src io.Reader) (*catalog.Download, error) {
	destDir := filepath.Join(d.root, site.ShortName)
	if err := d.fs.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	if err := d.checkFreeSpace(destDir); err != nil {
		return nil, err
	}

	filename := BuildFilename(site, release, file)
	finalPath := filepath.Join(destDir, filename)
	tempPath := finalPath + tempSuffix

	written, err := d.stage(ctx, tempPath, src)
	if err != nil {
		if removeErr := d.fs.Remove(tempPath); removeErr != nil {
			d.logger.Warn("Failed to remove staging file",
				interfaces.String("path", tempPath),
				interfaces.Error(removeErr))
		}
		return nil, err
	}

	if err := d.fs.Rename(tempPath, finalPath); err != nil {
		return nil, fmt.Errorf("failed to move download into place: %w", err)
	}

	download := &catalog.Download{
		ID:           uuid.New(),
		ReleaseID:    release.ID,
		Kind:         file.Kind,
		Content:      file.Content,
		Variant:      file.Variant,
		Filename:     filename,
		SizeBytes:    written,
		DownloadedAt: time.Now(),
	}

	if d.phash != nil {
		if hash, err := d.hashFile(finalPath); err != nil {
			d.logger.Warn("Failed to hash downloaded file",
				interfaces.String("path", finalPath),
				interfaces.Error(err))
		} else {
			download.Phash = hash
			download.HasPhash = true
		}
	}

	return download, nil
}

// checkFreeSpace enforces the preflight free-space floor.
func (d *Downloader) checkFreeSpace(path string) error {
	free, err := d.freeSpace(path)
	if err != nil {
		return fmt.Errorf("failed to probe free space: %w", err)
	}
	if free < d.minFree {
		return errors.Exhausted(fmt.Sprintf(
			"free space %d below threshold %d on %s", free, d.minFree, path))
	}
	return nil
}

// stage copies src to the temporary path, honoring cancellation
// between chunks.
func (d *Downloader) stage(ctx context.Context, tempPath string, src io.Reader) (int64, error) {
	out, err := d.fs.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create staging file: %w", err)
	}

	var written int64
	buf := make([]byte, copyBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			out.Close()
			return written, Retryable("transfer cancelled", err)
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				out.Close()
				return written, Retryable("failed to write staging file", writeErr)
			}
			written += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			return written, Retryable("transfer interrupted", readErr)
		}
	}

	if err := out.Close(); err != nil {
		return written, Retryable("failed to finalize staging file", err)
	}
	return written, nil
}

// Open opens a completed download for reading, e.g. for mirroring to
// archival storage.
func (d *Downloader) Open(site *catalog.Site, filename string) (io.ReadCloser, error) {
	return d.fs.Open(filepath.Join(d.root, site.ShortName, filename))
}

func (d *Downloader) hashFile(path string) (uint64, error) {
	f, err := d.fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return d.phash(f)
}
