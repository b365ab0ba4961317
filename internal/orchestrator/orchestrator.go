// Package orchestrator drives scraping and downloading for one site:
// it walks paginated listings, deduplicates against known releases,
// retries transient failures, selects file variants under the quality
// policy and checkpoints session state so long runs can resume.
package orchestrator

import (
	"context"
	"time"

	"github.com/riptidemedia/riptide/internal/config"
	"github.com/riptidemedia/riptide/internal/downloader"
	"github.com/riptidemedia/riptide/internal/hashindex"
	"github.com/riptidemedia/riptide/internal/planner"
	"github.com/riptidemedia/riptide/internal/repository"
	"github.com/riptidemedia/riptide/internal/scraper"
	"github.com/riptidemedia/riptide/internal/storage"
	"github.com/riptidemedia/riptide/pkg/interfaces"
)

// Orchestrator owns one site's browser session for the duration of a
// pass. Passes are strictly sequential per site; running different
// sites concurrently is the caller's concern.
type Orchestrator struct {
	repo       repository.Repository
	registry   *scraper.Registry
	planner    *planner.Planner
	downloader *downloader.Downloader
	hashes     hashindex.Index
	previews   storage.Archiver
	mirror     storage.Archiver
	bus        interfaces.EventBus
	logger     interfaces.Logger
	cfg        config.RunConfig
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPreviewStorage stores preview imagery fetched during scrape
// passes. Preview failures never fail a release.
func WithPreviewStorage(s storage.Archiver) Option {
	return func(o *Orchestrator) { o.previews = s }
}

// WithMirror mirrors completed downloads to archival storage, best
// effort.
func WithMirror(s storage.Archiver) Option {
	return func(o *Orchestrator) { o.mirror = s }
}

// WithHashIndex records perceptual hashes of completed downloads.
func WithHashIndex(idx hashindex.Index) Option {
	return func(o *Orchestrator) { o.hashes = idx }
}

// New creates an orchestrator.
func New(
	repo repository.Repository,
	registry *scraper.Registry,
	plan *planner.Planner,
	dl *downloader.Downloader,
	bus interfaces.EventBus,
	logger interfaces.Logger,
	cfg config.RunConfig,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		repo:       repo,
		registry:   registry,
		planner:    plan,
		downloader: dl,
		bus:        bus,
		logger:     logger,
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ScrapeResult summarizes one scrape pass.
type ScrapeResult struct {
	Pages   int
	Scraped int
	Updated int
	Skipped int
}

// DownloadResult summarizes one download pass.
type DownloadResult struct {
	Releases   int
	Planned    int
	Downloaded int
	Skipped    int
}

// sleep pauses cooperatively, honoring cancellation.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
