package scraper

import (
	"context"
	"io"

	"github.com/riptidemedia/riptide/internal/domain/catalog"
)

// Candidate is one listing entry before its detail page is scraped.
type Candidate struct {
	URL       string
	ShortName string
}

// PagesUnknown is returned by OpenListing when the catalog length
// cannot be determined up front (infinite scroll, streaming listings).
// The pass then ends at the first empty candidate page.
const PagesUnknown = -1

// SiteScraper is the per-site capability the orchestrator drives. One
// scraper instance owns one browser/HTTP session per pass; it is never
// shared across concurrent passes.
//
// The session state is threaded explicitly: Login returns the refreshed
// state and every subsequent call receives it back, so callers control
// when it is persisted.
type SiteScraper interface {
	// Login authenticates, reusing site.Session when still accepted by
	// the remote site and performing a fresh login otherwise. A failed
	// login is fatal to the whole pass.
	Login(ctx context.Context, site *catalog.Site) (catalog.SessionState, error)

	// OpenListing navigates to the catalog root and returns the total
	// page count, or PagesUnknown for unbounded pagination.
	OpenListing(ctx context.Context, session catalog.SessionState) (int, error)

	// PageCandidates returns the candidates of one catalog page, in
	// listing order. Pages are numbered from 1. An empty slice ends an
	// unbounded pass.
	PageCandidates(ctx context.Context, session catalog.SessionState, page int) ([]Candidate, error)

	// ScrapeDetail fetches and extracts one release's detail page,
	// including its available-files snapshot.
	ScrapeDetail(ctx context.Context, session catalog.SessionState, candidate Candidate) (*catalog.Release, error)

	// FetchPreview fetches preview imagery for a release. Best effort:
	// the orchestrator logs and moves on if it fails.
	FetchPreview(ctx context.Context, session catalog.SessionState, release *catalog.Release) ([]byte, error)

	// EphemeralFileURLs reports whether the site issues per-session
	// download URLs, requiring a live re-scrape before each download.
	EphemeralFileURLs() bool

	// OpenFile opens the byte stream of one available file. The
	// returned size is -1 when unknown.
	OpenFile(ctx context.Context, session catalog.SessionState, release *catalog.Release, file catalog.AvailableFile) (io.ReadCloser, int64, error)
}
