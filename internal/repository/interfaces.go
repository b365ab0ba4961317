package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/riptidemedia/riptide/internal/domain/catalog"
)

// Repository is the persistence gateway the orchestrator depends on.
// All writes are immediately visible to subsequent reads within the
// same pass: the incremental-stop and download-dedup rules read their
// own writes.
type Repository interface {
	// CreateSite stores a new site.
	CreateSite(ctx context.Context, site *catalog.Site) error

	// GetSite retrieves a site by short name, including its persisted
	// session state.
	GetSite(ctx context.Context, shortName string) (*catalog.Site, error)

	// UpdateSite overwrites a site's identity and credentials. Session
	// state is untouched; UpdateSessionState owns it.
	UpdateSite(ctx context.Context, site *catalog.Site) error

	// UpdateSessionState overwrites a site's persisted session state.
	UpdateSessionState(ctx context.Context, shortName string, state catalog.SessionState) error

	// GetRelease retrieves a release by site and release short name.
	GetRelease(ctx context.Context, siteShortName, releaseShortName string) (*catalog.Release, error)

	// UpsertRelease stores a release keyed by (site, short name):
	// an existing row is updated, never duplicated. Performers and
	// tags are get-or-create within the site; an unseen sub-site is
	// created lazily.
	UpsertRelease(ctx context.Context, siteShortName string, release *catalog.Release) (*catalog.Release, error)

	// QueryReleases lists a site's releases matching the conditions'
	// date range and performer filter, ordered by release date
	// ascending.
	QueryReleases(ctx context.Context, siteShortName string, cond catalog.DownloadConditions) ([]*catalog.Release, error)

	// ListDownloads lists the recorded downloads of one release.
	ListDownloads(ctx context.Context, releaseID uuid.UUID) ([]catalog.Download, error)

	// SaveDownload records one completed transfer.
	SaveDownload(ctx context.Context, download *catalog.Download) error
}
