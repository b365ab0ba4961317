package orchestrator

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/riptidemedia/riptide/internal/domain/catalog"
	"github.com/riptidemedia/riptide/internal/scraper"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) CreateSite(ctx context.Context, site *catalog.Site) error {
	args := m.Called(ctx, site)
	return args.Error(0)
}

func (m *mockRepository) GetSite(ctx context.Context, shortName string) (*catalog.Site, error) {
	args := m.Called(ctx, shortName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Site), args.Error(1)
}

func (m *mockRepository) UpdateSite(ctx context.Context, site *catalog.Site) error {
	args := m.Called(ctx, site)
	return args.Error(0)
}

func (m *mockRepository) UpdateSessionState(ctx context.Context, shortName string, state catalog.SessionState) error {
	args := m.Called(ctx, shortName, state)
	return args.Error(0)
}

func (m *mockRepository) GetRelease(ctx context.Context, siteShortName, releaseShortName string) (*catalog.Release, error) {
	args := m.Called(ctx, siteShortName, releaseShortName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Release), args.Error(1)
}

func (m *mockRepository) UpsertRelease(ctx context.Context, siteShortName string, release *catalog.Release) (*catalog.Release, error) {
	args := m.Called(ctx, siteShortName, release)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Release), args.Error(1)
}

func (m *mockRepository) QueryReleases(ctx context.Context, siteShortName string, cond catalog.DownloadConditions) ([]*catalog.Release, error) {
	args := m.Called(ctx, siteShortName, cond)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*catalog.Release), args.Error(1)
}

func (m *mockRepository) ListDownloads(ctx context.Context, releaseID uuid.UUID) ([]catalog.Download, error) {
	args := m.Called(ctx, releaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Download), args.Error(1)
}

func (m *mockRepository) SaveDownload(ctx context.Context, download *catalog.Download) error {
	args := m.Called(ctx, download)
	return args.Error(0)
}

type mockScraper struct {
	mock.Mock
	ephemeral bool
}

func (m *mockScraper) Login(ctx context.Context, site *catalog.Site) (catalog.SessionState, error) {
	args := m.Called(ctx, site)
	return args.Get(0).(catalog.SessionState), args.Error(1)
}

func (m *mockScraper) OpenListing(ctx context.Context, session catalog.SessionState) (int, error) {
	args := m.Called(ctx, session)
	return args.Int(0), args.Error(1)
}

func (m *mockScraper) PageCandidates(ctx context.Context, session catalog.SessionState, page int) ([]scraper.Candidate, error) {
	args := m.Called(ctx, session, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]scraper.Candidate), args.Error(1)
}

func (m *mockScraper) ScrapeDetail(ctx context.Context, session catalog.SessionState, cand scraper.Candidate) (*catalog.Release, error) {
	args := m.Called(ctx, session, cand)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Release), args.Error(1)
}

func (m *mockScraper) FetchPreview(ctx context.Context, session catalog.SessionState, release *catalog.Release) ([]byte, error) {
	args := m.Called(ctx, session, release)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockScraper) EphemeralFileURLs() bool {
	return m.ephemeral
}

func (m *mockScraper) OpenFile(ctx context.Context, session catalog.SessionState, release *catalog.Release, file catalog.AvailableFile) (io.ReadCloser, int64, error) {
	args := m.Called(ctx, session, release, file)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(int64), args.Error(2)
}
