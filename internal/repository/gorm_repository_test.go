package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptidemedia/riptide/internal/domain/catalog"
	pkgerrors "github.com/riptidemedia/riptide/pkg/errors"
)

func newRepoWithSite(t *testing.T) (*GormRepository, *catalog.Site) {
	t.Helper()
	repo := NewGormRepository(NewTestDB(t))

	site := &catalog.Site{
		ShortName: "examplesite",
		Name:      "Example Site",
		BaseURL:   "https://example.com",
		Username:  "user",
		Password:  "pass",
	}
	require.NoError(t, repo.CreateSite(context.Background(), site))
	return repo, site
}

func sampleRelease(shortName string, date time.Time) *catalog.Release {
	return &catalog.Release{
		ShortName:   shortName,
		Title:       "Title " + shortName,
		URL:         "https://example.com/scenes/" + shortName,
		Description: "description",
		ReleaseDate: date,
		Duration:    32 * time.Minute,
		Performers: []catalog.Performer{
			{ShortName: "alice-doe", Name: "Alice Doe"},
		},
		Tags: []catalog.Tag{
			{ShortName: "outdoor", Name: "Outdoor"},
		},
		Files: []catalog.AvailableFile{
			{
				Kind:    catalog.FileKindVideo,
				Content: catalog.ContentScene,
				Variant: "1080p",
				URL:     "https://example.com/files/" + shortName + "-1080p.mp4",
				Video:   &catalog.VideoInfo{Height: 1080, FrameRate: 30},
			},
		},
	}
}

func TestCreateSiteRejectsDuplicateShortName(t *testing.T) {
	repo, _ := newRepoWithSite(t)

	err := repo.CreateSite(context.Background(), &catalog.Site{
		ShortName: "examplesite",
		Name:      "Another",
		BaseURL:   "https://other.example.com",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestGetSiteNotFound(t *testing.T) {
	repo := NewGormRepository(NewTestDB(t))

	_, err := repo.GetSite(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestUpdateSitePreservesSessionState(t *testing.T) {
	repo, site := newRepoWithSite(t)
	ctx := context.Background()

	state := catalog.SessionState{Blob: []byte(`{"cookie":"abc"}`), UpdatedAt: time.Now()}
	require.NoError(t, repo.UpdateSessionState(ctx, site.ShortName, state))

	site.Password = "rotated"
	require.NoError(t, repo.UpdateSite(ctx, site))

	got, err := repo.GetSite(ctx, site.ShortName)
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.Password)
	assert.Equal(t, state.Blob, got.Session.Blob)
}

func TestSessionStateRoundtrip(t *testing.T) {
	repo, site := newRepoWithSite(t)
	ctx := context.Background()

	fresh, err := repo.GetSite(ctx, site.ShortName)
	require.NoError(t, err)
	assert.False(t, fresh.Session.Valid())

	state := catalog.SessionState{Blob: []byte(`{"cookie":"abc"}`), UpdatedAt: time.Now()}
	require.NoError(t, repo.UpdateSessionState(ctx, site.ShortName, state))

	got, err := repo.GetSite(ctx, site.ShortName)
	require.NoError(t, err)
	assert.True(t, got.Session.Valid())
	assert.Equal(t, state.Blob, got.Session.Blob)
}

func TestUpdateSessionStateUnknownSite(t *testing.T) {
	repo := NewGormRepository(NewTestDB(t))

	err := repo.UpdateSessionState(context.Background(), "missing", catalog.SessionState{Blob: []byte("x")})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestUpsertReleaseCreatesAndRereads(t *testing.T) {
	repo, site := newRepoWithSite(t)
	ctx := context.Background()

	saved, err := repo.UpsertRelease(ctx, site.ShortName, sampleRelease("scene-100", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.NotNil(t, saved)

	got, err := repo.GetRelease(ctx, site.ShortName, "scene-100")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "Title scene-100", got.Title)
	assert.Equal(t, 32*time.Minute, got.Duration)
	require.Len(t, got.Performers, 1)
	assert.Equal(t, "alice-doe", got.Performers[0].ShortName)
	require.Len(t, got.Tags, 1)
	require.Len(t, got.Files, 1)
	assert.Equal(t, "1080p", got.Files[0].Variant)
	require.NotNil(t, got.Files[0].Video)
	assert.Equal(t, 1080, got.Files[0].Video.Height)
}

func TestUpsertReleaseNeverDuplicates(t *testing.T) {
	repo, site := newRepoWithSite(t)
	ctx := context.Background()
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	first, err := repo.UpsertRelease(ctx, site.ShortName, sampleRelease("scene-100", date))
	require.NoError(t, err)

	updated := sampleRelease("scene-100", date)
	updated.Title = "Retitled"
	second, err := repo.UpsertRelease(ctx, site.ShortName, updated)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	releases, err := repo.QueryReleases(ctx, site.ShortName, catalog.DownloadConditions{})
	require.NoError(t, err)
	require.Len(t, releases, 1)
	assert.Equal(t, "Retitled", releases[0].Title)
}

func TestUpsertReleaseReusesPerformersAndTags(t *testing.T) {
	repo, site := newRepoWithSite(t)
	ctx := context.Background()

	a, err := repo.UpsertRelease(ctx, site.ShortName, sampleRelease("scene-100", time.Now()))
	require.NoError(t, err)
	b, err := repo.UpsertRelease(ctx, site.ShortName, sampleRelease("scene-101", time.Now()))
	require.NoError(t, err)

	require.Len(t, a.Performers, 1)
	require.Len(t, b.Performers, 1)
	assert.Equal(t, a.Performers[0].ID, b.Performers[0].ID)
	assert.Equal(t, a.Tags[0].ID, b.Tags[0].ID)
}

func TestUpsertReleaseCreatesSubSiteLazily(t *testing.T) {
	repo, site := newRepoWithSite(t)
	ctx := context.Background()

	release := sampleRelease("scene-100", time.Now())
	release.SubSite = "brand-a"
	saved, err := repo.UpsertRelease(ctx, site.ShortName, release)
	require.NoError(t, err)
	assert.Equal(t, "brand-a", saved.SubSite)

	again := sampleRelease("scene-101", time.Now())
	again.SubSite = "brand-a"
	_, err = repo.UpsertRelease(ctx, site.ShortName, again)
	require.NoError(t, err)
}

func TestQueryReleasesFiltersAndOrders(t *testing.T) {
	repo, site := newRepoWithSite(t)
	ctx := context.Background()

	dates := map[string]time.Time{
		"scene-100": time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		"scene-101": time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		"scene-102": time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	for shortName, date := range dates {
		_, err := repo.UpsertRelease(ctx, site.ShortName, sampleRelease(shortName, date))
		require.NoError(t, err)
	}

	all, err := repo.QueryReleases(ctx, site.ShortName, catalog.DownloadConditions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Oldest first.
	assert.Equal(t, "scene-100", all[0].ShortName)
	assert.Equal(t, "scene-102", all[2].ShortName)

	ranged, err := repo.QueryReleases(ctx, site.ShortName, catalog.DownloadConditions{
		From: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "scene-101", ranged[0].ShortName)
}

func TestQueryReleasesByPerformer(t *testing.T) {
	repo, site := newRepoWithSite(t)
	ctx := context.Background()

	_, err := repo.UpsertRelease(ctx, site.ShortName, sampleRelease("scene-100", time.Now()))
	require.NoError(t, err)

	other := sampleRelease("scene-101", time.Now())
	other.Performers = []catalog.Performer{{ShortName: "bob-roe", Name: "Bob Roe"}}
	_, err = repo.UpsertRelease(ctx, site.ShortName, other)
	require.NoError(t, err)

	matched, err := repo.QueryReleases(ctx, site.ShortName, catalog.DownloadConditions{Performer: "bob-roe"})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "scene-101", matched[0].ShortName)

	none, err := repo.QueryReleases(ctx, site.ShortName, catalog.DownloadConditions{Performer: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSaveDownloadEnforcesVariantUniqueness(t *testing.T) {
	repo, site := newRepoWithSite(t)
	ctx := context.Background()

	release, err := repo.UpsertRelease(ctx, site.ShortName, sampleRelease("scene-100", time.Now()))
	require.NoError(t, err)

	download := &catalog.Download{
		ReleaseID: release.ID,
		Kind:      catalog.FileKindVideo,
		Content:   catalog.ContentScene,
		Variant:   "1080p",
		Filename:  "scene-100.mp4",
		SizeBytes: 100,
	}
	require.NoError(t, repo.SaveDownload(ctx, download))

	dup := &catalog.Download{
		ReleaseID: release.ID,
		Kind:      catalog.FileKindVideo,
		Content:   catalog.ContentScene,
		Variant:   "1080p",
		Filename:  "scene-100-again.mp4",
	}
	err = repo.SaveDownload(ctx, dup)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestListDownloadsRoundtrip(t *testing.T) {
	repo, site := newRepoWithSite(t)
	ctx := context.Background()

	release, err := repo.UpsertRelease(ctx, site.ShortName, sampleRelease("scene-100", time.Now()))
	require.NoError(t, err)

	download := &catalog.Download{
		ReleaseID: release.ID,
		Kind:      catalog.FileKindVideo,
		Content:   catalog.ContentScene,
		Variant:   "1080p",
		Filename:  "scene-100.mp4",
		SizeBytes: 100,
		Phash:     0xDEADBEEF,
		HasPhash:  true,
	}
	require.NoError(t, repo.SaveDownload(ctx, download))

	downloads, err := repo.ListDownloads(ctx, release.ID)
	require.NoError(t, err)
	require.Len(t, downloads, 1)
	assert.Equal(t, "1080p", downloads[0].Variant)
	assert.Equal(t, uint64(0xDEADBEEF), downloads[0].Phash)
	assert.True(t, downloads[0].HasPhash)
	assert.Equal(t, download.Key(), downloads[0].Key())
}

func TestGetReleaseNotFound(t *testing.T) {
	repo, site := newRepoWithSite(t)

	_, err := repo.GetRelease(context.Background(), site.ShortName, "missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}
