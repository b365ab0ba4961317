package orchestrator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/riptidemedia/riptide/internal/config"
	"github.com/riptidemedia/riptide/internal/domain/catalog"
	"github.com/riptidemedia/riptide/internal/downloader"
	"github.com/riptidemedia/riptide/internal/hashindex"
	"github.com/riptidemedia/riptide/internal/planner"
	"github.com/riptidemedia/riptide/internal/scraper"
	"github.com/riptidemedia/riptide/pkg/events"
	"github.com/riptidemedia/riptide/pkg/logger"
)

const testSiteName = "examplesite"

// harness wires an orchestrator around mock collaborators, a real
// planner and a memory-backed downloader.
type harness struct {
	repo   *mockRepository
	scr    *mockScraper
	hashes *hashindex.MemoryIndex
	fs     afero.Fs
	orch   *Orchestrator
}

func newHarness(t *testing.T, opts ...Option) *harness {
	return newHarnessWith(t, nil, opts...)
}

func newHarnessWith(t *testing.T, dlOpts []downloader.Option, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		repo:   &mockRepository{},
		scr:    &mockScraper{},
		hashes: hashindex.NewMemoryIndex(),
		fs:     afero.NewMemMapFs(),
	}

	log := logger.NewNoop()
	registry := scraper.NewRegistry()
	registry.Register(testSiteName, h.scr)

	base := []downloader.Option{
		downloader.WithFs(h.fs),
		downloader.WithFreeSpace(func(string) (uint64, error) { return 100 << 30, nil }),
	}
	dl := downloader.New("/downloads", 5<<30, log, append(base, dlOpts...)...)

	cfg := config.RunConfig{MaxRetries: 3}

	opts = append([]Option{WithHashIndex(h.hashes)}, opts...)
	h.orch = New(h.repo, registry, planner.New(h.hashes, nil), dl,
		events.NewInMemoryEventBus(log), log, cfg, opts...)
	return h
}

func siteFixture() *catalog.Site {
	return &catalog.Site{
		ID:        uuid.New(),
		ShortName: testSiteName,
		Name:      "Example Site",
		BaseURL:   "https://example.com",
	}
}

func sessionFixture() catalog.SessionState {
	return catalog.SessionState{Blob: []byte(`{"cookie":"abc"}`)}
}

func releaseFixture(shortName string, files ...catalog.AvailableFile) *catalog.Release {
	return &catalog.Release{
		ID:            uuid.New(),
		SiteShortName: testSiteName,
		ShortName:     shortName,
		Title:         "Title " + shortName,
		URL:           "https://example.com/scenes/" + shortName,
		Files:         files,
	}
}

func sceneVariant(variant string, height int) catalog.AvailableFile {
	return catalog.AvailableFile{
		Kind:    catalog.FileKindVideo,
		Content: catalog.ContentScene,
		Variant: variant,
		URL:     "https://example.com/files/" + variant + ".mp4",
		Video:   &catalog.VideoInfo{Height: height, FrameRate: 30},
	}
}

func posterVariant() catalog.AvailableFile {
	return catalog.AvailableFile{
		Kind:    catalog.FileKindImage,
		Content: catalog.ContentPoster,
		Variant: "cover",
		URL:     "https://example.com/files/cover.jpg",
	}
}
