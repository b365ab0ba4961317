package orchestrator

import (
	"context"
	"path"

	"github.com/avast/retry-go/v4"

	"github.com/riptidemedia/riptide/internal/domain/catalog"
	"github.com/riptidemedia/riptide/internal/downloader"
	"github.com/riptidemedia/riptide/internal/scraper"
	"github.com/riptidemedia/riptide/pkg/errors"
	"github.com/riptidemedia/riptide/pkg/interfaces"
)

// DownloadPass fetches the not-yet-downloaded files of every release
// matching the conditions, oldest first so partial runs make forward
// progress deterministically. Successful downloads are recorded
// immediately; a crash mid-run loses at most one file's progress.
func (o *Orchestrator) DownloadPass(ctx context.Context, siteShortName string, cond catalog.DownloadConditions) (*DownloadResult, error) {
	result := &DownloadResult{}
	log := o.logger.WithFields(interfaces.String("site", siteShortName))

	scr, err := o.registry.Lookup(siteShortName)
	if err != nil {
		return result, err
	}

	site, err := o.repo.GetSite(ctx, siteShortName)
	if err != nil {
		return result, err
	}

	session, err := scr.Login(ctx, site)
	if err != nil {
		return result, errors.Wrap(errors.ErrorTypeUnauthenticated, "login failed", err)
	}
	if err := o.repo.UpdateSessionState(ctx, siteShortName, session); err != nil {
		return result, err
	}

	releases, err := o.repo.QueryReleases(ctx, siteShortName, cond)
	if err != nil {
		return result, err
	}
	result.Releases = len(releases)
	log.Info("Download pass started", interfaces.Int("releases", len(releases)))

	capped := false
	for i, release := range releases {
		if capped {
			break
		}
		if o.cfg.ProgressEvery > 0 && i > 0 && i%o.cfg.ProgressEvery == 0 {
			log.Info("Download pass progress",
				interfaces.Int("done", i),
				interfaces.Int("remaining", len(releases)-i))
		}

		// Some sites issue per-session download URLs; their file
		// snapshot must be refreshed on every visit.
		if scr.EphemeralFileURLs() {
			fresh, err := o.refreshRelease(ctx, scr, session, site, release)
			if err != nil {
				if errors.IsFatal(err) || ctx.Err() != nil {
					return result, err
				}
				log.Warn("Skipping release, live re-scrape failed",
					interfaces.String("short_name", release.ShortName),
					interfaces.Error(err))
				result.Skipped++
				continue
			}
			release = fresh
		}

		existing, err := o.repo.ListDownloads(ctx, release.ID)
		if err != nil {
			return result, err
		}

		planned, err := o.planner.Plan(ctx, release, existing, cond)
		if err != nil {
			return result, err
		}
		result.Planned += len(planned)

		for _, file := range planned {
			if cond.MaxDownloads > 0 && result.Downloaded >= cond.MaxDownloads {
				log.Info("Reached download cap, stopping pass",
					interfaces.Int("max_downloads", cond.MaxDownloads))
				capped = true
				break
			}

			if err := o.downloadFile(ctx, scr, session, site, release, file); err != nil {
				if errors.IsFatal(err) || ctx.Err() != nil {
					return result, err
				}
				log.Warn("Skipping file after exhausting retries",
					interfaces.String("short_name", release.ShortName),
					interfaces.String("variant", file.Variant),
					interfaces.Error(err))
				result.Skipped++
				continue
			}
			result.Downloaded++

			if err := sleep(ctx, o.cfg.CandidateDelay); err != nil {
				return result, err
			}
		}
	}

	if err := o.repo.UpdateSessionState(ctx, siteShortName, session); err != nil {
		return result, err
	}

	o.bus.PublishAsync(ctx, catalog.NewDownloadPassCompletedEvent(
		siteShortName, result.Downloaded, result.Planned))
	log.Info("Download pass completed",
		interfaces.Int("planned", result.Planned),
		interfaces.Int("downloaded", result.Downloaded),
		interfaces.Int("skipped", result.Skipped))
	return result, nil
}

// refreshRelease re-scrapes a release's live detail page and persists
// the fresh file snapshot.
func (o *Orchestrator) refreshRelease(ctx context.Context, scr scraper.SiteScraper, session catalog.SessionState, site *catalog.Site, release *catalog.Release) (*catalog.Release, error) {
	cand := scraper.Candidate{URL: release.URL, ShortName: release.ShortName}
	return retry.DoWithData(
		func() (*catalog.Release, error) {
			fresh, err := scr.ScrapeDetail(ctx, session, cand)
			if err != nil {
				return nil, err
			}
			return o.repo.UpsertRelease(ctx, site.ShortName, fresh)
		},
		retry.Context(ctx),
		retry.Attempts(uint(o.cfg.MaxRetries)),
		retry.Delay(o.cfg.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.IsFatal(err)
		}),
	)
}

// downloadFile transfers one file with the retry policy and records
// the download immediately on success.
func (o *Orchestrator) downloadFile(ctx context.Context, scr scraper.SiteScraper, session catalog.SessionState, site *catalog.Site, release *catalog.Release, file catalog.AvailableFile) error {
	download, err := retry.DoWithData(
		func() (*catalog.Download, error) {
			return o.transferOnce(ctx, scr, session, site, release, file)
		},
		retry.Context(ctx),
		retry.Attempts(uint(o.cfg.MaxRetries)),
		retry.Delay(o.cfg.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// Permanent download failures and pass-fatal
			// conditions short-circuit the retry loop.
			return downloader.IsRetryable(err) && !errors.IsFatal(err)
		}),
	)
	if err != nil {
		return err
	}

	if err := o.repo.SaveDownload(ctx, download); err != nil {
		return err
	}

	if o.hashes != nil && download.HasPhash {
		if err := o.hashes.Put(ctx, site.ShortName, download.Variant, download.Phash); err != nil {
			o.logger.Warn("Failed to index download hash",
				interfaces.String("variant", download.Variant),
				interfaces.Error(err))
		}
	}

	o.mirrorDownload(ctx, site, download)
	o.bus.PublishAsync(ctx, catalog.NewDownloadCompletedEvent(release, download))
	return nil
}

// transferOnce performs a single download attempt.
func (o *Orchestrator) transferOnce(ctx context.Context, scr scraper.SiteScraper, session catalog.SessionState, site *catalog.Site, release *catalog.Release, file catalog.AvailableFile) (*catalog.Download, error) {
	rc, _, err := scr.OpenFile(ctx, session, release, file)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return o.downloader.Save(ctx, site, release, file, rc)
}

// mirrorDownload uploads a finished download to archival storage,
// best effort.
func (o *Orchestrator) mirrorDownload(ctx context.Context, site *catalog.Site, download *catalog.Download) {
	if o.mirror == nil {
		return
	}

	f, err := o.downloader.Open(site, download.Filename)
	if err != nil {
		o.logger.Warn("Failed to open download for mirroring",
			interfaces.String("filename", download.Filename),
			interfaces.Error(err))
		return
	}
	defer f.Close()

	key := path.Join(site.ShortName, download.Filename)
	if err := o.mirror.Store(ctx, key, f); err != nil {
		o.logger.Warn("Failed to mirror download",
			interfaces.String("key", key),
			interfaces.Error(err))
	}
}
