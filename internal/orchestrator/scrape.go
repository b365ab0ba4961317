package orchestrator

import (
	"bytes"
	"context"
	"path"

	"github.com/avast/retry-go/v4"

	"github.com/riptidemedia/riptide/internal/domain/catalog"
	"github.com/riptidemedia/riptide/internal/scraper"
	"github.com/riptidemedia/riptide/pkg/errors"
	"github.com/riptidemedia/riptide/pkg/interfaces"
)

// ScrapePass synchronizes the local catalog of one site with the
// remote listing. In incremental mode the pass stops at the first
// already-known release; full-refresh re-scrapes every candidate.
//
// The incremental stop is only correct while the remote catalog stays
// reverse-chronological. A catalog that reorders or inserts mid-list
// will silently under-scrape in incremental mode.
func (o *Orchestrator) ScrapePass(ctx context.Context, siteShortName string, mode catalog.ScrapeMode) (*ScrapeResult, error) {
	result := &ScrapeResult{}
	log := o.logger.WithFields(
		interfaces.String("site", siteShortName),
		interfaces.String("mode", string(mode)))

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
	// Persist immediately: the fresh session must survive a crash
	// right after login.
	if err := o.repo.UpdateSessionState(ctx, siteShortName, session); err != nil {
		return result, err
	}

	pageCount, err := scr.OpenListing(ctx, session)
	if err != nil {
		return result, errors.Transient("failed to open catalog listing", err)
	}
	log.Info("Scrape pass started", interfaces.Int("pages", pageCount))

	stopped := false
	for page := 1; !stopped && (pageCount == scraper.PagesUnknown || page <= pageCount); page++ {
		candidates, err := o.pageCandidates(ctx, scr, session, page)
		if err != nil {
			log.Warn("Failed to list catalog page, ending pass early",
				interfaces.Int("page", page),
				interfaces.Error(err))
			break
		}
		if len(candidates) == 0 {
			break
		}
		result.Pages++

		for _, cand := range candidates {
			known, err := o.knownRelease(ctx, siteShortName, cand.ShortName)
			if err != nil {
				return result, err
			}
			if known && mode == catalog.ScrapeIncremental {
				// First known item: everything after it is
				// already stored.
				log.Info("Reached known release, stopping incremental pass",
					interfaces.String("short_name", cand.ShortName))
				stopped = true
				break
			}

			if err := o.scrapeCandidate(ctx, scr, session, site, cand, known, result); err != nil {
				if errors.IsFatal(err) || ctx.Err() != nil {
					return result, err
				}
				log.Warn("Skipping candidate after exhausting retries",
					interfaces.String("short_name", cand.ShortName),
					interfaces.Error(err))
				result.Skipped++
			}

			if err := sleep(ctx, o.cfg.CandidateDelay); err != nil {
				return result, err
			}
		}

		if !stopped {
			if err := sleep(ctx, o.cfg.PageDelay); err != nil {
				return result, err
			}
		}
	}

	// Session state is refreshed even when nothing new was found.
	if err := o.repo.UpdateSessionState(ctx, siteShortName, session); err != nil {
		return result, err
	}

	o.bus.PublishAsync(ctx, catalog.NewScrapePassCompletedEvent(
		siteShortName, result.Scraped, result.Updated, result.Skipped))
	log.Info("Scrape pass completed",
		interfaces.Int("pages", result.Pages),
		interfaces.Int("scraped", result.Scraped),
		interfaces.Int("updated", result.Updated),
		interfaces.Int("skipped", result.Skipped))
	return result, nil
}

// pageCandidates lists one page with the standard retry policy.
func (o *Orchestrator) pageCandidates(ctx context.Context, scr scraper.SiteScraper, session catalog.SessionState, page int) ([]scraper.Candidate, error) {
	return retry.DoWithData(
		func() ([]scraper.Candidate, error) {
			return scr.PageCandidates(ctx, session, page)
		},
		retry.Context(ctx),
		retry.Attempts(uint(o.cfg.MaxRetries)),
		retry.Delay(o.cfg.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

// knownRelease checks whether a short name is already stored.
func (o *Orchestrator) knownRelease(ctx context.Context, siteShortName, releaseShortName string) (bool, error) {
	_, err := o.repo.GetRelease(ctx, siteShortName, releaseShortName)
	if err == nil {
		return true, nil
	}
	if errors.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// scrapeCandidate extracts and persists one candidate, retrying up to
// the configured ceiling. A persistently failing candidate is the
// caller's to skip; it never aborts the page.
func (o *Orchestrator) scrapeCandidate(
	ctx context.Context,
	scr scraper.SiteScraper,
	session catalog.SessionState,
	site *catalog.Site,
	cand scraper.Candidate,
	known bool,
	result *ScrapeResult,
) error {
	release, err := retry.DoWithData(
		func() (*catalog.Release, error) {
			rel, err := scr.ScrapeDetail(ctx, session, cand)
			if err != nil {
				return nil, err
			}
			return o.repo.UpsertRelease(ctx, site.ShortName, rel)
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
	if err != nil {
		return err
	}

	if known {
		result.Updated++
		o.bus.PublishAsync(ctx, catalog.NewReleaseUpdatedEvent(release))
	} else {
		result.Scraped++
		o.bus.PublishAsync(ctx, catalog.NewReleaseScrapedEvent(release))
	}

	o.fetchPreview(ctx, scr, session, site, release)
	return nil
}

// fetchPreview opportunistically stores preview imagery. Failure never
// fails the release's metadata save.
func (o *Orchestrator) fetchPreview(ctx context.Context, scr scraper.SiteScraper, session catalog.SessionState, site *catalog.Site, release *catalog.Release) {
	if o.previews == nil {
		return
	}

	data, err := scr.FetchPreview(ctx, session, release)
	if err != nil {
		o.logger.Debug("Preview fetch failed",
			interfaces.String("site", site.ShortName),
			interfaces.String("short_name", release.ShortName),
			interfaces.Error(err))
		return
	}
	if len(data) == 0 {
		return
	}

	key := path.Join(site.ShortName, release.ShortName+".jpg")
	if err := o.previews.Store(ctx, key, bytes.NewReader(data)); err != nil {
		o.logger.Warn("Failed to store preview",
			interfaces.String("key", key),
			interfaces.Error(err))
	}
}
