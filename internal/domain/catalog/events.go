package catalog

import (
	"github.com/riptidemedia/riptide/pkg/events"
	"github.com/riptidemedia/riptide/pkg/interfaces"
)

// Event types published by scrape and download passes.
const (
	EventReleaseScraped       = "catalog.release.scraped"
	EventReleaseUpdated       = "catalog.release.updated"
	EventDownloadCompleted    = "catalog.download.completed"
	EventScrapePassCompleted  = "catalog.scrape_pass.completed"
	EventDownloadPassComplete = "catalog.download_pass.completed"
)

// NewReleaseScrapedEvent signals that a previously unknown release was
// scraped and stored.
func NewReleaseScrapedEvent(release *Release) interfaces.Event {
	return events.NewAggregateEvent(EventReleaseScraped, release.ID.String(), map[string]interface{}{
		"site":       release.SiteShortName,
		"short_name": release.ShortName,
		"title":      release.Title,
	})
}

// NewReleaseUpdatedEvent signals that an existing release was re-scraped.
func NewReleaseUpdatedEvent(release *Release) interfaces.Event {
	return events.NewAggregateEvent(EventReleaseUpdated, release.ID.String(), map[string]interface{}{
		"site":       release.SiteShortName,
		"short_name": release.ShortName,
	})
}

// NewDownloadCompletedEvent signals one recorded file transfer.
func NewDownloadCompletedEvent(release *Release, download *Download) interfaces.Event {
	return events.NewAggregateEvent(EventDownloadCompleted, release.ID.String(), map[string]interface{}{
		"site":       release.SiteShortName,
		"short_name": release.ShortName,
		"kind":       string(download.Kind),
		"content":    string(download.Content),
		"variant":    download.Variant,
		"filename":   download.Filename,
	})
}

// NewScrapePassCompletedEvent summarizes a finished scrape pass.
func NewScrapePassCompletedEvent(site string, scraped, updated, skipped int) interfaces.Event {
	return events.NewAggregateEvent(EventScrapePassCompleted, site, map[string]interface{}{
		"scraped": scraped,
		"updated": updated,
		"skipped": skipped,
	})
}

// NewDownloadPassCompletedEvent summarizes a finished download pass.
func NewDownloadPassCompletedEvent(site string, downloaded, planned int) interfaces.Event {
	return events.NewAggregateEvent(EventDownloadPassComplete, site, map[string]interface{}{
		"downloaded": downloaded,
		"planned":    planned,
	})
}
