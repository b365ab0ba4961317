package catalog

import (
	"time"
)

// QualityPolicy selects among video variants of the same group.
type QualityPolicy string

const (
	// QualityBest picks the highest resolution, then highest frame rate.
	QualityBest QualityPolicy = "best"
	// QualityWorst picks the lowest resolution.
	QualityWorst QualityPolicy = "worst"
	// QualityNearestByHash picks the variant whose known perceptual
	// hash is closest to a previously accepted download, falling back
	// to QualityWorst when no hash basis exists.
	QualityNearestByHash QualityPolicy = "nearest-by-hash"
)

// ScrapeMode controls whether a scrape pass stops at the first known
// release or re-scrapes the whole catalog.
type ScrapeMode string

const (
	// ScrapeIncremental stops the pass at the first already-stored
	// short name. Correct only while the remote catalog stays
	// reverse-chronological; a reordering catalog will under-scrape.
	ScrapeIncremental ScrapeMode = "incremental"
	// ScrapeFullRefresh re-scrapes and upserts every candidate.
	ScrapeFullRefresh ScrapeMode = "full-refresh"
)

// DownloadConditions are the filters of one download pass. Constructed
// fresh per invocation, never persisted.
type DownloadConditions struct {
	From         time.Time
	To           time.Time
	Performer    string
	Quality      QualityPolicy
	MaxDownloads int
}

// InRange reports whether a release date passes the date filter.
func (c DownloadConditions) InRange(t time.Time) bool {
	if !c.From.IsZero() && t.Before(c.From) {
		return false
	}
	if !c.To.IsZero() && t.After(c.To) {
		return false
	}
	return true
}
