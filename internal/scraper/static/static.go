// Package static implements SiteScraper for simple server-rendered
// catalogs: form login, cookie session, numbered pagination and
// CSS-selector-driven extraction. Sites needing real browser
// automation implement their own SiteScraper instead.
package static

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/riptidemedia/riptide/internal/domain/catalog"
	"github.com/riptidemedia/riptide/internal/downloader"
	"github.com/riptidemedia/riptide/internal/scraper"
	"github.com/riptidemedia/riptide/pkg/errors"
	"github.com/riptidemedia/riptide/pkg/interfaces"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) riptide/1.0"

// Selectors describes where a site keeps its content, as CSS
// selectors. Loaded from the site definition file.
type Selectors struct {
	// Login
	LoginPath     string `json:"login_path"`
	UsernameField string `json:"username_field"`
	PasswordField string `json:"password_field"`
	// LoggedIn matches only on authenticated pages; used to probe
	// whether a persisted session is still accepted.
	LoggedIn string `json:"logged_in"`

	// Listing
	ListingPath string `json:"listing_path"` // printf pattern with one %d page number
	TotalPages  string `json:"total_pages"`  // optional; absent means unknown page count
	Candidate   string `json:"candidate"`    // anchor per listing entry

	// Detail page
	Title      string `json:"title"`
	Date       string `json:"date"`
	DateLayout string `json:"date_layout"`
	Desc       string `json:"desc"`
	Performer  string `json:"performer"`
	Tag        string `json:"tag"`
	SubSite    string `json:"sub_site"`
	// File matches one element per available variant, carrying
	// data-kind, data-content, data-variant, data-height, data-fps
	// and an href or src.
	File    string `json:"file"`
	Preview string `json:"preview"` // img with preview src
}

// Scraper is a selector-driven SiteScraper over plain HTTP.
type Scraper struct {
	selectors Selectors
	ephemeral bool
	client    *http.Client
	base      *url.URL
	logger    interfaces.Logger
}

// New creates a static scraper for one site.
func New(selectors Selectors, ephemeralURLs bool, logger interfaces.Logger) *Scraper {
	return &Scraper{
		selectors: selectors,
		ephemeral: ephemeralURLs,
		logger:    logger,
	}
}

// Login restores the persisted cookie session when the site still
// accepts it, and performs a form login otherwise.
func (s *Scraper) Login(ctx context.Context, site *catalog.Site) (catalog.SessionState, error) {
	base, err := url.Parse(site.BaseURL)
	if err != nil {
		return catalog.SessionState{}, fmt.Errorf("invalid base URL %q: %w", site.BaseURL, err)
	}
	s.base = base

	jar, err := cookiejar.New(nil)
	if err != nil {
		return catalog.SessionState{}, err
	}
	s.client = &http.Client{Jar: jar, Timeout: 2 * time.Minute}

	if site.Session.Valid() {
		if err := restoreCookies(jar, base, site.Session.Blob); err == nil {
			if s.sessionAccepted(ctx) {
				return site.Session, nil
			}
		}
		// Stale session; fall through to a fresh login.
	}

	form := url.Values{}
	form.Set(s.selectors.UsernameField, site.Username)
	form.Set(s.selectors.PasswordField, site.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		base.JoinPath(s.selectors.LoginPath).String(),
		strings.NewReader(form.Encode()))
	if err != nil {
		return catalog.SessionState{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return catalog.SessionState{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusFound {
		return catalog.SessionState{}, errors.Unauthenticated(
			fmt.Sprintf("login returned status %d", resp.StatusCode))
	}

	if !s.sessionAccepted(ctx) {
		return catalog.SessionState{}, errors.Unauthenticated("login form accepted but session not established")
	}

	blob, err := serializeCookies(jar, base)
	if err != nil {
		return catalog.SessionState{}, err
	}
	return catalog.SessionState{Blob: blob, UpdatedAt: time.Now()}, nil
}

// sessionAccepted probes the first listing page for the logged-in
// marker.
func (s *Scraper) sessionAccepted(ctx context.Context) bool {
	doc, err := s.getDocument(ctx, s.listingURL(1))
	if err != nil {
		return false
	}
	if s.selectors.LoggedIn == "" {
		return true
	}
	return doc.Find(s.selectors.LoggedIn).Length() > 0
}

// OpenListing determines the total page count, or PagesUnknown.
func (s *Scraper) OpenListing(ctx context.Context, session catalog.SessionState) (int, error) {
	doc, err := s.getDocument(ctx, s.listingURL(1))
	if err != nil {
		return 0, err
	}
	if s.selectors.TotalPages == "" {
		return scraper.PagesUnknown, nil
	}

	text := strings.TrimSpace(doc.Find(s.selectors.TotalPages).First().Text())
	pages, err := strconv.Atoi(text)
	if err != nil || pages < 1 {
		return scraper.PagesUnknown, nil
	}
	return pages, nil
}

// PageCandidates returns one page's candidates in listing order.
func (s *Scraper) PageCandidates(ctx context.Context, session catalog.SessionState, page int) ([]scraper.Candidate, error) {
	doc, err := s.getDocument(ctx, s.listingURL(page))
	if err != nil {
		return nil, err
	}

	var candidates []scraper.Candidate
	doc.Find(s.selectors.Candidate).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		abs := s.absoluteURL(href)
		candidates = append(candidates, scraper.Candidate{
			URL:       abs,
			ShortName: shortNameFromURL(abs),
		})
	})
	return candidates, nil
}

// ScrapeDetail extracts one release from its detail page.
func (s *Scraper) ScrapeDetail(ctx context.Context, session catalog.SessionState, cand scraper.Candidate) (*catalog.Release, error) {
	doc, err := s.getDocument(ctx, cand.URL)
	if err != nil {
		return nil, err
	}

	release := &catalog.Release{
		ShortName: cand.ShortName,
		URL:       cand.URL,
		Title:     strings.TrimSpace(doc.Find(s.selectors.Title).First().Text()),
	}

	if s.selectors.Desc != "" {
		release.Description = strings.TrimSpace(doc.Find(s.selectors.Desc).First().Text())
	}
	if s.selectors.SubSite != "" {
		release.SubSite = strings.TrimSpace(doc.Find(s.selectors.SubSite).First().Text())
	}
	if s.selectors.Date != "" {
		dateText := strings.TrimSpace(doc.Find(s.selectors.Date).First().Text())
		layout := s.selectors.DateLayout
		if layout == "" {
			layout = "2006-01-02"
		}
		if t, err := time.Parse(layout, dateText); err == nil {
			release.ReleaseDate = t
		}
	}

	doc.Find(s.selectors.Performer).Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Text())
		if name == "" {
			return
		}
		release.Performers = append(release.Performers, catalog.Performer{
			ShortName: slugify(name),
			Name:      name,
		})
	})
	doc.Find(s.selectors.Tag).Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Text())
		if name == "" {
			return
		}
		release.Tags = append(release.Tags, catalog.Tag{
			ShortName: slugify(name),
			Name:      name,
		})
	})

	doc.Find(s.selectors.File).Each(func(_ int, sel *goquery.Selection) {
		file, ok := s.extractFile(sel)
		if ok {
			release.Files = append(release.Files, file)
		}
	})

	return release, nil
}

// extractFile reads one available-file element.
func (s *Scraper) extractFile(sel *goquery.Selection) (catalog.AvailableFile, bool) {
	href, ok := sel.Attr("href")
	if !ok {
		href, ok = sel.Attr("src")
	}
	if !ok || href == "" {
		return catalog.AvailableFile{}, false
	}

	file := catalog.AvailableFile{
		Kind:    catalog.FileKindVideo,
		Content: catalog.ContentScene,
		URL:     s.absoluteURL(href),
	}
	if kind, ok := sel.Attr("data-kind"); ok && kind == "image" {
		file.Kind = catalog.FileKindImage
		file.Content = catalog.ContentPoster
	}
	if content, ok := sel.Attr("data-content"); ok {
		file.Content = catalog.ContentType(content)
	}
	if variant, ok := sel.Attr("data-variant"); ok {
		file.Variant = variant
	}

	if file.Kind == catalog.FileKindVideo {
		info := &catalog.VideoInfo{}
		if h, ok := sel.Attr("data-height"); ok {
			info.Height, _ = strconv.Atoi(h)
		}
		if fps, ok := sel.Attr("data-fps"); ok {
			info.FrameRate, _ = strconv.Atoi(fps)
		}
		file.Video = info
		if file.Variant == "" && info.Height > 0 {
			file.Variant = fmt.Sprintf("%dp", info.Height)
		}
	}
	return file, true
}

// FetchPreview fetches the detail page's preview image.
func (s *Scraper) FetchPreview(ctx context.Context, session catalog.SessionState, release *catalog.Release) ([]byte, error) {
	if s.selectors.Preview == "" {
		return nil, nil
	}

	doc, err := s.getDocument(ctx, release.URL)
	if err != nil {
		return nil, err
	}
	src, ok := doc.Find(s.selectors.Preview).First().Attr("src")
	if !ok || src == "" {
		return nil, nil
	}

	resp, err := s.get(ctx, s.absoluteURL(src))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// EphemeralFileURLs reports whether download URLs are per-session.
func (s *Scraper) EphemeralFileURLs() bool {
	return s.ephemeral
}

// OpenFile opens one file's byte stream. Gone files are permanent
// failures; everything else is worth a retry.
func (s *Scraper) OpenFile(ctx context.Context, session catalog.SessionState, release *catalog.Release, file catalog.AvailableFile) (io.ReadCloser, int64, error) {
	resp, err := s.get(ctx, file.URL)
	if err != nil {
		return nil, 0, downloader.Retryable("failed to open file stream", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, resp.ContentLength, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		resp.Body.Close()
		return nil, 0, downloader.Permanent(
			fmt.Sprintf("file unavailable, status %d", resp.StatusCode), nil)
	default:
		resp.Body.Close()
		return nil, 0, downloader.Retryable(
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
}

// listingURL expands the pagination pattern against the site base.
// The pattern may carry a query string ("/videos?page=%d").
func (s *Scraper) listingURL(page int) string {
	ref := fmt.Sprintf(s.selectors.ListingPath, page)
	u, err := url.Parse(ref)
	if err != nil {
		return s.base.JoinPath(ref).String()
	}
	return s.base.ResolveReference(u).String()
}

func (s *Scraper) absoluteURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	return s.base.ResolveReference(u).String()
}

func (s *Scraper) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return s.client.Do(req)
}

func (s *Scraper) getDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	resp, err := s.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// shortNameFromURL takes the last path segment as the site-local
// short name.
func shortNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return path.Base(strings.TrimSuffix(u.Path, "/"))
}

// slugify lowercases a display name into a short name.
func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(slug, " ", "-")
}
