package scraper

import (
	"sync"

	"github.com/riptidemedia/riptide/pkg/errors"
)

// Registry maps site short names to constructed scrapers. Populated at
// startup; a lookup miss means no scraper is implemented for the site
// and is fatal to the pass.
type Registry struct {
	mu       sync.RWMutex
	scrapers map[string]SiteScraper
}

// NewRegistry creates an empty scraper registry.
func NewRegistry() *Registry {
	return &Registry{
		scrapers: make(map[string]SiteScraper),
	}
}

// Register binds a scraper to a site short name, replacing any
// previous binding.
func (r *Registry) Register(siteShortName string, s SiteScraper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrapers[siteShortName] = s
}

// Lookup returns the scraper for a site short name.
func (r *Registry) Lookup(siteShortName string) (SiteScraper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.scrapers[siteShortName]
	if !ok {
		return nil, errors.Unsupported("no scraper registered for site " + siteShortName)
	}
	return s, nil
}

// Sites returns the short names with a registered scraper.
func (r *Registry) Sites() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.scrapers))
	for name := range r.scrapers {
		names = append(names, name)
	}
	return names
}
