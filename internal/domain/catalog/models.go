package catalog

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the serialized browser/cookie state for one site.
// It is read at pass start and overwritten immediately after login and
// again at pass end, so a crash never loses a fresh authentication.
type SessionState struct {
	Blob      []byte
	UpdatedAt time.Time
}

// Valid reports whether any session state has been captured at all.
// Whether the remote site still accepts it is only known after use.
func (s SessionState) Valid() bool {
	return len(s.Blob) > 0
}

// Site is one target catalog: identity, credentials and the persisted
// session state that lets passes resume without interactive login.
type Site struct {
	ID        uuid.UUID
	ShortName string
	Name      string
	BaseURL   string
	Username  string
	Password  string
	Session   SessionState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubSite is an optional sub-catalog under a Site, e.g. a brand within
// a network. Created lazily on first encounter.
type SubSite struct {
	ID        uuid.UUID
	SiteID    uuid.UUID
	ShortName string
	Name      string
}

// Performer is a site-scoped performer, identified by a site-local
// short name. Get-or-create on every release upsert.
type Performer struct {
	ID        uuid.UUID
	ShortName string
	Name      string
}

// Tag is a site-scoped tag with get-or-create semantics.
type Tag struct {
	ID        uuid.UUID
	ShortName string
	Name      string
}

// Release is one scraped catalog item. (Site, ShortName) is unique:
// re-scraping the same short name updates the existing release.
type Release struct {
	ID            uuid.UUID
	SiteShortName string
	SubSite       string
	ShortName     string
	Title         string
	URL           string
	Description   string
	ReleaseDate   time.Time
	Duration      time.Duration
	Performers    []Performer
	Tags          []Tag
	Files         []AvailableFile
	UpdatedAt     time.Time
}

// Download records one completed file transfer. At most one Download
// exists per (release, file kind, content type, variant).
type Download struct {
	ID           uuid.UUID
	ReleaseID    uuid.UUID
	Kind         FileKind
	Content      ContentType
	Variant      string
	Filename     string
	SizeBytes    int64
	Phash        uint64
	HasPhash     bool
	DownloadedAt time.Time
}

// Key returns the dedup key of the downloaded variant.
func (d Download) Key() FileKey {
	return FileKey{Kind: d.Kind, Content: d.Content, Variant: d.Variant}
}
