package repository

import (
	"time"

	"github.com/google/uuid"
)

// SiteModel represents a target catalog site in the database.
type SiteModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	ShortName        string    `gorm:"uniqueIndex;not null"`
	Name             string    `gorm:"not null"`
	BaseURL          string    `gorm:"not null"`
	Username         string
	Password         string
	SessionBlob      []byte
	SessionUpdatedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Releases []ReleaseModel `gorm:"foreignKey:SiteID;constraint:OnDelete:CASCADE"`
}

func (SiteModel) TableName() string { return "sites" }

// SubSiteModel represents a sub-catalog under a site. Immutable except
// for the display name.
type SubSiteModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SiteID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_subsites_site_short"`
	ShortName string    `gorm:"not null;uniqueIndex:idx_subsites_site_short"`
	Name      string
	CreatedAt time.Time
}

func (SubSiteModel) TableName() string { return "sub_sites" }

// ReleaseModel represents one scraped catalog item. The site-local
// short name is the natural dedup key within a site.
type ReleaseModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SiteID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_releases_site_short;index"`
	SubSiteID   *uuid.UUID `gorm:"type:uuid"`
	ShortName   string     `gorm:"not null;uniqueIndex:idx_releases_site_short"`
	Title       string     `gorm:"index"`
	URL         string
	Description string `gorm:"type:text"`
	ReleaseDate time.Time `gorm:"index"`
	DurationSec int

	// Snapshot of the known available files, serialized as JSON.
	FilesJSON []byte

	CreatedAt time.Time
	UpdatedAt time.Time

	Site       SiteModel        `gorm:"foreignKey:SiteID"`
	SubSite    *SubSiteModel    `gorm:"foreignKey:SubSiteID"`
	Performers []PerformerModel `gorm:"many2many:release_performers"`
	Tags       []TagModel       `gorm:"many2many:release_tags"`
	Downloads  []DownloadModel  `gorm:"foreignKey:ReleaseID;constraint:OnDelete:CASCADE"`
}

func (ReleaseModel) TableName() string { return "releases" }

// PerformerModel is a site-scoped performer.
type PerformerModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SiteID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_performers_site_short"`
	ShortName string    `gorm:"not null;uniqueIndex:idx_performers_site_short"`
	Name      string
	CreatedAt time.Time
}

func (PerformerModel) TableName() string { return "performers" }

// TagModel is a site-scoped tag.
type TagModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SiteID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tags_site_short"`
	ShortName string    `gorm:"not null;uniqueIndex:idx_tags_site_short"`
	Name      string
	CreatedAt time.Time
}

func (TagModel) TableName() string { return "tags" }

// DownloadModel records one completed transfer of an available-file
// variant. The composite unique index enforces at most one download
// per (release, kind, content, variant).
type DownloadModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReleaseID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_downloads_variant;index"`
	Kind         string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_downloads_variant"`
	Content      string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_downloads_variant"`
	Variant      string    `gorm:"not null;uniqueIndex:idx_downloads_variant"`
	Filename     string    `gorm:"not null"`
	SizeBytes    int64
	Phash        int64
	HasPhash     bool
	DownloadedAt time.Time
}

func (DownloadModel) TableName() string { return "downloads" }

// AllModels lists every model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&SiteModel{},
		&SubSiteModel{},
		&ReleaseModel{},
		&PerformerModel{},
		&TagModel{},
		&DownloadModel{},
	}
}
