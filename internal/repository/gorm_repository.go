package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/riptidemedia/riptide/internal/domain/catalog"
	pkgrepo "github.com/riptidemedia/riptide/pkg/repository"
)

// GormRepository implements Repository using GORM.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new GORM repository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates the schema.
func (r *GormRepository) Migrate() error {
	return r.db.AutoMigrate(AllModels()...)
}

// CreateSite stores a new site.
func (r *GormRepository) CreateSite(ctx context.Context, site *catalog.Site) error {
	if site.ID == uuid.Nil {
		site.ID = uuid.New()
	}
	model := siteToModel(site)
	return pkgrepo.Create(ctx, r.db, model)
}

// GetSite retrieves a site by short name.
func (r *GormRepository) GetSite(ctx context.Context, shortName string) (*catalog.Site, error) {
	model, err := pkgrepo.FindOneBy[SiteModel](ctx, r.db, "short_name = ?", shortName)
	if err != nil {
		return nil, err
	}
	return siteFromModel(model), nil
}

// UpdateSite overwrites a site's identity and credentials.
func (r *GormRepository) UpdateSite(ctx context.Context, site *catalog.Site) error {
	result := r.db.WithContext(ctx).Model(&SiteModel{}).
		Where("short_name = ?", site.ShortName).
		Updates(map[string]interface{}{
			"name":     site.Name,
			"base_url": site.BaseURL,
			"username": site.Username,
			"password": site.Password,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update site: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrNotFound(site.ShortName)
	}
	return nil
}

// UpdateSessionState overwrites a site's persisted session state.
func (r *GormRepository) UpdateSessionState(ctx context.Context, shortName string, state catalog.SessionState) error {
	updatedAt := state.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	result := r.db.WithContext(ctx).Model(&SiteModel{}).
		Where("short_name = ?", shortName).
		Updates(map[string]interface{}{
			"session_blob":       state.Blob,
			"session_updated_at": updatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update session state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrNotFound(shortName)
	}
	return nil
}

// GetRelease retrieves a release by site and release short name.
func (r *GormRepository) GetRelease(ctx context.Context, siteShortName, releaseShortName string) (*catalog.Release, error) {
	site, err := pkgrepo.FindOneBy[SiteModel](ctx, r.db, "short_name = ?", siteShortName)
	if err != nil {
		return nil, err
	}

	var model ReleaseModel
	err = r.db.WithContext(ctx).
		Preload("Performers").
		Preload("Tags").
		Preload("SubSite").
		Where("site_id = ? AND short_name = ?", site.ID, releaseShortName).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrNotFound(releaseShortName)
		}
		return nil, err
	}
	return releaseFromModel(&model, site)
}

// UpsertRelease stores a release keyed by (site, short name).
func (r *GormRepository) UpsertRelease(ctx context.Context, siteShortName string, release *catalog.Release) (*catalog.Release, error) {
	site, err := pkgrepo.FindOneBy[SiteModel](ctx, r.db, "short_name = ?", siteShortName)
	if err != nil {
		return nil, err
	}

	var saved ReleaseModel
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		filesJSON, err := json.Marshal(release.Files)
		if err != nil {
			return fmt.Errorf("failed to serialize available files: %w", err)
		}

		var subSiteID *uuid.UUID
		if release.SubSite != "" {
			var sub SubSiteModel
			err := tx.Where(SubSiteModel{SiteID: site.ID, ShortName: release.SubSite}).
				Attrs(SubSiteModel{ID: uuid.New(), Name: release.SubSite}).
				FirstOrCreate(&sub).Error
			if err != nil {
				return fmt.Errorf("failed to get or create sub-site: %w", err)
			}
			subSiteID = &sub.ID
		}

		var model ReleaseModel
		err = tx.Where("site_id = ? AND short_name = ?", site.ID, release.ShortName).First(&model).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			model = ReleaseModel{
				ID:     uuid.New(),
				SiteID: site.ID,
			}
			if release.ID != uuid.Nil {
				model.ID = release.ID
			}
			model.ShortName = release.ShortName
			applyReleaseFields(&model, release, subSiteID, filesJSON)
			if err := tx.Create(&model).Error; err != nil {
				return fmt.Errorf("failed to create release: %w", err)
			}
		case err != nil:
			return err
		default:
			applyReleaseFields(&model, release, subSiteID, filesJSON)
			if err := tx.Save(&model).Error; err != nil {
				return fmt.Errorf("failed to update release: %w", err)
			}
		}

		performers, err := getOrCreatePerformers(tx, site.ID, release.Performers)
		if err != nil {
			return err
		}
		if err := tx.Model(&model).Association("Performers").Replace(performers); err != nil {
			return fmt.Errorf("failed to associate performers: %w", err)
		}

		tags, err := getOrCreateTags(tx, site.ID, release.Tags)
		if err != nil {
			return err
		}
		if err := tx.Model(&model).Association("Tags").Replace(tags); err != nil {
			return fmt.Errorf("failed to associate tags: %w", err)
		}

		saved = model
		saved.Performers = performers
		saved.Tags = tags
		return nil
	})
	if err != nil {
		return nil, err
	}

	return releaseFromModel(&saved, site)
}

// QueryReleases lists a site's releases matching the conditions.
func (r *GormRepository) QueryReleases(ctx context.Context, siteShortName string, cond catalog.DownloadConditions) ([]*catalog.Release, error) {
	site, err := pkgrepo.FindOneBy[SiteModel](ctx, r.db, "short_name = ?", siteShortName)
	if err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).Model(&ReleaseModel{}).Where("releases.site_id = ?", site.ID)
	if !cond.From.IsZero() {
		q = q.Where("releases.release_date >= ?", cond.From)
	}
	if !cond.To.IsZero() {
		q = q.Where("releases.release_date <= ?", cond.To)
	}
	if cond.Performer != "" {
		q = q.Joins("JOIN release_performers rp ON rp.release_model_id = releases.id").
			Joins("JOIN performers p ON p.id = rp.performer_model_id").
			Where("p.short_name = ?", cond.Performer)
	}

	var models []ReleaseModel
	err = q.Preload("Performers").
		Preload("Tags").
		Preload("SubSite").
		Order("releases.release_date ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query releases: %w", err)
	}

	releases := make([]*catalog.Release, 0, len(models))
	for i := range models {
		release, err := releaseFromModel(&models[i], site)
		if err != nil {
			return nil, err
		}
		releases = append(releases, release)
	}
	return releases, nil
}

// ListDownloads lists the recorded downloads of one release.
func (r *GormRepository) ListDownloads(ctx context.Context, releaseID uuid.UUID) ([]catalog.Download, error) {
	var models []DownloadModel
	err := r.db.WithContext(ctx).
		Where("release_id = ?", releaseID).
		Order("downloaded_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}

	downloads := make([]catalog.Download, 0, len(models))
	for _, m := range models {
		downloads = append(downloads, downloadFromModel(&m))
	}
	return downloads, nil
}

// SaveDownload records one completed transfer.
func (r *GormRepository) SaveDownload(ctx context.Context, download *catalog.Download) error {
	if download.ID == uuid.Nil {
		download.ID = uuid.New()
	}
	if download.DownloadedAt.IsZero() {
		download.DownloadedAt = time.Now()
	}
	model := downloadToModel(download)
	return pkgrepo.Create(ctx, r.db, model)
}

func applyReleaseFields(model *ReleaseModel, release *catalog.Release, subSiteID *uuid.UUID, filesJSON []byte) {
	model.SubSiteID = subSiteID
	model.Title = release.Title
	model.URL = release.URL
	model.Description = release.Description
	model.ReleaseDate = release.ReleaseDate
	model.DurationSec = int(release.Duration.Seconds())
	model.FilesJSON = filesJSON
}

func getOrCreatePerformers(tx *gorm.DB, siteID uuid.UUID, performers []catalog.Performer) ([]PerformerModel, error) {
	models := make([]PerformerModel, 0, len(performers))
	for _, p := range performers {
		var model PerformerModel
		err := tx.Where(PerformerModel{SiteID: siteID, ShortName: p.ShortName}).
			Attrs(PerformerModel{ID: uuid.New(), Name: p.Name}).
			FirstOrCreate(&model).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get or create performer %s: %w", p.ShortName, err)
		}
		models = append(models, model)
	}
	return models, nil
}

func getOrCreateTags(tx *gorm.DB, siteID uuid.UUID, tags []catalog.Tag) ([]TagModel, error) {
	models := make([]TagModel, 0, len(tags))
	for _, t := range tags {
		var model TagModel
		err := tx.Where(TagModel{SiteID: siteID, ShortName: t.ShortName}).
			Attrs(TagModel{ID: uuid.New(), Name: t.Name}).
			FirstOrCreate(&model).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get or create tag %s: %w", t.ShortName, err)
		}
		models = append(models, model)
	}
	return models, nil
}
