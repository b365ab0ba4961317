package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/riptidemedia/riptide/internal/domain/catalog"
	pkgerrors "github.com/riptidemedia/riptide/pkg/errors"
)

func pkgerrNotFound(name string) error {
	return pkgerrors.NotFound(name + " not found")
}

func siteToModel(site *catalog.Site) *SiteModel {
	model := &SiteModel{
		ID:          site.ID,
		ShortName:   site.ShortName,
		Name:        site.Name,
		BaseURL:     site.BaseURL,
		Username:    site.Username,
		Password:    site.Password,
		SessionBlob: site.Session.Blob,
	}
	if !site.Session.UpdatedAt.IsZero() {
		t := site.Session.UpdatedAt
		model.SessionUpdatedAt = &t
	}
	return model
}

func siteFromModel(model *SiteModel) *catalog.Site {
	site := &catalog.Site{
		ID:        model.ID,
		ShortName: model.ShortName,
		Name:      model.Name,
		BaseURL:   model.BaseURL,
		Username:  model.Username,
		Password:  model.Password,
		Session: catalog.SessionState{
			Blob: model.SessionBlob,
		},
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
	if model.SessionUpdatedAt != nil {
		site.Session.UpdatedAt = *model.SessionUpdatedAt
	}
	return site
}

func releaseFromModel(model *ReleaseModel, site *SiteModel) (*catalog.Release, error) {
	var files []catalog.AvailableFile
	if len(model.FilesJSON) > 0 {
		if err := json.Unmarshal(model.FilesJSON, &files); err != nil {
			return nil, fmt.Errorf("failed to deserialize available files: %w", err)
		}
	}

	release := &catalog.Release{
		ID:            model.ID,
		SiteShortName: site.ShortName,
		ShortName:     model.ShortName,
		Title:         model.Title,
		URL:           model.URL,
		Description:   model.Description,
		ReleaseDate:   model.ReleaseDate,
		Duration:      time.Duration(model.DurationSec) * time.Second,
		Files:         files,
		UpdatedAt:     model.UpdatedAt,
	}
	if model.SubSite != nil {
		release.SubSite = model.SubSite.ShortName
	}
	for _, p := range model.Performers {
		release.Performers = append(release.Performers, catalog.Performer{
			ID:        p.ID,
			ShortName: p.ShortName,
			Name:      p.Name,
		})
	}
	for _, t := range model.Tags {
		release.Tags = append(release.Tags, catalog.Tag{
			ID:        t.ID,
			ShortName: t.ShortName,
			Name:      t.Name,
		})
	}
	return release, nil
}

func downloadToModel(download *catalog.Download) *DownloadModel {
	return &DownloadModel{
		ID:           download.ID,
		ReleaseID:    download.ReleaseID,
		Kind:         string(download.Kind),
		Content:      string(download.Content),
		Variant:      download.Variant,
		Filename:     download.Filename,
		SizeBytes:    download.SizeBytes,
		Phash:        int64(download.Phash),
		HasPhash:     download.HasPhash,
		DownloadedAt: download.DownloadedAt,
	}
}

func downloadFromModel(model *DownloadModel) catalog.Download {
	return catalog.Download{
		ID:           model.ID,
		ReleaseID:    model.ReleaseID,
		Kind:         catalog.FileKind(model.Kind),
		Content:      catalog.ContentType(model.Content),
		Variant:      model.Variant,
		Filename:     model.Filename,
		SizeBytes:    model.SizeBytes,
		Phash:        uint64(model.Phash),
		HasPhash:     model.HasPhash,
		DownloadedAt: model.DownloadedAt,
	}
}
