package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/riptidemedia/riptide/internal/domain/catalog"
	"github.com/riptidemedia/riptide/internal/repository"
	"github.com/riptidemedia/riptide/internal/scraper/static"
	"github.com/riptidemedia/riptide/pkg/errors"
)

// siteSpec is one entry of the site definition file: identity,
// credentials and the selector set driving the static scraper.
type siteSpec struct {
	ShortName     string           `json:"short_name"`
	Name          string           `json:"name"`
	BaseURL       string           `json:"base_url"`
	Username      string           `json:"username"`
	Password      string           `json:"password"`
	EphemeralURLs bool             `json:"ephemeral_urls"`
	Selectors     static.Selectors `json:"selectors"`
}

// loadSiteSpecs reads the site definition file.
func loadSiteSpecs(path string) ([]siteSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sites file %s: %w", path, err)
	}

	var specs []siteSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("failed to parse sites file %s: %w", path, err)
	}

	for _, spec := range specs {
		if spec.ShortName == "" || spec.BaseURL == "" {
			return nil, fmt.Errorf("sites file %s: every site needs short_name and base_url", path)
		}
	}
	return specs, nil
}

// ensureSite creates the site record on first encounter. Credentials
// from the sites file always win over stored ones.
func ensureSite(ctx context.Context, repo repository.Repository, spec siteSpec) error {
	existing, err := repo.GetSite(ctx, spec.ShortName)
	if err == nil {
		if existing.Username != spec.Username || existing.Password != spec.Password ||
			existing.BaseURL != spec.BaseURL {
			existing.Username = spec.Username
			existing.Password = spec.Password
			existing.BaseURL = spec.BaseURL
			return repo.UpdateSite(ctx, existing)
		}
		return nil
	}
	if !errors.IsNotFound(err) {
		return err
	}

	return repo.CreateSite(ctx, &catalog.Site{
		ShortName: spec.ShortName,
		Name:      spec.Name,
		BaseURL:   spec.BaseURL,
		Username:  spec.Username,
		Password:  spec.Password,
	})
}
