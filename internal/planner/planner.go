// Package planner computes which of a release's available files still
// need fetching under the active download conditions.
package planner

import (
	"context"
	"sort"

	"github.com/riptidemedia/riptide/internal/domain/catalog"
	"github.com/riptidemedia/riptide/internal/hashindex"
)

// Planner reduces a release's available files to the ones worth
// fetching: one video variant per group under the quality policy, all
// not-yet-downloaded non-video files.
type Planner struct {
	hashes   hashindex.Index
	distance hashindex.Distance
}

// New creates a planner. hashes may be nil; the nearest-by-hash policy
// then always falls back to worst quality.
func New(hashes hashindex.Index, distance hashindex.Distance) *Planner {
	if distance == nil {
		distance = hashindex.Hamming
	}
	return &Planner{hashes: hashes, distance: distance}
}

// Plan returns the files to fetch, preserving the release's original
// file ordering. A file is excluded when a download record already
// exists for its (kind, content, variant) triple; this set difference
// is independent of the quality policy.
func (p *Planner) Plan(ctx context.Context, release *catalog.Release, existing []catalog.Download, cond catalog.DownloadConditions) ([]catalog.AvailableFile, error) {
	done := make(map[catalog.FileKey]struct{}, len(existing))
	for _, d := range existing {
		done[d.Key()] = struct{}{}
	}

	selected, err := p.selectVideoVariants(ctx, release, cond.Quality)
	if err != nil {
		return nil, err
	}

	var planned []catalog.AvailableFile
	for i, f := range release.Files {
		if _, ok := done[f.Key()]; ok {
			continue
		}
		if f.IsVideo() && selected[f.Group()] != i {
			continue
		}
		planned = append(planned, f)
	}
	return planned, nil
}

// selectVideoVariants picks one file index per video group according
// to the quality policy.
func (p *Planner) selectVideoVariants(ctx context.Context, release *catalog.Release, quality catalog.QualityPolicy) (map[catalog.GroupKey]int, error) {
	groups := make(map[catalog.GroupKey][]int)
	for i, f := range release.Files {
		if f.IsVideo() {
			key := f.Group()
			groups[key] = append(groups[key], i)
		}
	}

	selected := make(map[catalog.GroupKey]int, len(groups))
	for key, indices := range groups {
		switch quality {
		case catalog.QualityBest:
			selected[key] = pickByQuality(release.Files, indices, true)
		case catalog.QualityWorst:
			selected[key] = pickByQuality(release.Files, indices, false)
		case catalog.QualityNearestByHash:
			idx, err := p.pickNearest(ctx, release, indices)
			if err != nil {
				return nil, err
			}
			selected[key] = idx
		default:
			selected[key] = pickByQuality(release.Files, indices, true)
		}
	}
	return selected, nil
}

// pickByQuality sorts a group descending by resolution height, then by
// frame rate, and picks the first (best) or last (worst) entry. The
// sort is stable so ties keep listing order.
func pickByQuality(files []catalog.AvailableFile, indices []int, best bool) int {
	sorted := make([]int, len(indices))
	copy(sorted, indices)
	sort.SliceStable(sorted, func(a, b int) bool {
		fa, fb := files[sorted[a]], files[sorted[b]]
		if fa.Height() != fb.Height() {
			return fa.Height() > fb.Height()
		}
		return fa.FrameRate() > fb.FrameRate()
	})
	if best {
		return sorted[0]
	}
	return sorted[len(sorted)-1]
}

// pickNearest prefers the variant whose known hash is closest to the
// site's reference hash. Without a reference or any known variant
// hash there is no basis, and worst quality applies.
func (p *Planner) pickNearest(ctx context.Context, release *catalog.Release, indices []int) (int, error) {
	if p.hashes == nil {
		return pickByQuality(release.Files, indices, false), nil
	}

	reference, ok, err := p.hashes.ReferenceHash(ctx, release.SiteShortName)
	if err != nil {
		return 0, err
	}
	if !ok {
		return pickByQuality(release.Files, indices, false), nil
	}

	bestIdx := -1
	bestDist := 0
	for _, i := range indices {
		hash, known, err := p.hashes.VariantHash(ctx, release.SiteShortName, release.Files[i].Variant)
		if err != nil {
			return 0, err
		}
		if !known {
			continue
		}
		d := p.distance(hash, reference)
		if bestIdx == -1 || d < bestDist {
			bestIdx = i
			bestDist = d
		}
	}
	if bestIdx == -1 {
		return pickByQuality(release.Files, indices, false), nil
	}
	return bestIdx, nil
}
