package downloader

import (
	"path"
	"strings"

	"github.com/riptidemedia/riptide/internal/domain/catalog"
)

const dateLayout = "2006-01-02"

// invalidFilenameChars are stripped from generated filenames.
const invalidFilenameChars = `<>:"/\|?*`

// BuildFilename derives the human-readable destination filename:
// "{performers} - {site} - {yyyy-MM-dd} - {title}{suffix}".
func BuildFilename(site *catalog.Site, release *catalog.Release, file catalog.AvailableFile) string {
	parts := make([]string, 0, 4)
	if performers := joinPerformers(release.Performers); performers != "" {
		parts = append(parts, performers)
	}

	siteName := site.Name
	if siteName == "" {
		siteName = site.ShortName
	}
	parts = append(parts, siteName)

	if !release.ReleaseDate.IsZero() {
		parts = append(parts, release.ReleaseDate.Format(dateLayout))
	}

	title := release.Title
	if title == "" {
		title = release.ShortName
	}
	parts = append(parts, title)

	name := sanitizeFilename(strings.Join(parts, " - "))
	if name == "" {
		name = sanitizeFilename(release.ShortName)
	}
	if name == "" {
		name = release.ID.String()
	}

	return name + fileSuffix(file)
}

// joinPerformers joins performer names with commas and an ampersand
// before the last entry: "A, B & C".
func joinPerformers(performers []catalog.Performer) string {
	names := make([]string, 0, len(performers))
	for _, p := range performers {
		name := p.Name
		if name == "" {
			name = p.ShortName
		}
		if name != "" {
			names = append(names, name)
		}
	}

	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " & " + names[len(names)-1]
	}
}

// fileSuffix returns the file's natural suffix, falling back to a
// sensible default per kind when the URL carries none.
func fileSuffix(file catalog.AvailableFile) string {
	if ext := path.Ext(strippedURLPath(file.URL)); ext != "" && len(ext) <= 5 {
		return ext
	}
	if file.Kind == catalog.FileKindImage {
		return ".jpg"
	}
	return ".mp4"
}

func strippedURLPath(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return url
}

// sanitizeFilename strips filesystem-invalid and control characters
// and collapses the surrounding whitespace.
func sanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(invalidFilenameChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	return strings.Trim(cleaned, ". ")
}
