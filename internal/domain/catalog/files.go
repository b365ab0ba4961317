package catalog

// FileKind discriminates the available-file union.
type FileKind string

const (
	FileKindVideo FileKind = "video"
	FileKindImage FileKind = "image"
)

// ContentType classifies what a file depicts.
type ContentType string

const (
	ContentScene   ContentType = "scene"
	ContentPoster  ContentType = "poster"
	ContentGallery ContentType = "gallery"
)

// VideoInfo carries the video-specific attributes of an available file.
type VideoInfo struct {
	Height    int
	FrameRate int
	Codec     string
	SizeBytes int64
}

// AvailableFile describes one downloadable variant of a release.
// Video is set only when Kind == FileKindVideo; image variants carry
// no extra attributes.
type AvailableFile struct {
	Kind    FileKind
	Content ContentType
	Variant string
	URL     string
	Video   *VideoInfo
}

// FileKey is the (kind, content type, variant) triple used for
// download dedup and grouping.
type FileKey struct {
	Kind    FileKind
	Content ContentType
	Variant string
}

// GroupKey identifies a quality-selection group: variants of the same
// kind and content type compete with each other.
type GroupKey struct {
	Kind    FileKind
	Content ContentType
}

// Key returns the file's dedup key.
func (f AvailableFile) Key() FileKey {
	return FileKey{Kind: f.Kind, Content: f.Content, Variant: f.Variant}
}

// Group returns the file's quality-selection group.
func (f AvailableFile) Group() GroupKey {
	return GroupKey{Kind: f.Kind, Content: f.Content}
}

// IsVideo reports whether the file is a video variant.
func (f AvailableFile) IsVideo() bool {
	return f.Kind == FileKindVideo
}

// Height returns the resolution height, or zero when unknown.
func (f AvailableFile) Height() int {
	if f.Video == nil {
		return 0
	}
	return f.Video.Height
}

// FrameRate returns the frame rate, or zero when unknown.
func (f AvailableFile) FrameRate() int {
	if f.Video == nil {
		return 0
	}
	return f.Video.FrameRate
}
