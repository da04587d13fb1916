package ir

// AnnotationKind discriminates page-level typed annotations. Unknown
// legacy kinds are preserved round-trip by the cache layer even when this
// build does not recognize them.
type AnnotationKind int

const (
	AnnotationInlineImageSrc AnnotationKind = iota
	AnnotationUnknown
)

// Annotation is a typed, page-scoped fact recorded alongside the draw
// commands (e.g. which inline images appear on the page).
type Annotation struct {
	Kind    AnnotationKind
	Text    string // e.g. the image src for AnnotationInlineImageSrc
	RawKind string // original kind string for AnnotationUnknown, preserved round-trip
}

// OverlaySlot positions an overlay item relative to the page.
//
// ENUM(topLeft, topCenter, topRight, bottomLeft, bottomCenter, bottomRight, custom)
type OverlaySlot int

const (
	SlotTopLeft OverlaySlot = iota
	SlotTopCenter
	SlotTopRight
	SlotBottomLeft
	SlotBottomCenter
	SlotBottomRight
	SlotCustom
)

// Rect is an axis-aligned pixel rectangle, used by SlotCustom.
type Rect struct {
	X, Y, W, H float64
}

// OverlayItem is a caller-supplied decoration placed on top of a rendered
// page (e.g. a reading-progress badge), produced by an overlay composer.
type OverlayItem struct {
	Slot     OverlaySlot
	Custom   Rect
	Commands []DrawCommand
}

// PageMetrics describes a page's position within its chapter and,
// optionally, within the whole book.
type PageMetrics struct {
	ChapterIndex              int
	ChapterPageIndex          int // 0-based
	ChapterPageCount          int
	HasChapterPageCount       bool
	GlobalPageIndex           int
	HasGlobalPageIndex        bool
	GlobalPageCountEstimate   int
	HasGlobalPageCountEst     bool
	ProgressChapter           float64 // [0,1]
	ProgressBook              float64
	HasProgressBook           bool
}

// RenderPage is one paginated output unit: three ordered command streams
// (content, chrome, overlay), plus overlay descriptors, annotations and
// metrics. Number is the 1-based page number within its chapter.
type RenderPage struct {
	Number int

	Content []DrawCommand
	Chrome  []DrawCommand
	Overlay []DrawCommand

	// Commands is the legacy unified stream, populated on demand by Sync
	// for older consumers that pre-date the split streams. Derived, so it
	// is excluded from persistence and rebuilt by Sync after a cache load.
	Commands []DrawCommand `json:"-"`

	OverlayItems []OverlayItem
	Annotations  []Annotation
	Metrics      PageMetrics
}

// Sync rebuilds the legacy unified Commands stream from the split
// content/chrome/overlay streams, in that order.
func (p *RenderPage) Sync() {
	p.Commands = make([]DrawCommand, 0, len(p.Content)+len(p.Chrome)+len(p.Overlay))
	p.Commands = append(p.Commands, p.Content...)
	p.Commands = append(p.Commands, p.Chrome...)
	p.Commands = append(p.Commands, p.Overlay...)
}

// AddAnnotation appends an annotation, deduping identical InlineImageSrc
// entries so repeated images within a page do not multiply the slice.
func (p *RenderPage) AddAnnotation(a Annotation) {
	for _, existing := range p.Annotations {
		if existing.Kind == a.Kind && existing.Text == a.Text && existing.RawKind == a.RawKind {
			return
		}
	}
	p.Annotations = append(p.Annotations, a)
}
