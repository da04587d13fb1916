package ir

// EventKind enumerates the structural (non-text) events in a styled stream.
//
// ENUM(paragraphStart, paragraphEnd, headingStart, headingEnd, listItemStart, listItemEnd, lineBreak)
type EventKind int

const (
	EventParagraphStart EventKind = iota
	EventParagraphEnd
	EventHeadingStart
	EventHeadingEnd
	EventListItemStart
	EventListItemEnd
	EventLineBreak
)

// Event is a structural marker in the styled stream. Level is only
// meaningful for EventHeadingStart/EventHeadingEnd (1..6).
type Event struct {
	Kind  EventKind
	Level int
}

// Run is a resolved, font-mapped piece of text inside a block.
type Run struct {
	Text           string
	Style          ComputedTextStyle
	FontID         int
	ResolvedFamily string
}

// Image is an inline image reference discovered by the style engine.
// Width/Height are nil when the style engine could not determine a hint
// directly from markup attributes (the render-prep orchestrator later
// fills gaps from intrinsic dimensions).
type Image struct {
	Src      string
	Alt      string
	WidthPx  *int
	HeightPx *int
	InFigure bool
}

// StyledItemKind discriminates the tagged union held by StyledItem.
type StyledItemKind int

const (
	StyledItemEvent StyledItemKind = iota
	StyledItemRun
	StyledItemImage
)

// StyledItem is one element of the stream the style engine emits and the
// layout engine consumes. Exactly one of Event/Run/Img is meaningful,
// selected by Kind.
type StyledItem struct {
	Kind  StyledItemKind
	Event Event
	Run   Run
	Img   Image
}

func ItemEvent(kind EventKind, level int) StyledItem {
	return StyledItem{Kind: StyledItemEvent, Event: Event{Kind: kind, Level: level}}
}

func ItemRun(r Run) StyledItem {
	return StyledItem{Kind: StyledItemRun, Run: r}
}

func ItemImage(img Image) StyledItem {
	return StyledItem{Kind: StyledItemImage, Img: img}
}
