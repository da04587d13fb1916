package bookmap

import (
	"math"

	"github.com/rupor-github/mu-epub/book"
)

// LocationKind classifies how a resolved location relates to its anchor.
//
// ENUM(chapterStart, fragmentAnchor, fragmentFallbackChapterStart)
type LocationKind int

const (
	ChapterStart LocationKind = iota
	FragmentAnchor
	FragmentFallbackChapterStart
)

// ResolvedLocation is a fully-resolved page position within the book.
type ResolvedLocation struct {
	ChapterIndex     int // spine index (ChapterRef.Index)
	ChapterPageIndex int // 0-based page offset within the chapter
	GlobalPageIndex  int // 0-based page offset within the whole book
	Kind             LocationKind
}

// LocatorKind discriminates the tagged union held by Locator.
type LocatorKind int

const (
	LocatorChapter LocatorKind = iota
	LocatorHref
	LocatorPosition
	LocatorTocID
	LocatorFragment
)

// Locator is a navigation request in one of five forms: a bare chapter
// (optionally with an in-chapter anchor), an "href#fragment" string, a
// position giving href/chapter-index/anchor with independent presence
// flags, a table-of-contents entry id, or a bare fragment (never
// resolvable on its own).
type Locator struct {
	Kind LocatorKind

	ChapterIndex int
	Href         string
	HasHref      bool
	Anchor       string
	HasAnchor    bool

	FragmentProgress    float64
	HasFragmentProgress bool

	TocID string
}

func LocatorForChapter(chapterIndex int) Locator {
	return Locator{Kind: LocatorChapter, ChapterIndex: chapterIndex}
}

func LocatorForChapterAnchor(chapterIndex int, anchor string) Locator {
	return Locator{Kind: LocatorChapter, ChapterIndex: chapterIndex, Anchor: anchor, HasAnchor: true}
}

func LocatorForHref(href string) Locator {
	return Locator{Kind: LocatorHref, Href: href}
}

func LocatorForHrefProgress(href string, progress float64) Locator {
	return Locator{Kind: LocatorHref, Href: href, FragmentProgress: progress, HasFragmentProgress: true}
}

func LocatorForPosition(chapterIndex int, href string, hasHref bool, anchor string, hasAnchor bool) Locator {
	return Locator{Kind: LocatorPosition, ChapterIndex: chapterIndex, Href: href, HasHref: hasHref, Anchor: anchor, HasAnchor: hasAnchor}
}

func LocatorForTocID(id string) Locator {
	return Locator{Kind: LocatorTocID, TocID: id}
}

func LocatorForFragment(anchor string) Locator {
	return Locator{Kind: LocatorFragment, Anchor: anchor, HasAnchor: true}
}

// Resolve resolves loc against the map, consulting nav for TocID lookups.
func (m *RenderBookPageMap) Resolve(loc Locator, nav book.NavDocument) (ResolvedLocation, bool) {
	switch loc.Kind {
	case LocatorChapter:
		return m.resolveChapterPos(loc.ChapterIndex, loc.HasAnchor)
	case LocatorHref:
		return m.resolveHref(loc.Href, loc.FragmentProgress, loc.HasFragmentProgress)
	case LocatorPosition:
		return m.resolvePosition(loc)
	case LocatorTocID:
		return m.resolveTocID(loc.TocID, nav.Nodes)
	case LocatorFragment:
		return ResolvedLocation{}, false
	default:
		return ResolvedLocation{}, false
	}
}

func (m *RenderBookPageMap) resolveChapterPos(chapterIndex int, hasAnchor bool) (ResolvedLocation, bool) {
	pos := m.posForChapterIndex(chapterIndex)
	if pos < 0 {
		return ResolvedLocation{}, false
	}
	kind := ChapterStart
	if hasAnchor {
		kind = FragmentFallbackChapterStart
	}
	return m.entryStart(pos, kind), true
}

func (m *RenderBookPageMap) posForChapterIndex(chapterIndex int) int {
	for i, c := range m.chapters {
		if c.Index == chapterIndex {
			return i
		}
	}
	return -1
}

func (m *RenderBookPageMap) entryStart(pos int, kind LocationKind) ResolvedLocation {
	c := m.chapters[pos]
	return ResolvedLocation{ChapterIndex: c.Index, ChapterPageIndex: 0, GlobalPageIndex: c.StartGlobal, Kind: kind}
}

func (m *RenderBookPageMap) resolveHref(href string, progress float64, hasProgress bool) (ResolvedLocation, bool) {
	p, frag := normalizeHref(href)
	pos, ok := m.findChapterByHref(p)
	if !ok {
		return ResolvedLocation{}, false
	}
	if frag != "" && hasProgress {
		pageIdx := m.pageForProgress(pos, progress)
		c := m.chapters[pos]
		return ResolvedLocation{
			ChapterIndex: c.Index, ChapterPageIndex: pageIdx,
			GlobalPageIndex: c.StartGlobal + pageIdx, Kind: FragmentAnchor,
		}, true
	}
	kind := ChapterStart
	if frag != "" {
		kind = FragmentFallbackChapterStart
	}
	return m.entryStart(pos, kind), true
}

func (m *RenderBookPageMap) pageForProgress(pos int, progress float64) int {
	count := m.chapters[pos].PageCount
	if count <= 1 {
		return 0
	}
	p := progress
	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	idx := int(math.Round(p * float64(count-1)))
	if idx < 0 {
		idx = 0
	} else if idx > count-1 {
		idx = count - 1
	}
	return idx
}

// resolvePosition tries href+anchor, then href alone, then falls back to
// chapter_index (+anchor, if present).
func (m *RenderBookPageMap) resolvePosition(loc Locator) (ResolvedLocation, bool) {
	if loc.HasHref {
		if loc.HasAnchor && loc.Anchor != "" {
			if res, ok := m.resolveHref(loc.Href+"#"+loc.Anchor, loc.FragmentProgress, loc.HasFragmentProgress); ok {
				return res, true
			}
		}
		if res, ok := m.resolveHref(loc.Href, 0, false); ok {
			return res, true
		}
	}
	return m.resolveChapterPos(loc.ChapterIndex, loc.HasAnchor)
}

// resolveTocID walks nodes depth-first, matching either label equality or
// fragment equality against id, then resolves the matched node's href.
func (m *RenderBookPageMap) resolveTocID(id string, nodes []book.NavNode) (ResolvedLocation, bool) {
	node, ok := findNavNode(nodes, id)
	if !ok {
		return ResolvedLocation{}, false
	}
	return m.resolveHref(node.Href, 0, false)
}

func findNavNode(nodes []book.NavNode, id string) (book.NavNode, bool) {
	for _, n := range nodes {
		if n.Label == id {
			return n, true
		}
		if _, frag := normalizeHref(n.Href); frag == id && frag != "" {
			return n, true
		}
		if found, ok := findNavNode(n.Children, id); ok {
			return found, true
		}
	}
	return book.NavNode{}, false
}
