// Package bookmap builds a whole-book page index from per-chapter render
// output and resolves navigation locators (chapter, href+fragment, table
// of contents entry) against it.
package bookmap

import (
	"fmt"
	"path"
	"strings"

	"github.com/rupor-github/mu-epub/book"
)

// chapterEntry is one spine chapter's position within the book-wide page
// sequence.
type chapterEntry struct {
	Index       int
	Href        string
	PageCount   int
	StartGlobal int // 0-based global index of this chapter's first page
}

// RenderBookPageMap indexes every chapter's rendered page count into a
// single book-wide page sequence, enabling locator resolution and
// reading-position tokens that survive a re-render under a new profile.
type RenderBookPageMap struct {
	chapters   []chapterEntry
	totalPages int
}

// Build constructs a page map from the ordered spine and a parallel
// per-chapter page-count array (indexed identically to chapters).
func Build(chapters []book.ChapterRef, pageCounts []int) (*RenderBookPageMap, error) {
	if len(chapters) != len(pageCounts) {
		return nil, fmt.Errorf("bookmap: %d chapters but %d page counts", len(chapters), len(pageCounts))
	}
	m := &RenderBookPageMap{chapters: make([]chapterEntry, len(chapters))}
	global := 0
	for i, c := range chapters {
		m.chapters[i] = chapterEntry{Index: c.Index, Href: c.Href, PageCount: pageCounts[i], StartGlobal: global}
		global += pageCounts[i]
	}
	m.totalPages = global
	return m, nil
}

// TotalPages is the book-wide page count across every chapter.
func (m *RenderBookPageMap) TotalPages() int { return m.totalPages }

// ChapterCount is the number of spine chapters in the map.
func (m *RenderBookPageMap) ChapterCount() int { return len(m.chapters) }

// normalizeHref splits href into a cleaned path (collapsing "." and ".."
// segments, with any query string stripped) and its fragment, if any.
func normalizeHref(href string) (cleanPath, fragment string) {
	p := href
	if i := strings.IndexByte(p, '#'); i >= 0 {
		fragment = p[i+1:]
		p = p[:i]
	}
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "", fragment
	}
	cleaned := path.Clean("/" + p)
	return strings.TrimPrefix(cleaned, "/"), fragment
}

// findChapterByHref resolves href to a chapter position (index into
// m.chapters, not the spine index), trying an exact normalized-path match
// first, then falling back to a basename match when exactly one chapter
// shares that basename. An ambiguous basename match yields no match.
func (m *RenderBookPageMap) findChapterByHref(href string) (int, bool) {
	target, _ := normalizeHref(href)
	if target == "" {
		return 0, false
	}
	for i, c := range m.chapters {
		cp, _ := normalizeHref(c.Href)
		if cp == target {
			return i, true
		}
	}

	base := path.Base(target)
	match := -1
	for i, c := range m.chapters {
		cp, _ := normalizeHref(c.Href)
		if path.Base(cp) != base {
			continue
		}
		if match >= 0 {
			return 0, false // ambiguous basename
		}
		match = i
	}
	if match >= 0 {
		return match, true
	}
	return 0, false
}
