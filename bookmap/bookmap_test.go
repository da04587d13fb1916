package bookmap_test

import (
	"testing"

	"github.com/rupor-github/mu-epub/book"
	"github.com/rupor-github/mu-epub/bookmap"
	"github.com/rupor-github/mu-epub/ir"
)

func sampleChapters() ([]book.ChapterRef, []int) {
	chapters := []book.ChapterRef{
		{Index: 0, Href: "text/chapter1.xhtml"},
		{Index: 1, Href: "text/chapter2.xhtml"},
		{Index: 2, Href: "text/chapter3.xhtml"},
	}
	pageCounts := []int{3, 1, 5}
	return chapters, pageCounts
}

func buildMap(t *testing.T) *bookmap.RenderBookPageMap {
	t.Helper()
	chapters, counts := sampleChapters()
	m, err := bookmap.Build(chapters, counts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func TestBuildRejectsMismatchedLengths(t *testing.T) {
	chapters, _ := sampleChapters()
	if _, err := bookmap.Build(chapters, []int{1}); err == nil {
		t.Fatalf("expected an error for mismatched chapter/page-count lengths")
	}
}

func TestTotalPages(t *testing.T) {
	m := buildMap(t)
	if got := m.TotalPages(); got != 9 {
		t.Fatalf("TotalPages() = %d, want 9", got)
	}
}

func TestResolveChapterStart(t *testing.T) {
	m := buildMap(t)
	loc := bookmap.LocatorForChapter(2)
	res, ok := m.Resolve(loc, book.NavDocument{})
	if !ok {
		t.Fatalf("expected a resolution")
	}
	if res.ChapterIndex != 2 || res.ChapterPageIndex != 0 || res.GlobalPageIndex != 4 || res.Kind != bookmap.ChapterStart {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestResolveChapterOutOfRange(t *testing.T) {
	m := buildMap(t)
	if _, ok := m.Resolve(bookmap.LocatorForChapter(9), book.NavDocument{}); ok {
		t.Fatalf("expected no resolution for an out-of-range chapter")
	}
}

func TestResolveHrefExactMatch(t *testing.T) {
	m := buildMap(t)
	res, ok := m.Resolve(bookmap.LocatorForHref("text/chapter2.xhtml"), book.NavDocument{})
	if !ok {
		t.Fatalf("expected a resolution")
	}
	if res.ChapterIndex != 1 || res.GlobalPageIndex != 3 {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestResolveHrefBasenameFallback(t *testing.T) {
	m := buildMap(t)
	// "./text/../text/chapter3.xhtml" normalizes to "text/chapter3.xhtml",
	// an exact match; use a path whose directory differs to exercise the
	// basename fallback.
	res, ok := m.Resolve(bookmap.LocatorForHref("other/chapter3.xhtml"), book.NavDocument{})
	if !ok {
		t.Fatalf("expected a basename-fallback resolution")
	}
	if res.ChapterIndex != 2 {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestResolveHrefAmbiguousBasenameFails(t *testing.T) {
	chapters := []book.ChapterRef{
		{Index: 0, Href: "a/same.xhtml"},
		{Index: 1, Href: "b/same.xhtml"},
	}
	m, err := bookmap.Build(chapters, []int{1, 1})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := m.Resolve(bookmap.LocatorForHref("c/same.xhtml"), book.NavDocument{}); ok {
		t.Fatalf("expected ambiguous basename to yield no match")
	}
}

func TestResolveHrefWithFragmentAndProgress(t *testing.T) {
	m := buildMap(t)
	loc := bookmap.LocatorForHrefProgress("text/chapter3.xhtml#s2", 0.5)
	res, ok := m.Resolve(loc, book.NavDocument{})
	if !ok {
		t.Fatalf("expected a resolution")
	}
	if res.Kind != bookmap.FragmentAnchor {
		t.Fatalf("expected FragmentAnchor, got %v", res.Kind)
	}
	// chapter3 has 5 pages (indices 0..4); round(0.5*4) == 2
	if res.ChapterPageIndex != 2 {
		t.Fatalf("ChapterPageIndex = %d, want 2", res.ChapterPageIndex)
	}
}

func TestResolveHrefWithFragmentNoProgressFallsBackToChapterStart(t *testing.T) {
	m := buildMap(t)
	res, ok := m.Resolve(bookmap.LocatorForHref("text/chapter3.xhtml#s2"), book.NavDocument{})
	if !ok {
		t.Fatalf("expected a resolution")
	}
	if res.Kind != bookmap.FragmentFallbackChapterStart {
		t.Fatalf("expected FragmentFallbackChapterStart, got %v", res.Kind)
	}
}

func TestResolvePositionPrefersHrefAnchor(t *testing.T) {
	m := buildMap(t)
	loc := bookmap.Locator{
		Kind: bookmap.LocatorPosition, ChapterIndex: 0,
		Href: "text/chapter3.xhtml", HasHref: true,
		Anchor: "s2", HasAnchor: true,
		FragmentProgress: 1.0, HasFragmentProgress: true,
	}
	res, ok := m.Resolve(loc, book.NavDocument{})
	if !ok {
		t.Fatalf("expected a resolution")
	}
	if res.ChapterIndex != 2 || res.Kind != bookmap.FragmentAnchor {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestResolvePositionFallsBackToChapterIndex(t *testing.T) {
	m := buildMap(t)
	loc := bookmap.LocatorForPosition(1, "does/not/exist.xhtml", true, "", false)
	res, ok := m.Resolve(loc, book.NavDocument{})
	if !ok {
		t.Fatalf("expected a resolution")
	}
	if res.ChapterIndex != 1 || res.Kind != bookmap.ChapterStart {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestResolveTocIDByFragment(t *testing.T) {
	m := buildMap(t)
	nav := book.NavDocument{Nodes: []book.NavNode{
		{Label: "Chapter One", Href: "text/chapter1.xhtml"},
		{Label: "Part Two", Children: []book.NavNode{
			{Label: "Section A", Href: "text/chapter2.xhtml#sec-a"},
		}},
	}}
	res, ok := m.Resolve(bookmap.LocatorForTocID("sec-a"), nav)
	if !ok {
		t.Fatalf("expected a resolution")
	}
	if res.ChapterIndex != 1 {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestResolveTocIDByLabel(t *testing.T) {
	m := buildMap(t)
	nav := book.NavDocument{Nodes: []book.NavNode{
		{Label: "Chapter One", Href: "text/chapter1.xhtml"},
	}}
	res, ok := m.Resolve(bookmap.LocatorForTocID("Chapter One"), nav)
	if !ok {
		t.Fatalf("expected a resolution")
	}
	if res.ChapterIndex != 0 {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestResolveFragmentAloneNeverResolves(t *testing.T) {
	m := buildMap(t)
	if _, ok := m.Resolve(bookmap.LocatorForFragment("anything"), book.NavDocument{}); ok {
		t.Fatalf("a bare fragment locator must never resolve")
	}
}

func TestBuildTokenAndRoundTrip(t *testing.T) {
	m := buildMap(t)
	tok, ok := m.BuildToken(5) // chapter3 (start=4), local index 1
	if !ok {
		t.Fatalf("expected a token")
	}
	if tok.ChapterIndex != 2 || tok.ChapterPageIndex != 1 || tok.ChapterPageCount != 5 {
		t.Fatalf("unexpected token: %+v", tok)
	}

	remapped, ok := m.RemapToken(tok, m.TotalPages())
	if !ok {
		t.Fatalf("expected a remapped token")
	}
	if remapped.GlobalPageIndex != 5 {
		t.Fatalf("remapping onto the same map should be a no-op, got %+v", remapped)
	}
}

func TestRemapTokenFallsBackWhenChapterMissing(t *testing.T) {
	m := buildMap(t)
	oldTok := bookmap.ReadingPositionToken{
		GlobalPageIndex: 8, ChapterIndex: 7, ChapterHref: "gone.xhtml",
		ChapterPageIndex: 0, ChapterPageCount: 1, ProgressChapter: 0,
	}
	remapped, ok := m.RemapToken(oldTok, 9)
	if !ok {
		t.Fatalf("expected a fallback resolution")
	}
	if remapped.GlobalPageIndex < 0 || remapped.GlobalPageIndex >= m.TotalPages() {
		t.Fatalf("remapped index out of range: %+v", remapped)
	}
}

func TestRemapPageIndexPrefersSameChapterProgress(t *testing.T) {
	oldMetrics := []ir.PageMetrics{
		{ChapterIndex: 0, ProgressChapter: 0.25},
		{ChapterIndex: 0, ProgressChapter: 0.75},
	}
	newMetrics := []ir.PageMetrics{
		{ChapterIndex: 0, ProgressChapter: 0.1},
		{ChapterIndex: 0, ProgressChapter: 0.5},
		{ChapterIndex: 0, ProgressChapter: 0.9},
	}
	got, ok := bookmap.RemapPageIndex(oldMetrics, 1, newMetrics)
	if !ok {
		t.Fatalf("expected a remap result")
	}
	if got != 2 {
		t.Fatalf("RemapPageIndex = %d, want 2 (closest to 0.75)", got)
	}
}

func TestRemapPageIndexFallsBackWhenChapterAbsent(t *testing.T) {
	oldMetrics := []ir.PageMetrics{
		{ChapterIndex: 5, ProgressChapter: 0},
		{ChapterIndex: 5, ProgressChapter: 1},
	}
	newMetrics := []ir.PageMetrics{
		{ChapterIndex: 0, ProgressChapter: 0},
		{ChapterIndex: 0, ProgressChapter: 1},
	}
	got, ok := bookmap.RemapPageIndex(oldMetrics, 0, newMetrics)
	if !ok {
		t.Fatalf("expected a fallback remap result")
	}
	if got != 0 {
		t.Fatalf("RemapPageIndex = %d, want 0 (proportional fallback)", got)
	}
}
