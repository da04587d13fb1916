package render_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/rupor-github/mu-epub/book"
	"github.com/rupor-github/mu-epub/config"
	"github.com/rupor-github/mu-epub/ir"
	"github.com/rupor-github/mu-epub/render"
)

type fakeBook struct {
	resources map[string][]byte
	lang      string
}

func (f *fakeBook) Chapters() ([]book.ChapterRef, error) { return nil, nil }

func (f *fakeBook) ReadResource(href string) ([]byte, error) {
	return f.resources[href], nil
}

func (f *fakeBook) ReadResourceCapped(href string, buf []byte, maxBytes int64) (int, error) {
	data := f.resources[href]
	n := len(data)
	if int64(n) > maxBytes {
		n = int(maxBytes)
	}
	if n > len(buf) {
		n = len(buf)
	}
	copy(buf, data[:n])
	return n, nil
}

func (f *fakeBook) EmbeddedFonts(maxCount int, maxBytesEach int64) ([]book.EmbeddedFontFace, error) {
	return nil, nil
}
func (f *fakeBook) Language() string { return f.lang }
func (f *fakeBook) Navigation() (book.NavDocument, error) { return book.NavDocument{}, nil }

func newFakeBook() *fakeBook {
	return &fakeBook{
		resources: map[string][]byte{
			"text/ch0.xhtml": []byte(`<p>hello world</p><p>a second paragraph of body text.</p>`),
		},
		lang: "en",
	}
}

type memStore struct {
	entries map[string][]ir.RenderPage
}

func newMemStore() *memStore { return &memStore{entries: make(map[string][]ir.RenderPage)} }

func (m *memStore) key(profile config.ProfileID, chapterIndex int) string {
	return profile.Hex() + "/" + strconv.Itoa(chapterIndex)
}

func (m *memStore) Load(profile config.ProfileID, chapterIndex int) ([]ir.RenderPage, bool) {
	pages, ok := m.entries[m.key(profile, chapterIndex)]
	return pages, ok
}

func (m *memStore) Store(profile config.ProfileID, chapterIndex int, pages []ir.RenderPage) {
	cp := make([]ir.RenderPage, len(pages))
	copy(cp, pages)
	m.entries[m.key(profile, chapterIndex)] = cp
}

func newEngine(store *memStore) (*render.Engine, *fakeBook) {
	b := newFakeBook()
	return render.NewEngine(b, store, nil, nil), b
}

func TestSessionFreshPaginationProducesPages(t *testing.T) {
	e, b := newEngine(nil)
	opts := config.DefaultRenderEngineOptions()
	ch := book.ChapterRef{Index: 0, Href: "text/ch0.xhtml"}

	s, err := e.Begin(ch.Index, opts, render.FullRange, render.BookProgress{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	pages, err := s.PrepareChapterVector(context.Background(), b, ch)
	if err != nil {
		t.Fatalf("PrepareChapterVector: %v", err)
	}
	if len(pages) == 0 {
		t.Fatalf("expected at least one page")
	}
	if pages[0].Metrics.ChapterIndex != 0 {
		t.Fatalf("ChapterIndex = %d, want 0", pages[0].Metrics.ChapterIndex)
	}
	if !pages[0].Metrics.HasChapterPageCount || pages[0].Metrics.ChapterPageCount != len(pages) {
		t.Fatalf("ChapterPageCount not stamped correctly: %+v", pages[0].Metrics)
	}
}

func TestSessionCachesAfterFinish(t *testing.T) {
	store := newMemStore()
	e, b := newEngine(store)
	opts := config.DefaultRenderEngineOptions()
	opts.CacheEnable = true
	ch := book.ChapterRef{Index: 0, Href: "text/ch0.xhtml"}

	s, err := e.Begin(ch.Index, opts, render.FullRange, render.BookProgress{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	first, err := s.PrepareChapterVector(context.Background(), b, ch)
	if err != nil {
		t.Fatalf("PrepareChapterVector: %v", err)
	}

	s2, err := e.Begin(ch.Index, opts, render.FullRange, render.BookProgress{})
	if err != nil {
		t.Fatalf("Begin (second): %v", err)
	}
	if s2.Profile() != s.Profile() {
		t.Fatalf("profiles differ across identical opts")
	}
	second, err := s2.PrepareChapterVector(context.Background(), b, ch)
	if err != nil {
		t.Fatalf("PrepareChapterVector (cached): %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("cached page count = %d, want %d", len(second), len(first))
	}
}

func TestSessionPageRangeFiltersDeliveryNotCache(t *testing.T) {
	e, b := newEngine(nil)
	opts := config.DefaultRenderEngineOptions()
	ch := book.ChapterRef{Index: 0, Href: "text/ch0.xhtml"}

	rng := render.PageRange{Start: 0, End: 0}
	s, err := e.Begin(ch.Index, opts, rng, render.BookProgress{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	delivered, err := s.PrepareChapterVector(context.Background(), b, ch)
	if err != nil {
		t.Fatalf("PrepareChapterVector: %v", err)
	}
	if len(delivered) != 1 {
		t.Fatalf("delivered = %d pages, want exactly 1 under the range", len(delivered))
	}
	if got := len(s.Captured()); got == 0 {
		t.Fatalf("Captured() returned no pages")
	}
}

func TestSessionPrepareChapterCallback(t *testing.T) {
	e, b := newEngine(nil)
	opts := config.DefaultRenderEngineOptions()
	ch := book.ChapterRef{Index: 0, Href: "text/ch0.xhtml"}

	s, err := e.Begin(ch.Index, opts, render.FullRange, render.BookProgress{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	var delivered []ir.RenderPage
	err = s.PrepareChapterCallback(context.Background(), b, ch, func(p ir.RenderPage) error {
		delivered = append(delivered, p)
		return nil
	})
	if err != nil {
		t.Fatalf("PrepareChapterCallback: %v", err)
	}
	if len(delivered) == 0 {
		t.Fatalf("expected at least one delivered page")
	}
}

func TestSessionPrepareChapterIter(t *testing.T) {
	e, b := newEngine(nil)
	opts := config.DefaultRenderEngineOptions()
	ch := book.ChapterRef{Index: 0, Href: "text/ch0.xhtml"}

	s, err := e.Begin(ch.Index, opts, render.FullRange, render.BookProgress{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	var n int
	for item := range s.PrepareChapterIter(context.Background(), b, ch) {
		if item.Err != nil {
			t.Fatalf("stream error: %v", item.Err)
		}
		n++
	}
	if n == 0 {
		t.Fatalf("expected at least one page from the iterator")
	}
}

func TestSessionCancellationStopsPush(t *testing.T) {
	e, b := newEngine(nil)
	opts := config.DefaultRenderEngineOptions()
	ch := book.ChapterRef{Index: 0, Href: "text/ch0.xhtml"}

	s, err := e.Begin(ch.Index, opts, render.FullRange, render.BookProgress{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.PrepareChapterVector(ctx, b, ch); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestDiagnosticsSinkReceivesCacheMissAndHit(t *testing.T) {
	store := newMemStore()
	e, b := newEngine(store)
	opts := config.DefaultRenderEngineOptions()
	opts.CacheEnable = true
	ch := book.ChapterRef{Index: 0, Href: "text/ch0.xhtml"}

	var kinds []render.DiagnosticKind
	e.SetDiagnosticsSink(func(d render.Diagnostic) { kinds = append(kinds, d.Kind) })

	s, err := e.Begin(ch.Index, opts, render.FullRange, render.BookProgress{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := s.PrepareChapterVector(context.Background(), b, ch); err != nil {
		t.Fatalf("PrepareChapterVector: %v", err)
	}

	s2, err := e.Begin(ch.Index, opts, render.FullRange, render.BookProgress{})
	if err != nil {
		t.Fatalf("Begin (second): %v", err)
	}
	if _, err := s2.PrepareChapterVector(context.Background(), b, ch); err != nil {
		t.Fatalf("PrepareChapterVector (cached): %v", err)
	}

	var sawMiss, sawHit bool
	for _, k := range kinds {
		if k == render.DiagCacheMiss {
			sawMiss = true
		}
		if k == render.DiagCacheHit {
			sawHit = true
		}
	}
	if !sawMiss || !sawHit {
		t.Fatalf("kinds = %v, want both a cache miss and a cache hit", kinds)
	}
}

func TestOverlayComposerAppliesToDeliveredPagesOnly(t *testing.T) {
	e, b := newEngine(nil)
	opts := config.DefaultRenderEngineOptions()
	ch := book.ChapterRef{Index: 0, Href: "text/ch0.xhtml"}

	e.SetOverlayComposer(render.OverlayComposerFunc(func(m ir.PageMetrics, w, h int) []ir.OverlayItem {
		return []ir.OverlayItem{{}}
	}))

	s, err := e.Begin(ch.Index, opts, render.FullRange, render.BookProgress{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	pages, err := s.PrepareChapterVector(context.Background(), b, ch)
	if err != nil {
		t.Fatalf("PrepareChapterVector: %v", err)
	}
	for i, p := range pages {
		if len(p.OverlayItems) != 1 {
			t.Fatalf("page %d OverlayItems = %d, want 1", i, len(p.OverlayItems))
		}
	}
}
