package render

import (
	"context"
	"time"

	"github.com/rupor-github/mu-epub/book"
	"github.com/rupor-github/mu-epub/config"
	"github.com/rupor-github/mu-epub/errs"
	"github.com/rupor-github/mu-epub/font"
	"github.com/rupor-github/mu-epub/ir"
	"github.com/rupor-github/mu-epub/layout"
	"github.com/rupor-github/mu-epub/renderprep"
	"github.com/rupor-github/mu-epub/style"
)

// PageRange restricts which of a chapter's pages are delivered through
// Push/Finish, by 0-based chapter-page index. The full, unfiltered set is
// always captured for caching regardless of the range. End < 0 means
// "through the last page."
type PageRange struct {
	Start int
	End   int
}

// FullRange delivers every page.
var FullRange = PageRange{Start: 0, End: -1}

func (r PageRange) includes(chapterPageIndex int) bool {
	if chapterPageIndex < r.Start {
		return false
	}
	return r.End < 0 || chapterPageIndex <= r.End
}

// Session paginates one chapter under one pagination profile, optionally
// serving the result straight from cache.
type Session struct {
	engine       *Engine
	chapterIndex int
	opts         config.RenderEngineOptions
	profile      config.ProfileID
	pageRange    PageRange
	progress     BookProgress

	core     *layout.Session
	resolver *font.Resolver
	prep     *renderprep.Prep

	cacheServed bool
	cancelled   bool
	started     time.Time

	// captured holds every page in source order, for caching; pending
	// holds only the in-range subset, for delivery.
	captured []ir.RenderPage
	pending  []ir.RenderPage
}

// Begin starts a pagination session for chapterIndex under opts. If a
// cache is attached and holds pages for (profile, chapterIndex), the
// session is served entirely from cache (Push/Finish become no-ops beyond
// bookkeeping); otherwise a fresh layout session is started, registering
// embedded fonts first when opts.EmbedFonts is set.
func (e *Engine) Begin(chapterIndex int, opts config.RenderEngineOptions, rng PageRange, progress BookProgress) (*Session, error) {
	profile := opts.Profile()
	s := &Session{
		engine: e, chapterIndex: chapterIndex, opts: opts,
		profile: profile, pageRange: rng, progress: progress, started: time.Now(),
	}

	if e.store != nil {
		if pages, ok := e.store.Load(profile, chapterIndex); ok {
			rebuildCachedMetrics(pages, chapterIndex, progress)
			s.captured = pages
			s.pending = filterRange(pages, rng)
			e.applyOverlay(s.pending, opts.Layout.WidthPx, opts.Layout.HeightPx)
			s.cacheServed = true
			e.emit(Diagnostic{Kind: DiagCacheHit, ChapterIndex: chapterIndex, PageCount: len(pages)})
			return s, nil
		}
		if opts.CacheEnable {
			e.emit(Diagnostic{Kind: DiagCacheMiss, ChapterIndex: chapterIndex})
		}
	}

	resolver := font.NewResolver(opts.Font, opts.Style.DefaultFamily, e.log)
	if opts.EmbedFonts {
		if err := registerEmbeddedFonts(e.book, resolver, opts.Font); err != nil {
			return nil, err
		}
	}
	s.resolver = resolver
	s.core = layout.NewSession(opts.Layout, chapterIndex, e.meas, e.book.Language(), e.log)
	styler := style.NewStyler(opts.Style, opts.Budget, e.log)
	s.prep = renderprep.NewPrep(opts.Budget, styler, resolver, e.log)
	return s, nil
}

// registerEmbeddedFonts reads each declared face's bytes (capped at
// max_bytes_per_font+1, so an oversized face is detected by RegisterFace
// without ever reading an oversized font whole) and registers it with
// resolver.
func registerEmbeddedFonts(b book.Book, resolver *font.Resolver, opts config.FontOptions) error {
	faces, err := b.EmbeddedFonts(opts.MaxFaces, opts.MaxBytesPerFont)
	if err != nil {
		return err
	}
	for _, f := range faces {
		capBytes := opts.MaxBytesPerFont + 1
		buf := make([]byte, capBytes)
		n, err := b.ReadResourceCapped(f.Href, buf, capBytes)
		if err != nil {
			return err
		}
		if err := resolver.RegisterFace(f, int64(n)); err != nil {
			return err
		}
	}
	return nil
}

// Prep returns the renderprep.Prep wired to this session's styler and
// font resolver, ready to stream a chapter's styled items into Push.
// Cache-served sessions have no Prep (nil), since no fresh layout work is
// needed.
func (s *Session) Prep() *renderprep.Prep { return s.prep }

// Push forwards one styled item to the core layout session, polling ctx
// for cancellation first. Cache-served sessions ignore pushes entirely.
func (s *Session) Push(ctx context.Context, item ir.StyledItem) error {
	if s.cacheServed || s.cancelled {
		return nil
	}
	if ctx != nil && ctx.Err() != nil {
		return s.cancel()
	}
	return s.core.Push(item)
}

func (s *Session) cancel() error {
	s.cancelled = true
	s.engine.emit(Diagnostic{Kind: DiagCancelled, ChapterIndex: s.chapterIndex})
	return errs.Cancelled()
}

// Finish flushes the session, stamps chapter-relative and book-relative
// metrics on every page, persists the full page set to cache when
// attached, and returns the in-range subset for delivery.
func (s *Session) Finish(ctx context.Context) ([]ir.RenderPage, error) {
	if s.cacheServed {
		return s.pending, nil
	}
	if s.cancelled {
		return nil, errs.Cancelled()
	}
	if ctx != nil && ctx.Err() != nil {
		return nil, s.cancel()
	}

	pages, err := s.core.Finish()
	if err != nil {
		return nil, err
	}
	stampBookProgress(pages, s.chapterIndex, s.progress)

	s.captured = pages
	s.pending = filterRange(pages, s.pageRange)
	s.engine.applyOverlay(s.pending, s.opts.Layout.WidthPx, s.opts.Layout.HeightPx)

	if s.engine.store != nil && s.opts.CacheEnable && len(pages) > 0 {
		s.engine.store.Store(s.profile, s.chapterIndex, pages)
	}
	s.engine.emit(Diagnostic{
		Kind: DiagReflowTimeMs, ChapterIndex: s.chapterIndex,
		ReflowTimeMs: int(time.Since(s.started).Milliseconds()),
	})
	return s.pending, nil
}

// Profile returns the pagination profile this session paginated (or will
// paginate) under.
func (s *Session) Profile() config.ProfileID { return s.profile }

// Captured returns every page produced for this chapter in source order,
// regardless of any page-range filtering — the set that would be (or was)
// persisted to cache.
func (s *Session) Captured() []ir.RenderPage { return s.captured }

func filterRange(pages []ir.RenderPage, rng PageRange) []ir.RenderPage {
	if rng == FullRange {
		out := make([]ir.RenderPage, len(pages))
		copy(out, pages)
		return out
	}
	var out []ir.RenderPage
	for i, p := range pages {
		if rng.includes(i) {
			out = append(out, p)
		}
	}
	return out
}

// rebuildCachedMetrics re-derives chapter_page_count/progress_chapter
// (and, given a progress estimate, the book-relative fields) on pages
// loaded from cache, since the cached bytes predate this engine run and
// must not be trusted to already carry up-to-date totals.
func rebuildCachedMetrics(pages []ir.RenderPage, chapterIndex int, progress BookProgress) {
	total := len(pages)
	for i := range pages {
		pages[i].Metrics.ChapterIndex = chapterIndex
		pages[i].Metrics.ChapterPageIndex = i
		pages[i].Metrics.ChapterPageCount = total
		pages[i].Metrics.HasChapterPageCount = true
		// Same formula layout.Session stamps on a fresh run, so a cache hit
		// reproduces the pages of a miss.
		pages[i].Metrics.ProgressChapter = float64(i+1) / float64(total)
	}
	stampBookProgress(pages, chapterIndex, progress)
}

func stampBookProgress(pages []ir.RenderPage, chapterIndex int, progress BookProgress) {
	for i := range pages {
		pages[i].Metrics.ChapterIndex = chapterIndex
		global := progress.PagesBeforeChapter + i
		pages[i].Metrics.GlobalPageIndex = global
		pages[i].Metrics.HasGlobalPageIndex = true
		if progress.EstimatedTotalPages > 0 {
			pages[i].Metrics.GlobalPageCountEstimate = progress.EstimatedTotalPages
			pages[i].Metrics.HasGlobalPageCountEst = true
			denom := progress.EstimatedTotalPages - 1
			if denom < 1 {
				denom = 1
			}
			pages[i].Metrics.ProgressBook = float64(global) / float64(denom)
			pages[i].Metrics.HasProgressBook = true
		}
	}
}
