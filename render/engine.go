// Package render ties the style/font/layout stages together into a
// per-chapter pagination session: cache-hit short-circuiting, streaming
// page delivery, cancellation, and a diagnostics sink.
package render

import (
	"sync"

	"go.uber.org/zap"

	"github.com/rupor-github/mu-epub/book"
	"github.com/rupor-github/mu-epub/cache"
	"github.com/rupor-github/mu-epub/ir"
	"github.com/rupor-github/mu-epub/measure"
)

// OverlayComposer produces caller-supplied page decorations (e.g. a
// reading-progress badge) given a page's metrics and the viewport size.
type OverlayComposer interface {
	Compose(metrics ir.PageMetrics, viewportWidthPx, viewportHeightPx int) []ir.OverlayItem
}

// OverlayComposerFunc adapts a plain function to OverlayComposer.
type OverlayComposerFunc func(metrics ir.PageMetrics, viewportWidthPx, viewportHeightPx int) []ir.OverlayItem

func (f OverlayComposerFunc) Compose(metrics ir.PageMetrics, w, h int) []ir.OverlayItem {
	return f(metrics, w, h)
}

// BookProgress carries the engine's current best estimate of this
// chapter's place within the whole book, used to stamp GlobalPageIndex/
// ProgressBook on emitted pages. EstimatedTotalPages may be refined as
// later chapters are paginated; a zero value means "unknown."
type BookProgress struct {
	PagesBeforeChapter  int
	EstimatedTotalPages int
}

// Engine is the long-lived, book-scoped entry point: it owns the book
// capability, an optional cache store, and the diagnostics/overlay hooks
// shared by every Session it begins.
type Engine struct {
	book  book.Book
	store cache.Store // nil disables caching entirely
	meas  measure.TextMeasurer
	log   *zap.Logger

	diagMu sync.Mutex
	diag   func(Diagnostic)

	overlay OverlayComposer
}

// NewEngine builds an Engine. store may be nil to disable caching;
// measurer may be nil to fall back to measure.NewDefault().
func NewEngine(b book.Book, store cache.Store, measurer measure.TextMeasurer, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if measurer == nil {
		measurer = measure.NewDefault()
	}
	return &Engine{book: b, store: store, meas: measurer, log: log.Named("render")}
}

// SetDiagnosticsSink installs fn as the single diagnostics sink, replacing
// any previously installed sink. Pass nil to disable diagnostics.
func (e *Engine) SetDiagnosticsSink(fn func(Diagnostic)) {
	e.diagMu.Lock()
	e.diag = fn
	e.diagMu.Unlock()
}

func (e *Engine) emit(d Diagnostic) {
	e.diagMu.Lock()
	sink := e.diag
	e.diagMu.Unlock()
	if sink != nil {
		sink(d)
	}
}

// SetOverlayComposer installs the optional overlay hook.
func (e *Engine) SetOverlayComposer(c OverlayComposer) {
	e.overlay = c
}

// applyOverlay composes and mirrors overlay items onto each delivered page.
// It is applied only to the pages handed back to the caller, never to the
// set persisted to cache, since overlay content (e.g. a progress badge) is
// reader-context-specific and must not be baked into a shared cache entry.
func (e *Engine) applyOverlay(pages []ir.RenderPage, viewportWidthPx, viewportHeightPx int) {
	if e.overlay == nil {
		return
	}
	for i := range pages {
		p := &pages[i]
		items := e.overlay.Compose(p.Metrics, viewportWidthPx, viewportHeightPx)
		if len(items) == 0 {
			continue
		}
		p.OverlayItems = append(p.OverlayItems, items...)
		for _, item := range items {
			p.Overlay = append(p.Overlay, item.Commands...)
		}
		p.Sync()
	}
}
