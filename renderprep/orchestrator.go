// Package renderprep is the per-chapter orchestrator: it fetches chapter
// bytes, loads linked and inline stylesheets, scans image sources for
// intrinsic dimensions, and streams font- and asset-resolved StyledItems
// to the layout engine.
package renderprep

import (
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/rupor-github/mu-epub/book"
	"github.com/rupor-github/mu-epub/config"
	"github.com/rupor-github/mu-epub/errs"
	"github.com/rupor-github/mu-epub/font"
	"github.com/rupor-github/mu-epub/ir"
	"github.com/rupor-github/mu-epub/style"
)

// Trace is the per-item diagnostic record emitted by the tracing variant,
// carrying the font-resolution reason chain alongside the item itself.
type Trace struct {
	Item        ir.StyledItem
	FontReasons []string
}

// Prep orchestrates one chapter at a time. Styler state resets every
// chapter; the font resolver is long-lived across the whole book.
type Prep struct {
	budget   config.MemoryBudget
	styler   *style.Styler
	resolver *font.Resolver
	log      *zap.Logger

	imageDims map[string]intrinsicDims
}

// NewPrep builds an orchestrator bound to a styler and a long-lived font
// resolver (already populated with the book's embedded faces, if any).
func NewPrep(budget config.MemoryBudget, styler *style.Styler, resolver *font.Resolver, log *zap.Logger) *Prep {
	if log == nil {
		log = zap.NewNop()
	}
	return &Prep{
		budget:    budget,
		styler:    styler,
		resolver:  resolver,
		log:       log.Named("renderprep"),
		imageDims: make(map[string]intrinsicDims),
	}
}

var linkStylesheetRE = regexp.MustCompile(`(?is)<link\b[^>]*\brel\s*=\s*["']stylesheet["'][^>]*>`)
var hrefAttrRE = regexp.MustCompile(`(?is)\bhref\s*=\s*["']([^"']+)["']`)
var imgSrcRE = regexp.MustCompile(`(?is)<img\b[^>]*\bsrc\s*=\s*["']([^"']+)["']`)
var xlinkHrefRE = regexp.MustCompile(`(?is)\bxlink:href\s*=\s*["']([^"']+)["']`)

func resolveRelative(chapterHref, ref string) string {
	if strings.HasPrefix(ref, "/") || strings.Contains(ref, "://") {
		return path.Clean(ref)
	}
	dir := path.Dir(chapterHref)
	return path.Clean(path.Join(dir, ref))
}

// PrepareChapterBytes runs the orchestrator over caller-owned chapter
// bytes (the bytes-provided variant).
func (p *Prep) PrepareChapterBytes(b book.Book, ch book.ChapterRef, htmlBytes []byte, onItem func(ir.StyledItem) error) error {
	return p.run(b, ch, htmlBytes, func(it ir.StyledItem, _ []string) error { return onItem(it) })
}

// PrepareChapter fetches the chapter's bytes itself (the self-loading
// variant), enforcing max_entry_bytes.
func (p *Prep) PrepareChapter(b book.Book, ch book.ChapterRef, onItem func(ir.StyledItem) error) error {
	htmlBytes, err := p.fetchChapterBytes(b, ch)
	if err != nil {
		return err
	}
	return p.PrepareChapterBytes(b, ch, htmlBytes, onItem)
}

// PrepareChapterTraced streams a structured Trace per item,
// carrying the font-resolution reason chain for diagnostics.
func (p *Prep) PrepareChapterTraced(b book.Book, ch book.ChapterRef, htmlBytes []byte, onTrace func(Trace) error) error {
	return p.run(b, ch, htmlBytes, func(it ir.StyledItem, reasons []string) error {
		return onTrace(Trace{Item: it, FontReasons: reasons})
	})
}

func (p *Prep) fetchChapterBytes(b book.Book, ch book.ChapterRef) ([]byte, error) {
	buf := make([]byte, p.budget.MaxEntryBytes+1)
	n, err := b.ReadResourceCapped(ch.Href, buf, p.budget.MaxEntryBytes+1)
	if err != nil {
		return nil, errs.Wrap(errs.PhaseParse, errs.CodeBookChapterHTML, "failed to read chapter bytes", err).
			WithPath(ch.Href).WithChapter(ch.Index)
	}
	if int64(n) > p.budget.MaxEntryBytes {
		return nil, errs.New(errs.PhaseParse, errs.CodeEntryBytesLimit, "chapter bytes exceed budget").
			WithPath(ch.Href).WithChapter(ch.Index).
			WithLimit("max_entry_bytes", int64(n), p.budget.MaxEntryBytes)
	}
	return buf[:n], nil
}

func (p *Prep) run(b book.Book, ch book.ChapterRef, htmlBytes []byte, onItem func(ir.StyledItem, []string) error) error {
	if int64(len(htmlBytes)) > p.budget.MaxEntryBytes {
		return errs.New(errs.PhaseParse, errs.CodeEntryBytesLimit, "chapter bytes exceed budget").
			WithPath(ch.Href).WithChapter(ch.Index).
			WithLimit("max_entry_bytes", int64(len(htmlBytes)), p.budget.MaxEntryBytes)
	}

	p.styler.Reset()
	clear(p.imageDims)

	if err := p.loadLinkedStylesheets(b, ch, htmlBytes); err != nil {
		return err
	}

	p.scanImages(b, ch, htmlBytes)

	err := p.styler.StyleChapterBytesWith(htmlBytes, func(item ir.StyledItem) error {
		switch item.Kind {
		case ir.StyledItemImage:
			item.Img.Src = resolveRelative(ch.Href, item.Img.Src)
			p.fillImageDims(&item.Img)
			return onItem(item, nil)

		case ir.StyledItemRun:
			res := p.resolver.Resolve(item.Run.Style.Families, item.Run.Style.Weight, item.Run.Style.Italic, item.Run.Text)
			item.Run.FontID = res.FontID
			item.Run.ResolvedFamily = res.ResolvedFamily
			return onItem(item, res.Reasons)

		default:
			return onItem(item, nil)
		}
	})
	if err != nil {
		var e *errs.Error
		if as, ok := err.(*errs.Error); ok {
			e = as
		} else {
			e = errs.Wrap(errs.PhaseStyle, errs.CodeStyleTokenizeError, "style stream aborted", err)
		}
		if !e.HasChapter {
			e = e.WithChapter(ch.Index)
		}
		return e
	}
	return nil
}

func (p *Prep) loadLinkedStylesheets(b book.Book, ch book.ChapterRef, htmlBytes []byte) error {
	var sources []style.StylesheetSource
	for _, linkTag := range linkStylesheetRE.FindAllString(string(htmlBytes), -1) {
		m := hrefAttrRE.FindStringSubmatch(linkTag)
		if m == nil {
			continue
		}
		href := resolveRelative(ch.Href, m[1])

		buf := make([]byte, p.budget.MaxCSSBytes+1)
		n, err := b.ReadResourceCapped(href, buf, p.budget.MaxCSSBytes+1)
		if err != nil {
			return errs.Wrap(errs.PhaseParse, errs.CodeBookChapterStylesheet, "failed to read linked stylesheet", err).
				WithPath(href).WithChapter(ch.Index)
		}
		data := buf[:n]
		if !utf8.Valid(data) {
			return errs.New(errs.PhaseParse, errs.CodeStyleCSSNotUTF8, "stylesheet is not valid UTF-8").
				WithPath(href).WithChapter(ch.Index)
		}
		sources = append(sources, style.StylesheetSource{Href: href, Data: data})
	}
	if len(sources) == 0 {
		return nil
	}
	if err := p.styler.LoadStylesheets(sources); err != nil {
		if e, ok := err.(*errs.Error); ok {
			return e.WithChapter(ch.Index)
		}
		return err
	}
	return nil
}

// imageSniffCapBytes bounds how much of an image resource is read for
// header-only dimension sniffing; every supported format's header fits
// comfortably within this, regardless of the image's full encoded size.
const imageSniffCapBytes = 64 << 10

func (p *Prep) scanImages(b book.Book, ch book.ChapterRef, htmlBytes []byte) {
	text := string(htmlBytes)
	seen := make(map[string]bool)
	collect := func(ref string) {
		href := resolveRelative(ch.Href, ref)
		if seen[href] {
			return
		}
		seen[href] = true
		if _, ok := p.imageDims[href]; ok {
			return
		}
		buf := make([]byte, imageSniffCapBytes)
		n, err := b.ReadResourceCapped(href, buf, imageSniffCapBytes)
		if err != nil {
			p.imageDims[href] = intrinsicDims{}
			return
		}
		p.imageDims[href] = sniffDimensions(buf[:n])
	}
	for _, m := range imgSrcRE.FindAllStringSubmatch(text, -1) {
		collect(m[1])
	}
	for _, m := range xlinkHrefRE.FindAllStringSubmatch(text, -1) {
		collect(m[1])
	}
}

// fillImageDims computes missing width/height hints from the cached
// intrinsic dimensions, filling the missing side from the aspect ratio
// when only one side is known from markup.
func (p *Prep) fillImageDims(img *ir.Image) {
	dims, ok := p.imageDims[img.Src]
	if !ok || !dims.valid() {
		return
	}
	switch {
	case img.WidthPx == nil && img.HeightPx == nil:
		w, h := dims.WidthPx, dims.HeightPx
		img.WidthPx, img.HeightPx = &w, &h
	case img.WidthPx != nil && img.HeightPx == nil:
		h := int(float64(*img.WidthPx) * float64(dims.HeightPx) / float64(dims.WidthPx))
		img.HeightPx = &h
	case img.WidthPx == nil && img.HeightPx != nil:
		w := int(float64(*img.HeightPx) * float64(dims.WidthPx) / float64(dims.HeightPx))
		img.WidthPx = &w
	}
}
