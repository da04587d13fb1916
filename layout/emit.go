package layout

import (
	"math"

	"github.com/rupor-github/mu-epub/ir"
)

// ascentRatio approximates a font's ascent as a fraction of its em size,
// used to place a line's baseline below its allotted top edge.
const ascentRatio = 0.78

// placeLine lays out one already-broken line of words at the current y,
// paging forward first if it would not fit, and advances y by the line's
// height. Word x-positions are computed here, including inter-word
// justification spacing, since commands carry final page coordinates.
func (s *Session) placeLine(words []word, justify ir.JustifyKind) error {
	if len(words) == 0 {
		return nil
	}
	style0 := words[0].style
	lineHeight := style0.SizePx * style0.LineHeight
	if s.y+lineHeight > s.contentBottom {
		if err := s.pageBreak(); err != nil {
			return err
		}
	}

	inset := s.leftInset()
	indent := 0.0
	if !s.firstLineDone {
		indent = s.firstLineIndent()
	}
	trailing := words[len(words)-1].display
	available := s.contentWidth - inset - indent - fitGuard(style0) + hangingPunctCredit(style0, trailing)

	spaceW := spaceWidth(s.measurer, style0)
	natural := naturalWidth(words, spaceW)
	perGap := 0.0
	gaps := len(words) - 1

	// The justify decision made upstream is only a candidate: a line that
	// ends in terminal punctuation, is too sparsely filled, or has no
	// inter-word gaps at all is never justified, per the spec's
	// justification-downgrade invariant.
	if justify == ir.JustifyInterWord {
		fill := 0.0
		if available > 0 {
			fill = natural / available
		}
		switch {
		case gaps <= 0:
			justify = ir.JustifyNone
		case hasHangingPunct(trailing):
			justify = ir.JustifyNone
		case fill < s.opts.MinFillRatio:
			justify = ir.JustifyNone
		}
	}
	if justify == ir.JustifyInterWord {
		extra := available - natural
		if cap := float64(gaps) * math.Round(spaceW*0.45); extra > cap {
			extra = cap
		}
		if extra <= 0 {
			justify = ir.JustifyNone
		} else {
			perGap = extra / float64(gaps)
		}
	}

	x := float64(s.opts.MarginLeftPx) + inset + indent
	baselineY := s.y + style0.SizePx*ascentRatio

	for i, w := range words {
		cmd := ir.NewText(ir.TextCommand{
			X:         x,
			BaselineY: baselineY,
			Text:      w.display,
			HasFontID: w.fontID != 0,
			FontID:    w.fontID,
			Style: ir.ResolvedTextStyle{
				ComputedTextStyle: w.style,
				FontID:            w.fontID,
				ResolvedFamily:    w.resolvedFamily,
				Justify: ir.Justification{
					Kind:    justify,
					ExtraPx: perGap * float64(gaps),
				},
			},
		})
		s.cur.Content = append(s.cur.Content, cmd)

		x += w.width
		if i < len(words)-1 {
			x += spaceW + perGap
		}
	}

	s.y += lineHeight
	s.firstLineDone = true
	return nil
}

// pageBreak commits the current page and starts a fresh one.
func (s *Session) pageBreak() error {
	s.pages = append(s.pages, *s.cur)
	s.newPage()
	return nil
}

// pushImage places a block-level inline image: it flushes any pending
// text, reserves vertical space capped by max_inline_image_height_ratio,
// paging forward first if the image cannot fit on the remainder of the
// page at all.
func (s *Session) pushImage(img ir.Image) error {
	if err := s.flushParagraphBuffer(); err != nil {
		return err
	}
	if err := s.flushDirectLine(true); err != nil {
		return err
	}

	w, h := imageBoxPx(img, s.contentWidth, s.contentBottom-s.contentTop, s.opts.MaxInlineImageHeightRatio)

	if s.y+h > s.contentBottom && s.y > s.contentTop {
		if err := s.pageBreak(); err != nil {
			return err
		}
	}
	if h > s.contentBottom-s.contentTop {
		h = s.contentBottom - s.contentTop
	}

	x := float64(s.opts.MarginLeftPx) + (s.contentWidth-w)/2

	// No decoded image bytes flow through this layout stage, so an image
	// object is signaled rather than drawn: an outline rect for its box,
	// plus a thin filled header strip marking it as an image, not prose.
	s.cur.Content = append(s.cur.Content, ir.NewRect(ir.RectCommand{
		X: x, Y: s.y, W: w, H: h, Fill: false,
	}))
	headerH := math.Round(h * 0.08)
	if headerH < 2 {
		headerH = 2
	}
	headerW := w - 2
	if headerW < 1 {
		headerW = 1
	}
	s.cur.Content = append(s.cur.Content, ir.NewRect(ir.RectCommand{
		X: x + 1, Y: s.y + 1, W: headerW, H: headerH, Fill: true,
	}))
	s.cur.AddAnnotation(ir.Annotation{Kind: ir.AnnotationInlineImageSrc, Text: img.Src})

	s.y += h
	if img.Alt != "" && s.opts.AltFallbackCaption && !img.InFigure {
		return s.emitCaption(img.Alt)
	}
	return nil
}

// emitCaption lays out alt text as a small-print figure caption following
// an image, temporarily switching block role so it gets caption styling
// and its own fresh line without the surrounding paragraph's indent.
func (s *Session) emitCaption(alt string) error {
	savedRole, savedFirst := s.role, s.firstLineDone
	s.role = ir.BlockRoleFigureCaption
	s.firstLineDone = false
	style := captionStyle()
	for _, raw := range splitWords(alt) {
		if err := s.appendDirect(s.newWordResolved(raw, style, 0, "")); err != nil {
			return err
		}
	}
	err := s.flushDirectLine(true)
	s.role, s.firstLineDone = savedRole, savedFirst
	return err
}

// imageBoxPx computes the placed image box in px, scaling down to fit the
// content width and clamping height to the configured ratio of the
// chapter's usable content height, preserving aspect ratio when both
// intrinsic dimensions are known.
func imageBoxPx(img ir.Image, contentWidth, contentHeight, maxRatio float64) (w, h float64) {
	w, h = contentWidth, contentHeight*maxRatio
	if img.WidthPx != nil && img.HeightPx != nil && *img.WidthPx > 0 && *img.HeightPx > 0 {
		iw, ih := float64(*img.WidthPx), float64(*img.HeightPx)
		scale := contentWidth / iw
		if maxH := contentHeight * maxRatio; ih*scale > maxH {
			scale = maxH / ih
		}
		if scale > 1.0 {
			scale = 1.0 // never upscale an image past its intrinsic size
		}
		w, h = iw*scale, ih*scale
	}
	return w, h
}

func captionStyle() ir.ComputedTextStyle {
	return ir.ComputedTextStyle{
		Families:   []string{"serif"},
		Weight:     400,
		Italic:     true,
		SizePx:     12,
		LineHeight: 1.2,
		Role:       ir.BlockRoleFigureCaption,
	}
}
