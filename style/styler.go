// Package style parses and cascades stylesheets, tokenizes chapter XHTML,
// and streams styled items (structural events, text runs, image refs) to
// the layout engine. It never measures text.
package style

import (
	"go.uber.org/zap"

	"github.com/rupor-github/mu-epub/config"
	"github.com/rupor-github/mu-epub/errs"
	"github.com/rupor-github/mu-epub/style/css"
)

// baseFontSizePx is the reference size `em` units resolve against before
// role defaults and text_scale are applied.
const baseFontSizePx = 16.0

// StylesheetSource is one CSS source pushed into the styler, identified by
// its chapter-relative href for error reporting.
type StylesheetSource struct {
	Href string
	Data []byte
}

// Styler holds cascaded stylesheet state for a single chapter. Call Reset
// between chapters; the font-face list and rule set do not otherwise carry
// over.
type Styler struct {
	style  config.StyleOptions
	budget config.MemoryBudget
	log    *zap.Logger
	parser *css.Parser

	rules     []css.Rule
	fontFaces []css.FontFace
}

// NewStyler builds a styler bound to the given cascade/sizing options and
// memory ceilings. A nil logger disables logging.
func NewStyler(style config.StyleOptions, budget config.MemoryBudget, log *zap.Logger) *Styler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Styler{
		style:  style,
		budget: budget,
		log:    log.Named("style"),
		parser: css.NewParser(log),
	}
}

// Reset clears per-chapter cascade state. Safe to call before processing
// has begun.
func (s *Styler) Reset() {
	s.rules = nil
	s.fontFaces = nil
}

// FontFaces returns the @font-face declarations discovered across every
// stylesheet loaded since the last Reset.
func (s *Styler) FontFaces() []css.FontFace { return s.fontFaces }

// LoadStylesheets parses each source in order and merges its rules into
// the cascade. Rule order is preserved across sources so later sources win
// ties, matching external-stylesheet cascade order.
func (s *Styler) LoadStylesheets(sources []StylesheetSource) error {
	var totalBytes int64
	selectorCount := 0

	for _, src := range sources {
		totalBytes += int64(len(src.Data))
		if totalBytes > s.budget.MaxCSSBytes {
			return errs.New(errs.PhaseStyle, errs.CodeStyleCSSTooLarge, "stylesheet bytes exceed budget").
				WithPath(src.Href).
				WithLimit("max_css_bytes", totalBytes, s.budget.MaxCSSBytes).
				WithSource(errs.Source{Source: src.Href})
		}

		sheet := s.parser.Parse(src.Data, src.Href)

		selectorCount += len(sheet.Rules)
		if selectorCount > s.style.MaxSelectors {
			return errs.New(errs.PhaseStyle, errs.CodeStyleSelectorLimit, "selector count exceeds budget").
				WithPath(src.Href).
				WithLimit("max_selectors", int64(selectorCount), int64(s.style.MaxSelectors)).
				WithSource(errs.Source{Source: src.Href, SelectorIndex: selectorCount - 1})
		}

		s.rules = append(s.rules, sheet.Rules...)
		s.fontFaces = append(s.fontFaces, sheet.FontFaces...)
	}
	return nil
}
