// Package measure provides the pluggable text-measurement capability the
// layout engine uses to make line-breaking decisions, plus a default
// heuristic implementation cheap enough to run without glyph data.
package measure

import "github.com/rupor-github/mu-epub/ir"

// TextMeasurer estimates the pixel width of a run of text in a given
// style. Measure is used for line-fit decisions; Conservative must return
// an upper bound on Measure. The layout engine records the Conservative
// width of every word but makes no line-break decision from it.
type TextMeasurer interface {
	Measure(text string, style ir.ComputedTextStyle) float64
	Conservative(text string, style ir.ComputedTextStyle) float64
}
