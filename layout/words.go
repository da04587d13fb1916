package layout

import (
	"strings"
	"unicode/utf8"

	"github.com/rupor-github/mu-epub/ir"
	"github.com/rupor-github/mu-epub/measure"
)

const softHyphen = '­'

// maxBufferedParagraphWords/Chars bound how long the paragraph-buffering
// path may grow before it must flush through the optimizer, keeping a
// single buffered flush bounded even for pathologically long paragraphs.
const (
	maxBufferedParagraphWords = 64
	maxBufferedParagraphChars = 512
)

// word is one space-delimited token queued for either the direct-append
// path or the paragraph-buffering optimizer path.
type word struct {
	display        string // soft hyphens stripped, what actually gets drawn
	raw            string // original form, used to test soft-hyphen eligibility
	style          ir.ComputedTextStyle
	fontID         int
	resolvedFamily string
	width          float64
	conservative   float64
}

func stripSoftHyphens(s string) string {
	if !strings.ContainsRune(s, softHyphen) {
		return s
	}
	return strings.ReplaceAll(s, string(softHyphen), "")
}

func (s *Session) newWord(raw string, style ir.ComputedTextStyle) word {
	return s.newWordResolved(raw, style, 0, "")
}

func (s *Session) newWordResolved(raw string, style ir.ComputedTextStyle, fontID int, resolvedFamily string) word {
	display := stripSoftHyphens(raw)
	return word{
		display:        display,
		raw:            raw,
		style:          style,
		fontID:         fontID,
		resolvedFamily: resolvedFamily,
		width:          s.measurer.Measure(display, style),
		conservative:   s.measurer.Conservative(display, style),
	}
}

// splitWords breaks a collapsed-whitespace run into individual tokens.
func splitWords(text string) []string {
	return strings.Fields(text)
}

var hangingPunct = map[rune]bool{
	'.': true, ',': true, ';': true, ':': true, '!': true, '?': true,
	'"': true, '\'': true, ')': true, ']': true, '}': true, '»': true,
}

func hasHangingPunct(s string) bool {
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return hangingPunct[r]
}

// fitGuard is a small style-dependent right-edge safety band protecting
// against glyph overshoot beyond the measured width.
func fitGuard(style ir.ComputedTextStyle) float64 {
	return style.SizePx * 0.02
}

// hangingPunctCredit is the additional right-edge overflow tolerance
// granted to a fit check when the line's trailing word ends in terminal
// punctuation: a dangling period or comma reads as though it barely
// overflows, so it earns extra room beyond the plain fitGuard band.
func hangingPunctCredit(style ir.ComputedTextStyle, trailing string) float64 {
	if !hasHangingPunct(trailing) {
		return 0
	}
	return style.SizePx * 0.18
}

// naturalWidth is the unjustified width of a word sequence: word widths
// plus one natural space between each pair.
func naturalWidth(words []word, spaceW float64) float64 {
	if len(words) == 0 {
		return 0
	}
	total := -spaceW
	for _, w := range words {
		total += w.width + spaceW
	}
	return total
}

func spaceWidth(m textMeasurer, style ir.ComputedTextStyle) float64 {
	return m.Measure(" ", style)
}

// textMeasurer is an alias for measure.TextMeasurer, kept local so the
// rest of this package can refer to it without repeating the import.
type textMeasurer = measure.TextMeasurer
