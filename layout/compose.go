package layout

import (
	"strings"

	"github.com/rupor-github/mu-epub/ir"
)

// maxWordDisplayLenForBuffering caps how long a single token may be and
// still qualify for paragraph buffering; anything longer almost certainly
// needs a mid-word hyphenation decision, which the direct-append path's
// break policies already handle per word as it is composed.
const maxWordDisplayLenForBuffering = 24

func (s *Session) pushRun(r ir.Run) error {
	for _, raw := range splitWords(r.Text) {
		if err := s.pushWord(s.newWordResolved(raw, r.Style, r.FontID, r.ResolvedFamily)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) pushWord(w word) error {
	if err := s.ensureKeepWithNextRoom(w.style); err != nil {
		return err
	}
	if s.eligibleForBuffering(w) {
		if err := s.flushDirectLine(true); err != nil {
			return err
		}
		s.buf = append(s.buf, w)
		s.bufChars += len([]rune(w.display))
		if len(s.buf) >= maxBufferedParagraphWords || s.bufChars >= maxBufferedParagraphChars {
			return s.flushParagraphBuffer()
		}
		return nil
	}
	if err := s.flushParagraphBuffer(); err != nil {
		return err
	}
	return s.appendDirect(w)
}

// ensureKeepWithNextRoom keeps a heading from starting so close to the
// bottom of the page that fewer than keep_with_next_lines lines of
// trailing body text could follow it there; it runs once per heading
// block, the first time that block's style is known.
func (s *Session) ensureKeepWithNextRoom(style ir.ComputedTextStyle) error {
	if s.role != ir.BlockRoleHeading || s.keepWithNextChecked {
		return nil
	}
	s.keepWithNextChecked = true
	lineHeight := style.SizePx * style.LineHeight
	required := lineHeight * float64(1+s.opts.KeepWithNextLines)
	if s.contentBottom-s.y < required {
		return s.pageBreak()
	}
	return nil
}

func (s *Session) eligibleForBuffering(w word) bool {
	if !s.opts.JustifyEnable {
		return false
	}
	if s.role != ir.BlockRoleParagraph && s.role != ir.BlockRoleBody {
		return false
	}
	if strings.ContainsRune(w.raw, softHyphen) {
		return false
	}
	if len([]rune(w.display)) > maxWordDisplayLenForBuffering {
		return false
	}
	return true
}

// flushParagraphBuffer runs the buffered words through the DP optimizer
// and emits the resulting lines, applying the widow/orphan guard across
// the whole paragraph at once.
func (s *Session) flushParagraphBuffer() error {
	if len(s.buf) == 0 {
		return nil
	}
	words := s.buf
	s.buf = nil
	s.bufChars = 0

	inset := s.leftInset()
	available := s.contentWidth - inset - fitGuard(words[0].style)
	firstAvailable := available
	if !s.firstLineDone {
		firstAvailable -= s.firstLineIndent()
	}

	lines := s.optimizeParagraph(words, available, firstAvailable)
	if err := s.guardOrphan(lines, words[0].style); err != nil {
		return err
	}
	for _, ln := range lines {
		if err := s.placeLine(ln.words, s.justifyFor(ln)); err != nil {
			return err
		}
	}
	return nil
}

// justifyFor decides the candidate justify mode for a DP-broken line,
// based only on what the optimizer already knows (role, position, word
// count). placeLine applies the remaining spec gates — minimum fill
// ratio, a trailing terminal-punctuation downgrade, and the actual extra-
// width cap — once the line's real available/natural widths are in hand.
func (s *Session) justifyFor(ln dpLine) ir.JustifyKind {
	if ln.isLast || !s.opts.JustifyEnable {
		return ir.JustifyNone
	}
	if s.role != ir.BlockRoleBody && s.role != ir.BlockRoleParagraph {
		return ir.JustifyNone
	}
	if len(ln.words) < s.opts.JustifyMinWords {
		return ir.JustifyNone
	}
	return ir.JustifyInterWord
}

// guardOrphan forces an early page break when only a handful of this
// paragraph's lines would fit on the remainder of the current page,
// keeping the whole paragraph together on the next page instead.
func (s *Session) guardOrphan(lines []dpLine, style ir.ComputedTextStyle) error {
	if len(lines) <= s.opts.WidowOrphanMinLines {
		return nil
	}
	lineHeight := style.SizePx * style.LineHeight
	remaining := s.contentBottom - s.y
	fit := int(remaining / lineHeight)
	if fit > 0 && fit < s.opts.WidowOrphanMinLines && fit < len(lines) {
		return s.pageBreak()
	}
	return nil
}

// currentLineAvailable reports the usable width left on the line under
// composition. trailing is the display text of the word whose fit is
// being tested; when it ends in terminal punctuation it earns the
// spec's hanging-punctuation overflow credit on top of the plain
// fitGuard safety band.
func (s *Session) currentLineAvailable(style ir.ComputedTextStyle, trailing string) float64 {
	available := s.contentWidth - s.leftInset() - fitGuard(style) + hangingPunctCredit(style, trailing)
	if !s.firstLineDone && len(s.directLine) == 0 {
		available -= s.firstLineIndent()
	}
	return available
}

// appendDirect composes one word at a time outside the paragraph
// optimizer (headings, list items, non-buffering-eligible paragraph
// text), applying the oversized-word break policies inline as space runs
// out and falling back to a plain line break otherwise.
func (s *Session) appendDirect(w word) error {
	for {
		available := s.currentLineAvailable(w.style, w.display)

		if len(s.directLine) == 0 {
			if w.width <= available {
				s.directLine = append(s.directLine, w)
				return nil
			}
			head, rest, ok := s.splitOversizedWord(w, available)
			if !ok {
				s.directLine = append(s.directLine, w)
				return nil
			}
			s.directLine = append(s.directLine, head)
			if err := s.flushDirectLine(false); err != nil {
				return err
			}
			w = rest
			continue
		}

		sep := spaceWidth(s.measurer, w.style)
		curWidth := naturalWidth(s.directLine, sep)
		if curWidth+sep+w.width <= available {
			s.directLine = append(s.directLine, w)
			return nil
		}
		if err := s.flushDirectLine(false); err != nil {
			return err
		}
	}
}

// flushDirectLine emits whatever has accumulated in the direct-append
// line buffer. hardBreak is true for an explicit line break, a block end,
// an image, or a switch to the paragraph buffer (never justified); it is
// false mid-block only when a line filled up under ordinary word
// composition.
func (s *Session) flushDirectLine(hardBreak bool) error {
	if len(s.directLine) == 0 {
		return nil
	}
	words := s.directLine
	s.directLine = nil
	justify := ir.JustifyNone
	if !hardBreak && s.opts.JustifyEnable &&
		(s.role == ir.BlockRoleBody || s.role == ir.BlockRoleParagraph) &&
		len(words) >= s.opts.JustifyMinWords {
		justify = ir.JustifyInterWord
	}
	return s.placeLine(words, justify)
}
