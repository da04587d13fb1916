package layout

import (
	"strings"
)

// splitOversizedWord tries to carve a prefix off w that fits within
// available, in the break-policy order the composer uses everywhere a
// single word cannot fit on its own line:
//
//	(a) a soft hyphen already present in the source text
//	(b) automatic language hyphenation
//
// It returns the fitting head (carrying a trailing visible hyphen) and the
// remaining tail, or ok=false when neither policy yields a fit (the word
// is left to overflow its line, forced, on its own).
func (s *Session) splitOversizedWord(w word, available float64) (head, rest word, ok bool) {
	if w.width <= available {
		return w, word{}, false
	}

	if h, r, ok := s.trySoftHyphenSplit(w, available); ok {
		return h, r, true
	}
	if h, r, ok := s.tryAutoHyphenSplit(w, available); ok {
		return h, r, true
	}
	return word{}, word{}, false
}

func (s *Session) trySoftHyphenSplit(w word, available float64) (head, rest word, ok bool) {
	if !s.opts.SoftHyphenPolicy && !s.opts.Hyphenation.SoftHyphenPolicy {
		return word{}, word{}, false
	}
	if !strings.ContainsRune(w.raw, softHyphen) {
		return word{}, word{}, false
	}
	parts := strings.Split(w.raw, string(softHyphen))
	best := -1
	prefix := ""
	for i := 0; i < len(parts)-1; i++ {
		if i > 0 {
			prefix += parts[i]
		} else {
			prefix = parts[0]
		}
		candidate := prefix + "-"
		if s.measurer.Measure(candidate, w.style) <= available {
			best = i
		}
	}
	if best < 0 {
		return word{}, word{}, false
	}
	headText := strings.Join(parts[:best+1], "") + "-"
	restText := strings.Join(parts[best+1:], "")
	if restText == "" {
		return word{}, word{}, false
	}
	return s.newWordResolved(headText, w.style, w.fontID, w.resolvedFamily),
		s.newWordResolved(restText, w.style, w.fontID, w.resolvedFamily), true
}

// tryAutoHyphenSplit applies automatic hyphenation only for English text;
// other languages have no hyphenation dictionary wired and are left to
// overflow rather than break at an arbitrary, possibly wrong, position.
func (s *Session) tryAutoHyphenSplit(w word, available float64) (head, rest word, ok bool) {
	if !isEnglish(s.hyphLang) {
		return word{}, word{}, false
	}
	runes := []rune(w.display)
	positions := hyphenCandidates(w.display)
	if len(positions) == 0 {
		return word{}, word{}, false
	}
	best := -1
	for _, pos := range positions {
		candidate := string(runes[:pos]) + "-"
		if s.measurer.Measure(candidate, w.style) <= available {
			best = pos
		}
	}
	if best < 0 {
		return word{}, word{}, false
	}
	headText := string(runes[:best]) + "-"
	restText := string(runes[best:])
	return s.newWordResolved(headText, w.style, w.fontID, w.resolvedFamily),
		s.newWordResolved(restText, w.style, w.fontID, w.resolvedFamily), true
}

// preprocessOversizedWords splits any word wider than available into
// hyphenated fragments ahead of line composition, so neither the direct
// append path nor the paragraph optimizer has to special-case mid-word
// splits themselves.
func (s *Session) preprocessOversizedWords(words []word, available float64) []word {
	out := make([]word, 0, len(words))
	for _, w := range words {
		for w.width > available {
			head, rest, ok := s.splitOversizedWord(w, available)
			if !ok {
				break
			}
			out = append(out, head)
			w = rest
		}
		out = append(out, w)
	}
	return out
}
