package layout

import "math"

// dpLine is one output line from the paragraph optimizer: the words it
// holds, plus whether it is the paragraph's final line (never justified).
type dpLine struct {
	words  []word
	isLast bool
}

// optimizeParagraph breaks a buffered paragraph's words into lines using a
// left-to-right dynamic program minimizing accumulated line badness,
// approximating the classic Knuth-Plass line breaker without its fitness
// classes or look-ahead demerits. available is the steady-state content
// width; firstAvailable is the (narrower, indented) width of the
// paragraph's first line.
func (s *Session) optimizeParagraph(words []word, available, firstAvailable float64) []dpLine {
	if len(words) == 0 {
		return nil
	}
	words = s.preprocessOversizedWords(words, available)
	n := len(words)
	spaceW := spaceWidth(s.measurer, words[0].style)

	const inf = 1e18
	dp := make([]float64, n+1)
	prev := make([]int, n+1)
	for i := 1; i <= n; i++ {
		dp[i] = inf
	}

	lineAvail := func(start int) float64 {
		if start == 0 {
			return firstAvailable
		}
		return available
	}

	for i := 1; i <= n; i++ {
		for j := i - 1; j >= 0; j-- {
			avail := lineAvail(j)
			seg := words[j:i]
			natural := naturalWidth(seg, spaceW)
			if natural > avail*1.6 && i-j > 1 {
				// this segment is hopelessly oversized for any single line;
				// shorter starting points j only get worse, stop searching.
				break
			}
			cost := dp[j] + s.lineCost(seg, avail, i == n, j > 0)
			if cost < dp[i] {
				dp[i] = cost
				prev[i] = j
			}
		}
	}

	var breaks []int
	for i := n; i > 0; i = prev[i] {
		breaks = append([]int{i}, breaks...)
	}
	lines := make([]dpLine, 0, len(breaks))
	start := 0
	for _, end := range breaks {
		lines = append(lines, dpLine{words: words[start:end], isLast: end == n})
		start = end
	}
	return lines
}

// lineCost scores one candidate line for the DP breaker. afterFirst is
// true when this candidate does not start at the paragraph's first
// word, used for the leading-short-word penalty below. The trailing
// word's hanging-punctuation credit widens the effective available
// width the same way it does for the direct-append fit checks, so a
// line ending in "..." or similar is not penalized for the overflow it
// is allowed to carry.
func (s *Session) lineCost(words []word, avail float64, isLast, afterFirst bool) float64 {
	spaceW := spaceWidth(s.measurer, words[0].style)
	natural := naturalWidth(words, spaceW)
	trailing := words[len(words)-1].display
	availEff := avail + hangingPunctCredit(words[0].style, trailing)

	slack := availEff - natural
	if slack < 0 {
		return 1e6 + (-slack)*1e3
	}
	if availEff <= 0 {
		return 1e6
	}
	fill := natural / availEff

	if isLast {
		// a short final line is expected and unpenalized by justification;
		// the only cost is how ragged its fill leaves the line.
		rag := 1 - fill
		if rag < 0 {
			rag = 0
		}
		return math.Round(rag * rag * 120)
	}

	ratio := slack / availEff
	cost := math.Round(ratio * ratio * ratio * 2400)

	if fill < s.opts.MinFillRatio {
		cost += (s.opts.MinFillRatio - fill) * 8000
	}
	if len(words) == 1 {
		cost += 3000
	}
	if len([]rune(trailing)) <= 2 {
		cost += 4200
	}
	if afterFirst && len([]rune(words[0].display)) <= 2 {
		cost += 1000
	}
	return cost
}
