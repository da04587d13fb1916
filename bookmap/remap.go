package bookmap

import "github.com/rupor-github/mu-epub/ir"

// RemapPageIndex maps oldIndex (into oldMetrics) onto the closest index
// into newMetrics, preferring a page in the same chapter with the
// nearest chapter progress; ties are broken to the lower new index. When
// the chapter is absent from newMetrics entirely, the old page's
// position within its whole sequence is preserved proportionally.
func RemapPageIndex(oldMetrics []ir.PageMetrics, oldIndex int, newMetrics []ir.PageMetrics) (int, bool) {
	if oldIndex < 0 || oldIndex >= len(oldMetrics) || len(newMetrics) == 0 {
		return 0, false
	}
	target := oldMetrics[oldIndex]

	best := -1
	bestDiff := 0.0
	for i, nm := range newMetrics {
		if nm.ChapterIndex != target.ChapterIndex {
			continue
		}
		diff := nm.ProgressChapter - target.ProgressChapter
		if diff < 0 {
			diff = -diff
		}
		if best < 0 || diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if best >= 0 {
		return best, true
	}

	denom := len(oldMetrics) - 1
	proportion := 0.0
	if denom > 0 {
		proportion = float64(oldIndex) / float64(denom)
	}
	fallback := int(proportion*float64(len(newMetrics)-1) + 0.5)
	if fallback < 0 {
		fallback = 0
	} else if fallback > len(newMetrics)-1 {
		fallback = len(newMetrics) - 1
	}
	return fallback, true
}
