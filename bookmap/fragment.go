package bookmap

import "bytes"

// FragmentProgress estimates a fragment's position within a chapter
// document by the earliest byte offset of any id/name attribute spelling
// that names it, returning offset/(len-1) clamped to [0,1]. It reports
// ok=false when the fragment is empty or none of the spellings appear.
func FragmentProgress(xhtml []byte, fragment string) (float64, bool) {
	if fragment == "" || len(xhtml) == 0 {
		return 0, false
	}
	needles := [][]byte{
		[]byte(`id="` + fragment + `"`),
		[]byte(`id='` + fragment + `'`),
		[]byte(`name="` + fragment + `"`),
		[]byte(`name='` + fragment + `'`),
	}
	best := -1
	for _, n := range needles {
		if i := bytes.Index(xhtml, n); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	denom := len(xhtml) - 1
	if denom <= 0 {
		return 0, true
	}
	p := float64(best) / float64(denom)
	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	return p, true
}
