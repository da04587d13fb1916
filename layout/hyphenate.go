package layout

import "strings"

// suffixBoundaries are common English morphological endings that make a
// reasonable discretionary break point just before the suffix begins,
// ordered longest-first so the longest matching suffix wins.
var suffixBoundaries = []string{
	"ingly", "edly", "ally", "tion", "sion", "ment", "ness", "less",
	"able", "ible", "ing", "ed", "ly",
}

var vowels = map[rune]bool{
	'a': true, 'e': true, 'i': true, 'o': true, 'u': true, 'y': true,
}

func isVowel(r rune) bool { return vowels[r] }

// exceptionTable is the curated hyphenation override table: an exact
// lowercased word maps to its hyphenated spelling. Algorithmic generation
// gets English morphology wrong often enough (e.g. "present" the noun vs.
// the verb) that a handful of overrides earn their keep.
var exceptionTable = newTrie()

func init() {
	for word, hyphenated := range map[string]string{
		"associate":     "as-so-ci-ate",
		"declination":   "dec-li-na-tion",
		"obligatory":    "oblig-a-to-ry",
		"philanthropic": "phil-an-throp-ic",
		"present":       "pres-ent",
		"project":       "proj-ect",
		"reciprocity":   "rec-i-proc-i-ty",
		"recognizance":  "re-cog-ni-zance",
		"reformation":   "ref-or-ma-tion",
		"retribution":   "ret-ri-bu-tion",
		"table":         "ta-ble",
	} {
		exceptionTable.addValue(word, hyphenated)
	}
}

// isEnglish reports whether a BCP-47-ish language tag denotes English
// ("en", "en-US", "en_GB", case-insensitive).
func isEnglish(lang string) bool {
	lang = strings.ToLower(strings.TrimSpace(lang))
	return lang == "en" || strings.HasPrefix(lang, "en-") || strings.HasPrefix(lang, "en_")
}

// hyphenCandidates returns rune-index break points for word (a single,
// already-lowercase-insensitive-compared token stripped of punctuation),
// each leaving at least 3 runes on both sides of the break. Candidates
// sourced from the exception table take priority; callers should prefer
// them when present. Positions are counts of runes preceding the break
// (word[:pos] is the head that would carry a trailing hyphen).
func hyphenCandidates(word string) []int {
	runes := []rune(strings.ToLower(word))
	n := len(runes)
	if n < 6 {
		return nil
	}

	if hyphenated, ok := exceptionTable.getValue(string(runes)); ok {
		return breaksFromHyphenatedForm(hyphenated, n)
	}

	var positions []int
	seen := make(map[int]bool)
	add := func(pos int) {
		if pos >= 3 && pos <= n-3 && !seen[pos] {
			seen[pos] = true
			positions = append(positions, pos)
		}
	}

	for _, suf := range suffixBoundaries {
		sr := []rune(suf)
		if n > len(sr) && strings.HasSuffix(string(runes), suf) {
			add(n - len(sr))
		}
	}

	for i := 1; i < n-1; i++ {
		if isVowel(runes[i-1]) && !isVowel(runes[i]) && i+1 < n && isVowel(runes[i+1]) {
			add(i + 1)
		}
	}

	sortInts(positions)
	return positions
}

// breaksFromHyphenatedForm converts a dash-marked exception spelling
// ("proj-ect") into rune-index positions, guarding against a stale
// exception entry whose letter count has drifted from n.
func breaksFromHyphenatedForm(hyphenated string, n int) []int {
	var positions []int
	pos := 0
	for _, part := range strings.Split(hyphenated, "-") {
		pos += len([]rune(part))
		if pos >= 3 && pos <= n-3 {
			positions = append(positions, pos)
		}
	}
	return positions
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
