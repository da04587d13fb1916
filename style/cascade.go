package style

import (
	"strconv"
	"strings"

	"github.com/rupor-github/mu-epub/ir"
	"github.com/rupor-github/mu-epub/style/css"
)

// frame is one entry of the cascade ancestor stack used for descendant
// selector matching. It only ever holds "counted" elements: once the
// nesting cap is reached, deeper elements stop being pushed so cascade
// matching and indentation silently flatten rather than error.
type frame struct {
	tag         string
	classes     []string
	inlineStyle string
}

func hasClass(classes []string, want string) bool {
	for _, c := range classes {
		if c == want {
			return true
		}
	}
	return false
}

func matchesSimple(sel css.Selector, tag string, classes []string) bool {
	if sel.Element != "" && sel.Element != "*" && sel.Element != tag {
		return false
	}
	if sel.Class != "" && !hasClass(classes, sel.Class) {
		return false
	}
	return true
}

// matches reports whether sel applies to an element with the given tag and
// classes, given its counted ancestor stack (nearest ancestor last).
func matches(sel css.Selector, tag string, classes []string, ancestors []frame) bool {
	if !matchesSimple(css.Selector{Element: sel.Element, Class: sel.Class}, tag, classes) {
		return false
	}
	return matchesAncestorChain(sel.Ancestors, ancestors)
}

// matchesAncestorChain walks a descendant selector's required ancestors
// nearest-first (right-to-left) against the element's ancestor stack.
// Each required ancestor must match somewhere above the position the
// previous one matched at; this is plain CSS descendant-combinator
// semantics ("div p code" needs a div somewhere above a p somewhere above
// the current element), and each step narrows the search window for the
// one before it.
func matchesAncestorChain(required []css.Selector, ancestors []frame) bool {
	if len(required) == 0 {
		return true
	}
	ceiling := len(ancestors)
	for i := len(required) - 1; i >= 0; i-- {
		pos := -1
		for j := ceiling - 1; j >= 0; j-- {
			if matchesSimple(required[i], ancestors[j].tag, ancestors[j].classes) {
				pos = j
				break
			}
		}
		if pos < 0 {
			return false
		}
		ceiling = pos
	}
	return true
}

// computedProperties folds every matching rule's declarations, in source
// order, so the last matching declaration wins; selector specificity is not
// considered.
func (s *Styler) computedProperties(tag string, classes []string, ancestors []frame) map[string]css.Value {
	props := make(map[string]css.Value)
	for _, r := range s.rules {
		if matches(r.Selector, tag, classes, ancestors) {
			for k, v := range r.Properties {
				props[k] = v
			}
		}
	}
	return props
}

// inlineProperties parses a `style="..."` attribute value by wrapping it as
// a throwaway ruleset and reusing the CSS parser's declaration handling.
func (s *Styler) inlineProperties(styleAttr string) map[string]css.Value {
	sheet := s.parser.Parse([]byte("x{"+styleAttr+"}"), "inline")
	if len(sheet.Rules) == 0 {
		return nil
	}
	return sheet.Rules[0].Properties
}

func familyStack(raw string, fallback string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, `"'`)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		out = []string{fallback}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func parseWeight(v css.Value) (int, bool) {
	switch v.Keyword {
	case "bold":
		return 700, true
	case "normal":
		return 400, true
	case "":
		if v.Unit == "" && v.Raw != "" {
			if n, err := strconv.Atoi(v.Raw); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// resolveStyle folds cascaded + inline properties, role defaults, and
// bold/italic tag inference into a clamped ComputedTextStyle.
func (s *Styler) resolveStyle(tag string, classes []string, ancestors []frame, inlineStyleAttr string, role ir.BlockRole, headingLevel int, boldDepth, italicDepth int) ir.ComputedTextStyle {
	props := s.computedProperties(tag, classes, ancestors)
	if inlineStyleAttr != "" {
		for k, v := range s.inlineProperties(inlineStyleAttr) {
			props[k] = v // inline wins, applied last
		}
	}

	sizePx := baseFontSizePx
	if v, ok := props["font-size"]; ok {
		switch v.Unit {
		case "px":
			sizePx = v.Number
		case "em":
			sizePx = v.Number * baseFontSizePx
		case "pt":
			sizePx = v.Number * 96.0 / 72.0
		}
	}
	switch {
	case role == ir.BlockRoleHeading && headingLevel <= 2:
		sizePx *= 1.25
	case role == ir.BlockRoleFigureCaption:
		sizePx *= 0.90
	}
	sizePx *= s.style.TextScale
	sizePx = clamp(sizePx, s.style.MinFontSizePx, s.style.MaxFontSizePx)

	lineHeight := 1.2
	if v, ok := props["line-height"]; ok {
		switch {
		case v.Unit == "px":
			lineHeight = v.Number / sizePx
		case v.Unit == "" && v.Raw != "":
			lineHeight = v.Number
		}
	}
	lineHeight = clamp(lineHeight, s.style.MinLineHeight, s.style.MaxLineHeight)

	families := []string{s.style.DefaultFamily}
	if v, ok := props["font-family"]; ok {
		families = familyStack(v.Raw, s.style.DefaultFamily)
	}

	letterSpacing := 0.0
	if v, ok := props["letter-spacing"]; ok && v.Unit == "px" {
		letterSpacing = v.Number
	}

	weight := 400
	if v, ok := props["font-weight"]; ok {
		if w, ok := parseWeight(v); ok {
			weight = w
		}
	}
	if boldDepth > 0 && weight < 700 {
		weight = 700
	}

	italic := false
	if v, ok := props["font-style"]; ok {
		italic = v.Keyword == "italic" || v.Keyword == "oblique"
	}
	if italicDepth > 0 {
		italic = true
	}

	return ir.ComputedTextStyle{
		Families:      families,
		Weight:        weight,
		Italic:        italic,
		SizePx:        sizePx,
		LineHeight:    lineHeight,
		LetterSpacing: letterSpacing,
		Role:          role,
		HeadingLevel:  headingLevel,
	}
}
