package css

import (
	"bytes"
	"maps"
	"strconv"
	"strings"
	"unicode"

	parse "github.com/tdewolff/parse/v2"
	tcss "github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS text into a Stylesheet. A Parser is safe to reuse
// across calls to Parse but keeps no state between them.
type Parser struct {
	log *zap.Logger
}

// NewParser builds a CSS parser. A nil logger disables logging.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css")}
}

// Parse parses data as a single CSS source. source, when non-empty, is
// only used for debug logging.
func (p *Parser) Parse(data []byte, source string) *Stylesheet {
	sheet := &Stylesheet{}

	if source != "" {
		p.log.Debug("parsing stylesheet", zap.String("source", source), zap.Int("bytes", len(data)))
	}

	input := parse.NewInput(bytes.NewReader(data))
	parser := tcss.NewParser(input, false)

	var currentSelectors []string

	for {
		gt, _, tok := parser.Next()

		switch gt {
		case tcss.ErrorGrammar:
			return sheet

		case tcss.BeginAtRuleGrammar:
			switch string(tok) {
			case "@font-face":
				ff := p.parseFontFace(parser)
				if ff.Family != "" {
					sheet.FontFaces = append(sheet.FontFaces, ff)
				}
			default:
				p.skipAtRuleBlock(parser)
			}

		case tcss.AtRuleGrammar:
			// @import and other bodyless at-rules: not cascade-relevant here.

		case tcss.BeginRulesetGrammar, tcss.QualifiedRuleGrammar:
			currentSelectors = p.parseSelectors(tok, parser.Values())
		}

		if gt == tcss.BeginRulesetGrammar {
			props := p.parseDeclarations(parser)
			for _, selStr := range currentSelectors {
				sel := p.parseSelector(selStr, sheet)
				if !sel.IsSimple() {
					continue
				}
				propsCopy := make(map[string]Value, len(props))
				maps.Copy(propsCopy, props)
				sheet.Rules = append(sheet.Rules, Rule{Selector: sel, Properties: propsCopy})
			}
			currentSelectors = nil
		}
	}
}

func (p *Parser) parseSelectors(data []byte, values []tcss.Token) []string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}
	var out []string
	for s := range strings.SplitSeq(sb.String(), ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (p *Parser) parseDeclarations(parser *tcss.Parser) map[string]Value {
	props := make(map[string]Value)
	for {
		gt, _, data := parser.Next()
		switch gt {
		case tcss.ErrorGrammar, tcss.EndRulesetGrammar:
			return props
		case tcss.DeclarationGrammar:
			name := strings.ToLower(string(data))
			vals := parser.Values()
			if len(vals) > 0 {
				props[name] = parsePropertyValue(vals)
			}
		case tcss.CustomPropertyGrammar:
			continue
		}
	}
}

func parsePropertyValue(tokens []tcss.Token) Value {
	if len(tokens) == 0 {
		return Value{}
	}

	var rawParts []string
	for _, t := range tokens {
		if t.TokenType != tcss.WhitespaceToken {
			rawParts = append(rawParts, string(t.Data))
		} else if len(rawParts) > 0 {
			rawParts = append(rawParts, " ")
		}
	}
	raw := strings.TrimSpace(strings.Join(rawParts, ""))
	val := Value{Raw: raw}

	significant := tokens
	for len(significant) > 0 && significant[len(significant)-1].TokenType == tcss.WhitespaceToken {
		significant = significant[:len(significant)-1]
	}

	if len(significant) == 1 {
		t := significant[0]
		switch t.TokenType {
		case tcss.DimensionToken:
			val.Number, val.Unit = parseDimension(string(t.Data))
		case tcss.PercentageToken:
			val.Number, _ = strconv.ParseFloat(strings.TrimSuffix(string(t.Data), "%"), 64)
			val.Unit = "%"
		case tcss.NumberToken:
			val.Number, _ = strconv.ParseFloat(string(t.Data), 64)
		case tcss.IdentToken:
			val.Keyword = strings.ToLower(string(t.Data))
		case tcss.StringToken:
			val.Keyword = unquote(string(t.Data))
		case tcss.HashToken:
			val.Keyword = string(t.Data)
		}
		return val
	}

	val.Keyword = raw
	return val
}

func parseDimension(s string) (float64, string) {
	numEnd := 0
	for i, r := range s {
		if unicode.IsDigit(r) || r == '.' || r == '-' || r == '+' {
			numEnd = i + 1
		} else {
			break
		}
	}
	if numEnd == 0 {
		return 0, ""
	}
	num, _ := strconv.ParseFloat(s[:numEnd], 64)
	return num, strings.ToLower(s[numEnd:])
}

func (p *Parser) parseSelector(selStr string, sheet *Stylesheet) Selector {
	selStr = strings.TrimSpace(selStr)
	sel := Selector{Raw: selStr}

	if strings.ContainsAny(selStr, "+~>") {
		sheet.Warnings = append(sheet.Warnings, "unsupported combinator selector: "+selStr)
		return sel
	}
	if strings.Contains(selStr, "[") {
		sheet.Warnings = append(sheet.Warnings, "unsupported attribute selector: "+selStr)
		return sel
	}
	if strings.ContainsAny(selStr, " \t\n") {
		return p.parseDescendantSelector(selStr, sheet)
	}
	return p.parseSimpleSelector(selStr, sheet)
}

// parseDescendantSelector parses a space-separated chain such as
// "div p code" into a main simple selector (the rightmost part) plus an
// ordered list of required ancestor selectors, outermost first. Each
// ancestor part is kept distinct rather than collapsed into a single
// compound, so a three-or-more-part chain can require each ancestor to
// match a different, progressively nearer position in the DOM stack.
func (p *Parser) parseDescendantSelector(selStr string, sheet *Stylesheet) Selector {
	parts := strings.Fields(selStr)
	if len(parts) < 2 {
		return Selector{Raw: selStr}
	}

	mainSel := p.parseSimpleSelector(parts[len(parts)-1], sheet)
	if !mainSel.IsSimple() {
		return Selector{Raw: selStr}
	}

	sel := Selector{
		Raw:     selStr,
		Element: mainSel.Element,
		Class:   mainSel.Class,
		Pseudo:  mainSel.Pseudo,
	}
	for _, part := range parts[:len(parts)-1] {
		anc := p.parseSimpleSelector(part, sheet)
		if !anc.IsSimple() {
			return Selector{Raw: selStr}
		}
		sel.Ancestors = append(sel.Ancestors, anc)
	}
	return sel
}

func (p *Parser) parseSimpleSelector(selStr string, sheet *Stylesheet) Selector {
	selStr = strings.TrimSpace(selStr)
	sel := Selector{Raw: selStr}

	remaining := selStr
	if before, pseudo, found := strings.Cut(selStr, "::"); found {
		remaining = before
		switch strings.ToLower(pseudo) {
		case "before":
			sel.Pseudo = PseudoBefore
		case "after":
			sel.Pseudo = PseudoAfter
		default:
			sheet.Warnings = append(sheet.Warnings, "unsupported pseudo-element: "+selStr)
			return sel
		}
	} else if before, pseudo, found := strings.Cut(remaining, ":"); found {
		switch strings.ToLower(pseudo) {
		case "before":
			sel.Pseudo = PseudoBefore
			remaining = before
		case "after":
			sel.Pseudo = PseudoAfter
			remaining = before
		default:
			sheet.Warnings = append(sheet.Warnings, "unsupported pseudo-class: "+selStr)
			return sel
		}
	}

	if remaining == "" {
		return sel
	}
	if element, class, found := strings.Cut(remaining, "."); found {
		sel.Element = element
		sel.Class = class
	} else {
		sel.Element = remaining
	}
	return sel
}

func (p *Parser) skipAtRuleBlock(parser *tcss.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case tcss.ErrorGrammar:
			return
		case tcss.BeginAtRuleGrammar, tcss.BeginRulesetGrammar:
			depth++
		case tcss.EndAtRuleGrammar, tcss.EndRulesetGrammar:
			depth--
		}
	}
}

func (p *Parser) parseFontFace(parser *tcss.Parser) FontFace {
	var ff FontFace
	for {
		gt, _, data := parser.Next()
		switch gt {
		case tcss.ErrorGrammar, tcss.EndAtRuleGrammar:
			return ff
		case tcss.DeclarationGrammar:
			vals := parser.Values()
			if len(vals) == 0 {
				continue
			}
			var parts []string
			for _, v := range vals {
				if v.TokenType != tcss.WhitespaceToken {
					parts = append(parts, string(v.Data))
				}
			}
			valStr := strings.Join(parts, " ")
			switch strings.ToLower(string(data)) {
			case "font-family":
				ff.Family = unquote(valStr)
			case "src":
				ff.Src = valStr
			case "font-style":
				ff.Style = valStr
			case "font-weight":
				ff.Weight = valStr
			}
		}
	}
}
