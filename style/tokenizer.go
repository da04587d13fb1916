package style

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/rupor-github/mu-epub/errs"
	"github.com/rupor-github/mu-epub/ir"
)

var skipSubtreeTags = map[string]bool{
	"script": true, "style": true, "head": true, "noscript": true,
}

var preformattedTags = map[string]bool{
	"pre": true, "code": true, "kbd": true, "samp": true, "textarea": true,
}

// elemCtx is one entry of the live tag-nesting stack used for skip-subtree
// and whitespace-preservation bookkeeping. Unlike frame, it is never capped
// by max_nesting: those behaviors must stay correct regardless of how deep
// the cascade-matching stack is allowed to grow.
type elemCtx struct {
	tag string
}

func localName(tag string) string {
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

func classAttr(attrs []html.Attribute) []string {
	for _, a := range attrs {
		if a.Key == "class" {
			return strings.Fields(a.Val)
		}
	}
	return nil
}

func attrVal(attrs []html.Attribute, key string) (string, bool) {
	for _, a := range attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func headingLevel(tag string) (int, bool) {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0'), true
	}
	return 0, false
}

// StyleChapterBytesWith tokenizes html, walking the element stack, and
// streams StyledItems to onItem in document order. The first error from
// onItem or from tokenization aborts the chapter.
func (s *Styler) StyleChapterBytesWith(htmlBytes []byte, onItem func(ir.StyledItem) error) error {
	z := html.NewTokenizer(strings.NewReader(string(htmlBytes)))

	var fullStack []elemCtx
	var cascadeStack []frame
	var offset int

	boldDepth, italicDepth := 0, 0
	skipDepth := 0
	var skipTag string

	var curRole ir.BlockRole = ir.BlockRoleBody
	headingLvl := 0
	cellIndexInRow := -1 // -1 when not inside a <tr>

	emit := func(item ir.StyledItem) error { return onItem(item) }

	isPreformatted := func() bool {
		for _, e := range fullStack {
			if preformattedTags[e.tag] {
				return true
			}
		}
		return false
	}

	inlineStyleFor := func(attrs []html.Attribute) (string, error) {
		v, ok := attrVal(attrs, "style")
		if !ok || v == "" {
			return "", nil
		}
		if int64(len(v)) > s.budget.MaxInlineStyleBytes {
			return "", errs.New(errs.PhaseStyle, errs.CodeStyleInlineBytesLimit, "inline style exceeds budget").
				WithLimit("max_inline_style_bytes", int64(len(v)), s.budget.MaxInlineStyleBytes)
		}
		return v, nil
	}

	emitRun := func(text string, tag string, classes []string, inlineStyle string) error {
		computed := s.resolveStyle(tag, classes, cascadeStack, inlineStyle, curRole, headingLvl, boldDepth, italicDepth)
		return emit(ir.ItemRun(ir.Run{Text: text, Style: computed}))
	}

	for {
		tt := z.Next()
		raw := z.Raw()
		offset += len(raw)

		switch tt {
		case html.ErrorToken:
			if z.Err().Error() == "EOF" {
				return nil
			}
			return errs.Wrap(errs.PhaseStyle, errs.CodeStyleTokenizeError, "xhtml tokenize error", z.Err()).
				WithSource(errs.Source{TokenOffset: offset})

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := string(z.Text())
			if !isPreformatted() {
				text = collapseWhitespace(text)
			}
			if text == "" {
				continue
			}
			tag, classes, inlineStyle := "", []string(nil), ""
			if len(fullStack) > 0 {
				tag = fullStack[len(fullStack)-1].tag
				if len(cascadeStack) > 0 {
					top := cascadeStack[len(cascadeStack)-1]
					classes = top.classes
					inlineStyle = top.inlineStyle
				}
			}
			if err := emitRun(text, tag, classes, inlineStyle); err != nil {
				return err
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			tag := localName(strings.ToLower(tok.Data))

			if skipDepth > 0 {
				if tag == skipTag && tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if skipSubtreeTags[tag] {
				if tt == html.SelfClosingTagToken {
					continue
				}
				skipDepth = 1
				skipTag = tag
				continue
			}

			classes := classAttr(tok.Attr)
			inlineStyle, err := inlineStyleFor(tok.Attr)
			if err != nil {
				return err
			}
			fullStack = append(fullStack, elemCtx{tag: tag})
			if len(cascadeStack) < s.style.MaxNesting {
				cascadeStack = append(cascadeStack, frame{tag: tag, classes: classes, inlineStyle: inlineStyle})
			}

			switch tag {
			case "strong", "b":
				boldDepth++
			case "em", "i":
				italicDepth++
			case "p", "div":
				curRole = ir.BlockRoleParagraph
				if err := emit(ir.ItemEvent(ir.EventParagraphStart, 0)); err != nil {
					return err
				}
			case "li":
				curRole = ir.BlockRoleListItem
				if err := emit(ir.ItemEvent(ir.EventListItemStart, 0)); err != nil {
					return err
				}
			case "figcaption":
				curRole = ir.BlockRoleFigureCaption
			case "pre":
				curRole = ir.BlockRolePreformatted
			case "tr":
				curRole = ir.BlockRoleParagraph
				cellIndexInRow = 0
				if err := emit(ir.ItemEvent(ir.EventParagraphStart, 0)); err != nil {
					return err
				}
			case "td", "th":
				if cellIndexInRow > 0 {
					if err := emitRun(" | ", tag, classes, inlineStyle); err != nil {
						return err
					}
				}
				if cellIndexInRow >= 0 {
					cellIndexInRow++
				}
			case "br":
				if err := emit(ir.ItemEvent(ir.EventLineBreak, 0)); err != nil {
					return err
				}
			}

			if n, ok := headingLevel(tag); ok {
				curRole = ir.BlockRoleHeading
				headingLvl = n
				if err := emit(ir.ItemEvent(ir.EventHeadingStart, n)); err != nil {
					return err
				}
			}

			if tag == "img" {
				if err := s.emitImage(emit, tok.Attr, inFigure(fullStack)); err != nil {
					return err
				}
			}
			if tag == "image" {
				if href, ok := attrVal(tok.Attr, "xlink:href"); ok {
					if err := s.emitImage(emit, append(tok.Attr, html.Attribute{Key: "src", Val: href}), inFigure(fullStack)); err != nil {
						return err
					}
				}
			}

			if tt == html.SelfClosingTagToken {
				popTag(&fullStack, &cascadeStack)
			}

		case html.EndTagToken:
			tag := localName(strings.ToLower(z.Token().Data))

			if skipDepth > 0 {
				if tag == skipTag {
					skipDepth--
				}
				continue
			}

			switch tag {
			case "strong", "b":
				if boldDepth > 0 {
					boldDepth--
				}
			case "em", "i":
				if italicDepth > 0 {
					italicDepth--
				}
			case "p", "div":
				if err := emit(ir.ItemEvent(ir.EventParagraphEnd, 0)); err != nil {
					return err
				}
				curRole = ir.BlockRoleBody
			case "li":
				if err := emit(ir.ItemEvent(ir.EventListItemEnd, 0)); err != nil {
					return err
				}
				curRole = ir.BlockRoleBody
			case "tr":
				if err := emit(ir.ItemEvent(ir.EventParagraphEnd, 0)); err != nil {
					return err
				}
				cellIndexInRow = -1
				curRole = ir.BlockRoleBody
			}
			if n, ok := headingLevel(tag); ok {
				if err := emit(ir.ItemEvent(ir.EventHeadingEnd, n)); err != nil {
					return err
				}
				curRole = ir.BlockRoleBody
				headingLvl = 0
			}
			if tag == "figcaption" || tag == "pre" {
				curRole = ir.BlockRoleBody
			}
			popTag(&fullStack, &cascadeStack)
		}
	}
}

func popTag(fullStack *[]elemCtx, cascadeStack *[]frame) {
	if len(*fullStack) > 0 {
		*fullStack = (*fullStack)[:len(*fullStack)-1]
	}
	// cascadeStack mirrors only the outermost MaxNesting entries of
	// fullStack, so it pops only once fullStack is back within it.
	if len(*cascadeStack) > len(*fullStack) {
		*cascadeStack = (*cascadeStack)[:len(*cascadeStack)-1]
	}
}

func inFigure(stack []elemCtx) bool {
	for _, e := range stack {
		if e.tag == "figure" {
			return true
		}
	}
	return false
}

func (s *Styler) emitImage(emit func(ir.StyledItem) error, attrs []html.Attribute, inFig bool) error {
	src, _ := attrVal(attrs, "src")
	if src == "" {
		return nil
	}
	alt, ok := attrVal(attrs, "alt")
	if !ok || alt == "" {
		alt, _ = attrVal(attrs, "title")
	}
	img := ir.Image{Src: src, Alt: alt, InFigure: inFig}
	if w, ok := attrVal(attrs, "width"); ok {
		if n, ok := parsePxAttr(w); ok {
			img.WidthPx = &n
		}
	}
	if h, ok := attrVal(attrs, "height"); ok {
		if n, ok := parsePxAttr(h); ok {
			img.HeightPx = &n
		}
	}
	return emit(ir.ItemImage(img))
}

func parsePxAttr(s string) (int, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	n := 0
	any := false
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
		any = true
	}
	return n, any
}

// collapseWhitespace folds runs of HTML whitespace into single spaces,
// matching default (non-preformatted) rendering behavior.
func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true // trims leading whitespace too
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !lastSpace {
				b.WriteByte(' ')
			}
			lastSpace = true
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	out := b.String()
	return strings.TrimSuffix(out, " ")
}
