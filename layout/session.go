// Package layout paginates a chapter's styled item stream into fixed-size
// RenderPages: it buffers eligible paragraph text for a DP-optimized line
// break, falls back to direct word-by-word composition for everything
// else, and applies widow/orphan and keep-with-next page-break guards.
package layout

import (
	"go.uber.org/zap"

	"github.com/rupor-github/mu-epub/config"
	"github.com/rupor-github/mu-epub/ir"
	"github.com/rupor-github/mu-epub/measure"
)

// chromeBandPx reserves vertical space at the bottom of the content area
// for footer/progress chrome, so body text never collides with it.
const chromeBandPx = 20.0

// Session paginates a single chapter. It is not safe for concurrent use;
// callers that paginate multiple chapters run one Session per chapter.
type Session struct {
	opts         config.LayoutOptions
	measurer     textMeasurer
	chapterIndex int
	hyphLang     string
	log          *zap.Logger

	contentWidth  float64
	contentTop    float64
	contentBottom float64

	pages []ir.RenderPage
	cur   *ir.RenderPage
	y     float64

	role          ir.BlockRole
	headingLevel  int
	firstLineDone bool // whether this block has emitted its first line yet
	afterHeading  bool

	buf      []word
	bufChars int

	directLine []word

	keepWithNextChecked bool
}

// NewSession creates a pagination session for one chapter. measurer is the
// shared text measurer; hyphLang is the chapter's declared language (used
// to gate automatic hyphenation).
func NewSession(opts config.LayoutOptions, chapterIndex int, measurer measure.TextMeasurer, hyphLang string, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		opts:          opts,
		measurer:      measurer,
		chapterIndex:  chapterIndex,
		hyphLang:      hyphLang,
		log:           log.Named("layout"),
		contentWidth: float64(opts.WidthPx - opts.MarginLeftPx - opts.MarginRightPx),
		contentTop:   float64(opts.MarginTopPx),
	}
	s.contentBottom = float64(opts.HeightPx - opts.MarginBottomPx)
	if opts.Chrome.Footer || opts.Chrome.Progress {
		s.contentBottom -= chromeBandPx
	}
	s.newPage()
	return s
}

// PendingPageCount reports how many pages have been completed so far in
// this session, not counting the page currently being composed. Callers
// streaming a chapter under a memory budget poll this between pushes.
func (s *Session) PendingPageCount() int {
	return len(s.pages)
}

func (s *Session) newPage() {
	s.cur = &ir.RenderPage{Number: len(s.pages) + 1}
	s.y = s.contentTop
}

func (s *Session) leftInset() float64 {
	if s.role == ir.BlockRoleListItem {
		return s.opts.ListIndentPx
	}
	return 0
}

// firstLineIndent returns the extra indent applied only to a paragraph's
// opening line, honoring the suppress-after-heading rule.
func (s *Session) firstLineIndent() float64 {
	if s.role != ir.BlockRoleParagraph && s.role != ir.BlockRoleBody {
		return 0
	}
	if s.opts.SuppressIndentAfterHeading && s.afterHeading {
		return 0
	}
	return s.opts.FirstLineIndentPx
}

// Push consumes one styled item, advancing pagination state.
func (s *Session) Push(item ir.StyledItem) error {
	switch item.Kind {
	case ir.StyledItemEvent:
		return s.pushEvent(item.Event)
	case ir.StyledItemRun:
		return s.pushRun(item.Run)
	case ir.StyledItemImage:
		return s.pushImage(item.Img)
	}
	return nil
}

func (s *Session) pushEvent(ev ir.Event) error {
	switch ev.Kind {
	case ir.EventParagraphStart:
		s.beginBlock(ir.BlockRoleParagraph, 0)
	case ir.EventParagraphEnd:
		return s.endBlock()
	case ir.EventHeadingStart:
		s.beginBlock(ir.BlockRoleHeading, ev.Level)
	case ir.EventHeadingEnd:
		if err := s.endBlock(); err != nil {
			return err
		}
		s.afterHeading = true
		return nil
	case ir.EventListItemStart:
		s.beginBlock(ir.BlockRoleListItem, 0)
	case ir.EventListItemEnd:
		return s.endBlock()
	case ir.EventLineBreak:
		return s.flushDirectLine(true)
	}
	return nil
}

func (s *Session) beginBlock(role ir.BlockRole, headingLevel int) {
	s.role = role
	s.headingLevel = headingLevel
	s.firstLineDone = false
	s.keepWithNextChecked = false
}

func (s *Session) endBlock() error {
	if err := s.flushParagraphBuffer(); err != nil {
		return err
	}
	if err := s.flushDirectLine(true); err != nil {
		return err
	}
	if s.role != ir.BlockRoleHeading {
		s.afterHeading = false
	}
	s.role = ir.BlockRoleBody
	return nil
}

// Finish flushes any in-flight block and returns the chapter's pages,
// stamping page-level chrome and metrics.
func (s *Session) Finish() ([]ir.RenderPage, error) {
	if err := s.flushParagraphBuffer(); err != nil {
		return nil, err
	}
	if err := s.flushDirectLine(true); err != nil {
		return nil, err
	}
	if len(s.cur.Content) > 0 || len(s.pages) == 0 {
		s.pages = append(s.pages, *s.cur)
	}
	s.stampChrome()
	return s.pages, nil
}

func (s *Session) stampChrome() {
	total := len(s.pages)
	for i := range s.pages {
		p := &s.pages[i]
		p.Metrics = ir.PageMetrics{
			ChapterIndex:        s.chapterIndex,
			ChapterPageIndex:     i,
			ChapterPageCount:     total,
			HasChapterPageCount:  true,
			ProgressChapter:      float64(i+1) / float64(maxInt(total, 1)),
		}
		if s.opts.Chrome.Header {
			p.Chrome = append(p.Chrome, ir.NewChrome(ir.ChromeCommand{
				Kind: ir.ChromeHeader, HasText: true,
				Text: "Page " + itoa(i+1),
			}))
		}
		if s.opts.Chrome.Footer {
			p.Chrome = append(p.Chrome, ir.NewChrome(ir.ChromeCommand{
				Kind: ir.ChromeFooter, HasText: true,
				Text: footerText(i+1, total),
			}))
		}
		if s.opts.Chrome.Progress {
			p.Chrome = append(p.Chrome, ir.NewChrome(ir.ChromeCommand{
				Kind: ir.ChromeProgress, HasProg: true,
				Current: i + 1, Total: total,
			}))
		}
		p.Sync()
	}
}

func footerText(page, total int) string {
	return itoa(page) + " / " + itoa(total)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
