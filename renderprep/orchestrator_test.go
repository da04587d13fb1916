package renderprep_test

import (
	"testing"

	"github.com/rupor-github/mu-epub/book"
	"github.com/rupor-github/mu-epub/config"
	"github.com/rupor-github/mu-epub/font"
	"github.com/rupor-github/mu-epub/ir"
	"github.com/rupor-github/mu-epub/renderprep"
	"github.com/rupor-github/mu-epub/style"
)

type fakeBook struct {
	resources map[string][]byte
}

func (f *fakeBook) Chapters() ([]book.ChapterRef, error) { return nil, nil }

func (f *fakeBook) ReadResource(href string) ([]byte, error) {
	return f.resources[href], nil
}

func (f *fakeBook) ReadResourceCapped(href string, buf []byte, maxBytes int64) (int, error) {
	data := f.resources[href]
	n := len(data)
	if int64(n) > maxBytes {
		n = int(maxBytes)
	}
	if n > len(buf) {
		n = len(buf)
	}
	copy(buf, data[:n])
	return n, nil
}

func (f *fakeBook) EmbeddedFonts(maxCount int, maxBytesEach int64) ([]book.EmbeddedFontFace, error) {
	return nil, nil
}
func (f *fakeBook) Language() string                     { return "en" }
func (f *fakeBook) Navigation() (book.NavDocument, error) { return book.NavDocument{}, nil }

func newPrep(t *testing.T) (*renderprep.Prep, *fakeBook) {
	t.Helper()
	b := &fakeBook{resources: make(map[string][]byte)}
	s := style.NewStyler(config.DefaultStyleOptions(), config.DefaultMemoryBudget(), nil)
	r := font.NewResolver(config.DefaultFontOptions(), "serif", nil)
	p := renderprep.NewPrep(config.DefaultMemoryBudget(), s, r, nil)
	return p, b
}

func TestPrepareChapterResolvesFontAndEmitsRuns(t *testing.T) {
	p, b := newPrep(t)
	html := []byte(`<p>hello world</p>`)

	var runs []ir.Run
	err := p.PrepareChapterBytes(b, book.ChapterRef{Index: 0, Href: "text/ch0.xhtml"}, html, func(it ir.StyledItem) error {
		if it.Kind == ir.StyledItemRun {
			runs = append(runs, it.Run)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("PrepareChapterBytes: %v", err)
	}
	if len(runs) != 1 || runs[0].Text != "hello world" {
		t.Fatalf("runs = %+v, want one run \"hello world\"", runs)
	}
	if runs[0].FontID != 0 || runs[0].ResolvedFamily != "serif" {
		t.Fatalf("run font resolution = %+v, want fallback to serif", runs[0])
	}
}

func TestPrepareChapterResolvesRelativeImagePath(t *testing.T) {
	p, b := newPrep(t)
	html := []byte(`<img src="../images/cover.png" alt="cover"/>`)

	var gotSrc string
	err := p.PrepareChapterBytes(b, book.ChapterRef{Index: 0, Href: "text/ch0.xhtml"}, html, func(it ir.StyledItem) error {
		if it.Kind == ir.StyledItemImage {
			gotSrc = it.Img.Src
		}
		return nil
	})
	if err != nil {
		t.Fatalf("PrepareChapterBytes: %v", err)
	}
	if gotSrc != "images/cover.png" {
		t.Fatalf("resolved image src = %q, want \"images/cover.png\"", gotSrc)
	}
}

func TestPrepareChapterFillsMissingImageDimensionFromRatio(t *testing.T) {
	p, b := newPrep(t)
	// 8x4 solid PNG header-only bytes (IHDR width=8 height=4); pixel data
	// is irrelevant since only the header is sniffed.
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n',
		0, 0, 0, 13, 'I', 'H', 'D', 'R',
		0, 0, 0, 8, 0, 0, 0, 4, 8, 6, 0, 0, 0}
	b.resources["images/cover.png"] = png
	html := []byte(`<img src="../images/cover.png" width="16"/>`)

	var gotHeight *int
	err := p.PrepareChapterBytes(b, book.ChapterRef{Index: 0, Href: "text/ch0.xhtml"}, html, func(it ir.StyledItem) error {
		if it.Kind == ir.StyledItemImage {
			gotHeight = it.Img.HeightPx
		}
		return nil
	})
	if err != nil {
		t.Fatalf("PrepareChapterBytes: %v", err)
	}
	if gotHeight == nil || *gotHeight != 8 {
		t.Fatalf("height = %v, want 8 (16 width scaled by 8:4 intrinsic ratio)", gotHeight)
	}
}

func TestPrepareChapterEnforcesEntryBytesLimit(t *testing.T) {
	p, b := newPrep(t)
	huge := make([]byte, 10)
	budget := config.DefaultMemoryBudget()
	budget.MaxEntryBytes = 4
	p2 := renderprep.NewPrep(budget, style.NewStyler(config.DefaultStyleOptions(), budget, nil), font.NewResolver(config.DefaultFontOptions(), "serif", nil), nil)

	err := p2.PrepareChapterBytes(b, book.ChapterRef{Index: 0, Href: "text/ch0.xhtml"}, huge, func(ir.StyledItem) error { return nil })
	if err == nil {
		t.Fatalf("expected entry-bytes-limit error")
	}
	_ = p
}
