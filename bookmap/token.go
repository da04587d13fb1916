package bookmap

import "math"

// ReadingPositionToken is a portable reading-position marker: it survives
// serialization and, given a RenderBookPageMap built under a different
// pagination profile, can be remapped to the closest equivalent page.
type ReadingPositionToken struct {
	GlobalPageIndex  int
	ChapterIndex     int
	ChapterHref      string
	ChapterPageIndex int
	ChapterPageCount int
	ProgressChapter  float64 // chapter_page_index / max(1, count-1)
}

// BuildToken builds a token from a global page index, clamping it into
// range and locating the owning chapter.
func (m *RenderBookPageMap) BuildToken(globalIndex int) (ReadingPositionToken, bool) {
	if len(m.chapters) == 0 || m.totalPages == 0 {
		return ReadingPositionToken{}, false
	}
	if globalIndex < 0 {
		globalIndex = 0
	} else if globalIndex >= m.totalPages {
		globalIndex = m.totalPages - 1
	}
	for _, c := range m.chapters {
		if c.PageCount == 0 {
			continue
		}
		if globalIndex < c.StartGlobal+c.PageCount {
			chapterPageIndex := globalIndex - c.StartGlobal
			progress := 0.0
			if c.PageCount > 1 {
				progress = float64(chapterPageIndex) / float64(c.PageCount-1)
			}
			return ReadingPositionToken{
				GlobalPageIndex:  globalIndex,
				ChapterIndex:     c.Index,
				ChapterHref:      c.Href,
				ChapterPageIndex: chapterPageIndex,
				ChapterPageCount: c.PageCount,
				ProgressChapter:  progress,
			}, true
		}
	}
	return ReadingPositionToken{}, false
}

// RemapToken relocates tok, produced against some earlier profile (whose
// total page count was oldTotalPages), onto this map: if the token's
// chapter (matched by href, falling back to chapter index) still has
// pages, the chapter-local progress is preserved; otherwise the token's
// overall book progress is preserved instead.
func (m *RenderBookPageMap) RemapToken(tok ReadingPositionToken, oldTotalPages int) (ReadingPositionToken, bool) {
	pos := -1
	if tok.ChapterHref != "" {
		if p, ok := m.findChapterByHref(tok.ChapterHref); ok {
			pos = p
		}
	}
	if pos < 0 {
		if p := m.posForChapterIndex(tok.ChapterIndex); p >= 0 {
			pos = p
		}
	}

	if pos >= 0 && m.chapters[pos].PageCount > 0 {
		c := m.chapters[pos]
		local := 0
		if c.PageCount > 1 {
			local = int(math.Round(tok.ProgressChapter * float64(c.PageCount-1)))
			if local < 0 {
				local = 0
			} else if local > c.PageCount-1 {
				local = c.PageCount - 1
			}
		}
		return m.BuildToken(c.StartGlobal + local)
	}

	globalProgress := 0.0
	if oldTotalPages > 1 {
		globalProgress = float64(tok.GlobalPageIndex) / float64(oldTotalPages-1)
	}
	if m.totalPages <= 1 {
		return m.BuildToken(0)
	}
	target := int(math.Round(globalProgress * float64(m.totalPages-1)))
	return m.BuildToken(target)
}
