package render

import (
	"context"

	"github.com/rupor-github/mu-epub/book"
	"github.com/rupor-github/mu-epub/errs"
	"github.com/rupor-github/mu-epub/ir"
)

// pushChapter streams every styled item renderprep produces for ch through
// the session, stopping early (and returning a structured error) if the
// number of completed pages buffered so far exceeds the memory budget.
func (s *Session) pushChapter(ctx context.Context, b book.Book, ch book.ChapterRef) error {
	return s.prep.PrepareChapter(b, ch, func(item ir.StyledItem) error {
		if err := s.Push(ctx, item); err != nil {
			return err
		}
		limit := s.opts.Budget.MaxPagesInMemory
		if n := s.core.PendingPageCount(); limit > 0 && n > limit {
			s.cancelled = true
			lerr := errs.LimitExceeded("pages_in_memory", int64(n), int64(limit)).WithChapter(s.chapterIndex)
			s.engine.emit(Diagnostic{
				Kind: DiagMemoryLimitExceeded, ChapterIndex: s.chapterIndex,
				LimitKind: "pages_in_memory", Actual: int64(n), Limit: int64(limit),
			})
			return lerr
		}
		return nil
	})
}

// PrepareChapterVector runs a fresh session to completion and returns every
// delivered page as a single slice, honoring MaxPagesInMemory as a hard
// ceiling on pages buffered mid-pagination. Cache-served sessions return
// the cached pages directly without touching renderprep at all.
func (s *Session) PrepareChapterVector(ctx context.Context, b book.Book, ch book.ChapterRef) ([]ir.RenderPage, error) {
	if s.cacheServed {
		return s.pending, nil
	}
	if err := s.pushChapter(ctx, b, ch); err != nil {
		return nil, err
	}
	return s.Finish(ctx)
}

// PrepareChapterCallback streams each delivered page to onPage in order,
// checking ctx for cancellation between deliveries. onPage returning an
// error aborts delivery and is returned unchanged.
func (s *Session) PrepareChapterCallback(ctx context.Context, b book.Book, ch book.ChapterRef, onPage func(ir.RenderPage) error) error {
	pages, err := s.PrepareChapterVector(ctx, b, ch)
	if err != nil {
		return err
	}
	for _, p := range pages {
		if ctx != nil && ctx.Err() != nil {
			return s.cancel()
		}
		if err := onPage(p); err != nil {
			return err
		}
	}
	return nil
}

// PageOrError is one element of the channel returned by PrepareChapterIter:
// either a page, or a terminal error closing the stream.
type PageOrError struct {
	Page ir.RenderPage
	Err  error
}

// PrepareChapterIter runs pagination on a background goroutine and streams
// pages back through a channel of capacity 1, so a slow consumer applies
// backpressure to delivery. Pagination itself runs to completion first
// (via PrepareChapterVector), so the whole chapter is buffered in memory
// before the first page is sent. The channel is always closed; a non-nil Err on the
// final element means pagination stopped early (cancellation or a budget
// overflow), and no further elements follow it.
func (s *Session) PrepareChapterIter(ctx context.Context, b book.Book, ch book.ChapterRef) <-chan PageOrError {
	out := make(chan PageOrError, 1)
	go func() {
		defer close(out)
		err := s.PrepareChapterCallback(ctx, b, ch, func(p ir.RenderPage) error {
			select {
			case out <- PageOrError{Page: p}:
				return nil
			case <-doneOf(ctx):
				return s.cancel()
			}
		})
		if err != nil {
			out <- PageOrError{Err: err}
		}
	}()
	return out
}

func doneOf(ctx context.Context) <-chan struct{} {
	if ctx == nil {
		return nil
	}
	return ctx.Done()
}
