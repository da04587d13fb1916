// Package errs defines the structured error taxonomy shared by every
// processing phase of the render pipeline.
package errs

import (
	"errors"
	"fmt"
)

// Phase identifies which stage of the pipeline produced an error.
type Phase string

const (
	PhaseParse  Phase = "parse"
	PhaseStyle  Phase = "style"
	PhaseFont   Phase = "font"
	PhaseRender Phase = "render"
)

// Code is a stable machine-readable error code, stable across releases.
type Code string

const (
	CodeBookChapterRef           Code = "BOOK_CHAPTER_REF"
	CodeBookChapterHTML          Code = "BOOK_CHAPTER_HTML"
	CodeBookChapterStylesheet    Code = "BOOK_CHAPTER_STYLESHEET_READ"
	CodeStyleCSSNotUTF8          Code = "STYLE_CSS_NOT_UTF8"
	CodeEntryBytesLimit          Code = "ENTRY_BYTES_LIMIT"
	CodeStyleCSSTooLarge         Code = "STYLE_CSS_TOO_LARGE"
	CodeStyleSelectorLimit       Code = "STYLE_SELECTOR_LIMIT"
	CodeStyleParseError          Code = "STYLE_PARSE_ERROR"
	CodeStyleInlineBytesLimit    Code = "STYLE_INLINE_BYTES_LIMIT"
	CodeStyleInlineParseError    Code = "STYLE_INLINE_PARSE_ERROR"
	CodeStyleTokenizeError       Code = "STYLE_TOKENIZE_ERROR"
	CodeFontFaceLimit            Code = "FONT_FACE_LIMIT"
	CodeFontBytesPerFaceLimit    Code = "FONT_BYTES_PER_FACE_LIMIT"
	CodeFontTotalBytesLimit      Code = "FONT_TOTAL_BYTES_LIMIT"
	CodeFontLoadError            Code = "FONT_LOAD_ERROR"
	CodeCancelled                Code = "CANCELLED"
	CodeLimitExceeded            Code = "LIMIT_EXCEEDED"
)

// Limit carries an actual/limit pair for budget-style errors.
type Limit struct {
	Kind   string
	Actual int64
	Limit  int64
}

// Source pinpoints where, within a stylesheet or inline declaration, an
// error originated.
type Source struct {
	Source           string
	Selector         string
	SelectorIndex    int
	Declaration      string
	DeclarationIndex int
	TokenOffset      int
}

// Error is the structured error type surfaced by every exported operation.
type Error struct {
	Phase        Phase
	Code         Code
	Message      string
	Path         string
	ChapterIndex int
	HasChapter   bool
	Limit        *Limit
	Source       *Source
	Err          error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s/%s: %s", e.Phase, e.Code, e.Message)
	if e.Path != "" {
		msg += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.HasChapter {
		msg += fmt.Sprintf(" (chapter=%d)", e.ChapterIndex)
	}
	if e.Limit != nil {
		msg += fmt.Sprintf(" (%s actual=%d limit=%d)", e.Limit.Kind, e.Limit.Actual, e.Limit.Limit)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is comparison by code.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return te.Code == e.Code
	}
	return false
}

// New builds a bare structured error for the given phase/code.
func New(phase Phase, code Code, msg string) *Error {
	return &Error{Phase: phase, Code: code, Message: msg}
}

// Wrap builds a structured error wrapping an underlying cause.
func Wrap(phase Phase, code Code, msg string, err error) *Error {
	return &Error{Phase: phase, Code: code, Message: msg, Err: err}
}

// WithChapter annotates the error with the chapter index it occurred in.
func (e *Error) WithChapter(idx int) *Error {
	e.ChapterIndex = idx
	e.HasChapter = true
	return e
}

// WithPath annotates the error with a source path (resource href).
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithLimit annotates the error with actual/limit budget context.
func (e *Error) WithLimit(kind string, actual, limit int64) *Error {
	e.Limit = &Limit{Kind: kind, Actual: actual, Limit: limit}
	return e
}

// WithSource annotates the error with selector/declaration/token context.
func (e *Error) WithSource(src Source) *Error {
	e.Source = &src
	return e
}

// Cancelled is the sentinel structured error returned when a render
// operation observes a cancellation request.
func Cancelled() *Error {
	return New(PhaseRender, CodeCancelled, "operation cancelled")
}

// LimitExceeded builds the structured error for a memory-budget overflow.
func LimitExceeded(kind string, actual, limit int64) *Error {
	return New(PhaseRender, CodeLimitExceeded, fmt.Sprintf("%s limit exceeded", kind)).
		WithLimit(kind, actual, limit)
}
