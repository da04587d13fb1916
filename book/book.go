// Package book defines the inbound capability contract the render pipeline
// consumes: chapter enumeration, resource reading, embedded font discovery,
// and navigation metadata. Concrete EPUB/container parsing lives outside
// this module; callers adapt their own container reader to this interface.
package book

import "github.com/rupor-github/mu-epub/ir"

// ChapterRef identifies one spine entry.
type ChapterRef struct {
	Index     int
	Idref     string
	Href      string
	MediaType string
}

// EmbeddedFontFace describes one font face available for embedding, as
// declared by a book's OPF manifest plus any @font-face CSS rules.
type EmbeddedFontFace struct {
	Family     string
	Weight     int
	Style      ir.FontStyle
	Stretch    string // optional, e.g. "condensed"; empty when unspecified
	Href       string // OPF-relative
	FormatHint string // optional, e.g. "woff2"
}

// NavNode is one entry of a navigation (table of contents) tree.
type NavNode struct {
	Label    string
	Href     string // may carry a "#fragment"
	Children []NavNode
}

// NavDocument is the book's navigation tree, ordered top to bottom.
type NavDocument struct {
	Nodes []NavNode
}

// Book is the inbound capability contract: everything the render prep
// orchestrator and book page map need from a container.
type Book interface {
	// Chapters returns the ordered spine entries.
	Chapters() ([]ChapterRef, error)

	// ReadResource reads the full bytes of href, relative to the book root.
	ReadResource(href string) ([]byte, error)

	// ReadResourceCapped reads at most maxBytes of href into buf, returning
	// the number of bytes read. Implementations must not allocate beyond
	// maxBytes regardless of the underlying resource's actual size.
	ReadResourceCapped(href string, buf []byte, maxBytes int64) (int, error)

	// EmbeddedFonts enumerates font faces available for embedding, subject
	// to maxCount/maxBytesEach (0 means unlimited for that dimension).
	EmbeddedFonts(maxCount int, maxBytesEach int64) ([]EmbeddedFontFace, error)

	// Language returns the book's primary language tag (e.g. "en-US").
	Language() string

	// Navigation returns the book's table of contents, if any.
	Navigation() (NavDocument, error)
}
