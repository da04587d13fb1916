// Package font resolves styled text runs to registered embedded font
// faces, enforcing the registration ceilings and producing an explainable
// fallback reason chain when no embedded face matches.
package font

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/rupor-github/mu-epub/book"
	"github.com/rupor-github/mu-epub/config"
	"github.com/rupor-github/mu-epub/errs"
	"github.com/rupor-github/mu-epub/ir"
)

// foldCase is a Unicode-aware case folder for family-name normalization;
// plain ASCII strings.ToLower mishandles non-ASCII family names (e.g.
// German ß) that byte-wise lowercasing gets wrong.
var foldCase = cases.Fold()

// face is a registered embedded font, keyed by registration order; FontID
// is its 1-based position (0 is reserved for policy fallback).
type face struct {
	FontID int
	book.EmbeddedFontFace
	TotalBytes int64
}

// Resolution is the outcome of resolving a requested style to a font,
// carrying an ordered, human-readable explanation for how the pick was
// made — useful for diagnostics and the S6 fallback scenario.
type Resolution struct {
	FontID         int // 0 == policy fallback
	ResolvedFamily string
	Reasons        []string
}

// Resolver registers embedded font faces and resolves requested styles
// against them. Registration state is mutated only while loading faces;
// thereafter Resolve is read-only and safe for concurrent callers.
type Resolver struct {
	opts config.FontOptions
	log  *zap.Logger

	faces         []face
	totalBytes    int64
	seen          map[string]bool // dedupe key: normalized family|weight|style|href
	forcedFamily  string
	defaultFamily string
}

// NewResolver builds a resolver bound to the given font ceilings/fallback
// policy. defaultFamily is the policy-of-last-resort family (the Style
// Engine's configured default_family) used when neither the requested
// family stack nor the fallback list has an embedded match.
func NewResolver(opts config.FontOptions, defaultFamily string, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	if defaultFamily == "" {
		defaultFamily = "serif"
	}
	return &Resolver{
		opts:          opts,
		log:           log.Named("font"),
		seen:          make(map[string]bool),
		forcedFamily:  opts.ForcedFamily,
		defaultFamily: defaultFamily,
	}
}

func normalizeFamily(f string) string {
	return foldCase.String(strings.TrimSpace(f))
}

func dedupeKey(family string, weight int, style ir.FontStyle, href string) string {
	return normalizeFamily(family) + "|" + strconv.Itoa(weight) + "|" + style.String() + "|" + foldCase.String(href)
}

// RegisterFace adds one embedded font face, enforcing max_faces,
// max_bytes_per_font and max_total_font_bytes, and deduping on
// (normalized family, weight, style, lowercased href).
func (r *Resolver) RegisterFace(f book.EmbeddedFontFace, byteSize int64) error {
	key := dedupeKey(f.Family, f.Weight, f.Style, f.Href)
	if r.seen[key] {
		return nil
	}

	if len(r.faces) >= r.opts.MaxFaces {
		return errs.New(errs.PhaseFont, errs.CodeFontFaceLimit, "embedded face count exceeds budget").
			WithLimit("max_faces", int64(len(r.faces)+1), int64(r.opts.MaxFaces))
	}
	if byteSize > r.opts.MaxBytesPerFont {
		return errs.New(errs.PhaseFont, errs.CodeFontBytesPerFaceLimit, "embedded face bytes exceed per-face budget").
			WithPath(f.Href).
			WithLimit("max_bytes_per_font", byteSize, r.opts.MaxBytesPerFont)
	}
	if r.totalBytes+byteSize > r.opts.MaxTotalFontBytes {
		return errs.New(errs.PhaseFont, errs.CodeFontTotalBytesLimit, "embedded face bytes exceed total budget").
			WithPath(f.Href).
			WithLimit("max_total_font_bytes", r.totalBytes+byteSize, r.opts.MaxTotalFontBytes)
	}

	r.seen[key] = true
	r.totalBytes += byteSize
	r.faces = append(r.faces, face{FontID: len(r.faces) + 1, EmbeddedFontFace: f, TotalBytes: byteSize})
	return nil
}

func stylePenalty(have ir.FontStyle, wantItalic bool) int {
	haveItalic := have == ir.FontStyleItalic || have == ir.FontStyleOblique
	if haveItalic == wantItalic {
		return 0
	}
	return 1000
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Resolve picks a font_id for a requested family stack/weight/italic/text
// combination. If forced_family is set, embedded matching is disabled
// entirely for measurement consistency and resolution goes straight to
// fallback with that family.
func (r *Resolver) Resolve(families []string, weight int, italic bool, text string) Resolution {
	if r.forcedFamily != "" {
		return Resolution{
			FontID:         0,
			ResolvedFamily: r.forcedFamily,
			Reasons:        []string{"forced family override active, embedded matching disabled"},
		}
	}

	var reasons []string
	tryMatch := func(want string) *face {
		norm := normalizeFamily(want)
		var best *face
		bestScore := 1 << 30
		for i := range r.faces {
			f := &r.faces[i]
			if normalizeFamily(f.Family) != norm {
				continue
			}
			score := abs(f.Weight-weight) + stylePenalty(f.Style, italic)
			if score < bestScore {
				bestScore = score
				best = f
			}
		}
		return best
	}

	for _, want := range families {
		if best := tryMatch(want); best != nil {
			reasons = append(reasons, "matched embedded face for family \""+want+"\"")
			return Resolution{FontID: best.FontID, ResolvedFamily: best.Family, Reasons: reasons}
		}
		reasons = append(reasons, "family unavailable: \""+want+"\"")
	}

	for _, want := range r.opts.FallbackFamilies {
		if best := tryMatch(want); best != nil {
			reasons = append(reasons, "matched embedded face via fallback family \""+want+"\"")
			return Resolution{FontID: best.FontID, ResolvedFamily: best.Family, Reasons: reasons}
		}
	}

	reasons = append(reasons, "fallback to policy default")
	if containsNonASCII(text) {
		reasons = append(reasons, "missing glyph risk: non-ASCII text rendered via fallback only")
	}
	return Resolution{FontID: 0, ResolvedFamily: r.defaultFamily, Reasons: reasons}
}

func containsNonASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return true
		}
	}
	return false
}
