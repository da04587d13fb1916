package font_test

import (
	"strings"
	"testing"

	"github.com/rupor-github/mu-epub/book"
	"github.com/rupor-github/mu-epub/config"
	"github.com/rupor-github/mu-epub/font"
	"github.com/rupor-github/mu-epub/ir"
)

func TestResolveFallbackWhenNoFacesRegistered(t *testing.T) {
	r := font.NewResolver(config.DefaultFontOptions(), "serif", nil)
	res := r.Resolve([]string{"NoSuchFamily"}, 400, false, "hello")

	if res.FontID != 0 {
		t.Fatalf("font id = %d, want 0", res.FontID)
	}
	if res.ResolvedFamily != "serif" {
		t.Fatalf("resolved family = %q, want serif", res.ResolvedFamily)
	}
	joined := strings.Join(res.Reasons, " | ")
	if !strings.Contains(joined, "family unavailable") || !strings.Contains(joined, "fallback to policy default") {
		t.Fatalf("reason chain = %v, want both unavailable and fallback-default reasons", res.Reasons)
	}
}

func TestResolveMatchesEmbeddedFaceByWeightDistance(t *testing.T) {
	r := font.NewResolver(config.DefaultFontOptions(), "serif", nil)
	mustRegister(t, r, book.EmbeddedFontFace{Family: "Georgia", Weight: 400, Style: ir.FontStyleNormal, Href: "fonts/georgia.ttf"}, 1024)
	mustRegister(t, r, book.EmbeddedFontFace{Family: "Georgia", Weight: 700, Style: ir.FontStyleNormal, Href: "fonts/georgia-bold.ttf"}, 1024)

	res := r.Resolve([]string{"Georgia"}, 650, false, "hi")
	if res.FontID != 2 {
		t.Fatalf("font id = %d, want face registered at weight 700 (closer to 650)", res.FontID)
	}
}

func TestResolveDedupesIdenticalFaces(t *testing.T) {
	r := font.NewResolver(config.DefaultFontOptions(), "serif", nil)
	face := book.EmbeddedFontFace{Family: "Georgia", Weight: 400, Style: ir.FontStyleNormal, Href: "fonts/georgia.ttf"}
	mustRegister(t, r, face, 1024)
	if err := r.RegisterFace(face, 1024); err != nil {
		t.Fatalf("duplicate registration should be a silent no-op, got %v", err)
	}
}

func TestResolveFoldsNonASCIIFamilyCase(t *testing.T) {
	r := font.NewResolver(config.DefaultFontOptions(), "serif", nil)
	mustRegister(t, r, book.EmbeddedFontFace{Family: "Straße Sans", Weight: 400, Style: ir.FontStyleNormal, Href: "fonts/strasse.ttf"}, 1024)

	// Unicode case folding maps ß to "ss", so an all-caps request folds to
	// the same key as the registered mixed-case family; plain ASCII
	// strings.ToLower would not equate the two.
	res := r.Resolve([]string{"STRASSE SANS"}, 400, false, "hi")
	if res.FontID != 1 {
		t.Fatalf("font id = %d, want 1: Unicode case folding should equate \"STRASSE SANS\" with \"Straße Sans\"", res.FontID)
	}

	dup := book.EmbeddedFontFace{Family: "strasse sans", Weight: 400, Style: ir.FontStyleNormal, Href: "FONTS/STRASSE.TTF"}
	if err := r.RegisterFace(dup, 1024); err != nil {
		t.Fatalf("case-fold-equivalent registration should dedupe as a no-op, got %v", err)
	}
	if res := r.Resolve([]string{"Straße Sans"}, 400, false, "hi"); res.FontID != 1 {
		t.Fatalf("font id = %d, want 1: duplicate registration must not have appended a second face", res.FontID)
	}
}

func TestRegisterFaceEnforcesMaxFaces(t *testing.T) {
	opts := config.DefaultFontOptions()
	opts.MaxFaces = 1
	r := font.NewResolver(opts, "serif", nil)
	mustRegister(t, r, book.EmbeddedFontFace{Family: "A", Href: "a.ttf"}, 100)
	if err := r.RegisterFace(book.EmbeddedFontFace{Family: "B", Href: "b.ttf"}, 100); err == nil {
		t.Fatalf("expected max_faces limit error")
	}
}

func TestResolveNonASCIINotesGlyphRisk(t *testing.T) {
	r := font.NewResolver(config.DefaultFontOptions(), "serif", nil)
	res := r.Resolve([]string{"NoSuchFamily"}, 400, false, "héllo")
	joined := strings.Join(res.Reasons, " | ")
	if !strings.Contains(joined, "missing glyph risk") {
		t.Fatalf("reasons = %v, want a missing-glyph-risk note for non-ASCII text", res.Reasons)
	}
}

func TestForcedFamilyDisablesEmbeddedMatching(t *testing.T) {
	opts := config.DefaultFontOptions()
	opts.ForcedFamily = "Georgia"
	r := font.NewResolver(opts, "serif", nil)
	mustRegister(t, r, book.EmbeddedFontFace{Family: "Georgia", Weight: 400, Href: "g.ttf"}, 10)

	res := r.Resolve([]string{"Georgia"}, 400, false, "x")
	if res.FontID != 0 || res.ResolvedFamily != "Georgia" {
		t.Fatalf("forced family should bypass embedded matching, got %+v", res)
	}
}

func mustRegister(t *testing.T, r *font.Resolver, f book.EmbeddedFontFace, size int64) {
	t.Helper()
	if err := r.RegisterFace(f, size); err != nil {
		t.Fatalf("RegisterFace: %v", err)
	}
}
