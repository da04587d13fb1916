package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// ProfileID is a fixed-size content hash over every layout-affecting
// setting. Two engines built from byte-identical options produce an
// identical id; any change to a field rotates it. It doubles as a cache
// key and a reflow-remap key.
type ProfileID [sha256.Size]byte

func (id ProfileID) Hex() string { return hex.EncodeToString(id[:]) }
func (id ProfileID) String() string { return id.Hex() }
func (id ProfileID) IsZero() bool { return id == ProfileID{} }

// fixedFloat normalizes a float to a fixed-decimal string so the hash
// input never varies across platforms due to FP formatting quirks.
func fixedFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}

// Fingerprint serializes o into a stable textual form used as the
// profile-id hash input. The format is internal and may change across
// schema versions; callers should only rely on ProfileID equality.
func (o RenderEngineOptions) Fingerprint() string {
	var b strings.Builder

	fmt.Fprintf(&b, "style.max_selectors=%d\n", o.Style.MaxSelectors)
	fmt.Fprintf(&b, "style.max_nesting=%d\n", o.Style.MaxNesting)
	fmt.Fprintf(&b, "style.text_scale=%s\n", fixedFloat(o.Style.TextScale))
	fmt.Fprintf(&b, "style.min_font_size_px=%s\n", fixedFloat(o.Style.MinFontSizePx))
	fmt.Fprintf(&b, "style.max_font_size_px=%s\n", fixedFloat(o.Style.MaxFontSizePx))
	fmt.Fprintf(&b, "style.min_line_height=%s\n", fixedFloat(o.Style.MinLineHeight))
	fmt.Fprintf(&b, "style.max_line_height=%s\n", fixedFloat(o.Style.MaxLineHeight))
	fmt.Fprintf(&b, "style.default_family=%s\n", o.Style.DefaultFamily)

	l := o.Layout
	fmt.Fprintf(&b, "layout.width_px=%d\n", l.WidthPx)
	fmt.Fprintf(&b, "layout.height_px=%d\n", l.HeightPx)
	fmt.Fprintf(&b, "layout.margin=%d,%d,%d,%d\n", l.MarginTopPx, l.MarginRightPx, l.MarginBottomPx, l.MarginLeftPx)
	fmt.Fprintf(&b, "layout.justify_enable=%t\n", l.JustifyEnable)
	fmt.Fprintf(&b, "layout.justify_min_words=%d\n", l.JustifyMinWords)
	fmt.Fprintf(&b, "layout.min_fill_ratio=%s\n", fixedFloat(l.MinFillRatio))
	fmt.Fprintf(&b, "layout.list_indent_px=%s\n", fixedFloat(l.ListIndentPx))
	fmt.Fprintf(&b, "layout.first_line_indent_px=%s\n", fixedFloat(l.FirstLineIndentPx))
	fmt.Fprintf(&b, "layout.suppress_indent_after_heading=%t\n", l.SuppressIndentAfterHeading)
	fmt.Fprintf(&b, "layout.widow_orphan_min_lines=%d\n", l.WidowOrphanMinLines)
	fmt.Fprintf(&b, "layout.keep_with_next_lines=%d\n", l.KeepWithNextLines)
	fmt.Fprintf(&b, "layout.soft_hyphen_policy=%t\n", l.SoftHyphenPolicy)
	fmt.Fprintf(&b, "layout.hyphenation.enable=%t\n", l.Hyphenation.Enable)
	fmt.Fprintf(&b, "layout.hyphenation.language=%s\n", l.Hyphenation.Language)
	fmt.Fprintf(&b, "layout.hyphenation.soft_hyphen_policy=%t\n", l.Hyphenation.SoftHyphenPolicy)
	fmt.Fprintf(&b, "layout.max_inline_image_height_ratio=%s\n", fixedFloat(l.MaxInlineImageHeightRatio))
	fmt.Fprintf(&b, "layout.alt_fallback_caption=%t\n", l.AltFallbackCaption)
	fmt.Fprintf(&b, "layout.chrome=%t,%t,%t\n", l.Chrome.Header, l.Chrome.Footer, l.Chrome.Progress)

	f := o.Font
	fmt.Fprintf(&b, "font.max_faces=%d\n", f.MaxFaces)
	fmt.Fprintf(&b, "font.max_bytes_per_font=%d\n", f.MaxBytesPerFont)
	fmt.Fprintf(&b, "font.max_total_font_bytes=%d\n", f.MaxTotalFontBytes)
	fmt.Fprintf(&b, "font.fallback_families=%s\n", strings.Join(f.FallbackFamilies, ","))
	fmt.Fprintf(&b, "font.forced_family=%s\n", f.ForcedFamily)

	fmt.Fprintf(&b, "embed_fonts=%t\n", o.EmbedFonts)

	return b.String()
}

// Profile computes the PaginationProfileId for o.
func (o RenderEngineOptions) Profile() ProfileID {
	return ProfileID(sha256.Sum256([]byte(o.Fingerprint())))
}
