// Package config holds the layout-affecting settings for the render
// pipeline, their defaults, validation, and pagination-profile hashing.
package config

// StyleOptions governs CSS cascade and font-size/line-height resolution.
type StyleOptions struct {
	MaxSelectors     int     `yaml:"max_selectors" validate:"gt=0"`
	MaxNesting       int     `yaml:"max_nesting" validate:"gt=0"`
	TextScale        float64 `yaml:"text_scale" validate:"gte=0.5,lte=3.0"`
	MinFontSizePx    float64 `yaml:"min_font_size_px" validate:"gt=0"`
	MaxFontSizePx    float64 `yaml:"max_font_size_px" validate:"gtfield=MinFontSizePx"`
	MinLineHeight    float64 `yaml:"min_line_height" validate:"gt=0"`
	MaxLineHeight    float64 `yaml:"max_line_height" validate:"gtfield=MinLineHeight"`
	DefaultFamily    string  `yaml:"default_family" validate:"required"`
}

func DefaultStyleOptions() StyleOptions {
	return StyleOptions{
		MaxSelectors:  4096,
		MaxNesting:    64,
		TextScale:     1.0,
		MinFontSizePx: 8,
		MaxFontSizePx: 64,
		MinLineHeight: 1.0,
		MaxLineHeight: 2.4,
		DefaultFamily: "serif",
	}
}

// HyphenationOptions controls discretionary break generation.
type HyphenationOptions struct {
	Enable           bool   `yaml:"enable"`
	Language         string `yaml:"language"` // BCP-47-ish, e.g. "en", "en-US"
	SoftHyphenPolicy bool   `yaml:"soft_hyphen_policy"`
}

func DefaultHyphenationOptions() HyphenationOptions {
	return HyphenationOptions{Enable: true, Language: "en", SoftHyphenPolicy: true}
}

// ChromeOptions gates per-page header/footer/progress emission.
type ChromeOptions struct {
	Header   bool `yaml:"header"`
	Footer   bool `yaml:"footer"`
	Progress bool `yaml:"progress"`
}

// LayoutOptions governs pagination: viewport geometry, line breaking,
// widow/orphan control, and inline image placement.
type LayoutOptions struct {
	WidthPx                     int     `yaml:"width_px" validate:"gt=0"`
	HeightPx                    int     `yaml:"height_px" validate:"gt=0"`
	MarginTopPx                 int     `yaml:"margin_top_px"`
	MarginBottomPx              int     `yaml:"margin_bottom_px"`
	MarginLeftPx                int     `yaml:"margin_left_px"`
	MarginRightPx               int     `yaml:"margin_right_px"`
	JustifyEnable               bool    `yaml:"justify_enable"`
	JustifyMinWords             int     `yaml:"justify_min_words" validate:"gt=0"`
	MinFillRatio                float64 `yaml:"min_fill_ratio" validate:"gte=0,lte=1"`
	ListIndentPx                float64 `yaml:"list_indent_px" validate:"gte=0"`
	FirstLineIndentPx           float64 `yaml:"first_line_indent_px" validate:"gte=0"`
	SuppressIndentAfterHeading  bool    `yaml:"suppress_indent_after_heading"`
	WidowOrphanMinLines         int     `yaml:"widow_orphan_min_lines" validate:"gt=0"`
	KeepWithNextLines           int     `yaml:"keep_with_next_lines" validate:"gt=0"`
	SoftHyphenPolicy            bool    `yaml:"soft_hyphen_policy"`
	Hyphenation                 HyphenationOptions `yaml:"hyphenation"`
	MaxInlineImageHeightRatio   float64 `yaml:"max_inline_image_height_ratio" validate:"gt=0,lte=1"`
	AltFallbackCaption          bool    `yaml:"alt_fallback_caption"`
	Chrome                      ChromeOptions `yaml:"chrome"`
}

func DefaultLayoutOptions() LayoutOptions {
	return LayoutOptions{
		WidthPx: 480, HeightPx: 640,
		MarginTopPx: 16, MarginBottomPx: 16, MarginLeftPx: 12, MarginRightPx: 12,
		JustifyEnable:              true,
		JustifyMinWords:            3,
		MinFillRatio:               0.72,
		ListIndentPx:               18,
		FirstLineIndentPx:          18,
		SuppressIndentAfterHeading: true,
		WidowOrphanMinLines:        2,
		KeepWithNextLines:          2,
		SoftHyphenPolicy:           true,
		Hyphenation:                DefaultHyphenationOptions(),
		MaxInlineImageHeightRatio:  0.62,
		AltFallbackCaption:         true,
		Chrome:                     ChromeOptions{Footer: true, Progress: true},
	}
}

// FontOptions governs embedded face registration ceilings and fallback.
type FontOptions struct {
	MaxFaces          int      `yaml:"max_faces" validate:"gt=0"`
	MaxBytesPerFont   int64    `yaml:"max_bytes_per_font" validate:"gt=0"`
	MaxTotalFontBytes int64    `yaml:"max_total_font_bytes" validate:"gt=0"`
	FallbackFamilies  []string `yaml:"fallback_families"`
	ForcedFamily      string   `yaml:"forced_family,omitempty"`
}

func DefaultFontOptions() FontOptions {
	return FontOptions{
		MaxFaces:          64,
		MaxBytesPerFont:   8 << 20,
		MaxTotalFontBytes: 48 << 20,
		FallbackFamilies:  []string{"serif", "sans-serif"},
	}
}

// RenderEngineOptions is the complete set of layout-affecting settings.
// Its serialization is the input to the pagination-profile hash.
type RenderEngineOptions struct {
	Style  StyleOptions  `yaml:"style"`
	Layout LayoutOptions `yaml:"layout"`
	Font   FontOptions   `yaml:"font"`
	Budget MemoryBudget  `yaml:"budget"`

	EmbedFonts        bool `yaml:"embed_fonts"`
	CacheEnable       bool `yaml:"cache_enable"`
}

func DefaultRenderEngineOptions() RenderEngineOptions {
	return RenderEngineOptions{
		Style:       DefaultStyleOptions(),
		Layout:      DefaultLayoutOptions(),
		Font:        DefaultFontOptions(),
		Budget:      DefaultMemoryBudget(),
		EmbedFonts:  true,
		CacheEnable: false,
	}
}
