package measure_test

import (
	"testing"

	"github.com/rupor-github/mu-epub/ir"
	"github.com/rupor-github/mu-epub/measure"
)

func style(families ...string) ir.ComputedTextStyle {
	return ir.ComputedTextStyle{
		Families: families,
		Weight:   400,
		SizePx:   16,
	}
}

func TestMeasureEmptyIsZero(t *testing.T) {
	d := measure.NewDefault()
	if got := d.Measure("", style("serif")); got != 0 {
		t.Fatalf("empty text measured %v, want 0", got)
	}
}

func TestMeasureWideCharsWiderThanNarrow(t *testing.T) {
	d := measure.NewDefault()
	s := style("sans-serif")
	narrow := d.Measure("iiiiii", s)
	wide := d.Measure("mmmmmm", s)
	if wide <= narrow {
		t.Fatalf("wide run %v should measure larger than narrow run %v", wide, narrow)
	}
}

func TestMeasureMonospaceIgnoresGlyphClass(t *testing.T) {
	d := measure.NewDefault()
	s := style("monospace")
	narrow := d.Measure("iiii", s)
	wide := d.Measure("MMMM", s)
	if narrow != wide {
		t.Fatalf("monospace measurements should match regardless of glyph shape: %v vs %v", narrow, wide)
	}
}

func TestMeasureBoldWidensText(t *testing.T) {
	d := measure.NewDefault()
	plain := style("serif")
	bold := style("serif")
	bold.Weight = 700
	if d.Measure("hello world", bold) <= d.Measure("hello world", plain) {
		t.Fatalf("bold text should measure wider than regular weight")
	}
}

func TestConservativeNeverNarrowerThanMeasure(t *testing.T) {
	d := measure.NewDefault()
	samples := []string{"hello", "The Quick Brown Fox", "m.m,m;m:m!m", "12345"}
	for _, text := range samples {
		s := style("serif")
		if c, m := d.Conservative(text, s), d.Measure(text, s); c < m {
			t.Fatalf("conservative(%q)=%v narrower than measure=%v", text, c, m)
		}
	}
}

func TestMeasureLetterSpacingAddsPerGap(t *testing.T) {
	d := measure.NewDefault()
	tight := style("sans-serif")
	spaced := style("sans-serif")
	spaced.LetterSpacing = 2
	if d.Measure("abcdef", spaced) <= d.Measure("abcdef", tight) {
		t.Fatalf("positive letter-spacing should widen the measured run")
	}
}
