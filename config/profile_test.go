package config_test

import (
	"testing"

	"github.com/rupor-github/mu-epub/config"
)

func TestProfileStability(t *testing.T) {
	a := config.DefaultRenderEngineOptions()
	b := config.DefaultRenderEngineOptions()
	if a.Profile() != b.Profile() {
		t.Fatalf("identical options produced different profile ids")
	}
}

func TestProfileRotatesOnChange(t *testing.T) {
	base := config.DefaultRenderEngineOptions()
	baseID := base.Profile()

	mutations := []func(*config.RenderEngineOptions){
		func(o *config.RenderEngineOptions) { o.Layout.WidthPx++ },
		func(o *config.RenderEngineOptions) { o.Layout.JustifyEnable = !o.Layout.JustifyEnable },
		func(o *config.RenderEngineOptions) { o.Style.TextScale += 0.01 },
		func(o *config.RenderEngineOptions) { o.Font.ForcedFamily = "Georgia" },
		func(o *config.RenderEngineOptions) { o.Layout.Hyphenation.Enable = !o.Layout.Hyphenation.Enable },
	}
	for i, mutate := range mutations {
		o := config.DefaultRenderEngineOptions()
		mutate(&o)
		if o.Profile() == baseID {
			t.Fatalf("mutation %d did not rotate profile id", i)
		}
	}
}

func TestProfileIgnoresMemoryBudget(t *testing.T) {
	a := config.DefaultRenderEngineOptions()
	b := config.DefaultRenderEngineOptions()
	b.Budget.MaxEntryBytes *= 2
	if a.Profile() != b.Profile() {
		t.Fatalf("memory budget change should not rotate the layout profile id")
	}
}
