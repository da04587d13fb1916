package bookmap_test

import (
	"testing"

	"github.com/rupor-github/mu-epub/bookmap"
)

func TestFragmentProgressFindsEarliestOffset(t *testing.T) {
	doc := []byte(`<html><body><p id="intro">a</p><p id="mid">b</p></body></html>`)
	got, ok := bookmap.FragmentProgress(doc, "mid")
	if !ok {
		t.Fatalf("expected a progress estimate")
	}
	if got <= 0 || got >= 1 {
		t.Fatalf("expected an interior progress value, got %v", got)
	}
}

func TestFragmentProgressSingleQuotedAndNameAttr(t *testing.T) {
	doc := []byte(`<a name='anchor1'>x</a>`)
	if _, ok := bookmap.FragmentProgress(doc, "anchor1"); !ok {
		t.Fatalf("expected name='...' to be recognized")
	}
}

func TestFragmentProgressMissingFragment(t *testing.T) {
	doc := []byte(`<p id="only">x</p>`)
	if _, ok := bookmap.FragmentProgress(doc, "absent"); ok {
		t.Fatalf("expected no match for an absent fragment")
	}
}

func TestFragmentProgressEmptyFragment(t *testing.T) {
	doc := []byte(`<p id="only">x</p>`)
	if _, ok := bookmap.FragmentProgress(doc, ""); ok {
		t.Fatalf("expected no match for an empty fragment")
	}
}
