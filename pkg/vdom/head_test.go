package vdom

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDiffHead(t *testing.T) {
	title := Title("Old")
	desc := Meta(Name("description"), Content("a"))
	old := []HeadEntry{
		{Key: "title", Node: title},
		{Key: "description", Node: desc},
		{Key: "robots", Node: Meta(Name("robots"), Content("noindex"))},
	}

	newTitle := Title("New")
	canonical := El("link", A("rel", "canonical"), Href("/x"))
	next := []HeadEntry{
		{Key: "canonical", Node: canonical},
		{Key: "title", Node: newTitle},
		{Key: "description", Node: Meta(Name("description"), Content("a"))},
	}

	patches, err := DiffHead(old, next)
	if err != nil {
		t.Fatalf("DiffHead: %v", err)
	}
	want := []Patch{
		{Op: PatchRemoveHeadElement, Name: "robots"},
		{Op: PatchAddHeadElement, Name: "canonical", Node: canonical},
		{Op: PatchUpdateHeadElement, Name: "title", Node: newTitle},
	}
	if d := cmp.Diff(want, patches); d != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", d)
	}
}

func TestDiffHeadDefects(t *testing.T) {
	tests := []struct {
		name string
		next []HeadEntry
		want error
	}{
		{"duplicate key", []HeadEntry{{Key: "t", Node: Title("a")}, {Key: "t", Node: Title("b")}}, ErrDuplicateHeadKey},
		{"missing key", []HeadEntry{{Node: Title("a")}}, ErrMissingKey},
		{"nil node", []HeadEntry{{Key: "t"}}, ErrUnknownKind},
		{"bad node", []HeadEntry{{Key: "t", Node: Meta(Name("a"), Name("b"))}}, ErrDuplicateAttr},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pool := NewPool()
			patches, err := NewDiffer(pool, Options{}).DiffHead(nil, tc.next)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if patches != nil {
				t.Errorf("Expected no patches, got %v", patches)
			}
			if pool.Stats().Outstanding() != 0 {
				t.Errorf("Outstanding = %d, want 0", pool.Stats().Outstanding())
			}
		})
	}
}
