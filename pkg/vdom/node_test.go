package vdom

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindElement, "Element"},
		{KindText, "Text"},
		{KindRaw, "Raw"},
		{KindEmpty, "Empty"},
		{Kind(99), "Unknown"},
	}
	for _, tc := range tests {
		if got := tc.kind.String(); got != tc.want {
			t.Errorf("Kind(%d).String() = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestPatchOpOrdinals(t *testing.T) {
	ops := PatchOps()
	if len(ops) != 23 {
		t.Fatalf("Expected 23 ops, got %d", len(ops))
	}
	if PatchAddRoot != 0 || PatchMoveChild != 4 || PatchRemoveHeadElement != 22 {
		t.Error("wire ordinals changed")
	}
	if PatchOp(23).Valid() || PatchOp(23).String() != "Unknown" {
		t.Error("PatchOp(23) should be invalid")
	}
}

func TestElKeyAttr(t *testing.T) {
	n := Li(Key("a"), Class("x"), nil, "text", Disabled(false))
	if n.Key != "a" {
		t.Errorf("Key = %q, want a", n.Key)
	}
	if len(n.Attrs) != 1 || n.Attrs[0].Name != "class" {
		t.Errorf("Attrs = %+v", n.Attrs)
	}
	if len(n.Children) != 1 || n.Children[0].Kind != KindText {
		t.Errorf("Children = %+v", n.Children)
	}
}

func TestElPanicsOnUnknownArg(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic")
		}
	}()
	El("div", 42)
}

func TestEqualIgnoresIDs(t *testing.T) {
	a := Align(nil, Div(Class("x"), Span("y")), NewIDGenerator())
	b := Div(Class("x"), Span("y"))
	if !Equal(a, b) {
		t.Error("Equal should ignore ids")
	}
	if Equal(a, Div(Class("x"), Span("z"))) {
		t.Error("Equal missed a text change")
	}
	if Equal(Div(On("click", "c1")), Div(On("click", "c2"))) {
		t.Error("Equal missed a handler change")
	}
}

func TestWalkPreOrder(t *testing.T) {
	tree := Div(Span("a"), P("b"))
	var got []string
	Walk(tree, func(n *Node) bool {
		if n.Kind == KindText {
			got = append(got, n.Text)
		} else {
			got = append(got, n.Tag)
		}
		return true
	})
	want := []string{"div", "span", "a", "p", "b"}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("walk order (-want +got):\n%s", d)
	}
}

func TestFindByID(t *testing.T) {
	tree := Align(nil, Div(Span("a"), P("b")), NewIDGenerator())
	if n := FindByID(tree, "h4"); n == nil || n.Tag != "p" {
		t.Errorf("FindByID(h4) = %v", n)
	}
	if FindByID(tree, "h99") != nil {
		t.Error("FindByID found a missing id")
	}
}

func TestIDGeneratorSeedFrom(t *testing.T) {
	gen := NewIDGenerator()
	tree := Align(nil, Div(Class("a"), Span("x")), gen)

	restored := NewIDGenerator()
	restored.SeedFrom(tree)
	if got := restored.Next(); got != "h4" {
		t.Errorf("Next = %v, want h4", got)
	}
	if got := restored.NextAttr(); got != 2 {
		t.Errorf("NextAttr = %v, want 2", got)
	}

	restored.Reset()
	if restored.Current() != 0 {
		t.Error("Reset did not clear the counter")
	}
}

func TestPatchString(t *testing.T) {
	p := Patch{Op: PatchMoveChild, Target: "h3", Parent: "h1", Before: "h2"}
	if got, want := p.String(), `MoveChild(target="h3" parent="h1" before="h2")`; got != want {
		t.Errorf("String = %v, want %v", got, want)
	}
}
