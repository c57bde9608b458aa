package vdom

import "testing"

func TestAlignFreshIdentity(t *testing.T) {
	gen := NewIDGenerator()
	tree := Align(nil, Div(Class("a"), Span("x"), Raw("<b/>"), Empty()), gen)

	ids := CollectIDs(tree)
	if len(ids) != Count(tree) {
		t.Fatalf("Expected %d unique ids, got %d", Count(tree), len(ids))
	}
	if tree.ID != "h1" {
		t.Errorf("root ID = %v, want h1", tree.ID)
	}
	if tree.Attrs[0].ID == 0 {
		t.Error("attribute did not get an id")
	}
}

func TestAlignDoesNotMutateInput(t *testing.T) {
	in := Div(Class("a"), Span("x"))
	out := Align(nil, in, NewIDGenerator())
	if in.ID != "" || in.Children[0].ID != "" || in.Attrs[0].ID != 0 {
		t.Error("Align mutated its input")
	}
	if out == in {
		t.Error("Align returned its input for a fresh tree")
	}
}

func TestAlignSameReference(t *testing.T) {
	gen := NewIDGenerator()
	tree := Align(nil, Div(Span("x")), gen)
	if got := Align(tree, tree, gen); got != tree {
		t.Error("Expected the same pointer back")
	}
	if gen.Current() != 3 {
		t.Errorf("Current = %d, want 3", gen.Current())
	}
}

func TestAlignCopiesIDs(t *testing.T) {
	gen := NewIDGenerator()
	old := Align(nil, Div(Class("a"), ID("main"), Span("x")), gen)
	next := Align(old, Div(Class("b"), Href("/"), Span("y")), gen)

	if next.ID != old.ID {
		t.Errorf("root ID = %v, want %v", next.ID, old.ID)
	}
	if next.Attrs[0].ID != old.Attrs[0].ID {
		t.Errorf("class attr ID = %d, want %d", next.Attrs[0].ID, old.Attrs[0].ID)
	}
	if next.Attrs[1].ID == 0 || next.Attrs[1].ID == old.Attrs[1].ID {
		t.Errorf("href attr ID = %d, want a fresh id", next.Attrs[1].ID)
	}
	if next.Children[0].ID != old.Children[0].ID {
		t.Errorf("span ID = %v, want %v", next.Children[0].ID, old.Children[0].ID)
	}
	if next.Children[0].Children[0].ID != old.Children[0].Children[0].ID {
		t.Error("text ID not copied")
	}
}

func TestAlignTagMismatchFreshSubtree(t *testing.T) {
	gen := NewIDGenerator()
	old := Align(nil, Div(Div(Span("x"))), gen)
	next := Align(old, Div(P(Span("x"))), gen)

	oldIDs := CollectIDs(old)
	Walk(next.Children[0], func(n *Node) bool {
		if _, ok := oldIDs[n.ID]; ok {
			t.Errorf("node %s reused an id from a mismatched subtree", describe(n))
		}
		return true
	})
	if next.ID != old.ID {
		t.Error("root identity lost")
	}
}

func TestAlignKeyedFollowsKeys(t *testing.T) {
	gen := NewIDGenerator()
	old := Align(nil, keyedList("a", "b", "c"), gen)
	next := Align(old, keyedList("c", "x", "a"), gen)

	byKey := func(n *Node) map[string]string {
		m := make(map[string]string)
		for _, c := range n.Children {
			m[c.Key] = c.ID
		}
		return m
	}
	o, n := byKey(old), byKey(next)
	if n["a"] != o["a"] || n["c"] != o["c"] {
		t.Errorf("moved keys lost identity: old %v, new %v", o, n)
	}
	if n["x"] == "" || n["x"] == o["b"] {
		t.Errorf("new key x got id %q", n["x"])
	}
}

func TestAlignDuplicateKeysFallBack(t *testing.T) {
	gen := NewIDGenerator()
	old := Align(nil, keyedList("a", "b"), gen)
	next := Align(old, keyedList("a", "a"), gen)

	for _, c := range next.Children {
		if c.ID == old.Children[0].ID || c.ID == old.Children[1].ID {
			t.Errorf("child %s reused an id despite duplicate keys", describe(c))
		}
	}
}

func TestAlignSharesUnchangedSubtrees(t *testing.T) {
	gen := NewIDGenerator()
	old := Align(nil, Div(Span("x"), Span("y")), gen)
	next := Align(old, &Node{Kind: KindElement, Tag: "div", Children: []*Node{old.Children[0], Span("z")}}, gen)

	if next.Children[0] != old.Children[0] {
		t.Error("Expected the reused child pointer to be shared")
	}
	patches := mustDiff(t, old, next)
	if len(patches) != 1 || patches[0].Op != PatchUpdateText {
		t.Errorf("Expected one UpdateText, got %v", patches)
	}
}

func TestAlignBusyPoolFallsBack(t *testing.T) {
	pool := NewPool()
	if err := pool.acquire(); err != nil {
		t.Fatal(err)
	}
	defer pool.release()

	tree := NewDiffer(pool, Options{}).Align(nil, keyedList("a"), NewIDGenerator())
	if tree == nil || tree.ID == "" {
		t.Fatal("Align failed on a busy pool")
	}
}
