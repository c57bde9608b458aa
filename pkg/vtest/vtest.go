package vtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/vdiff/pkg/protocol"
	"github.com/vango-dev/vdiff/pkg/render"
	"github.com/vango-dev/vdiff/pkg/vdom"
)

// Equivalent diffs two aligned trees and checks that applying the result to
// a host showing old yields exactly the markup of next. Both the patch list
// and its binary batch are applied, each to a fresh host.
func Equivalent(old, next *vdom.Node) error {
	patches, err := vdom.Diff(old, next)
	if err != nil {
		return fmt.Errorf("diff: %w", err)
	}
	want := render.Markup(next)

	host, err := hostFor(old)
	if err != nil {
		return err
	}
	if err := host.Apply(patches); err != nil {
		return fmt.Errorf("apply patches: %w\n%s", err, listPatches(patches))
	}
	if got := host.Markup(); got != want {
		return fmt.Errorf("patched document differs from next (-want +got):\n%s\n%s", cmp.Diff(want, got), listPatches(patches))
	}

	buf, err := protocol.EncodeBatch(patches)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	host, err = hostFor(old)
	if err != nil {
		return err
	}
	if err := host.ApplyBatch(buf); err != nil {
		return fmt.Errorf("apply batch: %w", err)
	}
	if got := host.Markup(); got != want {
		return fmt.Errorf("batch result differs from next (-want +got):\n%s", cmp.Diff(want, got))
	}
	return nil
}

func hostFor(old *vdom.Node) (*Host, error) {
	host := NewHost()
	if old == nil {
		return host, nil
	}
	if err := host.Load(render.Markup(old)); err != nil {
		return nil, fmt.Errorf("load old: %w", err)
	}
	return host, nil
}

func listPatches(patches []vdom.Patch) string {
	var b strings.Builder
	for i, p := range patches {
		fmt.Fprintf(&b, "  %3d %s\n", i, p)
	}
	return b.String()
}

// ExpectEquivalent aligns next against old, checks Equivalent and returns
// the aligned tree for the next step.
//
// Example:
//
//	gen := vdom.NewIDGenerator()
//	cur := vtest.ExpectEquivalent(t, gen, nil, Page(0))
//	cur = vtest.ExpectEquivalent(t, gen, cur, Page(1))
func ExpectEquivalent(t testing.TB, gen *vdom.IDGenerator, old, next *vdom.Node) *vdom.Node {
	t.Helper()
	aligned := vdom.Align(old, next, gen)
	if err := Equivalent(old, aligned); err != nil {
		t.Fatalf("not equivalent: %v", err)
	}
	return aligned
}

// RenderToString renders a tree as plain HTML, for assertions that should not
// depend on ids.
func RenderToString(node *vdom.Node) string {
	r := render.NewRenderer(render.RendererConfig{Plain: true})
	html, err := r.RenderToString(node)
	if err != nil {
		return ""
	}
	return html
}

// ExpectContains asserts that rendered output contains expected substring.
func ExpectContains(t testing.TB, node *vdom.Node, expected string) {
	t.Helper()
	html := RenderToString(node)
	if !strings.Contains(html, expected) {
		t.Errorf("expected rendered output to contain %q, got:\n%s", expected, truncate(html, 500))
	}
}

// ExpectNotContains asserts that rendered output does not contain substring.
func ExpectNotContains(t testing.TB, node *vdom.Node, unexpected string) {
	t.Helper()
	html := RenderToString(node)
	if strings.Contains(html, unexpected) {
		t.Errorf("expected rendered output to NOT contain %q, got:\n%s", unexpected, truncate(html, 500))
	}
}

// ExpectOps asserts the operations of a patch list, in order.
//
// Example:
//
//	vtest.ExpectOps(t, patches, vdom.PatchMoveChild, vdom.PatchMoveChild)
func ExpectOps(t testing.TB, patches []vdom.Patch, ops ...vdom.PatchOp) {
	t.Helper()
	got := make([]vdom.PatchOp, len(patches))
	for i, p := range patches {
		got[i] = p.Op
	}
	if diff := cmp.Diff(ops, got); diff != "" {
		t.Errorf("patch operations mismatch (-want +got):\n%s\n%s", diff, listPatches(patches))
	}
}
