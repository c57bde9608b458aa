package vtest

import (
	"maps"
	"slices"
	"strings"

	"github.com/vango-dev/vdiff/pkg/protocol"
	"github.com/vango-dev/vdiff/pkg/render"
	"github.com/vango-dev/vdiff/pkg/vdom"
)

// Host is an in-memory document that applies patch lists the way a browser
// host would. It locates nodes only by the ids carried in wire markup, so a
// patch list that leans on anything the host cannot see fails here too.
//
// After Apply, Markup equals render.Markup of the tree the patches were
// computed for.
//
// A Host is not safe for concurrent use.
type Host struct {
	root   *hostNode
	byID   map[string]*hostNode
	head   map[string]string
	limits protocol.Limits
}

// NewHost creates an empty host.
func NewHost() *Host {
	return &Host{
		byID:   make(map[string]*hostNode),
		head:   make(map[string]string),
		limits: protocol.DefaultLimits(),
	}
}

// SetLimits sets the limits ApplyBatch decodes with.
func (h *Host) SetLimits(l protocol.Limits) {
	h.limits = l
}

// Load replaces the document with the node in markup.
func (h *Host) Load(markup string) error {
	return h.ApplyWire([]protocol.WirePatch{{
		Op:     vdom.PatchAddRoot,
		Fields: [3]protocol.Field{{}, protocol.Some(markup)},
	}})
}

// Apply applies patches in order.
func (h *Host) Apply(patches []vdom.Patch) error {
	wire, err := protocol.Lower(patches)
	if err != nil {
		return err
	}
	return h.ApplyWire(wire)
}

// ApplyBatch decodes a binary batch and applies it.
func (h *Host) ApplyBatch(buf []byte) error {
	wire, err := protocol.DecodeBatchWithLimits(buf, h.limits)
	if err != nil {
		return err
	}
	return h.ApplyWire(wire)
}

// ApplyWire applies decoded patches in order. It stops at the first patch
// that does not apply; earlier patches stay applied.
func (h *Host) ApplyWire(patches []protocol.WirePatch) error {
	for i := range patches {
		if err := h.apply(i, patches[i]); err != nil {
			return err
		}
	}
	return nil
}

// Markup renders the document as wire markup.
func (h *Host) Markup() string {
	if h.root == nil {
		return ""
	}
	return render.Markup(toNode(h.root))
}

// Tree returns a copy of the document as a vdom tree.
func (h *Host) Tree() *vdom.Node {
	if h.root == nil {
		return nil
	}
	return toNode(h.root)
}

// Head returns the head region as key to markup.
func (h *Host) Head() map[string]string {
	return maps.Clone(h.head)
}

// HeadKeys returns the head keys in sorted order.
func (h *Host) HeadKeys() []string {
	return slices.Sorted(maps.Keys(h.head))
}

// Len returns the number of addressable nodes in the document.
func (h *Host) Len() int {
	return len(h.byID)
}

// Has reports whether a node with id is mounted.
func (h *Host) Has(id string) bool {
	_, ok := h.byID[id]
	return ok
}

func (h *Host) apply(i int, w protocol.WirePatch) error {
	get := func(s protocol.Slot) string {
		v, _ := w.Get(s)
		return v
	}

	switch w.Op {
	case vdom.PatchAddRoot:
		n, err := parseOne(get(protocol.SlotMarkup))
		if err != nil {
			return err
		}
		if t := get(protocol.SlotTarget); t != "" && t != n.id {
			return mismatch(i, "root markup carries id %q, patch names %q", n.id, t)
		}
		h.root = nil
		clear(h.byID)
		if err := h.index(i, n); err != nil {
			return err
		}
		h.root = n
		return nil

	case vdom.PatchReplaceChild:
		old, err := h.lookup(i, get(protocol.SlotTarget))
		if err != nil {
			return err
		}
		n, err := parseOne(get(protocol.SlotMarkup))
		if err != nil {
			return err
		}
		if id := get(protocol.SlotNewID); id != n.id {
			return mismatch(i, "replacement carries id %q, patch names %q", n.id, id)
		}
		h.unindex(old)
		if err := h.index(i, n); err != nil {
			return err
		}
		if old.parent == nil {
			h.root = n
			return nil
		}
		p := old.parent
		p.children[slices.Index(p.children, old)] = n
		n.parent = p
		old.parent = nil
		return nil

	case vdom.PatchAddChild, vdom.PatchAddText, vdom.PatchAddRaw:
		parent, err := h.element(i, get(protocol.SlotParent))
		if err != nil {
			return err
		}
		n, err := parseOne(get(protocol.SlotMarkup))
		if err != nil {
			return err
		}
		if want := insertKind(w.Op); want != n.kind && !(w.Op == vdom.PatchAddChild && n.kind == vdom.KindEmpty) {
			return mismatch(i, "%s carries a %s node", w.Op, n.kind)
		}
		at, err := h.position(i, parent, w)
		if err != nil {
			return err
		}
		if err := h.index(i, n); err != nil {
			return err
		}
		n.parent = parent
		parent.children = slices.Insert(parent.children, at, n)
		return nil

	case vdom.PatchRemoveChild, vdom.PatchRemoveText, vdom.PatchRemoveRaw:
		parent, err := h.element(i, get(protocol.SlotParent))
		if err != nil {
			return err
		}
		n, err := h.child(i, parent, get(protocol.SlotTarget))
		if err != nil {
			return err
		}
		if want := insertKind(w.Op); want != n.kind && !(w.Op == vdom.PatchRemoveChild && n.kind == vdom.KindEmpty) {
			return mismatch(i, "%s targets a %s node", w.Op, n.kind)
		}
		h.detach(n)
		h.unindex(n)
		return nil

	case vdom.PatchMoveChild:
		parent, err := h.element(i, get(protocol.SlotParent))
		if err != nil {
			return err
		}
		n, err := h.child(i, parent, get(protocol.SlotTarget))
		if err != nil {
			return err
		}
		if before, _ := w.Get(protocol.SlotBefore); before == n.id {
			return mismatch(i, "node %q moved before itself", before)
		}
		h.detach(n)
		at, err := h.position(i, parent, w)
		if err != nil {
			return err
		}
		n.parent = parent
		parent.children = slices.Insert(parent.children, at, n)
		return nil

	case vdom.PatchClearChildren:
		parent, err := h.element(i, get(protocol.SlotParent))
		if err != nil {
			return err
		}
		h.clearChildren(parent)
		return nil

	case vdom.PatchSetChildrenHtml:
		parent, err := h.element(i, get(protocol.SlotParent))
		if err != nil {
			return err
		}
		nodes, err := parseMarkup(get(protocol.SlotMarkup))
		if err != nil {
			return err
		}
		h.clearChildren(parent)
		for _, n := range nodes {
			if err := h.index(i, n); err != nil {
				return err
			}
			n.parent = parent
		}
		parent.children = nodes
		return nil

	case vdom.PatchAddAttribute, vdom.PatchAddHandler:
		n, err := h.element(i, get(protocol.SlotTarget))
		if err != nil {
			return err
		}
		a, err := wireAttr(w, get)
		if err != nil {
			return err
		}
		if attrIndex(n, a.Name) >= 0 {
			return mismatch(i, "%s already has attribute %q", n.id, a.Name)
		}
		n.attrs = append(n.attrs, a)
		return nil

	case vdom.PatchUpdateAttribute, vdom.PatchUpdateHandler:
		n, err := h.element(i, get(protocol.SlotTarget))
		if err != nil {
			return err
		}
		a, err := wireAttr(w, get)
		if err != nil {
			return err
		}
		j := attrIndex(n, a.Name)
		if j < 0 {
			return mismatch(i, "%s has no attribute %q", n.id, a.Name)
		}
		if (n.attrs[j].Handler != nil) != (a.Handler != nil) {
			return mismatch(i, "%s on %s changes attribute %q between value and handler", w.Op, n.id, a.Name)
		}
		n.attrs[j] = a
		return nil

	case vdom.PatchRemoveAttribute, vdom.PatchRemoveHandler:
		n, err := h.element(i, get(protocol.SlotTarget))
		if err != nil {
			return err
		}
		name := strings.ToLower(get(protocol.SlotName))
		j := attrIndex(n, name)
		if j < 0 {
			return mismatch(i, "%s has no attribute %q", n.id, name)
		}
		if (n.attrs[j].Handler != nil) != (w.Op == vdom.PatchRemoveHandler) {
			return mismatch(i, "%s on %s names attribute %q of the other kind", w.Op, n.id, name)
		}
		n.attrs = slices.Delete(n.attrs, j, j+1)
		return nil

	case vdom.PatchUpdateText:
		n, err := h.lookup(i, get(protocol.SlotTarget))
		if err != nil {
			return err
		}
		if n.kind != vdom.KindText {
			return mismatch(i, "UpdateText targets a %s node", n.kind)
		}
		n.text = get(protocol.SlotValue)
		return h.rename(i, n, get(protocol.SlotNewID))

	case vdom.PatchReplaceRaw, vdom.PatchUpdateRaw:
		n, err := h.lookup(i, get(protocol.SlotTarget))
		if err != nil {
			return err
		}
		if n.kind != vdom.KindRaw {
			return mismatch(i, "%s targets a %s node", w.Op, n.kind)
		}
		n.text = get(protocol.SlotValue)
		if w.Op == vdom.PatchReplaceRaw {
			return h.rename(i, n, get(protocol.SlotNewID))
		}
		return nil

	case vdom.PatchAddHeadElement:
		key := get(protocol.SlotName)
		if _, ok := h.head[key]; ok {
			return mismatch(i, "head key %q already present", key)
		}
		if _, err := parseOne(get(protocol.SlotMarkup)); err != nil {
			return err
		}
		h.head[key] = get(protocol.SlotMarkup)
		return nil

	case vdom.PatchUpdateHeadElement:
		key := get(protocol.SlotName)
		if _, ok := h.head[key]; !ok {
			return targetNotFound(i, "head key %q", key)
		}
		if _, err := parseOne(get(protocol.SlotMarkup)); err != nil {
			return err
		}
		h.head[key] = get(protocol.SlotMarkup)
		return nil

	case vdom.PatchRemoveHeadElement:
		key := get(protocol.SlotName)
		if _, ok := h.head[key]; !ok {
			return targetNotFound(i, "head key %q", key)
		}
		delete(h.head, key)
		return nil
	}
	return mismatch(i, "unsupported operation %s", w.Op)
}

func insertKind(op vdom.PatchOp) vdom.Kind {
	switch op {
	case vdom.PatchAddText, vdom.PatchRemoveText:
		return vdom.KindText
	case vdom.PatchAddRaw, vdom.PatchRemoveRaw:
		return vdom.KindRaw
	}
	return vdom.KindElement
}

func wireAttr(w protocol.WirePatch, get func(protocol.Slot) string) (vdom.Attr, error) {
	a := vdom.Attr{Name: strings.ToLower(get(protocol.SlotName))}
	if payload, ok := w.Get(protocol.SlotHandler); ok {
		hd, err := render.ParseHandlerPayload(payload)
		if err != nil {
			return a, malformedMarkup("handler %q: %v", a.Name, err)
		}
		a.Handler = hd
		return a, nil
	}
	a.Value = get(protocol.SlotValue)
	return a, nil
}

func attrIndex(n *hostNode, name string) int {
	return slices.IndexFunc(n.attrs, func(a vdom.Attr) bool { return a.Name == name })
}

func (h *Host) lookup(i int, id string) (*hostNode, error) {
	n, ok := h.byID[id]
	if !ok {
		return nil, targetNotFound(i, "node %q", id)
	}
	return n, nil
}

func (h *Host) element(i int, id string) (*hostNode, error) {
	n, err := h.lookup(i, id)
	if err != nil {
		return nil, err
	}
	if n.kind != vdom.KindElement {
		return nil, mismatch(i, "node %q is a %s, not an element", id, n.kind)
	}
	return n, nil
}

func (h *Host) child(i int, parent *hostNode, id string) (*hostNode, error) {
	n, err := h.lookup(i, id)
	if err != nil {
		return nil, err
	}
	if n.parent != parent {
		return nil, mismatch(i, "node %q is not a child of %q", id, parent.id)
	}
	return n, nil
}

// position resolves the insertion index for the patch's before field. An
// absent field appends.
func (h *Host) position(i int, parent *hostNode, w protocol.WirePatch) (int, error) {
	before, ok := w.Get(protocol.SlotBefore)
	if !ok {
		return len(parent.children), nil
	}
	anchor, err := h.child(i, parent, before)
	if err != nil {
		return 0, err
	}
	return slices.Index(parent.children, anchor), nil
}

func (h *Host) detach(n *hostNode) {
	p := n.parent
	j := slices.Index(p.children, n)
	p.children = slices.Delete(p.children, j, j+1)
	n.parent = nil
}

func (h *Host) clearChildren(parent *hostNode) {
	for _, c := range parent.children {
		h.unindex(c)
		c.parent = nil
	}
	parent.children = nil
}

func (h *Host) rename(i int, n *hostNode, id string) error {
	if id == "" || id == n.id {
		return nil
	}
	if _, taken := h.byID[id]; taken {
		return mismatch(i, "id %q already mounted", id)
	}
	delete(h.byID, n.id)
	n.id = id
	h.byID[id] = n
	return nil
}

// index registers every id in the subtree at n. A subtree that reuses a
// mounted id is rejected before anything is registered.
func (h *Host) index(i int, n *hostNode) error {
	var ids []string
	seen := make(map[string]bool)
	walk(n, func(c *hostNode) {
		if c.id != "" {
			ids = append(ids, c.id)
		}
	})
	for _, id := range ids {
		if _, taken := h.byID[id]; taken || seen[id] {
			return mismatch(i, "id %q already mounted", id)
		}
		seen[id] = true
	}
	walk(n, func(c *hostNode) {
		if c.id != "" {
			h.byID[c.id] = c
		}
	})
	return nil
}

func (h *Host) unindex(n *hostNode) {
	walk(n, func(c *hostNode) {
		if h.byID[c.id] == c {
			delete(h.byID, c.id)
		}
	})
}

// walk visits the subtree at n in document order without recursion.
func walk(n *hostNode, fn func(*hostNode)) {
	stack := []*hostNode{n}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(c)
		for j := len(c.children) - 1; j >= 0; j-- {
			stack = append(stack, c.children[j])
		}
	}
}
