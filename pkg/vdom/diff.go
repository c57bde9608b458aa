package vdom

// Options configures a Differ.
type Options struct {
	// BulkInsertThreshold makes an empty child list that gains at least this
	// many children emit a single SetChildrenHtml instead of one insert per
	// child. Zero disables bulk inserts.
	BulkInsertThreshold int
}

// frame is one unit of work on the explicit traversal stack: either diff a
// node pair, or flush a range of deferred patches once the pairs pushed
// above it (and their subtrees) are done.
type frame struct {
	old, new *Node
	parent   string
	emit     bool
	from, to int
}

// Differ computes patch lists. A Differ is not safe for concurrent use.
type Differ struct {
	opts Options
	pool *Pool

	out      []Patch
	deferred []Patch
	stack    []frame
}

// NewDiffer creates a Differ that rents scratch space from pool. A nil pool
// gets a private one.
func NewDiffer(pool *Pool, opts Options) *Differ {
	if pool == nil {
		pool = NewPool()
	}
	return &Differ{opts: opts, pool: pool}
}

// Pool returns the Differ's pool.
func (d *Differ) Pool() *Pool {
	return d.pool
}

// Diff compares two trees and returns the patches needed to transform a
// rendering of old into one of next. A nil old yields a single AddRoot.
func Diff(old, next *Node) ([]Patch, error) {
	return NewDiffer(nil, Options{}).Diff(old, next)
}

// Diff compares two trees using the Differ's pool and options.
func (d *Differ) Diff(old, next *Node) ([]Patch, error) {
	return d.AppendDiff(nil, old, next)
}

// AppendDiff appends the patches for (old, next) to dst. On error dst is
// returned unchanged: partial patch lists are never exposed.
func (d *Differ) AppendDiff(dst []Patch, old, next *Node) ([]Patch, error) {
	// Same allocation reused unchanged.
	if old == next {
		return dst, nil
	}
	if next == nil {
		return dst, unknownKind(nil, old)
	}
	if err := d.pool.acquire(); err != nil {
		return dst, err
	}
	defer d.pool.release()

	d.out = d.pool.rentPatches()
	d.deferred = d.pool.rentPatches()
	d.stack = d.pool.rentFrames()
	defer func() {
		d.pool.returnPatches(d.out)
		d.pool.returnPatches(d.deferred)
		d.pool.returnFrames(d.stack)
		d.out, d.deferred, d.stack = nil, nil, nil
	}()

	if old == nil {
		if err := d.validateSubtree(next); err != nil {
			return dst, err
		}
		d.out = append(d.out, Patch{Op: PatchAddRoot, Target: next.ID, Node: next})
	} else {
		d.stack = append(d.stack, frame{old: old, new: next})
		if err := d.run(); err != nil {
			return dst, err
		}
	}

	return append(dst, d.out...), nil
}

// run drains the work stack. Pairs are pushed in reverse so they pop in
// document order, which makes the emission order identical to a recursive
// depth-first walk.
func (d *Differ) run() error {
	for len(d.stack) > 0 {
		f := d.stack[len(d.stack)-1]
		d.stack = d.stack[:len(d.stack)-1]

		if f.emit {
			d.out = append(d.out, d.deferred[f.from:f.to]...)
			continue
		}
		if err := d.diffNode(f.old, f.new, f.parent); err != nil {
			return err
		}
	}
	return nil
}

func (d *Differ) push(old, next *Node, parent string) {
	d.stack = append(d.stack, frame{old: old, new: next, parent: parent})
}

// pushEmit schedules deferred[from:] to be flushed after everything pushed
// later has been processed.
func (d *Differ) pushEmit(from int) {
	if len(d.deferred) > from {
		d.stack = append(d.stack, frame{emit: true, from: from, to: len(d.deferred)})
	}
}

// compatible reports whether next can be patched in place of old.
func compatible(old, next *Node) bool {
	if old.Kind != next.Kind {
		return false
	}
	return old.Kind != KindElement || old.Tag == next.Tag
}

// liveID is the id a pair's node carries once the pair has been diffed.
func liveID(old, next *Node) string {
	if compatible(old, next) {
		return old.ID
	}
	return next.ID
}

// diffNode compares one node pair.
func (d *Differ) diffNode(old, next *Node, parent string) error {
	if old == next {
		return nil
	}
	if !old.Kind.Valid() {
		return unknownKind(old, nil)
	}
	if !next.Kind.Valid() {
		return unknownKind(next, nil)
	}

	if !compatible(old, next) {
		if err := d.validateSubtree(next); err != nil {
			return err
		}
		d.out = append(d.out, Patch{
			Op:     PatchReplaceChild,
			Target: old.ID,
			Parent: parent,
			NewID:  next.ID,
			Node:   next,
		})
		return nil
	}

	switch old.Kind {
	case KindText:
		if old.Text != next.Text {
			d.out = append(d.out, Patch{
				Op:     PatchUpdateText,
				Target: old.ID,
				Value:  next.Text,
				NewID:  next.ID,
			})
		}
	case KindRaw:
		switch {
		case old.Text == next.Text:
		case old.ID == next.ID:
			d.out = append(d.out, Patch{Op: PatchUpdateRaw, Target: old.ID, Value: next.Text})
		default:
			d.out = append(d.out, Patch{
				Op:     PatchReplaceRaw,
				Target: old.ID,
				Parent: parent,
				Value:  next.Text,
				NewID:  next.ID,
			})
		}
	case KindEmpty:
	case KindElement:
		if err := d.diffAttrs(old, next); err != nil {
			return err
		}
		return d.diffChildren(old, next)
	default:
		return unknownKind(old, nil)
	}
	return nil
}

// diffAttrs compares attributes by name. Reordering alone emits nothing.
func (d *Differ) diffAttrs(old, next *Node) error {
	oa, na := old.Attrs, next.Attrs
	if len(oa) == 0 && len(na) == 0 {
		return nil
	}

	byName := d.pool.rentMap(len(oa))
	defer d.pool.returnMap(byName)
	for i, a := range oa {
		if byName.Has(a.Name) {
			return duplicateAttr(old, a.Name)
		}
		byName.Put(a.Name, i)
	}

	seen := d.pool.rentMap(len(na))
	defer d.pool.returnMap(seen)
	consumed := d.pool.rentInts(len(oa))
	defer d.pool.returnInts(consumed)

	target := old.ID
	for _, a := range na {
		if seen.Has(a.Name) {
			return duplicateAttr(next, a.Name)
		}
		seen.Put(a.Name, 0)

		i, ok := byName.Get(a.Name)
		if !ok {
			d.out = append(d.out, addAttrPatch(target, a))
			continue
		}
		consumed[i] = 1
		prev := oa[i]
		if prev.SameValue(a) {
			continue
		}
		switch {
		case prev.Handler != nil && a.Handler != nil:
			d.out = append(d.out, Patch{Op: PatchUpdateHandler, Target: target, Name: a.Name, Handler: a.Handler})
		case prev.Handler == nil && a.Handler == nil:
			d.out = append(d.out, Patch{Op: PatchUpdateAttribute, Target: target, Name: a.Name, Value: a.Value})
		default:
			d.out = append(d.out, removeAttrPatch(target, prev), addAttrPatch(target, a))
		}
	}

	for i, a := range oa {
		if consumed[i] == 0 {
			d.out = append(d.out, removeAttrPatch(target, a))
		}
	}
	return nil
}

func addAttrPatch(target string, a Attr) Patch {
	if a.Handler != nil {
		return Patch{Op: PatchAddHandler, Target: target, Name: a.Name, Handler: a.Handler}
	}
	return Patch{Op: PatchAddAttribute, Target: target, Name: a.Name, Value: a.Value}
}

func removeAttrPatch(target string, a Attr) Patch {
	if a.Handler != nil {
		return Patch{Op: PatchRemoveHandler, Target: target, Name: a.Name}
	}
	return Patch{Op: PatchRemoveAttribute, Target: target, Name: a.Name}
}

// insertPatch mounts child under parent before the sibling with id before.
func insertPatch(parent string, child *Node, before string) Patch {
	op := PatchAddChild
	switch child.Kind {
	case KindText:
		op = PatchAddText
	case KindRaw:
		op = PatchAddRaw
	}
	return Patch{Op: op, Target: child.ID, Parent: parent, Before: before, Node: child}
}

func removePatch(parent string, child *Node) Patch {
	op := PatchRemoveChild
	switch child.Kind {
	case KindText:
		op = PatchRemoveText
	case KindRaw:
		op = PatchRemoveRaw
	}
	return Patch{Op: op, Target: child.ID, Parent: parent}
}

// diffChildren dispatches to the fast paths, the positional path or the
// keyed path.
func (d *Differ) diffChildren(old, next *Node) error {
	oc, nc := old.Children, next.Children
	parent := old.ID

	if len(nc) == 0 {
		if len(oc) > 0 {
			d.out = append(d.out, Patch{Op: PatchClearChildren, Parent: parent})
		}
		return nil
	}

	if len(oc) == 0 {
		return d.appendChildren(next, parent)
	}

	oldKeyed, err := d.checkKeys(old, oc)
	if err != nil {
		return err
	}
	newKeyed, err := d.checkKeys(next, nc)
	if err != nil {
		return err
	}
	if oldKeyed || newKeyed {
		return d.diffKeyed(old, next)
	}
	return d.diffUnkeyed(old, next)
}

// appendChildren is the empty-to-populated path: no key index, one insert per
// child in order, or a single bulk SetChildrenHtml.
func (d *Differ) appendChildren(next *Node, parent string) error {
	nc := next.Children
	if _, err := d.checkKeys(next, nc); err != nil {
		return err
	}
	for _, c := range nc {
		if err := d.validateSubtree(c); err != nil {
			return err
		}
	}

	if d.opts.BulkInsertThreshold > 0 && len(nc) >= d.opts.BulkInsertThreshold {
		d.out = append(d.out, Patch{Op: PatchSetChildrenHtml, Parent: parent, Nodes: nc})
		return nil
	}
	for _, c := range nc {
		d.out = append(d.out, insertPatch(parent, c, ""))
	}
	return nil
}

// diffUnkeyed matches children by position.
func (d *Differ) diffUnkeyed(old, next *Node) error {
	oc, nc := old.Children, next.Children
	parent := old.ID
	common := min(len(oc), len(nc))

	from := len(d.deferred)
	for i := common; i < len(nc); i++ {
		if err := d.validateSubtree(nc[i]); err != nil {
			return err
		}
		d.deferred = append(d.deferred, insertPatch(parent, nc[i], ""))
	}
	// From the end so remaining indices stay put for index-based hosts.
	for i := len(oc) - 1; i >= common; i-- {
		d.deferred = append(d.deferred, removePatch(parent, oc[i]))
	}
	d.pushEmit(from)

	for i := common - 1; i >= 0; i-- {
		d.push(oc[i], nc[i], parent)
	}
	return nil
}

// checkKeys reports whether children form a keyed list and enforces that a
// keyed list keys every child exactly once.
func (d *Differ) checkKeys(parent *Node, children []*Node) (bool, error) {
	keyed := false
	for _, c := range children {
		if c == nil {
			return false, unknownKind(nil, parent)
		}
		if c.Key != "" {
			keyed = true
		}
	}
	if !keyed {
		return false, nil
	}

	seen := d.pool.rentMap(len(children))
	defer d.pool.returnMap(seen)
	for i, c := range children {
		if c.Key == "" {
			return true, missingKey(parent, i)
		}
		if seen.Has(c.Key) {
			return true, duplicateKey(parent, c.Key)
		}
		seen.Put(c.Key, i)
	}
	return true, nil
}

// validateSubtree checks a subtree that is about to be mounted whole. Its
// nodes are never diffed, so this is the only place their defects surface.
func (d *Differ) validateSubtree(root *Node) error {
	if root == nil {
		return unknownKind(nil, nil)
	}
	base := len(d.stack)
	d.stack = append(d.stack, frame{new: root})
	defer func() { d.stack = d.stack[:base] }()

	for len(d.stack) > base {
		n := d.stack[len(d.stack)-1].new
		d.stack = d.stack[:len(d.stack)-1]

		if !n.Kind.Valid() {
			return unknownKind(n, nil)
		}
		if n.Kind != KindElement {
			continue
		}
		if err := d.checkAttrs(n); err != nil {
			return err
		}
		if _, err := d.checkKeys(n, n.Children); err != nil {
			return err
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			d.stack = append(d.stack, frame{new: n.Children[i]})
		}
	}
	return nil
}

func (d *Differ) checkAttrs(n *Node) error {
	if len(n.Attrs) < 2 {
		return nil
	}
	seen := d.pool.rentMap(len(n.Attrs))
	defer d.pool.returnMap(seen)
	for _, a := range n.Attrs {
		if seen.Has(a.Name) {
			return duplicateAttr(n, a.Name)
		}
		seen.Put(a.Name, 0)
	}
	return nil
}
