package vdom

type alignFrame struct {
	old *Node // counterpart in the previous tree, nil for fresh identity
	src *Node // node from the newly built tree
	dst *Node // copy being filled in
}

// Align returns a copy of next in which every node that corresponds to a node
// of old carries that node's id, and every other node carries a fresh id from
// gen. Attributes present under the same name on corresponding elements keep
// their attribute id. Align never fails; anything it cannot match gets fresh
// identity.
func Align(old, next *Node, gen *IDGenerator) *Node {
	return NewDiffer(nil, Options{}).Align(old, next, gen)
}

// Align is the package-level Align using the Differ's pool. If the pool is
// busy it falls back to a private one.
//
// Correspondence rules:
//   - same pointer: the subtree is shared as is;
//   - same kind (and same tag for elements): the id is copied;
//   - children of elements match by position, or by key when either list is
//     keyed, so moved keyed children keep their identity;
//   - anything else starts a fresh-identity subtree.
func (d *Differ) Align(old, next *Node, gen *IDGenerator) *Node {
	if next == nil {
		return nil
	}
	if old == next {
		return next
	}

	p := d.pool
	if err := p.acquire(); err != nil {
		p = NewPool()
		_ = p.acquire()
	}
	defer p.release()

	if old != nil && !compatible(old, next) {
		old = nil
	}

	root := shallowCopy(next)
	stack := []alignFrame{{old: old, src: next, dst: root}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		assignIdentity(f.old, f.src, f.dst, gen)

		if len(f.src.Children) == 0 {
			continue
		}
		counterparts := p.matchChildren(f.old, f.src)
		f.dst.Children = make([]*Node, len(f.src.Children))
		for i := len(f.src.Children) - 1; i >= 0; i-- {
			c := f.src.Children[i]
			if c == nil {
				continue
			}
			var o *Node
			if counterparts != nil {
				o = counterparts[i]
			}
			if o != nil && o == c {
				f.dst.Children[i] = c
				continue
			}
			if o != nil && !compatible(o, c) {
				o = nil
			}
			cp := shallowCopy(c)
			f.dst.Children[i] = cp
			stack = append(stack, alignFrame{old: o, src: c, dst: cp})
		}
	}
	return root
}

func shallowCopy(n *Node) *Node {
	cp := *n
	cp.Children = nil
	if n.Attrs != nil {
		cp.Attrs = make([]Attr, len(n.Attrs))
		copy(cp.Attrs, n.Attrs)
	}
	return &cp
}

// assignIdentity sets the ids of dst (a copy of src) from old, or fresh ones.
func assignIdentity(old, src, dst *Node, gen *IDGenerator) {
	if old == nil {
		dst.ID = gen.Next()
		for i := range dst.Attrs {
			dst.Attrs[i].ID = gen.NextAttr()
		}
		return
	}

	dst.ID = old.ID
	for i := range dst.Attrs {
		dst.Attrs[i].ID = 0
		for _, oa := range old.Attrs {
			if oa.Name == dst.Attrs[i].Name {
				dst.Attrs[i].ID = oa.ID
				break
			}
		}
		if dst.Attrs[i].ID == 0 {
			dst.Attrs[i].ID = gen.NextAttr()
		}
	}
}

// matchChildren returns, for each child of next, its counterpart among the
// children of old, or nil if there is none. A nil result means no child has
// a counterpart.
func (p *Pool) matchChildren(old, next *Node) []*Node {
	if old == nil || len(old.Children) == 0 {
		return nil
	}
	oc, nc := old.Children, next.Children
	out := make([]*Node, len(nc))

	if !anyKeyed(oc) && !anyKeyed(nc) {
		for i := range nc {
			if i < len(oc) {
				out[i] = oc[i]
			}
		}
		return out
	}

	keyIndex := p.rentMap(len(oc))
	defer p.returnMap(keyIndex)
	for i, c := range oc {
		if c == nil || c.Key == "" {
			continue
		}
		if keyIndex.Has(c.Key) {
			// Duplicate keys: Diff reports the defect; alignment degrades
			// to fresh identity for the list.
			return nil
		}
		keyIndex.Put(c.Key, i)
	}

	claimed := p.rentInts(len(oc))
	defer p.returnInts(claimed)
	for j, c := range nc {
		if c == nil || c.Key == "" {
			continue
		}
		i, ok := keyIndex.Get(c.Key)
		if !ok {
			continue
		}
		if claimed[i] != 0 {
			return nil
		}
		claimed[i] = 1
		out[j] = oc[i]
	}
	return out
}

func anyKeyed(children []*Node) bool {
	for _, c := range children {
		if c != nil && c.Key != "" {
			return true
		}
	}
	return false
}
