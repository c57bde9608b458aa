package vdom

// sameKey reports whether two children carry the same non-empty key.
func sameKey(a, b *Node) bool {
	return a.Key != "" && a.Key == b.Key
}

// diffKeyed reconciles keyed children in three phases: skip the common head,
// skip the common tail, then reconcile the middle with a key index and a
// longest increasing subsequence so that only out-of-order children move.
//
// Work is pushed onto the stack so it pops in this order: head pairs, tail
// pairs, removals, then the middle from its last child to its first. Every
// insert or move in the middle anchors on the following sibling, which by
// then is already in its final place.
func (d *Differ) diffKeyed(old, next *Node) error {
	oc, nc := old.Children, next.Children
	parent := old.ID

	start := 0
	oldEnd, newEnd := len(oc)-1, len(nc)-1
	for start <= oldEnd && start <= newEnd && sameKey(oc[start], nc[start]) {
		start++
	}
	for start <= oldEnd && start <= newEnd && sameKey(oc[oldEnd], nc[newEnd]) {
		oldEnd--
		newEnd--
	}

	// anchor returns the live id of the sibling following new position j.
	anchor := func(j int, src []int) string {
		next := j + 1
		switch {
		case next >= len(nc):
			return ""
		case next > newEnd:
			o := oc[oldEnd+next-newEnd]
			return liveID(o, nc[next])
		case src != nil && src[next-start] >= 0:
			o := oc[src[next-start]]
			return liveID(o, nc[next])
		default:
			return nc[next].ID
		}
	}

	switch {
	case start > newEnd:
		// Only removals left in the middle.
		from := len(d.deferred)
		for i := start; i <= oldEnd; i++ {
			d.deferred = append(d.deferred, removePatch(parent, oc[i]))
		}
		d.pushEmit(from)

	case start > oldEnd:
		// Only insertions left in the middle.
		before := anchor(newEnd, nil)
		from := len(d.deferred)
		for j := start; j <= newEnd; j++ {
			if err := d.validateSubtree(nc[j]); err != nil {
				return err
			}
			d.deferred = append(d.deferred, insertPatch(parent, nc[j], before))
		}
		d.pushEmit(from)

	default:
		if err := d.reconcileMiddle(old, next, start, oldEnd, newEnd, anchor); err != nil {
			return err
		}
	}

	for j := len(nc) - 1; j > newEnd; j-- {
		d.push(oc[oldEnd+j-newEnd], nc[j], parent)
	}
	for j := start - 1; j >= 0; j-- {
		d.push(oc[j], nc[j], parent)
	}
	return nil
}

// reconcileMiddle handles oc[start:oldEnd+1] against nc[start:newEnd+1],
// both non-empty.
func (d *Differ) reconcileMiddle(old, next *Node, start, oldEnd, newEnd int, anchor func(int, []int) string) error {
	oc, nc := old.Children, next.Children
	parent := old.ID
	oldLen := oldEnd - start + 1
	newLen := newEnd - start + 1

	d.pool.stats.KeyIndexBuilds++
	keyIndex := d.pool.rentMap(oldLen)
	defer d.pool.returnMap(keyIndex)
	for i := start; i <= oldEnd; i++ {
		if oc[i].Key != "" {
			keyIndex.Put(oc[i].Key, i)
		}
	}

	// src[k] is the old index reused by new position start+k, or -1.
	src := d.pool.rentInts(newLen)
	defer d.pool.returnInts(src)
	used := d.pool.rentInts(oldLen)
	defer d.pool.returnInts(used)

	for k := range src {
		src[k] = -1
		c := nc[start+k]
		if c.Key == "" {
			continue
		}
		if i, ok := keyIndex.Get(c.Key); ok {
			src[k] = i
			used[i-start] = 1
		}
	}

	inLIS := d.pool.rentInts(newLen)
	defer d.pool.returnInts(inLIS)
	d.pool.markLIS(src, inLIS)

	// Stack is LIFO: push the middle first-to-last so it pops last-to-first,
	// then the removals so they pop before any of it.
	for k := 0; k < newLen; k++ {
		j := start + k
		before := anchor(j, src)
		from := len(d.deferred)

		if src[k] < 0 {
			if err := d.validateSubtree(nc[j]); err != nil {
				return err
			}
			d.deferred = append(d.deferred, insertPatch(parent, nc[j], before))
			d.pushEmit(from)
			continue
		}

		o := oc[src[k]]
		d.push(o, nc[j], parent)
		if inLIS[k] == 0 {
			d.deferred = append(d.deferred, Patch{
				Op:     PatchMoveChild,
				Target: o.ID,
				Parent: parent,
				Before: before,
			})
			d.pushEmit(from)
		}
	}

	from := len(d.deferred)
	for i := start; i <= oldEnd; i++ {
		if used[i-start] == 0 {
			d.deferred = append(d.deferred, removePatch(parent, oc[i]))
		}
	}
	d.pushEmit(from)
	return nil
}
