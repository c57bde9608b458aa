package vdom

import (
	"github.com/dolthub/swiss"

	verrors "github.com/vango-dev/vdiff/internal/errors"
)

// HeadEntry is one element of the document head, addressed by a stable key
// instead of a node id.
type HeadEntry struct {
	Key  string
	Node *Node
}

// DiffHead compares two head regions. Removals come first in old order, then
// additions and updates in new order. Entries whose markup is structurally
// unchanged emit nothing.
func DiffHead(old, next []HeadEntry) ([]Patch, error) {
	return NewDiffer(nil, Options{}).DiffHead(old, next)
}

// DiffHead is the package-level DiffHead using the Differ's pool.
func (d *Differ) DiffHead(old, next []HeadEntry) ([]Patch, error) {
	if err := d.pool.acquire(); err != nil {
		return nil, err
	}
	defer d.pool.release()

	oldIndex := d.pool.rentMap(len(old))
	defer d.pool.returnMap(oldIndex)
	for i, e := range old {
		if err := d.checkHeadEntry(e, oldIndex); err != nil {
			return nil, err
		}
		oldIndex.Put(e.Key, i)
	}

	newIndex := d.pool.rentMap(len(next))
	defer d.pool.returnMap(newIndex)
	for i, e := range next {
		if err := d.checkHeadEntry(e, newIndex); err != nil {
			return nil, err
		}
		newIndex.Put(e.Key, i)
	}

	var out []Patch
	for _, e := range old {
		if !newIndex.Has(e.Key) {
			out = append(out, Patch{Op: PatchRemoveHeadElement, Name: e.Key})
		}
	}
	for _, e := range next {
		i, ok := oldIndex.Get(e.Key)
		switch {
		case !ok:
			out = append(out, Patch{Op: PatchAddHeadElement, Name: e.Key, Node: e.Node})
		case !Equal(old[i].Node, e.Node):
			out = append(out, Patch{Op: PatchUpdateHeadElement, Name: e.Key, Node: e.Node})
		}
	}
	return out, nil
}

func (d *Differ) checkHeadEntry(e HeadEntry, seen *swiss.Map[string, int]) error {
	if e.Key == "" {
		return verrors.New("E202").
			AtPath("head").
			WithDetail("head entry without a key").
			Wrap(ErrMissingKey)
	}
	if seen.Has(e.Key) {
		return duplicateHeadKey(e.Key)
	}
	if e.Node == nil {
		return unknownKind(nil, nil)
	}

	d.stack = d.pool.rentFrames()
	defer func() {
		d.pool.returnFrames(d.stack)
		d.stack = nil
	}()
	return d.validateSubtree(e.Node)
}
