package vdom

import (
	"errors"

	verrors "github.com/vango-dev/vdiff/internal/errors"
)

// Caller defects. Diff, DiffHead and Align's keyed matcher report these wrapped
// in a coded *errors.Error; use errors.Is to test for them.
var (
	ErrDuplicateAttr    = errors.New("vdom: duplicate attribute name")
	ErrDuplicateKey     = errors.New("vdom: duplicate list key")
	ErrMissingKey       = errors.New("vdom: missing list key")
	ErrUnknownKind      = errors.New("vdom: unknown node kind")
	ErrDuplicateHeadKey = errors.New("vdom: duplicate head key")
)

// ErrPoolInUse is returned when a second pass starts on a Pool that is
// already serving one.
var ErrPoolInUse = errors.New("vdom: pool already in use")

func duplicateAttr(n *Node, name string) error {
	return verrors.New("E200").
		AtPath(describe(n)).
		WithDetailf("attribute %q declared more than once", name).
		Wrap(ErrDuplicateAttr)
}

func duplicateKey(parent *Node, key string) error {
	return verrors.New("E201").
		AtPath(describe(parent)).
		WithDetailf("key %q appears more than once among the children", key).
		Wrap(ErrDuplicateKey)
}

func missingKey(parent *Node, index int) error {
	return verrors.New("E202").
		AtPath(describe(parent)).
		WithDetailf("child %d has no key but its siblings are keyed", index).
		Wrap(ErrMissingKey)
}

func unknownKind(n *Node, parent *Node) error {
	e := verrors.New("E203").Wrap(ErrUnknownKind)
	if n == nil {
		return e.AtPath(describe(parent)).WithDetail("nil child node")
	}
	return e.AtPath(describe(n)).WithDetailf("kind %d", n.Kind)
}

func duplicateHeadKey(key string) error {
	return verrors.New("E204").
		AtPath("head").
		WithDetailf("key %q appears more than once", key).
		Wrap(ErrDuplicateHeadKey)
}

// describe renders a short locator such as "ul#h3" for error paths.
func describe(n *Node) string {
	if n == nil {
		return "<nil>"
	}
	label := n.Tag
	if n.Kind != KindElement {
		label = n.Kind.String()
	}
	if n.ID != "" {
		label += "#" + n.ID
	}
	if n.Key != "" {
		label += "[" + n.Key + "]"
	}
	return label
}
