// Package vtest provides a reference host and testing helpers for patch
// lists.
//
// Host is an in-memory document built from wire markup. It applies patch
// lists, decoded batches or raw batch bytes, addressing nodes only through the
// ids the markup carries, the way a browser host would:
//
//	host := vtest.NewHost()
//	host.Load(render.Markup(old))
//	if err := host.ApplyBatch(buf); err != nil {
//	    // ErrTargetNotFound, ErrPatchMismatch or a protocol error
//	}
//	host.Markup() == render.Markup(next)
//
// # Equivalence
//
// Equivalent and ExpectEquivalent run the whole pipeline for one step and
// compare the patched host against a fresh rendering of the new tree, through
// both the patch list and the binary batch:
//
//	gen := vdom.NewIDGenerator()
//	cur := vtest.ExpectEquivalent(t, gen, nil, Page(0))
//	cur = vtest.ExpectEquivalent(t, gen, cur, Page(1))
//
// Generator produces seeded random trees and mutations of them for property
// tests.
package vtest
