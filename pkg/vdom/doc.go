// Package vdom provides the UI tree model and the reconciliation engine for vdiff.
//
// A Node tree is an immutable snapshot of the UI produced fresh on every render.
// Reconciling two snapshots is a two-step pipeline:
//
//	aligned := vdom.Align(prev, next, gen) // carry stable ids forward
//	patches, err := vdom.Diff(prev, aligned)
//
// # Core Types
//
// Node is a closed sum over four kinds: KindElement, KindText, KindRaw and
// KindEmpty. Attr is a named attribute; an Attr whose Handler is non-nil is an
// event binding. Handlers carry only an opaque correlation token; the callbacks
// themselves live in a HandlerTable.
//
// # Identity
//
// Every node has an ID that is stable for the logical element it represents.
// Only Align assigns ids. Diff never invents identity; it reads ids from both
// trees and every Patch addresses nodes by id, never by index.
//
// # Diffing
//
// Diff compares two trees and returns an ordered slice of Patch operations.
// Children are reconciled positionally unless they carry keys, in which case a
// head/tail skip followed by a longest-increasing-subsequence pass emits the
// minimal number of MoveChild patches.
//
// Malformed input (duplicate attribute names, duplicate or missing keys, an
// unknown node kind) aborts the call; a partial patch list is never returned.
//
// # Pooling
//
// A Differ owns a Pool of scratch slices and maps. A Pool serves one pass at a
// time; starting a second pass on the same Pool while one is in flight fails
// with ErrPoolInUse.
package vdom
