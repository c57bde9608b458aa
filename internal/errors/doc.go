// Package errors provides structured, coded errors for vdiff.
//
// Engine packages return plain sentinel errors (for example vdom.ErrDuplicateKey)
// wrapped in an *Error that carries a stable code, a category, and the tree path
// where the defect was found:
//
//	err := errors.New("E201").
//	    AtPath("html/body/ul").
//	    WithDetail(`key "a" appears at child 0 and child 3`).
//	    Wrap(vdom.ErrDuplicateKey)
//
//	errors.Is(err, vdom.ErrDuplicateKey) // true
//	fmt.Println(err.FormatCompact())
//	// html/body/ul: E201: Duplicate list key
//
// # Error Categories
//
//   - tree: malformed input trees (caller defects, never retried)
//   - protocol: binary batch encode/decode failures
//   - host: patch application failures inside a host
//   - config: configuration file problems
//   - transport: streaming and archive failures
package errors
