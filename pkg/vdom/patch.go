package vdom

import (
	"fmt"
	"strings"
)

// PatchOp is the type of patch operation. The numeric values are the wire
// ordinals of the binary batch format and must not be reordered.
type PatchOp uint8

const (
	PatchAddRoot           PatchOp = iota // Mount the whole document
	PatchReplaceChild                     // Tear down Target, mount Node in its place
	PatchAddChild                         // Insert element Node under Parent before Before
	PatchRemoveChild                      // Remove element Target from Parent
	PatchMoveChild                        // Move Target under Parent before Before
	PatchClearChildren                    // Remove every child of Parent
	PatchSetChildrenHtml                  // Replace Parent's children with Nodes in bulk
	PatchAddAttribute                     // Add attribute Name=Value on Target
	PatchUpdateAttribute                  // Change attribute Name on Target
	PatchRemoveAttribute                  // Remove attribute Name from Target
	PatchAddHandler                       // Bind Handler as Name on Target
	PatchUpdateHandler                    // Rebind Name on Target
	PatchRemoveHandler                    // Unbind Name on Target
	PatchUpdateText                       // Set text of Target to Value, id becomes NewID
	PatchAddText                          // Insert text node Node under Parent before Before
	PatchRemoveText                       // Remove text node Target from Parent
	PatchAddRaw                           // Insert raw markup Node under Parent before Before
	PatchRemoveRaw                        // Remove raw node Target from Parent
	PatchReplaceRaw                       // Replace raw node Target with markup Value as NewID
	PatchUpdateRaw                        // Replace markup of raw node Target with Value
	PatchAddHeadElement                   // Add head element Node under key Name
	PatchUpdateHeadElement                // Replace head element under key Name with Node
	PatchRemoveHeadElement                // Remove head element under key Name

	patchOpCount
)

var patchOpNames = [patchOpCount]string{
	PatchAddRoot:           "AddRoot",
	PatchReplaceChild:      "ReplaceChild",
	PatchAddChild:          "AddChild",
	PatchRemoveChild:       "RemoveChild",
	PatchMoveChild:         "MoveChild",
	PatchClearChildren:     "ClearChildren",
	PatchSetChildrenHtml:   "SetChildrenHtml",
	PatchAddAttribute:      "AddAttribute",
	PatchUpdateAttribute:   "UpdateAttribute",
	PatchRemoveAttribute:   "RemoveAttribute",
	PatchAddHandler:        "AddHandler",
	PatchUpdateHandler:     "UpdateHandler",
	PatchRemoveHandler:     "RemoveHandler",
	PatchUpdateText:        "UpdateText",
	PatchAddText:           "AddText",
	PatchRemoveText:        "RemoveText",
	PatchAddRaw:            "AddRaw",
	PatchRemoveRaw:         "RemoveRaw",
	PatchReplaceRaw:        "ReplaceRaw",
	PatchUpdateRaw:         "UpdateRaw",
	PatchAddHeadElement:    "AddHeadElement",
	PatchUpdateHeadElement: "UpdateHeadElement",
	PatchRemoveHeadElement: "RemoveHeadElement",
}

// String returns the string representation of the PatchOp.
func (op PatchOp) String() string {
	if op.Valid() {
		return patchOpNames[op]
	}
	return "Unknown"
}

// Valid reports whether op is part of the closed patch vocabulary.
func (op PatchOp) Valid() bool {
	return op < patchOpCount
}

// PatchOps returns every patch operation in wire order.
func PatchOps() []PatchOp {
	ops := make([]PatchOp, patchOpCount)
	for i := range ops {
		ops[i] = PatchOp(i)
	}
	return ops
}

// Patch is a single host-applicable mutation. Which fields are meaningful
// depends on Op; see the PatchOp constants.
type Patch struct {
	Op      PatchOp
	Target  string   // Node the patch acts on
	Parent  string   // Parent element for child operations
	Before  string   // Anchor sibling for inserts and moves; "" appends
	Name    string   // Attribute name, or head key
	Value   string   // Attribute value, text, or raw markup
	NewID   string   // Id the target carries after UpdateText/ReplaceRaw
	Node    *Node    // Subtree for AddRoot, ReplaceChild, Add*, head patches
	Nodes   []*Node  // Children for SetChildrenHtml
	Handler *Handler // Binding for AddHandler/UpdateHandler
}

// String returns a compact human-readable form, used by the CLI and tests.
func (p Patch) String() string {
	var b strings.Builder
	b.WriteString(p.Op.String())
	b.WriteByte('(')
	sep := ""
	field := func(name, v string) {
		if v == "" {
			return
		}
		fmt.Fprintf(&b, "%s%s=%q", sep, name, v)
		sep = " "
	}
	field("target", p.Target)
	field("parent", p.Parent)
	field("before", p.Before)
	field("name", p.Name)
	field("value", p.Value)
	field("newID", p.NewID)
	if p.Node != nil {
		field("node", p.Node.ID)
	}
	if len(p.Nodes) > 0 {
		fmt.Fprintf(&b, "%snodes=%d", sep, len(p.Nodes))
		sep = " "
	}
	if p.Handler != nil {
		field("handler", p.Handler.Event+"/"+p.Handler.Correlation)
	}
	b.WriteByte(')')
	return b.String()
}

// CountOps tallies patches by operation.
func CountOps(patches []Patch) map[PatchOp]int {
	counts := make(map[PatchOp]int)
	for _, p := range patches {
		counts[p.Op]++
	}
	return counts
}
