package vdom

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement Kind = iota // <div>, <button>, etc.
	KindText                // Plain text node
	KindRaw                 // Opaque pre-rendered markup
	KindEmpty               // Placeholder with no rendered output
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindRaw:
		return "Raw"
	case KindEmpty:
		return "Empty"
	default:
		return "Unknown"
	}
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k <= KindEmpty
}

// Node is one immutable element of a UI tree snapshot.
type Node struct {
	Kind     Kind    // Node type
	ID       string  // Stable identity, assigned by Align
	Tag      string  // Element tag name (e.g., "div")
	Key      string  // List-identity key
	Attrs    []Attr  // Attributes, unique by Name
	Children []*Node // Child nodes
	Text     string  // For KindText (value) and KindRaw (markup)
}

// Attr is a named attribute. When Handler is set the attribute is an event
// binding and Value is unused.
type Attr struct {
	ID      uint32
	Name    string
	Value   string
	Handler *Handler
}

// IsHandler reports whether the attribute binds an event handler.
func (a Attr) IsHandler() bool {
	return a.Handler != nil
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Name == ""
}

// SameValue compares everything except the attribute id.
func (a Attr) SameValue(b Attr) bool {
	if a.Name != b.Name {
		return false
	}
	if a.Handler != nil || b.Handler != nil {
		return a.Handler.Equal(b.Handler)
	}
	return a.Value == b.Value
}

// Handler is an opaque event binding. The callback it refers to is kept in a
// HandlerTable under Correlation.
type Handler struct {
	Event       string // "click", "input", ...
	Correlation string // Token identifying the callback
	Message     string // Optional static message delivered with the event
	DataType    string // Optional payload type name
	HasFactory  bool   // A data factory is registered for Correlation
}

// Equal reports whether two handlers describe the same binding.
func (h *Handler) Equal(o *Handler) bool {
	if h == nil || o == nil {
		return h == o
	}
	return *h == *o
}

// Attr returns the attribute with the given name.
func (n *Node) Attr(name string) (Attr, bool) {
	if n == nil {
		return Attr{}, false
	}
	for _, a := range n.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attr{}, false
}

// Equal reports whether two trees are structurally identical, ignoring ids.
func Equal(a, b *Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind || a.Tag != b.Tag || a.Key != b.Key || a.Text != b.Text {
		return false
	}
	if len(a.Attrs) != len(b.Attrs) || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Attrs {
		if !a.Attrs[i].SameValue(b.Attrs[i]) {
			return false
		}
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// Walk visits every node in depth-first pre-order. Returning false from fn
// skips the node's children.
func Walk(root *Node, fn func(*Node) bool) {
	if root == nil {
		return
	}
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || !fn(n) {
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// FindByID finds a node by its id in the tree.
func FindByID(root *Node, id string) *Node {
	var found *Node
	Walk(root, func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// CollectIDs returns a map of id to node for all nodes with ids.
func CollectIDs(root *Node) map[string]*Node {
	result := make(map[string]*Node)
	Walk(root, func(n *Node) bool {
		if n.ID != "" {
			result[n.ID] = n
		}
		return true
	})
	return result
}

// Count returns the number of nodes in the tree.
func Count(root *Node) int {
	count := 0
	Walk(root, func(*Node) bool {
		count++
		return true
	})
	return count
}
