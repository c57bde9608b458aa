package vdom

import "fmt"

// voidElements are elements that cannot have children.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoidElement returns true if the tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[tag]
}

// El creates an element node.
// Arguments can be: nil, Attr, []Attr, *Node, []*Node, string (text child).
// A Key attribute sets the node's list key instead of adding an attribute.
func El(tag string, args ...any) *Node {
	node := &Node{
		Kind: KindElement,
		Tag:  tag,
	}

	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			// Ignore nil (allows conditional attributes)
			continue
		case Attr:
			node.addAttr(v)
		case []Attr:
			for _, a := range v {
				node.addAttr(a)
			}
		case *Node:
			if v != nil {
				node.Children = append(node.Children, v)
			}
		case []*Node:
			for _, c := range v {
				if c != nil {
					node.Children = append(node.Children, c)
				}
			}
		case string:
			node.Children = append(node.Children, Text(v))
		default:
			panic(fmt.Sprintf("vdom: unsupported element argument %T", arg))
		}
	}

	return node
}

func (n *Node) addAttr(a Attr) {
	if a.IsEmpty() {
		return
	}
	if a.Name == keyAttrName && a.Handler == nil {
		n.Key = a.Value
		return
	}
	n.Attrs = append(n.Attrs, a)
}

// Text creates a text node.
func Text(content string) *Node {
	return &Node{
		Kind: KindText,
		Text: content,
	}
}

// Textf creates a formatted text node.
func Textf(format string, args ...any) *Node {
	return Text(fmt.Sprintf(format, args...))
}

// Raw creates an opaque markup node. The markup is never escaped or parsed.
func Raw(html string) *Node {
	return &Node{
		Kind: KindRaw,
		Text: html,
	}
}

// Empty creates a placeholder node with no rendered output.
func Empty() *Node {
	return &Node{Kind: KindEmpty}
}

// Keyed returns n with its list key set. It is a convenience for text, raw
// and empty nodes, which cannot take a Key attribute.
func Keyed(key string, n *Node) *Node {
	n.Key = key
	return n
}

// Common elements.

func Div(args ...any) *Node    { return El("div", args...) }
func Span(args ...any) *Node   { return El("span", args...) }
func P(args ...any) *Node      { return El("p", args...) }
func Ul(args ...any) *Node     { return El("ul", args...) }
func Li(args ...any) *Node     { return El("li", args...) }
func Button(args ...any) *Node { return El("button", args...) }
func Input(args ...any) *Node  { return El("input", args...) }
func Title(args ...any) *Node  { return El("title", args...) }
func Meta(args ...any) *Node   { return El("meta", args...) }
