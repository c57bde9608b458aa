package vtest

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/vango-dev/vdiff/pkg/render"
	"github.com/vango-dev/vdiff/pkg/vdom"
)

// hostNode is one node of the live document.
type hostNode struct {
	kind     vdom.Kind
	id       string
	tag      string
	text     string
	attrs    []vdom.Attr
	parent   *hostNode
	children []*hostNode
}

// parseMarkup reads wire markup into detached nodes.
//
// The tokenizer is used instead of html.Parse because wire markup is a
// fragment whose shape must survive as written; the tree builder would move
// nodes around. Every start tag is followed by NextIsNotRawText so markers
// inside title, textarea or script are still seen as comments.
func parseMarkup(markup string) ([]*hostNode, error) {
	z := html.NewTokenizer(strings.NewReader(markup))
	top := &hostNode{kind: vdom.KindElement}
	stack := []*hostNode{top}

	// open is the text or raw node whose content is being read.
	var open *hostNode
	var raw []byte

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if !errors.Is(z.Err(), io.EOF) {
				return nil, malformedMarkup("%v", z.Err())
			}
			break
		}

		if open != nil && open.kind == vdom.KindRaw {
			if tt == html.CommentToken && string(z.Text()) == render.RawEndMarker {
				open.text = string(raw)
				open, raw = nil, raw[:0]
				continue
			}
			raw = append(raw, z.Raw()...)
			if tt == html.StartTagToken {
				z.NextIsNotRawText()
			}
			continue
		}

		switch tt {
		case html.TextToken:
			if open == nil {
				return nil, malformedMarkup("text %q outside a text marker", truncate(string(z.Raw()), 40))
			}
			open.text += string(z.Text())

		case html.CommentToken:
			body := string(z.Text())
			if open != nil {
				if body != render.TextEndMarker {
					return nil, malformedMarkup("comment %q inside text node %s", body, open.id)
				}
				open = nil
				continue
			}
			n, err := markerNode(body)
			if err != nil {
				return nil, err
			}
			appendChild(stack[len(stack)-1], n)
			if n.kind != vdom.KindEmpty {
				open = n
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			if open != nil {
				return nil, malformedMarkup("element inside text node %s", open.id)
			}
			tok := z.Token()
			if tt == html.StartTagToken {
				z.NextIsNotRawText()
			}
			n, err := elementNode(tok)
			if err != nil {
				return nil, err
			}
			appendChild(stack[len(stack)-1], n)
			if tt == html.StartTagToken && !vdom.IsVoidElement(n.tag) {
				stack = append(stack, n)
			}

		case html.EndTagToken:
			if open != nil {
				return nil, malformedMarkup("end tag inside text node %s", open.id)
			}
			name, _ := z.TagName()
			if len(stack) == 1 || stack[len(stack)-1].tag != string(name) {
				return nil, malformedMarkup("unexpected </%s>", name)
			}
			stack = stack[:len(stack)-1]

		case html.DoctypeToken:
			return nil, malformedMarkup("doctype in wire markup")
		}
	}

	if open != nil {
		return nil, malformedMarkup("unterminated marker for %s", open.id)
	}
	if len(stack) > 1 {
		return nil, malformedMarkup("unclosed <%s>", stack[len(stack)-1].tag)
	}
	for _, c := range top.children {
		c.parent = nil
	}
	return top.children, nil
}

// parseOne parses markup that must hold exactly one node.
func parseOne(markup string) (*hostNode, error) {
	nodes, err := parseMarkup(markup)
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, malformedMarkup("expected one node, got %d", len(nodes))
	}
	return nodes[0], nil
}

func markerNode(body string) (*hostNode, error) {
	switch {
	case strings.HasPrefix(body, render.TextMarker):
		return &hostNode{kind: vdom.KindText, id: body[len(render.TextMarker):]}, nil
	case strings.HasPrefix(body, render.RawMarker):
		return &hostNode{kind: vdom.KindRaw, id: body[len(render.RawMarker):]}, nil
	case strings.HasPrefix(body, render.EmptyMarker):
		return &hostNode{kind: vdom.KindEmpty, id: body[len(render.EmptyMarker):]}, nil
	}
	return nil, malformedMarkup("unknown marker %q", body)
}

func elementNode(tok html.Token) (*hostNode, error) {
	n := &hostNode{kind: vdom.KindElement, tag: tok.Data}
	for _, a := range tok.Attr {
		switch {
		case a.Key == render.IDAttr:
			n.id = a.Val
		case strings.HasPrefix(a.Key, render.HandlerAttrPrefix):
			h, err := render.ParseHandlerPayload(a.Val)
			if err != nil {
				return nil, malformedMarkup("<%s %s>: %v", tok.Data, a.Key, err)
			}
			n.attrs = append(n.attrs, vdom.Attr{Name: a.Key[len(render.HandlerAttrPrefix):], Handler: h})
		default:
			n.attrs = append(n.attrs, vdom.Attr{Name: a.Key, Value: a.Val})
		}
	}
	return n, nil
}

func appendChild(parent, n *hostNode) {
	n.parent = parent
	parent.children = append(parent.children, n)
}

// toNode converts a live subtree back to a vdom tree for rendering.
func toNode(n *hostNode) *vdom.Node {
	out := &vdom.Node{Kind: n.kind, ID: n.id, Tag: n.tag, Text: n.text, Attrs: n.attrs}
	if len(n.children) > 0 {
		out.Children = make([]*vdom.Node, len(n.children))
		for i, c := range n.children {
			out.Children[i] = toNode(c)
		}
	}
	return out
}

// truncate truncates a string to max length with ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
