package vdom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	verrors "github.com/vango-dev/vdiff/internal/errors"
)

// jsonNode is the on-disk tree form used by the CLI and fixtures:
//
//	{"tag": "ul", "attrs": [{"name": "class", "value": "list"}], "children": [
//	    {"tag": "li", "key": "a", "children": ["first"]},
//	    {"kind": "raw", "text": "<b>x</b>"}
//	]}
//
// A bare JSON string is a text node. "kind" defaults to "element" when a tag
// is present. Handlers are written as {"on": {"click": "c1"}}.
type jsonNode struct {
	Kind     string            `json:"kind,omitempty"`
	ID       string            `json:"id,omitempty"`
	Tag      string            `json:"tag,omitempty"`
	Key      string            `json:"key,omitempty"`
	Attrs    []jsonAttr        `json:"attrs,omitempty"`
	On       map[string]string `json:"on,omitempty"`
	Children []json.RawMessage `json:"children,omitempty"`
	Text     string            `json:"text,omitempty"`
}

type jsonAttr struct {
	ID      uint32       `json:"id,omitempty"`
	Name    string       `json:"name"`
	Value   string       `json:"value,omitempty"`
	Handler *jsonHandler `json:"handler,omitempty"`
}

type jsonHandler struct {
	Event       string `json:"event"`
	Correlation string `json:"correlation"`
	Message     string `json:"message,omitempty"`
	DataType    string `json:"dataType,omitempty"`
	HasFactory  bool   `json:"hasFactory,omitempty"`
}

// Document is a tree plus its head region.
type Document struct {
	Root *Node
	Head []HeadEntry
}

type jsonDocument struct {
	Root json.RawMessage `json:"root"`
	Head []jsonHead      `json:"head,omitempty"`
}

type jsonHead struct {
	Key  string          `json:"key"`
	Node json.RawMessage `json:"node"`
}

// ParseJSON decodes a tree.
func ParseJSON(data []byte) (*Node, error) {
	return decodeNode(data, "$")
}

// ParseDocument decodes either a bare tree or {"root": tree, "head": [...]}.
func ParseDocument(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	var probe map[string]json.RawMessage
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return nil, invalidDocument("$", err)
		}
	}
	if _, ok := probe["root"]; !ok {
		root, err := ParseJSON(trimmed)
		if err != nil {
			return nil, err
		}
		return &Document{Root: root}, nil
	}

	var jd jsonDocument
	if err := json.Unmarshal(trimmed, &jd); err != nil {
		return nil, invalidDocument("$", err)
	}
	root, err := decodeNode(jd.Root, "$.root")
	if err != nil {
		return nil, err
	}
	doc := &Document{Root: root}
	for i, h := range jd.Head {
		n, err := decodeNode(h.Node, fmt.Sprintf("$.head[%d].node", i))
		if err != nil {
			return nil, err
		}
		doc.Head = append(doc.Head, HeadEntry{Key: h.Key, Node: n})
	}
	return doc, nil
}

func decodeNode(data []byte, path string) (*Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, invalidDocument(path, fmt.Errorf("empty node"))
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, invalidDocument(path, err)
		}
		return Text(s), nil
	}

	var jn jsonNode
	if err := json.Unmarshal(trimmed, &jn); err != nil {
		return nil, invalidDocument(path, err)
	}

	n := &Node{ID: jn.ID, Key: jn.Key, Tag: jn.Tag, Text: jn.Text}
	switch strings.ToLower(jn.Kind) {
	case "", "element":
		if jn.Tag == "" {
			return nil, invalidDocument(path, fmt.Errorf("element without a tag"))
		}
		n.Kind = KindElement
	case "text":
		n.Kind = KindText
	case "raw":
		n.Kind = KindRaw
	case "empty":
		n.Kind = KindEmpty
	default:
		return nil, invalidDocument(path, fmt.Errorf("unknown kind %q", jn.Kind))
	}

	for _, a := range jn.Attrs {
		attr := Attr{ID: a.ID, Name: a.Name, Value: a.Value}
		if a.Handler != nil {
			h := Handler(*a.Handler)
			attr.Handler = &h
		}
		n.Attrs = append(n.Attrs, attr)
	}
	for _, event := range slices.Sorted(maps.Keys(jn.On)) {
		n.Attrs = append(n.Attrs, On(event, jn.On[event]))
	}

	for i, raw := range jn.Children {
		c, err := decodeNode(raw, fmt.Sprintf("%s.children[%d]", path, i))
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, c)
	}
	return n, nil
}

// MarshalJSON encodes a tree in the form ParseJSON reads, ids included.
func MarshalJSON(n *Node) ([]byte, error) {
	return json.Marshal(encodeNode(n))
}

// MarshalDocument encodes a document in the form ParseDocument reads.
func MarshalDocument(doc *Document) ([]byte, error) {
	root, err := MarshalJSON(doc.Root)
	if err != nil {
		return nil, err
	}
	jd := jsonDocument{Root: root}
	for _, h := range doc.Head {
		node, err := MarshalJSON(h.Node)
		if err != nil {
			return nil, err
		}
		jd.Head = append(jd.Head, jsonHead{Key: h.Key, Node: node})
	}
	return json.Marshal(jd)
}

func encodeNode(n *Node) *jsonNode {
	if n == nil {
		return nil
	}
	jn := &jsonNode{ID: n.ID, Tag: n.Tag, Key: n.Key, Text: n.Text}
	if n.Kind != KindElement {
		jn.Kind = strings.ToLower(n.Kind.String())
	}
	for _, a := range n.Attrs {
		ja := jsonAttr{ID: a.ID, Name: a.Name, Value: a.Value}
		if a.Handler != nil {
			h := jsonHandler(*a.Handler)
			ja.Handler = &h
		}
		jn.Attrs = append(jn.Attrs, ja)
	}
	for _, c := range n.Children {
		raw, _ := json.Marshal(encodeNode(c))
		jn.Children = append(jn.Children, raw)
	}
	return jn
}

func invalidDocument(path string, err error) error {
	return verrors.New("E205").AtPath(path).WithDetail(err.Error()).Wrap(err)
}
