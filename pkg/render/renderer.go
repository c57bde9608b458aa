package render

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/vango-dev/vdiff/pkg/vdom"
)

// Wire markup vocabulary. Hosts locate nodes by these markers.
const (
	// IDAttr carries an element's node id.
	IDAttr = "data-vid"

	// HandlerAttrPrefix prefixes the attribute that carries a handler binding;
	// the handler attribute's own name follows it.
	HandlerAttrPrefix = "data-vh-"

	// Comment markers for nodes that are not elements. Text and raw content
	// sits between an opening marker and its closing marker.
	TextMarker    = "t:"
	TextEndMarker = "/t"
	RawMarker     = "r:"
	RawEndMarker  = "/r"
	EmptyMarker   = "e:"
)

// RendererConfig configures the markup renderer.
type RendererConfig struct {
	// Plain renders ordinary HTML: no ids, no comment markers, handler
	// bindings as data-on-<event> attributes. Plain output cannot be applied
	// by a host; it is meant for people.
	Plain bool
}

// Renderer renders vdom trees to markup.
type Renderer struct {
	config RendererConfig
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	return &Renderer{config: config}
}

var wire = NewRenderer(RendererConfig{})

// Markup renders n as wire markup.
func Markup(n *vdom.Node) string {
	return string(wire.Append(nil, n))
}

// MarkupAll renders nodes one after another, as wire markup.
func MarkupAll(nodes []*vdom.Node) string {
	var b []byte
	for _, n := range nodes {
		b = wire.Append(b, n)
	}
	return string(b)
}

// RenderToString renders a tree to a string.
func (r *Renderer) RenderToString(node *vdom.Node) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToWriter(&buf, node); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter writes a tree to w.
func (r *Renderer) RenderToWriter(w io.Writer, node *vdom.Node) error {
	_, err := w.Write(r.Append(nil, node))
	return err
}

// Append appends the markup for node to dst.
func (r *Renderer) Append(dst []byte, node *vdom.Node) []byte {
	if node == nil {
		return dst
	}

	switch node.Kind {
	case vdom.KindElement:
		return r.appendElement(dst, node)
	case vdom.KindText:
		if r.config.Plain {
			return append(dst, escapeHTML(node.Text)...)
		}
		dst = appendComment(dst, TextMarker+node.ID)
		dst = append(dst, escapeHTML(node.Text)...)
		return appendComment(dst, TextEndMarker)
	case vdom.KindRaw:
		if r.config.Plain {
			return append(dst, node.Text...)
		}
		dst = appendComment(dst, RawMarker+node.ID)
		dst = append(dst, node.Text...)
		return appendComment(dst, RawEndMarker)
	case vdom.KindEmpty:
		if r.config.Plain {
			return dst
		}
		return appendComment(dst, EmptyMarker+node.ID)
	default:
		return appendComment(dst, fmt.Sprintf("unknown kind %d", node.Kind))
	}
}

func (r *Renderer) appendElement(dst []byte, node *vdom.Node) []byte {
	tag := strings.ToLower(node.Tag)

	dst = append(dst, '<')
	dst = append(dst, tag...)
	if !r.config.Plain && node.ID != "" {
		dst = appendAttr(dst, IDAttr, node.ID)
	}
	dst = r.appendAttributes(dst, node)
	dst = append(dst, '>')

	if isVoidElement(tag) {
		return dst
	}
	for _, child := range node.Children {
		dst = r.Append(dst, child)
	}

	dst = append(dst, "</"...)
	dst = append(dst, tag...)
	return append(dst, '>')
}

// appendAttributes renders attributes sorted by name, so the output does not
// depend on declaration order.
func (r *Renderer) appendAttributes(dst []byte, node *vdom.Node) []byte {
	if len(node.Attrs) == 0 {
		return dst
	}

	attrs := slices.Clone(node.Attrs)
	slices.SortFunc(attrs, func(a, b vdom.Attr) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	for _, a := range attrs {
		name := strings.ToLower(a.Name)
		switch {
		case a.Handler != nil && r.config.Plain:
			dst = appendAttr(dst, "data-on-"+a.Handler.Event, "true")
		case a.Handler != nil:
			dst = appendAttr(dst, HandlerAttrPrefix+name, HandlerPayload(a.Handler))
		case a.Value == "" && isBooleanAttr(name):
			dst = append(dst, ' ')
			dst = append(dst, name...)
		default:
			dst = appendAttr(dst, name, a.Value)
		}
	}
	return dst
}

func appendAttr(dst []byte, name, value string) []byte {
	dst = append(dst, ' ')
	dst = append(dst, name...)
	dst = append(dst, `="`...)
	dst = append(dst, escapeAttr(value)...)
	return append(dst, '"')
}

func appendComment(dst []byte, body string) []byte {
	dst = append(dst, "<!--"...)
	dst = append(dst, body...)
	return append(dst, "-->"...)
}
