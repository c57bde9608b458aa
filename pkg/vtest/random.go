package vtest

import (
	"math/rand/v2"
	"strconv"

	"github.com/vango-dev/vdiff/pkg/vdom"
)

var (
	randomTags   = []string{"div", "span", "p", "section", "button", "textarea", "ul"}
	randomTexts  = []string{"", "a", "b", "hello", "a < b", "x & y", `say "hi"`, "line\nbreak", "tab\tand\r\nreturn"}
	randomRaws   = []string{"", "<b>bold</b>", "<i>x</i><br>", "plain &amp; raw", "<span class=\"r\">s</span>"}
	randomValues = []string{"", "a", "b c", "x&y", `q"uote`, "<tag>"}
	randomAttrs  = []string{"class", "id", "title", "data-x", "disabled", "value", "href"}
	randomEvents = []string{"click", "input"}
)

// Generator builds random trees and mutations of them for property tests.
// The same seed always produces the same sequence of trees.
type Generator struct {
	r    *rand.Rand
	keys int

	// MaxDepth bounds the depth of generated trees.
	MaxDepth int

	// MaxChildren bounds the number of children per element.
	MaxChildren int
}

// NewGenerator creates a generator seeded with seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		r:           rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		MaxDepth:    4,
		MaxChildren: 5,
	}
}

// Tree returns a random unaligned tree rooted at a div.
func (g *Generator) Tree() *vdom.Node {
	root := &vdom.Node{Kind: vdom.KindElement, Tag: "div"}
	root.Children = g.children(g.MaxDepth - 1)
	return root
}

func (g *Generator) node(depth int) *vdom.Node {
	switch n := g.r.IntN(10); {
	case depth <= 0 || n < 3:
		return g.leaf()
	case n < 5:
		return g.keyedList(depth)
	default:
		return g.element(depth)
	}
}

func (g *Generator) leaf() *vdom.Node {
	switch g.r.IntN(6) {
	case 0:
		return vdom.Raw(pick(g.r, randomRaws))
	case 1:
		return vdom.Empty()
	case 2:
		return vdom.Input(g.attrs())
	default:
		return vdom.Text(pick(g.r, randomTexts))
	}
}

func (g *Generator) element(depth int) *vdom.Node {
	n := &vdom.Node{Kind: vdom.KindElement, Tag: pick(g.r, randomTags), Attrs: g.attrs()}
	n.Children = g.children(depth - 1)
	return n
}

func (g *Generator) children(depth int) []*vdom.Node {
	count := g.r.IntN(g.MaxChildren + 1)
	out := make([]*vdom.Node, count)
	for i := range out {
		out[i] = g.node(depth)
	}
	return out
}

func (g *Generator) keyedList(depth int) *vdom.Node {
	n := &vdom.Node{Kind: vdom.KindElement, Tag: "ol", Attrs: g.attrs()}
	count := g.r.IntN(g.MaxChildren*2 + 1)
	for range count {
		n.Children = append(n.Children, g.item(depth-1))
	}
	return n
}

// item returns a keyed list item with a key unique to this generator.
func (g *Generator) item(depth int) *vdom.Node {
	g.keys++
	li := &vdom.Node{Kind: vdom.KindElement, Tag: "li", Key: "k" + strconv.Itoa(g.keys), Attrs: g.attrs()}
	if depth > 0 && g.r.IntN(3) == 0 {
		li.Children = g.children(depth - 1)
	} else {
		li.Children = []*vdom.Node{vdom.Text(pick(g.r, randomTexts))}
	}
	return li
}

func (g *Generator) attrs() []vdom.Attr {
	var out []vdom.Attr
	for _, name := range randomAttrs {
		if g.r.IntN(4) == 0 {
			out = append(out, vdom.Attr{Name: name, Value: pick(g.r, randomValues)})
		}
	}
	for _, ev := range randomEvents {
		if g.r.IntN(5) == 0 {
			out = append(out, g.handler(ev))
		}
	}
	g.r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func (g *Generator) handler(event string) vdom.Attr {
	a := vdom.On(event, "c"+strconv.Itoa(g.r.IntN(3)))
	if g.r.IntN(2) == 0 {
		a.Handler.Message = "m" + strconv.Itoa(g.r.IntN(2))
	}
	return a
}

// Mutate returns an unaligned copy of n with random edits: text and
// attribute changes, tag and kind changes, inserted and removed children,
// and reordered keyed lists. n itself is not modified.
func (g *Generator) Mutate(n *vdom.Node) *vdom.Node {
	return g.mutate(n, g.MaxDepth, true)
}

func (g *Generator) mutate(n *vdom.Node, depth int, root bool) *vdom.Node {
	if !root && g.r.IntN(20) == 0 {
		// Kind or tag change, which replaces the whole subtree.
		if n.Key != "" {
			return g.item(depth)
		}
		return g.node(depth)
	}

	out := &vdom.Node{Kind: n.Kind, Tag: n.Tag, Key: n.Key, Text: n.Text}
	switch n.Kind {
	case vdom.KindText:
		if g.r.IntN(3) == 0 {
			out.Text = pick(g.r, randomTexts)
		}
		return out
	case vdom.KindRaw:
		if g.r.IntN(3) == 0 {
			out.Text = pick(g.r, randomRaws)
		}
		return out
	case vdom.KindEmpty:
		return out
	}

	out.Attrs = g.mutateAttrs(n.Attrs)
	if vdom.IsVoidElement(n.Tag) {
		return out
	}
	if isKeyedList(n) {
		out.Children = g.mutateKeyed(n.Children, depth)
		return out
	}

	for _, c := range n.Children {
		if g.r.IntN(8) == 0 {
			continue
		}
		out.Children = append(out.Children, g.mutate(c, depth-1, false))
		if g.r.IntN(8) == 0 {
			out.Children = append(out.Children, g.node(depth-1))
		}
	}
	if len(n.Children) == 0 && g.r.IntN(3) == 0 {
		out.Children = g.children(depth - 1)
	}
	return out
}

func (g *Generator) mutateKeyed(children []*vdom.Node, depth int) []*vdom.Node {
	var out []*vdom.Node
	for _, c := range children {
		if g.r.IntN(6) == 0 {
			continue
		}
		out = append(out, g.mutate(c, depth-1, false))
	}
	switch g.r.IntN(4) {
	case 0:
		g.r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	case 1:
		if len(out) > 1 {
			i, j := g.r.IntN(len(out)), g.r.IntN(len(out))
			out[i], out[j] = out[j], out[i]
		}
	}
	for range g.r.IntN(3) {
		at := g.r.IntN(len(out) + 1)
		out = append(out[:at], append([]*vdom.Node{g.item(depth - 1)}, out[at:]...)...)
	}
	return out
}

func (g *Generator) mutateAttrs(attrs []vdom.Attr) []vdom.Attr {
	var out []vdom.Attr
	for _, a := range attrs {
		switch g.r.IntN(6) {
		case 0:
			continue
		case 1:
			if a.Handler != nil {
				a = g.handler(a.Handler.Event)
			} else {
				a.Value = pick(g.r, randomValues)
			}
		}
		a.ID = 0
		out = append(out, a)
	}
	if g.r.IntN(4) == 0 {
		name := pick(g.r, randomAttrs)
		if !hasAttr(out, name) {
			out = append(out, vdom.Attr{Name: name, Value: pick(g.r, randomValues)})
		}
	}
	if g.r.IntN(3) == 0 {
		g.r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	return out
}

func isKeyedList(n *vdom.Node) bool {
	return len(n.Children) > 0 && n.Children[0].Key != ""
}

func hasAttr(attrs []vdom.Attr, name string) bool {
	for _, a := range attrs {
		if a.Name == name {
			return true
		}
	}
	return false
}

func pick[T any](r *rand.Rand, s []T) T {
	return s[r.IntN(len(s))]
}
