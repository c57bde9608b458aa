package protocol

import (
	"fmt"
	"strings"

	"github.com/vango-dev/vdiff/pkg/render"
	"github.com/vango-dev/vdiff/pkg/vdom"
)

// Slot names the meaning of one of the three entry fields.
type Slot uint8

const (
	SlotNone    Slot = iota // Always absent
	SlotTarget              // Id of the node acted on
	SlotParent              // Id of the parent element
	SlotBefore              // Id of the anchor sibling; absent appends
	SlotName                // Attribute name, or head key
	SlotValue               // Attribute value, text, or raw markup
	SlotNewID               // Id the target carries afterwards
	SlotMarkup              // Wire markup of the mounted node(s)
	SlotHandler             // Handler payload, see render.HandlerPayload
)

var slotNames = [...]string{
	SlotNone:    "-",
	SlotTarget:  "target",
	SlotParent:  "parent",
	SlotBefore:  "before",
	SlotName:    "name",
	SlotValue:   "value",
	SlotNewID:   "newID",
	SlotMarkup:  "markup",
	SlotHandler: "handler",
}

// String returns the slot name.
func (s Slot) String() string {
	if int(s) < len(slotNames) {
		return slotNames[s]
	}
	return "Unknown"
}

// layouts maps each operation to its three entry fields.
var layouts = [...][3]Slot{
	vdom.PatchAddRoot:           {SlotTarget, SlotMarkup, SlotNone},
	vdom.PatchReplaceChild:      {SlotTarget, SlotNewID, SlotMarkup},
	vdom.PatchAddChild:          {SlotParent, SlotMarkup, SlotBefore},
	vdom.PatchRemoveChild:       {SlotParent, SlotTarget, SlotNone},
	vdom.PatchMoveChild:         {SlotParent, SlotTarget, SlotBefore},
	vdom.PatchClearChildren:     {SlotParent, SlotNone, SlotNone},
	vdom.PatchSetChildrenHtml:   {SlotParent, SlotMarkup, SlotNone},
	vdom.PatchAddAttribute:      {SlotTarget, SlotName, SlotValue},
	vdom.PatchUpdateAttribute:   {SlotTarget, SlotName, SlotValue},
	vdom.PatchRemoveAttribute:   {SlotTarget, SlotName, SlotNone},
	vdom.PatchAddHandler:        {SlotTarget, SlotName, SlotHandler},
	vdom.PatchUpdateHandler:     {SlotTarget, SlotName, SlotHandler},
	vdom.PatchRemoveHandler:     {SlotTarget, SlotName, SlotNone},
	vdom.PatchUpdateText:        {SlotTarget, SlotValue, SlotNewID},
	vdom.PatchAddText:           {SlotParent, SlotMarkup, SlotBefore},
	vdom.PatchRemoveText:        {SlotParent, SlotTarget, SlotNone},
	vdom.PatchAddRaw:            {SlotParent, SlotMarkup, SlotBefore},
	vdom.PatchRemoveRaw:         {SlotParent, SlotTarget, SlotNone},
	vdom.PatchReplaceRaw:        {SlotTarget, SlotNewID, SlotValue},
	vdom.PatchUpdateRaw:         {SlotTarget, SlotValue, SlotNone},
	vdom.PatchAddHeadElement:    {SlotName, SlotMarkup, SlotNone},
	vdom.PatchUpdateHeadElement: {SlotName, SlotMarkup, SlotNone},
	vdom.PatchRemoveHeadElement: {SlotName, SlotNone, SlotNone},
}

// Layout returns the field slots of op.
func Layout(op vdom.PatchOp) ([3]Slot, bool) {
	if !op.Valid() || int(op) >= len(layouts) {
		return [3]Slot{}, false
	}
	return layouts[op], true
}

// Field is one optional string of a wire entry.
type Field struct {
	Value string
	Valid bool
}

// Some returns a present field.
func Some(s string) Field {
	return Field{Value: s, Valid: true}
}

// WirePatch is a patch as it travels: an operation and three optional
// strings whose meaning Layout describes.
type WirePatch struct {
	Op     vdom.PatchOp
	Fields [3]Field
}

// Get returns the field stored in slot s.
func (w WirePatch) Get(s Slot) (string, bool) {
	l, ok := Layout(w.Op)
	if !ok {
		return "", false
	}
	for i, slot := range l {
		if slot == s && s != SlotNone {
			return w.Fields[i].Value, w.Fields[i].Valid
		}
	}
	return "", false
}

// String returns a compact form such as MoveChild(parent="h1" target="h3").
func (w WirePatch) String() string {
	var b strings.Builder
	b.WriteString(w.Op.String())
	b.WriteByte('(')
	l, _ := Layout(w.Op)
	sep := ""
	for i, f := range w.Fields {
		if !f.Valid {
			continue
		}
		v := f.Value
		if len(v) > 60 {
			v = v[:57] + "..."
		}
		fmt.Fprintf(&b, "%s%s=%q", sep, l[i], v)
		sep = " "
	}
	b.WriteByte(')')
	return b.String()
}

// Lower converts patches to wire form. DecodeBatch(EncodeBatch(p)) equals
// Lower(p).
func Lower(patches []vdom.Patch) ([]WirePatch, error) {
	out := make([]WirePatch, len(patches))
	for i := range patches {
		w, err := lowerPatch(i, &patches[i])
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

func lowerPatch(index int, p *vdom.Patch) (WirePatch, error) {
	l, ok := Layout(p.Op)
	if !ok {
		return WirePatch{}, unknownOp(index, int32(p.Op))
	}
	w := WirePatch{Op: p.Op}
	for i, slot := range l {
		switch slot {
		case SlotNone:
		case SlotTarget:
			w.Fields[i] = Some(p.Target)
		case SlotParent:
			w.Fields[i] = Some(p.Parent)
		case SlotBefore:
			if p.Before != "" {
				w.Fields[i] = Some(p.Before)
			}
		case SlotName:
			w.Fields[i] = Some(p.Name)
		case SlotValue:
			w.Fields[i] = Some(p.Value)
		case SlotNewID:
			w.Fields[i] = Some(p.NewID)
		case SlotMarkup:
			if p.Op == vdom.PatchSetChildrenHtml {
				w.Fields[i] = Some(render.MarkupAll(p.Nodes))
				continue
			}
			if p.Node == nil {
				return WirePatch{}, malformed(fmt.Sprintf("patch[%d]", index), ErrMissingNode, "%s without a node", p.Op)
			}
			w.Fields[i] = Some(render.Markup(p.Node))
		case SlotHandler:
			w.Fields[i] = Some(render.HandlerPayload(p.Handler))
		}
	}
	return w, nil
}
