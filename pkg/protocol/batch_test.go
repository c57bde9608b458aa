package protocol

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/vdiff/pkg/vdom"
)

func node(n *vdom.Node) *vdom.Node {
	return vdom.Align(nil, n, vdom.NewIDGenerator())
}

// everyOp returns one patch of each operation.
func everyOp() []vdom.Patch {
	h := &vdom.Handler{Event: "click", Correlation: "c1", Message: "inc"}
	return []vdom.Patch{
		{Op: vdom.PatchAddRoot, Target: "h1", Node: node(vdom.Div("root"))},
		{Op: vdom.PatchReplaceChild, Target: "h2", NewID: "h9", Node: node(vdom.Span("x"))},
		{Op: vdom.PatchAddChild, Parent: "h1", Node: node(vdom.Li("a")), Before: "h3"},
		{Op: vdom.PatchRemoveChild, Parent: "h1", Target: "h3"},
		{Op: vdom.PatchMoveChild, Parent: "h1", Target: "h4"},
		{Op: vdom.PatchClearChildren, Parent: "h1"},
		{Op: vdom.PatchSetChildrenHtml, Parent: "h1", Nodes: []*vdom.Node{node(vdom.Li("a")), node(vdom.Li("b"))}},
		{Op: vdom.PatchAddAttribute, Target: "h1", Name: "class", Value: "on"},
		{Op: vdom.PatchUpdateAttribute, Target: "h1", Name: "class", Value: "off"},
		{Op: vdom.PatchRemoveAttribute, Target: "h1", Name: "class"},
		{Op: vdom.PatchAddHandler, Target: "h1", Name: "onclick", Handler: h},
		{Op: vdom.PatchUpdateHandler, Target: "h1", Name: "onclick", Handler: h},
		{Op: vdom.PatchRemoveHandler, Target: "h1", Name: "onclick"},
		{Op: vdom.PatchUpdateText, Target: "h5", Value: "hello", NewID: "h5"},
		{Op: vdom.PatchAddText, Parent: "h1", Node: node(vdom.Text("t"))},
		{Op: vdom.PatchRemoveText, Parent: "h1", Target: "h5"},
		{Op: vdom.PatchAddRaw, Parent: "h1", Node: node(vdom.Raw("<b>r</b>")), Before: "h6"},
		{Op: vdom.PatchRemoveRaw, Parent: "h1", Target: "h6"},
		{Op: vdom.PatchReplaceRaw, Target: "h6", NewID: "h10", Value: "<i>r</i>"},
		{Op: vdom.PatchUpdateRaw, Target: "h6", Value: "<u>r</u>"},
		{Op: vdom.PatchAddHeadElement, Name: "title", Node: node(vdom.Title("T"))},
		{Op: vdom.PatchUpdateHeadElement, Name: "title", Node: node(vdom.Title("U"))},
		{Op: vdom.PatchRemoveHeadElement, Name: "title"},
	}
}

func TestBatchRoundTripEveryOp(t *testing.T) {
	patches := everyOp()
	if len(patches) != len(vdom.PatchOps()) {
		t.Fatalf("Expected %d patches, got %d", len(vdom.PatchOps()), len(patches))
	}

	buf, err := EncodeBatch(patches)
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}
	got, err := DecodeBatch(buf)
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	want, err := Lower(patches)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestBatchEmpty(t *testing.T) {
	buf, err := EncodeBatch(nil)
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}
	if len(buf) != HeaderSize {
		t.Fatalf("Expected %d bytes, got %d", HeaderSize, len(buf))
	}
	got, err := DecodeBatch(buf)
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected 0 patches, got %d", len(got))
	}
}

func TestBatchHeader(t *testing.T) {
	patches := []vdom.Patch{
		{Op: vdom.PatchRemoveChild, Parent: "h1", Target: "h2"},
		{Op: vdom.PatchMoveChild, Parent: "h1", Target: "h3"},
	}
	buf, err := EncodeBatch(patches)
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}

	if n := int32(binary.LittleEndian.Uint32(buf[0:])); n != 2 {
		t.Errorf("Expected count 2, got %d", n)
	}
	if off := int32(binary.LittleEndian.Uint32(buf[4:])); off != HeaderSize+2*EntrySize {
		t.Errorf("Expected table offset %d, got %d", HeaderSize+2*EntrySize, off)
	}

	// MoveChild without an anchor stores -1 in its before field.
	before := int32(binary.LittleEndian.Uint32(buf[HeaderSize+EntrySize+12:]))
	if before != -1 {
		t.Errorf("Expected absent before field, got %d", before)
	}
	// The unused third field of RemoveChild is absent too.
	if f3 := int32(binary.LittleEndian.Uint32(buf[HeaderSize+12:])); f3 != -1 {
		t.Errorf("Expected absent third field, got %d", f3)
	}
}

func TestBatchStringDedup(t *testing.T) {
	var patches []vdom.Patch
	for range 50 {
		patches = append(patches, vdom.Patch{Op: vdom.PatchUpdateAttribute, Target: "h1", Name: "class", Value: "active"})
	}
	buf, err := EncodeBatch(patches)
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}

	table := buf[HeaderSize+EntrySize*len(patches):]
	// "h1", "class", "active", each with a one byte length prefix.
	if want := 3 + len("h1") + len("class") + len("active"); len(table) != want {
		t.Errorf("Expected %d table bytes, got %d", want, len(table))
	}
	if c := strings.Count(string(table), "active"); c != 1 {
		t.Errorf("Expected value written once, got %d", c)
	}
}

func TestBatchEncoderReuse(t *testing.T) {
	enc := NewBatchEncoder(NewBufferPool())
	first, err := enc.Encode([]vdom.Patch{{Op: vdom.PatchRemoveAttribute, Target: "h1", Name: "a"}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	second, err := enc.Encode([]vdom.Patch{{Op: vdom.PatchRemoveAttribute, Target: "h2", Name: "b"}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Strings from the first pass must not leak offsets into the second.
	got, err := DecodeBatch(second)
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	want := []WirePatch{{Op: vdom.PatchRemoveAttribute, Fields: [3]Field{Some("h2"), Some("b")}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if len(first) != len(second) {
		t.Errorf("Expected equal sizes, got %d and %d", len(first), len(second))
	}
}

func TestAppendBatchKeepsPrefix(t *testing.T) {
	prefix := []byte("seq:1;")
	buf, err := NewBatchEncoder(nil).AppendBatch(prefix, []vdom.Patch{{Op: vdom.PatchClearChildren, Parent: "h1"}})
	if err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}
	if string(buf[:len(prefix)]) != "seq:1;" {
		t.Fatalf("prefix overwritten: %q", buf[:len(prefix)])
	}
	if _, err := DecodeBatch(buf[len(prefix):]); err != nil {
		t.Errorf("DecodeBatch: %v", err)
	}

	bad := []vdom.Patch{{Op: vdom.PatchAddChild, Parent: "h1"}}
	out, err := NewBatchEncoder(nil).AppendBatch(prefix, bad)
	if !errors.Is(err, ErrMissingNode) {
		t.Fatalf("Expected ErrMissingNode, got %v", err)
	}
	if string(out) != "seq:1;" {
		t.Errorf("Expected dst unchanged on error, got %q", out)
	}
}

func TestEncodeUnknownOp(t *testing.T) {
	_, err := EncodeBatch([]vdom.Patch{{Op: vdom.PatchOp(200)}})
	if !errors.Is(err, ErrUnknownOp) {
		t.Errorf("Expected ErrUnknownOp, got %v", err)
	}
}

func TestEncoderInUse(t *testing.T) {
	enc := NewBatchEncoder(nil)
	enc.busy.Store(true)
	if _, err := enc.Encode(nil); !errors.Is(err, ErrEncoderInUse) {
		t.Errorf("Expected ErrEncoderInUse, got %v", err)
	}
	enc.busy.Store(false)
	if _, err := enc.Encode(nil); err != nil {
		t.Errorf("Expected encoder to be usable again, got %v", err)
	}
}

func TestEncodeTableLimit(t *testing.T) {
	enc := NewBatchEncoder(nil)
	enc.maxTable = 16
	_, err := enc.Encode([]vdom.Patch{{Op: vdom.PatchUpdateRaw, Target: "h1", Value: strings.Repeat("x", 32)}})
	if !errors.Is(err, ErrTableTooLarge) {
		t.Errorf("Expected ErrTableTooLarge, got %v", err)
	}
}

func TestEncodeRecordLimitMatchesDecoder(t *testing.T) {
	text := func(n int) []vdom.Patch {
		return []vdom.Patch{{Op: vdom.PatchUpdateText, Target: "h1", Value: strings.Repeat("x", n), NewID: "h1"}}
	}

	buf, err := EncodeBatch(text(DefaultMaxAllocation))
	if err != nil {
		t.Fatalf("Expected a record at the limit to encode, got %v", err)
	}
	got, err := DecodeBatch(buf)
	if err != nil {
		t.Fatalf("Expected a record at the limit to decode, got %v", err)
	}
	if v, _ := got[0].Get(SlotValue); len(v) != DefaultMaxAllocation {
		t.Errorf("Expected value of %d bytes, got %d", DefaultMaxAllocation, len(v))
	}

	out, err := EncodeBatch(text(DefaultMaxAllocation + 1))
	if !errors.Is(err, ErrTableTooLarge) {
		t.Fatalf("Expected ErrTableTooLarge over the limit, got %v", err)
	}
	if out != nil {
		t.Errorf("Expected no output on error, got %d bytes", len(out))
	}
}

func TestEncodeWithDecoderLimits(t *testing.T) {
	limits := Limits{MaxAllocation: 8, MaxPatches: 2}
	enc := NewBatchEncoderWithLimits(nil, limits)
	if diff := cmp.Diff(limits, enc.Limits()); diff != "" {
		t.Errorf("Limits mismatch (-want +got):\n%s", diff)
	}

	ok := []vdom.Patch{{Op: vdom.PatchUpdateRaw, Target: "h1", Value: "12345678"}}
	buf, err := enc.Encode(ok)
	if err != nil {
		t.Fatalf("Expected encode to succeed, got %v", err)
	}
	if _, err := DecodeBatchWithLimits(buf, limits); err != nil {
		t.Errorf("Expected decode under the same limits, got %v", err)
	}

	if _, err := enc.Encode([]vdom.Patch{{Op: vdom.PatchUpdateRaw, Target: "h1", Value: "123456789"}}); !errors.Is(err, ErrTableTooLarge) {
		t.Errorf("Expected ErrTableTooLarge, got %v", err)
	}
	three := []vdom.Patch{ok[0], ok[0], ok[0]}
	if _, err := enc.Encode(three); !errors.Is(err, ErrCollectionTooLarge) {
		t.Errorf("Expected ErrCollectionTooLarge, got %v", err)
	}
}

// header builds a batch header followed by entries and a raw table.
func header(count, tableOff int32, entries [][4]int32, table []byte) []byte {
	enc := NewEncoder()
	enc.WriteInt32(count)
	enc.WriteInt32(tableOff)
	for _, e := range entries {
		for _, v := range e {
			enc.WriteInt32(v)
		}
	}
	enc.WriteBytes(table)
	return enc.Bytes()
}

func TestDecodeMalformed(t *testing.T) {
	rec := AppendUvarint(nil, 2)
	rec = append(rec, "h1"...)
	entry := func(op int32, f1 int32) [][4]int32 {
		return [][4]int32{{op, f1, -1, -1}}
	}
	one := int32(HeaderSize + EntrySize)

	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{"empty", nil, ErrBufferTooShort},
		{"short header", []byte{1, 0, 0, 0}, ErrBufferTooShort},
		{"negative count", header(-1, HeaderSize, nil, nil), ErrMalformedHeader},
		{"count over limit", header(MaxCollectionCount+1, HeaderSize, nil, nil), ErrCollectionTooLarge},
		{"entries truncated", header(2, HeaderSize+2*EntrySize, entry(5, 0), rec), ErrBufferTooShort},
		{"table offset inside entries", header(1, HeaderSize, entry(5, 0), rec), ErrMalformedHeader},
		{"table offset past end", header(1, 1000, entry(5, 0), rec), ErrMalformedHeader},
		{"unknown op", header(1, one, entry(99, 0), rec), ErrUnknownOp},
		{"negative op", header(1, one, entry(-3, 0), rec), ErrUnknownOp},
		{"offset past table", header(1, one, entry(5, 40), rec), ErrInvalidOffset},
		{"offset inside record", header(1, one, entry(5, 1), rec), ErrInvalidOffset},
		{"negative offset", header(1, one, entry(5, -7), rec), ErrInvalidOffset},
		{"truncated record", header(1, one, entry(5, 0), []byte{5, 'a'}), ErrBufferTooShort},
		{"overflowing length", header(1, one, entry(5, 0), []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f}), ErrVarintOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBatch(tt.buf)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecodeLimits(t *testing.T) {
	buf, err := EncodeBatch([]vdom.Patch{
		{Op: vdom.PatchUpdateRaw, Target: "h1", Value: strings.Repeat("x", 100)},
		{Op: vdom.PatchRemoveAttribute, Target: "h1", Name: "a"},
	})
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}

	if _, err := DecodeBatchWithLimits(buf, Limits{MaxAllocation: 64}); !errors.Is(err, ErrAllocationTooLarge) {
		t.Errorf("Expected ErrAllocationTooLarge, got %v", err)
	}
	if _, err := DecodeBatchWithLimits(buf, Limits{MaxPatches: 1}); !errors.Is(err, ErrCollectionTooLarge) {
		t.Errorf("Expected ErrCollectionTooLarge, got %v", err)
	}
	if _, err := DecodeBatchWithLimits(buf, Limits{}); err != nil {
		t.Errorf("zero limits should use defaults, got %v", err)
	}
}

func TestLimitsNormalize(t *testing.T) {
	got := Limits{MaxAllocation: HardMaxAllocation * 4}.normalize()
	want := Limits{MaxAllocation: HardMaxAllocation, MaxPatches: MaxCollectionCount}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestWirePatchGet(t *testing.T) {
	w, err := Lower([]vdom.Patch{{Op: vdom.PatchMoveChild, Parent: "h1", Target: "h2", Before: "h3"}})
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if v, ok := w[0].Get(SlotBefore); !ok || v != "h3" {
		t.Errorf("Get(SlotBefore) = %q, %v", v, ok)
	}
	if _, ok := w[0].Get(SlotName); ok {
		t.Error("MoveChild has no name slot")
	}
	if got := w[0].String(); got != `MoveChild(parent="h1" target="h2" before="h3")` {
		t.Errorf("String() = %s", got)
	}
}

func TestLayoutCoversEveryOp(t *testing.T) {
	for _, op := range vdom.PatchOps() {
		if _, ok := Layout(op); !ok {
			t.Errorf("no layout for %s", op)
		}
	}
	if _, ok := Layout(vdom.PatchOp(250)); ok {
		t.Error("Layout accepted an unknown op")
	}
}

func FuzzDecodeBatch(f *testing.F) {
	seed, _ := EncodeBatch(everyOp())
	f.Add(seed)
	f.Add([]byte{})
	f.Add(header(1, HeaderSize+EntrySize, [][4]int32{{4, 0, 0, -1}}, []byte{1, 'a'}))

	f.Fuzz(func(t *testing.T, data []byte) {
		patches, err := DecodeBatch(data)
		if err != nil {
			return
		}
		for _, p := range patches {
			if _, ok := Layout(p.Op); !ok {
				t.Fatalf("decoded unknown op %d", p.Op)
			}
		}
	})
}
