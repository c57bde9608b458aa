package protocol

import (
	"fmt"
	"sync/atomic"

	"github.com/dolthub/swiss"

	"github.com/vango-dev/vdiff/pkg/vdom"
)

// Batch layout sizes.
const (
	HeaderSize = 8
	EntrySize  = 16
)

// absent is the field value of a missing string.
const absent int32 = -1

// BatchEncoder serializes patch lists. It keeps its string table map between
// passes, so reusing one encoder avoids rebuilding it.
//
// A BatchEncoder serves one pass at a time; a pass started while another is
// in flight fails with ErrEncoderInUse.
type BatchEncoder struct {
	busy     atomic.Bool
	pool     *BufferPool
	table    *stringTable
	limits   Limits
	maxTable int
}

// NewBatchEncoder creates an encoder that rents scratch buffers from pool and
// refuses what DecodeBatch would reject. A nil pool uses a shared default.
func NewBatchEncoder(pool *BufferPool) *BatchEncoder {
	return NewBatchEncoderWithLimits(pool, DefaultLimits())
}

// NewBatchEncoderWithLimits is NewBatchEncoder with the limits the receiving
// decoder enforces.
func NewBatchEncoderWithLimits(pool *BufferPool, limits Limits) *BatchEncoder {
	if pool == nil {
		pool = defaultBufferPool
	}
	return &BatchEncoder{
		pool:     pool,
		table:    newStringTable(),
		limits:   limits.normalize(),
		maxTable: HardMaxAllocation,
	}
}

// Limits returns the limits every encoded batch satisfies.
func (e *BatchEncoder) Limits() Limits {
	return e.limits
}

// EncodeBatch serializes patches with a fresh encoder.
func EncodeBatch(patches []vdom.Patch) ([]byte, error) {
	return NewBatchEncoder(nil).AppendBatch(nil, patches)
}

// Encode serializes patches into a new buffer.
func (e *BatchEncoder) Encode(patches []vdom.Patch) ([]byte, error) {
	return e.AppendBatch(nil, patches)
}

// AppendBatch appends the batch for patches to dst. On error dst is returned
// unchanged.
//
// Header and entries are written straight into dst since their size is known
// up front; the string table is built in a rented buffer and appended last.
func (e *BatchEncoder) AppendBatch(dst []byte, patches []vdom.Patch) ([]byte, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return dst, ErrEncoderInUse
	}
	defer e.busy.Store(false)

	if len(patches) > e.limits.MaxPatches {
		return dst, malformed("batch", ErrCollectionTooLarge, "%d patches, limit %d", len(patches), e.limits.MaxPatches)
	}

	scratch := e.pool.Get()
	defer e.pool.Put(scratch)
	e.table.begin(scratch, e.limits.MaxAllocation, e.maxTable)
	defer e.table.end()

	start := len(dst)
	enc := NewEncoderWith(dst)
	enc.WriteInt32(int32(len(patches)))
	enc.WriteInt32(int32(HeaderSize + EntrySize*len(patches)))

	for i := range patches {
		w, err := lowerPatch(i, &patches[i])
		if err != nil {
			return dst[:start], err
		}
		enc.WriteInt32(int32(w.Op))
		for j, f := range w.Fields {
			if !f.Valid {
				enc.WriteInt32(absent)
				continue
			}
			off, err := e.table.intern(f.Value)
			if err != nil {
				return dst[:start], malformed(fmt.Sprintf("patch[%d]", i), err,
					"field %d: %d bytes, record limit %d, table limit %d", j+1, len(f.Value), e.limits.MaxAllocation, e.maxTable)
			}
			enc.WriteInt32(off)
		}
	}

	enc.WriteBytes(scratch.B)
	return enc.Bytes(), nil
}

// DecodeBatch parses a batch with the default limits.
func DecodeBatch(buf []byte) ([]WirePatch, error) {
	return DecodeBatchWithLimits(buf, DefaultLimits())
}

// DecodeBatchWithLimits parses a batch. The string table is read in full
// first, so every field offset must point at the start of a record.
func DecodeBatchWithLimits(buf []byte, limits Limits) ([]WirePatch, error) {
	limits = limits.normalize()
	d := NewDecoder(buf)

	count, err := d.ReadInt32()
	if err != nil {
		return nil, malformed("header", err, "%d bytes", len(buf))
	}
	tableOff, err := d.ReadInt32()
	if err != nil {
		return nil, malformed("header", err, "%d bytes", len(buf))
	}
	if count < 0 {
		return nil, malformed("header", ErrMalformedHeader, "negative patch count %d", count)
	}
	if int(count) > limits.MaxPatches {
		return nil, malformed("header", ErrCollectionTooLarge, "%d patches, limit %d", count, limits.MaxPatches)
	}
	entriesEnd := HeaderSize + EntrySize*int(count)
	if entriesEnd > len(buf) {
		return nil, malformed("header", ErrBufferTooShort, "%d entries need %d bytes, have %d", count, entriesEnd, len(buf))
	}
	if int(tableOff) < entriesEnd || int(tableOff) > len(buf) {
		return nil, malformed("header", ErrMalformedHeader, "string table offset %d outside [%d, %d]", tableOff, entriesEnd, len(buf))
	}

	strs, err := readTable(buf[tableOff:], limits)
	if err != nil {
		return nil, err
	}

	out := make([]WirePatch, count)
	for i := range out {
		op, _ := d.ReadInt32()
		if op < 0 || op >= int32(len(layouts)) {
			return nil, unknownOp(i, op)
		}
		out[i].Op = vdom.PatchOp(op)
		for j := range out[i].Fields {
			off, _ := d.ReadInt32()
			if off == absent {
				continue
			}
			s, ok := strs.Get(off)
			if !ok {
				return nil, malformed(fmt.Sprintf("patch[%d]", i), ErrInvalidOffset, "field %d offset %d", j+1, off)
			}
			out[i].Fields[j] = Some(s)
		}
	}
	return out, nil
}

// readTable indexes every record of the string table by its offset.
func readTable(table []byte, limits Limits) (*swiss.Map[int32, string], error) {
	strs := swiss.NewMap[int32, string](16)
	d := NewDecoder(table)
	for !d.EOF() {
		off := d.Position()
		s, err := d.ReadString(limits.MaxAllocation)
		if err != nil {
			return nil, malformed("table", err, "record at offset %d", off)
		}
		strs.Put(int32(off), s)
	}
	return strs, nil
}
