package protocol

import (
	"github.com/dolthub/swiss"
	"github.com/valyala/bytebufferpool"
)

// stringTable accumulates deduplicated (uleb128 length, bytes) records.
// Offsets are relative to the start of the table.
type stringTable struct {
	buf       *bytebufferpool.ByteBuffer
	offsets   *swiss.Map[string, int32]
	maxRecord int
	maxTable  int
}

func newStringTable() *stringTable {
	return &stringTable{offsets: swiss.NewMap[string, int32](64)}
}

// begin prepares the table for one encoding pass over buf.
func (t *stringTable) begin(buf *bytebufferpool.ByteBuffer, maxRecord, maxTable int) {
	t.buf = buf
	t.maxRecord = maxRecord
	t.maxTable = maxTable
	t.offsets.Clear()
}

// end detaches the buffer.
func (t *stringTable) end() {
	t.buf = nil
	t.offsets.Clear()
}

// intern returns the offset of s, writing a record the first time s is seen.
func (t *stringTable) intern(s string) (int32, error) {
	if off, ok := t.offsets.Get(s); ok {
		return off, nil
	}
	off := len(t.buf.B)
	if len(s) > t.maxRecord || off+UvarintLen(uint64(len(s)))+len(s) > t.maxTable {
		return 0, ErrTableTooLarge
	}
	t.buf.B = AppendUvarint(t.buf.B, uint64(len(s)))
	t.buf.B = append(t.buf.B, s...)
	t.offsets.Put(s, int32(off))
	return int32(off), nil
}
