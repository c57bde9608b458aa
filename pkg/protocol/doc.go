// Package protocol implements the binary batch format that carries patch
// lists to hosts.
//
// A batch is one contiguous little-endian buffer:
//
//	┌──────────────────────────────┬──────────────────────────────────┐
//	│ patchCount (i32)             │ stringTableOffset (i32)          │  header, 8 bytes
//	├──────────┬──────────┬────────┴─┬────────────────────────────────┤
//	│ type i32 │ field1   │ field2   │ field3                         │  patchCount entries,
//	│          │ i32      │ i32      │ i32                            │  16 bytes each
//	├──────────┴──────────┴──────────┴────────────────────────────────┤
//	│ (uleb128 length, bytes) (uleb128 length, bytes) ...             │  string table
//	└─────────────────────────────────────────────────────────────────┘
//
// type is the vdom.PatchOp ordinal. Each field is -1 when absent or the byte
// offset of a record relative to the start of the string table. Identical
// strings are written once per batch and shared by every field that uses
// them.
//
// # Field Layout
//
// Layout reports what each field of an operation holds. Ids, attribute names
// and values travel as is; mounted nodes travel as wire markup from package
// render, and handler bindings as render.HandlerPayload strings. For example:
//
//	MoveChild:  parent, target, before (absent appends)
//	UpdateText: target, value, newID
//	AddChild:   parent, markup, before (absent appends)
//
// # Encoding and Decoding
//
//	buf, err := protocol.EncodeBatch(patches)
//	wire, err := protocol.DecodeBatch(buf)
//
// Lower converts patches to the decoded form directly, so
// DecodeBatch(EncodeBatch(p)) equals Lower(p) for every valid p.
//
// BatchEncoder keeps its string table index between passes and rents scratch
// buffers from a BufferPool. The decoder validates the header, operation
// range, every field offset, varint overflow and the allocation Limits before
// it returns anything.
package protocol
