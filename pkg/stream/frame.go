package stream

import (
	"errors"
	"fmt"

	"github.com/vango-dev/vdiff/pkg/protocol"
	"github.com/vango-dev/vdiff/pkg/session"
)

// FrameKind tells a host how to apply a frame's batch.
type FrameKind uint8

const (
	// FrameBatch patches the document the host already shows.
	FrameBatch FrameKind = iota

	// FrameSnapshot mounts the whole document; the host discards its
	// current one first.
	FrameSnapshot
)

func (k FrameKind) String() string {
	switch k {
	case FrameBatch:
		return "batch"
	case FrameSnapshot:
		return "snapshot"
	default:
		return fmt.Sprintf("FrameKind(%d)", uint8(k))
	}
}

// ErrUnknownFrame is returned by DecodeFrame for an unknown frame kind.
var ErrUnknownFrame = errors.New("stream: unknown frame kind")

// Frame is one binary WebSocket message:
//
//	uleb128 kind | uleb128 seq | batch bytes
type Frame struct {
	Kind FrameKind
	Seq  uint64
	Data []byte
}

// EncodeFrame encodes b as a frame.
func EncodeFrame(b *session.Batch) []byte {
	kind := FrameBatch
	if b.Snapshot {
		kind = FrameSnapshot
	}
	enc := protocol.NewEncoderWith(make([]byte, 0, len(b.Data)+12))
	enc.WriteUvarint(uint64(kind))
	enc.WriteUvarint(b.Seq)
	enc.WriteBytes(b.Data)
	return enc.Bytes()
}

// DecodeFrame decodes a frame. Data aliases msg.
func DecodeFrame(msg []byte) (Frame, error) {
	dec := protocol.NewDecoder(msg)
	kind, err := dec.ReadUvarint()
	if err != nil {
		return Frame{}, err
	}
	if kind > uint64(FrameSnapshot) {
		return Frame{}, fmt.Errorf("%w: %d", ErrUnknownFrame, kind)
	}
	seq, err := dec.ReadUvarint()
	if err != nil {
		return Frame{}, err
	}
	return Frame{Kind: FrameKind(kind), Seq: seq, Data: msg[dec.Position():]}, nil
}
