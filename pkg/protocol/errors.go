package protocol

import (
	"errors"
	"fmt"

	verrors "github.com/vango-dev/vdiff/internal/errors"
)

// Common decoding errors.
var (
	ErrBufferTooShort     = errors.New("protocol: buffer too short")
	ErrVarintOverflow     = errors.New("protocol: varint overflow")
	ErrAllocationTooLarge = errors.New("protocol: allocation size exceeds limit")
	ErrCollectionTooLarge = errors.New("protocol: collection count exceeds limit")
	ErrInvalidOffset      = errors.New("protocol: invalid string table offset")
	ErrMalformedHeader    = errors.New("protocol: malformed batch header")
)

// Encoding errors. These report caller defects, like the vdom defects.
var (
	ErrUnknownOp     = errors.New("protocol: unknown patch operation")
	ErrMissingNode   = errors.New("protocol: patch has no node")
	ErrEncoderInUse  = errors.New("protocol: batch encoder already in use")
	ErrTableTooLarge = errors.New("protocol: string table exceeds limit")
)

func unknownOp(index int, op int32) error {
	return verrors.New("E300").
		AtPath(fmt.Sprintf("patch[%d]", index)).
		WithDetailf("operation %d", op).
		Wrap(ErrUnknownOp)
}

func malformed(path string, err error, format string, args ...any) error {
	return verrors.New("E301").
		AtPath(path).
		WithDetailf(format, args...).
		Wrap(err)
}
