package vtest

import (
	"errors"
	"fmt"

	verrors "github.com/vango-dev/vdiff/internal/errors"
)

// Host errors.
var (
	ErrTargetNotFound  = errors.New("vtest: patch target not found")
	ErrMalformedMarkup = errors.New("vtest: malformed markup")
	ErrPatchMismatch   = errors.New("vtest: patch does not apply")
)

func targetNotFound(index int, format string, args ...any) error {
	return verrors.New("E400").
		AtPath(fmt.Sprintf("patch[%d]", index)).
		WithDetailf(format, args...).
		Wrap(ErrTargetNotFound)
}

func malformedMarkup(format string, args ...any) error {
	return verrors.New("E401").
		WithDetailf(format, args...).
		Wrap(ErrMalformedMarkup)
}

func mismatch(index int, format string, args ...any) error {
	return verrors.New("E402").
		AtPath(fmt.Sprintf("patch[%d]", index)).
		WithDetailf(format, args...).
		Wrap(ErrPatchMismatch)
}
