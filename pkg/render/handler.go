package render

import (
	"errors"
	"strings"

	"github.com/vango-dev/vdiff/pkg/vdom"
)

// HandlerSep separates the fields of a handler payload.
const HandlerSep = "\x1f"

// ErrMalformedHandler is returned for a payload that does not have exactly
// five fields.
var ErrMalformedHandler = errors.New("render: malformed handler payload")

// HandlerPayload encodes a handler binding as
// event, correlation, message, data type and factory flag ("1" or "0"),
// joined by HandlerSep.
func HandlerPayload(h *vdom.Handler) string {
	if h == nil {
		return ""
	}
	factory := "0"
	if h.HasFactory {
		factory = "1"
	}
	return strings.Join([]string{h.Event, h.Correlation, h.Message, h.DataType, factory}, HandlerSep)
}

// ParseHandlerPayload is the inverse of HandlerPayload.
func ParseHandlerPayload(s string) (*vdom.Handler, error) {
	parts := strings.Split(s, HandlerSep)
	if len(parts) != 5 {
		return nil, ErrMalformedHandler
	}
	h := &vdom.Handler{
		Event:       parts[0],
		Correlation: parts[1],
		Message:     parts[2],
		DataType:    parts[3],
	}
	switch parts[4] {
	case "1":
		h.HasFactory = true
	case "0":
	default:
		return nil, ErrMalformedHandler
	}
	return h, nil
}
