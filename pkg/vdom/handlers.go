package vdom

import (
	"errors"
	"strconv"
	"sync"
)

// ErrHandlerNotFound is returned when dispatching to an unknown correlation.
var ErrHandlerNotFound = errors.New("vdom: handler not found")

// HandlerFunc receives the event payload.
type HandlerFunc func(payload any) error

// DataFactory builds the payload for events that carry data.
type DataFactory func() any

type handlerEntry struct {
	fn      HandlerFunc
	factory DataFactory
}

// HandlerTable maps correlation tokens to callbacks. Trees only carry the
// tokens, which keeps them comparable by value.
//
// A HandlerTable is safe for concurrent use; events usually arrive on a
// transport goroutine while renders happen elsewhere.
type HandlerTable struct {
	mu      sync.RWMutex
	entries map[string]handlerEntry
	next    uint64
}

// NewHandlerTable creates an empty table.
func NewHandlerTable() *HandlerTable {
	return &HandlerTable{entries: make(map[string]handlerEntry)}
}

// Register stores fn under correlation, replacing any previous entry.
func (t *HandlerTable) Register(correlation string, fn HandlerFunc) {
	t.RegisterWithData(correlation, fn, nil)
}

// RegisterWithData stores fn and a payload factory under correlation.
func (t *HandlerTable) RegisterWithData(correlation string, fn HandlerFunc, factory DataFactory) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[correlation] = handlerEntry{fn: fn, factory: factory}
}

// Bind registers fn under a fresh correlation token and returns the handler
// attribute for event.
func (t *HandlerTable) Bind(event string, fn HandlerFunc) Attr {
	corr := t.nextCorrelation()
	t.Register(corr, fn)
	return On(event, corr)
}

// BindData is Bind for events whose payload is produced by factory.
func (t *HandlerTable) BindData(event, dataType string, fn HandlerFunc, factory DataFactory) Attr {
	corr := t.nextCorrelation()
	t.RegisterWithData(corr, fn, factory)
	a := On(event, corr)
	a.Handler.DataType = dataType
	a.Handler.HasFactory = factory != nil
	return a
}

func (t *HandlerTable) nextCorrelation() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	return "c" + strconv.FormatUint(t.next, 10)
}

// Lookup returns the callback registered under correlation.
func (t *HandlerTable) Lookup(correlation string) (HandlerFunc, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[correlation]
	return e.fn, ok
}

// Dispatch invokes the callback for correlation. A nil payload is replaced by
// the registered factory's output when one exists.
func (t *HandlerTable) Dispatch(correlation string, payload any) error {
	t.mu.RLock()
	e, ok := t.entries[correlation]
	t.mu.RUnlock()
	if !ok || e.fn == nil {
		return ErrHandlerNotFound
	}
	if payload == nil && e.factory != nil {
		payload = e.factory()
	}
	return e.fn(payload)
}

// Prune drops every entry not referenced by a handler attribute in root and
// returns how many were removed.
func (t *HandlerTable) Prune(root *Node) int {
	live := make(map[string]struct{})
	Walk(root, func(n *Node) bool {
		for _, a := range n.Attrs {
			if a.Handler != nil {
				live[a.Handler.Correlation] = struct{}{}
			}
		}
		return true
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for corr := range t.entries {
		if _, ok := live[corr]; !ok {
			delete(t.entries, corr)
			removed++
		}
	}
	return removed
}

// Len returns the number of registered handlers.
func (t *HandlerTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
