package vdom

import (
	"strconv"
	"strings"
	"sync"
)

// IDGenerator issues node ids ("h1", "h2", ...) and attribute ids.
type IDGenerator struct {
	mu    sync.Mutex
	nodes uint32
	attrs uint32
}

// NewIDGenerator creates a new IDGenerator.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns the next node id.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	g.nodes++
	n := g.nodes
	g.mu.Unlock()
	return "h" + strconv.FormatUint(uint64(n), 10)
}

// NextAttr returns the next attribute id. Zero is never returned.
func (g *IDGenerator) NextAttr() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attrs++
	return g.attrs
}

// Reset resets both counters to 0.
func (g *IDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = 0
	g.attrs = 0
}

// Current returns the current node counter without incrementing.
func (g *IDGenerator) Current() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes
}

// SeedFrom advances the counters past every id found in root, so that a
// generator created for a restored tree never reissues a live id.
func (g *IDGenerator) SeedFrom(root *Node) {
	var maxNode, maxAttr uint32
	Walk(root, func(n *Node) bool {
		if v, ok := parseNodeID(n.ID); ok && v > maxNode {
			maxNode = v
		}
		for _, a := range n.Attrs {
			if a.ID > maxAttr {
				maxAttr = a.ID
			}
		}
		return true
	})

	g.mu.Lock()
	defer g.mu.Unlock()
	if maxNode > g.nodes {
		g.nodes = maxNode
	}
	if maxAttr > g.attrs {
		g.attrs = maxAttr
	}
}

func parseNodeID(id string) (uint32, bool) {
	if !strings.HasPrefix(id, "h") {
		return 0, false
	}
	v, err := strconv.ParseUint(id[1:], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
