package vdom

import (
	"sync/atomic"

	"github.com/colega/zeropool"
	"github.com/dolthub/swiss"
)

// Shared backing storage. zeropool is safe for concurrent use, so separate
// Pool instances recycle the same memory without coordinating.
var (
	patchSlicePool = zeropool.New(func() []Patch { return make([]Patch, 0, 64) })
	frameSlicePool = zeropool.New(func() []frame { return make([]frame, 0, 64) })
	intSlicePool   = zeropool.New(func() []int { return make([]int, 0, 64) })
)

// PoolStats reports rentals made through a Pool.
type PoolStats struct {
	Passes         int // Completed Diff/Align passes
	Rented         int // Scratch objects handed out
	Returned       int // Scratch objects given back
	KeyIndexBuilds int // Keyed middle sections that needed a key index
}

// Outstanding returns the number of rented objects not yet returned.
func (s PoolStats) Outstanding() int {
	return s.Rented - s.Returned
}

// Pool holds the scratch buffers and maps a Differ needs for one pass.
//
// A Pool is not safe for concurrent use. It serves exactly one pass at a time;
// beginning a pass while another is in flight fails with ErrPoolInUse.
// Callers that diff concurrently must give each goroutine its own Pool.
type Pool struct {
	busy  atomic.Bool
	maps  []*swiss.Map[string, int]
	stats PoolStats
}

// NewPool creates an empty Pool.
func NewPool() *Pool {
	return &Pool{}
}

// Stats returns the rental counters.
func (p *Pool) Stats() PoolStats {
	return p.stats
}

func (p *Pool) acquire() error {
	if !p.busy.CompareAndSwap(false, true) {
		return ErrPoolInUse
	}
	return nil
}

func (p *Pool) release() {
	p.stats.Passes++
	p.busy.Store(false)
}

func (p *Pool) rentPatches() []Patch {
	p.stats.Rented++
	return patchSlicePool.Get()[:0]
}

func (p *Pool) returnPatches(s []Patch) {
	p.stats.Returned++
	clear(s[:cap(s)])
	patchSlicePool.Put(s[:0])
}

func (p *Pool) rentFrames() []frame {
	p.stats.Rented++
	return frameSlicePool.Get()[:0]
}

func (p *Pool) returnFrames(s []frame) {
	p.stats.Returned++
	clear(s[:cap(s)])
	frameSlicePool.Put(s[:0])
}

// rentInts returns a zeroed slice of length n.
func (p *Pool) rentInts(n int) []int {
	p.stats.Rented++
	s := intSlicePool.Get()
	if cap(s) < n {
		s = make([]int, n, growCap(n))
	} else {
		s = s[:n]
		clear(s)
	}
	return s
}

func (p *Pool) returnInts(s []int) {
	p.stats.Returned++
	intSlicePool.Put(s[:0])
}

// rentMap returns an empty string-keyed map sized for at least n entries.
func (p *Pool) rentMap(n int) *swiss.Map[string, int] {
	p.stats.Rented++
	if last := len(p.maps) - 1; last >= 0 {
		m := p.maps[last]
		p.maps = p.maps[:last]
		return m
	}
	return swiss.NewMap[string, int](uint32(growCap(n)))
}

func (p *Pool) returnMap(m *swiss.Map[string, int]) {
	p.stats.Returned++
	m.Clear()
	p.maps = append(p.maps, m)
}

// growCap doubles from 8 until n fits.
func growCap(n int) int {
	c := 8
	for c < n {
		c *= 2
	}
	return c
}
