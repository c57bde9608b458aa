package vdom

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMarkLIS(t *testing.T) {
	tests := []struct {
		seq    []int
		length int
		mark   []int
	}{
		{nil, 0, nil},
		{[]int{0}, 1, []int{1}},
		{[]int{0, 1, 2}, 3, []int{1, 1, 1}},
		{[]int{2, 1, 0}, 1, []int{0, 0, 1}},
		{[]int{3, 2, 1}, 1, []int{0, 0, 1}},
		{[]int{1, 2, 3, 0}, 3, []int{1, 1, 1, 0}},
		{[]int{3, 0, 1, 2}, 3, []int{0, 1, 1, 1}},
		{[]int{-1, 2, -1, 0, 1}, 2, []int{0, 0, 0, 1, 1}},
		{[]int{-1, -1}, 0, []int{0, 0}},
		{[]int{4, 1, 5, 2, 6, 3}, 3, []int{0, 1, 0, 1, 0, 1}},
	}

	p := NewPool()
	for _, tc := range tests {
		mark := make([]int, len(tc.seq))
		got := p.markLIS(tc.seq, mark)
		if got != tc.length {
			t.Errorf("markLIS(%v) = %d, want %d", tc.seq, got, tc.length)
		}
		if len(tc.seq) > 0 {
			if d := cmp.Diff(tc.mark, mark); d != "" {
				t.Errorf("markLIS(%v) marks (-want +got):\n%s", tc.seq, d)
			}
		}
	}
	if p.Stats().Outstanding() != 0 {
		t.Errorf("Outstanding = %d, want 0", p.Stats().Outstanding())
	}
}
