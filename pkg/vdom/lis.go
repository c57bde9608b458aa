package vdom

// markLIS sets mark[i] = 1 for every position i that belongs to a longest
// strictly increasing subsequence of seq, ignoring entries < 0 (new inserts).
// It returns the subsequence length.
//
// Patience sorting with predecessor links: O(n log n). When several longest
// subsequences exist, the one ending at the leftmost smallest tail is kept.
func (p *Pool) markLIS(seq, mark []int) int {
	n := len(seq)
	if n == 0 {
		return 0
	}

	// tails[k] is the position in seq of the smallest tail of an increasing
	// run of length k+1; prev links each position to its predecessor.
	tails := p.rentInts(n)[:0]
	prev := p.rentInts(n)
	defer p.returnInts(tails)
	defer p.returnInts(prev)

	for i, v := range seq {
		prev[i] = -1
		if v < 0 {
			continue
		}
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := int(uint(lo+hi) >> 1)
			if seq[tails[mid]] < v {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			prev[i] = tails[lo-1]
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}

	length := len(tails)
	if length == 0 {
		return 0
	}
	for i := tails[length-1]; i >= 0; i = prev[i] {
		mark[i] = 1
	}
	return length
}
