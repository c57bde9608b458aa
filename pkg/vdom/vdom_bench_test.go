package vdom

import (
	"fmt"
	"testing"
)

func benchList(n int, rotate int) *Node {
	ul := Ul(Class("list"))
	for i := 0; i < n; i++ {
		k := fmt.Sprintf("k%d", (i+rotate)%n)
		ul.Children = append(ul.Children, Li(Key(k), Class("item"), Text(k)))
	}
	return ul
}

func BenchmarkDiff(b *testing.B) {
	for _, size := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("unchanged/%d", size), func(b *testing.B) {
			old, next := render(benchList(size, 0), benchList(size, 0))
			d := NewDiffer(nil, Options{})
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = d.Diff(old, next)
			}
		})

		b.Run(fmt.Sprintf("rotated/%d", size), func(b *testing.B) {
			old, next := render(benchList(size, 0), benchList(size, size/2))
			d := NewDiffer(nil, Options{})
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = d.Diff(old, next)
			}
		})
	}
}

func BenchmarkAlign(b *testing.B) {
	gen := NewIDGenerator()
	old := Align(nil, benchList(1000, 0), gen)
	next := benchList(1000, 3)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Align(old, next, gen)
	}
}
