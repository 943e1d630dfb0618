// Package topk keeps the k highest-scoring items of a stream in O(k) memory.
package topk

import "container/heap"

// Item is a retained candidate and its score.
type Item[T any] struct {
	Value T
	Score float32
}

// items implements heap.Interface ordered by ascending score (min-heap), so
// the weakest retained candidate is always at index 0.
type items[T any] []Item[T]

func (h items[T]) Len() int           { return len(h) }
func (h items[T]) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h items[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *items[T]) Push(x any) {
	*h = append(*h, x.(Item[T]))
}

func (h *items[T]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	var zero Item[T]
	old[n-1] = zero
	*h = old[:n-1]
	return x
}

// Heap is a bounded min-heap holding at most k items.
type Heap[T any] struct {
	k     int
	items items[T]
}

// New returns a Heap retaining at most k items. k must be positive.
func New[T any](k int) *Heap[T] {
	if k < 1 {
		k = 1
	}
	return &Heap[T]{k: k, items: make(items[T], 0, k)}
}

// Offer considers v. While fewer than k items are held it is always kept;
// afterwards it replaces the current minimum only if score is strictly
// greater. It reports whether v was kept.
func (h *Heap[T]) Offer(v T, score float32) bool {
	if len(h.items) < h.k {
		heap.Push(&h.items, Item[T]{Value: v, Score: score})
		return true
	}
	if score <= h.items[0].Score {
		return false
	}
	h.items[0] = Item[T]{Value: v, Score: score}
	heap.Fix(&h.items, 0)
	return true
}

// Len returns the number of items held.
func (h *Heap[T]) Len() int { return len(h.items) }

// Min returns the weakest retained item.
func (h *Heap[T]) Min() (Item[T], bool) {
	if len(h.items) == 0 {
		return Item[T]{}, false
	}
	return h.items[0], true
}

// Drain empties the heap and returns its items ordered by descending score.
func (h *Heap[T]) Drain() []Item[T] {
	out := make([]Item[T], len(h.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h.items).(Item[T])
	}
	return out
}
