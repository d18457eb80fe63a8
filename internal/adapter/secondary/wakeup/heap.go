package wakeup

import (
	"container/heap"

	"adhan-alarm/internal/domain"
)

type wakeupHeap []domain.Wakeup

func (h wakeupHeap) Len() int { return len(h) }
func (h wakeupHeap) Less(i, j int) bool {
	if h[i].FireAt.Equal(h[j].FireAt) {
		return h[i].Name < h[j].Name
	}
	return h[i].FireAt.Before(h[j].FireAt)
}
func (h wakeupHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *wakeupHeap) Push(x any) {
	*h = append(*h, x.(domain.Wakeup))
}

func (h *wakeupHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// heapPut adds w, replacing any entry with the same name.
func heapPut(h *wakeupHeap, w domain.Wakeup) {
	heapRemove(h, w.Name)
	heap.Push(h, w)
}

func heapPop(h *wakeupHeap) domain.Wakeup {
	return heap.Pop(h).(domain.Wakeup)
}

func heapRemove(h *wakeupHeap, name string) bool {
	for i, w := range *h {
		if w.Name == name {
			heap.Remove(h, i)
			return true
		}
	}
	return false
}
