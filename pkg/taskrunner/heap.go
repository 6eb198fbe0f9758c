package taskrunner

import (
	"container/heap"
	"time"
)

// delayedTask is a task waiting for its due time.
type delayedTask struct {
	due  time.Time
	seq  uint64
	task func()
}

// delayHeap implements container/heap.Interface for delayedTask, sorted by
// due time (earliest first) and then by posting order.
type delayHeap []delayedTask

func (h delayHeap) Len() int { return len(h) }
func (h delayHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}
func (h delayHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *delayHeap) Push(x any) {
	*h = append(*h, x.(delayedTask))
}

func (h *delayHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = delayedTask{}
	*h = old[:n-1]
	return x
}

func heapPush(h *delayHeap, t delayedTask) {
	heap.Push(h, t)
}

// heapPop removes and returns the earliest task. Panics if the heap is empty.
func heapPop(h *delayHeap) delayedTask {
	return heap.Pop(h).(delayedTask)
}
