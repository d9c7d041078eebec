package sequence

import "container/heap"

type priorityItem[T any] struct {
	value    T
	priority int
	order    uint64
}

type priorityQueue[T any] struct {
	items []*priorityItem[T]
}

func (pq *priorityQueue[T]) Len() int {
	return len(pq.items)
}

// Less orders by priority, then by insertion so equal priorities dequeue FIFO.
func (pq *priorityQueue[T]) Less(i, j int) bool {
	a, b := pq.items[i], pq.items[j]
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	return a.order < b.order
}

func (pq *priorityQueue[T]) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
}

func (pq *priorityQueue[T]) Push(x any) {
	pq.items = append(pq.items, x.(*priorityItem[T]))
}

func (pq *priorityQueue[T]) Pop() any {
	old := pq.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	pq.items = old[0 : n-1]
	return item
}

// PriorityQueue dequeues the highest priority first. Items of equal priority
// come out in the order they were enqueued.
type PriorityQueue[T any] struct {
	pq    priorityQueue[T]
	count uint64
}

func NewPriorityQueue[T any]() *PriorityQueue[T] {
	pq := &PriorityQueue[T]{}
	heap.Init(&pq.pq)
	return pq
}

func (pq *PriorityQueue[T]) Enqueue(value T, priority int) {
	pq.count++
	heap.Push(&pq.pq, &priorityItem[T]{
		value:    value,
		priority: priority,
		order:    pq.count,
	})
}

func (pq *PriorityQueue[T]) Dequeue() (T, bool) {
	if pq.pq.Len() == 0 {
		var zero T
		return zero, false
	}
	item := heap.Pop(&pq.pq).(*priorityItem[T])
	return item.value, true
}

// Drain removes every item and returns them in dequeue order.
func (pq *PriorityQueue[T]) Drain() []T {
	out := make([]T, 0, pq.pq.Len())
	for pq.pq.Len() > 0 {
		out = append(out, heap.Pop(&pq.pq).(*priorityItem[T]).value)
	}
	return out
}

func (pq *PriorityQueue[T]) Len() int {
	return pq.pq.Len()
}

func (pq *PriorityQueue[T]) IsEmpty() bool {
	return pq.pq.Len() == 0
}
