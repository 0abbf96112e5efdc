package tlru

import "container/heap"

// Wrapper for elements inside a priority queue, every data is paired with a priority value
type Item[T any] struct {
	priority int64
	index    int
	Value    T
}

// Make a new priority queue item from the given value and priority
func NewItem[T any](value T, priority int64) *Item[T] {
	return &Item[T]{
		priority: priority,
		index:    -1,
		Value:    value,
	}
}

// Check if the item is not held by a queue
func (i *Item[T]) Empty() bool {
	return i.index == -1
}

// Min priority queue of type T implementation
type PriorityQueue[T any] struct {
	q queue[T]
}

// Create a new priority queue of type T
func NewQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{}
}

// Get the number of items in the priority queue
func (q *PriorityQueue[T]) Len() int {
	return q.q.Len()
}

// Push an entry to the queue
func (q *PriorityQueue[T]) Push(item *Item[T]) {
	heap.Push(&q.q, item)
}

// Pop removes the entry with the lowest priority
func (q *PriorityQueue[T]) Pop() *Item[T] {
	if q.q.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.q).(*Item[T])
}

// Peek the entry with the lowest priority without removing it from the collection
func (q *PriorityQueue[T]) Peek() *Item[T] {
	if q.q.Len() == 0 {
		return nil
	}
	return q.q[0]
}

// Update changes the priority of an item held by the queue
func (q *PriorityQueue[T]) Update(item *Item[T], priority int64) {
	item.priority = priority
	if !item.Empty() {
		heap.Fix(&q.q, item.index)
	}
}

// Remove an item held by the queue
func (q *PriorityQueue[T]) Remove(item *Item[T]) {
	if !item.Empty() {
		heap.Remove(&q.q, item.index)
	}
}

type queue[T any] []*Item[T]

func (q queue[T]) Len() int {
	return len(q)
}

func (q queue[T]) Less(i, j int) bool {
	return q[i].priority < q[j].priority
}

func (q queue[T]) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue[T]) Push(x any) {
	item := x.(*Item[T])
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *queue[T]) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}
