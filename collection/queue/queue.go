// Package queue is a growable FIFO ring buffer
package queue

import (
	"sync"
)

type Queue[T any] struct {
	count int // Number of items inside this queue
	head  int // index where the next item will be written
	tail  int // index of the oldest item
	arr   []T
	mu    sync.RWMutex
}

// creates a new queue with the given initial capacity
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{arr: make([]T, capacity)}
}

// Get the number of items in the buffer
func (b *Queue[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Write a new data into the queue
func (b *Queue[T]) Enqueue(data T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == len(b.arr) {
		b.grow()
	}
	b.arr[b.head] = data
	b.head = wrap(b.head+1, len(b.arr))
	b.count++
}

// Retrieve the oldest data from the queue, ok is false if the queue is empty
func (b *Queue[T]) Dequeue() (data T, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return data, false
	}
	data = b.arr[b.tail]
	var zero T
	b.arr[b.tail] = zero
	b.tail = wrap(b.tail+1, len(b.arr))
	b.count--
	return data, true
}

// Peek the oldest data in the queue without removing it, ok is false if the queue is empty
func (b *Queue[T]) Peek() (data T, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.count == 0 {
		return data, false
	}
	return b.arr[b.tail], true
}

// Peek the data at the given index without removing it from the queue. Panics if the index is outside the queue boundary
func (b *Queue[T]) At(index int) T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if index < 0 || index >= b.count {
		panic("queue: index out of range")
	}
	return b.arr[wrap(b.tail+index, len(b.arr))]
}

// grow the array that backs the queue, items are re-laid from index 0
func (b *Queue[T]) grow() {
	newArr := make([]T, growCap(len(b.arr)))
	for i := 0; i < b.count; i++ {
		newArr[i] = b.arr[wrap(b.tail+i, len(b.arr))]
	}
	b.arr = newArr
	b.tail = 0
	b.head = b.count
}

func growCap(prev int) int {
	if prev < 1024 {
		return 2 * prev
	}
	return int(float64(prev) * 1.25)
}

func wrap(n int, cap int) int {
	if n < 0 {
		return (cap - ((n * -1) % cap)) % cap
	}
	return n % cap
}
