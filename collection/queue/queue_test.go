package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue(t *testing.T) {
	q := NewQueue[int](2)
	_, ok := q.Peek()
	assert.False(t, ok)

	for i := 0; i < 5; i++ {
		q.Enqueue(i)
	}
	assert.Equal(t, 5, q.Len())
	assert.Equal(t, 3, q.At(3))

	v, ok := q.Dequeue()
	assert.True(t, ok)
	assert.Equal(t, 0, v)

	// wrap around the backing array before growing again
	q.Enqueue(5)
	q.Enqueue(6)
	for want := 1; want <= 6; want++ {
		v, ok := q.Dequeue()
		assert.True(t, ok)
		assert.Equal(t, want, v)
	}
	_, ok = q.Dequeue()
	assert.False(t, ok)
	assert.Panics(t, func() { q.At(0) })
}

func TestWrap(t *testing.T) {
	assert.Equal(t, 1, wrap(5, 4))
	assert.Equal(t, 3, wrap(-1, 4))
	assert.Equal(t, 0, wrap(-4, 4))
	assert.Equal(t, 2, growCap(1))
	assert.Equal(t, 1280, growCap(1024))
}
