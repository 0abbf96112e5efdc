package batchload

import (
	"fmt"
	"time"
)

// BatchState is the lifecycle position of a batch, batches only move forward
type BatchState int32

const (
	Open      BatchState = iota // accepting keys
	Executing                   // the batch function is running
	Closed                      // results delivered, the batch is dead
)

func (s BatchState) String() string {
	switch s {
	case Open:
		return "open"
	case Executing:
		return "executing"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("BatchState(%d)", int32(s))
}

// a batch of unique keys to be resolved together
type batch[TKey comparable, TValue any] struct {
	keys   []TKey
	index  map[TKey]int
	data   []TValue
	errors []error
	state  BatchState
	timer  *time.Timer
	done   chan struct{} // closed once every key of this batch has a result
}

func newBatch[TKey comparable, TValue any]() *batch[TKey, TValue] {
	return &batch[TKey, TValue]{
		index: make(map[TKey]int),
		done:  make(chan struct{}),
	}
}

// keyIndex will return the location of the key in the batch, if its not found
// it will add the key to the batch. The first key starts the batch timer and
// reaching the batch limit closes the batch right away.
// Must be called with the batcher lock held.
func (b *batch[TKey, TValue]) keyIndex(l *Batcher[TKey, TValue], key TKey) int {
	if pos, ok := b.index[key]; ok {
		return pos
	}

	pos := len(b.keys)
	b.keys = append(b.keys, key)
	b.index[key] = pos
	if pos == 0 {
		b.timer = time.AfterFunc(l.wait, func() { b.expire(l) })
	}

	if l.maxBatch != 0 && pos >= l.maxBatch-1 {
		b.close(l)
		go b.resolve(l)
	}

	return pos
}

// close detaches the batch from the batcher so no more keys can join it.
// Must be called with the batcher lock held.
func (b *batch[TKey, TValue]) close(l *Batcher[TKey, TValue]) {
	b.state = Executing
	if b.timer != nil {
		b.timer.Stop()
	}
	if l.batch == b {
		l.batch = nil
	}
}

func (b *batch[TKey, TValue]) expire(l *Batcher[TKey, TValue]) {
	l.mu.Lock()

	// hit the batch limit or got dispatched, already finalizing this batch
	if b.state != Open {
		l.mu.Unlock()
		return
	}

	b.close(l)
	l.mu.Unlock()

	b.resolve(l)
}

func (b *batch[TKey, TValue]) resolve(l *Batcher[TKey, TValue]) {
	l.stats.executed(len(b.keys))
	b.data, b.errors = l.execute(b.keys)
	l.mu.Lock()
	b.state = Closed
	l.mu.Unlock()
	close(b.done)
}

func (b *batch[TKey, TValue]) result(pos int) (TValue, error) {
	<-b.done
	return b.data[pos], b.errors[pos]
}
