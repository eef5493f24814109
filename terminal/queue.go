package terminal

import (
	"bytes"
	"sync"
)

// Queue is the outbound FIFO between the key reader and the relay.
// Push and Drain may be called from different goroutines.
type Queue struct {
	mu     sync.Mutex
	chunks [][]byte
}

// Push appends a copy of chunk. Empty chunks are ignored.
func (q *Queue) Push(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	c := bytes.Clone(chunk)
	q.mu.Lock()
	q.chunks = append(q.chunks, c)
	q.mu.Unlock()
}

// Drain removes every queued chunk and returns them concatenated in order,
// or nil when the queue is empty.
func (q *Queue) Drain() []byte {
	q.mu.Lock()
	chunks := q.chunks
	q.chunks = nil
	q.mu.Unlock()

	if len(chunks) == 0 {
		return nil
	}
	return bytes.Join(chunks, nil)
}

// Front returns a copy of the oldest chunk without removing it.
func (q *Queue) Front() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.chunks) == 0 {
		return nil, false
	}
	return bytes.Clone(q.chunks[0]), true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chunks)
}
