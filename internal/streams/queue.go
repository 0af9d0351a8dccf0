package streams

import (
	"context"
	"sync"
)

// DataQueue is a single-consumer queue of discrete pre-framed items, the
// item-wise generalization of StreamReader. Each item carries a declared
// size used only for backpressure accounting; the queue never inspects the
// item itself.
//
// Unlike byte reads, Read signals exhaustion with ErrEOFStream rather than a
// value: an item type has no natural empty sentinel. Buffered items are
// always delivered before a stored error is reported.
type DataQueue[T any] struct {
	mu sync.Mutex

	items []queueItem[T]
	size  int

	eof    bool
	err    error
	waiter chan struct{}
}

type queueItem[T any] struct {
	data T
	size int
}

// NewDataQueue creates an empty DataQueue.
func NewDataQueue[T any]() *DataQueue[T] {
	return &DataQueue[T]{}
}

// Err returns the stored error, if any.
func (q *DataQueue[T]) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// SetError stores err permanently and wakes a pending read. The first
// stored error wins.
func (q *DataQueue[T]) SetError(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err == nil {
		q.err = err
	}
	q.wakeWaiterLocked()
}

// FeedData appends an item with its declared size and wakes a pending read.
// Calling FeedData after FeedEOF or SetError is a usage error.
func (q *DataQueue[T]) FeedData(item T, size int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.eof {
		return NewUsageError("FeedData", "called after FeedEOF")
	}
	if q.err != nil {
		return NewUsageError("FeedData", "called after SetError")
	}
	q.items = append(q.items, queueItem[T]{data: item, size: size})
	q.size += size
	q.wakeWaiterLocked()
	return nil
}

// FeedEOF marks the end of the queue and wakes a pending read. The
// transition is one-way.
func (q *DataQueue[T]) FeedEOF() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.eof = true
	q.wakeWaiterLocked()
}

// IsEOF reports whether FeedEOF was called.
func (q *DataQueue[T]) IsEOF() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.eof
}

// AtEOF reports whether FeedEOF was called and the queue is drained.
func (q *DataQueue[T]) AtEOF() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.eof && len(q.items) == 0
}

// BufferedSize returns the summed declared size of the queued items.
func (q *DataQueue[T]) BufferedSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Read pops the next item in insertion order, blocking under the
// single-waiter rule when the queue is empty and EOF has not been signaled.
// Once the queue is empty at EOF it returns ErrEOFStream.
func (q *DataQueue[T]) Read(ctx context.Context) (T, error) {
	var zero T
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 && !q.eof {
		if q.err != nil {
			return zero, q.err
		}
		if q.waiter != nil {
			return zero, NewUsageError("Read", "called while another read is already waiting for incoming data")
		}
		w := make(chan struct{})
		q.waiter = w
		q.mu.Unlock()
		select {
		case <-w:
			q.mu.Lock()
		case <-ctx.Done():
			q.mu.Lock()
			if q.waiter == w {
				q.waiter = nil
			}
			return zero, ctx.Err()
		}
	}

	if len(q.items) > 0 {
		item := q.items[0]
		q.items = q.items[1:]
		q.size -= item.size
		return item.data, nil
	}
	if q.err != nil {
		return zero, q.err
	}
	return zero, ErrEOFStream
}

func (q *DataQueue[T]) hasWaiter() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waiter != nil
}

func (q *DataQueue[T]) wakeWaiterLocked() {
	if w := q.waiter; w != nil {
		q.waiter = nil
		close(w)
	}
}

// ChunksQueue specializes DataQueue for binary chunked transfer: it converts
// the ErrEOFStream condition into an empty-value return, matching the
// byte-stream termination style of StreamReader.
type ChunksQueue struct {
	q *DataQueue[[]byte]
}

// NewChunksQueue creates an empty ChunksQueue.
func NewChunksQueue() *ChunksQueue {
	return &ChunksQueue{q: NewDataQueue[[]byte]()}
}

// Err returns the stored error, if any.
func (c *ChunksQueue) Err() error { return c.q.Err() }

// SetError stores err permanently and wakes a pending read.
func (c *ChunksQueue) SetError(err error) { c.q.SetError(err) }

// FeedData appends a chunk with its declared size.
func (c *ChunksQueue) FeedData(p []byte, size int) error { return c.q.FeedData(p, size) }

// FeedEOF marks the end of the queue.
func (c *ChunksQueue) FeedEOF() { c.q.FeedEOF() }

// IsEOF reports whether FeedEOF was called.
func (c *ChunksQueue) IsEOF() bool { return c.q.IsEOF() }

// AtEOF reports whether FeedEOF was called and the queue is drained.
func (c *ChunksQueue) AtEOF() bool { return c.q.AtEOF() }

// BufferedSize returns the summed declared size of the queued chunks.
func (c *ChunksQueue) BufferedSize() int { return c.q.BufferedSize() }

// Read pops the next chunk; an empty return means EOF.
func (c *ChunksQueue) Read(ctx context.Context) ([]byte, error) {
	chunk, err := c.q.Read(ctx)
	if err == ErrEOFStream {
		return nil, nil
	}
	return chunk, err
}

// ReadAny is an alias for Read, mirroring the byte-stream API.
func (c *ChunksQueue) ReadAny(ctx context.Context) ([]byte, error) {
	return c.Read(ctx)
}

// Slices returns an iterator yielding chunks until EOF.
func (c *ChunksQueue) Slices() *Iterator {
	return newIterator(c.Read)
}
