package streams

import "context"

// PausableTransport is the upstream byte source the flow-control wrappers
// throttle. Pause and resume are best-effort: an unsupported or already
// closed transport fails the call, the wrapper swallows the failure, and the
// transport keeps its own ReadingPaused flag accurate (toggled only on
// success). That flag is the one the protocol layer observes.
type PausableTransport interface {
	PauseReading() error
	ResumeReading() error
	ReadingPaused() bool
}

// FlowControlStreamReader couples a StreamReader to its transport's
// pause/resume controls. It exposes the identical read contract; the only
// observable difference is upstream: while the buffered byte count exceeds
// twice the configured limit the transport is paused, and once a read drops
// it back below the threshold the transport is resumed. Producers see
// backpressure only as data delivery ceasing.
//
// The pause decision runs after every feed, the resume decision after every
// successful read. A single watermark governs both directions.
type FlowControlStreamReader struct {
	r  *StreamReader
	tr PausableTransport

	bLimit int

	// allowPause records that this wrapper resumed a transport it found
	// paused at construction, and therefore owns the right to re-pause it on
	// feed. Without it, nested wrappers would fight over pause state.
	allowPause bool
}

// NewFlowControlStreamReader wraps r with flow control against tr. The
// watermark is twice limit bytes. A transport found already paused is resumed.
func NewFlowControlStreamReader(r *StreamReader, tr PausableTransport, limit int) *FlowControlStreamReader {
	f := &FlowControlStreamReader{r: r, tr: tr, bLimit: limit * 2}
	if tr.ReadingPaused() {
		if err := tr.ResumeReading(); err == nil {
			f.allowPause = true
		}
	}
	return f
}

// Overflow reports whether the buffered byte count exceeds the watermark.
func (f *FlowControlStreamReader) Overflow() bool {
	return f.r.BufferedBytes() > f.bLimit
}

// FeedData appends a chunk and pauses the transport when the buffer has
// overflowed the watermark. The pause is skipped while a read is already
// waiting for this chunk, since it will leave the buffer immediately.
func (f *FlowControlStreamReader) FeedData(p []byte) error {
	hadWaiter := f.r.hasWaiter()
	if err := f.r.FeedData(p); err != nil {
		return err
	}
	if f.allowPause && !f.tr.ReadingPaused() && !hadWaiter && f.r.BufferedBytes() > f.bLimit {
		_ = f.tr.PauseReading()
	}
	return nil
}

// FeedEOF marks the end of the stream.
func (f *FlowControlStreamReader) FeedEOF() { f.r.FeedEOF() }

// SetError stores err permanently.
func (f *FlowControlStreamReader) SetError(err error) { f.r.SetError(err) }

// Err returns the stored error, if any.
func (f *FlowControlStreamReader) Err() error { return f.r.Err() }

// IsEOF reports whether FeedEOF was called.
func (f *FlowControlStreamReader) IsEOF() bool { return f.r.IsEOF() }

// AtEOF reports whether FeedEOF was called and the buffer is drained.
func (f *FlowControlStreamReader) AtEOF() bool { return f.r.AtEOF() }

// WaitEOF blocks until the stream ends.
func (f *FlowControlStreamReader) WaitEOF(ctx context.Context) error { return f.r.WaitEOF(ctx) }

// TotalBytes returns the running total of bytes fed into the stream.
func (f *FlowControlStreamReader) TotalBytes() int64 { return f.r.TotalBytes() }

// BufferedBytes returns the number of bytes currently buffered and unread.
func (f *FlowControlStreamReader) BufferedBytes() int { return f.r.BufferedBytes() }

// UnreadData rolls back consumed bytes.
func (f *FlowControlStreamReader) UnreadData(p []byte) { f.r.UnreadData(p) }

// Read returns up to n bytes. See Reader.
func (f *FlowControlStreamReader) Read(ctx context.Context, n int) ([]byte, error) {
	data, err := f.r.Read(ctx, n)
	if err != nil {
		return nil, err
	}
	f.checkBufferSize()
	return data, nil
}

// ReadAny returns whatever is buffered. See Reader.
func (f *FlowControlStreamReader) ReadAny(ctx context.Context) ([]byte, error) {
	data, err := f.r.ReadAny(ctx)
	if err != nil {
		return nil, err
	}
	f.checkBufferSize()
	return data, nil
}

// ReadLine accumulates bytes through the first '\n' or EOF. See Reader.
func (f *FlowControlStreamReader) ReadLine(ctx context.Context) ([]byte, error) {
	data, err := f.r.ReadLine(ctx)
	if err != nil {
		return nil, err
	}
	f.checkBufferSize()
	return data, nil
}

// ReadExactly returns exactly n bytes. See Reader.
func (f *FlowControlStreamReader) ReadExactly(ctx context.Context, n int) ([]byte, error) {
	data, err := f.r.ReadExactly(ctx, n)
	if err != nil {
		return nil, err
	}
	f.checkBufferSize()
	return data, nil
}

// ReadNoWait slices like Read but never blocks. See Reader.
func (f *FlowControlStreamReader) ReadNoWait(n int) ([]byte, error) {
	data, err := f.r.ReadNoWait(n)
	if err != nil {
		return nil, err
	}
	f.checkBufferSize()
	return data, nil
}

// Lines returns an iterator yielding one line per Next call.
func (f *FlowControlStreamReader) Lines() *Iterator { return newIterator(f.ReadLine) }

// Chunks returns an iterator yielding fixed-size chunks of up to n bytes.
func (f *FlowControlStreamReader) Chunks(n int) *Iterator {
	return newIterator(func(ctx context.Context) ([]byte, error) {
		return f.Read(ctx, n)
	})
}

// Slices returns an iterator yielding data slices as they arrive.
func (f *FlowControlStreamReader) Slices() *Iterator { return newIterator(f.ReadAny) }

func (f *FlowControlStreamReader) checkBufferSize() {
	if f.tr.ReadingPaused() {
		if f.r.BufferedBytes() < f.bLimit {
			_ = f.tr.ResumeReading()
		}
	} else {
		if f.r.BufferedBytes() > f.bLimit {
			_ = f.tr.PauseReading()
		}
	}
}

// FlowControlDataQueue couples a DataQueue to its transport's pause/resume
// controls, accounting by the declared item sizes instead of raw byte
// counts. Same watermark rule as FlowControlStreamReader.
type FlowControlDataQueue[T any] struct {
	q  *DataQueue[T]
	tr PausableTransport

	limit      int
	allowPause bool
}

// NewFlowControlDataQueue wraps q with flow control against tr. The
// watermark is twice limit of summed declared sizes.
func NewFlowControlDataQueue[T any](q *DataQueue[T], tr PausableTransport, limit int) *FlowControlDataQueue[T] {
	f := &FlowControlDataQueue[T]{q: q, tr: tr, limit: limit * 2}
	if tr.ReadingPaused() {
		if err := tr.ResumeReading(); err == nil {
			f.allowPause = true
		}
	}
	return f
}

// FeedData appends an item and pauses the transport when the summed declared
// size has overflowed the watermark.
func (f *FlowControlDataQueue[T]) FeedData(item T, size int) error {
	hadWaiter := f.q.hasWaiter()
	if err := f.q.FeedData(item, size); err != nil {
		return err
	}
	if f.allowPause && !f.tr.ReadingPaused() && !hadWaiter && f.q.BufferedSize() > f.limit {
		_ = f.tr.PauseReading()
	}
	return nil
}

// FeedEOF marks the end of the queue.
func (f *FlowControlDataQueue[T]) FeedEOF() { f.q.FeedEOF() }

// SetError stores err permanently.
func (f *FlowControlDataQueue[T]) SetError(err error) { f.q.SetError(err) }

// Err returns the stored error, if any.
func (f *FlowControlDataQueue[T]) Err() error { return f.q.Err() }

// IsEOF reports whether FeedEOF was called.
func (f *FlowControlDataQueue[T]) IsEOF() bool { return f.q.IsEOF() }

// AtEOF reports whether FeedEOF was called and the queue is drained.
func (f *FlowControlDataQueue[T]) AtEOF() bool { return f.q.AtEOF() }

// BufferedSize returns the summed declared size of the queued items.
func (f *FlowControlDataQueue[T]) BufferedSize() int { return f.q.BufferedSize() }

// Read pops the next item and re-evaluates the pause state against the
// watermark. Returns ErrEOFStream once the queue is empty at EOF.
func (f *FlowControlDataQueue[T]) Read(ctx context.Context) (T, error) {
	item, err := f.q.Read(ctx)
	if err != nil {
		return item, err
	}
	if f.tr.ReadingPaused() {
		if f.q.BufferedSize() < f.limit {
			_ = f.tr.ResumeReading()
		}
	} else {
		if f.q.BufferedSize() > f.limit {
			_ = f.tr.PauseReading()
		}
	}
	return item, nil
}

// FlowControlChunksQueue is the chunk-style specialization of
// FlowControlDataQueue: ErrEOFStream becomes an empty return.
type FlowControlChunksQueue struct {
	q *FlowControlDataQueue[[]byte]
}

// NewFlowControlChunksQueue wraps a fresh chunk queue with flow control
// against tr.
func NewFlowControlChunksQueue(tr PausableTransport, limit int) *FlowControlChunksQueue {
	return &FlowControlChunksQueue{q: NewFlowControlDataQueue(NewDataQueue[[]byte](), tr, limit)}
}

// Err returns the stored error, if any.
func (c *FlowControlChunksQueue) Err() error { return c.q.Err() }

// SetError stores err permanently.
func (c *FlowControlChunksQueue) SetError(err error) { c.q.SetError(err) }

// FeedData appends a chunk with its declared size.
func (c *FlowControlChunksQueue) FeedData(p []byte, size int) error { return c.q.FeedData(p, size) }

// FeedEOF marks the end of the queue.
func (c *FlowControlChunksQueue) FeedEOF() { c.q.FeedEOF() }

// IsEOF reports whether FeedEOF was called.
func (c *FlowControlChunksQueue) IsEOF() bool { return c.q.IsEOF() }

// AtEOF reports whether FeedEOF was called and the queue is drained.
func (c *FlowControlChunksQueue) AtEOF() bool { return c.q.AtEOF() }

// BufferedSize returns the summed declared size of the queued chunks.
func (c *FlowControlChunksQueue) BufferedSize() int { return c.q.BufferedSize() }

// Read pops the next chunk; an empty return means EOF.
func (c *FlowControlChunksQueue) Read(ctx context.Context) ([]byte, error) {
	chunk, err := c.q.Read(ctx)
	if err == ErrEOFStream {
		return nil, nil
	}
	return chunk, err
}

// ReadAny is an alias for Read, mirroring the byte-stream API.
func (c *FlowControlChunksQueue) ReadAny(ctx context.Context) ([]byte, error) {
	return c.Read(ctx)
}

// Slices returns an iterator yielding chunks until EOF.
func (c *FlowControlChunksQueue) Slices() *Iterator {
	return newIterator(c.Read)
}
