package streams

import (
	"bytes"
	"context"
	"fmt"
	"sync"
)

// DefaultLimit is the default read limit (64 KiB). It bounds ReadLine
// accumulation and doubles as the flow-control watermark base and the default
// payload chunk size.
const DefaultLimit = 1 << 16

// Reader is the consumer-facing read contract. It is implemented by
// StreamReader, EmptyStreamReader and FlowControlStreamReader, which are
// interchangeable from the consumer's point of view.
//
// All blocking methods take a context; cancelling it releases the blocked
// read and clears the internal waiter slot so a later read is not
// deadlocked. At most one blocking read may be outstanding per stream; a
// second concurrent one fails with *UsageError without disturbing the first.
type Reader interface {
	// Read returns up to n bytes. n < 0 reads until EOF; n == 0 returns an
	// empty slice without blocking; n > 0 blocks at most once, only when the
	// buffer is empty and EOF has not been signaled.
	Read(ctx context.Context, n int) ([]byte, error)
	// ReadAny returns whatever is buffered, blocking only when the buffer is
	// empty and EOF has not been signaled. An empty return means EOF.
	ReadAny(ctx context.Context) ([]byte, error)
	// ReadLine accumulates bytes through the first '\n' or EOF. It fails
	// with *LimitExceededError when the line exceeds the configured limit
	// before a newline is found.
	ReadLine(ctx context.Context) ([]byte, error)
	// ReadExactly returns exactly n bytes, or *IncompleteReadError carrying
	// the partial bytes when EOF arrives first.
	ReadExactly(ctx context.Context, n int) ([]byte, error)
	// ReadNoWait slices like Read but never blocks. It fails with
	// *UsageError while a blocking read is pending.
	ReadNoWait(n int) ([]byte, error)

	// IsEOF reports whether FeedEOF was called.
	IsEOF() bool
	// AtEOF reports whether FeedEOF was called and the buffer is drained.
	AtEOF() bool
	// Err returns the stored error, if any.
	Err() error
}

// StreamReader is a single-producer/single-consumer byte stream. The feeding
// layer (a protocol parser) appends chunks with FeedData and terminates the
// stream with FeedEOF or SetError; the consumer drains it with the Read
// family or the iterators. The producer side never blocks.
type StreamReader struct {
	mu    sync.Mutex
	limit int

	buf   chunkBuffer
	total int64

	eof bool
	err error

	// waiter is the single pending blocked-read slot. It is closed (never
	// sent on) by the producer side, so a wake reaches the reader even if it
	// was cancelled in between.
	waiter    chan struct{}
	eofWaiter chan struct{}
}

// StreamReaderOption configures a StreamReader.
type StreamReaderOption func(*StreamReader)

// WithLimit sets the read limit used by ReadLine.
func WithLimit(limit int) StreamReaderOption {
	return func(r *StreamReader) { r.limit = limit }
}

// NewStreamReader creates a StreamReader with DefaultLimit unless overridden.
func NewStreamReader(opts ...StreamReaderOption) *StreamReader {
	r := &StreamReader{limit: DefaultLimit}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// String describes the stream state for debug logs.
func (r *StreamReader) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := fmt.Sprintf("<StreamReader %d bytes", r.buf.len())
	if r.eof {
		s += " eof"
	}
	if r.err != nil {
		s += fmt.Sprintf(" err=%v", r.err)
	}
	return s + ">"
}

// Err returns the stored error, if any.
func (r *StreamReader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// SetError stores err permanently and wakes any pending read with it. The
// first stored error wins; it is replayed to every subsequent read and is
// never cleared.
func (r *StreamReader) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
	r.wakeWaiterLocked()
	r.wakeEOFWaiterLocked()
}

// FeedData appends a chunk to the buffer and wakes a pending read. The
// stream takes ownership of p. Calling FeedData after FeedEOF or SetError is
// a usage error.
func (r *StreamReader) FeedData(p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.eof {
		return NewUsageError("FeedData", "called after FeedEOF")
	}
	if r.err != nil {
		return NewUsageError("FeedData", "called after SetError")
	}
	if len(p) == 0 {
		return nil
	}
	r.buf.append(p)
	r.total += int64(len(p))
	r.wakeWaiterLocked()
	return nil
}

// FeedEOF marks the end of the stream and wakes any pending read and EOF
// waiters. The transition is one-way.
func (r *StreamReader) FeedEOF() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eof = true
	r.wakeWaiterLocked()
	r.wakeEOFWaiterLocked()
}

// IsEOF reports whether FeedEOF was called.
func (r *StreamReader) IsEOF() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eof
}

// AtEOF reports whether FeedEOF was called and the buffer is drained.
func (r *StreamReader) AtEOF() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eof && r.buf.empty()
}

// TotalBytes returns the running total of bytes fed into the stream.
func (r *StreamReader) TotalBytes() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// BufferedBytes returns the number of bytes currently buffered and unread.
func (r *StreamReader) BufferedBytes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.len()
}

// WaitEOF blocks until FeedEOF or SetError is called, or ctx is cancelled.
func (r *StreamReader) WaitEOF(ctx context.Context) error {
	r.mu.Lock()
	if r.eof {
		r.mu.Unlock()
		return nil
	}
	if r.err != nil {
		err := r.err
		r.mu.Unlock()
		return err
	}
	if r.eofWaiter == nil {
		r.eofWaiter = make(chan struct{})
	}
	w := r.eofWaiter
	r.mu.Unlock()

	select {
	case <-w:
	case <-ctx.Done():
		return ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// UnreadData rolls back consumed bytes, inserting them at the buffer head.
// The next read returns them first.
func (r *StreamReader) UnreadData(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf.prepend(p)
}

// Read returns up to n bytes. See Reader for the full contract.
func (r *StreamReader) Read(ctx context.Context, n int) ([]byte, error) {
	if n < 0 {
		// Waiting for the buffer to hold everything would deadlock against
		// the flow-control watermark, so drain with repeated ReadAny.
		var blocks [][]byte
		for {
			block, err := r.ReadAny(ctx)
			if err != nil {
				return nil, err
			}
			if len(block) == 0 {
				break
			}
			blocks = append(blocks, block)
		}
		return bytes.Join(blocks, nil), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if n == 0 {
		return nil, nil
	}
	if r.buf.empty() && !r.eof {
		if err := r.waitLocked(ctx, "Read"); err != nil {
			return nil, err
		}
	}
	return r.buf.pop(n), nil
}

// ReadAny returns whatever is buffered. See Reader for the full contract.
func (r *StreamReader) ReadAny(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if r.buf.empty() && !r.eof {
		if err := r.waitLocked(ctx, "ReadAny"); err != nil {
			return nil, err
		}
	}
	return r.buf.pop(-1), nil
}

// ReadLine accumulates bytes through the first '\n' or EOF. The returned
// line includes the trailing newline; a final unterminated line at EOF is
// returned without one. Exceeding the limit before any newline fails with
// *LimitExceededError; bytes scanned up to that point stay consumed, and the
// stream remains usable for later reads.
func (r *StreamReader) ReadLine(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}

	var line [][]byte
	lineSize := 0
	notEnough := true

	for notEnough {
		for !r.buf.empty() && notEnough {
			var data []byte
			if i := r.buf.indexNewline(); i >= 0 {
				data = r.buf.popChunk(i)
				notEnough = false
			} else {
				data = r.buf.popChunk(-1)
			}
			line = append(line, data)
			lineSize += len(data)
			if lineSize > r.limit {
				return nil, NewLimitExceededError(r.limit)
			}
		}
		if r.eof {
			break
		}
		if notEnough {
			if err := r.waitLocked(ctx, "ReadLine"); err != nil {
				return nil, err
			}
		}
	}
	return bytes.Join(line, nil), nil
}

// ReadExactly returns exactly n bytes. See Reader for the full contract.
func (r *StreamReader) ReadExactly(ctx context.Context, n int) ([]byte, error) {
	var blocks [][]byte
	for n > 0 {
		block, err := r.Read(ctx, n)
		if err != nil {
			return nil, err
		}
		if len(block) == 0 {
			return nil, NewIncompleteReadError(bytes.Join(blocks, nil), n+joinedLen(blocks))
		}
		blocks = append(blocks, block)
		n -= len(block)
	}
	return bytes.Join(blocks, nil), nil
}

// ReadNoWait slices like Read but never blocks. See Reader.
func (r *StreamReader) ReadNoWait(n int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if r.waiter != nil {
		return nil, NewUsageError("ReadNoWait", "called while another read is waiting for incoming data")
	}
	return r.buf.pop(n), nil
}

// Lines returns an iterator yielding one line per Next call.
func (r *StreamReader) Lines() *Iterator {
	return newIterator(r.ReadLine)
}

// Chunks returns an iterator yielding fixed-size chunks of up to n bytes.
func (r *StreamReader) Chunks(n int) *Iterator {
	return newIterator(func(ctx context.Context) ([]byte, error) {
		return r.Read(ctx, n)
	})
}

// Slices returns an iterator yielding data slices as they arrive.
func (r *StreamReader) Slices() *Iterator {
	return newIterator(r.ReadAny)
}

// waitLocked parks the calling read until the producer side wakes it. Called
// and returned with r.mu held. Enforces the single-waiter rule: a stream
// links its producer to exactly one blocked read, so two concurrent blocking
// reads could not know which one the next chunk belongs to.
func (r *StreamReader) waitLocked(ctx context.Context, op string) error {
	if r.waiter != nil {
		return NewUsageError(op, "called while another read is already waiting for incoming data")
	}
	w := make(chan struct{})
	r.waiter = w
	r.mu.Unlock()

	select {
	case <-w:
		r.mu.Lock()
		return r.err
	case <-ctx.Done():
		r.mu.Lock()
		// Clear the slot so a later read is not permanently locked out.
		if r.waiter == w {
			r.waiter = nil
		}
		return ctx.Err()
	}
}

// hasWaiter reports whether a blocked read is pending. Used by the
// flow-control wrapper to skip the pause decision when the fed chunk is
// about to be consumed immediately.
func (r *StreamReader) hasWaiter() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waiter != nil
}

func (r *StreamReader) wakeWaiterLocked() {
	if w := r.waiter; w != nil {
		r.waiter = nil
		close(w)
	}
}

func (r *StreamReader) wakeEOFWaiterLocked() {
	if w := r.eofWaiter; w != nil {
		r.eofWaiter = nil
		close(w)
	}
}

func joinedLen(blocks [][]byte) int {
	n := 0
	for _, b := range blocks {
		n += len(b)
	}
	return n
}
