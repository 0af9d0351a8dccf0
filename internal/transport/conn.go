package transport

import (
	"errors"
	"io"
	"net"
	"sync"

	"context"

	"example.com/streamcore/internal/logger"
)

// ErrClosing is returned by transport operations attempted after the
// connection began closing.
var ErrClosing = errors.New("transport is closing")

// Options tunes a Conn. Zero values select the defaults.
type Options struct {
	// ChunkSize is the read-loop slice size. Each inbound chunk handed to
	// the Sink is at most this large.
	ChunkSize int
	// WriteHighWatermark is the pending outbound byte level above which
	// WaitDrain blocks.
	WriteHighWatermark int
}

const (
	defaultChunkSize = 8 << 10
	defaultHighWater = 1 << 16
)

// Conn drives one net.Conn for the stream engine. A read-loop goroutine
// slices inbound bytes into chunks and feeds the Sink; PauseReading parks
// the loop until ResumeReading. A flush goroutine owns nc's write side;
// Write only queues. Conn is the single owner of the connection for its
// whole life.
type Conn struct {
	nc  net.Conn
	log *logger.Logger

	chunkSize int
	highWater int

	mu      sync.Mutex
	flushC  *sync.Cond
	paused  bool
	closing bool

	// resumeCh is non-nil while reading is paused; closing it releases the
	// read loop.
	resumeCh chan struct{}

	outq    [][]byte
	pending int
	// drainCh is non-nil while a WaitDrain caller is parked; closed when
	// pending drops to the watermark or the transport starts closing.
	drainCh chan struct{}
}

// NewConn wraps nc. Nothing is read until Start installs the Sink, so a
// flow-control wrapper built around the Conn can be the one receiving the
// feeds. The caller must eventually Close the Conn.
func NewConn(nc net.Conn, log *logger.Logger, opts Options) *Conn {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.WriteHighWatermark <= 0 {
		opts.WriteHighWatermark = defaultHighWater
	}
	c := &Conn{
		nc:        nc,
		log:       log.WithComponent("transport"),
		chunkSize: opts.ChunkSize,
		highWater: opts.WriteHighWatermark,
	}
	c.flushC = sync.NewCond(&c.mu)
	return c
}

// Start launches the read loop feeding sink and the write flusher. Call it
// exactly once.
func (c *Conn) Start(sink Sink) {
	go c.readLoop(sink)
	go c.flushLoop()
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

// TCPConn exposes the raw socket for option tuning; nil for non-TCP
// connections.
func (c *Conn) TCPConn() *net.TCPConn {
	if tc, ok := c.nc.(*net.TCPConn); ok {
		return tc
	}
	return nil
}

// PauseReading stops the read loop before its next read. Fails once the
// transport is closing or when reading is already paused; callers treat
// both as best-effort conditions.
func (c *Conn) PauseReading() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return ErrClosing
	}
	if c.paused {
		return errors.New("reading is already paused")
	}
	c.paused = true
	c.resumeCh = make(chan struct{})
	c.log.Debug("reading paused", logger.LogFields{"remote": c.nc.RemoteAddr().String()})
	return nil
}

// ResumeReading releases a paused read loop. Fails once the transport is
// closing or when reading is not paused.
func (c *Conn) ResumeReading() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return ErrClosing
	}
	if !c.paused {
		return errors.New("reading is not paused")
	}
	c.paused = false
	close(c.resumeCh)
	c.resumeCh = nil
	c.log.Debug("reading resumed", logger.LogFields{"remote": c.nc.RemoteAddr().String()})
	return nil
}

// ReadingPaused reports whether the read loop is paused.
func (c *Conn) ReadingPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// IsClosing reports whether the transport is closed or closing.
func (c *Conn) IsClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

// Write queues p for sending. The transport takes ownership of p.
func (c *Conn) Write(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return ErrClosing
	}
	if len(p) == 0 {
		return nil
	}
	c.outq = append(c.outq, p)
	c.pending += len(p)
	c.flushC.Signal()
	return nil
}

// PendingBytes returns the number of queued outbound bytes not yet handed to
// the kernel.
func (c *Conn) PendingBytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// WaitDrain blocks while pending outbound bytes exceed the high watermark.
// It fails with ErrClosing once the transport is closing, so a write loop
// cannot spin forever against a dead socket.
func (c *Conn) WaitDrain(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.closing {
			c.mu.Unlock()
			return ErrClosing
		}
		if c.pending <= c.highWater {
			c.mu.Unlock()
			return nil
		}
		if c.drainCh == nil {
			c.drainCh = make(chan struct{})
		}
		ch := c.drainCh
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close marks the transport closing, releases a paused read loop and any
// drain waiters, and closes the connection. Safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	if c.paused {
		c.paused = false
		close(c.resumeCh)
		c.resumeCh = nil
	}
	if c.drainCh != nil {
		close(c.drainCh)
		c.drainCh = nil
	}
	c.flushC.Broadcast()
	c.mu.Unlock()
	return c.nc.Close()
}

// readLoop slices inbound bytes into chunks for the Sink until EOF, error,
// or close. A pause takes effect before the next read; one in-flight read
// may still complete, which keeps pause best-effort rather than exact.
func (c *Conn) readLoop(sink Sink) {
	buf := make([]byte, c.chunkSize)
	for {
		c.mu.Lock()
		rc := c.resumeCh
		c.mu.Unlock()
		if rc != nil {
			<-rc
		}

		n, err := c.nc.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if feedErr := sink.FeedData(chunk); feedErr != nil {
				c.log.Error("dropping inbound chunk", logger.LogFields{
					"error": feedErr.Error(),
					"bytes": n,
				})
			}
		}
		if err != nil {
			c.deliverReadResult(sink, err)
			return
		}
	}
}

// deliverReadResult maps the read loop's final error onto the stream
// contract: clean EOF and locally initiated close both become FeedEOF;
// anything else is a transport error replayed to every read.
func (c *Conn) deliverReadResult(sink Sink, err error) {
	c.mu.Lock()
	closing := c.closing
	c.mu.Unlock()

	if err == io.EOF || closing || errors.Is(err, net.ErrClosed) {
		sink.FeedEOF()
	} else {
		c.log.Warn("connection read failed", logger.LogFields{"error": err.Error()})
		sink.SetError(err)
	}
}

// flushLoop writes queued chunks to the connection in order and wakes drain
// waiters once pending falls back to the watermark.
func (c *Conn) flushLoop() {
	for {
		c.mu.Lock()
		for len(c.outq) == 0 && !c.closing {
			c.flushC.Wait()
		}
		if len(c.outq) == 0 && c.closing {
			c.mu.Unlock()
			return
		}
		chunk := c.outq[0]
		c.outq = c.outq[1:]
		c.mu.Unlock()

		_, err := c.nc.Write(chunk)

		c.mu.Lock()
		c.pending -= len(chunk)
		if c.drainCh != nil && c.pending <= c.highWater {
			close(c.drainCh)
			c.drainCh = nil
		}
		if err != nil {
			c.mu.Unlock()
			c.log.Warn("connection write failed", logger.LogFields{"error": err.Error()})
			_ = c.Close()
			return
		}
		c.mu.Unlock()
	}
}
