// Package writer provides exclusive, queued write access to one
// connection's transport, plus best-effort TCP socket-option tuning.
package writer

import (
	"context"
	"runtime"
	"sync"

	"example.com/streamcore/internal/streams"
	"example.com/streamcore/internal/transport"
)

// StreamWriter is the per-connection outbound sink. At most one logical
// writer streams to the connection at a time: Acquire grants the lease
// immediately when it is free and otherwise queues the callback FIFO;
// Release wakes exactly one queued callback. A payload borrows the writer
// only for the duration of its write.
type StreamWriter struct {
	mu        sync.Mutex
	tr        transport.Transport
	available bool
	waiters   []func(transport.Transport)

	tcpNoDelay bool
	tcpCork    bool
}

// NewStreamWriter wraps tr with an unheld lease.
func NewStreamWriter(tr transport.Transport) *StreamWriter {
	return &StreamWriter{tr: tr, available: true}
}

// Acquire invokes cb with the transport once the lease is free: immediately
// when unheld, otherwise after the holders queued ahead have released. The
// callback runs on the releasing goroutine in that case.
func (w *StreamWriter) Acquire(cb func(transport.Transport)) {
	w.mu.Lock()
	if w.available {
		w.available = false
		w.mu.Unlock()
		cb(w.tr)
		return
	}
	w.waiters = append(w.waiters, cb)
	w.mu.Unlock()
}

// Release hands the lease to the next queued callback, or marks it free
// when nobody is waiting. Waiters wake strictly FIFO, one per Release.
func (w *StreamWriter) Release() {
	w.mu.Lock()
	if len(w.waiters) == 0 {
		w.available = true
		w.mu.Unlock()
		return
	}
	cb := w.waiters[0]
	w.waiters = w.waiters[1:]
	w.mu.Unlock()
	cb(w.tr)
}

// Held reports whether the lease is currently held.
func (w *StreamWriter) Held() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.available
}

// IsConnected reports whether the transport is still usable.
func (w *StreamWriter) IsConnected() bool {
	return w.tr != nil && !w.tr.IsClosing()
}

// Write sends p and drains. It enforces the lease: writing without holding
// it is a usage error.
func (w *StreamWriter) Write(ctx context.Context, p []byte) error {
	w.mu.Lock()
	if w.available {
		w.mu.Unlock()
		return streams.NewUsageError("Write", "writer lease is not held")
	}
	w.mu.Unlock()
	if err := w.tr.Write(p); err != nil {
		return err
	}
	return w.Drain(ctx)
}

// Drain blocks until the transport has outbound buffer room. When the
// transport reports closing it yields the scheduler once first, so a
// pending connection-lost notification can be observed instead of a write
// loop spinning forever against a dead socket.
func (w *StreamWriter) Drain(ctx context.Context) error {
	if w.tr.IsClosing() {
		runtime.Gosched()
	}
	return w.tr.WaitDrain(ctx)
}

// TCPNoDelay reports whether TCP_NODELAY is set on the socket.
func (w *StreamWriter) TCPNoDelay() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tcpNoDelay
}

// SetTCPNoDelay toggles TCP_NODELAY. Best-effort: a no-op on non-TCP
// transports or closed sockets. Mutually exclusive with cork; enabling it
// clears the cork first.
func (w *StreamWriter) SetTCPNoDelay(value bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.tcpNoDelay == value {
		return
	}
	tc := w.tr.TCPConn()
	if tc == nil {
		return
	}
	if w.tcpCork {
		if setCork(tc, false) == nil {
			w.tcpCork = false
		}
	}
	if err := tc.SetNoDelay(value); err == nil {
		w.tcpNoDelay = value
	}
}

// TCPCork reports whether the platform cork option is set on the socket.
func (w *StreamWriter) TCPCork() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tcpCork
}

// SetTCPCork toggles the platform cork option (TCP_CORK or TCP_NOPUSH).
// Best-effort: a no-op on non-TCP transports, closed sockets, or platforms
// without a cork option. Mutually exclusive with TCP_NODELAY; enabling it
// clears nodelay first.
func (w *StreamWriter) SetTCPCork(value bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.tcpCork == value {
		return
	}
	tc := w.tr.TCPConn()
	if tc == nil || !corkSupported {
		return
	}
	if w.tcpNoDelay {
		if tc.SetNoDelay(false) == nil {
			w.tcpNoDelay = false
		}
	}
	if err := setCork(tc, value); err == nil {
		w.tcpCork = value
	}
}
