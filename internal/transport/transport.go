// Package transport adapts a network connection to the stream engine: a
// read loop that feeds inbound chunks into a Sink and honors pause/resume,
// and a buffered write side with drain-on-congestion.
package transport

import (
	"context"
	"net"
)

// Sink receives inbound data from a transport's read loop. It is satisfied
// by streams.StreamReader and streams.FlowControlStreamReader. The read loop
// is the sole producer: it never retains a chunk after handing it over.
type Sink interface {
	FeedData(p []byte) error
	FeedEOF()
	SetError(err error)
}

// Transport is the outbound side of a connection as seen by StreamWriter
// and the payload adapters.
type Transport interface {
	// Write queues p for sending. It fails once the transport is closing.
	Write(p []byte) error
	// IsClosing reports whether the transport is closed or closing.
	IsClosing() bool
	// WaitDrain blocks while the pending outbound bytes exceed the high
	// watermark.
	WaitDrain(ctx context.Context) error
	// TCPConn exposes the raw socket for option tuning; nil when the
	// underlying connection is not TCP.
	TCPConn() *net.TCPConn
}
