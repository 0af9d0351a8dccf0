package streams

import "context"

// EmptyStreamReader is a null stream: always at EOF, never errored. Feeds
// are silently dropped. It stands in for a body-less message wherever a
// Reader is expected.
type EmptyStreamReader struct{}

// EmptyPayload is the shared empty stream. It is stateless, so one instance
// serves every caller.
var EmptyPayload = &EmptyStreamReader{}

// Err always returns nil.
func (*EmptyStreamReader) Err() error { return nil }

// SetError is a no-op.
func (*EmptyStreamReader) SetError(error) {}

// FeedData is a no-op and never fails.
func (*EmptyStreamReader) FeedData([]byte) error { return nil }

// FeedEOF is a no-op; the stream is born at EOF.
func (*EmptyStreamReader) FeedEOF() {}

// IsEOF always reports true.
func (*EmptyStreamReader) IsEOF() bool { return true }

// AtEOF always reports true.
func (*EmptyStreamReader) AtEOF() bool { return true }

// WaitEOF returns immediately.
func (*EmptyStreamReader) WaitEOF(context.Context) error { return nil }

// Read returns an empty slice.
func (*EmptyStreamReader) Read(context.Context, int) ([]byte, error) { return nil, nil }

// ReadAny returns an empty slice.
func (*EmptyStreamReader) ReadAny(context.Context) ([]byte, error) { return nil, nil }

// ReadLine returns an empty slice.
func (*EmptyStreamReader) ReadLine(context.Context) ([]byte, error) { return nil, nil }

// ReadExactly fails with *IncompleteReadError: no bytes will ever arrive.
func (*EmptyStreamReader) ReadExactly(_ context.Context, n int) ([]byte, error) {
	return nil, NewIncompleteReadError(nil, n)
}

// ReadNoWait returns an empty slice.
func (*EmptyStreamReader) ReadNoWait(int) ([]byte, error) { return nil, nil }
