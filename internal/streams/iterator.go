package streams

import (
	"context"
	"errors"
	"io"
)

// Iterator is a finite, non-restartable lazy sequence of byte chunks drawn
// from a stream read function. Next returns io.EOF once the stream is
// exhausted, and keeps returning it afterwards; any other error passes
// through unchanged.
type Iterator struct {
	read func(ctx context.Context) ([]byte, error)
	done bool
}

func newIterator(read func(ctx context.Context) ([]byte, error)) *Iterator {
	return &Iterator{read: read}
}

// Next returns the next chunk, or io.EOF when the stream has ended. An empty
// read and the queue EOF condition both terminate the sequence.
func (it *Iterator) Next(ctx context.Context) ([]byte, error) {
	if it.done {
		return nil, io.EOF
	}
	chunk, err := it.read(ctx)
	if err != nil {
		if errors.Is(err, ErrEOFStream) {
			it.done = true
			return nil, io.EOF
		}
		return nil, err
	}
	if len(chunk) == 0 {
		it.done = true
		return nil, io.EOF
	}
	return chunk, nil
}
