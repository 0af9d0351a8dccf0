package streams

import "bytes"

// chunkBuffer is ordered byte-chunk storage with a read offset into the first
// chunk. Chunks are stored as received and concatenate logically into one
// stream; there is no random access. Invariant: size equals the sum of the
// remaining (unconsumed) bytes across all chunks.
//
// chunkBuffer performs no locking; the owning stream serializes access.
type chunkBuffer struct {
	chunks [][]byte
	offset int // consumed prefix of chunks[0]
	size   int
}

func (b *chunkBuffer) len() int { return b.size }

func (b *chunkBuffer) empty() bool { return b.size == 0 }

// append adds a chunk to the tail. The buffer takes ownership of p; the
// feeding layer must not retain or mutate it afterwards.
func (b *chunkBuffer) append(p []byte) {
	if len(p) == 0 {
		return
	}
	b.chunks = append(b.chunks, p)
	b.size += len(p)
}

// prepend inserts a chunk at the head, before the current read position.
// Used to roll back consumed data (UnreadData).
func (b *chunkBuffer) prepend(p []byte) {
	if len(p) == 0 {
		return
	}
	if b.offset > 0 {
		b.chunks[0] = b.chunks[0][b.offset:]
		b.offset = 0
	}
	b.chunks = append([][]byte{p}, b.chunks...)
	b.size += len(p)
}

// popChunk removes and returns up to n bytes from the head chunk. n < 0 means
// the whole remainder of the head chunk. The buffer must not be empty.
func (b *chunkBuffer) popChunk(n int) []byte {
	first := b.chunks[0]
	var data []byte
	switch {
	case n >= 0 && len(first)-b.offset > n:
		data = first[b.offset : b.offset+n]
		b.offset += n
	case b.offset > 0:
		b.chunks = b.chunks[1:]
		data = first[b.offset:]
		b.offset = 0
	default:
		b.chunks = b.chunks[1:]
		data = first
	}
	b.size -= len(data)
	return data
}

// pop removes and returns up to n bytes across chunk boundaries. n < 0 drains
// the whole buffer. Returns an empty slice when the buffer is empty.
func (b *chunkBuffer) pop(n int) []byte {
	if b.empty() || n == 0 {
		return nil
	}
	var out [][]byte
	for !b.empty() {
		chunk := b.popChunk(n)
		out = append(out, chunk)
		if n >= 0 {
			n -= len(chunk)
			if n == 0 {
				break
			}
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return bytes.Join(out, nil)
}

// indexNewline returns the number of unconsumed bytes in the head chunk up to
// and including the first '\n', or -1 when the head chunk has none. The
// buffer must not be empty.
func (b *chunkBuffer) indexNewline() int {
	i := bytes.IndexByte(b.chunks[0][b.offset:], '\n')
	if i < 0 {
		return -1
	}
	return i + 1
}
