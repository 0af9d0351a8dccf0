// Package payload adapts arbitrary data sources (byte slices, text,
// readers, files, streams, queues) into a uniform chunked writer interface,
// so outbound bodies stream through a connection without buffering the
// whole source.
package payload

import (
	"context"
	"io"
	"net/http"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"example.com/streamcore/internal/streams"
)

// defaultContentType is used when nothing better is known.
const defaultContentType = "application/octet-stream"

// chunkSize is how much a streaming adapter pulls from its source per write.
const chunkSize = streams.DefaultLimit

// Writer consumes payload chunks. writer.StreamWriter satisfies it; tests
// substitute an in-memory collector.
type Writer interface {
	Write(ctx context.Context, p []byte) error
}

// Payload exposes one data source as a chunk sequence plus its metadata. A
// payload borrows a Writer only for the duration of Write; sources that can
// be exhausted or hold resources (readers, files, streams) yield no further
// bytes, and no error, on a second Write.
type Payload interface {
	// Size returns the payload size in bytes, or -1 when it cannot be
	// determined (a detached stream, a bare reader).
	Size() int64
	// Filename returns the associated filename, or "".
	Filename() string
	// ContentType resolves as: explicitly supplied, then guessed from the
	// filename, then the generic default.
	ContentType() string
	// Headers returns the custom headers merged with a synthesized
	// Content-Disposition when a filename is set.
	Headers() http.Header
	// Write streams the source through w in fixed-size chunks.
	Write(ctx context.Context, w Writer) error
}

// Option configures payload metadata at construction.
type Option func(*base)

// WithContentType supplies an explicit content type.
func WithContentType(ct string) Option {
	return func(b *base) { b.contentType = ct }
}

// WithFilename associates a filename; it drives content-type guessing and
// the synthesized Content-Disposition header.
func WithFilename(name string) Option {
	return func(b *base) { b.filename = name }
}

// WithHeaders supplies custom headers. A Content-Type header doubles as the
// explicit content type unless one was supplied directly.
func WithHeaders(h http.Header) Option {
	return func(b *base) {
		b.headers = h.Clone()
		if b.contentType == "" {
			b.contentType = h.Get("Content-Type")
		}
	}
}

// base carries the metadata shared by every adapter.
type base struct {
	size        int64
	filename    string
	contentType string
	headers     http.Header
	disposition string
}

func newBase(opts ...Option) base {
	b := base{size: -1}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Size returns the payload size, -1 when unknown.
func (b *base) Size() int64 { return b.size }

// Filename returns the associated filename, or "".
func (b *base) Filename() string { return b.filename }

// ContentType resolves explicit > filename-guessed > default.
func (b *base) ContentType() string {
	switch {
	case b.contentType != "":
		return b.contentType
	case b.filename != "":
		return guessContentType(b.filename)
	default:
		return defaultContentType
	}
}

// Headers returns the custom headers merged with the synthesized
// Content-Disposition, if any.
func (b *base) Headers() http.Header {
	h := b.headers.Clone()
	if h == nil {
		h = http.Header{}
	}
	if b.disposition != "" {
		h.Set("Content-Disposition", b.disposition)
	}
	return h
}

// setContentDisposition synthesizes the Content-Disposition header returned
// by Headers. Invalid disposition types or parameters leave it unset.
func (b *base) setContentDisposition(disptype string, params map[string]string) {
	if v, err := contentDispositionHeader(disptype, params); err == nil {
		b.disposition = v
	}
}

// BytesPayload adapts a raw byte slice. It is stateless: the slice does not
// exhaust, and its size is always known.
type BytesPayload struct {
	base
	value []byte
}

// NewBytesPayload adapts value.
func NewBytesPayload(value []byte, opts ...Option) *BytesPayload {
	p := &BytesPayload{base: newBase(opts...), value: value}
	p.size = int64(len(value))
	return p
}

// Write sends the whole slice in one chunk.
func (p *BytesPayload) Write(ctx context.Context, w Writer) error {
	return w.Write(ctx, p.value)
}

// NewStringPayload adapts a text value, encoding it at construction with
// the charset parsed from the supplied content type (UTF-8 when absent).
// Unknown charsets fail the construction.
func NewStringPayload(value string, opts ...Option) (*BytesPayload, error) {
	b := newBase(opts...)
	if b.contentType == "" {
		b.contentType = "text/plain; charset=utf-8"
	}
	charset := charsetOf(b.contentType)
	if charset == "" {
		charset = "utf-8"
	}

	encoded := []byte(value)
	if !strings.EqualFold(charset, "utf-8") {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, err
		}
		encoded, err = enc.NewEncoder().Bytes([]byte(value))
		if err != nil {
			return nil, err
		}
	}

	p := &BytesPayload{base: b, value: encoded}
	p.size = int64(len(encoded))
	return p, nil
}

// ReaderPayload adapts a generic io.Reader, pulling fixed-size chunks until
// the source is empty. Size is known only when the source exposes Len()
// (bytes.Reader, bytes.Buffer, strings.Reader).
type ReaderPayload struct {
	base
	r io.Reader
}

// NewReaderPayload adapts r.
func NewReaderPayload(r io.Reader, opts ...Option) *ReaderPayload {
	p := &ReaderPayload{base: newBase(opts...), r: r}
	if l, ok := r.(interface{ Len() int }); ok {
		p.size = int64(l.Len())
	}
	return p
}

// Write pulls chunks from the reader until it is empty. A second call on an
// exhausted reader writes nothing.
func (p *ReaderPayload) Write(ctx context.Context, w Writer) error {
	return copyChunks(ctx, w, p.r)
}

// FilePayload adapts a file-like io.ReadCloser. The source is always closed
// when the write finishes, whether by exhaustion or error; a later Write
// yields no further bytes. A filename is guessed from the source's Name()
// capability and synthesizes an attachment Content-Disposition.
type FilePayload struct {
	base
	rc     io.ReadCloser
	closed bool
}

// NewFilePayload adapts rc.
func NewFilePayload(rc io.ReadCloser, opts ...Option) *FilePayload {
	p := &FilePayload{base: newBase(opts...), rc: rc}
	if p.filename == "" {
		p.filename = guessFilename(rc)
	}
	if p.filename != "" {
		p.setContentDisposition("attachment", map[string]string{"filename": p.filename})
	}
	return p
}

// Write pulls chunks from the source, closing it on the way out.
func (p *FilePayload) Write(ctx context.Context, w Writer) (err error) {
	if p.closed {
		return nil
	}
	defer func() {
		p.closed = true
		if closeErr := p.rc.Close(); err == nil {
			err = closeErr
		}
	}()
	return copyChunks(ctx, w, p.rc)
}

// StreamPayload adapts a streams.Reader, pulling fixed-size chunks until
// the stream reports EOF with an empty read.
type StreamPayload struct {
	base
	r streams.Reader
}

// NewStreamPayload adapts r. The size of a stream is not determinable.
func NewStreamPayload(r streams.Reader, opts ...Option) *StreamPayload {
	return &StreamPayload{base: newBase(opts...), r: r}
}

// Write drains the stream through w.
func (p *StreamPayload) Write(ctx context.Context, w Writer) error {
	for {
		chunk, err := p.r.Read(ctx, chunkSize)
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			return nil
		}
		if err := w.Write(ctx, chunk); err != nil {
			return err
		}
	}
}

// chunkSource is the read shape shared by DataQueue[[]byte], ChunksQueue
// and their flow-control wrappers.
type chunkSource interface {
	Read(ctx context.Context) ([]byte, error)
}

// DataQueuePayload adapts a discrete-item chunk queue, pulling items until
// the queue reports its EOF condition or an empty chunk.
type DataQueuePayload struct {
	base
	q chunkSource
}

// NewDataQueuePayload adapts q.
func NewDataQueuePayload(q chunkSource, opts ...Option) *DataQueuePayload {
	return &DataQueuePayload{base: newBase(opts...), q: q}
}

// Write drains the queue through w.
func (p *DataQueuePayload) Write(ctx context.Context, w Writer) error {
	for {
		chunk, err := p.q.Read(ctx)
		if err != nil {
			if err == streams.ErrEOFStream {
				return nil
			}
			return err
		}
		if len(chunk) == 0 {
			return nil
		}
		if err := w.Write(ctx, chunk); err != nil {
			return err
		}
	}
}

// copyChunks pumps fixed-size chunks from r into w until io.EOF.
func copyChunks(ctx context.Context, w Writer, r io.Reader) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if werr := w.Write(ctx, chunk); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
