package payload

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"example.com/streamcore/internal/streams"
)

// LookupError reports that no registered adapter matched a source.
type LookupError struct {
	Source interface{}
}

// Error returns a string representation of the LookupError.
func (e *LookupError) Error() string {
	return fmt.Sprintf("no payload adapter registered for %T", e.Source)
}

// Constructor builds a Payload from a matched source.
type Constructor func(src interface{}, opts ...Option) (Payload, error)

// Matcher reports whether a constructor accepts the source. Matchers are
// explicit capability checks (type assertions), evaluated in registration
// order.
type Matcher func(src interface{}) bool

type registration struct {
	ctor  Constructor
	match Matcher
}

// Registry resolves a data source to a payload adapter. First registered
// match wins, so register specific types before general interfaces.
type Registry struct {
	entries []registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a (constructor, matcher) pair.
func (r *Registry) Register(ctor Constructor, match Matcher) {
	r.entries = append(r.entries, registration{ctor: ctor, match: match})
}

// Get resolves src to an adapter. A source that already is a Payload is
// returned unchanged; otherwise the first matching registration builds one.
// Fails with *LookupError when nothing matches.
func (r *Registry) Get(src interface{}, opts ...Option) (Payload, error) {
	if p, ok := src.(Payload); ok {
		return p, nil
	}
	for _, reg := range r.entries {
		if reg.match(src) {
			return reg.ctor(src, opts...)
		}
	}
	return nil, &LookupError{Source: src}
}

// DefaultRegistry holds the built-in adapters. Registration order mirrors
// specificity: concrete byte-ish and text sources first, file-like sources
// before bare readers, the generic io.Reader last.
var DefaultRegistry = NewRegistry()

// Get resolves src against DefaultRegistry.
func Get(src interface{}, opts ...Option) (Payload, error) {
	return DefaultRegistry.Get(src, opts...)
}

func init() {
	DefaultRegistry.Register(
		func(src interface{}, opts ...Option) (Payload, error) {
			return NewBytesPayload(src.([]byte), opts...), nil
		},
		func(src interface{}) bool { _, ok := src.([]byte); return ok },
	)
	DefaultRegistry.Register(
		func(src interface{}, opts ...Option) (Payload, error) {
			return NewStringPayload(src.(string), opts...)
		},
		func(src interface{}) bool { _, ok := src.(string); return ok },
	)
	DefaultRegistry.Register(
		func(src interface{}, opts ...Option) (Payload, error) {
			return NewReaderPayload(src.(io.Reader), opts...), nil
		},
		func(src interface{}) bool {
			switch src.(type) {
			case *bytes.Reader, *bytes.Buffer, *strings.Reader:
				return true
			}
			return false
		},
	)
	DefaultRegistry.Register(
		func(src interface{}, opts ...Option) (Payload, error) {
			return NewFilePayload(src.(io.ReadCloser), opts...), nil
		},
		func(src interface{}) bool { _, ok := src.(io.ReadCloser); return ok },
	)
	DefaultRegistry.Register(
		func(src interface{}, opts ...Option) (Payload, error) {
			return NewStreamPayload(src.(streams.Reader), opts...), nil
		},
		func(src interface{}) bool { _, ok := src.(streams.Reader); return ok },
	)
	DefaultRegistry.Register(
		func(src interface{}, opts ...Option) (Payload, error) {
			return NewDataQueuePayload(src.(chunkSource), opts...), nil
		},
		func(src interface{}) bool {
			switch src.(type) {
			case *streams.DataQueue[[]byte], *streams.ChunksQueue, *streams.FlowControlChunksQueue:
				return true
			}
			return false
		},
	)
	DefaultRegistry.Register(
		func(src interface{}, opts ...Option) (Payload, error) {
			return NewReaderPayload(src.(io.Reader), opts...), nil
		},
		func(src interface{}) bool { _, ok := src.(io.Reader); return ok },
	)
}
