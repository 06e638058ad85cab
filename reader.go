// reader.go
//
// Byte-addressable view over a source string or a pull-based chunk stream.
//
// The parser consumes bytes monotonically by absolute index. A string
// reader is bounded by its byte count; a streaming reader keeps extending
// its buffer from the pull callback until the callback signals end of
// input. Free releases fully-parsed prefixes so that very long (or
// endless) inputs stay bounded in memory.
package fennel

import "fmt"

// Reader exposes bytes of a source at stable absolute indices. Indices are
// 0-based; the currently buffered window starts at offset.
type Reader struct {
	buf    []byte
	offset int
	done   bool                  // no more chunks will arrive
	pull   func() (string, bool) // next chunk; false on end of input
}

// NewStringReader wraps a fully materialized source string.
func NewStringReader(src string) *Reader {
	return &Reader{buf: []byte(src), done: true}
}

// NewReader wraps a pull callback that yields successive source chunks.
// The callback may block; that is the caller's concern, not the reader's.
func NewReader(pull func() (string, bool)) *Reader {
	return &Reader{pull: pull}
}

// Byte returns the byte at absolute index i, pulling chunks as needed.
// The second result is false once i is at or past end of input.
// Indexing below the released prefix is a programmer error.
func (r *Reader) Byte(i int) (byte, bool) {
	if i < r.offset {
		panic(fmt.Sprintf("reader: index %d below released offset %d", i, r.offset))
	}
	for i-r.offset >= len(r.buf) {
		if r.done {
			return 0, false
		}
		chunk, ok := r.pull()
		if !ok {
			r.done = true
			continue
		}
		r.buf = append(r.buf, chunk...)
	}
	return r.buf[i-r.offset], true
}

// Sub returns the bytes in [a, b). Both bounds must be at or above the
// released offset and within the buffered window.
func (r *Reader) Sub(a, b int) string {
	if a < r.offset || b < a {
		panic(fmt.Sprintf("reader: bad substring bounds [%d, %d) at offset %d", a, b, r.offset))
	}
	return string(r.buf[a-r.offset : b-r.offset])
}

// Free discards bytes below absolute index i. Calls at or below the
// current offset are no-ops.
func (r *Reader) Free(i int) {
	if i <= r.offset {
		return
	}
	n := i - r.offset
	if n > len(r.buf) {
		n = len(r.buf)
	}
	r.buf = r.buf[n:]
	r.offset += n
}

// Offset returns the lowest still-addressable index.
func (r *Reader) Offset() int { return r.offset }
