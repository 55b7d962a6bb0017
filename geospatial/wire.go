package geospatial

import (
	"encoding/binary"

	"github.com/gcbaptista/go-geo-search/sortable"
)

// wireReader decodes the length-prefixed fields of a serialised object. The
// first failure sticks; later reads return zero values.
type wireReader struct {
	what string
	buf  []byte
	err  error
}

func appendUvarint(dst []byte, v uint64) []byte {
	return binary.AppendUvarint(dst, v)
}

func appendBytes(dst, b []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(b)))
	return append(dst, b...)
}

func (r *wireReader) fail(message string, err error) {
	if r.err == nil {
		r.err = NewSerialisationError(r.what, message, err)
	}
}

func (r *wireReader) uvarint(field string) uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.buf)
	if n <= 0 {
		r.fail("bad "+field, nil)
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

func (r *wireReader) bytes(field string) []byte {
	n := r.uvarint(field + " length")
	if r.err != nil {
		return nil
	}
	if n > uint64(len(r.buf)) {
		r.fail(field+" truncated", nil)
		return nil
	}
	b := r.buf[:n:n]
	r.buf = r.buf[n:]
	return b
}

func (r *wireReader) float(field string) float64 {
	if r.err != nil {
		return 0
	}
	v, rest, err := sortable.UnserialisePrefix(r.buf)
	if err != nil {
		r.fail("bad "+field, err)
		return 0
	}
	r.buf = rest
	return v
}

// finish reports the first decode error, or an error if input remains.
func (r *wireReader) finish() error {
	if r.err == nil && len(r.buf) != 0 {
		r.fail("trailing bytes after last field", nil)
	}
	return r.err
}
