// Package sortable encodes float64 values as byte strings whose byte-wise
// lexicographic order matches numeric order.
//
// The encoding is the IEEE-754 bit pattern written big-endian, with the sign
// bit set for non-negative values and every bit inverted for negative values.
// That maps the float ordering onto unsigned integer ordering, so
// bytes.Compare(Serialise(x), Serialise(y)) has the sign of x-y.
package sortable

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Size is the length in bytes of every serialised value.
const Size = 8

const signBit = uint64(1) << 63

// ErrMalformed is returned when a byte string is not a serialised value.
var ErrMalformed = errors.New("malformed sortable value")

// Serialise returns the order-preserving encoding of x.
//
// Negative zero is encoded as positive zero. Every NaN is encoded as the
// canonical quiet NaN, which sorts after +Inf.
func Serialise(x float64) []byte {
	return Append(make([]byte, 0, Size), x)
}

// Append appends the encoding of x to dst and returns the extended slice.
func Append(dst []byte, x float64) []byte {
	return binary.BigEndian.AppendUint64(dst, toKey(x))
}

// Unserialise decodes a value produced by Serialise. The input must be exactly
// Size bytes long.
func Unserialise(b []byte) (float64, error) {
	if len(b) != Size {
		return 0, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformed, Size, len(b))
	}
	return fromKey(binary.BigEndian.Uint64(b)), nil
}

// UnserialisePrefix decodes the value at the start of b and returns the bytes
// that follow it.
func UnserialisePrefix(b []byte) (float64, []byte, error) {
	if len(b) < Size {
		return 0, b, fmt.Errorf("%w: need %d bytes, have %d", ErrMalformed, Size, len(b))
	}
	return fromKey(binary.BigEndian.Uint64(b[:Size])), b[Size:], nil
}

func toKey(x float64) uint64 {
	switch {
	case x == 0:
		x = 0
	case math.IsNaN(x):
		x = math.NaN()
	}
	bits := math.Float64bits(x)
	if bits&signBit != 0 {
		return ^bits
	}
	return bits | signBit
}

func fromKey(key uint64) float64 {
	if key&signBit != 0 {
		return math.Float64frombits(key &^ signBit)
	}
	return math.Float64frombits(^key)
}
