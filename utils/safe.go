// Package utils provides utility functions for LHTLP.
// This file contains bounds-checked decoding helpers so that malformed
// serialized parameters or puzzles cannot trigger huge allocations.

package utils

import (
	"errors"
	"math"
	"math/big"
)

// Maximum allowed lengths for serialized integers.
const (
	// MaxModulusBytes bounds the encoding of N (a 2*8192-bit modulus).
	MaxModulusBytes = 2048

	// MaxModulusSquaredBytes bounds the encoding of values mod N^2.
	MaxModulusSquaredBytes = 2 * MaxModulusBytes

	// MaxDifficultyBytes bounds the encoding of the difficulty.
	MaxDifficultyBytes = 64

	// MaxBindingLength bounds the encoded parameter fingerprint.
	MaxBindingLength = 64

	// MaxPayloadLength is the maximum allowed payload length for serialized data.
	MaxPayloadLength = 1 << 20 // 1MB
)

var (
	// ErrOverflow indicates an integer overflow occurred.
	ErrOverflow = errors.New("integer overflow")

	// ErrExceedsLimit indicates a value exceeds the allowed limit.
	ErrExceedsLimit = errors.New("value exceeds allowed limit")

	// ErrInvalidLength indicates an invalid length value.
	ErrInvalidLength = errors.New("invalid length")

	// ErrTruncated indicates the input ended before a field was complete.
	ErrTruncated = errors.New("truncated input")
)

// CheckLength validates that length is within [0, maxAllowed].
func CheckLength(length, maxAllowed int) error {
	if length < 0 {
		return ErrInvalidLength
	}
	if length > maxAllowed {
		return ErrExceedsLimit
	}
	return nil
}

// SafeReadLength reads a uint32 length from data at offset, validates it, and returns the value.
// Returns error if not enough bytes available or length exceeds maxAllowed.
func SafeReadLength(data []byte, offset, maxAllowed int) (length int, newOffset int, err error) {
	if offset < 0 || offset+4 > len(data) {
		return 0, offset, errors.New("truncated length field")
	}
	raw := uint32(data[offset]) | uint32(data[offset+1])<<8 | uint32(data[offset+2])<<16 | uint32(data[offset+3])<<24
	// Check against max allowed (also handles potential negative after int cast on 32-bit)
	if raw > uint32(maxAllowed) || (maxAllowed > math.MaxInt32 && int(raw) < 0) {
		return 0, offset, ErrExceedsLimit
	}
	return int(raw), offset + 4, nil
}

// ValidateSliceAccess checks that accessing data[offset:offset+size] is safe.
func ValidateSliceAccess(data []byte, offset, size int) error {
	if offset < 0 || size < 0 {
		return ErrInvalidLength
	}
	if offset+size < offset { // overflow check
		return ErrOverflow
	}
	if offset+size > len(data) {
		return errors.New("slice access out of bounds")
	}
	return nil
}

// AppendLengthPrefixed appends a uint32 little-endian length followed by b.
func AppendLengthPrefixed(dst, b []byte) []byte {
	l := len(b)
	dst = append(dst, byte(l), byte(l>>8), byte(l>>16), byte(l>>24))
	return append(dst, b...)
}

// AppendBigInt appends the big-endian magnitude of x with a length prefix.
// x must be non-negative.
func AppendBigInt(dst []byte, x *big.Int) []byte {
	return AppendLengthPrefixed(dst, x.Bytes())
}

// ReadLengthPrefixed reads a length-prefixed field of at most maxAllowed bytes.
// The returned slice aliases data.
func ReadLengthPrefixed(data []byte, offset, maxAllowed int) ([]byte, int, error) {
	length, offset, err := SafeReadLength(data, offset, maxAllowed)
	if err != nil {
		return nil, offset, err
	}
	if err := ValidateSliceAccess(data, offset, length); err != nil {
		return nil, offset, ErrTruncated
	}
	return data[offset : offset+length], offset + length, nil
}

// ReadBigInt reads a length-prefixed big-endian integer.
func ReadBigInt(data []byte, offset, maxBytes int) (*big.Int, int, error) {
	raw, offset, err := ReadLengthPrefixed(data, offset, maxBytes)
	if err != nil {
		return nil, offset, err
	}
	return new(big.Int).SetBytes(raw), offset, nil
}
