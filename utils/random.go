package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"io"
	"math/big"
	"runtime"
	"sync"
)

// RandReader is the default randomness source. Tests may replace it.
var RandReader io.Reader = rand.Reader

var (
	// ErrNonPositiveBound indicates a sampling bound that is zero or negative.
	ErrNonPositiveBound = errors.New("bound must be positive")

	// ErrEmptyRange indicates a sampling range [lo, hi) with hi <= lo.
	ErrEmptyRange = errors.New("empty sampling range")
)

// ReadBytes reads exactly n bytes from r.
func ReadBytes(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// RandomBigInt samples an integer uniformly from [0, bound) using bytes from r.
// It uses rejection sampling on the bit length of bound-1 so the result is
// unbiased.
func RandomBigInt(r io.Reader, bound *big.Int) (*big.Int, error) {
	if bound == nil || bound.Sign() <= 0 {
		return nil, ErrNonPositiveBound
	}
	if bound.Cmp(big.NewInt(1)) == 0 {
		return new(big.Int), nil
	}

	max := new(big.Int).Sub(bound, big.NewInt(1))
	bitsNeeded := max.BitLen()
	bytesNeeded := (bitsNeeded + 7) / 8
	topMask := byte(0xFF >> uint(bytesNeeded*8-bitsNeeded))

	buf := make([]byte, bytesNeeded)
	defer Zeroize(buf)
	value := new(big.Int)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		buf[0] &= topMask
		value.SetBytes(buf)
		if value.Cmp(bound) < 0 {
			return value, nil
		}
	}
}

// RandomBigIntRange samples an integer uniformly from [lo, hi).
func RandomBigIntRange(r io.Reader, lo, hi *big.Int) (*big.Int, error) {
	if lo == nil || hi == nil || hi.Cmp(lo) <= 0 {
		return nil, ErrEmptyRange
	}
	width := new(big.Int).Sub(hi, lo)
	v, err := RandomBigInt(r, width)
	if err != nil {
		return nil, err
	}
	return v.Add(v, lo), nil
}

// RandomBits returns a random non-negative integer of at most bits bits.
func RandomBits(r io.Reader, bits int) (*big.Int, error) {
	if bits <= 0 {
		return nil, ErrNonPositiveBound
	}
	buf, err := ReadBytes(r, (bits+7)/8)
	if err != nil {
		return nil, err
	}
	defer Zeroize(buf)
	buf[0] &= byte(0xFF >> uint(len(buf)*8-bits))
	return new(big.Int).SetBytes(buf), nil
}

// LockedReader serializes reads from an underlying reader so one source can
// feed several goroutines.
type LockedReader struct {
	mu sync.Mutex
	r  io.Reader
}

// NewLockedReader wraps r. Wrapping an existing *LockedReader returns it as is.
func NewLockedReader(r io.Reader) *LockedReader {
	if lr, ok := r.(*LockedReader); ok {
		return lr
	}
	return &LockedReader{r: r}
}

func (l *LockedReader) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return io.ReadFull(l.r, p)
}

// ValidateSeedEntropy checks if a seed has sufficient entropy.
// It performs basic statistical tests to reject obviously weak seeds (e.g., all zeros, sequential).
// This is a sanity check, not a rigorous randomness test.
func ValidateSeedEntropy(seed []byte) error {
	if len(seed) < 32 {
		return errors.New("seed must be at least 32 bytes")
	}

	// Check for all bytes identical
	first := seed[0]
	allSame := true
	for i := 1; i < len(seed); i++ {
		if seed[i] != first {
			allSame = false
			break
		}
	}
	if allSame {
		return errors.New("seed has low entropy: all bytes are identical")
	}

	// Check for sequential patterns
	isAscending := true
	isDescending := true
	for i := 1; i < len(seed); i++ {
		if seed[i] != byte((int(seed[i-1])+1)%256) {
			isAscending = false
		}
		if seed[i] != byte((int(seed[i-1])-1+256)%256) {
			isDescending = false
		}
		if !isAscending && !isDescending {
			break
		}
	}
	if isAscending || isDescending {
		return errors.New("seed has low entropy: sequential pattern detected")
	}

	// Check for low byte diversity
	unique := make(map[byte]struct{})
	for _, b := range seed {
		unique[b] = struct{}{}
		if len(unique) >= 8 {
			break
		}
	}
	if len(unique) < 8 {
		return errors.New("seed has low entropy: insufficient byte diversity")
	}

	return nil
}

// ConstantTimeEqual compares two byte slices in constant time.
// It returns true if the slices are equal, false otherwise.
// This function leaks only the length of the slices.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Zeroize overwrites a byte slice with zeros.
// Uses runtime.KeepAlive to prevent compiler optimization from eliminating the stores.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// ZeroizeBigInt clears the limbs backing each integer and sets it to zero.
// Nil entries are skipped.
func ZeroizeBigInt(xs ...*big.Int) {
	for _, x := range xs {
		if x == nil {
			continue
		}
		words := x.Bits()
		for i := range words {
			words[i] = 0
		}
		runtime.KeepAlive(words)
		x.SetInt64(0)
	}
}
