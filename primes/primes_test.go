package primes

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BackendStack21/lhtlp-go/utils"
)

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("entropy source unavailable")
}

func TestIsSafePrime(t *testing.T) {
	for _, p := range []int64{5, 7, 11, 23, 47, 59, 83, 107, 167, 179, 4294967387, 4294967627} {
		assert.True(t, IsSafePrime(big.NewInt(p), 20), "%d is a safe prime", p)
	}
	for _, p := range []int64{2, 3, 4, 13, 29, 31, 97, 101, 4294967389} {
		assert.False(t, IsSafePrime(big.NewInt(p), 20), "%d is not a safe prime", p)
	}
	assert.False(t, IsSafePrime(nil, 20))
}

func TestSieve(t *testing.T) {
	// 3 divides the half.
	assert.False(t, passesSieve(big.NewInt(3*1_000_003)))
	// 2*h+1 = 5*k for h = 5*1000+2.
	assert.False(t, passesSieve(big.NewInt(5002)))
	// Safe prime halves survive.
	assert.True(t, passesSieve(big.NewInt(2147483693)))
	assert.True(t, passesSieve(big.NewInt(2147483813)))
}

func TestSieveGroupsCoverAllSmallPrimes(t *testing.T) {
	count := 0
	for _, g := range sieveGroups {
		prod := uint64(1)
		for _, s := range g.primes {
			prod *= s
			count++
		}
		assert.Equal(t, g.product.Uint64(), prod)
	}
	// There are 303 primes below 2000, 302 of them odd.
	assert.Equal(t, 302, count)
}

func TestSafePrimes(t *testing.T) {
	ps, err := SafePrimes(context.Background(), Config{Bits: 64, Rounds: 20}, 2)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.NotEqual(t, 0, ps[0].Cmp(ps[1]), "primes must be distinct")

	for _, p := range ps {
		assert.Equal(t, 64, p.BitLen())
		assert.Equal(t, uint(1), p.Bit(62), "second highest bit must be set")
		assert.True(t, IsSafePrime(p, 20))
	}

	n := new(big.Int).Mul(ps[0], ps[1])
	assert.Equal(t, 128, n.BitLen())
}

func TestSafePrimeDeterministicWithSingleWorker(t *testing.T) {
	seed := []byte("deterministic safe prime search seed")
	cfg := func() Config {
		return Config{
			Bits:    48,
			Rounds:  20,
			Workers: 1,
			Rand:    utils.NewShakeReader("primes-test", seed),
		}
	}

	p1, err := SafePrime(context.Background(), cfg())
	require.NoError(t, err)
	p2, err := SafePrime(context.Background(), cfg())
	require.NoError(t, err)
	assert.Equal(t, 0, p1.Cmp(p2))
}

func TestSafePrimesBudgetExhausted(t *testing.T) {
	// A zero reader yields the same composite candidate forever.
	_, err := SafePrimes(context.Background(), Config{
		Bits:        64,
		Rounds:      20,
		Workers:     2,
		MaxAttempts: 10,
		Rand:        zeroReader{},
	}, 2)
	assert.ErrorIs(t, err, ErrBudgetExhausted)
}

func TestSafePrimesReaderError(t *testing.T) {
	_, err := SafePrimes(context.Background(), Config{
		Bits:   64,
		Rounds: 20,
		Rand:   failingReader{},
	}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entropy source unavailable")
}

func TestSafePrimesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := SafePrimes(ctx, Config{Bits: 512, Rounds: 20}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSafePrimesValidation(t *testing.T) {
	_, err := SafePrimes(context.Background(), Config{Bits: MinBits - 1, Rounds: 20}, 1)
	assert.ErrorIs(t, err, ErrBitsTooSmall)

	_, err = SafePrimes(context.Background(), Config{Bits: 64, Rounds: 0}, 1)
	assert.Error(t, err)

	_, err = SafePrimes(context.Background(), Config{Bits: 64, Rounds: 20}, 0)
	assert.Error(t, err)
}

func TestDefaultMaxAttempts(t *testing.T) {
	assert.Equal(t, int64(100_000), DefaultMaxAttempts(64))
	assert.Equal(t, int64(8*1024*1024), DefaultMaxAttempts(1024))
}
