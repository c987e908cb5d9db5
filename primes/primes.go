// Package primes implements safe-prime generation for the LHTLP setup.
//
// A safe prime is a prime p such that p' = (p-1)/2 is also prime. Candidates
// are drawn fresh from the configured reader for every attempt, filtered by a
// small-prime sieve on both p' and p, and only returned once both halves pass
// the probabilistic primality test.
package primes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BackendStack21/lhtlp-go/logging"
	"github.com/BackendStack21/lhtlp-go/utils"
)

// MinBits is the smallest safe-prime size the sieve is valid for: every
// candidate p' is then larger than the largest sieving prime.
const MinBits = 16

var (
	// ErrBudgetExhausted is returned when the attempt budget runs out before
	// enough safe primes are found.
	ErrBudgetExhausted = errors.New("safe prime search budget exhausted")

	// ErrBitsTooSmall is returned for a prime size below MinBits.
	ErrBitsTooSmall = fmt.Errorf("safe prime size below %d bits", MinBits)
)

// Config controls a safe-prime search.
type Config struct {
	Bits        int            // Bit length of each safe prime p
	Rounds      int            // Miller-Rabin rounds for p' and for p
	Workers     int            // Concurrent searchers, <= 0 means GOMAXPROCS
	MaxAttempts int64          // Candidates drawn across all workers, <= 0 means DefaultMaxAttempts
	Rand        io.Reader      // Randomness source, nil means utils.RandReader
	Logger      logging.Logger // Optional
}

// DefaultMaxAttempts returns a budget far above the expected number of
// candidates for two safe primes of the given size.
func DefaultMaxAttempts(bits int) int64 {
	budget := int64(8) * int64(bits) * int64(bits)
	if budget < 100_000 {
		budget = 100_000
	}
	return budget
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts(c.Bits)
	}
	if c.Rand == nil {
		c.Rand = utils.RandReader
	}
	c.Logger = logging.OrNop(c.Logger)
	return c
}

// IsSafePrime reports whether p and (p-1)/2 both pass ProbablyPrime(rounds).
func IsSafePrime(p *big.Int, rounds int) bool {
	if p == nil || p.Cmp(big.NewInt(5)) < 0 || p.Bit(0) == 0 {
		return false
	}
	half := new(big.Int).Rsh(p, 1)
	return half.ProbablyPrime(rounds) && p.ProbablyPrime(rounds)
}

// SafePrime searches for a single safe prime.
func SafePrime(ctx context.Context, cfg Config) (*big.Int, error) {
	ps, err := SafePrimes(ctx, cfg, 1)
	if err != nil {
		return nil, err
	}
	return ps[0], nil
}

// SafePrimes searches for count distinct safe primes of cfg.Bits bits. Workers
// search independently; the first count distinct results win and the
// remaining workers are cancelled.
func SafePrimes(ctx context.Context, cfg Config, count int) ([]*big.Int, error) {
	if cfg.Bits < MinBits {
		return nil, fmt.Errorf("%w: got %d", ErrBitsTooSmall, cfg.Bits)
	}
	if cfg.Rounds < 1 {
		return nil, errors.New("primality rounds must be positive")
	}
	if count < 1 {
		return nil, errors.New("count must be positive")
	}
	cfg = cfg.withDefaults()

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(searchCtx)

	rnd := utils.NewLockedReader(cfg.Rand)
	found := make(chan *big.Int, cfg.Workers)
	var attempts atomic.Int64
	start := time.Now()

	for i := 0; i < cfg.Workers; i++ {
		g.Go(func() error {
			for {
				if gctx.Err() != nil {
					return nil
				}
				if attempts.Add(1) > cfg.MaxAttempts {
					return ErrBudgetExhausted
				}
				p, err := tryCandidate(rnd, cfg.Bits, cfg.Rounds)
				if err != nil {
					return err
				}
				if p == nil {
					continue
				}
				select {
				case found <- p:
				case <-gctx.Done():
					return nil
				}
			}
		})
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- g.Wait()
		close(found)
	}()

	result := make([]*big.Int, 0, count)
	for p := range found {
		if containsInt(result, p) {
			continue
		}
		result = append(result, p)
		cfg.Logger.Debug(ctx, "safe prime found",
			"bits", cfg.Bits,
			"attempts", attempts.Load(),
			"elapsed", time.Since(start),
			logging.Redacted("prime"),
		)
		if len(result) == count {
			cancel()
			break
		}
	}
	err := <-waitErr

	if len(result) == count {
		return result, nil
	}
	utils.ZeroizeBigInt(result...)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, ErrBudgetExhausted
}

// tryCandidate draws one candidate and returns the safe prime, or nil when
// the candidate is rejected.
func tryCandidate(r io.Reader, bits, rounds int) (*big.Int, error) {
	half, err := utils.RandomBits(r, bits-1)
	if err != nil {
		return nil, err
	}
	// Top two bits set so p has exactly bits bits and a product of two such
	// primes has exactly 2*bits bits.
	half.SetBit(half, bits-2, 1)
	half.SetBit(half, bits-3, 1)
	half.SetBit(half, 0, 1)

	if !passesSieve(half) {
		return nil, nil
	}
	p := new(big.Int).Lsh(half, 1)
	p.SetBit(p, 0, 1)
	// Fermat base 2 on p is cheap and removes most composites before the
	// full tests.
	if new(big.Int).Exp(big.NewInt(2), new(big.Int).Sub(p, big.NewInt(1)), p).Cmp(big.NewInt(1)) != 0 {
		return nil, nil
	}
	if !half.ProbablyPrime(rounds) || !p.ProbablyPrime(rounds) {
		return nil, nil
	}
	return p, nil
}

func containsInt(xs []*big.Int, x *big.Int) bool {
	for _, y := range xs {
		if y.Cmp(x) == 0 {
			return true
		}
	}
	return false
}
