// Package group implements the LHTLP setup: it builds an RSA group from two
// safe primes, picks a generator of its quadratic residues, and uses the
// factorization once to compute the time-locked base.
//
// The factorization only ever lives in local variables of Setup and is
// zeroized before Setup returns.
package group

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	lhtlp "github.com/BackendStack21/lhtlp-go"
	"github.com/BackendStack21/lhtlp-go/core"
	"github.com/BackendStack21/lhtlp-go/logging"
	"github.com/BackendStack21/lhtlp-go/primes"
	"github.com/BackendStack21/lhtlp-go/utils"
)

// DomainSeed separates seeded setup randomness from other SHAKE streams.
const DomainSeed = "lhtlp-setup-seed-v1"

// DefaultMaxGeneratorAttempts bounds the search for a full-order generator.
// A random square fails only with probability about 1/p' + 1/q'.
const DefaultMaxGeneratorAttempts = 64

// ErrGeneratorBudget is returned when no suitable generator was sampled
// within the attempt budget.
var ErrGeneratorBudget = errors.New("generator search budget exhausted")

// Config holds the inputs of a setup run.
type Config struct {
	Lambda               int            // Bits per safe prime; the modulus has 2*Lambda bits
	Difficulty           *big.Int       // Sequential squarings needed to solve
	Rand                 io.Reader      // Randomness capability, nil means utils.RandReader
	Workers              int            // Parallel prime searchers, <= 0 means GOMAXPROCS
	PrimalityRounds      int            // Miller-Rabin rounds, <= 0 means core.DefaultPrimalityRounds
	MaxPrimeAttempts     int64          // <= 0 means primes.DefaultMaxAttempts(Lambda)
	MaxGeneratorAttempts int            // <= 0 means DefaultMaxGeneratorAttempts
	Logger               logging.Logger // Optional
}

// DefaultConfig returns a Config for lambda and difficulty with default
// randomness, parallelism and budgets.
func DefaultConfig(lambda int, difficulty *big.Int) Config {
	return Config{
		Lambda:               lambda,
		Difficulty:           difficulty,
		PrimalityRounds:      core.DefaultPrimalityRounds,
		MaxGeneratorAttempts: DefaultMaxGeneratorAttempts,
	}
}

func (c Config) validate() (Config, error) {
	if err := core.ValidateLambda(c.Lambda); err != nil {
		return c, err
	}
	if err := core.ValidateDifficulty(c.Difficulty); err != nil {
		return c, err
	}
	if c.Rand == nil {
		c.Rand = utils.RandReader
	}
	if c.PrimalityRounds <= 0 {
		c.PrimalityRounds = core.DefaultPrimalityRounds
	}
	if c.MaxGeneratorAttempts <= 0 {
		c.MaxGeneratorAttempts = DefaultMaxGeneratorAttempts
	}
	c.Logger = logging.OrNop(c.Logger)
	return c, nil
}

// SetupLevel runs Setup with the lambda and primality rounds of a named
// security level.
func SetupLevel(ctx context.Context, level lhtlp.SecurityLevel, difficulty *big.Int) (*lhtlp.Params, error) {
	sp, err := core.GetParams(level)
	if err != nil {
		return nil, err
	}
	if err := core.ValidateSetupParams(sp); err != nil {
		return nil, err
	}
	cfg := DefaultConfig(sp.Lambda, difficulty)
	cfg.PrimalityRounds = sp.PrimalityRounds
	return Setup(ctx, cfg)
}

// SetupFromSeed runs a reproducible setup: randomness comes from SHAKE256
// over the seed and the prime search uses a single worker.
func SetupFromSeed(ctx context.Context, cfg Config, seed []byte) (*lhtlp.Params, error) {
	if err := utils.ValidateSeedEntropy(seed); err != nil {
		return nil, err
	}
	cfg.Rand = utils.NewShakeReader(DomainSeed, seed)
	cfg.Workers = 1
	return Setup(ctx, cfg)
}

// Setup generates public parameters (N, g, h, T) with h = g^(2^T) mod N.
func Setup(ctx context.Context, cfg Config) (*lhtlp.Params, error) {
	cfg, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	log := cfg.Logger.With("lambda", cfg.Lambda, "difficulty", cfg.Difficulty.String())

	ps, err := primes.SafePrimes(ctx, primes.Config{
		Bits:        cfg.Lambda,
		Rounds:      cfg.PrimalityRounds,
		Workers:     cfg.Workers,
		MaxAttempts: cfg.MaxPrimeAttempts,
		Rand:        cfg.Rand,
		Logger:      cfg.Logger,
	}, 2)
	if err != nil {
		return nil, fmt.Errorf("safe prime search: %w", err)
	}
	p, q := ps[0], ps[1]

	// Trapdoor: p' = (p-1)/2, q' = (q-1)/2 and the order p'q' of QR_N.
	pHalf := new(big.Int).Rsh(p, 1)
	qHalf := new(big.Int).Rsh(q, 1)
	order := new(big.Int).Mul(pHalf, qHalf)
	exp := new(big.Int)
	defer utils.ZeroizeBigInt(p, q, pHalf, qHalf, order, exp)

	n := new(big.Int).Mul(p, q)

	g, err := sampleGenerator(cfg.Rand, n, cfg.MaxGeneratorAttempts)
	if err != nil {
		return nil, err
	}

	// e = 2^T mod p'q', then h = g^e mod N.
	exp.Exp(big.NewInt(2), cfg.Difficulty, order)
	h := new(big.Int).Exp(g, exp, n)

	log.Debug(ctx, "setup complete",
		"modulus_bits", n.BitLen(),
		"elapsed", time.Since(start),
		logging.Redacted("factors"),
	)

	return &lhtlp.Params{
		Modulus:        n,
		Generator:      g,
		TimeLockedBase: h,
		Difficulty:     new(big.Int).Set(cfg.Difficulty),
		Lambda:         cfg.Lambda,
	}, nil
}

// sampleGenerator squares a random unit mod n and keeps it when g-1 is also a
// unit. For n = (2p'+1)(2q'+1) that means g is not 1 modulo either prime, so
// its order is exactly p'q' and it generates QR_N. QR_N has odd order, so an
// element of order 2 cannot occur.
func sampleGenerator(r io.Reader, n *big.Int, maxAttempts int) (*big.Int, error) {
	one := big.NewInt(1)
	two := big.NewInt(2)
	gcd := new(big.Int)
	gMinus1 := new(big.Int)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		x, err := utils.RandomBigIntRange(r, two, n)
		if err != nil {
			return nil, err
		}
		if gcd.GCD(nil, nil, x, n).Cmp(one) != 0 {
			continue
		}
		g := x.Mul(x, x)
		g.Mod(g, n)
		gMinus1.Sub(g, one)
		if gMinus1.Sign() == 0 || gcd.GCD(nil, nil, gMinus1, n).Cmp(one) != 0 {
			continue
		}
		return g, nil
	}
	return nil, ErrGeneratorBudget
}
