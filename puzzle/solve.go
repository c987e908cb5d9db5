package puzzle

import (
	"context"
	"math/big"
	"time"

	lhtlp "github.com/BackendStack21/lhtlp-go"
	"github.com/BackendStack21/lhtlp-go/logging"
)

// DefaultCheckInterval is how many squarings run between context checks.
const DefaultCheckInterval = 1 << 16

// Solver opens puzzles by repeated squaring. The zero value is ready to use.
// Squarings always run one after another in the calling goroutine.
type Solver struct {
	Logger        logging.Logger
	CheckInterval uint64                   // Squarings between context checks, 0 means DefaultCheckInterval
	Progress      func(done, total uint64) // Optional, called every CheckInterval squarings
}

// Solve opens a puzzle with a default Solver and no deadline.
func Solve(params *lhtlp.Params, pz *lhtlp.Puzzle) (*big.Int, error) {
	var s Solver
	return s.Solve(context.Background(), params, pz)
}

// Solve recovers the secret locked in pz. It performs exactly
// params.Difficulty modular squarings; cancelling ctx aborts between
// squarings.
func (s *Solver) Solve(ctx context.Context, params *lhtlp.Params, pz *lhtlp.Puzzle) (*big.Int, error) {
	if err := validate(params); err != nil {
		return nil, err
	}
	n := params.Modulus
	n2 := params.ModulusSquared()
	if err := checkPuzzle(params, Fingerprint(params), n2, pz); err != nil {
		return nil, err
	}

	log := logging.OrNop(s.Logger)
	start := time.Now()
	log.Debug(ctx, "solving puzzle", "difficulty", params.Difficulty.String(), "modulus_bits", n.BitLen())

	w, _, err := s.squareRepeatedly(ctx, pz.U, n, params.Difficulty)
	if err != nil {
		return nil, err
	}

	secret, err := decode(n, n2, pz.V, w)
	if err != nil {
		return nil, err
	}
	log.Debug(ctx, "puzzle solved", "elapsed", time.Since(start), logging.Redacted("secret"))
	return secret, nil
}

// squareRepeatedly returns x^(2^t) mod n computed by t sequential squarings,
// together with the number of squarings performed.
func (s *Solver) squareRepeatedly(ctx context.Context, x, n, t *big.Int) (*big.Int, uint64, error) {
	interval := s.CheckInterval
	if interval == 0 {
		interval = DefaultCheckInterval
	}

	w := new(big.Int).Set(x)
	remaining := new(big.Int).Set(t)
	var done uint64
	total := uint64(0)
	if t.IsUint64() {
		total = t.Uint64()
	}

	for remaining.Sign() > 0 {
		batch := interval
		if remaining.IsUint64() && remaining.Uint64() < batch {
			batch = remaining.Uint64()
		}
		for i := uint64(0); i < batch; i++ {
			w.Mul(w, w)
			w.Mod(w, n)
		}
		done += batch
		remaining.Sub(remaining, new(big.Int).SetUint64(batch))

		if err := ctx.Err(); err != nil {
			return nil, done, err
		}
		if s.Progress != nil {
			s.Progress(done, total)
		}
	}
	return w, done, nil
}

// decode strips h^(r*N) from v given w = h^r mod N and reads the secret out
// of 1 + s*N.
func decode(n, n2, v, w *big.Int) (*big.Int, error) {
	// (h^r mod N)^N mod N^2 equals h^(r*N) mod N^2.
	lifted := new(big.Int).Exp(w, n, n2)
	inv := new(big.Int).ModInverse(lifted, n2)
	if inv == nil {
		return nil, ErrNotInvertible
	}

	x := inv.Mul(inv, v)
	x.Mod(x, n2)
	x.Sub(x, big.NewInt(1))

	secret, rem := new(big.Int).QuoRem(x, n, new(big.Int))
	if x.Sign() < 0 || rem.Sign() != 0 {
		return nil, ErrMalformedPuzzle
	}
	return secret, nil
}
