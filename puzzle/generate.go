package puzzle

import (
	"io"
	"math/big"

	lhtlp "github.com/BackendStack21/lhtlp-go"
	"github.com/BackendStack21/lhtlp-go/utils"
)

// Generate locks secret into a fresh puzzle using utils.RandReader.
//
// The caller must keep secret, and any sum it will be combined into, below
// params.Modulus; larger values wrap modulo N without an error.
func Generate(params *lhtlp.Params, secret *big.Int) (*lhtlp.Puzzle, error) {
	return GenerateFrom(utils.RandReader, params, secret)
}

// GenerateFrom is Generate with an explicit randomness source.
func GenerateFrom(rand io.Reader, params *lhtlp.Params, secret *big.Int) (*lhtlp.Puzzle, error) {
	if err := validate(params); err != nil {
		return nil, err
	}
	if secret == nil || secret.Sign() < 0 {
		return nil, ErrNegativeSecret
	}

	// r is drawn from [1, N^2).
	r, err := utils.RandomBigIntRange(rand, big.NewInt(1), params.ModulusSquared())
	if err != nil {
		return nil, err
	}
	defer utils.ZeroizeBigInt(r)

	return GenerateDeterministic(params, secret, r)
}

// GenerateDeterministic builds the puzzle for secret with the caller-supplied
// randomizer r. Reusing r across puzzles links them; it exists for fixtures
// and tests.
func GenerateDeterministic(params *lhtlp.Params, secret, r *big.Int) (*lhtlp.Puzzle, error) {
	if err := validate(params); err != nil {
		return nil, err
	}
	if secret == nil || secret.Sign() < 0 {
		return nil, ErrNegativeSecret
	}
	if r == nil || r.Sign() <= 0 {
		return nil, ErrMalformedPuzzle
	}

	n := params.Modulus
	n2 := params.ModulusSquared()

	// u = g^r mod N
	u := new(big.Int).Exp(params.Generator, r, n)

	// v = h^(r*N) mod N^2 * (1 + N*s) mod N^2
	rn := new(big.Int).Mul(r, n)
	defer utils.ZeroizeBigInt(rn)
	v := new(big.Int).Exp(params.TimeLockedBase, rn, n2)
	v.Mul(v, encodeSecret(n, n2, secret))
	v.Mod(v, n2)

	return &lhtlp.Puzzle{
		U:       u,
		V:       v,
		Binding: Fingerprint(params),
	}, nil
}

// encodeSecret returns (1+N)^s mod N^2, computed as 1 + N*(s mod N).
func encodeSecret(n, n2, s *big.Int) *big.Int {
	e := new(big.Int).Mod(s, n)
	e.Mul(e, n)
	e.Add(e, big.NewInt(1))
	return e.Mod(e, n2)
}
