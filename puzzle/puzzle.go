// Package puzzle implements puzzle generation, sequential solving and
// homomorphic evaluation for LHTLP.
//
// A puzzle for secret s under parameters (N, g, h, T) is
//
//	u = g^r mod N
//	v = h^(r*N) * (1+N)^s mod N^2
//
// for a fresh random r. Solving squares u T times to get h^r mod N, lifts it
// to h^(r*N) mod N^2, strips it from v and decodes (1+N)^s = 1 + s*N.
// Multiplying puzzles component-wise adds their secrets modulo N.
package puzzle

import (
	"errors"
	"math/big"

	lhtlp "github.com/BackendStack21/lhtlp-go"
	"github.com/BackendStack21/lhtlp-go/core"
	"github.com/BackendStack21/lhtlp-go/utils"
)

// DomainParams separates the parameter fingerprint from other hashes.
const DomainParams = "lhtlp-params-v1"

var (
	// ErrParamsMismatch is returned when a puzzle was not produced under the
	// given parameters.
	ErrParamsMismatch = errors.New("puzzle does not belong to these parameters")

	// ErrEmptyInput is returned by Eval when there is nothing to combine.
	ErrEmptyInput = errors.New("no puzzles to combine")

	// ErrMalformedPuzzle is returned for puzzles whose components are out of
	// range or do not decode.
	ErrMalformedPuzzle = errors.New("malformed puzzle")

	// ErrNotInvertible is returned when an intermediate value has no inverse
	// modulo N^2, which only happens for malformed or tampered puzzles.
	ErrNotInvertible = errors.New("intermediate value not invertible")

	// ErrNegativeSecret is returned when a secret is nil or negative.
	ErrNegativeSecret = errors.New("secret must be a non-negative integer")

	// ErrCoefficientCount is returned when weights and puzzles differ in number.
	ErrCoefficientCount = errors.New("coefficient count does not match puzzle count")
)

// Fingerprint returns the SHA3-256 binding of a parameter set. Every puzzle
// carries the fingerprint of the parameters it was generated under.
func Fingerprint(params *lhtlp.Params) []byte {
	return utils.HashWithDomain(DomainParams, SerializeParams(params))
}

// checkPuzzle verifies binding and component ranges: 0 < U < N, 0 < V < N^2.
func checkPuzzle(params *lhtlp.Params, binding []byte, n2 *big.Int, pz *lhtlp.Puzzle) error {
	if pz == nil || pz.U == nil || pz.V == nil {
		return ErrMalformedPuzzle
	}
	if !utils.ConstantTimeEqual(pz.Binding, binding) {
		return ErrParamsMismatch
	}
	if pz.U.Sign() <= 0 || pz.U.Cmp(params.Modulus) >= 0 {
		return ErrMalformedPuzzle
	}
	if pz.V.Sign() <= 0 || pz.V.Cmp(n2) >= 0 {
		return ErrMalformedPuzzle
	}
	return nil
}

func validate(params *lhtlp.Params) error {
	return core.ValidateParams(params)
}
