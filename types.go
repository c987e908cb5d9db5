// Package lhtlp implements linearly homomorphic time-lock puzzles.
//
// A puzzle locks a secret integer so that it can only be recovered after
// Difficulty sequential modular squarings. Puzzles produced under the same
// parameters can be multiplied together into a single puzzle that locks the
// sum of their secrets, so a solver pays the sequential cost once.
//
// WARNING: secrets and sums of combined secrets must stay below the modulus.
// The encoding is modular and a value that reaches the modulus wraps
// silently; this is not detected.
package lhtlp

import (
	"bytes"
	"math/big"
)

// SecurityLevel names a predefined modulus size.
type SecurityLevel string

const (
	// Level128 uses a 128-bit modulus. It is trivially factorable and only
	// meant for tests and demonstrations.
	Level128 SecurityLevel = "TLP-128"
	// Level2048 uses a 2048-bit modulus.
	Level2048 SecurityLevel = "TLP-2048"
	// Level3072 uses a 3072-bit modulus.
	Level3072 SecurityLevel = "TLP-3072"
)

// SetupParams describes how public parameters are generated for a level.
type SetupParams struct {
	Level           SecurityLevel `json:"level"`
	Lambda          int           `json:"lambda"`           // Bits per safe prime
	PrimalityRounds int           `json:"primality_rounds"` // Miller-Rabin rounds
}

// =============================================================================
// Group Parameters
// =============================================================================

// Params are the public parameters shared by every puzzle of one setup.
// They hold no information about the factorization of Modulus.
type Params struct {
	Modulus        *big.Int // N = p*q, p and q safe primes
	Generator      *big.Int // Generator of the quadratic residues mod N
	TimeLockedBase *big.Int // Generator^(2^Difficulty) mod N
	Difficulty     *big.Int // Number of sequential squarings to solve
	Lambda         int      // Bits per prime factor
}

// ModulusSquared returns N^2, the ring of the puzzle's V component.
func (p *Params) ModulusSquared() *big.Int {
	return new(big.Int).Mul(p.Modulus, p.Modulus)
}

// Clone returns a deep copy of the parameters.
func (p *Params) Clone() *Params {
	return &Params{
		Modulus:        cloneInt(p.Modulus),
		Generator:      cloneInt(p.Generator),
		TimeLockedBase: cloneInt(p.TimeLockedBase),
		Difficulty:     cloneInt(p.Difficulty),
		Lambda:         p.Lambda,
	}
}

// Equal reports whether both parameter sets describe the same group and
// difficulty.
func (p *Params) Equal(other *Params) bool {
	if p == nil || other == nil {
		return p == other
	}
	return equalInt(p.Modulus, other.Modulus) &&
		equalInt(p.Generator, other.Generator) &&
		equalInt(p.TimeLockedBase, other.TimeLockedBase) &&
		equalInt(p.Difficulty, other.Difficulty)
}

// =============================================================================
// Puzzle
// =============================================================================

// Puzzle is a locked secret. It carries neither the randomizer nor the
// secret used to build it.
type Puzzle struct {
	U       *big.Int // Generator^r mod N
	V       *big.Int // TimeLockedBase^(r*N) * (1+N)^secret mod N^2
	Binding []byte   // Fingerprint of the parameters that produced the puzzle
}

// Clone returns a deep copy of the puzzle.
func (pz *Puzzle) Clone() *Puzzle {
	return &Puzzle{
		U:       cloneInt(pz.U),
		V:       cloneInt(pz.V),
		Binding: append([]byte(nil), pz.Binding...),
	}
}

// Equal reports whether two puzzles are identical.
func (pz *Puzzle) Equal(other *Puzzle) bool {
	if pz == nil || other == nil {
		return pz == other
	}
	return equalInt(pz.U, other.U) &&
		equalInt(pz.V, other.V) &&
		bytes.Equal(pz.Binding, other.Binding)
}

func cloneInt(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}

func equalInt(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}
