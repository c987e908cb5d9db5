// Package core provides security levels and parameter validation for LHTLP.
package core

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	lhtlp "github.com/BackendStack21/lhtlp-go"
)

const (
	// MinLambda is the smallest accepted bit length per safe prime. Anything
	// below it is rejected by setup; values this small are still insecure and
	// only suitable for tests.
	MinLambda = 32

	// MaxLambda bounds the prime size to keep setup and decoding bounded.
	MaxLambda = 8192

	// DefaultPrimalityRounds is the number of Miller-Rabin rounds applied to
	// each half of a safe-prime candidate.
	DefaultPrimalityRounds = 20
)

var (
	// ErrLambdaTooSmall is returned for a security parameter below MinLambda.
	ErrLambdaTooSmall = fmt.Errorf("lambda below the %d-bit floor", MinLambda)

	// ErrLambdaTooLarge is returned for a security parameter above MaxLambda.
	ErrLambdaTooLarge = fmt.Errorf("lambda above the %d-bit ceiling", MaxLambda)

	// ErrInvalidDifficulty is returned for a nil or negative difficulty.
	ErrInvalidDifficulty = errors.New("difficulty must be a non-negative integer")

	// ErrInvalidParams is returned when public parameters are structurally invalid.
	ErrInvalidParams = errors.New("invalid public parameters")
)

// Level128Params produces a 128-bit modulus. Factorable in seconds; tests only.
var Level128Params = lhtlp.SetupParams{
	Level:           lhtlp.Level128,
	Lambda:          64,
	PrimalityRounds: DefaultPrimalityRounds,
}

// Level2048Params produces a 2048-bit modulus.
var Level2048Params = lhtlp.SetupParams{
	Level:           lhtlp.Level2048,
	Lambda:          1024,
	PrimalityRounds: DefaultPrimalityRounds,
}

// Level3072Params produces a 3072-bit modulus.
var Level3072Params = lhtlp.SetupParams{
	Level:           lhtlp.Level3072,
	Lambda:          1536,
	PrimalityRounds: DefaultPrimalityRounds,
}

// GetParams returns the setup parameters for the given security level.
func GetParams(level lhtlp.SecurityLevel) (lhtlp.SetupParams, error) {
	switch level {
	case lhtlp.Level128:
		return Level128Params, nil
	case lhtlp.Level2048:
		return Level2048Params, nil
	case lhtlp.Level3072:
		return Level3072Params, nil
	default:
		return lhtlp.SetupParams{}, fmt.Errorf("unknown security level: %s", level)
	}
}

// ValidateLambda checks the per-prime bit length against the floor and ceiling.
func ValidateLambda(lambda int) error {
	if lambda < MinLambda {
		return fmt.Errorf("%w: got %d", ErrLambdaTooSmall, lambda)
	}
	if lambda > MaxLambda {
		return fmt.Errorf("%w: got %d", ErrLambdaTooLarge, lambda)
	}
	return nil
}

// ValidateDifficulty checks that the difficulty is a non-negative integer.
func ValidateDifficulty(difficulty *big.Int) error {
	if difficulty == nil || difficulty.Sign() < 0 {
		return ErrInvalidDifficulty
	}
	return nil
}

// ValidateSetupParams validates a setup parameter set.
func ValidateSetupParams(sp lhtlp.SetupParams) error {
	if err := ValidateLambda(sp.Lambda); err != nil {
		return err
	}
	if sp.PrimalityRounds < 1 {
		return errors.New("primality rounds must be positive")
	}
	return nil
}

// ValidateParams performs the structural checks possible without the
// factorization: all fields present, N odd and at least 2*MinLambda bits,
// 1 < g < N and 0 < h < N, both units mod N, and T >= 0.
func ValidateParams(p *lhtlp.Params) error {
	if p == nil || p.Modulus == nil || p.Generator == nil || p.TimeLockedBase == nil {
		return fmt.Errorf("%w: missing field", ErrInvalidParams)
	}
	if err := ValidateDifficulty(p.Difficulty); err != nil {
		return err
	}
	n := p.Modulus
	if n.Sign() <= 0 || n.Bit(0) == 0 {
		return fmt.Errorf("%w: modulus must be odd and positive", ErrInvalidParams)
	}
	if n.BitLen() < 2*MinLambda || n.BitLen() > 2*MaxLambda {
		return fmt.Errorf("%w: modulus size %d bits out of range", ErrInvalidParams, n.BitLen())
	}
	one := big.NewInt(1)
	if p.Generator.Cmp(one) <= 0 || p.Generator.Cmp(n) >= 0 {
		return fmt.Errorf("%w: generator out of range", ErrInvalidParams)
	}
	if p.TimeLockedBase.Sign() <= 0 || p.TimeLockedBase.Cmp(n) >= 0 {
		return fmt.Errorf("%w: time-locked base out of range", ErrInvalidParams)
	}
	gcd := new(big.Int)
	if gcd.GCD(nil, nil, p.Generator, n).Cmp(one) != 0 {
		return fmt.Errorf("%w: generator is not a unit", ErrInvalidParams)
	}
	if gcd.GCD(nil, nil, p.TimeLockedBase, n).Cmp(one) != 0 {
		return fmt.Errorf("%w: time-locked base is not a unit", ErrInvalidParams)
	}
	return nil
}

// DifficultyFor converts a target solving time into a number of squarings
// given a measured rate in squarings per second.
func DifficultyFor(target time.Duration, squaringsPerSecond float64) (*big.Int, error) {
	if target < 0 {
		return nil, errors.New("target duration must be non-negative")
	}
	if squaringsPerSecond <= 0 {
		return nil, errors.New("squaring rate must be positive")
	}
	t := new(big.Float).SetFloat64(target.Seconds())
	t.Mul(t, big.NewFloat(squaringsPerSecond))
	out, _ := t.Int(nil)
	return out, nil
}
