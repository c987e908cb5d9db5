package puzzle

import (
	"math/big"

	lhtlp "github.com/BackendStack21/lhtlp-go"
)

// Eval combines puzzles into one whose secret is the sum of theirs modulo N.
// Combining costs one modular multiplication per puzzle and needs no
// squarings.
func Eval(params *lhtlp.Params, puzzles []*lhtlp.Puzzle) (*lhtlp.Puzzle, error) {
	if err := validate(params); err != nil {
		return nil, err
	}
	if len(puzzles) == 0 {
		return nil, ErrEmptyInput
	}
	n := params.Modulus
	n2 := params.ModulusSquared()
	binding := Fingerprint(params)
	if err := checkAll(params, binding, n2, puzzles); err != nil {
		return nil, err
	}

	u := big.NewInt(1)
	v := big.NewInt(1)
	for _, pz := range puzzles {
		u.Mul(u, pz.U)
		u.Mod(u, n)
		v.Mul(v, pz.V)
		v.Mod(v, n2)
	}
	return &lhtlp.Puzzle{U: u, V: v, Binding: binding}, nil
}

// EvalLinear combines puzzles into one whose secret is sum(c_i * s_i) mod N.
// A negative coefficient raises the component's inverse to |c_i|.
func EvalLinear(params *lhtlp.Params, puzzles []*lhtlp.Puzzle, coefficients []*big.Int) (*lhtlp.Puzzle, error) {
	if err := validate(params); err != nil {
		return nil, err
	}
	if len(puzzles) == 0 {
		return nil, ErrEmptyInput
	}
	if len(coefficients) != len(puzzles) {
		return nil, ErrCoefficientCount
	}
	n := params.Modulus
	n2 := params.ModulusSquared()
	binding := Fingerprint(params)
	if err := checkAll(params, binding, n2, puzzles); err != nil {
		return nil, err
	}

	u := big.NewInt(1)
	v := big.NewInt(1)
	for i, pz := range puzzles {
		c := coefficients[i]
		if c == nil {
			return nil, ErrMalformedPuzzle
		}
		ui, err := scale(pz.U, c, n)
		if err != nil {
			return nil, err
		}
		vi, err := scale(pz.V, c, n2)
		if err != nil {
			return nil, err
		}
		u.Mul(u, ui)
		u.Mod(u, n)
		v.Mul(v, vi)
		v.Mod(v, n2)
	}
	return &lhtlp.Puzzle{U: u, V: v, Binding: binding}, nil
}

// scale returns x^c mod m, inverting x first when c is negative.
func scale(x, c, m *big.Int) (*big.Int, error) {
	base := x
	if c.Sign() < 0 {
		base = new(big.Int).ModInverse(x, m)
		if base == nil {
			return nil, ErrNotInvertible
		}
	}
	return new(big.Int).Exp(base, new(big.Int).Abs(c), m), nil
}

func checkAll(params *lhtlp.Params, binding []byte, n2 *big.Int, puzzles []*lhtlp.Puzzle) error {
	for _, pz := range puzzles {
		if pz == nil {
			return ErrParamsMismatch
		}
		if err := checkPuzzle(params, binding, n2, pz); err != nil {
			return err
		}
	}
	return nil
}
