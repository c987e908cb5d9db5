package core

import (
	"errors"
	"math/big"
	"testing"
	"time"

	lhtlp "github.com/BackendStack21/lhtlp-go"
)

// Two 33-bit safe primes.
var (
	toyP = big.NewInt(4294967387) // 2*2147483693+1
	toyQ = big.NewInt(4294967627) // 2*2147483813+1
)

func toyParams() *lhtlp.Params {
	n := new(big.Int).Mul(toyP, toyQ)
	g := new(big.Int).Exp(big.NewInt(7), big.NewInt(2), n)
	h := new(big.Int).Exp(g, big.NewInt(16), n)
	return &lhtlp.Params{
		Modulus:        n,
		Generator:      g,
		TimeLockedBase: h,
		Difficulty:     big.NewInt(4),
		Lambda:         33,
	}
}

func TestGetParams(t *testing.T) {
	levels := []lhtlp.SecurityLevel{lhtlp.Level128, lhtlp.Level2048, lhtlp.Level3072}
	for _, level := range levels {
		sp, err := GetParams(level)
		if err != nil {
			t.Fatalf("GetParams(%s) failed: %v", level, err)
		}
		if sp.Level != level {
			t.Errorf("Expected %s, got %s", level, sp.Level)
		}
		if err := ValidateSetupParams(sp); err != nil {
			t.Errorf("ValidateSetupParams(%s) failed: %v", level, err)
		}
	}

	// Test invalid
	_, err := GetParams("INVALID")
	if err == nil {
		t.Error("GetParams(INVALID) should fail")
	}
}

func TestLevelModulusSizes(t *testing.T) {
	if 2*Level2048Params.Lambda != 2048 {
		t.Errorf("Level2048 lambda %d does not give a 2048-bit modulus", Level2048Params.Lambda)
	}
	if 2*Level3072Params.Lambda != 3072 {
		t.Errorf("Level3072 lambda %d does not give a 3072-bit modulus", Level3072Params.Lambda)
	}
}

func TestValidateLambda(t *testing.T) {
	if err := ValidateLambda(MinLambda); err != nil {
		t.Errorf("ValidateLambda(MinLambda) failed: %v", err)
	}
	if err := ValidateLambda(MinLambda - 1); !errors.Is(err, ErrLambdaTooSmall) {
		t.Errorf("expected ErrLambdaTooSmall, got %v", err)
	}
	if err := ValidateLambda(MaxLambda + 1); !errors.Is(err, ErrLambdaTooLarge) {
		t.Errorf("expected ErrLambdaTooLarge, got %v", err)
	}
}

func TestValidateDifficulty(t *testing.T) {
	if err := ValidateDifficulty(big.NewInt(0)); err != nil {
		t.Errorf("zero difficulty should be accepted: %v", err)
	}
	if err := ValidateDifficulty(nil); !errors.Is(err, ErrInvalidDifficulty) {
		t.Errorf("nil difficulty: got %v", err)
	}
	if err := ValidateDifficulty(big.NewInt(-1)); !errors.Is(err, ErrInvalidDifficulty) {
		t.Errorf("negative difficulty: got %v", err)
	}
}

func TestValidateParams(t *testing.T) {
	params := toyParams()

	// Test valid params
	if err := ValidateParams(params); err != nil {
		t.Errorf("ValidateParams failed for valid params: %v", err)
	}

	invalid := params.Clone()
	invalid.Generator = big.NewInt(1)
	if err := ValidateParams(invalid); err == nil {
		t.Error("ValidateParams should reject generator 1")
	}

	invalid = params.Clone()
	invalid.Modulus = new(big.Int).Add(params.Modulus, big.NewInt(1))
	if err := ValidateParams(invalid); err == nil {
		t.Error("ValidateParams should reject an even modulus")
	}

	invalid = params.Clone()
	invalid.TimeLockedBase = new(big.Int).Set(params.Modulus)
	if err := ValidateParams(invalid); err == nil {
		t.Error("ValidateParams should reject h >= N")
	}

	invalid = params.Clone()
	invalid.Generator = new(big.Int).Set(toyP)
	if err := ValidateParams(invalid); err == nil {
		t.Error("ValidateParams should reject a generator sharing a factor with N")
	}

	invalid = params.Clone()
	invalid.Difficulty = big.NewInt(-3)
	if err := ValidateParams(invalid); !errors.Is(err, ErrInvalidDifficulty) {
		t.Errorf("expected ErrInvalidDifficulty, got %v", err)
	}

	if err := ValidateParams(nil); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams for nil, got %v", err)
	}
}

func TestDifficultyFor(t *testing.T) {
	d, err := DifficultyFor(5*time.Second, 2e7)
	if err != nil {
		t.Fatal(err)
	}
	if d.Cmp(big.NewInt(100_000_000)) != 0 {
		t.Errorf("DifficultyFor(5s, 2e7/s) = %s, want 100000000", d)
	}

	if _, err := DifficultyFor(time.Second, 0); err == nil {
		t.Error("DifficultyFor should reject a zero rate")
	}
	if _, err := DifficultyFor(-time.Second, 1); err == nil {
		t.Error("DifficultyFor should reject a negative target")
	}
}
