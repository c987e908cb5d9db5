// Package lhtlp implements linearly homomorphic time-lock puzzles (LHTLP).
// This package provides the shared types; the protocol lives in sub-packages:
// parameter generation in group, puzzle generation, solving and homomorphic
// evaluation in puzzle.
package lhtlp

// Version of the LHTLP Go implementation.
const Version = "0.3.0"

// API summary:
//
// Setup:
//   - group.Setup(ctx, cfg) - Generate public parameters (trapdoor is discarded)
//   - group.SetupLevel(ctx, level, difficulty) - Setup with a named security level
//   - group.DefaultConfig(lambda, difficulty) - Config with default budgets
//
// Puzzles:
//   - puzzle.Generate(params, secret) - Lock a secret into a puzzle
//   - puzzle.Solve(params, pz) - Recover the secret by sequential squaring
//   - puzzle.Eval(params, puzzles) - Combine puzzles into one locking the sum
//   - puzzle.EvalLinear(params, puzzles, weights) - Weighted combination
//
// Parameters:
//   - core.GetParams(level) - Setup parameters for a security level
//   - Level128 - toy 128-bit modulus, tests and demos only
//   - Level2048 - 2048-bit modulus
//   - Level3072 - 3072-bit modulus
