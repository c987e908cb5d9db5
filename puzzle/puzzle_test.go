package puzzle

import (
	"bytes"
	"context"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	lhtlp "github.com/BackendStack21/lhtlp-go"
	"github.com/BackendStack21/lhtlp-go/group"
	"github.com/BackendStack21/lhtlp-go/logging"
)

const testLambda = 64

var (
	paramsOnce sync.Once
	shared     *lhtlp.Params
	sharedErr  error
)

// sharedParams returns one λ=64, T=1000 parameter set for the whole package.
func sharedParams(t *testing.T) *lhtlp.Params {
	t.Helper()
	paramsOnce.Do(func() {
		shared, sharedErr = group.SetupFromSeed(context.Background(),
			group.DefaultConfig(testLambda, big.NewInt(1000)),
			[]byte("puzzle package fixture seed 0123456789"))
	})
	require.NoError(t, sharedErr)
	return shared
}

func newParams(t *testing.T, difficulty int64) *lhtlp.Params {
	t.Helper()
	params, err := group.Setup(context.Background(), group.DefaultConfig(testLambda, big.NewInt(difficulty)))
	require.NoError(t, err)
	return params
}

// toyParams builds parameters over two 33-bit safe primes with g = 49 and
// h = g^(2^t) obtained by squaring, so the factors are known to the test.
func toyParams(t int) (*lhtlp.Params, *big.Int) {
	p := big.NewInt(4294967387)
	q := big.NewInt(4294967627)
	n := new(big.Int).Mul(p, q)
	g := big.NewInt(49)
	h := new(big.Int).Set(g)
	for i := 0; i < t; i++ {
		h.Mul(h, h)
		h.Mod(h, n)
	}
	return &lhtlp.Params{
		Modulus:        n,
		Generator:      g,
		TimeLockedBase: h,
		Difficulty:     big.NewInt(int64(t)),
		Lambda:         33,
	}, p
}

func TestGenerateSolveRoundTrip(t *testing.T) {
	params := sharedParams(t)
	nMinus1 := new(big.Int).Sub(params.Modulus, big.NewInt(1))

	for _, s := range []*big.Int{big.NewInt(0), big.NewInt(1), big.NewInt(42), big.NewInt(1 << 40), nMinus1} {
		pz, err := Generate(params, s)
		require.NoError(t, err)
		got, err := Solve(params, pz)
		require.NoError(t, err)
		assert.Equal(t, 0, s.Cmp(got), "secret %s", s)
	}
}

func TestSolveToyParams(t *testing.T) {
	params, _ := toyParams(50)
	pz, err := Generate(params, big.NewInt(123456789))
	require.NoError(t, err)
	got, err := Solve(params, pz)
	require.NoError(t, err)
	assert.Equal(t, int64(123456789), got.Int64())
}

func TestSolveZeroDifficulty(t *testing.T) {
	params := newParams(t, 0)
	pz, err := Generate(params, big.NewInt(7))
	require.NoError(t, err)

	var calls int
	s := Solver{Progress: func(done, total uint64) { calls++ }}
	got, err := s.Solve(context.Background(), params, pz)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Int64())
	assert.Zero(t, calls, "no squarings means no progress reports")
}

func TestSecretWrapsModuloN(t *testing.T) {
	params := sharedParams(t)
	over := new(big.Int).Add(params.Modulus, big.NewInt(5))
	pz, err := Generate(params, over)
	require.NoError(t, err)
	got, err := Solve(params, pz)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Int64())
}

func TestGenerateRejectsBadSecret(t *testing.T) {
	params := sharedParams(t)
	_, err := Generate(params, big.NewInt(-1))
	assert.ErrorIs(t, err, ErrNegativeSecret)
	_, err = Generate(params, nil)
	assert.ErrorIs(t, err, ErrNegativeSecret)
}

func TestGenerateRejectsInvalidParams(t *testing.T) {
	params := sharedParams(t).Clone()
	params.Generator = big.NewInt(1)
	_, err := Generate(params, big.NewInt(1))
	assert.Error(t, err)

	_, err = Generate(nil, big.NewInt(1))
	assert.Error(t, err)
}

func TestGenerateDeterministic(t *testing.T) {
	params := sharedParams(t)
	r := big.NewInt(987654321)

	a, err := GenerateDeterministic(params, big.NewInt(9), r)
	require.NoError(t, err)
	b, err := GenerateDeterministic(params, big.NewInt(9), r)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	// u = g^r mod N
	assert.Equal(t, 0, a.U.Cmp(new(big.Int).Exp(params.Generator, r, params.Modulus)))

	_, err = GenerateDeterministic(params, big.NewInt(9), big.NewInt(0))
	assert.ErrorIs(t, err, ErrMalformedPuzzle)
}

func TestGenerateUnlinkable(t *testing.T) {
	params := sharedParams(t)
	a, err := Generate(params, big.NewInt(42))
	require.NoError(t, err)
	b, err := Generate(params, big.NewInt(42))
	require.NoError(t, err)
	assert.NotEqual(t, 0, a.U.Cmp(b.U))
	assert.NotEqual(t, 0, a.V.Cmp(b.V))
	assert.Equal(t, a.Binding, b.Binding)
}

func TestPuzzleComponentRanges(t *testing.T) {
	params := sharedParams(t)
	n2 := params.ModulusSquared()
	for i := 0; i < 20; i++ {
		pz, err := Generate(params, big.NewInt(int64(i)))
		require.NoError(t, err)
		assert.True(t, pz.U.Sign() > 0 && pz.U.Cmp(params.Modulus) < 0)
		assert.True(t, pz.V.Sign() > 0 && pz.V.Cmp(n2) < 0)
		assert.Len(t, pz.Binding, 32)
	}
}

func TestSquareRepeatedlyExactCount(t *testing.T) {
	params, _ := toyParams(0)
	var reports [][2]uint64
	s := Solver{
		CheckInterval: 7,
		Progress:      func(done, total uint64) { reports = append(reports, [2]uint64{done, total}) },
	}

	w, done, err := s.squareRepeatedly(context.Background(), params.Generator, params.Modulus, big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, uint64(100), done)
	require.Len(t, reports, 15)
	assert.Equal(t, [2]uint64{7, 100}, reports[0])
	assert.Equal(t, [2]uint64{100, 100}, reports[len(reports)-1])

	// g^(2^100) mod N through the exponent.
	e := new(big.Int).Lsh(big.NewInt(1), 100)
	want := new(big.Int).Exp(params.Generator, e, params.Modulus)
	assert.Equal(t, 0, want.Cmp(w))
}

func TestSolverMatchesTrapdoor(t *testing.T) {
	// Solving must agree with the base computed through the trapdoor.
	params := newParams(t, 777)
	var s Solver
	w, done, err := s.squareRepeatedly(context.Background(), params.Generator, params.Modulus, params.Difficulty)
	require.NoError(t, err)
	assert.Equal(t, uint64(777), done)
	assert.Equal(t, 0, w.Cmp(params.TimeLockedBase))
}

func TestSolveCancelled(t *testing.T) {
	params := newParams(t, 1<<40)
	pz, err := Generate(params, big.NewInt(1))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s := Solver{CheckInterval: 1000}
	_, err = s.Solve(ctx, params, pz)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSolveParamsMismatch(t *testing.T) {
	a := sharedParams(t)
	b := newParams(t, 1000)

	pz, err := Generate(a, big.NewInt(3))
	require.NoError(t, err)
	_, err = Solve(b, pz)
	assert.ErrorIs(t, err, ErrParamsMismatch)

	// Same group, different difficulty.
	c := a.Clone()
	c.Difficulty = big.NewInt(999)
	_, err = Solve(c, pz)
	assert.ErrorIs(t, err, ErrParamsMismatch)
}

func TestSolveMalformed(t *testing.T) {
	params := sharedParams(t)
	pz, err := Generate(params, big.NewInt(11))
	require.NoError(t, err)
	n2 := params.ModulusSquared()

	cases := map[string]*lhtlp.Puzzle{
		"nil":        nil,
		"nil u":      {U: nil, V: pz.V, Binding: pz.Binding},
		"zero u":     {U: big.NewInt(0), V: pz.V, Binding: pz.Binding},
		"u at N":     {U: new(big.Int).Set(params.Modulus), V: pz.V, Binding: pz.Binding},
		"zero v":     {U: pz.U, V: big.NewInt(0), Binding: pz.Binding},
		"v at N^2":   {U: pz.U, V: n2, Binding: pz.Binding},
		"tampered v": {U: pz.U, V: new(big.Int).Add(pz.V, big.NewInt(1)), Binding: pz.Binding},
		"negative u": {U: big.NewInt(-3), V: pz.V, Binding: pz.Binding},
		"negative v": {U: pz.U, V: big.NewInt(-3), Binding: pz.Binding},
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Solve(params, bad)
			assert.ErrorIs(t, err, ErrMalformedPuzzle)
		})
	}
}

func TestSolveNotInvertible(t *testing.T) {
	params, p := toyParams(10)
	pz, err := Generate(params, big.NewInt(1))
	require.NoError(t, err)

	// U sharing the factor p with N survives squaring, so the lifted value
	// has no inverse mod N^2.
	pz.U = new(big.Int).Set(p)
	_, err = Solve(params, pz)
	assert.ErrorIs(t, err, ErrNotInvertible)
}

func TestSolveLogsRedacted(t *testing.T) {
	params := sharedParams(t)
	pz, err := Generate(params, big.NewInt(31337))
	require.NoError(t, err)

	var buf bytes.Buffer
	s := Solver{Logger: logging.New(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))}
	got, err := s.Solve(context.Background(), params, pz)
	require.NoError(t, err)
	assert.Equal(t, int64(31337), got.Int64())

	out := buf.String()
	assert.Contains(t, out, "puzzle solved")
	assert.Contains(t, out, "secret="+logging.Placeholder())
	assert.NotContains(t, out, "secret=31337")
}

func TestConcurrentUse(t *testing.T) {
	params := sharedParams(t)
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		secret := big.NewInt(int64(1000 + i))
		g.Go(func() error {
			pz, err := Generate(params, secret)
			if err != nil {
				return err
			}
			got, err := Solve(params, pz)
			if err != nil {
				return err
			}
			if got.Cmp(secret) != 0 {
				t.Errorf("got %s, want %s", got, secret)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestFingerprint(t *testing.T) {
	a := sharedParams(t)
	b := a.Clone()
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.Len(t, Fingerprint(a), 32)

	b.TimeLockedBase = new(big.Int).Add(b.TimeLockedBase, big.NewInt(1))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestMeasureSquaringRate(t *testing.T) {
	params := sharedParams(t)
	rate, err := MeasureSquaringRate(context.Background(), params, 10000)
	require.NoError(t, err)
	assert.Greater(t, rate, 0.0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = MeasureSquaringRate(ctx, params, 10)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = MeasureSquaringRate(context.Background(), nil, 10)
	assert.Error(t, err)
}
