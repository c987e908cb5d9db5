package puzzle

import (
	"context"
	"errors"
	"math/big"
	"time"

	lhtlp "github.com/BackendStack21/lhtlp-go"
)

// DefaultCalibrationSamples is the number of squarings MeasureSquaringRate
// times when samples is not positive.
const DefaultCalibrationSamples = 1 << 18

// MeasureSquaringRate times samples squarings modulo params.Modulus on this
// machine and returns the observed rate in squarings per second. Feed the
// result to core.DifficultyFor to pick a difficulty for a target delay.
func MeasureSquaringRate(ctx context.Context, params *lhtlp.Params, samples int) (float64, error) {
	if err := validate(params); err != nil {
		return 0, err
	}
	if samples <= 0 {
		samples = DefaultCalibrationSamples
	}

	var s Solver
	start := time.Now()
	_, done, err := s.squareRepeatedly(ctx, params.Generator, params.Modulus, big.NewInt(int64(samples)))
	if err != nil {
		return 0, err
	}
	elapsed := time.Since(start)
	if elapsed <= 0 {
		return 0, errors.New("clock did not advance during calibration")
	}
	return float64(done) / elapsed.Seconds(), nil
}
