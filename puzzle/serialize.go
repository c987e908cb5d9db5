package puzzle

import (
	"encoding/binary"
	"errors"
	"fmt"

	lhtlp "github.com/BackendStack21/lhtlp-go"
	"github.com/BackendStack21/lhtlp-go/core"
	"github.com/BackendStack21/lhtlp-go/utils"
)

// Wire format version and record tags.
const (
	FormatVersion byte = 1

	tagParams byte = 'P'
	tagPuzzle byte = 'Z'
)

var (
	// ErrUnsupportedFormat is returned for blobs with an unknown version or tag.
	ErrUnsupportedFormat = errors.New("unsupported serialization format")

	// ErrTrailingData is returned when a blob has bytes after its last field.
	ErrTrailingData = errors.New("trailing data after last field")
)

// SerializeParams encodes params as
//
//	version | 'P' | lambda (uint32 LE) | N | g | h | T
//
// where each integer is a uint32 LE length followed by its big-endian
// magnitude. Params must be valid.
func SerializeParams(params *lhtlp.Params) []byte {
	out := make([]byte, 0, 6+4*4+3*len(params.Modulus.Bytes())+len(params.Difficulty.Bytes()))
	out = append(out, FormatVersion, tagParams)

	lambda := make([]byte, 4)
	binary.LittleEndian.PutUint32(lambda, uint32(params.Lambda))
	out = append(out, lambda...)

	out = utils.AppendBigInt(out, params.Modulus)
	out = utils.AppendBigInt(out, params.Generator)
	out = utils.AppendBigInt(out, params.TimeLockedBase)
	out = utils.AppendBigInt(out, params.Difficulty)
	return out
}

// DeserializeParams decodes and validates parameters produced by
// SerializeParams.
func DeserializeParams(data []byte) (*lhtlp.Params, error) {
	if err := utils.CheckLength(len(data), utils.MaxPayloadLength); err != nil {
		return nil, err
	}
	offset, err := readHeader(data, tagParams)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateSliceAccess(data, offset, 4); err != nil {
		return nil, utils.ErrTruncated
	}
	lambda := binary.LittleEndian.Uint32(data[offset:])
	offset += 4
	if lambda > core.MaxLambda {
		return nil, core.ErrLambdaTooLarge
	}

	n, offset, err := utils.ReadBigInt(data, offset, utils.MaxModulusBytes)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	g, offset, err := utils.ReadBigInt(data, offset, utils.MaxModulusBytes)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	h, offset, err := utils.ReadBigInt(data, offset, utils.MaxModulusBytes)
	if err != nil {
		return nil, fmt.Errorf("time-locked base: %w", err)
	}
	t, offset, err := utils.ReadBigInt(data, offset, utils.MaxDifficultyBytes)
	if err != nil {
		return nil, fmt.Errorf("difficulty: %w", err)
	}
	if offset != len(data) {
		return nil, ErrTrailingData
	}

	params := &lhtlp.Params{
		Modulus:        n,
		Generator:      g,
		TimeLockedBase: h,
		Difficulty:     t,
		Lambda:         int(lambda),
	}
	if err := core.ValidateParams(params); err != nil {
		return nil, err
	}
	return params, nil
}

// SerializePuzzle encodes a puzzle as
//
//	version | 'Z' | U | V | binding
//
// with the same length-prefixed fields as SerializeParams.
func SerializePuzzle(pz *lhtlp.Puzzle) []byte {
	out := make([]byte, 0, 2+3*4+len(pz.U.Bytes())+len(pz.V.Bytes())+len(pz.Binding))
	out = append(out, FormatVersion, tagPuzzle)
	out = utils.AppendBigInt(out, pz.U)
	out = utils.AppendBigInt(out, pz.V)
	out = utils.AppendLengthPrefixed(out, pz.Binding)
	return out
}

// DeserializePuzzle decodes a puzzle produced by SerializePuzzle. Range and
// binding checks against a parameter set happen in Solve and Eval.
func DeserializePuzzle(data []byte) (*lhtlp.Puzzle, error) {
	if err := utils.CheckLength(len(data), utils.MaxPayloadLength); err != nil {
		return nil, err
	}
	offset, err := readHeader(data, tagPuzzle)
	if err != nil {
		return nil, err
	}

	u, offset, err := utils.ReadBigInt(data, offset, utils.MaxModulusBytes)
	if err != nil {
		return nil, fmt.Errorf("u: %w", err)
	}
	v, offset, err := utils.ReadBigInt(data, offset, utils.MaxModulusSquaredBytes)
	if err != nil {
		return nil, fmt.Errorf("v: %w", err)
	}
	binding, offset, err := utils.ReadLengthPrefixed(data, offset, utils.MaxBindingLength)
	if err != nil {
		return nil, fmt.Errorf("binding: %w", err)
	}
	if offset != len(data) {
		return nil, ErrTrailingData
	}

	return &lhtlp.Puzzle{
		U:       u,
		V:       v,
		Binding: append([]byte(nil), binding...),
	}, nil
}

func readHeader(data []byte, tag byte) (int, error) {
	if len(data) < 2 {
		return 0, utils.ErrTruncated
	}
	if data[0] != FormatVersion || data[1] != tag {
		return 0, ErrUnsupportedFormat
	}
	return 2, nil
}
