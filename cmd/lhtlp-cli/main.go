// Package main provides the lhtlp-cli command line interface for time-lock puzzles.
package main

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"time"

	lhtlp "github.com/BackendStack21/lhtlp-go"
	"github.com/BackendStack21/lhtlp-go/core"
	"github.com/BackendStack21/lhtlp-go/group"
	"github.com/BackendStack21/lhtlp-go/logging"
	"github.com/BackendStack21/lhtlp-go/puzzle"
)

const (
	version = "0.3.0"
	appName = "lhtlp-cli"

	// MaxInputFileSize bounds every file the CLI reads.
	MaxInputFileSize = 16 * 1024 * 1024
)

// OutputFormat represents the encoding of binary blobs inside JSON exports
type OutputFormat string

const (
	FormatHex    OutputFormat = "hex"
	FormatBase64 OutputFormat = "base64"
)

// CLIConfig holds CLI configuration
type CLIConfig struct {
	SecurityLevel lhtlp.SecurityLevel
	Lambda        int
	OutputFormat  OutputFormat
	OutputFile    string
	Verbose       bool
	Timing        bool
}

// ParamsExport represents exported public parameters
type ParamsExport struct {
	SecurityLevel string `json:"security_level,omitempty"`
	Lambda        int    `json:"lambda"`
	ModulusBits   int    `json:"modulus_bits"`
	Difficulty    string `json:"difficulty"`
	Fingerprint   string `json:"fingerprint"`
	Params        string `json:"params"`
	CreatedAt     string `json:"created_at"`
}

// PuzzleExport represents an exported puzzle
type PuzzleExport struct {
	Fingerprint string `json:"fingerprint"`
	Combined    int    `json:"combined,omitempty"` // Number of puzzles folded in by eval
	Puzzle      string `json:"puzzle"`
	CreatedAt   string `json:"created_at"`
}

// CalibrationExport represents the result of a calibration run
type CalibrationExport struct {
	ModulusBits        int     `json:"modulus_bits"`
	Samples            int     `json:"samples"`
	SquaringsPerSecond float64 `json:"squarings_per_second"`
	Target             string  `json:"target,omitempty"`
	Difficulty         string  `json:"difficulty,omitempty"`
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Printf("%s version %s\n", appName, version)
		fmt.Printf("LHTLP library version %s\n", lhtlp.Version)
	case "setup":
		cmdSetup(os.Args[2:])
	case "generate", "gen":
		cmdGenerate(os.Args[2:])
	case "solve":
		cmdSolve(os.Args[2:])
	case "eval":
		cmdEval(os.Args[2:])
	case "calibrate":
		cmdCalibrate(os.Args[2:])
	case "inspect":
		cmdInspect(os.Args[2:])
	case "benchmark":
		handleBenchmark(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - Linearly Homomorphic Time-Lock Puzzle CLI

USAGE:
    %s <COMMAND> [OPTIONS]

COMMANDS:
    setup       Generate public parameters (N, g, h, T)
    generate    Lock a secret integer into a puzzle
    solve       Recover the secret of a puzzle by sequential squaring
    eval        Combine puzzles into one locking the (weighted) sum
    calibrate   Measure the squaring rate and suggest a difficulty
    inspect     Show the contents of a parameter or puzzle file
    benchmark   Run performance benchmarks
    version     Show version information
    help        Show this help message

OPTIONS:
    --level <128|2048|3072>     Security level (default: 2048)
    --lambda <bits>             Bits per safe prime, overrides --level
    --difficulty <T>            Number of sequential squarings
    --workers <n>               Parallel prime searchers (default: all CPUs)
    --seed <hex>                Reproducible setup from a seed of 32+ bytes
    --params <file>             Parameter file written by setup
    --secret <integer>          Non-negative secret for generate
    --puzzle <file>             Puzzle file
    --puzzles <a,b,...>         Puzzle files for eval
    --weights <w1,w2,...>       Integer weights for eval (default: all 1)
    --samples <n>               Squarings timed by calibrate
    --target <duration>         Desired solving time for calibrate, e.g. 30s
    --output <file>             Output file (default: stdout)
    --format <hex|base64>       Blob encoding (default: base64)
    --timing                    Show timing information
    --verbose                   Debug logging on stderr

EXAMPLES:
    # Generate parameters for one million squarings
    %s setup --level 128 --difficulty 1000000 --output params.json

    # Lock two secrets
    %s generate --params params.json --secret 42 --output a.json
    %s generate --params params.json --secret 13 --output b.json

    # Combine them and solve once
    %s eval --params params.json --puzzles a.json,b.json --output sum.json
    %s solve --params params.json --puzzle sum.json

    # Pick a difficulty for a 30 second delay
    %s calibrate --params params.json --target 30s

    # Run benchmarks
    %s benchmark --level 128 --difficulty 100000 --iterations 3
`, appName, appName, appName, appName, appName, appName, appName, appName, appName)
}

// ============================================================================
// Commands
// ============================================================================

func cmdSetup(args []string) {
	config := parseConfig(args)
	difficulty := parseBigArg(args, "--difficulty", "-d", "")
	if difficulty == nil {
		fmt.Fprintf(os.Stderr, "Error: --difficulty is required\n")
		os.Exit(1)
	}

	cfg := group.DefaultConfig(config.Lambda, difficulty)
	cfg.Workers = parseIntArg(args, "--workers", "-w", 0)
	cfg.Logger = newLogger(config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	var params *lhtlp.Params
	var err error
	if seedHex := getArg(args, "--seed", ""); seedHex != "" {
		seed, derr := hex.DecodeString(seedHex)
		if derr != nil {
			fmt.Fprintf(os.Stderr, "Error: --seed must be hex: %v\n", derr)
			os.Exit(1)
		}
		params, err = group.SetupFromSeed(ctx, cfg, seed)
	} else {
		params, err = group.Setup(ctx, cfg)
	}
	elapsed := time.Since(start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating parameters: %v\n", err)
		os.Exit(1)
	}

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Setup took: %v\n", elapsed)
	}

	export := ParamsExport{
		Lambda:      params.Lambda,
		ModulusBits: params.Modulus.BitLen(),
		Difficulty:  params.Difficulty.String(),
		Fingerprint: hex.EncodeToString(puzzle.Fingerprint(params)),
		Params:      encodeBytes(puzzle.SerializeParams(params), config.OutputFormat),
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if !hasFlag(args, "--lambda", "") {
		export.SecurityLevel = string(config.SecurityLevel)
	}
	writeJSON(export, config.OutputFile)
}

func cmdGenerate(args []string) {
	config := parseConfig(args)
	params := mustLoadParams(args)

	secret := parseBigArg(args, "--secret", "-s", "")
	if secret == nil {
		fmt.Fprintf(os.Stderr, "Error: --secret is required\n")
		os.Exit(1)
	}
	if secret.Cmp(params.Modulus) >= 0 {
		fmt.Fprintf(os.Stderr, "Warning: secret is not below the modulus and will wrap\n")
	}

	start := time.Now()
	pz, err := puzzle.Generate(params, secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating puzzle: %v\n", err)
		os.Exit(1)
	}
	if config.Timing {
		fmt.Fprintf(os.Stderr, "Generate took: %v\n", time.Since(start))
	}

	writeJSON(puzzleExport(pz, 0, config.OutputFormat), config.OutputFile)
}

func cmdSolve(args []string) {
	config := parseConfig(args)
	params := mustLoadParams(args)

	pzFile := getArg(args, "--puzzle", "-p")
	if pzFile == "" {
		fmt.Fprintf(os.Stderr, "Error: --puzzle is required\n")
		os.Exit(1)
	}
	pz, err := loadPuzzle(pzFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading puzzle: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	solver := puzzle.Solver{Logger: newLogger(config)}
	if config.Verbose {
		solver.CheckInterval = 1 << 20
		solver.Progress = func(done, total uint64) {
			if total > 0 {
				fmt.Fprintf(os.Stderr, "\rsquarings: %d/%d (%.1f%%)", done, total, 100*float64(done)/float64(total))
			}
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		}
	}

	start := time.Now()
	secret, err := solver.Solve(ctx, params, pz)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error solving puzzle: %v\n", err)
		os.Exit(1)
	}
	if config.Timing {
		fmt.Fprintf(os.Stderr, "Solve took: %v\n", elapsed)
	}

	writeOutput([]byte(secret.String()), config.OutputFile)
}

func cmdEval(args []string) {
	config := parseConfig(args)
	params := mustLoadParams(args)

	list := getArg(args, "--puzzles", "")
	if list == "" {
		fmt.Fprintf(os.Stderr, "Error: --puzzles is required\n")
		os.Exit(1)
	}
	files := splitList(list)
	pzs := make([]*lhtlp.Puzzle, 0, len(files))
	for _, f := range files {
		pz, err := loadPuzzle(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading puzzle %s: %v\n", f, err)
			os.Exit(1)
		}
		pzs = append(pzs, pz)
	}

	var combined *lhtlp.Puzzle
	var err error
	if w := getArg(args, "--weights", ""); w != "" {
		weights, perr := parseWeights(w)
		if perr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", perr)
			os.Exit(1)
		}
		combined, err = puzzle.EvalLinear(params, pzs, weights)
	} else {
		combined, err = puzzle.Eval(params, pzs)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error combining puzzles: %v\n", err)
		os.Exit(1)
	}

	writeJSON(puzzleExport(combined, len(pzs), config.OutputFormat), config.OutputFile)
}

func cmdCalibrate(args []string) {
	config := parseConfig(args)
	params := mustLoadParams(args)
	samples := parseIntArg(args, "--samples", "-n", puzzle.DefaultCalibrationSamples)

	rate, err := puzzle.MeasureSquaringRate(context.Background(), params, samples)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error measuring squaring rate: %v\n", err)
		os.Exit(1)
	}

	export := CalibrationExport{
		ModulusBits:        params.Modulus.BitLen(),
		Samples:            samples,
		SquaringsPerSecond: rate,
	}
	if target := getArg(args, "--target", ""); target != "" {
		d, err := time.ParseDuration(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid --target: %v\n", err)
			os.Exit(1)
		}
		t, err := core.DifficultyFor(d, rate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		export.Target = d.String()
		export.Difficulty = t.String()
	}
	writeJSON(export, config.OutputFile)
}

func cmdInspect(args []string) {
	config := parseConfig(args)

	if f := getArg(args, "--params", ""); f != "" {
		params, err := loadParams(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading parameters: %v\n", err)
			os.Exit(1)
		}
		writeJSON(map[string]interface{}{
			"lambda":           params.Lambda,
			"modulus_bits":     params.Modulus.BitLen(),
			"modulus":          params.Modulus.String(),
			"generator":        params.Generator.String(),
			"time_locked_base": params.TimeLockedBase.String(),
			"difficulty":       params.Difficulty.String(),
			"fingerprint":      hex.EncodeToString(puzzle.Fingerprint(params)),
		}, config.OutputFile)
		return
	}

	if f := getArg(args, "--puzzle", "-p"); f != "" {
		pz, err := loadPuzzle(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading puzzle: %v\n", err)
			os.Exit(1)
		}
		writeJSON(map[string]interface{}{
			"u":           pz.U.String(),
			"v":           pz.V.String(),
			"fingerprint": hex.EncodeToString(pz.Binding),
		}, config.OutputFile)
		return
	}

	fmt.Fprintf(os.Stderr, "Error: --params or --puzzle is required\n")
	os.Exit(1)
}

func handleBenchmark(args []string) {
	config := parseConfig(args)
	iterations := parseIntArg(args, "--iterations", "-n", 3)
	if iterations < 1 {
		iterations = 1
	}
	difficulty := parseBigArg(args, "--difficulty", "-d", "100000")

	fmt.Printf("LHTLP Benchmark Results\n")
	fmt.Printf("=======================\n")
	fmt.Printf("Lambda: %d bits per prime\n", config.Lambda)
	fmt.Printf("Difficulty: %s squarings\n", difficulty)
	fmt.Printf("Iterations: %d\n\n", iterations)

	ctx := context.Background()
	cfg := group.DefaultConfig(config.Lambda, difficulty)
	cfg.Logger = newLogger(config)

	var setupTotal time.Duration
	var params *lhtlp.Params
	for i := 0; i < iterations; i++ {
		start := time.Now()
		var err error
		params, err = group.Setup(ctx, cfg)
		setupTotal += time.Since(start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Setup error: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("  Setup:    %v (avg)\n", setupTotal/time.Duration(iterations))

	var genTotal time.Duration
	pzs := make([]*lhtlp.Puzzle, iterations)
	for i := 0; i < iterations; i++ {
		start := time.Now()
		var err error
		pzs[i], err = puzzle.Generate(params, big.NewInt(int64(i)))
		genTotal += time.Since(start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Generate error: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("  Generate: %v (avg)\n", genTotal/time.Duration(iterations))

	start := time.Now()
	combined, err := puzzle.Eval(params, pzs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Eval error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  Eval:     %v (%d puzzles)\n", time.Since(start), iterations)

	start = time.Now()
	if _, err := puzzle.Solve(params, combined); err != nil {
		fmt.Fprintf(os.Stderr, "Solve error: %v\n", err)
		os.Exit(1)
	}
	solveTime := time.Since(start)
	fmt.Printf("  Solve:    %v\n", solveTime)
	if difficulty.IsInt64() && solveTime > 0 {
		fmt.Printf("  Rate:     %.0f squarings/s\n", float64(difficulty.Int64())/solveTime.Seconds())
	}

	fmt.Println()
	fmt.Println("Benchmark complete!")
}

// ============================================================================
// Helpers
// ============================================================================

func parseConfig(args []string) CLIConfig {
	config := CLIConfig{
		SecurityLevel: lhtlp.Level2048,
		OutputFormat:  FormatBase64,
	}

	level := getArg(args, "--level", "-l")
	switch level {
	case "128", "TLP-128":
		config.SecurityLevel = lhtlp.Level128
	case "2048", "TLP-2048":
		config.SecurityLevel = lhtlp.Level2048
	case "3072", "TLP-3072":
		config.SecurityLevel = lhtlp.Level3072
	case "":
		// No level specified, use default
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid security level '%s'. Must be one of: 128, 2048, 3072\n", level)
		os.Exit(1)
	}

	sp, err := core.GetParams(config.SecurityLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	config.Lambda = parseIntArg(args, "--lambda", "", sp.Lambda)
	if err := core.ValidateLambda(config.Lambda); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	format := getArg(args, "--format", "-f")
	switch format {
	case "hex":
		config.OutputFormat = FormatHex
	case "base64":
		config.OutputFormat = FormatBase64
	case "":
		// No format specified, use default
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid format '%s'. Must be one of: hex, base64\n", format)
		os.Exit(1)
	}

	config.OutputFile = getArg(args, "--output", "-o")
	config.Verbose = hasFlag(args, "--verbose", "-v")
	config.Timing = hasFlag(args, "--timing", "-t")

	return config
}

func getArg(args []string, long, short string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == long || (short != "" && args[i] == short) {
			return args[i+1]
		}
	}
	return ""
}

func hasFlag(args []string, long, short string) bool {
	for _, arg := range args {
		if arg == long || (short != "" && arg == short) {
			return true
		}
	}
	return false
}

func parseIntArg(args []string, long, short string, def int) int {
	s := getArg(args, long, short)
	if s == "" {
		return def
	}
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid %s '%s'\n", long, s)
		os.Exit(1)
	}
	return v
}

// parseBigArg returns nil when the flag is absent and def is empty.
func parseBigArg(args []string, long, short, def string) *big.Int {
	s := getArg(args, long, short)
	if s == "" {
		s = def
	}
	if s == "" {
		return nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: invalid %s '%s'\n", long, s)
		os.Exit(1)
	}
	return v
}

func parseWeights(s string) ([]*big.Int, error) {
	parts := splitList(s)
	out := make([]*big.Int, len(parts))
	for i, p := range parts {
		v, ok := new(big.Int).SetString(p, 10)
		if !ok {
			return nil, fmt.Errorf("invalid weight %q", p)
		}
		out[i] = v
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// newLogger writes debug records to stderr under --verbose and discards
// everything otherwise.
func newLogger(config CLIConfig) logging.Logger {
	if !config.Verbose {
		return logging.Nop()
	}
	return logging.New(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func puzzleExport(pz *lhtlp.Puzzle, combined int, format OutputFormat) PuzzleExport {
	return PuzzleExport{
		Fingerprint: hex.EncodeToString(pz.Binding),
		Combined:    combined,
		Puzzle:      encodeBytes(puzzle.SerializePuzzle(pz), format),
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
}

func encodeBytes(data []byte, format OutputFormat) string {
	switch format {
	case FormatHex:
		return hex.EncodeToString(data)
	default:
		return base64.StdEncoding.EncodeToString(data)
	}
}

func decodeString(s string) ([]byte, error) {
	// Hex first: every hex string is also valid base64.
	if data, err := hex.DecodeString(s); err == nil {
		return data, nil
	}
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return nil, errors.New("unable to decode string")
}

func mustLoadParams(args []string) *lhtlp.Params {
	f := getArg(args, "--params", "")
	if f == "" {
		fmt.Fprintf(os.Stderr, "Error: --params is required\n")
		os.Exit(1)
	}
	params, err := loadParams(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading parameters: %v\n", err)
		os.Exit(1)
	}
	return params
}

func loadParams(filename string) (*lhtlp.Params, error) {
	data, err := loadBlobFromFile(filename, "params")
	if err != nil {
		return nil, err
	}
	return puzzle.DeserializeParams(data)
}

func loadPuzzle(filename string) (*lhtlp.Puzzle, error) {
	data, err := loadBlobFromFile(filename, "puzzle")
	if err != nil {
		return nil, err
	}
	return puzzle.DeserializePuzzle(data)
}

// loadBlobFromFile reads a JSON export and decodes the named field. A file
// holding only the encoded blob is accepted too.
func loadBlobFromFile(filename, field string) ([]byte, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > MaxInputFileSize {
		return nil, fmt.Errorf("input file too large: %d > %d bytes", info.Size(), MaxInputFileSize)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var jsonData map[string]interface{}
	if err := json.Unmarshal(data, &jsonData); err == nil {
		val, ok := jsonData[field].(string)
		if !ok {
			return nil, fmt.Errorf("missing %q field", field)
		}
		return decodeString(val)
	}

	return decodeString(strings.TrimSpace(string(data)))
}

func writeJSON(v interface{}, filename string) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}
	writeOutput(output, filename)
}

func writeOutput(data []byte, filename string) {
	if filename == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}
}
