// Package main provides a performance benchmarking tool for the galvano CLI.
// It generates synthetic traces of increasing length, then measures analyze
// across worker counts and run history backends, running each test multiple times,
// treating the first successful run as cold and averaging the rest as warm,
// generating CSV output for performance analysis and documentation.
//
// Prerequisites:
// - galvano binary installed and available in PATH
//
// Usage: go run benchmark/main.go [trace-dir]
//
//	trace-dir: Directory where the synthetic traces are written
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (untracked average, cold run and average of warm tracked runs).
type BenchmarkResult struct {
	Trace       string
	Workers     int
	UntrackTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	TraceDir     string
	Timeout      time.Duration
	Workers      []int
	UntrackRuns  int
	TrackedRuns  int
	TraceCycles  map[string]int
	TraceOrder   []string
	HalfPeriod   float64
	SamplingStep float64
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [trace-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		TraceDir:    os.Args[1],
		Timeout:     5 * time.Minute,
		Workers:     []int{1, 4, 14},
		UntrackRuns: 3,
		TrackedRuns: 4,
		TraceCycles: map[string]int{
			"small":  10,
			"medium": 200,
			"large":  2000,
		},
		TraceOrder:   []string{"small", "medium", "large"},
		HalfPeriod:   600,
		SamplingStep: 1,
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	if err := generateTraces(config); err != nil {
		fmt.Printf("Failed to generate traces: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the galvano binary exists and the trace directory is usable
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("galvano"); err != nil {
		return fmt.Errorf("galvano binary not found in PATH")
	}
	return os.MkdirAll(config.TraceDir, 0o755)
}

// generateTraces writes one Parquet trace per size unless it already exists
func generateTraces(config BenchmarkConfig) error {
	for _, name := range config.TraceOrder {
		path := tracePath(config, name)
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("Reusing %s\n", path)
			continue
		}
		fmt.Printf("Generating %s (%d cycles)\n", path, config.TraceCycles[name])
		cmd := exec.Command("galvano", "simulate",
			"--cycles", strconv.Itoa(config.TraceCycles[name]),
			"--half-period", strconv.FormatFloat(config.HalfPeriod, 'f', -1, 64),
			"--step", strconv.FormatFloat(config.SamplingStep, 'f', -1, 64),
			"--fade", "0.0005",
			"--noise", "0.0002",
			"--output-file", path)
		if output, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("simulate %s: %w\nOutput: %s", name, err, string(output))
		}
	}
	return nil
}

func tracePath(config BenchmarkConfig, name string) string {
	return filepath.Join(config.TraceDir, name+".parquet")
}

// runBenchmarks executes all benchmark tests across configured traces and worker counts
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d traces, %v timeout, workers %v, untracked: %d runs, tracked: %d runs\n",
		len(config.TraceOrder), config.Timeout, config.Workers, config.UntrackRuns, config.TrackedRuns)

	for _, name := range config.TraceOrder {
		fmt.Printf("Benchmarking %s\n", name)
		for _, workers := range config.Workers {
			results = append(results, runBenchmarkSuite(config, name, workers))
		}
	}

	return results
}

// runBenchmarkSuite runs both untracked and tracked benchmarks for a trace
func runBenchmarkSuite(config BenchmarkConfig, name string, workers int) BenchmarkResult {
	fmt.Printf("Running analyze on %s with %d workers\n", name, workers)
	dbPath := filepath.Join(config.TraceDir, "benchmark_runs.db")
	_ = os.Remove(dbPath)

	// Helper to run a benchmark phase
	runPhase := func(backend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, name, workers, backend, dbPath, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	// Phase 1: no run history
	_, untrackedAvg := runPhase("none", config.UntrackRuns, "Untracked")

	// Phase 2: SQLite run history
	coldTime, warmAvg := runPhase("sqlite", config.TrackedRuns, "Tracked")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  Untracked average: %s, Cold time: %s, Warm average: %s\n", untrackedAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Trace:       name,
		Workers:     workers,
		UntrackTime: untrackedAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes galvano analyze multiple times and returns the cold time and warm times
func runBenchmark(config BenchmarkConfig, name string, workers int, backend, dbPath string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{
		"analyze", tracePath(config, name),
		"--workers", strconv.Itoa(workers),
		"--runs-backend", backend,
		"--width", "80",
	}
	if backend == "sqlite" {
		args = append(args, "--runs-db-connect", dbPath)
	}

	var times []float64
	for range numRuns {
		start := time.Now()

		cmd := exec.Command("galvano", args...)

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
			<-done
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Analysis completed in") &&
		strings.Contains(outputStr, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/galvano_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"trace", "workers", "untracked_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		record := []string{result.Trace, strconv.Itoa(result.Workers), result.UntrackTime, result.ColdTime, result.WarmTime}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %-8s %2d workers: Untracked: %s, Cold: %s, Warm: %s\n",
			result.Trace, result.Workers, result.UntrackTime, result.ColdTime, result.WarmTime)
	}
	fmt.Printf("Benchmark script completed successfully\n")
}
