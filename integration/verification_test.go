//go:build integration

// Package integration contains integration tests for galvano.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags integration ./integration
package integration

import (
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	verifyCycles  = 6
	verifyHalf    = 300.0 // s
	verifyCurrent = 0.02  // A
	verifyFade    = 0.01
)

// TestCapacityVerification checks integrated capacities against the closed form of the synthetic wave.
func TestCapacityVerification(t *testing.T) {
	dir := t.TempDir()
	trace := simulateTrace(t, dir, "trace.csv",
		"--cycles", "6", "--half-period", "300", "--rest-period", "30",
		"--current", "0.02", "--fade", "0.01")

	doc := analyzeJSON(t, nil, trace, "--summary")
	require.Len(t, doc.Cycles, verifyCycles)
	verifyCapacities(t, doc)

	require.NotNil(t, doc.Summary)
	require.NotNil(t, doc.Summary.CapacityRetention)
	assert.InDelta(t, math.Pow(1-verifyFade, verifyCycles-1), *doc.Summary.CapacityRetention, 0.02)
}

// TestFormatParity checks that CSV and Parquet traces of the same wave give the same cycles.
func TestFormatParity(t *testing.T) {
	dir := t.TempDir()
	args := []string{"--cycles", "6", "--half-period", "300", "--current", "0.02", "--fade", "0.01", "--noise", "0.0005"}
	csvTrace := simulateTrace(t, dir, "trace.csv", args...)
	parquetTrace := simulateTrace(t, dir, "trace.parquet", args...)

	fromCSV := analyzeJSON(t, nil, csvTrace, "--noise-threshold", "0.002")
	fromParquet := analyzeJSON(t, nil, parquetTrace, "--noise-threshold", "0.002", "--workers", "3")
	require.Len(t, fromParquet.Cycles, len(fromCSV.Cycles))
	for i := range fromCSV.Cycles {
		a, b := fromCSV.Cycles[i], fromParquet.Cycles[i]
		assert.Equal(t, a.Index, b.Index)
		assert.Equal(t, a.Partial, b.Partial)
		require.NotNil(t, a.ChargeCapacity)
		require.NotNil(t, b.ChargeCapacity)
		assert.InDelta(t, *a.ChargeCapacity, *b.ChargeCapacity, 1e-6)
	}
	assert.Equal(t, filepath.Base(csvTrace), filepath.Base(fromCSV.Source))
}

// verifyCapacities compares each cycle with the wave that generated it.
func verifyCapacities(t *testing.T, doc analysisDoc) {
	// dwell confirmation can shift each edge by a few steps
	tolerance := 5 * verifyCurrent
	for k, c := range doc.Cycles {
		t.Run(fmt.Sprintf("cycle_%d", k), func(t *testing.T) {
			assert.Equal(t, k, c.Index)
			assert.False(t, c.Partial)
			require.NotNil(t, c.ChargeCapacity)
			require.NotNil(t, c.DischargeCapacity)
			require.NotNil(t, c.CoulombicEfficiency)

			want := verifyCurrent * verifyHalf
			assert.InDelta(t, want, *c.ChargeCapacity, tolerance)
			assert.InDelta(t, want*math.Pow(1-verifyFade, float64(k)), *c.DischargeCapacity, tolerance)
			assert.InDelta(t, math.Pow(1-verifyFade, float64(k)), *c.CoulombicEfficiency, 0.02)
		})
	}
}
