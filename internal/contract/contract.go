// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"time"

	"github.com/huangsam/galvano/schema"
)

// RunStore defines the interface for tracking analysis runs and storing cycle records.
// This allows the store to be mocked for testing.
type RunStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(sourcePath string, startTime time.Time, configParams map[string]any) (int64, error)

	// RecordCycle stores one emitted cycle record for a run
	RecordCycle(runID int64, record schema.CycleRecord) error

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, stats schema.RunStats) error

	// GetStatus returns status information about the store
	GetStatus() (schema.StoreStatus, error)

	// GetAllRuns returns every stored run
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllCycles returns every stored cycle row
	GetAllCycles() ([]schema.CycleRow, error)

	// Clear removes all runs and cycles
	Clear() error

	// Close closes the underlying connection
	Close() error
}

// OutputWriter renders the result of an analyze run in the configured format.
type OutputWriter interface {
	WriteCycles(output *schema.AnalysisOutput, cfg *Config, duration time.Duration) error
}
