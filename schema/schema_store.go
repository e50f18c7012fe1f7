package schema

import "time"

// RunRecord represents a row from the galvano_runs table.
type RunRecord struct {
	RunID         int64
	SourcePath    string
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	TotalSamples  int64
	TotalCycles   int32
	PartialCycles int32
	ConfigParams  *string
}

// CycleRow represents a row from the galvano_cycles table.
type CycleRow struct {
	RunID int64
	CycleRecord
}
