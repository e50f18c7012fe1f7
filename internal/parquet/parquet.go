// Package parquet provides row types and helpers for moving galvano data in and
// out of Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/galvano/schema"
	"github.com/parquet-go/parquet-go"
)

// Run is one stored analysis run. It maps to the galvano_runs table.
type Run struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// SourcePath is the absolute path of the analyzed trace
	SourcePath string `parquet:"source_path,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the wall time of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	TotalSamples  int64 `parquet:"total_samples,snappy"`
	TotalCycles   int32 `parquet:"total_cycles,snappy"`
	PartialCycles int32 `parquet:"partial_cycles,snappy"`

	// ConfigParams contains the JSON-encoded engine configuration (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// Cycle is one cycle record of a run. Undefined metrics are stored as nulls.
// It maps to the galvano_cycles table.
type Cycle struct {
	RunID      int64   `parquet:"run_id,snappy"`
	CycleIndex int32   `parquet:"cycle_index,snappy"`
	StartTime  float64 `parquet:"start_time,snappy"`
	EndTime    float64 `parquet:"end_time,snappy"`

	ChargeCapacity      *float64 `parquet:"charge_capacity,optional,snappy"`
	DischargeCapacity   *float64 `parquet:"discharge_capacity,optional,snappy"`
	CoulombicEfficiency *float64 `parquet:"coulombic_efficiency,optional,snappy"`
	EnergyCharge        *float64 `parquet:"energy_charge,optional,snappy"`
	EnergyDischarge     *float64 `parquet:"energy_discharge,optional,snappy"`
	EnergyEfficiency    *float64 `parquet:"energy_efficiency,optional,snappy"`
	AvgVoltageCharge    *float64 `parquet:"avg_voltage_charge,optional,snappy"`
	AvgVoltageDischarge *float64 `parquet:"avg_voltage_discharge,optional,snappy"`
	DurationCharge      *float64 `parquet:"duration_charge,optional,snappy"`
	DurationDischarge   *float64 `parquet:"duration_discharge,optional,snappy"`
	RestDuration        float64  `parquet:"rest_duration,snappy"`

	SpecificChargeCapacity    *float64 `parquet:"specific_charge_capacity,optional,snappy"`
	SpecificDischargeCapacity *float64 `parquet:"specific_discharge_capacity,optional,snappy"`
	EnergyDensity             *float64 `parquet:"energy_density,optional,snappy"`
	PowerDensity              *float64 `parquet:"power_density,optional,snappy"`

	Partial bool `parquet:"partial,snappy"`
}

// Sample is one instrument reading in SI units. Phase holds an optional step label.
type Sample struct {
	Time    float64 `parquet:"time,snappy"`
	Voltage float64 `parquet:"voltage,snappy"`
	Current float64 `parquet:"current,snappy"`
	Phase   *string `parquet:"phase,optional,snappy"`
}

// writeRows writes rows to a new Parquet file whose schema is inferred from T.
func writeRows[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteRunsParquet writes runs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteCyclesParquet writes cycle rows to a Parquet file.
func WriteCyclesParquet(data []Cycle, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteSamplesParquet writes samples to a Parquet file.
func WriteSamplesParquet(data []Sample, outputPath string) error {
	return writeRows(data, outputPath)
}

// ConvertRunRecords converts stored runs for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:         record.RunID,
			SourcePath:    record.SourcePath,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			TotalSamples:  record.TotalSamples,
			TotalCycles:   record.TotalCycles,
			PartialCycles: record.PartialCycles,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertCycleRows converts stored cycle rows for Parquet export.
func ConvertCycleRows(rows []schema.CycleRow) []Cycle {
	result := make([]Cycle, len(rows))
	for i, row := range rows {
		result[i] = FromCycleRecord(row.RunID, row.CycleRecord)
	}
	return result
}

// FromCycleRecord flattens a cycle record into a Parquet row.
func FromCycleRecord(runID int64, r schema.CycleRecord) Cycle {
	return Cycle{
		RunID:                     runID,
		CycleIndex:                int32(r.Index),
		StartTime:                 r.StartTime,
		EndTime:                   r.EndTime,
		ChargeCapacity:            r.ChargeCapacity.Ptr(),
		DischargeCapacity:         r.DischargeCapacity.Ptr(),
		CoulombicEfficiency:       r.CoulombicEfficiency.Ptr(),
		EnergyCharge:              r.EnergyCharge.Ptr(),
		EnergyDischarge:           r.EnergyDischarge.Ptr(),
		EnergyEfficiency:          r.EnergyEfficiency.Ptr(),
		AvgVoltageCharge:          r.AvgVoltageCharge.Ptr(),
		AvgVoltageDischarge:       r.AvgVoltageDischarge.Ptr(),
		DurationCharge:            r.DurationCharge.Ptr(),
		DurationDischarge:         r.DurationDischarge.Ptr(),
		RestDuration:              r.RestDuration,
		SpecificChargeCapacity:    r.SpecificChargeCapacity.Ptr(),
		SpecificDischargeCapacity: r.SpecificDischargeCapacity.Ptr(),
		EnergyDensity:             r.EnergyDensity.Ptr(),
		PowerDensity:              r.PowerDensity.Ptr(),
		Partial:                   r.Partial,
	}
}

// ConvertCycleRecords flattens the records of a single run.
func ConvertCycleRecords(runID int64, records []schema.CycleRecord) []Cycle {
	result := make([]Cycle, len(records))
	for i, r := range records {
		result[i] = FromCycleRecord(runID, r)
	}
	return result
}

// FromSample converts an engine sample into a Parquet row.
func FromSample(s schema.Sample) Sample {
	row := Sample{Time: s.Time, Voltage: s.Voltage, Current: s.Current}
	if s.Tag != schema.PhaseUnknown {
		tag := string(s.Tag)
		row.Phase = &tag
	}
	return row
}

// ToSample converts a Parquet row into an engine sample. Unrecognized phase
// labels leave the tag unknown.
func (s Sample) ToSample() schema.Sample {
	out := schema.Sample{Time: s.Time, Voltage: s.Voltage, Current: s.Current}
	if s.Phase != nil {
		if p, ok := schema.ParsePhase(*s.Phase); ok {
			out.Tag = p
		}
	}
	return out
}

const sampleBatch = 1024

// SampleReader streams samples from a Parquet file in fixed-size batches.
type SampleReader struct {
	file   *os.File
	reader *parquet.GenericReader[Sample]
	buf    []Sample
	pos, n int
	eof    bool
}

// OpenSampleReader opens a Parquet file whose columns follow the Sample row layout.
func OpenSampleReader(path string) (*SampleReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	return &SampleReader{
		file:   file,
		reader: parquet.NewGenericReader[Sample](file),
		buf:    make([]Sample, sampleBatch),
	}, nil
}

// NumRows returns the number of rows in the file.
func (r *SampleReader) NumRows() int64 {
	return r.reader.NumRows()
}

// Next returns the next sample, or io.EOF after the last row.
func (r *SampleReader) Next(ctx context.Context) (schema.Sample, error) {
	if err := ctx.Err(); err != nil {
		return schema.Sample{}, err
	}
	for r.pos >= r.n {
		if r.eof {
			return schema.Sample{}, io.EOF
		}
		n, err := r.reader.Read(r.buf)
		r.pos, r.n = 0, n
		if errors.Is(err, io.EOF) {
			r.eof = true
		} else if err != nil {
			return schema.Sample{}, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	row := r.buf[r.pos]
	r.pos++
	return row.ToSample(), nil
}

// Close releases the reader and the file.
func (r *SampleReader) Close() error {
	return errors.Join(r.reader.Close(), r.file.Close())
}
