package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/galvano/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *RunStoreImpl {
	t.Helper()
	s, err := NewRunStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s.(*RunStoreImpl)
}

func sampleRecords() []schema.CycleRecord {
	return []schema.CycleRecord{
		{
			Index: 0, StartTime: 0, EndTime: 200,
			ChargeCapacity: schema.Defined(99), DischargeCapacity: schema.Defined(98),
			CoulombicEfficiency: schema.Defined(98.0 / 99.0),
			DurationCharge:      schema.Defined(100), DurationDischarge: schema.Defined(100),
			RestDuration: 12.5,
		},
		{
			Index: 1, StartTime: 200, EndTime: 260,
			ChargeCapacity: schema.Defined(40),
			DurationCharge: schema.Defined(60),
			Partial:        true,
		},
	}
}

func TestRunStore_NoneBackend(t *testing.T) {
	s, err := NewRunStore(schema.NoneBackend, "")
	require.NoError(t, err)

	runID, err := s.BeginRun("/tmp/trace.csv", time.Now(), map[string]any{"dwell": 3})
	assert.NoError(t, err)
	assert.Zero(t, runID)
	assert.NoError(t, s.RecordCycle(1, schema.CycleRecord{}))
	assert.NoError(t, s.EndRun(1, time.Now(), schema.RunStats{}))

	status, err := s.GetStatus()
	assert.NoError(t, err)
	assert.False(t, status.Connected)

	runs, err := s.GetAllRuns()
	assert.NoError(t, err)
	assert.Nil(t, runs)
	assert.NoError(t, s.Clear())
	assert.NoError(t, s.Close())
}

func TestRunStore_SQLiteRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)

	start := time.Now().Add(-2 * time.Second)
	runID, err := s.BeginRun("/data/cell01.csv", start, map[string]any{"noise_threshold": 0.001, "dwell": 3})
	require.NoError(t, err)
	assert.Greater(t, runID, int64(0))

	for _, r := range sampleRecords() {
		require.NoError(t, s.RecordCycle(runID, r))
	}
	stats := schema.RunStats{SamplesRead: 260, CyclesEmitted: 2, PartialCycles: 1}
	require.NoError(t, s.EndRun(runID, start.Add(1500*time.Millisecond), stats))

	runs, err := s.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, runID, run.RunID)
	assert.Equal(t, "/data/cell01.csv", run.SourcePath)
	assert.WithinDuration(t, start, run.StartTime, time.Microsecond)
	require.NotNil(t, run.EndTime)
	require.NotNil(t, run.RunDurationMs)
	assert.Equal(t, int32(1500), *run.RunDurationMs)
	assert.Equal(t, int64(260), run.TotalSamples)
	assert.Equal(t, int32(2), run.TotalCycles)
	assert.Equal(t, int32(1), run.PartialCycles)
	require.NotNil(t, run.ConfigParams)
	var params map[string]any
	require.NoError(t, json.Unmarshal([]byte(*run.ConfigParams), &params))
	assert.InDelta(t, 3, params["dwell"], 0)

	cycles, err := s.GetAllCycles()
	require.NoError(t, err)
	require.Len(t, cycles, 2)
	for i, want := range sampleRecords() {
		assert.Equal(t, runID, cycles[i].RunID)
		assert.Equal(t, want, cycles[i].CycleRecord)
	}
	assert.False(t, cycles[1].CoulombicEfficiency.Valid)
}

func TestRunStore_Status(t *testing.T) {
	s := newSQLiteStore(t)

	status, err := s.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "sqlite", status.Backend)
	assert.Zero(t, status.TotalRuns)

	first := time.Now().Add(-time.Hour)
	_, err = s.BeginRun("a.csv", first, nil)
	require.NoError(t, err)
	lastID, err := s.BeginRun("b.csv", time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, s.RecordCycle(lastID, sampleRecords()[0]))

	status, err = s.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalRuns)
	assert.Equal(t, 1, status.TotalCycles)
	assert.Equal(t, lastID, status.LastRunID)
	assert.WithinDuration(t, first, status.OldestRunTime, time.Microsecond)
	assert.Equal(t, int64(1), status.TableSizes[CyclesTable])

	var buf bytes.Buffer
	PrintStatus(&buf, status)
	assert.Contains(t, buf.String(), "Total Runs: 2")
	assert.Contains(t, buf.String(), "galvano_cycles: 1 rows")
}

func TestRunStore_Clear(t *testing.T) {
	s := newSQLiteStore(t)
	runID, err := s.BeginRun("a.csv", time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, s.RecordCycle(runID, sampleRecords()[0]))

	require.NoError(t, s.Clear())

	status, err := s.GetStatus()
	require.NoError(t, err)
	assert.Zero(t, status.TotalRuns)
	assert.Zero(t, status.TotalCycles)
}

func TestRunStore_DuplicateCycleRejected(t *testing.T) {
	s := newSQLiteStore(t)
	runID, err := s.BeginRun("a.csv", time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, s.RecordCycle(runID, sampleRecords()[0]))
	assert.Error(t, s.RecordCycle(runID, sampleRecords()[0]))
}

func TestRunStore_UnsupportedBackend(t *testing.T) {
	_, err := NewRunStore(schema.DatabaseBackend("oracle"), "")
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	s := newSQLiteStore(t)
	runID, err := s.BeginRun("a.csv", time.Now(), map[string]any{"rest_mode": "exclude"})
	require.NoError(t, err)
	for _, r := range sampleRecords() {
		require.NoError(t, s.RecordCycle(runID, r))
	}
	require.NoError(t, s.EndRun(runID, time.Now(), schema.RunStats{CyclesEmitted: 2}))

	base := filepath.Join(t.TempDir(), "history")
	var buf bytes.Buffer
	require.NoError(t, Export(s, base, &buf))

	for _, suffix := range []string{".runs.parquet", ".cycles.parquet"} {
		info, err := os.Stat(base + suffix)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
	assert.Contains(t, buf.String(), "Exported 2 cycle records")
}

func TestExport_Errors(t *testing.T) {
	assert.ErrorContains(t, Export(&MockRunStore{}, "", &bytes.Buffer{}), "--output-file")

	empty := &MockRunStore{}
	empty.On("GetStatus").Return(schema.StoreStatus{Backend: "sqlite", Connected: true}, nil)
	assert.ErrorContains(t, Export(empty, "out", &bytes.Buffer{}), "no run data")

	broken := &MockRunStore{}
	broken.On("GetStatus").Return(schema.StoreStatus{TotalRuns: 1}, nil)
	broken.On("GetAllRuns").Return(nil, errors.New("boom"))
	assert.ErrorContains(t, Export(broken, "out", &bytes.Buffer{}), "boom")
	broken.AssertExpectations(t)
}

func TestMockRunStore(t *testing.T) {
	m := &MockRunStore{}
	m.On("BeginRun", "a.csv", mock.Anything, mock.Anything).Return(int64(7), nil)
	m.On("Close").Return(nil)

	id, err := m.BeginRun("a.csv", time.Now(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, m.Close())
	m.AssertExpectations(t)
}
