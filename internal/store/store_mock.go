package store

import (
	"time"

	"github.com/huangsam/galvano/internal/contract"
	"github.com/huangsam/galvano/schema"
	"github.com/stretchr/testify/mock"
)

// MockRunStore is a mock implementation of RunStore for testing.
type MockRunStore struct {
	mock.Mock
}

var _ contract.RunStore = &MockRunStore{} // Compile-time check

// BeginRun implements the RunStore interface.
func (m *MockRunStore) BeginRun(sourcePath string, startTime time.Time, configParams map[string]any) (int64, error) {
	args := m.Called(sourcePath, startTime, configParams)
	return args.Get(0).(int64), args.Error(1)
}

// RecordCycle implements the RunStore interface.
func (m *MockRunStore) RecordCycle(runID int64, record schema.CycleRecord) error {
	args := m.Called(runID, record)
	return args.Error(0)
}

// EndRun implements the RunStore interface.
func (m *MockRunStore) EndRun(runID int64, endTime time.Time, stats schema.RunStats) error {
	args := m.Called(runID, endTime, stats)
	return args.Error(0)
}

// GetStatus implements the RunStore interface.
func (m *MockRunStore) GetStatus() (schema.StoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// GetAllRuns implements the RunStore interface.
func (m *MockRunStore) GetAllRuns() ([]schema.RunRecord, error) {
	args := m.Called()
	runs, _ := args.Get(0).([]schema.RunRecord)
	return runs, args.Error(1)
}

// GetAllCycles implements the RunStore interface.
func (m *MockRunStore) GetAllCycles() ([]schema.CycleRow, error) {
	args := m.Called()
	cycles, _ := args.Get(0).([]schema.CycleRow)
	return cycles, args.Error(1)
}

// Clear implements the RunStore interface.
func (m *MockRunStore) Clear() error {
	args := m.Called()
	return args.Error(0)
}

// Close implements the RunStore interface.
func (m *MockRunStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
