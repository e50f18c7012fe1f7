package schema

// AnalysisOutput is everything one analyze run produces.
type AnalysisOutput struct {
	SourcePath string        `json:"source"`
	RunID      int64         `json:"run_id,omitempty"`
	Records    []CycleRecord `json:"cycles"`
	Stats      RunStats      `json:"stats"`
	Summary    RunSummary    `json:"summary"`
}
