package schema

// Sample is one instrument reading. Time is in seconds, Voltage in volts and
// Current in amperes. Tag carries an instrument step marker when the reader has one.
type Sample struct {
	Time    float64 `json:"time"`
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
	Tag     Phase   `json:"tag,omitempty"`
}

// PhaseSegment is the integrated summary of one contiguous phase.
// Charge and Energy keep the sign of the measured current.
type PhaseSegment struct {
	Phase          Phase
	Start          Sample
	End            Sample
	Charge         float64 // A·s
	Energy         float64 // V·A·s
	Duration       float64 // s
	AverageVoltage float64 // time-weighted, V
	MinVoltage     float64
	MaxVoltage     float64
	SampleCount    int
	Truncated      bool // closed by end of stream instead of a confirmed transition
}

// CycleRecord holds the metrics of one charge/discharge cycle.
// Capacities are in A·s and energies in joules; both are reported as magnitudes.
type CycleRecord struct {
	Index     int     `json:"index"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`

	ChargeCapacity      Metric `json:"charge_capacity"`
	DischargeCapacity   Metric `json:"discharge_capacity"`
	CoulombicEfficiency Metric `json:"coulombic_efficiency"`

	EnergyCharge     Metric `json:"energy_charge"`
	EnergyDischarge  Metric `json:"energy_discharge"`
	EnergyEfficiency Metric `json:"energy_efficiency"`

	AvgVoltageCharge    Metric `json:"avg_voltage_charge"`
	AvgVoltageDischarge Metric `json:"avg_voltage_discharge"`

	DurationCharge    Metric  `json:"duration_charge"`
	DurationDischarge Metric  `json:"duration_discharge"`
	RestDuration      float64 `json:"rest_duration"`

	// Specific metrics, defined only when an active mass is configured.
	SpecificChargeCapacity    Metric `json:"specific_charge_capacity"`    // mAh/g
	SpecificDischargeCapacity Metric `json:"specific_discharge_capacity"` // mAh/g
	EnergyDensity             Metric `json:"energy_density"`              // Wh/kg
	PowerDensity              Metric `json:"power_density"`               // W/kg

	Partial bool `json:"partial"`
}

// RunStats counts what the engine did with its input.
type RunStats struct {
	SamplesRead       int64 `json:"samples_read"`
	SamplesSkipped    int64 `json:"samples_skipped"`
	SegmentsDiscarded int64 `json:"segments_discarded"`
	CyclesEmitted     int64 `json:"cycles_emitted"`
	PartialCycles     int64 `json:"partial_cycles"`
}

// RunSummary aggregates the records of a run.
type RunSummary struct {
	Cycles                  int     `json:"cycles"`
	FullCycles              int     `json:"full_cycles"`
	PartialCycles           int     `json:"partial_cycles"`
	MeanCoulombicEfficiency Metric  `json:"mean_coulombic_efficiency"`
	StdCoulombicEfficiency  Metric  `json:"std_coulombic_efficiency"`
	MeanEnergyEfficiency    Metric  `json:"mean_energy_efficiency"`
	FirstDischargeCapacity  Metric  `json:"first_discharge_capacity"`
	LastDischargeCapacity   Metric  `json:"last_discharge_capacity"`
	CapacityRetention       Metric  `json:"capacity_retention"`
	TotalDuration           float64 `json:"total_duration"`
}
