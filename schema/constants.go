package schema

// Custom string types for type safety.
type (
	// Phase represents the electrochemical state of a segment.
	Phase string

	// Polarity represents the sign convention that maps current to charge or discharge.
	Polarity string

	// MalformedPolicy represents what the engine does with a sample it cannot use.
	MalformedPolicy string

	// DwellUnit represents how the dwell requirement is measured.
	DwellUnit string

	// RestMode represents how rest segments contribute to a cycle.
	RestMode string

	// ClassifierKind represents the phase classification strategy.
	ClassifierKind string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for the run store.
	DatabaseBackend string
)

// All phases. PhaseUnknown is the zero value and never confirmed.
const (
	PhaseUnknown   Phase = ""
	PhaseCharge    Phase = "charge"
	PhaseDischarge Phase = "discharge"
	PhaseRest      Phase = "rest"
)

// All polarity conventions supported.
const (
	ChargePositive Polarity = "charge_positive" // default
	ChargeNegative Polarity = "charge_negative"
)

// All malformed-sample policies supported.
const (
	AbortPolicy MalformedPolicy = "abort" // default for the CLI
	SkipPolicy  MalformedPolicy = "skip"
)

// All dwell units supported.
const (
	DwellSamples DwellUnit = "samples" // default
	DwellSeconds DwellUnit = "seconds"
)

// All rest modes supported.
const (
	RestExclude RestMode = "exclude" // default
	RestFold    RestMode = "fold"
)

// All classifier strategies supported.
const (
	CurrentClassifier ClassifierKind = "current" // default
	TaggedClassifier  ClassifierKind = "tagged"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All run store backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// IsActive reports whether the phase moves charge through the cell.
func (p Phase) IsActive() bool {
	return p == PhaseCharge || p == PhaseDischarge
}

// ValidPhases lists all phases that can be confirmed or tagged.
var ValidPhases = map[Phase]struct{}{
	PhaseCharge:    {},
	PhaseDischarge: {},
	PhaseRest:      {},
}

// ValidPolarities lists all valid polarity conventions.
var ValidPolarities = map[Polarity]struct{}{
	ChargePositive: {},
	ChargeNegative: {},
}

// ValidMalformedPolicies lists all valid malformed-sample policies.
var ValidMalformedPolicies = map[MalformedPolicy]struct{}{
	AbortPolicy: {},
	SkipPolicy:  {},
}

// ValidDwellUnits lists all valid dwell units.
var ValidDwellUnits = map[DwellUnit]struct{}{
	DwellSamples: {},
	DwellSeconds: {},
}

// ValidRestModes lists all valid rest modes.
var ValidRestModes = map[RestMode]struct{}{
	RestExclude: {},
	RestFold:    {},
}

// ValidClassifiers lists all valid classifier strategies.
var ValidClassifiers = map[ClassifierKind]struct{}{
	CurrentClassifier: {},
	TaggedClassifier:  {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid run store backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ParsePhase maps an instrument step label onto a phase.
// Labels are matched case-insensitively against common instrument spellings, so
// "C", "CC", "Charge", "D", "DChg" and "Rest" all resolve.
func ParsePhase(label string) (Phase, bool) {
	switch normalizeLabel(label) {
	case "charge", "chg", "c", "cc", "cccv", "cc_chg", "cccv_chg":
		return PhaseCharge, true
	case "discharge", "dchg", "dis", "d", "cc_dchg":
		return PhaseDischarge, true
	case "rest", "r", "ocv", "idle", "pause":
		return PhaseRest, true
	}
	return PhaseUnknown, false
}
