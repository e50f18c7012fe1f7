package schema

// EnrichedCycleRecord adds presentation data to a CycleRecord.
type EnrichedCycleRecord struct {
	Label string `json:"label"`
	CycleRecord
}

// Coulombic efficiency thresholds for labels.
const (
	StableThreshold = 0.99
	FairThreshold   = 0.95
	FadingThreshold = 0.90
)

// GetPlainLabel returns a plain text label describing the health of a cycle
// based on its coulombic efficiency.
func GetPlainLabel(r CycleRecord) string {
	if r.Partial {
		return "Partial"
	}
	ce, ok := r.CoulombicEfficiency.Get()
	switch {
	case !ok:
		return "n/a"
	case ce >= StableThreshold:
		return "Stable"
	case ce >= FairThreshold:
		return "Fair"
	case ce >= FadingThreshold:
		return "Fading"
	default:
		return "Degraded"
	}
}

// EnrichCycles adds a label to a list of cycle records.
func EnrichCycles(records []CycleRecord) []EnrichedCycleRecord {
	output := make([]EnrichedCycleRecord, len(records))
	for i, r := range records {
		output[i] = EnrichedCycleRecord{
			Label:       GetPlainLabel(r),
			CycleRecord: r,
		}
	}
	return output
}
