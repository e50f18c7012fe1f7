package metrics

import (
	"github.com/huangsam/galvano/schema"
	"gonum.org/v1/gonum/stat"
)

// Summarizer collects per-cycle efficiencies for a run summary.
// It keeps the efficiencies of full cycles for the statistics and never the samples.
type Summarizer struct {
	cycles   int
	partial  int
	ce       []float64
	ee       []float64
	duration float64
	firstCap schema.Metric
	lastCap  schema.Metric
}

// Add records one emitted cycle.
func (s *Summarizer) Add(r schema.CycleRecord) {
	s.cycles++
	s.duration += r.EndTime - r.StartTime
	if r.Partial {
		s.partial++
		return
	}
	if v, ok := r.CoulombicEfficiency.Get(); ok {
		s.ce = append(s.ce, v)
	}
	if v, ok := r.EnergyEfficiency.Get(); ok {
		s.ee = append(s.ee, v)
	}
	if r.DischargeCapacity.Valid {
		if !s.firstCap.Valid {
			s.firstCap = r.DischargeCapacity
		}
		s.lastCap = r.DischargeCapacity
	}
}

// Summary computes the aggregate view of everything added so far.
func (s *Summarizer) Summary() schema.RunSummary {
	sum := schema.RunSummary{
		Cycles:                 s.cycles,
		FullCycles:             s.cycles - s.partial,
		PartialCycles:          s.partial,
		FirstDischargeCapacity: s.firstCap,
		LastDischargeCapacity:  s.lastCap,
		CapacityRetention:      schema.Ratio(s.lastCap, s.firstCap),
		TotalDuration:          s.duration,
	}
	if len(s.ce) > 0 {
		mean, std := stat.MeanStdDev(s.ce, nil)
		sum.MeanCoulombicEfficiency = schema.Defined(mean)
		sum.StdCoulombicEfficiency = schema.Defined(std)
	}
	if len(s.ee) > 0 {
		sum.MeanEnergyEfficiency = schema.Defined(stat.Mean(s.ee, nil))
	}
	return sum
}

// Summarize is a convenience over Summarizer for a finished slice of records.
func Summarize(records []schema.CycleRecord) schema.RunSummary {
	var s Summarizer
	for _, r := range records {
		s.Add(r)
	}
	return s.Summary()
}
