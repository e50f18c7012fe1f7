// Package accum integrates samples of a single phase into a PhaseSegment.
package accum

import (
	"math"

	"github.com/huangsam/galvano/schema"
)

// Accumulator holds the running trapezoidal integrals of one phase.
// It is owned by a single engine and must not be shared.
type Accumulator struct {
	phase     schema.Phase
	start     schema.Sample
	last      schema.Sample
	charge    float64
	energy    float64
	vdt       float64
	minV      float64
	maxV      float64
	count     int
	finalized bool
}

// New opens an accumulator at its first sample.
func New(p schema.Phase, first schema.Sample) *Accumulator {
	return &Accumulator{
		phase: p,
		start: first,
		last:  first,
		minV:  first.Voltage,
		maxV:  first.Voltage,
		count: 1,
	}
}

// Add integrates the interval between the previous sample and s.
// The caller guarantees s.Time is strictly after the previous sample.
func (a *Accumulator) Add(s schema.Sample) {
	a.mustBeOpen()
	dt := s.Time - a.last.Time
	a.charge += (s.Current + a.last.Current) / 2 * dt
	a.energy += (s.Voltage*s.Current + a.last.Voltage*a.last.Current) / 2 * dt
	a.vdt += (s.Voltage + a.last.Voltage) / 2 * dt
	a.minV = math.Min(a.minV, s.Voltage)
	a.maxV = math.Max(a.maxV, s.Voltage)
	a.count++
	a.last = s
}

// Merge appends b, which must begin at the sample where a ends.
// b is consumed and may not be used afterwards.
func (a *Accumulator) Merge(b *Accumulator) {
	a.mustBeOpen()
	b.mustBeOpen()
	a.charge += b.charge
	a.energy += b.energy
	a.vdt += b.vdt
	a.minV = math.Min(a.minV, b.minV)
	a.maxV = math.Max(a.maxV, b.maxV)
	a.count += b.count - 1
	a.last = b.last
	b.finalized = true
}

// Phase returns the phase being accumulated.
func (a *Accumulator) Phase() schema.Phase { return a.phase }

// SetPhase relabels the accumulator, used when a tentative run is confirmed as a phase.
func (a *Accumulator) SetPhase(p schema.Phase) { a.phase = p }

// Last returns the most recent sample.
func (a *Accumulator) Last() schema.Sample { return a.last }

// Duration returns the integrated time span so far.
func (a *Accumulator) Duration() float64 { return a.last.Time - a.start.Time }

// Finalize closes the accumulator and returns its segment.
// Calling Finalize twice is a programming error and panics.
func (a *Accumulator) Finalize(truncated bool) schema.PhaseSegment {
	a.mustBeOpen()
	a.finalized = true
	seg := schema.PhaseSegment{
		Phase:          a.phase,
		Start:          a.start,
		End:            a.last,
		Charge:         a.charge,
		Energy:         a.energy,
		Duration:       a.Duration(),
		AverageVoltage: a.start.Voltage,
		MinVoltage:     a.minV,
		MaxVoltage:     a.maxV,
		SampleCount:    a.count,
		Truncated:      truncated,
	}
	if seg.Duration > 0 {
		seg.AverageVoltage = a.vdt / seg.Duration
	}
	return seg
}

func (a *Accumulator) mustBeOpen() {
	if a.finalized {
		panic("accum: accumulator used after Finalize")
	}
}

// Fold appends segment b to a, keeping a's phase and truncation. b must begin where a ends.
func Fold(a, b schema.PhaseSegment) schema.PhaseSegment {
	out := a
	out.End = b.End
	out.Charge += b.Charge
	out.Energy += b.Energy
	out.Duration += b.Duration
	out.MinVoltage = math.Min(a.MinVoltage, b.MinVoltage)
	out.MaxVoltage = math.Max(a.MaxVoltage, b.MaxVoltage)
	out.SampleCount += b.SampleCount - 1
	if out.Duration > 0 {
		out.AverageVoltage = (a.AverageVoltage*a.Duration + b.AverageVoltage*b.Duration) / out.Duration
	}
	return out
}
