// Package metrics derives cycle records from completed phase segments.
package metrics

import (
	"math"

	"github.com/huangsam/galvano/schema"
)

// Unit conversions for specific metrics.
const (
	secondsPerHour    = 3600.0
	coulombsPerMilliH = 3.6 // 1 mAh = 3.6 A·s
	gramsPerKilogram  = 1000.0
)

// Calculator turns a (charge, discharge) segment pair into a CycleRecord.
// MassGrams enables specific capacity, energy density and power density when positive.
type Calculator struct {
	MassGrams float64
}

// Combine builds the record for cycle index. Either segment may be nil, in which case the
// record is partial. Combine does not retain or modify its arguments.
func (c Calculator) Combine(charge, discharge *schema.PhaseSegment, index int) schema.CycleRecord {
	rec := schema.CycleRecord{
		Index:   index,
		Partial: incomplete(charge) || incomplete(discharge),
	}

	if charge != nil {
		rec.ChargeCapacity = schema.Defined(math.Abs(charge.Charge))
		rec.EnergyCharge = schema.Defined(math.Abs(charge.Energy))
		rec.AvgVoltageCharge = schema.Defined(charge.AverageVoltage)
		rec.DurationCharge = schema.Defined(charge.Duration)
	}
	if discharge != nil {
		rec.DischargeCapacity = schema.Defined(math.Abs(discharge.Charge))
		rec.EnergyDischarge = schema.Defined(math.Abs(discharge.Energy))
		rec.AvgVoltageDischarge = schema.Defined(discharge.AverageVoltage)
		rec.DurationDischarge = schema.Defined(discharge.Duration)
	}
	rec.StartTime, rec.EndTime = span(charge, discharge)

	if !rec.Partial {
		rec.CoulombicEfficiency = schema.Ratio(rec.DischargeCapacity, rec.ChargeCapacity)
		rec.EnergyEfficiency = schema.Ratio(rec.EnergyDischarge, rec.EnergyCharge)
	}

	if c.MassGrams > 0 {
		rec.SpecificChargeCapacity = rec.ChargeCapacity.Scale(1 / coulombsPerMilliH / c.MassGrams)
		rec.SpecificDischargeCapacity = rec.DischargeCapacity.Scale(1 / coulombsPerMilliH / c.MassGrams)
		rec.EnergyDensity = rec.EnergyDischarge.Scale(1 / secondsPerHour / (c.MassGrams / gramsPerKilogram))
		rec.PowerDensity = schema.Ratio(rec.EnergyDensity, rec.DurationDischarge.Scale(1/secondsPerHour))
	}
	return rec
}

func incomplete(seg *schema.PhaseSegment) bool {
	return seg == nil || seg.Truncated
}

func span(charge, discharge *schema.PhaseSegment) (start, end float64) {
	switch {
	case charge != nil && discharge != nil:
		return charge.Start.Time, discharge.End.Time
	case charge != nil:
		return charge.Start.Time, charge.End.Time
	case discharge != nil:
		return discharge.Start.Time, discharge.End.Time
	}
	return 0, 0
}
