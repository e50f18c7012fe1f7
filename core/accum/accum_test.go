package accum

import (
	"testing"

	"github.com/huangsam/galvano/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t, v, i float64) schema.Sample {
	return schema.Sample{Time: t, Voltage: v, Current: i}
}

func TestAccumulatorConstantCurrent(t *testing.T) {
	a := New(schema.PhaseCharge, sample(0, 3.0, 2))
	for i := 1; i <= 100; i++ {
		a.Add(sample(float64(i)*0.5, 3.0, 2))
	}
	seg := a.Finalize(false)

	assert.Equal(t, schema.PhaseCharge, seg.Phase)
	assert.InDelta(t, 100.0, seg.Charge, 1e-9) // 2 A for 50 s
	assert.InDelta(t, 300.0, seg.Energy, 1e-9)
	assert.InDelta(t, 50.0, seg.Duration, 1e-12)
	assert.InDelta(t, 3.0, seg.AverageVoltage, 1e-12)
	assert.Equal(t, 101, seg.SampleCount)
	assert.False(t, seg.Truncated)
}

func TestAccumulatorTrapezoid(t *testing.T) {
	a := New(schema.PhaseDischarge, sample(0, 4.0, -1))
	a.Add(sample(2, 3.0, -3))
	seg := a.Finalize(true)

	assert.InDelta(t, -4.0, seg.Charge, 1e-12)  // (-1 + -3)/2 * 2
	assert.InDelta(t, -13.0, seg.Energy, 1e-12) // (-4 + -9)/2 * 2
	assert.InDelta(t, 3.5, seg.AverageVoltage, 1e-12)
	assert.Equal(t, 3.0, seg.MinVoltage)
	assert.Equal(t, 4.0, seg.MaxVoltage)
	assert.True(t, seg.Truncated)
	assert.Equal(t, sample(0, 4.0, -1), seg.Start)
	assert.Equal(t, sample(2, 3.0, -3), seg.End)
}

func TestAccumulatorMergeMatchesSinglePass(t *testing.T) {
	samples := []schema.Sample{
		sample(0, 3.0, 1), sample(1, 3.1, 1.2), sample(2, 3.2, 0.9),
		sample(3, 3.3, 1.1), sample(4, 3.4, 1.0),
	}

	whole := New(schema.PhaseCharge, samples[0])
	for _, s := range samples[1:] {
		whole.Add(s)
	}

	head := New(schema.PhaseCharge, samples[0])
	head.Add(samples[1])
	head.Add(samples[2])
	tail := New(schema.PhaseDischarge, samples[2])
	tail.Add(samples[3])
	tail.Add(samples[4])
	head.Merge(tail)

	want := whole.Finalize(false)
	got := head.Finalize(false)
	assert.InDelta(t, want.Charge, got.Charge, 1e-12)
	assert.InDelta(t, want.Energy, got.Energy, 1e-12)
	assert.InDelta(t, want.AverageVoltage, got.AverageVoltage, 1e-12)
	assert.Equal(t, want.SampleCount, got.SampleCount)
	assert.Equal(t, schema.PhaseCharge, got.Phase)

	assert.Panics(t, func() { tail.Add(samples[4]) })
}

func TestFinalizeTwicePanics(t *testing.T) {
	a := New(schema.PhaseRest, sample(0, 3.0, 0))
	a.Add(sample(1, 3.0, 0))
	require.NotPanics(t, func() { a.Finalize(false) })
	assert.Panics(t, func() { a.Finalize(false) })
}

func TestZeroDurationSegment(t *testing.T) {
	seg := New(schema.PhaseCharge, sample(5, 3.7, 1)).Finalize(true)
	assert.Zero(t, seg.Duration)
	assert.Equal(t, 3.7, seg.AverageVoltage)
	assert.Equal(t, 1, seg.SampleCount)
}

func TestFold(t *testing.T) {
	a := New(schema.PhaseCharge, sample(0, 3.0, 1))
	a.Add(sample(10, 4.0, 1))
	active := a.Finalize(false)

	r := New(schema.PhaseRest, sample(10, 4.0, 1))
	r.Add(sample(20, 3.8, 0))
	rest := r.Finalize(false)

	folded := Fold(active, rest)
	assert.Equal(t, schema.PhaseCharge, folded.Phase)
	assert.InDelta(t, 15.0, folded.Charge, 1e-12)
	assert.InDelta(t, 20.0, folded.Duration, 1e-12)
	assert.InDelta(t, (3.5*10+3.9*10)/20, folded.AverageVoltage, 1e-12)
	assert.Equal(t, 3, folded.SampleCount)
	assert.Equal(t, 4.0, folded.MaxVoltage)
	assert.Equal(t, sample(20, 3.8, 0), folded.End)
}
