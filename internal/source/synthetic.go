package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"

	"github.com/huangsam/galvano/schema"
)

// SquareWave describes a synthetic galvanostatic cycling trace: constant-current
// charge and discharge halves, optional rests between them and a rest tail.
type SquareWave struct {
	Cycles           int     // charge/discharge pairs
	HalfPeriod       float64 // s per charge or discharge half
	RestPeriod       float64 // s of rest after each half, 0 for none
	Tail             float64 // s of rest after the last cycle
	Step             float64 // sampling interval in s
	Current          float64 // charge current magnitude in A
	Fade             float64 // fractional loss of discharge current per cycle
	ChargeVoltage    float64 // V at the start of charge, rising 0.2 V over the half
	DischargeVoltage float64 // V at the start of discharge, falling 0.2 V over the half
	RestVoltage      float64
	Noise            float64 // peak uniform current noise in A
	Seed             uint64
}

// DefaultSquareWave returns a ten-cycle trace sampled once per second.
func DefaultSquareWave() SquareWave {
	return SquareWave{
		Cycles:           10,
		HalfPeriod:       600,
		RestPeriod:       60,
		Tail:             2 * schema.DefaultRestTimeout,
		Step:             1,
		Current:          0.01,
		ChargeVoltage:    3.9,
		DischargeVoltage: 3.8,
		RestVoltage:      3.7,
		Seed:             1,
	}
}

// Validate rejects waves that cannot be sampled.
func (w SquareWave) Validate() error {
	var errs []error
	if w.Cycles < 0 {
		errs = append(errs, fmt.Errorf("cycles must be >= 0, got %d", w.Cycles))
	}
	if !(w.Step > 0) || math.IsInf(w.Step, 0) {
		errs = append(errs, fmt.Errorf("step must be a finite value > 0, got %v", w.Step))
	}
	if w.Cycles > 0 && !(w.HalfPeriod >= w.Step) {
		errs = append(errs, fmt.Errorf("half period %v is shorter than one step", w.HalfPeriod))
	}
	if w.RestPeriod < 0 || w.Tail < 0 {
		errs = append(errs, errors.New("rest period and tail must be >= 0"))
	}
	if w.Fade < 0 || w.Fade >= 1 {
		errs = append(errs, fmt.Errorf("fade must be in [0, 1), got %v", w.Fade))
	}
	return errors.Join(errs...)
}

func steps(period, step float64) int {
	if period <= 0 || step <= 0 {
		return 0
	}
	return int(math.Round(period / step))
}

// Len returns the number of samples in the trace.
func (w SquareWave) Len() int {
	half, rest := steps(w.HalfPeriod, w.Step), steps(w.RestPeriod, w.Step)
	return w.Cycles*(2*half+2*rest) + steps(w.Tail, w.Step)
}

// Generator yields the samples of a SquareWave one at a time.
type Generator struct {
	w          SquareWave
	rng        *rand.Rand
	half, rest int
	total, i   int
}

// NewGenerator returns a deterministic generator for w.
func NewGenerator(w SquareWave) *Generator {
	return &Generator{
		w:     w,
		rng:   rand.New(rand.NewPCG(w.Seed, w.Seed^0x9e3779b97f4a7c15)),
		half:  steps(w.HalfPeriod, w.Step),
		rest:  steps(w.RestPeriod, w.Step),
		total: w.Len(),
	}
}

// Next returns the next sample, or io.EOF after the tail.
func (g *Generator) Next(ctx context.Context) (schema.Sample, error) {
	if err := ctx.Err(); err != nil {
		return schema.Sample{}, err
	}
	if g.i >= g.total {
		return schema.Sample{}, io.EOF
	}
	s := g.at(g.i)
	g.i++
	return s, nil
}

func (g *Generator) at(i int) schema.Sample {
	w := g.w
	s := schema.Sample{Time: float64(i) * w.Step, Voltage: w.RestVoltage, Tag: schema.PhaseRest}

	period := 2*g.half + 2*g.rest
	if period > 0 && i < w.Cycles*period {
		k, o := i/period, i%period
		switch {
		case o < g.half:
			frac := float64(o) / float64(g.half)
			s.Current = w.Current
			s.Voltage = w.ChargeVoltage + 0.2*frac
			s.Tag = schema.PhaseCharge
		case o >= g.half+g.rest && o < 2*g.half+g.rest:
			frac := float64(o-g.half-g.rest) / float64(g.half)
			s.Current = -w.Current * math.Pow(1-w.Fade, float64(k))
			s.Voltage = w.DischargeVoltage - 0.2*frac
			s.Tag = schema.PhaseDischarge
		}
	}
	if w.Noise > 0 {
		s.Current += (g.rng.Float64()*2 - 1) * w.Noise
	}
	return s
}

// Samples materializes the whole trace.
func (w SquareWave) Samples() []schema.Sample {
	g := NewGenerator(w)
	out := make([]schema.Sample, 0, g.total)
	for i := range g.total {
		out = append(out, g.at(i))
	}
	return out
}

// Close implements Source.
func (g *Generator) Close() error { return nil }
