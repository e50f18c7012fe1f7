package core

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/huangsam/galvano/schema"
)

// sliceSource replays samples and fails with err once pos reaches failAt.
type sliceSource struct {
	samples []schema.Sample
	pos     int
	failAt  int
	err     error
	closed  atomic.Int32
}

func newSliceSource(samples []schema.Sample) *sliceSource {
	return &sliceSource{samples: samples, failAt: -1}
}

func (s *sliceSource) Next(ctx context.Context) (schema.Sample, error) {
	if err := ctx.Err(); err != nil {
		return schema.Sample{}, err
	}
	if s.err != nil && s.pos == s.failAt {
		return schema.Sample{}, s.err
	}
	if s.pos >= len(s.samples) {
		return schema.Sample{}, io.EOF
	}
	sample := s.samples[s.pos]
	s.pos++
	return sample, nil
}

func (s *sliceSource) Close() error {
	s.closed.Add(1)
	return nil
}

// wave builds traces sampled every step seconds, once per second when step is zero.
type wave struct {
	t       float64
	step    float64
	samples []schema.Sample
}

func (w *wave) hold(n int, current, voltage float64) *wave {
	dt := w.step
	if dt == 0 {
		dt = 1
	}
	for range n {
		w.samples = append(w.samples, schema.Sample{Time: w.t, Voltage: voltage, Current: current})
		w.t += dt
	}
	return w
}

func (w *wave) charge(n int) *wave    { return w.hold(n, 1, 4.0) }
func (w *wave) discharge(n int) *wave { return w.hold(n, -1, 3.5) }
func (w *wave) rest(n int) *wave      { return w.hold(n, 0, 3.8) }

// squareWave returns n charge/discharge pairs of the given half length followed by a rest tail.
func squareWave(n, half int) []schema.Sample {
	w := &wave{}
	for range n {
		w.charge(half).discharge(half)
	}
	return w.rest(20).samples
}

func testEngineConfig() schema.EngineConfig {
	cfg := schema.DefaultEngineConfig()
	cfg.NoiseThreshold = 0.01
	cfg.Dwell = 3
	cfg.RestTimeout = 10
	return cfg
}
