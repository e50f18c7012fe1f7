package core

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/huangsam/galvano/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func collect(t *testing.T, cfg schema.EngineConfig, samples []schema.Sample, opts ...Option) ([]schema.CycleRecord, schema.RunStats) {
	t.Helper()
	engine, err := NewEngine(cfg, opts...)
	require.NoError(t, err)
	records, stats, err := engine.Collect(context.Background(), newSliceSource(samples))
	require.NoError(t, err)
	return records, stats
}

func TestSquareWaveYieldsOneRecordPerCycle(t *testing.T) {
	for _, n := range []int{1, 3, 25} {
		records, stats := collect(t, testEngineConfig(), squareWave(n, 100))

		require.Len(t, records, n)
		for i, r := range records {
			assert.Equal(t, i, r.Index)
			assert.False(t, r.Partial, "cycle %d", i)
			assert.InDelta(t, 99, r.ChargeCapacity.Value, 1e-9)
			assert.InDelta(t, 99, r.DischargeCapacity.Value, 1e-9)
			assert.InDelta(t, 1.0, r.CoulombicEfficiency.Value, 1e-9)
			assert.InDelta(t, 3.5/4.0, r.EnergyEfficiency.Value, 5e-3)
		}
		assert.Equal(t, int64(n), stats.CyclesEmitted)
		assert.Zero(t, stats.PartialCycles)
		assert.Equal(t, int64(len(squareWave(n, 100))), stats.SamplesRead)
	}
}

func TestConstantCurrentCapacity(t *testing.T) {
	const current, seconds = 2.0, 100
	w := (&wave{}).hold(seconds+1, current, 3.9).rest(20)

	records, _ := collect(t, testEngineConfig(), w.samples)

	require.Len(t, records, 1)
	assert.InDelta(t, current*seconds, records[0].ChargeCapacity.Value, 1e-9)
	assert.InDelta(t, float64(seconds), records[0].DurationCharge.Value, 1e-9)
	assert.True(t, records[0].Partial)
}

func TestNoiseAndShortTogglesDoNotMoveBoundaries(t *testing.T) {
	clean := squareWave(5, 100)

	rng := rand.New(rand.NewPCG(7, 11))
	noisy := make([]schema.Sample, len(clean))
	for i, s := range clean {
		s.Current += (rng.Float64()*2 - 1) * 0.009
		// two-sample reversal inside every half-cycle, shorter than the dwell
		if pos := i % 100; pos == 50 || pos == 51 {
			s.Current = -s.Current
		}
		noisy[i] = s
	}

	want, _ := collect(t, testEngineConfig(), clean)
	got, _ := collect(t, testEngineConfig(), noisy)

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].StartTime, got[i].StartTime)
		assert.Equal(t, want[i].EndTime, got[i].EndTime)
		assert.Equal(t, want[i].DurationCharge, got[i].DurationCharge)
		assert.Equal(t, want[i].DurationDischarge, got[i].DurationDischarge)
		assert.Equal(t, want[i].Partial, got[i].Partial)
	}
}

func TestSecondsDwellIgnoresShortToggles(t *testing.T) {
	cfg := testEngineConfig()
	cfg.DwellUnit = schema.DwellSeconds

	tests := []struct {
		name         string
		clean, noisy *wave
	}{
		{
			name:  "toggle after a short quiet gap",
			clean: (&wave{}).charge(50).rest(5).charge(46).discharge(50).rest(20),
			noisy: (&wave{}).charge(50).rest(5).discharge(1).charge(45).discharge(50).rest(20),
		},
		{
			name:  "single sample toggle at coarse sampling",
			clean: (&wave{step: 5}).charge(41).discharge(20).rest(5),
			noisy: (&wave{step: 5}).charge(20).discharge(1).charge(20).discharge(20).rest(5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, _ := collect(t, cfg, tt.clean.samples)
			got, _ := collect(t, cfg, tt.noisy.samples)

			require.Len(t, want, 1)
			require.Len(t, got, 1)
			assert.False(t, got[0].Partial)
			assert.Equal(t, want[0].StartTime, got[0].StartTime)
			assert.Equal(t, want[0].EndTime, got[0].EndTime)
			assert.Equal(t, want[0].DurationCharge, got[0].DurationCharge)
			assert.Equal(t, want[0].DurationDischarge, got[0].DurationDischarge)
			assert.InDelta(t, want[0].DischargeCapacity.Value, got[0].DischargeCapacity.Value, 1e-9)
		})
	}
}

func TestStreamEndingMidDischarge(t *testing.T) {
	w := (&wave{}).charge(100).discharge(100).charge(100).discharge(40)

	records, stats := collect(t, testEngineConfig(), w.samples)

	require.Len(t, records, 2)
	assert.False(t, records[0].Partial)
	last := records[1]
	assert.True(t, last.Partial)
	assert.True(t, last.ChargeCapacity.Valid)
	assert.InDelta(t, 99, last.ChargeCapacity.Value, 1e-9)
	assert.True(t, last.DischargeCapacity.Valid)
	assert.False(t, last.CoulombicEfficiency.Valid)
	assert.False(t, last.EnergyEfficiency.Valid)
	assert.Equal(t, int64(1), stats.PartialCycles)
}

func TestRestBetweenPhases(t *testing.T) {
	samples := (&wave{}).charge(100).rest(30).discharge(100).rest(20).samples

	t.Run("exclude", func(t *testing.T) {
		records, _ := collect(t, testEngineConfig(), samples)
		require.Len(t, records, 1)
		r := records[0]
		assert.False(t, r.Partial)
		assert.InDelta(t, 99, r.DurationCharge.Value, 1e-9)
		assert.InDelta(t, 100, r.DurationDischarge.Value, 1e-9)
		assert.InDelta(t, 50, r.RestDuration, 1e-9)
		assert.InDelta(t, 99, r.ChargeCapacity.Value, 1e-9)
	})

	t.Run("fold", func(t *testing.T) {
		cfg := testEngineConfig()
		cfg.RestMode = schema.RestFold
		records, _ := collect(t, cfg, samples)
		require.Len(t, records, 1)
		r := records[0]
		assert.False(t, r.Partial)
		assert.InDelta(t, 129, r.DurationCharge.Value, 1e-9)
		assert.InDelta(t, 120, r.DurationDischarge.Value, 1e-9)
		assert.Zero(t, r.RestDuration)
		assert.InDelta(t, 99.5, r.ChargeCapacity.Value, 1e-9)
	})
}

func TestRestIsNeverACycle(t *testing.T) {
	records, _ := collect(t, testEngineConfig(), (&wave{}).rest(100).samples)
	assert.Empty(t, records)
}

func TestLeadingRestCountsTowardFirstCycle(t *testing.T) {
	samples := (&wave{}).rest(30).charge(100).discharge(100).rest(20).samples
	records, _ := collect(t, testEngineConfig(), samples)
	require.Len(t, records, 1)
	assert.False(t, records[0].Partial)
	assert.Greater(t, records[0].RestDuration, 20.0)
}

func TestChargeRestChargeEmitsPartial(t *testing.T) {
	samples := (&wave{}).charge(100).rest(30).charge(100).discharge(100).rest(20).samples
	records, _ := collect(t, testEngineConfig(), samples)

	require.Len(t, records, 2)
	assert.True(t, records[0].Partial)
	assert.True(t, records[0].ChargeCapacity.Valid)
	assert.False(t, records[0].DischargeCapacity.Valid)
	assert.Equal(t, 0, records[0].Index)
	assert.False(t, records[1].Partial)
	assert.Equal(t, 1, records[1].Index)
}

func TestLeadingDischargeIsPartial(t *testing.T) {
	samples := (&wave{}).discharge(50).charge(100).discharge(100).rest(20).samples
	records, _ := collect(t, testEngineConfig(), samples)

	require.Len(t, records, 2)
	assert.True(t, records[0].Partial)
	assert.False(t, records[0].ChargeCapacity.Valid)
	assert.True(t, records[0].DischargeCapacity.Valid)
	assert.False(t, records[1].Partial)
}

func TestDeterministic(t *testing.T) {
	samples := squareWave(10, 60)
	a, statsA := collect(t, testEngineConfig(), samples)
	b, statsB := collect(t, testEngineConfig(), samples)
	assert.Equal(t, a, b)
	assert.Equal(t, statsA, statsB)
}

func TestSingleSampleIsDiscarded(t *testing.T) {
	records, stats := collect(t, testEngineConfig(), (&wave{}).charge(1).samples)
	assert.Empty(t, records)
	assert.Equal(t, int64(1), stats.SegmentsDiscarded)
}

func TestEmptySource(t *testing.T) {
	records, stats := collect(t, testEngineConfig(), nil)
	assert.Empty(t, records)
	assert.Zero(t, stats.SamplesRead)
}

// withBadSamples inserts a duplicate timestamp, a backwards timestamp and a NaN reading.
func withBadSamples(clean []schema.Sample) []schema.Sample {
	out := make([]schema.Sample, 0, len(clean)+3)
	for i, s := range clean {
		out = append(out, s)
		switch i {
		case 10:
			out = append(out, schema.Sample{Time: s.Time, Voltage: 9, Current: -50})
		case 150:
			out = append(out, schema.Sample{Time: s.Time - 5, Voltage: 9, Current: 50})
		case 220:
			out = append(out, schema.Sample{Time: s.Time + 0.5, Voltage: math.NaN(), Current: 1})
		}
	}
	return out
}

func TestMalformedSamplesAbort(t *testing.T) {
	engine, err := NewEngine(testEngineConfig())
	require.NoError(t, err)
	src := newSliceSource(withBadSamples(squareWave(3, 100)))

	records, _, err := engine.Collect(context.Background(), src)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedSample)
	assert.True(t, HasCode(err, CodeMalformedSample))
	var malformed *MalformedSampleError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, int64(11), malformed.Index)
	assert.Equal(t, "timestamp does not increase", malformed.Reason)
	assert.Empty(t, records)
	assert.Equal(t, int32(1), src.closed.Load())
}

func TestMalformedSamplesSkip(t *testing.T) {
	cfg := testEngineConfig()
	cfg.MalformedPolicy = schema.SkipPolicy
	clean := squareWave(3, 100)

	obsCore, logs := observer.New(zapcore.WarnLevel)
	var hooked []*MalformedSampleError
	records, stats := collect(t, cfg, withBadSamples(clean),
		WithLogger(zap.New(obsCore).Sugar()),
		WithMalformedHook(func(e *MalformedSampleError) { hooked = append(hooked, e) }),
	)

	want, _ := collect(t, cfg, clean)
	assert.Equal(t, want, records)
	assert.Equal(t, int64(3), stats.SamplesSkipped)
	require.Len(t, hooked, 3)
	assert.Equal(t, "non-finite reading", hooked[2].Reason)
	assert.Equal(t, 3, logs.FilterMessage("Skipping malformed sample").Len())
}

func TestSourceErrorIsFatal(t *testing.T) {
	samples := squareWave(3, 100)
	src := newSliceSource(samples)
	src.failAt = 350 // inside the second discharge
	src.err = errors.New("disk gone")

	engine, err := NewEngine(testEngineConfig())
	require.NoError(t, err)
	st, err := engine.Stream(src)
	require.NoError(t, err)

	first, err := st.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, first.Index)

	_, err = st.Next(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSource)
	assert.True(t, HasCode(err, CodeSourceError))
	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.EqualError(t, srcErr.Unwrap(), "disk gone")

	// the error is sticky and the source is released
	_, again := st.Next(context.Background())
	assert.Equal(t, err, again)
	assert.Equal(t, int32(1), src.closed.Load())
	assert.Equal(t, int64(1), st.Stats().CyclesEmitted)
}

func TestStreamIsLazy(t *testing.T) {
	src := newSliceSource(squareWave(4, 100))
	engine, err := NewEngine(testEngineConfig())
	require.NoError(t, err)
	st, err := engine.Stream(src)
	require.NoError(t, err)
	assert.Zero(t, src.pos)

	rec, err := st.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Index)
	// the first record needs the second charge to be confirmed, nothing more
	assert.Less(t, src.pos, 210)
	require.NoError(t, st.Close())
}

func TestStreamEOFAndClose(t *testing.T) {
	src := newSliceSource(squareWave(2, 50))
	engine, err := NewEngine(testEngineConfig())
	require.NoError(t, err)
	st, err := engine.Stream(src)
	require.NoError(t, err)

	for range 2 {
		_, err := st.Next(context.Background())
		require.NoError(t, err)
	}
	_, err = st.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	_, err = st.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	assert.NoError(t, st.Close())
	assert.NoError(t, st.Close())
	assert.Equal(t, int32(1), src.closed.Load())
}

func TestCloseBeforeDrainReleasesSource(t *testing.T) {
	src := newSliceSource(squareWave(5, 100))
	engine, err := NewEngine(testEngineConfig())
	require.NoError(t, err)
	st, err := engine.Stream(src)
	require.NoError(t, err)

	_, err = st.Next(context.Background())
	require.NoError(t, err)
	require.NoError(t, st.Close())
	assert.Equal(t, int32(1), src.closed.Load())

	_, err = st.Next(context.Background())
	assert.Error(t, err)
}

func TestCancelledContext(t *testing.T) {
	for _, workers := range []int{1, 4} {
		cfg := testEngineConfig()
		cfg.Workers = workers
		src := newSliceSource(squareWave(5, 100))
		engine, err := NewEngine(cfg)
		require.NoError(t, err)
		st, err := engine.Stream(src)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = st.Next(ctx)
		assert.ErrorIs(t, err, context.Canceled, "workers=%d", workers)
		assert.Equal(t, int32(1), src.closed.Load(), "workers=%d", workers)
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	samples := withBadSamples(squareWave(50, 40))
	cfg := testEngineConfig()
	cfg.MalformedPolicy = schema.SkipPolicy
	cfg.MassGrams = 0.25

	serial, serialStats := collect(t, cfg, samples)
	for _, workers := range []int{2, 4, 16} {
		cfg.Workers = workers
		parallel, parallelStats := collect(t, cfg, samples)
		assert.Equal(t, serial, parallel, "workers=%d", workers)
		assert.Equal(t, serialStats, parallelStats, "workers=%d", workers)
	}
}

func TestParallelCloseMidStream(t *testing.T) {
	cfg := testEngineConfig()
	cfg.Workers = 4
	src := newSliceSource(squareWave(100, 20))
	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	st, err := engine.Stream(src)
	require.NoError(t, err)

	for i := range 3 {
		rec, err := st.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i, rec.Index)
	}
	require.NoError(t, st.Close())
	assert.Equal(t, int32(1), src.closed.Load())
}

func TestParallelSourceError(t *testing.T) {
	cfg := testEngineConfig()
	cfg.Workers = 3
	src := newSliceSource(squareWave(10, 50))
	src.failAt = 520
	src.err = errors.New("cable pulled")

	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	records, _, err := engine.Collect(context.Background(), src)

	assert.ErrorIs(t, err, ErrSource)
	require.NotEmpty(t, records)
	for i, r := range records {
		assert.Equal(t, i, r.Index)
		assert.False(t, r.Partial)
	}
}

func TestTaggedClassifierRun(t *testing.T) {
	cfg := testEngineConfig()
	cfg.Classifier = schema.TaggedClassifier
	w := (&wave{}).charge(10).discharge(10).rest(5)
	for i := range w.samples {
		switch {
		case i < 10:
			w.samples[i].Tag = schema.PhaseCharge
		case i < 20:
			w.samples[i].Tag = schema.PhaseDischarge
		default:
			w.samples[i].Tag = schema.PhaseRest
		}
	}

	records, _ := collect(t, cfg, w.samples)
	require.Len(t, records, 1)
	assert.False(t, records[0].Partial)
	assert.InDelta(t, 9, records[0].ChargeCapacity.Value, 1e-9)

	w.samples[3].Tag = schema.PhaseUnknown
	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	_, _, err = engine.Collect(context.Background(), newSliceSource(w.samples))
	assert.ErrorIs(t, err, ErrMalformedSample)
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	cfg := testEngineConfig()
	cfg.MalformedPolicy = ""
	_, err := NewEngine(cfg)
	assert.ErrorContains(t, err, "invalid engine config")
}

func TestAllIterator(t *testing.T) {
	engine, err := NewEngine(testEngineConfig())
	require.NoError(t, err)
	st, err := engine.Stream(newSliceSource(squareWave(4, 30)))
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	var indexes []int
	for rec, err := range st.All(context.Background()) {
		require.NoError(t, err)
		indexes = append(indexes, rec.Index)
		if len(indexes) == 2 {
			break
		}
	}
	assert.Equal(t, []int{0, 1}, indexes)

	// iteration resumes where it stopped
	rec, err := st.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Index)
}
