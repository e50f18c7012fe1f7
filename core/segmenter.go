package core

import (
	"math"
	"sync"

	"github.com/huangsam/galvano/core/accum"
	"github.com/huangsam/galvano/core/phase"
	"github.com/huangsam/galvano/schema"
	"go.uber.org/zap"
)

// engineState is the lifecycle of one segmentation run.
type engineState int

const (
	stateIdle engineState = iota
	stateInPhase
	stateFinished
)

// cyclePart is a closed cycle waiting to be combined into a record.
type cyclePart struct {
	index        int
	charge       *schema.PhaseSegment
	discharge    *schema.PhaseSegment
	restDuration float64
}

// openCycle collects the segments of the cycle currently being built.
type openCycle struct {
	charge     *schema.PhaseSegment
	discharge  *schema.PhaseSegment
	lastActive *schema.PhaseSegment
	rest       float64
}

func (c *openCycle) empty() bool {
	return c.charge == nil && c.discharge == nil
}

// segmenter is the sequential state machine that turns samples into closed cycles.
// It performs no I/O; the stream drives it one sample at a time.
type segmenter struct {
	cfg        schema.EngineConfig
	classifier phase.Classifier
	logger     *zap.SugaredLogger
	onMalform  func(*MalformedSampleError)

	state     engineState
	confirmed schema.Phase
	current   *accum.Accumulator
	pending   *accum.Accumulator // tentative run anchored at current's last sample
	last      schema.Sample
	read      int64

	cycle     openCycle
	nextIndex int
	ready     []cyclePart

	mu    sync.Mutex
	stats schema.RunStats
}

func newSegmenter(cfg schema.EngineConfig, classifier phase.Classifier, opts Options) *segmenter {
	return &segmenter{
		cfg:        cfg,
		classifier: classifier,
		logger:     opts.Logger,
		onMalform:  opts.OnMalformed,
	}
}

// feed consumes one sample. Under the abort policy a malformed sample is returned as an error.
func (s *segmenter) feed(sample schema.Sample) error {
	index := s.read
	s.read++
	s.bump(func(st *schema.RunStats) { st.SamplesRead++ })

	if reason := s.validate(sample); reason != "" {
		return s.malformed(index, sample, reason)
	}
	v, err := s.classifier.Classify(sample, s.confirmed)
	if err != nil {
		return s.malformed(index, sample, err.Error())
	}

	if s.state == stateIdle {
		s.state = stateInPhase
		s.confirmed = v.Phase
		s.current = accum.New(v.Phase, sample)
		s.last = sample
		s.logger.Debugw("Phase opened", "phase", v.Phase, "time", sample.Time)
		return nil
	}

	switch {
	case v.Phase != s.confirmed:
		if s.pending == nil {
			s.pending = accum.New(v.Phase, s.current.Last())
		}
		s.pending.Add(sample)
		s.pending.SetPhase(v.Phase)
		s.closeSegment(s.current.Finalize(false))
		s.openPhase(v.Phase)
		s.current, s.pending = s.pending, nil
		s.confirmed = v.Phase
		s.logger.Debugw("Phase confirmed", "phase", v.Phase, "time", sample.Time)
	case v.Pending():
		if s.pending == nil {
			s.pending = accum.New(v.Candidate, s.current.Last())
		}
		s.pending.Add(sample)
	default:
		if s.pending != nil {
			s.pending.Add(sample)
			s.current.Merge(s.pending)
			s.pending = nil
		} else {
			s.current.Add(sample)
		}
	}
	s.last = sample
	return nil
}

// finish closes the run at source exhaustion. The open segment is marked truncated.
func (s *segmenter) finish() {
	if s.state == stateFinished {
		return
	}
	if s.state == stateInPhase {
		if s.pending != nil {
			s.current.Merge(s.pending)
			s.pending = nil
		}
		s.closeSegment(s.current.Finalize(true))
		s.current = nil
	}
	if !s.cycle.empty() {
		s.flush()
	}
	s.cycle = openCycle{}
	s.state = stateFinished
}

func (s *segmenter) finished() bool {
	return s.state == stateFinished
}

// pop returns the oldest closed cycle, if any.
func (s *segmenter) pop() (cyclePart, bool) {
	if len(s.ready) == 0 {
		return cyclePart{}, false
	}
	part := s.ready[0]
	s.ready[0] = cyclePart{}
	s.ready = s.ready[1:]
	return part, true
}

// discard drops every held segment. Used on fatal errors and cancellation.
func (s *segmenter) discard() {
	s.current, s.pending = nil, nil
	s.cycle = openCycle{}
	s.ready = nil
	s.state = stateFinished
}

func (s *segmenter) validate(sample schema.Sample) string {
	for _, v := range [...]float64{sample.Time, sample.Voltage, sample.Current} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "non-finite reading"
		}
	}
	if s.state == stateInPhase && sample.Time <= s.last.Time {
		return "timestamp does not increase"
	}
	return ""
}

func (s *segmenter) malformed(index int64, sample schema.Sample, reason string) error {
	err := &MalformedSampleError{Index: index, Sample: sample, Reason: reason}
	if s.cfg.MalformedPolicy != schema.SkipPolicy {
		return err
	}
	s.bump(func(st *schema.RunStats) { st.SamplesSkipped++ })
	s.logger.Warnw("Skipping malformed sample", "index", index, "time", sample.Time, "reason", reason)
	if s.onMalform != nil {
		s.onMalform(err)
	}
	return nil
}

// closeSegment assigns a finished segment to the open cycle.
func (s *segmenter) closeSegment(seg schema.PhaseSegment) {
	if seg.Duration <= 0 {
		s.bump(func(st *schema.RunStats) { st.SegmentsDiscarded++ })
		s.logger.Debugw("Discarding zero-length segment", "phase", seg.Phase, "time", seg.Start.Time)
		return
	}
	switch seg.Phase {
	case schema.PhaseRest:
		if s.cfg.RestMode == schema.RestFold && s.cycle.lastActive != nil {
			*s.cycle.lastActive = accum.Fold(*s.cycle.lastActive, seg)
			return
		}
		s.cycle.rest += seg.Duration
	case schema.PhaseCharge:
		if s.cycle.charge != nil {
			s.flush()
		}
		s.cycle.charge = &seg
		s.cycle.lastActive = s.cycle.charge
	case schema.PhaseDischarge:
		if s.cycle.discharge != nil {
			s.flush()
		}
		s.cycle.discharge = &seg
		s.cycle.lastActive = s.cycle.discharge
	}
}

// openPhase starts a new cycle when the incoming active phase cannot belong to the open one.
func (s *segmenter) openPhase(p schema.Phase) {
	switch p {
	case schema.PhaseCharge:
		if !s.cycle.empty() {
			s.flush()
		}
	case schema.PhaseDischarge:
		if s.cycle.discharge != nil {
			s.flush()
		}
	}
}

func (s *segmenter) flush() {
	part := cyclePart{
		index:        s.nextIndex,
		charge:       s.cycle.charge,
		discharge:    s.cycle.discharge,
		restDuration: s.cycle.rest,
	}
	s.nextIndex++
	s.ready = append(s.ready, part)
	s.cycle = openCycle{}
	s.logger.Debugw("Cycle closed", "index", part.index, "charge", part.charge != nil, "discharge", part.discharge != nil)
}

func (s *segmenter) bump(fn func(*schema.RunStats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}

func (s *segmenter) snapshot() schema.RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
