package phase

import (
	"math"

	"github.com/huangsam/galvano/schema"
)

// CurrentClassifier labels samples by the sign of the current with a hysteresis band
// and a dwell requirement before a transition is confirmed.
type CurrentClassifier struct {
	threshold   float64
	dwell       float64
	unit        schema.DwellUnit
	restTimeout float64
	polarity    schema.Polarity

	candidate schema.Phase
	count     int     // consecutive samples voting for candidate
	since     float64 // time of the first sample voting for candidate
	anchor    float64 // time of the last sample that agreed with the confirmed phase
}

// NewCurrentClassifier builds a classifier from the engine configuration.
func NewCurrentClassifier(cfg schema.EngineConfig) *CurrentClassifier {
	return &CurrentClassifier{
		threshold:   cfg.NoiseThreshold,
		dwell:       cfg.Dwell,
		unit:        cfg.DwellUnit,
		restTimeout: cfg.RestTimeout,
		polarity:    cfg.Polarity,
	}
}

// Raw returns the phase a single reading suggests, ignoring history.
func (c *CurrentClassifier) Raw(current float64) (schema.Phase, error) {
	if math.IsNaN(current) || math.IsInf(current, 0) {
		return schema.PhaseUnknown, ErrUnclassifiable
	}
	if math.Abs(current) <= c.threshold {
		return schema.PhaseRest, nil
	}
	positive := current > 0
	if c.polarity == schema.ChargeNegative {
		positive = !positive
	}
	if positive {
		return schema.PhaseCharge, nil
	}
	return schema.PhaseDischarge, nil
}

// Classify implements Classifier.
func (c *CurrentClassifier) Classify(s schema.Sample, prev schema.Phase) (Verdict, error) {
	raw, err := c.Raw(s.Current)
	if err != nil {
		return Verdict{Phase: prev, Candidate: schema.PhaseUnknown}, err
	}

	// First sample of a run is taken at face value.
	if prev == schema.PhaseUnknown || raw == prev {
		c.settle(s.Time)
		return Verdict{Phase: raw, Candidate: raw}, nil
	}

	if raw != c.candidate {
		c.candidate = raw
		c.count = 0
		c.since = s.Time
	}
	c.count++

	if c.confirmed(raw, s.Time) {
		c.settle(s.Time)
		return Verdict{Phase: raw, Candidate: raw}, nil
	}
	return Verdict{Phase: prev, Candidate: raw}, nil
}

// confirmed reports whether the candidate run ending at t has lasted long enough.
// Rest is timed from the last sample of the confirmed phase; an active candidate
// only from its own first sample, so quiet time never counts toward it.
func (c *CurrentClassifier) confirmed(raw schema.Phase, t float64) bool {
	if raw == schema.PhaseRest {
		return t-c.anchor > c.restTimeout
	}
	if c.unit == schema.DwellSeconds {
		return t-c.since >= c.dwell
	}
	return float64(c.count) >= math.Max(1, c.dwell)
}

func (c *CurrentClassifier) settle(t float64) {
	c.candidate = schema.PhaseUnknown
	c.count = 0
	c.since = t
	c.anchor = t
}
