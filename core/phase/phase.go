// Package phase maps samples onto charge, discharge and rest phases.
package phase

import (
	"errors"
	"fmt"

	"github.com/huangsam/galvano/schema"
)

// ErrUnclassifiable is returned when a sample carries no usable phase information.
var ErrUnclassifiable = errors.New("sample cannot be classified")

// Verdict is the outcome of classifying one sample.
// Phase is the confirmed phase after the sample; Candidate is what the sample alone suggests.
// When they differ, the sample belongs to a transition that is not yet confirmed.
type Verdict struct {
	Phase     schema.Phase
	Candidate schema.Phase
}

// Pending reports whether the sample sits inside an unconfirmed transition.
func (v Verdict) Pending() bool {
	return v.Phase != v.Candidate
}

// Classifier decides the phase of each sample given the previously confirmed phase.
// Implementations may keep dwell state between calls, so one instance serves one run.
type Classifier interface {
	Classify(s schema.Sample, prev schema.Phase) (Verdict, error)
}

// New returns the classifier strategy selected by cfg.
func New(cfg schema.EngineConfig) (Classifier, error) {
	switch cfg.Classifier {
	case schema.CurrentClassifier, "":
		return NewCurrentClassifier(cfg), nil
	case schema.TaggedClassifier:
		return TaggedClassifier{}, nil
	default:
		return nil, fmt.Errorf("unknown classifier %q", cfg.Classifier)
	}
}
