package schema

import (
	"errors"
	"fmt"
	"math"
)

// Engine defaults shared by the CLI flags and DefaultEngineConfig.
const (
	DefaultNoiseThreshold = 1e-4 // A
	DefaultDwell          = 3
	DefaultRestTimeout    = 10.0 // s
	DefaultWorkers        = 1
)

// EngineConfig holds the parameters of one segmentation run.
type EngineConfig struct {
	Classifier      ClassifierKind  // How samples are mapped onto phases
	NoiseThreshold  float64         // Hysteresis half-band ε in amperes; |I| <= ε is quiet
	Dwell           float64         // Persistence required to confirm a charge/discharge transition
	DwellUnit       DwellUnit       // Whether Dwell counts samples or seconds
	RestTimeout     float64         // Seconds a quiet run must last before it is confirmed as rest
	Polarity        Polarity        // Sign convention for charge current
	MalformedPolicy MalformedPolicy // Abort the run or skip the sample; must be set explicitly
	RestMode        RestMode        // Fold rest integrals into the preceding phase or exclude them
	MassGrams       float64         // Active material mass for specific metrics (0 disables)
	Workers         int             // Combine workers; 1 runs everything on the caller's goroutine
}

// DefaultEngineConfig returns the configuration used when nothing is overridden.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Classifier:      CurrentClassifier,
		NoiseThreshold:  DefaultNoiseThreshold,
		Dwell:           DefaultDwell,
		DwellUnit:       DwellSamples,
		RestTimeout:     DefaultRestTimeout,
		Polarity:        ChargePositive,
		MalformedPolicy: AbortPolicy,
		RestMode:        RestExclude,
		Workers:         DefaultWorkers,
	}
}

// Validate checks that every field holds a supported value.
func (c EngineConfig) Validate() error {
	var errs []error
	if _, ok := ValidClassifiers[c.Classifier]; !ok {
		errs = append(errs, fmt.Errorf("invalid classifier %q", c.Classifier))
	}
	if !isNonNegative(c.NoiseThreshold) {
		errs = append(errs, fmt.Errorf("noise threshold must be a finite value >= 0, got %v", c.NoiseThreshold))
	}
	if !isNonNegative(c.Dwell) {
		errs = append(errs, fmt.Errorf("dwell must be a finite value >= 0, got %v", c.Dwell))
	}
	if _, ok := ValidDwellUnits[c.DwellUnit]; !ok {
		errs = append(errs, fmt.Errorf("invalid dwell unit %q", c.DwellUnit))
	}
	if !isNonNegative(c.RestTimeout) {
		errs = append(errs, fmt.Errorf("rest timeout must be a finite value >= 0, got %v", c.RestTimeout))
	}
	if _, ok := ValidPolarities[c.Polarity]; !ok {
		errs = append(errs, fmt.Errorf("invalid polarity %q", c.Polarity))
	}
	if _, ok := ValidMalformedPolicies[c.MalformedPolicy]; !ok {
		errs = append(errs, fmt.Errorf("malformed policy must be %q or %q, got %q", AbortPolicy, SkipPolicy, c.MalformedPolicy))
	}
	if _, ok := ValidRestModes[c.RestMode]; !ok {
		errs = append(errs, fmt.Errorf("invalid rest mode %q", c.RestMode))
	}
	if !isNonNegative(c.MassGrams) {
		errs = append(errs, fmt.Errorf("mass must be a finite value >= 0, got %v", c.MassGrams))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	return errors.Join(errs...)
}

func isNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}
