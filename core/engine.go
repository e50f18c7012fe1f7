// Package core has the cycle segmentation engine and the lazy stream of cycle records.
package core

import (
	"context"
	"fmt"

	"github.com/huangsam/galvano/core/metrics"
	"github.com/huangsam/galvano/core/phase"
	"github.com/huangsam/galvano/schema"
	"go.uber.org/zap"
)

// SampleSource yields samples in time order. Next returns io.EOF once exhausted;
// any other error ends the run as a SourceError. Sources that implement io.Closer
// are closed when the stream finishes or is closed.
type SampleSource interface {
	Next(ctx context.Context) (schema.Sample, error)
}

// Options holds the collaborators of an engine.
type Options struct {
	Logger      *zap.SugaredLogger
	OnMalformed func(*MalformedSampleError)
}

// Option configures an Engine.
type Option func(*Options)

// WithLogger sets the logger used for transition tracing and skipped samples.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithMalformedHook registers fn to observe samples dropped under the skip policy.
func WithMalformedHook(fn func(*MalformedSampleError)) Option {
	return func(o *Options) { o.OnMalformed = fn }
}

// Engine builds cycle streams for one configuration. It holds no run state,
// so a single Engine may start any number of independent streams.
type Engine struct {
	cfg  schema.EngineConfig
	calc metrics.Calculator
	opts Options
}

// NewEngine validates cfg and returns an engine.
func NewEngine(cfg schema.EngineConfig, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	o := Options{Logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		cfg:  cfg,
		calc: metrics.Calculator{MassGrams: cfg.MassGrams},
		opts: o,
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() schema.EngineConfig {
	return e.cfg
}

// Stream starts a run over src. Nothing is read until the first call to Next.
func (e *Engine) Stream(src SampleSource) (*Stream, error) {
	classifier, err := phase.New(e.cfg)
	if err != nil {
		return nil, err
	}
	return newStream(src, newSegmenter(e.cfg, classifier, e.opts), e.calc, e.cfg.Workers), nil
}

// Collect drains a fresh stream over src into a slice.
func (e *Engine) Collect(ctx context.Context, src SampleSource) ([]schema.CycleRecord, schema.RunStats, error) {
	st, err := e.Stream(src)
	if err != nil {
		return nil, schema.RunStats{}, err
	}
	defer func() { _ = st.Close() }()

	var records []schema.CycleRecord
	for rec, err := range st.All(ctx) {
		if err != nil {
			return records, st.Stats(), err
		}
		records = append(records, rec)
	}
	return records, st.Stats(), nil
}
