// Package core has core logic for cycle segmentation and metrics.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/huangsam/galvano/internal/contract"
	"github.com/huangsam/galvano/schema"
)

// ExecuteAnalyze runs the segmentation of cfg.InputPath and writes the cycles with w.
// It serves as the main entry point for the 'analyze' command.
// When the run stops early, the cycles completed before the error are still written.
func ExecuteAnalyze(ctx context.Context, cfg *contract.Config, store contract.RunStore, w contract.OutputWriter) error {
	output, duration, err := GetAnalysisResults(ctx, cfg, store)
	if output == nil {
		return err
	}
	if writeErr := w.WriteCycles(output, cfg, duration); writeErr != nil {
		return errors.Join(err, writeErr)
	}
	return err
}

// GetAnalysisResults runs the segmentation and returns the results without printing them.
// A non-nil output with a non-nil error holds the cycles completed before the stream failed.
func GetAnalysisResults(ctx context.Context, cfg *contract.Config, store contract.RunStore) (*schema.AnalysisOutput, time.Duration, error) {
	start := time.Now()
	output, err := runAnalysisCore(ctx, cfg, store)
	if output == nil {
		return nil, 0, err
	}
	return output, time.Since(start), err
}
