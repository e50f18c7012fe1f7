package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/huangsam/galvano/core/metrics"
	"github.com/huangsam/galvano/internal/contract"
	"github.com/huangsam/galvano/internal/log"
	"github.com/huangsam/galvano/internal/source"
	"github.com/huangsam/galvano/schema"
)

// runAnalysisCore streams one input file through the engine. Each emitted cycle
// is recorded in the run store, when one is configured, as soon as it arrives.
func runAnalysisCore(ctx context.Context, cfg *contract.Config, store contract.RunStore) (*schema.AnalysisOutput, error) {
	if !shouldSuppressHeader(ctx) {
		logRunHeader(os.Stderr, cfg)
	}
	logger := log.Get().With("source", filepath.Base(cfg.InputPath))

	// --- 0. Open the input and build the stream ---
	src, err := source.Open(cfg.InputPath, cfg.Columns, logger)
	if err != nil {
		return nil, err
	}
	engine, err := NewEngine(cfg.Engine, WithLogger(logger))
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	st, err := engine.Stream(src)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	defer func() { _ = st.Close() }()

	// --- 1. Begin Run Tracking (if configured) ---
	if store != nil {
		runID, err := store.BeginRun(cfg.InputPath, time.Now(), runConfigParams(cfg))
		if err != nil {
			contract.LogWarn("Run tracking initialization failed", err)
		} else if runID > 0 {
			ctx = withRunID(ctx, runID)
		}
	}
	runID, tracked := getRunID(ctx)

	// --- 2. Segmentation ---
	output := &schema.AnalysisOutput{SourcePath: cfg.InputPath, RunID: runID}
	var summary metrics.Summarizer
	var streamErr error
	for rec, err := range st.All(ctx) {
		if err != nil {
			streamErr = err
			break
		}
		output.Records = append(output.Records, rec)
		summary.Add(rec)
		if tracked {
			if err := store.RecordCycle(runID, rec); err != nil {
				contract.LogWarn("Cycle tracking failed, disabling for this run", err)
				tracked = false
			}
		}
	}
	output.Stats = st.Stats()
	output.Summary = summary.Summary()

	// --- 3. End Run Tracking ---
	if runID > 0 {
		if err := store.EndRun(runID, time.Now(), output.Stats); err != nil {
			contract.LogWarn("Failed to finalize run tracking", err)
		}
	}

	if streamErr != nil {
		logger.Debugw("Run stopped", "cycles", len(output.Records), "error", streamErr)
		return output, streamErr
	}
	return output, nil
}

// runConfigParams captures the engine settings stored alongside a run.
func runConfigParams(cfg *contract.Config) map[string]any {
	ec := cfg.Engine
	return map[string]any{
		"classifier":       string(ec.Classifier),
		"noise_threshold":  ec.NoiseThreshold,
		"dwell":            ec.Dwell,
		"dwell_unit":       string(ec.DwellUnit),
		"rest_timeout":     ec.RestTimeout,
		"polarity":         string(ec.Polarity),
		"malformed_policy": string(ec.MalformedPolicy),
		"rest_mode":        string(ec.RestMode),
		"mass_g":           ec.MassGrams,
		"workers":          ec.Workers,
	}
}

// logRunHeader prints a concise, 2-line header for each run.
func logRunHeader(w io.Writer, cfg *contract.Config) {
	name := filepath.Base(cfg.InputPath)
	if name == "" || name == "." {
		name = "stdin"
	}
	ec := cfg.Engine

	// Line 1: the input and how phases are decided
	_, _ = fmt.Fprintf(w, "🔋 Input: %s (Classifier: %s, Polarity: %s)\n", name, ec.Classifier, ec.Polarity)

	// Line 2: the hysteresis parameters
	_, _ = fmt.Fprintf(w, "⚙️  Threshold: %g A | Dwell: %g %s | Rest timeout: %g s\n",
		ec.NoiseThreshold, ec.Dwell, ec.DwellUnit, ec.RestTimeout)
}
