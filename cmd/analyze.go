package cmd

import (
	"fmt"

	"github.com/huangsam/galvano/core"
	"github.com/huangsam/galvano/internal/contract"
	"github.com/huangsam/galvano/internal/outwriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// bindCommandFlags binds the local flags of cmd to Viper. Commands that share
// flag names bind only when they run, so the active command wins.
func bindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding %s flags: %w", cmd.Name(), err)
	}
	return nil
}

// analyzeCmd segments one trace into cycles.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <trace-file>",
	Short: "Segment a trace into cycles and report per-cycle metrics.",
	Long: `Stream a CSV or Parquet trace through the segmentation engine and print one
record per charge/discharge cycle.

Each record carries:
- Charge and discharge capacity (trapezoidal integral of current)
- Charge and discharge energy (integral of voltage times current)
- Coulombic and energy efficiency
- Time-weighted average voltages, phase durations and rest time
- Specific capacity, energy and power density when --mass is set

Phases are decided with hysteresis: currents within --noise-threshold of zero are
quiet, a new sign must persist for --dwell before it is confirmed, and quiet
stretches longer than --rest-timeout become rest. Cycles cut short by the end of
the trace are marked partial and their efficiencies are left undefined.

CSV headers may carry units ("Current / mA", "Time (min)"); values are scaled to SI.

Examples:
  # Analyze a cycler export with the defaults
  galvano analyze cell01.csv

  # Noisy data, confirm transitions after 2 seconds
  galvano analyze cell01.csv --noise-threshold 0.002 --dwell 2 --dwell-unit seconds

  # Use the instrument's step markers and report mass-specific metrics
  galvano analyze cell01.csv --classifier tagged --phase-col Step --mass 0.012

  # Export cycles for pandas/DuckDB and record the run
  galvano analyze cell01.parquet --output parquet --output-file cycles.parquet --runs-backend sqlite`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := bindCommandFlags(cmd); err != nil {
			return err
		}
		return sharedSetupWrapper(cmd, args)
	},
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteAnalyze(rootCtx, cfg, runStore, outwriter.NewOutWriter()); err != nil {
			_ = Cleanup()
			contract.LogFatal("Cannot run analysis", err)
		}
	},
}
