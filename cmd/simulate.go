package cmd

import (
	"os"

	"github.com/huangsam/galvano/core"
	"github.com/huangsam/galvano/internal/contract"
	"github.com/huangsam/galvano/internal/source"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// simulateCmd writes a synthetic trace.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Write a synthetic square-wave cycling trace.",
	Long: `Generate a galvanostatic cycling trace: constant-current charge and discharge
halves with optional rests, a rest tail, capacity fade and current noise.

The trace is deterministic for a given --seed. The format follows the extension of
--output-file (.csv or .parquet); without a file, CSV goes to stdout.

Examples:
  # Ten default cycles as CSV on stdout
  galvano simulate

  # A fading, noisy cell for benchmarks
  galvano simulate --cycles 500 --fade 0.001 --noise 0.0002 --output-file fade.parquet`,
	Args: cobra.NoArgs,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return loadConfigFile()
	},
	Run: func(_ *cobra.Command, _ []string) {
		wave := source.DefaultSquareWave()
		wave.Cycles = viper.GetInt("cycles")
		wave.HalfPeriod = viper.GetFloat64("half-period")
		wave.RestPeriod = viper.GetFloat64("rest-period")
		wave.Step = viper.GetFloat64("step")
		wave.Current = viper.GetFloat64("current")
		wave.Fade = viper.GetFloat64("fade")
		wave.Noise = viper.GetFloat64("noise")
		wave.Seed = viper.GetUint64("seed")

		if err := core.ExecuteSimulate(rootCtx, wave, viper.GetString("output-file"), os.Stdout); err != nil {
			contract.LogFatal("Cannot simulate trace", err)
		}
	},
}
