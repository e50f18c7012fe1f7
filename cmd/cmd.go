// Package cmd defines the command-line interface for galvano.
package cmd

import (
	"github.com/huangsam/galvano/internal/contract"
	"github.com/huangsam/galvano/internal/source"
	"github.com/huangsam/galvano/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("runs-backend", string(schema.NoneBackend), "Run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("runs-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Engine flags are shared by analyze and mcp; each binds its own set at PreRunE
	for _, c := range []*cobra.Command{analyzeCmd, mcpCmd} {
		c.Flags().String("classifier", string(schema.CurrentClassifier), "Phase classifier: current or tagged")
		c.Flags().Float64("noise-threshold", schema.DefaultNoiseThreshold, "Current magnitude in A at or below which a sample is quiet")
		c.Flags().Float64("dwell", schema.DefaultDwell, "Persistence required to confirm a charge/discharge transition")
		c.Flags().String("dwell-unit", string(schema.DwellSamples), "Unit of --dwell: samples or seconds")
		c.Flags().Float64("rest-timeout", schema.DefaultRestTimeout, "Seconds of quiet current before rest is confirmed")
		c.Flags().String("polarity", string(schema.ChargePositive), "Sign of charge current: charge_positive or charge_negative")
		c.Flags().String("malformed-policy", string(schema.AbortPolicy), "Malformed samples: abort or skip")
		c.Flags().String("rest-mode", string(schema.RestExclude), "Rest integrals: exclude or fold into the preceding phase")
		c.Flags().Float64("mass", 0, "Active material mass in grams for specific metrics (0 disables)")
		c.Flags().Int("workers", schema.DefaultWorkers, "Number of concurrent metric workers")
		c.Flags().Bool("summary", false, "Print the run summary after the cycles")
		c.Flags().String("time-col", contract.DefaultTimeCol, "Title of the time column")
		c.Flags().String("voltage-col", contract.DefaultVoltCol, "Title of the voltage column")
		c.Flags().String("current-col", contract.DefaultCurrCol, "Title of the current column")
		c.Flags().String("phase-col", "", "Title of the step marker column (tagged classifier)")
	}

	// Bind all flags of simulateCmd to Viper
	wave := source.DefaultSquareWave()
	simulateCmd.Flags().Int("cycles", wave.Cycles, "Number of charge/discharge pairs")
	simulateCmd.Flags().Float64("half-period", wave.HalfPeriod, "Seconds per charge or discharge half")
	simulateCmd.Flags().Float64("rest-period", wave.RestPeriod, "Seconds of rest after each half")
	simulateCmd.Flags().Float64("step", wave.Step, "Sampling interval in seconds")
	simulateCmd.Flags().Float64("current", wave.Current, "Charge current magnitude in A")
	simulateCmd.Flags().Float64("fade", wave.Fade, "Fractional loss of discharge current per cycle")
	simulateCmd.Flags().Float64("noise", wave.Noise, "Peak uniform current noise in A")
	simulateCmd.Flags().Uint64("seed", wave.Seed, "Random seed for the noise")
	if err := viper.BindPFlags(simulateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding simulate flags", err)
	}

	// Bind all flags of runsMigrateCmd to Viper
	runsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(runsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs migrate flags", err)
	}
}
