package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/huangsam/galvano/internal/contract"
	"github.com/huangsam/galvano/internal/log"
	"github.com/huangsam/galvano/internal/store"
	"github.com/huangsam/galvano/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// profile holds profiling configuration.
var profile = &contract.ProfileConfig{}

// runStore is the run history store, opened by the setup of commands that need it.
var runStore contract.RunStore

// startProfiling starts CPU profiling if enabled.
func startProfiling() error {
	if !profile.Enabled {
		return nil
	}
	cpuFile, err := os.Create(profile.Prefix + ".cpu.prof")
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		return fmt.Errorf("could not start CPU profiling: %w", err)
	}
	_, err = fmt.Fprintf(os.Stderr, "Profiling enabled. CPU profile: %s.cpu.prof, Memory profile: %s.mem.prof\n", profile.Prefix, profile.Prefix)
	return err
}

// stopProfiling stops profiling and writes the heap profile.
func stopProfiling() error {
	if !profile.Enabled {
		return nil
	}
	pprof.StopCPUProfile()

	memFile, err := os.Create(profile.Prefix + ".mem.prof")
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer func() { _ = memFile.Close() }()
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}
	_, err = fmt.Fprintf(os.Stderr, "Profiling complete. Use 'go tool pprof %s.cpu.prof' to analyze.\n", profile.Prefix)
	return err
}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "galvano",
	Short: "Segment battery charge/discharge traces into cycles.",
	Long: `Galvano streams voltage/current traces from battery cyclers and reports
capacity, energy and efficiencies for every charge/discharge cycle.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig sets config file locations, ENV handling and defaults.
func initConfig() {
	setConfigFile()

	viper.SetEnvPrefix("GALVANO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("color", "yes")
	viper.SetDefault("runs-backend", schema.NoneBackend)
	viper.SetDefault("runs-db-connect", "")
	viper.SetDefault("classifier", schema.CurrentClassifier)
	viper.SetDefault("noise-threshold", schema.DefaultNoiseThreshold)
	viper.SetDefault("dwell", schema.DefaultDwell)
	viper.SetDefault("dwell-unit", schema.DwellSamples)
	viper.SetDefault("rest-timeout", schema.DefaultRestTimeout)
	viper.SetDefault("polarity", schema.ChargePositive)
	viper.SetDefault("malformed-policy", schema.AbortPolicy)
	viper.SetDefault("rest-mode", schema.RestExclude)
	viper.SetDefault("workers", schema.DefaultWorkers)
}

// setConfigFile points viper at --config or the default .galvano.yaml locations.
func setConfigFile() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".galvano")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")
}

// loadConfigFile reads the config file if present. A missing file is fine.
func loadConfigFile() error {
	setConfigFile()
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// loadInput merges defaults, file, env and flags into input and starts logging.
func loadInput() error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := log.Init(input.Debug); err != nil {
		return err
	}

	contract.ProcessProfilingConfig(profile, viper.GetString("profile"))
	if err := startProfiling(); err != nil {
		return fmt.Errorf("failed to start profiling: %w", err)
	}
	return nil
}

// sharedSetup unmarshals config, runs validation and opens the run store.
func sharedSetup(_ context.Context, _ *cobra.Command, args []string) error {
	if err := loadInput(); err != nil {
		return err
	}

	// Positional arguments are not handled by Viper.
	if len(args) == 1 {
		input.InputPathStr = args[0]
	}

	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	return openRunStore()
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// openRunStore opens the configured run store. The none backend leaves it nil
// so analyses skip tracking entirely.
func openRunStore() error {
	if runStore != nil {
		_ = runStore.Close()
		runStore = nil
	}
	if cfg.RunsBackend == schema.NoneBackend {
		return nil
	}
	s, err := store.NewRunStore(cfg.RunsBackend, cfg.RunsDBConnect)
	if err != nil {
		return fmt.Errorf("failed to initialize run store: %w", err)
	}
	runStore = s
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Cleanup releases the run store, flushes logs and stops profiling.
func Cleanup() error {
	var errs []error
	if runStore != nil {
		errs = append(errs, runStore.Close())
		runStore = nil
	}
	log.Sync()
	errs = append(errs, stopProfiling())
	return errors.Join(errs...)
}
