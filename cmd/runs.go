package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/galvano/internal/contract"
	"github.com/huangsam/galvano/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runsSetup loads the minimal configuration needed by the runs subcommands and
// opens the store. It skips input validation and engine parsing.
func runsSetup() error {
	if err := loadRunsBackend(); err != nil {
		return err
	}
	if err := openRunStore(); err != nil {
		return err
	}
	if runStore == nil {
		return fmt.Errorf("run history is disabled; set --runs-backend to sqlite, mysql or postgresql")
	}
	return nil
}

// loadRunsBackend reads and validates only the run store settings.
func loadRunsBackend() error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	if err := contract.ValidateBackendConfig(cfg, viper.GetString("runs-backend"), viper.GetString("runs-db-connect")); err != nil {
		return err
	}
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// runsSetupWrapper wraps runsSetup to provide PreRunE for runs commands.
func runsSetupWrapper(_ *cobra.Command, _ []string) error {
	return runsSetup()
}

// runsCmd focuses on run history management.
//
// Note: runs subcommands use minimal initialization (runsSetup) instead of the
// full sharedSetup, so no input file or engine flags are needed.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage the recorded run history and exports",
	Long: `Manage the history of analyze runs.

When --runs-backend is set, every analyze run stores:
- Run metadata (source file, timestamps, engine settings, sample and cycle counts)
- Every emitted cycle record, with undefined metrics stored as NULL

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, the default)

Subcommands:
  status  - Show run history statistics
  export  - Export runs and cycles to Parquet
  clear   - Remove all recorded runs
  migrate - Run database schema migrations

Examples:
  # Check the history stored in the default SQLite file
  galvano runs status --runs-backend sqlite

  # Export for analysis in pandas/DuckDB
  galvano runs export --runs-backend sqlite --output-file history`,
}

// runsStatusCmd shows run history status.
var runsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run history statistics and connection details",
	Long: `Show the backend, connection state, number of runs and cycles, the newest
and oldest run and the size of each table.

Examples:
  galvano runs status --runs-backend sqlite`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := runStore.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get run status", err)
		}
		store.PrintStatus(os.Stdout, status)
	},
}

// runsClearCmd clears the run history.
var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded runs and cycles",
	Long: `Delete all stored runs and their cycle records.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  # Export before clearing
  galvano runs export --runs-backend sqlite --output-file backup
  galvano runs clear --runs-backend sqlite`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := runStore.Clear(); err != nil {
			contract.LogFatal("Failed to clear run history", err)
		}
		fmt.Println("Run history cleared successfully.")
	},
}

// runsExportCmd exports the run history to Parquet files.
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the run history to Parquet for BI tools and analytics",
	Long: `Export all stored runs and cycles to two Parquet files:
<output-file>.runs.parquet and <output-file>.cycles.parquet.

Requires: --output-file parameter

Examples:
  galvano runs export --runs-backend sqlite --output-file history
  duckdb -c "SELECT run_id, avg(coulombic_efficiency) FROM read_parquet('history.cycles.parquet') GROUP BY 1"`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := store.Export(runStore, cfg.OutputFile, os.Stdout); err != nil {
			contract.LogFatal("Failed to export run history", err)
		}
	},
}

// runsMigrateCmd runs database migrations for the run store.
var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage schema versions of the run history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  galvano runs migrate --runs-backend sqlite

  # Roll back everything
  galvano runs migrate --runs-backend sqlite --target-version 0`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		// Migrations must run on a fresh database, so the store is not opened here.
		return loadRunsBackend()
	},
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := store.Migrate(cfg.RunsBackend, cfg.RunsDBConnect, targetVersion, os.Stdout); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
