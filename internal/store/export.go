package store

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/galvano/internal/contract"
	"github.com/huangsam/galvano/internal/parquet"
	"github.com/huangsam/galvano/schema"
)

// Export writes every stored run and cycle to two Parquet files next to outputFile.
func Export(store contract.RunStore, outputFile string, out io.Writer) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get store status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run data found to export")
	}

	_, _ = fmt.Fprintf(out, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(out, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(out, "Total cycle records: %d\n", status.TotalCycles)

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	cycles, err := store.GetAllCycles()
	if err != nil {
		return fmt.Errorf("failed to retrieve cycles: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteRunsParquet(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Exported %d runs to: %s\n", len(runs), runsFile)

	cyclesFile := outputFile + ".cycles.parquet"
	if err := parquet.WriteCyclesParquet(parquet.ConvertCycleRows(cycles), cyclesFile); err != nil {
		return fmt.Errorf("failed to write cycles: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Exported %d cycle records to: %s\n", len(cycles), cyclesFile)
	return nil
}

// PrintStatus writes store status information to out.
func PrintStatus(out io.Writer, status schema.StoreStatus) {
	_, _ = fmt.Fprintf(out, "Run Store Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(out, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(out, "Total Runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		_, _ = fmt.Fprintf(out, "Last Run ID: %d\n", status.LastRunID)
		_, _ = fmt.Fprintf(out, "Last Run: %s\n", status.LastRunTime.Format("2006-01-02 15:04:05"))
		_, _ = fmt.Fprintf(out, "Oldest Run: %s\n", status.OldestRunTime.Format("2006-01-02 15:04:05"))
		_, _ = fmt.Fprintf(out, "Total Cycles: %d\n", status.TotalCycles)
	}
	_, _ = fmt.Fprintln(out, "Table Sizes:")
	for _, table := range []string{RunsTable, CyclesTable} {
		_, _ = fmt.Fprintf(out, "  %s: %d rows\n", table, status.TableSizes[table])
	}
}
