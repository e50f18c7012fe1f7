package core

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/huangsam/galvano/internal/parquet"
	"github.com/huangsam/galvano/internal/source"
)

// ExecuteSimulate writes a synthetic square-wave trace. The format follows the
// extension of outputFile; without a file the trace goes to out as CSV.
func ExecuteSimulate(ctx context.Context, wave source.SquareWave, outputFile string, out io.Writer) error {
	if err := wave.Validate(); err != nil {
		return fmt.Errorf("invalid wave: %w", err)
	}
	if outputFile == "" {
		_, err := source.WriteCSV(ctx, out, source.NewGenerator(wave))
		return err
	}

	format, err := source.DetectFormat(outputFile)
	if err != nil {
		return err
	}

	var n int
	switch format {
	case source.FormatParquet:
		samples := wave.Samples()
		rows := make([]parquet.Sample, len(samples))
		for i, s := range samples {
			rows[i] = parquet.FromSample(s)
		}
		if err := parquet.WriteSamplesParquet(rows, outputFile); err != nil {
			return err
		}
		n = len(rows)
	default:
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		n, err = source.WriteCSV(ctx, f, source.NewGenerator(wave))
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}
	_, _ = fmt.Fprintf(out, "Wrote %d samples (%d cycles) to %s\n", n, wave.Cycles, outputFile)
	return nil
}
