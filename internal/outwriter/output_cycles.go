package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/huangsam/galvano/internal/contract"
	"github.com/huangsam/galvano/internal/parquet"
	"github.com/huangsam/galvano/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Display conversions for the text table. CSV, JSON and Parquet keep SI units.
const (
	asToMAh = 1 / 3.6 // A·s -> mAh
	jToMWh  = 1 / 3.6 // J -> mWh
	percent = 100.0
)

// maxSourceWidth bounds the source path shown under the table.
const maxSourceWidth = 60

// WriteCycleResults outputs the cycle records, dispatching based on the output format configured.
func WriteCycleResults(output *schema.AnalysisOutput, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCycleJSON(w, output, cfg.Summary)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCycleCSV(w, output.Records, fmtFloat, intFmt)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeCycleParquet(output, cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCycleTable(output, cfg, fmtFloat, intFmt, duration, w)
		}, "Wrote table")
	}
	return nil
}

// writeCycleTable generates and writes the human-readable table.
func writeCycleTable(output *schema.AnalysisOutput, cfg *contract.Config, fmtFloat func(float64) string, intFmt string, duration time.Duration, writer io.Writer) error {
	layout := getTableLayout(cfg)
	fmtMetric := metricFormatter(fmtFloat, "-")
	withMass := cfg.Engine.MassGrams > 0

	headers := []string{"Cycle", "Q chg (mAh)", "Q dis (mAh)", "CE (%)"}
	if layout >= standardLayout {
		headers = append(headers, "E chg (mWh)", "E dis (mWh)", "EE (%)", "t chg (s)", "t dis (s)")
	}
	if layout >= wideLayout {
		headers = append(headers, "V̄ chg (V)", "V̄ dis (V)", "Rest (s)")
		if withMass {
			headers = append(headers, "Q dis (mAh/g)", "E (Wh/kg)")
		}
	}
	headers = append(headers, "Label")

	table := tablewriter.NewWriter(writer)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(output.Records))
	for _, r := range output.Records {
		row := []string{
			fmt.Sprintf(intFmt, r.Index+1),
			fmtMetric(r.ChargeCapacity, asToMAh),
			fmtMetric(r.DischargeCapacity, asToMAh),
			fmtMetric(r.CoulombicEfficiency, percent),
		}
		if layout >= standardLayout {
			row = append(row,
				fmtMetric(r.EnergyCharge, jToMWh),
				fmtMetric(r.EnergyDischarge, jToMWh),
				fmtMetric(r.EnergyEfficiency, percent),
				fmtMetric(r.DurationCharge, 1),
				fmtMetric(r.DurationDischarge, 1),
			)
		}
		if layout >= wideLayout {
			row = append(row,
				fmtMetric(r.AvgVoltageCharge, 1),
				fmtMetric(r.AvgVoltageDischarge, 1),
				fmtFloat(r.RestDuration),
			)
			if withMass {
				row = append(row,
					fmtMetric(r.SpecificDischargeCapacity, 1),
					fmtMetric(r.EnergyDensity, 1),
				)
			}
		}
		label := schema.GetPlainLabel(r)
		if cfg.UseColors {
			label = contract.GetColorLabel(r)
		}
		data = append(data, append(row, label))
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if cfg.Summary {
		if err := writeSummaryTable(output.Summary, fmtFloat, writer); err != nil {
			return err
		}
	}

	stats := output.Stats
	if _, err := fmt.Fprintf(writer, "Found %d cycles (%d partial) in %d samples (%d skipped) from %s\n",
		stats.CyclesEmitted, stats.PartialCycles, stats.SamplesRead, stats.SamplesSkipped,
		contract.TruncatePath(output.SourcePath, maxSourceWidth)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(writer, "Analysis completed in %v with %d workers. Runs backend: %s\n",
		duration, cfg.Engine.Workers, cfg.RunsBackend); err != nil {
		return err
	}
	if output.RunID > 0 {
		if _, err := fmt.Fprintf(writer, "Recorded as run %d\n", output.RunID); err != nil {
			return err
		}
	}
	return nil
}

// writeSummaryTable prints the run summary as a two-column table.
func writeSummaryTable(sum schema.RunSummary, fmtFloat func(float64) string, writer io.Writer) error {
	fmtMetric := metricFormatter(fmtFloat, "-")
	table := tablewriter.NewWriter(writer)
	table.Header([]string{"Summary", "Value"})
	rows := [][]string{
		{"Cycles", strconv.Itoa(sum.Cycles)},
		{"Full / partial", fmt.Sprintf("%d / %d", sum.FullCycles, sum.PartialCycles)},
		{"Mean CE (%)", fmtMetric(sum.MeanCoulombicEfficiency, percent)},
		{"Std CE (%)", fmtMetric(sum.StdCoulombicEfficiency, percent)},
		{"Mean EE (%)", fmtMetric(sum.MeanEnergyEfficiency, percent)},
		{"First Q dis (mAh)", fmtMetric(sum.FirstDischargeCapacity, asToMAh)},
		{"Last Q dis (mAh)", fmtMetric(sum.LastDischargeCapacity, asToMAh)},
		{"Retention (%)", fmtMetric(sum.CapacityRetention, percent)},
		{"Cycled time (s)", fmtFloat(sum.TotalDuration)},
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// cycleCSVHeader lists the CSV columns in SI units.
var cycleCSVHeader = []string{
	"cycle",
	"start_time_s",
	"end_time_s",
	"charge_capacity_as",
	"discharge_capacity_as",
	"coulombic_efficiency",
	"energy_charge_j",
	"energy_discharge_j",
	"energy_efficiency",
	"avg_voltage_charge_v",
	"avg_voltage_discharge_v",
	"duration_charge_s",
	"duration_discharge_s",
	"rest_duration_s",
	"specific_charge_capacity_mah_g",
	"specific_discharge_capacity_mah_g",
	"energy_density_wh_kg",
	"power_density_w_kg",
	"partial",
	"label",
}

// writeCycleCSV writes one row per cycle. Undefined metrics are left empty.
func writeCycleCSV(w io.Writer, records []schema.CycleRecord, fmtFloat func(float64) string, intFmt string) error {
	fmtMetric := metricFormatter(fmtFloat, "")
	return writeCSVWithHeader(w, cycleCSVHeader, func(cw *csv.Writer) error {
		for _, r := range records {
			rec := []string{
				fmt.Sprintf(intFmt, r.Index),
				fmtFloat(r.StartTime),
				fmtFloat(r.EndTime),
				fmtMetric(r.ChargeCapacity, 1),
				fmtMetric(r.DischargeCapacity, 1),
				fmtMetric(r.CoulombicEfficiency, 1),
				fmtMetric(r.EnergyCharge, 1),
				fmtMetric(r.EnergyDischarge, 1),
				fmtMetric(r.EnergyEfficiency, 1),
				fmtMetric(r.AvgVoltageCharge, 1),
				fmtMetric(r.AvgVoltageDischarge, 1),
				fmtMetric(r.DurationCharge, 1),
				fmtMetric(r.DurationDischarge, 1),
				fmtFloat(r.RestDuration),
				fmtMetric(r.SpecificChargeCapacity, 1),
				fmtMetric(r.SpecificDischargeCapacity, 1),
				fmtMetric(r.EnergyDensity, 1),
				fmtMetric(r.PowerDensity, 1),
				strconv.FormatBool(r.Partial),
				schema.GetPlainLabel(r),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// jsonCycleOutput is the document written by the JSON output mode.
type jsonCycleOutput struct {
	Source  string                       `json:"source"`
	RunID   int64                        `json:"run_id,omitempty"`
	Cycles  []schema.EnrichedCycleRecord `json:"cycles"`
	Stats   schema.RunStats              `json:"stats"`
	Summary *schema.RunSummary           `json:"summary,omitempty"`
}

// writeCycleJSON writes labelled cycles and run stats, plus the summary when asked.
func writeCycleJSON(w io.Writer, output *schema.AnalysisOutput, withSummary bool) error {
	doc := jsonCycleOutput{
		Source: output.SourcePath,
		RunID:  output.RunID,
		Cycles: schema.EnrichCycles(output.Records),
		Stats:  output.Stats,
	}
	if withSummary {
		sum := output.Summary
		doc.Summary = &sum
	}
	return writeJSON(w, doc)
}

// writeCycleParquet writes the cycles as a Parquet file. Parquet cannot go to stdout.
func writeCycleParquet(output *schema.AnalysisOutput, outputFile string) error {
	if outputFile == "" {
		return errors.New("parquet output requires --output-file")
	}
	rows := parquet.ConvertCycleRecords(output.RunID, output.Records)
	if err := parquet.WriteCyclesParquet(rows, outputFile); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stderr, "💾 Wrote Parquet to %s\n", outputFile)
	return nil
}
