package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/huangsam/galvano/internal/contract"
	"github.com/huangsam/galvano/schema"
	"go.uber.org/zap"
)

// unitScale maps unit symbols onto SI multipliers.
var unitScale = map[string]float64{
	"":    1,
	"s":   1,
	"ms":  1e-3,
	"us":  1e-6,
	"µs":  1e-6,
	"min": 60,
	"h":   3600,
	"V":   1,
	"mV":  1e-3,
	"uV":  1e-6,
	"µV":  1e-6,
	"A":   1,
	"mA":  1e-3,
	"uA":  1e-6,
	"µA":  1e-6,
	"nA":  1e-9,
	"pA":  1e-12,
}

// ErrMissingColumn is returned when a required column is absent from the header.
var ErrMissingColumn = errors.New("missing column")

// SplitHeader splits a header cell such as "Current / mA" or "Time (s)" into
// its title and unit.
func SplitHeader(cell string) (title, unit string) {
	cell = strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
	if i := strings.LastIndex(cell, "/"); i >= 0 {
		return strings.TrimSpace(cell[:i]), strings.TrimSpace(cell[i+1:])
	}
	if strings.HasSuffix(cell, ")") {
		if i := strings.LastIndex(cell, "("); i > 0 {
			return strings.TrimSpace(cell[:i]), strings.TrimSpace(cell[i+1 : len(cell)-1])
		}
	}
	return cell, ""
}

type column struct {
	index int
	scale float64
}

// CSVReader streams samples from delimited text, one row at a time.
type CSVReader struct {
	r       *csv.Reader
	closer  io.Closer
	logger  *zap.SugaredLogger
	time    column
	voltage column
	current column
	phase   int // -1 when absent
	row     int
}

// NewCSVReader reads the header of r and resolves the configured columns.
func NewCSVReader(r io.Reader, cols contract.ColumnConfig, logger *zap.SugaredLogger) (*CSVReader, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	titles := make(map[string]int, len(header))
	units := make([]string, len(header))
	for i, cell := range header {
		title, unit := SplitHeader(cell)
		key := strings.ToLower(title)
		if _, dup := titles[key]; !dup {
			titles[key] = i
		}
		units[i] = unit
	}

	resolve := func(name string) (column, error) {
		i, ok := titles[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return column{}, fmt.Errorf("%w %q", ErrMissingColumn, name)
		}
		scale, known := unitScale[units[i]]
		if !known {
			logger.Warnw("Unknown unit, values are used as-is", "column", name, "unit", units[i])
			scale = 1
		}
		return column{index: i, scale: scale}, nil
	}

	reader := &CSVReader{r: cr, logger: logger, phase: -1}
	var errs []error
	if reader.time, err = resolve(cols.Time); err != nil {
		errs = append(errs, err)
	}
	if reader.voltage, err = resolve(cols.Voltage); err != nil {
		errs = append(errs, err)
	}
	if reader.current, err = resolve(cols.Current); err != nil {
		errs = append(errs, err)
	}
	if cols.Phase != "" {
		col, err := resolve(cols.Phase)
		if err != nil {
			errs = append(errs, err)
		}
		reader.phase = col.index
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return reader, nil
}

// Next returns the next row as a sample. Cells that do not parse as numbers
// become NaN so the engine's malformed-sample policy decides what happens.
func (c *CSVReader) Next(ctx context.Context) (schema.Sample, error) {
	if err := ctx.Err(); err != nil {
		return schema.Sample{}, err
	}
	record, err := c.r.Read()
	if errors.Is(err, io.EOF) {
		return schema.Sample{}, io.EOF
	}
	// ragged rows are tolerated; missing cells read as NaN
	if err != nil && !errors.Is(err, csv.ErrFieldCount) {
		return schema.Sample{}, fmt.Errorf("row %d: %w", c.row+1, err)
	}
	c.row++

	sample := schema.Sample{
		Time:    c.value(record, c.time),
		Voltage: c.value(record, c.voltage),
		Current: c.value(record, c.current),
	}
	if c.phase >= 0 && c.phase < len(record) {
		if p, ok := schema.ParsePhase(record[c.phase]); ok {
			sample.Tag = p
		}
	}
	return sample, nil
}

func (c *CSVReader) value(record []string, col column) float64 {
	if col.index >= len(record) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[col.index]), 64)
	if err != nil {
		c.logger.Debugw("Unparsable cell", "row", c.row, "column", col.index, "value", record[col.index])
		return math.NaN()
	}
	return v * col.scale
}

// Close releases the underlying file, if any.
func (c *CSVReader) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// CSVHeader is the header written by WriteCSV.
var CSVHeader = []string{"Time / s", "Voltage / V", "Current / A", "Phase"}

// WriteCSV drains src into w as unit-annotated CSV and returns the number of
// samples written.
func WriteCSV(ctx context.Context, w io.Writer, src Source) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, err
	}
	n := 0
	row := make([]string, len(CSVHeader))
	for {
		s, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, err
		}
		row[0] = strconv.FormatFloat(s.Time, 'g', -1, 64)
		row[1] = strconv.FormatFloat(s.Voltage, 'g', -1, 64)
		row[2] = strconv.FormatFloat(s.Current, 'g', -1, 64)
		row[3] = string(s.Tag)
		if err := cw.Write(row); err != nil {
			return n, err
		}
		n++
	}
	cw.Flush()
	return n, cw.Error()
}
