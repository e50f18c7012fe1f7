package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/galvano/schema"
)

// quoteTableName quotes a table name for the backend's SQL dialect.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	if backend == schema.MySQLBackend {
		return fmt.Sprintf("`%s`", name)
	}
	return fmt.Sprintf("%q", name)
}

// placeholder returns the n-th (1-based) bind parameter.
func placeholder(backend schema.DatabaseBackend, n int) string {
	if backend == schema.PostgreSQLBackend {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func placeholders(backend schema.DatabaseBackend, count int) string {
	out := make([]string, count)
	for i := range out {
		out[i] = placeholder(backend, i+1)
	}
	return strings.Join(out, ", ")
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	if backend == schema.SQLiteBackend {
		return t.Format(time.RFC3339Nano)
	}
	return t
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", s)
}

// timeDest scans a timestamp stored natively or as text.
type timeDest struct{ t *time.Time }

func (d timeDest) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d.t = v
	case string:
		t, err := parseTime(v)
		if err != nil {
			return err
		}
		*d.t = t
	case []byte:
		t, err := parseTime(string(v))
		if err != nil {
			return err
		}
		*d.t = t
	default:
		return fmt.Errorf("cannot scan %T into time", src)
	}
	return nil
}

// nullTimeDest is timeDest for nullable columns.
type nullTimeDest struct{ t *time.Time }

func (d *nullTimeDest) Scan(src any) error {
	if src == nil {
		d.t = nil
		return nil
	}
	var t time.Time
	if err := (timeDest{&t}).Scan(src); err != nil {
		return err
	}
	d.t = &t
	return nil
}

// createRunsQuery returns the CREATE TABLE query for galvano_runs.
func createRunsQuery(backend schema.DatabaseBackend) string {
	table := quoteTableName(RunsTable, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				source_path VARCHAR(1024) NOT NULL,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms INT,
				total_samples BIGINT,
				total_cycles INT,
				partial_cycles INT,
				config_params TEXT
			);
		`, table)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				source_path TEXT NOT NULL,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms INT,
				total_samples BIGINT,
				total_cycles INT,
				partial_cycles INT,
				config_params TEXT
			);
		`, table)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				source_path TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				total_samples INTEGER,
				total_cycles INTEGER,
				partial_cycles INTEGER,
				config_params TEXT
			);
		`, table)
	}
}

// createCyclesQuery returns the CREATE TABLE query for galvano_cycles.
// Metric columns are nullable; NULL marks an undefined metric.
func createCyclesQuery(backend schema.DatabaseBackend) string {
	table := quoteTableName(CyclesTable, backend)
	floatType, boolType, idType := "REAL", "INTEGER", "INTEGER"
	switch backend {
	case schema.MySQLBackend:
		floatType, boolType, idType = "DOUBLE", "BOOLEAN", "BIGINT"
	case schema.PostgreSQLBackend:
		floatType, boolType, idType = "DOUBLE PRECISION", "BOOLEAN", "BIGINT"
	}

	var cols strings.Builder
	for _, name := range cycleColumns {
		switch name {
		case "run_id":
			fmt.Fprintf(&cols, "\t\t\t\t%s %s NOT NULL,\n", name, idType)
		case "cycle_index":
			fmt.Fprintf(&cols, "\t\t\t\t%s INT NOT NULL,\n", name)
		case "start_time", "end_time", "rest_duration":
			fmt.Fprintf(&cols, "\t\t\t\t%s %s NOT NULL,\n", name, floatType)
		case "is_partial":
			fmt.Fprintf(&cols, "\t\t\t\t%s %s NOT NULL,\n", name, boolType)
		default:
			fmt.Fprintf(&cols, "\t\t\t\t%s %s,\n", name, floatType)
		}
	}
	return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
%s				PRIMARY KEY (run_id, cycle_index)
			);
		`, table, cols.String())
}
