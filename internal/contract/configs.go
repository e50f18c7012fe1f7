package contract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/galvano/schema"
)

// Default values for configuration.
const (
	DefaultPrecision = 3
	MaxPrecision     = 6
	DefaultTimeCol   = "Time"
	DefaultVoltCol   = "Voltage"
	DefaultCurrCol   = "Current"
)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// ColumnConfig names the columns a tabular reader pulls samples from.
type ColumnConfig struct {
	Time    string
	Voltage string
	Current string
	Phase   string // optional step marker column, required by the tagged classifier
}

// Config holds the runtime configuration for an analysis.
// This struct remains the "final, validated" config.
type Config struct {
	InputPath  string
	Columns    ColumnConfig
	Engine     schema.EngineConfig
	Precision  int
	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	Summary    bool
	UseColors  bool
	Debug      bool

	RunsBackend   schema.DatabaseBackend
	RunsDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	InputPathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Precision     int    `mapstructure:"precision"`
	Output        string `mapstructure:"output"`
	OutputFile    string `mapstructure:"output-file"`
	Width         int    `mapstructure:"width"`
	Color         string `mapstructure:"color"`
	Debug         bool   `mapstructure:"debug"`
	RunsBackend   string `mapstructure:"runs-backend"`
	RunsDBConnect string `mapstructure:"runs-db-connect"`

	// --- Fields from analyzeCmd.Flags() ---
	Classifier      string  `mapstructure:"classifier"`
	NoiseThreshold  float64 `mapstructure:"noise-threshold"`
	Dwell           float64 `mapstructure:"dwell"`
	DwellUnit       string  `mapstructure:"dwell-unit"`
	RestTimeout     float64 `mapstructure:"rest-timeout"`
	Polarity        string  `mapstructure:"polarity"`
	MalformedPolicy string  `mapstructure:"malformed-policy"`
	RestMode        string  `mapstructure:"rest-mode"`
	Mass            float64 `mapstructure:"mass"`
	Workers         int     `mapstructure:"workers"`
	Summary         bool    `mapstructure:"summary"`

	TimeCol    string `mapstructure:"time-col"`
	VoltageCol string `mapstructure:"voltage-col"`
	CurrentCol string `mapstructure:"current-col"`
	PhaseCol   string `mapstructure:"phase-col"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := ProcessWithoutInput(cfg, input); err != nil {
		return err
	}
	return resolveInputPath(cfg, input)
}

// ProcessWithoutInput validates everything except the input file. The MCP server
// uses it because each tool call names its own file.
func ProcessWithoutInput(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processEngineConfig(cfg, input); err != nil {
		return err
	}
	return processColumns(cfg, input)
}

// RevalidateAnalyze re-checks a cloned config after per-request overrides.
func RevalidateAnalyze(cfg *Config, inputPath string) error {
	if err := cfg.Engine.Validate(); err != nil {
		return err
	}
	if cfg.Engine.Classifier == schema.TaggedClassifier && cfg.Columns.Phase == "" {
		return errors.New("the tagged classifier requires --phase-col")
	}
	return resolveInputPath(cfg, &ConfigRawInput{InputPathStr: inputPath})
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("runs-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("runs-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ValidateBackendConfig validates the run store backend and its connection string.
func ValidateBackendConfig(cfg *Config, backend, connStr string) error {
	cfg.RunsBackend = schema.DatabaseBackend(strings.ToLower(backend))
	if cfg.RunsBackend == "" {
		cfg.RunsBackend = schema.NoneBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.RunsBackend]; !ok {
		return fmt.Errorf("invalid runs backend '%s'. must be sqlite, mysql, postgresql, none", backend)
	}
	cfg.RunsDBConnect = connStr
	return ValidateDatabaseConnectionString(cfg.RunsBackend, cfg.RunsDBConnect)
}

// validateSimpleInputs processes and validates the presentation and storage fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Summary = input.Summary
	cfg.Debug = input.Debug

	// Parse color flag
	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. Precision and Output Validation ---
	if input.Precision < 0 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 0 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return errors.New("parquet output requires --output-file")
	}

	// --- 2. Backend Validation ---
	return ValidateBackendConfig(cfg, input.RunsBackend, input.RunsDBConnect)
}

// processEngineConfig builds and validates the engine parameters.
func processEngineConfig(cfg *Config, input *ConfigRawInput) error {
	ec := schema.EngineConfig{
		Classifier:      schema.ClassifierKind(strings.ToLower(input.Classifier)),
		NoiseThreshold:  input.NoiseThreshold,
		Dwell:           input.Dwell,
		DwellUnit:       schema.DwellUnit(strings.ToLower(input.DwellUnit)),
		RestTimeout:     input.RestTimeout,
		Polarity:        schema.Polarity(strings.ToLower(input.Polarity)),
		MalformedPolicy: schema.MalformedPolicy(strings.ToLower(input.MalformedPolicy)),
		RestMode:        schema.RestMode(strings.ToLower(input.RestMode)),
		MassGrams:       input.Mass,
		Workers:         input.Workers,
	}
	if err := ec.Validate(); err != nil {
		return err
	}
	cfg.Engine = ec
	return nil
}

// processColumns resolves the column names for tabular readers.
func processColumns(cfg *Config, input *ConfigRawInput) error {
	cfg.Columns = ColumnConfig{
		Time:    strings.TrimSpace(input.TimeCol),
		Voltage: strings.TrimSpace(input.VoltageCol),
		Current: strings.TrimSpace(input.CurrentCol),
		Phase:   strings.TrimSpace(input.PhaseCol),
	}
	if cfg.Columns.Time == "" {
		cfg.Columns.Time = DefaultTimeCol
	}
	if cfg.Columns.Voltage == "" {
		cfg.Columns.Voltage = DefaultVoltCol
	}
	if cfg.Columns.Current == "" {
		cfg.Columns.Current = DefaultCurrCol
	}
	if cfg.Engine.Classifier == schema.TaggedClassifier && cfg.Columns.Phase == "" {
		return errors.New("the tagged classifier requires --phase-col")
	}
	return nil
}

// resolveInputPath checks that the positional input file exists.
func resolveInputPath(cfg *Config, input *ConfigRawInput) error {
	if input.InputPathStr == "" {
		return errors.New("an input file is required")
	}
	absPath, err := filepath.Abs(input.InputPathStr)
	if err != nil {
		return err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("cannot read input %q: %w", input.InputPathStr, err)
	}
	if info.IsDir() {
		return fmt.Errorf("input %q is a directory", input.InputPathStr)
	}
	cfg.InputPath = absPath
	return nil
}

// ProcessProfilingConfig enables profiling when a file prefix is given.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) {
	profile.Prefix = strings.TrimSpace(profilePrefix)
	profile.Enabled = profile.Prefix != ""
}
