package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/galvano/schema"
)

// Cycle label constants.
const (
	StableValue   = "Stable"   // Stable value
	FairValue     = "Fair"     // Fair value
	FadingValue   = "Fading"   // Fading value
	DegradedValue = "Degraded" // Degraded value
	PartialValue  = "Partial"  // Partial value
)

// Color variables for console output.
var (
	StableColor   = color.New(color.FgGreen)              // StableColor represents a healthy cycle.
	FairColor     = color.New(color.FgCyan)               // FairColor represents minor losses.
	FadingColor   = color.New(color.FgYellow, color.Bold) // FadingColor represents noticeable losses.
	DegradedColor = color.New(color.FgRed, color.Bold)    // DegradedColor represents standard danger.
	PartialColor  = color.New(color.FgMagenta)            // PartialColor marks incomplete cycles.
)

// GetColorLabel returns a colored text label for console output (table).
// It uses schema.GetPlainLabel to determine the string, and then applies the appropriate color.
func GetColorLabel(r schema.CycleRecord) string {
	text := schema.GetPlainLabel(r)

	switch text {
	case StableValue:
		return StableColor.Sprint(text)
	case FairValue:
		return FairColor.Sprint(text)
	case FadingValue:
		return FadingColor.Sprint(text)
	case DegradedValue:
		return DegradedColor.Sprint(text)
	case PartialValue:
		return PartialColor.Sprint(text)
	default:
		return text
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetRunsDBFilePath returns the path to the SQLite DB file for run storage.
func GetRunsDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".galvano_runs.db"
	}
	return filepath.Join(homeDir, ".galvano_runs.db")
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to ensure there's space for both the "..." prefix and at least one character of content.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
