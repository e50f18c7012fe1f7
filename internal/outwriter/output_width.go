package outwriter

import (
	"os"

	"github.com/huangsam/galvano/internal/contract"
	"golang.org/x/term"
)

// tableLayout selects how many cycle columns the text table shows.
type tableLayout int

const (
	compactLayout  tableLayout = iota // capacities and coulombic efficiency
	standardLayout                    // + energies, energy efficiency, durations
	wideLayout                        // + average voltages, rest, specific metrics
)

const (
	defaultTermWidth = 80 // conservative default for narrow terminals and CI
	standardMinWidth = 110
	wideMinWidth     = 160
)

// getTerminalWidth returns the --width override, the detected terminal width,
// or a conservative default.
func getTerminalWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	detected, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detected <= 0 {
		return defaultTermWidth
	}
	return detected
}

// getTableLayout picks the widest layout that fits the terminal.
func getTableLayout(cfg *contract.Config) tableLayout {
	width := getTerminalWidth(cfg)
	switch {
	case width >= wideMinWidth:
		return wideLayout
	case width >= standardMinWidth:
		return standardLayout
	default:
		return compactLayout
	}
}
