// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/huangsam/galvano/internal/contract"
	"github.com/huangsam/galvano/schema"
)

// OutWriter renders analysis output in the format chosen by the config.
type OutWriter struct{}

var _ contract.OutputWriter = (*OutWriter)(nil) // Compile-time check

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteCycles prints cycle records using the configured output format.
func (ow *OutWriter) WriteCycles(output *schema.AnalysisOutput, cfg *contract.Config, duration time.Duration) error {
	return WriteCycleResults(output, cfg, duration)
}
