// Package source provides sample readers that feed the segmentation engine.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/galvano/internal/contract"
	"github.com/huangsam/galvano/internal/parquet"
	"github.com/huangsam/galvano/schema"
	"go.uber.org/zap"
)

// Errors returned by Open before any sample is read.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNotFound          = errors.New("file not found")
	ErrEmpty             = errors.New("file is empty")
)

// Source is a closable sample source. Next returns io.EOF once exhausted.
type Source interface {
	Next(ctx context.Context) (schema.Sample, error)
	Close() error
}

// Format identifies a supported trace file type.
type Format string

// Supported formats.
const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// DetectFormat picks the reader for path by its extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".parquet", ".pq":
		return FormatParquet, nil
	}
	return "", fmt.Errorf("%w: %q (expected .csv or .parquet)", ErrUnsupportedFormat, filepath.Ext(path))
}

// Open opens a trace file and returns a streaming reader for it.
func Open(path string, cols contract.ColumnConfig, logger *zap.SugaredLogger) (Source, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}

	switch format {
	case FormatParquet:
		reader, err := parquet.OpenSampleReader(path)
		if err != nil {
			return nil, err
		}
		return reader, nil
	default:
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		reader, err := NewCSVReader(file, cols, logger)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		reader.closer = file
		return reader, nil
	}
}
