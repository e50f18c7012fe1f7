package core

import (
	"errors"
	"fmt"

	"github.com/huangsam/galvano/schema"
)

// ErrorCode identifies a class of engine failure.
type ErrorCode string

const (
	CodeMalformedSample ErrorCode = "MALFORMED_SAMPLE"
	CodeSourceError     ErrorCode = "SOURCE_ERROR"
)

// Sentinels for errors.Is.
var (
	ErrMalformedSample = errors.New("malformed sample")
	ErrSource          = errors.New("sample source failed")
)

// MalformedSampleError reports a sample the engine cannot integrate.
// Under the skip policy it is passed to the malformed hook instead of ending the run.
type MalformedSampleError struct {
	Index  int64 // position of the sample in the source, starting at 0
	Sample schema.Sample
	Reason string
}

// Error implements the error interface.
func (e *MalformedSampleError) Error() string {
	return fmt.Sprintf("%s: sample %d (t=%g): %s", CodeMalformedSample, e.Index, e.Sample.Time, e.Reason)
}

// Is matches ErrMalformedSample.
func (e *MalformedSampleError) Is(target error) bool { return target == ErrMalformedSample }

// Code returns CodeMalformedSample.
func (e *MalformedSampleError) Code() ErrorCode { return CodeMalformedSample }

// SourceError wraps a failure of the sample source. It is always fatal.
type SourceError struct {
	Err error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", CodeSourceError, e.Err)
}

// Unwrap returns the source's error.
func (e *SourceError) Unwrap() error { return e.Err }

// Is matches ErrSource.
func (e *SourceError) Is(target error) bool { return target == ErrSource }

// Code returns CodeSourceError.
func (e *SourceError) Code() ErrorCode { return CodeSourceError }

// HasCode checks if err carries the given engine error code.
func HasCode(err error, code ErrorCode) bool {
	var coded interface{ Code() ErrorCode }
	if errors.As(err, &coded) {
		return coded.Code() == code
	}
	return false
}
