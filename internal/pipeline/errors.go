package pipeline

import (
	"errors"
	"fmt"
)

// FailureKind classifies terminal job failures.
type FailureKind string

const (
	// FailureMalformedJob marks descriptors missing required fields,
	// detected before any side effect.
	FailureMalformedJob FailureKind = "malformed_job"
	// FailureDownload marks unreachable or empty source audio.
	FailureDownload FailureKind = "download_failure"
	// FailureModelInit marks a backend resource that failed to load.
	// Fatal to the triggering job, not to the process.
	FailureModelInit FailureKind = "model_init_failure"
	// FailureTranscription marks a backend error mid-run.
	FailureTranscription FailureKind = "transcription_failure"
	// FailureUpload marks a result that could not be persisted.
	FailureUpload FailureKind = "upload_failure"
)

// Error is a classified pipeline failure.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func failure(kind FailureKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func failuref(kind FailureKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Classify returns the failure kind of a pipeline error, or an empty kind
// for unclassified errors.
func Classify(err error) FailureKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
