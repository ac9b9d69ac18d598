package audit

import (
	"errors"
	"fmt"
)

// Error classes shared by every stage. Match with errors.Is.
var (
	// ErrMissingArtifact is returned when a required input file for a run does not exist.
	ErrMissingArtifact = errors.New("missing artifact")
	// ErrEmptyInput is returned when an artifact holds zero usable records.
	ErrEmptyInput = errors.New("empty input")
	// ErrMalformedRecord is returned when a single line or row fails to parse.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrInconsistentArtifacts is returned when the metrics table references a
	// question the aggregate report does not contain.
	ErrInconsistentArtifacts = errors.New("inconsistent artifacts")
)

// MissingArtifactError names the artifact kind and the path that was expected.
type MissingArtifactError struct {
	Kind string
	Path string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("missing %s artifact: %s", e.Kind, e.Path)
}

// Is reports whether target is ErrMissingArtifact.
func (e *MissingArtifactError) Is(target error) bool {
	return target == ErrMissingArtifact
}

// MalformedRecordError pinpoints the line (1-based) that failed to parse.
type MalformedRecordError struct {
	Path string
	Line int
	Err  error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at %s:%d: %v", e.Path, e.Line, e.Err)
}

// Is reports whether target is ErrMalformedRecord.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// IsMissingArtifact returns true if err is or wraps a missing-artifact error.
func IsMissingArtifact(err error) bool {
	return errors.Is(err, ErrMissingArtifact)
}

// MissingPath extracts the expected path from a missing-artifact error, if any.
func MissingPath(err error) (string, bool) {
	var missing *MissingArtifactError
	if errors.As(err, &missing) {
		return missing.Path, true
	}
	return "", false
}
