package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineUnavailable is returned when the encoder binary cannot be resolved.
	ErrEngineUnavailable = errors.New("encoder unavailable")

	// ErrEngineFailure is returned when the encoder exits nonzero or the job's
	// output could not be prepared.
	ErrEngineFailure = errors.New("encoder failed")

	// ErrEngineTimeout is returned when the encoder exceeds its time bound and
	// is killed.
	ErrEngineTimeout = errors.New("encoder timed out")

	// ErrCatalogWrite is returned when media was produced but the catalog
	// append did not complete.
	ErrCatalogWrite = errors.New("catalog write failed")

	// ErrJobNotFound is returned for unknown or already reported asset ids.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidSource is returned by SubmitJob when the source is not a
	// readable regular file.
	ErrInvalidSource = errors.New("invalid source file")
)

// JobError is the terminal failure of a job. Kind is one of the Err* sentinels
// above; errors.Is matches both Kind and the underlying Err.
type JobError struct {
	Kind   error
	Detail string
	Err    error
}

func (e *JobError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *JobError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName returns a stable label for err's failure kind, or "" for nil.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEngineUnavailable):
		return "engine_unavailable"
	case errors.Is(err, ErrEngineTimeout):
		return "engine_timeout"
	case errors.Is(err, ErrEngineFailure):
		return "engine_failure"
	case errors.Is(err, ErrCatalogWrite):
		return "catalog_write"
	default:
		return "other"
	}
}
