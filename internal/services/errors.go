package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransientStorage marks artifact-store failures worth retrying with backoff.
	ErrTransientStorage = errors.New("transient storage error")
	// ErrTransientConnection marks database/connection failures that need
	// rollback and a reconnect probe before retrying.
	ErrTransientConnection = errors.New("transient connection error")
	// ErrWorkerUnavailable marks dispatch failures that degrade to a queued job.
	ErrWorkerUnavailable = errors.New("worker unavailable")
	// ErrValidation marks fatal input problems that must never be retried.
	ErrValidation = errors.New("validation error")
	// ErrPartialStage marks a stage where some chunks failed while sibling
	// artifacts were preserved.
	ErrPartialStage = errors.New("partial stage failure")
	// ErrUnknown marks unclassified fatal failures.
	ErrUnknown = errors.New("unknown error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrUnknown
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTransient reports whether an error belongs to a retryable class.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientStorage) || errors.Is(err, ErrTransientConnection)
}

// IsFatal reports whether an error must terminate the job without retry.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !IsTransient(err) && !errors.Is(err, ErrWorkerUnavailable)
}

// ErrorKind names the classification of an error for logs and diagnostics.
type ErrorKind string

const (
	KindTransientStorage    ErrorKind = "transient_storage"
	KindTransientConnection ErrorKind = "transient_connection"
	KindWorkerUnavailable   ErrorKind = "worker_unavailable"
	KindValidation          ErrorKind = "validation"
	KindPartialStage        ErrorKind = "partial_stage"
	KindUnknown             ErrorKind = "unknown"
)

// Kind extracts the sentinel classification of an error.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrTransientStorage):
		return KindTransientStorage
	case errors.Is(err, ErrTransientConnection):
		return KindTransientConnection
	case errors.Is(err, ErrWorkerUnavailable):
		return KindWorkerUnavailable
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrPartialStage):
		return KindPartialStage
	default:
		return KindUnknown
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
