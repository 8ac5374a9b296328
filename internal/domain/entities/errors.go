package entities

import (
	"errors"
	"fmt"
)

// FailureKind classifies a failed generation call.
type FailureKind string

const (
	FailureTimeout         FailureKind = "timeout"
	FailureConnection      FailureKind = "connection_failure"
	FailureBadStatus       FailureKind = "bad_status"
	FailureInvalidResponse FailureKind = "invalid_response"
	FailureCanceled        FailureKind = "canceled"
	FailureUnknown         FailureKind = "generation_failed"
)

// GenerationError is the only error type a generation backend returns.
// Transport errors are translated into it at the adapter boundary.
type GenerationError struct {
	Kind       FailureKind
	StatusCode int // Set for FailureBadStatus
	Err        error
}

func (e *GenerationError) Error() string {
	switch {
	case e.Kind == FailureBadStatus:
		return fmt.Sprintf("generation %s (%d): %v", e.Kind, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("generation %s: %v", e.Kind, e.Err)
	}
	return "generation " + string(e.Kind)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// NewTimeoutError wraps err as a timeout failure.
func NewTimeoutError(err error) *GenerationError {
	return &GenerationError{Kind: FailureTimeout, Err: err}
}

// NewConnectionError wraps err as a connection failure.
func NewConnectionError(err error) *GenerationError {
	return &GenerationError{Kind: FailureConnection, Err: err}
}

// NewCanceledError reports a call abandoned because the caller went away.
func NewCanceledError(err error) *GenerationError {
	return &GenerationError{Kind: FailureCanceled, Err: err}
}

// NewBadStatusError reports a non-success HTTP status.
func NewBadStatusError(code int, body string) *GenerationError {
	return &GenerationError{Kind: FailureBadStatus, StatusCode: code, Err: errors.New(body)}
}

// NewInvalidResponseError reports a 2xx response that could not be used.
func NewInvalidResponseError(err error) *GenerationError {
	return &GenerationError{Kind: FailureInvalidResponse, Err: err}
}

// ClassifyFailure extracts the failure kind and status code from err.
func ClassifyFailure(err error) (FailureKind, int) {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind, genErr.StatusCode
	}
	return FailureUnknown, 0
}
