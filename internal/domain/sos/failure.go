package sos

import (
	"context"
	"errors"
)

// LocationFailure classifies why a position could not be obtained.
type LocationFailure int

// Location failures, ordered after the platform geolocation error codes.
const (
	// LocationFailureUnknown covers every code the platform does not document.
	LocationFailureUnknown LocationFailure = iota
	// LocationFailurePermissionDenied means the user or OS refused access.
	LocationFailurePermissionDenied
	// LocationFailurePositionUnavailable means no fix could be computed.
	LocationFailurePositionUnavailable
	// LocationFailureTimeout means the provider gave up waiting.
	LocationFailureTimeout
)

// FailureFromCode maps a platform geolocation error code to a failure.
// Codes 1, 2 and 3 are permission denied, position unavailable and timeout.
func FailureFromCode(code int) LocationFailure {
	switch code {
	case 1:
		return LocationFailurePermissionDenied
	case 2:
		return LocationFailurePositionUnavailable
	case 3:
		return LocationFailureTimeout
	default:
		return LocationFailureUnknown
	}
}

// Code returns the platform error code, 0 for unknown failures.
func (f LocationFailure) Code() int {
	return int(f)
}

// String returns the machine-readable failure name.
func (f LocationFailure) String() string {
	switch f {
	case LocationFailurePermissionDenied:
		return "permission_denied"
	case LocationFailurePositionUnavailable:
		return "position_unavailable"
	case LocationFailureTimeout:
		return "timeout"
	case LocationFailureUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Message returns the text shown to the user.
func (f LocationFailure) Message() string {
	switch f {
	case LocationFailurePermissionDenied:
		return "Location permission denied. Allow location access, or send the alert without your location."
	case LocationFailurePositionUnavailable:
		return "Your position is unavailable right now. Retry, or send the alert without your location."
	case LocationFailureTimeout:
		return "Finding your location took too long. Retry, or send the alert without your location."
	case LocationFailureUnknown:
		return "Location is unavailable. Retry, or send the alert without your location."
	default:
		return "Location is unavailable. Retry, or send the alert without your location."
	}
}

// LocationError is returned by location providers.
type LocationError struct {
	// Failure is the classified reason.
	Failure LocationFailure
	// Err is the underlying cause, may be nil.
	Err error
}

// NewLocationError wraps err with the given failure.
func NewLocationError(failure LocationFailure, err error) *LocationError {
	return &LocationError{Failure: failure, Err: err}
}

// Error implements error.
func (e *LocationError) Error() string {
	if e.Err == nil {
		return "location " + e.Failure.String()
	}

	return "location " + e.Failure.String() + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *LocationError) Unwrap() error {
	return e.Err
}

// ClassifyLocationError maps any provider error to a LocationFailure.
func ClassifyLocationError(err error) LocationFailure {
	var locErr *LocationError
	if errors.As(err, &locErr) {
		return locErr.Failure
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return LocationFailureTimeout
	}

	return LocationFailureUnknown
}

// DispatchError is an opaque failure to deliver an alert.
type DispatchError struct {
	// Err is the transport or backend error.
	Err error
}

// Error implements error.
func (e *DispatchError) Error() string {
	if e.Err == nil {
		return "alert dispatch failed"
	}

	return "alert dispatch failed: " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Message returns the text shown to the user after a failed dispatch.
func (e *DispatchError) Message() string {
	return "The alert could not be sent. Call your local emergency number directly now."
}
