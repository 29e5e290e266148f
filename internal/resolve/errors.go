package resolve

import (
	"errors"
	"fmt"
)

// Error represents a typed resolution failure.
//
// The codes separate "legitimately nobody is on call" (NO_COVERAGE_WINDOW)
// from "the configuration is broken" (CONFIGURATION_INVALID and friends).
// Callers branch on codes via the Is* helpers; nothing here retries.
type Error struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// RotationID identifies the affected rotation.
	RotationID string

	// Err is the underlying cause, if any (e.g. a cron parse error).
	Err error
}

// ErrorCode categorizes resolution errors.
type ErrorCode string

const (
	// ErrCodeConfigurationInvalid indicates required fields are missing
	// for the declared schedule type, or a cron expression / shift
	// config / timezone does not parse.
	ErrCodeConfigurationInvalid ErrorCode = "CONFIGURATION_INVALID"

	// ErrCodeNoActiveParticipants indicates the rotation has no
	// participant eligible at the queried instant.
	ErrCodeNoActiveParticipants ErrorCode = "NO_ACTIVE_PARTICIPANTS"

	// ErrCodeNotYetStarted indicates the queried instant precedes the
	// rotation's start date.
	ErrCodeNotYetStarted ErrorCode = "NOT_YET_STARTED"

	// ErrCodeNoCoverageWindow indicates a follow-the-sun rotation with
	// no window matching the queried instant. This is a legitimate
	// coverage gap, not broken configuration.
	ErrCodeNoCoverageWindow ErrorCode = "NO_COVERAGE_WINDOW"

	// ErrCodeRecursionLimitExceeded indicates escalation expansion hit
	// the delegation depth bound, i.e. a cyclic or pathologically deep
	// rotation_participant chain.
	ErrCodeRecursionLimitExceeded ErrorCode = "RECURSION_LIMIT_EXCEEDED"

	// ErrCodeRotationNotFound indicates the rotation id is unknown or
	// the rotation is deactivated.
	ErrCodeRotationNotFound ErrorCode = "ROTATION_NOT_FOUND"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.RotationID != "" {
		return fmt.Sprintf("%s: %s (rotation=%s)", e.Code, e.Message, e.RotationID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the error code from err, or "" if err is not a
// resolution error. Uses errors.As to handle wrapping.
func CodeOf(err error) ErrorCode {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsConfigurationInvalid reports whether err is a broken-configuration error.
func IsConfigurationInvalid(err error) bool {
	return CodeOf(err) == ErrCodeConfigurationInvalid
}

// IsNoCoverage reports whether err is a legitimate follow-the-sun
// coverage gap.
func IsNoCoverage(err error) bool {
	return CodeOf(err) == ErrCodeNoCoverageWindow
}

// IsNotYetStarted reports whether err signals a query before the
// rotation's start date.
func IsNotYetStarted(err error) bool {
	return CodeOf(err) == ErrCodeNotYetStarted
}

// IsRecursionLimit reports whether err signals an escalation chain
// that exceeded the delegation depth bound.
func IsRecursionLimit(err error) bool {
	return CodeOf(err) == ErrCodeRecursionLimitExceeded
}

func configInvalid(rotationID, msg string, cause error) *Error {
	return &Error{
		Code:       ErrCodeConfigurationInvalid,
		Message:    msg,
		RotationID: rotationID,
		Err:        cause,
	}
}

func noActiveParticipants(rotationID string) *Error {
	return &Error{
		Code:       ErrCodeNoActiveParticipants,
		Message:    "no active participants at the queried instant",
		RotationID: rotationID,
	}
}

func notYetStarted(rotationID string) *Error {
	return &Error{
		Code:       ErrCodeNotYetStarted,
		Message:    "queried instant precedes rotation_start_date",
		RotationID: rotationID,
	}
}

func noCoverageWindow(rotationID string) *Error {
	return &Error{
		Code:       ErrCodeNoCoverageWindow,
		Message:    "no timezone window covers the queried instant",
		RotationID: rotationID,
	}
}

func recursionLimit(rotationID string, depth int) *Error {
	return &Error{
		Code:       ErrCodeRecursionLimitExceeded,
		Message:    fmt.Sprintf("escalation delegation exceeded %d hops", depth),
		RotationID: rotationID,
	}
}

func rotationNotFound(rotationID string) *Error {
	return &Error{
		Code:       ErrCodeRotationNotFound,
		Message:    "rotation does not exist or is deactivated",
		RotationID: rotationID,
	}
}
