package errors

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// ErrContentNotFound is returned when a content id is not in the library.
var ErrContentNotFound = errors.New("content not found")

// ErrInvalidLocation is returned for coordinates outside the valid range.
var ErrInvalidLocation = errors.New("invalid location")

// TransientError represents an error that can be retried
type TransientError struct {
	Err        error
	StatusCode int // HTTP status code if applicable
	Message    string
}

func (e *TransientError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError represents an error that should not be retried
type PermanentError struct {
	Err        error
	StatusCode int
	Message    string
}

func (e *PermanentError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("permanent error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// DegradedError marks a signal that fell back to its default. Signal names the
// source ("weather", "location").
type DegradedError struct {
	Err     error
	Signal  string
	Message string
}

func (e *DegradedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s degraded: %v", e.Signal, e.Err)
}

func (e *DegradedError) Unwrap() error {
	return e.Err
}

// InvariantViolation reports a broken internal postcondition. It is raised
// with panic, never returned to callers.
type InvariantViolation struct {
	Component string
	Detail    string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated in %s: %s", e.Component, e.Detail)
}

// Invariant panics with an InvariantViolation when ok is false.
func Invariant(ok bool, component, format string, args ...any) {
	if ok {
		return
	}
	panic(&InvariantViolation{Component: component, Detail: fmt.Sprintf(format, args...)})
}

// IsTransient checks if an error is retry-able
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return true
	}

	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return false
	}

	if isNetworkError(err) {
		return true
	}

	if isSyscallError(err) {
		return true
	}

	return false
}

// IsPermanent checks if an error is non-retry-able
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return true
	}

	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return false
	}

	if errors.Is(err, ErrContentNotFound) || errors.Is(err, ErrInvalidLocation) {
		return true
	}

	lowerErr := strings.ToLower(err.Error())
	for _, pattern := range []string{"not found", "invalid", "unauthorized", "forbidden", "bad request"} {
		if strings.Contains(lowerErr, pattern) {
			return true
		}
	}

	return false
}

// IsDegraded checks if an error allows degraded service
func IsDegraded(err error) bool {
	var degradedErr *DegradedError
	return errors.As(err, &degradedErr)
}

// FromHTTPStatus wraps a non-2xx provider response in the matching error kind.
func FromHTTPStatus(statusCode int, provider string) error {
	err := fmt.Errorf("%s returned status %d", provider, statusCode)
	if isTransientHTTPStatus(statusCode) {
		return &TransientError{Err: err, StatusCode: statusCode}
	}
	return &PermanentError{Err: err, StatusCode: statusCode}
}

// Helper functions

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"timeout",
		"deadline exceeded",
		"connection reset",
		"broken pipe",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

func isSyscallError(err error) bool {
	var syscallErr syscall.Errno
	if errors.As(err, &syscallErr) {
		switch syscallErr {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EPIPE,
			syscall.ETIMEDOUT, syscall.ENETUNREACH, syscall.EHOSTUNREACH:
			return true
		}
	}
	return false
}

func isTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// NewTransientError creates a new transient error
func NewTransientError(err error, message string) *TransientError {
	return &TransientError{Err: err, Message: message}
}

// NewPermanentError creates a new permanent error
func NewPermanentError(err error, message string) *PermanentError {
	return &PermanentError{Err: err, Message: message}
}

// NewDegradedError marks signal as running on defaults after err.
func NewDegradedError(signal string, err error) *DegradedError {
	return &DegradedError{Err: err, Signal: signal}
}
