package errors

import (
	"errors"
	"fmt"
)

// TransportError wraps a network failure, timeout or unreachable server.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transport failure during %s", e.Op)
	}
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// ConcurrencyError reports that an exclusive lock is held by someone else.
type ConcurrencyError struct {
	Component  string
	InstanceID string
	Holder     string
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("%s instance %s is already in use", e.Component, e.InstanceID)
}

func NewConcurrencyError(component, instanceID, holder string) *ConcurrencyError {
	return &ConcurrencyError{Component: component, InstanceID: instanceID, Holder: holder}
}

// ContentParseError reports page or summary content that cannot be
// interpreted locally.
type ContentParseError struct {
	What    string
	Reasons []string
	Err     error
}

func (e *ContentParseError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("cannot parse %s: %v", e.What, e.Err)
	case len(e.Reasons) > 0:
		return fmt.Sprintf("cannot parse %s: %s", e.What, e.Reasons[0])
	default:
		return fmt.Sprintf("cannot parse %s", e.What)
	}
}

func (e *ContentParseError) Unwrap() error { return e.Err }

func NewContentParseError(what string, reasons []string, err error) *ContentParseError {
	return &ContentParseError{What: what, Reasons: reasons, Err: err}
}

// IsValidation reports whether err is a rejected-input error. These are
// never retried.
func IsValidation(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	var ves ValidationErrors
	return errors.As(err, &ves)
}

// IsTransport reports whether err is a transport failure that is not also a
// validation error.
func IsTransport(err error) bool {
	if IsValidation(err) {
		return false
	}
	var te *TransportError
	return errors.As(err, &te)
}

func IsConcurrency(err error) bool {
	var ce *ConcurrencyError
	return errors.As(err, &ce)
}

func IsContentParse(err error) bool {
	var pe *ContentParseError
	return errors.As(err, &pe)
}
