package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for input validation failures. These surface immediately
// to the caller; nothing retries them.
var (
	ErrInvalidVIN           = errors.New("VIN must be 17 characters")
	ErrMissingField         = errors.New("required field is missing")
	ErrYearOutOfRange       = errors.New("year out of range")
	ErrUnsupportedIssueType = errors.New("unsupported issue type")
)

// ErrNoData marks the logical "both endpoints succeeded but returned
// nothing" outcome, so callers can show "vehicle not found" rather than
// "service down".
var ErrNoData = errors.New("no recall or complaint data for this vehicle")

// InputError wraps a sentinel with the offending field and value.
type InputError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input: %s: %s (value=%q)", e.Field, e.Wrapped, e.Value)
}

func (e *InputError) Unwrap() error { return e.Wrapped }

// NewInputError creates an InputError.
func NewInputError(field, value string, wrapped error) *InputError {
	return &InputError{Field: field, Value: value, Wrapped: wrapped}
}

// RemoteError reports a failed upstream request: network failure, a
// non-success status after the retry budget, or an unparseable body. It
// carries the originating URL for context.
type RemoteError struct {
	URL    string
	Status int
	Msg    string
	Err    error
}

func (e *RemoteError) Error() string {
	s := "remote: " + e.Msg
	if e.Status != 0 {
		s = fmt.Sprintf("%s (status %d)", s, e.Status)
	}
	if e.URL != "" {
		s += "\nURL: " + e.URL
	}
	if e.Err != nil {
		s += "\n" + e.Err.Error()
	}
	return s
}

func (e *RemoteError) Unwrap() error { return e.Err }

// NewRemoteError creates a RemoteError.
func NewRemoteError(url, msg string, status int, err error) *RemoteError {
	return &RemoteError{URL: url, Msg: msg, Status: status, Err: err}
}

// IsInput reports whether err is an input validation failure.
func IsInput(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// IsRemote reports whether err is an upstream service failure.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
