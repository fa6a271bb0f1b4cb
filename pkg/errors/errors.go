package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNoCredentials      = errors.New("no stored credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrStudentNotFound    = errors.New("student not found in journal")
	ErrNoData             = errors.New("no courses or grades found")
)

// TransportError covers network-level failures and malformed portal responses
// that are not a credential rejection. Callers use it to tell "server
// unreachable" apart from "bad password".
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("portal %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func NewTransportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// DateParseError marks a journal date cell that stayed invalid even after
// normalization. It affects a single cell, never a whole journal.
type DateParseError struct {
	Raw string
	Err error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("unparseable journal date %q: %v", e.Raw, e.Err)
}

func (e *DateParseError) Unwrap() error {
	return e.Err
}
