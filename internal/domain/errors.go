package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNoCredential = errors.New("no credential stored for provider")
	ErrTokenExpired = errors.New("provider token expired")
	ErrUnsupported  = errors.New("operation not supported by provider")
)

// MalformedPayloadError is returned when a single provider item cannot be
// normalized. It never aborts the surrounding operation.
type MalformedPayloadError struct {
	Provider Provider
	Reason   string
	Err      error
}

func (e *MalformedPayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s payload: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed %s payload: %s", e.Provider, e.Reason)
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}

func Malformed(p Provider, reason string, err error) error {
	return &MalformedPayloadError{Provider: p, Reason: reason, Err: err}
}

func IsMalformed(err error) bool {
	var m *MalformedPayloadError
	return errors.As(err, &m)
}
