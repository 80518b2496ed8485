package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a provider failure.
type Kind int

const (
	// KindTransient covers network errors and retryable statuses. It is only
	// visible to callers through Unwrap of a KindUnavailable error.
	KindTransient Kind = iota
	// KindPermanent is a non-retryable status, a bad credential or an
	// undecodable response.
	KindPermanent
	// KindUnavailable means retries were exhausted or the breaker is open.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

type ProviderError struct {
	Err        error
	Provider   string
	Kind       Kind
	StatusCode int
	Attempts   int
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s provider error", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Permanent builds a non-retryable error for the named provider.
func Permanent(provider string, err error) error {
	return &ProviderError{Provider: provider, Kind: KindPermanent, Err: err}
}

func kindOf(err error) (Kind, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

func IsPermanent(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindPermanent
}

func IsUnavailable(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindUnavailable
}

// IsAuthFailure reports whether the provider rejected the credential.
func IsAuthFailure(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.StatusCode == http.StatusUnauthorized || pe.StatusCode == http.StatusForbidden
}
