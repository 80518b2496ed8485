package httpclient

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cesargomez89/mediasync/internal/constants"
)

// RetryPolicy bounds automatic retries of transient failures.
type RetryPolicy struct {
	RetryableStatus []int
	Methods         []string
	MaxAttempts     int
	BaseInterval    time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy retries idempotent reads three times with a doubling
// one second backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: constants.DefaultRetryCount,
		RetryableStatus: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
		BaseInterval: constants.DefaultRetryBase,
		MaxInterval:  30 * time.Second,
		Methods:      []string{http.MethodGet, http.MethodHead, http.MethodOptions},
	}
}

// WithMethods returns a copy of the policy that also retries the given methods.
func (p RetryPolicy) WithMethods(methods ...string) RetryPolicy {
	out := p
	out.Methods = append(append([]string(nil), p.Methods...), methods...)
	return out
}

func (p RetryPolicy) retryableStatus(code int) bool {
	for _, c := range p.RetryableStatus {
		if c == code {
			return true
		}
	}
	return false
}

func (p RetryPolicy) allowsMethod(method string) bool {
	for _, m := range p.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// attemptsFor returns how many attempts a request with this method gets.
func (p RetryPolicy) attemptsFor(method string) int {
	if p.MaxAttempts < 1 || !p.allowsMethod(method) {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) newBackOff() *retryAfterBackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseInterval
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = p.MaxInterval
	if eb.MaxInterval < p.BaseInterval {
		eb.MaxInterval = p.BaseInterval
	}
	eb.MaxElapsedTime = 0
	eb.Reset()
	return &retryAfterBackOff{BackOff: eb}
}

// retryAfterBackOff lets a server supplied Retry-After stretch the next wait.
type retryAfterBackOff struct {
	backoff.BackOff
	retryAfter time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next != backoff.Stop && b.retryAfter > next {
		next = b.retryAfter
	}
	b.retryAfter = 0
	return next
}
