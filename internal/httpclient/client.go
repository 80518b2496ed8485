package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/cesargomez89/mediasync/internal/constants"
	"github.com/cesargomez89/mediasync/internal/logger"
	"github.com/cesargomez89/mediasync/internal/metrics"
)

// Options configures a provider Client. Zero values fall back to defaults.
type Options struct {
	HTTPClient        *http.Client
	Logger            *logger.Logger
	Policy            *RetryPolicy
	Name              string
	RequestsPerSecond float64
	Burst             int
	FailureThreshold  uint32
	BreakerTimeout    time.Duration
}

// Client wraps an http.Client to provide rate limiting, automatic retries
// and a circuit breaker for a single provider.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	logger     *logger.Logger
	name       string
	policy     RetryPolicy
}

// NewClient creates a new rate-limited, retrying HTTP client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		}
	}

	policy := DefaultRetryPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = constants.DefaultProviderRPS
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = constants.DefaultProviderBurst
	}

	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	log = log.WithComponent("httpclient").WithProvider(opts.Name)

	threshold := opts.FailureThreshold
	if threshold == 0 {
		threshold = constants.BreakerFailureThreshold
	}
	timeout := opts.BreakerTimeout
	if timeout == 0 {
		timeout = constants.BreakerTimeout
	}

	c := &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     log,
		name:       opts.Name,
		policy:     policy,
	}

	c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: constants.BreakerMaxRequests,
		Interval:    constants.BreakerInterval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("Circuit breaker state changed", "from", from.String(), "to", to.String())
			metrics.RecordBreakerState(name, from.String(), to.String())
		},
		// Rejections by the provider and caller cancellations do not mean
		// the provider is down.
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err) || errors.Is(err, context.Canceled)
		},
	})

	return c
}

// Name returns the provider name the client was built for.
func (c *Client) Name() string {
	return c.name
}

// Do executes an HTTP request with rate-limiting and retries. Only 2xx
// responses are returned; every other outcome is an error and the caller
// owns the returned body.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()
	req = req.WithContext(ctx)

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.doWithRetry(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = &ProviderError{Provider: c.name, Kind: KindUnavailable, Err: err}
	}

	metrics.RecordProviderRequest(c.name, outcome(err), time.Since(start))
	return resp, err
}

func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	maxAttempts := c.policy.attemptsFor(req.Method)
	bo := c.policy.newBackOff()

	var resp *http.Response
	attempt := 0
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return backoff.Permanent(err)
		}

		r, err := c.attempt(ctx, req, attempt, bo)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	notify := func(err error, wait time.Duration) {
		metrics.ProviderRetries.WithLabelValues(c.name).Inc()
		c.logger.Debug("Retrying provider request", "attempt", attempt, "wait", wait, "error", err)
	}

	// WithMaxRetries treats zero as unlimited.
	var b backoff.BackOff = &backoff.StopBackOff{}
	if maxAttempts > 1 {
		b = backoff.WithMaxRetries(bo, uint64(maxAttempts-1))
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, c.exhausted(err, attempt)
	}
	return resp, nil
}

// exhausted turns a transient error that ran out of attempts into an
// unavailable one.
func (c *Client) exhausted(err error, attempts int) error {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Kind == KindTransient {
		return &ProviderError{
			Provider:   c.name,
			Kind:       KindUnavailable,
			StatusCode: pe.StatusCode,
			Attempts:   attempts,
			Err:        pe.Err,
		}
	}
	return err
}

// StatusError classifies a status the provider reported inside a 2xx body,
// such as a GraphQL error. Statuses the retry policy covers are transient.
func (c *Client) StatusError(status int, err error) error {
	kind := KindPermanent
	if c.policy.retryableStatus(status) {
		kind = KindTransient
	}
	return &ProviderError{Provider: c.name, Kind: kind, StatusCode: status, Err: err}
}

// Retry runs op again with the client's backoff while it returns transient
// errors, up to the attempts the policy allows for method. Do already
// retries HTTP statuses; Retry is for failures detected after decoding.
func (c *Client) Retry(ctx context.Context, method string, op func() error) error {
	maxAttempts := c.policy.attemptsFor(method)
	attempt := 0
	run := func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if k, ok := kindOf(err); ok && k == KindTransient {
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		metrics.ProviderRetries.WithLabelValues(c.name).Inc()
		c.logger.Debug("Retrying provider response", "attempt", attempt, "wait", wait, "error", err)
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if maxAttempts > 1 {
		b = backoff.WithMaxRetries(c.policy.newBackOff(), uint64(maxAttempts-1))
	}
	if err := backoff.RetryNotify(run, backoff.WithContext(b, ctx), notify); err != nil {
		return c.exhausted(err, attempt)
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, req *http.Request, attempt int, bo *retryAfterBackOff) (*http.Response, error) {
	r, err := replayable(req, attempt)
	if err != nil {
		return nil, backoff.Permanent(&ProviderError{Provider: c.name, Kind: KindPermanent, Err: err})
	}

	resp, err := c.httpClient.Do(r)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, &ProviderError{Provider: c.name, Kind: KindTransient, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()

	statusErr := fmt.Errorf("unexpected status %s", resp.Status)
	if c.policy.retryableStatus(resp.StatusCode) {
		bo.retryAfter = parseRetryAfter(resp)
		return nil, &ProviderError{Provider: c.name, Kind: KindTransient, StatusCode: resp.StatusCode, Err: statusErr}
	}
	return nil, backoff.Permanent(&ProviderError{
		Provider:   c.name,
		Kind:       KindPermanent,
		StatusCode: resp.StatusCode,
		Attempts:   attempt,
		Err:        statusErr,
	})
}

// replayable returns a request whose body can be sent again on retries.
func replayable(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to replay request body: %w", err)
	}
	r := req.Clone(req.Context())
	r.Body = body
	return r, nil
}

// GetUnderlyingClient returns the underlying *http.Client.
func (c *Client) GetUnderlyingClient() *http.Client {
	return c.httpClient
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	if k, ok := kindOf(err); ok {
		return k.String()
	}
	return "transient"
}

// parseRetryAfter reads a Retry-After header and returns the duration to wait.
func parseRetryAfter(resp *http.Response) time.Duration {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(ra); err == nil {
		return time.Until(t)
	}
	return 0
}
