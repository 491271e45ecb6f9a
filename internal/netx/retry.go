// Package netx implements the outbound HTTP call policy shared by the OCR and
// pattern-analysis clients: POST a JSON payload, retry transient failures
// with capped exponential backoff, and report exhaustion separately from a
// hard rejection.
package netx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/shieldauth/internal/common"
	"github.com/dmitrijs2005/shieldauth/internal/logging"
	"github.com/sethvargo/go-retry"
)

// MaxResponseSize bounds how much of an upstream body is read.
const MaxResponseSize = 8 << 20

// Policy describes how a single logical call is attempted.
type Policy struct {
	// BaseDelay is the wait after the first failed attempt; it doubles after each further failure.
	BaseDelay time.Duration
	// MaxDelay caps the wait between attempts.
	MaxDelay time.Duration
	// MaxAttempts counts the first try. Values below 1 mean 1.
	MaxAttempts int
	// Timeout bounds each attempt. Zero disables the per-attempt deadline.
	Timeout time.Duration
}

// DefaultPolicy waits 1s, 2s, 4s, 8s between five attempts, never more than 60s.
func DefaultPolicy(timeout time.Duration) Policy {
	return Policy{
		BaseDelay:   time.Second,
		MaxDelay:    60 * time.Second,
		MaxAttempts: 5,
		Timeout:     timeout,
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) backoff() retry.Backoff {
	b := retry.NewExponential(p.BaseDelay)
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	return retry.WithMaxRetries(uint64(p.attempts()-1), b)
}

// Response is a successful (2xx) upstream answer.
type Response struct {
	Status   int
	Body     []byte
	Attempts int
}

// RetryExhaustedError reports that every attempt failed transiently.
type RetryExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s (%d attempts): %v", common.ErrRetryExhausted, e.Attempts, e.Cause)
}

func (e *RetryExhaustedError) Unwrap() []error {
	return []error{common.ErrRetryExhausted, e.Cause}
}

// UpstreamRejectedError reports a non-retryable, non-2xx answer.
type UpstreamRejectedError struct {
	Status int
	Body   string
}

func (e *UpstreamRejectedError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", common.ErrUpstreamRejected, e.Status, e.Body)
}

func (e *UpstreamRejectedError) Unwrap() error {
	return common.ErrUpstreamRejected
}

// transientError marks a failure worth another attempt.
type transientError struct {
	status int
	err    error
}

func (e *transientError) Error() string {
	if e.status != 0 {
		return fmt.Sprintf("HTTP %d", e.status)
	}
	if errors.Is(e.err, context.DeadlineExceeded) {
		return "timeout"
	}
	return fmt.Sprintf("request failed: %v", e.err)
}

func (e *transientError) Unwrap() error { return e.err }

// Caller executes requests under a Policy. It is safe for concurrent use.
type Caller struct {
	client *http.Client
	policy Policy
	logger logging.Logger
}

// NewCaller builds a Caller. A nil client means http.DefaultClient.
func NewCaller(client *http.Client, policy Policy, logger logging.Logger) *Caller {
	if client == nil {
		client = http.DefaultClient
	}
	return &Caller{client: client, policy: policy, logger: logger.With("module", "netx")}
}

// PostJSON marshals payload and POSTs it to url under the caller's policy.
//
// 429, 503, per-attempt timeouts and transport failures are retried. Any other
// non-2xx status ends the call with *UpstreamRejectedError. Running out of
// attempts yields *RetryExhaustedError. Cancelling ctx stops immediately and
// returns ctx.Err().
func (c *Caller) PostJSON(ctx context.Context, url string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var (
		attempts int
		result   *Response
	)

	err = retry.Do(ctx, c.policy.backoff(), func(ctx context.Context) error {
		attempts++
		resp, err := c.attempt(ctx, url, body)
		if err == nil {
			result = resp
			return nil
		}

		var te *transientError
		if errors.As(err, &te) {
			c.logger.Warn(ctx, "upstream call failed, will retry if attempts remain",
				"attempt", attempts, "max_attempts", c.policy.attempts(), "reason", te.Error())
			return retry.RetryableError(err)
		}
		return err
	})

	if err == nil {
		result.Attempts = attempts
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var te *transientError
	if errors.As(err, &te) {
		return nil, &RetryExhaustedError{Attempts: attempts, Cause: te}
	}
	return nil, err
}

func (c *Caller) attempt(ctx context.Context, url string, body []byte) (*Response, error) {
	attemptCtx := ctx
	if c.policy.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.policy.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &transientError{err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, MaxResponseSize))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &transientError{err: err}
	}

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return &Response{Status: res.StatusCode, Body: data}, nil
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode == http.StatusServiceUnavailable:
		return nil, &transientError{status: res.StatusCode}
	default:
		return nil, &UpstreamRejectedError{Status: res.StatusCode, Body: truncate(string(data), 512)}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
