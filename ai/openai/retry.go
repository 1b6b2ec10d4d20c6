package openai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/poiesic/ragflow/core"
	"github.com/sethvargo/go-retry"
)

const retryJitter = 50 * time.Millisecond

// classify maps an external API failure onto the transient/fatal taxonomy.
// Rate limits, timeouts and 5xx responses are worth retrying; auth failures
// and malformed input are not.
func classify(service string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.Transient(service, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "429"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "status code: 5"),
		strings.Contains(msg, "unavailable"):
		return core.Transient(service, err)
	}
	return core.Fatal(service, err)
}

// withRetry runs fn with exponential backoff and jitter, bounded by the
// attempt budget. Each attempt carries its own hard timeout; exceeding it
// counts as a transient failure against the budget. Fatal errors abort
// immediately.
func withRetry(ctx context.Context, attempts int, baseDelay, callTimeout time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(
		uint64(attempts-1),
		retry.WithJitter(retryJitter, retry.NewExponential(baseDelay)),
	)
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		err := fn(callCtx)
		if err == nil {
			return nil
		}
		if core.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
