package retry

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/callmeahab/pharma-search-sub001/pkg/errors"
)

// Policy is the single retry configuration shared by the scrape runner's
// sequential second pass and per-item store operations. Call sites receive a
// Policy instead of hand-rolling attempt loops.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Default matches the store-operation defaults: three attempts with a short
// exponential backoff.
func Default() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 250 * time.Millisecond}
}

// Do runs fn, retrying with exponential backoff while the returned error is
// retryable per the error-code taxonomy. Validation and other non-retryable
// codes fail immediately.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}

	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(delay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if pkgerrors.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
