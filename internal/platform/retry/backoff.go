package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Backoff retries an operation with exponential backoff while Retryable
// accepts its error.
type Backoff struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Retryable       func(error) bool
	Logger          *slog.Logger
}

func New(maxAttempts int, initial time.Duration, retryable func(error) bool, logger *slog.Logger) Backoff {
	return Backoff{
		MaxAttempts:     maxAttempts,
		InitialInterval: initial,
		MaxInterval:     time.Second,
		Retryable:       retryable,
		Logger:          logger,
	}
}

func (b Backoff) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := b.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	policy := backoff.NewExponentialBackOff()
	if b.InitialInterval > 0 {
		policy.InitialInterval = b.InitialInterval
	}
	if b.MaxInterval > 0 {
		policy.MaxInterval = b.MaxInterval
	}
	policy.MaxElapsedTime = 0

	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return backoff.RetryNotify(
		func() error {
			err := op(ctx)
			if err == nil {
				return nil
			}
			if b.Retryable == nil || !b.Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(attempts-1)), ctx),
		func(err error, wait time.Duration) {
			logger.Warn("retrying transient failure",
				"event", "retry_backoff",
				"module", "internal/platform/retry",
				"layer", "platform",
				"wait", wait.String(),
				"error", err.Error(),
			)
		},
	)
}
