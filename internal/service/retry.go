package service

import (
	"context"
	"errors"
	"time"

	"homestay-promo/internal/model"
	"homestay-promo/internal/repository"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// runner bounds every operation by a deadline and retries transactions
// aborted by a concurrent conflict. Domain errors end the loop at once.
type runner struct {
	maxRetries int
	timeout    time.Duration
	logger     zerolog.Logger
}

func newRunner(opts Options, logger zerolog.Logger) *runner {
	return &runner{
		maxRetries: opts.MaxRetries,
		timeout:    opts.OperationTimeout,
		logger:     logger,
	}
}

func (r *runner) newBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.maxRetries)), ctx)
}

// run executes fn until it succeeds, fails for a non-conflict reason or the
// retry budget is spent.
func (r *runner) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	attempt := 0
	err := backoff.RetryNotify(
		func() error {
			attempt++
			err := fn(ctx)
			if err == nil || errors.Is(err, repository.ErrConflict) {
				return err
			}
			return backoff.Permanent(err)
		},
		r.newBackOff(ctx),
		func(err error, next time.Duration) {
			r.logger.Debug().
				Err(err).
				Str("operation", op).
				Int("attempt", attempt).
				Dur("retry_in", next).
				Msg("transaction conflict, retrying")
		},
	)
	if err == nil {
		return nil
	}

	var domainErr *model.DomainError
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		r.logger.Warn().Err(err).Str("operation", op).Int("attempt", attempt).Msg("operation timed out")
		return model.ErrTimeout
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		// The caller went away; the transaction may still have committed.
		r.logger.Warn().Err(err).Str("operation", op).Int("attempt", attempt).Msg("operation cancelled by caller")
		return model.ErrTimeout
	case errors.Is(err, repository.ErrConflict):
		r.logger.Warn().Err(err).Str("operation", op).Int("attempts", attempt).Msg("giving up after repeated conflicts")
		return model.ErrConflictAborted
	}
	return err
}
