// This file contains helper functions for retrying operations.
// The idea is to avoid repetition with common retry boilerplate code.
package boff

import (
	"context"
	"errors"
	"evm-staking-indexer/config"
	"evm-staking-indexer/logger"
	"time"

	"github.com/cenkalti/backoff/v5"
)

func RetryWithMaxElapsed[T any](ctx context.Context, operation func() (T, error), name string) (T, error) {
	return retry(ctx, operation, name, config.BackoffMaxElapsedTime)
}

func Retry[T any](ctx context.Context, operation func() (T, error), name string) (T, error) {
	return retry(ctx, operation, name, 0) // 0 means no max elapsed time
}

func RetryNoReturn(ctx context.Context, operation func() error, name string) error {
	_, err := Retry(
		ctx,
		func() (struct{}, error) {
			return struct{}{}, operation()
		},
		name,
	)

	return err
}

// RetryFixed calls operation up to maxTries times, sleeping interval between
// attempts. An error wrapped with Permanent stops the loop and is returned
// unwrapped. When the budget is exhausted the last error is returned.
func RetryFixed[T any](
	ctx context.Context, operation func() (T, error), name string, maxTries int, interval time.Duration,
) (T, error) {
	if maxTries < 1 {
		maxTries = 1
	}

	res, err := backoff.Retry(
		ctx,
		operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(interval)),
		backoff.WithMaxTries(uint(maxTries)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(
			func(err error, d time.Duration) {
				logger.Debug("%s error: %s - retrying after %v", name, err, d)
			},
		),
	)

	// on the last attempt backoff returns the permanent wrapper as is
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return res, permanent.Unwrap()
	}

	return res, err
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func retry[T any](ctx context.Context, operation func() (T, error), name string, maxElapsedTime time.Duration) (T, error) {
	return backoff.Retry(
		ctx,
		operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(maxElapsedTime),
		backoff.WithNotify(
			func(err error, d time.Duration) {
				logger.Debug("%s error: %s - retrying after %v", name, err, d)
			},
		),
	)
}
