package boff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errTest = errors.New("transient")

func TestRetryFixedSucceedsAfterFailures(t *testing.T) {
	calls := 0
	res, err := RetryFixed(context.Background(), func() (int, error) {
		calls++
		if calls <= 2 {
			return 0, errTest
		}
		return 42, nil
	}, "test", 3, time.Millisecond)

	require.NoError(t, err)
	require.Equal(t, 42, res)
	require.Equal(t, 3, calls)
}

func TestRetryFixedExhaustsBudget(t *testing.T) {
	calls := 0
	_, err := RetryFixed(context.Background(), func() (int, error) {
		calls++
		return 0, errTest
	}, "test", 3, time.Millisecond)

	require.ErrorIs(t, err, errTest)
	require.Equal(t, 3, calls)
}

func TestRetryFixedPermanentStops(t *testing.T) {
	errStop := errors.New("stop")

	for _, tries := range []int{1, 3} {
		calls := 0
		_, err := RetryFixed(context.Background(), func() (int, error) {
			calls++
			return 0, Permanent(errStop)
		}, "test", tries, time.Millisecond)

		require.Equal(t, errStop, err)
		require.Equal(t, 1, calls)
	}
}

func TestRetryNoReturn(t *testing.T) {
	calls := 0
	err := RetryNoReturn(context.Background(), func() error {
		calls++
		if calls == 1 {
			return errTest
		}
		return nil
	}, "test")

	require.NoError(t, err)
	require.Equal(t, 2, calls)
}
