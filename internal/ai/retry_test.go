package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bedtime-server/internal/models"
)

type recordingNotifier struct {
	retries  []time.Duration
	failures []error
}

func (n *recordingNotifier) NotifyRetry(attempt int, delay time.Duration) {
	n.retries = append(n.retries, delay)
}

func (n *recordingNotifier) NotifyFailure(err error) {
	n.failures = append(n.failures, err)
}

func newTestExecutor(notifier RetryNotifier) (*Executor, *[]time.Duration) {
	executor := NewExecutor(DefaultRetryPolicy(), notifier)
	var slept []time.Duration
	executor.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return executor, &slept
}

func TestExecutor_RateLimitDelaySequence(t *testing.T) {
	notifier := &recordingNotifier{}
	executor, slept := newTestExecutor(notifier)

	calls := 0
	err := executor.Execute(context.Background(), func(context.Context) error {
		calls++
		return fmt.Errorf("%w: 429", models.ErrRateLimit)
	})

	require.ErrorIs(t, err, models.ErrRateLimit)
	// 1 первая попытка + 3 повтора
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, *slept)
	assert.Equal(t, *slept, notifier.retries)
	require.Len(t, notifier.failures, 1)
}

func TestExecutor_SucceedsAfterRetries(t *testing.T) {
	notifier := &recordingNotifier{}
	executor, slept := newTestExecutor(notifier)

	calls := 0
	err := executor.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return models.ErrRateLimit
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *slept)
	assert.Empty(t, notifier.failures)
}

func TestExecutor_NonRateLimitErrorIsNotRetried(t *testing.T) {
	notifier := &recordingNotifier{}
	executor, slept := newTestExecutor(notifier)

	calls := 0
	parseErr := fmt.Errorf("%w: failed to parse story format", models.ErrParse)
	err := executor.Execute(context.Background(), func(context.Context) error {
		calls++
		return parseErr
	})

	require.ErrorIs(t, err, models.ErrParse)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
	require.Len(t, notifier.failures, 1)
	assert.ErrorIs(t, notifier.failures[0], models.ErrParse)
}

func TestExecutor_ContextCancelStopsRetries(t *testing.T) {
	notifier := &recordingNotifier{}
	executor := NewExecutor(DefaultRetryPolicy(), notifier)
	executor.sleep = func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}

	calls := 0
	err := executor.Execute(context.Background(), func(context.Context) error {
		calls++
		return models.ErrRateLimit
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestExecutor_CountersAreIndependentAcrossCalls(t *testing.T) {
	executor, slept := newTestExecutor(nil)

	for i := 0; i < 2; i++ {
		err := executor.Execute(context.Background(), func(context.Context) error {
			return models.ErrRateLimit
		})
		require.Error(t, err)
	}

	// Каждый вызов начинает отсчёт заново
	assert.Equal(t, []time.Duration{
		2 * time.Second, 4 * time.Second, 8 * time.Second,
		2 * time.Second, 4 * time.Second, 8 * time.Second,
	}, *slept)
}

func TestRetryPolicy_Delay(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, BaseDelay: 2 * time.Second}
	assert.Equal(t, 2*time.Second, policy.Delay(1))
	assert.Equal(t, 4*time.Second, policy.Delay(2))
	assert.Equal(t, 8*time.Second, policy.Delay(3))
}

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	policy := DefaultRetryPolicy()
	assert.True(t, policy.ShouldRetry(1, models.ErrRateLimit))
	assert.True(t, policy.ShouldRetry(3, models.ErrRateLimit))
	assert.False(t, policy.ShouldRetry(4, models.ErrRateLimit))
	assert.False(t, policy.ShouldRetry(1, errors.New("boom")))
	assert.False(t, policy.ShouldRetry(1, models.ErrProvider))
}
