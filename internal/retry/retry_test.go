package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturahq/ventura/internal/domain"
)

func newTestExecutor(threshold int, cooldown time.Duration) (*Executor, *[]time.Duration) {
	slept := []time.Duration{}
	e := NewExecutor(threshold, cooldown)
	e.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return e, &slept
}

var fastPolicy = Policy{
	MaxAttempts:       3,
	BaseDelay:         100 * time.Millisecond,
	BackoffMultiplier: 2,
	MaxDelay:          time.Second,
}

func TestDoReturnsFirstSuccess(t *testing.T) {
	e, slept := newTestExecutor(5, time.Minute)
	value, attempts, err := Do(context.Background(), e, ClassDatabase, fastPolicy, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, *slept)
}

func TestDoRetriesTransientUpToMaxAttempts(t *testing.T) {
	e, slept := newTestExecutor(5, time.Minute)
	calls := 0
	_, attempts, err := Do(context.Background(), e, ClassExternalAPI, fastPolicy, func(context.Context) (string, error) {
		calls++
		return "", domain.Unavailable("api down", nil)
	})
	require.Error(t, err)
	assert.Equal(t, fastPolicy.MaxAttempts, calls)
	assert.Equal(t, fastPolicy.MaxAttempts, attempts)
	typed, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeUnavailable, typed.Code)
	// Backoff between attempts only, never after the last one.
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *slept)
}

func TestDoBackoffCappedAtMaxDelay(t *testing.T) {
	e, slept := newTestExecutor(10, time.Minute)
	p := Policy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, BackoffMultiplier: 10, MaxDelay: 300 * time.Millisecond}
	_, _, err := Do(context.Background(), e, ClassExternalAPI, p, func(context.Context) (int, error) {
		return 0, domain.Timeout("slow", nil)
	})
	require.Error(t, err)
	for _, d := range *slept {
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestDoDoesNotRetryFatal(t *testing.T) {
	e, _ := newTestExecutor(5, time.Minute)
	calls := 0
	_, attempts, err := Do(context.Background(), e, ClassReasoning, fastPolicy, func(context.Context) (string, error) {
		calls++
		return "", domain.InvalidArgument("malformed prompt")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, attempts)
}

func TestDoRecoversAfterTransientFailures(t *testing.T) {
	e, _ := newTestExecutor(5, time.Minute)
	calls := 0
	value, attempts, err := Do(context.Background(), e, ClassCache, fastPolicy, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", domain.Unavailable("cache miss path down", nil)
		}
		return "hit", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hit", value)
	assert.Equal(t, 3, attempts)
}

func TestBreakerOpensAfterThresholdAndFailsFast(t *testing.T) {
	e, _ := newTestExecutor(2, time.Minute)
	fail := func(context.Context) (int, error) { return 0, domain.Unavailable("down", nil) }

	for i := 0; i < 2; i++ {
		_, _, err := Do(context.Background(), e, ClassReasoning, fastPolicy, fail)
		require.Error(t, err)
	}
	assert.Equal(t, BreakerOpen, e.BreakerState(ClassReasoning))

	calls := 0
	_, attempts, err := Do(context.Background(), e, ClassReasoning, fastPolicy, func(context.Context) (int, error) {
		calls++
		return 0, nil
	})
	require.Error(t, err)
	assert.Equal(t, 0, calls, "open breaker must reject without invoking the operation")
	assert.Equal(t, 0, attempts)
	typed, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeUnavailable, typed.Code)
}

func TestBreakersAreIsolatedPerClass(t *testing.T) {
	e, _ := newTestExecutor(1, time.Minute)
	_, _, err := Do(context.Background(), e, ClassReasoning, fastPolicy, func(context.Context) (int, error) {
		return 0, domain.Unavailable("down", nil)
	})
	require.Error(t, err)
	require.Equal(t, BreakerOpen, e.BreakerState(ClassReasoning))

	value, _, err := Do(context.Background(), e, ClassDatabase, fastPolicy, func(context.Context) (string, error) {
		return "db ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "db ok", value)
	assert.Equal(t, BreakerClosed, e.BreakerState(ClassDatabase))
}

func TestBreakerHalfOpenProbeClosesOnSuccess(t *testing.T) {
	e, _ := newTestExecutor(1, 30*time.Second)
	now := time.Now()
	e.now = func() time.Time { return now }

	_, _, err := Do(context.Background(), e, ClassExternalAPI, fastPolicy, func(context.Context) (int, error) {
		return 0, domain.Unavailable("down", nil)
	})
	require.Error(t, err)
	require.Equal(t, BreakerOpen, e.BreakerState(ClassExternalAPI))

	now = now.Add(31 * time.Second)
	value, _, err := Do(context.Background(), e, ClassExternalAPI, fastPolicy, func(context.Context) (string, error) {
		return "back", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "back", value)
	assert.Equal(t, BreakerClosed, e.BreakerState(ClassExternalAPI))
}

func TestBreakerHalfOpenProbeReopensOnFailure(t *testing.T) {
	e, _ := newTestExecutor(1, 30*time.Second)
	now := time.Now()
	e.now = func() time.Time { return now }

	fail := func(context.Context) (int, error) { return 0, domain.Unavailable("down", nil) }
	_, _, err := Do(context.Background(), e, ClassExternalAPI, fastPolicy, fail)
	require.Error(t, err)

	now = now.Add(31 * time.Second)
	_, _, err = Do(context.Background(), e, ClassExternalAPI, fastPolicy, fail)
	require.Error(t, err)
	assert.Equal(t, BreakerOpen, e.BreakerState(ClassExternalAPI))

	// Cooldown restarts from the failed probe.
	now = now.Add(10 * time.Second)
	_, attempts, err := Do(context.Background(), e, ClassExternalAPI, fastPolicy, fail)
	require.Error(t, err)
	assert.Equal(t, 0, attempts)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	e := NewExecutor(5, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	e.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}
	_, _, err := Do(ctx, e, ClassReasoning, fastPolicy, func(context.Context) (int, error) {
		calls++
		return 0, domain.Unavailable("down", nil)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	typed, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeTimeout, typed.Code)
}

func TestDoRejectsZeroAttemptPolicy(t *testing.T) {
	e, _ := newTestExecutor(5, time.Minute)
	_, _, err := Do(context.Background(), e, ClassCache, Policy{}, func(context.Context) (int, error) {
		return 1, nil
	})
	require.Error(t, err)
}
