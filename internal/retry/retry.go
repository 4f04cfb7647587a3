// Package retry is the single chokepoint for calls that leave the process.
// Every reasoning, database, cache, and external API call runs through an
// Executor, which applies bounded exponential backoff and keeps one circuit
// breaker per dependency class.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/venturahq/ventura/internal/domain"
)

type Class string

const (
	ClassReasoning   Class = "reasoning"
	ClassDatabase    Class = "database"
	ClassCache       Class = "cache"
	ClassExternalAPI Class = "external_api"

	// ClassCompute audits in-process tool kernels. It gets its own breaker
	// so a misbehaving computation never shares state with real cache or
	// network dependencies.
	ClassCompute Class = "compute"
)

// Policy is immutable tuning for one kind of call. Share presets by value;
// never mutate one mid-flight.
type Policy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	BackoffMultiplier float64
	MaxDelay          time.Duration
	PerAttemptTimeout time.Duration
}

var (
	ReasoningPolicy = Policy{
		MaxAttempts:       3,
		BaseDelay:         500 * time.Millisecond,
		BackoffMultiplier: 2,
		MaxDelay:          8 * time.Second,
		PerAttemptTimeout: 120 * time.Second,
	}
	DatabasePolicy = Policy{
		MaxAttempts:       5,
		BaseDelay:         100 * time.Millisecond,
		BackoffMultiplier: 2,
		MaxDelay:          2 * time.Second,
		PerAttemptTimeout: 10 * time.Second,
	}
	CachePolicy = Policy{
		MaxAttempts:       2,
		BaseDelay:         50 * time.Millisecond,
		BackoffMultiplier: 2,
		MaxDelay:          200 * time.Millisecond,
		PerAttemptTimeout: time.Second,
	}
	ExternalAPIPolicy = Policy{
		MaxAttempts:       4,
		BaseDelay:         250 * time.Millisecond,
		BackoffMultiplier: 2,
		MaxDelay:          5 * time.Second,
		PerAttemptTimeout: 30 * time.Second,
	}
	ComputePolicy = Policy{
		MaxAttempts:       2,
		BaseDelay:         10 * time.Millisecond,
		BackoffMultiplier: 2,
		MaxDelay:          100 * time.Millisecond,
		PerAttemptTimeout: 5 * time.Second,
	}
)

func (p Policy) delay(attempt int) time.Duration {
	d := time.Duration(float64(p.BaseDelay) * pow(p.BackoffMultiplier, attempt))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func pow(base float64, exp int) float64 {
	out := 1.0
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}

// Executor owns one breaker per dependency class. A tripped reasoning
// breaker never blocks database calls.
type Executor struct {
	breakers *breakerSet

	// sleep is replaceable in tests so backoff does not slow the suite.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewExecutor(threshold int, cooldown time.Duration) *Executor {
	return &Executor{
		breakers: newBreakerSet(threshold, cooldown),
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

// BreakerState reports the breaker for one class, for health output.
func (e *Executor) BreakerState(class Class) BreakerState {
	return e.breakers.state(class, e.now())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs op under the class breaker and policy. It returns the value, the
// number of attempts actually made, and the final error. Fatal errors
// propagate on the first attempt; transient ones retry up to
// Policy.MaxAttempts with exponential backoff. A rejected call (breaker
// open) reports zero attempts and a domain.CodeUnavailable error.
func Do[T any](ctx context.Context, e *Executor, class Class, p Policy, op func(ctx context.Context) (T, error)) (T, int, error) {
	var zero T
	if p.MaxAttempts < 1 {
		return zero, 0, domain.InvalidArgument("retry policy needs at least one attempt")
	}
	if !e.breakers.allow(class, e.now()) {
		return zero, 0, domain.Unavailable(fmt.Sprintf("%s circuit open", class), nil)
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, attempt, domain.Timeout("call cancelled", err)
		}
		value, err := runAttempt(ctx, p, op)
		if err == nil {
			e.breakers.recordSuccess(class)
			return value, attempt + 1, nil
		}
		if !domain.IsTransient(err) {
			// A bad request does not mean the dependency is down; fatal
			// errors never count against the breaker.
			return zero, attempt + 1, err
		}
		lastErr = err
		if attempt+1 < p.MaxAttempts {
			if sleepErr := e.sleep(ctx, p.delay(attempt)); sleepErr != nil {
				return zero, attempt + 1, domain.Timeout("call cancelled during backoff", sleepErr)
			}
		}
	}
	e.breakers.recordFailure(class, e.now())
	return zero, p.MaxAttempts, lastErr
}

func runAttempt[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	if p.PerAttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.PerAttemptTimeout)
		defer cancel()
	}
	value, err := op(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		if _, ok := domain.AsAppError(err); !ok {
			err = domain.Timeout("attempt deadline exceeded", err)
		}
	}
	return value, err
}
