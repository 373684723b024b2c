package retry

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Executor runs operations under a Policy.
type Executor struct {
	// Policy bounds attempts and delays.
	Policy Policy
	// Classify decides whether a failure is retried. Defaults to Classify.
	Classify Classifier
	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Rand returns jitter samples in [0, 1). Defaults to math/rand/v2.
	Rand func() float64

	logger *zap.Logger
}

// NewExecutor creates an executor with the default classifier, sleeper and jitter source.
func NewExecutor(policy Policy, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		Policy:   policy,
		Classify: Classify,
		Sleep:    sleepContext,
		Rand:     rand.Float64,
		logger:   logger,
	}
}

// Run executes op with retries and returns its final error.
func (e *Executor) Run(ctx context.Context, name string, op func(ctx context.Context) error) error {
	_, err := Do(ctx, e, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// KindOf classifies err with the executor's classifier.
func (e *Executor) KindOf(err error) Kind {
	if e.Classify == nil {
		return Classify(err)
	}
	return e.Classify(err)
}

// Do executes op with retries and returns its result. On failure the error is
// the one op returned on its last attempt.
func Do[T any](ctx context.Context, e *Executor, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	maxAttempts := e.Policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				e.log().Info("Operation succeeded after retry",
					zap.String("operation", name),
					zap.Int("attempt", attempt),
				)
			}
			return result, nil
		}

		kind := e.KindOf(err)
		if !kind.Retryable() {
			e.log().Debug("Operation failed, not retryable",
				zap.String("operation", name),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			return zero, err
		}
		if attempt >= maxAttempts {
			e.log().Warn("Operation failed, retries exhausted",
				zap.String("operation", name),
				zap.String("kind", string(kind)),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, err
		}

		delay := e.Policy.Delay(attempt, RetryAfter(err), e.random())
		e.log().Warn("Operation failed, retrying",
			zap.String("operation", name),
			zap.String("kind", string(kind)),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
			return zero, err
		}
	}
}

func (e *Executor) log() *zap.Logger {
	if e.logger == nil {
		return zap.NewNop()
	}
	return e.logger
}

func (e *Executor) random() float64 {
	if e.Rand == nil {
		return rand.Float64()
	}
	return e.Rand()
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep == nil {
		return sleepContext(ctx, d)
	}
	return e.Sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
