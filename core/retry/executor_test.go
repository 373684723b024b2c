package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingExecutor returns an executor whose sleeps are recorded instead of performed.
func recordingExecutor(policy Policy, r float64) (*Executor, *[]time.Duration) {
	var delays []time.Duration
	e := NewExecutor(policy, zap.NewNop())
	e.Sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	e.Rand = func() float64 { return r }
	return e, &delays
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{MaxAttempts: 6, BaseDelay: time.Second, MaxDelay: 10 * time.Second, Jitter: 0.1}

	tests := []struct {
		name       string
		attempt    int
		retryAfter time.Duration
		r          float64
		want       time.Duration
	}{
		{"First", 1, 0, 0, time.Second},
		{"Second", 2, 0, 0, 2 * time.Second},
		{"Third", 3, 0, 0, 4 * time.Second},
		{"Capped", 5, 0, 0, 10 * time.Second},
		{"FullJitter", 1, 0, 1, 1100 * time.Millisecond},
		{"HalfJitter", 2, 0, 0.5, 2100 * time.Millisecond},
		{"RetryAfterWins", 1, 5 * time.Second, 0, 5 * time.Second},
		{"BackoffWins", 3, time.Second, 0, 4 * time.Second},
		{"RetryAfterCapped", 1, time.Minute, 0, 10 * time.Second},
		{"JitterCapped", 1, 9500 * time.Millisecond, 1, 10 * time.Second},
		{"ZeroAttempt", 0, 0, 0, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Delay(tt.attempt, tt.retryAfter, tt.r))
		})
	}
}

func TestPolicy_BoundsNonDecreasing(t *testing.T) {
	p := DefaultPolicy()

	prevLo, prevHi := time.Duration(0), time.Duration(0)
	for attempt := 1; attempt <= 10; attempt++ {
		lo, hi := p.Bounds(attempt, 0)
		assert.LessOrEqual(t, lo, hi)
		assert.GreaterOrEqual(t, lo, prevLo, "attempt %d", attempt)
		assert.GreaterOrEqual(t, hi, prevHi, "attempt %d", attempt)
		assert.LessOrEqual(t, hi, p.MaxDelay)
		prevLo, prevHi = lo, hi
	}
}

func TestExecutor_RetriesServiceUnavailableToCeiling(t *testing.T) {
	policy := Policy{MaxAttempts: 4, BaseDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second, Jitter: 0.1}
	e, delays := recordingExecutor(policy, 0.5)

	unavailable := &StatusError{Op: "micropub.create", StatusCode: 503}
	calls := 0
	err := e.Run(context.Background(), "micropub.create", func(ctx context.Context) error {
		calls++
		return unavailable
	})

	assert.Same(t, unavailable, err)
	assert.Equal(t, policy.MaxAttempts, calls)
	require.Len(t, *delays, policy.MaxAttempts-1)
	for i := 1; i < len(*delays); i++ {
		assert.Greater(t, (*delays)[i], (*delays)[i-1])
	}
	assert.Equal(t, 105*time.Millisecond, (*delays)[0])
}

func TestExecutor_NeverRetriesUnauthorized(t *testing.T) {
	e, delays := recordingExecutor(DefaultPolicy(), 0)

	unauthorized := &StatusError{Op: "micropub.create", StatusCode: 401}
	calls := 0
	err := e.Run(context.Background(), "micropub.create", func(ctx context.Context) error {
		calls++
		return unauthorized
	})

	assert.Same(t, unauthorized, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
}

func TestExecutor_NeverRetriesData(t *testing.T) {
	e, delays := recordingExecutor(DefaultPolicy(), 0)

	calls := 0
	err := e.Run(context.Background(), "micropub.query", func(ctx context.Context) error {
		calls++
		return ErrMalformedResponse
	})

	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
}

func TestExecutor_HonoursRetryAfter(t *testing.T) {
	e, delays := recordingExecutor(Policy{MaxAttempts: 2, BaseDelay: time.Second, MaxDelay: time.Minute}, 0)

	calls := 0
	err := e.Run(context.Background(), "sheets.update", func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return &StatusError{StatusCode: 429, RetryAfter: 20 * time.Second}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{20 * time.Second}, *delays)
}

func TestDo_ReturnsValueAfterTransientFailure(t *testing.T) {
	e, delays := recordingExecutor(DefaultPolicy(), 0)

	calls := 0
	got, err := Do(context.Background(), e, "micropub.create", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection reset by peer")
		}
		return "https://example.com/2025/01/09/foo.html", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/2025/01/09/foo.html", got)
	assert.Len(t, *delays, 2)
}

func TestDo_StopsWhenContextCancelled(t *testing.T) {
	e := NewExecutor(Policy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Do(ctx, e, "micropub.delete", func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, &StatusError{StatusCode: 502}
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecutor_CustomClassifier(t *testing.T) {
	e, _ := recordingExecutor(Policy{MaxAttempts: 3}, 0)
	e.Classify = func(err error) Kind { return KindUnknown }

	calls := 0
	_ = e.Run(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return &StatusError{StatusCode: 503}
	})
	assert.Equal(t, 1, calls)
}
