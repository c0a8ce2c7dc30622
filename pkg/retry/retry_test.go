package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	pkgerrors "viewfilter/pkg/errors"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	var seen []int

	err := RetryWithCallback(context.Background(), fastPolicy(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	}, func(attempt int, err error, _ time.Duration) {
		seen = append(seen, attempt)
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")

	err := Retry(context.Background(), fastPolicy(), func() error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"wrapped fatal", NewFatalError(errors.New("bad input"))},
		{"not found app error", pkgerrors.ErrNotFound.WithDetail("view_id", "3")},
		{"validation app error", pkgerrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), fastPolicy(), func() error {
				calls++
				return tt.err
			})
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestRetryRetriesInternalAppError(t *testing.T) {
	calls := 0
	_ = Retry(context.Background(), fastPolicy(), func() error {
		calls++
		return pkgerrors.ErrServiceUnavailable
	})
	assert.Equal(t, 3, calls)
}

func TestPolicyDelay(t *testing.T) {
	p := Policy{InitialInterval: 10 * time.Millisecond, Multiplier: 2, MaxInterval: time.Second}
	assert.Equal(t, 10*time.Millisecond, p.Delay(1))
	assert.Equal(t, 40*time.Millisecond, p.Delay(3))
	assert.Equal(t, time.Second, p.Delay(20))
}
