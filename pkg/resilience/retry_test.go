package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/errors"
)

var fast = RetryConfig{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "op", fast, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("Retry() = %v after %d calls, want nil after 3", err, calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	transient := errors.New("transient")
	err := Retry(context.Background(), "op", fast, func(context.Context) error {
		calls++
		return transient
	})
	if !errors.Is(err, transient) || calls != fast.MaxAttempts {
		t.Errorf("Retry() = %v after %d calls", err, calls)
	}
}

func TestRetryStopsOnFatalError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "op", fast, func(context.Context) error {
		calls++
		return apperrors.New(apperrors.ErrCorruptSegment, "bad checksum")
	})
	if !apperrors.Is(err, apperrors.ErrCorruptSegment) || calls != 1 {
		t.Errorf("Retry() = %v after %d calls, want the fatal error after 1", err, calls)
	}
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour}
	err := Retry(ctx, "op", cfg, func(context.Context) error {
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() = %v, want context.Canceled", err)
	}
}

func TestComputeDelayIsCapped(t *testing.T) {
	cfg := RetryConfig{InitialDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2}.withDefaults()
	if d := computeDelay(10, cfg); d != 3*time.Second {
		t.Errorf("computeDelay(10) = %v, want 3s", d)
	}
}
