package transfer

import (
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/yndnr/ordguard-go/internal/core/domain"
)

func TestDefaultClassifier(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"econnreset", syscall.ECONNRESET, true},
		{"econnaborted", syscall.ECONNABORTED, true},
		{"eintr", syscall.EINTR, true},
		{"eagain", syscall.EAGAIN, true},
		{"etimedout", syscall.ETIMEDOUT, true},
		{"plain error", errors.New("disk full"), false},
		{"timed out", domain.ErrOperationTimedOut, true},
		{"retryable io", NewIOError("write", true, errors.New("flaky")), true},
		{"fatal io", NewIOError("write", false, errors.New("gone")), false},
		{"integrity", domain.ErrDataIntegrity, false},
		{"enoent", syscall.ENOENT, false},
	}
	for _, tc := range cases {
		if got := DefaultClassifier(tc.err); got != tc.want {
			t.Errorf("%s: DefaultClassifier = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestLinearBackoff(t *testing.T) {
	b := LinearBackoff(100 * time.Millisecond)
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
	}
	for i, w := range want {
		if got := b(i); got != w {
			t.Errorf("delay(%d) = %v, want %v", i, got, w)
		}
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	var delays []time.Duration
	policy := RetryPolicy{
		MaxRetries:   5,
		InitialDelay: 10 * time.Millisecond,
		Backoff: func(retry int) time.Duration {
			delays = append(delays, LinearBackoff(10*time.Millisecond)(retry))
			return 0
		},
	}

	attempts := 0
	err := CallWithRetry(nil, func() error {
		attempts++
		if attempts <= 3 {
			return syscall.ECONNRESET
		}
		return nil
	}, policy)
	if err != nil {
		t.Fatalf("CallWithRetry = %v, want nil", err)
	}
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4", attempts)
	}

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("recorded %d delays, want %d", len(delays), len(want))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestRetryFatalFailsImmediately(t *testing.T) {
	fatal := errors.New("schema violation")
	attempts := 0
	err := CallWithRetry(nil, func() error {
		attempts++
		return fatal
	}, RetryPolicy{MaxRetries: 5, Backoff: func(int) time.Duration { return 0 }})

	if !errors.Is(err, fatal) {
		t.Errorf("CallWithRetry = %v, want the fatal cause", err)
	}
	if errors.Is(err, domain.ErrRetryExhausted) {
		t.Error("fatal failure reported as retry exhaustion")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryExhaustionWrapsLastCause(t *testing.T) {
	attempts := 0
	err := CallWithRetry(nil, func() error {
		attempts++
		return NewIOError("push", true, syscall.ETIMEDOUT)
	}, RetryPolicy{MaxRetries: 2, Backoff: func(int) time.Duration { return 0 }})

	if !errors.Is(err, domain.ErrRetryExhausted) {
		t.Fatalf("CallWithRetry = %v, want ErrRetryExhausted", err)
	}
	if !errors.Is(err, syscall.ETIMEDOUT) {
		t.Error("exhaustion error does not wrap the last cause")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (initial + 2 retries)", attempts)
	}
}

func TestCallWithTimeoutExpiry(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	err := CallWithTimeout(nil, 20*time.Millisecond, func() error {
		<-release
		return nil
	})
	if !errors.Is(err, domain.ErrOperationTimedOut) {
		t.Fatalf("CallWithTimeout = %v, want ErrOperationTimedOut", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timed-out call took %v, want a bounded wait", elapsed)
	}
}

func TestCallWithTimeoutCompletes(t *testing.T) {
	want := errors.New("work result")
	err := CallWithTimeout(nil, time.Second, func() error { return want })
	if !errors.Is(err, want) {
		t.Errorf("CallWithTimeout = %v, want %v", err, want)
	}
}

func TestCallWithTimeoutUnbounded(t *testing.T) {
	err := CallWithTimeout(nil, 0, func() error { return nil })
	if err != nil {
		t.Errorf("CallWithTimeout(0) = %v, want nil", err)
	}
}
