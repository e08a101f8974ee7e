package transfer

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/yndnr/ordguard-go/internal/core/domain"
)

// Retry defaults.
const (
	DefaultMaxRetries        = 3
	DefaultRetryInitialDelay = 100 * time.Millisecond
)

// Backoff computes the delay before retry i (zero-based).
type Backoff func(retry int) time.Duration

// LinearBackoff grows the delay by the initial amount per retry:
// initial, 2*initial, 3*initial, ...
func LinearBackoff(initial time.Duration) Backoff {
	return func(retry int) time.Duration {
		return initial * time.Duration(retry+1)
	}
}

// RetryPolicy controls CallWithRetry. Zero values fall back to the
// defaults; a nil Classify uses DefaultClassifier.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	Backoff      Backoff
	Classify     Classifier
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultRetryInitialDelay
	}
	if p.Backoff == nil {
		p.Backoff = LinearBackoff(p.InitialDelay)
	}
	if p.Classify == nil {
		p.Classify = DefaultClassifier
	}
	return p
}

// CallWithRetry runs work, retrying classified-retryable failures up to
// MaxRetries times with the policy's backoff between attempts. A fatal
// failure propagates immediately. When the budget runs out the last
// cause is wrapped in ErrRetryExhausted.
func CallWithRetry(clk clock.Clock, work func() error, policy RetryPolicy) error {
	if clk == nil {
		clk = clock.New()
	}
	p := policy.normalize()

	var last error
	for retry := 0; ; retry++ {
		err := work()
		if err == nil {
			return nil
		}
		if !p.Classify(err) {
			return err
		}
		last = err
		if retry >= p.MaxRetries {
			return domain.ErrRetryExhausted.WithCause(last)
		}
		clk.Sleep(p.Backoff(retry))
	}
}
