package transfer

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/yndnr/ordguard-go/internal/core/domain"
)

// CallWithTimeout runs work in its own goroutine and waits up to timeout
// for it to finish. On expiry it returns ErrOperationTimedOut and
// abandons the work: the goroutine is not cancelled and may complete
// later with no caller-visible effect. Work that touches shared state
// must be safe to outlive its caller. A non-positive timeout waits
// indefinitely.
func CallWithTimeout(clk clock.Clock, timeout time.Duration, work func() error) error {
	if clk == nil {
		clk = clock.New()
	}
	if timeout <= 0 {
		return work()
	}

	done := make(chan error, 1)
	go func() {
		done <- work()
	}()

	timer := clk.Timer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return domain.ErrOperationTimedOut.WithDetails(timeout.String())
	}
}
