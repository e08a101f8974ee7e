package transfer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"

	"github.com/yndnr/ordguard-go/internal/core/domain"
	"github.com/yndnr/ordguard-go/pkg/crypto/aead"
)

// Observer receives channel events. Implementations must be safe for
// concurrent use; the telemetry package provides a Prometheus-backed one.
type Observer interface {
	RetryScheduled(op string, retry int, delay time.Duration)
	TimedOut(op string)
	IntegrityFailure(op string)
	SnapshotBytes(n int)
}

type nopObserver struct{}

func (nopObserver) RetryScheduled(string, int, time.Duration) {}
func (nopObserver) TimedOut(string)                           {}
func (nopObserver) IntegrityFailure(string)                   {}
func (nopObserver) SnapshotBytes(int)                         {}

// Channel moves envelopes over a byte stream with timeout, retry,
// optional rate limiting, and optional authenticated encryption.
type Channel struct {
	timeout time.Duration
	retry   RetryPolicy
	limiter *rate.Limiter
	sealer  *aead.Sealer
	clk     clock.Clock
	log     *slog.Logger
	obs     Observer
}

// Option configures a Channel.
type Option func(*Channel)

// WithTimeout bounds each Do invocation. Non-positive disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Channel) { c.timeout = d }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Channel) { c.retry = p }
}

// WithRateLimit caps outbound throughput in bytes per second.
// Non-positive disables limiting.
func WithRateLimit(bytesPerSec int) Option {
	return func(c *Channel) {
		if bytesPerSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec)
		}
	}
}

// WithEncryption seals every payload before checksumming.
func WithEncryption(sealer *aead.Sealer) Option {
	return func(c *Channel) { c.sealer = sealer }
}

// WithClock injects the clock used for backoff and timeouts.
func WithClock(clk clock.Clock) Option {
	return func(c *Channel) { c.clk = clk }
}

// WithLogger attaches a structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Channel) { c.log = log }
}

// WithObserver attaches a metrics observer.
func WithObserver(obs Observer) Option {
	return func(c *Channel) { c.obs = obs }
}

// NewChannel creates a channel with the given options.
func NewChannel(opts ...Option) *Channel {
	c := &Channel{
		retry: RetryPolicy{},
		clk:   clock.New(),
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		obs:   nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clk == nil {
		c.clk = clock.New()
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.obs == nil {
		c.obs = nopObserver{}
	}
	return c
}

// Do runs work under the channel's timeout and retry policy. The timeout
// applies per attempt.
func (c *Channel) Do(op string, work func() error) error {
	p := c.retry
	baseClassify := p.Classify
	if baseClassify == nil {
		baseClassify = DefaultClassifier
	}
	baseBackoff := p.Backoff
	if baseBackoff == nil {
		initial := p.InitialDelay
		if initial <= 0 {
			initial = DefaultRetryInitialDelay
		}
		baseBackoff = LinearBackoff(initial)
	}

	p.Classify = baseClassify
	p.Backoff = func(retry int) time.Duration {
		delay := baseBackoff(retry)
		c.obs.RetryScheduled(op, retry, delay)
		c.log.Warn("transfer attempt failed, retrying",
			"op", op, "retry", retry+1, "delay", delay)
		return delay
	}

	attempt := func() error {
		err := CallWithTimeout(c.clk, c.timeout, work)
		if err != nil {
			if errIsTimeout(err) {
				c.obs.TimedOut(op)
			}
			if errIsIntegrity(err) {
				c.obs.IntegrityFailure(op)
			}
		}
		return err
	}
	return CallWithRetry(c.clk, attempt, p)
}

// WriteEnvelope seals, frames, and writes one payload, honoring the rate
// limit.
func (c *Channel) WriteEnvelope(w io.Writer, payload []byte) error {
	out := payload
	if c.sealer != nil {
		sealed, err := c.sealer.Seal(payload, nil)
		if err != nil {
			return NewIOError("seal", false, err)
		}
		out = sealed
	}
	if c.limiter != nil {
		if err := c.waitQuota(len(out) + 8); err != nil {
			return err
		}
	}
	if err := WriteFramed(w, out); err != nil {
		return err
	}
	c.obs.SnapshotBytes(len(out) + 8)
	return nil
}

// ReadEnvelope reads one frame, verifies it, and decrypts when the
// channel is encrypted.
func (c *Channel) ReadEnvelope(r io.Reader) ([]byte, error) {
	payload, err := ReadFramed(r)
	if err != nil {
		return nil, err
	}
	if c.sealer == nil {
		return payload, nil
	}
	plain, err := c.sealer.Open(payload, nil)
	if err != nil {
		return nil, NewIOError("open", false, err)
	}
	return plain, nil
}

func errIsTimeout(err error) bool {
	return errors.Is(err, domain.ErrOperationTimedOut)
}

func errIsIntegrity(err error) bool {
	return errors.Is(err, domain.ErrDataIntegrity)
}

func (c *Channel) waitQuota(n int) error {
	burst := c.limiter.Burst()
	for n > 0 {
		chunk := n
		if chunk > burst {
			chunk = burst
		}
		if err := c.limiter.WaitN(context.Background(), chunk); err != nil {
			return NewIOError("rate-limit", false, err)
		}
		n -= chunk
	}
	return nil
}
