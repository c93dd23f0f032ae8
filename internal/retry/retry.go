package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/provider"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	// MaxDelay caps the wait between two attempts.
	MaxDelay = time.Minute
)

// Policy retries an operation with exponential backoff: the wait before attempt n+1
// is BaseDelay * 2^(n-1). The last error is always returned to the caller unchanged.
type Policy struct {
	// Operation names the call in logs (e.g. "elevenlabs_transcription").
	Operation   string
	MaxAttempts int
	BaseDelay   time.Duration
	// Retryable decides whether an error is worth another attempt. Nil means DefaultRetryable.
	// Once the caller's context is done no further attempt is made regardless.
	Retryable func(error) bool
	// OnAttempt is invoked after every failed or successful attempt. Optional.
	OnAttempt func(attempt int, err error)
}

// DefaultRetryable retries every error. A per-request client timeout surfaces as
// context.DeadlineExceeded and is retried like any other failure.
func DefaultRetryable(error) bool {
	return true
}

// New returns a policy with the default ceiling and base delay.
func New(operation string) Policy {
	return Policy{
		Operation:   operation,
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.Retryable == nil {
		p.Retryable = DefaultRetryable
	}
	return p
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = MaxDelay
	if eb.InitialInterval > MaxDelay {
		eb.InitialInterval = MaxDelay
	}
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1)), ctx)
}

// Do runs fn under the policy.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	logger := zerolog.Ctx(ctx)

	var result T
	attempt := 0
	operation := func() error {
		attempt++
		out, err := fn(ctx)
		if p.OnAttempt != nil {
			p.OnAttempt(attempt, err)
		}
		if err == nil {
			result = out
			return nil
		}
		if attempt >= p.MaxAttempts || ctx.Err() != nil || !p.Retryable(err) {
			logAttempt(logger.Error(), p, attempt, err).Msg("Giving up on provider call")
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logAttempt(logger.Warn(), p, attempt, err).
			Dur("retry_in", wait).
			Msg("Retryable error when calling provider")
	}

	if err := backoff.RetryNotify(operation, p.backOff(ctx), notify); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func logAttempt(ev *zerolog.Event, p Policy, attempt int, err error) *zerolog.Event {
	ev = ev.Str("event", p.Operation+".retry").
		Str("operation", p.Operation).
		Int("attempt", attempt).
		Int("max_attempts", p.MaxAttempts)
	if perr, ok := provider.As(err); ok {
		return ev.Fields(perr.LogFields())
	}
	return ev.AnErr("exception", err)
}
