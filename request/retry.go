package request

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy defines how delays increase between restart attempts.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the delay each attempt, with jitter.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear increases delay linearly.
	BackoffLinear
	// BackoffConstant uses the same delay for all restarts.
	BackoffConstant
)

// RetryConfig configures restart-on-failure behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first restart.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps the delay between restarts.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier for exponential backoff.
	// Default: 2.0
	Multiplier float64

	// Strategy is the backoff strategy.
	// Default: BackoffExponential
	Strategy BackoffStrategy

	// Jitter adds randomness to delays to prevent thundering herd.
	// Default: true
	Jitter bool

	// RetryIf determines whether a failure should trigger a restart.
	// Default: all failures do. Cancellations never do.
	RetryIf func(err error) bool

	// OnRetry is called before each restart attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retrier restarts failed requests through Repeated, with backoff. Each
// attempt is an independent handle over a fresh delegate; the retrier never
// reuses an exhausted one.
type Retrier struct {
	config RetryConfig
}

// NewRetrier creates a retrier, applying defaults for zero config fields.
func NewRetrier(config RetryConfig) *Retrier {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}

	return &Retrier{config: config}
}

// Run starts the handle and restarts it on failure until it succeeds, is
// cancelled, exhausts the attempt budget, or the context ends. It returns the
// final outcome; the error is non-nil only when the context ended first, in
// which case the in-flight handle is cancelled.
func (r *Retrier) Run(ctx context.Context, h *Handle) (Outcome, error) {
	for attempt := 1; ; attempt++ {
		done := make(chan Outcome, 1)
		h.OnCompletion(func(o Outcome) { done <- o })
		h.Start()

		var outcome Outcome
		select {
		case <-ctx.Done():
			h.Cancel()
			return Cancellation(), ctx.Err()
		case outcome = <-done:
		}

		if outcome.Kind() != OutcomeFailure {
			return outcome, nil
		}
		if !r.config.RetryIf(outcome.Err()) {
			return outcome, nil
		}
		if attempt >= r.config.MaxAttempts {
			return outcome, nil
		}

		delay := r.calculateDelay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, outcome.Err(), delay)
		}

		select {
		case <-ctx.Done():
			return Cancellation(), ctx.Err()
		case <-time.After(delay):
		}

		h = h.Repeated()
	}
}

func (r *Retrier) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch r.config.Strategy {
	case BackoffConstant:
		delay = r.config.InitialDelay

	case BackoffLinear:
		delay = r.config.InitialDelay * time.Duration(attempt)

	case BackoffExponential:
		multiplier := math.Pow(r.config.Multiplier, float64(attempt-1))
		delay = time.Duration(float64(r.config.InitialDelay) * multiplier)
	}

	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	if r.config.Jitter && delay > 0 {
		// Up to 25% jitter.
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		jitter := time.Duration(rand.Int63n(int64(delay / 4)))
		delay = delay + jitter
	}

	return delay
}

// Config returns the retry configuration with defaults applied.
func (r *Retrier) Config() RetryConfig {
	return r.config
}
