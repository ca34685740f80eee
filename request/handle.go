package request

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/aarifsumra/siesta/observe"
)

// State represents the lifecycle state of a Handle.
type State int

const (
	// StateNotStarted means Start has not been called.
	StateNotStarted State = iota
	// StateStarted means the underlying operation is in flight.
	StateStarted
	// StateCompleted means a success or failure outcome was broadcast.
	StateCompleted
	// StateCancelled means a cancellation outcome was broadcast.
	StateCancelled
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateStarted:
		return "started"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Handle is a cancellable, observable request handle around one delegate.
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use; internal state is
//     confined behind a mutex, so the transport may deliver its completion
//     from any goroutine.
//   - Broadcast: at most one terminal outcome is ever broadcast; IsCompleted
//     becomes permanently true exactly when that happens.
//   - Observers: completion observers fire in registration order, exactly
//     once each; registering after completion dispatches immediately with the
//     stored outcome.
type Handle struct {
	id       string
	delegate Delegate
	opts     options

	logger  observe.Logger
	tracer  observe.Tracer
	metrics observe.Metrics

	mu         sync.Mutex
	state      State
	preCancel  bool
	startedAt  time.Time
	completion callbackList[Outcome]
	span       trace.Span

	progress *progressTracker
}

// Option configures a Handle.
type Option func(*options)

type options struct {
	logger  observe.Logger
	tracer  observe.Tracer
	metrics observe.Metrics
}

func newHandleOptions(opts []Option) options {
	o := options{
		logger:  observe.NewNopLogger(),
		tracer:  observe.NewNopTracer(),
		metrics: observe.NewNopMetrics(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the diagnostic logger. Defaults to a no-op sink.
func WithLogger(logger observe.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracer sets the tracer bracketing start and completion. Defaults to no-op.
func WithTracer(tracer observe.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithMetrics sets the metrics recorder. Defaults to a no-op recorder.
func WithMetrics(metrics observe.Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// New creates a handle that exclusively owns the given delegate.
func New(delegate Delegate, opts ...Option) (*Handle, error) {
	if delegate == nil {
		return nil, ErrNilDelegate
	}

	o := newHandleOptions(opts)
	h := &Handle{
		id:       uuid.NewString(),
		delegate: delegate,
		opts:     o,
		tracer:   o.tracer,
		metrics:  o.metrics,
	}
	h.logger = o.logger.WithRequest(h.meta())
	h.progress = newProgressTracker(h.delegateEstimate, delegate.PollingInterval())
	return h, nil
}

// ID returns the stable identity of the handle.
func (h *Handle) ID() string {
	return h.id
}

// Description returns the delegate's request description.
func (h *Handle) Description() string {
	return h.delegate.Description()
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// IsCompleted reports whether a terminal outcome has been broadcast.
func (h *Handle) IsCompleted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, done := h.completion.get()
	return done
}

// Outcome returns the stored terminal outcome, if any.
func (h *Handle) Outcome() (Outcome, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.completion.get()
}

// Progress returns the current progress: 0 before start, the polled estimate
// while in flight, and exactly 1 after the terminal outcome.
func (h *Handle) Progress() float64 {
	return h.progress.progress()
}

// Start begins the underlying operation and progress polling. Idempotent:
// calling it on a started, completed, or cancelled-before-start handle has no
// effect.
func (h *Handle) Start() {
	h.mu.Lock()
	if h.state != StateNotStarted || h.preCancel {
		state := h.state
		h.mu.Unlock()
		h.logger.Debug(context.Background(), "start ignored",
			observe.Field{Key: "state", Value: state.String()},
		)
		return
	}
	h.state = StateStarted
	h.startedAt = time.Now()
	h.mu.Unlock()

	ctx, span := h.tracer.StartSpan(context.Background(), h.meta())
	h.mu.Lock()
	h.span = span
	h.mu.Unlock()

	h.logger.Debug(ctx, "request started")
	h.progress.start()
	h.delegate.StartOperation(h)
}

// Cancel asks the delegate to abort and transitions to the cancelled terminal
// state immediately and unconditionally, independent of whether the transport
// actually stops. No-op once terminal. Cancelling before Start permanently
// suppresses a later Start.
func (h *Handle) Cancel() {
	h.mu.Lock()
	if _, done := h.completion.get(); done {
		h.mu.Unlock()
		h.logger.Debug(context.Background(), "cancel ignored, already completed")
		return
	}
	h.preCancel = true
	h.mu.Unlock()

	h.delegate.CancelOperation()
	h.BroadcastResponse(Cancellation())
}

// OnCompletion registers a completion observer. Observers fire exactly once,
// in registration order; registering after completion dispatches immediately
// with the stored outcome.
func (h *Handle) OnCompletion(fn func(Outcome)) {
	h.mu.Lock()
	outcome, immediate := h.completion.add(fn)
	h.mu.Unlock()

	if immediate {
		fn(outcome)
	}
}

// OnProgress registers a progress observer, notified on the polling cadence
// while the request is in flight and once with 1 at completion.
func (h *Handle) OnProgress(fn func(float64)) {
	h.progress.observe(fn)
}

// Repeated returns a new, independent handle around a fresh delegate for the
// same logical request. It shares no state, observers, or progress with this
// handle and can be called in any state.
func (h *Handle) Repeated() *Handle {
	repeated := &Handle{
		id:       uuid.NewString(),
		delegate: h.delegate.RepeatedDelegate(),
		opts:     h.opts,
		tracer:   h.opts.tracer,
		metrics:  h.opts.metrics,
	}
	repeated.logger = h.opts.logger.WithRequest(repeated.meta())
	repeated.progress = newProgressTracker(repeated.delegateEstimate, repeated.delegate.PollingInterval())
	return repeated
}

// ShouldIgnoreResponse reports whether the outcome would be discarded if
// broadcast now: any recorded outcome blocks non-cancellations, and a
// recorded non-cancellation blocks everything.
func (h *Handle) ShouldIgnoreResponse(outcome Outcome) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	existing, done := h.completion.get()
	if !done {
		return false
	}
	if !existing.IsCancellation() {
		return true
	}
	return !outcome.IsCancellation()
}

// BroadcastResponse commits the outcome as the one terminal result, or
// discards it per the duplicate rules. On commit it forces progress to 1 and
// notifies every completion observer, in registration order, exactly once.
func (h *Handle) BroadcastResponse(outcome Outcome) {
	ctx := context.Background()

	h.mu.Lock()
	if existing, done := h.completion.get(); done {
		h.mu.Unlock()
		switch {
		case !existing.IsCancellation() && !outcome.IsCancellation():
			// A misbehaving transport fired twice.
			h.logger.Warn(ctx, "duplicate response discarded",
				observe.Field{Key: "discarded", Value: outcome.Kind().String()},
				observe.Field{Key: "recorded", Value: existing.Kind().String()},
			)
			h.metrics.RecordDuplicate(ctx, h.meta())
		case !existing.IsCancellation():
			// Cancel lost the race against a real response.
			h.logger.Debug(ctx, "cancellation after completion discarded")
		case !outcome.IsCancellation():
			// Expected race: the transport reported a cancellation-triggered
			// failure after an explicit cancel.
			h.logger.Debug(ctx, "response after cancellation discarded",
				observe.Field{Key: "discarded", Value: outcome.Kind().String()},
			)
		default:
			// Both cancellations: accepted, and already broadcast.
		}
		return
	}

	pending := h.completion.set(outcome)
	if outcome.IsCancellation() {
		h.state = StateCancelled
	} else {
		h.state = StateCompleted
	}
	var duration time.Duration
	if !h.startedAt.IsZero() {
		duration = time.Since(h.startedAt)
	}
	span := h.span
	h.mu.Unlock()

	h.progress.complete()

	for _, fn := range pending {
		fn(outcome)
	}

	h.metrics.RecordCompletion(ctx, h.meta(), duration, outcome.Kind().String())
	if span != nil {
		var spanErr error
		if outcome.Kind() == OutcomeFailure {
			spanErr = outcome.Err()
		}
		h.tracer.EndSpan(span, spanErr)
	}
	h.logger.Debug(ctx, "request completed",
		observe.Field{Key: "outcome", Value: outcome.Kind().String()},
		observe.Field{Key: "duration_ms", Value: float64(duration.Milliseconds())},
	)
}

// meta returns the telemetry metadata for this handle.
func (h *Handle) meta() observe.RequestMeta {
	return observe.RequestMeta{
		ID:          h.id,
		Description: h.delegate.Description(),
	}
}

// delegateEstimate reads the delegate's progress estimate for the tracker.
func (h *Handle) delegateEstimate() float64 {
	return h.delegate.ProgressEstimate()
}

// Ensure Handle implements CompletionSink
var _ CompletionSink = (*Handle)(nil)
