package request

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// scriptedDelegate is a test double implementing Delegate. The test drives
// completion explicitly through the captured sink.
type scriptedDelegate struct {
	mu          sync.Mutex
	startCalls  int
	cancelCalls int
	sink        CompletionSink
	estimate    float64
	interval    time.Duration
	desc        string
}

func (d *scriptedDelegate) StartOperation(sink CompletionSink) {
	d.mu.Lock()
	d.startCalls++
	d.sink = sink
	d.mu.Unlock()
}

func (d *scriptedDelegate) CancelOperation() {
	d.mu.Lock()
	d.cancelCalls++
	d.mu.Unlock()
}

func (d *scriptedDelegate) RepeatedDelegate() Delegate {
	return &scriptedDelegate{estimate: d.estimate, interval: d.interval, desc: d.desc}
}

func (d *scriptedDelegate) ProgressEstimate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.estimate
}

func (d *scriptedDelegate) PollingInterval() time.Duration {
	return d.interval
}

func (d *scriptedDelegate) Description() string {
	if d.desc == "" {
		return "GET https://api.example.com/users/42"
	}
	return d.desc
}

func (d *scriptedDelegate) setEstimate(v float64) {
	d.mu.Lock()
	d.estimate = v
	d.mu.Unlock()
}

func (d *scriptedDelegate) startCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startCalls
}

func (d *scriptedDelegate) complete(outcome Outcome) {
	d.mu.Lock()
	sink := d.sink
	d.mu.Unlock()
	sink.BroadcastResponse(outcome)
}

func newTestHandle(t *testing.T, d Delegate) *Handle {
	t.Helper()
	h, err := New(d)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return h
}

// TestNew_NilDelegate verifies construction requires a delegate.
func TestNew_NilDelegate(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNilDelegate) {
		t.Errorf("New(nil) error = %v, want ErrNilDelegate", err)
	}
}

// TestHandle_ExactlyOnceBroadcast verifies that for concurrent Cancel and
// transport completion, each observer sees exactly one outcome, and it is
// either the accepted response or a cancellation.
func TestHandle_ExactlyOnceBroadcast(t *testing.T) {
	for i := 0; i < 200; i++ {
		d := &scriptedDelegate{}
		h := newTestHandle(t, d)
		h.Start()

		var notifications atomic.Int32
		var got atomic.Value
		h.OnCompletion(func(o Outcome) {
			notifications.Add(1)
			got.Store(o.Kind())
		})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.Cancel()
		}()
		go func() {
			defer wg.Done()
			d.complete(Success([]byte("body"), Metadata{}))
		}()
		wg.Wait()

		if n := notifications.Load(); n != 1 {
			t.Fatalf("iteration %d: observer notified %d times, want exactly 1", i, n)
		}
		kind := got.Load().(OutcomeKind)
		if kind != OutcomeSuccess && kind != OutcomeCancellation {
			t.Fatalf("iteration %d: outcome kind = %v", i, kind)
		}
		if !h.IsCompleted() {
			t.Fatalf("iteration %d: handle not completed after broadcast", i)
		}
	}
}

// TestHandle_StartIdempotent verifies a second Start has no observable effect.
func TestHandle_StartIdempotent(t *testing.T) {
	d := &scriptedDelegate{}
	h := newTestHandle(t, d)

	h.Start()
	h.Start()

	if got := d.startCount(); got != 1 {
		t.Errorf("delegate started %d times, want 1", got)
	}
	if got := h.State(); got != StateStarted {
		t.Errorf("state = %v, want started", got)
	}
}

// TestHandle_CancelBeforeStart verifies cancelling an unstarted handle
// permanently suppresses a later Start.
func TestHandle_CancelBeforeStart(t *testing.T) {
	d := &scriptedDelegate{}
	h := newTestHandle(t, d)

	var outcome Outcome
	h.OnCompletion(func(o Outcome) { outcome = o })

	h.Cancel()
	h.Start()

	if got := d.startCount(); got != 0 {
		t.Errorf("delegate started %d times after pre-start cancel, want 0", got)
	}
	if got := h.State(); got != StateCancelled {
		t.Errorf("state = %v, want cancelled", got)
	}
	if !outcome.IsCancellation() {
		t.Errorf("outcome = %v, want cancellation", outcome.Kind())
	}
	if got := h.Progress(); got != 1 {
		t.Errorf("progress after terminal = %v, want 1", got)
	}
}

// TestHandle_CancelIdempotent verifies a second Cancel is a no-op.
func TestHandle_CancelIdempotent(t *testing.T) {
	d := &scriptedDelegate{}
	h := newTestHandle(t, d)
	h.Start()

	var notifications int
	h.OnCompletion(func(Outcome) { notifications++ })

	h.Cancel()
	h.Cancel()

	if notifications != 1 {
		t.Errorf("observer notified %d times, want 1", notifications)
	}
}

// TestHandle_ObserverTiming verifies observers registered before completion
// fire exactly once at completion, and observers registered after fire
// immediately with the stored outcome.
func TestHandle_ObserverTiming(t *testing.T) {
	d := &scriptedDelegate{}
	h := newTestHandle(t, d)
	h.Start()

	var early int
	h.OnCompletion(func(Outcome) { early++ })
	if early != 0 {
		t.Fatal("observer fired before completion")
	}

	d.complete(Success([]byte("body"), Metadata{Headers: map[string]string{"etag": "abc"}}))

	if early != 1 {
		t.Errorf("early observer notified %d times, want 1", early)
	}

	// Late subscriber: dispatched synchronously with the stored outcome.
	var late Outcome
	var lateFired bool
	h.OnCompletion(func(o Outcome) {
		late = o
		lateFired = true
	})
	if !lateFired {
		t.Fatal("late observer not dispatched synchronously")
	}
	if late.Kind() != OutcomeSuccess || string(late.Payload()) != "body" {
		t.Errorf("late observer outcome = (%v, %q)", late.Kind(), late.Payload())
	}
}

// TestHandle_ObserversFireInRegistrationOrder verifies broadcast ordering.
func TestHandle_ObserversFireInRegistrationOrder(t *testing.T) {
	d := &scriptedDelegate{}
	h := newTestHandle(t, d)
	h.Start()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		h.OnCompletion(func(Outcome) { order = append(order, i) })
	}

	d.complete(Failure(errors.New("boom")))

	if len(order) != 5 {
		t.Fatalf("notified %d observers, want 5", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Errorf("observer %d fired at position %d", got, i)
		}
	}
}

// TestHandle_DuplicateResponseDiscarded verifies a second non-cancellation
// response is discarded, never overwrites, and never panics.
func TestHandle_DuplicateResponseDiscarded(t *testing.T) {
	d := &scriptedDelegate{}
	h := newTestHandle(t, d)
	h.Start()

	var outcomes []OutcomeKind
	h.OnCompletion(func(o Outcome) { outcomes = append(outcomes, o.Kind()) })

	d.complete(Success([]byte("first"), Metadata{}))
	d.complete(Failure(errors.New("second")))

	if len(outcomes) != 1 || outcomes[0] != OutcomeSuccess {
		t.Errorf("observed outcomes = %v, want exactly [success]", outcomes)
	}

	if !h.ShouldIgnoreResponse(Failure(errors.New("third"))) {
		t.Error("ShouldIgnoreResponse = false for a response after completion")
	}

	got, ok := h.Outcome()
	if !ok || got.Kind() != OutcomeSuccess || string(got.Payload()) != "first" {
		t.Errorf("stored outcome = (%v, %v), want the first success", got.Kind(), ok)
	}
}

// TestHandle_ResponseAfterCancelDiscarded verifies the expected race: a
// transport failure arriving after an explicit cancel is silently discarded.
func TestHandle_ResponseAfterCancelDiscarded(t *testing.T) {
	d := &scriptedDelegate{}
	h := newTestHandle(t, d)
	h.Start()

	var outcomes []OutcomeKind
	h.OnCompletion(func(o Outcome) { outcomes = append(outcomes, o.Kind()) })

	h.Cancel()
	d.complete(Failure(errors.New("connection reset by cancel")))

	if len(outcomes) != 1 || outcomes[0] != OutcomeCancellation {
		t.Errorf("observed outcomes = %v, want exactly [cancellation]", outcomes)
	}

	if !h.ShouldIgnoreResponse(Success(nil, Metadata{})) {
		t.Error("ShouldIgnoreResponse = false for a response after cancellation")
	}
	// A duplicate cancellation is accepted, not flagged as anomalous.
	if h.ShouldIgnoreResponse(Cancellation()) {
		t.Error("ShouldIgnoreResponse = true for a cancellation after cancellation")
	}
}

// TestHandle_Repeated verifies the repeated handle is fully independent of
// the original.
func TestHandle_Repeated(t *testing.T) {
	d := &scriptedDelegate{}
	h := newTestHandle(t, d)
	h.Start()

	repeated := h.Repeated()
	if repeated.ID() == h.ID() {
		t.Error("repeated handle shares the original's identity")
	}

	// Cancelling the original must not touch the repeated handle.
	h.Cancel()
	if repeated.IsCompleted() {
		t.Error("cancelling the original completed the repeated handle")
	}
	if got := repeated.State(); got != StateNotStarted {
		t.Errorf("repeated state = %v, want not-started", got)
	}

	repeated.Start()
	rd := repeated.delegate.(*scriptedDelegate)
	if rd.startCount() != 1 {
		t.Errorf("repeated delegate started %d times, want 1", rd.startCount())
	}
	rd.complete(Success([]byte("fresh"), Metadata{}))

	if got, ok := repeated.Outcome(); !ok || got.Kind() != OutcomeSuccess {
		t.Errorf("repeated outcome = (%v, %v), want success", got.Kind(), ok)
	}
	// And vice versa: the original keeps its cancellation.
	if got, ok := h.Outcome(); !ok || !got.IsCancellation() {
		t.Errorf("original outcome = (%v, %v), want cancellation", got.Kind(), ok)
	}
}

// TestHandle_RepeatedOfCompletedHandle verifies Repeated is callable in a
// terminal state.
func TestHandle_RepeatedOfCompletedHandle(t *testing.T) {
	d := &scriptedDelegate{}
	h := newTestHandle(t, d)
	h.Start()
	d.complete(Failure(errors.New("boom")))

	repeated := h.Repeated()
	repeated.Start()

	if repeated.IsCompleted() {
		t.Error("repeated handle inherited the original's terminal state")
	}
}

// TestHandle_ProgressLifecycle verifies progress is 0 before start, tracks
// the delegate estimate while in flight, and is forced to exactly 1 at the
// terminal state.
func TestHandle_ProgressLifecycle(t *testing.T) {
	d := &scriptedDelegate{estimate: 0.4, interval: 2 * time.Millisecond}
	h := newTestHandle(t, d)

	if got := h.Progress(); got != 0 {
		t.Errorf("progress before start = %v, want 0", got)
	}

	var final atomic.Value
	h.OnProgress(func(v float64) { final.Store(v) })

	h.Start()

	deadline := time.Now().Add(time.Second)
	for h.Progress() != 0.4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := h.Progress(); got != 0.4 {
		t.Errorf("progress while in flight = %v, want 0.4", got)
	}

	// Terminal progress is forced to 1 even though the delegate never
	// reported completion.
	d.complete(Success(nil, Metadata{}))
	if got := h.Progress(); got != 1 {
		t.Errorf("progress after terminal = %v, want 1", got)
	}

	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if v, ok := final.Load().(float64); ok && v == 1 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Errorf("progress observer final value = %v, want 1", final.Load())
}

// TestState_String verifies state names.
func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateNotStarted, "not-started"},
		{StateStarted, "started"},
		{StateCompleted, "completed"},
		{StateCancelled, "cancelled"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
