package request

// OutcomeKind discriminates the terminal result of a request.
type OutcomeKind int

const (
	// OutcomeSuccess carries a payload and response metadata.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeFailure carries the transport error.
	OutcomeFailure
	// OutcomeCancellation marks a request cancelled before a response arrived.
	OutcomeCancellation
)

// String returns the string representation of the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeCancellation:
		return "cancellation"
	default:
		return "unknown"
	}
}

// Metadata carries response metadata alongside a success payload.
// Header keys are expected to be case-normalized by the transport.
type Metadata struct {
	Headers map[string]string
	Charset string
}

// Outcome is the terminal result of a request: success, failure, or
// cancellation. Immutable once constructed; exactly one Outcome is ever
// accepted per Handle.
type Outcome struct {
	kind    OutcomeKind
	payload []byte
	meta    Metadata
	err     error
}

// Success creates a success outcome with the given payload and metadata.
func Success(payload []byte, meta Metadata) Outcome {
	return Outcome{kind: OutcomeSuccess, payload: payload, meta: meta}
}

// Failure creates a failure outcome carrying the transport error.
func Failure(err error) Outcome {
	return Outcome{kind: OutcomeFailure, err: err}
}

// Cancellation creates the synthetic outcome broadcast on cancel.
func Cancellation() Outcome {
	return Outcome{kind: OutcomeCancellation, err: ErrCancelled}
}

// Kind returns the outcome discriminator.
func (o Outcome) Kind() OutcomeKind {
	return o.kind
}

// IsCancellation reports whether the outcome is a cancellation.
func (o Outcome) IsCancellation() bool {
	return o.kind == OutcomeCancellation
}

// Payload returns the success payload, nil for failures and cancellations.
func (o Outcome) Payload() []byte {
	return o.payload
}

// Metadata returns the response metadata of a success outcome.
func (o Outcome) Metadata() Metadata {
	return o.meta
}

// Err returns the transport error for failures, ErrCancelled for
// cancellations, and nil for successes.
func (o Outcome) Err() error {
	return o.err
}
