// Package request provides a cancellable, observable, exactly-once-completing
// handle around an arbitrary asynchronous network operation.
//
// A Handle wraps an injected Delegate (the transport abstraction) and
// guarantees that exactly one terminal Outcome is ever broadcast to its
// completion observers, no matter how an explicit Cancel races against the
// transport's asynchronous completion callback. Progress is polled from the
// delegate on a throttled cadence and forced to exactly 1 at the terminal
// state. A completed handle can be restarted as a fresh, independent handle
// via Repeated.
package request
