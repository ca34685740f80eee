package request

// callbackList aggregates observers that must each see exactly one value, in
// registration order, regardless of whether they register before or after the
// value is decided.
//
// It is not self-locking: the owning Handle serializes all access under its
// own mutex and invokes the returned callbacks outside it.
type callbackList[T any] struct {
	callbacks []func(T)
	value     *T
}

// get returns the decided value, if any.
func (l *callbackList[T]) get() (T, bool) {
	if l.value == nil {
		var zero T
		return zero, false
	}
	return *l.value, true
}

// add registers an observer. When the value is already decided it is returned
// with immediate=true and the observer is not stored: the caller must invoke
// the observer itself, outside its lock.
func (l *callbackList[T]) add(fn func(T)) (value T, immediate bool) {
	if l.value != nil {
		return *l.value, true
	}
	l.callbacks = append(l.callbacks, fn)
	var zero T
	return zero, false
}

// set decides the value and drains the pending observers for the caller to
// invoke, in registration order. Deciding twice returns nil: the value cell
// only ever fires once.
func (l *callbackList[T]) set(v T) []func(T) {
	if l.value != nil {
		return nil
	}
	l.value = &v
	pending := l.callbacks
	l.callbacks = nil
	return pending
}
