// Package debounce turns a bursty stream of calls into a rate-limited one.
//
// An Emitter waits for a quiet period before invoking its target with the
// most recent call's argument (trailing mode), or invokes the target on the
// first call of a burst and suppresses the rest (leading mode, see
// CallFirst).
//
// Panics raised by the target are not intercepted. A synchronous invocation
// panics in the caller; a deferred invocation panics on the timer goroutine.
package debounce

import (
	"sync"
	"time"
)

// Timer is a scheduled invocation that can be stopped.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d has elapsed.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type options struct {
	callFirst bool
	afterFunc AfterFunc
}

// Option configures an Emitter.
type Option func(*options)

// CallFirst makes the Emitter invoke the target immediately on the first
// call of a burst. Later calls in the same burst are suppressed and no
// trailing invocation happens.
func CallFirst() Option {
	return func(o *options) { o.callFirst = true }
}

// WithAfterFunc replaces the timer source. Mostly useful in tests.
func WithAfterFunc(fn AfterFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.afterFunc = fn
		}
	}
}

// Emitter wraps a target function and debounces calls to it.
type Emitter[A, R any] struct {
	mu        sync.Mutex
	target    func(A) R
	wait      time.Duration
	callFirst bool
	afterFunc AfterFunc

	timer   Timer // at most one outstanding invocation.
	gen     uint64
	arg     A
	leading bool
	closed  bool
}

// New creates an Emitter around target. A negative wait is treated as zero,
// in which case every call invokes target synchronously.
func New[A, R any](target func(A) R, wait time.Duration, opts ...Option) *Emitter[A, R] {
	if target == nil {
		panic("debounce: nil target")
	}
	o := options{afterFunc: realAfterFunc}
	for _, opt := range opts {
		opt(&o)
	}
	return &Emitter[A, R]{
		target:    target,
		wait:      max(wait, 0),
		callFirst: o.callFirst,
		afterFunc: o.afterFunc,
	}
}

// NewFunc is New for targets without a result.
func NewFunc[A any](target func(A), wait time.Duration, opts ...Option) *Emitter[A, struct{}] {
	if target == nil {
		panic("debounce: nil target")
	}
	return New(func(a A) struct{} {
		target(a)
		return struct{}{}
	}, wait, opts...)
}

// Wait returns the quiet period.
func (e *Emitter[A, R]) Wait() time.Duration {
	return e.wait
}

// Call records a call with arg. It reports whether the target ran
// synchronously; only then is the returned result meaningful.
func (e *Emitter[A, R]) Call(arg A) (R, bool) {
	var zero R

	if e.wait == 0 {
		e.mu.Lock()
		closed := e.closed
		e.mu.Unlock()
		if closed {
			return zero, false
		}
		return e.target(arg), true
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return zero, false
	}

	callNow := e.callFirst && e.timer == nil
	// A burst opened by a leading call stays leading until its window
	// closes, so it never ends with a trailing invocation.
	leading := callNow || (e.timer != nil && e.leading)
	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	gen := e.gen
	e.arg = arg
	e.leading = leading
	e.timer = e.afterFunc(e.wait, func() { e.fire(gen) })
	e.mu.Unlock()

	if callNow {
		return e.target(arg), true
	}
	return zero, false
}

// Func returns a plain callback that forwards to Call, suitable for
// registering with a change-notification source.
func (e *Emitter[A, R]) Func() func(A) {
	return func(a A) { e.Call(a) }
}

// fire runs when the timer scheduled by generation gen elapses. A timer that
// was superseded or cancelled after the runtime already started it is
// recognised by its stale generation and does nothing.
func (e *Emitter[A, R]) fire(gen uint64) {
	e.mu.Lock()
	if e.closed || gen != e.gen || e.timer == nil {
		e.mu.Unlock()
		return
	}
	arg, leading := e.take()
	e.mu.Unlock()

	if !leading {
		e.target(arg)
	}
}

// take clears the pending slot and returns what it held. Callers hold mu.
func (e *Emitter[A, R]) take() (A, bool) {
	var zero A
	arg, leading := e.arg, e.leading
	e.timer = nil
	e.arg = zero
	e.leading = false
	return arg, leading
}

// Pending reports whether an invocation is scheduled.
func (e *Emitter[A, R]) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timer != nil
}

// Flush runs the pending trailing invocation immediately. It reports whether
// the target ran. The quiet window of a leading burst is closed without an
// invocation.
func (e *Emitter[A, R]) Flush() bool {
	e.mu.Lock()
	if e.closed || e.timer == nil {
		e.mu.Unlock()
		return false
	}
	e.timer.Stop()
	e.gen++
	arg, leading := e.take()
	e.mu.Unlock()

	if leading {
		return false
	}
	e.target(arg)
	return true
}

// Cancel drops the pending invocation, if any. The Emitter stays usable.
func (e *Emitter[A, R]) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelLocked()
}

func (e *Emitter[A, R]) cancelLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.take()
	}
	e.gen++
}

// Close cancels the pending invocation and disables the Emitter. Calls made
// after Close never reach the target.
func (e *Emitter[A, R]) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelLocked()
	e.closed = true
}
