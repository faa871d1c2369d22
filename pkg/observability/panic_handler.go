package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with structured logging.
//
// Every entry point that runs on a host callback (observer delivery, scroll
// evaluation, lifecycle finalization, sink forwarding) defers this so a
// panicking collector can never take the host page down with it:
//
//	func (t *Tracker) onScroll() {
//	    defer observability.RecoverPanic(t.logger, "scroll evaluation")
//	    // ...
//	}
//
// After logging, the panic is NOT re-raised.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
	}
}

// RecoverPanicWithCallback recovers from a panic, logs it, and executes a
// cleanup callback. The callback runs only when a panic occurred, after it
// has been logged - typically to disconnect an observer or clear a timer
// whose callback just failed.
func RecoverPanicWithCallback(logger *Logger, context string, callback func()) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
		if callback != nil {
			callback()
		}
	}
}

// MustRecover converts a recovered panic value to an error.
//
//	func decode() (out Report, err error) {
//	    defer func() { err = observability.MustRecover(recover()) }()
//	    // ...
//	}
func MustRecover(r interface{}) error {
	if r != nil {
		return fmt.Errorf("panic: %v", r)
	}
	return nil
}
