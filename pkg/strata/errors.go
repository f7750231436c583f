package strata

import (
	"errors"
	"fmt"
	"sync"
)

// InjectorLookupError is returned when an abstract key cannot be resolved
// from an active injector. Injector.Get and Resolve return other errors
// too: a StateError after Reset, a PredicateError from a misbehaving
// Predicate, a WiringError from a Union with no provided member, an
// unplannable factory or a Resolve type mismatch, and a factory's own
// error unchanged.
type InjectorLookupError struct {
	Abstract Injectable
	Scope    *Scope
}

func (e *InjectorLookupError) Error() string {
	name := "<nil>"
	if e.Scope != nil {
		name = e.Scope.container.name
	}
	return fmt.Sprintf("strata: no provider for %s in scope %q", e.Abstract, name)
}

// WiringError reports a problem detected while registering providers or
// building a container tree: duplicate final registrations, a provider
// attached to two containers, a cyclic alias, or a non-injectable key.
type WiringError struct {
	Msg string
	Err error
}

func (e *WiringError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("strata: wiring error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("strata: wiring error: %s", e.Msg)
}

func (e *WiringError) Unwrap() error { return e.Err }

func wiringErrorf(format string, args ...any) *WiringError {
	return &WiringError{Msg: fmt.Sprintf(format, args...)}
}

// StateError reports an injector state-machine violation: Setup outside
// the Fresh state, Get after Reset, or a second Reset.
type StateError struct {
	Msg string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("strata: state error: %s", e.Msg)
}

func stateErrorf(format string, args ...any) *StateError {
	return &StateError{Msg: fmt.Sprintf(format, args...)}
}

// PredicateError reports a Predicate implementation that violates its
// own contract at runtime: ProEntries must return an index-ordered
// subsequence of the PRO it was handed, never an entry absent from it
// (validateProEntries, predicate.go).
type PredicateError struct {
	Msg string
}

func (e *PredicateError) Error() string {
	return fmt.Sprintf("strata: predicate error: %s", e.Msg)
}

// Errors is a thread-safe accumulator that joins multiple errors into
// one, used for disposal-error collection the way
// mwantia/fabric's container.Errors collects Cleanup failures: release
// failures are gathered and reported after all resources are released,
// never aborting the LIFO unwind partway through.
type Errors struct {
	mu   sync.Mutex
	errs []error
}

// Add appends err to the collection. Nil errors are ignored.
func (e *Errors) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	e.errs = append(e.errs, err)
	e.mu.Unlock()
}

// Join returns a single joined error for all accumulated errors, or nil
// if none were added.
func (e *Errors) Join() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.errs) == 0 {
		return nil
	}
	return errors.Join(e.errs...)
}
