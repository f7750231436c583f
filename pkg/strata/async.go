package strata

import (
	"context"
	"reflect"
)

// Awaitable is implemented by dependency values that must be resolved
// asynchronously; strata does not execute async dependencies itself (spec
// §1 Out of scope, §4.5) — it only tags edges and plans them. An
// external executor (outside this package) drives Resolve.
type Awaitable interface {
	Resolve(ctx context.Context) (any, error)
}

var awaitableType = reflect.TypeOf((*Awaitable)(nil)).Elem()

// isAwaitableType reports whether t satisfies Awaitable, the test the
// planner (binder.go) applies to every positional and keyword edge to
// decide whether it must be tagged async (spec §4.7 step 4).
func isAwaitableType(t reflect.Type) bool {
	return t != nil && t.Implements(awaitableType)
}

// FutureWrapper is the planned "future wrapper" concrete a provider
// yields when any edge in its BoundParams is tagged async, or the
// factory itself is awaitable (spec §4.5). It records everything needed
// to assemble the call once an external executor has gathered the async
// edges; strata's core never calls Resolve on it.
type FutureWrapper struct {
	Factory     any
	Literals    map[string]any
	SyncArgs    []any
	SyncKwds    map[string]any
	AsyncArgs   []int
	AsyncKwds   []string
	AwaitCall   bool // whether Factory itself must be awaited
}

// NewFutureWrapper assembles a FutureWrapper from a bound plan's
// already-split sync/async edges.
func NewFutureWrapper(factory any, literals map[string]any, syncArgs []any, syncKwds map[string]any, asyncArgs []int, asyncKwds []string, awaitCall bool) *FutureWrapper {
	return &FutureWrapper{
		Factory:   factory,
		Literals:  literals,
		SyncArgs:  syncArgs,
		SyncKwds:  syncKwds,
		AsyncArgs: asyncArgs,
		AsyncKwds: asyncKwds,
		AwaitCall: awaitCall,
	}
}
