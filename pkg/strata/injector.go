package strata

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type injectorState int

const (
	stateFresh injectorState = iota
	stateActive
	stateDisposed
)

// Disposable is implemented by resolved values that own a resource
// needing release when their owning Injector is reset: a connection, a
// file handle, a background goroutine. Disposal runs in reverse
// resolution order (spec §4.6 "disposal stack"), the Go analogue of the
// teacher's LifecycleService.Cleanup.
type Disposable interface {
	Dispose(ctx context.Context) error
}

// Injector is the runtime carrier for one resolution session: it binds
// Dependencies produced by its Scope into callable values, caches
// singleton values for its own lifetime, and unwinds any Disposable
// values it created, in reverse order, on Reset (spec §4.6).
type Injector struct {
	id     string
	scope  *Scope
	parent *Injector
	logger *slog.Logger

	mu    sync.Mutex
	state injectorState

	singletons sync.Map // *Dependency -> any
	sf         singleflight.Group

	disposeMu sync.Mutex
	disposals []func(context.Context) error
}

// InjectorOption configures an Injector at construction time.
type InjectorOption func(*Injector)

// WithLogger attaches a structured logger, used for autoload and
// disposal diagnostics. A nil logger keeps the default, slog.Default().
func WithLogger(l *slog.Logger) InjectorOption {
	return func(i *Injector) {
		if l != nil {
			i.logger = l
		}
	}
}

// NewInjector builds an injector bound to scope, optionally chained to
// parent (spec §4.6 "Injector hierarchy mirrors Scope hierarchy").
func NewInjector(scope *Scope, parent *Injector, opts ...InjectorOption) *Injector {
	inj := &Injector{
		id:     uuid.NewString(),
		scope:  scope,
		parent: parent,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(inj)
	}
	return inj
}

// ID returns the injector's unique identifier.
func (i *Injector) ID() string { return i.id }

// Parent returns the injector's parent, or nil at the root.
func (i *Injector) Parent() *Injector { return i.parent }

// Scope returns the injector's backing scope.
func (i *Injector) Scope() *Scope { return i.scope }

// Setup transitions the injector to active and eagerly binds every
// autoload-tagged provider registered on its container, in registration
// order (spec §4.2 Autoload, §4.6 "Setup/Reset state machine").
func (i *Injector) Setup(ctx context.Context) error {
	i.mu.Lock()
	if i.state != stateFresh {
		i.mu.Unlock()
		return stateErrorf("injector %s: Setup called outside Fresh state", i.id)
	}
	i.state = stateActive
	i.mu.Unlock()

	errs := &Errors{}
	for _, key := range i.scope.container.Autoloads() {
		if _, err := i.Get(key); err != nil {
			i.logger.Error("autoload failed", "injector", i.id, "key", key.String(), "error", err)
			errs.Add(wiringErrorf("autoload %s: %v", key, err))
		}
	}
	return errs.Join()
}

// Reset disposes every Disposable value this injector produced, in
// reverse order, and transitions it to Disposed. Further Get calls
// after Reset fail with a StateError.
func (i *Injector) Reset(ctx context.Context) error {
	i.mu.Lock()
	if i.state == stateDisposed {
		i.mu.Unlock()
		return stateErrorf("injector %s: already disposed", i.id)
	}
	i.state = stateDisposed
	i.mu.Unlock()

	i.disposeMu.Lock()
	stack := i.disposals
	i.disposals = nil
	i.disposeMu.Unlock()

	errs := &Errors{}
	for n := len(stack) - 1; n >= 0; n-- {
		if err := stack[n](ctx); err != nil {
			i.logger.Error("disposal failed", "injector", i.id, "error", err)
			errs.Add(err)
		}
	}
	return errs.Join()
}

func (i *Injector) checkActive() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state == stateDisposed {
		return stateErrorf("injector %s: Get called after Reset", i.id)
	}
	return nil
}

// Get resolves key through the injector's scope and binds it into a
// value, recursing into the parent injector when the scope lookup
// crosses into an ancestor scope's container.
func (i *Injector) Get(key Injectable) (any, error) {
	if err := i.checkActive(); err != nil {
		return nil, err
	}
	dep, err := i.scope.Get(key)
	if err != nil {
		return nil, err
	}
	return i.resolveValue(dep)
}

// getByKey is the internal edge-resolution entry point used while
// invoking a bound factory or filling a tagged struct: marker, when
// non-nil, carries predicate/default/lookup semantics beyond a plain
// type lookup.
func (i *Injector) getByKey(key Injectable, marker Marker) (any, error) {
	if err := i.checkActive(); err != nil {
		return nil, err
	}
	var dep *Dependency
	var err error
	if marker != nil {
		dep, err = i.scope.resolveMarker(marker)
	} else {
		dep, err = i.scope.Get(key)
	}
	if err != nil {
		return nil, err
	}
	return i.resolveValue(dep)
}

func (i *Injector) resolveValue(dep *Dependency) (any, error) {
	owner := i.injectorFor(dep.Scope())
	fn, err := dep.bind(owner)
	if err != nil {
		return nil, err
	}
	call, ok := fn.(func() (any, error))
	if !ok {
		return fn, nil // kindPartial yields its variadic closure directly
	}
	v, err := call()
	if err != nil {
		return nil, err
	}
	if dep.kind != kindSingleton {
		// Singletons track their own disposal inside the build closure
		// (Dependency.bindSingleton), exactly once, the moment they're
		// actually constructed — not on every cache-hit Get.
		owner.trackDisposable(v)
	}
	return v, nil
}

// injectorFor walks up the injector's parent chain to find the
// injector whose scope matches dep's owning scope, so a dependency
// resolved from an ancestor container is bound (and singleton-cached)
// against the injector that actually owns that scope.
func (i *Injector) injectorFor(scope *Scope) *Injector {
	for cur := i; cur != nil; cur = cur.parent {
		if cur.scope == scope {
			return cur
		}
	}
	return i
}

func (i *Injector) trackDisposable(v any) {
	d, ok := v.(Disposable)
	if !ok {
		return
	}
	i.disposeMu.Lock()
	i.disposals = append(i.disposals, d.Dispose)
	i.disposeMu.Unlock()
}

// singletonValue returns the cached value for dep, building it exactly
// once across concurrent callers via golang.org/x/sync/singleflight
// (spec §4.6 "singleton single-flight").
func (i *Injector) singletonValue(dep *Dependency, build func() (any, error)) (any, error) {
	if v, ok := i.singletons.Load(dep); ok {
		return v, nil
	}
	v, err, _ := i.sf.Do(dep.Abstract.String(), func() (any, error) {
		if v, ok := i.singletons.Load(dep); ok {
			return v, nil
		}
		val, err := build()
		if err != nil {
			return nil, err
		}
		i.singletons.Store(dep, val)
		return val, nil
	})
	return v, err
}

// IsProvided reports whether key resolves to something within this
// injector's scope chain, without caching a negative result.
func (i *Injector) IsProvided(key Injectable) bool {
	return i.scope.IsProvided(key, false)
}

// Resolve is the generic convenience wrapper over Injector.Get, the Go
// analogue of the teacher's Resolve[T](ctx, container) (spec §6
// "External interfaces"): it derives the key from T itself.
func Resolve[T any](injector *Injector) (T, error) {
	var zero T
	key := KeyOf[T]()
	v, err := injector.Get(key)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, wiringErrorf("resolved value for %s is not assignable to %T", key, zero)
	}
	return typed, nil
}

// NullInjector is the sentinel injector backing NullScope: every Get
// fails immediately, matching NullScope's own behavior.
var NullInjector = NewInjector(NullScope, nil)
