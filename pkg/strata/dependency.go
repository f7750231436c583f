package strata

import (
	"fmt"
	"reflect"
)

type depKind int

const (
	kindValue depKind = iota
	kindFactory
	kindSingleton
	kindCallable
	kindPartial
	kindInjectorContext
	kindLookup
	kindLookupError
	kindAnnotated
)

// Dependency is the immutable, bound plan the Scope produces for an
// abstract key: a factory closure (or literal value), its BoundParams,
// and an async tag. Equality and hashing are by (Abstract, scope,
// container) only — Concrete and Params are not part of identity, so
// the same logical dependency stays canonical (spec §4.4).
type Dependency struct {
	Abstract Injectable
	scope    *Scope
	Provider Provider

	kind     depKind
	value    any
	fn       any
	params   *BoundParams
	isAsync  bool
	lookup   *Lookup
	inner    *Dependency
	lookupOf Injectable // abstract key a LookupErrorDependency reports against

	annotatedTarget reflect.Type // struct type for kindAnnotated
}

// Scope returns the scope that produced this dependency.
func (d *Dependency) Scope() *Scope { return d.scope }

// Container returns the container this dependency is bound to: the
// composing provider's container, falling back to the scope's own
// container when the dependency has no provider (e.g. a lookup-error
// placeholder).
func (d *Dependency) Container() *Container {
	if d.Provider != nil {
		if c := d.Provider.Container(); c != nil {
			return c
		}
	}
	if d.scope != nil {
		return d.scope.container
	}
	return nil
}

// IsAsync reports whether this dependency's factory or any of its
// planned edges is tagged awaitable.
func (d *Dependency) IsAsync() bool { return d.isAsync }

// Dependencies returns the set of abstract keys this dependency's plan
// references.
func (d *Dependency) Dependencies() []Injectable {
	if d.params == nil {
		return nil
	}
	return d.params.Dependencies()
}

// dependencyKey identifies a Dependency for equality/caching purposes:
// (abstract, scope, container) — spec invariant 3.
type dependencyKey struct {
	abstract  Injectable
	scope     *Scope
	container *Container
}

func (d *Dependency) key() dependencyKey {
	return dependencyKey{abstract: d.Abstract, scope: d.scope, container: d.Container()}
}

func newValueDependency(scope *Scope, abstract Injectable, p Provider, v any) *Dependency {
	return &Dependency{Abstract: abstract, scope: scope, Provider: p, kind: kindValue, value: v}
}

func newFactoryDependency(scope *Scope, abstract Injectable, p Provider, fn any, params *BoundParams, singleton bool) *Dependency {
	k := kindFactory
	if singleton {
		k = kindSingleton
	}
	async := (params != nil && params.IsAsync()) || fnReturnsAwaitable(fn)
	return &Dependency{
		Abstract: abstract, scope: scope, Provider: p, kind: k,
		fn: fn, params: params, isAsync: async,
	}
}

func newCallableDependency(scope *Scope, abstract Injectable, p Provider, fn any, params *BoundParams) *Dependency {
	async := (params != nil && params.IsAsync()) || fnReturnsAwaitable(fn)
	return &Dependency{Abstract: abstract, scope: scope, Provider: p, kind: kindCallable, fn: fn, params: params, isAsync: async}
}

func newPartialDependency(scope *Scope, abstract Injectable, p Provider, fn any, params *BoundParams) *Dependency {
	async := (params != nil && params.IsAsync()) || fnReturnsAwaitable(fn)
	return &Dependency{Abstract: abstract, scope: scope, Provider: p, kind: kindPartial, fn: fn, params: params, isAsync: async}
}

// fnReturnsAwaitable reports whether fn's first return value satisfies
// Awaitable, tagging the dependency itself as async even when none of
// its parameter edges are (spec §4.5: "or the factory itself is
// awaitable").
func fnReturnsAwaitable(fn any) bool {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func || t.NumOut() == 0 {
		return false
	}
	return isAwaitableType(t.Out(0))
}

func newInjectorContextDependency(scope *Scope, abstract Injectable, p Provider) *Dependency {
	return &Dependency{Abstract: abstract, scope: scope, Provider: p, kind: kindInjectorContext}
}

func newLookupDependency(scope *Scope, abstract Injectable, p Provider, l *Lookup, inner *Dependency) *Dependency {
	return &Dependency{Abstract: abstract, scope: scope, Provider: p, kind: kindLookup, lookup: l, inner: inner, isAsync: inner.isAsync}
}

func newAnnotatedDependency(scope *Scope, abstract Injectable, p Provider, target reflect.Type, params *BoundParams) *Dependency {
	return &Dependency{Abstract: abstract, scope: scope, Provider: p, kind: kindAnnotated, annotatedTarget: target, params: params, isAsync: params != nil && params.IsAsync()}
}

// newLookupErrorDependency builds the memoized negative-result
// placeholder for an unresolved key (spec §4.4: "exists so absent can
// be cached and distinguished from not yet resolved").
func newLookupErrorDependency(scope *Scope, abstract Injectable) *Dependency {
	return &Dependency{Abstract: abstract, scope: scope, kind: kindLookupError, lookupOf: abstract}
}

func (d *Dependency) isLookupError() bool { return d.kind == kindLookupError }

// bind turns this dependency into a runtime-callable value for injector.
// Most kinds return a zero-argument func() (any, error); kindPartial
// returns a variadic func(...any) (any, error) since a Partial's whole
// purpose is accepting call-site arguments (spec §4.2 Partial).
func (d *Dependency) bind(injector *Injector) (any, error) {
	switch d.kind {
	case kindValue:
		return func() (any, error) { return d.value, nil }, nil

	case kindFactory:
		return d.bindFactory(injector), nil

	case kindSingleton:
		return d.bindSingleton(injector), nil

	case kindCallable:
		if d.isAsync {
			return func() (any, error) { return d.buildFutureWrapper(injector) }, nil
		}
		fn, err := d.planCall(injector)
		if err != nil {
			return nil, err
		}
		return func() (any, error) { return fn, nil }, nil

	case kindPartial:
		return d.bindPartial(injector), nil

	case kindInjectorContext:
		return func() (any, error) { return injector, nil }, nil

	case kindLookup:
		return d.bindLookup(injector), nil

	case kindLookupError:
		return nil, &InjectorLookupError{Abstract: d.lookupOf, Scope: d.scope}

	case kindAnnotated:
		return d.bindAnnotated(injector), nil

	default:
		return nil, fmt.Errorf("strata: unknown dependency kind %d", d.kind)
	}
}

func (d *Dependency) bindFactory(injector *Injector) func() (any, error) {
	if d.isAsync {
		return func() (any, error) { return d.buildFutureWrapper(injector) }
	}
	return func() (any, error) {
		return d.invoke(injector)
	}
}

// bindSingleton tracks the built value for disposal inside the build
// closure itself, not at the Get call site: singletonValue only runs
// this closure the one time it actually constructs the value, so a
// singleton resolved N times still ends up on the disposal stack once
// (spec §4.6 "singleton value set once").
func (d *Dependency) bindSingleton(injector *Injector) func() (any, error) {
	build := func() (any, error) {
		v, err := d.invoke(injector)
		if err != nil {
			return nil, err
		}
		injector.trackDisposable(v)
		return v, nil
	}
	if d.isAsync {
		build = func() (any, error) {
			v, err := d.buildFutureWrapper(injector)
			if err != nil {
				return nil, err
			}
			injector.trackDisposable(v)
			return v, nil
		}
	}
	return func() (any, error) {
		return injector.singletonValue(d, build)
	}
}

func (d *Dependency) bindPartial(injector *Injector) func(extra ...any) (any, error) {
	return func(extra ...any) (any, error) {
		if d.isAsync {
			return d.buildFutureWrapperWithExtra(injector, extra)
		}
		return d.invokeWith(injector, extra)
	}
}

func (d *Dependency) bindLookup(injector *Injector) func() (any, error) {
	return func() (any, error) {
		innerFn, err := d.inner.bind(injector)
		if err != nil {
			return nil, err
		}
		base, err := callZeroArg(innerFn)
		if err != nil {
			return nil, err
		}
		return d.lookup.Eval(reflect.ValueOf(base))
	}
}

func (d *Dependency) bindAnnotated(injector *Injector) func() (any, error) {
	if d.isAsync {
		return func() (any, error) { return d.buildFutureWrapper(injector) }
	}
	return func() (any, error) {
		return fillStruct(d.annotatedTarget, d.params, injector)
	}
}

// buildFutureWrapper resolves a dependency's sync edges eagerly and
// records the positions of its tagged-async ones without touching them
// (spec §4.5): the resulting FutureWrapper is the planned concrete an
// external executor assembles the final call from. strata's core stops
// here and never calls Resolve on an async edge itself.
func (d *Dependency) buildFutureWrapper(injector *Injector) (*FutureWrapper, error) {
	factory := d.fn
	if factory == nil && d.annotatedTarget != nil {
		factory = d.annotatedTarget
	}
	syncKwds := map[string]any{}
	var syncArgs []any
	var asyncArgs []int
	var asyncKwds []string

	if d.params != nil {
		await := make(map[int]bool, len(d.params.AwaitArgs))
		for _, idx := range d.params.AwaitArgs {
			await[idx] = true
		}
		for i, a := range d.params.Args {
			if await[i] {
				asyncArgs = append(asyncArgs, i)
				continue
			}
			v, err := resolveSingleArg(a, injector)
			if err != nil {
				return nil, err
			}
			syncArgs = append(syncArgs, v)
		}
		for _, k := range d.params.Kwds {
			if d.params.AwaitKwds[k.Key] {
				asyncKwds = append(asyncKwds, k.Key)
				continue
			}
			v, err := resolveSingleArg(Arg{Value: k.Value, HasValue: k.HasValue, Dependency: k.Dependency, Marker: k.Marker}, injector)
			if err != nil {
				return nil, err
			}
			syncKwds[k.Key] = v
		}
	}

	return NewFutureWrapper(factory, nil, syncArgs, syncKwds, asyncArgs, asyncKwds, fnReturnsAwaitable(d.fn)), nil
}

// buildFutureWrapperWithExtra is buildFutureWrapper for a Partial whose
// call-site extra arguments are always already-resolved literals, so
// they append directly onto the sync side of the plan.
func (d *Dependency) buildFutureWrapperWithExtra(injector *Injector, extra []any) (*FutureWrapper, error) {
	fw, err := d.buildFutureWrapper(injector)
	if err != nil {
		return nil, err
	}
	fw.SyncArgs = append(fw.SyncArgs, extra...)
	return fw, nil
}

func resolveSingleArg(a Arg, injector *Injector) (any, error) {
	if a.HasValue {
		return a.Value, nil
	}
	return injector.getByKey(a.Dependency, a.Marker)
}

func callZeroArg(fn any) (any, error) {
	f, ok := fn.(func() (any, error))
	if !ok {
		return nil, fmt.Errorf("strata: lookup target is not a zero-arg dependency")
	}
	return f()
}

func (d *Dependency) planCall(injector *Injector) (any, error) {
	args, err := resolveArgs(d.params, injector)
	if err != nil {
		return nil, err
	}
	fnVal := reflect.ValueOf(d.fn)
	bound := func() (any, error) {
		return callFunc(fnVal, args)
	}
	return bound, nil
}

func (d *Dependency) invoke(injector *Injector) (any, error) {
	args, err := resolveArgs(d.params, injector)
	if err != nil {
		return nil, err
	}
	return callFunc(reflect.ValueOf(d.fn), args)
}

func (d *Dependency) invokeWith(injector *Injector, extra []any) (any, error) {
	args, err := resolveArgs(d.params, injector)
	if err != nil {
		return nil, err
	}
	for _, e := range extra {
		args = append(args, reflect.ValueOf(e))
	}
	return callFunc(reflect.ValueOf(d.fn), args)
}

// resolveArgs resolves every Arg in params against injector, returning
// the positional reflect.Value slice ready to pass to reflect.Value.Call.
func resolveArgs(params *BoundParams, injector *Injector) ([]reflect.Value, error) {
	if params == nil {
		return nil, nil
	}
	out := make([]reflect.Value, 0, len(params.Args))
	for _, a := range params.Args {
		v, err := resolveSingleArg(a, injector)
		if err != nil {
			return nil, err
		}
		out = append(out, valueOrZero(v))
	}
	return out, nil
}

func valueOrZero(v any) reflect.Value {
	if v == nil {
		return reflect.Value{}
	}
	return reflect.ValueOf(v)
}

func callFunc(fnVal reflect.Value, args []reflect.Value) (any, error) {
	// Replace each invalid (nil) argument with the zero value of its
	// declared parameter type (e.g. a nil literal override).
	fnType := fnVal.Type()
	for i, a := range args {
		if !a.IsValid() && i < fnType.NumIn() {
			args[i] = reflect.Zero(fnType.In(i))
		}
	}
	out := fnVal.Call(args)
	return splitCallResult(out)
}

func splitCallResult(out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if isErrorType(out[0].Type()) {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	default:
		last := out[len(out)-1]
		if isErrorType(last.Type()) {
			if len(out) == 2 {
				return out[0].Interface(), asError(last)
			}
			vals := make([]any, len(out)-1)
			for i := range vals {
				vals[i] = out[i].Interface()
			}
			return vals, asError(last)
		}
		vals := make([]any, len(out))
		for i := range vals {
			vals[i] = out[i].Interface()
		}
		return vals, nil
	}
}

var errorIfaceType = reflect.TypeOf((*error)(nil)).Elem()

func isErrorType(t reflect.Type) bool { return t.Implements(errorIfaceType) }

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// fillStruct constructs a new instance of t (or *t) and sets every field
// named in params.Kwds by resolving its dependency edge through
// injector, the Go analogue of xdi's keyword-argument binding (spec
// §4.7, adapted from the teacher's fabric-tag field injection).
func fillStruct(t reflect.Type, params *BoundParams, injector *Injector) (any, error) {
	ptrKind := t.Kind() == reflect.Ptr
	elemType := t
	if ptrKind {
		elemType = t.Elem()
	}
	val := reflect.New(elemType)
	structVal := val.Elem()

	for _, kw := range params.Kwds {
		field := structVal.FieldByName(kw.Key)
		if !field.IsValid() || !field.CanSet() {
			continue
		}
		var resolved any
		var err error
		if kw.HasValue {
			resolved = kw.Value
		} else {
			resolved, err = injector.getByKey(kw.Dependency, kw.Marker)
			if err != nil {
				return nil, err
			}
		}
		if resolved != nil {
			field.Set(reflect.ValueOf(resolved))
		}
	}

	if ptrKind {
		return val.Interface(), nil
	}
	return structVal.Interface(), nil
}
