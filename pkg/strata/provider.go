package strata

import "reflect"

// Provider is a registered recipe for producing a Dependency for some
// abstract key. Containers hold providers; Compose turns a provider,
// plus the Scope and key it is being resolved for, into a concrete
// Dependency (spec §4.2).
type Provider interface {
	Container() *Container
	setContainer(c *Container)

	// IsFinal marks a provider as the last word for its key: no later
	// registration under the same (key, locality) may override it.
	IsFinal() bool
	// IsDefault marks a provider as low-priority filler, registered
	// ahead of time in case nothing more specific shows up.
	IsDefault() bool
	// Autoload reports whether the provider's dependency should be
	// constructed eagerly when its owning Injector starts up.
	Autoload() bool
	// AccessLevel is the minimum caller access this provider requires;
	// zero (unset) means no access check is applied to the provider.
	AccessLevel() AccessLevel
	// Guard is an extra predicate narrowing which PRO entries may serve
	// this provider, checked after the AccessLevel check; nil applies none.
	Guard() Predicate

	// Compose builds the Dependency this provider yields for key when
	// resolved by scope. No caller in this package passes overrides, and
	// none of the provider kinds here reads them.
	Compose(scope *Scope, key Injectable, overrides ...Provider) (*Dependency, error)
}

// providerBase holds the fields every concrete provider kind shares:
// container ownership and the final/default/autoload/access/guard
// registration flags (spec §4.2 "shared contract").
type providerBase struct {
	container *Container
	final     bool
	isDefault bool
	autoload  bool
	access    AccessLevel
	guard     Predicate
}

func (p *providerBase) Container() *Container      { return p.container }
func (p *providerBase) setContainer(c *Container)   { p.container = c }
func (p *providerBase) IsFinal() bool               { return p.final }
func (p *providerBase) IsDefault() bool             { return p.isDefault }
func (p *providerBase) Autoload() bool              { return p.autoload }
func (p *providerBase) AccessLevel() AccessLevel    { return p.access }
func (p *providerBase) Guard() Predicate            { return p.guard }

// ---- ValueProvider --------------------------------------------------

// ValueProvider always yields the same, already-constructed value.
type ValueProvider struct {
	providerBase
	value any
}

// Value registers a fixed, already-constructed value.
func Value(v any) *ValueProvider {
	return &ValueProvider{value: v}
}

func (p *ValueProvider) Final() *ValueProvider    { p.final = true; return p }
func (p *ValueProvider) Default() *ValueProvider  { p.isDefault = true; return p }
func (p *ValueProvider) WithAccess(a AccessLevel) *ValueProvider { p.access = a; return p }
func (p *ValueProvider) WithGuard(g Predicate) *ValueProvider    { p.guard = g; return p }

func (p *ValueProvider) Compose(scope *Scope, key Injectable, _ ...Provider) (*Dependency, error) {
	return newValueDependency(scope, key, p, p.value), nil
}

// ---- AliasProvider ----------------------------------------------------

// AliasProvider redirects resolution of key to another abstract key,
// resolved afresh in the same scope (spec §4.2 Alias).
type AliasProvider struct {
	providerBase
	to Injectable
}

// Alias registers key as an alias for to.
func Alias(to Injectable) *AliasProvider {
	return &AliasProvider{to: to}
}

func (p *AliasProvider) Final() *AliasProvider   { p.final = true; return p }
func (p *AliasProvider) Default() *AliasProvider { p.isDefault = true; return p }

func (p *AliasProvider) Compose(scope *Scope, key Injectable, _ ...Provider) (*Dependency, error) {
	target, err := scope.resolveDependency(p.to, scope.container, Global, false)
	if err != nil {
		return nil, err
	}
	return target, nil
}

// ---- FactoryProvider --------------------------------------------------

// FactoryProvider constructs its value by calling fn once planned.
// Args/Kwargs supply explicit overrides; unmatched parameters default
// to dependency-by-type edges (spec §4.2 Factory, §4.7).
type FactoryProvider struct {
	providerBase
	fn        any
	overrides []any
	params    *BoundParams
	singleton bool
}

// Factory registers fn as a constructor, planned via PlanFunc.
func Factory(fn any) *FactoryProvider {
	return &FactoryProvider{fn: fn}
}

// Args supplies positional overrides bound left-to-right onto fn's
// parameter list; remaining parameters default to dependency edges.
func (p *FactoryProvider) Args(overrides ...any) *FactoryProvider {
	p.overrides = overrides
	return p
}

// Singleton marks the provider's dependency memoized per-Injector
// (spec §4.6 "singleton cache").
func (p *FactoryProvider) Singleton() *FactoryProvider { p.singleton = true; return p }

func (p *FactoryProvider) Final() *FactoryProvider      { p.final = true; return p }
func (p *FactoryProvider) Default() *FactoryProvider    { p.isDefault = true; return p }
func (p *FactoryProvider) AsAutoload() *FactoryProvider { p.autoload = true; return p }
func (p *FactoryProvider) WithAccess(a AccessLevel) *FactoryProvider { p.access = a; return p }
func (p *FactoryProvider) WithGuard(g Predicate) *FactoryProvider    { p.guard = g; return p }

func (p *FactoryProvider) plan() (*BoundParams, error) {
	if p.params != nil {
		return p.params, nil
	}
	bp, err := PlanFuncWith(p.fn, p.overrides...)
	if err != nil {
		return nil, err
	}
	p.params = bp
	return bp, nil
}

func (p *FactoryProvider) Compose(scope *Scope, key Injectable, _ ...Provider) (*Dependency, error) {
	bp, err := p.plan()
	if err != nil {
		return nil, err
	}
	return newFactoryDependency(scope, key, p, p.fn, bp, p.singleton), nil
}

// ---- CallableProvider --------------------------------------------------

// CallableProvider yields the bound, callable closure itself — rather
// than the closure's invocation result — so callers can invoke it
// repeatedly, possibly with different side effects each time (spec §4.2
// Callable).
type CallableProvider struct {
	providerBase
	fn        any
	overrides []any
}

// Callable registers fn so resolution yields the planned callable
// itself instead of its result.
func Callable(fn any) *CallableProvider {
	return &CallableProvider{fn: fn}
}

func (p *CallableProvider) Args(overrides ...any) *CallableProvider {
	p.overrides = overrides
	return p
}

func (p *CallableProvider) Final() *CallableProvider   { p.final = true; return p }
func (p *CallableProvider) Default() *CallableProvider { p.isDefault = true; return p }

func (p *CallableProvider) Compose(scope *Scope, key Injectable, _ ...Provider) (*Dependency, error) {
	bp, err := PlanFuncWith(p.fn, p.overrides...)
	if err != nil {
		return nil, err
	}
	return newCallableDependency(scope, key, p, p.fn, bp), nil
}

// ---- PartialProvider --------------------------------------------------

// PartialProvider binds fn against its planned edges but yields a
// closure still accepting extra call-site arguments, appended after the
// planned ones (spec §4.2 Partial).
type PartialProvider struct {
	providerBase
	fn        any
	overrides []any
}

// Partial registers fn for partial application: planned edges are
// resolved on every call of the closure, and the remaining positional
// args are supplied at call time.
func Partial(fn any) *PartialProvider {
	return &PartialProvider{fn: fn}
}

func (p *PartialProvider) Args(overrides ...any) *PartialProvider {
	p.overrides = overrides
	return p
}

func (p *PartialProvider) Compose(scope *Scope, key Injectable, _ ...Provider) (*Dependency, error) {
	fnType := reflect.TypeOf(p.fn)
	if fnType == nil || fnType.Kind() != reflect.Func {
		return nil, wiringErrorf("Partial: %v is not a function", p.fn)
	}
	bp := planPartialOverrides(fnType, p.overrides)
	return newPartialDependency(scope, key, p, p.fn, bp), nil
}

// ---- UnionProvider --------------------------------------------------

// UnionProvider narrows resolution of a Union marker's members to the
// first member any container in the PRO actually provides (spec §3
// Union, "reorder-on-registration").
type UnionProvider struct {
	providerBase
	members []Injectable
}

// UnionOf registers a provider that, on resolution, narrows to the
// first of members that some container in the PRO actually provides.
func UnionOf(members ...Injectable) *UnionProvider {
	return &UnionProvider{members: members}
}

func (p *UnionProvider) Compose(scope *Scope, key Injectable, _ ...Provider) (*Dependency, error) {
	for _, m := range p.members {
		if scope.container.Provides(m, Global) {
			return scope.resolveDependency(m, scope.container, Global, false)
		}
	}
	return nil, wiringErrorf("union %v: no member is provided", p.members)
}

// ---- AnnotatedProvider --------------------------------------------------

// AnnotatedProvider resolves to a struct populated per the target
// type's `strata:"inject"` tags, the Go analogue of the teacher's
// fabric-tag auto-construction (spec §4.2 Annotated, §4.7 step 2).
type AnnotatedProvider struct {
	providerBase
	target reflect.Type
}

// Annotated registers target for struct-tag-driven auto-construction.
func Annotated(target reflect.Type) *AnnotatedProvider {
	return &AnnotatedProvider{target: target}
}

func (p *AnnotatedProvider) Final() *AnnotatedProvider   { p.final = true; return p }
func (p *AnnotatedProvider) Default() *AnnotatedProvider { p.isDefault = true; return p }

func (p *AnnotatedProvider) Compose(scope *Scope, key Injectable, _ ...Provider) (*Dependency, error) {
	bp, err := PlanStruct(p.target)
	if err != nil {
		return nil, err
	}
	return newAnnotatedDependency(scope, key, p, p.target, bp), nil
}

// ---- InjectorContextProvider --------------------------------------------------

// InjectorContextProvider yields the resolving Injector itself, letting
// a factory reach back into the container that is constructing it
// (spec §4.2 InjectorContext).
type InjectorContextProvider struct {
	providerBase
}

// InjectorContext registers a provider yielding the resolving Injector.
func InjectorContext() *InjectorContextProvider {
	return &InjectorContextProvider{}
}

func (p *InjectorContextProvider) Compose(scope *Scope, key Injectable, _ ...Provider) (*Dependency, error) {
	return newInjectorContextDependency(scope, key, p), nil
}

// ---- DepMarkerProvider --------------------------------------------------

// DepMarkerProvider composes the Dependency a bare marker (PureDep, Dep,
// Lookup, Union, Annotated) resolves to, dispatching through
// Scope.resolveMarker (spec §3 Dependency markers).
type DepMarkerProvider struct {
	providerBase
	marker Marker
}

// DepMarker registers a marker directly as a provider, e.g. to give a
// Lookup or Union expression its own abstract key.
func DepMarker(m Marker) *DepMarkerProvider {
	return &DepMarkerProvider{marker: m}
}

func (p *DepMarkerProvider) Compose(scope *Scope, key Injectable, _ ...Provider) (*Dependency, error) {
	dep, err := scope.resolveMarker(p.marker)
	if err != nil {
		return nil, err
	}
	// Wrap rather than mutate: dep may be a memoized pointer shared with
	// other lookups of its own abstract key.
	alias := *dep
	alias.Abstract = key
	return &alias, nil
}
