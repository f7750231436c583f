package strata

import "sync"

// missingType is the sentinel for "no default provided" (spec §3:
// `has_default ⇔ default ≠ Missing`).
type missingType struct{}

// Missing marks the absence of a default value on a Dep marker.
var Missing any = missingType{}

// Marker is a dependency marker: a wrapper around an abstract key that
// carries resolution metadata. PureDep, Dep, Lookup, Union, and
// Annotated all implement Marker.
type Marker interface {
	Abstract() Injectable
}

// PureDep is the bare marker: it behaves like its wrapped abstract key
// for equality and resolution, carrying no predicate or default.
type PureDep struct {
	abstract Injectable
}

var pureDepCache sync.Map // Injectable -> *PureDep

// NewPureDep returns the interned PureDep for abstract (invariant 5: a
// Dep with no predicate and no default is the same object as
// PureDep(abstract), so the common path stays equality-fast).
func NewPureDep(abstract Injectable) *PureDep {
	if v, ok := pureDepCache.Load(abstract); ok {
		return v.(*PureDep)
	}
	pd := &PureDep{abstract: abstract}
	actual, _ := pureDepCache.LoadOrStore(abstract, pd)
	return actual.(*PureDep)
}

func (p *PureDep) Abstract() Injectable { return p.abstract }

// Dep carries a PRO predicate and an optional default alongside its
// abstract key. Constructing a Dep with Predicate == Noop and no
// default returns the interned PureDep instead (see NewPureDep).
type Dep struct {
	abstract  Injectable
	predicate Predicate
	def       any
}

// DepOption configures a Dep at construction time.
type DepOption func(*Dep)

// WithPredicate attaches a PRO predicate to a Dep.
func WithPredicate(p Predicate) DepOption {
	return func(d *Dep) { d.predicate = p }
}

// WithDefault attaches a default value (or another Marker, for
// injects_default semantics) to a Dep.
func WithDefault(v any) DepOption {
	return func(d *Dep) { d.def = v }
}

// NewDep builds a Dep marker for abstract. When no predicate and no
// default are supplied it returns the interned PureDep for abstract
// instead of a *Dep, matching xdi's `Dep(abstract) == PureDep(abstract)`
// rule.
func NewDep(abstract Injectable, opts ...DepOption) Marker {
	d := &Dep{abstract: abstract, predicate: Noop, def: Missing}
	for _, opt := range opts {
		opt(d)
	}
	if d.predicate == nil {
		d.predicate = Noop
	}
	if d.predicate == Noop && d.def == Missing {
		return NewPureDep(abstract)
	}
	return d
}

func (d *Dep) Abstract() Injectable { return d.abstract }
func (d *Dep) Predicate() Predicate { return d.predicate }
func (d *Dep) Default() any         { return d.def }
func (d *Dep) HasDefault() bool     { return d.def != Missing }

// InjectsDefault reports whether the Dep's default is itself a
// dependency marker to be resolved, rather than a literal value.
func (d *Dep) InjectsDefault() bool {
	_, ok := d.def.(Marker)
	return ok
}

// And, Or combine a Dep's predicate with p, returning a new Dep (xdi's
// `Dep & predicate`, `Dep | predicate`).
func (d *Dep) And(p Predicate) *Dep {
	return &Dep{abstract: d.abstract, predicate: And(d.predicate, p), def: d.def}
}

func (d *Dep) Or(p Predicate) *Dep {
	return &Dep{abstract: d.abstract, predicate: Or(d.predicate, p), def: d.def}
}

// Union resolves to the first member that a container provides, tried
// in the order the members were given to NewUnion.
type Union struct {
	members []Injectable
}

// NewUnion builds a Union marker over members, tried in order.
func NewUnion(members ...Injectable) *Union {
	return &Union{members: append([]Injectable(nil), members...)}
}

func (u *Union) Abstract() Injectable { return u.members[0] }
func (u *Union) Members() []Injectable {
	return append([]Injectable(nil), u.members...)
}

// Annotated resolves by consulting metadata keys first, then falling
// back to the target type T.
type Annotated struct {
	target Injectable
	meta   []Injectable
}

// NewAnnotated builds an Annotated marker: meta keys are tried, in
// order, before target.
func NewAnnotated(target Injectable, meta ...Injectable) *Annotated {
	return &Annotated{target: target, meta: append([]Injectable(nil), meta...)}
}

func (a *Annotated) Abstract() Injectable   { return a.target }
func (a *Annotated) Meta() []Injectable     { return append([]Injectable(nil), a.meta...) }
