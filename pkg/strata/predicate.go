package strata

import (
	"fmt"
	"sort"
)

// DepSrc carries the originating container and scope of a lookup, passed
// to every Predicate.ProEntries call so predicates can compare "current"
// against "source" (AccessLevel.ProEntries, ScopePredicate.ProEntries).
type DepSrc struct {
	Container *Container
	Scope     *Scope
}

// Predicate filters a provider-resolution order (PRO). ProEntries must
// return a filtered, index-ordered subsequence of it — never reorder,
// never introduce an entry absent from it (invariant 2: idempotent,
// order-preserving).
type Predicate interface {
	ProEntries(pro []*Container, scope *Scope, src DepSrc) []*Container
}

// And, Or, Sub, and Invert build the predicate combinator tree (spec
// §3 "Combinators"). A nil operand is treated as Noop.
func And(a, b Predicate) Predicate { return andPredicate{norm(a), norm(b)} }
func Or(a, b Predicate) Predicate  { return orPredicate{norm(a), norm(b)} }
func Sub(a, b Predicate) Predicate { return subPredicate{norm(a), norm(b)} }
func Invert(p Predicate) Predicate { return subPredicate{Noop, norm(p)} }

func norm(p Predicate) Predicate {
	if p == nil {
		return Noop
	}
	return p
}

// Noop is the identity filter: it returns its input unchanged.
var Noop Predicate = noopPredicate{}

type noopPredicate struct{}

func (noopPredicate) ProEntries(pro []*Container, _ *Scope, _ DepSrc) []*Container {
	return pro
}

// AccessLevel keeps containers whose access level, viewed from the
// requesting container, is at least as permissive as the level named.
type AccessLevel int

const (
	Public AccessLevel = iota + 1
	Protected
	Guarded
	Private
)

func (a AccessLevel) String() string {
	switch a {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Guarded:
		return "guarded"
	case Private:
		return "private"
	default:
		return "unknown"
	}
}

// ProEntries keeps c in the result iff c.AccessLevelFrom(src.Container)
// is at least as permissive as a.
func (a AccessLevel) ProEntries(pro []*Container, _ *Scope, src DepSrc) []*Container {
	out := make([]*Container, 0, len(pro))
	for _, c := range pro {
		if c.AccessLevelFrom(src.Container) >= a {
			out = append(out, c)
		}
	}
	return out
}

// ScopePredicate gates resolution on whether the scope attempting
// composition is the same scope that originated the lookup. OnlySelf
// keeps the PRO only while still inside the originating scope; SkipSelf
// keeps it only once resolution has moved to an ancestor scope.
type ScopePredicate bool

const (
	OnlySelf ScopePredicate = true
	SkipSelf ScopePredicate = false
)

func (s ScopePredicate) ProEntries(pro []*Container, scope *Scope, src DepSrc) []*Container {
	if (scope == src.Scope) == bool(s) {
		return pro
	}
	return nil
}

// Slice keeps the sub-sequence of the PRO between start and stop (by
// index, or by container identity) stepping by step, Python-slice style.
// A nil Start/Stop behaves like an absent slice bound; a zero Step means 1.
type Slice struct {
	Start, Stop *int
	Container   *Container // alternative bound expressed as a container's PRO position
	StopC       *Container
	Step        int
}

// NewSlice builds a Slice with integer bounds; step defaults to 1.
func NewSlice(start, stop, step int) Slice {
	s, e := start, stop
	st := step
	if st == 0 {
		st = 1
	}
	return Slice{Start: &s, Stop: &e, Step: st}
}

func (s Slice) ProEntries(pro []*Container, _ *Scope, _ DepSrc) []*Container {
	start, stop := 0, len(pro)
	if s.Container != nil {
		start = indexOf(pro, s.Container)
	} else if s.Start != nil {
		start = normIndex(*s.Start, len(pro))
	}
	if s.StopC != nil {
		stop = indexOf(pro, s.StopC)
	} else if s.Stop != nil {
		stop = normIndex(*s.Stop, len(pro))
	}
	step := s.Step
	if step == 0 {
		step = 1
	}
	return sliceByStep(pro, start, stop, step)
}

// validateProEntries checks the result of ProEntries against the pro it
// was given: the result may be no longer than pro and may hold no
// container absent from it. The order of the result and repeated entries
// are not checked. The built-in predicates above all pass this check by
// construction; this guards against a custom
// Predicate implementation (Predicate is an exported interface) that
// doesn't, surfacing the violation as a PredicateError instead of
// silently admitting a container outside the PRO that produced it.
func validateProEntries(pro, filtered []*Container) error {
	if len(filtered) > len(pro) {
		return &PredicateError{Msg: "predicate returned more entries than its input PRO"}
	}
	allowed := toSet(pro)
	for _, c := range filtered {
		if !allowed[c] {
			return &PredicateError{Msg: fmt.Sprintf("predicate returned container %q absent from its input PRO", c.Name())}
		}
	}
	return nil
}

func indexOf(pro []*Container, c *Container) int {
	for i, x := range pro {
		if x == c {
			return i
		}
	}
	return len(pro)
}

func normIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		i = 0
	}
	if i > n {
		i = n
	}
	return i
}

func sliceByStep(pro []*Container, start, stop, step int) []*Container {
	var out []*Container
	if step > 0 {
		for i := start; i < stop && i < len(pro); i += step {
			if i >= 0 {
				out = append(out, pro[i])
			}
		}
	} else {
		for i := start; i > stop && i >= 0; i += step {
			if i < len(pro) {
				out = append(out, pro[i])
			}
		}
	}
	return out
}

// Filter applies an arbitrary predicate function to each container in
// the PRO.
type Filter struct {
	Fn func(c *Container, scope *Scope, src DepSrc) bool
}

func NewFilter(fn func(c *Container, scope *Scope, src DepSrc) bool) Filter {
	return Filter{Fn: fn}
}

func (f Filter) ProEntries(pro []*Container, scope *Scope, src DepSrc) []*Container {
	out := make([]*Container, 0, len(pro))
	for _, c := range pro {
		if f.Fn(c, scope, src) {
			out = append(out, c)
		}
	}
	return out
}

// andPredicate, orPredicate, and subPredicate implement the combinator
// algebra by computing set operations over the filtered subsequences and
// re-sorting by the original PRO index, matching xdi's
// `sorted(res, key=it.index)` (markers.py:ProOperatorPredicate).
type andPredicate struct{ a, b Predicate }
type orPredicate struct{ a, b Predicate }
type subPredicate struct{ a, b Predicate }

func (p andPredicate) ProEntries(pro []*Container, scope *Scope, src DepSrc) []*Container {
	left := toSet(p.a.ProEntries(pro, scope, src))
	right := toSet(p.b.ProEntries(pro, scope, src))
	return filterByIndex(pro, func(c *Container) bool { return left[c] && right[c] })
}

func (p orPredicate) ProEntries(pro []*Container, scope *Scope, src DepSrc) []*Container {
	left := toSet(p.a.ProEntries(pro, scope, src))
	right := toSet(p.b.ProEntries(pro, scope, src))
	return filterByIndex(pro, func(c *Container) bool { return left[c] || right[c] })
}

func (p subPredicate) ProEntries(pro []*Container, scope *Scope, src DepSrc) []*Container {
	left := toSet(p.a.ProEntries(pro, scope, src))
	right := toSet(p.b.ProEntries(pro, scope, src))
	return filterByIndex(pro, func(c *Container) bool { return left[c] && !right[c] })
}

func toSet(cs []*Container) map[*Container]bool {
	m := make(map[*Container]bool, len(cs))
	for _, c := range cs {
		m[c] = true
	}
	return m
}

func filterByIndex(pro []*Container, keep func(*Container) bool) []*Container {
	out := make([]*Container, 0, len(pro))
	for _, c := range pro {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return indexOf(pro, out[i]) < indexOf(pro, out[j])
	})
	return out
}
