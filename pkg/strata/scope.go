package strata

import "sync"

// resolveKey indexes the Scope's memoization cache: a Dependency is
// cached per (abstract, container, locality) so the same logical lookup
// from different containers in a PRO does not collide (spec §4.3 "the
// memoization key", §4.4 invariant 3).
type resolveKey struct {
	container *Container
	locality  Locality
}

// Scope owns one container's resolution: it walks the container's PRO,
// applies predicates, composes the first matching provider into a
// Dependency, and memoizes the result. Scopes nest via parent, mirroring
// xdi's Scope chain (spec §4.3).
type Scope struct {
	container *Container
	parent    *Scope

	mu       sync.RWMutex
	resolved map[Injectable]map[resolveKey]*Dependency

	keyLocks sync.Map // Injectable -> *sync.Mutex, per-key single-flight guard
}

// NewScope builds a scope rooted at container, optionally chained to
// parent (spec §4.3 "Scope hierarchy mirrors Injector hierarchy").
func NewScope(container *Container, parent *Scope) *Scope {
	return &Scope{
		container: container,
		parent:    parent,
		resolved:  make(map[Injectable]map[resolveKey]*Dependency),
	}
}

// Container returns the scope's own container.
func (s *Scope) Container() *Container { return s.container }

// Parent returns the scope's parent, or nil at the root.
func (s *Scope) Parent() *Scope { return s.parent }

func (s *Scope) keyLock(key Injectable) *sync.Mutex {
	v, _ := s.keyLocks.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Get is the scope's public entry point: resolve key against the
// scope's own container at Global locality, with per-key single-flight
// locking and negative memoization for failed lookups (spec §4.3 steps
// 5-6, §4.4 LookupErrorDependency).
func (s *Scope) Get(key Injectable) (*Dependency, error) {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	dep, err := s.resolveDependency(key, s.container, Global, false)
	if err != nil {
		return nil, err
	}
	if dep.isLookupError() {
		return nil, &InjectorLookupError{Abstract: key, Scope: s}
	}
	return dep, nil
}

// resolveDependency implements the core resolution algorithm (spec
// §4.3):
//  1. check the memoization cache for (key, container, locality)
//  2. walk container's PRO, filtered by the key's own predicate (if the
//     provider carries a Guard) and the caller's access level
//  3. compose the first provider match into a Dependency
//  4. on no match, try the parent scope (unless onlySelf is set)
//  5. on total failure, memoize and return a LookupErrorDependency
func (s *Scope) resolveDependency(key Injectable, container *Container, locality Locality, onlySelf bool) (*Dependency, error) {
	rk := resolveKey{container: container, locality: locality}

	s.mu.RLock()
	if byKey, ok := s.resolved[key]; ok {
		if dep, ok := byKey[rk]; ok {
			s.mu.RUnlock()
			return dep, nil
		}
	}
	s.mu.RUnlock()

	dep, err := s.composeFromPRO(key, container, locality)
	if err != nil {
		return nil, err
	}
	if dep == nil && !onlySelf && s.parent != nil {
		dep, err = s.parent.resolveDependency(key, s.parent.container, locality, false)
		if err != nil {
			return nil, err
		}
	}
	if dep == nil {
		dep = newLookupErrorDependency(s, key)
	}

	s.memoize(key, rk, dep)
	return dep, nil
}

func (s *Scope) memoize(key Injectable, rk resolveKey, dep *Dependency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byKey, ok := s.resolved[key]
	if !ok {
		byKey = make(map[resolveKey]*Dependency)
		s.resolved[key] = byKey
	}
	byKey[rk] = dep
}

func (s *Scope) composeFromPRO(key Injectable, container *Container, locality Locality) (*Dependency, error) {
	pro := container.PRO()
	src := DepSrc{Container: container, Scope: s}
	lookupKey := key
	for {
		for _, entry := range pro {
			providers := entry.GetRegistry(locality, lookupKey)
			for _, p := range providers {
				applies, err := s.providerApplies(p, pro, entry, src)
				if err != nil {
					return nil, err
				}
				if !applies {
					continue
				}
				return p.Compose(s, key)
			}
		}
		// No direct registration anywhere in the PRO: fall back to the
		// generic origin of the key once (spec §4.3 step 2), e.g. a
		// request for []Handler falls back to a registration under
		// Handler itself.
		if o := origin(lookupKey); o != nil && o != lookupKey && lookupKey == key {
			lookupKey = o
			continue
		}
		return nil, nil
	}
}

// providerApplies reports whether p's own Guard (and AccessLevel, if
// set) keeps entry in the PRO as seen from src.
func (s *Scope) providerApplies(p Provider, pro []*Container, entry *Container, src DepSrc) (bool, error) {
	if al := p.AccessLevel(); al != 0 {
		allowed := al.ProEntries(pro, s, src)
		if err := validateProEntries(pro, allowed); err != nil {
			return false, err
		}
		if !containsContainer(allowed, entry) {
			return false, nil
		}
	}
	if g := p.Guard(); g != nil {
		allowed := g.ProEntries(pro, s, src)
		if err := validateProEntries(pro, allowed); err != nil {
			return false, err
		}
		if !containsContainer(allowed, entry) {
			return false, nil
		}
	}
	return true, nil
}

func containsContainer(cs []*Container, c *Container) bool {
	for _, x := range cs {
		if x == c {
			return true
		}
	}
	return false
}

// resolveMarker dispatches a bare dependency marker to its resolution
// strategy (spec §3 Dependency markers):
//   - PureDep: resolve its abstract key directly.
//   - Dep: apply its predicate to the PRO, honor its default if nothing
//     matches, and respect an OnlySelf/SkipSelf ScopePredicate against
//     the *scope* parent chain (Open Question 1: resolved as scope-chain
//     gating, since the same container can be shared by nested scopes
//     while the predicate must still distinguish them).
//   - Lookup: resolve its abstract key, then defer op replay to bind.
//   - Union: resolve the first provided member.
//   - Annotated: try meta keys in order, then its target.
func (s *Scope) resolveMarker(m Marker) (*Dependency, error) {
	switch marker := m.(type) {
	case *PureDep:
		return s.resolveDependency(marker.abstract, s.container, Global, false)

	case *Dep:
		return s.resolveDep(marker)

	case *Lookup:
		inner, err := s.resolveDependency(marker.abstract, s.container, Global, false)
		if err != nil {
			return nil, err
		}
		if inner.isLookupError() {
			return nil, &InjectorLookupError{Abstract: marker.abstract, Scope: s}
		}
		return newLookupDependency(s, marker.abstract, nil, marker, inner), nil

	case *Union:
		for _, member := range marker.members {
			if s.container.Provides(member, Global) {
				return s.resolveDependency(member, s.container, Global, false)
			}
		}
		return nil, &InjectorLookupError{Abstract: marker.Abstract(), Scope: s}

	case *Annotated:
		for _, key := range marker.meta {
			if s.container.Provides(key, Global) {
				return s.resolveDependency(key, s.container, Global, false)
			}
		}
		return s.resolveDependency(marker.target, s.container, Global, false)

	default:
		return s.resolveDependency(m.Abstract(), s.container, Global, false)
	}
}

func (s *Scope) resolveDep(d *Dep) (*Dependency, error) {
	dep, err := s.resolveDepAt(d, s)
	if err != nil {
		return nil, err
	}
	if dep != nil {
		return dep, nil
	}

	if d.HasDefault() {
		if sub, ok := d.def.(Marker); ok {
			return s.resolveMarker(sub)
		}
		return newValueDependency(s, d.abstract, nil, d.def), nil
	}

	return nil, &InjectorLookupError{Abstract: d.abstract, Scope: s}
}

// resolveDepAt walks the scope chain starting at s, applying d's
// predicate fresh at each level against that level's own container PRO.
// originating never changes across the recursion, so a ScopePredicate
// leaf can distinguish "still at the scope the lookup started from"
// from "now trying an ancestor scope" (spec Open Question 1: resolved
// as gating the *scope* parent chain, since only_self/skip_self must
// tell apart nested scopes that can otherwise share one container).
func (s *Scope) resolveDepAt(d *Dep, originating *Scope) (*Dependency, error) {
	pro := s.container.PRO()
	src := DepSrc{Container: s.container, Scope: originating}
	filtered := d.predicate.ProEntries(pro, s, src)
	if err := validateProEntries(pro, filtered); err != nil {
		return nil, err
	}

	for _, entry := range filtered {
		providers := entry.GetRegistry(Global, d.abstract)
		for _, p := range providers {
			applies, err := s.providerApplies(p, pro, entry, src)
			if err != nil {
				return nil, err
			}
			if !applies {
				continue
			}
			return p.Compose(s, d.abstract)
		}
	}

	if s.parent != nil {
		return s.parent.resolveDepAt(d, originating)
	}
	return nil, nil
}

// IsProvided reports whether key is registered at Global locality in
// this scope's container PRO or, unless onlySelf is set, in an ancestor
// scope's, without touching the resolution cache (xdi's
// `Scope.is_provided`). It checks registrations only: the origin
// fallback is not tried and no provider is composed. Container.Register
// does not call it.
func (s *Scope) IsProvided(key Injectable, onlySelf bool) bool {
	if s.container.Provides(key, Global) {
		return true
	}
	if !onlySelf && s.parent != nil {
		return s.parent.IsProvided(key, false)
	}
	return false
}

// NullScope is the sentinel root scope with an empty container and no parent;
// any lookup against it fails immediately. It backs NullInjector.
var NullScope = &Scope{container: NewContainer("null", Public, nil), resolved: make(map[Injectable]map[resolveKey]*Dependency)}
