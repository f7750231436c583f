package strata

import (
	"sort"
	"sync"
)

// Locality partitions a container's registry. A Global registration is
// found by lookups whose PRO contains the registering container: from
// that container itself and from containers that include it. A
// descendant container does not see its ancestors' registrations except
// through a parent Scope. Scope and Injector lookups search only the
// Global partition; Local registrations are reachable only through
// GetRegistry and Provides.
type Locality int

const (
	Global Locality = iota
	Local
)

// Container registers providers under abstract keys and arranges them
// into a tree via Include. It exposes a provider-resolution order (PRO):
// the depth-first, registration-ordered, deduplicated flattening of
// itself and its descendants that a Scope rooted at it consults during
// lookup.
//
// Containers are built at wiring time and must not be mutated once a
// Scope that uses them has been constructed (spec §3 Lifecycle).
type Container struct {
	mu       sync.RWMutex
	name     string
	access   AccessLevel
	parent   *Container
	children []*Container

	registry  map[Injectable]map[Locality][]Provider
	autoloads []Injectable

	proOnce sync.Once
	pro     []*Container
}

// NewContainer creates a container with the given name and access level.
// A nil parent marks a root container. Passing parent here already
// attaches c as a child; Include exists for attaching containers built
// without a parent, or a batch of them at once — calling both for the
// same pair is harmless, PRO's dedup pass collapses the duplicate.
func NewContainer(name string, access AccessLevel, parent *Container) *Container {
	if access == 0 {
		access = Public
	}
	c := &Container{
		name:     name,
		access:   access,
		parent:   parent,
		registry: make(map[Injectable]map[Locality][]Provider),
	}
	if parent != nil {
		parent.mu.Lock()
		parent.children = append(parent.children, c)
		parent.mu.Unlock()
	}
	return c
}

// Name returns the container's name.
func (c *Container) Name() string { return c.name }

// Parent returns the container's parent, or nil for a root container.
func (c *Container) Parent() *Container { return c.parent }

// Register attaches provider to c under key. It fails
// if provider is already attached to a different container, or if a
// final provider already exists for the same key and locality.
func (c *Container) Register(key Injectable, provider Provider, locality Locality) error {
	if !IsInjectable(key) {
		return wiringErrorf("%s is not a valid injectable key", key)
	}
	if owner := provider.Container(); owner != nil && owner != c {
		return wiringErrorf("provider already attached to container %q", owner.name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	byLocality, ok := c.registry[key]
	if !ok {
		byLocality = make(map[Locality][]Provider)
		c.registry[key] = byLocality
	}
	for _, existing := range byLocality[locality] {
		if existing.IsFinal() {
			return wiringErrorf("final provider already registered for %s", key)
		}
	}

	provider.setContainer(c)
	byLocality[locality] = append(byLocality[locality], provider)
	if provider.Autoload() {
		c.autoloads = append(c.autoloads, key)
	}
	return nil
}

// Include adds children to the container's PRO. If replace is true,
// prior children are dropped first. Include must be called before any
// Scope built from this container's tree resolves a key — the PRO is
// memoized on first use.
func (c *Container) Include(replace bool, children ...*Container) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if replace {
		c.children = nil
	}
	c.children = append(c.children, children...)
	for _, ch := range children {
		ch.parent = c
	}
}

// AccessLevelFrom returns the access level viewable from the caller's
// container: Private when caller is c itself, Public when caller is nil,
// and c's own declared access level for any other caller. The path
// between the two containers does not change the result: an ancestor, a
// descendant and an unrelated container all get c's declared level.
func (c *Container) AccessLevelFrom(caller *Container) AccessLevel {
	if caller == c {
		return Private
	}
	if caller == nil {
		return Public
	}
	for p := caller; p != nil; p = p.parent {
		if p == c {
			return c.access
		}
	}
	return c.access
}

// GetRegistry returns, for the given locality, the ordered list of
// providers registered directly on c for key (priority order: final >
// non-default > default, then registration order).
func (c *Container) GetRegistry(locality Locality, key Injectable) []Provider {
	c.mu.RLock()
	byLocality, ok := c.registry[key]
	if !ok {
		c.mu.RUnlock()
		return nil
	}
	entries := append([]Provider(nil), byLocality[locality]...)
	c.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return priorityRank(entries[i]) < priorityRank(entries[j])
	})
	return entries
}

func priorityRank(p Provider) int {
	switch {
	case p.IsFinal():
		return 0
	case !p.IsDefault():
		return 1
	default:
		return 2
	}
}

// Autoloads returns the keys registered with an autoload provider, in
// registration order, across this container only.
func (c *Container) Autoloads() []Injectable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Injectable(nil), c.autoloads...)
}

// PRO returns the memoized provider-resolution order rooted at c: a
// depth-first, registration-ordered, deduplicated flattening of c and
// its descendants.
func (c *Container) PRO() []*Container {
	c.proOnce.Do(func() {
		seen := make(map[*Container]bool)
		c.pro = c.buildPRO(seen)
	})
	return c.pro
}

func (c *Container) buildPRO(seen map[*Container]bool) []*Container {
	if seen[c] {
		return nil
	}
	seen[c] = true
	out := []*Container{c}
	c.mu.RLock()
	children := append([]*Container(nil), c.children...)
	c.mu.RUnlock()
	for _, ch := range children {
		out = append(out, ch.buildPRO(seen)...)
	}
	return out
}

// Provides reports whether c or any descendant in its PRO registers a
// provider for key under locality.
func (c *Container) Provides(key Injectable, locality Locality) bool {
	for _, entry := range c.PRO() {
		if len(entry.GetRegistry(locality, key)) > 0 {
			return true
		}
	}
	return false
}
