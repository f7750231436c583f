// Package strata implements a layered dependency-injection runtime.
//
// strata resolves abstract keys (dependency markers) into concrete values
// at request time, composing values from user-registered providers
// arranged into a hierarchy of containers and scoped at execution time by
// injectors. The core is the resolution engine: given an abstract key it
// searches a layered container graph filtered by caller-supplied
// predicates, composes the winning provider into an immutable Dependency,
// and memoizes that record per (key, container, locality) triple so
// subsequent requests are O(1).
//
// # Basic usage
//
//	root := strata.NewContainer("root", strata.Public, nil)
//	root.Register(strata.KeyOf[Logger](), strata.Value(&ConsoleLogger{}), strata.Global)
//	root.Register(strata.KeyOf[Database](), strata.Factory(newDatabase).Singleton(), strata.Global)
//
//	scope := strata.NewScope(root, nil)
//	injector := strata.NewInjector(scope, nil)
//	defer injector.Reset(context.Background())
//
//	db, err := strata.Resolve[Database](injector)
//
// # Containers and providers
//
// Containers hold provider registrations under abstract keys and form a
// tree via Include. Providers describe how to produce a value: Value,
// Alias, Factory, Singleton, Callable, Partial, Union, Annotated,
// InjectorContext, and DepMarker. A Scope turns a key into an immutable
// Dependency by consulting its container's provider-resolution order
// (PRO), and an Injector binds that Dependency to a runtime closure,
// caching singleton values for its own lifetime.
//
// # Markers and predicates
//
// Dep, Lookup, Union, and Annotated wrap abstract keys with resolution
// metadata. PRO predicates (AccessLevel, ScopePredicate, Slice, Filter,
// and their and/or/sub/invert combinators) filter which containers
// participate in a given lookup.
package strata
