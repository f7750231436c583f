package strata

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type altValue struct{ N int }

type unionSlot struct{}

func TestScopeGetValueHit(t *testing.T) {
	c := NewContainer("root", Public, nil)
	key := KeyOf[greeter]()
	require.NoError(t, c.Register(key, Value(englishGreeter{}), Global))

	s := NewScope(c, nil)
	dep, err := s.Get(key)
	require.NoError(t, err)
	require.Equal(t, key, dep.Abstract)
}

func TestScopeGetUnregisteredIsLookupError(t *testing.T) {
	c := NewContainer("root", Public, nil)
	s := NewScope(c, nil)

	_, err := s.Get(KeyOf[greeter]())
	require.Error(t, err)
	var lookupErr *InjectorLookupError
	require.ErrorAs(t, err, &lookupErr)
}

func TestScopeParentFallbackIsMemoized(t *testing.T) {
	parentC := NewContainer("parent", Public, nil)
	key := KeyOf[greeter]()
	require.NoError(t, parentC.Register(key, Value(englishGreeter{}), Global))
	parentScope := NewScope(parentC, nil)

	childC := NewContainer("child", Public, nil)
	childScope := NewScope(childC, parentScope)

	first, err := childScope.Get(key)
	require.NoError(t, err)

	// A second lookup must return the same memoized Dependency rather
	// than re-walking the parent scope.
	second, err := childScope.Get(key)
	require.NoError(t, err)
	require.Same(t, first, second)
}

func TestAliasChainResolvesToSameDependencyAsTarget(t *testing.T) {
	c := NewContainer("root", Public, nil)
	target := KeyOf[greeter]()
	alias := KeyOf[altValue]() // any distinct injectable stands in for the alias key

	require.NoError(t, c.Register(target, Value(englishGreeter{}), Global))
	require.NoError(t, c.Register(alias, Alias(target), Global))

	s := NewScope(c, nil)
	aliasDep, err := s.Get(alias)
	require.NoError(t, err)
	targetDep, err := s.Get(target)
	require.NoError(t, err)

	require.Same(t, targetDep, aliasDep)
}

func TestUnionNarrowsToFirstProvidedMember(t *testing.T) {
	c := NewContainer("root", Public, nil)
	first := KeyOf[greeter]()
	second := KeyOf[altValue]()
	union := KeyOf[unionSlot]()

	// Only the second member is actually provided.
	require.NoError(t, c.Register(second, Value(altValue{N: 42}), Global))
	require.NoError(t, c.Register(union, UnionOf(first, second), Global))

	s := NewScope(c, nil)
	dep, err := s.Get(union)
	require.NoError(t, err)
	require.Equal(t, second, dep.Abstract)
}

func TestUnionErrorsWhenNoMemberProvided(t *testing.T) {
	c := NewContainer("root", Public, nil)
	union := KeyOf[unionSlot]()
	require.NoError(t, c.Register(union, UnionOf(KeyOf[greeter](), KeyOf[altValue]()), Global))

	s := NewScope(c, nil)
	_, err := s.Get(union)
	require.Error(t, err)
}

func TestDepOnlySelfBlocksParentScope(t *testing.T) {
	key := KeyOf[greeter]()

	parentC := NewContainer("parent", Public, nil)
	require.NoError(t, parentC.Register(key, Value(englishGreeter{}), Global))
	parentScope := NewScope(parentC, nil)

	childC := NewContainer("child", Public, nil)
	childScope := NewScope(childC, parentScope)

	onlySelf := NewDep(key, WithPredicate(OnlySelf)).(*Dep)
	_, err := childScope.resolveDep(onlySelf)
	require.Error(t, err)
	var lookupErr *InjectorLookupError
	require.ErrorAs(t, err, &lookupErr)
}

func TestDepSkipSelfReachesParentScope(t *testing.T) {
	key := KeyOf[greeter]()

	parentC := NewContainer("parent", Public, nil)
	require.NoError(t, parentC.Register(key, Value(englishGreeter{}), Global))
	parentScope := NewScope(parentC, nil)

	childC := NewContainer("child", Public, nil)
	// Child also provides the key directly, to prove SkipSelf really
	// bypasses it rather than merely failing to find it.
	require.NoError(t, childC.Register(key, Value(englishGreeter{}), Global))
	childScope := NewScope(childC, parentScope)

	skipSelf := NewDep(key, WithPredicate(Invert(OnlySelf))).(*Dep)
	dep, err := childScope.resolveDep(skipSelf)
	require.NoError(t, err)
	require.Equal(t, key, dep.Abstract)
	require.Same(t, parentC, dep.Container())
}

func TestDepFallsBackToDefaultWhenUnresolved(t *testing.T) {
	c := NewContainer("root", Public, nil)
	s := NewScope(c, nil)

	withDefault := NewDep(KeyOf[greeter](), WithDefault("fallback-value")).(*Dep)
	dep, err := s.resolveDep(withDefault)
	require.NoError(t, err)

	fn, err := dep.bind(NullInjector)
	require.NoError(t, err)
	got, err := fn.(func() (any, error))()
	require.NoError(t, err)
	require.Equal(t, "fallback-value", got)
}

func TestScopeIsProvided(t *testing.T) {
	key := KeyOf[greeter]()

	parentC := NewContainer("parent", Public, nil)
	require.NoError(t, parentC.Register(key, Value(englishGreeter{}), Global))
	parentScope := NewScope(parentC, nil)

	childC := NewContainer("child", Public, nil)
	childScope := NewScope(childC, parentScope)

	require.False(t, childScope.IsProvided(key, true))
	require.True(t, childScope.IsProvided(key, false))
	require.True(t, parentScope.IsProvided(key, true))
}

func TestOriginFallbackForSliceKeys(t *testing.T) {
	c := NewContainer("root", Public, nil)
	key := KeyOf[greeter]()
	require.NoError(t, c.Register(key, Value(englishGreeter{}), Global))

	s := NewScope(c, nil)
	sliceKey := reflect.SliceOf(key)
	sliceDep, err := s.Get(sliceKey)
	require.NoError(t, err)
	require.Equal(t, sliceKey, sliceDep.Abstract)

	fn, err := sliceDep.bind(NullInjector)
	require.NoError(t, err)
	got, err := fn.(func() (any, error))()
	require.NoError(t, err)
	require.Equal(t, englishGreeter{}, got)
}
