package strata

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCallableProviderYieldsClosureNotResult(t *testing.T) {
	c := NewContainer("root", Public, nil)
	key := KeyOf[func() (string, error)]()
	calls := 0
	require.NoError(t, c.Register(key, Callable(func() (string, error) {
		calls++
		return "called", nil
	}), Global))

	s := NewScope(c, nil)
	inj := NewInjector(s, nil)
	v, err := inj.Get(key)
	require.NoError(t, err)

	fn, ok := v.(func() (any, error))
	require.True(t, ok)
	require.Equal(t, 0, calls)

	result, err := fn()
	require.NoError(t, err)
	require.Equal(t, "called", result)
	require.Equal(t, 1, calls)
}

func TestPartialProviderAcceptsCallSiteArgs(t *testing.T) {
	c := NewContainer("root", Public, nil)
	key := KeyOf[func(string) (string, error)]()
	greeterMarker := NewPureDep(KeyOf[greeter]())
	require.NoError(t, c.Register(key, Partial(func(g greeter, suffix string) (string, error) {
		return g.Greet() + suffix, nil
	}).Args(greeterMarker), Global))
	require.NoError(t, c.Register(KeyOf[greeter](), Value(englishGreeter{}), Global))

	s := NewScope(c, nil)
	inj := NewInjector(s, nil)
	v, err := inj.Get(key)
	require.NoError(t, err)

	partial, ok := v.(func(...any) (any, error))
	require.True(t, ok)
	result, err := partial("!")
	require.NoError(t, err)
	require.Equal(t, "hello!", result)
}

func TestInjectorContextProviderYieldsResolvingInjector(t *testing.T) {
	c := NewContainer("root", Public, nil)
	key := KeyOf[*Injector]()
	require.NoError(t, c.Register(key, InjectorContext(), Global))

	s := NewScope(c, nil)
	inj := NewInjector(s, nil)
	v, err := inj.Get(key)
	require.NoError(t, err)
	require.Same(t, inj, v)
}

type wiredService struct {
	Greeting greeter `strata:"inject"`
}

func TestAnnotatedProviderFillsTaggedStruct(t *testing.T) {
	c := NewContainer("root", Public, nil)
	require.NoError(t, c.Register(KeyOf[greeter](), Value(englishGreeter{}), Global))

	target := reflect.TypeOf(wiredService{})
	key := KeyOf[wiredService]()
	require.NoError(t, c.Register(key, Annotated(target), Global))

	s := NewScope(c, nil)
	inj := NewInjector(s, nil)
	v, err := inj.Get(key)
	require.NoError(t, err)

	svc, ok := v.(wiredService)
	require.True(t, ok)
	require.Equal(t, "hello", svc.Greeting.Greet())
}

func TestDepMarkerProviderAliasesToOwnKeyWithoutMutatingShared(t *testing.T) {
	c := NewContainer("root", Public, nil)
	target := KeyOf[greeter]()
	require.NoError(t, c.Register(target, Value(englishGreeter{}), Global))

	aliasKey := KeyOf[altValue]()
	require.NoError(t, c.Register(aliasKey, DepMarker(NewPureDep(target)), Global))

	s := NewScope(c, nil)

	targetDep, err := s.Get(target)
	require.NoError(t, err)
	aliasDep, err := s.Get(aliasKey)
	require.NoError(t, err)

	// The alias must report its own key, without corrupting the memoized
	// Dependency cached under the target key.
	require.Equal(t, aliasKey, aliasDep.Abstract)
	require.Equal(t, target, targetDep.Abstract)
}

func TestFactoryProviderFinalRejectsSecondRegistration(t *testing.T) {
	c := NewContainer("root", Public, nil)
	key := KeyOf[greeter]()
	require.NoError(t, c.Register(key, Factory(func() (greeter, error) { return englishGreeter{}, nil }).Final(), Global))

	err := c.Register(key, Value(englishGreeter{}), Global)
	require.Error(t, err)
}
