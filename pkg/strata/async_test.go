package strata

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

// token is a trivial Awaitable: its Resolve just echoes back its value,
// standing in for a real async dependency (a pending HTTP call, a
// future-backed cache fetch) that an external executor would drive.
type token struct{ v string }

func (t token) Resolve(ctx context.Context) (any, error) { return t.v, nil }

func TestPlanFuncTagsAwaitableParamAsAsync(t *testing.T) {
	fn := func(g greeter, tok token) string { return g.Greet() }
	bp, err := PlanFunc(fn)
	require.NoError(t, err)
	require.False(t, bp.Args[0].Async)
	require.True(t, bp.Args[1].Async)
	require.True(t, bp.IsAsync())
	require.Equal(t, []int{1}, bp.AwaitArgs)
}

func TestPlanStructTagsAwaitableFieldAsAsync(t *testing.T) {
	type withToken struct {
		Greeting greeter `strata:"inject"`
		Tok      token   `strata:"inject"`
	}
	bp, err := PlanStruct(reflect.TypeOf(withToken{}))
	require.NoError(t, err)
	require.False(t, bp.Kwds[0].Async)
	require.True(t, bp.Kwds[1].Async)
	require.True(t, bp.AwaitKwds["Tok"])
}

type builtValue struct{ V string }

func TestFactoryWithAwaitableEdgeYieldsFutureWrapper(t *testing.T) {
	root := NewContainer("root", Public, nil)
	key := KeyOf[builtValue]()
	fn := func(tok token) (builtValue, error) { return builtValue{V: tok.v}, nil }
	require.NoError(t, root.Register(key, Factory(fn), Global))

	scope := NewScope(root, nil)
	injector := NewInjector(scope, nil)

	v, err := injector.Get(key)
	require.NoError(t, err)
	fw, ok := v.(*FutureWrapper)
	require.True(t, ok, "expected an unresolved async edge to yield a FutureWrapper, got %T", v)
	require.Equal(t, []int{0}, fw.AsyncArgs)
	require.Empty(t, fw.SyncArgs)
	require.False(t, fw.AwaitCall)
}

// asyncFactory itself returns an Awaitable — the factory, not one of its
// parameters, is what's async (spec §4.5 "or the factory itself is
// awaitable").
func asyncFactory() (token, error) { return token{v: "built"}, nil }

func TestFactoryReturningAwaitableTagsDependencyAsync(t *testing.T) {
	root := NewContainer("root", Public, nil)
	key := KeyOf[token]()
	require.NoError(t, root.Register(key, Factory(asyncFactory), Global))

	scope := NewScope(root, nil)
	injector := NewInjector(scope, nil)

	v, err := injector.Get(key)
	require.NoError(t, err)
	fw, ok := v.(*FutureWrapper)
	require.True(t, ok)
	require.True(t, fw.AwaitCall)
}

// disposableSingleton records how many times Dispose is called, so a
// test can catch a singleton being pushed onto the disposal stack once
// per resolution instead of once per construction.
type disposableSingleton struct {
	disposeCount *int
}

func (d *disposableSingleton) Dispose(ctx context.Context) error {
	*d.disposeCount++
	return nil
}

func TestSingletonDisposalTracksOnlyFirstBuild(t *testing.T) {
	root := NewContainer("root", Public, nil)
	key := KeyOf[*disposableSingleton]()
	count := new(int)
	require.NoError(t, root.Register(key, Factory(func() (*disposableSingleton, error) {
		return &disposableSingleton{disposeCount: count}, nil
	}).Singleton(), Global))

	scope := NewScope(root, nil)
	injector := NewInjector(scope, nil)

	first, err := injector.Get(key)
	require.NoError(t, err)
	second, err := injector.Get(key)
	require.NoError(t, err)
	require.Same(t, first, second)

	require.NoError(t, injector.Reset(context.Background()))
	require.Equal(t, 1, *count)
}

// reorderingPredicate violates the Predicate contract by returning an
// entry absent from the PRO it was handed.
type reorderingPredicate struct{ intruder *Container }

func (r reorderingPredicate) ProEntries(pro []*Container, _ *Scope, _ DepSrc) []*Container {
	return append(append([]*Container(nil), pro...), r.intruder)
}

func TestMisbehavingCustomPredicateSurfacesPredicateError(t *testing.T) {
	root := NewContainer("root", Public, nil)
	key := KeyOf[greeter]()
	require.NoError(t, root.Register(key, Value(englishGreeter{}), Global))

	outsider := NewContainer("outsider", Public, nil)
	marker := NewDep(key, WithPredicate(reorderingPredicate{intruder: outsider}))

	scope := NewScope(root, nil)
	_, err := scope.resolveMarker(marker)
	require.Error(t, err)
	var predErr *PredicateError
	require.ErrorAs(t, err, &predErr)
}
