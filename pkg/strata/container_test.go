package strata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type greeter interface {
	Greet() string
}

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

func TestContainerRegisterAndGetRegistry(t *testing.T) {
	c := NewContainer("root", Public, nil)
	key := KeyOf[greeter]()

	require.NoError(t, c.Register(key, Value(englishGreeter{}), Global))
	require.Len(t, c.GetRegistry(Global, key), 1)
	require.Empty(t, c.GetRegistry(Local, key))
}

func TestContainerRegisterRejectsSecondFinal(t *testing.T) {
	c := NewContainer("root", Public, nil)
	key := KeyOf[greeter]()

	require.NoError(t, c.Register(key, Value(englishGreeter{}).Final(), Global))
	err := c.Register(key, Value(englishGreeter{}), Global)
	require.Error(t, err)
	var wiringErr *WiringError
	require.ErrorAs(t, err, &wiringErr)
}

func TestContainerRegisterRejectsForeignProvider(t *testing.T) {
	a := NewContainer("a", Public, nil)
	b := NewContainer("b", Public, nil)
	key := KeyOf[greeter]()
	p := Value(englishGreeter{})

	require.NoError(t, a.Register(key, p, Global))
	err := b.Register(key, p, Global)
	require.Error(t, err)
}

func TestContainerPROIsDepthFirstAndDeduplicated(t *testing.T) {
	root := NewContainer("root", Public, nil)
	child := NewContainer("child", Public, root)
	grandchild := NewContainer("grandchild", Public, child)
	root.Include(false, child)
	child.Include(false, grandchild)

	pro := root.PRO()
	require.Equal(t, []*Container{root, child, grandchild}, pro)

	// PRO is memoized: a later Include after first use must not appear.
	late := NewContainer("late", Public, root)
	root.Include(false, late)
	require.Equal(t, []*Container{root, child, grandchild}, root.PRO())
}

func TestContainerGetRegistryPriorityOrder(t *testing.T) {
	c := NewContainer("root", Public, nil)
	key := KeyOf[greeter]()

	require.NoError(t, c.Register(key, Value(englishGreeter{}).Default(), Global))
	require.NoError(t, c.Register(key, Value(englishGreeter{}), Global))
	require.NoError(t, c.Register(key, Value(englishGreeter{}).Final(), Global))

	entries := c.GetRegistry(Global, key)
	require.Len(t, entries, 3)
	require.True(t, entries[0].IsFinal())
	require.False(t, entries[1].IsDefault())
	require.False(t, entries[1].IsFinal())
	require.True(t, entries[2].IsDefault())
}

func TestContainerProvides(t *testing.T) {
	root := NewContainer("root", Public, nil)
	child := NewContainer("child", Public, root)
	root.Include(false, child)

	key := KeyOf[greeter]()
	require.False(t, root.Provides(key, Global))

	require.NoError(t, child.Register(key, Value(englishGreeter{}), Global))
	require.True(t, root.Provides(key, Global))
}
