package strata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildPRO(n int) []*Container {
	root := NewContainer("c0", Public, nil)
	pro := []*Container{root}
	prev := root
	for i := 1; i < n; i++ {
		c := NewContainer("c", Public, prev)
		prev.Include(false, c)
		pro = append(pro, c)
		prev = c
	}
	return root.PRO()
}

func TestNoopPredicateIsIdentity(t *testing.T) {
	pro := buildPRO(3)
	src := DepSrc{Container: pro[0]}
	require.Equal(t, pro, Noop.ProEntries(pro, nil, src))
}

func TestAccessLevelIsIdempotent(t *testing.T) {
	pro := buildPRO(3)
	src := DepSrc{Container: pro[0]}

	once := Public.ProEntries(pro, nil, src)
	twice := Public.ProEntries(once, nil, src)
	require.Equal(t, once, twice)
}

func TestAccessLevelKeepsSelfAsPrivate(t *testing.T) {
	pro := buildPRO(2)
	src := DepSrc{Container: pro[0]}

	kept := Private.ProEntries(pro, nil, src)
	require.Contains(t, kept, pro[0])
}

func TestSlicePreservesOrder(t *testing.T) {
	pro := buildPRO(5)
	s := NewSlice(1, 4, 1)
	got := s.ProEntries(pro, nil, DepSrc{})
	require.Equal(t, pro[1:4], got)
}

func TestCombinatorsAreIndexOrdered(t *testing.T) {
	pro := buildPRO(4)
	src := DepSrc{Container: pro[0]}

	// Invert(Noop) excludes everything; And with anything is empty.
	inverted := Invert(Noop)
	require.Empty(t, inverted.ProEntries(pro, nil, src))

	// (Slice(0,3) and Slice(1,4)) == Slice(1,3), index-ordered.
	left := NewSlice(0, 3, 1)
	right := NewSlice(1, 4, 1)
	and := And(left, right)
	require.Equal(t, pro[1:3], and.ProEntries(pro, nil, src))
}

func TestScopePredicateGatesOnOriginatingScope(t *testing.T) {
	parentScope := &Scope{container: NewContainer("parent", Public, nil)}
	childScope := &Scope{container: NewContainer("child", Public, nil), parent: parentScope}

	pro := []*Container{parentScope.container}
	src := DepSrc{Scope: childScope}

	// OnlySelf keeps the PRO only while resolution is still inside the
	// originating scope; once we've walked up to a different scope it
	// yields nothing.
	require.Empty(t, OnlySelf.ProEntries(pro, parentScope, src))
	require.Equal(t, pro, OnlySelf.ProEntries(pro, childScope, src))
}
