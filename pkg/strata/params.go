package strata

// Arg is one positional parameter edge in a BoundParams plan: either a
// literal value or a dependency key to resolve at bind time.
type Arg struct {
	Value      any
	HasValue   bool
	Dependency Injectable
	Marker     Marker // non-nil when the edge carries predicate/default metadata
	Async      bool
}

// KwArg is one keyword/named parameter edge, addressed by field name
// (the Go analogue of Python keyword arguments — see binder.go).
type KwArg struct {
	Key        string
	Value      any
	HasValue   bool
	Dependency Injectable
	Marker     Marker
	Async      bool
}

// BoundParams is the immutable, frozen parameter plan for a callable:
// an ordered list of positional Args and named KwArgs, with precomputed
// counters (spec §3 BoundParams, §4.7 step 3). Dependency.bind uses only
// the await counters, to decide whether to build a FutureWrapper;
// PosVals and PosDeps are not read by it.
type BoundParams struct {
	Args []Arg
	Kwds []KwArg

	PosVals int // count of positional args holding a literal value
	PosDeps int // count of positional args holding a dependency edge

	AwaitArgs []int          // indices of awaitable positional edges
	AwaitKwds map[string]bool // names of awaitable keyword edges
}

// NewBoundParams builds a BoundParams from already-classified args and
// kwds, computing the counters described in spec §3.
func NewBoundParams(args []Arg, kwds []KwArg) *BoundParams {
	bp := &BoundParams{Args: args, Kwds: kwds, AwaitKwds: map[string]bool{}}
	for i, a := range args {
		if a.HasValue {
			bp.PosVals++
		} else {
			bp.PosDeps++
		}
		if a.Async {
			bp.AwaitArgs = append(bp.AwaitArgs, i)
		}
	}
	for _, k := range kwds {
		if k.Async {
			bp.AwaitKwds[k.Key] = true
		}
	}
	return bp
}

// Dependencies returns the set of dependency keys this plan references,
// used to populate Dependency.Dependencies (spec §3 invariant graph).
func (bp *BoundParams) Dependencies() []Injectable {
	var out []Injectable
	for _, a := range bp.Args {
		if !a.HasValue {
			out = append(out, a.Dependency)
		}
	}
	for _, k := range bp.Kwds {
		if !k.HasValue {
			out = append(out, k.Dependency)
		}
	}
	return out
}

// IsAsync reports whether any edge in the plan is tagged awaitable.
func (bp *BoundParams) IsAsync() bool {
	return len(bp.AwaitArgs) > 0 || len(bp.AwaitKwds) > 0
}

// Empty reports whether the plan has no parameters at all.
func (bp *BoundParams) Empty() bool {
	return len(bp.Args) == 0 && len(bp.Kwds) == 0
}
