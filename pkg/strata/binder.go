package strata

import "reflect"

// PlanFunc inspects fn's signature and produces a BoundParams binding
// its parameters, positionally, to overrides first and to a dependency
// edge keyed by the parameter's own type for every parameter overrides
// doesn't cover (spec §4.7: "Binds positional ... overrides onto the
// callable's signature ... partial binding; unmatched parameters remain
// ... if its annotation is an injectable type, record an edge keyed by
// the type").
//
// An override may be a literal value, recorded as Arg.Value, or a
// Marker (Dep, PureDep, Lookup, Union, Annotated), recorded as a
// dependency edge using the marker's own abstract key.
func PlanFunc(fn any) (*BoundParams, error) {
	fnType := reflect.TypeOf(fn)
	if fnType == nil || fnType.Kind() != reflect.Func {
		return nil, wiringErrorf("PlanFunc: %v is not a function", fn)
	}
	return planFuncWithOverrides(fnType, nil)
}

// PlanFuncWith is PlanFunc with explicit overrides bound left-to-right
// onto fn's parameter list.
func PlanFuncWith(fn any, overrides ...any) (*BoundParams, error) {
	fnType := reflect.TypeOf(fn)
	if fnType == nil || fnType.Kind() != reflect.Func {
		return nil, wiringErrorf("PlanFuncWith: %v is not a function", fn)
	}
	return planFuncWithOverrides(fnType, overrides)
}

func planFuncWithOverrides(fnType reflect.Type, overrides []any) (*BoundParams, error) {
	n := fnType.NumIn()
	args := make([]Arg, 0, n)
	for i := 0; i < n; i++ {
		paramType := fnType.In(i)
		if i < len(overrides) {
			args = append(args, overrideToArg(overrides[i], paramType))
			continue
		}
		args = append(args, Arg{Dependency: paramType, Async: isAwaitableType(paramType)})
	}
	return NewBoundParams(args, nil), nil
}

// planPartialOverrides plans only fn's leading len(overrides) parameters
// (spec §4.2 Partial, xdi's functools.partial semantics): each is bound
// to its override, literal or marker. The trailing parameters are left
// entirely out of the plan, reserved for the extra arguments supplied
// when the bound closure is finally called.
func planPartialOverrides(fnType reflect.Type, overrides []any) *BoundParams {
	n := fnType.NumIn()
	bound := len(overrides)
	if bound > n {
		bound = n
	}
	args := make([]Arg, 0, bound)
	for i := 0; i < bound; i++ {
		args = append(args, overrideToArg(overrides[i], fnType.In(i)))
	}
	return NewBoundParams(args, nil)
}

func overrideToArg(v any, paramType reflect.Type) Arg {
	if m, ok := v.(Marker); ok {
		return Arg{Dependency: m.Abstract(), Marker: m, Async: isAwaitableType(paramType)}
	}
	return Arg{Value: v, HasValue: true}
}

// structTagName is the struct-field tag key used for auto-wired
// dependency injection, the Go analogue of Python's annotation-driven
// planning (spec §4.7 step 2), adapted from the teacher's `fabric`
// struct tag.
const structTagName = "strata"

// PlanStruct inspects T's exported fields tagged `strata:"inject"` and
// produces a BoundParams whose KwArgs bind each tagged field, by name,
// to a dependency edge keyed by the field's type. Untagged fields are
// left unplanned (zero value).
func PlanStruct(t reflect.Type) (*BoundParams, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, wiringErrorf("PlanStruct: %s is not a struct", t)
	}
	var kwds []KwArg
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, ok := field.Tag.Lookup(structTagName)
		if !ok || tag != "inject" {
			continue
		}
		if !field.IsExported() {
			return nil, wiringErrorf("PlanStruct: field %q is tagged inject but unexported", field.Name)
		}
		kwds = append(kwds, KwArg{Key: field.Name, Dependency: field.Type, Async: isAwaitableType(field.Type)})
	}
	return NewBoundParams(nil, kwds), nil
}

// HasInjectTags reports whether T has any field tagged `strata:"inject"`.
func HasInjectTags(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		if tag, ok := t.Field(i).Tag.Lookup(structTagName); ok && tag == "inject" {
			return true
		}
	}
	return false
}
