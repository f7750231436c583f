package strata

import (
	"fmt"
	"reflect"
)

// LookupOp is one step of a Lookup chain: a deferred attribute access,
// index access, or call applied to a resolved value (spec §9: "a record
// of lazy operations {GetAttr(name) | GetItem(key) | Call(args,
// kwargs)} evaluated once the target is resolved").
type LookupOp interface {
	apply(v reflect.Value) (reflect.Value, error)
}

type getAttrOp struct{ name string }

func (o getAttrOp) apply(v reflect.Value) (reflect.Value, error) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("strata: GetAttr(%s): not a struct", o.name)
	}
	f := v.FieldByName(o.name)
	if !f.IsValid() {
		m := v.MethodByName(o.name)
		if !m.IsValid() && v.CanAddr() {
			m = v.Addr().MethodByName(o.name)
		}
		if m.IsValid() {
			return m, nil
		}
		return reflect.Value{}, fmt.Errorf("strata: GetAttr(%s): no such field or method", o.name)
	}
	return f, nil
}

type getItemOp struct{ key any }

func (o getItemOp) apply(v reflect.Value) (reflect.Value, error) {
	for v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map:
		kv := reflect.ValueOf(o.key)
		item := v.MapIndex(kv)
		if !item.IsValid() {
			return reflect.Value{}, fmt.Errorf("strata: GetItem(%v): missing key", o.key)
		}
		return item, nil
	case reflect.Slice, reflect.Array:
		idx, ok := o.key.(int)
		if !ok || idx < 0 || idx >= v.Len() {
			return reflect.Value{}, fmt.Errorf("strata: GetItem(%v): bad index", o.key)
		}
		return v.Index(idx), nil
	default:
		return reflect.Value{}, fmt.Errorf("strata: GetItem: not indexable")
	}
}

type callOp struct{ args []any }

func (o callOp) apply(v reflect.Value) (reflect.Value, error) {
	if v.Kind() != reflect.Func {
		return reflect.Value{}, fmt.Errorf("strata: Call: not callable")
	}
	in := make([]reflect.Value, len(o.args))
	for i, a := range o.args {
		in[i] = reflect.ValueOf(a)
	}
	out := v.Call(in)
	if len(out) == 0 {
		return reflect.Value{}, nil
	}
	return out[0], nil
}

// Lookup is a lazy projection marker: it resolves abstract, then
// replays a recorded chain of attribute/index/call operations against
// the resolved value, once, at bind time.
type Lookup struct {
	abstract Injectable
	ops      []LookupOp
}

// NewLookup builds a Lookup over abstract with no operations yet.
func NewLookup(abstract Injectable) *Lookup {
	return &Lookup{abstract: abstract}
}

func (l *Lookup) Abstract() Injectable { return l.abstract }

func (l *Lookup) clone(ops ...LookupOp) *Lookup {
	next := &Lookup{abstract: l.abstract, ops: append(append([]LookupOp(nil), l.ops...), ops...)}
	return next
}

// Attr appends a GetAttr(name) step.
func (l *Lookup) Attr(name string) *Lookup { return l.clone(getAttrOp{name}) }

// Index appends a GetItem(key) step.
func (l *Lookup) Index(key any) *Lookup { return l.clone(getItemOp{key}) }

// Call appends a Call(args...) step.
func (l *Lookup) Call(args ...any) *Lookup { return l.clone(callOp{args}) }

// Eval replays the recorded operation chain against v.
func (l *Lookup) Eval(v reflect.Value) (any, error) {
	cur := v
	for _, op := range l.ops {
		next, err := op.apply(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	if !cur.IsValid() {
		return nil, nil
	}
	return cur.Interface(), nil
}
