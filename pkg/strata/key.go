package strata

import "reflect"

// Injectable is the abstract key under which a dependency is registered
// and looked up: the reflect.Type of an ordinary Go type or interface.
// Dependency markers (Dep, PureDep, Lookup, Union, Annotated) are not
// keys themselves; each carries its key, returned by Marker.Abstract.
type Injectable = reflect.Type

// KeyOf returns the Injectable key for T, handling both concrete and
// interface types the way reflect.TypeOf((*T)(nil)).Elem() always does,
// even when T is itself an interface.
func KeyOf[T any]() Injectable {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// deniedKinds excludes primitive/scalar types from being used directly as
// an Injectable key — they carry no identity useful for registration and
// usually indicate a caller meant to pass a marker or a named service
// instead.
var deniedKinds = map[reflect.Kind]bool{
	reflect.String:     true,
	reflect.Bool:        true,
	reflect.Int:         true,
	reflect.Int8:        true,
	reflect.Int16:       true,
	reflect.Int32:       true,
	reflect.Int64:       true,
	reflect.Uint:        true,
	reflect.Uint8:       true,
	reflect.Uint16:      true,
	reflect.Uint32:      true,
	reflect.Uint64:      true,
	reflect.Float32:     true,
	reflect.Float64:     true,
	reflect.Complex64:   true,
	reflect.Complex128:  true,
	reflect.Invalid:     true,
}

// IsInjectable reports whether k may stand for a dependency key.
func IsInjectable(k Injectable) bool {
	if k == nil {
		return false
	}
	return !deniedKinds[k.Kind()]
}

// origin returns the generic base of k as a best-effort fallback lookup
// key, mirroring xdi's typing.get_origin(key) fallback (spec §4.3 step
// 2). Go erases generic instantiations at compile time, so the only
// origins strata can recover at runtime are container kinds: a slice,
// array, map, chan, or pointer falls back to its element type.
func origin(k Injectable) Injectable {
	switch k.Kind() {
	case reflect.Slice, reflect.Array, reflect.Chan, reflect.Ptr:
		return k.Elem()
	case reflect.Map:
		return k.Elem()
	default:
		return nil
	}
}
