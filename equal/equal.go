// Package equal holds the identity and shallow structural comparisons used to
// decide whether derived state actually changed.
//
// Go has no reference identity for every value the way a dynamic language
// does, so identity is defined per kind:
//
//   - maps, pointers, channels: same underlying pointer
//   - slices: same backing array start and same length
//   - funcs: same closure; two evaluations of a capturing func literal differ
//   - floats: NaN is identical to NaN, +0 and -0 are distinct
//   - structs, arrays: identical element by element
//   - everything else: ==
package equal

import (
	"math"
	"reflect"
	"unsafe"
)

// Func reports whether two values should be treated as the same.
type Func[T any] func(prev, next T) bool

// Is reports whether a and b are the same value under sameValueZero rules.
func Is(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return same(reflect.ValueOf(a), reflect.ValueOf(b))
}

// addressable copies v when it is not addressable, so func fields of a struct
// or array, exported or not, can be read in place.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() || !v.CanInterface() {
		return v
	}
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}

// SameValueZero is Is for a statically typed pair.
func SameValueZero[T any](prev, next T) bool {
	return Is(prev, next)
}

// Shallow is ShallowEqual for a statically typed pair.
func Shallow[T any](prev, next T) bool {
	return ShallowEqual(prev, next)
}

// ShallowEqual reports whether a and b are identical, or are both objects
// (maps, structs, or pointers to either, on both sides alike) with the same
// set of keys and identical values under each key.
func ShallowEqual(a, b any) bool {
	if Is(a, b) {
		return true
	}

	va, ok := object(a)
	if !ok {
		return false
	}
	vb, ok := object(b)
	if !ok {
		return false
	}
	if (reflect.TypeOf(a).Kind() == reflect.Pointer) != (reflect.TypeOf(b).Kind() == reflect.Pointer) {
		return false
	}

	switch {
	case va.Kind() == reflect.Map && vb.Kind() == reflect.Map:
		return shallowMap(va, vb)
	case va.Kind() == reflect.Struct && vb.Kind() == reflect.Struct:
		return shallowStruct(va, vb)
	default:
		return false
	}
}

func shallowMap(a, b reflect.Value) bool {
	if a.Len() != b.Len() {
		return false
	}
	if a.Type().Key() != b.Type().Key() {
		return a.Len() == 0
	}

	iter := a.MapRange()
	for iter.Next() {
		bv := b.MapIndex(iter.Key())
		if !bv.IsValid() || !same(iter.Value(), bv) {
			return false
		}
	}
	return true
}

func shallowStruct(a, b reflect.Value) bool {
	ta, tb := a.Type(), b.Type()

	count := 0
	for i := 0; i < ta.NumField(); i++ {
		fa := ta.Field(i)
		if !fa.IsExported() {
			continue
		}
		count++

		fb, ok := tb.FieldByName(fa.Name)
		if !ok || !fb.IsExported() || len(fb.Index) != 1 {
			return false
		}
		if !same(a.Field(i), b.Field(fb.Index[0])) {
			return false
		}
	}

	return count == exportedFields(tb)
}

func exportedFields(t reflect.Type) int {
	n := 0
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			n++
		}
	}
	return n
}

// object unwraps v into a map or struct value, following at most one pointer.
// ShallowEqual only compares objects behind a pointer with objects behind a
// pointer.
func object(v any) (reflect.Value, bool) {
	if v == nil {
		return reflect.Value{}, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		return rv, true
	case reflect.Struct:
		return rv, true
	default:
		return reflect.Value{}, false
	}
}

// unwrap strips interfaces off v. It also returns the address of the word
// holding the innermost value when that word is reachable, which for a func
// is where its closure pointer lives.
func unwrap(v reflect.Value) (reflect.Value, unsafe.Pointer) {
	var at unsafe.Pointer
	if v.CanAddr() {
		at = unsafe.Pointer(v.UnsafeAddr())
	}
	for v.Kind() == reflect.Interface && !v.IsNil() {
		if v.CanAddr() {
			// data word of the interface header
			words := (*[2]unsafe.Pointer)(unsafe.Pointer(v.UnsafeAddr()))
			at = unsafe.Pointer(&words[1])
		} else {
			at = nil
		}
		v = v.Elem()
	}
	return v, at
}

// closure returns the pointer a non-nil func value is made of. The code
// pointer from Value.Pointer is shared by every closure of one literal, so it
// cannot serve as identity.
func closure(v reflect.Value, at unsafe.Pointer) (unsafe.Pointer, bool) {
	if at != nil {
		return *(*unsafe.Pointer)(at), true
	}
	if !v.CanInterface() {
		return nil, false
	}
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return *(*unsafe.Pointer)(unsafe.Pointer(c.UnsafeAddr())), true
}

func same(a, b reflect.Value) bool {
	a, atA := unwrap(a)
	b, atB := unwrap(b)

	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}

	switch a.Kind() {
	case reflect.Interface:
		// both nil interfaces of the same type
		return true
	case reflect.Bool:
		return a.Bool() == b.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() == b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() == b.Uint()
	case reflect.Float32, reflect.Float64:
		return sameFloat(a.Float(), b.Float())
	case reflect.Complex64, reflect.Complex128:
		ca, cb := a.Complex(), b.Complex()
		return sameFloat(real(ca), real(cb)) && sameFloat(imag(ca), imag(cb))
	case reflect.String:
		return a.String() == b.String()
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()
	case reflect.Slice:
		return a.Pointer() == b.Pointer() && a.Len() == b.Len() && a.IsNil() == b.IsNil()
	case reflect.Func:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		ca, ok := closure(a, atA)
		if !ok {
			return false
		}
		cb, ok := closure(b, atB)
		return ok && ca == cb
	case reflect.Array:
		a, b = addressable(a), addressable(b)
		for i := 0; i < a.Len(); i++ {
			if !same(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Struct:
		a, b = addressable(a), addressable(b)
		for i := 0; i < a.NumField(); i++ {
			if !same(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func sameFloat(x, y float64) bool {
	if x != x {
		return y != y
	}
	return x == y && math.Signbit(x) == math.Signbit(y)
}
