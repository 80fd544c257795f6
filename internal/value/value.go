// Package value implements the tagged runtime value model: a closed union
// over every datum Tide bytecode can manipulate, plus the collection,
// iterator and deferred-result objects it references.
package value

import (
	"fmt"
	"math"
	"strconv"

	"github.com/tidelang/tide/internal/vmerr"
)

// Kind identifies the active variant of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt    // 32-bit signed
	KindFloat  // 32-bit IEEE
	KindDouble // 64-bit IEEE
	KindChar
	KindString
	KindObject
	KindArray
	KindClosure
	KindStringMap
	KindStringSet
	KindIntMap
	KindIntSet
	KindIterator
	KindDeferred
)

var kindNames = [...]string{
	KindNull:      "null",
	KindBool:      "bool",
	KindInt:       "int",
	KindFloat:     "float",
	KindDouble:    "double",
	KindChar:      "char",
	KindString:    "string",
	KindObject:    "object",
	KindArray:     "array",
	KindClosure:   "closure",
	KindStringMap: "map<string>",
	KindStringSet: "set<string>",
	KindIntMap:    "map<int>",
	KindIntSet:    "set<int>",
	KindIterator:  "iterator",
	KindDeferred:  "deferred",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Ref reports whether values of this kind are shared-ownership handles
// (identity equality) rather than primitives (structural equality).
func (k Kind) Ref() bool {
	switch k {
	case KindObject, KindArray, KindClosure, KindStringMap, KindStringSet,
		KindIntMap, KindIntSet, KindIterator, KindDeferred:
		return true
	}
	return false
}

// Value is a stack-allocated tagged union. Primitives live in the data
// word; strings and reference kinds live in ref. A zero Value is null.
//
// Accessing the wrong variant is a programming error in generated bytecode
// and panics with a vmerr.TypeMismatch fault; the engine converts that
// panic into a fatal runtime error at the dispatch-loop boundary.
type Value struct {
	kind Kind
	data uint64
	ref  interface{}
}

// Constructors

func Null() Value {
	return Value{kind: KindNull}
}

func Bool(b bool) Value {
	var d uint64
	if b {
		d = 1
	}
	return Value{kind: KindBool, data: d}
}

func Int(i int32) Value {
	return Value{kind: KindInt, data: uint64(uint32(i))}
}

func Float(f float32) Value {
	return Value{kind: KindFloat, data: uint64(math.Float32bits(f))}
}

func Double(d float64) Value {
	return Value{kind: KindDouble, data: math.Float64bits(d)}
}

func Char(c rune) Value {
	return Value{kind: KindChar, data: uint64(uint32(c))}
}

func Str(s string) Value {
	return Value{kind: KindString, ref: s}
}

func Obj(o *Object) Value {
	return Value{kind: KindObject, ref: o}
}

func Arr(a *Array) Value {
	return Value{kind: KindArray, ref: a}
}

func Cls(c *Closure) Value {
	return Value{kind: KindClosure, ref: c}
}

func SMap(m *StringMap) Value {
	return Value{kind: KindStringMap, ref: m}
}

func SSet(s *StringSet) Value {
	return Value{kind: KindStringSet, ref: s}
}

func IMap(m *IntMap) Value {
	return Value{kind: KindIntMap, ref: m}
}

func ISet(s *IntSet) Value {
	return Value{kind: KindIntSet, ref: s}
}

func Iter(it *Iterator) Value {
	return Value{kind: KindIterator, ref: it}
}

func Defer(d *Deferred) Value {
	return Value{kind: KindDeferred, ref: d}
}

// Kind returns the active discriminant.
func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

func (v Value) require(k Kind) {
	if v.kind != k {
		panic(vmerr.TypeMismatchf("expected %s, have %s", k, v.kind))
	}
}

// Typed accessors. Each panics with a TypeMismatch fault if the
// discriminant does not match - never a silent default.

func (v Value) Bool() bool {
	v.require(KindBool)
	return v.data != 0
}

func (v Value) Int() int32 {
	v.require(KindInt)
	return int32(uint32(v.data))
}

func (v Value) Float() float32 {
	v.require(KindFloat)
	return math.Float32frombits(uint32(v.data))
}

func (v Value) Double() float64 {
	v.require(KindDouble)
	return math.Float64frombits(v.data)
}

func (v Value) Char() rune {
	v.require(KindChar)
	return rune(uint32(v.data))
}

func (v Value) Str() string {
	v.require(KindString)
	return v.ref.(string)
}

func (v Value) Obj() *Object {
	v.require(KindObject)
	return v.ref.(*Object)
}

func (v Value) Arr() *Array {
	v.require(KindArray)
	return v.ref.(*Array)
}

func (v Value) Cls() *Closure {
	v.require(KindClosure)
	return v.ref.(*Closure)
}

func (v Value) SMap() *StringMap {
	v.require(KindStringMap)
	return v.ref.(*StringMap)
}

func (v Value) SSet() *StringSet {
	v.require(KindStringSet)
	return v.ref.(*StringSet)
}

func (v Value) IMap() *IntMap {
	v.require(KindIntMap)
	return v.ref.(*IntMap)
}

func (v Value) ISet() *IntSet {
	v.require(KindIntSet)
	return v.ref.(*IntSet)
}

func (v Value) Iter() *Iterator {
	v.require(KindIterator)
	return v.ref.(*Iterator)
}

func (v Value) Defer() *Deferred {
	v.require(KindDeferred)
	return v.ref.(*Deferred)
}

// Equal compares primitives structurally and reference kinds by identity
// of the underlying allocation. Values of different kinds are never equal;
// no numeric promotion happens here.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind.Ref() {
		return v.ref == o.ref
	}
	if v.kind == KindString {
		return v.ref.(string) == o.ref.(string)
	}
	return v.data == o.data
}

// Hash returns a hash consistent with Equal: FNV-1a over the payload for
// primitives and strings, the allocation address for references.
func (v Value) Hash() uint64 {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := uint64(offset)
	mix := func(b byte) {
		h ^= uint64(b)
		h *= prime
	}
	mix(byte(v.kind))
	switch {
	case v.kind == KindString:
		for i := 0; i < len(v.ref.(string)); i++ {
			mix(v.ref.(string)[i])
		}
	case v.kind.Ref():
		p := fmt.Sprintf("%p", v.ref)
		for i := 0; i < len(p); i++ {
			mix(p[i])
		}
	default:
		for i := 0; i < 8; i++ {
			mix(byte(v.data >> (8 * i)))
		}
	}
	return h
}

// String renders a diagnostic representation. This is the form used in
// runtime error messages and debugger variable views, not JSON.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.data != 0 {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(int64(int32(uint32(v.data))), 10)
	case KindFloat:
		return strconv.FormatFloat(float64(math.Float32frombits(uint32(v.data))), 'g', -1, 32)
	case KindDouble:
		return strconv.FormatFloat(math.Float64frombits(v.data), 'g', -1, 64)
	case KindChar:
		return "'" + string(rune(uint32(v.data))) + "'"
	case KindString:
		return v.ref.(string)
	case KindObject:
		o := v.ref.(*Object)
		return fmt.Sprintf("<object class=%d fields=%d>", o.Class, len(o.Fields))
	case KindArray:
		return fmt.Sprintf("<array len=%d>", len(v.ref.(*Array).Elems))
	case KindClosure:
		return "<closure>"
	case KindStringMap:
		return fmt.Sprintf("<map<string> size=%d>", len(v.ref.(*StringMap).Items))
	case KindStringSet:
		return fmt.Sprintf("<set<string> size=%d>", len(v.ref.(*StringSet).Items))
	case KindIntMap:
		return fmt.Sprintf("<map<int> size=%d>", len(v.ref.(*IntMap).Items))
	case KindIntSet:
		return fmt.Sprintf("<set<int> size=%d>", len(v.ref.(*IntSet).Items))
	case KindIterator:
		return "<iterator>"
	case KindDeferred:
		return "<deferred>"
	}
	return "<invalid>"
}
