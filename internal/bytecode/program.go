package bytecode

import (
	"github.com/tidelang/tide/internal/value"
	"github.com/tidelang/tide/internal/vmerr"
)

// Program is a loaded bytecode artifact: an instruction sequence, a
// constant pool of runtime values, the pool index of the entry-point
// function descriptor and the size of the flat global-variable array.
// Programs are immutable after load and safe to share by reference.
type Program struct {
	Code        []Instruction
	Consts      []value.Value
	Entry       int
	GlobalCount int
}

// Const returns the pool value at idx, failing with a StructuralError
// fault on an out-of-range index.
func (p *Program) Const(idx int) value.Value {
	if idx < 0 || idx >= len(p.Consts) {
		panic(vmerr.Structuralf("constant index %d out of range (pool size %d)", idx, len(p.Consts)))
	}
	return p.Consts[idx]
}

// Descriptor class tags. Literals, class/enum metadata and function
// descriptors share the pool's Value representation: descriptors are
// objects carrying one of these reserved negative tags. Extern classes
// registered by the host are assigned tags at or below TagExternBase, so
// the two negative ranges never collide.
const (
	TagFunction int32 = -1
	TagClass    int32 = -2
	TagEnum     int32 = -3
	TagExtern   int32 = -4

	TagExternBase int32 = -16
)

// FuncDesc describes a bytecode function: where it starts and how its
// register file is seeded.
type FuncDesc struct {
	Name   string
	Entry  int // instruction index of the first instruction
	Params int
	Regs   int // registers actually used, for debugger display
}

// MakeFuncDesc builds the pool representation of a function descriptor.
func MakeFuncDesc(d FuncDesc) value.Value {
	o := &value.Object{Class: TagFunction, Fields: []value.Value{
		value.Str(d.Name),
		value.Int(int32(d.Entry)),
		value.Int(int32(d.Params)),
		value.Int(int32(d.Regs)),
	}}
	return value.Obj(o)
}

// AsFuncDesc decodes a pool value as a function descriptor, failing with
// a StructuralError fault if it is anything else.
func AsFuncDesc(v value.Value) FuncDesc {
	o := descObject(v, TagFunction, "function", 4)
	return FuncDesc{
		Name:   o.Fields[0].Str(),
		Entry:  int(o.Fields[1].Int()),
		Params: int(o.Fields[2].Int()),
		Regs:   int(o.Fields[3].Int()),
	}
}

// ClassDesc names a VM-declared class and its fields, in declaration
// order. Field order is the object's field-index order and the JSON key
// order.
type ClassDesc struct {
	Name       string
	FieldNames []string
}

func MakeClassDesc(d ClassDesc) value.Value {
	names := value.NewArray()
	for _, f := range d.FieldNames {
		names.Elems = append(names.Elems, value.Str(f))
	}
	o := &value.Object{Class: TagClass, Fields: []value.Value{
		value.Str(d.Name),
		value.Arr(names),
	}}
	return value.Obj(o)
}

func AsClassDesc(v value.Value) ClassDesc {
	o := descObject(v, TagClass, "class", 2)
	arr := o.Fields[1].Arr()
	names := make([]string, len(arr.Elems))
	for i, e := range arr.Elems {
		names[i] = e.Str()
	}
	return ClassDesc{Name: o.Fields[0].Str(), FieldNames: names}
}

// EnumDesc carries an enum's backing members, either all ints or all
// strings.
type EnumDesc struct {
	Name    string
	Members []value.Value
}

func MakeEnumDesc(d EnumDesc) value.Value {
	members := value.NewArray()
	members.Elems = append(members.Elems, d.Members...)
	o := &value.Object{Class: TagEnum, Fields: []value.Value{
		value.Str(d.Name),
		value.Arr(members),
	}}
	return value.Obj(o)
}

func AsEnumDesc(v value.Value) EnumDesc {
	o := descObject(v, TagEnum, "enum", 2)
	return EnumDesc{Name: o.Fields[0].Str(), Members: o.Fields[1].Arr().Elems}
}

// ExternDesc names a host-registered native function and its arity.
type ExternDesc struct {
	Name  string
	Arity int
}

func MakeExternDesc(d ExternDesc) value.Value {
	o := &value.Object{Class: TagExtern, Fields: []value.Value{
		value.Str(d.Name),
		value.Int(int32(d.Arity)),
	}}
	return value.Obj(o)
}

func AsExternDesc(v value.Value) ExternDesc {
	o := descObject(v, TagExtern, "extern", 2)
	return ExternDesc{Name: o.Fields[0].Str(), Arity: int(o.Fields[1].Int())}
}

func descObject(v value.Value, tag int32, what string, fields int) *value.Object {
	if v.Kind() != value.KindObject {
		panic(vmerr.Structuralf("pool value is not a %s descriptor (have %s)", what, v.Kind()))
	}
	o := v.Obj()
	if o.Class != tag || len(o.Fields) != fields {
		panic(vmerr.Structuralf("malformed %s descriptor (tag=%d fields=%d)", what, o.Class, len(o.Fields)))
	}
	return o
}
