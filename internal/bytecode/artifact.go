package bytecode

import (
	"fmt"
	"math"
	"os"

	"github.com/fxamacker/cbor/v2"
	pkgerrors "github.com/pkg/errors"

	"github.com/tidelang/tide/internal/debug"
	"github.com/tidelang/tide/internal/value"
)

func floatBits(f float32) uint32      { return math.Float32bits(f) }
func floatFromBits(b uint32) float32  { return math.Float32frombits(b) }
func doubleBits(d float64) uint64     { return math.Float64bits(d) }
func doubleFromBits(b uint64) float64 { return math.Float64frombits(b) }

// The artifact container is CBOR with canonical encoding, so identical
// programs serialize to identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

const (
	artifactMagic   = "TIDE"
	artifactVersion = 1
)

// Artifact is the wire form of a compiled program plus its optional debug
// metadata. Only pool-storable kinds serialize: primitives, strings,
// arrays and objects (descriptors included). Maps, sets, closures,
// iterators and deferreds cannot be constants.
type Artifact struct {
	Magic   string      `cbor:"magic"`
	Version int         `cbor:"version"`
	Code    []uint32    `cbor:"code"`
	Consts  []wireValue `cbor:"consts"`
	Entry   int         `cbor:"entry"`
	Globals int         `cbor:"globals"`
	Debug   *debug.Info `cbor:"debug,omitempty"`
}

type wireValue struct {
	Kind   uint8       `cbor:"k"`
	Num    uint64      `cbor:"n,omitempty"`
	Str    string      `cbor:"s,omitempty"`
	Class  int32       `cbor:"c,omitempty"`
	Fields []wireValue `cbor:"f,omitempty"`
}

func toWire(v value.Value) (wireValue, error) {
	w := wireValue{Kind: uint8(v.Kind())}
	switch v.Kind() {
	case value.KindNull:
	case value.KindBool:
		if v.Bool() {
			w.Num = 1
		}
	case value.KindInt:
		w.Num = uint64(uint32(v.Int()))
	case value.KindFloat:
		w.Num = uint64(floatBits(v.Float()))
	case value.KindDouble:
		w.Num = doubleBits(v.Double())
	case value.KindChar:
		w.Num = uint64(uint32(v.Char()))
	case value.KindString:
		w.Str = v.Str()
	case value.KindArray:
		for _, e := range v.Arr().Elems {
			we, err := toWire(e)
			if err != nil {
				return w, err
			}
			w.Fields = append(w.Fields, we)
		}
	case value.KindObject:
		o := v.Obj()
		w.Class = o.Class
		for _, f := range o.Fields {
			wf, err := toWire(f)
			if err != nil {
				return w, err
			}
			w.Fields = append(w.Fields, wf)
		}
	default:
		return w, fmt.Errorf("kind %s cannot appear in a constant pool", v.Kind())
	}
	return w, nil
}

func fromWire(w wireValue) (value.Value, error) {
	switch value.Kind(w.Kind) {
	case value.KindNull:
		return value.Null(), nil
	case value.KindBool:
		return value.Bool(w.Num != 0), nil
	case value.KindInt:
		return value.Int(int32(uint32(w.Num))), nil
	case value.KindFloat:
		return value.Float(floatFromBits(uint32(w.Num))), nil
	case value.KindDouble:
		return value.Double(doubleFromBits(w.Num)), nil
	case value.KindChar:
		return value.Char(rune(uint32(w.Num))), nil
	case value.KindString:
		return value.Str(w.Str), nil
	case value.KindArray:
		a := value.NewArray()
		for _, wf := range w.Fields {
			e, err := fromWire(wf)
			if err != nil {
				return value.Null(), err
			}
			a.Elems = append(a.Elems, e)
		}
		return value.Arr(a), nil
	case value.KindObject:
		o := &value.Object{Class: w.Class}
		for _, wf := range w.Fields {
			f, err := fromWire(wf)
			if err != nil {
				return value.Null(), err
			}
			o.Fields = append(o.Fields, f)
		}
		return value.Obj(o), nil
	default:
		return value.Null(), fmt.Errorf("kind %d cannot appear in a constant pool", w.Kind)
	}
}

// Marshal serializes a program and optional debug info to artifact bytes.
func Marshal(p *Program, info *debug.Info) ([]byte, error) {
	a := Artifact{
		Magic:   artifactMagic,
		Version: artifactVersion,
		Code:    make([]uint32, len(p.Code)),
		Entry:   p.Entry,
		Globals: p.GlobalCount,
		Debug:   info,
	}
	for i, ins := range p.Code {
		a.Code[i] = uint32(ins)
	}
	for i, c := range p.Consts {
		w, err := toWire(c)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "constant %d", i)
		}
		a.Consts = append(a.Consts, w)
	}
	return cborEncMode.Marshal(&a)
}

// Unmarshal decodes artifact bytes into a program and its debug info.
func Unmarshal(data []byte) (*Program, *debug.Info, error) {
	var a Artifact
	if err := cbor.Unmarshal(data, &a); err != nil {
		return nil, nil, pkgerrors.Wrap(err, "decode artifact")
	}
	if a.Magic != artifactMagic {
		return nil, nil, pkgerrors.Errorf("not a Tide artifact (magic %q)", a.Magic)
	}
	if a.Version != artifactVersion {
		return nil, nil, pkgerrors.Errorf("unsupported artifact version %d", a.Version)
	}
	p := &Program{
		Code:        make([]Instruction, len(a.Code)),
		Entry:       a.Entry,
		GlobalCount: a.Globals,
	}
	for i, raw := range a.Code {
		p.Code[i] = Instruction(raw)
	}
	for i, w := range a.Consts {
		v, err := fromWire(w)
		if err != nil {
			return nil, nil, pkgerrors.Wrapf(err, "constant %d", i)
		}
		p.Consts = append(p.Consts, v)
	}
	if a.Debug != nil {
		a.Debug.Normalize()
	}
	return p, a.Debug, nil
}

// LoadFile reads and decodes an artifact from disk.
func LoadFile(path string) (*Program, *debug.Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, pkgerrors.Wrapf(err, "read artifact %s", path)
	}
	return Unmarshal(data)
}

// WriteFile encodes and writes an artifact to disk.
func WriteFile(path string, p *Program, info *debug.Info) error {
	data, err := Marshal(p, info)
	if err != nil {
		return pkgerrors.Wrapf(err, "encode artifact %s", path)
	}
	return pkgerrors.Wrapf(os.WriteFile(path, data, 0o644), "write artifact %s", path)
}
