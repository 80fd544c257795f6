package engine

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tidelang/tide/internal/bytecode"
	"github.com/tidelang/tide/internal/value"
	"github.com/tidelang/tide/internal/vmerr"
)

// RenderJSON serializes a value to JSON text. The mapping is one-way:
// objects render as JSON objects keyed by their class's declared field
// names, string maps render as JSON objects with sorted keys, int maps
// render as arrays of [key, value] pairs, and sets render as sorted
// arrays. Closures, iterators, deferreds and non-finite numbers are not
// renderable and fail with a TypeMismatch fault.
func (e *Engine) RenderJSON(v value.Value) string {
	var b strings.Builder
	e.renderJSON(&b, v)
	return b.String()
}

func (e *Engine) renderJSON(b *strings.Builder, v value.Value) {
	switch v.Kind() {
	case value.KindNull:
		b.WriteString("null")
	case value.KindBool:
		if v.Bool() {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case value.KindInt:
		b.WriteString(strconv.FormatInt(int64(v.Int()), 10))
	case value.KindFloat:
		writeJSONNumber(b, float64(v.Float()), 32)
	case value.KindDouble:
		writeJSONNumber(b, v.Double(), 64)
	case value.KindChar:
		writeJSONString(b, string(v.Char()))
	case value.KindString:
		writeJSONString(b, v.Str())
	case value.KindArray:
		b.WriteByte('[')
		for i, el := range v.Arr().Elems {
			if i > 0 {
				b.WriteByte(',')
			}
			e.renderJSON(b, el)
		}
		b.WriteByte(']')
	case value.KindObject:
		e.renderObject(b, v.Obj())
	case value.KindStringMap:
		m := v.SMap()
		b.WriteByte('{')
		for i, k := range sortedStringKeys(m.Items) {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONString(b, k)
			b.WriteByte(':')
			e.renderJSON(b, m.Items[k])
		}
		b.WriteByte('}')
	case value.KindIntMap:
		m := v.IMap()
		b.WriteByte('[')
		for i, k := range sortedIntKeys(m.Items) {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('[')
			b.WriteString(strconv.FormatInt(int64(k), 10))
			b.WriteByte(',')
			e.renderJSON(b, m.Items[k])
			b.WriteByte(']')
		}
		b.WriteByte(']')
	case value.KindStringSet:
		s := v.SSet()
		keys := make([]string, 0, len(s.Items))
		for k := range s.Items {
			keys = append(keys, k)
		}
		// Sorted so identical sets render identically.
		sort.Strings(keys)
		b.WriteByte('[')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONString(b, k)
		}
		b.WriteByte(']')
	case value.KindIntSet:
		s := v.ISet()
		keys := make([]int32, 0, len(s.Items))
		for k := range s.Items {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		b.WriteByte('[')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.FormatInt(int64(k), 10))
		}
		b.WriteByte(']')
	default:
		panic(vmerr.TypeMismatchf("%s is not JSON-renderable", v.Kind()))
	}
}

func (e *Engine) renderObject(b *strings.Builder, o *value.Object) {
	names := e.fieldNames(o)
	if len(names) != len(o.Fields) {
		panic(vmerr.Structuralf("object of class %d has %d fields, descriptor declares %d",
			o.Class, len(o.Fields), len(names)))
	}
	b.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		writeJSONString(b, name)
		b.WriteByte(':')
		e.renderJSON(b, o.Fields[i])
	}
	b.WriteByte('}')
}

func (e *Engine) fieldNames(o *value.Object) []string {
	if o.Class >= 0 {
		return bytecode.AsClassDesc(e.prog.Const(int(o.Class))).FieldNames
	}
	if c, ok := e.classByTag[o.Class]; ok && len(c.Fields) > 0 {
		return c.Fields
	}
	panic(vmerr.TypeMismatchf("object of class %d is not JSON-renderable", o.Class))
}

func writeJSONString(b *strings.Builder, s string) {
	data, _ := json.Marshal(s)
	b.Write(data)
}

func writeJSONNumber(b *strings.Builder, f float64, bits int) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		panic(vmerr.TypeMismatchf("non-finite number is not JSON-renderable"))
	}
	b.WriteString(strconv.FormatFloat(f, 'g', -1, bits))
}
