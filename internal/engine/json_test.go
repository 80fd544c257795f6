package engine

import (
	"encoding/json"
	"testing"

	"github.com/tidelang/tide/internal/bytecode"
	"github.com/tidelang/tide/internal/value"
	"github.com/tidelang/tide/internal/vmerr"
)

func jsonEngine(extra ...value.Value) *Engine {
	return New(prog(extra, bytecode.ABC(bytecode.OP_RETURN_VOID, 0, 0, 0)), Options{})
}

func TestRenderJSONPrimitives(t *testing.T) {
	e := jsonEngine()
	tests := []struct {
		v    value.Value
		want string
	}{
		{value.Null(), "null"},
		{value.Bool(true), "true"},
		{value.Int(-42), "-42"},
		{value.Double(3.25), "3.25"},
		{value.Char('x'), `"x"`},
		{value.Str("he\"llo"), `"he\"llo"`},
	}
	for _, tt := range tests {
		if got := e.RenderJSON(tt.v); got != tt.want {
			t.Errorf("RenderJSON(%s): got=%s, want=%s", tt.v, got, tt.want)
		}
	}
}

func TestRenderJSONObjectRoundTrip(t *testing.T) {
	// Class descriptors at pool 1 (point) and 2 (wrapper); the object
	// graph nests one object inside another. Rendering then decoding
	// with a JSON parser must reproduce the field values.
	point := bytecode.MakeClassDesc(bytecode.ClassDesc{Name: "Point", FieldNames: []string{"x", "y"}})
	wrap := bytecode.MakeClassDesc(bytecode.ClassDesc{Name: "Wrap", FieldNames: []string{"name", "at"}})
	e := jsonEngine(point, wrap)

	p := value.NewObject(1, 2)
	p.Fields[0] = value.Int(3)
	p.Fields[1] = value.Int(-4)
	w := value.NewObject(2, 2)
	w.Fields[0] = value.Str("origin")
	w.Fields[1] = value.Obj(p)

	text := e.RenderJSON(value.Obj(w))

	var decoded struct {
		Name string `json:"name"`
		At   struct {
			X int `json:"x"`
			Y int `json:"y"`
		} `json:"at"`
	}
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		t.Fatalf("decode %s: %v", text, err)
	}
	if decoded.Name != "origin" || decoded.At.X != 3 || decoded.At.Y != -4 {
		t.Errorf("round trip lost data: %s", text)
	}
}

func TestRenderJSONCollections(t *testing.T) {
	e := jsonEngine()

	m := value.NewStringMap()
	m.Items["b"] = value.Int(2)
	m.Items["a"] = value.Int(1)
	if got := e.RenderJSON(value.SMap(m)); got != `{"a":1,"b":2}` {
		t.Errorf("string map: got=%s", got)
	}

	im := value.NewIntMap()
	im.Items[7] = value.Str("seven")
	im.Items[-1] = value.Str("neg")
	if got := e.RenderJSON(value.IMap(im)); got != `[[-1,"neg"],[7,"seven"]]` {
		t.Errorf("int map: got=%s", got)
	}

	ss := value.NewStringSet()
	ss.Items["z"] = struct{}{}
	ss.Items["a"] = struct{}{}
	if got := e.RenderJSON(value.SSet(ss)); got != `["a","z"]` {
		t.Errorf("string set: got=%s", got)
	}

	is := value.NewIntSet()
	is.Items[10] = struct{}{}
	is.Items[2] = struct{}{}
	if got := e.RenderJSON(value.ISet(is)); got != `[2,10]` {
		t.Errorf("int set: got=%s", got)
	}

	arr := value.NewArray()
	arr.Elems = append(arr.Elems, value.Int(1), value.Str("two"), value.Null())
	if got := e.RenderJSON(value.Arr(arr)); got != `[1,"two",null]` {
		t.Errorf("array: got=%s", got)
	}
}

func TestRenderJSONRejectsClosures(t *testing.T) {
	e := jsonEngine()
	defer func() {
		f, ok := vmerr.AsFault(recover())
		if !ok || f.Kind != vmerr.TypeMismatch {
			t.Fatalf("closure render: got=%v, want TypeMismatch", f)
		}
	}()
	e.RenderJSON(value.Cls(&value.Closure{}))
}

func TestRenderJSONExternObject(t *testing.T) {
	e := jsonEngine()
	e.RegisterClass(&ExternClass{Name: "Pair", Fields: []string{"k", "v"}})

	o := &value.Object{Class: bytecode.TagExternBase, Host: struct{}{},
		Fields: []value.Value{value.Str("a"), value.Int(1)}}
	if got := e.RenderJSON(value.Obj(o)); got != `{"k":"a","v":1}` {
		t.Errorf("extern object: got=%s", got)
	}

	// A wrapped payload with no declared fields is not renderable.
	bare := e.Wrap("Pair", struct{}{})
	bare.Obj().Fields = nil
	defer func() {
		if _, ok := vmerr.AsFault(recover()); !ok {
			t.Fatal("expected a fault for field-count mismatch")
		}
	}()
	e.RenderJSON(bare)
}
