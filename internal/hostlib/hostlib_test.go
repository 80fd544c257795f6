package hostlib

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/tidelang/tide/internal/bytecode"
	"github.com/tidelang/tide/internal/engine"
	"github.com/tidelang/tide/internal/value"
	"github.com/tidelang/tide/internal/vmerr"
)

func testEngine(t *testing.T, out io.Writer) *engine.Engine {
	t.Helper()
	p := &bytecode.Program{
		Code: []bytecode.Instruction{bytecode.ABC(bytecode.OP_HALT, 0, 0, 0)},
		Consts: []value.Value{
			bytecode.MakeFuncDesc(bytecode.FuncDesc{Name: "main", Regs: 1}),
		},
	}
	e := engine.New(p, engine.Options{Output: out})
	Register(e)
	return e
}

func TestPrintRouting(t *testing.T) {
	var buf bytes.Buffer
	e := testEngine(t, &buf)

	if _, err := extPrint(e, []value.Value{value.Str("x ="), value.Int(7)}); err != nil {
		t.Fatalf("print: %v", err)
	}
	if got := buf.String(); got != "x = 7" {
		t.Errorf("print wrote %q", got)
	}

	buf.Reset()
	if _, err := extPrintln(e, []value.Value{value.Char('a'), value.Bool(true)}); err != nil {
		t.Fatalf("println: %v", err)
	}
	if got := buf.String(); got != "a true\n" {
		t.Errorf("println wrote %q", got)
	}
}

func TestClockMSDoesNotGoBackwards(t *testing.T) {
	e := testEngine(t, io.Discard)
	a, err := extClockMS(e, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := extClockMS(e, nil)
	if err != nil {
		t.Fatal(err)
	}
	if b.Int() < a.Int() {
		t.Errorf("clock went backwards: %d then %d", a.Int(), b.Int())
	}
}

func TestUUIDIsParseable(t *testing.T) {
	e := testEngine(t, io.Discard)
	v, err := extUUID(e, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := uuid.Parse(v.Str()); err != nil {
		t.Errorf("uuid returned %q: %v", v.Str(), err)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	e := testEngine(t, io.Discard)
	path := filepath.Join(t.TempDir(), "kv.db")

	st, err := extStoreOpen(e, []value.Value{value.Str(path)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if st.Kind() != value.KindObject {
		t.Fatalf("open returned %s", st.Kind())
	}

	if _, err := extStorePut(e, []value.Value{st, value.Str("greeting"), value.Str("hello")}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := extStorePut(e, []value.Value{st, value.Str("greeting"), value.Str("hi")}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := extStoreGet(e, []value.Value{st, value.Str("greeting")})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Str() != "hi" {
		t.Errorf("get returned %q, want overwritten value", got.Str())
	}

	missing, err := extStoreGet(e, []value.Value{st, value.Str("absent")})
	if err != nil {
		t.Fatalf("get absent: %v", err)
	}
	if !missing.IsNull() {
		t.Errorf("absent key returned %s, want null", missing.Kind())
	}

	count, err := extStoreCount(e, []value.Value{st})
	if err != nil {
		t.Fatal(err)
	}
	if count.Int() != 1 {
		t.Errorf("count = %d, want 1", count.Int())
	}

	deleted, err := extStoreDelete(e, []value.Value{st, value.Str("greeting")})
	if err != nil {
		t.Fatal(err)
	}
	if !deleted.Bool() {
		t.Error("delete of existing key reported false")
	}
	deleted, err = extStoreDelete(e, []value.Value{st, value.Str("greeting")})
	if err != nil {
		t.Fatal(err)
	}
	if deleted.Bool() {
		t.Error("delete of absent key reported true")
	}

	if _, err := extStoreClose(e, []value.Value{st}); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestStoreOpenWithoutPathUsesMemory(t *testing.T) {
	e := testEngine(t, io.Discard)

	st, err := extStoreOpen(e, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := extStorePut(e, []value.Value{st, value.Str("k"), value.Str("v")}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := extStoreGet(e, []value.Value{st, value.Str("k")})
	if err != nil {
		t.Fatal(err)
	}
	if got.Str() != "v" {
		t.Errorf("get returned %q", got.Str())
	}
	if _, err := extStoreClose(e, []value.Value{st}); err != nil {
		t.Fatal(err)
	}
}

func TestStoreRejectsForeignReceiver(t *testing.T) {
	e := testEngine(t, io.Discard)

	fault := func(fn func()) *vmerr.Fault {
		var f *vmerr.Fault
		func() {
			defer func() {
				if r := recover(); r != nil {
					got, ok := vmerr.AsFault(r)
					if !ok {
						panic(r)
					}
					f = got
				}
			}()
			fn()
		}()
		return f
	}

	f := fault(func() {
		extStoreGet(e, []value.Value{value.Int(3), value.Str("k")}) //nolint:errcheck
	})
	if f == nil || f.Kind != vmerr.ReceiverMismatch {
		t.Fatalf("int receiver: got %v, want a receiver mismatch", f)
	}

	// A plain VM object carries no host payload either.
	obj := value.Obj(&value.Object{Class: 0})
	f = fault(func() {
		extStoreCount(e, []value.Value{obj}) //nolint:errcheck
	})
	if f == nil || f.Kind != vmerr.ReceiverMismatch {
		t.Fatalf("plain object receiver: got %v, want a receiver mismatch", f)
	}
}
