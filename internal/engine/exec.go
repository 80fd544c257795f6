package engine

import (
	"math"
	"sort"
	"strconv"

	"github.com/tidelang/tide/internal/bytecode"
	"github.com/tidelang/tide/internal/config"
	"github.com/tidelang/tide/internal/value"
	"github.com/tidelang/tide/internal/vmerr"
)

// Run executes the program to completion and returns the entry function's
// result. Fatal faults raised anywhere below the dispatch loop arrive
// here as panics and terminate the run with the fault as the error; the
// engine never executes another instruction afterwards.
func (e *Engine) Run() (value.Value, error) {
	if !e.state.CompareAndSwap(int32(StateReady), int32(StateRunning)) {
		return value.Null(), vmerr.Structuralf("engine already started (state %s)", e.State())
	}
	defer func() {
		if r := recover(); r != nil {
			f, ok := vmerr.AsFault(r)
			if !ok || !f.Fatal() {
				panic(r)
			}
			e.err = f
		}
		e.state.Store(int32(StateTerminated))
	}()

	entry := bytecode.AsFuncDesc(e.prog.Const(e.prog.Entry))
	e.push(entry, e.prog.Entry, 0)
	e.loop()
	return e.result, e.err
}

func (e *Engine) loop() {
	code := e.prog.Code
	for len(e.frames) > 0 {
		fr := &e.frames[len(e.frames)-1]
		pc := fr.ip
		if pc < 0 || pc >= len(code) {
			panic(vmerr.Structuralf("instruction index %d out of range in %s", pc, fr.fn.Name))
		}
		if e.hook != nil {
			e.maybeStop(pc)
		}
		ins := code[pc]
		fr.ip = pc + 1
		regs := fr.regs
		a, b, c := int(ins.A()), int(ins.B()), int(ins.C())

		switch ins.Op() {
		// Control
		case bytecode.OP_HALT:
			e.frames = e.frames[:0]
			return
		case bytecode.OP_JMP:
			fr.ip = e.jumpTarget(fr.ip, int(ins.Sx()), fr.fn.Name)
		case bytecode.OP_JMP_IF_FALSE:
			if !regs[a].Bool() {
				fr.ip = e.jumpTarget(fr.ip, int(ins.Bx()), fr.fn.Name)
			}
		case bytecode.OP_JMP_IF_TRUE:
			if regs[a].Bool() {
				fr.ip = e.jumpTarget(fr.ip, int(ins.Bx()), fr.fn.Name)
			}

		// Loads
		case bytecode.OP_MOVE:
			regs[a] = regs[b]
		case bytecode.OP_LOAD_CONST:
			regs[a] = e.prog.Const(int(ins.Bx()))
		case bytecode.OP_LOAD_NULL:
			regs[a] = value.Null()
		case bytecode.OP_LOAD_BOOL:
			regs[a] = value.Bool(b != 0)
		case bytecode.OP_LOAD_INT16:
			regs[a] = value.Int(int32(ins.Bx()))
		case bytecode.OP_LOAD_F16:
			regs[a] = value.Float(float32(ins.Bx()) / 256)
		case bytecode.OP_LOAD_CHAR:
			regs[a] = value.Char(rune(b))

		// Integer arithmetic
		case bytecode.OP_ADD_INT:
			regs[a] = value.Int(regs[b].Int() + regs[c].Int())
		case bytecode.OP_SUB_INT:
			regs[a] = value.Int(regs[b].Int() - regs[c].Int())
		case bytecode.OP_MUL_INT:
			regs[a] = value.Int(regs[b].Int() * regs[c].Int())
		case bytecode.OP_DIV_INT:
			d := regs[c].Int()
			if d == 0 {
				panic(vmerr.Structuralf("integer division by zero at %04d", pc))
			}
			regs[a] = value.Int(regs[b].Int() / d)
		case bytecode.OP_MOD_INT:
			d := regs[c].Int()
			if d == 0 {
				panic(vmerr.Structuralf("integer modulo by zero at %04d", pc))
			}
			regs[a] = value.Int(regs[b].Int() % d)
		case bytecode.OP_NEG_INT:
			regs[a] = value.Int(-regs[b].Int())

		// Float arithmetic
		case bytecode.OP_ADD_FLOAT:
			regs[a] = value.Float(regs[b].Float() + regs[c].Float())
		case bytecode.OP_SUB_FLOAT:
			regs[a] = value.Float(regs[b].Float() - regs[c].Float())
		case bytecode.OP_MUL_FLOAT:
			regs[a] = value.Float(regs[b].Float() * regs[c].Float())
		case bytecode.OP_DIV_FLOAT:
			regs[a] = value.Float(regs[b].Float() / regs[c].Float())
		case bytecode.OP_NEG_FLOAT:
			regs[a] = value.Float(-regs[b].Float())

		// Double arithmetic
		case bytecode.OP_ADD_DOUBLE:
			regs[a] = value.Double(regs[b].Double() + regs[c].Double())
		case bytecode.OP_SUB_DOUBLE:
			regs[a] = value.Double(regs[b].Double() - regs[c].Double())
		case bytecode.OP_MUL_DOUBLE:
			regs[a] = value.Double(regs[b].Double() * regs[c].Double())
		case bytecode.OP_DIV_DOUBLE:
			regs[a] = value.Double(regs[b].Double() / regs[c].Double())
		case bytecode.OP_NEG_DOUBLE:
			regs[a] = value.Double(-regs[b].Double())

		case bytecode.OP_CONCAT_STR:
			regs[a] = value.Str(regs[b].Str() + regs[c].Str())

		// Boolean
		case bytecode.OP_NOT:
			regs[a] = value.Bool(!regs[b].Bool())
		case bytecode.OP_AND:
			regs[a] = value.Bool(regs[b].Bool() && regs[c].Bool())
		case bytecode.OP_OR:
			regs[a] = value.Bool(regs[b].Bool() || regs[c].Bool())

		// Comparisons
		case bytecode.OP_EQ_INT:
			regs[a] = value.Bool(regs[b].Int() == regs[c].Int())
		case bytecode.OP_NE_INT:
			regs[a] = value.Bool(regs[b].Int() != regs[c].Int())
		case bytecode.OP_LT_INT:
			regs[a] = value.Bool(regs[b].Int() < regs[c].Int())
		case bytecode.OP_LE_INT:
			regs[a] = value.Bool(regs[b].Int() <= regs[c].Int())
		case bytecode.OP_GT_INT:
			regs[a] = value.Bool(regs[b].Int() > regs[c].Int())
		case bytecode.OP_GE_INT:
			regs[a] = value.Bool(regs[b].Int() >= regs[c].Int())
		case bytecode.OP_EQ_FLOAT:
			regs[a] = value.Bool(regs[b].Float() == regs[c].Float())
		case bytecode.OP_NE_FLOAT:
			regs[a] = value.Bool(regs[b].Float() != regs[c].Float())
		case bytecode.OP_LT_FLOAT:
			regs[a] = value.Bool(regs[b].Float() < regs[c].Float())
		case bytecode.OP_LE_FLOAT:
			regs[a] = value.Bool(regs[b].Float() <= regs[c].Float())
		case bytecode.OP_GT_FLOAT:
			regs[a] = value.Bool(regs[b].Float() > regs[c].Float())
		case bytecode.OP_GE_FLOAT:
			regs[a] = value.Bool(regs[b].Float() >= regs[c].Float())
		case bytecode.OP_EQ_DOUBLE:
			regs[a] = value.Bool(regs[b].Double() == regs[c].Double())
		case bytecode.OP_NE_DOUBLE:
			regs[a] = value.Bool(regs[b].Double() != regs[c].Double())
		case bytecode.OP_LT_DOUBLE:
			regs[a] = value.Bool(regs[b].Double() < regs[c].Double())
		case bytecode.OP_LE_DOUBLE:
			regs[a] = value.Bool(regs[b].Double() <= regs[c].Double())
		case bytecode.OP_GT_DOUBLE:
			regs[a] = value.Bool(regs[b].Double() > regs[c].Double())
		case bytecode.OP_GE_DOUBLE:
			regs[a] = value.Bool(regs[b].Double() >= regs[c].Double())
		case bytecode.OP_EQ_STR:
			regs[a] = value.Bool(regs[b].Str() == regs[c].Str())
		case bytecode.OP_NE_STR:
			regs[a] = value.Bool(regs[b].Str() != regs[c].Str())
		case bytecode.OP_LT_STR:
			regs[a] = value.Bool(regs[b].Str() < regs[c].Str())
		case bytecode.OP_LE_STR:
			regs[a] = value.Bool(regs[b].Str() <= regs[c].Str())
		case bytecode.OP_GT_STR:
			regs[a] = value.Bool(regs[b].Str() > regs[c].Str())
		case bytecode.OP_GE_STR:
			regs[a] = value.Bool(regs[b].Str() >= regs[c].Str())
		case bytecode.OP_EQ_CHAR:
			regs[a] = value.Bool(regs[b].Char() == regs[c].Char())
		case bytecode.OP_NE_CHAR:
			regs[a] = value.Bool(regs[b].Char() != regs[c].Char())
		case bytecode.OP_LT_CHAR:
			regs[a] = value.Bool(regs[b].Char() < regs[c].Char())
		case bytecode.OP_LE_CHAR:
			regs[a] = value.Bool(regs[b].Char() <= regs[c].Char())
		case bytecode.OP_GT_CHAR:
			regs[a] = value.Bool(regs[b].Char() > regs[c].Char())
		case bytecode.OP_GE_CHAR:
			regs[a] = value.Bool(regs[b].Char() >= regs[c].Char())
		case bytecode.OP_EQ_BOOL:
			regs[a] = value.Bool(regs[b].Bool() == regs[c].Bool())
		case bytecode.OP_NE_BOOL:
			regs[a] = value.Bool(regs[b].Bool() != regs[c].Bool())
		case bytecode.OP_LT_BOOL:
			regs[a] = value.Bool(!regs[b].Bool() && regs[c].Bool())
		case bytecode.OP_LE_BOOL:
			regs[a] = value.Bool(!regs[b].Bool() || regs[c].Bool())
		case bytecode.OP_GT_BOOL:
			regs[a] = value.Bool(regs[b].Bool() && !regs[c].Bool())
		case bytecode.OP_GE_BOOL:
			regs[a] = value.Bool(regs[b].Bool() || !regs[c].Bool())

		// Conversions
		case bytecode.OP_INT_TO_FLOAT:
			regs[a] = value.Float(float32(regs[b].Int()))
		case bytecode.OP_INT_TO_DOUBLE:
			regs[a] = value.Double(float64(regs[b].Int()))
		case bytecode.OP_FLOAT_TO_INT:
			regs[a] = value.Int(narrowToInt(float64(regs[b].Float()), pc))
		case bytecode.OP_FLOAT_TO_DOUBLE:
			regs[a] = value.Double(float64(regs[b].Float()))
		case bytecode.OP_DOUBLE_TO_INT:
			regs[a] = value.Int(narrowToInt(regs[b].Double(), pc))
		case bytecode.OP_DOUBLE_TO_FLOAT:
			regs[a] = value.Float(float32(regs[b].Double()))
		case bytecode.OP_INT_TO_STR:
			regs[a] = value.Str(strconv.FormatInt(int64(regs[b].Int()), 10))
		case bytecode.OP_FLOAT_TO_STR:
			regs[a] = value.Str(strconv.FormatFloat(float64(regs[b].Float()), 'g', -1, 32))
		case bytecode.OP_DOUBLE_TO_STR:
			regs[a] = value.Str(strconv.FormatFloat(regs[b].Double(), 'g', -1, 64))
		case bytecode.OP_CHAR_TO_STR:
			regs[a] = value.Str(string(regs[b].Char()))
		case bytecode.OP_STR_TO_INT:
			s := regs[b].Str()
			n, err := strconv.ParseInt(s, 10, 32)
			if err != nil {
				panic(vmerr.Conversionf("cannot parse %q as int", s))
			}
			regs[a] = value.Int(int32(n))
		case bytecode.OP_STR_TO_FLOAT:
			s := regs[b].Str()
			f, err := strconv.ParseFloat(s, 32)
			if err != nil {
				panic(vmerr.Conversionf("cannot parse %q as float", s))
			}
			regs[a] = value.Float(float32(f))
		case bytecode.OP_STR_TO_DOUBLE:
			s := regs[b].Str()
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				panic(vmerr.Conversionf("cannot parse %q as double", s))
			}
			regs[a] = value.Double(f)
		case bytecode.OP_ENUM_CHECK_INT, bytecode.OP_ENUM_CHECK_STR:
			desc := bytecode.AsEnumDesc(e.prog.Const(int(ins.Bx())))
			v := regs[a]
			if ins.Op() == bytecode.OP_ENUM_CHECK_INT {
				v.Int() // enforce the backing kind
			} else {
				v.Str()
			}
			if !enumMember(desc, v) {
				panic(vmerr.InvalidEnumf("%s is not a member of enum %s", v, desc.Name))
			}
		case bytecode.OP_TO_JSON:
			regs[a] = value.Str(e.RenderJSON(regs[b]))

		// Arrays
		case bytecode.OP_NEW_ARRAY:
			regs[a] = value.Arr(value.NewArray())
		case bytecode.OP_ARR_GET:
			arr := regs[b].Arr()
			idx := int(regs[c].Int())
			if idx < 0 || idx >= len(arr.Elems) {
				panic(vmerr.Structuralf("array index %d out of range (len %d)", idx, len(arr.Elems)))
			}
			regs[a] = arr.Elems[idx]
		case bytecode.OP_ARR_SET:
			arr := regs[a].Arr()
			idx := int(regs[b].Int())
			if idx < 0 || idx >= len(arr.Elems) {
				panic(vmerr.Structuralf("array index %d out of range (len %d)", idx, len(arr.Elems)))
			}
			arr.Elems[idx] = regs[c]
		case bytecode.OP_ARR_PUSH:
			arr := regs[a].Arr()
			arr.Elems = append(arr.Elems, regs[b])
		case bytecode.OP_ARR_LEN:
			regs[a] = value.Int(int32(len(regs[b].Arr().Elems)))
		case bytecode.OP_ARR_CLEAR:
			regs[a].Arr().Elems = nil

		// String-keyed map
		case bytecode.OP_NEW_SMAP:
			regs[a] = value.SMap(value.NewStringMap())
		case bytecode.OP_SMAP_GET:
			regs[a] = regs[b].SMap().Get(regs[c].Str())
		case bytecode.OP_SMAP_SET:
			regs[a].SMap().Items[regs[b].Str()] = regs[c]
		case bytecode.OP_SMAP_HAS:
			_, ok := regs[b].SMap().Items[regs[c].Str()]
			regs[a] = value.Bool(ok)
		case bytecode.OP_SMAP_DEL:
			delete(regs[a].SMap().Items, regs[b].Str())
		case bytecode.OP_SMAP_SIZE:
			regs[a] = value.Int(int32(len(regs[b].SMap().Items)))
		case bytecode.OP_SMAP_CLEAR:
			regs[a].SMap().Items = make(map[string]value.Value)
		case bytecode.OP_SMAP_KEYS:
			m := regs[b].SMap()
			out := value.NewArray()
			for _, k := range sortedStringKeys(m.Items) {
				out.Elems = append(out.Elems, value.Str(k))
			}
			regs[a] = value.Arr(out)
		case bytecode.OP_SMAP_VALS:
			m := regs[b].SMap()
			out := value.NewArray()
			for _, k := range sortedStringKeys(m.Items) {
				out.Elems = append(out.Elems, m.Items[k])
			}
			regs[a] = value.Arr(out)

		// String-keyed set
		case bytecode.OP_NEW_SSET:
			regs[a] = value.SSet(value.NewStringSet())
		case bytecode.OP_SSET_ADD:
			regs[a].SSet().Items[regs[b].Str()] = struct{}{}
		case bytecode.OP_SSET_HAS:
			_, ok := regs[b].SSet().Items[regs[c].Str()]
			regs[a] = value.Bool(ok)
		case bytecode.OP_SSET_DEL:
			delete(regs[a].SSet().Items, regs[b].Str())
		case bytecode.OP_SSET_SIZE:
			regs[a] = value.Int(int32(len(regs[b].SSet().Items)))
		case bytecode.OP_SSET_CLEAR:
			regs[a].SSet().Items = make(map[string]struct{})
		case bytecode.OP_SSET_VALS:
			s := regs[b].SSet()
			keys := make([]string, 0, len(s.Items))
			for k := range s.Items {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			out := value.NewArray()
			for _, k := range keys {
				out.Elems = append(out.Elems, value.Str(k))
			}
			regs[a] = value.Arr(out)

		// Integer-keyed map
		case bytecode.OP_NEW_IMAP:
			regs[a] = value.IMap(value.NewIntMap())
		case bytecode.OP_IMAP_GET:
			regs[a] = regs[b].IMap().Get(regs[c].Int())
		case bytecode.OP_IMAP_SET:
			regs[a].IMap().Items[regs[b].Int()] = regs[c]
		case bytecode.OP_IMAP_HAS:
			_, ok := regs[b].IMap().Items[regs[c].Int()]
			regs[a] = value.Bool(ok)
		case bytecode.OP_IMAP_DEL:
			delete(regs[a].IMap().Items, regs[b].Int())
		case bytecode.OP_IMAP_SIZE:
			regs[a] = value.Int(int32(len(regs[b].IMap().Items)))
		case bytecode.OP_IMAP_CLEAR:
			regs[a].IMap().Items = make(map[int32]value.Value)
		case bytecode.OP_IMAP_KEYS:
			m := regs[b].IMap()
			out := value.NewArray()
			for _, k := range sortedIntKeys(m.Items) {
				out.Elems = append(out.Elems, value.Int(k))
			}
			regs[a] = value.Arr(out)
		case bytecode.OP_IMAP_VALS:
			m := regs[b].IMap()
			out := value.NewArray()
			for _, k := range sortedIntKeys(m.Items) {
				out.Elems = append(out.Elems, m.Items[k])
			}
			regs[a] = value.Arr(out)

		// Integer-keyed set
		case bytecode.OP_NEW_ISET:
			regs[a] = value.ISet(value.NewIntSet())
		case bytecode.OP_ISET_ADD:
			regs[a].ISet().Items[regs[b].Int()] = struct{}{}
		case bytecode.OP_ISET_HAS:
			_, ok := regs[b].ISet().Items[regs[c].Int()]
			regs[a] = value.Bool(ok)
		case bytecode.OP_ISET_DEL:
			delete(regs[a].ISet().Items, regs[b].Int())
		case bytecode.OP_ISET_SIZE:
			regs[a] = value.Int(int32(len(regs[b].ISet().Items)))
		case bytecode.OP_ISET_CLEAR:
			regs[a].ISet().Items = make(map[int32]struct{})
		case bytecode.OP_ISET_VALS:
			s := regs[b].ISet()
			keys := make([]int32, 0, len(s.Items))
			for k := range s.Items {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
			out := value.NewArray()
			for _, k := range keys {
				out.Elems = append(out.Elems, value.Int(k))
			}
			regs[a] = value.Arr(out)

		// Objects
		case bytecode.OP_NEW_OBJECT:
			idx := int(ins.Bx())
			desc := bytecode.AsClassDesc(e.prog.Const(idx))
			regs[a] = value.Obj(value.NewObject(int32(idx), len(desc.FieldNames)))
		case bytecode.OP_GET_FIELD:
			o := regs[b].Obj()
			if c >= len(o.Fields) {
				panic(vmerr.Structuralf("field %d out of range (class %d has %d)", c, o.Class, len(o.Fields)))
			}
			regs[a] = o.Fields[c]
		case bytecode.OP_SET_FIELD:
			o := regs[a].Obj()
			if b >= len(o.Fields) {
				panic(vmerr.Structuralf("field %d out of range (class %d has %d)", b, o.Class, len(o.Fields)))
			}
			o.Fields[b] = regs[c]

		// Closures
		case bytecode.OP_NEW_CLOSURE:
			idx := int(ins.Bx())
			bytecode.AsFuncDesc(e.prog.Const(idx)) // validate shape up front
			regs[a] = value.Cls(&value.Closure{Fn: idx})
		case bytecode.OP_CAPTURE:
			cl := regs[a].Cls()
			cl.Captures = append(cl.Captures, regs[b])
		case bytecode.OP_CALL_CLOSURE:
			cl := regs[b].Cls()
			fn := bytecode.AsFuncDesc(e.prog.Const(cl.Fn))
			e.checkArgWindow(fn.Name, a, fn.Params, len(cl.Captures))
			callee := e.push(fn, cl.Fn, a)
			n := copy(callee.regs, cl.Captures)
			copy(callee.regs[n:n+fn.Params], regs[a:a+fn.Params])

		// Iteration
		case bytecode.OP_ITER_INIT:
			regs[a] = value.Iter(newIterator(regs[b]))
		case bytecode.OP_ITER_NEXT:
			regs[a] = value.Bool(regs[b].Iter().Next())
		case bytecode.OP_ITER_VALUE:
			regs[a] = regs[b].Iter().Value()
		case bytecode.OP_ITER_KEY:
			regs[a] = regs[b].Iter().Key()

		// Calls, externs, globals
		case bytecode.OP_CALL:
			idx := int(ins.Bx())
			fn := bytecode.AsFuncDesc(e.prog.Const(idx))
			e.checkArgWindow(fn.Name, a, fn.Params, 0)
			callee := e.push(fn, idx, a)
			copy(callee.regs[:fn.Params], regs[a:a+fn.Params])
		case bytecode.OP_RETURN:
			e.doReturn(regs[a])
		case bytecode.OP_RETURN_VOID:
			e.doReturn(value.Null())
		case bytecode.OP_EXTERN_CALL:
			desc := bytecode.AsExternDesc(e.prog.Const(int(ins.Bx())))
			fn, ok := e.externs[desc.Name]
			if !ok {
				panic(vmerr.Structuralf("extern %q not registered", desc.Name))
			}
			e.checkArgWindow(desc.Name, a, desc.Arity, 0)
			args := make([]value.Value, desc.Arity)
			copy(args, regs[a:a+desc.Arity])
			res, err := fn(e, args)
			if err != nil {
				if f, ok := vmerr.AsFault(err); ok {
					panic(f)
				}
				panic(vmerr.Structuralf("extern %s: %v", desc.Name, err))
			}
			regs[a] = res
		case bytecode.OP_GLOBAL_GET:
			idx := int(ins.Bx())
			if idx < 0 || idx >= len(e.globals) {
				panic(vmerr.Structuralf("global %d out of range (count %d)", idx, len(e.globals)))
			}
			regs[a] = e.globals[idx]
		case bytecode.OP_GLOBAL_SET:
			idx := int(ins.Bx())
			if idx < 0 || idx >= len(e.globals) {
				panic(vmerr.Structuralf("global %d out of range (count %d)", idx, len(e.globals)))
			}
			e.globals[idx] = regs[a]

		default:
			panic(vmerr.Structuralf("invalid opcode %d at %04d", byte(ins.Op()), pc))
		}
	}
}

// doReturn pops the top frame and delivers ret to the caller, or records
// the program result when the entry frame returns.
func (e *Engine) doReturn(ret value.Value) {
	top := e.frames[len(e.frames)-1]
	e.frames = e.frames[:len(e.frames)-1]
	if len(e.frames) == 0 {
		e.result = ret
		return
	}
	e.frames[len(e.frames)-1].regs[top.retReg] = ret
}

// checkArgWindow validates a call's argument window against both
// register files: count arguments read from base in the caller, landing
// at calleeBase in the callee. A descriptor whose counts spill past the
// register file is malformed bytecode. Unchecked mode trusts the
// frontend, like jumps.
func (e *Engine) checkArgWindow(name string, base, count, calleeBase int) {
	if e.unchecked {
		return
	}
	if count < 0 || base+count > config.RegisterFileSize || calleeBase+count > config.RegisterFileSize {
		panic(vmerr.Structuralf("call to %s: %d arguments at r%d (callee base %d) exceed the register file",
			name, count, base, calleeBase))
	}
}

// jumpTarget applies a relative offset to the already-incremented ip.
// Checked mode validates the target; unchecked trusts the frontend, and
// a bad target surfaces at the loop's range check instead.
func (e *Engine) jumpTarget(ip, off int, fn string) int {
	t := ip + off
	if !e.unchecked && (t < 0 || t >= len(e.prog.Code)) {
		panic(vmerr.Structuralf("jump target %d out of range in %s", t, fn))
	}
	return t
}

// narrowToInt truncates toward zero, failing on NaN and out-of-range
// inputs instead of wrapping.
func narrowToInt(f float64, pc int) int32 {
	t := math.Trunc(f)
	if math.IsNaN(t) || t < math.MinInt32 || t > math.MaxInt32 {
		panic(vmerr.Structuralf("narrowing %g to int at %04d", f, pc))
	}
	return int32(t)
}

func enumMember(desc bytecode.EnumDesc, v value.Value) bool {
	for _, m := range desc.Members {
		if m.Equal(v) {
			return true
		}
	}
	return false
}

// newIterator dispatches ITER_INIT over the iterable kinds.
func newIterator(v value.Value) *value.Iterator {
	switch v.Kind() {
	case value.KindArray:
		return value.NewArrayIterator(v.Arr())
	case value.KindStringSet:
		return value.NewStringSetIterator(v.SSet())
	case value.KindStringMap:
		return value.NewStringMapIterator(v.SMap())
	case value.KindIntSet:
		return value.NewIntSetIterator(v.ISet())
	case value.KindIntMap:
		return value.NewIntMapIterator(v.IMap())
	default:
		panic(vmerr.TypeMismatchf("%s is not iterable", v.Kind()))
	}
}

func sortedStringKeys(m map[string]value.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedIntKeys(m map[int32]value.Value) []int32 {
	keys := make([]int32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
