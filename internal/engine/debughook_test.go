package engine

import (
	"testing"

	"github.com/tidelang/tide/internal/bytecode"
	"github.com/tidelang/tide/internal/debug"
	"github.com/tidelang/tide/internal/value"
)

// countdown builds a loop decrementing r1 from n to 0. The decrement
// sits at pc 2; the loop body passes it n times.
func countdown(n int16) *bytecode.Program {
	return prog(nil,
		bytecode.ABx(bytecode.OP_LOAD_INT16, 1, n),
		bytecode.ABx(bytecode.OP_LOAD_INT16, 2, 1),
		bytecode.ABC(bytecode.OP_SUB_INT, 1, 1, 2),
		bytecode.ABx(bytecode.OP_LOAD_INT16, 3, 0),
		bytecode.ABC(bytecode.OP_GT_INT, 4, 1, 3),
		bytecode.ABx(bytecode.OP_JMP_IF_TRUE, 4, -4),
		bytecode.ABC(bytecode.OP_RETURN, 1, 0, 0),
	)
}

func TestBreakpointStopsOncePerPass(t *testing.T) {
	hook := NewHook(nil)
	hook.Breakpoints.Set("main.td", 3, 2, true, "")

	var stops []StopReason
	hook.OnPause = func(e *Engine, reason StopReason, pc int) {
		if pc != 2 {
			t.Errorf("stopped at pc %d, want 2", pc)
		}
		stops = append(stops, reason)
	}

	e := New(countdown(3), Options{Hook: hook})
	res, err := e.Run()
	if err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	// One stop per pass over the breakpoint, never twice for the same
	// pass, and the run still terminates.
	if len(stops) != 3 {
		t.Fatalf("stops: got=%d, want=3", len(stops))
	}
	for _, r := range stops {
		if r != StopBreakpoint {
			t.Errorf("reason: got=%s, want=breakpoint", r)
		}
	}
	testInt(t, res, 0)
	if e.State() != StateTerminated {
		t.Errorf("state: got=%s, want=terminated", e.State())
	}
}

func TestRemovedBreakpointNeverStopsAgain(t *testing.T) {
	hook := NewHook(nil)
	bp := hook.Breakpoints.Set("main.td", 3, 2, true, "")

	stops := 0
	hook.OnPause = func(e *Engine, reason StopReason, pc int) {
		stops++
		hook.Breakpoints.Remove(bp.ID)
	}

	e := New(countdown(5), Options{Hook: hook})
	if _, err := e.Run(); err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	if stops != 1 {
		t.Errorf("stops after removal: got=%d, want=1", stops)
	}
	if e.State() != StateTerminated {
		t.Errorf("state: got=%s, want=terminated", e.State())
	}
}

func TestStepOverStraightLineCode(t *testing.T) {
	// Four instructions, four source lines. Stop on entry, then three
	// step-over commands walk exactly one line each.
	p := prog(nil,
		bytecode.ABx(bytecode.OP_LOAD_INT16, 1, 1),
		bytecode.ABx(bytecode.OP_LOAD_INT16, 2, 2),
		bytecode.ABC(bytecode.OP_ADD_INT, 0, 1, 2),
		bytecode.ABC(bytecode.OP_RETURN, 0, 0, 0),
	)
	info := &debug.Info{Lines: []debug.LineEntry{
		{PC: 0, Line: 1, File: "main.td"},
		{PC: 1, Line: 2, File: "main.td"},
		{PC: 2, Line: 3, File: "main.td"},
		{PC: 3, Line: 4, File: "main.td"},
	}}
	info.Normalize()

	hook := NewHook(info)
	hook.StopOnEntry()

	var pcs []int
	hook.OnPause = func(e *Engine, reason StopReason, pc int) {
		pcs = append(pcs, pc)
		if len(pcs) <= 3 {
			at, _ := hook.LineAt(pc)
			hook.Stepper.Arm(debug.StepOver, e.Depth(), at)
		}
	}

	e := New(p, Options{Hook: hook})
	res, err := e.Run()
	if err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	want := []int{0, 1, 2, 3}
	if len(pcs) != len(want) {
		t.Fatalf("stops: got=%v, want=%v", pcs, want)
	}
	for i := range want {
		if pcs[i] != want[i] {
			t.Errorf("stop %d at pc %d, want %d", i, pcs[i], want[i])
		}
	}
	testInt(t, res, 3)
}

func TestStepOverSkipsCalls(t *testing.T) {
	// main calls add on line 2; a step-over from line 1 lands on line 2,
	// and from line 2 on line 3, never inside add.
	add := bytecode.MakeFuncDesc(bytecode.FuncDesc{Name: "add", Entry: 4, Params: 2, Regs: 3})
	p := prog([]value.Value{add},
		bytecode.ABx(bytecode.OP_LOAD_INT16, 2, 1),
		bytecode.ABx(bytecode.OP_LOAD_INT16, 3, 2),
		bytecode.ABx(bytecode.OP_CALL, 2, 1),
		bytecode.ABC(bytecode.OP_RETURN, 2, 0, 0),
		bytecode.ABC(bytecode.OP_ADD_INT, 2, 0, 1),
		bytecode.ABC(bytecode.OP_RETURN, 2, 0, 0),
	)
	info := &debug.Info{Lines: []debug.LineEntry{
		{PC: 0, Line: 1, File: "main.td"},
		{PC: 2, Line: 2, File: "main.td"},
		{PC: 3, Line: 3, File: "main.td"},
		{PC: 4, Line: 10, File: "main.td"},
	}}
	info.Normalize()

	hook := NewHook(info)
	hook.StopOnEntry()

	var lines []int
	hook.OnPause = func(e *Engine, reason StopReason, pc int) {
		at, _ := hook.LineAt(pc)
		lines = append(lines, at.Line)
		if len(lines) <= 3 {
			hook.Stepper.Arm(debug.StepOver, e.Depth(), at)
		}
	}

	e := New(p, Options{Hook: hook})
	if _, err := e.Run(); err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	want := []int{1, 2, 3}
	if len(lines) != len(want) {
		t.Fatalf("stop lines: got=%v, want=%v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("stop %d on line %d, want %d", i, lines[i], want[i])
		}
	}
}

func TestPauseRequestStopsAtBoundary(t *testing.T) {
	hook := NewHook(nil)
	hook.RequestPause()

	var reasons []StopReason
	hook.OnPause = func(e *Engine, reason StopReason, pc int) {
		reasons = append(reasons, reason)
	}

	e := New(countdown(1), Options{Hook: hook})
	if _, err := e.Run(); err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	if len(reasons) != 1 || reasons[0] != StopPause {
		t.Errorf("reasons: got=%v, want=[pause]", reasons)
	}
}

func TestFrameInspectionWhilePaused(t *testing.T) {
	hook := NewHook(nil)
	hook.Breakpoints.Set("main.td", 3, 2, true, "")

	inspected := false
	hook.OnPause = func(e *Engine, reason StopReason, pc int) {
		if inspected {
			return
		}
		inspected = true
		if e.State() != StatePaused {
			t.Errorf("state inside pause: got=%s, want=paused", e.State())
		}
		if e.Depth() != 1 {
			t.Errorf("depth: got=%d, want=1", e.Depth())
		}
		fr := e.FrameAt(0)
		if fr.Func != "main" || fr.PC != 2 {
			t.Errorf("frame: got=%+v", fr)
		}
		testInt(t, e.Register(0, 1), 3)
	}

	e := New(countdown(3), Options{Hook: hook})
	if _, err := e.Run(); err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	if !inspected {
		t.Fatal("pause callback never ran")
	}
}
