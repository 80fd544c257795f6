package debug

import "testing"

func sampleInfo() *Info {
	in := &Info{
		Lines: []LineEntry{
			{PC: 0, Line: 1, File: "a.td"},
			{PC: 2, Line: 2, File: "a.td"},
			{PC: 5, Line: 3, File: "a.td"},
			{PC: 7, Line: 10, File: "b.td"},
		},
		Funcs: []FuncEntry{
			{Name: "main", Pool: 0, Entry: 0, End: 7},
			{Name: "helper", Pool: 1, Entry: 7, End: 9},
		},
		Vars: []VarEntry{
			{Name: "x", Reg: 0, Scope: 0},
			{Name: "y", Reg: 1, Scope: 1},
		},
		Scopes: []ScopeEntry{
			{Func: 0, StartPC: 0, EndPC: 7},
			{Func: 0, StartPC: 2, EndPC: 5},
		},
	}
	in.Normalize()
	return in
}

func TestLineForPicksLatestAtOrBefore(t *testing.T) {
	in := sampleInfo()
	cases := []struct {
		pc   int
		line int
	}{{0, 1}, {1, 1}, {2, 2}, {4, 2}, {5, 3}, {6, 3}, {8, 10}}
	for _, c := range cases {
		e, ok := in.LineFor(c.pc)
		if !ok || e.Line != c.line {
			t.Errorf("LineFor(%d): got=(%d,%t), want=(%d,true)", c.pc, e.Line, ok, c.line)
		}
	}
}

func TestFirstPCForMatchesFileAndLine(t *testing.T) {
	in := sampleInfo()
	if pc, ok := in.FirstPCFor("a.td", 2); !ok || pc != 2 {
		t.Errorf("FirstPCFor(a.td,2): got=(%d,%t)", pc, ok)
	}
	if _, ok := in.FirstPCFor("a.td", 99); ok {
		t.Error("unmapped line resolved; breakpoint should stay unverified")
	}
	if _, ok := in.FirstPCFor("c.td", 1); ok {
		t.Error("unknown file resolved")
	}
}

func TestVarsAtRespectsScopes(t *testing.T) {
	in := sampleInfo()
	at0 := in.VarsAt(0)
	if len(at0) != 1 || at0[0].Name != "x" {
		t.Errorf("VarsAt(0): got=%v", at0)
	}
	at3 := in.VarsAt(3)
	if len(at3) != 2 {
		t.Errorf("VarsAt(3): got=%d vars, want=2", len(at3))
	}
}

func TestBreakpointTable(t *testing.T) {
	tbl := NewTable()
	bp := tbl.Set("a.td", 2, 2, true, "")
	tbl.Set("a.td", 99, 0, false, "") // unverified: never hits

	if _, ok := tbl.Hit(2); !ok {
		t.Fatal("verified breakpoint did not hit")
	}
	if _, ok := tbl.Hit(0); ok {
		t.Fatal("unverified breakpoint hit")
	}

	if !tbl.SetEnabled(bp.ID, false) {
		t.Fatal("disable failed")
	}
	if _, ok := tbl.Hit(2); ok {
		t.Fatal("disabled breakpoint hit")
	}
	tbl.SetEnabled(bp.ID, true)

	if !tbl.Remove(bp.ID) {
		t.Fatal("remove failed")
	}
	if _, ok := tbl.Hit(2); ok {
		t.Fatal("removed breakpoint still hits")
	}
	if tbl.Remove(bp.ID) {
		t.Fatal("double remove succeeded")
	}
}

func TestClearFileReplacesWholesale(t *testing.T) {
	tbl := NewTable()
	tbl.Set("a.td", 1, 0, true, "")
	tbl.Set("a.td", 2, 2, true, "")
	tbl.Set("b.td", 10, 7, true, "")

	tbl.ClearFile("a.td")
	if len(tbl.All()) != 1 {
		t.Fatalf("after clear: got=%d breakpoints, want=1", len(tbl.All()))
	}
	if _, ok := tbl.Hit(7); !ok {
		t.Fatal("other file's breakpoint lost")
	}
}

func TestStepOverPredicate(t *testing.T) {
	var s Stepper
	s.Arm(StepOver, 2, LineEntry{Line: 5, File: "a.td"})

	// Deeper call: never stops.
	if s.ShouldStop(3, LineEntry{Line: 1, File: "a.td"}, true) {
		t.Error("step over stopped inside a call")
	}
	// Same depth, same line: keep going.
	if s.ShouldStop(2, LineEntry{Line: 5, File: "a.td"}, true) {
		t.Error("step over stopped on the line being left")
	}
	// Same depth, new line: stop.
	if !s.ShouldStop(2, LineEntry{Line: 6, File: "a.td"}, true) {
		t.Error("step over missed the next line")
	}
	// Shallower depth, new line: stop.
	if !s.ShouldStop(1, LineEntry{Line: 9, File: "a.td"}, true) {
		t.Error("step over missed the caller's next line")
	}
	// Unmapped instruction never satisfies a step.
	if s.ShouldStop(2, LineEntry{}, false) {
		t.Error("step over stopped on an unmapped instruction")
	}
}

func TestStepOutPredicate(t *testing.T) {
	var s Stepper
	s.Arm(StepOut, 3, LineEntry{Line: 5, File: "a.td"})

	if s.ShouldStop(3, LineEntry{Line: 6, File: "a.td"}, true) {
		t.Error("step out stopped without leaving the frame")
	}
	if s.ShouldStop(4, LineEntry{Line: 1, File: "a.td"}, true) {
		t.Error("step out stopped in a deeper frame")
	}
	if !s.ShouldStop(2, LineEntry{Line: 9, File: "a.td"}, true) {
		t.Error("step out missed the return")
	}
}

func TestStepInPredicate(t *testing.T) {
	var s Stepper
	s.Arm(StepIn, 2, LineEntry{Line: 5, File: "a.td"})

	// Depth is irrelevant: the very next instruction on a new line stops.
	if !s.ShouldStop(3, LineEntry{Line: 1, File: "b.td"}, true) {
		t.Error("step in missed a deeper new line")
	}
	if s.ShouldStop(2, LineEntry{Line: 5, File: "a.td"}, true) {
		t.Error("step in stopped on the line being left")
	}
	s.Clear()
	if s.ShouldStop(2, LineEntry{Line: 6, File: "a.td"}, true) {
		t.Error("cleared stepper still stops")
	}
}
