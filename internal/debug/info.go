// Package debug holds the metadata and state the debugger subsystem needs:
// the immutable DebugInfo bundle shipped alongside a bytecode artifact,
// the mutable breakpoint table, and the stepping-mode state machine.
package debug

import "sort"

// LineEntry maps one instruction index to a source position.
type LineEntry struct {
	PC   int    `cbor:"pc"`
	Line int    `cbor:"line"`
	Col  int    `cbor:"col"`
	File string `cbor:"file"`
}

// FuncEntry maps a function to its pool descriptor and code range.
type FuncEntry struct {
	Name  string `cbor:"name"`
	Pool  int    `cbor:"pool"`
	Entry int    `cbor:"entry"`
	End   int    `cbor:"end"` // exclusive
}

// VarEntry names a register within a scope.
type VarEntry struct {
	Name  string `cbor:"name"`
	Reg   uint8  `cbor:"reg"`
	Scope int    `cbor:"scope"`
}

// ScopeEntry is a lexical scope inside a function's code range.
type ScopeEntry struct {
	Func    int `cbor:"func"`
	StartPC int `cbor:"start"`
	EndPC   int `cbor:"end"` // exclusive
}

// Info is the immutable debug-metadata bundle supplied once at load time.
type Info struct {
	Lines   []LineEntry       `cbor:"lines"` // sorted by PC
	Funcs   []FuncEntry       `cbor:"funcs"`
	Vars    []VarEntry        `cbor:"vars"`
	Scopes  []ScopeEntry      `cbor:"scopes"`
	Sources map[string]string `cbor:"sources,omitempty"`
}

// Normalize sorts the source map by instruction index. Called once after
// decoding; lookups assume the order.
func (in *Info) Normalize() {
	sort.SliceStable(in.Lines, func(i, j int) bool { return in.Lines[i].PC < in.Lines[j].PC })
}

// LineFor returns the source position of the instruction at pc: the
// latest entry at or before pc.
func (in *Info) LineFor(pc int) (LineEntry, bool) {
	idx := sort.Search(len(in.Lines), func(i int) bool { return in.Lines[i].PC > pc })
	if idx == 0 {
		return LineEntry{}, false
	}
	return in.Lines[idx-1], true
}

// FirstPCFor resolves a requested source line to an instruction index:
// the first source-map entry matching the line and file. A miss means the
// breakpoint stays unverified.
func (in *Info) FirstPCFor(file string, line int) (int, bool) {
	for _, e := range in.Lines {
		if e.Line == line && e.File == file {
			return e.PC, true
		}
	}
	return 0, false
}

// FuncAt returns the function covering pc.
func (in *Info) FuncAt(pc int) (FuncEntry, bool) {
	for _, f := range in.Funcs {
		if pc >= f.Entry && pc < f.End {
			return f, true
		}
	}
	return FuncEntry{}, false
}

// VarsAt returns the named variables visible at pc: every variable whose
// scope covers pc.
func (in *Info) VarsAt(pc int) []VarEntry {
	var out []VarEntry
	for _, v := range in.Vars {
		if v.Scope < 0 || v.Scope >= len(in.Scopes) {
			continue
		}
		s := in.Scopes[v.Scope]
		if pc >= s.StartPC && pc < s.EndPC {
			out = append(out, v)
		}
	}
	return out
}

// Source returns the embedded text of a source file, if shipped.
func (in *Info) Source(file string) (string, bool) {
	s, ok := in.Sources[file]
	return s, ok
}
