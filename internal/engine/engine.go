// Package engine executes Tide bytecode: a register-based dispatch loop
// over frames of 256 registers, a flat global array, extern function and
// class registries, and an optional debug hook consulted at instruction
// boundaries.
package engine

import (
	"io"
	"sync/atomic"

	"github.com/tidelang/tide/internal/bytecode"
	"github.com/tidelang/tide/internal/config"
	"github.com/tidelang/tide/internal/value"
	"github.com/tidelang/tide/internal/vmerr"
)

// State is the engine lifecycle. Running -> Paused happens only at
// instruction boundaries through the debug hook; Terminated is final.
type State int32

const (
	StateReady State = iota
	StateRunning
	StatePaused
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// ExternFunc is a host function callable through EXTERN_CALL. A returned
// error terminates the program; faults panicking out of the function are
// caught at the dispatch-loop boundary like any other fault.
type ExternFunc func(e *Engine, args []value.Value) (value.Value, error)

// ExternClass describes a host class registered with the engine. The
// engine assigns the Tag at registration; Fields names the payload's
// rendered fields for the debugger and the JSON renderer (may be empty).
type ExternClass struct {
	Name      string
	Tag       int32
	Fields    []string
	Construct func(e *Engine, args []value.Value) (interface{}, error)
}

// frame is one call activation. Only the top frame is ever mutated.
type frame struct {
	regs   []value.Value
	fn     bytecode.FuncDesc
	pool   int // constant-pool index of the function descriptor
	ip     int
	retReg int // caller register receiving the return value
}

// Options configures an engine at construction. Safety is decided here,
// not per run.
type Options struct {
	// Output receives program print output. Defaults to io.Discard;
	// the debug adapter installs a writer that forwards output events.
	Output io.Writer

	// Unchecked disables jump-target and opcode validation. The
	// register file is fixed-size and operand bytes cannot exceed it,
	// so register access needs no check in either mode.
	Unchecked bool

	// Hook, when set, is consulted before every instruction.
	Hook *DebugHook
}

// Engine runs one program to completion. A single goroutine drives Run;
// while paused, the debugger goroutine may inspect frames and globals
// because the run goroutine is blocked inside the hook.
type Engine struct {
	prog      *bytecode.Program
	globals   []value.Value
	frames    []frame
	out       io.Writer
	unchecked bool
	hook      *DebugHook

	state  atomic.Int32
	err    error
	result value.Value

	externs    map[string]ExternFunc
	classes    map[string]*ExternClass
	classByTag map[int32]*ExternClass
	nextTag    int32
}

// New creates an engine for the program. Extern registration must happen
// before Run.
func New(p *bytecode.Program, opts Options) *Engine {
	out := opts.Output
	if out == nil {
		out = io.Discard
	}
	e := &Engine{
		prog:       p,
		globals:    make([]value.Value, p.GlobalCount),
		out:        out,
		unchecked:  opts.Unchecked,
		hook:       opts.Hook,
		externs:    make(map[string]ExternFunc),
		classes:    make(map[string]*ExternClass),
		classByTag: make(map[int32]*ExternClass),
		nextTag:    bytecode.TagExternBase,
	}
	e.state.Store(int32(StateReady))
	return e
}

// RegisterExtern binds a host function name. Last registration wins.
func (e *Engine) RegisterExtern(name string, fn ExternFunc) {
	e.externs[name] = fn
}

// RegisterClass installs a host class and assigns its negative tag.
func (e *Engine) RegisterClass(c *ExternClass) int32 {
	c.Tag = e.nextTag
	e.nextTag--
	e.classes[c.Name] = c
	e.classByTag[c.Tag] = c
	return c.Tag
}

// ClassByTag looks an extern class up by its assigned tag.
func (e *Engine) ClassByTag(tag int32) (*ExternClass, bool) {
	c, ok := e.classByTag[tag]
	return c, ok
}

// Wrap attaches a registered class's tag to an existing host payload,
// producing an object value the program can hold and pass around.
func (e *Engine) Wrap(className string, host interface{}) value.Value {
	c, ok := e.classes[className]
	if !ok {
		panic(vmerr.Structuralf("wrap: extern class %q not registered", className))
	}
	return value.Obj(&value.Object{Class: c.Tag, Host: host})
}

// Construct runs a registered class's constructor and wraps the result.
func (e *Engine) Construct(className string, args []value.Value) (value.Value, error) {
	c, ok := e.classes[className]
	if !ok {
		return value.Null(), vmerr.Structuralf("construct: extern class %q not registered", className)
	}
	host, err := c.Construct(e, args)
	if err != nil {
		return value.Null(), err
	}
	return value.Obj(&value.Object{Class: c.Tag, Host: host}), nil
}

// Downcast recovers the host payload of a wrapped object, checking class
// identity. A receiver of any other class, or a plain VM object, fails
// with a ReceiverMismatch fault.
func (e *Engine) Downcast(v value.Value, className string) interface{} {
	c, ok := e.classes[className]
	if !ok {
		panic(vmerr.Structuralf("downcast: extern class %q not registered", className))
	}
	if v.Kind() != value.KindObject {
		panic(vmerr.ReceiverMismatchf("expected %s receiver, have %s", className, v.Kind()))
	}
	o := v.Obj()
	if o.Class != c.Tag || o.Host == nil {
		panic(vmerr.ReceiverMismatchf("expected %s receiver, have class tag %d", className, o.Class))
	}
	return o.Host
}

// Output is the program print sink.
func (e *Engine) Output() io.Writer {
	return e.out
}

// Program returns the loaded program.
func (e *Engine) Program() *bytecode.Program {
	return e.prog
}

// State returns the current lifecycle state. Safe from any goroutine.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Err returns the fatal fault after termination, nil on clean completion.
func (e *Engine) Err() error {
	return e.err
}

// Result returns the entry function's return value after termination.
func (e *Engine) Result() value.Value {
	return e.result
}

// Hook returns the attached debug hook, if any.
func (e *Engine) Hook() *DebugHook {
	return e.hook
}

// push creates a frame for the descriptor at the given pool index.
func (e *Engine) push(fn bytecode.FuncDesc, pool, retReg int) *frame {
	if len(e.frames) >= config.MaxCallDepth {
		panic(vmerr.Structuralf("call depth exceeds %d", config.MaxCallDepth))
	}
	e.frames = append(e.frames, frame{
		regs:   make([]value.Value, config.RegisterFileSize),
		fn:     fn,
		pool:   pool,
		ip:     fn.Entry,
		retReg: retReg,
	})
	return &e.frames[len(e.frames)-1]
}

// FrameInfo is a debugger view of one call activation. Index 0 is the
// innermost frame.
type FrameInfo struct {
	Func string
	Pool int
	PC   int
	Regs int
}

// Depth returns the number of live frames. Valid while paused.
func (e *Engine) Depth() int {
	return len(e.frames)
}

// FrameAt returns the frame i levels below the top. Valid while paused.
func (e *Engine) FrameAt(i int) FrameInfo {
	fr := &e.frames[len(e.frames)-1-i]
	return FrameInfo{Func: fr.fn.Name, Pool: fr.pool, PC: fr.ip, Regs: fr.fn.Regs}
}

// Register reads a register of the frame i levels below the top. Valid
// while paused.
func (e *Engine) Register(i, reg int) value.Value {
	fr := &e.frames[len(e.frames)-1-i]
	if reg < 0 || reg >= len(fr.regs) {
		panic(vmerr.Structuralf("register %d out of range", reg))
	}
	return fr.regs[reg]
}

// Global reads a global by flat index. Valid while paused.
func (e *Engine) Global(i int) value.Value {
	if i < 0 || i >= len(e.globals) {
		panic(vmerr.Structuralf("global %d out of range", i))
	}
	return e.globals[i]
}

// GlobalCount returns the size of the global array.
func (e *Engine) GlobalCount() int {
	return len(e.globals)
}
