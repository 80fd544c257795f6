package dap

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/tidelang/tide/internal/bytecode"
	"github.com/tidelang/tide/internal/debug"
	"github.com/tidelang/tide/internal/engine"
	"github.com/tidelang/tide/internal/value"
	"github.com/tidelang/tide/internal/vmerr"
)

// The engine is single-threaded; every stopped event reports this id.
const threadID = 1

// SessionOptions wires a session to its environment.
type SessionOptions struct {
	// Load resolves a launch request's program path. Defaults to
	// bytecode.LoadFile.
	Load func(path string) (*bytecode.Program, *debug.Info, error)

	// Setup registers externs and host classes on the launched engine.
	Setup func(e *engine.Engine)

	// StopOnEntry forces a stop before the first instruction even when
	// the launch request does not ask for one.
	StopOnEntry bool
}

// Session binds one engine to one debug client over a framed channel.
// The session goroutine reads requests; the engine runs on its own
// goroutine and blocks inside the pause callback while stopped, which is
// what makes frame inspection race-free.
type Session struct {
	id   string
	opts SessionOptions
	log  commonlog.Logger

	reader *bufio.Reader
	wmu    sync.Mutex
	writer io.Writer
	seq    int

	eng      *engine.Engine
	hook     *engine.DebugHook
	info     *debug.Info
	prog     *bytecode.Program
	progName string

	resume      chan struct{}
	terminating atomic.Bool
	exited      chan struct{}

	// vmu guards the per-stop state: the stop position, written on the
	// engine goroutine at every pause, and the variable handles.
	vmu          sync.Mutex
	stoppedPC    int
	stoppedDepth int
	vars         map[int]varRef
	nextVar      int
}

// NewSession creates a session over conn. Serve drives it.
func NewSession(conn io.ReadWriter, opts SessionOptions) *Session {
	if opts.Load == nil {
		opts.Load = bytecode.LoadFile
	}
	return &Session{
		id:     uuid.NewString(),
		opts:   opts,
		log:    commonlog.GetLogger("tide.dap"),
		reader: bufio.NewReader(conn),
		writer: conn,
		resume: make(chan struct{}, 1),
		exited: make(chan struct{}),
		vars:   make(map[int]varRef),
	}
}

// Serve processes requests until the client disconnects or the channel
// fails. A malformed frame header desynchronizes the stream and ends the
// session; a malformed request body only fails that request.
func (s *Session) Serve() error {
	s.log.Infof("session %s started", s.id)
	defer s.shutdown()
	for {
		body, err := ReadFrame(s.reader)
		if err == io.EOF {
			s.log.Infof("session %s: client disconnected", s.id)
			return nil
		}
		if err != nil {
			s.log.Errorf("session %s: %v", s.id, err)
			return err
		}
		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			s.respondErr(Request{}, vmerr.Protocolf("malformed request: %v", err))
			continue
		}
		if req.Type != "request" {
			s.respondErr(req, vmerr.Protocolf("unexpected message type %q", req.Type))
			continue
		}
		s.handle(req)
		if req.Command == "disconnect" {
			return nil
		}
	}
}

func (s *Session) handle(req Request) {
	body, err := s.dispatch(req)
	if err != nil {
		if _, ok := err.(*vmerr.Fault); !ok {
			err = vmerr.Protocolf("%v", err)
		}
		s.log.Warningf("session %s: %s failed: %v", s.id, req.Command, err)
		s.respondErr(req, err)
		return
	}
	s.respond(req, body)

	// Post-response events required by the protocol ordering.
	switch req.Command {
	case "initialize":
		s.sendEvent("initialized", nil)
	case "launch":
		s.sendEvent("process", ProcessBody{Name: s.progName})
	}
}

func (s *Session) dispatch(req Request) (interface{}, error) {
	switch req.Command {
	case "initialize":
		return Capabilities{
			SupportsConfigurationDoneRequest: true,
			SupportsConditionalBreakpoints:   false,
			SupportsEvaluateForHovers:        true,
			SupportsTerminateRequest:         true,
		}, nil
	case "launch":
		return s.onLaunch(req.Arguments)
	case "setBreakpoints":
		return s.onSetBreakpoints(req.Arguments)
	case "configurationDone":
		return nil, s.onConfigurationDone()
	case "continue":
		if err := s.resumeRun(debug.StepNone); err != nil {
			return nil, err
		}
		return ContinueBody{AllThreadsContinued: true}, nil
	case "next":
		return nil, s.resumeRun(debug.StepOver)
	case "stepIn":
		return nil, s.resumeRun(debug.StepIn)
	case "stepOut":
		return nil, s.resumeRun(debug.StepOut)
	case "pause":
		if s.hook == nil {
			return nil, vmerr.Protocolf("no program launched")
		}
		s.hook.RequestPause()
		return nil, nil
	case "threads":
		return map[string][]Thread{"threads": {{ID: threadID, Name: "main"}}}, nil
	case "stackTrace":
		return s.onStackTrace(req.Arguments)
	case "scopes":
		return s.onScopes(req.Arguments)
	case "variables":
		return s.onVariables(req.Arguments)
	case "evaluate":
		return s.onEvaluate(req.Arguments)
	case "disconnect", "terminate":
		s.stopEngine()
		return nil, nil
	default:
		return nil, vmerr.Protocolf("unknown command %q", req.Command)
	}
}

// --- lifecycle ---

func (s *Session) onLaunch(raw json.RawMessage) (interface{}, error) {
	if s.eng != nil {
		return nil, vmerr.Protocolf("program already launched")
	}
	var args LaunchArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, vmerr.Protocolf("bad launch arguments: %v", err)
	}
	if args.Program == "" {
		return nil, vmerr.Protocolf("launch requires a program")
	}
	prog, info, err := s.opts.Load(args.Program)
	if err != nil {
		return nil, vmerr.Protocolf("cannot load %s: %v", args.Program, err)
	}
	s.prog = prog
	s.info = info
	s.progName = filepath.Base(args.Program)
	s.hook = engine.NewHook(info)
	s.hook.OnPause = s.onPause
	if args.StopOnEntry || s.opts.StopOnEntry {
		s.hook.StopOnEntry()
	}
	s.eng = engine.New(prog, engine.Options{
		Output: &outputWriter{s: s},
		Hook:   s.hook,
	})
	if s.opts.Setup != nil {
		s.opts.Setup(s.eng)
	}
	return nil, nil
}

func (s *Session) onConfigurationDone() error {
	if s.eng == nil {
		return vmerr.Protocolf("no program launched")
	}
	if s.eng.State() != engine.StateReady {
		return vmerr.Protocolf("program already running")
	}
	go func() {
		_, err := s.eng.Run()
		if err != nil {
			s.sendEvent("output", OutputBody{Category: "stderr", Output: err.Error() + "\n"})
		}
		s.sendEvent("terminated", nil)
		close(s.exited)
	}()
	return nil
}

// onPause runs on the engine goroutine at every stop. It publishes the
// stopped event and blocks until a continue/step request signals resume.
func (s *Session) onPause(e *engine.Engine, reason engine.StopReason, pc int) {
	if s.terminating.Load() {
		panic(vmerr.Structuralf("terminated by debug client"))
	}
	s.markStopped(pc, e.Depth())
	s.sendEvent("stopped", StoppedBody{
		Reason:            string(reason),
		ThreadID:          threadID,
		AllThreadsStopped: true,
	})
	<-s.resume
	if s.terminating.Load() {
		panic(vmerr.Structuralf("terminated by debug client"))
	}
}

// resumeRun arms the requested step mode and releases the paused engine.
func (s *Session) resumeRun(mode debug.StepMode) error {
	if s.eng == nil {
		return vmerr.Protocolf("no program launched")
	}
	if s.eng.State() != engine.StatePaused {
		return vmerr.Protocolf("program is not paused")
	}
	if mode != debug.StepNone {
		s.vmu.Lock()
		pc, depth := s.stoppedPC, s.stoppedDepth
		s.vmu.Unlock()
		at, _ := s.hook.LineAt(pc)
		s.hook.Stepper.Arm(mode, depth, at)
	}
	s.resume <- struct{}{}
	return nil
}

// stopEngine asks a live engine to die at the next instruction boundary.
func (s *Session) stopEngine() {
	if s.eng == nil {
		return
	}
	switch s.eng.State() {
	case engine.StateRunning:
		s.terminating.Store(true)
		s.hook.RequestPause()
	case engine.StatePaused:
		s.terminating.Store(true)
		select {
		case s.resume <- struct{}{}:
		default:
		}
	}
}

func (s *Session) shutdown() {
	s.stopEngine()
}

// --- breakpoints ---

func (s *Session) onSetBreakpoints(raw json.RawMessage) (interface{}, error) {
	if s.hook == nil {
		return nil, vmerr.Protocolf("no program launched")
	}
	var args SetBreakpointsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, vmerr.Protocolf("bad setBreakpoints arguments: %v", err)
	}
	file := args.Source.Path
	if file == "" {
		file = args.Source.Name
	}
	s.hook.Breakpoints.ClearFile(file)
	out := make([]BreakpointInfo, 0, len(args.Breakpoints))
	for _, sb := range args.Breakpoints {
		pc, verified := 0, false
		if s.info != nil {
			pc, verified = s.info.FirstPCFor(file, sb.Line)
		}
		bp := s.hook.Breakpoints.Set(file, sb.Line, pc, verified, sb.Condition)
		out = append(out, BreakpointInfo{ID: bp.ID, Verified: bp.Verified, Line: bp.Line})
	}
	return map[string][]BreakpointInfo{"breakpoints": out}, nil
}

// --- inspection (valid only while paused) ---

func (s *Session) requirePaused() error {
	if s.eng == nil {
		return vmerr.Protocolf("no program launched")
	}
	if s.eng.State() != engine.StatePaused {
		return vmerr.Protocolf("program is not paused")
	}
	return nil
}

func (s *Session) onStackTrace(raw json.RawMessage) (interface{}, error) {
	if err := s.requirePaused(); err != nil {
		return nil, err
	}
	var args StackTraceArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, vmerr.Protocolf("bad stackTrace arguments: %v", err)
	}
	depth := s.eng.Depth()
	frames := make([]StackFrame, 0, depth)
	for i := 0; i < depth; i++ {
		fr := s.eng.FrameAt(i)
		sf := StackFrame{ID: i, Name: fr.Func}
		if s.info != nil {
			if at, ok := s.info.LineFor(fr.PC); ok {
				sf.Line = at.Line
				sf.Column = at.Col
				sf.Source = &Source{Name: filepath.Base(at.File), Path: at.File}
			}
		}
		frames = append(frames, sf)
	}
	return map[string]interface{}{
		"stackFrames": frames,
		"totalFrames": depth,
	}, nil
}

func (s *Session) onScopes(raw json.RawMessage) (interface{}, error) {
	if err := s.requirePaused(); err != nil {
		return nil, err
	}
	var args ScopesArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, vmerr.Protocolf("bad scopes arguments: %v", err)
	}
	if args.FrameID < 0 || args.FrameID >= s.eng.Depth() {
		return nil, vmerr.Protocolf("frame %d out of range", args.FrameID)
	}
	scopes := []Scope{
		{Name: "Locals", VariablesReference: s.addVar(varRef{kind: refLocals, frame: args.FrameID})},
	}
	if s.eng.GlobalCount() > 0 {
		scopes = append(scopes, Scope{
			Name:               "Globals",
			VariablesReference: s.addVar(varRef{kind: refGlobals}),
		})
	}
	return map[string][]Scope{"scopes": scopes}, nil
}

func (s *Session) onVariables(raw json.RawMessage) (interface{}, error) {
	if err := s.requirePaused(); err != nil {
		return nil, err
	}
	var args VariablesArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, vmerr.Protocolf("bad variables arguments: %v", err)
	}
	ref, ok := s.getVar(args.VariablesReference)
	if !ok {
		return nil, vmerr.Protocolf("unknown variables reference %d", args.VariablesReference)
	}
	return map[string][]Variable{"variables": s.expand(ref)}, nil
}

func (s *Session) onEvaluate(raw json.RawMessage) (interface{}, error) {
	if err := s.requirePaused(); err != nil {
		return nil, err
	}
	var args EvaluateArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, vmerr.Protocolf("bad evaluate arguments: %v", err)
	}
	if args.FrameID < 0 || args.FrameID >= s.eng.Depth() {
		return nil, vmerr.Protocolf("frame %d out of range", args.FrameID)
	}
	v, ok := s.lookupNamed(args.FrameID, args.Expression)
	if !ok {
		return nil, vmerr.Protocolf("cannot evaluate %q", args.Expression)
	}
	return EvaluateBody{
		Result:             v.String(),
		Type:               v.Kind().String(),
		VariablesReference: s.childRef(v),
	}, nil
}

// lookupNamed resolves a variable name in the given frame via the debug
// metadata.
func (s *Session) lookupNamed(frameID int, name string) (value.Value, bool) {
	if s.info == nil {
		return value.Null(), false
	}
	pc := s.eng.FrameAt(frameID).PC
	for _, ve := range s.info.VarsAt(pc) {
		if ve.Name == name {
			return s.eng.Register(frameID, int(ve.Reg)), true
		}
	}
	return value.Null(), false
}

// --- variable references ---

type refKind int

const (
	refLocals refKind = iota
	refGlobals
	refValue
)

type varRef struct {
	kind  refKind
	frame int
	val   value.Value
}

// markStopped publishes the stop position and drops stale variable
// handles; clients re-request scopes after every stopped event. Runs on
// the engine goroutine, readers take the same lock.
func (s *Session) markStopped(pc, depth int) {
	s.vmu.Lock()
	s.stoppedPC = pc
	s.stoppedDepth = depth
	s.vars = make(map[int]varRef)
	s.vmu.Unlock()
}

func (s *Session) addVar(r varRef) int {
	s.vmu.Lock()
	defer s.vmu.Unlock()
	s.nextVar++
	s.vars[s.nextVar] = r
	return s.nextVar
}

func (s *Session) getVar(id int) (varRef, bool) {
	s.vmu.Lock()
	defer s.vmu.Unlock()
	r, ok := s.vars[id]
	return r, ok
}

// childRef allocates a handle for an expandable value, 0 otherwise.
func (s *Session) childRef(v value.Value) int {
	switch v.Kind() {
	case value.KindArray, value.KindObject, value.KindStringMap,
		value.KindStringSet, value.KindIntMap, value.KindIntSet:
		return s.addVar(varRef{kind: refValue, val: v})
	}
	return 0
}

func (s *Session) variable(name string, v value.Value) Variable {
	return Variable{
		Name:               name,
		Value:              v.String(),
		Type:               v.Kind().String(),
		VariablesReference: s.childRef(v),
	}
}

func (s *Session) expand(r varRef) []Variable {
	switch r.kind {
	case refLocals:
		return s.expandLocals(r.frame)
	case refGlobals:
		out := make([]Variable, 0, s.eng.GlobalCount())
		for i := 0; i < s.eng.GlobalCount(); i++ {
			out = append(out, s.variable(fmt.Sprintf("g%d", i), s.eng.Global(i)))
		}
		return out
	default:
		return s.expandValue(r.val)
	}
}

// expandLocals prefers named variables from the debug metadata and falls
// back to raw registers when none cover the current pc.
func (s *Session) expandLocals(frameID int) []Variable {
	fr := s.eng.FrameAt(frameID)
	if s.info != nil {
		if vars := s.info.VarsAt(fr.PC); len(vars) > 0 {
			out := make([]Variable, 0, len(vars))
			for _, ve := range vars {
				out = append(out, s.variable(ve.Name, s.eng.Register(frameID, int(ve.Reg))))
			}
			return out
		}
	}
	n := fr.Regs
	if n == 0 {
		n = 8
	}
	out := make([]Variable, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.variable(fmt.Sprintf("r%d", i), s.eng.Register(frameID, i)))
	}
	return out
}

func (s *Session) expandValue(v value.Value) []Variable {
	switch v.Kind() {
	case value.KindArray:
		a := v.Arr()
		out := make([]Variable, 0, len(a.Elems))
		for i, el := range a.Elems {
			out = append(out, s.variable(fmt.Sprintf("[%d]", i), el))
		}
		return out
	case value.KindObject:
		o := v.Obj()
		names := s.objectFieldNames(o)
		out := make([]Variable, 0, len(o.Fields))
		for i, f := range o.Fields {
			name := fmt.Sprintf("field%d", i)
			if i < len(names) {
				name = names[i]
			}
			out = append(out, s.variable(name, f))
		}
		return out
	case value.KindStringMap:
		m := v.SMap()
		out := make([]Variable, 0, len(m.Items))
		for _, k := range sortedKeys(m.Items) {
			out = append(out, s.variable(k, m.Items[k]))
		}
		return out
	case value.KindIntMap:
		m := v.IMap()
		out := make([]Variable, 0, len(m.Items))
		for _, k := range sortedIntKeys(m.Items) {
			out = append(out, s.variable(fmt.Sprintf("%d", k), m.Items[k]))
		}
		return out
	case value.KindStringSet:
		keys := make([]string, 0, len(v.SSet().Items))
		for k := range v.SSet().Items {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]Variable, 0, len(keys))
		for i, k := range keys {
			out = append(out, s.variable(fmt.Sprintf("[%d]", i), value.Str(k)))
		}
		return out
	case value.KindIntSet:
		keys := make([]int32, 0, len(v.ISet().Items))
		for k := range v.ISet().Items {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		out := make([]Variable, 0, len(keys))
		for i, k := range keys {
			out = append(out, s.variable(fmt.Sprintf("[%d]", i), value.Int(k)))
		}
		return out
	}
	return nil
}

func (s *Session) objectFieldNames(o *value.Object) []string {
	if o.Class >= 0 && s.prog != nil && int(o.Class) < len(s.prog.Consts) {
		if d, err := safeClassDesc(s.prog.Consts[o.Class]); err == nil {
			return d.FieldNames
		}
	}
	if c, ok := s.eng.ClassByTag(o.Class); ok {
		return c.Fields
	}
	return nil
}

// safeClassDesc decodes a class descriptor without letting a malformed
// pool entry fault the session.
func safeClassDesc(v value.Value) (d bytecode.ClassDesc, err error) {
	defer func() {
		if r := recover(); r != nil {
			if f, ok := vmerr.AsFault(r); ok {
				err = f
				return
			}
			panic(r)
		}
	}()
	return bytecode.AsClassDesc(v), nil
}

// Deterministic orders keep clients and tests stable.

func sortedKeys(m map[string]value.Value) []string {
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

// --- wire output ---

func (s *Session) respond(req Request, body interface{}) {
	s.send(&Response{
		Type:       "response",
		RequestSeq: req.Seq,
		Success:    true,
		Command:    req.Command,
		Body:       body,
	})
}

func (s *Session) respondErr(req Request, err error) {
	s.send(&Response{
		Type:       "response",
		RequestSeq: req.Seq,
		Success:    false,
		Command:    req.Command,
		Message:    err.Error(),
	})
}

func (s *Session) sendEvent(name string, body interface{}) {
	s.send(&Event{Type: "event", Event: name, Body: body})
}

// send serializes and frames one message. Safe from the session and
// engine goroutines.
func (s *Session) send(msg interface{}) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.seq++
	switch m := msg.(type) {
	case *Response:
		m.Seq = s.seq
	case *Event:
		m.Seq = s.seq
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Errorf("session %s: marshal: %v", s.id, err)
		return
	}
	if err := WriteFrame(s.writer, data); err != nil {
		s.log.Errorf("session %s: write: %v", s.id, err)
	}
}

// outputWriter forwards program print output as output events.
type outputWriter struct {
	s *Session
}

func (w *outputWriter) Write(p []byte) (int, error) {
	w.s.sendEvent("output", OutputBody{Category: "stdout", Output: string(p)})
	return len(p), nil
}
