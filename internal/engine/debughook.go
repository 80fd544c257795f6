package engine

import (
	"sync/atomic"

	"github.com/tidelang/tide/internal/debug"
)

// StopReason labels why execution paused. Values match the stopped-event
// reasons of the adapter protocol.
type StopReason string

const (
	StopEntry      StopReason = "entry"
	StopBreakpoint StopReason = "breakpoint"
	StopStep       StopReason = "step"
	StopPause      StopReason = "pause"
)

// DebugHook attaches debugger state to an engine. The hook is consulted
// once per instruction; OnPause is called on the run goroutine and must
// block until the session wants execution to resume. While it blocks the
// engine is Paused and its frames may be inspected from the session
// goroutine.
type DebugHook struct {
	Breakpoints *debug.Table
	Stepper     *debug.Stepper
	Info        *debug.Info
	OnPause     func(e *Engine, reason StopReason, pc int)

	pauseReq atomic.Bool
	entry    bool
	skipPC   int
}

// NewHook creates a hook with an empty breakpoint table.
func NewHook(info *debug.Info) *DebugHook {
	return &DebugHook{
		Breakpoints: debug.NewTable(),
		Stepper:     &debug.Stepper{},
		Info:        info,
		skipPC:      -1,
	}
}

// RequestPause asks the engine to stop at the next instruction boundary.
// Safe from any goroutine.
func (h *DebugHook) RequestPause() {
	h.pauseReq.Store(true)
}

// StopOnEntry arranges a stop before the first instruction executes.
func (h *DebugHook) StopOnEntry() {
	h.entry = true
}

// LineAt maps pc through the source map, when debug info is present.
func (h *DebugHook) LineAt(pc int) (debug.LineEntry, bool) {
	if h.Info == nil {
		return debug.LineEntry{}, false
	}
	return h.Info.LineFor(pc)
}

// shouldStop evaluates, in priority order: entry stop, external pause
// request, armed step predicate, breakpoint. A breakpoint at the pc just
// resumed from is suppressed exactly once, so resuming does not re-stop
// without re-reaching the instruction.
func (h *DebugHook) shouldStop(pc, depth int) (StopReason, bool) {
	skip := h.skipPC == pc
	h.skipPC = -1

	if h.entry {
		h.entry = false
		return StopEntry, true
	}
	if h.pauseReq.CompareAndSwap(true, false) {
		return StopPause, true
	}
	at, mapped := h.LineAt(pc)
	if h.Stepper.Mode() != debug.StepNone && h.Stepper.ShouldStop(depth, at, mapped) {
		return StopStep, true
	}
	if _, ok := h.Breakpoints.Hit(pc); ok && !skip {
		return StopBreakpoint, true
	}
	return "", false
}

// maybeStop runs the hook at an instruction boundary. Called with the
// engine Running; restores Running after the pause callback returns.
func (e *Engine) maybeStop(pc int) {
	h := e.hook
	reason, stop := h.shouldStop(pc, len(e.frames))
	if !stop {
		return
	}
	// Any stop consumes a pending step.
	h.Stepper.Clear()
	e.state.Store(int32(StatePaused))
	if h.OnPause != nil {
		h.OnPause(e, reason, pc)
	}
	e.state.Store(int32(StateRunning))
	h.skipPC = pc
}
