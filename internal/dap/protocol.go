// Package dap implements the debug-adapter protocol surface of the VM:
// Content-Length framed JSON messages over any io.ReadWriter, a session
// binding one engine to one client, and a websocket channel adapter.
package dap

import "encoding/json"

// Request is an incoming client message. Arguments stay raw until the
// command handler knows their shape.
type Request struct {
	Seq       int             `json:"seq"`
	Type      string          `json:"type"`
	Command   string          `json:"command"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Response answers exactly one request. Success=false carries the
// protocol-level error in Message; the engine is never affected.
type Response struct {
	Seq        int         `json:"seq"`
	Type       string      `json:"type"`
	RequestSeq int         `json:"request_seq"`
	Success    bool        `json:"success"`
	Command    string      `json:"command"`
	Message    string      `json:"message,omitempty"`
	Body       interface{} `json:"body,omitempty"`
}

// Event is a server-initiated message.
type Event struct {
	Seq   int         `json:"seq"`
	Type  string      `json:"type"`
	Event string      `json:"event"`
	Body  interface{} `json:"body,omitempty"`
}

// Capabilities advertised in the initialize response.
type Capabilities struct {
	SupportsConfigurationDoneRequest bool `json:"supportsConfigurationDoneRequest"`
	SupportsConditionalBreakpoints   bool `json:"supportsConditionalBreakpoints"`
	SupportsEvaluateForHovers        bool `json:"supportsEvaluateForHovers"`
	SupportsTerminateRequest         bool `json:"supportsTerminateRequest"`
}

// Source identifies a file in requests and stack frames.
type Source struct {
	Name string `json:"name,omitempty"`
	Path string `json:"path,omitempty"`
}

// LaunchArgs selects the artifact to run.
type LaunchArgs struct {
	Program     string `json:"program"`
	StopOnEntry bool   `json:"stopOnEntry,omitempty"`
}

// SourceBreakpoint is one requested breakpoint line.
type SourceBreakpoint struct {
	Line      int    `json:"line"`
	Condition string `json:"condition,omitempty"`
}

// SetBreakpointsArgs replaces a file's breakpoints wholesale.
type SetBreakpointsArgs struct {
	Source      Source             `json:"source"`
	Breakpoints []SourceBreakpoint `json:"breakpoints"`
}

// BreakpointInfo reports one installed breakpoint back to the client.
type BreakpointInfo struct {
	ID       int  `json:"id"`
	Verified bool `json:"verified"`
	Line     int  `json:"line"`
}

// Thread is the one entry of the threads response.
type Thread struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// StackTraceArgs selects a slice of the paused call stack.
type StackTraceArgs struct {
	ThreadID   int `json:"threadId"`
	StartFrame int `json:"startFrame,omitempty"`
	Levels     int `json:"levels,omitempty"`
}

// StackFrame is one activation in the stackTrace response. ID doubles as
// the frame index for scopes requests.
type StackFrame struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Source *Source `json:"source,omitempty"`
	Line   int     `json:"line"`
	Column int     `json:"column"`
}

// ScopesArgs requests the variable scopes of one frame.
type ScopesArgs struct {
	FrameID int `json:"frameId"`
}

// Scope groups variables under one expandable reference.
type Scope struct {
	Name               string `json:"name"`
	VariablesReference int    `json:"variablesReference"`
	Expensive          bool   `json:"expensive"`
}

// VariablesArgs expands one variables reference.
type VariablesArgs struct {
	VariablesReference int `json:"variablesReference"`
}

// Variable is one name/value pair; a non-zero reference marks it
// expandable.
type Variable struct {
	Name               string `json:"name"`
	Value              string `json:"value"`
	Type               string `json:"type,omitempty"`
	VariablesReference int    `json:"variablesReference"`
}

// EvaluateArgs resolves an expression in an optional frame context.
type EvaluateArgs struct {
	Expression string `json:"expression"`
	FrameID    int    `json:"frameId,omitempty"`
	Context    string `json:"context,omitempty"`
}

// EvaluateBody is the evaluate response payload.
type EvaluateBody struct {
	Result             string `json:"result"`
	Type               string `json:"type,omitempty"`
	VariablesReference int    `json:"variablesReference"`
}

// StoppedBody announces a pause.
type StoppedBody struct {
	Reason            string `json:"reason"`
	ThreadID          int    `json:"threadId"`
	AllThreadsStopped bool   `json:"allThreadsStopped"`
}

// OutputBody forwards program or adapter output.
type OutputBody struct {
	Category string `json:"category,omitempty"`
	Output   string `json:"output"`
}

// ProcessBody announces the launched program.
type ProcessBody struct {
	Name string `json:"name"`
}

// ContinueBody is the continue response payload.
type ContinueBody struct {
	AllThreadsContinued bool `json:"allThreadsContinued"`
}
