package dap

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidelang/tide/internal/bytecode"
	"github.com/tidelang/tide/internal/debug"
	"github.com/tidelang/tide/internal/value"
)

// straightLine is four instructions on four source lines of main.td.
func straightLine() (*bytecode.Program, *debug.Info) {
	p := &bytecode.Program{
		Code: []bytecode.Instruction{
			bytecode.ABx(bytecode.OP_LOAD_INT16, 1, 1),
			bytecode.ABx(bytecode.OP_LOAD_INT16, 2, 2),
			bytecode.ABC(bytecode.OP_ADD_INT, 0, 1, 2),
			bytecode.ABC(bytecode.OP_RETURN, 0, 0, 0),
		},
		Consts: []value.Value{
			bytecode.MakeFuncDesc(bytecode.FuncDesc{Name: "main", Entry: 0, Params: 0, Regs: 3}),
		},
		Entry:       0,
		GlobalCount: 0,
	}
	info := &debug.Info{
		Lines: []debug.LineEntry{
			{PC: 0, Line: 1, File: "main.td"},
			{PC: 1, Line: 2, File: "main.td"},
			{PC: 2, Line: 3, File: "main.td"},
			{PC: 3, Line: 4, File: "main.td"},
		},
		Funcs:  []debug.FuncEntry{{Name: "main", Pool: 0, Entry: 0, End: 4}},
		Vars:   []debug.VarEntry{{Name: "x", Reg: 1, Scope: 0}},
		Scopes: []debug.ScopeEntry{{Func: 0, StartPC: 0, EndPC: 4}},
	}
	info.Normalize()
	return p, info
}

func spin() (*bytecode.Program, *debug.Info) {
	p := &bytecode.Program{
		Code: []bytecode.Instruction{
			bytecode.Sx(bytecode.OP_JMP, -1),
		},
		Consts: []value.Value{
			bytecode.MakeFuncDesc(bytecode.FuncDesc{Name: "main", Entry: 0, Params: 0, Regs: 1}),
		},
	}
	return p, nil
}

type wireMsg struct {
	Seq        int             `json:"seq"`
	Type       string          `json:"type"`
	Command    string          `json:"command,omitempty"`
	RequestSeq int             `json:"request_seq,omitempty"`
	Success    bool            `json:"success,omitempty"`
	Message    string          `json:"message,omitempty"`
	Event      string          `json:"event,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// testClient drives a session over one end of a net.Pipe. Events that
// arrive while waiting for a response are queued.
type testClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
	seq    int
	queued []wireMsg
}

func newTestClient(t *testing.T, prog *bytecode.Program, info *debug.Info) *testClient {
	t.Helper()
	server, client := net.Pipe()
	sess := NewSession(server, SessionOptions{
		Load: func(string) (*bytecode.Program, *debug.Info, error) {
			return prog, info, nil
		},
	})
	go sess.Serve() //nolint:errcheck
	c := &testClient{t: t, conn: client, reader: bufio.NewReader(client)}
	t.Cleanup(func() { client.Close() })
	return c
}

func (c *testClient) send(cmd string, args interface{}) {
	c.t.Helper()
	c.seq++
	req := map[string]interface{}{
		"seq":     c.seq,
		"type":    "request",
		"command": cmd,
	}
	if args != nil {
		req["arguments"] = args
	}
	data, err := json.Marshal(req)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.SetWriteDeadline(time.Now().Add(5*time.Second)))
	require.NoError(c.t, WriteFrame(c.conn, data))
}

func (c *testClient) read() wireMsg {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	body, err := ReadFrame(c.reader)
	require.NoError(c.t, err)
	var m wireMsg
	require.NoError(c.t, json.Unmarshal(body, &m))
	return m
}

// response waits for the response to cmd, queuing events seen on the way.
func (c *testClient) response(cmd string) wireMsg {
	c.t.Helper()
	for i := 0; i < 20; i++ {
		m := c.read()
		if m.Type == "response" && m.Command == cmd {
			return m
		}
		c.queued = append(c.queued, m)
	}
	c.t.Fatalf("no response for %s", cmd)
	return wireMsg{}
}

// event waits for the named event, checking the queue first.
func (c *testClient) event(name string) wireMsg {
	c.t.Helper()
	for i, m := range c.queued {
		if m.Type == "event" && m.Event == name {
			c.queued = append(c.queued[:i], c.queued[i+1:]...)
			return m
		}
	}
	for i := 0; i < 20; i++ {
		m := c.read()
		if m.Type == "event" && m.Event == name {
			return m
		}
		c.queued = append(c.queued, m)
	}
	c.t.Fatalf("no %s event", name)
	return wireMsg{}
}

func (c *testClient) ok(cmd string, args interface{}) wireMsg {
	c.t.Helper()
	c.send(cmd, args)
	m := c.response(cmd)
	require.True(c.t, m.Success, "%s failed: %s", cmd, m.Message)
	return m
}

func stoppedReason(t *testing.T, m wireMsg) string {
	t.Helper()
	var body StoppedBody
	require.NoError(t, json.Unmarshal(m.Body, &body))
	assert.Equal(t, threadID, body.ThreadID)
	return body.Reason
}

func TestSessionBreakpointScenario(t *testing.T) {
	prog, info := straightLine()
	c := newTestClient(t, prog, info)

	c.ok("initialize", nil)
	c.event("initialized")

	c.ok("launch", LaunchArgs{Program: "main.tbc"})
	c.event("process")

	resp := c.ok("setBreakpoints", SetBreakpointsArgs{
		Source:      Source{Path: "main.td"},
		Breakpoints: []SourceBreakpoint{{Line: 2}, {Line: 99}},
	})
	var bps struct {
		Breakpoints []BreakpointInfo `json:"breakpoints"`
	}
	require.NoError(t, json.Unmarshal(resp.Body, &bps))
	require.Len(t, bps.Breakpoints, 2)
	assert.True(t, bps.Breakpoints[0].Verified)
	assert.False(t, bps.Breakpoints[1].Verified, "unmapped line must stay unverified")

	c.ok("configurationDone", nil)
	assert.Equal(t, "breakpoint", stoppedReason(t, c.event("stopped")))

	// Thread, stack and variable inspection while paused.
	resp = c.ok("threads", nil)
	var threads struct {
		Threads []Thread `json:"threads"`
	}
	require.NoError(t, json.Unmarshal(resp.Body, &threads))
	require.Len(t, threads.Threads, 1)
	assert.Equal(t, "main", threads.Threads[0].Name)

	resp = c.ok("stackTrace", StackTraceArgs{ThreadID: threadID})
	var st struct {
		StackFrames []StackFrame `json:"stackFrames"`
		TotalFrames int          `json:"totalFrames"`
	}
	require.NoError(t, json.Unmarshal(resp.Body, &st))
	require.Equal(t, 1, st.TotalFrames)
	assert.Equal(t, "main", st.StackFrames[0].Name)
	assert.Equal(t, 2, st.StackFrames[0].Line)

	resp = c.ok("scopes", ScopesArgs{FrameID: 0})
	var scopes struct {
		Scopes []Scope `json:"scopes"`
	}
	require.NoError(t, json.Unmarshal(resp.Body, &scopes))
	require.NotEmpty(t, scopes.Scopes)
	assert.Equal(t, "Locals", scopes.Scopes[0].Name)

	resp = c.ok("variables", VariablesArgs{VariablesReference: scopes.Scopes[0].VariablesReference})
	var vars struct {
		Variables []Variable `json:"variables"`
	}
	require.NoError(t, json.Unmarshal(resp.Body, &vars))
	require.Len(t, vars.Variables, 1)
	assert.Equal(t, "x", vars.Variables[0].Name)
	assert.Equal(t, "1", vars.Variables[0].Value)

	resp = c.ok("evaluate", EvaluateArgs{Expression: "x", FrameID: 0})
	var eval EvaluateBody
	require.NoError(t, json.Unmarshal(resp.Body, &eval))
	assert.Equal(t, "1", eval.Result)

	// Resuming must not re-trigger the same breakpoint: the run goes
	// straight to termination.
	resp = c.ok("continue", nil)
	var cont ContinueBody
	require.NoError(t, json.Unmarshal(resp.Body, &cont))
	assert.True(t, cont.AllThreadsContinued)
	c.event("terminated")

	c.ok("disconnect", nil)
}

func TestSessionStepOverStraightLine(t *testing.T) {
	prog, info := straightLine()
	c := newTestClient(t, prog, info)

	c.ok("initialize", nil)
	c.event("initialized")
	c.ok("launch", LaunchArgs{Program: "main.tbc", StopOnEntry: true})
	c.ok("configurationDone", nil)
	assert.Equal(t, "entry", stoppedReason(t, c.event("stopped")))

	// Three step-overs advance exactly one line each.
	for i, wantLine := range []int{2, 3, 4} {
		c.ok("next", nil)
		assert.Equal(t, "step", stoppedReason(t, c.event("stopped")), "step %d", i)

		resp := c.ok("stackTrace", StackTraceArgs{ThreadID: threadID})
		var st struct {
			StackFrames []StackFrame `json:"stackFrames"`
		}
		require.NoError(t, json.Unmarshal(resp.Body, &st))
		require.NotEmpty(t, st.StackFrames)
		assert.Equal(t, wantLine, st.StackFrames[0].Line, "step %d", i)
	}

	c.ok("continue", nil)
	c.event("terminated")
	c.ok("disconnect", nil)
}

func TestSessionPauseAndTerminate(t *testing.T) {
	prog, info := spin()
	c := newTestClient(t, prog, info)

	c.ok("initialize", nil)
	c.event("initialized")
	c.ok("launch", LaunchArgs{Program: "spin.tbc"})
	c.ok("configurationDone", nil)

	c.ok("pause", nil)
	assert.Equal(t, "pause", stoppedReason(t, c.event("stopped")))

	c.ok("disconnect", nil)
}

func TestSessionProtocolErrors(t *testing.T) {
	prog, info := straightLine()
	c := newTestClient(t, prog, info)

	c.ok("initialize", nil)

	// Unknown command: failed response, session stays usable.
	c.send("frobnicate", nil)
	m := c.response("frobnicate")
	assert.False(t, m.Success)
	assert.Contains(t, m.Message, "unknown command")

	// Inspection before launch fails without killing anything.
	c.send("stackTrace", StackTraceArgs{ThreadID: threadID})
	m = c.response("stackTrace")
	assert.False(t, m.Success)

	// Continue while not paused.
	c.ok("launch", LaunchArgs{Program: "main.tbc"})
	c.send("continue", nil)
	m = c.response("continue")
	assert.False(t, m.Success)

	c.ok("disconnect", nil)
}

func TestSessionEvaluateMiss(t *testing.T) {
	prog, info := straightLine()
	c := newTestClient(t, prog, info)

	c.ok("initialize", nil)
	c.ok("launch", LaunchArgs{Program: "main.tbc", StopOnEntry: true})
	c.ok("configurationDone", nil)
	c.event("stopped")

	c.send("evaluate", EvaluateArgs{Expression: "no_such_var", FrameID: 0})
	m := c.response("evaluate")
	assert.False(t, m.Success)
	assert.Contains(t, m.Message, "cannot evaluate")

	c.ok("continue", nil)
	c.event("terminated")
	c.ok("disconnect", nil)
}
