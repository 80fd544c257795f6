package debug

// Breakpoint binds a source line to a resolved instruction index. An
// unresolved line (no matching source-map entry) stays unverified and
// never hits.
type Breakpoint struct {
	ID        int
	File      string
	Line      int
	PC        int
	Enabled   bool
	Verified  bool
	Condition string
}

// Table is the mutable breakpoint set for one debug session. Hit-testing
// by instruction index is a map lookup, consulted once per dispatched
// instruction while a session is attached.
type Table struct {
	byID   map[int]*Breakpoint
	byPC   map[int]*Breakpoint
	byFile map[string][]*Breakpoint
	nextID int
}

func NewTable() *Table {
	return &Table{
		byID:   make(map[int]*Breakpoint),
		byPC:   make(map[int]*Breakpoint),
		byFile: make(map[string][]*Breakpoint),
		nextID: 1,
	}
}

// Set installs a breakpoint. verified=false records the request without
// arming anything (the client still sees it in responses).
func (t *Table) Set(file string, line, pc int, verified bool, condition string) *Breakpoint {
	bp := &Breakpoint{
		ID:        t.nextID,
		File:      file,
		Line:      line,
		PC:        pc,
		Enabled:   true,
		Verified:  verified,
		Condition: condition,
	}
	t.nextID++
	t.byID[bp.ID] = bp
	if verified {
		t.byPC[pc] = bp
	}
	t.byFile[file] = append(t.byFile[file], bp)
	return bp
}

// Remove deletes a breakpoint by id.
func (t *Table) Remove(id int) bool {
	bp, ok := t.byID[id]
	if !ok {
		return false
	}
	delete(t.byID, id)
	if bp.Verified && t.byPC[bp.PC] == bp {
		delete(t.byPC, bp.PC)
	}
	list := t.byFile[bp.File]
	for i, b := range list {
		if b == bp {
			t.byFile[bp.File] = append(list[:i], list[i+1:]...)
			break
		}
	}
	return true
}

// ClearFile removes every breakpoint bound to file. setBreakpoints
// replaces a file's breakpoints wholesale, so this runs first.
func (t *Table) ClearFile(file string) {
	for _, bp := range t.byFile[file] {
		delete(t.byID, bp.ID)
		if bp.Verified && t.byPC[bp.PC] == bp {
			delete(t.byPC, bp.PC)
		}
	}
	delete(t.byFile, file)
}

// SetEnabled toggles a breakpoint without forgetting it.
func (t *Table) SetEnabled(id int, enabled bool) bool {
	bp, ok := t.byID[id]
	if !ok {
		return false
	}
	bp.Enabled = enabled
	return true
}

// Hit returns the enabled, verified breakpoint at pc, if any.
func (t *Table) Hit(pc int) (*Breakpoint, bool) {
	bp, ok := t.byPC[pc]
	if !ok || !bp.Enabled {
		return nil, false
	}
	return bp, true
}

// All returns every installed breakpoint.
func (t *Table) All() []*Breakpoint {
	out := make([]*Breakpoint, 0, len(t.byID))
	for _, bp := range t.byID {
		out = append(out, bp)
	}
	return out
}
