package debug

// StepMode is the debugger-requested stopping granularity, consulted once
// per executed instruction. Only protocol commands mutate it.
type StepMode int

const (
	StepNone StepMode = iota
	StepIn
	StepOver
	StepOut
)

func (m StepMode) String() string {
	switch m {
	case StepIn:
		return "stepIn"
	case StepOver:
		return "stepOver"
	case StepOut:
		return "stepOut"
	default:
		return "none"
	}
}

// Stepper decides when a step command is satisfied. Arm records the call
// depth and the source line being left; ShouldStop evaluates the
// predicate for the instruction about to execute.
type Stepper struct {
	mode  StepMode
	depth int
	line  int
	file  string
}

// Arm starts a step operation from the given call depth and source
// position.
func (s *Stepper) Arm(mode StepMode, depth int, at LineEntry) {
	s.mode = mode
	s.depth = depth
	s.line = at.Line
	s.file = at.File
}

// Clear disarms the stepper.
func (s *Stepper) Clear() {
	s.mode = StepNone
}

// Mode returns the armed mode.
func (s *Stepper) Mode() StepMode {
	return s.mode
}

// ShouldStop evaluates the stepping predicate for the instruction about
// to execute at the given call depth and mapped source position. mapped
// is false for instructions with no source-map entry; those never
// satisfy a step.
//
//	StepOver: depth <= armed depth AND the line differs from the one left
//	StepOut:  depth <= armed depth - 1
//	StepIn:   the line differs from the one left, regardless of depth
func (s *Stepper) ShouldStop(depth int, at LineEntry, mapped bool) bool {
	switch s.mode {
	case StepOver:
		if depth > s.depth {
			return false
		}
		return mapped && (at.Line != s.line || at.File != s.file)
	case StepOut:
		return depth <= s.depth-1
	case StepIn:
		return mapped && (at.Line != s.line || at.File != s.file)
	default:
		return false
	}
}
