// Package vmerr defines the runtime fault taxonomy shared by the value
// model, the execution engine and the debug adapter.
package vmerr

import "fmt"

// Kind classifies a fault.
type Kind int

const (
	// Structural - malformed bytecode: bad register, constant-pool or
	// jump-target index, or a data access the generated code must never
	// produce (array index out of range, division by zero).
	Structural Kind = iota
	// TypeMismatch - a Value accessed through the wrong variant, or a
	// non-renderable value handed to the JSON renderer.
	TypeMismatch
	// Conversion - a failed string-to-primitive parse.
	Conversion
	// InvalidEnum - a backing value that matches no enum member.
	InvalidEnum
	// ReceiverMismatch - an extern downcast to the wrong native class.
	ReceiverMismatch
	// Protocol - a malformed or unknown debugger request. The only
	// non-fatal kind: it yields a failed response, never a halt.
	Protocol
)

var kindNames = map[Kind]string{
	Structural:       "StructuralError",
	TypeMismatch:     "TypeMismatch",
	Conversion:       "ConversionError",
	InvalidEnum:      "InvalidEnumValue",
	ReceiverMismatch: "ReceiverMismatch",
	Protocol:         "ProtocolError",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "UnknownFault"
}

// Fault is a runtime defect in generated bytecode, supplied debug metadata
// or debugger-client usage. No fault is ever retried.
type Fault struct {
	Kind    Kind
	Message string
}

func (f *Fault) Error() string {
	return f.Kind.String() + ": " + f.Message
}

// Fatal reports whether the fault terminates the running program.
// Everything except protocol faults does.
func (f *Fault) Fatal() bool {
	return f.Kind != Protocol
}

// New creates a fault of the given kind.
func New(kind Kind, format string, args ...interface{}) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Structuralf(format string, args ...interface{}) *Fault {
	return New(Structural, format, args...)
}

func TypeMismatchf(format string, args ...interface{}) *Fault {
	return New(TypeMismatch, format, args...)
}

func Conversionf(format string, args ...interface{}) *Fault {
	return New(Conversion, format, args...)
}

func InvalidEnumf(format string, args ...interface{}) *Fault {
	return New(InvalidEnum, format, args...)
}

func ReceiverMismatchf(format string, args ...interface{}) *Fault {
	return New(ReceiverMismatch, format, args...)
}

func Protocolf(format string, args ...interface{}) *Fault {
	return New(Protocol, format, args...)
}

// AsFault extracts a *Fault from a recovered panic value, if it is one.
func AsFault(r interface{}) (*Fault, bool) {
	f, ok := r.(*Fault)
	return f, ok
}
