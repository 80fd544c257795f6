// Package hostlib is the built-in host extension library: a handful of
// core externs plus a SQLite-backed Store class, wired through the
// engine's extern function and class registries.
package hostlib

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tidelang/tide/internal/engine"
	"github.com/tidelang/tide/internal/value"
)

// clockBase anchors clock_ms. Program-visible time is relative to
// process start so it fits the int register width.
var clockBase = time.Now()

// Register installs the whole library with default options. Must run
// before the engine starts.
func Register(e *engine.Engine) {
	RegisterWith(e, Options{})
}

// RegisterWith installs the whole library.
func RegisterWith(e *engine.Engine, opts Options) {
	RegisterCore(e)
	RegisterStore(e, opts)
}

// RegisterCore installs the core externs.
func RegisterCore(e *engine.Engine) {
	e.RegisterExtern("print", extPrint)
	e.RegisterExtern("println", extPrintln)
	e.RegisterExtern("clock_ms", extClockMS)
	e.RegisterExtern("uuid", extUUID)
}

func extPrint(e *engine.Engine, args []value.Value) (value.Value, error) {
	for i, a := range args {
		if i > 0 {
			if _, err := fmt.Fprint(e.Output(), " "); err != nil {
				return value.Null(), err
			}
		}
		if _, err := fmt.Fprint(e.Output(), display(a)); err != nil {
			return value.Null(), err
		}
	}
	return value.Null(), nil
}

func extPrintln(e *engine.Engine, args []value.Value) (value.Value, error) {
	if _, err := extPrint(e, args); err != nil {
		return value.Null(), err
	}
	_, err := fmt.Fprintln(e.Output())
	return value.Null(), err
}

// display renders a value for program output: chars print bare, strings
// unquoted, everything else as its canonical form.
func display(v value.Value) string {
	if v.Kind() == value.KindChar {
		return string(v.Char())
	}
	return v.String()
}

func extClockMS(_ *engine.Engine, _ []value.Value) (value.Value, error) {
	return value.Int(int32(time.Since(clockBase).Milliseconds())), nil
}

func extUUID(_ *engine.Engine, _ []value.Value) (value.Value, error) {
	return value.Str(uuid.NewString()), nil
}
