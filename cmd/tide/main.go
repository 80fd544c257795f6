// Command tide runs, inspects and debugs compiled Tide programs.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"

	"github.com/tidelang/tide/internal/bytecode"
	"github.com/tidelang/tide/internal/config"
	"github.com/tidelang/tide/internal/dap"
	"github.com/tidelang/tide/internal/engine"
	"github.com/tidelang/tide/internal/hostlib"
)

const version = "0.1.0"

func usage() {
	fmt.Fprintf(os.Stderr, `tide %s - bytecode virtual machine

Usage:
  tide run [-unchecked] <program%s>     execute a program
  tide disasm <program%s>               print a bytecode listing
  tide debug [options]                 serve the debug adapter protocol
  tide version                         print the version

Debug options:
  -stdio            serve one session over stdin/stdout
  -addr host:port   TCP listen address (default from tide.yaml)
  -ws               serve over WebSocket instead of raw TCP
  -stop-on-entry    pause every launched program on its first instruction
  -v                verbose adapter logging

Configuration is read from the nearest tide.yaml, walking up from the
current directory.
`, version, config.ArtifactExt, config.ArtifactExt)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "run":
		cmdRun(os.Args[2:])
	case "disasm":
		cmdDisasm(os.Args[2:])
	case "debug":
		cmdDebug(os.Args[2:])
	case "version":
		fmt.Println("tide " + version)
	case "help", "-h", "--help":
		usage()
	default:
		fail("unknown command %q", os.Args[1])
	}
}

// loadConfig resolves the nearest tide.yaml, defaults when none exists.
func loadConfig() *config.Config {
	path, err := config.Find(".")
	if err != nil || path == "" {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fail("%v", err)
	}
	return cfg
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	unchecked := fs.Bool("unchecked", false, "disable bytecode validation")
	fs.Parse(args) //nolint:errcheck
	if fs.NArg() != 1 {
		fail("run: want exactly one program file")
	}

	cfg := loadConfig()
	prog, _, err := bytecode.LoadFile(fs.Arg(0))
	if err != nil {
		fail("%v", err)
	}

	e := engine.New(prog, engine.Options{
		Output:    os.Stdout,
		Unchecked: *unchecked || cfg.Unchecked(),
	})
	hostlib.RegisterWith(e, hostlib.Options{StorePath: cfg.Store})

	result, err := e.Run()
	if err != nil {
		fail("%v", err)
	}
	if !result.IsNull() {
		fmt.Println(result.String())
	}
}

func cmdDisasm(args []string) {
	if len(args) != 1 {
		fail("disasm: want exactly one program file")
	}
	prog, info, err := bytecode.LoadFile(args[0])
	if err != nil {
		fail("%v", err)
	}
	fmt.Printf("; %s: %d instructions, %d constants, %d globals\n",
		args[0], len(prog.Code), len(prog.Consts), prog.GlobalCount)
	if info != nil {
		fmt.Printf("; debug info: %d line entries, %d functions\n", len(info.Lines), len(info.Funcs))
	}
	bytecode.Disassemble(os.Stdout, prog)
}

func cmdDebug(args []string) {
	fs := flag.NewFlagSet("debug", flag.ExitOnError)
	stdio := fs.Bool("stdio", false, "serve one session over stdin/stdout")
	addr := fs.String("addr", "", "TCP listen address")
	ws := fs.Bool("ws", false, "serve over WebSocket")
	stopOnEntry := fs.Bool("stop-on-entry", false, "pause launched programs on entry")
	verbose := fs.Bool("v", false, "verbose adapter logging")
	fs.Parse(args) //nolint:errcheck

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	cfg := loadConfig()
	opts := dap.SessionOptions{
		Setup: func(e *engine.Engine) {
			hostlib.RegisterWith(e, hostlib.Options{StorePath: cfg.Store})
		},
		StopOnEntry: *stopOnEntry || cfg.Debug.StopOnEntry,
	}

	var err error
	switch {
	case *stdio:
		err = dap.ServeStdio(opts)
	case *ws || cfg.Debug.WebSocket:
		err = dap.ServeWebSocket(listenAddr(*addr, cfg), "/dap", opts)
	default:
		err = dap.ServeTCP(listenAddr(*addr, cfg), opts)
	}
	if err != nil {
		fail("%v", err)
	}
}

func listenAddr(flagAddr string, cfg *config.Config) string {
	if flagAddr != "" {
		return flagAddr
	}
	return cfg.Debug.Addr
}

// fail prints an error, red when stderr is a terminal, and exits.
func fail(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		fmt.Fprintf(os.Stderr, "\x1b[31merror:\x1b[0m %s\n", msg)
	} else {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	}
	os.Exit(1)
}
