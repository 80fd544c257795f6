package dap

import (
	"io"
	"net"
	"net/http"
	"os"

	"github.com/gorilla/websocket"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("tide.dap.server")

// stdioConn pairs stdin/stdout into the ReadWriter a session needs.
type stdioConn struct{}

func (stdioConn) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioConn) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

// ServeStdio runs one session over the process's standard streams.
func ServeStdio(opts SessionOptions) error {
	return NewSession(stdioConn{}, opts).Serve()
}

// ServeTCP accepts debug clients on addr, one session per connection,
// sessions served sequentially: the engine a session launches owns the
// process's extern state.
func ServeTCP(addr string, opts SessionOptions) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer l.Close()
	log.Noticef("debug adapter listening on %s", addr)
	for {
		conn, err := l.Accept()
		if err != nil {
			return err
		}
		if err := serveConn(conn, opts); err != nil {
			log.Errorf("session ended with error: %v", err)
		}
	}
}

func serveConn(conn net.Conn, opts SessionOptions) error {
	defer conn.Close()
	return NewSession(conn, opts).Serve()
}

var upgrader = websocket.Upgrader{
	// The adapter is a local development tool; origin checks are the
	// embedding server's concern.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWebSocket serves the adapter protocol over a websocket endpoint.
func ServeWebSocket(addr, path string, opts SessionOptions) error {
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Errorf("websocket upgrade: %v", err)
			return
		}
		conn := NewWSConn(ws)
		defer conn.Close()
		if err := NewSession(conn, opts).Serve(); err != nil && err != io.EOF {
			log.Errorf("websocket session: %v", err)
		}
	})
	log.Noticef("debug adapter listening on ws://%s%s", addr, path)
	return http.ListenAndServe(addr, mux)
}
