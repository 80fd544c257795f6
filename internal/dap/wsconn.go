package dap

import (
	"io"

	"github.com/gorilla/websocket"
)

// WSConn adapts a websocket connection to the io.ReadWriter the framing
// layer expects. Reads drain message frames in order; each Write becomes
// one binary message. Not safe for concurrent reads, which matches the
// single session goroutine.
type WSConn struct {
	conn    *websocket.Conn
	pending io.Reader
}

func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

func (c *WSConn) Read(p []byte) (int, error) {
	for {
		if c.pending == nil {
			_, r, err := c.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			c.pending = r
		}
		n, err := c.pending.Read(p)
		if err == io.EOF {
			c.pending = nil
			if n == 0 {
				continue
			}
			return n, nil
		}
		return n, err
	}
}

func (c *WSConn) Write(p []byte) (int, error) {
	if err := c.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *WSConn) Close() error {
	return c.conn.Close()
}
