package dap

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tidelang/tide/internal/vmerr"
)

// ReadFrame reads one Content-Length framed payload. io.EOF passes
// through untouched so callers can distinguish a clean disconnect from a
// malformed header, which is a protocol fault.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	length := -1
	sawHeader := false
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" && !sawHeader {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("reading header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if !sawHeader {
				continue // stray blank line between messages
			}
			break // header/body separator
		}
		sawHeader = true
		if v, ok := strings.CutPrefix(line, "Content-Length: "); ok {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return nil, vmerr.Protocolf("bad Content-Length %q", v)
			}
			length = n
		}
		// Other headers are tolerated and ignored.
	}
	if length < 0 {
		return nil, vmerr.Protocolf("frame without Content-Length header")
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("reading %d-byte body: %w", length, err)
	}
	return body, nil
}

// WriteFrame writes one framed payload.
func WriteFrame(w io.Writer, body []byte) error {
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}
