// Package rpcio implements the line-delimited JSON framing cmd/packradard
// speaks over stdio: just enough request/response shape for an editor-side
// client or a test harness to drive the daemon, not a textDocument/* LSP
// transport.
package rpcio

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Request is one inbound line: {"id":,"method":,"params":}.
type Request struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is one outbound line: {"id":,"result":} or {"id":,"error":}.
type Response struct {
	ID     json.RawMessage `json:"id"`
	Result interface{}     `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Handler resolves one request's params into a result value, or an error
// that becomes the response's Error string.
type Handler func(method string, params json.RawMessage) (interface{}, error)

// Conn reads newline-delimited Requests from r and writes newline-delimited
// Responses to w. Writes are serialized so concurrent handler goroutines
// never interleave partial lines.
type Conn struct {
	scanner *bufio.Scanner
	w       io.Writer
	mu      sync.Mutex
}

// NewConn wraps a reader/writer pair, typically os.Stdin/os.Stdout.
func NewConn(r io.Reader, w io.Writer) *Conn {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	return &Conn{scanner: scanner, w: w}
}

// ErrClosed is returned by Read when the input stream has been exhausted.
var ErrClosed = fmt.Errorf("rpcio: connection closed")

// Read blocks for the next request line. It returns ErrClosed once the
// underlying reader is exhausted.
func (c *Conn) Read() (Request, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return Request{}, err
		}
		return Request{}, ErrClosed
	}
	line := c.scanner.Bytes()
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("rpcio: malformed request line: %w", err)
	}
	return req, nil
}

// Write serializes resp as one JSON line, safe for concurrent callers.
func (c *Conn) Write(resp Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(payload); err != nil {
		return err
	}
	_, err = c.w.Write([]byte("\n"))
	return err
}

// Serve reads requests until the connection closes or the reader fails,
// dispatching each to handler and writing its response. One malformed
// request line degrades to an error response for that line rather than
// ending the loop, mirroring the manifest parsers' total-parsing contract.
func Serve(conn *Conn, handler Handler) error {
	for {
		req, err := conn.Read()
		if err != nil {
			if err == ErrClosed {
				return nil
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				if werr := conn.Write(Response{Error: err.Error()}); werr != nil {
					return werr
				}
				continue
			}
			return err
		}
		result, herr := handler(req.Method, req.Params)
		resp := Response{ID: req.ID}
		if herr != nil {
			resp.Error = herr.Error()
		} else {
			resp.Result = result
		}
		if werr := conn.Write(resp); werr != nil {
			return werr
		}
	}
}
