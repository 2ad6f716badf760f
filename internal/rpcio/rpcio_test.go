package rpcio

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestConnReadParsesOneLine(t *testing.T) {
	conn := NewConn(strings.NewReader(`{"id":1,"method":"lookup","params":{"name":"widget"}}`+"\n"), &bytes.Buffer{})
	req, err := conn.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if req.Method != "lookup" {
		t.Fatalf("Method = %q, want lookup", req.Method)
	}
	var id int
	if err := json.Unmarshal(req.ID, &id); err != nil || id != 1 {
		t.Fatalf("ID = %s, want 1", req.ID)
	}
}

func TestConnReadReturnsErrClosedAtEOF(t *testing.T) {
	conn := NewConn(strings.NewReader(""), &bytes.Buffer{})
	if _, err := conn.Read(); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestConnWriteEmitsOneJSONLine(t *testing.T) {
	var buf bytes.Buffer
	conn := NewConn(strings.NewReader(""), &buf)
	if err := conn.Write(Response{ID: json.RawMessage("1"), Result: "ok"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := buf.String(); got != `{"id":1,"result":"ok"}`+"\n" {
		t.Fatalf("Write output = %q", got)
	}
}

func TestServeDispatchesEveryLineAndStopsOnClose(t *testing.T) {
	in := strings.NewReader(
		`{"id":1,"method":"ping","params":null}` + "\n" +
			`{"id":2,"method":"boom","params":null}` + "\n",
	)
	var out bytes.Buffer
	conn := NewConn(in, &out)

	var calls []string
	err := Serve(conn, func(method string, params json.RawMessage) (interface{}, error) {
		calls = append(calls, method)
		if method == "boom" {
			return nil, errors.New("kaboom")
		}
		return "pong", nil
	})
	if err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 dispatched calls, got %d", len(calls))
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 response lines, got %d", len(lines))
	}
	var r1, r2 Response
	json.Unmarshal([]byte(lines[0]), &r1)
	json.Unmarshal([]byte(lines[1]), &r2)
	if r1.Result != "pong" {
		t.Fatalf("first response = %+v, want result pong", r1)
	}
	if r2.Error != "kaboom" {
		t.Fatalf("second response = %+v, want error kaboom", r2)
	}
}

func TestConnReadRejectsMalformedLine(t *testing.T) {
	conn := NewConn(strings.NewReader("not json\n"), &bytes.Buffer{})
	if _, err := conn.Read(); err == nil {
		t.Fatal("expected an error for a malformed request line")
	}
}
