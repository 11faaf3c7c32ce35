// Package ipc carries activation requests from a second launch to the
// running instance over a per-user named pipe.
package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"quickcmd/internal/userutil"
)

var pipeNamePattern = regexp.MustCompile(`(?i)^\\\\\.\\pipe\\QuickCmd-[a-z0-9._-]{1,128}$`)

const (
	defaultPipePrefix = `\\.\pipe\QuickCmd-`
	pipeNameEnv       = "QUICKCMD_PIPE"
	maxFrameBytes     = 4 * 1024
)

// Actions understood by the running instance.
const (
	ActionShowWindow   = "show-window"
	ActionShowSettings = "show-settings"
)

// ErrUnsupported is returned on platforms without named pipes.
var ErrUnsupported = errors.New("ipc: named pipes unsupported on this platform")

// Request is one activation request.
type Request struct {
	Action string `json:"action"`
}

// Response answers a Request.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Handler executes a request inside the running instance.
type Handler interface {
	Handle(req Request) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(Request) Response

func (f HandlerFunc) Handle(req Request) Response { return f(req) }

// DefaultPipeName returns the pipe path to use. QUICKCMD_PIPE overrides the
// per-user default when it matches the allowed pattern.
func DefaultPipeName() string {
	if v, ok := trustedPipeNameFromEnv(); ok {
		return v
	}
	return defaultPipePrefix + userutil.SanitizeUsername(userutil.CurrentUsername())
}

func trustedPipeNameFromEnv() (string, bool) {
	value := strings.TrimSpace(os.Getenv(pipeNameEnv))
	if value == "" {
		return "", false
	}
	if !pipeNamePattern.MatchString(value) {
		slog.Warn("[ipc] "+pipeNameEnv+" rejected: value does not match allowed pattern", "value", value)
		return "", false
	}
	return value, true
}

func decodeRequest(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, err
	}
	req.Action = strings.TrimSpace(req.Action)
	if req.Action == "" {
		return Request{}, errors.New("missing action")
	}
	return req, nil
}

func decodeResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// writeFrame writes v as one newline-terminated JSON line.
func writeFrame(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(raw, '\n'))
	return err
}

// readFrame reads one newline-delimited frame. A final frame without a
// delimiter is accepted at EOF.
func readFrame(reader *bufio.Reader) ([]byte, error) {
	raw, err := reader.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("frame exceeds %d bytes", maxFrameBytes)
	}
	if errors.Is(err, io.EOF) {
		if len(raw) == 0 {
			return nil, io.EOF
		}
		return raw, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// serve handles one connection's request/response exchange.
func serve(rw io.ReadWriter, handler Handler) {
	raw, err := readFrame(bufio.NewReaderSize(rw, maxFrameBytes+1))
	if errors.Is(err, io.EOF) {
		slog.Debug("[ipc] client disconnected without sending data")
		return
	}
	var resp Response
	if err == nil {
		var req Request
		if req, err = decodeRequest(raw); err == nil {
			slog.Debug("[DEBUG-IPC] received request", "action", req.Action)
			resp = handler.Handle(req)
		}
	}
	if err != nil {
		resp = Response{Error: fmt.Sprintf("invalid request: %v", err)}
	}
	if err := writeFrame(rw, resp); err != nil {
		slog.Debug("[ipc] failed to write response", "error", err)
	}
}

// exchange sends req over rw and reads the response.
func exchange(rw io.ReadWriter, req Request) (Response, error) {
	if err := writeFrame(rw, req); err != nil {
		return Response{}, err
	}
	raw, err := readFrame(bufio.NewReaderSize(rw, maxFrameBytes+1))
	if err != nil {
		return Response{}, err
	}
	resp, err := decodeResponse(raw)
	if err != nil {
		return Response{}, fmt.Errorf("invalid response: %w", err)
	}
	if !resp.OK && resp.Error != "" {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}
