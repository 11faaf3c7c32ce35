//go:build windows

package ipc

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

const (
	defaultPipeDialTimeout = 2 * time.Second
	defaultPipeRWTimeout   = 5 * time.Second
)

// Send delivers one request to the running instance.
func Send(pipeName string, req Request) (Response, error) {
	if pipeName == "" {
		pipeName = DefaultPipeName()
	}

	dialTimeout := defaultPipeDialTimeout
	conn, err := winio.DialPipe(pipeName, &dialTimeout)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(defaultPipeRWTimeout)); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}
	return exchange(conn, req)
}

// IsConnectionError reports whether err means no server is listening.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, winio.ErrTimeout) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial" || opErr.Op == "open"
	}
	return false
}
