//go:build windows

package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/user"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Microsoft/go-winio"
)

const (
	defaultPipeConnTimeout = 5 * time.Second
	maxConcurrentConns     = 4
)

// PipeServer answers activation requests on a named pipe.
type PipeServer struct {
	pipeName string
	handler  Handler

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	listener  net.Listener
	started   bool
	wg        sync.WaitGroup
	connSlots chan struct{}
}

// NewPipeServer constructs a PipeServer. An empty pipeName uses DefaultPipeName.
func NewPipeServer(pipeName string, handler Handler) *PipeServer {
	ctx, cancel := context.WithCancel(context.Background())
	if pipeName == "" {
		pipeName = DefaultPipeName()
	}
	return &PipeServer{
		pipeName:  pipeName,
		handler:   handler,
		ctx:       ctx,
		cancel:    cancel,
		connSlots: make(chan struct{}, maxConcurrentConns),
	}
}

// PipeName returns the listen pipe name.
func (s *PipeServer) PipeName() string {
	return s.pipeName
}

// Start begins listening.
func (s *PipeServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("pipe server already started")
	}
	if s.handler == nil {
		return errors.New("pipe server requires handler")
	}

	listener, err := listenPipeWithCurrentUserDACL(s.pipeName)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.pipeName, err)
	}
	s.listener = listener
	s.started = true
	s.wg.Go(s.acceptLoop)
	return nil
}

// Stop closes the listener and waits for in-flight connections.
func (s *PipeServer) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.cancel()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()

	if listener != nil {
		if err := listener.Close(); err != nil {
			slog.Warn("[ipc] failed to close pipe listener during shutdown", "error", err)
		}
	}
	s.wg.Wait()
	return nil
}

func (s *PipeServer) acceptLoop() {
	consecutiveErrors := 0
	for {
		s.mu.Lock()
		listener := s.listener
		s.mu.Unlock()
		if listener == nil {
			return
		}

		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			consecutiveErrors++
			if consecutiveErrors > 10 {
				slog.Warn("[ipc] accept loop: repeated failures", "error", err, "count", consecutiveErrors)
				time.Sleep(500 * time.Millisecond)
			} else {
				slog.Debug("[ipc] accept error", "error", err)
			}
			continue
		}
		consecutiveErrors = 0

		select {
		case s.connSlots <- struct{}{}:
		default:
			_ = writeFrame(conn, Response{Error: "server busy"})
			_ = conn.Close()
			continue
		}
		s.wg.Go(func() {
			defer func() { <-s.connSlots }()
			defer conn.Close()
			if err := conn.SetDeadline(time.Now().Add(defaultPipeConnTimeout)); err != nil {
				slog.Warn("[ipc] failed to set connection deadline", "error", err)
				return
			}
			serve(conn, s.handler)
		})
	}
}

// listenPipeWithCurrentUserDACL creates a listener only SYSTEM and the
// current user may connect to.
func listenPipeWithCurrentUserDACL(pipeName string) (net.Listener, error) {
	securityDescriptor, err := pipeSecurityDescriptor()
	if err != nil {
		return nil, err
	}
	return winio.ListenPipe(pipeName, &winio.PipeConfig{
		SecurityDescriptor: securityDescriptor,
		InputBufferSize:    maxFrameBytes,
		OutputBufferSize:   maxFrameBytes,
	})
}

var validSIDPattern = regexp.MustCompile(`^S-1(-\d+)+$`)

func pipeSecurityDescriptor() (string, error) {
	current, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("resolve current user: %w", err)
	}
	sid := strings.TrimSpace(current.Uid)
	if sid == "" {
		return "", errors.New("current user SID is unavailable")
	}
	if !validSIDPattern.MatchString(sid) {
		return "", fmt.Errorf("current user SID has unexpected format: %s", sid)
	}
	// D:P protected DACL; full access for SYSTEM and the current user.
	return fmt.Sprintf("D:P(A;;GA;;;SY)(A;;GA;;;%s)", sid), nil
}
