//go:build !windows

package ipc

// PipeServer is inert on platforms without named pipes.
type PipeServer struct{ pipeName string }

func NewPipeServer(pipeName string, _ Handler) *PipeServer {
	if pipeName == "" {
		pipeName = DefaultPipeName()
	}
	return &PipeServer{pipeName: pipeName}
}

func (s *PipeServer) PipeName() string { return s.pipeName }
func (s *PipeServer) Start() error     { return ErrUnsupported }
func (s *PipeServer) Stop() error      { return nil }

func Send(string, Request) (Response, error) { return Response{}, ErrUnsupported }

func IsConnectionError(error) bool { return false }
