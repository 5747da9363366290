package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/cursorsync/internal/cursor"
	"github.com/1broseidon/cursorsync/internal/daemon"
	"github.com/1broseidon/cursorsync/internal/runtimepath"
)

// Tracker is the daemon surface the server exposes. *daemon.Monitor
// implements it.
type Tracker interface {
	Status() daemon.Status
	Identity() (cursor.Identity, error)
	Extract(expected cursor.Identity) (cursor.Data, error)
	ExtractCurrent() (cursor.Data, error)
	Position() (cursor.Point, error)
	Reset()
	Subscribe() (<-chan daemon.Event, func())
}

var _ Tracker = (*daemon.Monitor)(nil)

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	tracker      Tracker
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server. socketOverride is the ipc.socket config
// value; empty uses the runtime directory.
func NewServer(socketOverride string, tracker Tracker) (*Server, error) {
	socketPath, err := runtimepath.SocketPath(socketOverride)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		tracker:    tracker,
		startTime:  time.Now(),
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	// Accept connections
	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	// Parse request
	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	if req.Command == CommandWatch {
		s.streamEvents(conn, reader)
		return
	}

	// Handle command
	resp := s.handleCommand(req)

	if err := writeLine(conn, resp); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandGetIdentity:
		return s.handleGetIdentity()
	case CommandExtract:
		return s.handleExtract(req.Payload)
	case CommandReset:
		return s.handleReset()
	case CommandGetPosition:
		return s.handleGetPosition()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// handleGetStatus returns current daemon status
func (s *Server) handleGetStatus() *Response {
	status := StatusData{
		Status:        s.tracker.Status(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		DaemonRunning: true,
	}

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleGetIdentity() *Response {
	id, err := s.tracker.Identity()
	if err != nil {
		return NewCursorErrorResponse("Failed to fingerprint cursor", err)
	}

	resp, _ := NewOKResponse(IdentityData{Identity: id})
	return resp
}

func (s *Server) handleExtract(payload json.RawMessage) *Response {
	var req ExtractPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid extract payload: %v", err))
		}
	}

	var (
		data cursor.Data
		err  error
	)
	if req.Current {
		data, err = s.tracker.ExtractCurrent()
	} else {
		data, err = s.tracker.Extract(req.Identity)
	}
	if err != nil {
		return NewCursorErrorResponse("Failed to extract cursor", err)
	}

	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) handleReset() *Response {
	log.Println("IPC: Received RESET command")
	s.tracker.Reset()

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleGetPosition() *Response {
	p, err := s.tracker.Position()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to query pointer: %v", err))
	}

	resp, _ := NewOKResponse(PositionData{X: p.X, Y: p.Y, Monitor: p.Monitor})
	return resp
}

// streamEvents writes identity changes until the client hangs up or the
// tracker closes the subscription.
func (s *Server) streamEvents(conn net.Conn, reader *bufio.Reader) {
	events, cancel := s.tracker.Subscribe()
	defer cancel()

	resp, _ := NewOKResponse(nil)
	if err := writeLine(conn, resp); err != nil {
		return
	}

	// Any read result means the client is gone.
	go func() {
		io.Copy(io.Discard, reader)
		cancel()
	}()

	for ev := range events {
		if err := writeLine(conn, ev); err != nil {
			return
		}
	}
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	writeLine(conn, NewErrorResponse(errMsg))
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}

func writeLine(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
